// model/acl.go
package model

import "fmt"

// ACLEntry is a single grant: Subject may exercise Permission on Object.
// Absence of an entry means "not granted"; there are no deny entries.
type ACLEntry struct {
	Object     ObjectID  `json:"objectId"`
	Subject    SubjectID `json:"subjectId"`
	Permission string    `json:"permission"`
}

// NewACLEntry validates and constructs an ACLEntry.
func NewACLEntry(object ObjectID, subject SubjectID, permission string) (ACLEntry, error) {
	if err := entryValid(object, subject, permission); err != nil {
		return ACLEntry{}, err
	}
	return ACLEntry{Object: object, Subject: subject, Permission: permission}, nil
}

// Validate checks an entry that arrived over the wire.
func (e ACLEntry) Validate() error {
	return entryValid(e.Object, e.Subject, e.Permission)
}

func entryValid(object ObjectID, subject SubjectID, permission string) error {
	if object.Type == "" || object.ID == "" {
		return fmt.Errorf("acl entry object must have a type and an id")
	}
	if subject.Type == "" || subject.ID == "" {
		return fmt.Errorf("acl entry subject must have a type and an id")
	}
	if permission == "" {
		return fmt.Errorf("acl entry permission cannot be empty")
	}
	return nil
}

func (e ACLEntry) String() string {
	return fmt.Sprintf("%s may %s on %s", e.Subject, e.Permission, e.Object)
}
