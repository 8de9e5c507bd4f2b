// model/subject.go
package model

import "fmt"

// SubjectType classifies a principal.
type SubjectType string

const (
	SubjectTypeUser      SubjectType = "USER"
	SubjectTypeGroup     SubjectType = "GROUP"
	SubjectTypeAnonymous SubjectType = "ANONYMOUS"
)

// SubjectID identifies a principal (user or group) that permissions can be
// granted to. Values are immutable; construct them and pass by value.
type SubjectID struct {
	Type SubjectType `json:"type"`
	ID   string      `json:"id"`
}

// AnonymousUser is the well-known identity of an unauthenticated caller.
var AnonymousUser = SubjectID{Type: SubjectTypeAnonymous, ID: "anonymous"}

// NewSubjectID validates and constructs a SubjectID.
func NewSubjectID(subjectType SubjectType, id string) (SubjectID, error) {
	if subjectType == "" {
		return SubjectID{}, fmt.Errorf("subject type cannot be empty")
	}
	if id == "" {
		return SubjectID{}, fmt.Errorf("subject id cannot be empty")
	}
	return SubjectID{Type: subjectType, ID: id}, nil
}

// UserSubject builds a USER subject.
func UserSubject(id string) SubjectID {
	return SubjectID{Type: SubjectTypeUser, ID: id}
}

// GroupSubject builds a GROUP subject.
func GroupSubject(id string) SubjectID {
	return SubjectID{Type: SubjectTypeGroup, ID: id}
}

func (s SubjectID) String() string {
	return fmt.Sprintf("%s:%s", s.Type, s.ID)
}
