// model/object.go
package model

import "fmt"

// ObjectID identifies a protected resource by a caller-defined type tag
// (e.g. "STREAM") and an id. Values are immutable.
type ObjectID struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

// NewObjectID validates and constructs an ObjectID.
func NewObjectID(objectType, id string) (ObjectID, error) {
	if objectType == "" {
		return ObjectID{}, fmt.Errorf("object type cannot be empty")
	}
	if id == "" {
		return ObjectID{}, fmt.Errorf("object id cannot be empty")
	}
	return ObjectID{Type: objectType, ID: id}, nil
}

func (o ObjectID) String() string {
	return fmt.Sprintf("%s:%s", o.Type, o.ID)
}
