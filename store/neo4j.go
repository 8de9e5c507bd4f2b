// store/neo4j.go
package store

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"

	"github.com/dev-mohitbeniwal/guardian/db"
	guardian_errors "github.com/dev-mohitbeniwal/guardian/errors"
	logger "github.com/dev-mohitbeniwal/guardian/logging"
	"github.com/dev-mohitbeniwal/guardian/model"
)

const (
	labelObject      = "Object"
	labelSubject     = "Subject"
	relHasPermission = "HAS_PERMISSION"
)

// Neo4jStore persists grants as (:Subject)-[:HAS_PERMISSION]->(:Object)
// relationships carrying the permission string.
type Neo4jStore struct {
	Driver neo4j.Driver
}

func NewNeo4jStore(driver neo4j.Driver) *Neo4jStore {
	return &Neo4jStore{Driver: driver}
}

func (s *Neo4jStore) Put(ctx context.Context, entry model.ACLEntry) (bool, error) {
	if err := entry.Validate(); err != nil {
		return false, err
	}

	result, err := db.ExecuteWriteTransaction(ctx, s.Driver, func(transaction neo4j.Transaction) (interface{}, error) {
		query := `
        MERGE (o:` + labelObject + ` {type: $objectType, id: $objectId})
        MERGE (s:` + labelSubject + ` {type: $subjectType, id: $subjectId})
        MERGE (s)-[r:` + relHasPermission + ` {permission: $permission}]->(o)
        ON CREATE SET r.createdAt = timestamp(), r.justCreated = true
        WITH r, coalesce(r.justCreated, false) AS created
        REMOVE r.justCreated
        RETURN created
        `

		result, err := transaction.Run(query, entryParams(entry.Object, entry.Subject, entry.Permission))
		if err != nil {
			return nil, guardian_errors.ErrDatabaseOperation
		}
		if result.Next() {
			return result.Record().Values[0], nil
		}
		return nil, guardian_errors.ErrInternalServer
	})

	if err != nil {
		logger.Error("Failed to store ACL entry",
			zap.Error(err),
			zap.String("object", entry.Object.String()),
			zap.String("subject", entry.Subject.String()))
		return false, err
	}

	created, _ := result.(bool)
	return created, nil
}

func (s *Neo4jStore) Delete(ctx context.Context, object model.ObjectID, subject model.SubjectID, permission string) (bool, error) {
	result, err := db.ExecuteWriteTransaction(ctx, s.Driver, func(transaction neo4j.Transaction) (interface{}, error) {
		query := `
        MATCH (s:` + labelSubject + ` {type: $subjectType, id: $subjectId})
              -[r:` + relHasPermission + ` {permission: $permission}]->
              (o:` + labelObject + ` {type: $objectType, id: $objectId})
        DELETE r
        RETURN count(r) AS removed
        `

		result, err := transaction.Run(query, entryParams(object, subject, permission))
		if err != nil {
			return nil, guardian_errors.ErrDatabaseOperation
		}
		if result.Next() {
			return result.Record().Values[0], nil
		}
		return nil, guardian_errors.ErrInternalServer
	})

	if err != nil {
		logger.Error("Failed to delete ACL entry",
			zap.Error(err),
			zap.String("object", object.String()),
			zap.String("subject", subject.String()))
		return false, err
	}

	removed, _ := result.(int64)
	return removed > 0, nil
}

func (s *Neo4jStore) Search(ctx context.Context, query Query) ([]model.ACLEntry, error) {
	params := map[string]interface{}{}
	cypher := `
    MATCH (s:` + labelSubject + `)-[r:` + relHasPermission + `]->(o:` + labelObject + `)
    `
	where := ""
	if query.Object != nil {
		where += "o.type = $objectType AND o.id = $objectId"
		params["objectType"] = query.Object.Type
		params["objectId"] = query.Object.ID
	}
	if query.Subject != nil {
		if where != "" {
			where += " AND "
		}
		where += "s.type = $subjectType AND s.id = $subjectId"
		params["subjectType"] = string(query.Subject.Type)
		params["subjectId"] = query.Subject.ID
	}
	if where != "" {
		cypher += "WHERE " + where + "\n"
	}
	cypher += `
    RETURN o.type, o.id, s.type, s.id, r.permission
    ORDER BY o.type, o.id, s.type, s.id, r.permission
    `

	result, err := db.ExecuteReadTransaction(ctx, s.Driver, func(transaction neo4j.Transaction) (interface{}, error) {
		result, err := transaction.Run(cypher, params)
		if err != nil {
			return nil, guardian_errors.ErrDatabaseOperation
		}

		entries := make([]model.ACLEntry, 0)
		for result.Next() {
			values := result.Record().Values
			entries = append(entries, model.ACLEntry{
				Object:     model.ObjectID{Type: values[0].(string), ID: values[1].(string)},
				Subject:    model.SubjectID{Type: model.SubjectType(values[2].(string)), ID: values[3].(string)},
				Permission: values[4].(string),
			})
		}
		return entries, result.Err()
	})

	if err != nil {
		return nil, fmt.Errorf("failed to search acl entries: %w", err)
	}

	return result.([]model.ACLEntry), nil
}

func entryParams(object model.ObjectID, subject model.SubjectID, permission string) map[string]interface{} {
	return map[string]interface{}{
		"objectType":  object.Type,
		"objectId":    object.ID,
		"subjectType": string(subject.Type),
		"subjectId":   subject.ID,
		"permission":  permission,
	}
}
