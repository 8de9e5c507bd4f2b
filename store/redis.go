// store/redis.go
package store

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	logger "github.com/dev-mohitbeniwal/guardian/logging"
	"github.com/dev-mohitbeniwal/guardian/model"
)

// RedisStore keeps one Redis set of permissions per (object, subject)
// pair under "acl:{objectType}:{objectId}:{subjectType}:{subjectId}".
// Each field is query-escaped, so identifiers may contain any
// characters, ':' and glob metacharacters included.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func pairKey(object model.ObjectID, subject model.SubjectID) string {
	return fmt.Sprintf("acl:%s:%s:%s:%s",
		url.QueryEscape(object.Type), url.QueryEscape(object.ID),
		url.QueryEscape(string(subject.Type)), url.QueryEscape(subject.ID))
}

func (s *RedisStore) Put(ctx context.Context, entry model.ACLEntry) (bool, error) {
	if err := entry.Validate(); err != nil {
		return false, err
	}

	added, err := s.client.SAdd(ctx, pairKey(entry.Object, entry.Subject), entry.Permission).Result()
	if err != nil {
		return false, fmt.Errorf("failed to store acl entry: %w", err)
	}

	logger.Debug("ACL entry stored",
		zap.String("object", entry.Object.String()),
		zap.String("subject", entry.Subject.String()),
		zap.String("permission", entry.Permission),
		zap.Bool("created", added > 0))
	return added > 0, nil
}

func (s *RedisStore) Delete(ctx context.Context, object model.ObjectID, subject model.SubjectID, permission string) (bool, error) {
	removed, err := s.client.SRem(ctx, pairKey(object, subject), permission).Result()
	if err != nil {
		return false, fmt.Errorf("failed to delete acl entry: %w", err)
	}
	return removed > 0, nil
}

func (s *RedisStore) Search(ctx context.Context, query Query) ([]model.ACLEntry, error) {
	// The exact-pair case is the hot path: a single set read.
	if query.Object != nil && query.Subject != nil {
		return s.entriesForPair(ctx, *query.Object, *query.Subject)
	}

	matches := make([]model.ACLEntry, 0)
	var cursor uint64
	for {
		keys, next, err := s.client.Scan(ctx, cursor, scanPattern(query), 100).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to scan acl keys: %w", err)
		}
		for _, key := range keys {
			object, subject, ok := parsePairKey(key)
			if !ok || !query.Matches(model.ACLEntry{Object: object, Subject: subject, Permission: "-"}) {
				continue
			}
			entries, err := s.entriesForPair(ctx, object, subject)
			if err != nil {
				return nil, err
			}
			matches = append(matches, entries...)
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}
	sortEntries(matches)
	return matches, nil
}

func (s *RedisStore) entriesForPair(ctx context.Context, object model.ObjectID, subject model.SubjectID) ([]model.ACLEntry, error) {
	permissions, err := s.client.SMembers(ctx, pairKey(object, subject)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read acl entries: %w", err)
	}
	entries := make([]model.ACLEntry, 0, len(permissions))
	for _, permission := range permissions {
		entries = append(entries, model.ACLEntry{Object: object, Subject: subject, Permission: permission})
	}
	sortEntries(entries)
	return entries, nil
}

func scanPattern(query Query) string {
	if query.Object != nil {
		return fmt.Sprintf("acl:%s:%s:*", url.QueryEscape(query.Object.Type), url.QueryEscape(query.Object.ID))
	}
	if query.Subject != nil {
		return fmt.Sprintf("acl:*:*:%s:%s", url.QueryEscape(string(query.Subject.Type)), url.QueryEscape(query.Subject.ID))
	}
	return "acl:*"
}

// parsePairKey inverts pairKey. Escaped fields contain no ':', so the
// split is unambiguous.
func parsePairKey(key string) (model.ObjectID, model.SubjectID, bool) {
	parts := strings.Split(key, ":")
	if len(parts) != 5 || parts[0] != "acl" {
		return model.ObjectID{}, model.SubjectID{}, false
	}
	fields := make([]string, 4)
	for i, part := range parts[1:] {
		field, err := url.QueryUnescape(part)
		if err != nil {
			return model.ObjectID{}, model.SubjectID{}, false
		}
		fields[i] = field
	}
	object := model.ObjectID{Type: fields[0], ID: fields[1]}
	subject := model.SubjectID{Type: model.SubjectType(fields[2]), ID: fields[3]}
	return object, subject, true
}
