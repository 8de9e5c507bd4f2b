// service/acl_service.go
package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	guardian_errors "github.com/dev-mohitbeniwal/guardian/errors"
	logger "github.com/dev-mohitbeniwal/guardian/logging"
	"github.com/dev-mohitbeniwal/guardian/model"
	"github.com/dev-mohitbeniwal/guardian/store"
	"github.com/dev-mohitbeniwal/guardian/util"
)

// IACLService is the business boundary the controller talks to. It is a
// thin CRUD and query layer over the store; no caching and no
// permission-satisfaction logic happens here, all policy evaluation is
// client-side.
type IACLService interface {
	GetACLs(ctx context.Context, object model.ObjectID, subject model.SubjectID) ([]model.ACLEntry, error)
	SearchACLs(ctx context.Context, query store.Query, limit, offset int) ([]model.ACLEntry, error)
	SetACL(ctx context.Context, entry model.ACLEntry) (bool, error)
	DeleteACL(ctx context.Context, object model.ObjectID, subject model.SubjectID, permission string) (bool, error)
}

// ACLService handles business logic for ACL operations
type ACLService struct {
	aclStore        store.ACLStore
	notificationSvc *util.NotificationService
	eventBus        *util.EventBus
}

var _ IACLService = (*ACLService)(nil)

// NewACLService creates a new instance of ACLService
func NewACLService(aclStore store.ACLStore, notificationSvc *util.NotificationService, eventBus *util.EventBus) *ACLService {
	service := &ACLService{
		aclStore:        aclStore,
		notificationSvc: notificationSvc,
		eventBus:        eventBus,
	}

	// Set up event subscriptions
	eventBus.Subscribe("acl.granted", service.handleACLGranted)
	eventBus.Subscribe("acl.revoked", service.handleACLRevoked)

	return service
}

func (s *ACLService) handleACLGranted(ctx context.Context, event util.Event) error {
	entry, ok := event.Payload.(model.ACLEntry)
	if !ok {
		return fmt.Errorf("invalid event payload type: %T", event.Payload)
	}
	if err := s.notificationSvc.NotifyACLChange(ctx, "granted", entry); err != nil {
		logger.Warn("Failed to send grant notification", zap.Error(err))
	}
	return nil
}

func (s *ACLService) handleACLRevoked(ctx context.Context, event util.Event) error {
	entry, ok := event.Payload.(model.ACLEntry)
	if !ok {
		return fmt.Errorf("invalid event payload type: %T", event.Payload)
	}
	if err := s.notificationSvc.NotifyACLChange(ctx, "revoked", entry); err != nil {
		logger.Warn("Failed to send revoke notification", zap.Error(err))
	}
	return nil
}

// GetACLs returns all entries for the exact (object, subject) pair, any
// permission.
func (s *ACLService) GetACLs(ctx context.Context, object model.ObjectID, subject model.SubjectID) ([]model.ACLEntry, error) {
	entries, err := s.aclStore.Search(ctx, store.Query{Object: &object, Subject: &subject})
	if err != nil {
		logger.Error("Error reading ACL entries",
			zap.Error(err),
			zap.String("object", object.String()),
			zap.String("subject", subject.String()))
		return nil, fmt.Errorf("failed to read acl entries: %w", err)
	}
	return entries, nil
}

// SearchACLs runs a partial-key query with pagination applied after the
// store's deterministic ordering.
func (s *ACLService) SearchACLs(ctx context.Context, query store.Query, limit, offset int) ([]model.ACLEntry, error) {
	if limit < 0 || offset < 0 {
		return nil, guardian_errors.ErrInvalidPagination
	}

	entries, err := s.aclStore.Search(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to search acl entries: %w", err)
	}

	if offset >= len(entries) {
		return []model.ACLEntry{}, nil
	}
	end := offset + limit
	if limit == 0 || end > len(entries) {
		end = len(entries)
	}
	return entries[offset:end], nil
}

// SetACL inserts the entry; true means it was newly created.
func (s *ACLService) SetACL(ctx context.Context, entry model.ACLEntry) (bool, error) {
	if err := entry.Validate(); err != nil {
		return false, fmt.Errorf("%w: %s", guardian_errors.ErrInvalidACLEntry, err)
	}

	created, err := s.aclStore.Put(ctx, entry)
	if err != nil {
		logger.Error("Error storing ACL entry", zap.Error(err), zap.String("entry", entry.String()))
		return false, fmt.Errorf("failed to store acl entry: %w", err)
	}

	if created {
		s.eventBus.Publish(ctx, "acl.granted", entry)
		logger.Info("ACL entry created",
			zap.String("object", entry.Object.String()),
			zap.String("subject", entry.Subject.String()),
			zap.String("permission", entry.Permission))
	}
	return created, nil
}

// DeleteACL removes the triple; true means an entry existed.
func (s *ACLService) DeleteACL(ctx context.Context, object model.ObjectID, subject model.SubjectID, permission string) (bool, error) {
	removed, err := s.aclStore.Delete(ctx, object, subject, permission)
	if err != nil {
		logger.Error("Error deleting ACL entry",
			zap.Error(err),
			zap.String("object", object.String()),
			zap.String("subject", subject.String()),
			zap.String("permission", permission))
		return false, fmt.Errorf("failed to delete acl entry: %w", err)
	}

	if removed {
		s.eventBus.Publish(ctx, "acl.revoked", model.ACLEntry{Object: object, Subject: subject, Permission: permission})
		logger.Info("ACL entry removed",
			zap.String("object", object.String()),
			zap.String("subject", subject.String()),
			zap.String("permission", permission))
	}
	return removed, nil
}
