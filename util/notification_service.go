// util/notification_service.go

package util

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	logger "github.com/dev-mohitbeniwal/guardian/logging"
	"github.com/dev-mohitbeniwal/guardian/model"
)

type NotificationService struct {
	// You might want to add dependencies here, such as a message queue client
}

func NewNotificationService() *NotificationService {
	return &NotificationService{}
}

func (n *NotificationService) NotifyACLChange(ctx context.Context, changeType string, entry model.ACLEntry) error {
	// In a real implementation, you might send this to a message queue or external notification service
	switch changeType {
	case "granted":
		logger.Info("NOTIFICATION: ACL entry granted",
			zap.String("object", entry.Object.String()),
			zap.String("subject", entry.Subject.String()),
			zap.String("permission", entry.Permission))
	case "revoked":
		logger.Info("NOTIFICATION: ACL entry revoked",
			zap.String("object", entry.Object.String()),
			zap.String("subject", entry.Subject.String()),
			zap.String("permission", entry.Permission))
	default:
		return fmt.Errorf("unknown change type: %s", changeType)
	}

	return nil
}
