// proxy/proxy.go

// Package proxy enforces declared per-operation permission requirements
// before a wrapped object's operations run.
//
// Requirements are a static contract attached to a capability's
// definition: a table mapping operation names to the permissions they
// need. A wrapper type implements the capability interface, holds the
// real implementation plus the bound object identity, and calls
// Guard.Invoke around each operation. Operations absent from the table
// pass through without a check.
package proxy

import (
	"context"

	"go.uber.org/zap"

	"github.com/dev-mohitbeniwal/guardian/client"
	logger "github.com/dev-mohitbeniwal/guardian/logging"
	"github.com/dev-mohitbeniwal/guardian/model"
)

// Requirements declares, per operation name, the permissions the ambient
// caller must hold on the protected object before the operation runs.
type Requirements map[string][]string

// Factory builds Guards bound to protected objects. One factory per
// authorization client; guards share its cache and caller context.
type Factory struct {
	client *client.AuthorizationClient
}

func NewFactory(authClient *client.AuthorizationClient) *Factory {
	return &Factory{client: authClient}
}

// Guard returns the enforcement handle for one protected object. Wrapper
// types embed it next to the real implementation.
func (f *Factory) Guard(object model.ObjectID, requirements Requirements) *Guard {
	return &Guard{
		client:       f.client,
		object:       object,
		requirements: requirements,
	}
}

// Guard checks the ambient caller identity against one object's declared
// operation requirements.
type Guard struct {
	client       *client.AuthorizationClient
	object       model.ObjectID
	requirements Requirements
}

// Check verifies that the current caller may perform the named
// operation. It returns ErrUnauthorized on a failed check, a transport
// error if the check could not be completed, and nil for operations with
// no declared requirement.
func (g *Guard) Check(ctx context.Context, operation string) error {
	required := g.requirements[operation]
	if len(required) == 0 {
		return nil
	}

	if err := g.client.VerifyCurrentUserAuthorized(ctx, g.object, required); err != nil {
		logger.Debug("Operation blocked",
			zap.String("operation", operation),
			zap.String("object", g.object.String()),
			zap.Error(err))
		return err
	}
	return nil
}

// Invoke runs fn only if the caller passes Check for the operation. A
// blocked call never executes fn, so the wrapped operation's side
// effects cannot be observed.
func (g *Guard) Invoke(ctx context.Context, operation string, fn func() error) error {
	if err := g.Check(ctx, operation); err != nil {
		return err
	}
	return fn()
}

// Object is the identity this guard protects.
func (g *Guard) Object() model.ObjectID {
	return g.object
}
