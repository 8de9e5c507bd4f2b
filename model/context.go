// model/context.go
package model

// AuthorizationContext holds the identity the hosting application has
// established for the current logical caller: the current user and the
// groups it belongs to. The client and the proxy factory only read it;
// the application mutates it when it authenticates an inbound request.
//
// One context instance should be confined to one logical caller. Sharing
// an instance across concurrently handled requests is the application's
// responsibility to synchronize.
type AuthorizationContext struct {
	currentUser        SubjectID
	currentUsersGroups []SubjectID
}

// NewAuthorizationContext returns a context for the anonymous user with
// no groups.
func NewAuthorizationContext() *AuthorizationContext {
	return &AuthorizationContext{
		currentUser:        AnonymousUser,
		currentUsersGroups: []SubjectID{},
	}
}

// CurrentUser is never the zero SubjectID; it defaults to AnonymousUser.
func (c *AuthorizationContext) CurrentUser() SubjectID {
	return c.currentUser
}

// CurrentUsersGroups is never nil; it may be empty.
func (c *AuthorizationContext) CurrentUsersGroups() []SubjectID {
	return c.currentUsersGroups
}

// Set establishes the current user and its groups. A nil groups slice
// resets the groups to empty.
func (c *AuthorizationContext) Set(currentUser SubjectID, currentUsersGroups []SubjectID) {
	if currentUser == (SubjectID{}) {
		currentUser = AnonymousUser
	}
	if currentUsersGroups == nil {
		currentUsersGroups = []SubjectID{}
	}
	c.currentUser = currentUser
	c.currentUsersGroups = currentUsersGroups
}

// SetUser establishes the current user with no groups.
func (c *AuthorizationContext) SetUser(currentUser SubjectID) {
	c.Set(currentUser, nil)
}
