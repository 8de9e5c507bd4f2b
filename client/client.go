// client/client.go

// Package client talks to the authorization service over HTTP and caches
// query results. All policy evaluation (permission satisfaction) happens
// here, not on the service.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/jellydator/ttlcache/v3"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/dev-mohitbeniwal/guardian/discovery"
	guardian_errors "github.com/dev-mohitbeniwal/guardian/errors"
	logger "github.com/dev-mohitbeniwal/guardian/logging"
	"github.com/dev-mohitbeniwal/guardian/model"
	"github.com/dev-mohitbeniwal/guardian/server"
)

const (
	defaultCacheExpireAfterAccess = 5 * time.Minute
	defaultCacheMaxSize           = 10000
)

type aclKey struct {
	object  model.ObjectID
	subject model.SubjectID
}

func (k aclKey) String() string {
	// Each field is quoted so ids containing separator characters can
	// never make two distinct pairs render to the same key.
	return fmt.Sprintf("%q|%q|%q|%q", k.object.Type, k.object.ID, k.subject.Type, k.subject.ID)
}

// AuthorizationClient verifies, creates, and lists ACL entries against
// the remote authorization service.
//
// Query results are cached per (object, subject) pair with a bounded
// size and expiry measured from last access. Writes (SetACL/DeleteACL)
// deliberately do not touch the cache: a remote write may affect other
// clients' caches the writer cannot see, so staleness is resolved only
// by expiry or an explicit InvalidateCache call.
type AuthorizationClient struct {
	context  *model.AuthorizationContext
	resolver discovery.Resolver
	http     *http.Client

	cache *ttlcache.Cache[aclKey, []model.ACLEntry]
	group singleflight.Group
}

// Option customizes an AuthorizationClient.
type Option func(*options)

type options struct {
	cacheTTL     time.Duration
	cacheMaxSize uint64
	httpClient   *http.Client
}

// WithCacheTTL sets the expire-after-access window for cached queries.
func WithCacheTTL(ttl time.Duration) Option {
	return func(o *options) { o.cacheTTL = ttl }
}

// WithCacheMaxSize bounds the number of cached (object, subject) pairs.
func WithCacheMaxSize(size uint64) Option {
	return func(o *options) { o.cacheMaxSize = size }
}

// WithHTTPClient replaces the default http.Client (and its timeouts).
func WithHTTPClient(httpClient *http.Client) Option {
	return func(o *options) { o.httpClient = httpClient }
}

// NewAuthorizationClient builds a client that reads the caller identity
// from authContext and resolves the service address through resolver.
func NewAuthorizationClient(authContext *model.AuthorizationContext, resolver discovery.Resolver, opts ...Option) *AuthorizationClient {
	o := options{
		cacheTTL:     defaultCacheExpireAfterAccess,
		cacheMaxSize: defaultCacheMaxSize,
		httpClient:   &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(&o)
	}

	cache := ttlcache.New[aclKey, []model.ACLEntry](
		ttlcache.WithTTL[aclKey, []model.ACLEntry](o.cacheTTL),
		ttlcache.WithCapacity[aclKey, []model.ACLEntry](o.cacheMaxSize),
	)
	go cache.Start()

	return &AuthorizationClient{
		context:  authContext,
		resolver: resolver,
		http:     o.httpClient,
		cache:    cache,
	}
}

// Close stops the cache janitor.
func (c *AuthorizationClient) Close() {
	c.cache.Stop()
}

// GetACLs returns the entries for the (object, subject) pair, serving
// from the cache when possible. Concurrent misses on the same pair
// collapse into a single fetch; misses on distinct pairs proceed in
// parallel.
func (c *AuthorizationClient) GetACLs(ctx context.Context, object model.ObjectID, subject model.SubjectID) ([]model.ACLEntry, error) {
	key := aclKey{object: object, subject: subject}

	// Get touches the entry, so a pair that keeps being queried stays
	// cached (expire-after-access, not after-write).
	if item := c.cache.Get(key); item != nil {
		return item.Value(), nil
	}

	result, err, _ := c.group.Do(key.String(), func() (interface{}, error) {
		// A concurrent caller may have populated the cache while this
		// call waited its turn.
		if item := c.cache.Get(key); item != nil {
			return item.Value(), nil
		}

		entries, err := c.fetchACLs(ctx, object, subject)
		if err != nil {
			return nil, err
		}
		c.cache.Set(key, entries, ttlcache.DefaultTTL)
		return entries, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]model.ACLEntry), nil
}

// IsAuthorized reports whether at least one of the subjects individually
// holds every required permission on the object. Permissions held by
// different subjects are never combined.
func (c *AuthorizationClient) IsAuthorized(ctx context.Context, object model.ObjectID, subjects []model.SubjectID, requiredPermissions []string) (bool, error) {
	for _, subject := range subjects {
		entries, err := c.GetACLs(ctx, object, subject)
		if err != nil {
			return false, err
		}
		if fulfillsRequiredPermissions(entries, requiredPermissions) {
			return true, nil
		}
	}
	return false, nil
}

// VerifyAuthorized is IsAuthorized with ErrUnauthorized instead of false.
func (c *AuthorizationClient) VerifyAuthorized(ctx context.Context, object model.ObjectID, subjects []model.SubjectID, requiredPermissions []string) error {
	authorized, err := c.IsAuthorized(ctx, object, subjects, requiredPermissions)
	if err != nil {
		return err
	}
	if !authorized {
		return guardian_errors.ErrUnauthorized
	}
	return nil
}

// VerifySubjectAuthorized verifies a single subject.
func (c *AuthorizationClient) VerifySubjectAuthorized(ctx context.Context, object model.ObjectID, subject model.SubjectID, requiredPermissions []string) error {
	return c.VerifyAuthorized(ctx, object, []model.SubjectID{subject}, requiredPermissions)
}

// IsCurrentUserAuthorized reports whether the current user, or any one of
// the current user's groups on its own, holds every required permission
// on the object. The user and its groups are read from the authorization
// context at call time.
func (c *AuthorizationClient) IsCurrentUserAuthorized(ctx context.Context, object model.ObjectID, requiredPermissions []string) (bool, error) {
	authorized, err := c.IsAuthorized(ctx, object, []model.SubjectID{c.context.CurrentUser()}, requiredPermissions)
	if err != nil || authorized {
		return authorized, err
	}
	return c.IsAuthorized(ctx, object, c.context.CurrentUsersGroups(), requiredPermissions)
}

// VerifyCurrentUserAuthorized is the verifying variant of
// IsCurrentUserAuthorized.
func (c *AuthorizationClient) VerifyCurrentUserAuthorized(ctx context.Context, object model.ObjectID, requiredPermissions []string) error {
	authorized, err := c.IsCurrentUserAuthorized(ctx, object, requiredPermissions)
	if err != nil {
		return err
	}
	if !authorized {
		return guardian_errors.ErrUnauthorized
	}
	return nil
}

// SetACL grants permission on object to subject. It returns true if the
// entry did not previously exist. The cache is not updated.
func (c *AuthorizationClient) SetACL(ctx context.Context, object model.ObjectID, subject model.SubjectID, permission string) (bool, error) {
	entry, err := model.NewACLEntry(object, subject, permission)
	if err != nil {
		return false, fmt.Errorf("%w: %s", guardian_errors.ErrInvalidACLEntry, err)
	}

	body, err := json.Marshal(entry)
	if err != nil {
		return false, fmt.Errorf("failed to encode acl entry: %w", err)
	}

	response, err := c.do(ctx, http.MethodPost, c.entryPath(object, subject, permission), body)
	if err != nil {
		return false, err
	}
	defer response.Body.Close()

	switch response.StatusCode {
	case http.StatusOK:
		return true, nil
	case http.StatusNotModified:
		return false, nil
	}
	return false, unexpectedResponse(response)
}

// DeleteACL revokes permission on object from subject. It returns true
// if an entry previously existed. The cache is not updated.
func (c *AuthorizationClient) DeleteACL(ctx context.Context, object model.ObjectID, subject model.SubjectID, permission string) (bool, error) {
	response, err := c.do(ctx, http.MethodDelete, c.entryPath(object, subject, permission), nil)
	if err != nil {
		return false, err
	}
	defer response.Body.Close()

	switch response.StatusCode {
	case http.StatusOK:
		return true, nil
	case http.StatusNotModified:
		return false, nil
	}
	return false, unexpectedResponse(response)
}

// InvalidateCache drops every cached query result.
func (c *AuthorizationClient) InvalidateCache() {
	c.cache.DeleteAll()
	logger.Debug("ACL cache invalidated")
}

func (c *AuthorizationClient) fetchACLs(ctx context.Context, object model.ObjectID, subject model.SubjectID) ([]model.ACLEntry, error) {
	path := fmt.Sprintf("/v1/acls/%s/%s/%s/%s", object.Type, object.ID, subject.Type, subject.ID)
	response, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		return nil, unexpectedResponse(response)
	}

	var entries []model.ACLEntry
	if err := json.NewDecoder(response.Body).Decode(&entries); err != nil {
		return nil, fmt.Errorf("failed to decode acl entries: %w", err)
	}

	logger.Debug("Fetched ACL entries",
		zap.String("object", object.String()),
		zap.String("subject", subject.String()),
		zap.Int("count", len(entries)))
	return entries, nil
}

func (c *AuthorizationClient) do(ctx context.Context, method, path string, body []byte) (*http.Response, error) {
	baseURL, err := c.resolver.Resolve(ctx, server.ServiceName)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve authorization service: %w", err)
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	request, err := http.NewRequestWithContext(ctx, method, baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	if body != nil {
		request.Header.Set("Content-Type", "application/json")
	}

	response, err := c.http.Do(request)
	if err != nil {
		return nil, fmt.Errorf("request to authorization service failed: %w", err)
	}
	return response, nil
}

func (c *AuthorizationClient) entryPath(object model.ObjectID, subject model.SubjectID, permission string) string {
	return fmt.Sprintf("/v1/acls/%s/%s/%s/%s/%s", object.Type, object.ID, subject.Type, subject.ID, permission)
}

// fulfillsRequiredPermissions subtracts the permissions granted by the
// entries from the required set; the subject qualifies when nothing
// remains.
func fulfillsRequiredPermissions(entries []model.ACLEntry, requiredPermissions []string) bool {
	remaining := make(map[string]struct{}, len(requiredPermissions))
	for _, permission := range requiredPermissions {
		remaining[permission] = struct{}{}
	}
	for _, entry := range entries {
		delete(remaining, entry.Permission)
	}
	return len(remaining) == 0
}

func unexpectedResponse(response *http.Response) error {
	raw, _ := io.ReadAll(response.Body)

	message := string(raw)
	var payload struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(raw, &payload); err == nil && payload.Error != "" {
		message = payload.Error
	}

	return &guardian_errors.UnexpectedResponseError{
		Code:    response.StatusCode,
		Message: message,
	}
}
