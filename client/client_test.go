package client_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dev-mohitbeniwal/guardian/client"
	"github.com/dev-mohitbeniwal/guardian/controller"
	"github.com/dev-mohitbeniwal/guardian/discovery"
	guardian_errors "github.com/dev-mohitbeniwal/guardian/errors"
	"github.com/dev-mohitbeniwal/guardian/model"
	"github.com/dev-mohitbeniwal/guardian/router"
	"github.com/dev-mohitbeniwal/guardian/server"
	"github.com/dev-mohitbeniwal/guardian/service"
	"github.com/dev-mohitbeniwal/guardian/store"
	"github.com/dev-mohitbeniwal/guardian/util"
)

// countingStore wraps the reference store and counts Search calls so
// tests can observe how many fetches reached the service. A non-zero
// delay holds each search open, which lets stampede tests pile up
// concurrent misses.
type countingStore struct {
	store.ACLStore
	searches atomic.Int64
	delay    time.Duration
}

func (s *countingStore) Search(ctx context.Context, query store.Query) ([]model.ACLEntry, error) {
	s.searches.Add(1)
	if s.delay > 0 {
		time.Sleep(s.delay)
	}
	return s.ACLStore.Search(ctx, query)
}

type fixture struct {
	client   *client.AuthorizationClient
	authCtx  *model.AuthorizationContext
	backend  *countingStore
	shutdown func()
}

func newFixture(t *testing.T, opts ...client.Option) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	backend := &countingStore{ACLStore: store.NewMemoryStore()}
	aclService := service.NewACLService(backend, util.NewNotificationService(), util.NewEventBus())
	engine := router.SetupRouter(controller.NewACLController(aclService), router.Options{})

	registry := discovery.NewInMemoryRegistry()
	svc := server.NewAuthorizationService(engine, registry, "127.0.0.1:0")
	require.NoError(t, svc.Start(context.Background()))

	authCtx := model.NewAuthorizationContext()
	c := client.NewAuthorizationClient(authCtx, registry, opts...)

	return &fixture{
		client:  c,
		authCtx: authCtx,
		backend: backend,
		shutdown: func() {
			c.Close()
			svc.Stop(context.Background())
		},
	}
}

var (
	streamS1 = model.ObjectID{Type: "STREAM", ID: "s1"}
	bob      = model.UserSubject("bob")
)

func TestSetAndDeleteACL(t *testing.T) {
	f := newFixture(t)
	defer f.shutdown()
	ctx := context.Background()

	created, err := f.client.SetACL(ctx, streamS1, bob, "WRITE")
	require.NoError(t, err)
	assert.True(t, created)

	created, err = f.client.SetACL(ctx, streamS1, bob, "WRITE")
	require.NoError(t, err)
	assert.False(t, created, "re-granting the same triple reports false")

	removed, err := f.client.DeleteACL(ctx, streamS1, bob, "WRITE")
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = f.client.DeleteACL(ctx, streamS1, bob, "WRITE")
	require.NoError(t, err)
	assert.False(t, removed, "revoking an absent triple reports false")
}

func TestVerifyAuthorized(t *testing.T) {
	f := newFixture(t)
	defer f.shutdown()
	ctx := context.Background()

	_, err := f.client.SetACL(ctx, streamS1, bob, "WRITE")
	require.NoError(t, err)

	err = f.client.VerifyAuthorized(ctx, streamS1, []model.SubjectID{bob}, []string{"WRITE"})
	assert.NoError(t, err)

	err = f.client.VerifyAuthorized(ctx, streamS1, []model.SubjectID{bob}, []string{"ADMIN"})
	assert.ErrorIs(t, err, guardian_errors.ErrUnauthorized)

	err = f.client.VerifySubjectAuthorized(ctx, streamS1, model.UserSubject("alice"), []string{"WRITE"})
	assert.ErrorIs(t, err, guardian_errors.ErrUnauthorized)
}

func TestPermissionsAreNotCombinedAcrossSubjects(t *testing.T) {
	f := newFixture(t)
	defer f.shutdown()
	ctx := context.Background()

	x := model.UserSubject("x")
	y := model.UserSubject("y")
	_, err := f.client.SetACL(ctx, streamS1, x, "A")
	require.NoError(t, err)
	_, err = f.client.SetACL(ctx, streamS1, y, "B")
	require.NoError(t, err)

	// Each subject alone satisfies its own permission.
	ok, err := f.client.IsAuthorized(ctx, streamS1, []model.SubjectID{x}, []string{"A"})
	require.NoError(t, err)
	assert.True(t, ok)

	// A union of partial permissions across subjects never satisfies.
	ok, err = f.client.IsAuthorized(ctx, streamS1, []model.SubjectID{x, y}, []string{"A", "B"})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCurrentUserAuthorization(t *testing.T) {
	f := newFixture(t)
	defer f.shutdown()
	ctx := context.Background()

	opsGroup := model.GroupSubject("ops")
	otherGroup := model.GroupSubject("other")

	t.Run("ByGroupMembership", func(t *testing.T) {
		f.authCtx.Set(bob, []model.SubjectID{otherGroup, opsGroup})

		_, err := f.client.SetACL(ctx, streamS1, opsGroup, "ADMIN")
		require.NoError(t, err)

		ok, err := f.client.IsCurrentUserAuthorized(ctx, streamS1, []string{"ADMIN"})
		require.NoError(t, err)
		assert.True(t, ok, "one of the user's groups holds the permission")
	})

	t.Run("GroupsAreCheckedIndividually", func(t *testing.T) {
		f.client.InvalidateCache()
		f.authCtx.Set(bob, []model.SubjectID{opsGroup, otherGroup})

		_, err := f.client.SetACL(ctx, streamS1, otherGroup, "AUDIT")
		require.NoError(t, err)

		// opsGroup has ADMIN, otherGroup has AUDIT; no single subject
		// holds both.
		ok, err := f.client.IsCurrentUserAuthorized(ctx, streamS1, []string{"ADMIN", "AUDIT"})
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("NeitherUserNorGroups", func(t *testing.T) {
		f.client.InvalidateCache()
		f.authCtx.SetUser(model.AnonymousUser)

		err := f.client.VerifyCurrentUserAuthorized(ctx, streamS1, []string{"ADMIN"})
		assert.ErrorIs(t, err, guardian_errors.ErrUnauthorized)
	})
}

func TestWritesDoNotTouchTheCache(t *testing.T) {
	f := newFixture(t)
	defer f.shutdown()
	ctx := context.Background()

	_, err := f.client.SetACL(ctx, streamS1, bob, "WRITE")
	require.NoError(t, err)

	// Populates the cache.
	err = f.client.VerifyAuthorized(ctx, streamS1, []model.SubjectID{bob}, []string{"WRITE"})
	require.NoError(t, err)

	removed, err := f.client.DeleteACL(ctx, streamS1, bob, "WRITE")
	require.NoError(t, err)
	require.True(t, removed)

	// Still the cached result, not the latest store state.
	err = f.client.VerifyAuthorized(ctx, streamS1, []model.SubjectID{bob}, []string{"WRITE"})
	assert.NoError(t, err, "stale cache hit keeps reporting the pre-delete result")

	f.client.InvalidateCache()

	err = f.client.VerifyAuthorized(ctx, streamS1, []model.SubjectID{bob}, []string{"WRITE"})
	assert.ErrorIs(t, err, guardian_errors.ErrUnauthorized, "fresh fetch after invalidation")
}

func TestStampedeProtection(t *testing.T) {
	f := newFixture(t)
	f.backend.delay = 150 * time.Millisecond
	defer f.shutdown()
	ctx := context.Background()

	t.Run("SameKeyCollapses", func(t *testing.T) {
		f.backend.searches.Store(0)

		var wg sync.WaitGroup
		for i := 0; i < 20; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				entries, err := f.client.GetACLs(ctx, streamS1, bob)
				assert.NoError(t, err)
				assert.Empty(t, entries)
			}()
		}
		wg.Wait()

		assert.EqualValues(t, 1, f.backend.searches.Load(),
			"concurrent misses on one key must issue a single fetch")
	})

	t.Run("DistinctKeysProceedIndependently", func(t *testing.T) {
		f.client.InvalidateCache()
		f.backend.searches.Store(0)

		var wg sync.WaitGroup
		for _, subject := range []model.SubjectID{model.UserSubject("u1"), model.UserSubject("u2")} {
			wg.Add(1)
			go func(subject model.SubjectID) {
				defer wg.Done()
				_, err := f.client.GetACLs(ctx, streamS1, subject)
				assert.NoError(t, err)
			}(subject)
		}
		wg.Wait()

		assert.EqualValues(t, 2, f.backend.searches.Load())
	})
}

func TestLookalikePairsDoNotShareAFetch(t *testing.T) {
	f := newFixture(t)
	f.backend.delay = 150 * time.Millisecond
	defer f.shutdown()
	ctx := context.Background()

	// Two distinct pairs whose fields interleave into the same string
	// when naively joined with separator characters.
	grantedObject := model.ObjectID{Type: "A", ID: "b|C:d"}
	grantedSubject := model.SubjectID{Type: "E", ID: "f"}
	otherObject := model.ObjectID{Type: "A", ID: "b"}
	otherSubject := model.SubjectID{Type: "C", ID: "d|E:f"}

	_, err := f.client.SetACL(ctx, grantedObject, grantedSubject, "SECRET")
	require.NoError(t, err)

	// Hold the granted pair's fetch open, then fetch the other pair
	// while the first is still in flight.
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		entries, err := f.client.GetACLs(ctx, grantedObject, grantedSubject)
		assert.NoError(t, err)
		assert.Len(t, entries, 1)
	}()
	time.Sleep(50 * time.Millisecond)

	entries, err := f.client.GetACLs(ctx, otherObject, otherSubject)
	require.NoError(t, err)
	assert.Empty(t, entries, "a pair must never be served another pair's entries")

	ok, err := f.client.IsAuthorized(ctx, otherObject, []model.SubjectID{otherSubject}, []string{"SECRET"})
	require.NoError(t, err)
	assert.False(t, ok)

	wg.Wait()
}

func TestCacheExpiresAfterAccess(t *testing.T) {
	f := newFixture(t, client.WithCacheTTL(200*time.Millisecond))
	defer f.shutdown()
	ctx := context.Background()

	_, err := f.client.GetACLs(ctx, streamS1, bob)
	require.NoError(t, err)
	require.EqualValues(t, 1, f.backend.searches.Load())

	// Keep accessing within the TTL: the entry must stay cached because
	// expiry is measured from last access, not last write.
	for i := 0; i < 4; i++ {
		time.Sleep(80 * time.Millisecond)
		_, err = f.client.GetACLs(ctx, streamS1, bob)
		require.NoError(t, err)
	}
	assert.EqualValues(t, 1, f.backend.searches.Load())

	// Stop accessing: the entry expires and the next read refetches.
	time.Sleep(500 * time.Millisecond)
	_, err = f.client.GetACLs(ctx, streamS1, bob)
	require.NoError(t, err)
	assert.EqualValues(t, 2, f.backend.searches.Load())
}

func TestUnexpectedResponse(t *testing.T) {
	// A server answering outside the documented contract.
	broken := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTeapot)
		w.Write([]byte(`{"error": "teapot"}`))
	}))
	defer broken.Close()

	resolver := discovery.NewStaticResolver(map[string]string{server.ServiceName: broken.URL})
	c := client.NewAuthorizationClient(model.NewAuthorizationContext(), resolver)
	defer c.Close()
	ctx := context.Background()

	_, err := c.GetACLs(ctx, streamS1, bob)
	var unexpected *guardian_errors.UnexpectedResponseError
	require.ErrorAs(t, err, &unexpected)
	assert.Equal(t, http.StatusTeapot, unexpected.Code)
	assert.Equal(t, "teapot", unexpected.Message)

	_, err = c.SetACL(ctx, streamS1, bob, "WRITE")
	assert.ErrorAs(t, err, &unexpected)

	_, err = c.DeleteACL(ctx, streamS1, bob, "WRITE")
	assert.ErrorAs(t, err, &unexpected)
}

func TestTransportFailures(t *testing.T) {
	ctx := context.Background()

	t.Run("UnresolvableService", func(t *testing.T) {
		resolver := discovery.NewStaticResolver(nil)
		c := client.NewAuthorizationClient(model.NewAuthorizationContext(), resolver)
		defer c.Close()

		_, err := c.GetACLs(ctx, streamS1, bob)
		assert.ErrorIs(t, err, guardian_errors.ErrServiceNotFound)
		assert.NotErrorIs(t, err, guardian_errors.ErrUnauthorized,
			"transport failure is distinct from an authorization denial")
	})

	t.Run("ConnectionRefused", func(t *testing.T) {
		resolver := discovery.NewStaticResolver(map[string]string{server.ServiceName: "http://127.0.0.1:1"})
		c := client.NewAuthorizationClient(model.NewAuthorizationContext(), resolver)
		defer c.Close()

		_, err := c.GetACLs(ctx, streamS1, bob)
		assert.Error(t, err)
		assert.NotErrorIs(t, err, guardian_errors.ErrUnauthorized)
	})
}

func TestInvalidInputNeverReachesTheNetwork(t *testing.T) {
	// Resolving would fail, but validation rejects the call first.
	resolver := discovery.NewStaticResolver(nil)
	c := client.NewAuthorizationClient(model.NewAuthorizationContext(), resolver)
	defer c.Close()

	_, err := c.SetACL(context.Background(), model.ObjectID{}, bob, "WRITE")
	assert.ErrorIs(t, err, guardian_errors.ErrInvalidACLEntry)
}
