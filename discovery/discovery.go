// discovery/discovery.go

// Package discovery resolves logical service names to base network
// addresses. The authorization service registers itself on start; the
// client resolves the name before every request so address changes are
// picked up without restarting.
package discovery

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	guardian_errors "github.com/dev-mohitbeniwal/guardian/errors"
	logger "github.com/dev-mohitbeniwal/guardian/logging"
)

// Resolver resolves a logical service name to a base address such as
// "http://10.0.0.5:8080".
type Resolver interface {
	Resolve(ctx context.Context, name string) (string, error)
}

// Registry is a Resolver that services can register themselves with.
type Registry interface {
	Resolver
	Register(ctx context.Context, name, addr string) error
	Deregister(ctx context.Context, name, addr string) error
}

// StaticResolver serves a fixed name-to-address map, e.g. from the
// discovery.services config section. Suitable for non-distributed
// deployments.
type StaticResolver struct {
	services map[string]string
}

func NewStaticResolver(services map[string]string) *StaticResolver {
	copied := make(map[string]string, len(services))
	for name, addr := range services {
		copied[name] = addr
	}
	return &StaticResolver{services: copied}
}

func (r *StaticResolver) Resolve(_ context.Context, name string) (string, error) {
	addr, ok := r.services[name]
	if !ok {
		return "", fmt.Errorf("%w: %s", guardian_errors.ErrServiceNotFound, name)
	}
	return addr, nil
}

// InMemoryRegistry is a process-local registry for single-process
// deployments and tests.
type InMemoryRegistry struct {
	mu        sync.RWMutex
	addresses map[string][]string
}

func NewInMemoryRegistry() *InMemoryRegistry {
	return &InMemoryRegistry{addresses: make(map[string][]string)}
}

func (r *InMemoryRegistry) Register(_ context.Context, name, addr string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.addresses[name] {
		if existing == addr {
			return nil
		}
	}
	r.addresses[name] = append(r.addresses[name], addr)
	logger.Info("Service registered", zap.String("name", name), zap.String("addr", addr))
	return nil
}

func (r *InMemoryRegistry) Deregister(_ context.Context, name, addr string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	addrs := r.addresses[name]
	for i, existing := range addrs {
		if existing == addr {
			r.addresses[name] = append(addrs[:i], addrs[i+1:]...)
			logger.Info("Service deregistered", zap.String("name", name), zap.String("addr", addr))
			return nil
		}
	}
	return nil
}

func (r *InMemoryRegistry) Resolve(_ context.Context, name string) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	addrs := r.addresses[name]
	if len(addrs) == 0 {
		return "", fmt.Errorf("%w: %s", guardian_errors.ErrServiceNotFound, name)
	}
	// Most recent registration wins.
	return addrs[len(addrs)-1], nil
}
