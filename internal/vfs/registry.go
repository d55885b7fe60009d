package vfs

import (
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"github.com/brandon/emlfs/internal/loader"
	"github.com/brandon/emlfs/internal/resolver"
	"github.com/brandon/emlfs/pkg/types"
)

// Mount is one registered projection.
type Mount struct {
	Source       string    `json:"source"`
	RootURI      string    `json:"root_uri"`
	IndexURI     string    `json:"index_uri"`
	RegisteredAt time.Time `json:"registered_at"`
}

// ProjectionRegistry tracks which source documents are mounted. Registering
// the same document twice returns the existing mount.
type ProjectionRegistry struct {
	mu       sync.Mutex
	fs       afero.Fs
	loaders  loader.Registry
	resolver *resolver.Resolver
	mounts   map[string]Mount
	order    []string
	logger   *logrus.Logger
}

// NewProjectionRegistry creates an empty registry.
func NewProjectionRegistry(fs afero.Fs, loaders loader.Registry, res *resolver.Resolver, logger *logrus.Logger) *ProjectionRegistry {
	return &ProjectionRegistry{
		fs:       fs,
		loaders:  loaders,
		resolver: res,
		mounts:   make(map[string]Mount),
		logger:   logger,
	}
}

// EnsureRegistered mounts source unless it is already mounted. The document
// is checked for a supported extension and existence but not parsed.
func (r *ProjectionRegistry) EnsureRegistered(source string) (Mount, error) {
	canonical, err := resolver.Canonical(source)
	if err != nil {
		return Mount{}, err
	}
	if _, err := r.loaders.Lookup(canonical); err != nil {
		return Mount{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if m, ok := r.mounts[canonical]; ok {
		return m, nil
	}

	info, err := r.fs.Stat(canonical)
	if err != nil {
		return Mount{}, fmt.Errorf("failed to register %s: %w", canonical, err)
	}
	if !info.Mode().IsRegular() {
		return Mount{}, fmt.Errorf("failed to register %s: not a regular file", canonical)
	}

	m := Mount{
		Source:       canonical,
		RootURI:      r.resolver.RootURI(canonical),
		IndexURI:     r.resolver.IndexURI(canonical),
		RegisteredAt: time.Now(),
	}
	r.mounts[canonical] = m
	r.order = append(r.order, canonical)
	r.logger.WithFields(logrus.Fields{
		"source": canonical,
		"root":   m.RootURI,
	}).Info("Registered projection")
	return m, nil
}

// Mounts returns every mount in registration order.
func (r *ProjectionRegistry) Mounts() []Mount {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Mount, 0, len(r.order))
	for _, source := range r.order {
		out = append(out, r.mounts[source])
	}
	return out
}

// Owner returns the mount a synthetic URI belongs to.
func (r *ProjectionRegistry) Owner(uri string) (Mount, error) {
	target, err := r.resolver.Locate(uri)
	if err != nil {
		return Mount{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.mounts[target.Source]
	if !ok {
		return Mount{}, fmt.Errorf("%s is not mounted: %w", target.Source, types.ErrPathNotResolved)
	}
	return m, nil
}
