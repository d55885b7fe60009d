// Package vfs exposes email projections through a read-only hierarchical
// file interface.
package vfs

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/brandon/emlfs/internal/cache"
	"github.com/brandon/emlfs/internal/render"
	"github.com/brandon/emlfs/internal/resolver"
	"github.com/brandon/emlfs/pkg/types"
)

// Provider implements stat, list and read over synthetic URIs. It holds no
// per-call state; parsed models live in the cache.
type Provider struct {
	resolver *resolver.Resolver
	cache    *cache.Cache
	renderer *render.Renderer
	logger   *logrus.Logger
}

// NewProvider creates a new provider
func NewProvider(res *resolver.Resolver, c *cache.Cache, renderer *render.Renderer, logger *logrus.Logger) *Provider {
	return &Provider{
		resolver: res,
		cache:    c,
		renderer: renderer,
		logger:   logger,
	}
}

// Resolver returns the resolver the provider classifies paths with.
func (p *Provider) Resolver() *resolver.Resolver {
	return p.resolver
}

// Stat reports metadata for uri. Paths that do not resolve report
// KindUnknown; only load failures are returned as errors.
func (p *Provider) Stat(ctx context.Context, uri string) (types.FileStat, error) {
	res, email, err := p.resolve(ctx, uri)
	if errors.Is(err, types.ErrPathNotResolved) {
		return types.FileStat{Kind: types.KindUnknown}, nil
	}
	if err != nil {
		return types.FileStat{}, err
	}

	stat := types.FileStat{
		Kind:       types.KindUnknown,
		CreatedAt:  email.CreatedAt,
		ModifiedAt: email.ModifiedAt,
	}
	switch res.Kind {
	case resolver.Root:
		stat.Kind = types.KindDirectory
		stat.Size = email.SourceByteSize
	case resolver.Index:
		doc, err := p.renderIndex(res.Source, email)
		if err != nil {
			return types.FileStat{}, err
		}
		stat.Kind = types.KindFile
		stat.Size = int64(len(doc))
	case resolver.AttachmentRef:
		stat.Kind = types.KindFile
		stat.Size = res.Attachment.ByteSize
	}
	return stat, nil
}

// ReadDirectory lists a projection root: the index document first, then the
// attachments in source order.
func (p *Provider) ReadDirectory(ctx context.Context, uri string) ([]types.DirEntry, error) {
	target, err := p.resolver.Locate(uri)
	if err != nil || target.Path != "/" {
		return nil, &types.NotADirectoryError{URI: uri}
	}

	email, err := p.load(ctx, target.Source)
	if errors.Is(err, types.ErrPathNotResolved) {
		return nil, &types.NotADirectoryError{URI: uri}
	}
	if err != nil {
		return nil, err
	}

	entries := make([]types.DirEntry, 0, len(email.Attachments)+1)
	entries = append(entries, types.DirEntry{Name: types.IndexName(target.Source), Kind: types.KindFile})
	for _, att := range email.Attachments {
		entries = append(entries, types.DirEntry{Name: att.Name, Kind: types.KindFile})
	}
	return entries, nil
}

// ReadFile returns the rendered index, a copy of the raw bytes of an
// attachment, or empty content for anything else.
func (p *Provider) ReadFile(ctx context.Context, uri string) ([]byte, error) {
	res, email, err := p.resolve(ctx, uri)
	if errors.Is(err, types.ErrPathNotResolved) {
		p.logger.WithField("uri", uri).Warn("Read of a path outside any projection")
		return []byte{}, nil
	}
	if err != nil {
		return nil, err
	}

	switch res.Kind {
	case resolver.Index:
		return p.renderIndex(res.Source, email)
	case resolver.AttachmentRef:
		return bytes.Clone(res.Attachment.Content), nil
	default:
		p.logger.WithFields(logrus.Fields{
			"uri":  uri,
			"kind": res.Kind.String(),
		}).Warn("Read of a path that is not a file")
		return []byte{}, nil
	}
}

// WriteFile always fails: projections are read-only.
func (p *Provider) WriteFile(_ context.Context, uri string, _ []byte) error {
	return p.readOnly("write", uri)
}

// Delete always fails: projections are read-only.
func (p *Provider) Delete(_ context.Context, uri string) error {
	return p.readOnly("delete", uri)
}

// Rename always fails: projections are read-only.
func (p *Provider) Rename(_ context.Context, oldURI, _ string) error {
	return p.readOnly("rename", oldURI)
}

// CreateDirectory always fails: projections are read-only.
func (p *Provider) CreateDirectory(_ context.Context, uri string) error {
	return p.readOnly("createDirectory", uri)
}

// Subscription is the handle returned by Watch.
type Subscription interface {
	Close() error
}

type noopSubscription struct{}

func (noopSubscription) Close() error { return nil }

// Watch returns an inert subscription. A projection never changes once computed.
func (p *Provider) Watch(uri string) Subscription {
	return noopSubscription{}
}

func (p *Provider) resolve(ctx context.Context, uri string) (resolver.Resolution, *types.Email, error) {
	target, err := p.resolver.Locate(uri)
	if err != nil {
		return resolver.Resolution{Kind: resolver.NotFound}, nil, err
	}
	email, err := p.load(ctx, target.Source)
	if err != nil {
		return resolver.Resolution{Kind: resolver.NotFound, Source: target.Source}, nil, err
	}
	return p.resolver.Classify(target, email), email, nil
}

// load fetches the model for source. A source document that does not exist
// is reported as types.ErrPathNotResolved, the same as a host path that never
// reaches one.
func (p *Provider) load(ctx context.Context, source string) (*types.Email, error) {
	email, err := p.cache.GetOrLoad(ctx, source)
	if errors.Is(err, os.ErrNotExist) {
		p.logger.WithField("source", source).Debug("Source document does not exist")
		return nil, fmt.Errorf("%s: %w", source, types.ErrPathNotResolved)
	}
	if err != nil {
		p.logger.WithField("source", source).WithError(err).Error("Failed to load source document")
		return nil, err
	}
	return email, nil
}

func (p *Provider) renderIndex(source string, email *types.Email) ([]byte, error) {
	return p.renderer.Render(email, func(att types.Attachment) string {
		return p.resolver.URI(source, att.Name)
	})
}

func (p *Provider) readOnly(op, uri string) error {
	err := &types.ReadOnlyViolationError{Op: op, URI: uri}
	p.logger.WithField("uri", uri).Warn(err.Error())
	return err
}
