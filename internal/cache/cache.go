package cache

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"golang.org/x/sync/singleflight"

	"github.com/brandon/emlfs/internal/loader"
	"github.com/brandon/emlfs/internal/resolver"
	"github.com/brandon/emlfs/pkg/types"
)

// Options configures a Cache.
type Options struct {
	// MaxEntries bounds the cache with LRU eviction. Zero means unbounded.
	MaxEntries int
	// ValidateModTime drops an entry whose source document changed on disk.
	ValidateModTime bool
	// Metrics receives cache activity. Nil means unregistered metrics.
	Metrics *Metrics
}

// Cache memoizes the parsed Email per source document. Concurrent requests
// for the same source share one load; failed loads are never stored.
type Cache struct {
	fs       afero.Fs
	loaders  loader.Registry
	store    Store
	group    singleflight.Group
	validate bool
	metrics  *Metrics
	logger   *logrus.Logger
	now      func() time.Time
}

// New creates a cache reading source documents from fs.
func New(fs afero.Fs, loaders loader.Registry, opts Options, logger *logrus.Logger) (*Cache, error) {
	store, err := NewStore(opts.MaxEntries)
	if err != nil {
		return nil, err
	}
	metrics := opts.Metrics
	if metrics == nil {
		if metrics, err = NewMetrics(nil); err != nil {
			return nil, err
		}
	}
	return &Cache{
		fs:       fs,
		loaders:  loaders,
		store:    store,
		validate: opts.ValidateModTime,
		metrics:  metrics,
		logger:   logger,
		now:      time.Now,
	}, nil
}

// GetOrLoad returns the Email for source, parsing it on a miss. Entries are
// keyed by resolver.Canonical, so relative and absolute spellings share one.
func (c *Cache) GetOrLoad(ctx context.Context, source string) (*types.Email, error) {
	source, err := resolver.Canonical(source)
	if err != nil {
		return nil, err
	}
	if _, err := c.loaders.Lookup(source); err != nil {
		return nil, err
	}

	if email, ok := c.lookup(source); ok {
		c.metrics.Hits.Inc()
		return email, nil
	}
	c.metrics.Misses.Inc()

	ch := c.group.DoChan(source, func() (interface{}, error) {
		// A load that finished between lookup and DoChan already stored the model.
		if email, ok := c.lookup(source); ok {
			return email, nil
		}
		return c.load(source)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*types.Email), nil
	}
}

// Peek returns the cached entry for source without loading or validating.
func (c *Cache) Peek(source string) (*Entry, bool) {
	return c.store.Get(sourceKey(source))
}

// Invalidate drops the entry for source.
func (c *Cache) Invalidate(source string) {
	source = sourceKey(source)
	if _, ok := c.store.Get(source); ok {
		c.metrics.Invalidations.Inc()
	}
	c.store.Remove(source)
	c.metrics.Entries.Set(float64(c.store.Len()))
}

// Clear drops every entry.
func (c *Cache) Clear() {
	c.metrics.Invalidations.Add(float64(c.store.Len()))
	c.store.Purge()
	c.metrics.Entries.Set(0)
}

// Len returns the number of cached models.
func (c *Cache) Len() int {
	return c.store.Len()
}

func sourceKey(source string) string {
	if canonical, err := resolver.Canonical(source); err == nil {
		return canonical
	}
	return source
}

func (c *Cache) lookup(source string) (*types.Email, bool) {
	entry, ok := c.store.Get(source)
	if !ok {
		return nil, false
	}
	if !c.validate {
		return entry.Email, true
	}

	info, err := c.fs.Stat(source)
	if err == nil && info.ModTime().Equal(entry.Email.ModifiedAt) && info.Size() == entry.Email.SourceByteSize {
		return entry.Email, true
	}

	fields := logrus.Fields{"source": source, "loaded_at": entry.LoadedAt}
	if err != nil {
		c.logger.WithFields(fields).WithError(err).Warn("Source document no longer readable, invalidating cache entry")
	} else {
		c.logger.WithFields(fields).Info("Source document changed, invalidating cache entry")
	}
	c.store.Remove(source)
	c.metrics.Invalidations.Inc()
	c.metrics.Entries.Set(float64(c.store.Len()))
	return nil, false
}

func (c *Cache) load(source string) (*types.Email, error) {
	email, err := c.parse(source)
	if err != nil {
		c.metrics.LoadFailures.Inc()
		return nil, err
	}
	return email, nil
}

func (c *Cache) parse(source string) (*types.Email, error) {
	info, err := c.fs.Stat(source)
	if err != nil {
		return nil, fmt.Errorf("failed to stat source document: %w", err)
	}
	data, err := afero.ReadFile(c.fs, source)
	if err != nil {
		return nil, fmt.Errorf("failed to read source document: %w", err)
	}

	start := c.now()
	doc, err := c.loaders.Load(source, data)
	if err != nil {
		return nil, err
	}
	for _, v := range doc.Violations {
		c.logger.WithFields(logrus.Fields{
			"source":     source,
			"attachment": v.Index,
			"name":       v.Name,
			"reason":     v.Reason,
		}).Warn("Attachment skipped")
	}

	email := &types.Email{
		Sender:         doc.Sender,
		Recipients:     doc.Recipients,
		Subject:        doc.Subject,
		BodyHTML:       doc.BodyHTML,
		Attachments:    doc.Attachments,
		CreatedAt:      createdAt(info),
		ModifiedAt:     info.ModTime(),
		SourceByteSize: info.Size(),
	}
	c.store.Add(source, &Entry{Email: email, LoadedAt: c.now()})
	c.metrics.Entries.Set(float64(c.store.Len()))

	elapsed := c.now().Sub(start)
	c.metrics.LoadDuration.Observe(elapsed.Seconds())
	c.logger.WithFields(logrus.Fields{
		"source":      source,
		"attachments": len(email.Attachments),
		"duration":    elapsed,
	}).Debug("Source document parsed")
	return email, nil
}

func createdAt(info os.FileInfo) time.Time {
	if t, ok := changeTime(info); ok {
		return t
	}
	return info.ModTime()
}
