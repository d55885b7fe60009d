package cache

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brandon/emlfs/internal/loader"
	"github.com/brandon/emlfs/pkg/types"
)

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

// countingLoader counts invocations and optionally blocks until released.
type countingLoader struct {
	calls   atomic.Int32
	release chan struct{}
	err     error
}

func (l *countingLoader) load(data []byte) (*loader.Document, error) {
	l.calls.Add(1)
	if l.release != nil {
		<-l.release
	}
	if l.err != nil {
		return nil, l.err
	}
	return &loader.Document{
		Subject:     string(data),
		Attachments: []types.Attachment{{Name: "a.pdf", ByteSize: 1, Content: []byte("a")}},
	}, nil
}

func newTestCache(t *testing.T, l *countingLoader, opts Options) (*Cache, afero.Fs) {
	t.Helper()
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/mail/msg.eml", []byte("hello"), 0o644))
	c, err := New(fs, loader.Registry{"eml": l.load, "msg": l.load}, opts, quietLogger())
	require.NoError(t, err)
	return c, fs
}

func TestGetOrLoad_CachesModel(t *testing.T) {
	l := &countingLoader{}
	c, _ := newTestCache(t, l, Options{})

	first, err := c.GetOrLoad(context.Background(), "/mail/msg.eml")
	require.NoError(t, err)
	second, err := c.GetOrLoad(context.Background(), "/mail/../mail/msg.eml")
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, int32(1), l.calls.Load())
	assert.Equal(t, "hello", first.Subject)
	assert.Equal(t, int64(5), first.SourceByteSize)
	assert.False(t, first.ModifiedAt.IsZero())
	assert.Equal(t, 1, c.Len())

	entry, ok := c.Peek("/mail/msg.eml")
	require.True(t, ok)
	assert.False(t, entry.LoadedAt.IsZero())
}

func TestGetOrLoad_RelativeAndAbsoluteShareEntry(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	l := &countingLoader{}
	c, fs := newTestCache(t, l, Options{ValidateModTime: true})
	source := filepath.Join(dir, "msg.eml")
	require.NoError(t, afero.WriteFile(fs, source, []byte("local"), 0o644))

	for _, s := range []string{source, "msg.eml", "./msg.eml"} {
		email, err := c.GetOrLoad(context.Background(), s)
		require.NoError(t, err, s)
		assert.Equal(t, "local", email.Subject)
	}
	assert.Equal(t, int32(1), l.calls.Load())

	_, ok := c.Peek("msg.eml")
	assert.True(t, ok)
	c.Invalidate("./msg.eml")
	assert.Equal(t, 0, c.Len())
}

func TestGetOrLoad_CoalescesConcurrentLoads(t *testing.T) {
	l := &countingLoader{release: make(chan struct{})}
	c, _ := newTestCache(t, l, Options{ValidateModTime: true})

	const callers = 8
	var started, done sync.WaitGroup
	results := make([]*types.Email, callers)
	errs := make([]error, callers)
	started.Add(callers)
	done.Add(callers)
	for i := 0; i < callers; i++ {
		go func(i int) {
			defer done.Done()
			started.Done()
			results[i], errs[i] = c.GetOrLoad(context.Background(), "/mail/msg.eml")
		}(i)
	}

	started.Wait()
	time.Sleep(20 * time.Millisecond)
	close(l.release)
	done.Wait()

	assert.Equal(t, int32(1), l.calls.Load())
	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		assert.Same(t, results[0], results[i])
	}
}

func TestGetOrLoad_UnsupportedFormat(t *testing.T) {
	l := &countingLoader{}
	c, fs := newTestCache(t, l, Options{})
	require.NoError(t, afero.WriteFile(fs, "/mail/notes.txt", []byte("x"), 0o644))

	_, err := c.GetOrLoad(context.Background(), "/mail/notes.txt")
	var unsupported *types.UnsupportedFormatError
	require.ErrorAs(t, err, &unsupported)
	assert.Equal(t, int32(0), l.calls.Load())
	assert.Equal(t, 0, c.Len())
}

func TestGetOrLoad_FailureNotCached(t *testing.T) {
	l := &countingLoader{err: errors.New("corrupt")}
	c, fs := newTestCache(t, l, Options{})
	require.NoError(t, afero.WriteFile(fs, "/mail/broken.msg", []byte("junk"), 0o644))

	for i := 0; i < 2; i++ {
		_, err := c.GetOrLoad(context.Background(), "/mail/broken.msg")
		var formatErr *types.FormatError
		require.ErrorAs(t, err, &formatErr)
		_, ok := c.Peek("/mail/broken.msg")
		assert.False(t, ok)
	}
	assert.Equal(t, int32(2), l.calls.Load())

	// Once the loader succeeds the model is served and cached.
	l.err = nil
	email, err := c.GetOrLoad(context.Background(), "/mail/broken.msg")
	require.NoError(t, err)
	assert.Equal(t, "junk", email.Subject)
	assert.Equal(t, 1, c.Len())
}

func TestGetOrLoad_MissingSource(t *testing.T) {
	l := &countingLoader{}
	c, _ := newTestCache(t, l, Options{})

	_, err := c.GetOrLoad(context.Background(), "/mail/gone.eml")
	require.Error(t, err)
	assert.Equal(t, int32(0), l.calls.Load())
}

func TestGetOrLoad_InvalidatesChangedSource(t *testing.T) {
	l := &countingLoader{}
	c, fs := newTestCache(t, l, Options{ValidateModTime: true})

	first, err := c.GetOrLoad(context.Background(), "/mail/msg.eml")
	require.NoError(t, err)

	require.NoError(t, afero.WriteFile(fs, "/mail/msg.eml", []byte("hello again"), 0o644))
	later := first.ModifiedAt.Add(time.Minute)
	require.NoError(t, fs.Chtimes("/mail/msg.eml", later, later))

	second, err := c.GetOrLoad(context.Background(), "/mail/msg.eml")
	require.NoError(t, err)
	assert.NotSame(t, first, second)
	assert.Equal(t, "hello again", second.Subject)
	assert.Equal(t, int32(2), l.calls.Load())
}

func TestGetOrLoad_WithoutValidationServesStale(t *testing.T) {
	l := &countingLoader{}
	c, fs := newTestCache(t, l, Options{ValidateModTime: false})

	first, err := c.GetOrLoad(context.Background(), "/mail/msg.eml")
	require.NoError(t, err)
	require.NoError(t, afero.WriteFile(fs, "/mail/msg.eml", []byte("changed"), 0o644))

	second, err := c.GetOrLoad(context.Background(), "/mail/msg.eml")
	require.NoError(t, err)
	assert.Same(t, first, second)
}

func TestGetOrLoad_ContextCanceled(t *testing.T) {
	l := &countingLoader{release: make(chan struct{})}
	c, _ := newTestCache(t, l, Options{})
	defer close(l.release)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.GetOrLoad(ctx, "/mail/msg.eml")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestInvalidateAndClear(t *testing.T) {
	l := &countingLoader{}
	c, _ := newTestCache(t, l, Options{})

	_, err := c.GetOrLoad(context.Background(), "/mail/msg.eml")
	require.NoError(t, err)
	c.Invalidate("/mail/msg.eml")
	assert.Equal(t, 0, c.Len())

	_, err = c.GetOrLoad(context.Background(), "/mail/msg.eml")
	require.NoError(t, err)
	c.Clear()
	assert.Equal(t, 0, c.Len())
	assert.Equal(t, int32(2), l.calls.Load())
}
