package loader

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brandon/emlfs/pkg/types"
)

func TestRegistry_Lookup(t *testing.T) {
	reg := NewRegistry()

	for _, source := range []string{"/mail/a.eml", "/mail/B.EML", "/mail/c.Msg"} {
		_, err := reg.Lookup(source)
		assert.NoError(t, err, source)
		assert.True(t, reg.Supports(source), source)
	}

	_, err := reg.Lookup("/mail/notes.txt")
	var unsupported *types.UnsupportedFormatError
	require.ErrorAs(t, err, &unsupported)
	assert.Equal(t, "txt", unsupported.Extension)
	assert.False(t, reg.Supports("/mail/noext"))
}

func TestRegistry_LoadWrapsFormatError(t *testing.T) {
	cause := errors.New("boom")
	reg := Registry{"msg": func([]byte) (*Document, error) { return nil, cause }}

	_, err := reg.Load("/mail/broken.msg", []byte("x"))
	var formatErr *types.FormatError
	require.ErrorAs(t, err, &formatErr)
	assert.Equal(t, "/mail/broken.msg", formatErr.Source)
	assert.Equal(t, "msg", formatErr.Format)
	assert.ErrorIs(t, err, cause)
}

func TestRegistry_LoadGarbageMSG(t *testing.T) {
	_, err := NewRegistry().Load("/mail/broken.msg", []byte("garbage"))
	var formatErr *types.FormatError
	require.ErrorAs(t, err, &formatErr)
}

func TestRegistry_LoadDropsReservedName(t *testing.T) {
	reg := Registry{"eml": func([]byte) (*Document, error) {
		return &Document{Attachments: []types.Attachment{
			{Name: "msg.eml.html", Content: []byte("shadow")},
			{Name: "a.pdf", Content: []byte("a")},
		}}, nil
	}}

	doc, err := reg.Load("/tmp/msg.eml", nil)
	require.NoError(t, err)
	require.Len(t, doc.Attachments, 1)
	assert.Equal(t, "a.pdf", doc.Attachments[0].Name)
	require.Len(t, doc.Violations, 1)
	assert.Equal(t, types.ReasonReservedName, doc.Violations[0].Reason)
}

func TestNormalize(t *testing.T) {
	attachments, violations := normalize([]rawAttachment{
		{name: "a.pdf", content: []byte("1")},
		{name: "", content: []byte("2")},
		{name: "  ", content: []byte("3")},
		{name: "dir/b.png", content: []byte("4")},
		{name: "..", content: []byte("5")},
		{name: "a.pdf", content: []byte("6")},
		{name: "c.txt", content: nil},
	})

	require.Len(t, attachments, 2)
	assert.Equal(t, "a.pdf", attachments[0].Name)
	assert.Equal(t, []byte("1"), attachments[0].Content)
	assert.Equal(t, "c.txt", attachments[1].Name)
	assert.Equal(t, int64(0), attachments[1].ByteSize)

	reasons := make([]string, 0, len(violations))
	for _, v := range violations {
		reasons = append(reasons, v.Reason)
	}
	assert.Equal(t, []string{
		types.ReasonMissingName,
		types.ReasonMissingName,
		types.ReasonInvalidName,
		types.ReasonInvalidName,
		types.ReasonDuplicateName,
	}, reasons)
	assert.Equal(t, 5, violations[4].Index)
}

func TestDisplayAddress(t *testing.T) {
	assert.Equal(t, "Ann [ann@example.com]", displayAddress("Ann", "ann@example.com"))
	assert.Equal(t, "ann@example.com", displayAddress(" ", "ann@example.com"))
	assert.Equal(t, "Ann", displayAddress("Ann", ""))
	assert.Equal(t, "", displayAddress("", ""))
}
