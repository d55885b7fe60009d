package loader

import (
	"bytes"
	"testing"

	"github.com/jhillyerd/enmime"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brandon/emlfs/pkg/types"
)

func buildEML(t *testing.T, b enmime.MailBuilder) []byte {
	t.Helper()
	root, err := b.Build()
	require.NoError(t, err)
	var buf bytes.Buffer
	require.NoError(t, root.Encode(&buf))
	return buf.Bytes()
}

func baseBuilder() enmime.MailBuilder {
	return enmime.Builder().
		From("Alice Example", "alice@example.com").
		To("Bob", "bob@example.com").
		To("", "carol@example.com").
		Subject("Quarterly report")
}

func TestLoadEML_TextBodyAndAttachments(t *testing.T) {
	pdf := bytes.Repeat([]byte{0x25}, 1024)
	png := bytes.Repeat([]byte{0x89}, 2048)
	raw := buildEML(t, baseBuilder().
		Text([]byte("Hello <team>,\nsee attached.\n\nRegards")).
		AddAttachment(pdf, "application/pdf", "a.pdf").
		AddAttachment(png, "image/png", "b.png"))

	doc, err := LoadEML(raw)
	require.NoError(t, err)

	assert.Equal(t, "Alice Example [alice@example.com]", doc.Sender)
	assert.Equal(t, "Bob [bob@example.com], carol@example.com", doc.Recipients)
	assert.Equal(t, "Quarterly report", doc.Subject)
	assert.Equal(t, "<p>Hello &lt;team&gt;,<br/>see attached.</p><p>Regards</p>", doc.BodyHTML)
	assert.Empty(t, doc.Violations)

	require.Len(t, doc.Attachments, 2)
	assert.Equal(t, "a.pdf", doc.Attachments[0].Name)
	assert.Equal(t, int64(1024), doc.Attachments[0].ByteSize)
	assert.Equal(t, pdf, doc.Attachments[0].Content)
	assert.Equal(t, "b.png", doc.Attachments[1].Name)
	assert.Equal(t, int64(2048), doc.Attachments[1].ByteSize)
}

func TestLoadEML_PrefersHTMLBody(t *testing.T) {
	raw := buildEML(t, baseBuilder().
		Text([]byte("plain variant")).
		HTML([]byte("<p>rich <b>variant</b></p>")))

	doc, err := LoadEML(raw)
	require.NoError(t, err)
	assert.Contains(t, doc.BodyHTML, "<b>variant</b>")
	assert.NotContains(t, doc.BodyHTML, "plain variant")
	assert.Empty(t, doc.Attachments)
}

func TestLoadEML_DuplicateAttachmentKeepsFirst(t *testing.T) {
	raw := buildEML(t, baseBuilder().
		Text([]byte("body")).
		AddAttachment([]byte("first"), "text/plain", "notes.txt").
		AddAttachment([]byte("second"), "text/plain", "notes.txt"))

	doc, err := LoadEML(raw)
	require.NoError(t, err)
	require.Len(t, doc.Attachments, 1)
	assert.Equal(t, []byte("first"), doc.Attachments[0].Content)
	require.Len(t, doc.Violations, 1)
	assert.Equal(t, types.ReasonDuplicateName, doc.Violations[0].Reason)
}

func TestLoadEML_EmptyBody(t *testing.T) {
	raw := []byte("From: a@example.com\r\nTo: b@example.com\r\nSubject: empty\r\n\r\n")

	doc, err := LoadEML(raw)
	require.NoError(t, err)
	assert.Equal(t, "a@example.com", doc.Sender)
	assert.Equal(t, "", doc.BodyHTML)
	assert.Empty(t, doc.Attachments)
}

func TestTextToHTML(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "single line", in: "hi", want: "<p>hi</p>"},
		{name: "crlf lines", in: "a\r\nb", want: "<p>a<br/>b</p>"},
		{name: "paragraphs", in: "a\n\n\n\nb\n", want: "<p>a</p><p>b</p>"},
		{name: "escapes", in: `"x" & <y>`, want: "<p>&#34;x&#34; &amp; &lt;y&gt;</p>"},
		{name: "blank", in: "\n\n", want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, textToHTML(tt.in))
		})
	}
}
