package loader

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"html"
	"io"
	"sort"
	"strings"

	"github.com/richardlehane/mscfb"
	"golang.org/x/text/encoding/unicode"
)

// Storage and stream names of the Outlook .msg property layout.
const (
	substgPrefix    = "__substg1.0_"
	recipPrefix     = "__recip_version1.0_#"
	attachPrefix    = "__attach_version1.0_#"
	propertiesName  = "__properties_version1.0"
	embeddedMessage = substgPrefix + "3701000D"
)

// Property types carried in the last four hex digits of a stream name.
const (
	typeString8  = "001E"
	typeString16 = "001F"
	typeBinary   = "0102"
)

// Property ids.
const (
	propSubject          = "0037"
	propBody             = "1000"
	propSenderName       = "0C1A"
	propSenderEmail      = "0C1F"
	propSenderSMTP       = "5D01"
	propDisplayName      = "3001"
	propEmailAddress     = "3003"
	propSMTPAddress      = "39FE"
	propAttachData       = "3701"
	propAttachFilename   = "3704"
	propAttachLongName   = "3707"
	propRecipientTypeTag = 0x0C150003
)

const recipientTo = 1

// msgEntry is one stream of a compound document. Path holds the names of the
// storages above the stream.
type msgEntry struct {
	path []string
	name string
	data []byte
}

// LoadMSG parses an Outlook .msg compound document.
func LoadMSG(data []byte) (*Document, error) {
	entries, err := readCompound(data)
	if err != nil {
		return nil, err
	}
	return buildMSG(entries)
}

func readCompound(data []byte) ([]msgEntry, error) {
	doc, err := mscfb.New(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("open compound document: %w", err)
	}

	var entries []msgEntry
	for {
		entry, err := doc.Next()
		if errors.Is(err, io.EOF) {
			return entries, nil
		}
		if err != nil {
			return nil, fmt.Errorf("read compound document: %w", err)
		}
		if entry.FileInfo().IsDir() || !isPropertyStream(entry.Name) {
			continue
		}
		content, err := io.ReadAll(entry)
		if err != nil {
			return nil, fmt.Errorf("read stream %s: %w", entry.Name, err)
		}
		entries = append(entries, msgEntry{
			path: append([]string(nil), entry.Path...),
			name: entry.Name,
			data: content,
		})
	}
}

func isPropertyStream(name string) bool {
	return (strings.HasPrefix(name, substgPrefix) && name != embeddedMessage) || name == propertiesName
}

// msgObject collects the property streams of the message, one recipient or
// one attachment.
type msgObject struct {
	props      map[string][]byte
	properties []byte
}

func newMsgObject() *msgObject {
	return &msgObject{props: make(map[string][]byte)}
}

func (o *msgObject) add(e msgEntry) {
	if e.name == propertiesName {
		o.properties = e.data
		return
	}
	o.props[strings.ToUpper(strings.TrimPrefix(e.name, substgPrefix))] = e.data
}

func (o *msgObject) str(id string) string {
	if v, ok := o.props[id+typeString16]; ok {
		return decodeUTF16(v)
	}
	if v, ok := o.props[id+typeString8]; ok {
		return strings.TrimRight(string(v), "\x00")
	}
	return ""
}

func (o *msgObject) bin(id string) ([]byte, bool) {
	v, ok := o.props[id+typeBinary]
	return v, ok
}

// fixedLong returns a PT_LONG value from the fixed-length property stream.
// Top-level messages carry a 32-byte header, recipients and attachments 8.
func (o *msgObject) fixedLong(tag uint32, header int) (int32, bool) {
	if len(o.properties) < header {
		return 0, false
	}
	for off := header; off+16 <= len(o.properties); off += 16 {
		if binary.LittleEndian.Uint32(o.properties[off:]) == tag {
			return int32(binary.LittleEndian.Uint32(o.properties[off+8:])), true
		}
	}
	return 0, false
}

func buildMSG(entries []msgEntry) (*Document, error) {
	message := newMsgObject()
	recipients := make(map[string]*msgObject)
	attachments := make(map[string]*msgObject)

	for _, e := range entries {
		owner, kind, embedded := msgOwner(e.path)
		if embedded {
			continue
		}
		switch kind {
		case recipPrefix:
			objectFor(recipients, owner).add(e)
		case attachPrefix:
			objectFor(attachments, owner).add(e)
		default:
			message.add(e)
		}
	}

	if len(message.props) == 0 && len(recipients) == 0 && len(attachments) == 0 {
		return nil, errors.New("no message properties found")
	}

	doc := &Document{
		Sender:  displayAddress(message.str(propSenderName), senderAddress(message)),
		Subject: message.str(propSubject),
	}
	doc.BodyHTML = "<pre>" + html.EscapeString(message.str(propBody)) + "</pre>"

	var to []string
	for _, key := range sortedKeys(recipients) {
		r := recipients[key]
		if kind, ok := r.fixedLong(propRecipientTypeTag, 8); ok && kind != recipientTo {
			continue
		}
		addr := r.str(propSMTPAddress)
		if addr == "" {
			addr = r.str(propEmailAddress)
		}
		if s := displayAddress(r.str(propDisplayName), addr); s != "" {
			to = append(to, s)
		}
	}
	doc.Recipients = strings.Join(to, ", ")

	var raw []rawAttachment
	for _, key := range sortedKeys(attachments) {
		a := attachments[key]
		content, ok := a.bin(propAttachData)
		if !ok {
			// Embedded messages and OLE objects have no binary data stream.
			continue
		}
		name := a.str(propAttachLongName)
		if name == "" {
			name = a.str(propAttachFilename)
		}
		if name == "" {
			name = a.str(propDisplayName)
		}
		raw = append(raw, rawAttachment{name: name, content: content})
	}
	doc.Attachments, doc.Violations = normalize(raw)

	return doc, nil
}

// msgOwner finds the innermost recipient or attachment storage in path.
// Anything below an embedded message belongs to that message and is reported
// as embedded.
func msgOwner(path []string) (owner, kind string, embedded bool) {
	for _, p := range path {
		switch {
		case p == embeddedMessage:
			return owner, kind, true
		case strings.HasPrefix(p, recipPrefix):
			owner, kind = p, recipPrefix
		case strings.HasPrefix(p, attachPrefix):
			owner, kind = p, attachPrefix
		}
	}
	return owner, kind, false
}

func senderAddress(m *msgObject) string {
	if addr := m.str(propSenderSMTP); addr != "" {
		return addr
	}
	return m.str(propSenderEmail)
}

func objectFor(objects map[string]*msgObject, key string) *msgObject {
	o, ok := objects[key]
	if !ok {
		o = newMsgObject()
		objects[key] = o
	}
	return o
}

// sortedKeys orders storages by their "#XXXXXXXX" hex suffix, which is the
// order the objects were added to the message.
func sortedKeys(objects map[string]*msgObject) []string {
	keys := make([]string, 0, len(objects))
	for k := range objects {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func decodeUTF16(b []byte) string {
	out, err := unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM).NewDecoder().Bytes(b)
	if err != nil {
		return ""
	}
	return strings.TrimRight(string(out), "\x00")
}
