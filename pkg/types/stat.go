package types

import "time"

// FileKind classifies an entry of the synthetic namespace.
type FileKind int

const (
	KindUnknown FileKind = iota
	KindFile
	KindDirectory
)

func (k FileKind) String() string {
	switch k {
	case KindFile:
		return "file"
	case KindDirectory:
		return "directory"
	default:
		return "unknown"
	}
}

// MarshalText renders the kind by name so JSON tool output stays readable.
func (k FileKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// FileStat is the metadata reported for a synthetic path.
type FileStat struct {
	Kind       FileKind  `json:"kind"`
	CreatedAt  time.Time `json:"created_at"`
	ModifiedAt time.Time `json:"modified_at"`
	Size       int64     `json:"size"`
}

// DirEntry is one row of a directory listing.
type DirEntry struct {
	Name string   `json:"name"`
	Kind FileKind `json:"kind"`
}
