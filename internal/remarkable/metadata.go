// Package remarkable models the tablet's on-device document store: the
// per-object metadata records under its data directory and the ssh/sftp
// channel used to read and write them.
package remarkable

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// Sentinel parent identifiers used by the device.
const (
	// RootID is the parent of top-level objects.
	RootID = ""

	// TrashID is the container holding discarded objects. Anything
	// parented here is invisible to matching.
	TrashID = "trash"
)

// DefaultDataDir is where xochitl keeps document data, relative to the
// ssh user's home directory.
const DefaultDataDir = ".local/share/remarkable/xochitl"

// Kind distinguishes the two object types in the store.
type Kind int

const (
	KindFolder Kind = iota
	KindDocument
)

// Type tags as they appear in metadata records.
const (
	typeCollection = "CollectionType"
	typeDocument   = "DocumentType"
)

func (k Kind) String() string {
	switch k {
	case KindFolder:
		return "folder"
	case KindDocument:
		return "document"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// DocType returns the type tag used in metadata records.
func (k Kind) DocType() string {
	if k == KindFolder {
		return typeCollection
	}

	return typeDocument
}

// Timestamp is an epoch-milliseconds value. Current firmware writes it
// as a decimal string, but older records carry bare numbers, so reads
// accept both.
type Timestamp string

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*t = Timestamp(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("timestamp is neither string nor number: %s", data)
	}

	*t = Timestamp(n.String())

	return nil
}

// Time converts the timestamp to a time.Time, or the zero time when
// unset or unparseable.
func (t Timestamp) Time() time.Time {
	ms, err := strconv.ParseInt(string(t), 10, 64)
	if err != nil || ms <= 0 {
		return time.Time{}
	}

	return time.UnixMilli(ms)
}

// NewTimestamp renders a time the way the device stores it.
func NewTimestamp(t time.Time) Timestamp {
	return Timestamp(strconv.FormatInt(t.UnixMilli(), 10))
}

// Record is one object's metadata as stored in <id>.metadata. Unknown
// fields are tolerated on read and not round-tripped: writes emit only
// the fixed field set of MarshalRecord.
type Record struct {
	// ID is the file stem the record was read from, not part of the JSON.
	ID string `json:"-"`

	VisibleName      string    `json:"visibleName"`
	Parent           string    `json:"parent"`
	Type             string    `json:"type"`
	Deleted          bool      `json:"deleted"`
	Pinned           bool      `json:"pinned"`
	Synced           bool      `json:"synced"`
	Modified         bool      `json:"modified"`
	MetadataModified bool      `json:"metadatamodified"`
	Version          int       `json:"version"`
	LastModified     Timestamp `json:"lastModified"`
	LastOpened       Timestamp `json:"lastOpened"`
	LastOpenedPage   int       `json:"lastOpenedPage"`
}

// ParseRecord decodes one metadata blob.
func ParseRecord(id string, raw []byte) (*Record, error) {
	rec := &Record{}
	if err := json.Unmarshal(raw, rec); err != nil {
		return nil, fmt.Errorf("parsing metadata record %s: %w", id, err)
	}

	rec.ID = id

	return rec, nil
}

// Kind maps the record's type tag onto a Kind. The device only writes
// the two known tags; anything else counts as a document.
func (r *Record) Kind() Kind {
	if r.Type == typeCollection {
		return KindFolder
	}

	return KindDocument
}

// Visible reports whether the record takes part in tree matching.
// Deleted records and anything in the trash container are invisible.
func (r *Record) Visible() bool {
	return !r.Deleted && r.Parent != TrashID
}

// writeRecord is the exact field set emitted for new or overwritten
// objects, in the alphabetical key order the device itself writes.
type writeRecord struct {
	Deleted          bool      `json:"deleted"`
	LastModified     Timestamp `json:"lastModified"`
	LastOpened       Timestamp `json:"lastOpened,omitempty"`
	LastOpenedPage   *int      `json:"lastOpenedPage,omitempty"`
	MetadataModified bool      `json:"metadatamodified"`
	Modified         bool      `json:"modified"`
	Parent           string    `json:"parent"`
	Pinned           bool      `json:"pinned"`
	Synced           bool      `json:"synced"`
	Type             string    `json:"type"`
	Version          int       `json:"version"`
	VisibleName      string    `json:"visibleName"`
}

// MarshalRecord renders the metadata blob shipped for an object.
// Folders carry the base field set; documents additionally record an
// opening position so the reader starts at page zero.
func MarshalRecord(kind Kind, name, parentID string, modTime time.Time) ([]byte, error) {
	wr := writeRecord{
		LastModified: NewTimestamp(modTime),
		Parent:       parentID,
		Type:         kind.DocType(),
		VisibleName:  name,
	}

	if kind == KindDocument {
		wr.LastOpened = wr.LastModified
		page := 0
		wr.LastOpenedPage = &page
	}

	data, err := json.MarshalIndent(wr, "", "    ")
	if err != nil {
		return nil, fmt.Errorf("marshaling metadata for %s: %w", name, err)
	}

	return data, nil
}
