package snapshot

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"
)

// ArtifactVersion is the current hierarchy artifact format version.
const ArtifactVersion = "1.0.0"

// FileRef describes one loose file inside a synthetic container record.
type FileRef struct {
	Name string `json:"name" bson:"name"`
	Path string `json:"path" bson:"path"`
	Size int64  `json:"size" bson:"size"`
}

// Record is one flat node in a hierarchy artifact. Children are referenced
// by id; synthetic records carry the aggregated loose files inline.
type Record struct {
	ID            string    `json:"id" bson:"id"`
	Name          string    `json:"name" bson:"name"`
	Path          string    `json:"path" bson:"path"`
	Size          int64     `json:"size" bson:"size"`
	IsDir         bool      `json:"is_directory" bson:"is_directory"`
	Depth         int       `json:"depth" bson:"depth"`
	FileCount     int       `json:"file_count,omitempty" bson:"file_count,omitempty"`
	Children      []string  `json:"children,omitempty" bson:"children,omitempty"`
	Synthetic     bool      `json:"is_synthetic,omitempty" bson:"is_synthetic,omitempty"`
	OriginalFiles []FileRef `json:"original_files,omitempty" bson:"original_files,omitempty"`
}

// Descriptor identifies the snapshot a hierarchy was computed from.
type Descriptor struct {
	ID        string `json:"id" bson:"id"`
	Path      string `json:"path" bson:"path"`
	Size      int64  `json:"size" bson:"size"`
	FileCount int    `json:"file_count" bson:"file_count"`
}

// Hierarchy is the precomputed artifact for one snapshot: a flat map of
// id-referenced records plus the root id to start dereferencing from.
// This is the canonical serialization format for storage and the API.
type Hierarchy struct {
	Version    string             `json:"version" bson:"version"`
	Snapshot   Descriptor         `json:"snapshot" bson:"snapshot"`
	ComputedAt time.Time          `json:"computed_at" bson:"computed_at"`
	RootID     string             `json:"root_id" bson:"root_id"`
	Nodes      map[string]*Record `json:"nodes" bson:"nodes"`
}

// Root returns the root record, or nil if the artifact is malformed.
func (h *Hierarchy) Root() *Record {
	return h.Nodes[h.RootID]
}

// FindByPath returns the record whose path matches exactly, or nil.
func (h *Hierarchy) FindByPath(path string) *Record {
	if r := h.Root(); r != nil && r.Path == path {
		return r
	}
	for _, rec := range h.Nodes {
		if rec.Path == path {
			return rec
		}
	}
	return nil
}

// MarshalHierarchy serializes a Hierarchy to pretty-printed JSON bytes.
func MarshalHierarchy(h *Hierarchy) ([]byte, error) {
	return json.MarshalIndent(h, "", "  ")
}

// UnmarshalHierarchy deserializes JSON bytes into a Hierarchy.
// Validates that the root id resolves; missing per-node fields default to
// zero values so partial artifacts remain loadable.
func UnmarshalHierarchy(data []byte) (*Hierarchy, error) {
	var h Hierarchy
	if err := json.Unmarshal(data, &h); err != nil {
		return nil, fmt.Errorf("unmarshal hierarchy: %w", err)
	}
	if h.Version == "" {
		h.Version = ArtifactVersion
	}
	if h.Nodes == nil {
		h.Nodes = map[string]*Record{}
	}
	if h.RootID == "" || h.Nodes[h.RootID] == nil {
		return nil, fmt.Errorf("hierarchy root %q not present in nodes", h.RootID)
	}
	return &h, nil
}

// ReadHierarchy reads a Hierarchy from r.
func ReadHierarchy(r io.Reader) (*Hierarchy, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read hierarchy: %w", err)
	}
	return UnmarshalHierarchy(data)
}

// WriteHierarchyFile writes a Hierarchy to a JSON file.
func WriteHierarchyFile(h *Hierarchy, path string) error {
	data, err := MarshalHierarchy(h)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// ReadHierarchyFile reads a Hierarchy from a JSON file.
func ReadHierarchyFile(path string) (*Hierarchy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return UnmarshalHierarchy(data)
}
