package snapshot

import (
	"path/filepath"
	"testing"
)

func TestHierarchyRoundTrip(t *testing.T) {
	h := testHierarchy()
	data, err := MarshalHierarchy(h)
	if err != nil {
		t.Fatalf("MarshalHierarchy: %v", err)
	}

	got, err := UnmarshalHierarchy(data)
	if err != nil {
		t.Fatalf("UnmarshalHierarchy: %v", err)
	}
	if got.RootID != h.RootID || len(got.Nodes) != len(h.Nodes) {
		t.Errorf("round trip mismatch: root %q nodes %d", got.RootID, len(got.Nodes))
	}
	if got.Snapshot != h.Snapshot {
		t.Errorf("descriptor mismatch: %+v", got.Snapshot)
	}
}

func TestUnmarshalHierarchyRejectsMissingRoot(t *testing.T) {
	if _, err := UnmarshalHierarchy([]byte(`{"root_id":"x","nodes":{}}`)); err == nil {
		t.Error("want error for unresolvable root id")
	}
	if _, err := UnmarshalHierarchy([]byte(`not json`)); err == nil {
		t.Error("want error for invalid JSON")
	}
}

func TestUnmarshalHierarchyDefaultsVersion(t *testing.T) {
	h, err := UnmarshalHierarchy([]byte(`{"root_id":"r","nodes":{"r":{"id":"r","path":"/","is_directory":true}}}`))
	if err != nil {
		t.Fatalf("UnmarshalHierarchy: %v", err)
	}
	if h.Version != ArtifactVersion {
		t.Errorf("version = %q, want %q", h.Version, ArtifactVersion)
	}
}

func TestHierarchyFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hierarchy.json")
	if err := WriteHierarchyFile(testHierarchy(), path); err != nil {
		t.Fatalf("WriteHierarchyFile: %v", err)
	}
	got, err := ReadHierarchyFile(path)
	if err != nil {
		t.Fatalf("ReadHierarchyFile: %v", err)
	}
	if got.FindByPath("/data/a") == nil {
		t.Error("record lost in file round trip")
	}
}
