// Package local scans a directory tree on the local filesystem and exposes
// it as a snapshot source, so the CLI can map a machine without a backend.
package local

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/vormap/vormap/pkg/snapshot"
	"github.com/vormap/vormap/pkg/source"
)

// Options controls a filesystem scan.
type Options struct {
	// MaxDepth bounds how deep the scan descends below the root.
	// Zero means unlimited.
	MaxDepth int

	// FollowSymlinks resolves symlinked directories instead of recording
	// them as zero-size files. Off by default to avoid cycles.
	FollowSymlinks bool
}

// Stats summarizes a completed scan.
type Stats struct {
	Files   int
	Dirs    int
	Bytes   int64
	Errors  int
	Elapsed time.Duration
}

// Scanner walks a directory tree and builds hierarchy artifacts.
// Unreadable directories are counted as errors and skipped rather than
// aborting the scan.
type Scanner struct {
	opts Options

	counter int
}

// NewScanner creates a scanner with the given options.
func NewScanner(opts Options) *Scanner {
	return &Scanner{opts: opts}
}

// Scan walks root and returns a hierarchy artifact with the scan stats.
// The snapshot id is derived from the scan date.
func (s *Scanner) Scan(ctx context.Context, root string) (*snapshot.Hierarchy, Stats, error) {
	start := time.Now()
	root = filepath.Clean(root)

	info, err := os.Stat(root)
	if err != nil {
		return nil, Stats{}, err
	}
	if !info.IsDir() {
		return nil, Stats{}, fmt.Errorf("%s is not a directory", root)
	}

	s.counter = 0
	h := &snapshot.Hierarchy{
		Version:    snapshot.ArtifactVersion,
		ComputedAt: start,
		Nodes:      make(map[string]*snapshot.Record),
	}

	var stats Stats
	rootID, err := s.walk(ctx, h, &stats, root, filepath.Base(root), 0)
	if err != nil {
		return nil, stats, err
	}

	h.RootID = rootID
	h.Snapshot = snapshot.Descriptor{
		ID:        start.Format("2006-01-02"),
		Path:      root,
		Size:      h.Root().Size,
		FileCount: stats.Files,
	}
	stats.Elapsed = time.Since(start)
	return h, stats, nil
}

// walk records the directory at path and everything below it, returning the
// directory's record id.
func (s *Scanner) walk(ctx context.Context, h *snapshot.Hierarchy, stats *Stats, path, name string, depth int) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		stats.Errors++
		entries = nil
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	var (
		childIDs  []string
		files     []snapshot.FileRef
		filesSize int64
		dirSize   int64
		fileCount int
	)

	for _, entry := range entries {
		childPath := filepath.Join(path, entry.Name())

		if entry.IsDir() || (s.opts.FollowSymlinks && resolvesToDir(childPath, entry)) {
			if s.opts.MaxDepth > 0 && depth+1 >= s.opts.MaxDepth {
				continue
			}
			id, err := s.walk(ctx, h, stats, childPath, entry.Name(), depth+1)
			if err != nil {
				return "", err
			}
			childIDs = append(childIDs, id)
			dirSize += h.Nodes[id].Size
			continue
		}

		size := entrySize(entry)
		files = append(files, snapshot.FileRef{
			Name: entry.Name(),
			Path: childPath,
			Size: size,
		})
		filesSize += size
		fileCount++
		stats.Files++
		stats.Bytes += size
	}

	// Direct files are grouped under a synthetic container so every cell
	// in the tessellation is a directory-like region.
	if len(files) > 0 {
		filesID := s.nextID(false)
		h.Nodes[filesID] = &snapshot.Record{
			ID:            filesID,
			Name:          snapshot.SyntheticName,
			Path:          snapshot.JoinPath(path, snapshot.SyntheticName),
			Size:          filesSize,
			Depth:         depth + 1,
			FileCount:     fileCount,
			Synthetic:     true,
			OriginalFiles: files,
		}
		childIDs = append(childIDs, filesID)
	}

	id := s.nextID(true)
	h.Nodes[id] = &snapshot.Record{
		ID:        id,
		Name:      name,
		Path:      path,
		Size:      dirSize + filesSize,
		IsDir:     true,
		Depth:     depth,
		FileCount: fileCount,
		Children:  childIDs,
	}
	stats.Dirs++
	return id, nil
}

func (s *Scanner) nextID(isDir bool) string {
	s.counter++
	prefix := "file"
	if isDir {
		prefix = "dir"
	}
	return fmt.Sprintf("%s_%d", prefix, s.counter)
}

func entrySize(entry fs.DirEntry) int64 {
	info, err := entry.Info()
	if err != nil {
		return 0
	}
	return info.Size()
}

func resolvesToDir(path string, entry fs.DirEntry) bool {
	if entry.Type()&fs.ModeSymlink == 0 {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// LocalSource serves snapshot data straight from the filesystem. It scans
// lazily on the first hierarchy request and caches the artifact for the
// lifetime of the source.
type LocalSource struct {
	root    string
	scanner *Scanner

	hierarchy *snapshot.Hierarchy
}

// New creates a source rooted at dir.
func New(dir string, opts Options) *LocalSource {
	return &LocalSource{
		root:    filepath.Clean(dir),
		scanner: NewScanner(opts),
	}
}

// Snapshots returns a single descriptor for the live filesystem.
func (l *LocalSource) Snapshots(ctx context.Context) ([]snapshot.Descriptor, error) {
	h, err := l.ensureScanned(ctx)
	if err != nil {
		return nil, err
	}
	return []snapshot.Descriptor{h.Snapshot}, nil
}

// Hierarchy scans the root if needed and returns the artifact. The
// snapshotID is ignored because the live filesystem has exactly one
// snapshot.
func (l *LocalSource) Hierarchy(ctx context.Context, snapshotID string) (*snapshot.Hierarchy, error) {
	return l.ensureScanned(ctx)
}

// List reads the immediate entries of one directory. Directory sizes are
// resolved from the scanned artifact when available so cells stay
// proportional without a recursive walk per call.
func (l *LocalSource) List(ctx context.Context, snapshotID, path string) ([]snapshot.Entry, error) {
	entries, err := os.ReadDir(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", source.ErrNotFound, path)
		}
		return nil, err
	}

	out := make([]snapshot.Entry, 0, len(entries))
	for _, entry := range entries {
		childPath := filepath.Join(path, entry.Name())
		e := snapshot.Entry{
			Name:  entry.Name(),
			Path:  childPath,
			IsDir: entry.IsDir(),
		}
		if entry.IsDir() {
			if l.hierarchy != nil {
				if rec := l.hierarchy.FindByPath(childPath); rec != nil {
					e.Size = rec.Size
					e.FileCount = rec.FileCount
				}
			}
		} else {
			e.Size = entrySize(entry)
		}
		out = append(out, e)
	}
	return out, nil
}

func (l *LocalSource) ensureScanned(ctx context.Context) (*snapshot.Hierarchy, error) {
	if l.hierarchy != nil {
		return l.hierarchy, nil
	}
	h, _, err := l.scanner.Scan(ctx, l.root)
	if err != nil {
		return nil, err
	}
	l.hierarchy = h
	return h, nil
}

// Ensure LocalSource implements Source.
var _ source.Source = (*LocalSource)(nil)
