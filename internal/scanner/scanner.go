package scanner

import (
	"context"
	"io/fs"
	"path"
	"path/filepath"
	"sort"
	"time"

	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/sadopc/arqrel/internal/model"
)

// ScanOptions configures the scanner behavior.
type ScanOptions struct {
	// Verbose logs every visited directory and discovered entry at Info
	// level instead of Debug.
	Verbose bool
	// FollowSymlinks follows symbolic links (default: false). Linked
	// directories are walked once per resolved path.
	FollowSymlinks bool
	// Logger receives discovery lines and contained errors. Nil disables logging.
	Logger *zap.Logger
	// Progress receives non-blocking progress updates. May be nil.
	Progress chan<- Progress
	// Now overrides the clock used for begin/finish timestamps.
	Now func() time.Time
}

// DefaultOptions returns sensible defaults.
func DefaultOptions() ScanOptions {
	return ScanOptions{
		Verbose:        false,
		FollowSymlinks: false,
	}
}

func (o ScanOptions) logger() *zap.Logger {
	if o.Logger == nil {
		return zap.NewNop()
	}
	return o.Logger
}

func (o ScanOptions) now() time.Time {
	if o.Now == nil {
		return time.Now()
	}
	return o.Now()
}

// Source is the filesystem a scan reads from.
type Source struct {
	// Fs provides directory listings, stat and file contents.
	Fs afero.Fs
	// Resolve turns a path into its absolute, symlink-free form. Nil falls
	// back to cleaning the path.
	Resolve func(p string) (string, error)
	// ReadDir lists a directory. Nil falls back to afero.ReadDir on Fs.
	ReadDir func(ctx context.Context, dir string) ([]fs.FileInfo, error)
	// Name identifies the source in logs, e.g. "local" or "sftp://host".
	Name string
	// Local is true when paths refer to the host filesystem, which
	// enables platform stat calls for access and birth times.
	Local bool
}

// LocalSource returns a Source over the host filesystem.
func LocalSource() Source {
	return Source{
		Fs: afero.NewOsFs(),
		Resolve: func(p string) (string, error) {
			abs, err := filepath.Abs(p)
			if err != nil {
				return "", err
			}
			return filepath.EvalSymlinks(abs)
		},
		Name:  "local",
		Local: true,
	}
}

// Join joins path elements using the separator of the source.
func (s Source) Join(elem ...string) string {
	if s.Local {
		return filepath.Join(elem...)
	}
	return path.Join(elem...)
}

// Base returns the last element of p.
func (s Source) Base(p string) string {
	if s.Local {
		return filepath.Base(p)
	}
	return path.Base(p)
}

// Absolute resolves p, falling back to a cleaned absolute form when the
// resolver fails.
func (s Source) Absolute(p string) (string, error) {
	if s.Resolve != nil {
		resolved, err := s.Resolve(p)
		if err == nil {
			return resolved, nil
		}
		return s.cleanAbs(p), err
	}
	return s.cleanAbs(p), nil
}

func (s Source) cleanAbs(p string) string {
	if s.Local {
		if abs, err := filepath.Abs(p); err == nil {
			return abs
		}
		return filepath.Clean(p)
	}
	return path.Clean(p)
}

// readDir lists dir sorted by name.
func (s Source) readDir(ctx context.Context, dir string) ([]fs.FileInfo, error) {
	if s.ReadDir == nil {
		return afero.ReadDir(s.Fs, dir)
	}
	entries, err := s.ReadDir(ctx, dir)
	if err != nil {
		return nil, err
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })
	return entries, nil
}

// ValidateRoot checks that root exists and is a directory.
func ValidateRoot(src Source, root string) error {
	info, err := src.Fs.Stat(root)
	if err != nil {
		return &InvalidRootError{Path: root, Err: err}
	}
	if !info.IsDir() {
		return &InvalidRootError{Path: root, Err: ErrNotDirectory}
	}
	return nil
}

// Scanner is the interface for running an inventory.
type Scanner interface {
	// Scan walks root and returns the completed report.
	Scan(ctx context.Context, root string, opts ScanOptions) (*model.Report, error)
}

// BFSScanner implements Scanner with a fresh single-use Session per call.
type BFSScanner struct {
	src   Source
	table *model.ExtensionTable
}

// NewBFSScanner creates a scanner reading from src. A nil table selects
// model.DefaultTable.
func NewBFSScanner(src Source, table *model.ExtensionTable) *BFSScanner {
	if table == nil {
		table = model.DefaultTable()
	}
	return &BFSScanner{src: src, table: table}
}

func (s *BFSScanner) Scan(ctx context.Context, root string, opts ScanOptions) (*model.Report, error) {
	return NewSession(s.src, root, s.table, opts).RunContext(ctx)
}
