package scanner

import (
	"context"
	"io/fs"
	"maps"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/sadopc/arqrel/internal/model"
)

// progressInterval throttles progress updates.
const progressInterval = 50 * time.Millisecond

// State is the lifecycle stage of a Session.
type State int32

const (
	StateIdle State = iota
	StateRunning
	StateCompleted
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	default:
		return "completed"
	}
}

// Session is one single-use breadth-first inventory of a directory tree.
// A session moves Idle -> Running -> Completed; once completed its results
// are fixed and further runs fail with *AlreadyCompletedError.
type Session struct {
	src       Source
	root      string
	table     *model.ExtensionTable
	opts      ScanOptions
	logger    *zap.Logger
	extractor *Extractor

	state atomic.Int32

	// Walk state, owned by the goroutine calling Run.
	queue   []string
	files   []string
	visited map[string]struct{}
	cats    map[model.FileCategory]int64
	dirs    int64
	errs    int64
	begin   time.Time
	lastTx  time.Time

	report *model.Report
}

// NewSession prepares a session over root. A nil table selects
// model.DefaultTable.
func NewSession(src Source, root string, table *model.ExtensionTable, opts ScanOptions) *Session {
	if table == nil {
		table = model.DefaultTable()
	}
	logger := opts.logger().With(zap.String("source", src.Name))
	return &Session{
		src:       src,
		root:      root,
		table:     table,
		opts:      opts,
		logger:    logger,
		extractor: NewExtractor(src, logger),
	}
}

// State returns the current lifecycle stage.
func (s *Session) State() State {
	return State(s.state.Load())
}

// Root returns the directory the session scans.
func (s *Session) Root() string {
	return s.root
}

// Run performs the scan. See RunContext.
func (s *Session) Run() (*model.Report, error) {
	return s.RunContext(context.Background())
}

// RunContext walks the tree breadth-first, classifies every regular file,
// then extracts metadata for each file in discovery order.
//
// Only an invalid root, a repeated run or cancellation of ctx fail the
// call. Unreadable directories and files are logged and skipped or
// recorded with sentinel values. A cancelled session returns to Idle.
func (s *Session) RunContext(ctx context.Context) (*model.Report, error) {
	if !s.state.CompareAndSwap(int32(StateIdle), int32(StateRunning)) {
		if s.State() == StateCompleted {
			return nil, &AlreadyCompletedError{Root: s.root}
		}
		return nil, ErrSessionRunning
	}

	if err := ValidateRoot(s.src, s.root); err != nil {
		s.state.Store(int32(StateIdle))
		return nil, err
	}

	report, err := s.run(ctx)
	if err != nil {
		s.reset()
		s.state.Store(int32(StateIdle))
		return nil, err
	}
	s.report = report
	s.state.Store(int32(StateCompleted))
	return report, nil
}

// Summary returns the summary of a completed session, or nil.
func (s *Session) Summary() *model.ScanSummary {
	if s.State() != StateCompleted {
		return nil
	}
	return &s.report.Summary
}

// Records returns the records of a completed session in discovery order.
func (s *Session) Records() []model.FileRecord {
	if s.State() != StateCompleted {
		return nil
	}
	return s.report.Records
}

func (s *Session) reset() {
	s.queue = nil
	s.files = nil
	s.visited = nil
	s.cats = nil
	s.dirs = 0
	s.errs = 0
}

func (s *Session) run(ctx context.Context) (*model.Report, error) {
	baseDir := s.root
	if abs, err := s.src.Absolute(s.root); err == nil {
		baseDir = abs
	}

	s.cats = model.NewCategoryCounts()
	s.visited = map[string]struct{}{baseDir: {}}
	s.begin = s.opts.now().Truncate(time.Microsecond)
	s.logger.Info("Search started",
		zap.String("root", s.root),
		zap.Time("begin", s.begin))

	s.queue = append(s.queue[:0], s.root)
	if err := s.walk(ctx); err != nil {
		return nil, err
	}
	finish := s.opts.now().Truncate(time.Microsecond)
	taken := finish.Sub(s.begin)
	if taken < 0 {
		taken = 0
	}
	s.logger.Info("Search finished",
		zap.Int64("directories", s.dirs),
		zap.Int("files", len(s.files)),
		zap.Duration("taken", taken))

	records, err := s.extract(ctx)
	if err != nil {
		return nil, err
	}

	summary := model.ScanSummary{
		BaseDir:          baseDir,
		TimeBegin:        s.begin,
		TimeFinish:       finish,
		TimeTaken:        taken,
		DirectoriesFound: s.dirs,
		FilesFound:       int64(len(s.files)),
		Categories:       maps.Clone(s.cats),
	}
	s.emit(Progress{Phase: PhaseDone, FilesHashed: int64(len(records)), BytesHashed: totalSize(records)}, true)
	return &model.Report{Summary: summary, Records: records}, nil
}

func (s *Session) walk(ctx context.Context) error {
	for len(s.queue) > 0 {
		if err := ctx.Err(); err != nil {
			return err
		}
		dir := s.queue[0]
		s.queue[0] = ""
		s.queue = s.queue[1:]

		s.trace("Searching directory", zap.String("path", dir))
		s.emit(Progress{Phase: PhaseWalking, CurrentPath: dir}, false)

		entries, err := s.src.readDir(ctx, dir)
		if err != nil {
			s.contain("Directory skipped", &DirectoryReadError{Path: dir, Err: err})
			continue
		}
		for _, info := range entries {
			s.visit(s.src.Join(dir, info.Name()), info)
		}
	}
	return nil
}

// visit handles one directory entry. Entries that are neither directories
// nor regular files are skipped unless symlinks are followed.
func (s *Session) visit(p string, info fs.FileInfo) {
	mode := info.Mode()
	switch {
	case mode.IsDir():
		s.addDir(p)
	case mode.IsRegular():
		s.addFile(p, info.Name())
	case mode&fs.ModeSymlink != 0 && s.opts.FollowSymlinks:
		s.followLink(p, info.Name())
	default:
		s.logger.Debug("Skipping special entry",
			zap.String("path", p),
			zap.Stringer("mode", mode))
	}
}

func (s *Session) addDir(p string) {
	if s.opts.FollowSymlinks {
		key, err := s.src.Absolute(p)
		if err != nil {
			key = p
		}
		if _, seen := s.visited[key]; seen {
			s.logger.Debug("Directory already visited", zap.String("path", p), zap.String("resolved", key))
			return
		}
		s.visited[key] = struct{}{}
	}
	s.queue = append(s.queue, p)
	s.dirs++
	s.trace("Found a directory", zap.String("path", p))
}

func (s *Session) addFile(p, name string) {
	cat := s.table.ClassifyFile(name)
	s.files = append(s.files, p)
	s.cats[cat]++
	s.trace("Found a file",
		zap.String("path", p),
		zap.String("category", model.CategoryName(cat)))
}

func (s *Session) followLink(p, name string) {
	target, err := s.src.Fs.Stat(p)
	if err != nil {
		s.logger.Warn("Broken symlink skipped", zap.String("path", p), zap.Error(err))
		s.errs++
		return
	}
	switch {
	case target.IsDir():
		s.addDir(p)
	case target.Mode().IsRegular():
		s.addFile(p, name)
	default:
		s.logger.Debug("Skipping special symlink target", zap.String("path", p))
	}
}

func (s *Session) extract(ctx context.Context) ([]model.FileRecord, error) {
	records := make([]model.FileRecord, 0, len(s.files))
	var bytes int64
	for i, p := range s.files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rec, errs := s.extractor.extract(p)
		s.errs += int64(errs)
		bytes += int64(rec.SizeBytes)
		records = append(records, rec)
		s.emit(Progress{
			Phase:       PhaseHashing,
			CurrentPath: p,
			FilesHashed: int64(i + 1),
			BytesHashed: bytes,
		}, false)
	}
	return records, nil
}

// trace logs discovery lines, promoted to Info in verbose mode.
func (s *Session) trace(msg string, fields ...zap.Field) {
	if s.opts.Verbose {
		s.logger.Info(msg, fields...)
		return
	}
	s.logger.Debug(msg, fields...)
}

func (s *Session) contain(msg string, err error) {
	s.errs++
	s.logger.Warn(msg, zap.Error(err))
}

// emit fills in the shared counters and sends p without blocking.
// Unforced updates are throttled to progressInterval.
func (s *Session) emit(p Progress, force bool) {
	if s.opts.Progress == nil {
		return
	}
	now := time.Now()
	if !force && now.Sub(s.lastTx) < progressInterval {
		return
	}
	s.lastTx = now
	p.FilesFound = int64(len(s.files))
	p.DirsFound = s.dirs
	p.Errors = s.errs
	p.StartTime = s.begin
	p.Duration = s.opts.now().Sub(s.begin)
	select {
	case s.opts.Progress <- p:
	default:
		// Drop if channel full
	}
}

func totalSize(records []model.FileRecord) int64 {
	var n int64
	for _, r := range records {
		n += int64(r.SizeBytes)
	}
	return n
}
