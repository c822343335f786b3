package ops

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sadopc/arqrel/internal/model"
)

// Layout selects how a report is laid out on disk.
type Layout string

const (
	// LayoutSingle writes one arq-rel_YYYYMMDD_HHMMSS document holding the
	// summary and, unless summary-only, the individual results.
	LayoutSingle Layout = "single"
	// LayoutSplit writes a YYYY-MM-DD_HH-MM-SS directory holding
	// summary and attributes documents.
	LayoutSplit Layout = "split"
)

// Format selects the document encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// Ext returns the file extension for the format, including the dot.
func (f Format) Ext() string {
	if f == FormatYAML {
		return ".yaml"
	}
	return ".json"
}

// ParseLayout validates a layout name.
func ParseLayout(s string) (Layout, error) {
	switch Layout(s) {
	case LayoutSingle, LayoutSplit:
		return Layout(s), nil
	}
	return "", fmt.Errorf("unknown report layout %q (want single or split)", s)
}

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	switch s {
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	}
	return "", fmt.Errorf("unknown report format %q (want json or yaml)", s)
}

const (
	singleNameLayout = "20060102_150405"
	splitDirLayout   = "2006-01-02_15-04-05"
	summaryBase      = "summary"
	attributesBase   = "attributes"
	lockName         = ".arqrel.lock"
	reportFileMode   = 0o644
)

// ExportOptions configures report persistence.
type ExportOptions struct {
	// Dir is the output directory. "-" writes a single document to stdout.
	Dir string
	// Layout selects single or split output. Empty means LayoutSingle.
	Layout Layout
	// Format selects JSON or YAML. Empty means FormatJSON.
	Format Format
	// SummaryOnly drops the per-file records.
	SummaryOnly bool
	// Now stamps the output names. Nil means time.Now.
	Now func() time.Time
}

// reportDoc is the single-layout document. A nil Records pointer omits
// the individual_results key.
type reportDoc struct {
	Summary model.ScanSummary   `json:"summary" yaml:"summary"`
	Records *[]model.FileRecord `json:"individual_results,omitempty" yaml:"individual_results,omitempty"`
}

// errWriter wraps an io.Writer and captures the first write error.
// Subsequent writes after an error are no-ops, avoiding verbose per-call checks.
type errWriter struct {
	w   io.Writer
	err error
}

func (ew *errWriter) Write(data []byte) (int, error) {
	if ew.err != nil {
		return 0, ew.err
	}
	n, err := ew.w.Write(data)
	if err != nil {
		ew.err = err
	}
	return n, err
}

// ExportReport persists report according to opts and returns the paths
// written. Files are written atomically while holding an advisory lock on
// the output directory.
func ExportReport(report *model.Report, opts ExportOptions) ([]string, error) {
	if opts.Layout == "" {
		opts.Layout = LayoutSingle
	}
	if opts.Format == "" {
		opts.Format = FormatJSON
	}
	if opts.Dir == "" {
		opts.Dir = "."
	}
	now := time.Now
	if opts.Now != nil {
		now = opts.Now
	}
	stamp := now()

	if opts.Dir == "-" {
		return nil, encodeTo(os.Stdout, opts.Format, singleDoc(report, opts.SummaryOnly))
	}

	if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("cannot create output directory: %w", err)
	}
	lock := NewDirLock(filepath.Join(opts.Dir, lockName))
	if err := lock.Lock(); err != nil {
		return nil, err
	}
	defer lock.Unlock()

	switch opts.Layout {
	case LayoutSplit:
		dir := filepath.Join(opts.Dir, stamp.Format(splitDirLayout))
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("cannot create report directory: %w", err)
		}
		summaryPath := filepath.Join(dir, summaryBase+opts.Format.Ext())
		if err := writeAtomic(summaryPath, opts.Format, report.Summary); err != nil {
			return nil, err
		}
		written := []string{summaryPath}
		if !opts.SummaryOnly {
			attrPath := filepath.Join(dir, attributesBase+opts.Format.Ext())
			if err := writeAtomic(attrPath, opts.Format, records(report)); err != nil {
				return written, err
			}
			written = append(written, attrPath)
		}
		return written, nil
	case LayoutSingle:
		path := filepath.Join(opts.Dir, "arq-rel_"+stamp.Format(singleNameLayout)+opts.Format.Ext())
		if err := writeAtomic(path, opts.Format, singleDoc(report, opts.SummaryOnly)); err != nil {
			return nil, err
		}
		return []string{path}, nil
	}
	return nil, fmt.Errorf("unknown report layout %q", opts.Layout)
}

func records(report *model.Report) []model.FileRecord {
	if report.Records == nil {
		return []model.FileRecord{}
	}
	return report.Records
}

func singleDoc(report *model.Report, summaryOnly bool) reportDoc {
	doc := reportDoc{Summary: report.Summary}
	if !summaryOnly {
		recs := records(report)
		doc.Records = &recs
	}
	return doc
}

// writeAtomic writes to a temp file first and atomically renames on
// success, so a partial file is never left behind on error.
func writeAtomic(path string, format Format, v any) (retErr error) {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".arqrel-export-*.tmp")
	if err != nil {
		return fmt.Errorf("cannot create report file: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() {
		if retErr != nil {
			tmp.Close()
			os.Remove(tmpPath)
		}
	}()

	if err := tmp.Chmod(reportFileMode); err != nil {
		return fmt.Errorf("cannot set report file mode: %w", err)
	}
	if err := encodeTo(tmp, format, v); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmpPath, path); err != nil {
		// On Windows, Rename cannot replace an existing destination.
		if runtime.GOOS != "windows" {
			return err
		}
		if rmErr := os.Remove(path); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
			return fmt.Errorf("cannot replace report file %s: %w", path, err)
		}
		if err := os.Rename(tmpPath, path); err != nil {
			return err
		}
	}
	return nil
}

func encodeTo(out io.Writer, format Format, v any) error {
	bw := bufio.NewWriterSize(out, 64*1024)
	ew := &errWriter{w: bw}

	switch format {
	case FormatYAML:
		enc := yaml.NewEncoder(ew)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		if err := enc.Close(); err != nil {
			return err
		}
	default:
		enc := json.NewEncoder(ew)
		enc.SetIndent("", "    ")
		if err := enc.Encode(v); err != nil {
			return err
		}
	}
	if ew.err != nil {
		return ew.err
	}
	return bw.Flush()
}
