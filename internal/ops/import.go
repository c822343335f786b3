package ops

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/sadopc/arqrel/internal/model"
)

// ReadReport loads a report written by ExportReport. path may be a single
// layout document, a split layout directory, or a split summary file.
func ReadReport(path string) (*model.Report, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("cannot open report: %w", err)
	}
	if info.IsDir() {
		return readSplit(path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot open report: %w", err)
	}
	format := formatOf(path)

	var doc struct {
		Summary *model.ScanSummary `json:"summary" yaml:"summary"`
		Records []model.FileRecord `json:"individual_results" yaml:"individual_results"`
	}
	if err := decode(data, format, &doc); err != nil {
		return nil, fmt.Errorf("invalid report %s: %w", path, err)
	}
	if doc.Summary != nil {
		return &model.Report{Summary: *doc.Summary, Records: doc.Records}, nil
	}

	// A bare summary document from the split layout.
	var summary model.ScanSummary
	if err := decode(data, format, &summary); err != nil {
		return nil, fmt.Errorf("invalid report %s: %w", path, err)
	}
	return &model.Report{Summary: summary}, nil
}

func readSplit(dir string) (*model.Report, error) {
	summaryPath, format, err := findDoc(dir, summaryBase)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(summaryPath)
	if err != nil {
		return nil, fmt.Errorf("cannot open report: %w", err)
	}
	report := &model.Report{}
	if err := decode(data, format, &report.Summary); err != nil {
		return nil, fmt.Errorf("invalid summary %s: %w", summaryPath, err)
	}

	attrPath, format, err := findDoc(dir, attributesBase)
	if errors.Is(err, os.ErrNotExist) {
		// Summary-only run.
		return report, nil
	}
	if err != nil {
		return nil, err
	}
	data, err = os.ReadFile(attrPath)
	if err != nil {
		return nil, fmt.Errorf("cannot open report: %w", err)
	}
	if err := decode(data, format, &report.Records); err != nil {
		return nil, fmt.Errorf("invalid attributes %s: %w", attrPath, err)
	}
	return report, nil
}

// findDoc locates base.json or base.yaml inside dir.
func findDoc(dir, base string) (string, Format, error) {
	for _, f := range []Format{FormatJSON, FormatYAML} {
		p := filepath.Join(dir, base+f.Ext())
		if _, err := os.Stat(p); err == nil {
			return p, f, nil
		}
	}
	return "", "", fmt.Errorf("no %s document in %s: %w", base, dir, os.ErrNotExist)
}

func formatOf(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	}
	return FormatJSON
}

func decode(data []byte, format Format, v any) error {
	if format == FormatYAML {
		return yaml.Unmarshal(data, v)
	}
	return json.Unmarshal(data, v)
}
