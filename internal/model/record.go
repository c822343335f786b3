package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// Sentinels stored in FileRecord string fields.
const (
	// NotAvailable marks a value the platform does not expose.
	NotAvailable = "N/A"
	// ErrorValue marks a value that could not be computed.
	ErrorValue = "Error"
)

// SummaryTimeLayout renders scan begin/finish times for display.
const SummaryTimeLayout = "2006-01-02 15:04:05.000000"

// SummaryZonedLayout is the serialized form of scan begin/finish times.
// Documents without the offset are read in the local zone.
const SummaryZonedLayout = SummaryTimeLayout + " -07:00"

// FileRecord holds the metadata computed for one discovered regular file.
type FileRecord struct {
	Name           string `json:"name" yaml:"name"`
	SizeBytes      uint64 `json:"size_bytes" yaml:"size_bytes"`
	SizeFormatted  string `json:"size_formatted" yaml:"size_formatted"`
	Permissions    string `json:"permissions" yaml:"permissions"`
	CreationTime   string `json:"creation_time" yaml:"creation_time"`
	LastAccessTime string `json:"last_access_time" yaml:"last_access_time"`
	LastModifyTime string `json:"last_modify_time" yaml:"last_modify_time"`
	Extension      string `json:"extension" yaml:"extension"`
	ContentHash    string `json:"content_hash" yaml:"content_hash"`
	AbsolutePath   string `json:"absolute_path" yaml:"absolute_path"`
}

// HashFailed reports whether the content hash could not be computed.
func (r FileRecord) HashFailed() bool {
	return r.ContentHash == ErrorValue
}

// ScanSummary aggregates one completed scan.
type ScanSummary struct {
	BaseDir          string
	TimeBegin        time.Time
	TimeFinish       time.Time
	TimeTaken        time.Duration
	DirectoriesFound int64
	FilesFound       int64
	// Categories always holds an entry for every FileCategory.
	Categories map[FileCategory]int64
}

// NewCategoryCounts returns a count map with every category set to zero.
func NewCategoryCounts() map[FileCategory]int64 {
	m := make(map[FileCategory]int64, NumCategories)
	for _, cat := range AllCategories() {
		m[cat] = 0
	}
	return m
}

// CategoryTotal returns the sum of all category counts.
func (s *ScanSummary) CategoryTotal() int64 {
	var total int64
	for _, n := range s.Categories {
		total += n
	}
	return total
}

// summaryDoc is the serialized shape of ScanSummary.
type summaryDoc struct {
	BaseDir          string           `json:"base_dir" yaml:"base_dir"`
	TimeBegin        string           `json:"time_begin" yaml:"time_begin"`
	TimeFinish       string           `json:"time_finish" yaml:"time_finish"`
	TimeTaken        string           `json:"time_taken" yaml:"time_taken"`
	DirectoriesFound int64            `json:"directories_found" yaml:"directories_found"`
	FilesFound       int64            `json:"files_found" yaml:"files_found"`
	ByType           map[string]int64 `json:"by_type" yaml:"by_type"`
}

func (s ScanSummary) toDoc() summaryDoc {
	byType := make(map[string]int64, NumCategories)
	for _, cat := range AllCategories() {
		byType[CategoryKey(cat)] = s.Categories[cat]
	}
	return summaryDoc{
		BaseDir:          s.BaseDir,
		TimeBegin:        s.TimeBegin.Format(SummaryZonedLayout),
		TimeFinish:       s.TimeFinish.Format(SummaryZonedLayout),
		TimeTaken:        s.TimeTaken.String(),
		DirectoriesFound: s.DirectoriesFound,
		FilesFound:       s.FilesFound,
		ByType:           byType,
	}
}

func (s *ScanSummary) fromDoc(d summaryDoc) error {
	begin, err := parseSummaryTime(d.TimeBegin)
	if err != nil {
		return fmt.Errorf("invalid time_begin: %w", err)
	}
	finish, err := parseSummaryTime(d.TimeFinish)
	if err != nil {
		return fmt.Errorf("invalid time_finish: %w", err)
	}
	taken, err := time.ParseDuration(d.TimeTaken)
	if err != nil {
		return fmt.Errorf("invalid time_taken: %w", err)
	}
	cats := NewCategoryCounts()
	for key, n := range d.ByType {
		cat, err := ParseCategoryKey(key)
		if err != nil {
			return err
		}
		cats[cat] = n
	}
	*s = ScanSummary{
		BaseDir:          d.BaseDir,
		TimeBegin:        begin,
		TimeFinish:       finish,
		TimeTaken:        taken,
		DirectoriesFound: d.DirectoriesFound,
		FilesFound:       d.FilesFound,
		Categories:       cats,
	}
	return nil
}

func parseSummaryTime(s string) (time.Time, error) {
	if t, err := time.Parse(SummaryZonedLayout, s); err == nil {
		return t, nil
	}
	return time.ParseInLocation(SummaryTimeLayout, s, time.Local)
}

// MarshalJSON implements json.Marshaler.
func (s ScanSummary) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.toDoc())
}

// UnmarshalJSON implements json.Unmarshaler.
func (s *ScanSummary) UnmarshalJSON(data []byte) error {
	var d summaryDoc
	if err := json.Unmarshal(data, &d); err != nil {
		return err
	}
	return s.fromDoc(d)
}

// MarshalYAML implements yaml.Marshaler.
func (s ScanSummary) MarshalYAML() (any, error) {
	return s.toDoc(), nil
}

// UnmarshalYAML implements the yaml.v3 unmarshaler through a decode callback.
func (s *ScanSummary) UnmarshalYAML(unmarshal func(any) error) error {
	var d summaryDoc
	if err := unmarshal(&d); err != nil {
		return err
	}
	return s.fromDoc(d)
}

// Report is what a completed scan hands to its caller.
type Report struct {
	Summary ScanSummary  `json:"summary" yaml:"summary"`
	Records []FileRecord `json:"individual_results,omitempty" yaml:"individual_results,omitempty"`
}
