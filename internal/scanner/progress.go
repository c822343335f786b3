package scanner

import "time"

// Phase identifies the pass a scan is in.
type Phase int

const (
	// PhaseWalking is the breadth-first directory walk.
	PhaseWalking Phase = iota
	// PhaseHashing is the per-file metadata pass.
	PhaseHashing
	// PhaseDone is sent once after the summary is assembled.
	PhaseDone
)

func (p Phase) String() string {
	switch p {
	case PhaseWalking:
		return "walking"
	case PhaseHashing:
		return "hashing"
	default:
		return "done"
	}
}

// Progress reports scanning progress.
type Progress struct {
	// Phase is the current pass.
	Phase Phase
	// CurrentPath is the directory being listed or the file being hashed.
	CurrentPath string
	// FilesFound is the total regular files discovered so far.
	FilesFound int64
	// DirsFound is the total directories discovered so far.
	DirsFound int64
	// FilesHashed is the number of records extracted so far.
	FilesHashed int64
	// BytesHashed is the total size of extracted records.
	BytesHashed int64
	// Errors is the count of contained errors encountered.
	Errors int64
	// StartTime is when the scan began.
	StartTime time.Time
	// Duration is elapsed time.
	Duration time.Duration
}

// Done reports whether this is the final update.
func (p Progress) Done() bool {
	return p.Phase == PhaseDone
}

// ItemsPerSecond returns the discovery rate.
func (p Progress) ItemsPerSecond() float64 {
	if p.Duration.Seconds() == 0 {
		return 0
	}
	return float64(p.FilesFound+p.DirsFound) / p.Duration.Seconds()
}

// HashedFraction returns the share of discovered files already extracted.
func (p Progress) HashedFraction() float64 {
	if p.FilesFound == 0 {
		return 0
	}
	return float64(p.FilesHashed) / float64(p.FilesFound)
}
