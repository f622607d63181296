// Package types provides the shared data types for paneo copy jobs.
// It includes the progress snapshot reported by the copy engine, the
// result counters of a finished copy, and helpers for parsing and
// formatting byte sizes.
package types

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

// Size constants for binary (IEC) units.
const (
	KiB int64 = 1024
	MiB int64 = 1024 * KiB
	GiB int64 = 1024 * MiB
	TiB int64 = 1024 * GiB
)

// DefaultPollInterval is how often clients poll a running job.
const DefaultPollInterval = 300 * time.Millisecond

// Progress is a snapshot of a running copy.
// The engine replaces it wholesale on every update; receivers get a value copy.
type Progress struct {
	// TotalFiles and TotalBytes come from the pre-pass tally and are never revised.
	TotalFiles int64 `json:"totalFiles"`
	TotalBytes int64 `json:"totalBytes"`

	// ProcessedFiles counts files that were either copied or skipped.
	ProcessedFiles int64 `json:"processedFiles"`
	CopiedFiles    int64 `json:"copiedFiles"`
	Skipped        int64 `json:"skipped"`

	// ProcessedBytes advances per streamed chunk and by whole sizes on skip.
	ProcessedBytes int64 `json:"processedBytes"`

	// CurrentFile is relative to the source of the copy.
	CurrentFile           string `json:"currentFile"`
	CurrentFileBytes      int64  `json:"currentFileBytes"`
	CurrentFileTotalBytes int64  `json:"currentFileTotalBytes"`
}

// Percent returns the file-based completion percentage rounded and clamped
// to [0,100]. ok is false when the total is unknown.
func (p Progress) Percent() (pct int, ok bool) {
	if p.TotalFiles <= 0 {
		return 0, false
	}
	v := math.Round(float64(p.ProcessedFiles) / float64(p.TotalFiles) * 100)
	switch {
	case v < 0:
		v = 0
	case v > 100:
		v = 100
	}
	return int(v), true
}

// Ratio returns the completion as a fraction in [0,1] for progress bars.
func (p Progress) Ratio() float64 {
	pct, ok := p.Percent()
	if !ok {
		return 0
	}
	return float64(pct) / 100
}

// FileRatio returns the completion of the file currently streaming.
func (p Progress) FileRatio() float64 {
	if p.CurrentFileTotalBytes <= 0 {
		return 0
	}
	r := float64(p.CurrentFileBytes) / float64(p.CurrentFileTotalBytes)
	return math.Min(math.Max(r, 0), 1)
}

// Result holds the counters of a finished copy.
type Result struct {
	CopiedFiles       int64 `json:"copiedFiles"`
	CopiedDirectories int64 `json:"copiedDirectories"`
	Skipped           int64 `json:"skipped"`
}

// Add returns the element-wise sum of r and o.
func (r Result) Add(o Result) Result {
	return Result{
		CopiedFiles:       r.CopiedFiles + o.CopiedFiles,
		CopiedDirectories: r.CopiedDirectories + o.CopiedDirectories,
		Skipped:           r.Skipped + o.Skipped,
	}
}

// sizePattern matches size strings like "100M", "2G", "500K", "1.5GB", etc.
var sizePattern = regexp.MustCompile(`(?i)^\s*([0-9]+(?:\.[0-9]+)?)\s*([KMGT]?(?:i?B)?)\s*$`)

// ErrInvalidSize indicates that the size string could not be parsed.
var ErrInvalidSize = errors.New("invalid size format")

// ErrNegativeSize indicates that a negative size value was provided.
var ErrNegativeSize = errors.New("size cannot be negative")

// ParseSize parses a human-readable size string and returns the size in bytes.
// It accepts plain bytes ("1024") and K/M/G/T suffixes with optional "B" or
// "iB" ("512B", "100K", "50MB", "2GiB"). All units are binary.
// Decimal values are truncated to the nearest byte.
func ParseSize(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("%w: empty string", ErrInvalidSize)
	}

	if strings.HasPrefix(s, "-") {
		return 0, ErrNegativeSize
	}

	matches := sizePattern.FindStringSubmatch(s)
	if matches == nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidSize, s)
	}

	value, err := strconv.ParseFloat(matches[1], 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidSize, s)
	}

	suffix := strings.ToUpper(matches[2])
	suffix = strings.TrimSuffix(suffix, "IB")
	suffix = strings.TrimSuffix(suffix, "B")

	var multiplier int64
	switch suffix {
	case "":
		multiplier = 1
	case "K":
		multiplier = KiB
	case "M":
		multiplier = MiB
	case "G":
		multiplier = GiB
	case "T":
		multiplier = TiB
	default:
		return 0, fmt.Errorf("%w: unknown suffix %q", ErrInvalidSize, suffix)
	}

	return int64(value * float64(multiplier)), nil
}

// FormatSize converts a size in bytes to a human-readable string using
// binary (IEC) units, e.g. FormatSize(1024) returns "1.0 KiB".
func FormatSize(bytes int64) string {
	if bytes < 0 {
		bytes = 0
	}
	return humanize.IBytes(uint64(bytes))
}
