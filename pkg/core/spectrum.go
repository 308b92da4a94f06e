// Package core provides the MS2 spectrum model, chemistry constants and
// adduct conversions used across LipidKey.
package core

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// Spectrum represents a single MS2 scan as read from a scan source.
type Spectrum struct {
	// Required fields
	PrecursorMZ float64 // Precursor m/z
	Peaks       []Peak  // Fragment peaks

	// Optional metadata
	Title              string
	ScanID             int
	Charge             int     // 0 when the source does not state it
	PrecursorIntensity float64 // 0 when unknown
	RetentionTime      float64 // minutes; NaN when unknown

	// Internal tracking
	SourceFile string
	Offset     int64 // byte offset of the first peak line in SourceFile
}

// Peak represents a single m/z, intensity pair.
type Peak struct {
	MZ        float64
	Intensity float64
}

// ValidationError represents an error found during spectrum validation.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error in %s: %s", e.Field, e.Message)
}

// Validate checks that a spectrum meets all requirements for processing.
func (s *Spectrum) Validate() error {
	var errs []string

	if s.PrecursorMZ <= 0 || math.IsNaN(s.PrecursorMZ) {
		errs = append(errs, "precursor m/z must be positive")
	}
	if len(s.Peaks) == 0 {
		errs = append(errs, "at least one peak is required")
	}

	maxIntensity := 0.0
	for i, peak := range s.Peaks {
		if math.IsNaN(peak.MZ) || math.IsInf(peak.MZ, 0) {
			errs = append(errs, fmt.Sprintf("peak %d has invalid m/z", i))
		}
		if math.IsNaN(peak.Intensity) || math.IsInf(peak.Intensity, 0) {
			errs = append(errs, fmt.Sprintf("peak %d has invalid intensity", i))
		}
		if peak.MZ <= 0 {
			errs = append(errs, fmt.Sprintf("peak %d m/z must be positive", i))
		}
		if peak.Intensity < 0 {
			errs = append(errs, fmt.Sprintf("peak %d intensity must be non-negative", i))
		}
		maxIntensity = math.Max(maxIntensity, peak.Intensity)
	}
	if len(s.Peaks) > 0 && maxIntensity == 0 {
		errs = append(errs, "base peak intensity must be positive")
	}

	if len(errs) > 0 {
		return &ValidationError{
			Field:   "Spectrum",
			Message: strings.Join(errs, "; "),
		}
	}

	return nil
}

// ArePeaksSorted checks if peaks are sorted by m/z in ascending order.
func (s *Spectrum) ArePeaksSorted() bool {
	for i := 1; i < len(s.Peaks); i++ {
		if s.Peaks[i].MZ < s.Peaks[i-1].MZ {
			return false
		}
	}
	return true
}

// SortPeaks sorts peaks by m/z in ascending order.
func (s *Spectrum) SortPeaks() {
	sort.SliceStable(s.Peaks, func(i, j int) bool {
		return s.Peaks[i].MZ < s.Peaks[j].MZ
	})
}

// Arrays returns the peaks as parallel m/z and intensity slices.
func (s *Spectrum) Arrays() (mzs, intensities []float64) {
	mzs = make([]float64, len(s.Peaks))
	intensities = make([]float64, len(s.Peaks))
	for i, p := range s.Peaks {
		mzs[i] = p.MZ
		intensities[i] = p.Intensity
	}
	return mzs, intensities
}

// BasePeak returns the most intense peak; ok is false for an empty spectrum.
func (s *Spectrum) BasePeak() (Peak, bool) {
	if len(s.Peaks) == 0 {
		return Peak{}, false
	}
	best := s.Peaks[0]
	for _, p := range s.Peaks[1:] {
		if p.Intensity > best.Intensity {
			best = p
		}
	}
	return best, true
}

// Name returns the spectrum name in format "Title/ScanID"
func (s *Spectrum) Name() string {
	if s.Title == "" {
		return fmt.Sprintf("scan=%d", s.ScanID)
	}
	return fmt.Sprintf("%s/%d", s.Title, s.ScanID)
}
