// Package filter provides peak filtering applied to MS2 spectra before
// they are annotated.
package filter

import (
	"fmt"
	"sort"

	"github.com/ChrisMcGann/LipidKey/pkg/core"
)

// Config holds filtering configuration. The zero value only drops peaks
// without intensity.
type Config struct {
	TopN            int     // Keep only top N most intense peaks (0 = no limit)
	IntensityCutoff float64 // Keep only peaks above this % of base peak (0 = no cutoff)
	MinMZ           float64 // Lowest m/z kept (0 = no limit)
	MaxMZ           float64 // Highest m/z kept (0 = no limit)
}

// Validate checks the configured limits.
func (c *Config) Validate() error {
	if c.TopN < 0 {
		return &core.ValidationError{Field: "TopN", Message: "must be non-negative"}
	}
	if c.IntensityCutoff < 0 || c.IntensityCutoff >= 100 {
		return &core.ValidationError{Field: "IntensityCutoff", Message: "must be in [0, 100)"}
	}
	if c.MinMZ < 0 || c.MaxMZ < 0 {
		return &core.ValidationError{Field: "MZ window", Message: "limits must be non-negative"}
	}
	if c.MaxMZ > 0 && c.MinMZ > c.MaxMZ {
		return &core.ValidationError{
			Field:   "MZ window",
			Message: fmt.Sprintf("min %g above max %g", c.MinMZ, c.MaxMZ),
		}
	}
	return nil
}

// Apply applies all configured filters to a spectrum and leaves its
// peaks sorted by m/z.
func (c *Config) Apply(spec *core.Spectrum) error {
	if err := c.Validate(); err != nil {
		return err
	}

	RemoveZeroIntensityPeaks(spec)

	if c.MinMZ > 0 || c.MaxMZ > 0 {
		c.filterByMZ(spec)
	}

	// Apply intensity filters
	if c.IntensityCutoff > 0 {
		c.filterByIntensity(spec)
	}

	// Apply top-N filter
	if c.TopN > 0 {
		c.filterTopN(spec)
	}

	// Ensure peaks are sorted after all filtering
	spec.SortPeaks()

	return nil
}

// filterByMZ keeps peaks inside [MinMZ, MaxMZ]
func (c *Config) filterByMZ(spec *core.Spectrum) {
	var filtered []core.Peak
	for _, peak := range spec.Peaks {
		if peak.MZ < c.MinMZ {
			continue
		}
		if c.MaxMZ > 0 && peak.MZ > c.MaxMZ {
			continue
		}
		filtered = append(filtered, peak)
	}
	spec.Peaks = filtered
}

// filterByIntensity removes peaks below the intensity cutoff percentage
func (c *Config) filterByIntensity(spec *core.Spectrum) {
	base, ok := spec.BasePeak()
	if !ok {
		return
	}

	threshold := (c.IntensityCutoff / 100.0) * base.Intensity

	var filtered []core.Peak
	for _, peak := range spec.Peaks {
		if peak.Intensity >= threshold {
			filtered = append(filtered, peak)
		}
	}

	spec.Peaks = filtered
}

// filterTopN keeps only the N most intense peaks
func (c *Config) filterTopN(spec *core.Spectrum) {
	if len(spec.Peaks) <= c.TopN {
		return
	}

	peaks := make([]core.Peak, len(spec.Peaks))
	copy(peaks, spec.Peaks)

	// stable so that ties keep their m/z order
	sort.SliceStable(peaks, func(i, j int) bool {
		return peaks[i].Intensity > peaks[j].Intensity
	})

	spec.Peaks = peaks[:c.TopN]
}

// RemoveZeroIntensityPeaks removes peaks with zero or negative intensity
func RemoveZeroIntensityPeaks(spec *core.Spectrum) {
	var filtered []core.Peak
	for _, peak := range spec.Peaks {
		if peak.Intensity > 0 {
			filtered = append(filtered, peak)
		}
	}
	spec.Peaks = filtered
}
