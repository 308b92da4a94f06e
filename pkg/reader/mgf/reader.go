// Package mgf reads MS2 scans from Mascot generic format (MGF) files,
// either streamed one after the other or through an offset index for
// precursor lookups.
package mgf

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"math"
	"strconv"
	"strings"

	"github.com/ChrisMcGann/LipidKey/pkg/core"
)

const (
	beginIons = "BEGIN IONS"
	endIons   = "END IONS"
)

// lineReader reads lines keeping track of their byte offsets.
type lineReader struct {
	br     *bufio.Reader
	offset int64
	num    int
}

func newLineReader(r io.Reader) *lineReader {
	return &lineReader{br: bufio.NewReaderSize(r, 64*1024)}
}

// next returns the next line without its line ending and the offset of
// its first byte.
func (l *lineReader) next() (string, int64, error) {
	s, err := l.br.ReadString('\n')
	if len(s) == 0 && err != nil {
		return "", 0, err
	}
	start := l.offset
	l.offset += int64(len(s))
	l.num++
	return strings.TrimRight(s, "\r\n"), start, nil
}

func isPeakLine(line string) bool {
	return line != "" && line[0] >= '0' && line[0] <= '9'
}

// Reader provides streaming access to MGF files.
type Reader struct {
	lines       *lineReader
	source      string
	currentSpec *core.Spectrum
	err         error

	// Logger receives warnings about malformed lines; nil uses
	// slog.Default().
	Logger *slog.Logger
}

// NewReader creates a reader; source is recorded as SourceFile of every
// spectrum.
func NewReader(r io.Reader, source string) *Reader {
	return &Reader{lines: newLineReader(r), source: source}
}

func (r *Reader) logger() *slog.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return slog.Default()
}

// Next advances to the next spectrum. Returns false when no more spectra or error.
func (r *Reader) Next() bool {
	r.currentSpec = nil

	spec, err := r.readSpectrum()
	if err != nil {
		if err != io.EOF {
			r.err = err
		}
		return false
	}

	r.currentSpec = spec
	return true
}

// Spectrum returns the current spectrum
func (r *Reader) Spectrum() *core.Spectrum {
	return r.currentSpec
}

// Err returns any error encountered during reading
func (r *Reader) Err() error {
	return r.err
}

// readSpectrum reads one BEGIN IONS ... END IONS block. Peaks with zero
// intensity are dropped.
func (r *Reader) readSpectrum() (*core.Spectrum, error) {
	var spec *core.Spectrum

	for {
		line, offset, err := r.lines.next()
		if err == io.EOF {
			// tolerate a missing END IONS at the end of the file
			if spec != nil {
				return spec, nil
			}
			return nil, io.EOF
		}
		if err != nil {
			return nil, err
		}
		line = strings.TrimSpace(line)

		switch {
		case line == "":
			continue
		case line == beginIons:
			spec = newSpectrum(r.source)
		case line == endIons:
			if spec != nil {
				return spec, nil
			}
		case spec == nil:
			// text outside of a block
		case isPeakLine(line):
			if spec.Offset == 0 {
				spec.Offset = offset
			}
			peak, ok, err := parsePeak(line)
			if err != nil {
				r.logger().Warn("skipping malformed peak", "line", r.lines.num, "error", err)
				continue
			}
			if ok {
				spec.Peaks = append(spec.Peaks, peak)
			}
		default:
			if err := parseHeader(spec, line); err != nil {
				r.logger().Warn("skipping malformed header", "line", r.lines.num, "error", err)
			}
		}
	}
}

func newSpectrum(source string) *core.Spectrum {
	return &core.Spectrum{RetentionTime: math.NaN(), SourceFile: source}
}

// parseHeader applies one KEY=value line to spec. Unknown keys are ignored.
func parseHeader(spec *core.Spectrum, line string) error {
	key, value, ok := strings.Cut(line, "=")
	if !ok {
		return fmt.Errorf("expected KEY=value, got '%s'", line)
	}
	value = strings.TrimSpace(value)

	switch strings.ToUpper(strings.TrimSpace(key)) {
	case "TITLE":
		spec.Title = value
		// titles written by msconvert end in scan=N
		if id, ok := trailingNumber(value); ok {
			spec.ScanID = id
		}
	case "SCANS":
		id, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid SCANS: %w", err)
		}
		spec.ScanID = id
	case "PEPMASS":
		fields := strings.Fields(value)
		if len(fields) == 0 {
			return fmt.Errorf("empty PEPMASS")
		}
		mz, err := strconv.ParseFloat(fields[0], 64)
		if err != nil {
			return fmt.Errorf("invalid PEPMASS: %w", err)
		}
		spec.PrecursorMZ = mz
		if len(fields) > 1 {
			intensity, err := strconv.ParseFloat(fields[1], 64)
			if err != nil {
				return fmt.Errorf("invalid PEPMASS intensity: %w", err)
			}
			spec.PrecursorIntensity = intensity
		}
	case "RTINSECONDS":
		rt, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid RTINSECONDS: %w", err)
		}
		spec.RetentionTime = rt / 60
	case "RTINMINUTES":
		rt, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid RTINMINUTES: %w", err)
		}
		spec.RetentionTime = rt
	case "CHARGE":
		charge, err := parseCharge(value)
		if err != nil {
			return err
		}
		spec.Charge = charge
	}
	return nil
}

// trailingNumber parses the integer after the last "=" of s.
func trailingNumber(s string) (int, bool) {
	i := strings.LastIndex(s, "=")
	if i < 0 {
		return 0, false
	}
	n, err := strconv.Atoi(strings.TrimRight(s[i+1:], `" `))
	return n, err == nil
}

// parseCharge reads "1+", "2-" or "1" as an absolute charge.
func parseCharge(s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimRight(strings.TrimSpace(s), "+-"))
	if err != nil {
		return 0, fmt.Errorf("invalid CHARGE '%s'", s)
	}
	if n < 0 {
		n = -n
	}
	return n, nil
}

// parsePeak parses "mz intensity [...]". ok is false for lines to skip:
// a single column or a non-positive intensity.
func parsePeak(line string) (core.Peak, bool, error) {
	fields := strings.Fields(line)
	if len(fields) < 2 {
		return core.Peak{}, false, nil
	}

	mz, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return core.Peak{}, false, fmt.Errorf("invalid m/z value: %w", err)
	}

	intensity, err := strconv.ParseFloat(fields[1], 64)
	if err != nil {
		return core.Peak{}, false, fmt.Errorf("invalid intensity value: %w", err)
	}

	return core.Peak{MZ: mz, Intensity: intensity}, intensity > 0, nil
}
