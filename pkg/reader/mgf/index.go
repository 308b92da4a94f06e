package mgf

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"slices"
	"sort"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/ChrisMcGann/LipidKey/pkg/core"
	"github.com/ChrisMcGann/LipidKey/pkg/lookup"
)

var ErrScanNotFound = errors.New("scan not found")

// Defaults of Options.
const (
	DefaultTolerance   = 10.0 // ppm
	DefaultRTTolerance = 0.5  // minutes
	DefaultCacheSize   = 256
)

// Options configure an Index.
type Options struct {
	// Charge indexes only scans with this precursor charge; 0 indexes
	// every scan.
	Charge int
	// Tolerance is the precursor match tolerance in ppm.
	Tolerance float64
	// Drift divides the looked up m/z to undo a calibration drift.
	Drift float64
	// RTTolerance is the largest accepted |delta RT| in minutes.
	RTTolerance float64
	IgnoreRT    bool
	// CacheSize is the number of parsed spectra kept in memory.
	CacheSize int
	Logger    *slog.Logger
}

func (o *Options) setDefaults() {
	if o.Tolerance <= 0 {
		o.Tolerance = DefaultTolerance
	}
	if o.Drift <= 0 {
		o.Drift = 1
	}
	if o.RTTolerance <= 0 {
		o.RTTolerance = DefaultRTTolerance
	}
	if o.CacheSize <= 0 {
		o.CacheSize = DefaultCacheSize
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
}

// Entry is one indexed scan.
type Entry struct {
	PrecursorMZ        float64
	PrecursorIntensity float64
	RT                 float64 // minutes; NaN when unknown
	ScanID             int
	Charge             int
	Offset             int64 // first peak line
}

// Match is a scan found by Lookup.
type Match struct {
	Index   int
	ScanID  int
	RT      float64
	DeltaRT float64 // scan RT minus the looked up RT; NaN when either is unknown
}

// Index holds the precursors and peak offsets of the scans in one MGF
// file, sorted by precursor m/z. Spectra are read on demand with ReadAt,
// so an Index is safe for concurrent use.
type Index struct {
	name    string
	r       io.ReaderAt
	size    int64
	closer  io.Closer
	opts    Options
	entries []Entry
	masses  []float64
	byScan  map[int]int
	cache   *lru.Cache[int, *core.Spectrum]
}

// Open indexes the MGF file at path. The file stays open until Close.
func Open(path string, opts Options) (*Index, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open MGF file: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to stat MGF file: %w", err)
	}
	x, err := NewIndex(f, info.Size(), path, opts)
	if err != nil {
		f.Close()
		return nil, err
	}
	x.closer = f
	return x, nil
}

// NewIndex indexes size bytes of r. name labels the source.
func NewIndex(r io.ReaderAt, size int64, name string, opts Options) (*Index, error) {
	opts.setDefaults()
	cache, err := lru.New[int, *core.Spectrum](opts.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create spectrum cache: %w", err)
	}
	x := &Index{
		name:  name,
		r:     r,
		size:  size,
		opts:  opts,
		cache: cache,
	}
	if err := x.build(); err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	opts.Logger.Debug("MGF file indexed", "file", name, "scans", len(x.entries))
	return x, nil
}

// build records, for every block with an accepted charge, the header
// values seen so far and the offset of the first peak line.
func (x *Index) build() error {
	lines := newLineReader(io.NewSectionReader(x.r, 0, x.size))
	var (
		cur     *core.Spectrum
		capture bool
	)
	for {
		line, offset, err := lines.next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
		line = strings.TrimSpace(line)

		switch {
		case line == "":
		case line == beginIons:
			cur, capture = newSpectrum(x.name), false
		case line == endIons:
			cur, capture = nil, false
		case cur == nil:
		case isPeakLine(line):
			if capture {
				x.entries = append(x.entries, Entry{
					PrecursorMZ:        cur.PrecursorMZ,
					PrecursorIntensity: cur.PrecursorIntensity,
					RT:                 cur.RetentionTime,
					ScanID:             cur.ScanID,
					Charge:             cur.Charge,
					Offset:             offset,
				})
				capture = false
			}
		default:
			if err := parseHeader(cur, line); err != nil {
				x.opts.Logger.Warn("skipping malformed header", "file", x.name, "line", lines.num, "error", err)
				continue
			}
			key, _, _ := strings.Cut(line, "=")
			switch strings.ToUpper(strings.TrimSpace(key)) {
			case "PEPMASS":
				if x.opts.Charge == 0 {
					capture = true
				}
			case "CHARGE":
				if x.opts.Charge != 0 && cur.Charge == x.opts.Charge {
					capture = true
				}
			}
		}
	}

	sort.SliceStable(x.entries, func(i, j int) bool {
		return x.entries[i].PrecursorMZ < x.entries[j].PrecursorMZ
	})
	x.masses = make([]float64, len(x.entries))
	x.byScan = make(map[int]int, len(x.entries))
	for i, e := range x.entries {
		x.masses[i] = e.PrecursorMZ
		x.byScan[e.ScanID] = i
	}
	return nil
}

// Close closes the underlying file of an Index made by Open.
func (x *Index) Close() error {
	if x.closer != nil {
		return x.closer.Close()
	}
	return nil
}

// Name returns the source label.
func (x *Index) Name() string {
	return x.name
}

// Len returns the number of indexed scans.
func (x *Index) Len() int {
	return len(x.entries)
}

// Entry returns the i-th scan in precursor order.
func (x *Index) Entry(i int) Entry {
	return x.entries[i]
}

// Lookup returns the scans whose precursor matches mz after drift
// correction. Unless RT checking is off, scans farther than RTTolerance
// from rt are dropped; a NaN rt or scan RT always passes.
func (x *Index) Lookup(mz, rt float64) []Match {
	var out []Match
	for _, i := range lookup.FindAll(x.masses, mz/x.opts.Drift, x.opts.Tolerance) {
		e := x.entries[i]
		delta := e.RT - rt
		if !x.opts.IgnoreRT && !math.IsNaN(delta) && math.Abs(delta) >= x.opts.RTTolerance {
			continue
		}
		out = append(out, Match{Index: i, ScanID: e.ScanID, RT: e.RT, DeltaRT: delta})
	}
	return out
}

// IndexByID returns the row of a scan id.
func (x *Index) IndexByID(scanID int) (int, bool) {
	i, ok := x.byScan[scanID]
	return i, ok
}

// PrecursorByID returns the precursor m/z of a scan id.
func (x *Index) PrecursorByID(scanID int) (float64, bool) {
	i, ok := x.byScan[scanID]
	if !ok {
		return 0, false
	}
	return x.entries[i].PrecursorMZ, true
}

// ScanByID reads the spectrum of a scan id.
func (x *Index) ScanByID(scanID int) (*core.Spectrum, error) {
	i, ok := x.byScan[scanID]
	if !ok {
		return nil, fmt.Errorf("%w: %d in %s", ErrScanNotFound, scanID, x.name)
	}
	return x.Spectrum(i)
}

// Spectrum reads the peaks of the i-th scan. The result is a copy the
// caller may modify.
func (x *Index) Spectrum(i int) (*core.Spectrum, error) {
	if i < 0 || i >= len(x.entries) {
		return nil, fmt.Errorf("%w: index %d in %s", ErrScanNotFound, i, x.name)
	}
	if spec, ok := x.cache.Get(i); ok {
		return clone(spec), nil
	}

	e := x.entries[i]
	spec := &core.Spectrum{
		PrecursorMZ:        e.PrecursorMZ,
		PrecursorIntensity: e.PrecursorIntensity,
		RetentionTime:      e.RT,
		ScanID:             e.ScanID,
		Charge:             e.Charge,
		SourceFile:         x.name,
		Offset:             e.Offset,
	}
	lines := newLineReader(io.NewSectionReader(x.r, e.Offset, x.size-e.Offset))
	for {
		line, _, err := lines.next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read scan %d: %w", e.ScanID, err)
		}
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "CHARGE") {
			continue
		}
		if !isPeakLine(line) {
			break
		}
		peak, ok, err := parsePeak(line)
		if err != nil {
			return nil, fmt.Errorf("scan %d: %w", e.ScanID, err)
		}
		if ok {
			spec.Peaks = append(spec.Peaks, peak)
		}
	}

	x.cache.Add(i, spec)
	return clone(spec), nil
}

func clone(s *core.Spectrum) *core.Spectrum {
	c := *s
	c.Peaks = slices.Clone(s.Peaks)
	return &c
}
