// Package feature identifies MS1 features from the MS2 scans that
// fragmented them.
package feature

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ChrisMcGann/LipidKey/pkg/core"
	"github.com/ChrisMcGann/LipidKey/pkg/filter"
	"github.com/ChrisMcGann/LipidKey/pkg/fragdb"
	"github.com/ChrisMcGann/LipidKey/pkg/identify"
	"github.com/ChrisMcGann/LipidKey/pkg/metrics"
	"github.com/ChrisMcGann/LipidKey/pkg/reader/mgf"
	"github.com/ChrisMcGann/LipidKey/pkg/scan"
)

var ErrNoDatabase = errors.New("no fragment database for ion mode")

// DefaultRTWindow is the RT window in minutes used when a feature has none.
const DefaultRTWindow = 0.5

// Feature is one MS1 precursor with its candidate records.
type Feature struct {
	Name       string
	MZ         float64
	IonMode    core.IonMode
	RT         float64 // minutes; NaN when unknown
	RTWindow   float64 // 0 uses the identifier default
	Candidates []identify.Candidate
}

// Source provides MS2 scans of one acquisition. *mgf.Index is a Source.
type Source interface {
	Name() string
	Lookup(mz, rt float64) []mgf.Match
	Spectrum(i int) (*core.Spectrum, error)
}

// Sample is a set of acquisitions of the same sample.
type Sample struct {
	ID      string
	Sources []Source
}

// Options configure an Identifier.
type Options struct {
	Registry *fragdb.Registry
	Table    *identify.Table
	Adducts  *core.AdductDatabase // nil uses core.DefaultAdductDatabase
	Samples  []Sample

	Tolerance    float64 // MS2 ppm; 0 uses the database default
	CheckRatioGL bool
	CheckRatioSL bool
	LogBase      float64

	Filter   filter.Config
	CheckRT  bool
	RTWindow float64

	Logger  *slog.Logger
	Metrics *metrics.Metrics
}

// Identifier runs the class identifiers over the scans of features. It
// is safe for concurrent use as long as its sources are.
type Identifier struct {
	opts Options
}

// NewIdentifier checks opts and fills in defaults.
func NewIdentifier(opts Options) (*Identifier, error) {
	if opts.Registry == nil {
		return nil, errors.New("fragment registry is required")
	}
	if opts.Table == nil {
		return nil, errors.New("identification table is required")
	}
	if err := opts.Filter.Validate(); err != nil {
		return nil, fmt.Errorf("invalid peak filter: %w", err)
	}
	if opts.Adducts == nil {
		opts.Adducts = core.DefaultAdductDatabase()
	}
	if opts.RTWindow <= 0 {
		opts.RTWindow = DefaultRTWindow
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Identifier{opts: opts}, nil
}

// ScanResult holds the identities proposed for one scan.
type ScanResult struct {
	scan.Info
	Identities []identify.Identity
}

// Result is the outcome of one feature.
type Result struct {
	Feature *Feature
	Scans   []ScanResult
	// Summary keeps one identity per species: the highest percent score
	// over all scans, in the order species were first seen.
	Summary []identify.Identity
}

// Identified reports whether any scan produced an identity.
func (r *Result) Identified() bool {
	return len(r.Summary) > 0
}

// Species returns the summary identities rendered with their scan details.
func (r *Result) Species() []string {
	out := make([]string, len(r.Summary))
	for i, id := range r.Summary {
		out[i] = id.FullString()
	}
	return out
}

func absDelta(d float64) float64 {
	if math.IsNaN(d) {
		return math.Inf(1)
	}
	return math.Abs(d)
}

// Identify finds the scans of f in every source, identifies its
// candidates in each of them, closest RT first, and summarizes.
func (x *Identifier) Identify(ctx context.Context, f *Feature) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	start := time.Now()
	db := x.opts.Registry.For(f.IonMode)
	if db == nil {
		return nil, fmt.Errorf("%w: %s", ErrNoDatabase, f.IonMode)
	}

	scans := x.collect(ctx, f, db)
	sort.SliceStable(scans, func(i, j int) bool {
		return absDelta(scans[i].DeltaRT) < absDelta(scans[j].DeltaRT)
	})

	res := &Result{Feature: f}
	seen := make(map[string]int)
	for _, s := range scans {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		ids, err := identify.IdentifyScan(s, f.Candidates, x.opts.Table)
		if err != nil {
			return nil, fmt.Errorf("feature %s scan %d: %w", f.Name, s.ScanID, err)
		}
		if len(ids) == 0 {
			x.opts.Metrics.ScanOutcome(metrics.ScanEmpty)
		} else {
			x.opts.Metrics.ScanOutcome(metrics.ScanIdentified)
		}
		res.Scans = append(res.Scans, ScanResult{Info: s.Info, Identities: ids})

		for _, id := range ids {
			k := id.Key()
			i, ok := seen[k]
			if !ok {
				seen[k] = len(res.Summary)
				res.Summary = append(res.Summary, id)
				continue
			}
			if id.ScorePct > res.Summary[i].ScorePct {
				res.Summary[i] = id
			}
		}
	}

	classes := make([]string, len(res.Summary))
	for i, id := range res.Summary {
		classes[i] = id.Headgroup.Main
	}
	x.opts.Metrics.Feature(time.Since(start).Seconds(), classes)
	x.opts.Logger.Debug("feature identified", "feature", f.Name, "scans", len(res.Scans), "identities", len(res.Summary))
	return res, nil
}

// collect builds the scans of f from every source. Scans that cannot be
// read or built are logged and skipped.
func (x *Identifier) collect(ctx context.Context, f *Feature, db *fragdb.Database) []*scan.Scan {
	window := f.RTWindow
	if window <= 0 {
		window = x.opts.RTWindow
	}

	var out []*scan.Scan
	for _, sample := range x.opts.Samples {
		for _, src := range sample.Sources {
			for _, m := range src.Lookup(f.MZ, f.RT) {
				if ctx.Err() != nil {
					return out
				}
				if x.opts.CheckRT && !math.IsNaN(m.DeltaRT) && math.Abs(m.DeltaRT) >= window {
					continue
				}
				info := scan.Info{
					ScanID:   m.ScanID,
					SampleID: sample.ID,
					Source:   src.Name(),
					RT:       m.RT,
					DeltaRT:  m.DeltaRT,
				}
				s, err := x.build(src, m.Index, f, db, info)
				if err != nil {
					x.opts.Logger.Warn("skipping scan", "feature", f.Name, "source", src.Name(), "scan", m.ScanID, "error", err)
					x.opts.Metrics.ScanOutcome(metrics.ScanSkipped)
					continue
				}
				out = append(out, s)
			}
		}
	}
	return out
}

func (x *Identifier) build(src Source, index int, f *Feature, db *fragdb.Database, info scan.Info) (*scan.Scan, error) {
	spec, err := src.Spectrum(index)
	if err != nil {
		return nil, err
	}
	if err := x.opts.Filter.Apply(spec); err != nil {
		return nil, err
	}
	precursor := spec.PrecursorMZ
	if precursor <= 0 {
		precursor = f.MZ
	}
	mzs, intensities := spec.Arrays()
	return scan.New(mzs, intensities, db, scan.Options{
		Info:         info,
		Precursor:    precursor,
		Tolerance:    x.opts.Tolerance,
		CheckRatioGL: x.opts.CheckRatioGL,
		CheckRatioSL: x.opts.CheckRatioSL,
		LogBase:      x.opts.LogBase,
		Adducts:      x.opts.Adducts,
	})
}

// IdentifyAll identifies features on up to workers goroutines. Results
// are in input order. The first error cancels the remaining features.
func (x *Identifier) IdentifyAll(ctx context.Context, features []*Feature, workers int) ([]*Result, error) {
	if workers < 1 {
		workers = 1
	}
	results := make([]*Result, len(features))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, f := range features {
		if gctx.Err() != nil {
			break
		}
		i, f := i, f
		g.Go(func() error {
			res, err := x.Identify(gctx, f)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return results, nil
}
