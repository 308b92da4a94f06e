// Package candidates reads MS1 features and their candidate lipid records
// from a tab-separated file, one candidate per row.
package candidates

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"strconv"
	"strings"

	"github.com/ChrisMcGann/LipidKey/pkg/core"
	"github.com/ChrisMcGann/LipidKey/pkg/feature"
	"github.com/ChrisMcGann/LipidKey/pkg/identify"
	"github.com/ChrisMcGann/LipidKey/pkg/lipid"
)

// Columns lists the required header names.
var Columns = []string{
	"feature", "mz", "rt", "ionmode", "adduct", "record_mz", "ppm",
	"headgroup", "subclasses", "chains", "c", "u",
}

var ErrMissingColumn = errors.New("missing column")

// row is one parsed line.
type row struct {
	feature string
	mz, rt  float64
	mode    core.IonMode
	cand    identify.Candidate
}

// Reader streams features; consecutive rows with the same feature name
// make up one feature.
type Reader struct {
	scanner *bufio.Scanner
	lineNum int
	cols    map[string]int
	pending *row
	current *feature.Feature
	err     error

	// Logger receives warnings about skipped lines; nil uses
	// slog.Default().
	Logger *slog.Logger
}

// NewReader creates a reader. The header is read on the first call to Next.
func NewReader(r io.Reader) *Reader {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	return &Reader{scanner: scanner}
}

func (r *Reader) logger() *slog.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return slog.Default()
}

// Next advances to the next feature. Returns false when no more features or error.
func (r *Reader) Next() bool {
	r.current = nil
	if r.err != nil {
		return false
	}
	if r.cols == nil {
		if err := r.readHeader(); err != nil {
			if err != io.EOF {
				r.err = err
			}
			return false
		}
	}

	first := r.pending
	r.pending = nil
	if first == nil {
		var err error
		first, err = r.readRow()
		if err != nil {
			if err != io.EOF {
				r.err = err
			}
			return false
		}
	}

	f := &feature.Feature{
		Name:       first.feature,
		MZ:         first.mz,
		IonMode:    first.mode,
		RT:         first.rt,
		Candidates: []identify.Candidate{first.cand},
	}
	for {
		next, err := r.readRow()
		if err == io.EOF {
			break
		}
		if err != nil {
			r.err = err
			return false
		}
		if next.feature != f.Name {
			r.pending = next
			break
		}
		if next.mode != f.IonMode {
			r.logger().Warn("skipping candidate with a different ion mode", "line", r.lineNum, "feature", f.Name)
			continue
		}
		f.Candidates = append(f.Candidates, next.cand)
	}
	r.current = f
	return true
}

// Feature returns the current feature
func (r *Reader) Feature() *feature.Feature {
	return r.current
}

// Err returns any error encountered during reading
func (r *Reader) Err() error {
	return r.err
}

// ReadAll reads every remaining feature.
func (r *Reader) ReadAll() ([]*feature.Feature, error) {
	var out []*feature.Feature
	for r.Next() {
		out = append(out, r.Feature())
	}
	return out, r.Err()
}

func (r *Reader) readHeader() error {
	for r.scanner.Scan() {
		r.lineNum++
		line := strings.TrimSpace(r.scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		cols := make(map[string]int)
		for i, name := range strings.Split(line, "\t") {
			cols[strings.ToLower(strings.TrimSpace(name))] = i
		}
		var missing []string
		for _, name := range Columns {
			if _, ok := cols[name]; !ok {
				missing = append(missing, name)
			}
		}
		if len(missing) > 0 {
			return fmt.Errorf("line %d: %w: %s", r.lineNum, ErrMissingColumn, strings.Join(missing, ", "))
		}
		r.cols = cols
		return nil
	}
	if err := r.scanner.Err(); err != nil {
		return fmt.Errorf("error reading candidates: %w", err)
	}
	return io.EOF
}

// readRow returns the next well-formed row; malformed lines are logged
// and skipped.
func (r *Reader) readRow() (*row, error) {
	for r.scanner.Scan() {
		r.lineNum++
		line := r.scanner.Text()
		if strings.TrimSpace(line) == "" || strings.HasPrefix(line, "#") {
			continue
		}
		rec, err := r.parseRow(strings.Split(line, "\t"))
		if err != nil {
			r.logger().Warn("skipping malformed candidate", "line", r.lineNum, "error", err)
			continue
		}
		return rec, nil
	}
	if err := r.scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading candidates: %w", err)
	}
	return nil, io.EOF
}

func (r *Reader) parseRow(fields []string) (*row, error) {
	get := func(name string) string {
		i := r.cols[name]
		if i >= len(fields) {
			return ""
		}
		return strings.TrimSpace(fields[i])
	}

	out := &row{feature: get("feature")}
	if out.feature == "" {
		return nil, fmt.Errorf("empty feature name")
	}

	var err error
	if out.mz, err = parsePositive(get("mz"), "mz"); err != nil {
		return nil, err
	}
	if out.rt, err = parseRT(get("rt")); err != nil {
		return nil, err
	}
	if out.mode, err = core.ParseIonMode(get("ionmode")); err != nil {
		return nil, err
	}

	cand := identify.Candidate{Adduct: get("adduct")}
	if cand.Adduct == "" {
		return nil, fmt.Errorf("empty adduct")
	}
	if cand.MZ, err = parsePositive(get("record_mz"), "record_mz"); err != nil {
		return nil, err
	}
	if cand.PPM, err = strconv.ParseFloat(get("ppm"), 64); err != nil {
		return nil, fmt.Errorf("invalid ppm '%s'", get("ppm"))
	}

	hg, err := lipid.ParseHeadgroup(get("headgroup"), get("subclasses"))
	if err != nil {
		return nil, err
	}
	types, attrs, err := lipid.ParseChainLayout(get("chains"))
	if err != nil {
		return nil, err
	}
	c, err := parseCount(get("c"), "c")
	if err != nil {
		return nil, err
	}
	u, err := parseCount(get("u"), "u")
	if err != nil {
		return nil, err
	}
	if len(types) == 0 && (c > 0 || u > 0) {
		return nil, fmt.Errorf("chain composition %d:%d without chain layout", c, u)
	}
	cand.Record = lipid.Record{
		Headgroup: hg,
		ChainSum:  lipid.ChainSummary{C: c, U: u, Types: types, Attrs: attrs},
	}
	out.cand = cand
	return out, nil
}

func parsePositive(s, name string) (float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v <= 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("invalid %s '%s'", name, s)
	}
	return v, nil
}

// parseRT accepts minutes; an empty field or NA is an unknown RT.
func parseRT(s string) (float64, error) {
	switch strings.ToLower(s) {
	case "", "na", "nan":
		return math.NaN(), nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v < 0 {
		return 0, fmt.Errorf("invalid rt '%s'", s)
	}
	return v, nil
}

func parseCount(s, name string) (int, error) {
	if s == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < 0 {
		return 0, fmt.Errorf("invalid %s '%s'", name, s)
	}
	return v, nil
}
