package identify

import (
	"errors"
	"fmt"
	"slices"
	"sort"

	"github.com/ChrisMcGann/LipidKey/pkg/core"
	"github.com/ChrisMcGann/LipidKey/pkg/lipid"
	"github.com/ChrisMcGann/LipidKey/pkg/scan"
)

var (
	ErrUnhandledSubclass = errors.New("subclass not handled by class")
	ErrDuplicateClass    = errors.New("headgroup already registered")
	ErrInvalidMode       = errors.New("invalid ion mode")
)

type entry struct {
	mode core.IonMode
	hg   lipid.Headgroup
	cls  *Class
}

// Table maps (ion mode, headgroup) to identification classes.
type Table struct {
	entries map[string]entry
}

func NewTable() *Table {
	return &Table{entries: make(map[string]entry)}
}

func tableKey(mode core.IonMode, hg lipid.Headgroup) string {
	return string(mode) + "/" + hg.Key()
}

// Register adds the class of a headgroup in one ion mode.
func (t *Table) Register(mode core.IonMode, hg lipid.Headgroup, cls *Class) error {
	if !mode.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidMode, mode)
	}
	k := tableKey(mode, hg)
	if _, ok := t.entries[k]; ok {
		return fmt.Errorf("%w: %s %s", ErrDuplicateClass, mode, hg)
	}
	t.entries[k] = entry{mode: mode, hg: hg, cls: cls}
	return nil
}

// Class returns the class of a headgroup; subclass order does not matter.
func (t *Table) Class(mode core.IonMode, hg lipid.Headgroup) (*Class, bool) {
	e, ok := t.entries[tableKey(mode, hg)]
	return e.cls, ok
}

func (t *Table) Len() int {
	return len(t.entries)
}

// Headgroups lists the registered headgroups of a mode in key order.
func (t *Table) Headgroups(mode core.IonMode) []lipid.Headgroup {
	keys := make([]string, 0, len(t.entries))
	for k, e := range t.entries {
		if e.mode == mode {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	out := make([]lipid.Headgroup, len(keys))
	for i, k := range keys {
		out[i] = t.entries[k].hg
	}
	return out
}

// Validate checks that every registered subclass is scored or explicitly
// ignored by its class.
func (t *Table) Validate() error {
	var errs []error
	for _, e := range t.entries {
		for _, sub := range e.hg.Sub {
			if _, ok := e.cls.BySub[sub]; ok || slices.Contains(e.cls.IgnoreSub, sub) {
				continue
			}
			errs = append(errs, fmt.Errorf("%w: %s %s in %s", ErrUnhandledSubclass, e.mode, e.hg, e.cls.Name))
		}
	}
	return errors.Join(errs...)
}

func hg(main string, sub ...string) lipid.Headgroup {
	return lipid.Headgroup{Main: main, Sub: sub}
}

// DefaultTable returns the built-in classes of both ion modes.
func DefaultTable() (*Table, error) {
	t := NewTable()
	add := func(mode core.IonMode, cls *Class, hgs ...lipid.Headgroup) error {
		for _, h := range hgs {
			if err := t.Register(mode, h, cls); err != nil {
				return err
			}
		}
		return nil
	}
	glycolipids := []string{"DGTA", "DGTS", "DGCC", "SQDG", "MGDG", "DGDG"}
	var gl []lipid.Headgroup
	for _, m := range glycolipids {
		gl = append(gl, hg(m), hg(m, "Lyso"))
	}

	neg, pos := core.Negative, core.Positive
	err := errors.Join(
		add(neg, faNegative, hg("FA")),
		add(neg, dagNegative, hg("DAG")),
		add(neg, tagNegative, hg("TAG")),
		add(neg, glNegative, gl...),
		add(neg, peNegative, hg("PE"), hg("PE", "Lyso")),
		add(neg, pcNegative, hg("PC"), hg("PC", "Lyso")),
		add(neg, piNegative, hg("PI"), hg("PI", "Lyso")),
		add(neg, psNegative, hg("PS"), hg("PS", "Lyso")),
		add(neg, pgNegative, hg("PG"), hg("PG", "Lyso")),
		add(neg, bmpNegative, hg("BMP")),
		add(neg, paNegative, hg("PA"), hg("PA", "Lyso")),
		add(neg, vaNegative, hg("VA")),
		add(neg, cerNegative,
			hg("Cer"), hg("Cer", "1P"), hg("SM"),
			hg("Cer", "Hex"), hg("Cer", "Hex2"), hg("Cer", "SHex"), hg("Cer", "SHex2"), hg("Cer", "PE"),
			hg("Sph"), hg("Sph", "1P"),
		),

		add(pos, faPositive, hg("FA")),
		add(pos, dagPositive, hg("DAG")),
		add(pos, glPositive, gl...),
		add(pos, tagPositive, hg("TAG")),
		add(pos, pePositive, hg("PE")),
		add(pos, lysoPEPositive, hg("PE", "Lyso")),
		add(pos, pcPositive, hg("PC")),
		add(pos, lysoPCPositive, hg("PC", "Lyso")),
		add(pos, piPositive, hg("PI"), hg("PI", "Lyso")),
		add(pos, psPositive, hg("PS"), hg("PS", "Lyso")),
		add(pos, pgPositive, hg("PG"), hg("PG", "Lyso")),
		add(pos, bmpPositive, hg("BMP")),
		add(pos, paPositive, hg("PA"), hg("PA", "Lyso")),
		add(pos, vaPositive, hg("VA")),
		add(pos, cerPositive,
			hg("Cer"), hg("Cer", "1P"), hg("Cer", "Hex"), hg("Cer", "Hex2"),
			hg("Cer", "SHex"), hg("Cer", "SHex2"), hg("Cer", "PE"), hg("SM"),
			hg("Cer", "1P", "Lyso"), hg("Cer", "Hex", "Lyso"), hg("Cer", "Hex2", "Lyso"),
			hg("Cer", "SHex", "Lyso"), hg("Cer", "SHex2", "Lyso"), hg("Cer", "PE", "Lyso"),
			hg("SM", "Lyso"), hg("Sph"), hg("Sph", "1P"), hg("Sph", "M1"), hg("Sph", "M2"), hg("Sph", "M3"),
			// sphingosylphosphorylcholine
			hg("Sph", "PC"),
		),
	)
	if err != nil {
		return nil, err
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}

// IdentifyScan identifies every candidate of a scan. Candidates rendering
// to the same summary are identified once, by the first of them, even when
// that one yields nothing. Candidates without a class are skipped.
func IdentifyScan(s *scan.Scan, candidates []Candidate, table *Table) ([]Identity, error) {
	e := NewEngine(s, table, candidates)
	seen := make(map[string]bool, len(candidates))
	var out []Identity
	for _, cand := range candidates {
		key := cand.Record.SummaryString()
		if seen[key] {
			continue
		}
		if _, ok := table.Class(s.Mode(), cand.Record.Headgroup); !ok {
			continue
		}
		seen[key] = true
		ids, err := e.Identify(cand)
		if err != nil {
			return nil, fmt.Errorf("identify %s %s: %w", key, cand.Adduct, err)
		}
		out = append(out, ids...)
	}
	return out, nil
}
