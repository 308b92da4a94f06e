package fragdb

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/ChrisMcGann/LipidKey/pkg/core"
	"github.com/ChrisMcGann/LipidKey/pkg/lipid"
)

// Definitions is the content of one fragment definition file.
type Definitions struct {
	Records     []Record
	Constraints map[string][]lipid.FragConstraint // keyed by fragment name
}

// ParseDefinitions reads a tab separated fragment definition file with the
// columns mass, formula, name, ion type and constraints. The formula wins
// over the literal mass. Ion types starting with "NL" are neutral losses;
// otherwise the charge sign comes from a trailing "+" or "-" of the ion
// type, falling back to the polarity of mode. Blank lines and lines
// starting with "#" are ignored; malformed lines are logged and skipped.
func ParseDefinitions(r io.Reader, mode core.IonMode, logger *slog.Logger) (*Definitions, error) {
	if logger == nil {
		logger = slog.Default()
	}
	defs := &Definitions{Constraints: make(map[string][]lipid.FragConstraint)}
	scanner := bufio.NewScanner(r)

	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimRight(scanner.Text(), "\r")
		if strings.TrimSpace(line) == "" || strings.HasPrefix(line, "#") {
			continue
		}
		rec, constraints, err := parseDefinitionLine(line, mode)
		if err != nil {
			logger.Warn("skipping fragment definition", "line", lineNum, "error", err)
			continue
		}
		defs.Records = append(defs.Records, rec)
		if len(constraints) > 0 {
			defs.Constraints[rec.Name] = constraints
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading fragment definitions: %w", err)
	}
	return defs, nil
}

func parseDefinitionLine(line string, mode core.IonMode) (Record, []lipid.FragConstraint, error) {
	fields := strings.Split(line, "\t")
	if len(fields) < 4 {
		return Record{}, nil, fmt.Errorf("expected at least 4 tab separated fields, got %d", len(fields))
	}
	for i := range fields {
		fields[i] = strings.TrimSpace(fields[i])
	}

	rec := Record{Name: fields[2], FragType: fields[3]}
	if rec.Name == "" {
		return Record{}, nil, fmt.Errorf("missing fragment name")
	}
	rec.Charge = ionTypeCharge(rec.FragType, mode)

	switch {
	case fields[1] != "":
		f, err := core.ParseFormula(fields[1])
		if err != nil {
			return Record{}, nil, err
		}
		rec.Mass = f.IonMass(rec.Charge)
	case fields[0] != "":
		mass, err := strconv.ParseFloat(fields[0], 64)
		if err != nil {
			return Record{}, nil, fmt.Errorf("invalid mass '%s': %w", fields[0], err)
		}
		rec.Mass = mass
	default:
		return Record{}, nil, fmt.Errorf("fragment '%s' has neither mass nor formula", rec.Name)
	}
	if rec.Mass <= 0 {
		return Record{}, nil, fmt.Errorf("fragment '%s' has non-positive mass", rec.Name)
	}

	var constraints []lipid.FragConstraint
	if len(fields) > 4 {
		var err error
		if constraints, err = lipid.ParseConstraints(fields[4]); err != nil {
			return Record{}, nil, err
		}
	}
	return rec, constraints, nil
}

func ionTypeCharge(ionType string, mode core.IonMode) int {
	switch {
	case strings.HasPrefix(ionType, "NL"):
		return 0
	case strings.HasSuffix(ionType, "+"):
		return 1
	case strings.HasSuffix(ionType, "-"):
		return -1
	}
	return mode.Sign()
}
