package sqlite

import (
	"database/sql"
	"fmt"
	"math"
	"strings"
)

// Run is one row of RunTable.
type Run struct {
	ID              string
	CreationDate    string
	Polarity        string
	Tolerance       float64
	Description     string
	FeatureCount    int
	IdentifiedCount int
}

// IdentityRow is an identity joined with its feature.
type IdentityRow struct {
	RunID         string
	Feature       string
	PrecursorMass float64
	Species       string
	Summary       string
	Headgroup     string
	Adduct        string
	Score         int
	MaxScore      int
	ScorePct      int
	ScanNumber    int
	SampleID      string
	Source        string
	RetentionTime float64 // NaN when unknown
	DeltaRT       float64 // NaN when unknown
	FragTypes     []string

	ChainRank      []float64
	ChainIntensity []float64
}

// Store reads back a results database.
type Store struct {
	db *sql.DB
}

// Open opens a results database for reading.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", "file:"+path+"?mode=ro")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Runs lists the runs in creation order.
func (s *Store) Runs() ([]Run, error) {
	rows, err := s.db.Query(`
		SELECT RunId, CreationDate, Polarity, Tolerance, Description, FeatureCount, IdentifiedCount
		FROM RunTable ORDER BY CreationDate, rowid
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		var r Run
		if err := rows.Scan(&r.ID, &r.CreationDate, &r.Polarity, &r.Tolerance, &r.Description, &r.FeatureCount, &r.IdentifiedCount); err != nil {
			return nil, fmt.Errorf("failed to read run: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Identities returns the identities of a run, or of every run when runID
// is empty, in insertion order.
func (s *Store) Identities(runID string) ([]IdentityRow, error) {
	query := `
		SELECT f.RunId, f.Name, f.PrecursorMass, i.Species, i.Summary, i.Headgroup, i.Adduct,
			i.Score, i.MaxScore, i.ScorePct, i.ScanNumber, i.SampleId, i.Source,
			i.RetentionTime, i.DeltaRT, i.FragTypes, i.blobChainRank, i.blobChainIntensity
		FROM IdentityTable i JOIN FeatureTable f ON f.FeatureId = i.FeatureId`
	var args []any
	if runID != "" {
		query += ` WHERE f.RunId = ?`
		args = append(args, runID)
	}
	query += ` ORDER BY i.IdentityId`

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query identities: %w", err)
	}
	defer rows.Close()

	var out []IdentityRow
	for rows.Next() {
		var (
			r                   IdentityRow
			rt, delta           sql.NullFloat64
			fragTypes           string
			rankBlob, intensity []byte
		)
		err := rows.Scan(&r.RunID, &r.Feature, &r.PrecursorMass, &r.Species, &r.Summary, &r.Headgroup, &r.Adduct,
			&r.Score, &r.MaxScore, &r.ScorePct, &r.ScanNumber, &r.SampleID, &r.Source,
			&rt, &delta, &fragTypes, &rankBlob, &intensity)
		if err != nil {
			return nil, fmt.Errorf("failed to read identity: %w", err)
		}
		r.RetentionTime = orNaN(rt)
		r.DeltaRT = orNaN(delta)
		if fragTypes != "" {
			r.FragTypes = strings.Split(fragTypes, fragTypeSep)
		}
		if r.ChainRank, err = decodeFloat64(rankBlob); err != nil {
			return nil, fmt.Errorf("identity %s: %w", r.Species, err)
		}
		if r.ChainIntensity, err = decodeFloat64(intensity); err != nil {
			return nil, fmt.Errorf("identity %s: %w", r.Species, err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func orNaN(v sql.NullFloat64) float64 {
	if !v.Valid {
		return math.NaN()
	}
	return v.Float64
}
