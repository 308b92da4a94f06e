// Package sqlite stores identification results in SQLite database files
package sqlite

import (
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/ChrisMcGann/LipidKey/pkg/core"
	"github.com/ChrisMcGann/LipidKey/pkg/feature"
	"github.com/ChrisMcGann/LipidKey/pkg/identify"
	"github.com/ChrisMcGann/LipidKey/pkg/lipid"
)

const (
	// Date format for RunTable (ISO 8601)
	runDateFormat = "2006-01-02T15:04:05Z07:00"
	// separator of the fragment types of a chain combination
	fragTypeSep = ";"
)

// RunInfo describes the run a database file belongs to.
type RunInfo struct {
	IonMode     core.IonMode
	Tolerance   float64 // MS2 ppm
	Description string
}

// Writer handles writing feature results to SQLite database files
type Writer struct {
	db           *sql.DB
	outputPath   string
	runID        string
	featureStmt  *sql.Stmt
	identityStmt *sql.Stmt
	featureID    int
	identityID   int
	features     int
	identified   int
}

// NewWriter creates a new SQLite writer and records a new run.
func NewWriter(outputPath string, run RunInfo) (*Writer, error) {
	db, err := sql.Open("sqlite3", outputPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	w := &Writer{
		db:         db,
		outputPath: outputPath,
		runID:      uuid.NewString(),
		featureID:  1,
		identityID: 1,
	}

	if err := w.createTables(); err != nil {
		db.Close()
		return nil, err
	}

	if err := w.nextIDs(); err != nil {
		db.Close()
		return nil, err
	}

	_, err = db.Exec(`
		INSERT INTO RunTable (RunId, CreationDate, Polarity, Tolerance, Description, FeatureCount, IdentifiedCount)
		VALUES (?, ?, ?, ?, ?, 0, 0)
	`, w.runID, time.Now().UTC().Format(runDateFormat), string(run.IonMode), run.Tolerance, run.Description)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to insert run: %w", err)
	}

	if err := w.prepareStatements(); err != nil {
		db.Close()
		return nil, err
	}

	return w, nil
}

// RunID returns the id of the run being written.
func (w *Writer) RunID() string {
	return w.runID
}

// createTables creates the required database schema
func (w *Writer) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS RunTable (
		RunId TEXT PRIMARY KEY,
		CreationDate TEXT,
		Polarity TEXT,
		Tolerance DOUBLE,
		Description TEXT,
		FeatureCount INTEGER,
		IdentifiedCount INTEGER
	);

	CREATE TABLE IF NOT EXISTS FeatureTable (
		FeatureId INTEGER PRIMARY KEY,
		RunId TEXT REFERENCES RunTable(RunId),
		Name TEXT,
		PrecursorMass DOUBLE,
		RetentionTime DOUBLE,
		Polarity TEXT,
		CandidateCount INTEGER,
		ScanCount INTEGER
	);

	CREATE TABLE IF NOT EXISTS IdentityTable (
		IdentityId INTEGER PRIMARY KEY,
		FeatureId INTEGER REFERENCES FeatureTable(FeatureId),
		Species TEXT,
		Summary TEXT,
		Headgroup TEXT,
		Adduct TEXT,
		Score INTEGER,
		MaxScore INTEGER,
		ScorePct INTEGER,
		ScanNumber INTEGER,
		SampleId TEXT,
		Source TEXT,
		RetentionTime DOUBLE,
		DeltaRT DOUBLE,
		FragTypes TEXT,
		blobChainRank BLOB,
		blobChainIntensity BLOB
	);
	`

	_, err := w.db.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to create tables: %w", err)
	}

	return nil
}

// nextIDs continues numbering after the rows of earlier runs in the file.
func (w *Writer) nextIDs() error {
	var maxFeature, maxIdentity sql.NullInt64
	if err := w.db.QueryRow(`SELECT MAX(FeatureId) FROM FeatureTable`).Scan(&maxFeature); err != nil {
		return fmt.Errorf("failed to read feature ids: %w", err)
	}
	if err := w.db.QueryRow(`SELECT MAX(IdentityId) FROM IdentityTable`).Scan(&maxIdentity); err != nil {
		return fmt.Errorf("failed to read identity ids: %w", err)
	}
	w.featureID = int(maxFeature.Int64) + 1
	w.identityID = int(maxIdentity.Int64) + 1
	return nil
}

// prepareStatements prepares SQL statements for batch insertion
func (w *Writer) prepareStatements() error {
	var err error

	w.featureStmt, err = w.db.Prepare(`
		INSERT INTO FeatureTable (
			FeatureId, RunId, Name, PrecursorMass, RetentionTime,
			Polarity, CandidateCount, ScanCount
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare feature statement: %w", err)
	}

	w.identityStmt, err = w.db.Prepare(`
		INSERT INTO IdentityTable (
			IdentityId, FeatureId, Species, Summary, Headgroup, Adduct,
			Score, MaxScore, ScorePct, ScanNumber, SampleId, Source,
			RetentionTime, DeltaRT, FragTypes, blobChainRank, blobChainIntensity
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare identity statement: %w", err)
	}

	return nil
}

// WriteResult writes a feature and its summary identities in one
// transaction.
func (w *Writer) WriteResult(res *feature.Result) error {
	f := res.Feature

	tx, err := w.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Stmt(w.featureStmt).Exec(
		w.featureID,       // FeatureId
		w.runID,           // RunId
		f.Name,            // Name
		f.MZ,              // PrecursorMass
		nullable(f.RT),    // RetentionTime
		string(f.IonMode), // Polarity
		len(f.Candidates), // CandidateCount
		len(res.Scans),    // ScanCount
	)
	if err != nil {
		return fmt.Errorf("failed to insert feature %s: %w", f.Name, err)
	}

	identityStmt := tx.Stmt(w.identityStmt)
	for i, id := range res.Summary {
		if err := w.insertIdentity(identityStmt, w.identityID+i, id); err != nil {
			return fmt.Errorf("failed to insert identity of feature %s: %w", f.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit feature %s: %w", f.Name, err)
	}

	w.featureID++
	w.identityID += len(res.Summary)
	w.features++
	if res.Identified() {
		w.identified++
	}
	return nil
}

func (w *Writer) insertIdentity(stmt *sql.Stmt, identityID int, id identify.Identity) error {
	var fragTypes string
	var rankBlob, intensityBlob []byte
	if id.Details != nil {
		ranks := make([]float64, len(id.Details.Rank))
		for i, r := range id.Details.Rank {
			ranks[i] = float64(r)
		}
		rankBlob = encodeFloat64(ranks)
		intensityBlob = encodeFloat64(id.Details.Intensity)
		fragTypes = strings.Join(id.Details.FragType, fragTypeSep)
	}

	summary := lipid.Record{Headgroup: id.Headgroup, ChainSum: id.ChainSum}

	_, err := stmt.Exec(
		identityID,              // IdentityId
		w.featureID,             // FeatureId
		id.String(),             // Species
		summary.SummaryString(), // Summary
		id.Headgroup.String(),   // Headgroup
		id.Adduct,               // Adduct
		id.Score,                // Score
		id.MaxScore,             // MaxScore
		id.ScorePct,             // ScorePct
		id.ScanID,               // ScanNumber
		id.SampleID,             // SampleId
		id.Source,               // Source
		nullable(id.RT),         // RetentionTime
		nullable(id.DeltaRT),    // DeltaRT
		fragTypes,               // FragTypes
		rankBlob,                // blobChainRank
		intensityBlob,           // blobChainIntensity
	)
	return err
}

// nullable stores NaN as NULL
func nullable(v float64) any {
	if math.IsNaN(v) {
		return nil
	}
	return v
}

// encodeFloat64 encodes values as a little-endian float64 blob
func encodeFloat64(values []float64) []byte {
	buf := make([]byte, len(values)*8)
	for i, value := range values {
		binary.LittleEndian.PutUint64(buf[i*8:], math.Float64bits(value))
	}
	return buf
}

// decodeFloat64 is the inverse of encodeFloat64
func decodeFloat64(buf []byte) ([]float64, error) {
	if len(buf) == 0 {
		return nil, nil
	}
	if len(buf)%8 != 0 {
		return nil, fmt.Errorf("blob length %d is not a multiple of 8", len(buf))
	}
	values := make([]float64, len(buf)/8)
	for i := range values {
		values[i] = math.Float64frombits(binary.LittleEndian.Uint64(buf[i*8:]))
	}
	return values, nil
}

// Finalize records the run counts and closes the database
func (w *Writer) Finalize() error {
	_, err := w.db.Exec(`
		UPDATE RunTable SET FeatureCount = ?, IdentifiedCount = ? WHERE RunId = ?
	`, w.Features(), w.identified, w.runID)
	if err != nil {
		return fmt.Errorf("failed to update run: %w", err)
	}

	// Close prepared statements
	if w.featureStmt != nil {
		w.featureStmt.Close()
	}
	if w.identityStmt != nil {
		w.identityStmt.Close()
	}

	// Close database
	if err := w.db.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}

	return nil
}

// Features returns the number of features written in this run.
func (w *Writer) Features() int {
	return w.features
}

// Close closes the database connection (alias for Finalize)
func (w *Writer) Close() error {
	return w.Finalize()
}
