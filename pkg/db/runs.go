package db

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/dtnitsch/bigram-stripes/internal/common"
	"github.com/dtnitsch/bigram-stripes/pkg/bigram"
)

// Run statuses
const (
	StatusRunning   = "running"
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
)

// ErrRunNotFound is returned when a run ID has no row.
var ErrRunNotFound = errors.New("run not found")

// Run represents one bigram job
type Run struct {
	RunID             int64
	CreatedAt         time.Time
	Inputs            []string
	InputFingerprint  string
	OutputDir         string
	Reducers          int
	Combiner          bool
	InMapperCombining bool
	Status            string
	Error             string
	Counters          map[string]int
	Duration          time.Duration
}

// BigramRow is one stored reducer output record.
type BigramRow struct {
	Left      string
	Right     string
	Frequency float64
}

// InputFingerprint identifies an input set regardless of order.
func InputFingerprint(inputs []string) string {
	sorted := slices.Sorted(slices.Values(inputs))
	return common.ContentHash([]byte(strings.Join(sorted, "\n")))
}

// CreateRun records a job that is starting and returns its ID.
func (db *DB) CreateRun(inputs []string, outputDir string, reducers int, combiner, inMapperCombining bool) (int64, error) {
	inputsJSON, err := json.Marshal(inputs)
	if err != nil {
		return 0, fmt.Errorf("failed to encode inputs: %w", err)
	}

	result, err := db.Exec(`
		INSERT INTO runs (inputs, input_fingerprint, output_dir, reducers, combiner, in_mapper_combining, status)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, string(inputsJSON), InputFingerprint(inputs), outputDir, reducers, combiner, inMapperCombining, StatusRunning)
	if err != nil {
		return 0, fmt.Errorf("failed to create run: %w", err)
	}

	return result.LastInsertId()
}

// FinishRun marks a run succeeded and stores its counters.
func (db *DB) FinishRun(runID int64, counters map[string]int, duration time.Duration) error {
	countersJSON, err := json.Marshal(counters)
	if err != nil {
		return fmt.Errorf("failed to encode counters: %w", err)
	}
	return db.setStatus(runID, StatusSucceeded, "", string(countersJSON), duration)
}

// FailRun marks a run failed with the error that stopped it.
func (db *DB) FailRun(runID int64, runErr error, duration time.Duration) error {
	msg := ""
	if runErr != nil {
		msg = runErr.Error()
	}
	return db.setStatus(runID, StatusFailed, msg, "", duration)
}

func (db *DB) setStatus(runID int64, status, errMsg, counters string, duration time.Duration) error {
	result, err := db.Exec(`
		UPDATE runs
		SET status = ?, error = ?, counters = ?, duration_ms = ?
		WHERE run_id = ?
	`, status, nullIfEmpty(errMsg), nullIfEmpty(counters), duration.Milliseconds(), runID)
	if err != nil {
		return fmt.Errorf("failed to update run %d: %w", runID, err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("run %d: %w", runID, ErrRunNotFound)
	}
	return nil
}

func nullIfEmpty(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// InsertOutputs stores every reducer output record of a run in a single transaction.
func (db *DB) InsertOutputs(runID int64, partitions [][]bigram.Output) (err error) {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback() // Rollback error less important than insert error
		}
	}()

	stmt, err := tx.Prepare(`
		INSERT INTO bigrams (run_id, left_word, right_word, frequency)
		VALUES (?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, outputs := range partitions {
		for _, o := range outputs {
			if _, err = stmt.Exec(runID, o.Key.Left, o.Key.Right, float64(o.Frequency)); err != nil {
				return fmt.Errorf("failed to insert bigram %s %s: %w", o.Key.Left, o.Key.Right, err)
			}
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit bigrams: %w", err)
	}
	return nil
}

const runColumns = `
	run_id, created_at, inputs, input_fingerprint, output_dir, reducers,
	combiner, in_mapper_combining, status, error, counters, duration_ms
`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*Run, error) {
	var (
		r          Run
		inputsJSON string
		errMsg     sql.NullString
		counters   sql.NullString
		durationMS int64
	)
	err := row.Scan(&r.RunID, &r.CreatedAt, &inputsJSON, &r.InputFingerprint, &r.OutputDir, &r.Reducers,
		&r.Combiner, &r.InMapperCombining, &r.Status, &errMsg, &counters, &durationMS)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(inputsJSON), &r.Inputs); err != nil {
		return nil, fmt.Errorf("failed to decode inputs of run %d: %w", r.RunID, err)
	}
	if counters.Valid {
		if err := json.Unmarshal([]byte(counters.String), &r.Counters); err != nil {
			return nil, fmt.Errorf("failed to decode counters of run %d: %w", r.RunID, err)
		}
	}
	r.Error = errMsg.String
	r.Duration = time.Duration(durationMS) * time.Millisecond
	return &r, nil
}

// GetRunByID retrieves a run by its ID
func (db *DB) GetRunByID(runID int64) (*Run, error) {
	row := db.QueryRow("SELECT "+runColumns+" FROM runs WHERE run_id = ?", runID)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("run %d: %w", runID, ErrRunNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return r, nil
}

// ListRuns returns the most recent runs, newest first.
func (db *DB) ListRuns(limit int) ([]Run, error) {
	rows, err := db.Query("SELECT "+runColumns+" FROM runs ORDER BY run_id DESC LIMIT ?", limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *r)
	}
	return runs, rows.Err()
}

// LookupBigrams returns the stored records for one left word of a run: the
// total first, then each right word in ascending order.
func (db *DB) LookupBigrams(runID int64, left string) ([]BigramRow, error) {
	rows, err := db.Query(`
		SELECT left_word, right_word, frequency
		FROM bigrams
		WHERE run_id = ? AND left_word = ?
		ORDER BY right_word
	`, runID, left)
	if err != nil {
		return nil, fmt.Errorf("failed to look up %q: %w", left, err)
	}
	defer rows.Close()

	var result []BigramRow
	for rows.Next() {
		var b BigramRow
		if err := rows.Scan(&b.Left, &b.Right, &b.Frequency); err != nil {
			return nil, err
		}
		result = append(result, b)
	}
	return result, rows.Err()
}

// CountBigrams returns the number of stored records for a run.
func (db *DB) CountBigrams(runID int64) (int, error) {
	var count int
	err := db.QueryRow("SELECT COUNT(*) FROM bigrams WHERE run_id = ?", runID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count bigrams: %w", err)
	}
	return count, nil
}
