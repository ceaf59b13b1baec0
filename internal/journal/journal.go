// Package journal keeps a local record of conversion runs and the SCC files
// they produced, so operators can answer "what did I already upload" without
// listing output directories by hand.
package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Run describes one invocation of the converter.
type Run struct {
	ID         int64
	StartedAt  time.Time
	Location   string
	InputPath  string
	OutputPath string
	Interval   time.Duration
	Atmosphere string
}

// Measurement is one SCC file produced during a run.
type Measurement struct {
	MeasurementID string
	Path          string
	Start         time.Time
	Stop          time.Time
	Calibration   bool

	// Wavelength in nm, zero for regular measurements
	Wavelength int

	SizeBytes int64
}

// Journal handles database operations. Connections are opened lazily, so
// constructing a Journal never touches the filesystem.
type Journal struct {
	dbPath string

	writeDB     *sql.DB
	writeDBOnce sync.Once
	writeDBErr  error

	readDB     *sql.DB
	readDBOnce sync.Once
	readDBErr  error

	closeOnce sync.Once
	closeErr  error
}

// New creates a journal backed by the SQLite database at dbPath. The schema
// is initialized on first write.
func New(dbPath string) *Journal {
	return &Journal{dbPath: dbPath}
}

func (j *Journal) getWriteDB() (*sql.DB, error) {
	j.writeDBOnce.Do(func() {
		db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?%s", j.dbPath, "_journal_mode=WAL&_synchronous=NORMAL"))
		if err != nil {
			j.writeDBErr = fmt.Errorf("opening write connection: %w", err)
			return
		}

		if _, err = db.Exec(schemaSQL); err != nil {
			_ = db.Close()
			j.writeDBErr = fmt.Errorf("initializing schema: %w", err)
			return
		}

		j.writeDB = db
	})

	return j.writeDB, j.writeDBErr
}

func (j *Journal) getReadDB() (*sql.DB, error) {
	j.readDBOnce.Do(func() {
		db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?%s", j.dbPath, "mode=ro"))
		if err != nil {
			j.readDBErr = fmt.Errorf("opening read connection: %w", err)
			return
		}
		j.readDB = db
	})

	return j.readDB, j.readDBErr
}

func closeWithError(cl interface{ Close() error }, err *error) {
	if cErr := cl.Close(); cErr != nil && *err == nil {
		*err = cErr
	}
}

func rollbackWithError(rb interface{ Rollback() error }, err *error) {
	if cErr := rb.Rollback(); cErr != nil && *err == nil && !errors.Is(cErr, sql.ErrTxDone) {
		*err = cErr
	}
}

// CreateRun records the start of a conversion run and returns its ID.
func (j *Journal) CreateRun(ctx context.Context, r Run) (runID int64, err error) {
	db, err := j.getWriteDB()
	if err != nil {
		err = fmt.Errorf("getting write connection: %w", err)
		return
	}

	stmt, err := db.PrepareContext(ctx, insertRunSQL)
	if err != nil {
		err = fmt.Errorf("preparing statement: %w", err)
		return
	}
	defer closeWithError(stmt, &err)

	startedAt := r.StartedAt
	if startedAt.IsZero() {
		startedAt = time.Now()
	}

	result, err := stmt.ExecContext(ctx,
		startedAt.UTC(),
		r.Location,
		r.InputPath,
		r.OutputPath,
		int64(r.Interval/time.Second),
		r.Atmosphere,
	)
	if err != nil {
		err = fmt.Errorf("inserting run: %w", err)
		return
	}

	runID, err = result.LastInsertId()
	if err != nil {
		err = fmt.Errorf("getting run ID: %w", err)
	}
	return
}

// RecordMeasurements stores the files produced by a run in a single batch.
func (j *Journal) RecordMeasurements(ctx context.Context, runID int64, ms []Measurement) (err error) {
	if len(ms) == 0 {
		return nil
	}

	db, err := j.getWriteDB()
	if err != nil {
		return fmt.Errorf("getting write connection: %w", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer rollbackWithError(tx, &err)

	values := make([]interface{}, 0, len(ms)*8)

	var sb strings.Builder
	sb.WriteString(insertMeasurementSQL)

	for i, m := range ms {
		var wavelength sql.NullInt64
		if m.Wavelength != 0 {
			wavelength.Int64 = int64(m.Wavelength)
			wavelength.Valid = true
		}

		values = append(values,
			runID,
			m.MeasurementID,
			m.Path,
			m.Start.UTC(),
			m.Stop.UTC(),
			m.Calibration,
			wavelength,
			m.SizeBytes,
		)

		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString("(?, ?, ?, ?, ?, ?, ?, ?)")
	}

	if _, err = tx.ExecContext(ctx, sb.String(), values...); err != nil {
		return fmt.Errorf("batch inserting measurements: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	return nil
}

// Runs lists all recorded runs, most recent first.
func (j *Journal) Runs(ctx context.Context) (runs []*Run, err error) {
	db, err := j.getReadDB()
	if err != nil {
		err = fmt.Errorf("getting read connection: %w", err)
		return
	}

	rows, err := db.QueryContext(ctx, selectRunsSQL)
	if err != nil {
		err = fmt.Errorf("querying runs: %w", err)
		return
	}
	defer closeWithError(rows, &err)

	for rows.Next() {
		var r Run
		var seconds int64
		if err = rows.Scan(&r.ID, &r.StartedAt, &r.Location, &r.InputPath, &r.OutputPath, &seconds, &r.Atmosphere); err != nil {
			err = fmt.Errorf("scanning run: %w", err)
			return
		}
		r.Interval = time.Duration(seconds) * time.Second
		runs = append(runs, &r)
	}
	err = rows.Err()
	return
}

// RunMeasurements lists the files recorded for one run in time order.
func (j *Journal) RunMeasurements(ctx context.Context, runID int64) (ms []*Measurement, err error) {
	db, err := j.getReadDB()
	if err != nil {
		err = fmt.Errorf("getting read connection: %w", err)
		return
	}

	stmt, err := db.PrepareContext(ctx, selectRunMeasurementsSQL)
	if err != nil {
		err = fmt.Errorf("preparing statement: %w", err)
		return
	}
	defer closeWithError(stmt, &err)

	rows, err := stmt.QueryContext(ctx, runID)
	if err != nil {
		err = fmt.Errorf("querying measurements: %w", err)
		return
	}
	defer closeWithError(rows, &err)

	for rows.Next() {
		var m Measurement
		var wavelength sql.NullInt64
		if err = rows.Scan(&m.MeasurementID, &m.Path, &m.Start, &m.Stop, &m.Calibration, &wavelength, &m.SizeBytes); err != nil {
			err = fmt.Errorf("scanning measurement: %w", err)
			return
		}
		if wavelength.Valid {
			m.Wavelength = int(wavelength.Int64)
		}
		ms = append(ms, &m)
	}
	err = rows.Err()
	return
}

// Close releases both database connections. Safe to call more than once.
func (j *Journal) Close() error {
	j.closeOnce.Do(func() {
		var writeErr, readErr error

		if j.writeDB != nil {
			writeErr = j.writeDB.Close()
			j.writeDB = nil
		}

		if j.readDB != nil {
			readErr = j.readDB.Close()
			j.readDB = nil
		}

		j.closeErr = errors.Join(writeErr, readErr)
	})

	return j.closeErr
}
