package db

import (
	"database/sql"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"carprice/ml"
	_ "github.com/mattn/go-sqlite3"
)

const schema = `
    CREATE TABLE IF NOT EXISTS parameters (
        id INTEGER PRIMARY KEY CHECK (id = 1),
        theta0 REAL NOT NULL,
        theta1 REAL NOT NULL,
        updated_at DATETIME NOT NULL
    );
    CREATE TABLE IF NOT EXISTS training_runs (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        run_id TEXT NOT NULL UNIQUE,
        state TEXT NOT NULL,
        reason TEXT,
        iterations INTEGER DEFAULT 0,
        final_cost REAL DEFAULT 0,
        theta0 REAL DEFAULT 0,
        theta1 REAL DEFAULT 0,
        learning_rate REAL NOT NULL,
        stop_threshold REAL NOT NULL,
        max_iterations INTEGER NOT NULL,
        data_points INTEGER DEFAULT 0,
        trained_at DATETIME NOT NULL
    );
    CREATE INDEX IF NOT EXISTS idx_training_runs_trained_at ON training_runs(trained_at);
    `

// Store is a SQLite database holding the coefficients and the training history.
type Store struct {
	db       *sql.DB
	path     string
	defaults ml.Coefficients
}

// Open opens (creating if needed) the database at path.
func Open(path string, defaults ml.Coefficients) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	database, err := sql.Open("sqlite3", path+"?_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database failed: %w", err)
	}
	database.SetMaxOpenConns(1)

	if _, err := database.Exec(schema); err != nil {
		database.Close()
		return nil, fmt.Errorf("create tables failed: %w", err)
	}
	return &Store{db: database, path: path, defaults: defaults}, nil
}

func (s *Store) Path() string {
	return s.path
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Load returns the stored coefficients, inserting the defaults if the row is missing.
func (s *Store) Load() (ml.Coefficients, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return ml.Coefficients{}, err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	_, err = tx.Exec(`INSERT OR IGNORE INTO parameters (id, theta0, theta1, updated_at) VALUES (1, ?, ?, ?)`,
		s.defaults.Theta0, s.defaults.Theta1, time.Now().UTC())
	if err != nil {
		return ml.Coefficients{}, err
	}

	var c ml.Coefficients
	if err := tx.QueryRow(`SELECT theta0, theta1 FROM parameters WHERE id = 1`).Scan(&c.Theta0, &c.Theta1); err != nil {
		return ml.Coefficients{}, err
	}
	return c, tx.Commit()
}

func (s *Store) Save(c ml.Coefficients) error {
	_, err := s.db.Exec(`INSERT OR REPLACE INTO parameters (id, theta0, theta1, updated_at) VALUES (1, ?, ?, ?)`,
		c.Theta0, c.Theta1, time.Now().UTC())
	return err
}

func (s *Store) Reset() error {
	_, err := s.db.Exec(`DELETE FROM parameters WHERE id = 1`)
	return err
}

// TrainingRun is one row of the training history.
type TrainingRun struct {
	RunID         string    `json:"run_id"`
	State         string    `json:"state"`
	Reason        string    `json:"reason,omitempty"`
	Iterations    int       `json:"iterations"`
	FinalCost     float64   `json:"final_cost"`
	Theta0        float64   `json:"theta0"`
	Theta1        float64   `json:"theta1"`
	LearningRate  float64   `json:"learning_rate"`
	StopThreshold float64   `json:"stop_threshold"`
	MaxIterations int       `json:"max_iterations"`
	DataPoints    int       `json:"data_points"`
	TrainedAt     time.Time `json:"trained_at"`
}

func (s *Store) SaveTrainingRun(run TrainingRun) error {
	if run.RunID == "" {
		return errors.New("run id required")
	}
	_, err := s.db.Exec(`
        INSERT INTO training_runs (
            run_id, state, reason, iterations, final_cost, theta0, theta1,
            learning_rate, stop_threshold, max_iterations, data_points, trained_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.RunID, run.State, run.Reason, run.Iterations, nullable(run.FinalCost), nullable(run.Theta0), nullable(run.Theta1),
		run.LearningRate, run.StopThreshold, run.MaxIterations, run.DataPoints, run.TrainedAt.UTC(),
	)
	return err
}

// LoadTrainingRuns returns the most recent runs first. limit <= 0 returns all.
func (s *Store) LoadTrainingRuns(limit int) ([]TrainingRun, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.Query(`
        SELECT run_id, state, reason, iterations, final_cost, theta0, theta1,
               learning_rate, stop_threshold, max_iterations, data_points, trained_at
        FROM training_runs
        ORDER BY trained_at DESC, id DESC
        LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	runs := make([]TrainingRun, 0)
	for rows.Next() {
		var run TrainingRun
		var reason sql.NullString
		var cost, theta0, theta1 sql.NullFloat64
		if err := rows.Scan(&run.RunID, &run.State, &reason, &run.Iterations, &cost, &theta0, &theta1,
			&run.LearningRate, &run.StopThreshold, &run.MaxIterations, &run.DataPoints, &run.TrainedAt); err != nil {
			return nil, err
		}
		run.Reason = reason.String
		run.FinalCost, run.Theta0, run.Theta1 = cost.Float64, theta0.Float64, theta1.Float64
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// nullable stores non-finite values as NULL; sqlite has no NaN.
func nullable(v float64) sql.NullFloat64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: v, Valid: true}
}
