// Package store keeps export history and tabular export snapshots in SQLite.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"vcmarket/internal/model"
)

// ErrNotFound is returned when a requested export run does not exist.
var ErrNotFound = errors.New("store: not found")

var schema = []string{
	`CREATE TABLE IF NOT EXISTS export_runs (
		id TEXT PRIMARY KEY,
		dataset_id TEXT,
		dir TEXT,
		status TEXT,
		error_message TEXT,
		created_at DATETIME,
		updated_at DATETIME
	);`,
	`CREATE TABLE IF NOT EXISTS export_files (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT,
		type TEXT,
		path TEXT,
		record_count INTEGER,
		success INTEGER,
		error_message TEXT,
		created_at DATETIME
	);`,
	`CREATE TABLE IF NOT EXISTS investors (
		run_id TEXT,
		position INTEGER,
		name TEXT,
		region TEXT,
		num_investments INTEGER,
		num_exits INTEGER,
		score INTEGER
	);`,
	`CREATE TABLE IF NOT EXISTS industry_statistics (
		run_id TEXT,
		industry TEXT,
		total_funding_mean INTEGER,
		total_funding_median INTEGER,
		company_count INTEGER,
		last_funding_mean INTEGER,
		last_funding_median INTEGER
	);`,
	`CREATE TABLE IF NOT EXISTS ranked_companies (
		run_id TEXT,
		rank INTEGER,
		organization_name TEXT,
		total_funding_usd REAL,
		last_funding_usd REAL,
		expected_next_funding REAL,
		funding_difference REAL,
		investor_score_sum INTEGER,
		investor_score_normalized REAL,
		funding_difference_normalized REAL,
		market_context_score REAL,
		overall_score REAL
	);`,
}

// Store wraps one SQLite database
type Store struct {
	db *sql.DB
}

// Open opens or creates the database at path and ensures the schema.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)
	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("create schema: %w", err)
		}
	}
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// ----- Export runs -----

// CreateExportRun records a new export run
func (s *Store) CreateExportRun(ctx context.Context, run model.ExportRun) error {
	now := time.Now().UTC()
	if run.CreatedAt.IsZero() {
		run.CreatedAt = now
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO export_runs (id, dataset_id, dir, status, error_message, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.DatasetID, run.Dir, run.Status, run.Error, run.CreatedAt, now)
	return err
}

// UpdateExportRunStatus updates run status and error message
func (s *Store) UpdateExportRunStatus(ctx context.Context, id, status, errMsg string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE export_runs SET status = ?, error_message = ?, updated_at = ? WHERE id = ?`,
		status, errMsg, time.Now().UTC(), id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// SaveExportResults appends the file results of a run
func (s *Store) SaveExportResults(ctx context.Context, runID string, results []model.ExportResult) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx,
			`INSERT INTO export_files (run_id, type, path, record_count, success, error_message, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return err
		}
		defer stmt.Close()
		for _, r := range results {
			if _, err := stmt.ExecContext(ctx, runID, r.Type, r.Path, r.RecordCount, r.Success, r.Error, r.Timestamp.UTC()); err != nil {
				return err
			}
		}
		return nil
	})
}

// ListExportRuns returns all runs, newest first, without their files
func (s *Store) ListExportRuns(ctx context.Context) ([]model.ExportRun, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, dataset_id, dir, status, error_message, created_at, updated_at FROM export_runs ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	runs := []model.ExportRun{}
	for rows.Next() {
		var run model.ExportRun
		if err := rows.Scan(&run.ID, &run.DatasetID, &run.Dir, &run.Status, &run.Error, &run.CreatedAt, &run.UpdatedAt); err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// GetExportRun fetches one run with its files
func (s *Store) GetExportRun(ctx context.Context, id string) (*model.ExportRun, error) {
	var run model.ExportRun
	err := s.db.QueryRowContext(ctx,
		`SELECT id, dataset_id, dir, status, error_message, created_at, updated_at FROM export_runs WHERE id = ?`, id).
		Scan(&run.ID, &run.DatasetID, &run.Dir, &run.Status, &run.Error, &run.CreatedAt, &run.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT type, path, record_count, success, error_message, created_at FROM export_files WHERE run_id = ? ORDER BY id`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	run.Files = []model.ExportResult{}
	for rows.Next() {
		var f model.ExportResult
		if err := rows.Scan(&f.Type, &f.Path, &f.RecordCount, &f.Success, &f.Error, &f.Timestamp); err != nil {
			return nil, err
		}
		run.Files = append(run.Files, f)
	}
	return &run, rows.Err()
}

// ----- Export snapshots -----

// SaveInvestors stores the scored investors of a run
func (s *Store) SaveInvestors(ctx context.Context, runID string, investors []model.InvestorScore) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx,
			`INSERT INTO investors (run_id, position, name, region, num_investments, num_exits, score) VALUES (?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return err
		}
		defer stmt.Close()
		for i, inv := range investors {
			if _, err := stmt.ExecContext(ctx, runID, i+1, inv.Name, string(inv.Region), inv.NumInvestments, inv.NumExits, inv.Score); err != nil {
				return err
			}
		}
		return nil
	})
}

// SaveIndustryStatistics stores the per-industry statistics of a run in
// the order of labels
func (s *Store) SaveIndustryStatistics(ctx context.Context, runID string, labels []string, stats model.CategoryStatistics) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx,
			`INSERT INTO industry_statistics (run_id, industry, total_funding_mean, total_funding_median, company_count, last_funding_mean, last_funding_median) VALUES (?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return err
		}
		defer stmt.Close()
		for _, label := range labels {
			st := stats[label]
			if _, err := stmt.ExecContext(ctx, runID, label, st.TotalFundingMean, st.TotalFundingMedian, st.CompanyCount, st.LastFundingMean, st.LastFundingMedian); err != nil {
				return err
			}
		}
		return nil
	})
}

// SaveRankedCompanies stores a ranking of a run
func (s *Store) SaveRankedCompanies(ctx context.Context, runID string, ranked []model.RankedCompany) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx,
			`INSERT INTO ranked_companies (run_id, rank, organization_name, total_funding_usd, last_funding_usd, expected_next_funding, funding_difference, investor_score_sum, investor_score_normalized, funding_difference_normalized, market_context_score, overall_score) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return err
		}
		defer stmt.Close()
		for _, r := range ranked {
			c := r.Company
			if _, err := stmt.ExecContext(ctx, runID, r.Rank, c.Name, c.TotalFundingUSD, c.LastFundingUSD,
				c.ExpectedNextFunding, c.FundingDifference, r.InvestorScoreSum, r.InvestorNorm, r.FundingNorm,
				r.MarketContextScore, r.OverallScore); err != nil {
				return err
			}
		}
		return nil
	})
}

// CountRows returns the number of rows of table stored for runID.
func (s *Store) CountRows(ctx context.Context, table, runID string) (int, error) {
	switch table {
	case "investors", "industry_statistics", "ranked_companies", "export_files":
	default:
		return 0, fmt.Errorf("store: unknown table %q", table)
	}
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM `+table+` WHERE run_id = ?`, runID).Scan(&n)
	return n, err
}

func (s *Store) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}
