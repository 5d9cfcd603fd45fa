package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"finstat/pkg/core/valuation"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/phuslu/log"
)

// ErrRunNotFound is returned by Get for unknown ids.
var ErrRunNotFound = errors.New("valuation run not found")

// ValuationRun is one recorded DCF request and its outcome.
type ValuationRun struct {
	ID        uuid.UUID            `json:"id"`
	Ticker    string               `json:"ticker"`
	Params    valuation.DCFParams  `json:"params"`
	Result    *valuation.DCFResult `json:"result"`
	CreatedAt time.Time            `json:"created_at"`
}

// ValuationRepo stores valuation runs.
// Hybrid: DB when a pool is given, otherwise JSON files under fileDir.
type ValuationRepo struct {
	pool    *pgxpool.Pool
	fileDir string
	now     func() time.Time
}

// NewValuationRepo creates a repository. With a nil pool runs are written to dir.
func NewValuationRepo(pool *pgxpool.Pool, dir string) *ValuationRepo {
	if pool == nil && dir == "" {
		dir = filepath.Join("data", ".runs")
	}
	return &ValuationRepo{pool: pool, fileDir: dir, now: time.Now}
}

// Backend names the active storage for diagnostics.
func (r *ValuationRepo) Backend() string {
	if r.pool != nil {
		return "postgres"
	}
	return "file"
}

// Save assigns an id and timestamp when missing and persists the run.
func (r *ValuationRepo) Save(ctx context.Context, run *ValuationRun) error {
	if run.ID == uuid.Nil {
		run.ID = uuid.New()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = r.now().UTC()
	}
	run.Ticker = strings.ToUpper(strings.TrimSpace(run.Ticker))

	if r.pool != nil {
		params, err := json.Marshal(run.Params)
		if err != nil {
			return fmt.Errorf("failed to marshal params: %w", err)
		}
		result, err := json.Marshal(run.Result)
		if err != nil {
			return fmt.Errorf("failed to marshal result: %w", err)
		}
		query := `
			INSERT INTO valuation_runs (id, ticker, params, result, created_at)
			VALUES ($1, $2, $3, $4, $5)
		`
		if _, err := r.pool.Exec(ctx, query, run.ID, run.Ticker, params, result, run.CreatedAt); err != nil {
			return fmt.Errorf("failed to save valuation run: %w", err)
		}
		return nil
	}

	data, err := json.MarshalIndent(run, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal valuation run: %w", err)
	}
	dir := filepath.Join(r.fileDir, tickerDir(run.Ticker))
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create run dir: %w", err)
	}
	path := filepath.Join(dir, run.ID.String()+".json")
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write valuation run: %w", err)
	}
	log.Debug().Str("path", path).Msg("[STORE] run saved")
	return nil
}

// List returns up to limit runs, newest first. An empty ticker lists all tickers.
func (r *ValuationRepo) List(ctx context.Context, ticker string, limit int) ([]ValuationRun, error) {
	if limit <= 0 {
		limit = 50
	}
	ticker = strings.ToUpper(strings.TrimSpace(ticker))

	if r.pool != nil {
		query := `
			SELECT id, ticker, params, result, created_at
			FROM valuation_runs
			WHERE ($1 = '' OR ticker = $1)
			ORDER BY created_at DESC
			LIMIT $2
		`
		rows, err := r.pool.Query(ctx, query, ticker, limit)
		if err != nil {
			return nil, fmt.Errorf("failed to list valuation runs: %w", err)
		}
		defer rows.Close()

		var runs []ValuationRun
		for rows.Next() {
			run, err := scanRun(rows)
			if err != nil {
				return nil, err
			}
			runs = append(runs, *run)
		}
		return runs, rows.Err()
	}

	runs, err := r.loadFiles(ticker)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(runs, func(i, j int) bool { return runs[i].CreatedAt.After(runs[j].CreatedAt) })
	if len(runs) > limit {
		runs = runs[:limit]
	}
	return runs, nil
}

// Get loads one run by id.
func (r *ValuationRepo) Get(ctx context.Context, id uuid.UUID) (*ValuationRun, error) {
	if r.pool != nil {
		query := `SELECT id, ticker, params, result, created_at FROM valuation_runs WHERE id = $1`
		run, err := scanRun(r.pool.QueryRow(ctx, query, id))
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRunNotFound
		}
		return run, err
	}

	matches, err := filepath.Glob(filepath.Join(r.fileDir, "*", id.String()+".json"))
	if err != nil || len(matches) == 0 {
		return nil, ErrRunNotFound
	}
	return loadRun(matches[0])
}

func scanRun(row pgx.Row) (*ValuationRun, error) {
	var (
		run            ValuationRun
		params, result []byte
	)
	if err := row.Scan(&run.ID, &run.Ticker, &params, &result, &run.CreatedAt); err != nil {
		return nil, fmt.Errorf("failed to scan valuation run: %w", err)
	}
	if err := json.Unmarshal(params, &run.Params); err != nil {
		return nil, fmt.Errorf("failed to unmarshal params: %w", err)
	}
	if err := json.Unmarshal(result, &run.Result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal result: %w", err)
	}
	return &run, nil
}

func (r *ValuationRepo) loadFiles(ticker string) ([]ValuationRun, error) {
	pattern := filepath.Join(r.fileDir, "*", "*.json")
	if ticker != "" {
		pattern = filepath.Join(r.fileDir, tickerDir(ticker), "*.json")
	}
	paths, err := filepath.Glob(pattern)
	if err != nil {
		return nil, fmt.Errorf("failed to scan runs: %w", err)
	}

	runs := make([]ValuationRun, 0, len(paths))
	for _, p := range paths {
		run, err := loadRun(p)
		if err != nil {
			log.Warn().Str("path", p).Err(err).Msg("[STORE] skipping unreadable run")
			continue
		}
		runs = append(runs, *run)
	}
	return runs, nil
}

func loadRun(path string) (*ValuationRun, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var run ValuationRun
	if err := json.Unmarshal(data, &run); err != nil {
		return nil, fmt.Errorf("failed to unmarshal %s: %w", path, err)
	}
	return &run, nil
}

// tickerDir keeps a ticker usable as a single path element.
func tickerDir(ticker string) string {
	if ticker == "" {
		return "_"
	}
	return strings.NewReplacer("/", "_", "\\", "_", "..", "_").Replace(ticker)
}
