// Package ingest pulls market data from the provider and persists it in the
// data-root layout the statement locator reads.
package ingest

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"finstat/pkg/core/market"
	"finstat/pkg/core/statements"

	"github.com/phuslu/log"
)

// FolderLayout is the timestamp format of snapshot folders. Lexicographic order
// of folder names is chronological order.
const FolderLayout = "20060102_150405"

// FetchRequest selects what to download.
type FetchRequest struct {
	Ticker   string
	Start    time.Time
	End      time.Time
	Interval string
}

// Files lists the written CSVs.
type Files struct {
	PriceHistory string `json:"price_history"`
	Income       string `json:"income_statement"`
	Balance      string `json:"balance_sheet"`
	CashFlow     string `json:"cash_flow"`
}

// FetchResult is the snapshot folder and its files.
type FetchResult struct {
	Ticker string `json:"ticker"`
	Folder string `json:"folder"`
	Files  Files  `json:"files"`
}

// ErrInvalidRequest marks a request rejected before any provider call.
var ErrInvalidRequest = errors.New("invalid fetch request")

// Fetcher downloads price history and statements into dataRoot/<TICKER>/<timestamp>/.
type Fetcher struct {
	provider   market.Provider
	dataRoot   string
	now        func() time.Time
	writeTable func(path string, t *statements.RawTable) error
}

// NewFetcher creates a fetcher writing under dataRoot.
func NewFetcher(provider market.Provider, dataRoot string) *Fetcher {
	return &Fetcher{provider: provider, dataRoot: dataRoot, now: time.Now, writeTable: statements.WriteRawCSVFile}
}

// Fetch downloads everything first and writes only when all provider calls
// succeeded. Files are written into a hidden staging folder that is renamed
// into place once complete, so a failed fetch never leaves a partial snapshot.
func (f *Fetcher) Fetch(ctx context.Context, req FetchRequest) (*FetchResult, error) {
	ticker, err := market.NormalizeTicker(req.Ticker)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	interval := req.Interval
	if interval == "" {
		interval = market.DefaultInterval
	}
	if !market.ValidInterval(interval) {
		return nil, fmt.Errorf("%w: unsupported interval %q", ErrInvalidRequest, interval)
	}
	if !req.Start.IsZero() && !req.End.IsZero() && req.End.Before(req.Start) {
		return nil, fmt.Errorf("%w: end %s is before start %s", ErrInvalidRequest, req.End.Format("2006-01-02"), req.Start.Format("2006-01-02"))
	}

	log.Info().Str("ticker", ticker).Str("interval", interval).Msg("[INGEST] fetching")

	bars, err := f.provider.History(ctx, ticker, market.HistoryRange{Start: req.Start, End: req.End, Interval: interval})
	if err != nil {
		return nil, fmt.Errorf("price history: %w", err)
	}
	set, err := f.provider.Statements(ctx, ticker)
	if err != nil {
		return nil, fmt.Errorf("statements: %w", err)
	}

	tickerDir := filepath.Join(f.dataRoot, ticker)
	if err := os.MkdirAll(tickerDir, 0755); err != nil {
		return nil, fmt.Errorf("create ticker folder: %w", err)
	}
	staging, err := os.MkdirTemp(tickerDir, ".staging-")
	if err != nil {
		return nil, fmt.Errorf("create staging folder: %w", err)
	}
	defer os.RemoveAll(staging)
	if err := os.Chmod(staging, 0755); err != nil {
		return nil, fmt.Errorf("create staging folder: %w", err)
	}

	if err := writePriceHistory(filepath.Join(staging, statements.PriceHistoryFile), bars); err != nil {
		return nil, err
	}
	for name, table := range map[string]*statements.RawTable{
		statements.IncomeFile:   set.Income,
		statements.BalanceFile:  set.Balance,
		statements.CashFlowFile: set.CashFlow,
	} {
		if table == nil {
			table = &statements.RawTable{}
		}
		if err := f.writeTable(filepath.Join(staging, name), table); err != nil {
			return nil, err
		}
	}

	folder := filepath.Join(tickerDir, f.now().Format(FolderLayout))
	// A refetch within the same second replaces the earlier snapshot.
	if err := os.RemoveAll(folder); err != nil {
		return nil, fmt.Errorf("replace snapshot folder: %w", err)
	}
	if err := os.Rename(staging, folder); err != nil {
		return nil, fmt.Errorf("publish snapshot folder: %w", err)
	}

	res := &FetchResult{
		Ticker: ticker,
		Folder: folder,
		Files: Files{
			PriceHistory: filepath.Join(folder, statements.PriceHistoryFile),
			Income:       filepath.Join(folder, statements.IncomeFile),
			Balance:      filepath.Join(folder, statements.BalanceFile),
			CashFlow:     filepath.Join(folder, statements.CashFlowFile),
		},
	}

	log.Info().Str("ticker", ticker).Str("folder", folder).Int("bars", len(bars)).Msg("[INGEST] snapshot written")
	return res, nil
}

var priceHeader = []string{"Date", "Open", "High", "Low", "Close", "Adj Close", "Volume"}

func writePriceHistory(path string, bars []market.PriceBar) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer file.Close()

	w := csv.NewWriter(file)
	if err := w.Write(priceHeader); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	for _, b := range bars {
		rec := []string{
			market.PeriodLabel(b.Date),
			b.Open.String(), b.High.String(), b.Low.String(), b.Close.String(), b.AdjClose.String(), b.Volume.String(),
		}
		if err := w.Write(rec); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
