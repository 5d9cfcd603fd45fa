package statements

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/phuslu/log"
)

// Fixed file names inside a statement folder.
const (
	IncomeFile       = "income_statement.csv"
	BalanceFile      = "balance_sheet.csv"
	CashFlowFile     = "cash_flow.csv"
	PriceHistoryFile = "price_history.csv"
)

// NotFoundMessage is the single message reported for every kind of missing data set.
const NotFoundMessage = "could not locate statements: run fetch first or provide a valid folder"

// Paths are the three statement files of one data set.
type Paths struct {
	Folder   string `json:"folder"`
	Income   string `json:"income_statement"`
	Balance  string `json:"balance_sheet"`
	CashFlow string `json:"cash_flow"`
}

// Locator resolves a ticker or an explicit folder to persisted statement files.
// Ticker data lives in DataRoot/<TICKER>/<TIMESTAMP>/ with fixed-width timestamps,
// so lexicographic order is chronological order.
type Locator struct {
	DataRoot string
}

// NewLocator returns a locator over dataRoot.
func NewLocator(dataRoot string) *Locator {
	return &Locator{DataRoot: dataRoot}
}

// Locate returns the statement files for folder when given, otherwise for the
// newest complete snapshot of ticker. Every failure is the same UnavailableError.
func (l *Locator) Locate(ticker, folder string) (Paths, error) {
	switch {
	case folder != "":
		p := pathsIn(folder)
		if !p.complete() {
			return Paths{}, &UnavailableError{Message: NotFoundMessage}
		}
		return p, nil
	case strings.TrimSpace(ticker) != "":
		return l.latest(strings.ToUpper(strings.TrimSpace(ticker)))
	default:
		return Paths{}, &UnavailableError{Message: NotFoundMessage}
	}
}

func (l *Locator) latest(ticker string) (Paths, error) {
	dir := filepath.Join(l.DataRoot, ticker)
	entries, err := os.ReadDir(dir)
	if err != nil {
		log.Debug().Str("ticker", ticker).Err(err).Msg("[LOCATOR] ticker directory not readable")
		return Paths{}, &UnavailableError{Message: NotFoundMessage}
	}

	var subs []string
	for _, e := range entries {
		// dot folders are in-progress fetches
		if e.IsDir() && !strings.HasPrefix(e.Name(), ".") {
			subs = append(subs, e.Name())
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(subs)))

	for _, name := range subs {
		p := pathsIn(filepath.Join(dir, name))
		if p.complete() {
			return p, nil
		}
		log.Debug().Str("ticker", ticker).Str("folder", name).Msg("[LOCATOR] skipping incomplete snapshot")
	}
	return Paths{}, &UnavailableError{Message: NotFoundMessage}
}

func pathsIn(folder string) Paths {
	return Paths{
		Folder:   folder,
		Income:   filepath.Join(folder, IncomeFile),
		Balance:  filepath.Join(folder, BalanceFile),
		CashFlow: filepath.Join(folder, CashFlowFile),
	}
}

func (p Paths) complete() bool {
	for _, f := range []string{p.Income, p.Balance, p.CashFlow} {
		info, err := os.Stat(f)
		if err != nil || info.IsDir() {
			return false
		}
	}
	return true
}

// Load reads the three raw statements.
func Load(p Paths) (*RawSet, error) {
	income, err := ReadRawCSVFile(p.Income)
	if err != nil {
		return nil, err
	}
	balance, err := ReadRawCSVFile(p.Balance)
	if err != nil {
		return nil, err
	}
	cashFlow, err := ReadRawCSVFile(p.CashFlow)
	if err != nil {
		return nil, err
	}
	return &RawSet{Income: income, Balance: balance, CashFlow: cashFlow}, nil
}

// Standardize locates, loads and normalizes one data set. Failures are carried in
// the result rather than returned, so callers surface them through Ensure.
func Standardize(l *Locator, aliases *AliasTable, ticker, folder string) *Standardized {
	paths, err := l.Locate(ticker, folder)
	if err != nil {
		return FromError(err.Error())
	}
	raw, err := Load(paths)
	if err != nil {
		log.Error().Err(err).Str("folder", paths.Folder).Msg("[LOCATOR] failed to read statements")
		return FromError("could not read statements: " + err.Error())
	}
	return Normalize(aliases, raw.Income, raw.Balance, raw.CashFlow)
}
