package statements

import (
	"encoding/json"
	"errors"
)

// =============================================================================
// RAW (VENDOR) TABLES
// =============================================================================

// RawRow is one vendor line item. Labels are free text and not unique across vendors.
type RawRow struct {
	Label  string
	Values Series
}

// RawTable is a vendor statement: one row per account label, one column per period.
// Periods are ordered most recent first.
type RawTable struct {
	Periods []string
	Rows    []RawRow
}

// Empty reports whether the table has no rows.
func (t *RawTable) Empty() bool {
	return t == nil || len(t.Rows) == 0
}

// RawSet groups the three raw statements of one company.
type RawSet struct {
	Income   *RawTable
	Balance  *RawTable
	CashFlow *RawTable
}

// =============================================================================
// CANONICAL TABLES
// =============================================================================

// CanonicalRow holds the values of one canonical item.
type CanonicalRow struct {
	Item   CanonicalItem `json:"item"`
	Values Series        `json:"values"`
}

// CanonicalTable always carries exactly the canonical rows of its kind, in order.
type CanonicalTable struct {
	Kind    StatementKind  `json:"kind"`
	Periods []string       `json:"periods"`
	Rows    []CanonicalRow `json:"rows"`
}

// Get returns the series for item, or an all-missing series if the item is not
// part of this table.
func (t *CanonicalTable) Get(item CanonicalItem) Series {
	for _, r := range t.Rows {
		if r.Item == item {
			return r.Values
		}
	}
	return MissingSeries(len(t.Periods))
}

// AsMap renders the table as item -> period -> value.
func (t *CanonicalTable) AsMap() map[string]map[string]Value {
	out := make(map[string]map[string]Value, len(t.Rows))
	for _, r := range t.Rows {
		out[string(r.Item)] = r.Values.ToMap(t.Periods)
	}
	return out
}

// =============================================================================
// STANDARDIZED STATEMENTS
// =============================================================================

// ErrDataUnavailable is matched (errors.Is) by every error that reports a
// missing statement set.
var ErrDataUnavailable = errors.New("statement data unavailable")

// UnavailableError carries the human-readable reason a statement set is missing.
type UnavailableError struct {
	Message string
}

func (e *UnavailableError) Error() string { return e.Message }

func (e *UnavailableError) Is(target error) bool { return target == ErrDataUnavailable }

// Standardized is either the three canonical statements plus their periods, or an
// error message and no tables.
type Standardized struct {
	Income   *CanonicalTable
	Balance  *CanonicalTable
	CashFlow *CanonicalTable
	Periods  []string
	Error    string
}

// FromError builds a failed result.
func FromError(message string) *Standardized {
	return &Standardized{Error: message}
}

// OK reports whether tables are present.
func (s *Standardized) OK() bool {
	return s != nil && s.Error == "" && s.Income != nil && s.Balance != nil && s.CashFlow != nil
}

// Ensure returns an UnavailableError when the statements could not be produced.
func (s *Standardized) Ensure() error {
	if s == nil {
		return &UnavailableError{Message: "no statements"}
	}
	if s.OK() {
		return nil
	}
	if s.Error == "" {
		return &UnavailableError{Message: "incomplete statements"}
	}
	return &UnavailableError{Message: s.Error}
}

// MarshalJSON renders the API shape: ok flag, error or the three tables keyed by item.
func (s *Standardized) MarshalJSON() ([]byte, error) {
	if !s.OK() {
		return json.Marshal(struct {
			OK    bool   `json:"ok"`
			Error string `json:"error"`
		}{false, s.Ensure().Error()})
	}
	return json.Marshal(struct {
		OK              bool                        `json:"ok"`
		Periods         []string                    `json:"periods"`
		IncomeStatement map[string]map[string]Value `json:"income_statement"`
		BalanceSheet    map[string]map[string]Value `json:"balance_sheet"`
		CashFlow        map[string]map[string]Value `json:"cash_flow"`
	}{true, s.Periods, s.Income.AsMap(), s.Balance.AsMap(), s.CashFlow.AsMap()})
}
