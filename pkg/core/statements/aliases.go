package statements

import (
	"fmt"
	"os"
	"strings"

	hjson "github.com/hjson/hjson-go/v4"
)

// StatementKind identifies one of the three statements.
type StatementKind string

const (
	KindIncome   StatementKind = "income_statement"
	KindBalance  StatementKind = "balance_sheet"
	KindCashFlow StatementKind = "cash_flow"
)

// CanonicalItem is a normalized line-item name.
type CanonicalItem string

const (
	// Income statement
	TotalRevenue     CanonicalItem = "Total Revenue"
	CostOfRevenue    CanonicalItem = "Cost of Revenue"
	GrossProfit      CanonicalItem = "Gross Profit"
	OperatingExpense CanonicalItem = "Operating Expense"
	OperatingIncome  CanonicalItem = "Operating Income"
	EBITDA           CanonicalItem = "EBITDA"
	NetIncome        CanonicalItem = "Net Income"

	// Balance sheet
	TotalAssets      CanonicalItem = "Total Assets"
	TotalLiabilities CanonicalItem = "Total Liabilities"
	TotalEquity      CanonicalItem = "Total Equity"
	CashAndSTInvest  CanonicalItem = "Cash & ST Investments"
	ShortTermDebt    CanonicalItem = "Short Term Debt"
	LongTermDebt     CanonicalItem = "Long Term Debt"

	// Cash flow
	CFO          CanonicalItem = "CFO"
	CFI          CanonicalItem = "CFI"
	CFF          CanonicalItem = "CFF"
	Capex        CanonicalItem = "Capex"
	Depreciation CanonicalItem = "Depreciation"
)

// Schema lists the canonical rows of each statement, in output order.
var Schema = map[StatementKind][]CanonicalItem{
	KindIncome:   {TotalRevenue, CostOfRevenue, GrossProfit, OperatingExpense, OperatingIncome, EBITDA, NetIncome},
	KindBalance:  {TotalAssets, TotalLiabilities, TotalEquity, CashAndSTInvest, ShortTermDebt, LongTermDebt},
	KindCashFlow: {CFO, CFI, CFF, Capex, Depreciation},
}

// AliasTable maps each canonical item to the vendor labels known to denote it.
// The first alias is the most preferred. Tables are never mutated after construction.
type AliasTable struct {
	aliases map[CanonicalItem][]string
}

// DefaultAliases covers the labels used by the market-data provider and its
// common CSV exports.
var DefaultAliases = NewAliasTable(map[CanonicalItem][]string{
	TotalRevenue:     {"Total Revenue", "TotalRevenue", "Revenue"},
	CostOfRevenue:    {"Cost of Revenue", "CostOfRevenue"},
	GrossProfit:      {"Gross Profit", "GrossProfit"},
	OperatingExpense: {"Total Operating Expenses", "OperatingExpense", "Operating Expenses"},
	OperatingIncome:  {"Operating Income", "OperatingIncome"},
	NetIncome:        {"Net Income", "NetIncome", "Net Income Common Stockholders", "Net Income Applicable To Common Shares"},
	EBITDA:           {"EBITDA", "Ebitda"},
	TotalAssets:      {"Total Assets", "TotalAssets"},
	TotalLiabilities: {"Total Liabilities", "TotalLiabilitiesNetMinorityInterest", "Total Liabilities Net Minority Interest", "TotalLiabilities"},
	TotalEquity:      {"Total Stockholder Equity", "Total Equity Gross Minority Interest", "Total Equity"},
	CashAndSTInvest:  {"Cash And Cash Equivalents", "Cash And Cash Equivalents And Short Term Investments"},
	ShortTermDebt:    {"Short Long Term Debt", "Short Term Debt", "Short Term Borrowings"},
	LongTermDebt:     {"Long Term Debt", "LongTermDebt"},
	CFO:              {"Operating Cash Flow", "Total Cash From Operating Activities"},
	CFI:              {"Investing Cash Flow", "Total Cashflows From Investing Activities", "Net Cash Used For Investing Activities"},
	CFF:              {"Financing Cash Flow", "Total Cash From Financing Activities", "Net Cash Provided By (Used In) Financing Activities"},
	Capex:            {"Capital Expenditure", "Capital Expenditures"},
	Depreciation:     {"Depreciation", "Reconciled Depreciation"},
})

// NewAliasTable copies m into a new table.
func NewAliasTable(m map[CanonicalItem][]string) *AliasTable {
	t := &AliasTable{aliases: make(map[CanonicalItem][]string, len(m))}
	for item, list := range m {
		t.aliases[item] = append([]string(nil), list...)
	}
	return t
}

// Aliases returns a copy of the alias list for item. Items without configured
// aliases resolve by their own name.
func (t *AliasTable) Aliases(item CanonicalItem) []string {
	list, ok := t.aliases[item]
	if !ok || len(list) == 0 {
		return []string{string(item)}
	}
	return append([]string(nil), list...)
}

// Extend returns a new table where extra aliases are appended after the existing
// ones, so configured defaults keep precedence. Duplicates are dropped.
func (t *AliasTable) Extend(extra map[CanonicalItem][]string) *AliasTable {
	out := NewAliasTable(t.aliases)
	for item, list := range extra {
		seen := make(map[string]bool)
		for _, a := range out.aliases[item] {
			seen[strings.ToLower(a)] = true
		}
		for _, a := range list {
			a = strings.TrimSpace(a)
			if a == "" || seen[strings.ToLower(a)] {
				continue
			}
			seen[strings.ToLower(a)] = true
			out.aliases[item] = append(out.aliases[item], a)
		}
	}
	return out
}

// Resolve finds the raw row denoting item and returns its values, keyed by the
// raw table's own periods. The exact pass (trimmed, case-insensitive) runs over
// every alias before the substring pass, and within each pass earlier aliases win.
func (t *AliasTable) Resolve(raw *RawTable, item CanonicalItem) (Series, bool) {
	if raw.Empty() {
		return nil, false
	}
	aliases := t.Aliases(item)

	for _, alias := range aliases {
		want := strings.ToLower(alias)
		for _, row := range raw.Rows {
			if strings.ToLower(strings.TrimSpace(row.Label)) == want {
				return row.Values, true
			}
		}
	}
	for _, alias := range aliases {
		want := strings.ToLower(alias)
		for _, row := range raw.Rows {
			if strings.Contains(strings.ToLower(row.Label), want) {
				return row.Values, true
			}
		}
	}
	return nil, false
}

// LoadAliasOverrides reads an HJSON file of the form
//
//	{
//	  # canonical item: extra vendor labels
//	  "Net Income": ["Profit Attributable To Owners"]
//	}
//
// Unknown canonical names are rejected.
func LoadAliasOverrides(path string) (map[CanonicalItem][]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read alias overrides: %w", err)
	}
	var raw map[string][]string
	if err := hjson.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse alias overrides %s: %w", path, err)
	}

	known := make(map[CanonicalItem]bool)
	for _, items := range Schema {
		for _, it := range items {
			known[it] = true
		}
	}

	out := make(map[CanonicalItem][]string, len(raw))
	for name, list := range raw {
		item := CanonicalItem(name)
		if !known[item] {
			return nil, fmt.Errorf("alias overrides %s: unknown canonical item %q", path, name)
		}
		out[item] = list
	}
	return out, nil
}
