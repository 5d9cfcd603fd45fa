package statements

import (
	"slices"

	"github.com/phuslu/log"
)

// Normalize maps the three raw vendor statements onto the canonical schema.
//
// The period list is taken verbatim from the income statement. Balance sheet and
// cash flow values are placed by period label, so a statement whose columns are
// ordered differently still lines up; periods it lacks stay Missing. Items no
// alias resolves stay Missing. Normalize never fails on missing items.
func Normalize(aliases *AliasTable, income, balance, cashFlow *RawTable) *Standardized {
	if aliases == nil {
		aliases = DefaultAliases
	}
	var periods []string
	if income != nil {
		periods = append([]string(nil), income.Periods...)
	}

	for _, other := range []struct {
		kind StatementKind
		raw  *RawTable
	}{{KindBalance, balance}, {KindCashFlow, cashFlow}} {
		if other.raw != nil && !slices.Equal(other.raw.Periods, periods) {
			log.Warn().Str("statement", string(other.kind)).
				Strs("periods", other.raw.Periods).
				Strs("income_periods", periods).
				Msg("[NORMALIZE] period headers differ from income statement, aligning by label")
		}
	}

	return &Standardized{
		Income:   buildCanonical(aliases, KindIncome, income, periods),
		Balance:  buildCanonical(aliases, KindBalance, balance, periods),
		CashFlow: buildCanonical(aliases, KindCashFlow, cashFlow, periods),
		Periods:  periods,
	}
}

func buildCanonical(aliases *AliasTable, kind StatementKind, raw *RawTable, periods []string) *CanonicalTable {
	items := Schema[kind]
	table := &CanonicalTable{
		Kind:    kind,
		Periods: periods,
		Rows:    make([]CanonicalRow, len(items)),
	}

	index := make(map[string]int)
	if raw != nil {
		for i, p := range raw.Periods {
			if _, dup := index[p]; !dup {
				index[p] = i
			}
		}
	}

	for i, item := range items {
		row := CanonicalRow{Item: item, Values: MissingSeries(len(periods))}
		if values, ok := aliases.Resolve(raw, item); ok {
			for j, p := range periods {
				if k, found := index[p]; found && k < len(values) {
					row.Values[j] = values[k]
				}
			}
		} else {
			log.Debug().Str("statement", string(kind)).Str("item", string(item)).Msg("[NORMALIZE] no alias matched")
		}
		table.Rows[i] = row
	}
	return table
}
