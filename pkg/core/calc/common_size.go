package calc

import (
	"finstat/pkg/core/statements"
)

// CommonSizeStatements expresses every income line as a percentage of revenue and
// every balance line as a percentage of total assets, each period on its own base.
func CommonSizeStatements(std *statements.Standardized) (*CommonSize, error) {
	if err := std.Ensure(); err != nil {
		return nil, err
	}
	return &CommonSize{
		IncomeStatement: commonSize(std.Income, statements.TotalRevenue),
		BalanceSheet:    commonSize(std.Balance, statements.TotalAssets),
	}, nil
}

func commonSize(table *statements.CanonicalTable, base statements.CanonicalItem) *DerivedTable {
	denominator := table.Get(base)
	out := newTable(table.Periods)
	for _, r := range table.Rows {
		out.add(string(r.Item), r.Values.Div(denominator).Scale(100).Round(RatioPlaces))
	}
	return out
}
