package calc

import (
	"finstat/pkg/core/statements"

	"github.com/phuslu/log"
)

// =============================================================================
// FINANCIAL ANALYSIS ENGINE
// Every metric is computed per period; a missing or zero denominator gives a
// missing value rather than zero.
// =============================================================================

// Analyze runs ratios, common size, DuPont and growth over one data set.
func Analyze(std *statements.Standardized) (*Analysis, error) {
	ratios, err := Ratios(std)
	if err != nil {
		return nil, err
	}
	cs, err := CommonSizeStatements(std)
	if err != nil {
		return nil, err
	}
	dupont, err := DuPont(std)
	if err != nil {
		return nil, err
	}
	growth, err := Growth(std)
	if err != nil {
		return nil, err
	}
	quality, err := CheckQuality(std)
	if err != nil {
		return nil, err
	}
	log.Debug().Int("periods", len(std.Periods)).Int("warnings", len(quality.Warnings)).Msg("[CALC] analysis complete")
	return &Analysis{
		Periods:    std.Periods,
		Ratios:     ratios,
		CommonSize: cs,
		DuPont:     dupont,
		Growth:     growth,
		Quality:    quality,
	}, nil
}

// =============================================================================
// MARGINS, LEVERAGE, RETURNS
// =============================================================================

// Ratios computes margins, debt to equity, ROA, ROE and free cash flow.
func Ratios(std *statements.Standardized) (*DerivedTable, error) {
	if err := std.Ensure(); err != nil {
		return nil, err
	}
	is, bs := std.Income, std.Balance

	rev := is.Get(statements.TotalRevenue)
	ni := is.Get(statements.NetIncome)
	assets := bs.Get(statements.TotalAssets)
	equity := bs.Get(statements.TotalEquity)
	debt := bs.Get(statements.ShortTermDebt).Add(bs.Get(statements.LongTermDebt))

	out := newTable(std.Periods)
	out.add(GrossMargin, is.Get(statements.GrossProfit).Div(rev).Round(RatioPlaces))
	out.add(OperatingMargin, is.Get(statements.OperatingIncome).Div(rev).Round(RatioPlaces))
	out.add(NetMargin, ni.Div(rev).Round(RatioPlaces))
	out.add(EBITDAMargin, is.Get(statements.EBITDA).Div(rev).Round(RatioPlaces))
	out.add(DebtToEquity, debt.Div(equity).Round(RatioPlaces))
	out.add(ROA, ni.Div(assets).Round(RatioPlaces))
	out.add(ROE, ni.Div(equity).Round(RatioPlaces))
	out.add(FCF, FreeCashFlow(std).Round(AmountPlaces))
	return out, nil
}

// FreeCashFlow is CFO - Capex per period, unrounded. Callers must have checked std.
func FreeCashFlow(std *statements.Standardized) statements.Series {
	return std.CashFlow.Get(statements.CFO).Sub(std.CashFlow.Get(statements.Capex))
}

// =============================================================================
// DUPONT
// =============================================================================

// DuPont decomposes ROE into profit margin, asset turnover and equity multiplier.
// The product is taken over unrounded factors so it reproduces NI / Equity.
func DuPont(std *statements.Standardized) (*DerivedTable, error) {
	if err := std.Ensure(); err != nil {
		return nil, err
	}
	ni := std.Income.Get(statements.NetIncome)
	rev := std.Income.Get(statements.TotalRevenue)
	assets := std.Balance.Get(statements.TotalAssets)
	equity := std.Balance.Get(statements.TotalEquity)

	pm := ni.Div(rev)
	at := rev.Div(assets)
	em := assets.Div(equity)

	out := newTable(std.Periods)
	out.add(ProfitMargin, pm.Round(RatioPlaces))
	out.add(AssetTurnover, at.Round(RatioPlaces))
	out.add(EquityMultiplier, em.Round(RatioPlaces))
	out.add(ROEDuPont, pm.Mul(at).Mul(em).Round(RatioPlaces))
	return out, nil
}

// =============================================================================
// GROWTH
// =============================================================================

// Growth computes year-over-year growth for revenue, net income and total assets.
// The oldest period never has a value.
func Growth(std *statements.Standardized) (*DerivedTable, error) {
	if err := std.Ensure(); err != nil {
		return nil, err
	}
	out := newTable(std.Periods)
	out.add(RevenueYoY, std.Income.Get(statements.TotalRevenue).Growth().Round(RatioPlaces))
	out.add(NetIncomeYoY, std.Income.Get(statements.NetIncome).Growth().Round(RatioPlaces))
	out.add(AssetsYoY, std.Balance.Get(statements.TotalAssets).Growth().Round(RatioPlaces))
	return out, nil
}
