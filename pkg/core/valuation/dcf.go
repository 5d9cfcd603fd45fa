package valuation

import (
	"errors"
	"fmt"
	"math"

	"finstat/pkg/core/statements"

	"github.com/go-playground/validator/v10"
	"github.com/phuslu/log"
)

// FallbackGrowth is assumed when historical growth cannot be computed.
const FallbackGrowth = 0.05

// DefaultForecastYears is used by callers that leave the horizon unset.
const DefaultForecastYears = 5

// ErrInvalidParams wraps every DCF parameter validation failure.
var ErrInvalidParams = errors.New("invalid valuation parameters")

var validate = validator.New()

// DCFParams are the caller-supplied valuation assumptions.
type DCFParams struct {
	WACC           float64 `json:"wacc" validate:"gt=0"`
	TerminalGrowth float64 `json:"terminal_growth"`
	ForecastYears  int     `json:"forecast_years" validate:"gte=1,lte=100"`
	// Missing when the caller did not supply a share count.
	SharesOutstanding statements.Value `json:"shares_outstanding"`
}

// Validate checks the parameters and wraps any failure in ErrInvalidParams.
func (p DCFParams) Validate() error {
	if err := validate.Struct(p); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidParams, err)
	}
	if math.IsNaN(p.WACC) || math.IsInf(p.WACC, 0) || math.IsNaN(p.TerminalGrowth) || math.IsInf(p.TerminalGrowth, 0) {
		return fmt.Errorf("%w: rates must be finite", ErrInvalidParams)
	}
	return nil
}

// DCFResult holds the valuation outputs
type DCFResult struct {
	BaseFCF         float64          `json:"base_fcf"`
	AssumedGrowth   float64          `json:"assumed_growth"`
	GrowthFallback  bool             `json:"growth_fallback"`
	WACC            float64          `json:"wacc"`
	TerminalGrowth  float64          `json:"terminal_growth"`
	ForecastYears   int              `json:"forecast_years"`
	FCFs            []float64        `json:"fcfs"`
	PVFCFs          []float64        `json:"pv_fcfs"`
	TerminalValue   statements.Value `json:"terminal_value"`
	PVTerminalValue float64          `json:"pv_terminal_value"`
	EnterpriseValue float64          `json:"enterprise_value"`
	NetDebt         float64          `json:"net_debt"`
	EquityValue     float64          `json:"equity_value"`
	Shares          statements.Value `json:"shares_outstanding"`
	PriceTarget     statements.Value `json:"price_target"`
}

// SimpleDCF values the company from its standardized statements.
// Base FCF, net debt and the growth assumption come from the latest reported periods.
func SimpleDCF(std *statements.Standardized, params DCFParams) (*DCFResult, error) {
	if err := std.Ensure(); err != nil {
		return nil, err
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}

	cfo := latest(std.CashFlow, statements.CFO)
	capex := latest(std.CashFlow, statements.Capex)
	base := cfo - capex

	growth, fallback := AssumedGrowth(std)
	if fallback {
		log.Debug().Float64("growth", growth).Msg("[VALUATION] using fallback growth")
	}

	cash := latest(std.Balance, statements.CashAndSTInvest)
	longDebt := latest(std.Balance, statements.LongTermDebt)
	shortDebt := latest(std.Balance, statements.ShortTermDebt)
	netDebt := longDebt + shortDebt - cash

	res, err := ProjectDCF(base, growth, params, netDebt)
	if err != nil {
		return nil, err
	}
	res.GrowthFallback = fallback
	return res, nil
}

// AssumedGrowth averages the latest revenue and net income YoY growth.
// It reports true and FallbackGrowth when either cannot be computed.
func AssumedGrowth(std *statements.Standardized) (float64, bool) {
	if std == nil || !std.OK() || len(std.Periods) < 2 {
		return FallbackGrowth, true
	}
	g1, ok1 := std.Income.Get(statements.TotalRevenue).Growth()[0].Float()
	g2, ok2 := std.Income.Get(statements.NetIncome).Growth()[0].Float()
	if !ok1 || !ok2 {
		return FallbackGrowth, true
	}
	g := (g1 + g2) / 2
	if math.IsNaN(g) || math.IsInf(g, 0) {
		return FallbackGrowth, true
	}
	return g, false
}

// ProjectDCF compounds base FCF at growth for params.ForecastYears and discounts
// each year at WACC. The Gordon terminal value is only defined when WACC exceeds
// terminal growth; otherwise it is Missing and contributes nothing to EV.
// A projection that overflows to a non-finite value is rejected with ErrInvalidParams.
func ProjectDCF(base, growth float64, params DCFParams, netDebt float64) (*DCFResult, error) {
	n := params.ForecastYears
	if n < 1 {
		return nil, fmt.Errorf("%w: forecast years must be at least 1, got %d", ErrInvalidParams, n)
	}
	res := &DCFResult{
		BaseFCF:        base,
		AssumedGrowth:  growth,
		WACC:           params.WACC,
		TerminalGrowth: params.TerminalGrowth,
		ForecastYears:  n,
		FCFs:           make([]float64, n),
		PVFCFs:         make([]float64, n),
		TerminalValue:  statements.Missing,
		NetDebt:        netDebt,
		Shares:         params.SharesOutstanding,
		PriceTarget:    statements.Missing,
	}

	var pvSum float64
	for t := 1; t <= n; t++ {
		fcf := base * math.Pow(1+growth, float64(t))
		pv := fcf / math.Pow(1+params.WACC, float64(t))
		if !finite(fcf) || !finite(pv) {
			return nil, fmt.Errorf("%w: projection is not finite in year %d (growth %g)", ErrInvalidParams, t, growth)
		}
		res.FCFs[t-1] = fcf
		res.PVFCFs[t-1] = pv
		pvSum += pv
	}

	// Terminal Value (Gordon Growth)
	if params.WACC > params.TerminalGrowth {
		tv := res.FCFs[n-1] * (1 + params.TerminalGrowth) / (params.WACC - params.TerminalGrowth)
		pvTV := tv / math.Pow(1+params.WACC, float64(n))
		if !finite(tv) || !finite(pvTV) {
			return nil, fmt.Errorf("%w: terminal value is not finite (growth %g)", ErrInvalidParams, growth)
		}
		res.TerminalValue = statements.Num(tv)
		res.PVTerminalValue = pvTV
	}

	res.EnterpriseValue = pvSum + res.PVTerminalValue
	res.EquityValue = res.EnterpriseValue - netDebt
	if !finite(res.EnterpriseValue) || !finite(res.EquityValue) {
		return nil, fmt.Errorf("%w: enterprise value is not finite (growth %g)", ErrInvalidParams, growth)
	}

	if shares, ok := params.SharesOutstanding.Float(); ok && shares != 0 {
		res.PriceTarget = statements.Num(res.EquityValue / shares)
	}
	return res, nil
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// latest returns the most recent present value of item, or 0.
func latest(t *statements.CanonicalTable, item statements.CanonicalItem) float64 {
	v, _ := t.Get(item).Latest()
	return v.Or(0)
}
