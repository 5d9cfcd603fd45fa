package valuation

import "fmt"

// WACCInput parameters for estimating a discount rate.
type WACCInput struct {
	UnleveredBeta     float64 `json:"unlevered_beta" validate:"gte=0"`
	RiskFreeRate      float64 `json:"risk_free_rate"`
	MarketRiskPremium float64 `json:"market_risk_premium" validate:"gte=0"`
	PreTaxCostOfDebt  float64 `json:"pre_tax_cost_of_debt" validate:"gte=0"`
	TaxRate           float64 `json:"tax_rate" validate:"gte=0,lt=1"`
	DebtToEquityRatio float64 `json:"debt_to_equity" validate:"gte=0"` // Target leverage (D/E)
}

// WACCResult holds the calculated rates
type WACCResult struct {
	LeveredBeta  float64 `json:"levered_beta"`
	CostOfEquity float64 `json:"cost_of_equity"`
	CostOfDebt   float64 `json:"cost_of_debt"` // After-tax
	WACC         float64 `json:"wacc"`
	WeightDebt   float64 `json:"weight_debt"`
	WeightEquity float64 `json:"weight_equity"`
}

// CalculateWACC computes the weighted average cost of capital with CAPM and the
// Hamada re-levering of beta. The result can feed DCFParams.WACC.
func CalculateWACC(input WACCInput) (WACCResult, error) {
	if err := validate.Struct(input); err != nil {
		return WACCResult{}, fmt.Errorf("%w: %v", ErrInvalidParams, err)
	}

	// BetaL = BetaU * (1 + (1-t)*(D/E))
	leveredBeta := input.UnleveredBeta * (1 + (1-input.TaxRate)*input.DebtToEquityRatio)

	// Ke = Rf + BetaL * ERP
	ke := input.RiskFreeRate + leveredBeta*input.MarketRiskPremium

	kd := input.PreTaxCostOfDebt * (1 - input.TaxRate)

	// D/E = x  =>  Wd = x/(1+x), We = 1/(1+x)
	wd := input.DebtToEquityRatio / (1 + input.DebtToEquityRatio)
	we := 1.0 / (1 + input.DebtToEquityRatio)

	return WACCResult{
		LeveredBeta:  leveredBeta,
		CostOfEquity: ke,
		CostOfDebt:   kd,
		WACC:         ke*we + kd*wd,
		WeightDebt:   wd,
		WeightEquity: we,
	}, nil
}
