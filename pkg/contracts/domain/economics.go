package domain

import (
	"math"
	"time"
)

// CostCategory buckets a cost item for reporting.
type CostCategory string

const (
	CostEquipment    CostCategory = "equipment"
	CostInstallation CostCategory = "installation"
	CostEngineering  CostCategory = "engineering"
	CostConstruction CostCategory = "construction"
	CostContingency  CostCategory = "contingency"
	CostRawMaterials CostCategory = "raw_materials"
	CostUtilities    CostCategory = "utilities"
	CostLabor        CostCategory = "labor"
	CostMaintenance  CostCategory = "maintenance"
	CostInsurance    CostCategory = "insurance"
)

// CostItem is a single named cost contribution, either capital or operating.
type CostItem struct {
	Name     string       `json:"name"`
	Category CostCategory `json:"category"`
	BaseCost float64      `json:"base_cost"` // USD
	Method   string       `json:"method,omitempty"`
}

// FinancialParameters are the assumptions the financial metrics derive from.
type FinancialParameters struct {
	DiscountRate     float64 `json:"discount_rate" validate:"gte=0,lte=1"`
	TaxRate          float64 `json:"tax_rate" validate:"gte=0,lte=1"`
	ProjectLifeYears int     `json:"project_life_years" validate:"gt=0"`
	AnnualRevenue    float64 `json:"annual_revenue"`
}

// NPV discounts the after-tax net cash flow over the project life against the
// initial capital outlay.
func (p FinancialParameters) NPV(totalCapex, annualOpex float64) float64 {
	cashFlow := (p.AnnualRevenue - annualOpex) * (1 - p.TaxRate)
	npv := -totalCapex
	for year := 1; year <= p.ProjectLifeYears; year++ {
		npv += cashFlow / math.Pow(1+p.DiscountRate, float64(year))
	}
	return npv
}

// Payback returns the simple (undiscounted) payback period in years, or +Inf
// when the annual margin is not positive.
func (p FinancialParameters) Payback(totalCapex, annualOpex float64) float64 {
	margin := p.AnnualRevenue - annualOpex
	if margin <= 0 {
		return math.Inf(1)
	}
	return totalCapex / margin
}

// EconomicsResult is the complete outcome of one techno-economic analysis.
// It is derived from cost-factor configuration plus extracted figures and is
// never mutated after computation.
type EconomicsResult struct {
	ProjectName string    `json:"project_name"`
	GeneratedAt time.Time `json:"generated_at"`

	Capex     []CostItem          `json:"capex"`
	Opex      []CostItem          `json:"opex"`
	Financial FinancialParameters `json:"financial"`

	TotalCapex   float64 `json:"total_capex"`
	AnnualOpex   float64 `json:"annual_opex"`
	NPV          float64 `json:"npv"`
	IRR          float64 `json:"irr"`
	PaybackYears float64 `json:"payback_years"`

	DataSources       []string `json:"data_sources,omitempty"`
	EstimationMethods []string `json:"estimation_methods,omitempty"`
}

// CapexByCategory sums capital cost items per category.
func (r *EconomicsResult) CapexByCategory() map[CostCategory]float64 {
	return sumByCategory(r.Capex)
}

// OpexByCategory sums operating cost items per category.
func (r *EconomicsResult) OpexByCategory() map[CostCategory]float64 {
	return sumByCategory(r.Opex)
}

func sumByCategory(items []CostItem) map[CostCategory]float64 {
	totals := make(map[CostCategory]float64, len(items))
	for _, item := range items {
		totals[item.Category] += item.BaseCost
	}
	return totals
}
