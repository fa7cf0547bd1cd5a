// Package economics derives a techno-economic analysis from extracted
// flowsheet records: factor-based capital costs, annual operating costs and
// the standard financial metrics.
package economics

import (
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"teacli/internal/config"
	"teacli/pkg/contracts/domain"
)

// Heat-exchanger purchase-cost correlation: base plus an area term with a
// 0.7 scale exponent, adjusted per construction type.
const (
	hexBaseCostUSD   = 15000.0
	hexAreaCoeffUSD  = 800.0
	hexAreaExponent  = 0.7
	plateMultiplier  = 1.2
	airMultiplier    = 0.8
	defaultHexAreaM2 = 100.0
)

const (
	flatEquipmentCostUSD = 100000.0

	laborCapexRate   = 0.03
	laborFloorUSD    = 500000.0
	operatorsShare   = 0.60
	supervisionShare = 0.30
	adminShare       = 0.10
	maintenanceRate  = 0.04
	insuranceRate    = 0.01

	gjPerKWh = 0.0036
	// Cooling water volume per kWh of rejected heat at a 10 K rise.
	coolingWaterM3PerKWh = 0.0861
)

// Analyzer computes an EconomicsResult from session records and the
// configured cost factors.
type Analyzer struct {
	cfg    config.EconomicsConfig
	logger *slog.Logger
}

func NewAnalyzer(cfg config.EconomicsConfig, logger *slog.Logger) *Analyzer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Analyzer{cfg: cfg, logger: logger}
}

// Analyze builds the full analysis. vendorCosts, typically parsed from a
// cost-estimate file, override the flat equipment estimate for same-named
// units; pass nil when none are available.
func (a *Analyzer) Analyze(projectName string,
	streams []domain.StreamRecord,
	equipment []domain.EquipmentRecord,
	hexes []domain.HeatExchangerRecord,
	vendorCosts []domain.CostItem) *domain.EconomicsResult {

	res := &domain.EconomicsResult{
		ProjectName: projectName,
		GeneratedAt: time.Now().UTC(),
	}

	vendor := make(map[string]domain.CostItem, len(vendorCosts))
	for _, item := range vendorCosts {
		vendor[strings.ToLower(item.Name)] = item
		res.DataSources = append(res.DataSources, fmt.Sprintf("vendor estimate: %s", item.Name))
	}

	a.buildCapex(res, equipment, hexes, vendor)
	a.buildOpex(res, streams, equipment, hexes)

	res.Financial = domain.FinancialParameters{
		DiscountRate:     a.cfg.DiscountRate,
		TaxRate:          a.cfg.TaxRate,
		ProjectLifeYears: a.cfg.ProjectLifeYears,
		AnnualRevenue:    res.AnnualOpex * a.cfg.RevenueFactor,
	}
	res.EstimationMethods = append(res.EstimationMethods,
		fmt.Sprintf("annual revenue assumed at %.1fx annual OPEX", a.cfg.RevenueFactor))

	res.NPV = res.Financial.NPV(res.TotalCapex, res.AnnualOpex)
	res.PaybackYears = res.Financial.Payback(res.TotalCapex, res.AnnualOpex)
	if irr, ok := internalRateOfReturn(res.TotalCapex, res.Financial, res.AnnualOpex); ok {
		res.IRR = irr
	} else {
		res.EstimationMethods = append(res.EstimationMethods, "IRR not computable for a non-positive cash flow")
	}

	a.logger.Info("economic analysis complete",
		slog.String("project", projectName),
		slog.Float64("total_capex", res.TotalCapex),
		slog.Float64("annual_opex", res.AnnualOpex),
		slog.Float64("npv", res.NPV))
	return res
}

func (a *Analyzer) buildCapex(res *domain.EconomicsResult,
	equipment []domain.EquipmentRecord,
	hexes []domain.HeatExchangerRecord,
	vendor map[string]domain.CostItem) {

	hexNames := make(map[string]bool, len(hexes))
	var equipmentTotal float64

	for _, hx := range hexes {
		hexNames[strings.ToLower(hx.Name)] = true
		cost, method := a.hexCost(hx, vendor)
		res.Capex = append(res.Capex, domain.CostItem{
			Name:     hx.Name,
			Category: domain.CostEquipment,
			BaseCost: cost,
			Method:   method,
		})
		equipmentTotal += cost
	}

	for _, eq := range equipment {
		// Exchanger blocks already costed through their detail records.
		if eq.Type == domain.EquipmentHeatX && hexNames[strings.ToLower(eq.Name)] {
			continue
		}
		cost := flatEquipmentCostUSD
		method := "flat estimate"
		if item, ok := vendor[strings.ToLower(eq.Name)]; ok {
			cost = item.BaseCost
			method = "vendor estimate"
		}
		res.Capex = append(res.Capex, domain.CostItem{
			Name:     eq.Name,
			Category: domain.CostEquipment,
			BaseCost: cost,
			Method:   method,
		})
		equipmentTotal += cost
	}

	installation := equipmentTotal * a.cfg.InstallationFactor
	res.Capex = append(res.Capex, domain.CostItem{
		Name:     "Installation",
		Category: domain.CostInstallation,
		BaseCost: installation,
		Method:   fmt.Sprintf("%.0f%% of purchased equipment", a.cfg.InstallationFactor*100),
	})

	direct := equipmentTotal + installation
	res.Capex = append(res.Capex,
		domain.CostItem{Name: "Engineering & Design", Category: domain.CostEngineering,
			BaseCost: direct * a.cfg.EngineeringRate, Method: rateMethod(a.cfg.EngineeringRate, "direct costs")},
		domain.CostItem{Name: "Construction", Category: domain.CostConstruction,
			BaseCost: direct * a.cfg.ConstructionRate, Method: rateMethod(a.cfg.ConstructionRate, "direct costs")},
		domain.CostItem{Name: "Contingency", Category: domain.CostContingency,
			BaseCost: direct * a.cfg.ContingencyRate, Method: rateMethod(a.cfg.ContingencyRate, "direct costs")},
	)

	for _, item := range res.Capex {
		res.TotalCapex += item.BaseCost
	}
	res.EstimationMethods = append(res.EstimationMethods,
		fmt.Sprintf("purchased equipment cost %.0f USD across %d units", equipmentTotal, len(hexes)+len(equipment)))
}

// hexCost prices one exchanger from its area; vendor figures win when
// available. A record without an area falls back to a nominal area.
func (a *Analyzer) hexCost(hx domain.HeatExchangerRecord, vendor map[string]domain.CostItem) (float64, string) {
	if item, ok := vendor[strings.ToLower(hx.Name)]; ok {
		return item.BaseCost, "vendor estimate"
	}

	area := defaultHexAreaM2
	method := "area correlation (nominal area)"
	if hx.AreaM2 != nil {
		area = *hx.AreaM2
		method = "area correlation"
	}

	cost := hexBaseCostUSD + hexAreaCoeffUSD*math.Pow(area, hexAreaExponent)
	kind := strings.ToLower(hx.Kind)
	switch {
	case strings.Contains(kind, "plate"):
		cost *= plateMultiplier
	case strings.Contains(kind, "air"):
		cost *= airMultiplier
	}
	return cost, method
}

func (a *Analyzer) buildOpex(res *domain.EconomicsResult,
	streams []domain.StreamRecord,
	equipment []domain.EquipmentRecord,
	hexes []domain.HeatExchangerRecord) {

	hours := a.cfg.AnnualOperatingHours

	var feedKgPerH float64
	for _, s := range streams {
		if s.Category == domain.CategoryFeed {
			feedKgPerH += s.MassFlow
		}
	}
	if feedKgPerH > 0 {
		res.Opex = append(res.Opex, domain.CostItem{
			Name:     "Raw Materials",
			Category: domain.CostRawMaterials,
			BaseCost: feedKgPerH * hours * a.cfg.RawMaterialPriceUSDPerKg,
			Method:   "feed mass flow x operating hours",
		})
	}

	var heatingKW, coolingKW float64
	for _, hx := range hexes {
		if hx.DutyKW == nil {
			continue
		}
		if *hx.DutyKW >= 0 {
			heatingKW += *hx.DutyKW
		} else {
			coolingKW += -*hx.DutyKW
		}
	}
	if heatingKW > 0 {
		res.Opex = append(res.Opex, domain.CostItem{
			Name:     "Steam",
			Category: domain.CostUtilities,
			BaseCost: heatingKW * hours * gjPerKWh * a.cfg.SteamPriceUSDPerGJ,
			Method:   "heating duty x steam price",
		})
	}
	if coolingKW > 0 {
		res.Opex = append(res.Opex, domain.CostItem{
			Name:     "Cooling Water",
			Category: domain.CostUtilities,
			BaseCost: coolingKW * hours * coolingWaterM3PerKWh * a.cfg.CoolingWaterPriceUSDPerM3,
			Method:   "cooling duty x water price",
		})
	}

	var electricityKW float64
	for _, eq := range equipment {
		if eq.Type == domain.EquipmentCompressor || eq.Type == domain.EquipmentPump {
			electricityKW += eq.Parameter("WNET", 0)
		}
	}
	if electricityKW > 0 {
		res.Opex = append(res.Opex, domain.CostItem{
			Name:     "Electricity",
			Category: domain.CostUtilities,
			BaseCost: electricityKW * hours * a.cfg.ElectricityPriceUSDPerKWh,
			Method:   "shaft power x electricity price",
		})
	}

	labor := math.Max(laborCapexRate*res.TotalCapex, laborFloorUSD)
	res.Opex = append(res.Opex,
		domain.CostItem{Name: "Operators", Category: domain.CostLabor,
			BaseCost: labor * operatorsShare, Method: "labor pool split"},
		domain.CostItem{Name: "Supervision", Category: domain.CostLabor,
			BaseCost: labor * supervisionShare, Method: "labor pool split"},
		domain.CostItem{Name: "Administration", Category: domain.CostLabor,
			BaseCost: labor * adminShare, Method: "labor pool split"},
		domain.CostItem{Name: "Maintenance", Category: domain.CostMaintenance,
			BaseCost: maintenanceRate * res.TotalCapex, Method: rateMethod(maintenanceRate, "CAPEX")},
		domain.CostItem{Name: "Insurance", Category: domain.CostInsurance,
			BaseCost: insuranceRate * res.TotalCapex, Method: rateMethod(insuranceRate, "CAPEX")},
	)

	for _, item := range res.Opex {
		res.AnnualOpex += item.BaseCost
	}
}

func rateMethod(rate float64, base string) string {
	return fmt.Sprintf("%.0f%% of %s", rate*100, base)
}

// internalRateOfReturn solves NPV(rate) = 0 by bisection. Reports false when
// the after-tax cash flow cannot repay the investment at any positive rate.
func internalRateOfReturn(totalCapex float64, fin domain.FinancialParameters, annualOpex float64) (float64, bool) {
	if totalCapex <= 0 {
		return 0, false
	}
	npvAt := func(rate float64) float64 {
		p := fin
		p.DiscountRate = rate
		return p.NPV(totalCapex, annualOpex)
	}

	lo, hi := 0.0, 10.0
	if npvAt(lo) <= 0 {
		return 0, false
	}
	for i := 0; i < 100; i++ {
		mid := (lo + hi) / 2
		if npvAt(mid) > 0 {
			lo = mid
		} else {
			hi = mid
		}
	}
	return (lo + hi) / 2, true
}
