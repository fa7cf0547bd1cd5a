package economics

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"teacli/internal/config"
	"teacli/pkg/contracts/domain"
)

func testAnalyzer() *Analyzer {
	return NewAnalyzer(config.Default().Economics, nil)
}

func floatPtr(v float64) *float64 { return &v }

func TestAnalyze_HexCostCorrelation(t *testing.T) {
	hexes := []domain.HeatExchangerRecord{
		{Name: "E-101", AreaM2: floatPtr(30.2)},
	}

	res := testAnalyzer().Analyze("test", nil, nil, hexes, nil)

	capex := res.CapexByCategory()
	wantEquipment := 15000 + 800*math.Pow(30.2, 0.7)
	assert.InDelta(t, wantEquipment, capex[domain.CostEquipment], 0.01)
	assert.InDelta(t, wantEquipment*0.5, capex[domain.CostInstallation], 0.01)

	direct := wantEquipment * 1.5
	assert.InDelta(t, direct*0.12, capex[domain.CostEngineering], 0.01)
	assert.InDelta(t, direct*0.08, capex[domain.CostConstruction], 0.01)
	assert.InDelta(t, direct*0.15, capex[domain.CostContingency], 0.01)
	assert.InDelta(t, direct*1.35, res.TotalCapex, 0.01)
}

func TestAnalyze_HexKindMultipliers(t *testing.T) {
	a := testAnalyzer()
	base, _ := a.hexCost(domain.HeatExchangerRecord{Name: "E-1", AreaM2: floatPtr(50)}, nil)
	plate, _ := a.hexCost(domain.HeatExchangerRecord{Name: "E-2", AreaM2: floatPtr(50), Kind: "Plate & Frame"}, nil)
	air, _ := a.hexCost(domain.HeatExchangerRecord{Name: "E-3", AreaM2: floatPtr(50), Kind: "Air Cooled"}, nil)

	assert.InDelta(t, base*1.2, plate, 0.01)
	assert.InDelta(t, base*0.8, air, 0.01)
}

func TestAnalyze_MissingAreaUsesNominal(t *testing.T) {
	a := testAnalyzer()
	cost, method := a.hexCost(domain.HeatExchangerRecord{Name: "E-9"}, nil)

	assert.InDelta(t, 15000+800*math.Pow(100, 0.7), cost, 0.01)
	assert.Contains(t, method, "nominal")
}

func TestAnalyze_VendorEstimateWins(t *testing.T) {
	hexes := []domain.HeatExchangerRecord{{Name: "E-101", AreaM2: floatPtr(30.2)}}
	vendor := []domain.CostItem{{Name: "e-101", Category: domain.CostEquipment, BaseCost: 42000}}

	res := testAnalyzer().Analyze("test", nil, nil, hexes, vendor)

	require.NotEmpty(t, res.Capex)
	assert.InDelta(t, 42000, res.Capex[0].BaseCost, 0.01)
	assert.Equal(t, "vendor estimate", res.Capex[0].Method)
}

func TestAnalyze_LaborFloor(t *testing.T) {
	// A tiny plant: 3% of CAPEX is far below the labor floor.
	res := testAnalyzer().Analyze("test", nil, nil,
		[]domain.HeatExchangerRecord{{Name: "E-1", AreaM2: floatPtr(10)}}, nil)

	var labor float64
	for _, item := range res.Opex {
		if item.Category == domain.CostLabor {
			labor += item.BaseCost
		}
	}
	assert.InDelta(t, 500000, labor, 0.01)
}

func TestAnalyze_OpexComposition(t *testing.T) {
	streams := []domain.StreamRecord{
		{Name: "BFG", Category: domain.CategoryFeed, MassFlow: 1000},
		{Name: "MEOH1", Category: domain.CategoryProduct, MassFlow: 500},
	}
	equipment := []domain.EquipmentRecord{
		{Name: "MC1", Type: domain.EquipmentCompressor,
			Parameters: map[string]domain.Parameter{"WNET": {Value: 200, Unit: "kW"}}},
	}
	hexes := []domain.HeatExchangerRecord{
		{Name: "E-1", DutyKW: floatPtr(100)},
		{Name: "E-2", DutyKW: floatPtr(-50)},
	}

	cfg := config.Default().Economics
	res := NewAnalyzer(cfg, nil).Analyze("test", streams, equipment, hexes, nil)
	opex := res.OpexByCategory()

	// Feed only; the product stream never counts as raw material.
	assert.InDelta(t, 1000*cfg.AnnualOperatingHours*cfg.RawMaterialPriceUSDPerKg,
		opex[domain.CostRawMaterials], 0.01)

	wantSteam := 100 * cfg.AnnualOperatingHours * 0.0036 * cfg.SteamPriceUSDPerGJ
	wantCooling := 50 * cfg.AnnualOperatingHours * 0.0861 * cfg.CoolingWaterPriceUSDPerM3
	wantElectricity := 200 * cfg.AnnualOperatingHours * cfg.ElectricityPriceUSDPerKWh
	assert.InDelta(t, wantSteam+wantCooling+wantElectricity, opex[domain.CostUtilities], 0.01)

	assert.InDelta(t, 0.04*res.TotalCapex, opex[domain.CostMaintenance], 0.01)
	assert.InDelta(t, 0.01*res.TotalCapex, opex[domain.CostInsurance], 0.01)
}

func TestAnalyze_FinancialMetrics(t *testing.T) {
	res := testAnalyzer().Analyze("test", nil, nil,
		[]domain.HeatExchangerRecord{{Name: "E-1", AreaM2: floatPtr(30)}}, nil)

	assert.InDelta(t, res.AnnualOpex*1.3, res.Financial.AnnualRevenue, 0.01)
	assert.Greater(t, res.Financial.AnnualRevenue, res.AnnualOpex)
	assert.False(t, math.IsInf(res.PaybackYears, 1))
	assert.Greater(t, res.IRR, 0.0, "a positive margin has a positive IRR")

	// The IRR is the rate at which the NPV crosses zero.
	p := res.Financial
	p.DiscountRate = res.IRR
	assert.InDelta(t, 0, p.NPV(res.TotalCapex, res.AnnualOpex), res.TotalCapex*1e-4)
}

func TestParseCostFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "estimate.txt")
	content := "# vendor quotation 2026-03\n" +
		"E-101: shell and tube exchanger 42,500 USD\n" +
		"RX-1 reactor vessel 250000\n" +
		"note: delivery in 12 weeks\n" +
		"\n" +
		"MC1 compressor package 1,250,000 USD (item 7)\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	items, err := ParseCostFile(path, nil)
	require.NoError(t, err)
	require.Len(t, items, 3)

	assert.Equal(t, "E-101", items[0].Name)
	assert.InDelta(t, 42500, items[0].BaseCost, 0.01)
	assert.Equal(t, "RX-1", items[1].Name)
	assert.InDelta(t, 250000, items[1].BaseCost, 0.01)
	assert.InDelta(t, 1250000, items[2].BaseCost, 0.01, "the largest plausible figure on the line wins")
}

func TestParseCostFile_Missing(t *testing.T) {
	_, err := ParseCostFile(filepath.Join(t.TempDir(), "absent.txt"), nil)
	require.Error(t, err)
}
