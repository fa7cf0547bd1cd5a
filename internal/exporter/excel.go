// Package exporter renders a techno-economic analysis into a multi-sheet
// Excel report.
package exporter

import (
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/xuri/excelize/v2"

	"teacli/internal/config"
	apperrors "teacli/internal/errors"
	"teacli/pkg/contracts/domain"
)

// Report sheet names, written in this order.
const (
	SheetSummary     = "Executive Summary"
	SheetCapex       = "CAPEX Breakdown"
	SheetOpex        = "OPEX Analysis"
	SheetEquipment   = "Equipment Details"
	SheetFinancial   = "Financial Analysis"
	SheetSensitivity = "Sensitivity Analysis"
	SheetParameters  = "Calculation Parameters"
	SheetAssumptions = "Assumptions & Notes"
)

// sensitivitySweep is the relative variation applied to CAPEX and OPEX in
// the sensitivity table.
var sensitivitySweep = []float64{-0.30, -0.15, 0, 0.15, 0.30}

// Exporter writes analysis reports.
type Exporter struct {
	logger *slog.Logger
}

func New(logger *slog.Logger) *Exporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Exporter{logger: logger}
}

type styleSet struct {
	header   int
	currency int
	percent  int
	number   int
}

// Export writes the full report workbook to path.
func (e *Exporter) Export(path string, res *domain.EconomicsResult,
	equipment []domain.EquipmentRecord,
	hexes []domain.HeatExchangerRecord,
	cfg config.EconomicsConfig) error {

	f := excelize.NewFile()
	defer f.Close()

	styles, err := buildStyles(f)
	if err != nil {
		return apperrors.NewParsingError("building report styles failed", err)
	}

	writers := []struct {
		sheet string
		fn    func(*excelize.File, styleSet) error
	}{
		{SheetSummary, func(f *excelize.File, s styleSet) error { return e.writeSummary(f, s, res) }},
		{SheetCapex, func(f *excelize.File, s styleSet) error {
			return e.writeCostSheet(f, s, SheetCapex, res.Capex, res.TotalCapex, "Total CAPEX")
		}},
		{SheetOpex, func(f *excelize.File, s styleSet) error {
			return e.writeCostSheet(f, s, SheetOpex, res.Opex, res.AnnualOpex, "Total Annual OPEX")
		}},
		{SheetEquipment, func(f *excelize.File, s styleSet) error { return e.writeEquipment(f, s, equipment, hexes) }},
		{SheetFinancial, func(f *excelize.File, s styleSet) error { return e.writeFinancial(f, s, res) }},
		{SheetSensitivity, func(f *excelize.File, s styleSet) error { return e.writeSensitivity(f, s, res) }},
		{SheetParameters, func(f *excelize.File, s styleSet) error { return e.writeParameters(f, s, cfg) }},
		{SheetAssumptions, func(f *excelize.File, s styleSet) error { return e.writeAssumptions(f, s, res) }},
	}

	for i, w := range writers {
		if i == 0 {
			if err := f.SetSheetName(f.GetSheetName(0), w.sheet); err != nil {
				return apperrors.NewParsingError("renaming report sheet failed", err)
			}
		} else {
			if _, err := f.NewSheet(w.sheet); err != nil {
				return apperrors.NewParsingError("adding report sheet failed", err).WithContext("sheet", w.sheet)
			}
		}
		if err := w.fn(f, styles); err != nil {
			return apperrors.NewParsingError("writing report sheet failed", err).WithContext("sheet", w.sheet)
		}
	}

	if err := f.SaveAs(path); err != nil {
		return apperrors.NewStorageError("saving report failed", err).WithContext("path", path)
	}
	e.logger.Info("report exported",
		slog.String("path", path),
		slog.String("project", res.ProjectName),
		slog.Int("sheets", len(writers)))
	return nil
}

func buildStyles(f *excelize.File) (styleSet, error) {
	var s styleSet
	var err error

	s.header, err = f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"2F5496"}},
	})
	if err != nil {
		return s, err
	}
	currencyFmt := "#,##0"
	s.currency, err = f.NewStyle(&excelize.Style{CustomNumFmt: &currencyFmt})
	if err != nil {
		return s, err
	}
	percentFmt := "0.0%"
	s.percent, err = f.NewStyle(&excelize.Style{CustomNumFmt: &percentFmt})
	if err != nil {
		return s, err
	}
	numberFmt := "#,##0.00"
	s.number, err = f.NewStyle(&excelize.Style{CustomNumFmt: &numberFmt})
	return s, err
}

func setRow(f *excelize.File, sheet string, row int, values []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	return f.SetSheetRow(sheet, cell, &values)
}

func headerRow(f *excelize.File, sheet string, row int, style int, values []interface{}) error {
	if err := setRow(f, sheet, row, values); err != nil {
		return err
	}
	last, err := excelize.CoordinatesToCellName(len(values), row)
	if err != nil {
		return err
	}
	first, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	return f.SetCellStyle(sheet, first, last, style)
}

func (e *Exporter) writeSummary(f *excelize.File, s styleSet, res *domain.EconomicsResult) error {
	rows := [][]interface{}{
		{"Techno-Economic Analysis", ""},
		{"Project", res.ProjectName},
		{"Generated", res.GeneratedAt.Format(time.RFC3339)},
		{},
		{"Metric", "Value"},
		{"Total CAPEX (USD)", res.TotalCapex},
		{"Annual OPEX (USD/yr)", res.AnnualOpex},
		{"Annual Revenue (USD/yr)", res.Financial.AnnualRevenue},
		{"NPV (USD)", res.NPV},
		{"IRR", res.IRR},
		{"Payback (years)", paybackCell(res.PaybackYears)},
	}
	for i, row := range rows {
		if err := setRow(f, SheetSummary, i+1, row); err != nil {
			return err
		}
	}
	if err := headerRow(f, SheetSummary, 5, s.header, rows[4]); err != nil {
		return err
	}
	if err := f.SetCellStyle(SheetSummary, "B6", "B9", s.currency); err != nil {
		return err
	}
	return f.SetCellStyle(SheetSummary, "B10", "B10", s.percent)
}

func paybackCell(years float64) interface{} {
	if math.IsInf(years, 1) {
		return "never (negative margin)"
	}
	return years
}

func (e *Exporter) writeCostSheet(f *excelize.File, s styleSet, sheet string,
	items []domain.CostItem, total float64, totalLabel string) error {

	if err := headerRow(f, sheet, 1, s.header, []interface{}{"Item", "Category", "Cost (USD)", "Method"}); err != nil {
		return err
	}
	row := 2
	for _, item := range items {
		values := []interface{}{item.Name, string(item.Category), item.BaseCost, item.Method}
		if err := setRow(f, sheet, row, values); err != nil {
			return err
		}
		row++
	}
	if err := setRow(f, sheet, row+1, []interface{}{totalLabel, "", total}); err != nil {
		return err
	}

	first, _ := excelize.CoordinatesToCellName(3, 2)
	last, _ := excelize.CoordinatesToCellName(3, row+1)
	return f.SetCellStyle(sheet, first, last, s.currency)
}

func (e *Exporter) writeEquipment(f *excelize.File, s styleSet,
	equipment []domain.EquipmentRecord, hexes []domain.HeatExchangerRecord) error {

	if err := headerRow(f, SheetEquipment, 1, s.header,
		[]interface{}{"Name", "Type", "Source Type", "Importance", "Inlets", "Outlets"}); err != nil {
		return err
	}
	row := 2
	for _, eq := range equipment {
		values := []interface{}{
			eq.Name, string(eq.Type), eq.SourceType, string(eq.Importance),
			joinStreams(eq.InletStreams), joinStreams(eq.OutletStreams),
		}
		if err := setRow(f, SheetEquipment, row, values); err != nil {
			return err
		}
		row++
	}

	row++
	if err := headerRow(f, SheetEquipment, row, s.header,
		[]interface{}{"Heat Exchanger", "Kind", "Duty (kW)", "Area (m2)", "Hot Stream", "Cold Stream"}); err != nil {
		return err
	}
	row++
	for _, hx := range hexes {
		values := []interface{}{
			hx.Name, hx.Kind, optionalCell(hx.DutyKW), optionalCell(hx.AreaM2), hx.HotStream, hx.ColdStream,
		}
		if err := setRow(f, SheetEquipment, row, values); err != nil {
			return err
		}
		row++
	}
	return nil
}

func joinStreams(streams []string) string {
	out := ""
	for i, s := range streams {
		if i > 0 {
			out += ", "
		}
		out += s
	}
	return out
}

func optionalCell(v *float64) interface{} {
	if v == nil {
		return "n/a"
	}
	return *v
}

func (e *Exporter) writeFinancial(f *excelize.File, s styleSet, res *domain.EconomicsResult) error {
	rows := [][]interface{}{
		{"Parameter", "Value"},
		{"Discount Rate", res.Financial.DiscountRate},
		{"Tax Rate", res.Financial.TaxRate},
		{"Project Life (years)", res.Financial.ProjectLifeYears},
		{"Annual Revenue (USD/yr)", res.Financial.AnnualRevenue},
		{},
		{"Year", "Discounted Cash Flow (USD)", "Cumulative NPV (USD)"},
	}
	for i, row := range rows {
		if err := setRow(f, SheetFinancial, i+1, row); err != nil {
			return err
		}
	}
	if err := headerRow(f, SheetFinancial, 1, s.header, rows[0]); err != nil {
		return err
	}
	if err := headerRow(f, SheetFinancial, 7, s.header, rows[6]); err != nil {
		return err
	}
	if err := f.SetCellStyle(SheetFinancial, "B2", "B3", s.percent); err != nil {
		return err
	}

	cashFlow := (res.Financial.AnnualRevenue - res.AnnualOpex) * (1 - res.Financial.TaxRate)
	cumulative := -res.TotalCapex
	if err := setRow(f, SheetFinancial, 8, []interface{}{0, -res.TotalCapex, cumulative}); err != nil {
		return err
	}
	for year := 1; year <= res.Financial.ProjectLifeYears; year++ {
		discounted := cashFlow / math.Pow(1+res.Financial.DiscountRate, float64(year))
		cumulative += discounted
		if err := setRow(f, SheetFinancial, 8+year, []interface{}{year, discounted, cumulative}); err != nil {
			return err
		}
	}

	first, _ := excelize.CoordinatesToCellName(2, 8)
	last, _ := excelize.CoordinatesToCellName(3, 8+res.Financial.ProjectLifeYears)
	return f.SetCellStyle(SheetFinancial, first, last, s.currency)
}

// writeSensitivity sweeps CAPEX and OPEX independently and reports the NPV
// at each variation.
func (e *Exporter) writeSensitivity(f *excelize.File, s styleSet, res *domain.EconomicsResult) error {
	if err := headerRow(f, SheetSensitivity, 1, s.header,
		[]interface{}{"Variation", "NPV at varied CAPEX (USD)", "NPV at varied OPEX (USD)"}); err != nil {
		return err
	}

	for i, delta := range sensitivitySweep {
		capexNPV := res.Financial.NPV(res.TotalCapex*(1+delta), res.AnnualOpex)

		varied := res.Financial
		varied.AnnualRevenue = res.AnnualOpex * (1 + delta) * revenueRatio(res)
		opexNPV := varied.NPV(res.TotalCapex, res.AnnualOpex*(1+delta))

		values := []interface{}{fmt.Sprintf("%+.0f%%", delta*100), capexNPV, opexNPV}
		if err := setRow(f, SheetSensitivity, i+2, values); err != nil {
			return err
		}
	}

	first, _ := excelize.CoordinatesToCellName(2, 2)
	last, _ := excelize.CoordinatesToCellName(3, 1+len(sensitivitySweep))
	return f.SetCellStyle(SheetSensitivity, first, last, s.currency)
}

// revenueRatio recovers the revenue-to-OPEX multiple so a varied OPEX keeps
// the same assumed margin structure.
func revenueRatio(res *domain.EconomicsResult) float64 {
	if res.AnnualOpex == 0 {
		return 0
	}
	return res.Financial.AnnualRevenue / res.AnnualOpex
}

func (e *Exporter) writeParameters(f *excelize.File, s styleSet, cfg config.EconomicsConfig) error {
	rows := [][]interface{}{
		{"Parameter", "Value"},
		{"Installation Factor", cfg.InstallationFactor},
		{"Engineering Rate", cfg.EngineeringRate},
		{"Construction Rate", cfg.ConstructionRate},
		{"Contingency Rate", cfg.ContingencyRate},
		{"Discount Rate", cfg.DiscountRate},
		{"Tax Rate", cfg.TaxRate},
		{"Project Life (years)", cfg.ProjectLifeYears},
		{"Revenue Factor", cfg.RevenueFactor},
		{"Steam Price (USD/GJ)", cfg.SteamPriceUSDPerGJ},
		{"Electricity Price (USD/kWh)", cfg.ElectricityPriceUSDPerKWh},
		{"Cooling Water Price (USD/m3)", cfg.CoolingWaterPriceUSDPerM3},
		{"Raw Material Price (USD/kg)", cfg.RawMaterialPriceUSDPerKg},
		{"Annual Operating Hours", cfg.AnnualOperatingHours},
	}
	for i, row := range rows {
		if err := setRow(f, SheetParameters, i+1, row); err != nil {
			return err
		}
	}
	return headerRow(f, SheetParameters, 1, s.header, rows[0])
}

func (e *Exporter) writeAssumptions(f *excelize.File, s styleSet, res *domain.EconomicsResult) error {
	if err := headerRow(f, SheetAssumptions, 1, s.header, []interface{}{"Assumptions & Estimation Methods"}); err != nil {
		return err
	}
	row := 2
	for _, method := range res.EstimationMethods {
		if err := setRow(f, SheetAssumptions, row, []interface{}{method}); err != nil {
			return err
		}
		row++
	}
	row++
	if err := headerRow(f, SheetAssumptions, row, s.header, []interface{}{"Data Sources"}); err != nil {
		return err
	}
	row++
	if len(res.DataSources) == 0 {
		return setRow(f, SheetAssumptions, row, []interface{}{"extracted simulation records only"})
	}
	for _, src := range res.DataSources {
		if err := setRow(f, SheetAssumptions, row, []interface{}{src}); err != nil {
			return err
		}
		row++
	}
	return nil
}
