package exporter

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"teacli/internal/config"
	"teacli/internal/economics"
	"teacli/pkg/contracts/domain"
)

func sampleResult(t *testing.T) (*domain.EconomicsResult, []domain.EquipmentRecord, []domain.HeatExchangerRecord) {
	t.Helper()

	area := 30.2
	duty := 120.5
	hexes := []domain.HeatExchangerRecord{
		{Name: "E-101", Kind: "Shell & Tube", DutyKW: &duty, AreaM2: &area,
			HotStream: "RXN-OUT", ColdStream: "MEOH1",
			InletStreams: []string{"RXN-OUT"}, OutletStreams: []string{"MEOH1"}},
	}
	equipment := []domain.EquipmentRecord{
		{Name: "RX-1", Type: domain.EquipmentReactor, SourceType: "RSTOIC",
			Importance: domain.ImportanceCore, InletStreams: []string{"BFG"}, OutletStreams: []string{"RXN-OUT"}},
	}
	streams := []domain.StreamRecord{
		{Name: "BFG", Category: domain.CategoryFeed, MassFlow: 1000},
	}

	res := economics.NewAnalyzer(config.Default().Economics, nil).
		Analyze("BFG Methanol", streams, equipment, hexes, nil)
	res.GeneratedAt = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return res, equipment, hexes
}

func TestExport_AllSheets(t *testing.T) {
	res, equipment, hexes := sampleResult(t)
	path := filepath.Join(t.TempDir(), "report.xlsx")

	require.NoError(t, New(nil).Export(path, res, equipment, hexes, config.Default().Economics))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	want := []string{
		SheetSummary, SheetCapex, SheetOpex, SheetEquipment,
		SheetFinancial, SheetSensitivity, SheetParameters, SheetAssumptions,
	}
	assert.Equal(t, want, f.GetSheetList())
}

func TestExport_SummaryCells(t *testing.T) {
	res, equipment, hexes := sampleResult(t)
	path := filepath.Join(t.TempDir(), "report.xlsx")
	require.NoError(t, New(nil).Export(path, res, equipment, hexes, config.Default().Economics))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	project, err := f.GetCellValue(SheetSummary, "B2")
	require.NoError(t, err)
	assert.Equal(t, "BFG Methanol", project)

	capex, err := f.GetCellValue(SheetSummary, "B6", excelize.Options{RawCellValue: true})
	require.NoError(t, err)
	assert.NotEmpty(t, capex)
}

func TestExport_CapexRows(t *testing.T) {
	res, equipment, hexes := sampleResult(t)
	path := filepath.Join(t.TempDir(), "report.xlsx")
	require.NoError(t, New(nil).Export(path, res, equipment, hexes, config.Default().Economics))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(SheetCapex)
	require.NoError(t, err)
	require.Greater(t, len(rows), 2)
	assert.Equal(t, []string{"Item", "Category", "Cost (USD)", "Method"}, rows[0][:4])
	assert.Equal(t, "E-101", rows[1][0])

	// Every item plus the spacer and total line.
	assert.Equal(t, "Total CAPEX", rows[len(rows)-1][0])
}

func TestExport_EquipmentSheetShowsMissingValues(t *testing.T) {
	res, equipment, hexes := sampleResult(t)
	hexes[0].AreaM2 = nil
	path := filepath.Join(t.TempDir(), "report.xlsx")
	require.NoError(t, New(nil).Export(path, res, equipment, hexes, config.Default().Economics))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(SheetEquipment)
	require.NoError(t, err)

	var hxRow []string
	for _, row := range rows {
		if len(row) > 0 && row[0] == "E-101" {
			hxRow = row
		}
	}
	require.NotNil(t, hxRow)
	assert.Equal(t, "n/a", hxRow[3], "unreported area renders as n/a, not zero")
}

func TestExport_SensitivityRowCount(t *testing.T) {
	res, equipment, hexes := sampleResult(t)
	path := filepath.Join(t.TempDir(), "report.xlsx")
	require.NoError(t, New(nil).Export(path, res, equipment, hexes, config.Default().Economics))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(SheetSensitivity)
	require.NoError(t, err)
	require.Len(t, rows, 1+len(sensitivitySweep))
	assert.Equal(t, "+0%", rows[3][0])
}
