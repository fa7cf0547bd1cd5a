// Package hex loads heat-exchanger detail workbooks and maps the rows onto
// the extracted flowsheet streams.
package hex

import (
	"log/slog"
	"strconv"
	"strings"

	apperrors "teacli/internal/errors"
	"teacli/internal/workbook"
	"teacli/pkg/contracts/domain"
)

// Unit conversion factors applied when the duty or area header names a unit
// other than the canonical kW / m2.
const (
	mwToKW     = 1000.0
	gjPerHToKW = 277.78
	ft2ToM2    = 0.0929
)

const minHeaderFields = 3

func hexFields() []workbook.Field {
	return []workbook.Field{
		{Name: "name", Aliases: []string{"hx name", "exchanger name", "name", "exchanger", "tag"}, Priority: 0},
		{Name: "duty", Aliases: []string{"duty", "heat duty", "heat load"}, Priority: 1},
		{Name: "area", Aliases: []string{"area", "surface area", "heat transfer area"}, Priority: 2},
		{Name: "hot_stream", Aliases: []string{"hot stream", "hot side", "shell side"}, Priority: 3},
		{Name: "cold_stream", Aliases: []string{"cold stream", "cold side", "tube side"}, Priority: 4},
		{Name: "kind", Aliases: []string{"exchanger type", "type", "kind", "construction"}, Priority: 5},
		{Name: "hot_in", Aliases: []string{"hot inlet temp", "hot inlet", "t hot in"}, Priority: 6},
		{Name: "hot_out", Aliases: []string{"hot outlet temp", "hot outlet", "t hot out"}, Priority: 7},
		{Name: "cold_in", Aliases: []string{"cold inlet temp", "cold inlet", "t cold in"}, Priority: 8},
		{Name: "cold_out", Aliases: []string{"cold outlet temp", "cold outlet", "t cold out"}, Priority: 9},
	}
}

// Loader reads one heat-exchanger workbook into records. Rows without an
// exchanger name are skipped; missing duty or area stays nil rather than
// becoming zero.
type Loader struct {
	logger *slog.Logger
}

func NewLoader(logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{logger: logger}
}

// Load reads the best-matching sheet of the workbook at path and returns its
// exchanger rows plus any non-fatal row warnings.
func (l *Loader) Load(path string) ([]domain.HeatExchangerRecord, []string, error) {
	wb, err := workbook.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer wb.Close()

	fields := hexFields()
	sheet, rows, err := wb.BestSheet([]string{"exchanger", "duty", "area", "hot", "cold", "hx"}, 2)
	if err != nil {
		return nil, nil, err
	}
	headerRow := workbook.FindHeaderRow(rows, fields, minHeaderFields)
	if headerRow < 0 {
		return nil, nil, apperrors.NewMappingError("no heat-exchanger table header found", nil).
			WithContext("file", path).
			WithContext("sheet", sheet)
	}

	mapping, warnings := workbook.LocateColumns(rows[headerRow], fields, workbook.DefaultMinScore)
	if _, ok := mapping["name"]; !ok {
		return nil, nil, apperrors.NewMappingError("heat-exchanger table has no name column", nil).
			WithContext("file", path).
			WithContext("sheet", sheet)
	}
	dutyFactor := dutyUnitFactor(workbook.Cell(rows[headerRow], col(mapping, "duty")))
	areaFactor := areaUnitFactor(workbook.Cell(rows[headerRow], col(mapping, "area")))

	var records []domain.HeatExchangerRecord
	for i, row := range rows[headerRow+1:] {
		name := workbook.Cell(row, mapping["name"])
		if name == "" {
			if !rowEmpty(row) {
				warnings = append(warnings, "row "+strconv.Itoa(headerRow+2+i)+" has no exchanger name and was skipped")
			}
			continue
		}
		rec := domain.HeatExchangerRecord{
			Name:       name,
			Kind:       workbook.Cell(row, col(mapping, "kind")),
			HotStream:  workbook.Cell(row, col(mapping, "hot_stream")),
			ColdStream: workbook.Cell(row, col(mapping, "cold_stream")),

			DutyKW:          scaledFloat(workbook.Cell(row, col(mapping, "duty")), dutyFactor),
			AreaM2:          scaledFloat(workbook.Cell(row, col(mapping, "area")), areaFactor),
			HotInletTempC:   scaledFloat(workbook.Cell(row, col(mapping, "hot_in")), 1),
			HotOutletTempC:  scaledFloat(workbook.Cell(row, col(mapping, "hot_out")), 1),
			ColdInletTempC:  scaledFloat(workbook.Cell(row, col(mapping, "cold_in")), 1),
			ColdOutletTempC: scaledFloat(workbook.Cell(row, col(mapping, "cold_out")), 1),
		}
		if err := rec.Validate(); err != nil {
			warnings = append(warnings, err.Error())
			continue
		}
		records = append(records, rec)
	}

	l.logger.Info("heat-exchanger workbook loaded",
		slog.String("file", path),
		slog.String("sheet", sheet),
		slog.Int("records", len(records)),
		slog.Int("warnings", len(warnings)))
	return records, warnings, nil
}

func col(mapping map[string]int, field string) int {
	if c, ok := mapping[field]; ok {
		return c
	}
	return -1
}

func rowEmpty(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// scaledFloat parses a numeric cell and applies the unit factor. Empty or
// non-numeric cells yield nil.
func scaledFloat(cell string, factor float64) *float64 {
	cell = strings.ReplaceAll(strings.TrimSpace(cell), ",", "")
	if cell == "" || cell == "-" {
		return nil
	}
	v, err := strconv.ParseFloat(cell, 64)
	if err != nil {
		return nil
	}
	v *= factor
	return &v
}

// dutyUnitFactor reads the duty unit out of the column header. kW is the
// canonical unit; MW and GJ/h headers are converted.
func dutyUnitFactor(header string) float64 {
	h := strings.ToLower(header)
	switch {
	case strings.Contains(h, "gj"):
		return gjPerHToKW
	case strings.Contains(h, "mw"):
		return mwToKW
	default:
		return 1
	}
}

func areaUnitFactor(header string) float64 {
	h := strings.ToLower(header)
	if strings.Contains(h, "ft2") || strings.Contains(h, "ft²") || strings.Contains(h, "sqft") {
		return ft2ToM2
	}
	return 1
}
