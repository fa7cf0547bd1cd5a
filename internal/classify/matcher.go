package classify

import (
	"log/slog"
	"strings"

	apperrors "teacli/internal/errors"
	"teacli/internal/workbook"
	"teacli/pkg/contracts/domain"
)

// blockTypeTable maps the simulator's block-model codes onto normalized
// equipment types. This is the primary lookup tier; an exact hit here always
// wins over spreadsheet hints.
var blockTypeTable = map[string]domain.EquipmentType{
	"RSTOIC": domain.EquipmentReactor,
	"RPLUG":  domain.EquipmentReactor,
	"RCSTR":  domain.EquipmentReactor,
	"RGIBB":  domain.EquipmentReactor,
	"RYIELD": domain.EquipmentReactor,

	"FLASH2": domain.EquipmentSeparator,
	"FLASH3": domain.EquipmentSeparator,
	"SEP":    domain.EquipmentSeparator,
	"SEP2":   domain.EquipmentSeparator,

	"RADFRAC":  domain.EquipmentColumn,
	"DSTWU":    domain.EquipmentColumn,
	"SHORTCUT": domain.EquipmentColumn,

	"HEATX":  domain.EquipmentHeatX,
	"HEATER": domain.EquipmentHeatX,
	"COOLER": domain.EquipmentHeatX,
	"MHEATX": domain.EquipmentHeatX,

	"COMPR":      domain.EquipmentCompressor,
	"MCOMPR":     domain.EquipmentCompressor,
	"ISENTROPIC": domain.EquipmentCompressor,
	"PUMP":       domain.EquipmentPump,

	"MIXER":  domain.EquipmentMixer,
	"FSPLIT": domain.EquipmentSplitter,
	"SPLIT":  domain.EquipmentSplitter,

	"VALVE": domain.EquipmentValve,
	"PIPE":  domain.EquipmentOther,
}

// ModelHint is one row of the secondary, spreadsheet-provided model table.
type ModelHint struct {
	Type     domain.EquipmentType
	Function string
}

// TypeMatcher resolves equipment types with a two-tier lookup: the fixed
// block-type table first, then spreadsheet model hints, then a generic
// fallback.
type TypeMatcher struct {
	hints  map[string]ModelHint
	logger *slog.Logger
}

// NewTypeMatcher creates a matcher with no spreadsheet hints loaded.
func NewTypeMatcher(logger *slog.Logger) *TypeMatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &TypeMatcher{hints: make(map[string]ModelHint), logger: logger}
}

// AddHint registers a single model hint, overwriting a previous entry for
// the same model name.
func (m *TypeMatcher) AddHint(model string, hint ModelHint) {
	m.hints[normalizeModelName(model)] = hint
}

// LoadModelWorkbook reads an equipment-model sheet (model name, module type,
// function columns) into the hint table. Rows without a model name are
// skipped with a warning.
func (m *TypeMatcher) LoadModelWorkbook(path string) error {
	wb, err := workbook.Open(path)
	if err != nil {
		return err
	}
	defer wb.Close()

	fields := []workbook.Field{
		{Name: "model", Aliases: []string{"model", "name", "equipment", "tag"}, Priority: 0},
		{Name: "module", Aliases: []string{"module", "type", "block"}, Priority: 1},
		{Name: "function", Aliases: []string{"function", "duty", "service", "description"}, Priority: 2},
	}

	sheet, rows, err := wb.BestSheet([]string{"model", "function", "type", "equipment"}, 2)
	if err != nil {
		return err
	}
	headerRow := workbook.FindHeaderRow(rows, fields, 2)
	if headerRow < 0 {
		return apperrors.NewMappingError("no model table header found", nil).WithContext("file", path)
	}
	mapping, warnings := workbook.LocateColumns(rows[headerRow], fields, workbook.DefaultMinScore)
	for _, w := range warnings {
		m.logger.Warn("model table column conflict", slog.String("detail", w), slog.String("file", path))
	}

	modelCol, ok := mapping["model"]
	if !ok {
		return apperrors.NewMappingError("model table has no model-name column", nil).WithContext("file", path)
	}
	moduleCol := columnOr(mapping, "module")
	functionCol := columnOr(mapping, "function")

	loaded := 0
	for _, row := range rows[headerRow+1:] {
		model := workbook.Cell(row, modelCol)
		if model == "" {
			continue
		}
		function := workbook.Cell(row, functionCol)
		module := workbook.Cell(row, moduleCol)
		m.AddHint(model, ModelHint{Type: typeFromFunction(function, module), Function: function})
		loaded++
	}

	m.logger.Info("equipment model hints loaded",
		slog.String("file", path),
		slog.String("sheet", sheet),
		slog.Int("count", loaded))
	return nil
}

// Match resolves the equipment type and importance tier for a block. The
// returned bool reports whether a spreadsheet hint supplied the answer.
func (m *TypeMatcher) Match(sourceType, name string) (domain.EquipmentType, domain.ImportanceTier, bool) {
	if typ, ok := blockTypeTable[strings.ToUpper(strings.TrimSpace(sourceType))]; ok {
		return typ, importanceFor(typ), false
	}
	if hint, ok := m.hints[normalizeModelName(name)]; ok {
		return hint.Type, importanceFor(hint.Type), true
	}
	return domain.EquipmentOther, domain.ImportanceAuxiliary, false
}

func normalizeModelName(model string) string {
	return strings.ToUpper(strings.TrimSpace(model))
}

func columnOr(mapping map[string]int, field string) int {
	if col, ok := mapping[field]; ok {
		return col
	}
	return -1
}

// typeFromFunction derives an equipment type from the free-text function or
// module columns of the model table.
func typeFromFunction(function, module string) domain.EquipmentType {
	text := strings.ToLower(function + " " + module)
	switch {
	case strings.Contains(text, "react"):
		return domain.EquipmentReactor
	case strings.Contains(text, "compress"):
		return domain.EquipmentCompressor
	case strings.Contains(text, "pump"):
		return domain.EquipmentPump
	case strings.Contains(text, "distill"), strings.Contains(text, "column"):
		return domain.EquipmentColumn
	case strings.Contains(text, "heat"), strings.Contains(text, "cool"), strings.Contains(text, "exchang"), strings.Contains(text, "condens"):
		return domain.EquipmentHeatX
	case strings.Contains(text, "separat"), strings.Contains(text, "flash"):
		return domain.EquipmentSeparator
	case strings.Contains(text, "mix"):
		return domain.EquipmentMixer
	case strings.Contains(text, "split"):
		return domain.EquipmentSplitter
	case strings.Contains(text, "tank"), strings.Contains(text, "storage"):
		return domain.EquipmentTank
	case strings.Contains(text, "valve"):
		return domain.EquipmentValve
	default:
		return domain.EquipmentOther
	}
}

// importanceFor ranks equipment for cost analysis: reaction and separation
// trains are core, rotating and heat-transfer equipment standard, the rest
// auxiliary.
func importanceFor(typ domain.EquipmentType) domain.ImportanceTier {
	switch typ {
	case domain.EquipmentReactor, domain.EquipmentColumn:
		return domain.ImportanceCore
	case domain.EquipmentHeatX, domain.EquipmentCompressor, domain.EquipmentPump, domain.EquipmentSeparator:
		return domain.ImportanceStandard
	default:
		return domain.ImportanceAuxiliary
	}
}
