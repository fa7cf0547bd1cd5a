package hex

import (
	"fmt"
	"log/slog"
	"strings"

	"teacli/pkg/contracts/domain"
)

// Mapper reconciles loaded exchanger rows with the streams and blocks
// extracted from the simulation.
type Mapper struct {
	logger *slog.Logger
}

func NewMapper(logger *slog.Logger) *Mapper {
	if logger == nil {
		logger = slog.Default()
	}
	return &Mapper{logger: logger}
}

// MapStreams snaps each record's hot and cold stream names onto the known
// flowsheet stream names (case-insensitively) and derives the inlet and
// outlet stream lists: the hot stream is the single inlet, the cold stream
// the single outlet. Stream names with no flowsheet counterpart are kept
// verbatim and reported as warnings.
func (m *Mapper) MapStreams(records []domain.HeatExchangerRecord, knownStreams []string) []string {
	index := make(map[string]string, len(knownStreams))
	for _, s := range knownStreams {
		index[strings.ToLower(strings.TrimSpace(s))] = s
	}

	var warnings []string
	for i := range records {
		rec := &records[i]
		rec.HotStream, warnings = snap(rec.HotStream, index, rec.Name, "hot", warnings)
		rec.ColdStream, warnings = snap(rec.ColdStream, index, rec.Name, "cold", warnings)
		rec.DeriveStreamLists()

		m.logger.Debug("heat exchanger mapped",
			slog.String("exchanger", rec.Name),
			slog.Any("inlet_streams", rec.InletStreams),
			slog.Any("outlet_streams", rec.OutletStreams))
	}
	return warnings
}

// FillFromEquipment backfills missing duties from the extracted exchanger
// blocks: a record whose duty is unreported takes the calculated duty of the
// same-named heat-exchanger block when one exists.
func (m *Mapper) FillFromEquipment(records []domain.HeatExchangerRecord, equipment []domain.EquipmentRecord) {
	duties := make(map[string]float64)
	for _, eq := range equipment {
		if eq.Type != domain.EquipmentHeatX {
			continue
		}
		if p, ok := eq.Parameters["QCALC"]; ok {
			duties[strings.ToLower(eq.Name)] = p.Value
		}
	}

	for i := range records {
		rec := &records[i]
		if rec.DutyKW != nil {
			continue
		}
		if duty, ok := duties[strings.ToLower(rec.Name)]; ok {
			d := duty
			rec.DutyKW = &d
			m.logger.Debug("exchanger duty backfilled from block",
				slog.String("exchanger", rec.Name),
				slog.Float64("duty_kw", d))
		}
	}
}

func snap(name string, index map[string]string, exchanger, side string, warnings []string) (string, []string) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return "", warnings
	}
	if canonical, ok := index[strings.ToLower(trimmed)]; ok {
		return canonical, warnings
	}
	warnings = append(warnings,
		fmt.Sprintf("exchanger %s: %s stream %q not found in the flowsheet", exchanger, side, trimmed))
	return trimmed, warnings
}
