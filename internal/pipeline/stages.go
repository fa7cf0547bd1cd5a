package pipeline

import (
	"context"

	"teacli/internal/extract"
	"teacli/internal/hex"
	"teacli/internal/sim"
	"teacli/pkg/contracts/domain"
)

// ExtractionStage connects to the simulation file on the session and fills
// the state with its streams and equipment.
func ExtractionStage(connector sim.Connector, extractor *extract.Extractor) Stage {
	return StageFunc{
		StageID:   "extract",
		StageName: "flowsheet extraction",
		Fn: func(ctx context.Context, state *State) error {
			sess, err := connector.Connect(ctx, state.Session.SimFilePath)
			if err != nil {
				return err
			}
			defer sess.Close()

			res, err := extractor.Extract(ctx, sess)
			if err != nil {
				return err
			}
			state.Streams = res.Streams
			state.Equipment = res.Equipment
			state.Warnings = append(state.Warnings, res.Warnings...)
			return nil
		},
	}
}

// HeatExchangerStage resolves the heat-exchanger records. When the session
// names a detail workbook its rows are loaded and enriched from the
// extracted blocks; otherwise the records are derived from the exchanger
// blocks alone.
func HeatExchangerStage(loader *hex.Loader, mapper *hex.Mapper) Stage {
	return StageFunc{
		StageID:   "heat-exchangers",
		StageName: "heat-exchanger mapping",
		Fn: func(ctx context.Context, state *State) error {
			var records []domain.HeatExchangerRecord
			if path := state.Session.HexFilePath; path != "" {
				loaded, warnings, err := loader.Load(path)
				if err != nil {
					return err
				}
				records = loaded
				state.Warnings = append(state.Warnings, warnings...)
			} else {
				records = recordsFromBlocks(state.Equipment)
			}

			mapper.FillFromEquipment(records, state.Equipment)

			known := make([]string, 0, len(state.Streams))
			for _, s := range state.Streams {
				known = append(known, s.Name)
			}
			state.Warnings = append(state.Warnings, mapper.MapStreams(records, known)...)

			state.HeatExchangers = records
			return nil
		},
	}
}

// recordsFromBlocks builds bare exchanger records from the extracted
// heat-exchanger blocks: the first inlet is taken as the hot stream, the
// first outlet as the cold stream.
func recordsFromBlocks(equipment []domain.EquipmentRecord) []domain.HeatExchangerRecord {
	var records []domain.HeatExchangerRecord
	for _, eq := range equipment {
		if eq.Type != domain.EquipmentHeatX {
			continue
		}
		rec := domain.HeatExchangerRecord{Name: eq.Name}
		if len(eq.InletStreams) > 0 {
			rec.HotStream = eq.InletStreams[0]
		}
		if len(eq.OutletStreams) > 0 {
			rec.ColdStream = eq.OutletStreams[0]
		}
		records = append(records, rec)
	}
	return records
}
