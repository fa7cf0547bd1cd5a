// Package extract walks an open simulation session and turns its node tree
// into stream and equipment records.
package extract

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"teacli/internal/classify"
	apperrors "teacli/internal/errors"
	"teacli/internal/sim"
	"teacli/pkg/contracts/domain"
)

// moleFracCutoff drops trace components from extracted compositions.
const moleFracCutoff = 1e-6

// TypeResolver resolves a block's model name to an equipment type. Satisfied
// by classify.TypeMatcher.
type TypeResolver interface {
	Match(sourceType, name string) (domain.EquipmentType, domain.ImportanceTier, bool)
}

// Result is the complete output of one flowsheet walk. An empty flowsheet
// yields empty slices, not an error.
type Result struct {
	Streams   []domain.StreamRecord
	Equipment []domain.EquipmentRecord
	Warnings  []string
}

// Extractor reads streams and blocks from a session, resolves equipment
// types and classifies every stream.
type Extractor struct {
	classifier *classify.Classifier
	resolver   TypeResolver
	logger     *slog.Logger
}

func New(classifier *classify.Classifier, resolver TypeResolver, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{classifier: classifier, resolver: resolver, logger: logger}
}

// Extract walks the whole flowsheet. Equipment is read first so the stream
// classifier knows which streams have an upstream block.
func (e *Extractor) Extract(ctx context.Context, sess sim.Session) (*Result, error) {
	res := &Result{}

	equipment, fedStreams, err := e.extractEquipment(ctx, sess, res)
	if err != nil {
		return nil, err
	}
	res.Equipment = equipment

	streams, err := e.extractStreams(ctx, sess, fedStreams, res)
	if err != nil {
		return nil, err
	}
	res.Streams = streams

	e.logger.Info("flowsheet extracted",
		slog.Int("streams", len(res.Streams)),
		slog.Int("equipment", len(res.Equipment)),
		slog.Int("warnings", len(res.Warnings)))
	return res, nil
}

func (e *Extractor) extractStreams(ctx context.Context, sess sim.Session, fedStreams map[string]bool, res *Result) ([]domain.StreamRecord, error) {
	names, err := sess.Children(sim.StreamsRoot())
	if errors.Is(err, sim.ErrPathNotFound) {
		res.Warnings = append(res.Warnings, "flowsheet has no streams")
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.NewConnectionError("listing streams failed", err)
	}

	records := make([]domain.StreamRecord, 0, len(names))
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rec := domain.StreamRecord{
			Name:        name,
			Temperature: e.optionalFloat(sess, sim.StreamPropertyPath(name, sim.PropTemperature)),
			Pressure:    e.optionalFloat(sess, sim.StreamPropertyPath(name, sim.PropPressure)),
			MassFlow:    e.optionalFloat(sess, sim.StreamPropertyPath(name, sim.PropMassFlow)),
			VolumeFlow:  e.optionalFloat(sess, sim.StreamPropertyPath(name, sim.PropVolumeFlow)),
			MolarFlow:   e.optionalFloat(sess, sim.StreamPropertyPath(name, sim.PropMolarFlow)),
		}

		composition, err := e.extractComposition(sess, name)
		if err != nil {
			return nil, err
		}
		rec.Composition = composition

		e.classifier.Apply(&rec, fedStreams[name])
		if err := rec.Validate(); err != nil {
			res.Warnings = append(res.Warnings, fmt.Sprintf("stream %s: %v", name, err))
		}
		records = append(records, rec)
	}
	return records, nil
}

func (e *Extractor) extractComposition(sess sim.Session, stream string) (map[string]float64, error) {
	components, err := sess.Children(sim.MoleFracRoot(stream))
	if errors.Is(err, sim.ErrPathNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.NewConnectionError("listing composition failed", err).WithContext("stream", stream)
	}

	composition := make(map[string]float64, len(components))
	for _, comp := range components {
		frac, err := sess.ReadFloat(sim.ComponentMoleFracPath(stream, comp))
		if err != nil {
			e.logger.Warn("mole fraction unreadable",
				slog.String("stream", stream),
				slog.String("component", comp),
				slog.String("error", err.Error()))
			continue
		}
		if frac >= moleFracCutoff {
			composition[comp] = frac
		}
	}
	if len(composition) == 0 {
		return nil, nil
	}
	return composition, nil
}

// extractEquipment walks all blocks and reports which streams are fed by a
// block outlet, which drives the upstream-evidence classifier rule.
func (e *Extractor) extractEquipment(ctx context.Context, sess sim.Session, res *Result) ([]domain.EquipmentRecord, map[string]bool, error) {
	names, err := sess.Children(sim.BlocksRoot())
	if errors.Is(err, sim.ErrPathNotFound) {
		res.Warnings = append(res.Warnings, "flowsheet has no blocks")
		return nil, map[string]bool{}, nil
	}
	if err != nil {
		return nil, nil, apperrors.NewConnectionError("listing blocks failed", err)
	}

	fedStreams := make(map[string]bool)
	records := make([]domain.EquipmentRecord, 0, len(names))
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}

		sourceType := e.blockType(sess, name)
		if sourceType == "" {
			res.Warnings = append(res.Warnings, fmt.Sprintf("block %s has no readable model type", name))
		}
		typ, importance, hintUsed := e.resolver.Match(sourceType, name)

		rec := domain.EquipmentRecord{
			Name:           name,
			Type:           typ,
			SourceType:     sourceType,
			Importance:     importance,
			SheetSpecified: hintUsed,
			Parameters:     e.blockParameters(sess, name, typ),
			InletStreams:   e.portStreams(sess, sim.BlockInletPortPath(name)),
			OutletStreams:  e.portStreams(sess, sim.BlockOutletPortPath(name)),
		}
		for _, s := range rec.OutletStreams {
			fedStreams[s] = true
		}
		records = append(records, rec)
	}
	return records, fedStreams, nil
}

// blockType probes the primary model-type node, then the fallback locations.
func (e *Extractor) blockType(sess sim.Session, block string) string {
	if typ, err := sess.ReadString(sim.BlockTypePath(block)); err == nil && typ != "" {
		return typ
	}
	for _, path := range sim.BlockTypeFallbackPaths(block) {
		if typ, err := sess.ReadString(path); err == nil && typ != "" {
			return typ
		}
	}
	return ""
}

func (e *Extractor) blockParameters(sess sim.Session, block string, typ domain.EquipmentType) map[string]domain.Parameter {
	params := make(map[string]domain.Parameter)
	for _, spec := range parameterSpecs(typ) {
		value, err := sess.ReadFloat(sim.BlockPath(block, spec.suffix))
		if err != nil {
			continue
		}
		params[spec.name] = domain.Parameter{Value: value, Unit: spec.unit}
	}
	if len(params) == 0 {
		return nil
	}
	return params
}

func (e *Extractor) portStreams(sess sim.Session, portPath string) []string {
	streams, err := sess.Children(portPath)
	if err != nil {
		return []string{}
	}
	return streams
}

func (e *Extractor) optionalFloat(sess sim.Session, path string) float64 {
	value, err := sess.ReadFloat(path)
	if err != nil {
		return 0
	}
	return value
}

type paramSpec struct {
	name   string
	suffix string
	unit   string
}

// parameterSpecs lists the node locations probed per equipment type. Absent
// nodes are simply skipped; simulators only report what the block computes.
func parameterSpecs(typ domain.EquipmentType) []paramSpec {
	general := []paramSpec{
		{"B_TEMP", `\Output\B_TEMP`, "C"},
		{"B_PRES", `\Output\B_PRES`, "bar"},
		{"B_DUTY", `\Output\B_DUTY`, "kW"},
	}
	switch typ {
	case domain.EquipmentReactor:
		return append([]paramSpec{
			{"VOLUME", `\Input\VOLUME`, "m3"},
		}, general...)
	case domain.EquipmentCompressor, domain.EquipmentPump:
		return []paramSpec{
			{"WNET", `\Output\WNET`, "kW"},
			{"PIN", `\Output\PIN`, "bar"},
			{"POUT", `\Output\POUT`, "bar"},
			{"TIN", `\Output\TIN`, "C"},
			{"TOUT", `\Output\TOUT`, "C"},
			{"EFF", `\Input\EFF`, ""},
		}
	case domain.EquipmentHeatX:
		return []paramSpec{
			{"QCALC", `\Output\QCALC`, "kW"},
			{"T", `\Output\T`, "C"},
		}
	case domain.EquipmentColumn:
		return []paramSpec{
			{"NSTAGE", `\Input\NSTAGE`, ""},
			{"RR", `\Input\BASIS_RR`, ""},
			{"COND_DUTY", `\Output\COND_DUTY`, "kW"},
			{"REB_DUTY", `\Output\REB_DUTY`, "kW"},
		}
	default:
		return general
	}
}
