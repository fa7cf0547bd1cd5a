package domain

// EquipmentType is the normalized unit-operation type, independent of the
// source application's block-model naming.
type EquipmentType string

const (
	EquipmentReactor    EquipmentType = "reactor"
	EquipmentCompressor EquipmentType = "compressor"
	EquipmentPump       EquipmentType = "pump"
	EquipmentHeatX      EquipmentType = "heat_exchanger"
	EquipmentColumn     EquipmentType = "distillation_column"
	EquipmentSeparator  EquipmentType = "separator"
	EquipmentTank       EquipmentType = "tank"
	EquipmentValve      EquipmentType = "valve"
	EquipmentMixer      EquipmentType = "mixer"
	EquipmentSplitter   EquipmentType = "splitter"
	EquipmentOther      EquipmentType = "other"
)

// ImportanceTier ranks how much a unit matters for downstream cost analysis.
type ImportanceTier string

const (
	ImportanceCore      ImportanceTier = "core"
	ImportanceStandard  ImportanceTier = "standard"
	ImportanceAuxiliary ImportanceTier = "auxiliary"
)

// Parameter is a single named equipment parameter with its engineering unit.
type Parameter struct {
	Value float64 `json:"value"`
	Unit  string  `json:"unit,omitempty"`
}

// EquipmentRecord holds the extracted state of a unit-operation block.
type EquipmentRecord struct {
	Name       string               `json:"name" db:"name" validate:"required"`
	Type       EquipmentType        `json:"type" db:"type"`
	SourceType string               `json:"source_type" db:"source_type"` // block model name in the simulator
	Parameters map[string]Parameter `json:"parameters,omitempty" db:"parameters"`

	InletStreams  []string `json:"inlet_streams" db:"inlet_streams"`
	OutletStreams []string `json:"outlet_streams" db:"outlet_streams"`

	Importance     ImportanceTier `json:"importance" db:"importance"`
	SheetSpecified bool           `json:"sheet_specified" db:"sheet_specified"`
}

// Parameter returns the named parameter value, or def when absent.
func (r *EquipmentRecord) Parameter(name string, def float64) float64 {
	if p, ok := r.Parameters[name]; ok {
		return p.Value
	}
	return def
}
