package sim

// Stream output property names in the simulator's node tree.
const (
	PropTemperature = "TEMP_OUT" // °C
	PropPressure    = "PRES_OUT" // bar
	PropMassFlow    = "MASSFLMX" // kg/hr
	PropVolumeFlow  = "VOLFLMX"  // m3/hr
	PropMolarFlow   = "MOLEFLMX" // kmol/hr
)

const (
	streamsRoot = `\Data\Streams`
	blocksRoot  = `\Data\Blocks`
)

// StreamsRoot returns the node under which all streams live.
func StreamsRoot() string { return streamsRoot }

// BlocksRoot returns the node under which all unit-operation blocks live.
func BlocksRoot() string { return blocksRoot }

// StreamPropertyPath addresses a mixed-phase output property of a stream.
func StreamPropertyPath(stream, property string) string {
	return streamsRoot + `\` + stream + `\Output\` + property + `\MIXED`
}

// MoleFracRoot addresses the node whose children are the mole-fraction
// entries of a stream's mixed phase.
func MoleFracRoot(stream string) string {
	return streamsRoot + `\` + stream + `\Output\MOLEFRAC\MIXED`
}

// ComponentMoleFracPath addresses one component's mole fraction.
func ComponentMoleFracPath(stream, component string) string {
	return MoleFracRoot(stream) + `\` + component
}

// BlockPath joins a block name with a path suffix such as `\Output\QCALC`.
func BlockPath(block, suffix string) string {
	return blocksRoot + `\` + block + suffix
}

// BlockTypePath addresses the primary location of a block's model type.
func BlockTypePath(block string) string {
	return BlockPath(block, `\Input\TYPE`)
}

// BlockTypeFallbackPaths lists the alternative locations a block's model
// type may live at, probed in order when the primary path is absent.
func BlockTypeFallbackPaths(block string) []string {
	return []string{
		BlockPath(block, `\Subobject`),
		BlockPath(block, `\Input\CLASS`),
		BlockPath(block, `\Input\MODEL`),
	}
}

// BlockInletPortPath addresses the node whose children are the streams
// feeding a block.
func BlockInletPortPath(block string) string {
	return BlockPath(block, `\Ports\F(IN)`)
}

// BlockOutletPortPath addresses the node whose children are the streams
// leaving a block.
func BlockOutletPortPath(block string) string {
	return BlockPath(block, `\Ports\P(OUT)`)
}
