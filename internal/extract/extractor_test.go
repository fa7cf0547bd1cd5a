package extract

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"teacli/internal/classify"
	"teacli/internal/sim"
	"teacli/pkg/contracts/domain"
)

func openFlowsheet(t *testing.T, path string) sim.Session {
	t.Helper()

	sess, err := sim.NewSnapshotConnector(nil).Connect(context.Background(), path)
	require.NoError(t, err)
	t.Cleanup(func() { sess.Close() })
	return sess
}

func newExtractor() *Extractor {
	return New(classify.NewClassifier(nil), classify.NewTypeMatcher(nil), nil)
}

func TestExtract_Flowsheet(t *testing.T) {
	sess := openFlowsheet(t, filepath.Join("..", "sim", "testdata", "flowsheet.json"))

	res, err := newExtractor().Extract(context.Background(), sess)
	require.NoError(t, err)
	assert.Empty(t, res.Warnings)

	require.Len(t, res.Streams, 3)
	byName := make(map[string]domain.StreamRecord, len(res.Streams))
	for _, s := range res.Streams {
		byName[s.Name] = s
	}

	bfg := byName["BFG"]
	assert.InDelta(t, 35.0, bfg.Temperature, 1e-9)
	assert.InDelta(t, 1.5, bfg.Pressure, 1e-9)
	assert.InDelta(t, 125000.0, bfg.MassFlow, 1e-9)
	assert.InDelta(t, 0.22, bfg.Composition["CO"], 1e-9)
	assert.Equal(t, domain.CategoryFeed, bfg.Category, "nothing feeds BFG, so it is a feed")
	assert.Equal(t, "blast furnace gas", bfg.SubCategory)
	assert.Greater(t, bfg.Confidence, 0.0)

	rxnOut := byName["RXN-OUT"]
	assert.Equal(t, domain.CategoryIntermediate, rxnOut.Category)
	assert.InDelta(t, 0.0, rxnOut.VolumeFlow, 1e-9, "unreported flow stays zero")

	meoh := byName["MEOH1"]
	assert.Equal(t, domain.CategoryProduct, meoh.Category)
	assert.Equal(t, "methanol product", meoh.SubCategory)
	assert.InDelta(t, 0.96, meoh.Composition["CH3OH"], 1e-9)

	require.Len(t, res.Equipment, 3)
	byBlock := make(map[string]domain.EquipmentRecord, len(res.Equipment))
	for _, eq := range res.Equipment {
		byBlock[eq.Name] = eq
	}

	rx1 := byBlock["RX-1"]
	assert.Equal(t, domain.EquipmentReactor, rx1.Type)
	assert.Equal(t, "RSTOIC", rx1.SourceType)
	assert.Equal(t, domain.ImportanceCore, rx1.Importance)
	assert.InDelta(t, 45.0, rx1.Parameter("VOLUME", 0), 1e-9)
	assert.InDelta(t, -5200.0, rx1.Parameter("B_DUTY", 0), 1e-9)
	assert.Equal(t, []string{"BFG"}, rx1.InletStreams)
	assert.Equal(t, []string{"RXN-OUT"}, rx1.OutletStreams)

	mc1 := byBlock["MC1"]
	assert.Equal(t, domain.EquipmentCompressor, mc1.Type, "model type found via the fallback locations")
	assert.Equal(t, "ISENTROPIC", mc1.SourceType)
	assert.InDelta(t, 3150.0, mc1.Parameter("WNET", 0), 1e-9)
	assert.InDelta(t, 0.78, mc1.Parameter("EFF", 0), 1e-9)
	_, hasTIN := mc1.Parameters["TIN"]
	assert.False(t, hasTIN, "absent nodes are skipped, not zeroed")

	e101 := byBlock["E-101"]
	assert.Equal(t, domain.EquipmentHeatX, e101.Type)
	assert.InDelta(t, 120.5, e101.Parameter("QCALC", 0), 1e-9)
	assert.Equal(t, []string{"RXN-OUT"}, e101.InletStreams)
	assert.Equal(t, []string{"MEOH1"}, e101.OutletStreams)
}

func TestExtract_EmptyFlowsheet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"name":"EMPTY","nodes":{}}`), 0o644))
	sess := openFlowsheet(t, path)

	res, err := newExtractor().Extract(context.Background(), sess)
	require.NoError(t, err)

	assert.Empty(t, res.Streams)
	assert.Empty(t, res.Equipment)
	assert.Len(t, res.Warnings, 2)
}

func TestExtract_CancelledContext(t *testing.T) {
	sess := openFlowsheet(t, filepath.Join("..", "sim", "testdata", "flowsheet.json"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newExtractor().Extract(ctx, sess)
	require.ErrorIs(t, err, context.Canceled)
}
