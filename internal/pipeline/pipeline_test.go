package pipeline

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"teacli/internal/classify"
	"teacli/internal/extract"
	"teacli/internal/hex"
	"teacli/internal/sim"
	"teacli/internal/storage"
	"teacli/pkg/contracts/domain"
)

func testRunner(t *testing.T, stages ...Stage) (*Runner, *storage.Store) {
	t.Helper()

	store, err := storage.Open(":memory:", nil)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return NewRunner(store, nil, stages...), store
}

func flowsheetSession(id string) domain.ExtractionSession {
	return domain.ExtractionSession{
		ID:             id,
		ExtractionTime: time.Now().UTC(),
		SimFilePath:    filepath.Join("..", "sim", "testdata", "flowsheet.json"),
	}
}

func TestRun_FullExtraction(t *testing.T) {
	extractor := extract.New(classify.NewClassifier(nil), classify.NewTypeMatcher(nil), nil)
	runner, store := testRunner(t,
		ExtractionStage(sim.NewSnapshotConnector(nil), extractor),
		HeatExchangerStage(hex.NewLoader(nil), hex.NewMapper(nil)),
	)

	state, err := runner.Run(context.Background(), flowsheetSession("run-1"))
	require.NoError(t, err)
	assert.Len(t, state.Streams, 3)
	assert.Len(t, state.Equipment, 3)
	require.Len(t, state.HeatExchangers, 1)

	hx := state.HeatExchangers[0]
	assert.Equal(t, "E-101", hx.Name)
	require.NotNil(t, hx.DutyKW, "duty backfilled from the exchanger block")
	assert.InDelta(t, 120.5, *hx.DutyKW, 1e-9)
	assert.Equal(t, []string{"RXN-OUT"}, hx.InletStreams)
	assert.Equal(t, []string{"MEOH1"}, hx.OutletStreams)

	session, err := store.GetSession(context.Background(), "run-1")
	require.NoError(t, err)
	assert.Equal(t, domain.SessionComplete, session.Status)
	assert.Equal(t, 3, session.Summary.StreamCount)
	assert.Equal(t, 1, session.Summary.HexCount)
	assert.InDelta(t, 120.5, session.Summary.TotalDutyKW, 1e-9)

	streams, err := store.StreamsBySession(context.Background(), "run-1")
	require.NoError(t, err)
	assert.Len(t, streams, 3)
}

func TestRun_StageFailureMarksIncomplete(t *testing.T) {
	boom := errors.New("connector exploded")
	runner, store := testRunner(t, StageFunc{
		StageID:   "broken",
		StageName: "broken stage",
		Fn:        func(ctx context.Context, state *State) error { return boom },
	})

	_, err := runner.Run(context.Background(), flowsheetSession("run-fail"))
	require.ErrorIs(t, err, boom)

	session, getErr := store.GetSession(context.Background(), "run-fail")
	require.NoError(t, getErr)
	assert.Equal(t, domain.SessionIncomplete, session.Status)
	assert.Contains(t, session.Notes, "broken")
}

func TestRun_NoStagesCompletesEmpty(t *testing.T) {
	runner, store := testRunner(t)

	state, err := runner.Run(context.Background(), flowsheetSession("run-empty"))
	require.NoError(t, err)
	assert.Empty(t, state.Streams)

	session, err := store.GetSession(context.Background(), "run-empty")
	require.NoError(t, err)
	assert.Equal(t, domain.SessionComplete, session.Status)
	assert.Zero(t, session.Summary.StreamCount)
}

func TestState_Summary(t *testing.T) {
	duty := 100.0
	area := 25.0
	state := &State{
		Streams:   make([]domain.StreamRecord, 2),
		Equipment: make([]domain.EquipmentRecord, 1),
		HeatExchangers: []domain.HeatExchangerRecord{
			{Name: "E-1", DutyKW: &duty, AreaM2: &area},
			{Name: "E-2"},
		},
	}

	summary := state.Summary()
	assert.Equal(t, 2, summary.StreamCount)
	assert.Equal(t, 1, summary.EquipmentCount)
	assert.Equal(t, 2, summary.HexCount)
	assert.InDelta(t, 100.0, summary.TotalDutyKW, 1e-9)
	assert.InDelta(t, 25.0, summary.TotalAreaM2, 1e-9)
}
