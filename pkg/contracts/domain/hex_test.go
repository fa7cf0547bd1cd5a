package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHeatExchangerRecord_DeriveStreamLists(t *testing.T) {
	tests := []struct {
		name       string
		hot        string
		cold       string
		wantInlet  []string
		wantOutlet []string
	}{
		{"both sides known", "BFG", "MEOH1", []string{"BFG"}, []string{"MEOH1"}},
		{"hot side only", "BFG", "", []string{"BFG"}, []string{}},
		{"cold side only", "", "CW-1", []string{}, []string{"CW-1"}},
		{"neither side", "", "", []string{}, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := HeatExchangerRecord{Name: "E-101", HotStream: tt.hot, ColdStream: tt.cold}
			rec.DeriveStreamLists()

			assert.Equal(t, tt.wantInlet, rec.InletStreams)
			assert.Equal(t, tt.wantOutlet, rec.OutletStreams)
		})
	}
}

func TestHeatExchangerRecord_Validate(t *testing.T) {
	duty := 120.5
	area := 30.2
	rec := HeatExchangerRecord{Name: "E-101", DutyKW: &duty, AreaM2: &area}
	require.NoError(t, rec.Validate())

	negative := -1.0
	rec.DutyKW = &negative
	assert.Error(t, rec.Validate())

	// Unreported duty is valid; nil is "not reported", not zero.
	rec.DutyKW = nil
	assert.NoError(t, rec.Validate())

	rec.Name = ""
	assert.Error(t, rec.Validate())
}

func TestStreamRecord_Validate(t *testing.T) {
	rec := StreamRecord{
		Name:        "BFG",
		Category:    CategoryFeed,
		Confidence:  0.7,
		Composition: map[string]float64{"CO": 0.22, "CO2": 0.21, "N2": 0.55, "H2": 0.02},
	}
	require.NoError(t, rec.Validate())

	rec.Confidence = 1.2
	assert.Error(t, rec.Validate())

	rec.Confidence = 0.5
	rec.Category = "utility"
	assert.Error(t, rec.Validate())

	rec.Category = CategoryIntermediate
	rec.Composition = map[string]float64{"CO": 0.4}
	assert.Error(t, rec.Validate(), "composition far from 1.0 should fail")
}

func TestNewSessionID(t *testing.T) {
	now := time.Date(2025, 7, 27, 10, 30, 0, 0, time.UTC)
	id := NewSessionID(now)

	assert.Contains(t, id, "20250727-103000")
	assert.NotEqual(t, id, NewSessionID(now), "same-second sessions must stay distinct")
}
