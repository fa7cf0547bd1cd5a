package classify

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"teacli/pkg/contracts/domain"
)

func TestClassify_FeedStream(t *testing.T) {
	c := NewClassifier(nil)

	res := c.Classify(Input{Name: "AIR_FEED", HasUpstream: false})

	assert.Equal(t, domain.CategoryFeed, res.Category)
	assert.Greater(t, res.Confidence, 0.0)
	assert.NotEmpty(t, res.Reasoning)
}

func TestClassify_NoRuleFires(t *testing.T) {
	c := NewClassifier(nil)

	// Upstream exists, neutral name, no physical data: nothing to vote on.
	res := c.Classify(Input{Name: "XQ-77", HasUpstream: true})

	assert.Equal(t, domain.CategoryIntermediate, res.Category)
	assert.Equal(t, "process", res.SubCategory)
	assert.Equal(t, 0.0, res.Confidence)
}

func TestClassify_MethanolProduct(t *testing.T) {
	c := NewClassifier(nil)

	res := c.Classify(Input{
		Name:        "MEOH1",
		Temperature: 40,
		Pressure:    1.2,
		Composition: map[string]float64{"CH3OH": 0.96, "H2O": 0.04},
		HasUpstream: true,
	})

	assert.Equal(t, domain.CategoryProduct, res.Category)
	assert.Equal(t, "methanol product", res.SubCategory)
	assert.Greater(t, res.Confidence, 0.5)
}

func TestClassify_ReactorEffluentIsIntermediate(t *testing.T) {
	c := NewClassifier(nil)

	res := c.Classify(Input{
		Name:        "RXN-OUT",
		Temperature: 250,
		Pressure:    50,
		Composition: map[string]float64{"CH3OH": 0.18, "H2O": 0.17, "N2": 0.45, "CO": 0.11, "CO2": 0.09},
		HasUpstream: true,
	})

	assert.Equal(t, domain.CategoryIntermediate, res.Category)
	assert.Equal(t, "process", res.SubCategory)
}

func TestClassify_ConfidenceAlwaysInRange(t *testing.T) {
	c := NewClassifier(nil)

	inputs := []Input{
		{Name: "AIR_FEED"},
		{Name: "FRESH-H2-MAKEUP", Temperature: 25, Pressure: 8},
		{Name: "MEOH-PRODUCT", Composition: map[string]float64{"CH3OH": 0.99}},
		{Name: "PURGE", HasUpstream: true},
		{Name: "LP-STEAM", Temperature: 180, HasUpstream: true},
		{Name: "COOLING-WATER", Temperature: 25, HasUpstream: true},
		{Name: "", HasUpstream: true},
	}
	for _, in := range inputs {
		res := c.Classify(in)
		assert.GreaterOrEqual(t, res.Confidence, 0.0, "input %q", in.Name)
		assert.LessOrEqual(t, res.Confidence, 1.0, "input %q", in.Name)
		assert.Contains(t, []domain.StreamCategory{
			domain.CategoryFeed, domain.CategoryProduct, domain.CategoryIntermediate,
		}, res.Category, "input %q", in.Name)
	}
}

func TestClassify_TieBreakFirstRegisteredWins(t *testing.T) {
	c := &Classifier{}
	always := func(in Input) float64 { return 1 }
	c.Register(Rule{Name: "first", Label: labelWaste, Weight: 0.5, Match: always})
	c.Register(Rule{Name: "second", Label: labelRecycle, Weight: 0.5, Match: always})

	res := c.Classify(Input{Name: "anything", HasUpstream: true})

	assert.Equal(t, domain.CategoryIntermediate, res.Category)
	assert.Equal(t, "waste", res.SubCategory, "tie must break to the first-registered rule")
	assert.Equal(t, 0.0, res.Confidence, "a dead tie has zero margin")
}

func TestClassify_UtilityStreamsStayIntermediate(t *testing.T) {
	c := NewClassifier(nil)

	res := c.Classify(Input{Name: "LP-STEAM", Temperature: 180, HasUpstream: true})
	assert.Equal(t, domain.CategoryIntermediate, res.Category)
	assert.Equal(t, "hot_utility", res.SubCategory)

	res = c.Classify(Input{Name: "COOLING-WATER-SUPPLY", Temperature: 25, HasUpstream: true})
	assert.Equal(t, domain.CategoryIntermediate, res.Category)
	assert.Equal(t, "cold_utility", res.SubCategory)
}

func TestApply_MutatesClassificationFieldsOnly(t *testing.T) {
	c := NewClassifier(nil)
	rec := domain.StreamRecord{
		Name:        "BFG",
		Temperature: 35,
		Pressure:    1.5,
		MassFlow:    125000,
		Composition: map[string]float64{"CO": 0.22, "CO2": 0.21, "N2": 0.52, "H2": 0.05},
	}

	c.Apply(&rec, false)

	assert.Equal(t, domain.CategoryFeed, rec.Category)
	assert.Equal(t, "blast furnace gas", rec.SubCategory)
	assert.Greater(t, rec.Confidence, 0.0)
	assert.Equal(t, 125000.0, rec.MassFlow, "physical fields untouched")
	require.NoError(t, rec.Validate())
}
