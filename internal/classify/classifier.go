// Package classify assigns categories to extracted stream records and
// normalized types to equipment records using ordered heuristic rules.
package classify

import (
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strings"

	"teacli/pkg/contracts/domain"
)

// Input is the evidence a stream classification runs on. Absent data (zero
// temperature/pressure, empty composition) means the corresponding rules do
// not fire; it is never an error.
type Input struct {
	Name        string
	Temperature float64 // °C, 0 = unknown
	Pressure    float64 // bar, 0 = unknown
	Composition map[string]float64
	HasUpstream bool // some block discharges into this stream
}

// Result is the outcome of classifying one stream.
type Result struct {
	Category    domain.StreamCategory
	SubCategory string
	Confidence  float64
	Reasoning   []string
}

// label is the rich internal classification; labels collapse onto the three
// persisted categories, keeping the label as sub-category.
type label string

const (
	labelRawMaterial label = "raw_material"
	labelProduct     label = "product"
	labelProcess     label = "process"
	labelRecycle     label = "recycle"
	labelUtility     label = "utility"
	labelHotUtility  label = "hot_utility"
	labelColdUtility label = "cold_utility"
	labelWaste       label = "waste"
)

// Rule is one weighted heuristic vote. Match returns a partial score in
// [0,1]; the rule contributes Weight*score to its label.
type Rule struct {
	Name   string
	Label  label
	Weight float64
	Match  func(in Input) float64
}

// Classifier runs an ordered rule set over stream evidence. Registration
// order is significant: when two labels tie on total score, the label whose
// first contributing rule was registered earlier wins.
type Classifier struct {
	rules  []Rule
	logger *slog.Logger
}

// NewClassifier builds a classifier with the default rule set.
func NewClassifier(logger *slog.Logger) *Classifier {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Classifier{logger: logger}
	for _, rule := range defaultRules() {
		c.Register(rule)
	}
	return c
}

// Register appends a rule. Order of registration is the tie-break order.
func (c *Classifier) Register(rule Rule) {
	c.rules = append(c.rules, rule)
}

// Classify scores every label and returns the winner. Confidence is the
// vote margin between the best and second-best label, clamped to [0,1].
// When no rule fires the stream is an ordinary process stream with
// confidence zero.
func (c *Classifier) Classify(in Input) Result {
	scores := make(map[label]float64)
	firstRule := make(map[label]int)
	reasons := make(map[label][]string)

	for i, rule := range c.rules {
		score := rule.Match(in)
		if score <= 0 {
			continue
		}
		if _, seen := scores[rule.Label]; !seen {
			firstRule[rule.Label] = i
		}
		scores[rule.Label] += rule.Weight * score
		reasons[rule.Label] = append(reasons[rule.Label], fmt.Sprintf("%s (%.2f)", rule.Name, score))
	}

	ranked := make([]label, 0, len(scores))
	for lbl := range scores {
		ranked = append(ranked, lbl)
	}
	sort.Slice(ranked, func(i, j int) bool {
		if scores[ranked[i]] != scores[ranked[j]] {
			return scores[ranked[i]] > scores[ranked[j]]
		}
		// Tie: the label whose first rule was registered earlier wins.
		return firstRule[ranked[i]] < firstRule[ranked[j]]
	})

	if len(ranked) == 0 || scores[ranked[0]] <= 0 {
		return Result{Category: domain.CategoryIntermediate, SubCategory: string(labelProcess), Confidence: 0}
	}

	best := ranked[0]
	runnerUp := 0.0
	if len(ranked) > 1 {
		runnerUp = scores[ranked[1]]
	}

	confidence := scores[best] - runnerUp
	if confidence > 1 {
		confidence = 1
	}

	return Result{
		Category:    categoryFor(best),
		SubCategory: subCategoryFor(best, in),
		Confidence:  confidence,
		Reasoning:   reasons[best],
	}
}

// Apply classifies one extracted stream record and writes the outcome back
// onto its classification fields.
func (c *Classifier) Apply(rec *domain.StreamRecord, hasUpstream bool) {
	res := c.Classify(Input{
		Name:        rec.Name,
		Temperature: rec.Temperature,
		Pressure:    rec.Pressure,
		Composition: rec.Composition,
		HasUpstream: hasUpstream,
	})
	rec.Category = res.Category
	rec.SubCategory = res.SubCategory
	rec.Confidence = res.Confidence
	rec.Reasoning = res.Reasoning

	c.logger.Debug("stream classified",
		slog.String("stream", rec.Name),
		slog.String("category", string(res.Category)),
		slog.String("sub_category", res.SubCategory),
		slog.Float64("confidence", res.Confidence))
}

func categoryFor(lbl label) domain.StreamCategory {
	switch lbl {
	case labelRawMaterial:
		return domain.CategoryFeed
	case labelProduct:
		return domain.CategoryProduct
	default:
		return domain.CategoryIntermediate
	}
}

// subCategoryFor refines the winning label with name/composition detail.
func subCategoryFor(lbl label, in Input) string {
	name := strings.ToLower(in.Name)
	switch lbl {
	case labelRawMaterial:
		switch {
		case strings.Contains(name, "bfg") || strings.Contains(name, "blast"):
			return "blast furnace gas"
		case strings.Contains(name, "co2"):
			return "co2 feed"
		case strings.Contains(name, "h2"):
			return "hydrogen makeup"
		default:
			return "feed"
		}
	case labelProduct:
		switch {
		case strings.Contains(name, "meoh") || strings.Contains(name, "methanol"):
			return "methanol product"
		case strings.Contains(name, "water"):
			return "water product"
		default:
			return "product"
		}
	default:
		return string(lbl)
	}
}

// bandScore scores a value against an expected [min,max] band: 1 inside, 0.5
// within slack outside, 0 otherwise. A zero value means "unknown" and never
// scores.
func bandScore(value, min, max, slackBelow, slackAbove float64) float64 {
	if value == 0 {
		return 0
	}
	switch {
	case value >= min && value <= max:
		return 1
	case value < min && value >= min-slackBelow:
		return 0.5
	case value > max && value <= max+slackAbove:
		return 0.5
	}
	return 0
}

// presenceScore is the fraction of the listed components present above 1%.
func presenceScore(composition map[string]float64, components []string) float64 {
	if len(composition) == 0 || len(components) == 0 {
		return 0
	}
	present := 0
	for _, comp := range components {
		if composition[comp] > 0.01 {
			present++
		}
	}
	return float64(present) / float64(len(components))
}

// dominanceScore grades how concentrated the listed components are: above
// 50% scores 1, above 20% scores 0.6, above 5% scores 0.3.
func dominanceScore(composition map[string]float64, components []string) float64 {
	var max float64
	for _, comp := range components {
		if frac := composition[comp]; frac > max {
			max = frac
		}
	}
	switch {
	case max > 0.5:
		return 1
	case max > 0.2:
		return 0.6
	case max > 0.05:
		return 0.3
	}
	return 0
}

func nameRule(name string, lbl label, pattern string, weight float64) Rule {
	re := regexp.MustCompile(pattern)
	return Rule{
		Name:   name,
		Label:  lbl,
		Weight: weight,
		Match: func(in Input) float64 {
			if re.MatchString(strings.ToLower(in.Name)) {
				return 1
			}
			return 0
		},
	}
}

// Rule weights follow the evidence split used throughout the rule set:
// name 0.4, composition 0.4, temperature 0.1, pressure 0.1.
func defaultRules() []Rule {
	return []Rule{
		nameRule("feed-name-pattern", labelRawMaterial, `feed|raw|makeup|fresh|^bfg`, 0.4),
		{
			Name:   "no-upstream-source",
			Label:  labelRawMaterial,
			Weight: 0.3,
			Match: func(in Input) float64 {
				if !in.HasUpstream {
					return 1
				}
				return 0
			},
		},
		{
			Name:   "feed-temperature-band",
			Label:  labelRawMaterial,
			Weight: 0.1,
			Match:  func(in Input) float64 { return bandScore(in.Temperature, 15, 100, 50, 100) },
		},
		{
			Name:   "feed-pressure-band",
			Label:  labelRawMaterial,
			Weight: 0.1,
			Match:  func(in Input) float64 { return bandScore(in.Pressure, 1, 10, 5, 20) },
		},

		nameRule("product-name-pattern", labelProduct, `product|meoh|methanol|final`, 0.4),
		{
			Name:   "product-component-dominant",
			Label:  labelProduct,
			Weight: 0.4,
			Match:  func(in Input) float64 { return dominanceScore(in.Composition, []string{"CH3OH"}) },
		},
		{
			Name:   "product-temperature-band",
			Label:  labelProduct,
			Weight: 0.1,
			Match:  func(in Input) float64 { return bandScore(in.Temperature, 20, 200, 50, 100) },
		},
		{
			Name:   "product-pressure-band",
			Label:  labelProduct,
			Weight: 0.1,
			Match:  func(in Input) float64 { return bandScore(in.Pressure, 1, 60, 5, 20) },
		},

		nameRule("recycle-name-pattern", labelRecycle, `recycle|recirc|return|loop`, 0.4),

		nameRule("process-name-pattern", labelProcess, `^rxn|reactor|mix|^s\d+`, 0.4),
		{
			Name:   "process-mixed-composition",
			Label:  labelProcess,
			Weight: 0.4,
			Match: func(in Input) float64 {
				return presenceScore(in.Composition, []string{"CO", "CO2", "H2", "CH3OH", "H2O"})
			},
		},
		{
			Name:   "process-temperature-band",
			Label:  labelProcess,
			Weight: 0.1,
			Match:  func(in Input) float64 { return bandScore(in.Temperature, 100, 350, 50, 100) },
		},
		{
			Name:   "process-pressure-band",
			Label:  labelProcess,
			Weight: 0.1,
			Match:  func(in Input) float64 { return bandScore(in.Pressure, 20, 60, 5, 20) },
		},

		nameRule("hot-utility-name-pattern", labelHotUtility, `steam|hot.?oil|hot.?water|heating|dowtherm`, 0.4),
		{
			Name:   "hot-utility-temperature-band",
			Label:  labelHotUtility,
			Weight: 0.1,
			Match:  func(in Input) float64 { return bandScore(in.Temperature, 120, 500, 0, 0) },
		},

		nameRule("cold-utility-name-pattern", labelColdUtility, `cooling.?water|cold.?water|chilled|refrigerant|coolant`, 0.4),

		nameRule("utility-name-pattern", labelUtility, `utility|service`, 0.4),

		nameRule("waste-name-pattern", labelWaste, `waste|purge|vent|blow.?down`, 0.4),
	}
}
