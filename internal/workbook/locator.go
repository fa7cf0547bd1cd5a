package workbook

import (
	"fmt"
	"sort"
	"strings"
)

// Field describes one expected column: its canonical name, the header
// aliases it is known under, and its priority when two fields would claim
// the same column (lower value wins).
type Field struct {
	Name     string
	Aliases  []string
	Priority int
}

// DefaultMinScore is the minimum match score for a header cell to be
// accepted as a field's column.
const DefaultMinScore = 0.6

const (
	scoreExact     = 1.0
	scoreSubstring = 0.75
)

// normalizeHeader lowercases a header cell and strips everything that is not
// a letter or digit, so "Duty (kW)" and "duty_kw" compare equal.
func normalizeHeader(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func matchScore(header, alias string) float64 {
	h := normalizeHeader(header)
	a := normalizeHeader(alias)
	if h == "" || a == "" {
		return 0
	}
	if h == a {
		return scoreExact
	}
	if strings.Contains(h, a) || strings.Contains(a, h) {
		return scoreSubstring
	}
	return 0
}

// fieldScore returns the best score any alias of the field achieves against
// the header cell.
func fieldScore(header string, field Field) float64 {
	best := 0.0
	for _, alias := range field.Aliases {
		if s := matchScore(header, alias); s > best {
			best = s
		}
	}
	return best
}

// LocateColumns maps each expected field onto a column index of the header
// row. For every field the best-scoring column at or above minScore is
// chosen; when two fields claim the same column the lower-priority field
// loses and is left unmapped, reported in the returned warnings. Unmapped
// fields are simply absent from the result.
func LocateColumns(header []string, fields []Field, minScore float64) (map[string]int, []string) {
	if minScore <= 0 {
		minScore = DefaultMinScore
	}

	type claim struct {
		field Field
		col   int
		score float64
	}

	var claims []claim
	for _, field := range fields {
		bestCol := -1
		bestScore := 0.0
		for col, cell := range header {
			if s := fieldScore(cell, field); s > bestScore {
				bestCol = col
				bestScore = s
			}
		}
		if bestCol >= 0 && bestScore >= minScore {
			claims = append(claims, claim{field: field, col: bestCol, score: bestScore})
		}
	}

	// Higher-priority fields pick first; a contested column goes to the
	// winner and the loser stays unmapped.
	sort.SliceStable(claims, func(i, j int) bool {
		return claims[i].field.Priority < claims[j].field.Priority
	})

	mapping := make(map[string]int, len(claims))
	taken := make(map[int]string)
	var warnings []string
	for _, c := range claims {
		if winner, ok := taken[c.col]; ok {
			warnings = append(warnings,
				fmt.Sprintf("field %q lost column %d to %q and is unmapped", c.field.Name, c.col, winner))
			continue
		}
		mapping[c.field.Name] = c.col
		taken[c.col] = c.field.Name
	}
	return mapping, warnings
}

// FindHeaderRow scans the leading rows for the first one where at least
// minMatches expected fields locate a column. Returns -1 when none does.
func FindHeaderRow(rows [][]string, fields []Field, minMatches int) int {
	depth := headerScanDepth
	if depth > len(rows) {
		depth = len(rows)
	}
	for i := 0; i < depth; i++ {
		mapping, _ := LocateColumns(rows[i], fields, DefaultMinScore)
		if len(mapping) >= minMatches {
			return i
		}
	}
	return -1
}

// Cell returns the trimmed cell at col of a ragged row, or "" when the row
// is too short or the field is unmapped (col < 0).
func Cell(row []string, col int) string {
	if col < 0 || col >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[col])
}
