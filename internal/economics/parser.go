package economics

import (
	"bufio"
	"log/slog"
	"os"
	"regexp"
	"strconv"
	"strings"

	apperrors "teacli/internal/errors"
	"teacli/pkg/contracts/domain"
)

// Plausible bounds for a single cost figure in USD. Numbers outside the
// range are treated as identifiers or units, not money.
const (
	minPlausibleCostUSD = 1e3
	maxPlausibleCostUSD = 1e9
)

var numberPattern = regexp.MustCompile(`[-+]?\d[\d,]*\.?\d*`)

// ParseCostFile reads a free-form vendor cost-estimate text file. Each line
// naming a unit and a plausible dollar figure becomes one equipment cost
// item; the unit name is the first token of the line.
func ParseCostFile(path string, logger *slog.Logger) ([]domain.CostItem, error) {
	if logger == nil {
		logger = slog.Default()
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, apperrors.NewParsingError("opening cost estimate failed", err).WithContext("file", path)
	}
	defer f.Close()

	var items []domain.CostItem
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		cost, ok := plausibleCost(line)
		if !ok {
			continue
		}
		name := strings.Trim(strings.Fields(line)[0], ":;,")
		items = append(items, domain.CostItem{
			Name:     name,
			Category: domain.CostEquipment,
			BaseCost: cost,
			Method:   "vendor estimate",
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, apperrors.NewParsingError("reading cost estimate failed", err).WithContext("file", path)
	}

	logger.Info("cost estimate parsed",
		slog.String("file", path),
		slog.Int("items", len(items)))
	return items, nil
}

// plausibleCost extracts the largest number on the line that looks like a
// dollar amount.
func plausibleCost(line string) (float64, bool) {
	best := 0.0
	found := false
	for _, match := range numberPattern.FindAllString(line, -1) {
		value, err := strconv.ParseFloat(strings.ReplaceAll(match, ",", ""), 64)
		if err != nil {
			continue
		}
		if value < minPlausibleCostUSD || value > maxPlausibleCostUSD {
			continue
		}
		if value > best {
			best = value
			found = true
		}
	}
	return best, found
}
