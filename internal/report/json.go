package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"multistrat/internal/metrics"
	"multistrat/types"
)

type jsonResult struct {
	CompletedAt time.Time                  `json:"completedAt"`
	Summary     metrics.Summary            `json:"summary"`
	Trades      []types.Trade              `json:"trades"`
	Equity      []types.EquityPoint        `json:"equity"`
	Allocations []types.AllocationSnapshot `json:"allocations,omitempty"`
}

// SaveJSON writes the full run result to path.
func SaveJSON(path string, summary metrics.Summary, trades []types.Trade, equity []types.EquityPoint, allocations []types.AllocationSnapshot) error {
	out := jsonResult{
		CompletedAt: time.Now().UTC(),
		Summary:     summary,
		Trades:      trades,
		Equity:      equity,
		Allocations: allocations,
	}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func sortedWeightKeys(weights map[string]float64) []string {
	keys := make([]string, 0, len(weights))
	for k := range weights {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
