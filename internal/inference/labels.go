package inference

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strconv"
)

// LoadLabels reads a classifier label mapping of the form
// {"0": "Water Department | Low", "1": ...} and returns the labels ordered by
// class index.
func LoadLabels(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read label mapping: %w", err)
	}
	var mapping map[string]string
	if err := json.Unmarshal(data, &mapping); err != nil {
		return nil, fmt.Errorf("failed to parse label mapping %s: %w", path, err)
	}

	type entry struct {
		index int
		label string
	}
	entries := make([]entry, 0, len(mapping))
	for k, v := range mapping {
		i, err := strconv.Atoi(k)
		if err != nil {
			return nil, fmt.Errorf("label mapping key %q is not a class index", k)
		}
		entries = append(entries, entry{i, v})
	}
	sort.Slice(entries, func(a, b int) bool { return entries[a].index < entries[b].index })

	labels := make([]string, len(entries))
	for i, e := range entries {
		labels[i] = e.label
	}
	return labels, nil
}
