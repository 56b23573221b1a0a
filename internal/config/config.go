package config

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
)

// TableConfig describes the zone layout and deck composition used when a
// session starts.
type TableConfig struct {
	// Suits and RanksPerSuit define the deck: one card per (suit, rank) pair.
	Suits        []string `json:"suits"`
	RanksPerSuit int      `json:"ranks_per_suit"`
	// HandSize is dealt to each participant at session start.
	HandSize int `json:"hand_size"`
	// AllowReshuffle lets a short draw recover by reshuffling the discard
	// pile back into the deck.
	AllowReshuffle bool `json:"allow_reshuffle"`
	// ShuffleAlgorithm pins the permutation algorithm version. A session
	// refuses to start when it does not match the engine's.
	ShuffleAlgorithm string `json:"shuffle_algorithm"`
}

var (
	cfg      *TableConfig
	loadOnce sync.Once
	loadErr  error
)

// LoadTableConfig loads the table configuration from the given path.
func LoadTableConfig(path string) error {
	loadOnce.Do(func() {
		data, err := os.ReadFile(path)
		if err != nil {
			loadErr = fmt.Errorf("failed to read table config: %w", err)
			return
		}

		var c TableConfig
		if err := json.Unmarshal(data, &c); err != nil {
			loadErr = fmt.Errorf("failed to unmarshal table config: %w", err)
			return
		}
		cfg = &c
	})
	return loadErr
}

// GetTableConfig returns the loaded configuration, or the default table when
// no file was loaded.
func GetTableConfig() TableConfig {
	if cfg == nil {
		return DefaultTableConfig()
	}
	return *cfg
}

// DefaultTableConfig is a standard 52-card table with 5-card hands.
func DefaultTableConfig() TableConfig {
	return TableConfig{
		Suits:            []string{"S", "H", "D", "C"},
		RanksPerSuit:     13,
		HandSize:         5,
		AllowReshuffle:   true,
		ShuffleAlgorithm: "fy-sha256-v1",
	}
}
