// Package jsoncodec implements the serializer boundary with canonical JSON.
// The engine's snapshot and view types carry explicit ordering, so the output
// is deterministic and safe to hash or diff across replicas.
package jsoncodec

import (
	"encoding/json"
	"fmt"

	"cardroom/internal/engine"
	"cardroom/internal/ports"
)

type Codec struct{}

var _ ports.StateCodec = Codec{}

func New() Codec {
	return Codec{}
}

func (Codec) EncodeState(snap engine.Snapshot) ([]byte, error) {
	return json.Marshal(snap)
}

func (Codec) DecodeState(data []byte) (engine.Snapshot, error) {
	var snap engine.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return engine.Snapshot{}, fmt.Errorf("decode snapshot: %w", err)
	}
	return snap, nil
}

func (Codec) EncodeView(view engine.PlayerView) ([]byte, error) {
	return json.Marshal(view)
}
