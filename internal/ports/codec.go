package ports

import "cardroom/internal/engine"

// StateCodec is the boundary to the external compact-binary serializer. The
// engine defines the logical shapes (Snapshot for trusted storage and
// agreement, PlayerView for untrusted clients) and leaves the wire format to
// the implementation behind this port.
type StateCodec interface {
	// EncodeState serializes the full canonical aggregate, secrets included.
	// The result must only ever reach trusted storage.
	EncodeState(snap engine.Snapshot) ([]byte, error)

	// DecodeState reverses EncodeState.
	DecodeState(data []byte) (engine.Snapshot, error)

	// EncodeView serializes a per-participant projection for transmission to
	// that participant's client.
	EncodeView(view engine.PlayerView) ([]byte, error)
}
