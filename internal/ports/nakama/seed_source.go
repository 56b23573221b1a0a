package nakama

import (
	"context"
	"crypto/sha256"
)

// beaconSeedSource expands one round of consensus randomness (the beacon
// root agreed by all participants before the session starts) into per-purpose
// shuffle seeds. Every party holds the same root, so every derived seed and
// therefore every shuffle is recomputed identically everywhere.
type beaconSeedSource struct {
	root []byte
}

func newBeaconSeedSource(root []byte) *beaconSeedSource {
	return &beaconSeedSource{root: append([]byte(nil), root...)}
}

// Seed derives sha256(root || purpose). The purpose tag domain-separates the
// seeds drawn within one session.
func (b *beaconSeedSource) Seed(_ context.Context, purpose string) ([]byte, error) {
	h := sha256.New()
	h.Write(b.root)
	h.Write([]byte(purpose))
	return h.Sum(nil), nil
}
