// Package selector picks the next asset to publish, avoiding repeats until
// the whole pool has been cycled through once.
package selector

import (
	"log"
	"math/rand"
	"time"

	"shorts-agent/internal/models"
)

type Selector struct {
	rand *rand.Rand
}

func New() *Selector {
	return &Selector{rand: rand.New(rand.NewSource(time.Now().UnixNano()))}
}

// Pick returns a uniformly random asset not yet in the registry. When every
// asset in a non-empty pool has been used, the registry is cleared in memory
// and a fresh cycle starts over the full pool. The cleared registry is only
// written back to disk by the caller after a successful publish. Returns nil
// only for an empty pool.
func (s *Selector) Pick(pool []*models.Asset, reg *models.UsedRegistry) *models.Asset {
	if len(pool) == 0 {
		return nil
	}

	var remaining []*models.Asset
	for _, asset := range pool {
		if !reg.IsUsed(asset.ID) {
			remaining = append(remaining, asset)
		}
	}

	if len(remaining) == 0 {
		log.Printf("All %d videos used, starting a new cycle", len(pool))
		reg.UsedIDs = nil
		remaining = pool
	}

	return remaining[s.rand.Intn(len(remaining))]
}
