package models

// UsedRegistry holds the asset IDs already published in the current cycle.
// It is cleared when every asset in the pool has been used once.
type UsedRegistry struct {
	UsedIDs []string `json:"used_ids"`
}

// IsUsed reports whether the given asset ID was already published this cycle.
func (r *UsedRegistry) IsUsed(id string) bool {
	for _, used := range r.UsedIDs {
		if used == id {
			return true
		}
	}
	return false
}
