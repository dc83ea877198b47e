package models

import "time"

// Asset describes one video file sitting in a Drive folder. The pool of
// assets is refetched on every run and never persisted.
type Asset struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Size         int64     `json:"size"`
	ModifiedTime time.Time `json:"modified_time"`
}
