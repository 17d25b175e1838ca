package models

import "time"

// SourceMeta describes one source file found under a storage root.
type SourceMeta struct {
	Path      string    `json:"path"` // slash separated, relative to the root
	Size      int64     `json:"size"`
	UpdatedAt time.Time `json:"updated_at"`
}
