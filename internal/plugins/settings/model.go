// Package settings manages the system_settings key-value table. Values are
// stored as strings; callers interpret them.
package settings

import "time"

// Setting is a single system_settings row.
type Setting struct {
	Key         string    `json:"key"`
	Value       string    `json:"value"`
	Description string    `json:"description,omitempty"`
	UpdatedAt   time.Time `json:"updatedAt"`
}
