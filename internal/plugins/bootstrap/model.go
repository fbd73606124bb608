// Package bootstrap assembles the post-login payload: the permissions the
// user's role grants, the navigation tabs the system exposes, and a snapshot
// of system settings. The payload degrades rather than fails; a login never
// bounces because a lookup in here broke.
package bootstrap

// Permission is the CRUD grant a role holds on one resource.
type Permission struct {
	Resource  string `json:"resource"`
	CanCreate bool   `json:"canCreate"`
	CanRead   bool   `json:"canRead"`
	CanUpdate bool   `json:"canUpdate"`
	CanDelete bool   `json:"canDelete"`
}

// Tab is a tab_register row describing one navigation entry.
type Tab struct {
	TabID     string `json:"tabId"`
	Title     string `json:"title"`
	Icon      string `json:"icon,omitempty"`
	SortOrder int    `json:"sortOrder"`
}

// Payload is everything the client needs to render after login. All three
// parts default to empty, never null, so clients can iterate without guards.
type Payload struct {
	// Permissions is keyed by resource name.
	Permissions map[string]Permission `json:"permissions"`

	// Tabs lists active navigation tabs in display order. Tabs are not yet
	// filtered by role; permission enforcement happens per resource when
	// the client calls in.
	Tabs []Tab `json:"tabs"`

	// Settings is the system settings snapshot.
	Settings map[string]string `json:"settings"`
}

// EmptyPayload returns a payload with all parts initialized and empty.
func EmptyPayload() Payload {
	return Payload{
		Permissions: map[string]Permission{},
		Tabs:        []Tab{},
		Settings:    map[string]string{},
	}
}
