package bootstrap

import (
	"context"
	"log/slog"

	"github.com/nijjara/erp/internal/plugins/settings"
)

// Assembler builds the post-login payload for a role.
type Assembler interface {
	// Assemble gathers permissions, tabs, and settings. Each part degrades
	// independently to empty when its lookup fails; Assemble never errors.
	Assemble(ctx context.Context, roleID string) Payload
}

// assembler implements Assembler.
type assembler struct {
	grants   GrantRepository
	settings settings.SettingsService
}

// NewAssembler creates a bootstrap assembler.
func NewAssembler(grants GrantRepository, settingsSvc settings.SettingsService) Assembler {
	return &assembler{
		grants:   grants,
		settings: settingsSvc,
	}
}

// Assemble gathers the three payload parts. A part that cannot be loaded is
// logged and left empty; the user signs in with reduced capability and the
// client re-fetches on demand.
func (a *assembler) Assemble(ctx context.Context, roleID string) Payload {
	payload := EmptyPayload()

	perms, err := a.grants.ListPermissions(ctx, roleID)
	if err != nil {
		slog.Warn("bootstrap: permissions unavailable, degrading to empty",
			slog.String("role_id", roleID),
			slog.Any("error", err),
		)
	} else {
		for _, p := range perms {
			payload.Permissions[p.Resource] = p
		}
	}

	tabs, err := a.grants.ListActiveTabs(ctx)
	if err != nil {
		slog.Warn("bootstrap: tabs unavailable, degrading to empty",
			slog.Any("error", err),
		)
	} else if tabs != nil {
		payload.Tabs = tabs
	}

	snapshot, err := a.settings.Snapshot(ctx)
	if err != nil {
		slog.Warn("bootstrap: settings unavailable, degrading to empty",
			slog.Any("error", err),
		)
	} else if snapshot != nil {
		payload.Settings = snapshot
	}

	return payload
}
