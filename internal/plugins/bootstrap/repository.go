package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
)

// GrantRepository defines data access for role grants and navigation tabs.
type GrantRepository interface {
	// ListPermissions returns every resource grant the role holds.
	ListPermissions(ctx context.Context, roleID string) ([]Permission, error)

	// ListActiveTabs returns active tabs in display order.
	ListActiveTabs(ctx context.Context) ([]Tab, error)
}

type grantRepository struct {
	db *sql.DB
}

// NewGrantRepository creates a grant repository backed by the given DB pool.
func NewGrantRepository(db *sql.DB) GrantRepository {
	return &grantRepository{db: db}
}

// ListPermissions reads the role's grants from sys_permissions.
func (r *grantRepository) ListPermissions(ctx context.Context, roleID string) ([]Permission, error) {
	query := `SELECT resource, can_create, can_read, can_update, can_delete
	          FROM sys_permissions WHERE role_id = ?`

	rows, err := r.db.QueryContext(ctx, query, roleID)
	if err != nil {
		return nil, fmt.Errorf("listing permissions: %w", err)
	}
	defer rows.Close()

	var perms []Permission
	for rows.Next() {
		var p Permission
		if err := rows.Scan(&p.Resource, &p.CanCreate, &p.CanRead, &p.CanUpdate, &p.CanDelete); err != nil {
			return nil, fmt.Errorf("scanning permission row: %w", err)
		}
		perms = append(perms, p)
	}
	return perms, rows.Err()
}

// ListActiveTabs reads the active entries of tab_register.
func (r *grantRepository) ListActiveTabs(ctx context.Context) ([]Tab, error) {
	query := `SELECT tab_id, title, icon, sort_order
	          FROM tab_register WHERE is_active = TRUE
	          ORDER BY sort_order, tab_id`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("listing tabs: %w", err)
	}
	defer rows.Close()

	var tabs []Tab
	for rows.Next() {
		var t Tab
		var icon sql.NullString
		if err := rows.Scan(&t.TabID, &t.Title, &icon, &t.SortOrder); err != nil {
			return nil, fmt.Errorf("scanning tab row: %w", err)
		}
		t.Icon = icon.String
		tabs = append(tabs, t)
	}
	return tabs, rows.Err()
}
