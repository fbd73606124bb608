package settings

import (
	"context"
	"fmt"
	"time"

	"github.com/nijjara/erp/internal/apperror"
)

// SettingsService exposes typed access to system settings.
type SettingsService interface {
	// Get returns a setting value, or defaultValue when the key is absent.
	Get(ctx context.Context, key, defaultValue string) (string, error)

	// Snapshot returns every setting as a key-to-value map, for the
	// bootstrap payload.
	Snapshot(ctx context.Context) (map[string]string, error)

	// Set stores a setting value.
	Set(ctx context.Context, key, value string) error
}

type settingsService struct {
	repo SettingRepository

	now func() time.Time
}

// NewSettingsService creates a settings service with the given repository.
func NewSettingsService(repo SettingRepository) SettingsService {
	return &settingsService{
		repo: repo,
		now:  time.Now,
	}
}

func (s *settingsService) Get(ctx context.Context, key, defaultValue string) (string, error) {
	setting, err := s.repo.Get(ctx, key)
	if err != nil {
		return "", apperror.NewInternal(fmt.Errorf("reading setting %q: %w", key, err))
	}
	if setting == nil {
		return defaultValue, nil
	}
	return setting.Value, nil
}

func (s *settingsService) Snapshot(ctx context.Context) (map[string]string, error) {
	rows, err := s.repo.GetAll(ctx)
	if err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("reading settings: %w", err))
	}

	snapshot := make(map[string]string, len(rows))
	for _, row := range rows {
		snapshot[row.Key] = row.Value
	}
	return snapshot, nil
}

func (s *settingsService) Set(ctx context.Context, key, value string) error {
	if key == "" {
		return apperror.NewBadRequest("setting key is required")
	}
	if err := s.repo.Upsert(ctx, key, value, s.now().UTC()); err != nil {
		return apperror.NewInternal(fmt.Errorf("writing setting %q: %w", key, err))
	}
	return nil
}
