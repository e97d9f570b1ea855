package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// SettingInterestProfile is the settings key of the reader's interest profile.
const SettingInterestProfile = "interest_profile"

// DefaultInterestProfile is used for scoring until an interest profile is saved.
const DefaultInterestProfile = "I am interested in technology, software engineering, science and notable business news."

// GetSetting returns the stored value for key or ErrNotFound.
func (r *Repository) GetSetting(ctx context.Context, key string) (string, error) {
	var value string
	err := r.db.GetContext(ctx, &value, `SELECT value FROM settings WHERE key = ?`, key)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("get setting %s: %w", key, err)
	}
	return value, nil
}

// SetSetting creates or replaces a setting.
func (r *Repository) SetSetting(ctx context.Context, key, value string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO settings (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, value)
	if err != nil {
		return fmt.Errorf("set setting %s: %w", key, err)
	}
	return nil
}

// GetInterestProfile returns the saved interest profile, or DefaultInterestProfile
// when none is saved or the saved one is blank.
func (r *Repository) GetInterestProfile(ctx context.Context) (string, error) {
	profile, err := r.GetSetting(ctx, SettingInterestProfile)
	if errors.Is(err, ErrNotFound) {
		return DefaultInterestProfile, nil
	}
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(profile) == "" {
		return DefaultInterestProfile, nil
	}
	return profile, nil
}

// SetInterestProfile saves the interest profile used by scoring jobs.
func (r *Repository) SetInterestProfile(ctx context.Context, profile string) error {
	return r.SetSetting(ctx, SettingInterestProfile, strings.TrimSpace(profile))
}
