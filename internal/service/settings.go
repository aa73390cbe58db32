package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/raphaelgruber/legtrack/internal/db"
	"github.com/raphaelgruber/legtrack/internal/models"
)

// Fallbacks applied when a settings key is missing from the store.
const (
	defaultSessionCode  = "891"
	defaultSessionName  = "89th Legislature, Regular Session"
	defaultMaxBills     = 500
	defaultBatchDelayMs = 300
	defaultBillTypes    = "HB,SB"
)

// FetchSettings is the resolved fetch configuration for one sync run. It is
// read from the settings store at trigger time and never cached across runs.
type FetchSettings struct {
	SessionCode string
	SessionName string
	MaxBills    int
	BatchDelay  time.Duration
	Enabled     bool
	BillTypes   []string
}

// resolveSettings reads the fetch settings from the store, applying defaults
// for missing keys. Store failures other than a missing key propagate.
func resolveSettings(ctx context.Context, store Store) (FetchSettings, error) {
	get := func(key, fallback string) (string, error) {
		val, err := store.GetSetting(ctx, key)
		if errors.Is(err, db.ErrNotFound) {
			return fallback, nil
		}
		if err != nil {
			return "", fmt.Errorf("read setting %s: %w", key, err)
		}
		return val, nil
	}

	var s FetchSettings
	var err error

	if s.SessionCode, err = get(models.SettingSessionCode, defaultSessionCode); err != nil {
		return s, err
	}
	if s.SessionName, err = get(models.SettingSessionName, defaultSessionName); err != nil {
		return s, err
	}

	maxBills, err := get(models.SettingMaxBills, strconv.Itoa(defaultMaxBills))
	if err != nil {
		return s, err
	}
	s.MaxBills = parsePositiveInt(maxBills, defaultMaxBills)

	delayMs, err := get(models.SettingBatchDelayMs, strconv.Itoa(defaultBatchDelayMs))
	if err != nil {
		return s, err
	}
	s.BatchDelay = time.Duration(parsePositiveInt(delayMs, defaultBatchDelayMs)) * time.Millisecond

	enabled, err := get(models.SettingSyncEnabled, "true")
	if err != nil {
		return s, err
	}
	s.Enabled = strings.EqualFold(enabled, "true")

	types, err := get(models.SettingBillTypes, defaultBillTypes)
	if err != nil {
		return s, err
	}
	s.BillTypes = splitBillTypes(types)

	return s, nil
}

func parsePositiveInt(s string, fallback int) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}

func splitBillTypes(s string) []string {
	var types []string
	for _, t := range strings.Split(s, ",") {
		t = strings.ToUpper(strings.TrimSpace(t))
		if t != "" {
			types = append(types, t)
		}
	}
	if len(types) == 0 {
		types = splitBillTypes(defaultBillTypes)
	}
	return types
}
