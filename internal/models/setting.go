package models

import "time"

// Setting is one key-value row of the fetch configuration store. Settings
// are read at trigger time, never cached across runs.
type Setting struct {
	ID        string    `json:"id,omitempty"`
	Value     string    `json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Keys of the fetch settings consumed by the sync pipeline.
const (
	SettingSessionCode  = "fetch_session_code"
	SettingSessionName  = "fetch_session_name"
	SettingMaxBills     = "fetch_max_bills"
	SettingBatchDelayMs = "fetch_batch_delay_ms"
	SettingSyncEnabled  = "fetch_sync_enabled"
	SettingBillTypes    = "fetch_bill_types"
)
