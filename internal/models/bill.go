// Package models defines data structures for the legtrack bill database.
package models

import (
	"fmt"
	"time"
)

// Session represents one legislative session, e.g. "891" / "89th Regular".
type Session struct {
	ID        string    `json:"id,omitempty"`
	Code      string    `json:"code"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// Bill is a persisted legislative bill record. BillNumber is the natural
// key ("HB 123") used for idempotent upserts during sync.
type Bill struct {
	ID             string     `json:"id,omitempty"`
	BillNumber     string     `json:"bill_number"`
	BillType       string     `json:"bill_type"`
	Number         int        `json:"number"`
	SessionCode    string     `json:"session_code"`
	Description    string     `json:"description"`
	Authors        []string   `json:"authors"`
	Status         string     `json:"status"`
	LastAction     string     `json:"last_action"`
	LastActionDate *time.Time `json:"last_action_date,omitempty"`
	Filename       string     `json:"filename"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// NaturalKey builds the canonical bill identifier for a type and number.
func NaturalKey(billType string, number int) string {
	return fmt.Sprintf("%s %d", billType, number)
}

// BillFilename derives the stored bill-text filename, e.g. "HB00123.htm".
func BillFilename(billType string, number int) string {
	return fmt.Sprintf("%s%05d.htm", billType, number)
}
