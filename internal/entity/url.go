// Package entity defines the entities and errors used in the application.
// It includes the URL struct, which represents a shortened URL, along with its
// associated metadata, and any relevant error definitions.
package entity

import (
	"errors"
	"time"
)

var (
	// ErrShortCodeExists is returned when attempting to create a URL with a short code that already exists.
	ErrShortCodeExists = errors.New("short code exists")
	// ErrURLNotFound is returned when a URL with the specified short code or id cannot be found.
	ErrURLNotFound = errors.New("url not found")
	// ErrInvalidURLID is returned when a URL id cannot be parsed as a store-assigned identifier.
	ErrInvalidURLID = errors.New("invalid url id")
)

// URL represents a shortened URL.
//
// Clicks holds the durable click total. The cache keeps only the unsynced
// delta accrued since the last reconciliation, so a cached copy of this
// struct is never trusted for click reporting.
type URL struct {
	ID        string    `json:"id"`         // ID is the store-assigned identifier, immutable once created.
	ShortCode string    `json:"short_code"` // ShortCode is the generated code the target URL resolves from.
	TargetURL string    `json:"target_url"` // TargetURL is the full URL that the short code redirects to.
	Clicks    int64     `json:"clicks"`     // Clicks is the synced number of redirects served for the code.
	CreatedAt time.Time `json:"created_at"` // CreatedAt is the timestamp when the URL was created.
}
