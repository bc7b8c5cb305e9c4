package models

import "time"

const ProviderORCID = "orcid"

// Authentication links a local user to an identity at an external provider.
type Authentication struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	Provider  string    `json:"provider"`
	UID       string    `json:"uid"`
	CreatedAt time.Time `json:"created_at"`
}

// ProfileCreated is published once a profile request has been fulfilled.
type ProfileCreated struct {
	RequestID      string    `json:"request_id"`
	UserID         int64     `json:"user_id"`
	OrcidProfileID string    `json:"orcid_profile_id"`
	CreatedAt      time.Time `json:"created_at"`
}
