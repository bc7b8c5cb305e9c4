package models

import (
	"time"

	"orcid/internal/validator"
)

// ProfileRequest is a user's request to have an ORCID profile created on their behalf.
// OrcidProfileID stays empty until ORCID has accepted the request.
type ProfileRequest struct {
	ID             string    `json:"id"`
	UserID         int64     `json:"user_id"`
	GivenNames     string    `json:"given_names"`
	FamilyName     string    `json:"family_name"`
	PrimaryEmail   string    `json:"primary_email"`
	OrcidProfileID string    `json:"orcid_profile_id,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`

	Errors validator.Errors `json:"errors,omitempty"`
}

func (r *ProfileRequest) HasOrcidProfileID() bool {
	return r.OrcidProfileID != ""
}

// AddError records a precondition failure on the request itself.
func (r *ProfileRequest) AddError(key, message string) {
	if r.Errors == nil {
		r.Errors = make(validator.Errors)
	}
	r.Errors.Add(key, message)
}

// Attributes returns the request as the flat attribute set the payload builder consumes.
func (r *ProfileRequest) Attributes() map[string]string {
	return map[string]string{
		"id":               r.ID,
		"given_names":      r.GivenNames,
		"family_name":      r.FamilyName,
		"primary_email":    r.PrimaryEmail,
		"orcid_profile_id": r.OrcidProfileID,
	}
}

type CreateProfileRequestInput struct {
	UserID                   int64  `json:"user_id"`
	GivenNames               string `json:"given_names"`
	FamilyName               string `json:"family_name"`
	PrimaryEmail             string `json:"primary_email"`
	PrimaryEmailConfirmation string `json:"primary_email_confirmation"`
	// Email is accepted as an alias of PrimaryEmail.
	Email string `json:"email,omitempty"`
}

func (in CreateProfileRequestInput) Normalize() CreateProfileRequestInput {
	if in.PrimaryEmail == "" {
		in.PrimaryEmail = in.Email
	}
	in.Email = ""

	return in
}
