package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCreateProfileRequestInput_Normalize(t *testing.T) {
	in := CreateProfileRequestInput{Email: "ada@example.com"}.Normalize()
	assert.Equal(t, "ada@example.com", in.PrimaryEmail)
	assert.Empty(t, in.Email)

	in = CreateProfileRequestInput{PrimaryEmail: "ada@example.com", Email: "other@example.com"}.Normalize()
	assert.Equal(t, "ada@example.com", in.PrimaryEmail)
}

func TestProfileRequest_Attributes(t *testing.T) {
	req := ProfileRequest{ID: "r-1", GivenNames: "Ada", FamilyName: "Lovelace", PrimaryEmail: "ada@example.com"}

	assert.Equal(t, map[string]string{
		"id":               "r-1",
		"given_names":      "Ada",
		"family_name":      "Lovelace",
		"primary_email":    "ada@example.com",
		"orcid_profile_id": "",
	}, req.Attributes())
	assert.False(t, req.HasOrcidProfileID())

	req.AddError("base", "taken")
	assert.Equal(t, []string{"taken"}, req.Errors["base"])
}
