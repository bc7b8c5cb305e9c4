package validator

import (
	"unicode/utf8"
)

func ValidateProfileRequestInput(v *Validator, userID int64, givenNames, familyName, email, emailConfirmation string) {
	v.Check(userID > 0, "user_id", "can't be blank")

	v.Check(NotBlank(givenNames), "given_names", "can't be blank")
	v.Check(NotBlank(familyName), "family_name", "can't be blank")

	v.Check(NotBlank(email), "primary_email", "can't be blank")
	v.Check(utf8.RuneCountInString(email) <= 255, "primary_email", "must be less than 255 characters")
	v.Check(email == "" || Matches(email, EmailRX), "primary_email", "is not a valid email")
	v.Check(email == emailConfirmation, "primary_email_confirmation", "doesn't match Primary email")
}
