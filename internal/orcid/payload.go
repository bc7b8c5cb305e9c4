package orcid

import (
	"errors"
	"fmt"
	"strings"
	"text/template"
)

var ErrKeyNotFound = errors.New("key not found")

// Keys the payload template reads from the attribute set.
const (
	KeyGivenNames   = "given_names"
	KeyFamilyName   = "family_name"
	KeyPrimaryEmail = "primary_email"
)

// Values are written as-is: ORCID's create endpoint has always received the raw
// attribute values, and callers are responsible for sanitizing them.
var payloadTemplate = template.Must(template.New("orcid-message").Option("missingkey=error").Parse(`
<?xml version="1.0" encoding="UTF-8"?>
<orcid-message
  xmlns:xsi="http://www.orcid.org/ns/orcid https://raw.github.com/ORCID/ORCID-Source/master/orcid-model/src/main/resources/orcid-message-1.1.xsd"
  xmlns="http://www.orcid.org/ns/orcid">
  <message-version>1.1</message-version>
  <orcid-profile>
    <orcid-bio>
      <personal-details>
        <given-names>{{ index . "given_names" }}</given-names>
        <family-name>{{ index . "family_name" }}</family-name>
      </personal-details>
      <contact-details>
        <email primary="true">{{ index . "primary_email" }}</email>
      </contact-details>
    </orcid-bio>
  </orcid-profile>
</orcid-message>
`))

// BuildPayload renders the orcid-message v1.1 document used to create a profile.
func BuildPayload(attrs map[string]string) (string, error) {
	const op = "orcid.BuildPayload"

	for _, key := range []string{KeyGivenNames, KeyFamilyName, KeyPrimaryEmail} {
		if _, ok := attrs[key]; !ok {
			return "", fmt.Errorf("%s: %w: %q", op, ErrKeyNotFound, key)
		}
	}

	var b strings.Builder
	if err := payloadTemplate.Execute(&b, attrs); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return strings.TrimSpace(b.String()), nil
}

// PayloadBuilderFunc adapts a plain function to the payload builder contract.
type PayloadBuilderFunc func(attrs map[string]string) (string, error)

func (f PayloadBuilderFunc) BuildPayload(attrs map[string]string) (string, error) {
	return f(attrs)
}
