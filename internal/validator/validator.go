package validator

import (
	"regexp"
	"sort"
	"strings"
)

// Base is the key for messages that are not tied to a single field.
const Base = "base"

var (
	EmailRX = regexp.MustCompile("^[a-zA-Z0-9.!#$%&'*+\\/=?^_`{|}~-]+@[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?(?:\\.[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?)*$")
)

// Errors collects messages per attribute. Messages are kept in insertion order.
type Errors map[string][]string

func (e Errors) Add(key, message string) {
	e[key] = append(e[key], message)
}

func (e Errors) Any() bool {
	return len(e) > 0
}

// Full returns every message, base messages first, then fields in name order.
func (e Errors) Full() []string {
	keys := make([]string, 0, len(e))
	for k := range e {
		if k != Base {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	out := append([]string(nil), e[Base]...)
	for _, k := range keys {
		for _, msg := range e[k] {
			out = append(out, k+" "+msg)
		}
	}

	return out
}

type Validator struct {
	Errors Errors
}

func New() *Validator {
	return &Validator{Errors: make(Errors)}
}

func (v *Validator) Valid() bool {
	return !v.Errors.Any()
}

func (v *Validator) AddError(key, message string) {
	v.Errors.Add(key, message)
}

func (v *Validator) Check(ok bool, key, message string) {
	if !ok {
		v.AddError(key, message)
	}
}

func Matches(value string, rx *regexp.Regexp) bool {
	return rx.MatchString(value)
}

func NotBlank(value string) bool {
	return strings.TrimSpace(value) != ""
}

// ValidationError carries the collected messages out of a service call.
type ValidationError struct {
	Errors Errors
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Errors.Full(), "; ")
}
