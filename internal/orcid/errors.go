package orcid

import (
	"fmt"
	"net/http"
	"strings"

	"golang.org/x/oauth2"
)

// ConfigurationError is returned when a required ORCID setting is absent.
type ConfigurationError struct {
	Key string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("Unable to find %q in configuration storage.", e.Key)
}

// ClientInfo describes the OAuth client a remote call was made with.
type ClientInfo struct {
	ID      string
	Site    string
	Options map[string]string
	Scope   string
}

// RemoteServiceErrorOptions is everything known about a failed remote call.
// Zero values are treated as "not supplied" and left out of the message.
type RemoteServiceErrorOptions struct {
	Client         *ClientInfo
	Token          *oauth2.Token
	RequestPath    string
	RequestHeaders http.Header
	RequestBody    string
	ResponseStatus int
	ResponseBody   string
	// Cause is the underlying transport or decoding error, if any.
	Cause error
}

// RemoteServiceError reports a failed call to ORCID with the full client, token,
// request and response context, since that is what troubleshooting needs.
type RemoteServiceError struct {
	Options RemoteServiceErrorOptions
	msg     string
}

func NewRemoteServiceError(opts RemoteServiceErrorOptions) *RemoteServiceError {
	text := []string{"-- Client --"}
	text = appendClient(text, opts.Client)
	text = appendToken(text, opts.Token)
	text = appendRequest(text, opts)
	text = appendResponse(text, opts)

	return &RemoteServiceError{Options: opts, msg: strings.Join(text, "\n")}
}

func (e *RemoteServiceError) Error() string {
	return e.msg
}

func (e *RemoteServiceError) Unwrap() error {
	return e.Options.Cause
}

// StatusCode is the HTTP status ORCID answered with, 0 when no response arrived.
func (e *RemoteServiceError) StatusCode() int {
	return e.Options.ResponseStatus
}

func appendClient(text []string, client *ClientInfo) []string {
	if client == nil {
		return text
	}

	text = append(text,
		fmt.Sprintf("id:\n\t%q", client.ID),
		fmt.Sprintf("site:\n\t%q", client.Site),
		fmt.Sprintf("options:\n\t%q", client.Options),
	)
	if client.Scope != "" {
		text = append(text, fmt.Sprintf("scopes:\n\t%s", client.Scope))
	}

	return text
}

func appendToken(text []string, token *oauth2.Token) []string {
	text = append(text, "\n-- Token --")
	if token == nil {
		return text
	}

	return append(text,
		fmt.Sprintf("access_token:\n\t%q", token.AccessToken),
		fmt.Sprintf("refresh_token:\n\t%q", token.RefreshToken),
	)
}

func appendRequest(text []string, opts RemoteServiceErrorOptions) []string {
	text = append(text, "\n-- Request --")
	if opts.RequestPath != "" {
		text = append(text, fmt.Sprintf("path:\n\t%q", opts.RequestPath))
	}
	if opts.RequestHeaders != nil {
		text = append(text, fmt.Sprintf("headers:\n\t%q", map[string][]string(opts.RequestHeaders)))
	}
	if opts.RequestBody != "" {
		text = append(text, fmt.Sprintf("body:\n\t%s", opts.RequestBody))
	}

	return text
}

func appendResponse(text []string, opts RemoteServiceErrorOptions) []string {
	text = append(text, "\n-- Response --")
	if opts.ResponseStatus != 0 {
		text = append(text, fmt.Sprintf("status:\n\t%d", opts.ResponseStatus))
	}
	if opts.ResponseBody != "" {
		text = append(text, fmt.Sprintf("body:\n\t%s", opts.ResponseBody))
	}

	return text
}
