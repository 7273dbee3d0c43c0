package validation

import (
	"fmt"
	"net/url"
	"strings"
)

// BaseURLValidator checks the API endpoint a client is pointed at.
type BaseURLValidator struct {
	// RequireHTTPS rejects plain http endpoints
	RequireHTTPS bool
	// MaxLength is the maximum allowed URL length
	MaxLength int
}

// NewBaseURLValidator allows http so a local development server works.
func NewBaseURLValidator() *BaseURLValidator {
	return &BaseURLValidator{
		RequireHTTPS: false,
		MaxLength:    2048,
	}
}

// NewStrictBaseURLValidator only accepts https endpoints.
func NewStrictBaseURLValidator() *BaseURLValidator {
	return &BaseURLValidator{
		RequireHTTPS: true,
		MaxLength:    2048,
	}
}

// ValidateAndNormalize validates an API base URL and returns it without a
// trailing slash, query or fragment so paths can be appended directly.
func (v *BaseURLValidator) ValidateAndNormalize(input string) (string, error) {
	input = strings.TrimSpace(input)

	if input == "" {
		return "", fmt.Errorf("URL cannot be empty")
	}
	if len(input) > v.MaxLength {
		return "", fmt.Errorf("URL too long (max %d characters)", v.MaxLength)
	}

	if strings.ContainsAny(input, "<>\"'` ") {
		return "", fmt.Errorf("URL contains invalid characters")
	}

	// Default to HTTPS when no scheme was given
	if !strings.Contains(input, "://") {
		input = "https://" + input
	}

	parsedURL, err := url.Parse(input)
	if err != nil {
		return "", fmt.Errorf("invalid URL format: %w", err)
	}

	switch parsedURL.Scheme {
	case "https":
	case "http":
		if v.RequireHTTPS {
			return "", fmt.Errorf("URL must use https protocol")
		}
	default:
		return "", fmt.Errorf("URL must use http or https protocol")
	}

	if parsedURL.Hostname() == "" {
		return "", fmt.Errorf("URL must have a valid hostname")
	}

	if strings.Contains(parsedURL.Path, "..") {
		return "", fmt.Errorf("directory traversal patterns not allowed in URL path")
	}

	if parsedURL.User != nil {
		return "", fmt.Errorf("URL must not embed credentials")
	}

	parsedURL.RawQuery = ""
	parsedURL.Fragment = ""
	parsedURL.Path = strings.TrimRight(parsedURL.Path, "/")
	parsedURL.RawPath = ""

	return parsedURL.String(), nil
}
