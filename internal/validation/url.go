// Package validation checks untrusted strings: configured origins,
// request Origin headers and free-text query input.
package validation

import (
	"fmt"
	"net/url"
	"strings"
)

// ValidateURL checks that rawURL is an absolute http(s) URL with a host
// and no shell or markup metacharacters.
func ValidateURL(rawURL string) error {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}

	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("invalid URL scheme: %s (only http/https allowed)", parsed.Scheme)
	}

	dangerous := []string{";", "&", "|", "`", "$", "(", ")", "<", ">", "\"", "'", "\\", "\n", "\r"}
	for _, char := range dangerous {
		if strings.Contains(rawURL, char) {
			return fmt.Errorf("URL contains dangerous character: %s", char)
		}
	}

	if strings.Contains(rawURL, " ") {
		return fmt.Errorf("URL contains spaces")
	}

	if parsed.Host == "" {
		return fmt.Errorf("URL must have a valid hostname")
	}

	return nil
}

// ValidateOriginSetting checks one entry of server.allowed_origins. An
// entry is either "*" or a scheme://host[:port] origin without a path.
func ValidateOriginSetting(origin string) error {
	if origin == "*" {
		return nil
	}
	if err := ValidateURL(origin); err != nil {
		return err
	}

	parsed, _ := url.Parse(origin)
	if (parsed.Path != "" && parsed.Path != "/") || parsed.RawQuery != "" || parsed.Fragment != "" {
		return fmt.Errorf("origin must not carry a path, query or fragment: %s", origin)
	}
	return nil
}
