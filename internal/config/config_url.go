// Vectorcast - Video Embedding and Similarity Recommendation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vectorcast

package config

import (
	"fmt"
	"net"
	"net/url"
)

// validateHTTPURL validates that a URL is usable as an HTTP/HTTPS API base.
// Validates: scheme (http/https), host present, no query params. A path
// prefix such as /v1 is allowed.
func validateHTTPURL(rawURL, fieldName string) error {
	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("%s failed to parse URL: %w", fieldName, err)
	}

	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return fmt.Errorf("%s scheme must be http or https, got: %s", fieldName, parsedURL.Scheme)
	}

	if parsedURL.Host == "" {
		return fmt.Errorf("%s host is required", fieldName)
	}

	if parsedURL.RawQuery != "" {
		return fmt.Errorf("%s should not contain query parameters, remove: ?%s", fieldName, parsedURL.RawQuery)
	}

	return nil
}

// validateHostPort validates a host:port address such as a Redis endpoint.
func validateHostPort(addr, fieldName string) error {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return fmt.Errorf("%s must be host:port: %w", fieldName, err)
	}
	if host == "" {
		return fmt.Errorf("%s host is required", fieldName)
	}
	if port == "" {
		return fmt.Errorf("%s port is required", fieldName)
	}
	return nil
}
