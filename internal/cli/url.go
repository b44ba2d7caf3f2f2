package cli

import (
	"fmt"
	"net/url"
	"strings"
)

// parseURL splits a URL into base URL and path
func parseURL(fullURL string) (string, string) {
	// Add scheme if missing
	if !hasScheme(fullURL) {
		fullURL = "http://" + fullURL
	}

	parsedURL, err := url.Parse(fullURL)
	if err != nil {
		return fullURL, "/"
	}

	baseURL := fmt.Sprintf("%s://%s", parsedURL.Scheme, parsedURL.Host)
	if parsedURL.User != nil {
		baseURL = fmt.Sprintf("%s://%s@%s", parsedURL.Scheme, parsedURL.User.String(), parsedURL.Host)
	}

	path := parsedURL.EscapedPath()
	if path == "" {
		path = "/"
	}
	if parsedURL.RawQuery != "" {
		path += "?" + parsedURL.RawQuery
	}
	if parsedURL.Fragment != "" {
		path += "#" + parsedURL.Fragment
	}

	return baseURL, path
}

func hasScheme(rawURL string) bool {
	return strings.HasPrefix(rawURL, "http://") || strings.HasPrefix(rawURL, "https://")
}

// resolveTarget picks the base URL and path for rawURL. Absolute URLs
// stand alone; anything else is a path relative to configuredBase when
// one is configured.
func resolveTarget(rawURL, configuredBase string) (string, string) {
	if configuredBase == "" || hasScheme(rawURL) {
		return parseURL(rawURL)
	}
	if !strings.HasPrefix(rawURL, "/") {
		rawURL = "/" + rawURL
	}
	return strings.TrimSuffix(configuredBase, "/"), rawURL
}

// parseHeaders turns "Key: Value" strings into a map.
func parseHeaders(values []string) (map[string]string, error) {
	headers := make(map[string]string, len(values))
	for _, header := range values {
		parts := strings.SplitN(header, ":", 2)
		if len(parts) != 2 || strings.TrimSpace(parts[0]) == "" {
			return nil, fmt.Errorf("invalid header %q, expected \"Key: Value\"", header)
		}
		headers[strings.TrimSpace(parts[0])] = strings.TrimSpace(parts[1])
	}
	return headers, nil
}

// parseQuery turns "key=value" strings into query parameters.
func parseQuery(values []string) (url.Values, error) {
	query := url.Values{}
	for _, param := range values {
		key, value, ok := strings.Cut(param, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid query parameter %q, expected key=value", param)
		}
		query.Add(key, value)
	}
	return query, nil
}
