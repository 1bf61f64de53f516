package utils

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/url"
	"strings"
)

var ErrInvalidURL = errors.New("invalid URL")

// HashContent returns the hex SHA256 digest of s.
func HashContent(s string) string {
	h := sha256.Sum256([]byte(s))
	return hex.EncodeToString(h[:])
}

// ToAbsoluteURL converts a relative URL to an absolute URL given a base URL.
func ToAbsoluteURL(base *url.URL, relative string) (string, error) {
	relURL, err := url.Parse(strings.TrimSpace(relative))
	if err != nil {
		return "", err
	}
	return base.ResolveReference(relURL).String(), nil
}

// ParseHTTPURL parses an absolute http(s) URL.
func ParseHTTPURL(rawURL string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return nil, errors.Join(ErrInvalidURL, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, ErrInvalidURL
	}
	return u, nil
}

// DomainFromURL returns the lower-cased host of rawURL without a leading "www.".
func DomainFromURL(rawURL string) (string, error) {
	u, err := ParseHTTPURL(rawURL)
	if err != nil {
		return "", err
	}
	return strings.TrimPrefix(strings.ToLower(u.Host), "www."), nil
}

// SameHost compares hosts including port, case-insensitively.
func SameHost(a, b *url.URL) bool {
	return strings.EqualFold(a.Host, b.Host)
}

// URLPath returns the path of rawURL, "/" when empty.
func URLPath(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Path == "" {
		return "/"
	}
	return u.Path
}
