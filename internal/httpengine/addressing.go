package httpengine

import (
	"fmt"
	"net"
	"net/url"
	"strings"
)

// resolve turns a path-style request path into the URL to send. Buckets
// whose names are valid DNS labels are moved into the host unless path-style
// addressing is forced or the endpoint is an IP address.
func (e *Engine) resolve(path string) (*url.URL, error) {
	rawPath, rawQuery, _ := strings.Cut(path, "?")
	if !strings.HasPrefix(rawPath, "/") {
		return nil, fmt.Errorf("httpengine: request path %q is not absolute", path)
	}

	u := *e.base
	u.RawQuery = rawQuery

	bucket, rest, _ := strings.Cut(strings.TrimPrefix(rawPath, "/"), "/")
	if bucket != "" && e.virtualHosted(bucket) {
		u.Host = bucket + "." + e.base.Host
		rawPath = "/" + rest
	}

	u.RawPath = e.base.EscapedPath() + rawPath
	decoded, err := url.PathUnescape(u.RawPath)
	if err != nil {
		return nil, fmt.Errorf("httpengine: request path %q: %w", path, err)
	}
	u.Path = decoded
	return &u, nil
}

func (e *Engine) virtualHosted(bucket string) bool {
	if e.forcePathStyle {
		return false
	}
	if net.ParseIP(e.base.Hostname()) != nil || e.base.Hostname() == "localhost" {
		return false
	}
	// Dotted names break TLS wildcard certificates.
	return !strings.Contains(bucket, ".")
}
