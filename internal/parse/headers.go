// Package parse decodes response headers and XML bodies into typed fields.
//
// Every helper follows the same rules. An optional field that is absent yields
// nil. A required field that is absent is a MissingField error. A field that is
// present but cannot be decoded is an error naming the field, whether or not it
// is optional.
package parse

import (
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	smithytime "github.com/aws/smithy-go/time"

	"github.com/input-output-hk/catalyst-forge-libs/aws/s3bridge/engine"
	s3errors "github.com/input-output-hk/catalyst-forge-libs/aws/s3bridge/errors"
)

// headerValue looks up name and rejects values that are not valid UTF-8 or
// that contain line breaks.
func headerValue(h engine.Headers, name string) (string, bool, error) {
	v, ok := h.Get(name)
	if !ok {
		return "", false, nil
	}
	if !utf8.ValidString(v) || strings.ContainsAny(v, "\r\n") {
		return "", true, &s3errors.ParseError{
			Kind:  s3errors.HeaderProtocol,
			Field: name,
			Raw:   strconv.Quote(v),
		}
	}
	return v, true, nil
}

// RequiredHeader returns the value of a header that must be present.
func RequiredHeader(h engine.Headers, name string) (string, error) {
	v, ok, err := headerValue(h, name)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", &s3errors.ParseError{Kind: s3errors.MissingField, Field: name}
	}
	return v, nil
}

// OptionalHeader returns the header value or nil when absent.
func OptionalHeader(h engine.Headers, name string) (*string, error) {
	v, ok, err := headerValue(h, name)
	if err != nil || !ok {
		return nil, err
	}
	return &v, nil
}

// OptionalHeaderTime decodes an HTTP-date header such as Last-Modified.
func OptionalHeaderTime(h engine.Headers, name string) (*time.Time, error) {
	v, ok, err := headerValue(h, name)
	if err != nil || !ok {
		return nil, err
	}
	t, err := smithytime.ParseHTTPDate(v)
	if err != nil {
		return nil, invalidValue(name, v, err)
	}
	return &t, nil
}

// OptionalHeaderInt64 decodes a decimal integer header such as Content-Length.
func OptionalHeaderInt64(h engine.Headers, name string) (*int64, error) {
	v, ok, err := headerValue(h, name)
	if err != nil || !ok {
		return nil, err
	}
	n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
	if err != nil {
		return nil, invalidValue(name, v, err)
	}
	return &n, nil
}

// OptionalHeaderBool decodes a boolean header such as x-amz-delete-marker.
func OptionalHeaderBool(h engine.Headers, name string) (*bool, error) {
	v, ok, err := headerValue(h, name)
	if err != nil || !ok {
		return nil, err
	}
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	if err != nil {
		return nil, invalidValue(name, v, err)
	}
	return &b, nil
}

// Metadata collects x-amz-meta-* headers keyed by the lower-cased suffix.
// Later duplicates are joined with a comma, matching HTTP list semantics.
func Metadata(h engine.Headers) (map[string]string, error) {
	const prefix = "x-amz-meta-"
	var out map[string]string
	for _, hdr := range h {
		name := strings.ToLower(hdr.Name)
		if !strings.HasPrefix(name, prefix) {
			continue
		}
		v, _, err := headerValue(engine.Headers{hdr}, hdr.Name)
		if err != nil {
			return nil, err
		}
		if out == nil {
			out = make(map[string]string)
		}
		key := strings.TrimPrefix(name, prefix)
		if prev, ok := out[key]; ok {
			v = prev + "," + v
		}
		out[key] = v
	}
	return out, nil
}

func invalidValue(field, raw string, err error) error {
	return &s3errors.ParseError{
		Kind:  s3errors.InvalidFieldValue,
		Field: field,
		Raw:   raw,
		Err:   err,
	}
}
