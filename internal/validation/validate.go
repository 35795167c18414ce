// Package validation checks operation inputs before a request is built.
//
// Failures are returned as *errors.Error values wrapping the package
// sentinels, so callers can match them with errors.Is.
package validation

import (
	"fmt"
	"net"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/input-output-hk/catalyst-forge-libs/aws/s3bridge/errors"
)

const (
	minBucketLen   = 3
	maxBucketLen   = 63
	maxKeyLen      = 1024
	maxMetadataLen = 2048
)

// bucketRule is one check applied to a bucket name.
type bucketRule struct {
	reject func(string) bool
	reason string
}

var bucketRules = []bucketRule{
	{
		reject: func(b string) bool { return len(b) < minBucketLen || len(b) > maxBucketLen },
		reason: fmt.Sprintf("bucket name must be between %d and %d characters long", minBucketLen, maxBucketLen),
	},
	{
		reject: func(b string) bool { return strings.IndexFunc(b, func(r rune) bool { return !isBucketChar(r) }) >= 0 },
		reason: "bucket name can only contain lowercase letters, numbers, dots, and hyphens",
	},
	{
		reject: func(b string) bool { return !isAlnum(b[0]) || !isAlnum(b[len(b)-1]) },
		reason: "bucket name must start and end with a letter or number",
	},
	{
		reject: func(b string) bool { return strings.Contains(b, "..") },
		reason: "bucket name cannot contain two adjacent periods",
	},
	{
		reject: func(b string) bool { return net.ParseIP(b) != nil },
		reason: "bucket name cannot be formatted as an IP address",
	},
	{
		reject: func(b string) bool {
			return strings.HasPrefix(b, "xn--") || strings.HasPrefix(b, "sthree-") ||
				strings.HasSuffix(b, "-s3alias") || strings.HasSuffix(b, "--ol-s3")
		},
		reason: "bucket name uses a reserved prefix or suffix",
	},
}

// ValidateBucketName checks a bucket name against the naming rules for
// general purpose buckets.
func ValidateBucketName(bucket string) error {
	if bucket == "" {
		return errors.NewError("validateBucketName", errors.ErrInvalidBucketName).
			WithMessage("bucket name cannot be empty")
	}
	for _, rule := range bucketRules {
		if rule.reject(bucket) {
			return errors.NewError("validateBucketName", errors.ErrInvalidBucketName).
				WithBucket(bucket).
				WithMessage(rule.reason)
		}
	}
	return nil
}

// ValidateObjectKey checks that key can be encoded into a request path.
func ValidateObjectKey(key string) error {
	var reason string
	switch {
	case key == "":
		reason = "object key cannot be empty"
	case len(key) > maxKeyLen:
		reason = fmt.Sprintf("object key cannot exceed %d bytes", maxKeyLen)
	case !utf8.ValidString(key):
		reason = "object key must be valid UTF-8"
	case strings.IndexFunc(key, unicode.IsControl) >= 0:
		reason = "object key cannot contain control characters"
	default:
		return nil
	}
	return errors.NewError("validateObjectKey", errors.ErrInvalidObjectKey).
		WithKey(key).
		WithMessage(reason)
}

// ValidatePrefix checks a listing prefix. Unlike a key it may be empty.
func ValidatePrefix(prefix string) error {
	if prefix == "" {
		return nil
	}
	if err := ValidateObjectKey(prefix); err != nil {
		return errors.NewError("validatePrefix", errors.ErrInvalidInput).
			WithMessage(err.Error())
	}
	return nil
}

// ValidateHeaderValue rejects values that would break the header block.
func ValidateHeaderValue(name, value string) error {
	if !utf8.ValidString(value) || strings.ContainsAny(value, "\r\n\x00") {
		return errors.NewError("validateHeader", errors.ErrInvalidInput).
			WithMessage(fmt.Sprintf("header %s contains invalid characters", name))
	}
	return nil
}

// ValidateMetadata checks user metadata keys and values.
func ValidateMetadata(metadata map[string]string) error {
	for key, value := range metadata {
		if key == "" {
			return errors.NewError("validateMetadata", errors.ErrInvalidInput).
				WithMessage("metadata key cannot be empty")
		}
		for i := 0; i < len(key); i++ {
			if !isTokenChar(key[i]) {
				return errors.NewError("validateMetadata", errors.ErrInvalidInput).
					WithMessage(fmt.Sprintf("metadata key %q contains invalid characters", key))
			}
		}
		if len(value) > maxMetadataLen {
			return errors.NewError("validateMetadata", errors.ErrInvalidInput).
				WithMessage(fmt.Sprintf("metadata value for %q cannot exceed %d bytes", key, maxMetadataLen))
		}
		if err := ValidateHeaderValue("x-amz-meta-"+key, value); err != nil {
			return err
		}
	}
	return nil
}

func isBucketChar(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '.' || r == '-'
}

func isAlnum(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9')
}

// isTokenChar reports whether c may appear in an HTTP header name.
func isTokenChar(c byte) bool {
	if c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' {
		return true
	}
	return strings.IndexByte("!#$%&'*+-.^_`|~", c) >= 0
}
