// Package operations contains the request builders, response parsers and
// error tables of each supported operation, one subpackage per operation.
// This package holds the pieces they share.
package operations

import (
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/input-output-hk/catalyst-forge-libs/aws/s3bridge/engine"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3bridge/internal/parse"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3bridge/s3types"
)

// checksumFields pairs each checksum algorithm with its header and element name.
var checksumFields = []struct {
	header  string
	element string
	field   func(*s3types.Checksums) **string
}{
	{"x-amz-checksum-crc32", "ChecksumCRC32", func(c *s3types.Checksums) **string { return &c.CRC32 }},
	{"x-amz-checksum-crc32c", "ChecksumCRC32C", func(c *s3types.Checksums) **string { return &c.CRC32C }},
	{"x-amz-checksum-crc64nvme", "ChecksumCRC64NVME", func(c *s3types.Checksums) **string { return &c.CRC64NVME }},
	{"x-amz-checksum-sha1", "ChecksumSHA1", func(c *s3types.Checksums) **string { return &c.SHA1 }},
	{"x-amz-checksum-sha256", "ChecksumSHA256", func(c *s3types.Checksums) **string { return &c.SHA256 }},
}

// ChecksumHeaders reads the x-amz-checksum-* response headers.
func ChecksumHeaders(h engine.Headers) (s3types.Checksums, error) {
	var c s3types.Checksums
	for _, f := range checksumFields {
		v, err := parse.OptionalHeader(h, f.header)
		if err != nil {
			return s3types.Checksums{}, err
		}
		*f.field(&c) = v
	}
	t, err := parse.OptionalHeader(h, "x-amz-checksum-type")
	if err != nil {
		return s3types.Checksums{}, err
	}
	if t != nil {
		ct := types.ChecksumType(*t)
		c.Type = &ct
	}
	return c, nil
}

// ChecksumElements reads Checksum* child elements of n.
func ChecksumElements(n *parse.Node) (s3types.Checksums, error) {
	var c s3types.Checksums
	for _, f := range checksumFields {
		v, err := parse.OptionalText(n, f.element)
		if err != nil {
			return s3types.Checksums{}, err
		}
		*f.field(&c) = v
	}
	t, err := parse.OptionalText(n, "ChecksumType")
	if err != nil {
		return s3types.Checksums{}, err
	}
	if t != nil {
		ct := types.ChecksumType(*t)
		c.Type = &ct
	}
	return c, nil
}
