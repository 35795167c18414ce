package s3types

import (
	"github.com/gabriel-vasile/mimetype"
)

// DetectContentType returns the Content-Type header when the service sent one
// and otherwise sniffs the body.
func (r *GetResult) DetectContentType() string {
	if r.ContentType != nil && *r.ContentType != "" {
		return *r.ContentType
	}
	return mimetype.Detect(r.Body).String()
}
