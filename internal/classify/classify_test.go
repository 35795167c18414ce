package classify

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	s3errors "github.com/input-output-hk/catalyst-forge-libs/aws/s3bridge/errors"
)

const noSuchBucketBody = `<?xml version="1.0" encoding="UTF-8"?><Error><Code>NoSuchBucket</Code><Message>The specified bucket does not exist</Message><BucketName>missing-bucket</BucketName><RequestId>BHCQ0FTYY0HKMV43</RequestId><HostId>ntCK1jQfPxY7sSNL</HostId></Error>`

var testTable = Table{
	FamilyNotFound: {
		"NoSuchBucket": s3errors.KindNoSuchBucket,
		"NoSuchKey":    s3errors.KindNoSuchKey,
	},
	FamilyForbidden: {
		"AccessDenied": s3errors.KindAccessDenied,
		"NoSuchBucket": s3errors.KindNoSuchBucket,
	},
}

func TestFamilyOf(t *testing.T) {
	tests := map[int]Family{
		400: FamilyBadRequest,
		401: FamilyForbidden,
		403: FamilyForbidden,
		404: FamilyNotFound,
		409: FamilyConflict,
		412: FamilyPreconditionFailed,
		416: FamilyRangeNotSatisfiable,
		500: FamilyServer,
		503: FamilyServer,
		301: FamilyOther,
		0:   FamilyOther,
	}
	for status, want := range tests {
		assert.Equal(t, want, FamilyOf(status), "status %d", status)
	}
}

func TestReadEnvelope(t *testing.T) {
	t.Run("bare error", func(t *testing.T) {
		env, ok := ReadEnvelope([]byte(noSuchBucketBody))
		require.True(t, ok)
		assert.Equal(t, "NoSuchBucket", env.Code)
		assert.Equal(t, "The specified bucket does not exist", env.Message)
		assert.Equal(t, "BHCQ0FTYY0HKMV43", env.RequestID)
	})

	t.Run("wrapped error", func(t *testing.T) {
		body := `<ErrorResponse><Error><Code>AccessDenied</Code><Message>denied</Message><RequestId>r-1</RequestId></Error></ErrorResponse>`
		env, ok := ReadEnvelope([]byte(body))
		require.True(t, ok)
		assert.Equal(t, "AccessDenied", env.Code)
		assert.Equal(t, "r-1", env.RequestID)
	})

	t.Run("unreadable", func(t *testing.T) {
		for _, body := range []string{"", "garbage", "<Error><Message>no code</Message></Error>", "<Error><Code>"} {
			_, ok := ReadEnvelope([]byte(body))
			assert.False(t, ok, "body %q", body)
		}
	})
}

func TestTable_Classify(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   s3errors.DomainKind
		code   string
	}{
		{"not found bucket", 404, noSuchBucketBody, s3errors.KindNoSuchBucket, "NoSuchBucket"},
		{"forbidden bucket", 403, noSuchBucketBody, s3errors.KindNoSuchBucket, "NoSuchBucket"},
		{"not found key", 404, `<Error><Code>NoSuchKey</Code></Error>`, s3errors.KindNoSuchKey, "NoSuchKey"},
		{"forbidden access", 403, `<Error><Code>AccessDenied</Code></Error>`, s3errors.KindAccessDenied, "AccessDenied"},
		{"code outside family", 500, noSuchBucketBody, s3errors.KindUnclassified, "NoSuchBucket"},
		{"unknown code", 404, `<Error><Code>SomethingElse</Code></Error>`, s3errors.KindUnclassified, "SomethingElse"},
		{"unparseable body", 404, "<<<not xml", s3errors.KindUnclassified, ""},
		{"no body", 404, "", s3errors.KindUnclassified, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := testTable.Classify(tt.status, []byte(tt.body))
			assert.Equal(t, tt.want, got.Kind)
			assert.Equal(t, tt.code, got.Envelope.Code)
		})
	}
}

func TestTable_ClassifyDeterministic(t *testing.T) {
	first := testTable.Classify(404, []byte(noSuchBucketBody))
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, testTable.Classify(404, []byte(noSuchBucketBody)))
	}
}

func TestResult_Error(t *testing.T) {
	t.Run("domain", func(t *testing.T) {
		err := testTable.Classify(404, []byte(noSuchBucketBody)).Error(404, []byte(noSuchBucketBody))
		var derr *s3errors.DomainError
		require.True(t, errors.As(err, &derr))
		assert.Equal(t, s3errors.KindNoSuchBucket, derr.Kind)
		assert.Equal(t, 404, derr.StatusCode)
		assert.Equal(t, "BHCQ0FTYY0HKMV43", derr.RequestID)
		assert.True(t, s3errors.IsBucketNotFound(err))
	})

	t.Run("fallback keeps status and body", func(t *testing.T) {
		body := []byte("<<<")
		err := testTable.Classify(403, body).Error(403, body)
		var serr *s3errors.ServiceError
		require.True(t, errors.As(err, &serr))
		assert.Equal(t, 403, serr.StatusCode)
		assert.Equal(t, body, serr.Body)
		assert.True(t, s3errors.IsAccessDenied(err))
	})

	t.Run("fallback keeps code", func(t *testing.T) {
		body := []byte(`<Error><Code>SlowDown</Code><Message>reduce rate</Message></Error>`)
		err := testTable.Classify(503, body).Error(503, body)
		var serr *s3errors.ServiceError
		require.True(t, errors.As(err, &serr))
		assert.Equal(t, "SlowDown", serr.Code)
		assert.Equal(t, "reduce rate", serr.Message)
	})
}
