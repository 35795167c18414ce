package copy

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/input-output-hk/catalyst-forge-libs/aws/s3bridge/engine"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3bridge/errors"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3bridge/internal/bridge"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3bridge/internal/testutil"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3bridge/s3types"
)

func TestBuild(t *testing.T) {
	req, err := Build(Input{
		SourceBucket: "src-bucket",
		SourceKey:    "a/b c.txt",
		Bucket:       "dst-bucket",
		Key:          "copied.txt",
	})
	require.NoError(t, err)

	assert.Equal(t, "PUT", req.Method)
	assert.Equal(t, "/dst-bucket/copied.txt", req.Path)
	assert.Nil(t, req.Body)

	src, ok := req.Headers.Get("x-amz-copy-source")
	require.True(t, ok)
	assert.Equal(t, "/src-bucket/a/b%20c.txt", src)

	_, ok = req.Headers.Get("x-amz-metadata-directive")
	assert.False(t, ok)
}

func TestBuild_Options(t *testing.T) {
	req, err := Build(Input{
		SourceBucket: "src-bucket",
		SourceKey:    "k",
		Bucket:       "dst-bucket",
		Key:          "k2",
		Options: s3types.CopyOptionConfig{
			SourceVersionID:   aws.String("v1"),
			Metadata:          map[string]string{"b": "2", "a": "1"},
			ReplaceMetadata:   true,
			StorageClass:      types.StorageClassStandardIa,
			ChecksumAlgorithm: types.ChecksumAlgorithmSha256,
			IfMatch:           aws.String(`"etag"`),
		},
	})
	require.NoError(t, err)

	get := func(name string) string {
		v, ok := req.Headers.Get(name)
		require.True(t, ok, name)
		return v
	}
	assert.Equal(t, "/src-bucket/k?versionId=v1", get("x-amz-copy-source"))
	assert.Equal(t, "REPLACE", get("x-amz-metadata-directive"))
	assert.Equal(t, "STANDARD_IA", get("x-amz-storage-class"))
	assert.Equal(t, "SHA256", get("x-amz-checksum-algorithm"))
	assert.Equal(t, `"etag"`, get("x-amz-copy-source-if-match"))

	var metaOrder []string
	for _, h := range req.Headers {
		if h.Name == "x-amz-meta-a" || h.Name == "x-amz-meta-b" {
			metaOrder = append(metaOrder, h.Name)
		}
	}
	assert.Equal(t, []string{"x-amz-meta-a", "x-amz-meta-b"}, metaOrder)
}

func TestBuild_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		in    Input
		field string
	}{
		{"bad source bucket", Input{SourceBucket: "X", SourceKey: "k", Bucket: "dst-bucket", Key: "k"}, "source bucket"},
		{"missing source key", Input{SourceBucket: "src-bucket", Bucket: "dst-bucket", Key: "k"}, "source key"},
		{"bad destination", Input{SourceBucket: "src-bucket", SourceKey: "k", Bucket: "dst-bucket"}, "key"},
		{
			"bad metadata",
			Input{
				SourceBucket: "src-bucket", SourceKey: "k", Bucket: "dst-bucket", Key: "k",
				Options: s3types.CopyOptionConfig{ReplaceMetadata: true, Metadata: map[string]string{"bad key": "v"}},
			},
			"metadata",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Build(tt.in)
			var cerr *errors.ConstructionError
			require.True(t, stderrors.As(err, &cerr), "got %v", err)
			assert.Equal(t, tt.field, cerr.Field)
		})
	}
}

func TestParseHeaders(t *testing.T) {
	t.Run("etag only", func(t *testing.T) {
		r, err := ParseHeaders(engine.Headers{{Name: "ETag", Value: `"abc"`}})
		require.NoError(t, err)
		assert.Equal(t, `"abc"`, aws.ToString(r.ETag))
		assert.True(t, r.Checksums.IsZero())
		assert.Nil(t, r.LastModified)
		assert.Nil(t, r.VersionID)
	})

	t.Run("all fields", func(t *testing.T) {
		r, err := ParseHeaders(engine.Headers{
			{Name: "ETag", Value: `"abc"`},
			{Name: "Last-Modified", Value: "Wed, 21 Oct 2015 07:28:00 GMT"},
			{Name: "x-amz-checksum-crc32", Value: "AAAAAA=="},
			{Name: "x-amz-checksum-sha256", Value: "c2hhMjU2"},
			{Name: "x-amz-checksum-type", Value: "FULL_OBJECT"},
			{Name: "x-amz-version-id", Value: "v2"},
			{Name: "x-amz-copy-source-version-id", Value: "v1"},
			{Name: "x-amz-server-side-encryption", Value: "AES256"},
		})
		require.NoError(t, err)
		assert.True(t, r.LastModified.Equal(time.Date(2015, 10, 21, 7, 28, 0, 0, time.UTC)))
		assert.Equal(t, "AAAAAA==", aws.ToString(r.Checksums.CRC32))
		assert.Equal(t, "c2hhMjU2", aws.ToString(r.Checksums.SHA256))
		assert.Nil(t, r.Checksums.CRC32C)
		assert.Nil(t, r.Checksums.CRC64NVME)
		assert.Nil(t, r.Checksums.SHA1)
		require.NotNil(t, r.Checksums.Type)
		assert.Equal(t, types.ChecksumTypeFullObject, *r.Checksums.Type)
		assert.Equal(t, "v2", aws.ToString(r.VersionID))
		assert.Equal(t, "v1", aws.ToString(r.SourceVersionID))
		assert.Equal(t, "AES256", aws.ToString(r.ServerSideEncryption))
	})

	t.Run("bad date", func(t *testing.T) {
		_, err := ParseHeaders(engine.Headers{{Name: "Last-Modified", Value: "soon"}})
		var perr *errors.ParseError
		require.True(t, stderrors.As(err, &perr))
		assert.Equal(t, errors.InvalidFieldValue, perr.Kind)
		assert.Equal(t, "Last-Modified", perr.Field)
	})
}

func copyRequest(t *testing.T) *engine.Request {
	t.Helper()
	req, err := Build(Input{SourceBucket: "src-bucket", SourceKey: "k", Bucket: "dst-bucket", Key: "k"})
	require.NoError(t, err)
	return req
}

func TestOperation_Responses(t *testing.T) {
	t.Run("success with etag only", func(t *testing.T) {
		eng := testutil.NewScriptedEngine(testutil.Respond(200).WithHeader("ETag", `"abc"`).Script())
		r, err := bridge.Do(context.Background(), eng, copyRequest(t), Operation)
		require.NoError(t, err)
		assert.Equal(t, `"abc"`, aws.ToString(r.ETag))
		assert.True(t, r.Checksums.IsZero())
	})

	t.Run("missing source bucket", func(t *testing.T) {
		body := `<?xml version="1.0" encoding="UTF-8"?><Error><Code>NoSuchBucket</Code><Message>The specified bucket does not exist</Message><BucketName>src-bucket</BucketName><RequestId>BHCQ0FTYY0HKMV43</RequestId><HostId>host</HostId></Error>`
		eng := testutil.NewScriptedEngine(testutil.Respond(404).WithBody(body).Script())
		_, err := bridge.Do(context.Background(), eng, copyRequest(t), Operation)

		var derr *errors.DomainError
		require.True(t, stderrors.As(err, &derr), "got %v", err)
		assert.Equal(t, errors.KindNoSuchBucket, derr.Kind)
		assert.True(t, errors.IsBucketNotFound(err))
	})

	t.Run("forbidden with recognised code", func(t *testing.T) {
		body := `<Error><Code>AccessDenied</Code><Message>Access Denied</Message></Error>`
		eng := testutil.NewScriptedEngine(testutil.Respond(403).WithBody(body).Script())
		_, err := bridge.Do(context.Background(), eng, copyRequest(t), Operation)

		var derr *errors.DomainError
		require.True(t, stderrors.As(err, &derr))
		assert.Equal(t, errors.KindAccessDenied, derr.Kind)
		assert.True(t, errors.IsAccessDenied(err))
	})

	t.Run("forbidden without body", func(t *testing.T) {
		eng := testutil.NewScriptedEngine(testutil.Respond(403).Script())
		_, err := bridge.Do(context.Background(), eng, copyRequest(t), Operation)

		var serr *errors.ServiceError
		require.True(t, stderrors.As(err, &serr))
		assert.Equal(t, 403, serr.StatusCode)
		assert.True(t, errors.IsAccessDenied(err))
	})

	t.Run("forbidden missing bucket", func(t *testing.T) {
		body := `<Error><Code>NoSuchBucket</Code></Error>`
		eng := testutil.NewScriptedEngine(testutil.Respond(403).WithBody(body).Script())
		_, err := bridge.Do(context.Background(), eng, copyRequest(t), Operation)
		assert.True(t, errors.IsBucketNotFound(err))
	})
}
