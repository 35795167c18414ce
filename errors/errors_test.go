package errors

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestError_Format(t *testing.T) {
	tests := []struct {
		name string
		err  *Error
		want string
	}{
		{
			name: "bucket and key",
			err:  NewObjectError("get", "bucket", "key", ErrObjectNotFound),
			want: "s3bridge.get bucket/key: s3bridge: object not found",
		},
		{
			name: "bucket only",
			err:  NewBucketError("list", "bucket", ErrBucketNotFound),
			want: "s3bridge.list bucket bucket: s3bridge: bucket not found",
		},
		{
			name: "key only",
			err:  NewError("get", ErrInvalidInput).WithKey("key"),
			want: "s3bridge.get object key: s3bridge: invalid input",
		},
		{
			name: "no context",
			err:  NewError("client initialization", ErrInvalidInput),
			want: "s3bridge.client initialization: s3bridge: invalid input",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestError_WithMessageKeepsChain(t *testing.T) {
	err := NewError("copy", ErrAccessDenied).WithMessage("copy refused")
	assert.True(t, IsAccessDenied(err))
	assert.Contains(t, err.Error(), "copy refused")
}

func TestDomainError_Sentinels(t *testing.T) {
	tests := []struct {
		kind DomainKind
		want error
	}{
		{KindNoSuchBucket, ErrBucketNotFound},
		{KindNoSuchKey, ErrObjectNotFound},
		{KindAccessDenied, ErrAccessDenied},
		{KindInvalidObjectState, ErrInvalidObjectState},
		{KindPreconditionFailed, ErrPreconditionFailed},
		{KindInvalidRange, ErrInvalidRange},
	}

	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			err := NewObjectError("get", "b", "k", &DomainError{Kind: tt.kind, StatusCode: 404})
			assert.ErrorIs(t, err, tt.want)
			assert.Equal(t, CategoryDomain, CategoryOf(err))
		})
	}
}

func TestDomainError_APIError(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", &DomainError{
		Kind:       KindNoSuchBucket,
		Code:       "NoSuchBucket",
		Message:    "The specified bucket does not exist",
		StatusCode: 404,
	})

	var apiErr smithy.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "NoSuchBucket", apiErr.ErrorCode())
	assert.Equal(t, "The specified bucket does not exist", apiErr.ErrorMessage())
	assert.Equal(t, smithy.FaultClient, apiErr.ErrorFault())
}

func TestServiceError(t *testing.T) {
	t.Run("forbidden satisfies access denied", func(t *testing.T) {
		err := &ServiceError{StatusCode: 403}
		assert.ErrorIs(t, err, ErrAccessDenied)
		assert.Equal(t, CategoryNetwork, CategoryOf(err))
	})

	t.Run("throttled", func(t *testing.T) {
		assert.ErrorIs(t, &ServiceError{StatusCode: 503}, ErrTooManyRequests)
		assert.ErrorIs(t, &ServiceError{StatusCode: 429}, ErrTooManyRequests)
	})

	t.Run("unwraps engine failure", func(t *testing.T) {
		err := &ServiceError{Err: context.DeadlineExceeded}
		assert.ErrorIs(t, err, context.DeadlineExceeded)
		assert.Contains(t, err.Error(), "transport failure")
	})

	t.Run("fault from status", func(t *testing.T) {
		assert.Equal(t, smithy.FaultServer, (&ServiceError{StatusCode: 500}).ErrorFault())
		assert.Equal(t, smithy.FaultClient, (&ServiceError{StatusCode: 400}).ErrorFault())
		assert.Equal(t, smithy.FaultUnknown, (&ServiceError{}).ErrorFault())
	})
}

func TestInternalError(t *testing.T) {
	perr := &ParseError{Kind: InvalidFieldValue, Field: "LastModified", Raw: "yesterday"}
	err := NewObjectError("list", "b", "", &InternalError{Err: perr})

	assert.True(t, IsMalformedResponse(err))
	assert.Equal(t, CategoryInternal, CategoryOf(err))

	var got *ParseError
	require.True(t, errors.As(err, &got))
	assert.Equal(t, "yesterday", got.Raw)
	assert.Contains(t, err.Error(), `invalid field value "LastModified"`)
}

func TestConstructionError(t *testing.T) {
	err := &ConstructionError{Field: "bucket", Reason: "rejected", Err: ErrInvalidBucketName}
	assert.True(t, IsInvalidInput(err))
	assert.ErrorIs(t, err, ErrInvalidBucketName)
	assert.Equal(t, CategoryInvalidInput, CategoryOf(err))
}

func TestCategoryOf_Unknown(t *testing.T) {
	assert.Equal(t, CategoryUnknown, CategoryOf(errors.New("plain")))
	assert.Equal(t, CategoryUnknown, CategoryOf(nil))
}
