package s3types

import (
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/stretchr/testify/assert"
)

func TestChecksums_IsZero(t *testing.T) {
	assert.True(t, Checksums{}.IsZero())
	assert.False(t, Checksums{SHA256: aws.String("abc")}.IsZero())
}

func TestGetResult_DetectContentType(t *testing.T) {
	tests := []struct {
		name   string
		result GetResult
		want   string
	}{
		{
			name:   "header wins",
			result: GetResult{ContentType: aws.String("application/x-custom"), Body: []byte("%PDF-1.4")},
			want:   "application/x-custom",
		},
		{
			name:   "sniffed pdf",
			result: GetResult{Body: []byte("%PDF-1.4\n%âãÏÓ\n")},
			want:   "application/pdf",
		},
		{
			name:   "sniffed text",
			result: GetResult{Body: []byte("hello world")},
			want:   "text/plain; charset=utf-8",
		},
		{
			name:   "empty header falls back",
			result: GetResult{ContentType: aws.String(""), Body: []byte("hello")},
			want:   "text/plain; charset=utf-8",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.result.DetectContentType())
		})
	}
}
