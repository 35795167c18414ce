package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHeaders_Lookup(t *testing.T) {
	h := Headers{
		{Name: "ETag", Value: `"abc"`},
		{Name: "x-amz-meta-a", Value: "1"},
		{Name: "X-Amz-Meta-A", Value: "2"},
	}

	v, ok := h.Get("etag")
	assert.True(t, ok)
	assert.Equal(t, `"abc"`, v)

	_, ok = h.Get("last-modified")
	assert.False(t, ok)

	assert.Equal(t, []string{"1", "2"}, h.Values("X-AMZ-META-A"))
	assert.Nil(t, h.Values("missing"))
}

func TestHeaders_Clone(t *testing.T) {
	h := Headers{{Name: "a", Value: "1"}}
	c := h.Clone()
	c[0].Value = "2"
	assert.Equal(t, "1", h[0].Value)
	assert.Nil(t, Headers(nil).Clone())
}

func TestDoneHandle(t *testing.T) {
	h := NewDoneHandle()
	select {
	case <-h.Done():
		t.Fatal("handle done before finish")
	default:
	}
	h.Finish()
	<-h.Done()
}

func TestOperationID(t *testing.T) {
	_, ok := OperationID(context.Background())
	assert.False(t, ok)

	_, ok = OperationID(WithOperationID(context.Background(), ""))
	assert.False(t, ok)

	id, ok := OperationID(WithOperationID(context.Background(), "op-1"))
	assert.True(t, ok)
	assert.Equal(t, "op-1", id)
}
