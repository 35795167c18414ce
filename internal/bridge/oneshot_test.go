package bridge

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOneshot_SendRecv(t *testing.T) {
	tx, rx := NewOneshot[int]()

	go func() { tx.Send(42) }()

	v, ok := rx.Recv()
	assert.True(t, ok)
	assert.Equal(t, 42, v)
}

func TestOneshot_SecondSendDiscarded(t *testing.T) {
	tx, rx := NewOneshot[string]()

	assert.True(t, tx.Send("first"))
	assert.False(t, tx.Send("second"))

	v, ok := rx.Recv()
	assert.True(t, ok)
	assert.Equal(t, "first", v)
}

func TestOneshot_SecondRecvFails(t *testing.T) {
	tx, rx := NewOneshot[int]()
	tx.Send(1)

	_, ok := rx.Recv()
	assert.True(t, ok)

	v, ok := rx.Recv()
	assert.False(t, ok)
	assert.Zero(t, v)
}

func TestOneshot_DoneClosedAfterSend(t *testing.T) {
	tx, rx := NewOneshot[int]()

	select {
	case <-rx.Done():
		t.Fatal("done before send")
	default:
	}

	tx.Send(7)
	<-rx.Done()
}

func TestOneshot_ConcurrentSenders(t *testing.T) {
	tx, rx := NewOneshot[int]()

	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if tx.Send(i) {
				wins.Add(1)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), wins.Load())
	_, ok := rx.Recv()
	assert.True(t, ok)
}

func TestState_Transitions(t *testing.T) {
	tests := []struct {
		from State
		ev   event
		to   State
		ok   bool
	}{
		{StateSubmitted, eventHeaders, StateHeadersReceived, true},
		{StateSubmitted, eventBody, StateSubmitted, false},
		{StateSubmitted, eventComplete, StateCompleted, true},
		{StateHeadersReceived, eventHeaders, StateHeadersReceived, false},
		{StateHeadersReceived, eventBody, StateBodyAccumulating, true},
		{StateHeadersReceived, eventComplete, StateCompleted, true},
		{StateBodyAccumulating, eventBody, StateBodyAccumulating, true},
		{StateBodyAccumulating, eventHeaders, StateBodyAccumulating, false},
		{StateBodyAccumulating, eventComplete, StateCompleted, true},
		{StateCompleted, eventComplete, StateCompleted, false},
		{StateCompleted, eventBody, StateCompleted, false},
	}

	for _, tt := range tests {
		t.Run(tt.from.String()+"/"+tt.ev.String(), func(t *testing.T) {
			to, ok := tt.from.next(tt.ev)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.to, to)
		})
	}
}
