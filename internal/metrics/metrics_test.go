package metrics

import (
	"fmt"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/input-output-hk/catalyst-forge-libs/aws/s3bridge/errors"
)

func TestOutcome(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"success", nil, "success"},
		{"domain", &errors.DomainError{Kind: errors.KindNoSuchKey}, "domain"},
		{"wrapped domain", errors.NewObjectError("GetObject", "b", "k", &errors.DomainError{Kind: errors.KindNoSuchKey}), "domain"},
		{"service", &errors.ServiceError{StatusCode: 500}, "network_error"},
		{"internal", &errors.InternalError{Err: fmt.Errorf("x")}, "internal_error"},
		{"construction", &errors.ConstructionError{Field: "bucket"}, "invalid_input"},
		{"plain", fmt.Errorf("boom"), "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Outcome(tt.err))
		})
	}
}

func TestMetrics_Start(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	done := m.Start("get_object")
	assert.Equal(t, 1.0, testutil.ToFloat64(m.OperationsInFlight))
	done(nil)
	assert.Equal(t, 0.0, testutil.ToFloat64(m.OperationsInFlight))

	m.Start("get_object")(&errors.DomainError{Kind: errors.KindNoSuchKey})

	assert.Equal(t, 1.0, testutil.ToFloat64(m.OperationsTotal.WithLabelValues("get_object", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.OperationsTotal.WithLabelValues("get_object", "domain")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.OperationDuration))

	n, err := testutil.GatherAndCount(reg, "s3bridge_operations_total")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestNew_Unregistered(t *testing.T) {
	m1 := New(nil)
	m2 := New(nil)
	m1.RetriesTotal.WithLabelValues("status_503").Inc()
	m2.BytesReceivedTotal.Add(10)
	assert.Equal(t, 1.0, testutil.ToFloat64(m1.RetriesTotal.WithLabelValues("status_503")))
	assert.Equal(t, 10.0, testutil.ToFloat64(m2.BytesReceivedTotal))
}
