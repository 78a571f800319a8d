package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRegistersCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ReservationsCreated.Inc()
	m.Transitions.WithLabelValues("completed").Inc()
	m.Transitions.WithLabelValues("completed").Inc()

	assert.Equal(t, 1.0, testutil.ToFloat64(m.ReservationsCreated))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Transitions.WithLabelValues("completed")))

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
}

func TestNoopDoesNotPanicOnDoubleCreate(t *testing.T) {
	assert.NotPanics(t, func() {
		Noop()
		Noop()
	})
}
