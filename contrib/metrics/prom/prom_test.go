package prom

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/arloliu/cqlguard/types"
)

func TestCollector(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := New(reg, WithNamespace("test"))

	c.IncConnectTotal()
	c.IncConnectTotal()
	c.IncConnectError()
	c.SetConnectionState(types.StateConnected)
	c.SetHostsUp(5)
	c.IncExecuteTotal("default")
	c.IncExecuteError("default")
	c.ObserveExecuteDuration("default", 0.2)
	c.IncRetry("read_timeout")
	c.IncRethrow("unavailable")
	c.IncSpeculativeExecution()
	c.IncSchemaAgreement(true)
	c.ObserveSchemaAgreementDuration(0.5)

	require.InDelta(t, 2, testutil.ToFloat64(c.connectTotal), 0)
	require.InDelta(t, 1, testutil.ToFloat64(c.connectErrors), 0)
	require.InDelta(t, float64(types.StateConnected), testutil.ToFloat64(c.connectionState), 0)
	require.InDelta(t, 5, testutil.ToFloat64(c.hostsUp), 0)
	require.InDelta(t, 1, testutil.ToFloat64(c.executeTotal.WithLabelValues("default")), 0)
	require.InDelta(t, 1, testutil.ToFloat64(c.executeErrors.WithLabelValues("default")), 0)
	require.InDelta(t, 1, testutil.ToFloat64(c.retries.WithLabelValues("read_timeout")), 0)
	require.InDelta(t, 1, testutil.ToFloat64(c.rethrows.WithLabelValues("unavailable")), 0)
	require.InDelta(t, 1, testutil.ToFloat64(c.speculative), 0)
	require.InDelta(t, 1, testutil.ToFloat64(c.schemaAgreement.WithLabelValues("true")), 0)
	require.Equal(t, 1, testutil.CollectAndCount(c.executeDuration))
}

func TestCollectorRegistersOnce(t *testing.T) {
	reg := prometheus.NewRegistry()
	New(reg)

	require.Panics(t, func() { New(reg) })
	require.NotPanics(t, func() { New(reg, WithNamespace("second")) })
}
