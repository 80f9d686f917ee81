package observability

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestRuntimeMetrics(t *testing.T) {
	m := Runtime()
	ok := testutil.ToFloat64(m.transactions.WithLabelValues("success"))
	failed := testutil.ToFloat64(m.transactions.WithLabelValues("error"))

	m.ObserveTransaction(nil, time.Millisecond)
	m.ObserveTransaction(errors.New("boom"), time.Millisecond)
	m.ObserveInstruction("", nil)

	require.Equal(t, ok+1, testutil.ToFloat64(m.transactions.WithLabelValues("success")))
	require.Equal(t, failed+1, testutil.ToFloat64(m.transactions.WithLabelValues("error")))
	require.GreaterOrEqual(t, testutil.ToFloat64(m.instructions.WithLabelValues("unknown", "success")), 1.0)
}

func TestOTCMetrics(t *testing.T) {
	m := OTC()
	before := testutil.ToFloat64(m.volume.WithLabelValues("filled"))
	m.RecordSettlement("filled", 250)
	m.RecordOperation("cancel_order", "")
	require.Equal(t, before+250, testutil.ToFloat64(m.volume.WithLabelValues("filled")))
	require.GreaterOrEqual(t, testutil.ToFloat64(m.operations.WithLabelValues("cancel_order", "unspecified")), 1.0)

	var nilMetrics *otcMetrics
	nilMetrics.RecordOperation("x", "y")
}

func TestEventMetricsNormaliseType(t *testing.T) {
	m := Events()
	before := testutil.ToFloat64(m.emitted.WithLabelValues("otc.order.filled"))
	m.RecordEvent("  OTC.Order.Filled ")
	require.Equal(t, before+1, testutil.ToFloat64(m.emitted.WithLabelValues("otc.order.filled")))
}
