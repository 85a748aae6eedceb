package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveBookingCountsByOutcome(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewBookingMetrics(reg)

	m.ObserveBooking("ok", 0.05)
	m.ObserveBooking("ok", 0.07)
	m.ObserveBooking("conflict", 0.01)

	if got := testutil.ToFloat64(m.bookingsTotal.WithLabelValues("ok")); got != 2 {
		t.Fatalf("expected 2 ok bookings, got %v", got)
	}
	if got := testutil.ToFloat64(m.bookingsTotal.WithLabelValues("conflict")); got != 1 {
		t.Fatalf("expected 1 conflict, got %v", got)
	}
}

func TestObserveTransitionCountsByActionAndOutcome(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewBookingMetrics(reg)

	m.ObserveTransition("cancel", "ok")
	m.ObserveTransition("cancel", "forbidden")
	m.ObserveTransition("complete", "ok")

	if got := testutil.ToFloat64(m.transitionsTotal.WithLabelValues("cancel", "ok")); got != 1 {
		t.Fatalf("expected 1, got %v", got)
	}
	if got := testutil.ToFloat64(m.transitionsTotal.WithLabelValues("complete", "forbidden")); got != 0 {
		t.Fatalf("expected 0, got %v", got)
	}
}

func TestNilReceiverIsSafe(t *testing.T) {
	var m *BookingMetrics
	m.ObserveBooking("ok", 0.01)
	m.ObserveTransition("cancel", "ok")
}
