package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	BookingOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "booking_outcomes_total",
		Help: "Booking attempts by terminal outcome",
	}, []string{"outcome"})

	LedgerWriteRetries = promauto.NewCounter(prometheus.CounterOpts{
		Name: "booking_ledger_write_retries_total",
		Help: "Ledger writes retried after a failure",
	})

	SeatsReleased = promauto.NewCounter(prometheus.CounterOpts{
		Name: "booking_seats_released_total",
		Help: "Seats returned to the pool after a declined payment",
	})

	BookingsReconciled = promauto.NewCounter(prometheus.CounterOpts{
		Name: "booking_reconciled_total",
		Help: "Unrecorded bookings written to the ledger by the reconciler",
	})

	BookingsPurged = promauto.NewCounter(prometheus.CounterOpts{
		Name: "booking_purged_total",
		Help: "Bookings removed by the retention sweep",
	})

	EventsDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "booking_events_dropped_total",
		Help: "Events discarded because the producer inbox was full or closed",
	}, []string{"topic"})
)
