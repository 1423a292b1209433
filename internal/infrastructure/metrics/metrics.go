// Package metrics holds the process-wide Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "loansvc_http_requests_total",
		Help: "Total HTTP requests",
	}, []string{"method", "route", "status"})

	HTTPLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "loansvc_http_request_duration_seconds",
		Help:    "Request latency",
		Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 2.5},
	}, []string{"method", "route"})

	LoanTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "loansvc_loan_transitions_total",
		Help: "Loan lifecycle transitions committed, by action",
	}, []string{"action"})

	PaymentsPosted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "loansvc_payments_posted_total",
		Help: "Payments posted against a loan balance, by path",
	}, []string{"path"})

	VerificationOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "loansvc_verification_outcomes_total",
		Help: "Proof-of-payment submissions and their review outcome",
	}, []string{"outcome"})

	LateFeesStamped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "loansvc_late_fees_stamped_total",
		Help: "Overdue installments stamped by the late-fee sweep",
	})
)

// Posting paths.
const (
	PathRecorded = "recorded"
	PathVerified = "verified"
)

// Verification outcomes.
const (
	OutcomeSubmitted = "submitted"
	OutcomeApproved  = "approved"
	OutcomeRejected  = "rejected"
)

func Transition(action string) { LoanTransitions.WithLabelValues(action).Inc() }

func Posted(path string) { PaymentsPosted.WithLabelValues(path).Inc() }

func Verification(outcome string) { VerificationOutcomes.WithLabelValues(outcome).Inc() }
