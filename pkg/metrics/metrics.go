package metrics

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	SignaturesCompleted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "esign_signatures_completed_total",
		Help: "Signatures successfully recorded.",
	})

	RequestsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "esign_requests_created_total",
		Help: "Signature requests created, standalone and package-consolidated.",
	})

	CodesSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "esign_verification_codes_sent_total",
		Help: "Verification codes dispatched, by method.",
	}, []string{"method"})

	CodesBlocked = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "esign_verification_codes_blocked_total",
		Help: "Code sends rejected by an abuse layer, by scope.",
	}, []string{"scope"})

	WebhooksDispatched = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "esign_webhooks_dispatched_total",
		Help: "Outbound webhook callbacks, by outcome.",
	}, []string{"outcome"})
)

func Register(r *mux.Router, path string) {
	if path == "" {
		path = "/debug/prometheus"
	}
	r.Handle(path, promhttp.Handler()).Methods(http.MethodGet)
}
