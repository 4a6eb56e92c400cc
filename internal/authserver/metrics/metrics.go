// Package metrics registers the prometheus collectors for the registry and
// token surfaces. Counters live on the default registry; the router exposes
// them on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ClientRegistrationsTotal counts successful client registrations.
	ClientRegistrationsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "authserver_client_registrations_total",
		Help: "Number of clients registered.",
	})

	// ClientVerificationsTotal counts successful client verifications.
	ClientVerificationsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "authserver_client_verifications_total",
		Help: "Number of clients verified and activated.",
	})

	// TokensIssuedTotal counts access tokens minted, by grant type.
	TokensIssuedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "authserver_tokens_issued_total",
		Help: "Number of access tokens issued.",
	}, []string{"grant_type"})

	// TokenRejectionsTotal counts rejected token requests, by reason.
	TokenRejectionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "authserver_token_rejections_total",
		Help: "Number of token requests rejected.",
	}, []string{"reason"})
)
