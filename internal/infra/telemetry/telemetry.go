package telemetry

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/avereux/salon-auth/internal/infra/config"
)

// Provider represents a telemetry provider handle.
type Provider struct {
	loginOutcomes *prometheus.CounterVec
	lockouts      prometheus.Counter
}

// Attach configures telemetry exporters and returns a provider handle.
func Attach(_ context.Context, cfg *config.AppConfig) (*Provider, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}

	logins := promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "salon",
		Name:      "auth_login_outcomes_total",
		Help:      "Login attempts partitioned by outcome",
	}, []string{"outcome"})

	lockouts := promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "salon",
		Name:      "auth_account_lockouts_total",
		Help:      "Accounts locked after repeated failed logins",
	})

	return &Provider{
		loginOutcomes: logins,
		lockouts:      lockouts,
	}, nil
}

// RecordLogin counts a login attempt by outcome ("success", "failed",
// "locked", "two_factor").
func (p *Provider) RecordLogin(outcome string) {
	if p == nil {
		return
	}
	p.loginOutcomes.WithLabelValues(outcome).Inc()
}

// RecordLockout counts an account lockout.
func (p *Provider) RecordLockout() {
	if p == nil {
		return
	}
	p.lockouts.Inc()
}
