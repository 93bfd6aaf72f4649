package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for registration, login and password checks.
type Metrics struct {
	PasswordEvaluations *prometheus.CounterVec
	PasswordScore       prometheus.Histogram
	LoginAttempts       *prometheus.CounterVec
	UsersRegistered     *prometheus.CounterVec
	Logouts             prometheus.Counter
	PasswordChanges     *prometheus.CounterVec
}

// New registers the auth metrics with the default registry.
func New() *Metrics {
	return &Metrics{
		PasswordEvaluations: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "dlvery_password_evaluations_total",
			Help: "Password policy evaluations by outcome (valid or invalid)",
		}, []string{"outcome"}),
		PasswordScore: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "dlvery_password_score",
			Help:    "Strength score of evaluated passwords",
			Buckets: []float64{20, 40, 60, 80, 100},
		}),
		LoginAttempts: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "dlvery_login_attempts_total",
			Help: "Login attempts by requested role and outcome",
		}, []string{"role", "outcome"}),
		UsersRegistered: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "dlvery_users_registered_total",
			Help: "Accounts created by role",
		}, []string{"role"}),
		Logouts: promauto.NewCounter(prometheus.CounterOpts{
			Name: "dlvery_logouts_total",
			Help: "Access tokens revoked by logout",
		}),
		PasswordChanges: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "dlvery_password_changes_total",
			Help: "Password change attempts by outcome",
		}, []string{"outcome"}),
	}
}

func (m *Metrics) ObservePassword(valid bool, score int) {
	outcome := "invalid"
	if valid {
		outcome = "valid"
	}
	m.PasswordEvaluations.WithLabelValues(outcome).Inc()
	m.PasswordScore.Observe(float64(score))
}

func (m *Metrics) IncrementLogin(role, outcome string) {
	m.LoginAttempts.WithLabelValues(role, outcome).Inc()
}

func (m *Metrics) IncrementRegistered(role string) {
	m.UsersRegistered.WithLabelValues(role).Inc()
}

func (m *Metrics) IncrementLogout() {
	m.Logouts.Inc()
}

func (m *Metrics) IncrementPasswordChange(outcome string) {
	m.PasswordChanges.WithLabelValues(outcome).Inc()
}
