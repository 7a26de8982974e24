// Package metrics defines all custom Prometheus metrics for the access
// system. It is the single source of truth for metric names, labels, and
// help strings.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "access"

// LoginsTotal counts login attempts.
// Labels:
//   - role: the requested role
//   - result: "success", "rejected", "role_mismatch", "locked_out", "error"
var LoginsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "logins_total",
		Help:      "Total number of login attempts by requested role and result.",
	},
	[]string{"role", "result"},
)

// SignupsTotal counts signup attempts.
// Label:
//   - result: "success", "conflict", "error"
var SignupsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "signups_total",
		Help:      "Total number of signup attempts by result.",
	},
	[]string{"result"},
)

// SessionRestoresTotal counts startup session restorations that produced an
// authenticated user.
var SessionRestoresTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "session_restores_total",
		Help:      "Total number of sessions restored at startup.",
	},
)

// SessionActive reports whether a session user is currently set (0 or 1).
var SessionActive = promauto.NewGauge(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "session_active",
		Help:      "Whether an authenticated session is currently active.",
	},
)
