// Package metrics defines and registers all custom Prometheus metrics for the
// user portal. It is the single source of truth for metric names, labels, and
// help strings. Metrics self-register with the default registry via promauto.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "portal"

// LoginsTotal counts login attempts.
// Label:
//   - result: "success", "failure", or "error" (bad credentials and unknown
//     usernames are deliberately the same "failure" value)
var LoginsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "logins_total",
		Help:      "Total number of login attempts, by result.",
	},
	[]string{"result"},
)

// SignupsTotal counts signup attempts.
// Label:
//   - result: "created", "taken", or "error"
var SignupsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "signups_total",
		Help:      "Total number of signup attempts, by result.",
	},
	[]string{"result"},
)

// SessionsActive tracks the number of currently live server-side sessions as
// seen by this process (login increments, logout decrements). Sessions that
// expire in the store without a logout are not decremented here.
var SessionsActive = promauto.NewGauge(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "sessions_active",
		Help:      "Server-side sessions opened by login and not yet closed by logout.",
	},
)

// TokenRejectionsTotal counts tokens turned away by the auth gate.
// Label:
//   - reason: "missing", "invalid", or "revoked" ("invalid" covers both bad
//     signatures and expiry; the split is not exposed to callers either)
var TokenRejectionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "token_rejections_total",
		Help:      "Total number of requests rejected by the auth gate, by reason.",
	},
	[]string{"reason"},
)

// ActivityErrorsTotal counts activity updates that failed to persist.
// Label:
//   - kind: "login" or "logout"
var ActivityErrorsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "activity_errors_total",
		Help:      "Total number of login/logout activity updates that failed to persist.",
	},
	[]string{"kind"},
)
