// Package metrics defines and registers all custom Prometheus metrics for the
// CompuPay HR backend. It is the single source of truth for metric names,
// labels, and help strings.
//
// Metrics register with the default Prometheus registry on package init via
// promauto; the /metrics route exposes them together with the HTTP metrics
// recorded by echoprometheus.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "compupay"

// ── Auth metrics ──────────────────────────────────────────────────────────────

// AuthAttemptsTotal counts authentication flow outcomes.
// Labels:
//   - flow: "login", "register" or "verify_otp"
//   - result: "ok" or "rejected"
var AuthAttemptsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "auth_attempts_total",
		Help:      "Total number of authentication attempts, by flow and result.",
	},
	[]string{"flow", "result"},
)

// OtpIssuedTotal counts generated one-time codes.
// Label:
//   - purpose: "password_reset" or "registration"
var OtpIssuedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "otp_issued_total",
		Help:      "Total number of one-time codes issued, by purpose.",
	},
	[]string{"purpose"},
)

// ── Mail metrics ──────────────────────────────────────────────────────────────

// MailDispatchTotal counts mail delivery outcomes.
// Labels:
//   - policy: "detached" (queued) or "awaited" (sent inline)
//   - result: "sent", "failed" or "dropped"
var MailDispatchTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "mail_dispatch_total",
		Help:      "Total number of outgoing mails, by delivery policy and result.",
	},
	[]string{"policy", "result"},
)

// MailQueueDepth tracks the number of messages waiting in each mail worker channel.
// Label:
//   - worker_id: numeric worker index (e.g. "0", "1", …)
var MailQueueDepth = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "mail_queue_depth",
		Help:      "Current number of messages pending in each mail worker channel.",
	},
	[]string{"worker_id"},
)

// MailSendDuration measures a single SMTP delivery.
var MailSendDuration = promauto.NewHistogram(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "mail_send_duration_seconds",
		Help:      "Duration of a single mail delivery to the SMTP relay.",
		Buckets:   prometheus.DefBuckets,
	},
)

// ── Listing metrics ───────────────────────────────────────────────────────────

// ListQueryDuration measures compile plus store round trip of a list query.
// Label:
//   - resource: the listed collection (e.g. "users")
var ListQueryDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "list_query_duration_seconds",
		Help:      "Duration of list queries from compilation to the last fetched row.",
		Buckets:   prometheus.DefBuckets, // .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10
	},
	[]string{"resource"},
)

// CacheLookupsTotal counts response cache decisions.
// Label:
//   - result: "hit", "miss" or "error"
var CacheLookupsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "cache_lookups_total",
		Help:      "Total number of response cache lookups, labelled by result.",
	},
	[]string{"result"},
)

// RateLimitedTotal counts requests rejected by the rate limiter.
// Label:
//   - route: the matched route path
var RateLimitedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "rate_limited_total",
		Help:      "Total number of requests rejected with 429, by route.",
	},
	[]string{"route"},
)
