package service

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/compupay/hr-backend/internal/api/metrics"
	"github.com/compupay/hr-backend/internal/core/ports"
)

// Delivery policy names, also used as metric labels.
const (
	PolicyDetached = "detached"
	PolicyAwaited  = "awaited"
)

// MailDelivery hands a message to the mail transport. Implementations never
// report delivery failures to the caller.
type MailDelivery interface {
	Deliver(ctx context.Context, msg ports.MailMessage)
}

// MailQueue accepts messages for background delivery.
type MailQueue interface {
	Enqueue(msg ports.MailMessage) bool
}

// DetachedDelivery queues the message and returns immediately. The outcome is
// observed only by the queue's workers.
type DetachedDelivery struct {
	queue MailQueue
	log   zerolog.Logger
}

func NewDetachedDelivery(queue MailQueue, log zerolog.Logger) *DetachedDelivery {
	return &DetachedDelivery{queue: queue, log: log}
}

func (d *DetachedDelivery) Deliver(_ context.Context, msg ports.MailMessage) {
	if !d.queue.Enqueue(msg) {
		metrics.MailDispatchTotal.WithLabelValues(PolicyDetached, "dropped").Inc()
		d.log.Error().Str("email", msg.To).Str("policy", PolicyDetached).Msg("mail queue full, message dropped")
	}
}

// AwaitedDelivery sends synchronously; a failure is logged and swallowed.
type AwaitedDelivery struct {
	mailer ports.Mailer
	log    zerolog.Logger
}

func NewAwaitedDelivery(mailer ports.Mailer, log zerolog.Logger) *AwaitedDelivery {
	return &AwaitedDelivery{mailer: mailer, log: log}
}

func (d *AwaitedDelivery) Deliver(ctx context.Context, msg ports.MailMessage) {
	if err := d.mailer.Send(ctx, msg); err != nil {
		metrics.MailDispatchTotal.WithLabelValues(PolicyAwaited, "failed").Inc()
		d.log.Error().Err(err).Str("email", msg.To).Str("policy", PolicyAwaited).Msg("failed to send mail")
		return
	}
	metrics.MailDispatchTotal.WithLabelValues(PolicyAwaited, "sent").Inc()
}
