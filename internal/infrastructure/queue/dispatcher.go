package queue

import (
	"context"
	"hash/fnv"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/compupay/hr-backend/internal/api/metrics"
	"github.com/compupay/hr-backend/internal/core/ports"
)

const (
	defaultWorkers = 4
	channelBuffer  = 256
	sendTimeout    = 30 * time.Second
)

// Failure reports a message that could not be delivered.
type Failure struct {
	Message ports.MailMessage
	Err     error
}

// Dispatcher delivers mail on a fixed set of workers. Messages for the same
// recipient are hashed to the same worker, so they go out in enqueue order.
type Dispatcher struct {
	workers  []chan ports.MailMessage
	mailer   ports.Mailer
	failures chan Failure
	log      zerolog.Logger
	wg       sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

// NewDispatcher creates a Dispatcher with numWorkers sharded workers.
// If numWorkers <= 0, defaultWorkers is used.
func NewDispatcher(numWorkers int, mailer ports.Mailer, log zerolog.Logger) *Dispatcher {
	if numWorkers <= 0 {
		numWorkers = defaultWorkers
	}
	d := &Dispatcher{
		workers:  make([]chan ports.MailMessage, numWorkers),
		mailer:   mailer,
		failures: make(chan Failure, channelBuffer),
		log:      log,
	}
	for i := range d.workers {
		d.workers[i] = make(chan ports.MailMessage, channelBuffer)
	}
	return d
}

// Start launches all worker goroutines. Workers drain their queue and stop
// when ctx is cancelled; Wait blocks until they have.
func (d *Dispatcher) Start(ctx context.Context) {
	for i, ch := range d.workers {
		d.wg.Add(1)
		go d.runWorker(ctx, i, ch)
	}
}

func (d *Dispatcher) Wait() { d.wg.Wait() }

// Enqueue hands msg to the worker responsible for its recipient. It never
// blocks and reports false when that worker's queue is full or the
// dispatcher has begun shutting down.
func (d *Dispatcher) Enqueue(msg ports.MailMessage) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		metrics.MailDispatchTotal.WithLabelValues("detached", "rejected").Inc()
		d.log.Warn().Str("email", msg.To).Msg("mail dispatcher stopped, message rejected")
		return false
	}

	idx := d.shardIndex(msg.To)
	select {
	case d.workers[idx] <- msg:
		metrics.MailQueueDepth.WithLabelValues(strconv.Itoa(idx)).Inc()
		return true
	default:
		return false
	}
}

// Failures exposes delivery failures. Failures are dropped while the channel
// is full, so reading it is optional.
func (d *Dispatcher) Failures() <-chan Failure { return d.failures }

// shardIndex maps a recipient deterministically to a worker index.
func (d *Dispatcher) shardIndex(recipient string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(recipient))
	return int(h.Sum32() % uint32(len(d.workers)))
}

func (d *Dispatcher) runWorker(ctx context.Context, id int, ch <-chan ports.MailMessage) {
	defer d.wg.Done()
	depth := metrics.MailQueueDepth.WithLabelValues(strconv.Itoa(id))
	for {
		select {
		case <-ctx.Done():
			d.markClosed()
			for {
				select {
				case msg := <-ch:
					depth.Dec()
					d.deliver(context.WithoutCancel(ctx), id, msg)
				default:
					return
				}
			}
		case msg := <-ch:
			depth.Dec()
			d.deliver(ctx, id, msg)
		}
	}
}

// markClosed stops further enqueues. Sends already accepted are in the
// channels once it returns, so the drain that follows sees them.
func (d *Dispatcher) markClosed() {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()
}

func (d *Dispatcher) deliver(ctx context.Context, id int, msg ports.MailMessage) {
	ctx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()

	start := time.Now()
	err := d.mailer.Send(ctx, msg)
	metrics.MailSendDuration.Observe(time.Since(start).Seconds())
	if err == nil {
		metrics.MailDispatchTotal.WithLabelValues("detached", "sent").Inc()
		return
	}

	metrics.MailDispatchTotal.WithLabelValues("detached", "failed").Inc()
	d.log.Error().Err(err).
		Str("email", msg.To).
		Str("subject", msg.Subject).
		Int("worker_id", id).
		Msg("mail delivery failed")

	select {
	case d.failures <- Failure{Message: msg, Err: err}:
	default:
	}
}
