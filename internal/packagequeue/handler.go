// Package packagequeue keeps the durable, ordered queue of activity packages
// and delivers them one at a time.
package packagequeue

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/vburojevic/adjust/internal/domain"
	"github.com/vburojevic/adjust/internal/executor"
	"github.com/vburojevic/adjust/internal/logger"
	"github.com/vburojevic/adjust/internal/metrics"
	"github.com/vburojevic/adjust/internal/store"
)

// DefaultSendTimeout bounds one dispatch, on top of whatever timeout the
// transport applies itself.
const DefaultSendTimeout = 2 * time.Minute

// ErrClosed is returned by queries after Close.
var ErrClosed = errors.New("package handler closed")

// ResponseHandler receives the outcome of every delivery attempt.
type ResponseHandler interface {
	FinishedTrackingActivity(resp *domain.ResponseData)
}

// Transport delivers a single package. Deliver blocks and must not return nil.
type Transport interface {
	Deliver(ctx context.Context, pkg *domain.ActivityPackage) *domain.ResponseData
}

// Options configure a Handler.
type Options struct {
	Store       store.Store
	Logger      *zap.SugaredLogger
	Metrics     *metrics.Metrics
	StartPaused bool
	SendTimeout time.Duration
}

// Handler is the delivery queue actor. Every exported method only submits a
// task to the handler's executor; queue, gate and pause flag are touched on
// that executor alone.
type Handler struct {
	exec      *executor.Executor
	log       *zap.SugaredLogger
	store     store.Store
	metrics   *metrics.Metrics
	activity  ResponseHandler
	transport Transport
	timeout   time.Duration

	ctx      context.Context
	cancel   context.CancelFunc
	inflight sync.WaitGroup

	queue   []*domain.ActivityPackage
	sending bool
	paused  bool
}

// New starts the handler and reads the persisted queue on its executor.
func New(activity ResponseHandler, transport Transport, opts Options) *Handler {
	log := logger.OrNop(opts.Logger).Named("package_handler")
	ctx, cancel := context.WithCancel(context.Background())

	h := &Handler{
		exec:      executor.New("package_handler", opts.Logger),
		log:       log,
		store:     opts.Store,
		metrics:   opts.Metrics,
		activity:  activity,
		transport: transport,
		timeout:   opts.SendTimeout,
		ctx:       ctx,
		cancel:    cancel,
	}
	if h.store == nil {
		h.store = store.NewMemoryStore()
	}
	if h.timeout <= 0 {
		h.timeout = DefaultSendTimeout
	}

	h.exec.Submit(func() { h.init(opts.StartPaused) })
	return h
}

// AddPackage queues pkg for delivery.
func (h *Handler) AddPackage(pkg *domain.ActivityPackage) {
	h.exec.Submit(func() { h.add(pkg) })
}

// SendFirstPackage dispatches the head of the queue if nothing is in flight.
func (h *Handler) SendFirstPackage() {
	h.exec.Submit(h.sendHead)
}

// SendNextPackage drops the head and dispatches the next package.
func (h *Handler) SendNextPackage() {
	h.exec.Submit(func() { h.advance("sent") })
}

// CloseFirstPackage releases the gate and keeps the head for a later attempt.
func (h *Handler) CloseFirstPackage() {
	h.exec.Submit(h.retryHead)
}

// PauseSending stops new dispatches. A request already in flight completes.
func (h *Handler) PauseSending() {
	h.exec.Submit(func() { h.paused = true })
}

// ResumeSending allows dispatches again.
func (h *Handler) ResumeSending() {
	h.exec.Submit(func() { h.paused = false })
}

// Pending returns a snapshot of the queued packages, head first.
func (h *Handler) Pending(ctx context.Context) ([]*domain.ActivityPackage, error) {
	out := make(chan []*domain.ActivityPackage, 1)
	if !h.exec.Submit(func() {
		out <- append([]*domain.ActivityPackage(nil), h.queue...)
	}) {
		return nil, ErrClosed
	}
	select {
	case q := <-out:
		return q, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Flush waits until every task submitted so far has run.
func (h *Handler) Flush() {
	h.exec.Flush()
}

// Close cancels the request in flight, drains the executor and waits for the
// transport goroutine to return. The queue stays persisted.
func (h *Handler) Close() {
	h.cancel()
	h.exec.Close()
	h.inflight.Wait()
}

func (h *Handler) init(startPaused bool) {
	h.paused = startPaused
	h.sending = false
	h.readQueue()
}

func (h *Handler) add(pkg *domain.ActivityPackage) {
	if pkg == nil {
		return
	}
	if pkg.Kind == domain.KindClick && len(h.queue) > 0 {
		h.queue = append(h.queue, nil)
		copy(h.queue[2:], h.queue[1:])
		h.queue[1] = pkg
	} else {
		h.queue = append(h.queue, pkg)
	}

	h.log.Debugf("Added package %d (%s)", len(h.queue), pkg)
	h.log.Debugf("%s", pkg.ExtendedString())
	h.metrics.PackageQueued(string(pkg.Kind), len(h.queue))

	h.writeQueue()
}

func (h *Handler) sendHead() {
	if len(h.queue) == 0 {
		return
	}
	if h.paused {
		h.log.Debugw("Package handler is paused")
		return
	}
	if h.sending {
		h.log.Debugw("Package handler is already sending")
		return
	}
	h.sending = true
	h.dispatch(h.queue[0])
}

// dispatch runs the transport off the executor and posts the outcome back.
func (h *Handler) dispatch(pkg *domain.ActivityPackage) {
	h.inflight.Add(1)
	go func() {
		defer h.inflight.Done()
		resp := h.deliver(pkg)
		if !h.exec.Submit(func() { h.packageSent(resp) }) {
			h.log.Debugw("dropping delivery outcome after close", "package", pkg.String())
		}
	}()
}

// deliver never lets a transport panic escape; a nil result means the
// attempt did not produce an outcome.
func (h *Handler) deliver(pkg *domain.ActivityPackage) (resp *domain.ResponseData) {
	defer func() {
		if r := recover(); r != nil {
			h.log.Errorw("transport panicked",
				"package", pkg.String(),
				"panic", fmt.Sprint(r),
				"stack", string(debug.Stack()),
			)
			resp = nil
		}
	}()

	ctx, cancel := context.WithTimeout(h.ctx, h.timeout)
	defer cancel()
	return h.transport.Deliver(ctx, pkg)
}

func (h *Handler) packageSent(resp *domain.ResponseData) {
	if resp == nil {
		h.retryHead()
		return
	}
	if h.activity != nil {
		h.activity.FinishedTrackingActivity(resp)
	}
	if resp.WillRetry() {
		h.retryHead()
		return
	}
	h.advance(resp.Outcome.String())
}

func (h *Handler) advance(outcome string) {
	func() {
		defer func() { h.sending = false }()
		if len(h.queue) == 0 {
			return
		}
		head := h.queue[0]
		h.queue[0] = nil
		h.queue = h.queue[1:]
		h.metrics.PackageRemoved(string(head.Kind), outcome, len(h.queue))
		h.writeQueue()
	}()
	h.sendHead()
}

func (h *Handler) retryHead() {
	h.sending = false
}

func (h *Handler) writeQueue() {
	q := h.queue
	if q == nil {
		q = []*domain.ActivityPackage{}
	}
	// persistence must outlive Close, so it never uses h.ctx
	if err := h.store.Save(context.Background(), store.SlotPackageQueue, q); err != nil {
		h.log.Errorw("Failed to write package queue", "error", err)
		h.metrics.PersistError(store.SlotPackageQueue, "write")
		return
	}
	h.log.Debugf("Package handler wrote %d packages", len(h.queue))
}

func (h *Handler) readQueue() {
	q, err := store.Read[[]*domain.ActivityPackage](context.Background(), h.store, store.SlotPackageQueue)
	if err != nil {
		h.log.Errorw("Failed to read package queue", "error", err)
		h.metrics.PersistError(store.SlotPackageQueue, "read")
	}
	if q == nil {
		h.queue = nil
		h.metrics.QueueLoaded(0)
		return
	}

	// entries that failed to decode come back nil
	h.queue = h.queue[:0]
	for _, pkg := range *q {
		if pkg != nil {
			h.queue = append(h.queue, pkg)
		}
	}
	h.log.Debugf("Package handler read %d packages", len(h.queue))
	h.metrics.QueueLoaded(len(h.queue))
}
