// Package activity tracks the session lifecycle and turns host calls into
// activity packages for the delivery queue.
package activity

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/vburojevic/adjust/internal/domain"
	"github.com/vburojevic/adjust/internal/executor"
	"github.com/vburojevic/adjust/internal/logger"
	"github.com/vburojevic/adjust/internal/metrics"
	"github.com/vburojevic/adjust/internal/packagequeue"
	"github.com/vburojevic/adjust/internal/request"
	"github.com/vburojevic/adjust/internal/session"
	"github.com/vburojevic/adjust/internal/store"
)

const (
	// DefaultTimerInterval is how often queued packages are retried while
	// the app is in the foreground.
	DefaultTimerInterval = time.Minute
	// DefaultClientSDK is sent in the Client-SDK header.
	DefaultClientSDK = "go1.0.0"
	// DefaultEnvironment is used when the host sets none.
	DefaultEnvironment = "unknown"

	deeplinkPrefix = "adjust_"
	clickSource    = "deeplink"
)

// ErrClosed is returned by queries after Close.
var ErrClosed = errors.New("activity handler closed")

// Config is the host-supplied tracking configuration.
type Config struct {
	AppToken       string
	Environment    string
	EventBuffering bool
	DefaultTracker string
	OfflineMode    bool
	ClientSDK      string
	UserAgent      string
	Device         domain.DeviceInfo

	SessionInterval    time.Duration
	SubsessionInterval time.Duration
	TimerInterval      time.Duration
}

// Callbacks are invoked on a dedicated goroutine, never on the tracking
// executor. Nil callbacks are skipped.
type Callbacks struct {
	SessionTrackingSucceeded func(domain.SessionSuccess)
	SessionTrackingFailed    func(domain.SessionFailure)
	EventTrackingSucceeded   func(domain.EventSuccess)
	EventTrackingFailed      func(domain.EventFailure)
	AttributionChanged       func(domain.Attribution)
	// DeeplinkResponse decides whether a deep link from the collector is
	// opened. Unset means open.
	DeeplinkResponse func(*url.URL) bool
}

// Launcher opens deep links on the host platform.
type Launcher interface {
	Launch(u *url.URL) error
}

// LauncherFunc adapts a function to Launcher.
type LauncherFunc func(u *url.URL) error

func (f LauncherFunc) Launch(u *url.URL) error { return f(u) }

// PackageHandler is the delivery queue as seen from the tracker.
type PackageHandler interface {
	AddPackage(pkg *domain.ActivityPackage)
	SendFirstPackage()
	PauseSending()
	ResumeSending()
	Pending(ctx context.Context) ([]*domain.ActivityPackage, error)
	Close()
}

// QueueFactory creates the delivery queue once the tracker is initialized.
type QueueFactory func(responses packagequeue.ResponseHandler, startPaused bool) PackageHandler

// Option customizes a Handler.
type Option func(*Handler)

func WithLogger(l *zap.SugaredLogger) Option { return func(h *Handler) { h.baseLog = l } }
func WithClock(c clock.Clock) Option         { return func(h *Handler) { h.clock = c } }
func WithStore(s store.Store) Option         { return func(h *Handler) { h.store = s } }
func WithMetrics(m *metrics.Metrics) Option  { return func(h *Handler) { h.metrics = m } }
func WithCallbacks(cb Callbacks) Option      { return func(h *Handler) { h.callbacks = cb } }
func WithLauncher(l Launcher) Option         { return func(h *Handler) { h.launcher = l } }

// WithTransport replaces the HTTP client used by the default queue.
func WithTransport(t packagequeue.Transport) Option {
	return func(h *Handler) { h.transport = t }
}

// WithQueueFactory replaces the delivery queue entirely.
func WithQueueFactory(f QueueFactory) Option {
	return func(h *Handler) { h.newQueue = f }
}

// Handler is the session tracker actor. Exported methods only submit work
// to its executor.
type Handler struct {
	cfg       Config
	baseLog   *zap.SugaredLogger
	log       *zap.SugaredLogger
	clock     clock.Clock
	store     store.Store
	metrics   *metrics.Metrics
	callbacks Callbacks
	launcher  Launcher
	transport packagequeue.Transport
	newQueue  QueueFactory
	tracker   *session.Tracker

	exec     *executor.Executor
	notifier *executor.Executor

	// owned by exec
	ready       bool
	queue       PackageHandler
	timer       *timeKeeper
	state       *domain.ActivityState
	attribution *domain.Attribution
	offline     bool
	environment string
	clientSDK   string
	userAgent   string
	macShortMD5 string
}

// New starts a tracker and submits its initialization: app token check,
// state and attribution reads, queue creation and the first start.
func New(cfg Config, opts ...Option) *Handler {
	h := &Handler{cfg: cfg}
	for _, opt := range opts {
		opt(h)
	}

	h.baseLog = logger.OrNop(h.baseLog)
	h.log = h.baseLog.Named("activity")
	if h.clock == nil {
		h.clock = clock.New()
	}
	if h.store == nil {
		h.store = store.NewMemoryStore()
	}
	if h.transport == nil {
		h.transport = request.NewClient(request.Options{
			Clock:   h.clock,
			Logger:  h.baseLog,
			Metrics: h.metrics,
		})
	}
	if h.newQueue == nil {
		h.newQueue = h.defaultQueue
	}
	if h.cfg.TimerInterval <= 0 {
		h.cfg.TimerInterval = DefaultTimerInterval
	}
	h.tracker = session.NewTracker(h.cfg.SessionInterval, h.cfg.SubsessionInterval)

	h.exec = executor.New("activity", h.baseLog)
	h.notifier = executor.New("callbacks", h.baseLog)
	h.exec.Submit(h.init)
	return h
}

func (h *Handler) defaultQueue(responses packagequeue.ResponseHandler, startPaused bool) PackageHandler {
	return packagequeue.New(responses, h.transport, packagequeue.Options{
		Store:       h.store,
		Logger:      h.baseLog,
		Metrics:     h.metrics,
		StartPaused: startPaused,
	})
}

// TrackSubsessionStart records the app coming to the foreground.
func (h *Handler) TrackSubsessionStart() {
	h.exec.Submit(h.start)
}

// TrackSubsessionEnd records the app going to the background.
func (h *Handler) TrackSubsessionEnd() {
	h.exec.Submit(h.end)
}

// TrackEvent records an event. params are copied before the call returns.
func (h *Handler) TrackEvent(eventToken string, params map[string]string) {
	params = lo.Assign(params)
	h.exec.Submit(func() { h.trackEvent(eventToken, params) })
}

// TrackRevenue records revenue in cents with an optional event token.
func (h *Handler) TrackRevenue(amountInCents float64, eventToken string, params map[string]string) {
	params = lo.Assign(params)
	h.exec.Submit(func() { h.trackRevenue(amountInCents, eventToken, params) })
}

// AppWillOpenURL reports a deep link the app was opened with.
func (h *Handler) AppWillOpenURL(u *url.URL) {
	if u == nil {
		return
	}
	clickTime := h.clock.Now()
	h.exec.Submit(func() { h.openURL(u, clickTime) })
}

// SetEnabled switches tracking on or off. The choice is persisted.
func (h *Handler) SetEnabled(enabled bool) {
	h.exec.Submit(func() { h.setEnabled(enabled) })
}

// SetOfflineMode holds packages locally while offline.
func (h *Handler) SetOfflineMode(offline bool) {
	h.exec.Submit(func() { h.setOfflineMode(offline) })
}

// FinishedTrackingActivity handles a delivery outcome from the queue.
func (h *Handler) FinishedTrackingActivity(resp *domain.ResponseData) {
	if resp == nil {
		return
	}
	h.exec.Submit(func() { h.finished(resp) })
}

// IsEnabled reports whether tracking is on. It waits for queued work and
// returns false once the handler is closed.
func (h *Handler) IsEnabled() bool {
	out := make(chan bool, 1)
	if !h.exec.Submit(func() { out <- h.enabled() }) {
		return false
	}
	return <-out
}

// State returns a copy of the current activity state, nil before the first
// session.
func (h *Handler) State(ctx context.Context) (*domain.ActivityState, error) {
	out := make(chan *domain.ActivityState, 1)
	if !h.exec.Submit(func() { out <- h.state.Clone() }) {
		return nil, ErrClosed
	}
	select {
	case s := <-out:
		return s, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Pending returns the packages waiting for delivery, head first. It is
// empty when tracking never initialized.
func (h *Handler) Pending(ctx context.Context) ([]*domain.ActivityPackage, error) {
	out := make(chan PackageHandler, 1)
	if !h.exec.Submit(func() { out <- h.queue }) {
		return nil, ErrClosed
	}
	var q PackageHandler
	select {
	case q = <-out:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	if q == nil {
		return nil, nil
	}
	return q.Pending(ctx)
}

// Flush waits until every call made so far has been processed, callbacks
// included.
func (h *Handler) Flush() {
	h.exec.Flush()
	h.notifier.Flush()
}

// Close stops the tracker, its timer and its queue. Calls after Close are
// dropped.
func (h *Handler) Close() {
	h.exec.Close()
	if h.timer != nil {
		h.timer.pause()
	}
	if h.queue != nil {
		h.queue.Close()
	}
	h.notifier.Close()
}

func (h *Handler) init() {
	if err := ValidateAppToken(h.cfg.AppToken); err != nil {
		h.log.Errorw("Tracking is inactive", "error", err)
		return
	}

	h.environment = lo.CoalesceOrEmpty(h.cfg.Environment, DefaultEnvironment)
	h.clientSDK = lo.CoalesceOrEmpty(h.cfg.ClientSDK, h.cfg.Device.ClientSDK, DefaultClientSDK)
	h.userAgent = lo.CoalesceOrEmpty(h.cfg.UserAgent, defaultUserAgent(h.cfg.Device))
	h.macShortMD5 = shortMD5(h.cfg.Device.DeviceID())
	h.offline = h.cfg.OfflineMode

	h.readActivityState()
	h.readAttribution()

	h.queue = h.newQueue(h, !h.enabled() || h.offline)
	h.timer = newTimeKeeper(h.clock, h.cfg.TimerInterval, func() { h.exec.Submit(h.timerFired) })
	h.ready = true

	h.start()
}

func (h *Handler) enabled() bool {
	return h.state == nil || h.state.Enabled
}

func (h *Handler) start() {
	if !h.ready {
		return
	}
	if !h.enabled() {
		h.log.Debugw("Tracking is disabled")
		return
	}

	if !h.offline {
		h.queue.ResumeSending()
	}
	h.timer.start()

	now := h.clock.Now()
	h.log.Debugf("Now time (%s)", now.Format(time.RFC3339))

	transition := h.tracker.Start(h.state, now)
	switch transition {
	case session.FirstSession:
		h.state = domain.NewActivityState(now, uuid.NewString())
		h.transferSessionPackage(now)
		h.state.ResetSessionAttributes(now)
		h.writeActivityState()
		h.log.Info("First session")

	case session.TimeTravel:
		h.log.Error("Time travel!")
		h.writeActivityState()

	case session.NewSession:
		h.transferSessionPackage(now)
		h.state.ResetSessionAttributes(now)
		h.writeActivityState()
		h.log.Debugf("Session %d", h.state.SessionCount)

	case session.Subsession:
		h.writeActivityState()
		h.log.Infof("Processed Subsession %d of Session %d", h.state.SubsessionCount, h.state.SessionCount)

	default:
		return
	}
	h.metrics.SessionTransition(transition.String())
}

func (h *Handler) end() {
	if !h.ready {
		return
	}
	h.queue.PauseSending()
	h.timer.pause()
	h.tracker.Update(h.state, h.clock.Now())
	h.writeActivityState()
}

func (h *Handler) timerFired() {
	if !h.ready {
		return
	}
	h.queue.SendFirstPackage()
	if h.tracker.Update(h.state, h.clock.Now()) {
		h.writeActivityState()
	}
}

// canTrack runs the checks shared by every tracking call.
func (h *Handler) canTrack(what string) bool {
	if !h.ready {
		return false
	}
	if !h.enabled() {
		h.log.Infof("Tracking is disabled, %s not tracked", what)
		return false
	}
	if err := validateState(h.state); err != nil {
		h.log.Errorw(what+" not tracked", "error", err)
		return false
	}
	return true
}

func (h *Handler) trackEvent(eventToken string, params map[string]string) {
	if !h.canTrack("event") {
		return
	}
	if err := ValidateEventToken(eventToken); err != nil {
		h.log.Errorw("event not tracked", "error", err)
		return
	}

	now := h.clock.Now()
	b := h.packageBuilder(now)
	b.EventToken = eventToken
	b.CallbackParameters = params

	pkg := h.eventPackage(b, now, b.BuildEventPackage)
	h.enqueueEvent(pkg, "event")
	h.log.Debugf("Event %d", h.state.EventCount)
}

func (h *Handler) trackRevenue(amountInCents float64, eventToken string, params map[string]string) {
	if !h.canTrack("revenue") {
		return
	}
	if err := ValidateAmount(amountInCents); err != nil {
		h.log.Errorw("revenue not tracked", "error", err)
		return
	}
	if err := ValidateOptionalEventToken(eventToken); err != nil {
		h.log.Errorw("revenue not tracked", "error", err)
		return
	}

	now := h.clock.Now()
	b := h.packageBuilder(now)
	b.AmountInCents = &amountInCents
	b.EventToken = eventToken
	b.CallbackParameters = params

	pkg := h.eventPackage(b, now, b.BuildRevenuePackage)
	h.enqueueEvent(pkg, "revenue")
	h.log.Debugf("Event %d (revenue)", h.state.EventCount)
}

// eventPackage folds background time in, counts the event and builds.
func (h *Handler) eventPackage(b *domain.PackageBuilder, now time.Time, build func() *domain.ActivityPackage) *domain.ActivityPackage {
	h.tracker.Update(h.state, now)
	h.state.CreatedAt = now
	h.state.EventCount++
	h.state.InjectEventAttributes(b)
	return build()
}

func (h *Handler) enqueueEvent(pkg *domain.ActivityPackage, what string) {
	h.queue.AddPackage(pkg)
	if h.cfg.EventBuffering {
		h.log.Infof("Buffered %s%s", what, pkg.Suffix)
	} else {
		h.queue.SendFirstPackage()
	}
	h.writeActivityState()
}

func (h *Handler) transferSessionPackage(now time.Time) {
	b := h.packageBuilder(now)
	h.state.InjectSessionAttributes(b)
	h.queue.AddPackage(b.BuildSessionPackage())
	h.queue.SendFirstPackage()
}

func (h *Handler) openURL(u *url.URL, clickTime time.Time) {
	if !h.canTrack("click") {
		return
	}

	params := deeplinkParameters(u)
	if len(params) == 0 {
		return
	}
	attribution, rest := splitAttribution(params)

	b := h.packageBuilder(clickTime)
	h.state.InjectSessionAttributes(b)
	b.Deeplink = u.String()
	b.DeeplinkParameters = rest
	b.Attribution = attribution
	b.ClickTime = clickTime

	h.queue.AddPackage(b.BuildClickPackage(clickSource))
	h.queue.SendFirstPackage()
}

func (h *Handler) setEnabled(enabled bool) {
	if !h.ready {
		return
	}
	if err := validateState(h.state); err != nil {
		h.log.Errorw("cannot change enabled state", "error", err)
		return
	}
	if h.state.Enabled == enabled {
		h.log.Debugw("enabled state unchanged", "enabled", enabled)
		return
	}

	h.state.Enabled = enabled
	h.writeActivityState()

	if enabled {
		h.log.Info("Resuming package handler and timer")
		h.start()
		return
	}
	h.log.Info("Pausing package handler and timer")
	h.queue.PauseSending()
	h.timer.pause()
}

func (h *Handler) setOfflineMode(offline bool) {
	if !h.ready || h.offline == offline {
		return
	}
	h.offline = offline

	if offline {
		h.log.Info("Pausing package handler to put in offline mode")
		h.queue.PauseSending()
		return
	}
	if !h.enabled() {
		h.log.Info("Package handler remains paused because tracking is disabled")
		return
	}
	h.log.Info("Resuming package handler to put in online mode")
	h.queue.ResumeSending()
	h.queue.SendFirstPackage()
}

func (h *Handler) finished(resp *domain.ResponseData) {
	cb := h.callbacks

	switch resp.Kind {
	case domain.KindSession:
		if resp.Success() && cb.SessionTrackingSucceeded != nil {
			data := resp.SessionSuccess()
			h.notify(func() { cb.SessionTrackingSucceeded(data) })
		}
		if !resp.Success() && cb.SessionTrackingFailed != nil {
			data := resp.SessionFailure()
			h.notify(func() { cb.SessionTrackingFailed(data) })
		}
	case domain.KindEvent, domain.KindRevenue:
		if resp.Success() && cb.EventTrackingSucceeded != nil {
			data := resp.EventSuccess()
			h.notify(func() { cb.EventTrackingSucceeded(data) })
		}
		if !resp.Success() && cb.EventTrackingFailed != nil {
			data := resp.EventFailure()
			h.notify(func() { cb.EventTrackingFailed(data) })
		}
	}

	h.updateAttribution(resp.Attribution)
	if resp.Deeplink != "" {
		h.launchDeeplink(resp.Deeplink)
	}
}

func (h *Handler) updateAttribution(a *domain.Attribution) {
	if a == nil || a.Equal(h.attribution) {
		return
	}
	h.attribution = a
	h.writeAttribution()
	h.log.Infow("Attribution changed", "attribution", a.String())

	if fn := h.callbacks.AttributionChanged; fn != nil {
		changed := *a
		h.notify(func() { fn(changed) })
	}
}

func (h *Handler) launchDeeplink(raw string) {
	u, err := url.Parse(raw)
	if err != nil {
		h.log.Errorw("Malformed deep link", "deeplink", raw, "error", err)
		return
	}

	decide := h.callbacks.DeeplinkResponse
	launcher := h.launcher
	h.notify(func() {
		if decide != nil && !decide(u) {
			h.log.Debugw("Deep link not opened", "deeplink", raw)
			return
		}
		if launcher == nil {
			h.log.Warnw("No launcher for deep link", "deeplink", raw)
			return
		}
		if err := launcher.Launch(u); err != nil {
			h.log.Errorw("Unable to open deep link", "deeplink", raw, "error", err)
			return
		}
		h.log.Infow("Opened deep link", "deeplink", raw)
	})
}

func (h *Handler) notify(fn func()) {
	h.notifier.Submit(fn)
}

func (h *Handler) packageBuilder(now time.Time) *domain.PackageBuilder {
	return &domain.PackageBuilder{
		AppToken:       h.cfg.AppToken,
		Environment:    h.environment,
		ClientSDK:      h.clientSDK,
		UserAgent:      h.userAgent,
		MacShortMD5:    h.macShortMD5,
		DefaultTracker: h.cfg.DefaultTracker,
		Device:         h.cfg.Device,
		Now:            now,
	}
}

func (h *Handler) writeActivityState() {
	if h.state == nil {
		return
	}
	if err := store.Write(context.Background(), h.store, store.SlotActivityState, h.state); err != nil {
		h.log.Errorw("Failed to write activity state", "error", err)
		h.metrics.PersistError(store.SlotActivityState, "write")
		return
	}
	h.log.Debugf("Wrote activity state: %s", h.state)
}

func (h *Handler) readActivityState() {
	s, err := store.Read[domain.ActivityState](context.Background(), h.store, store.SlotActivityState)
	if err != nil {
		h.log.Errorw("Failed to read activity state", "error", err)
		h.metrics.PersistError(store.SlotActivityState, "read")
		return
	}
	h.state = s
	if s != nil {
		h.log.Debugf("Read activity state: %s", s)
	}
}

func (h *Handler) writeAttribution() {
	if err := store.Write(context.Background(), h.store, store.SlotAttribution, h.attribution); err != nil {
		h.log.Errorw("Failed to write attribution", "error", err)
		h.metrics.PersistError(store.SlotAttribution, "write")
	}
}

func (h *Handler) readAttribution() {
	a, err := store.Read[domain.Attribution](context.Background(), h.store, store.SlotAttribution)
	if err != nil {
		h.log.Errorw("Failed to read attribution", "error", err)
		h.metrics.PersistError(store.SlotAttribution, "read")
		return
	}
	h.attribution = a
}

// deeplinkParameters returns the adjust_ query parameters, prefix removed.
func deeplinkParameters(u *url.URL) map[string]string {
	out := map[string]string{}
	for key, values := range u.Query() {
		name, ok := strings.CutPrefix(key, deeplinkPrefix)
		if !ok || name == "" || len(values) == 0 {
			continue
		}
		out[name] = values[0]
	}
	return out
}

var attributionKeys = []string{"tracker", "campaign", "adgroup", "creative"}

// splitAttribution lifts the tracker fields out of the deep link parameters.
func splitAttribution(params map[string]string) (*domain.Attribution, map[string]string) {
	a := &domain.Attribution{
		TrackerName: params["tracker"],
		Campaign:    params["campaign"],
		Adgroup:     params["adgroup"],
		Creative:    params["creative"],
	}
	rest := lo.OmitByKeys(params, attributionKeys)
	if *a == (domain.Attribution{}) {
		return nil, rest
	}
	return a, rest
}

func shortMD5(id string) string {
	if id == "" {
		return ""
	}
	sum := md5.Sum([]byte(id))
	return hex.EncodeToString(sum[:])
}

func defaultUserAgent(d domain.DeviceInfo) string {
	return strings.Join(lo.Compact([]string{
		d.AppName,
		d.AppVersion,
		d.DeviceType,
		d.DeviceName,
		d.DeviceManufacturer,
		d.OSName,
		d.OSVersion,
		d.Language,
		d.Country,
	}), " ")
}
