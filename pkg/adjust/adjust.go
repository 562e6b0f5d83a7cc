// Package adjust is the host-facing tracking API.
//
// A host creates one Adjust per app install, reports foreground and
// background transitions, and tracks events and revenue. Every call returns
// immediately; the work happens on the SDK's own goroutines and packages are
// delivered in order, one at a time, surviving restarts through the
// configured Store.
package adjust

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"

	"github.com/vburojevic/adjust/internal/activity"
	"github.com/vburojevic/adjust/internal/domain"
	"github.com/vburojevic/adjust/internal/logger"
	"github.com/vburojevic/adjust/internal/metrics"
	"github.com/vburojevic/adjust/internal/request"
	"github.com/vburojevic/adjust/internal/store"
)

// Environments accepted by Config.Environment.
const (
	EnvironmentSandbox    = "sandbox"
	EnvironmentProduction = "production"
)

// Version is the SDK version reported in the Client-SDK header.
const Version = "1.0.0"

type (
	// DeviceInfo describes the host device.
	DeviceInfo = domain.DeviceInfo
	// Attribution is the tracker an install was attributed to.
	Attribution = domain.Attribution
	// Callbacks receive delivery outcomes, attribution changes and deep links.
	Callbacks = activity.Callbacks
	// Launcher opens deep links returned by the collector.
	Launcher = activity.Launcher
	// LauncherFunc adapts a function to Launcher.
	LauncherFunc = activity.LauncherFunc
	// Store persists SDK state between launches.
	Store = store.Store
	// Metrics collects delivery and session counters.
	Metrics = metrics.Metrics
	// Package is a request waiting in the delivery queue.
	Package = domain.ActivityPackage
	// State is the persisted session state.
	State = domain.ActivityState

	SessionSuccess = domain.SessionSuccess
	SessionFailure = domain.SessionFailure
	EventSuccess   = domain.EventSuccess
	EventFailure   = domain.EventFailure
)

// Config configures an Adjust instance.
type Config struct {
	AppToken              string
	Environment           string
	EventBufferingEnabled bool
	DefaultTracker        string
	OfflineMode           bool
	SDKPrefix             string
	UserAgent             string
	Device                DeviceInfo

	BaseURL        string
	RequestTimeout time.Duration

	// LogLevel is used when Logger is nil.
	LogLevel string
	Logger   *zap.SugaredLogger

	// Store defaults to an in-memory store, which loses state on exit.
	Store   Store
	Metrics *Metrics

	Callbacks Callbacks
	Launcher  Launcher

	SessionInterval    time.Duration
	SubsessionInterval time.Duration
	TimerInterval      time.Duration
}

// Event is a tracked event.
type Event struct {
	Token              string
	CallbackParameters map[string]string
}

// NewEvent creates an event for token.
func NewEvent(token string) *Event {
	return &Event{Token: token}
}

// AddCallbackParameter attaches a key/value pair forwarded to the host's
// callback URL.
func (e *Event) AddCallbackParameter(key, value string) *Event {
	if e.CallbackParameters == nil {
		e.CallbackParameters = map[string]string{}
	}
	e.CallbackParameters[key] = value
	return e
}

// Option tweaks construction, mostly for tests.
type Option func(*options)

type options struct {
	clock      clock.Clock
	httpClient *http.Client
}

// WithClock replaces the wall clock.
func WithClock(c clock.Clock) Option { return func(o *options) { o.clock = c } }

// WithHTTPClient replaces the HTTP client used for delivery.
func WithHTTPClient(c *http.Client) Option { return func(o *options) { o.httpClient = c } }

// Adjust is a running tracker.
type Adjust struct {
	handler *activity.Handler
	log     *zap.SugaredLogger
}

// New starts tracking. The first session is recorded right away, so New is
// also the first foreground transition.
func New(cfg Config, opts ...Option) (*Adjust, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if o.clock == nil {
		o.clock = clock.New()
	}

	log := cfg.Logger
	if log == nil {
		var err error
		log, err = logger.New(logger.Options{Level: cfg.LogLevel})
		if err != nil {
			return nil, fmt.Errorf("create logger: %w", err)
		}
	}

	checkEnvironment(log, cfg.Environment)

	transport := request.NewClient(request.Options{
		BaseURL:    cfg.BaseURL,
		Timeout:    cfg.RequestTimeout,
		HTTPClient: o.httpClient,
		Clock:      o.clock,
		Logger:     log,
		Metrics:    cfg.Metrics,
	})

	handlerOpts := []activity.Option{
		activity.WithLogger(log),
		activity.WithClock(o.clock),
		activity.WithMetrics(cfg.Metrics),
		activity.WithTransport(transport),
		activity.WithCallbacks(cfg.Callbacks),
	}
	if cfg.Store != nil {
		handlerOpts = append(handlerOpts, activity.WithStore(cfg.Store))
	}
	if cfg.Launcher != nil {
		handlerOpts = append(handlerOpts, activity.WithLauncher(cfg.Launcher))
	}

	h := activity.New(activity.Config{
		AppToken:           cfg.AppToken,
		Environment:        cfg.Environment,
		EventBuffering:     cfg.EventBufferingEnabled,
		DefaultTracker:     cfg.DefaultTracker,
		OfflineMode:        cfg.OfflineMode,
		ClientSDK:          clientSDK(cfg.SDKPrefix),
		UserAgent:          cfg.UserAgent,
		Device:             cfg.Device,
		SessionInterval:    cfg.SessionInterval,
		SubsessionInterval: cfg.SubsessionInterval,
		TimerInterval:      cfg.TimerInterval,
	}, handlerOpts...)

	return &Adjust{handler: h, log: log}, nil
}

func clientSDK(prefix string) string {
	sdk := "go" + Version
	if prefix == "" {
		return sdk
	}
	return prefix + "@" + sdk
}

func checkEnvironment(log *zap.SugaredLogger, env string) {
	switch env {
	case EnvironmentSandbox:
		log.Warn("SANDBOX: Adjust is running in Sandbox mode. Use this setting for testing. Don't forget to set the environment to `production` before publishing!")
	case EnvironmentProduction:
		log.Warn("PRODUCTION: Adjust is running in Production mode. Use this setting only for the build that you want to publish. Set the environment to `sandbox` if you want to test your app!")
	case "":
		log.Error("Missing environment")
	default:
		log.Errorf("Malformed environment '%s'", env)
	}
}

// ApplicationActivated reports the app coming to the foreground.
func (a *Adjust) ApplicationActivated() {
	a.handler.TrackSubsessionStart()
}

// ApplicationDeactivated reports the app going to the background.
func (a *Adjust) ApplicationDeactivated() {
	a.handler.TrackSubsessionEnd()
}

// TrackEvent tracks ev. A nil event is ignored.
func (a *Adjust) TrackEvent(ev *Event) {
	if ev == nil {
		a.log.Error("Missing event")
		return
	}
	a.handler.TrackEvent(ev.Token, ev.CallbackParameters)
}

// TrackRevenue tracks revenue in cents. eventToken may be empty.
func (a *Adjust) TrackRevenue(amountInCents float64, eventToken string, params map[string]string) {
	a.handler.TrackRevenue(amountInCents, eventToken, params)
}

// SetEnabled switches tracking on or off; the choice survives restarts.
func (a *Adjust) SetEnabled(enabled bool) {
	a.handler.SetEnabled(enabled)
}

// IsEnabled reports whether tracking is on.
func (a *Adjust) IsEnabled() bool {
	return a.handler.IsEnabled()
}

// SetOfflineMode keeps tracking but holds delivery until back online.
func (a *Adjust) SetOfflineMode(offline bool) {
	a.handler.SetOfflineMode(offline)
}

// AppWillOpenURL reports the URL the app was opened with.
func (a *Adjust) AppWillOpenURL(u *url.URL) {
	a.handler.AppWillOpenURL(u)
}

// Pending returns the packages still waiting for delivery, head first.
func (a *Adjust) Pending(ctx context.Context) ([]*Package, error) {
	return a.handler.Pending(ctx)
}

// State returns a copy of the session state, nil before the first session.
func (a *Adjust) State(ctx context.Context) (*State, error) {
	return a.handler.State(ctx)
}

// Flush waits until every call made so far has been processed. Deliveries
// already handed to the network may still be in flight.
func (a *Adjust) Flush() {
	a.handler.Flush()
}

// Close stops tracking and delivery. Queued packages stay in the Store.
func (a *Adjust) Close() {
	a.handler.Close()
	_ = a.log.Sync()
}
