package cli

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/vburojevic/adjust/internal/activity"
	"github.com/vburojevic/adjust/internal/config"
	"github.com/vburojevic/adjust/internal/metrics"
	"github.com/vburojevic/adjust/internal/output"
	"github.com/vburojevic/adjust/internal/store"
	"github.com/vburojevic/adjust/pkg/adjust"
)

const pollInterval = 100 * time.Millisecond

// trackFlags are shared by every command that starts the SDK.
type trackFlags struct {
	Wait        time.Duration `default:"10s" help:"How long to wait for the queue to drain (0 returns at once)"`
	MetricsAddr string        `name:"metrics-addr" help:"Serve Prometheus metrics on this address while running"`
}

// openStore opens the configured backend. The returned close func is never nil.
func openStore(cfg config.StoreConfig) (store.Store, func() error, error) {
	noop := func() error { return nil }

	codec, err := store.CodecByName(cfg.Codec)
	if err != nil {
		return nil, noop, err
	}

	switch cfg.Backend {
	case "memory":
		return store.NewMemoryStore(), noop, nil
	case "sqlite":
		if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
			return nil, noop, err
		}
		s, err := store.OpenSQLite(cfg.Path, codec)
		if err != nil {
			return nil, noop, err
		}
		return s, s.Close, nil
	case "file", "":
		s, err := store.NewFileStore(cfg.Path, codec)
		if err != nil {
			return nil, noop, err
		}
		return s, noop, nil
	}
	return nil, noop, fmt.Errorf("unknown store backend %q", cfg.Backend)
}

// deviceInfo fills the gaps in the configured device from the host and the
// pinned identity.
func deviceInfo(cfg *config.Config, deviceID string) adjust.DeviceInfo {
	d := cfg.Device
	host, _ := os.Hostname()
	d.DeviceUniqueID = lo.CoalesceOrEmpty(d.DeviceUniqueID, deviceID)
	d.DeviceName = lo.CoalesceOrEmpty(d.DeviceName, host)
	d.OSName = lo.CoalesceOrEmpty(d.OSName, runtime.GOOS)
	d.Architecture = lo.CoalesceOrEmpty(d.Architecture, runtime.GOARCH)
	d.AppName = lo.CoalesceOrEmpty(d.AppName, "adjust-cli")
	return d
}

// serveMetrics exposes m on addr until the returned func is called.
func serveMetrics(addr string, m *metrics.Metrics, log *zap.SugaredLogger) (func(), error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Errorw("Metrics server stopped", "error", err)
		}
	}()
	log.Infow("Serving metrics", "address", ln.Addr().String())

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}, nil
}

// runTracker starts the SDK on the configured store, runs fn against it and
// waits up to flags.Wait for the queue to drain before reporting.
func runTracker(globals *Globals, command string, flags trackFlags, fn func(*adjust.Adjust) error) error {
	cfg := globals.Config
	if err := validateFlags(globals, flags.Wait); err != nil {
		return err
	}
	if err := activity.ValidateAppToken(cfg.AppToken); err != nil {
		return outputErrorCommon(globals, "INVALID_APP_TOKEN", err.Error(), "set app_token in adjust.yaml or pass --app-token")
	}

	log := newCommandLogger(globals, command)
	defer func() { _ = log.Sync() }()

	st, closeStore, err := openStore(cfg.Store)
	if err != nil {
		return outputErrorCommon(globals, "STORE_OPEN", err.Error(), "check store.backend and store.path")
	}
	defer func() { _ = closeStore() }()

	deviceID := cfg.Device.DeviceUniqueID
	if deviceID == "" {
		path, err := defaultIdentityPath(cfg.Store.Backend, cfg.Store.Path)
		if err == nil {
			var id *deviceIdentity
			if id, err = ensureDeviceIdentity(path, globals.clk().Now()); err == nil {
				deviceID = id.DeviceUniqueID
			}
		}
		if err != nil {
			log.Warnw("Device identity unavailable, using a fresh id", "error", err)
		}
	}

	m := metrics.New()
	if addr := lo.CoalesceOrEmpty(flags.MetricsAddr, cfg.Metrics.Address); addr != "" {
		stop, err := serveMetrics(addr, m, log)
		if err != nil {
			return outputErrorCommon(globals, "METRICS_LISTEN", err.Error(), "pick a free --metrics-addr")
		}
		defer stop()
	}

	a, err := adjust.New(adjust.Config{
		AppToken:              cfg.AppToken,
		Environment:           cfg.Environment,
		EventBufferingEnabled: cfg.EventBuffering,
		DefaultTracker:        cfg.DefaultTracker,
		OfflineMode:           cfg.Offline,
		SDKPrefix:             cfg.SDKPrefix,
		Device:                deviceInfo(cfg, deviceID),
		BaseURL:               cfg.BaseURL,
		RequestTimeout:        cfg.Request.Timeout,
		Logger:                log,
		Store:                 st,
		Metrics:               m,
		SessionInterval:       cfg.Session.SessionInterval,
		SubsessionInterval:    cfg.Session.SubsessionInterval,
		TimerInterval:         cfg.Session.TimerInterval,
	}, adjust.WithClock(globals.clk()))
	if err != nil {
		return outputErrorCommon(globals, "SDK_INIT", err.Error())
	}
	defer a.Close()

	if err := fn(a); err != nil {
		return err
	}
	a.Flush()

	pending := waitForDrain(a, flags.Wait, cfg.Offline)
	// the process exits here, which the SDK sees as going to the background
	a.ApplicationDeactivated()
	a.Flush()

	if globals.ndjson() {
		return output.NewNDJSONWriter(globals.Stdout).WriteResult(command, pending, cfg.Offline)
	}
	output.NewTextWriter(globals.Stdout).WriteResult(command, pending, cfg.Offline)
	return nil
}

// waitForDrain polls the queue until it is empty or wait elapses and returns
// the number of packages still queued. Offline runs never wait.
func waitForDrain(a *adjust.Adjust, wait time.Duration, offline bool) int {
	ctx, cancel := context.WithTimeout(context.Background(), wait)
	defer cancel()

	count := func() int {
		qctx, qcancel := context.WithTimeout(context.Background(), time.Second)
		defer qcancel()
		pending, err := a.Pending(qctx)
		if err != nil {
			return -1
		}
		return len(pending)
	}

	n := count()
	if offline || wait <= 0 {
		return n
	}

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	for n != 0 {
		select {
		case <-ctx.Done():
			return n
		case <-ticker.C:
			n = count()
		}
	}
	return n
}
