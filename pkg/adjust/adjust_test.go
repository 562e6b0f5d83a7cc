package adjust

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vburojevic/adjust/internal/logger"
	"github.com/vburojevic/adjust/internal/store"
)

const (
	waitFor = 3 * time.Second
	tick    = 10 * time.Millisecond
)

type hit struct {
	path string
	form url.Values
	sdk  string
}

// collector answers each request with the next status in statuses, then 200.
type collector struct {
	mu       sync.Mutex
	hits     []hit
	statuses []int
	body     string
}

func newCollector(t *testing.T, body string, statuses ...int) (*collector, *httptest.Server) {
	t.Helper()
	c := &collector{statuses: statuses, body: body}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		c.mu.Lock()
		c.hits = append(c.hits, hit{path: r.URL.Path, form: r.PostForm, sdk: r.Header.Get("Client-SDK")})
		status := http.StatusOK
		if len(c.statuses) > 0 {
			status = c.statuses[0]
			c.statuses = c.statuses[1:]
		}
		c.mu.Unlock()

		w.WriteHeader(status)
		_, _ = w.Write([]byte(c.body))
	}))
	t.Cleanup(srv.Close)
	return c, srv
}

func (c *collector) paths() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.hits))
	for _, h := range c.hits {
		out = append(out, h.path)
	}
	return out
}

func (c *collector) hit(i int) hit {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits[i]
}

func baseConfig(srv *httptest.Server) Config {
	return Config{
		AppToken:       "abc123def456",
		Environment:    EnvironmentSandbox,
		BaseURL:        srv.URL,
		RequestTimeout: time.Second,
		Logger:         logger.Nop(),
		TimerInterval:  50 * time.Millisecond,
		Device:         DeviceInfo{DeviceUniqueID: "device-1", AppName: "demo"},
	}
}

func TestTrackEventEndToEnd(t *testing.T) {
	c, srv := newCollector(t, `{"message":"tracked"}`)

	events := make(chan EventSuccess, 4)
	cfg := baseConfig(srv)
	cfg.Callbacks = Callbacks{
		EventTrackingSucceeded: func(s EventSuccess) { events <- s },
	}

	a, err := New(cfg)
	require.NoError(t, err)
	t.Cleanup(a.Close)

	a.TrackEvent(NewEvent("abcdef").AddCallbackParameter("key", "value"))
	a.TrackRevenue(2.5, "abcdef", nil)

	require.Eventually(t, func() bool { return len(c.paths()) == 3 }, waitFor, tick)
	assert.Equal(t, []string{"/startup", "/event", "/revenue"}, c.paths())

	ev := c.hit(1)
	assert.Equal(t, "abcdef", ev.form.Get("event_token"))
	assert.Equal(t, "1", ev.form.Get("event_count"))
	assert.Equal(t, `{"key":"value"}`, ev.form.Get("callback_params"))
	assert.NotEmpty(t, ev.form.Get("sent_at"))
	assert.Equal(t, "go"+Version, ev.sdk)

	rev := c.hit(2)
	assert.Equal(t, "2.5", rev.form.Get("amount"))
	assert.Equal(t, "2", rev.form.Get("event_count"))

	for i := 0; i < 2; i++ {
		select {
		case s := <-events:
			assert.Equal(t, "abcdef", s.EventToken)
			assert.Equal(t, "tracked", s.Message)
		case <-time.After(waitFor):
			t.Fatal("event callback not invoked")
		}
	}
}

func TestRetryableFailureIsResent(t *testing.T) {
	c, srv := newCollector(t, "", http.StatusServiceUnavailable)

	failures := make(chan SessionFailure, 1)
	cfg := baseConfig(srv)
	cfg.Callbacks = Callbacks{
		SessionTrackingFailed: func(f SessionFailure) { failures <- f },
	}

	a, err := New(cfg)
	require.NoError(t, err)
	t.Cleanup(a.Close)

	select {
	case f := <-failures:
		assert.True(t, f.WillRetry)
	case <-time.After(waitFor):
		t.Fatal("session failure callback not invoked")
	}

	a.TrackEvent(NewEvent("abcdef"))

	require.Eventually(t, func() bool { return len(c.paths()) == 3 }, waitFor, tick)
	assert.Equal(t, []string{"/startup", "/startup", "/event"}, c.paths())
}

func TestPermanentFailureIsDropped(t *testing.T) {
	c, srv := newCollector(t, `{"error":"bad app token"}`, http.StatusInternalServerError)

	failures := make(chan SessionFailure, 1)
	cfg := baseConfig(srv)
	cfg.Callbacks = Callbacks{
		SessionTrackingFailed: func(f SessionFailure) { failures <- f },
	}

	a, err := New(cfg)
	require.NoError(t, err)
	t.Cleanup(a.Close)
	a.TrackEvent(NewEvent("abcdef"))

	select {
	case f := <-failures:
		assert.False(t, f.WillRetry)
		assert.Equal(t, "bad app token", f.Message)
	case <-time.After(waitFor):
		t.Fatal("session failure callback not invoked")
	}

	require.Eventually(t, func() bool { return len(c.paths()) == 2 }, waitFor, tick)
	assert.Equal(t, []string{"/startup", "/event"}, c.paths())
}

func TestQueueSurvivesRestart(t *testing.T) {
	c, srv := newCollector(t, "")
	st, err := store.NewFileStore(t.TempDir(), store.JSONCodec{})
	require.NoError(t, err)

	cfg := baseConfig(srv)
	cfg.Store = st
	cfg.OfflineMode = true

	first, err := New(cfg)
	require.NoError(t, err)
	first.TrackEvent(NewEvent("abcdef"))
	first.Flush()
	pending, err := first.Pending(context.Background())
	require.NoError(t, err)
	require.Len(t, pending, 2)
	first.Close()
	assert.Empty(t, c.paths())

	cfg.OfflineMode = false
	second, err := New(cfg)
	require.NoError(t, err)
	t.Cleanup(second.Close)

	require.Eventually(t, func() bool { return len(c.paths()) == 2 }, waitFor, tick)
	assert.Equal(t, []string{"/startup", "/event"}, c.paths())
}

func TestDeepLinkFromAppOpen(t *testing.T) {
	c, srv := newCollector(t, "")

	a, err := New(baseConfig(srv))
	require.NoError(t, err)
	t.Cleanup(a.Close)

	require.Eventually(t, func() bool { return len(c.paths()) == 1 }, waitFor, tick)

	u, err := url.Parse("demo://open?adjust_tracker=abc&adjust_reftag=x")
	require.NoError(t, err)
	a.AppWillOpenURL(u)

	require.Eventually(t, func() bool { return len(c.paths()) == 2 }, waitFor, tick)
	click := c.hit(1)
	assert.Equal(t, "/sdk_click", click.path)
	assert.Equal(t, "abc", click.form.Get("tracker"))
	assert.Equal(t, `{"reftag":"x"}`, click.form.Get("params"))
}

func TestEnableDisable(t *testing.T) {
	c, srv := newCollector(t, "")

	a, err := New(baseConfig(srv))
	require.NoError(t, err)
	t.Cleanup(a.Close)

	require.True(t, a.IsEnabled())
	a.SetEnabled(false)
	require.False(t, a.IsEnabled())

	a.TrackEvent(NewEvent("abcdef"))
	a.Flush()

	a.SetEnabled(true)
	require.True(t, a.IsEnabled())

	require.Eventually(t, func() bool { return len(c.paths()) >= 1 }, waitFor, tick)
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, []string{"/startup"}, c.paths())
}

func TestClientSDKPrefix(t *testing.T) {
	assert.Equal(t, "go"+Version, clientSDK(""))
	assert.Equal(t, "unity4.0@go"+Version, clientSDK("unity4.0"))
}
