// Package request delivers one activity package to the collector and
// classifies the outcome.
package request

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"

	"github.com/vburojevic/adjust/internal/domain"
	"github.com/vburojevic/adjust/internal/logger"
	"github.com/vburojevic/adjust/internal/metrics"
)

const (
	// DefaultBaseURL is the production collector.
	DefaultBaseURL = "https://app.adjust.io"
	// DefaultTimeout bounds one delivery attempt.
	DefaultTimeout = time.Minute

	maxBodyBytes = 1 << 20
)

// Options configure a Client.
type Options struct {
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client
	Clock      clock.Clock
	Logger     *zap.SugaredLogger
	Metrics    *metrics.Metrics
}

// Client posts packages to the collector. It holds no per-package state and
// is safe for concurrent use.
type Client struct {
	baseURL string
	timeout time.Duration
	http    *http.Client
	clock   clock.Clock
	log     *zap.SugaredLogger
	metrics *metrics.Metrics
}

// NewClient builds a client, filling in defaults.
func NewClient(opts Options) *Client {
	c := &Client{
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		timeout: opts.Timeout,
		http:    opts.HTTPClient,
		clock:   opts.Clock,
		log:     logger.OrNop(opts.Logger).Named("request"),
		metrics: opts.Metrics,
	}
	if c.baseURL == "" {
		c.baseURL = DefaultBaseURL
	}
	if c.timeout <= 0 {
		c.timeout = DefaultTimeout
	}
	if c.http == nil {
		c.http = &http.Client{Timeout: c.timeout}
	}
	if c.clock == nil {
		c.clock = clock.New()
	}
	return c
}

// Deliver sends pkg and blocks until the collector answers, the attempt times
// out or ctx is cancelled. It never returns nil.
func (c *Client) Deliver(ctx context.Context, pkg *domain.ActivityPackage) *domain.ResponseData {
	start := c.clock.Now()
	resp := c.deliver(ctx, pkg)
	resp.ReceivedAt = c.clock.Now()
	c.metrics.ObserveDelivery(string(pkg.Kind), resp.Outcome.String(), resp.ReceivedAt.Sub(start))
	return resp
}

func (c *Client) deliver(ctx context.Context, pkg *domain.ActivityPackage) *domain.ResponseData {
	resp := domain.NewResponseData(pkg)

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := c.newRequest(ctx, pkg)
	if err != nil {
		return c.processError(resp, pkg, err)
	}

	httpResp, err := c.http.Do(req)
	if err != nil {
		return c.processError(resp, pkg, err)
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(httpResp.Body, maxBodyBytes))
	if err != nil {
		return c.processError(resp, pkg, fmt.Errorf("read response: %w", err))
	}
	return c.processResponse(resp, pkg, httpResp.StatusCode, body)
}

// newRequest form-encodes a copy of the parameters with sent_at added.
func (c *Client) newRequest(ctx context.Context, pkg *domain.ActivityPackage) (*http.Request, error) {
	params := pkg.ParametersCopy()
	params["sent_at"] = strconv.FormatInt(c.clock.Now().Unix(), 10)

	form := url.Values{}
	for k, v := range params {
		form.Set(k, v)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+pkg.Path, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Client-SDK", pkg.ClientSDK)
	req.Header.Set("User-Agent", pkg.UserAgent)
	return req, nil
}

func (c *Client) processResponse(resp *domain.ResponseData, pkg *domain.ActivityPackage, status int, body []byte) *domain.ResponseData {
	bodyString := strings.TrimRight(string(body), "\r\n")

	resp.StatusCode = status
	resp.Outcome = Classify(status)
	resp.SetJSON(ParseJSON(body), bodyString)

	switch resp.Outcome {
	case domain.OutcomeSuccess:
		c.log.Infow(pkg.SuccessMessage(), "status", status)
	case domain.OutcomePermanentFailure:
		c.log.Errorw(fmt.Sprintf("%s. (%s, %d).", pkg.FailureMessage(), bodyString, status))
	default:
		c.log.Errorw(fmt.Sprintf("%s. (%d). Will retry later.", pkg.FailureMessage(), status))
	}
	return resp
}

func (c *Client) processError(resp *domain.ResponseData, pkg *domain.ActivityPackage, err error) *domain.ResponseData {
	resp.Outcome = domain.OutcomeRetryableFailure
	resp.Error = errorMessage(err)
	c.log.Errorw(fmt.Sprintf("%s. (%s). Will retry later", pkg.FailureMessage(), resp.Error))
	return resp
}

func errorMessage(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "request timed out"
	}
	var netErr interface{ Timeout() bool }
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "request timed out"
	}
	return err.Error()
}

// Classify maps an HTTP status onto a delivery outcome. 500 and 501 are the
// collector's answer for payloads that can never succeed.
func Classify(status int) domain.Outcome {
	switch {
	case status >= 200 && status < 300:
		return domain.OutcomeSuccess
	case status == http.StatusInternalServerError, status == http.StatusNotImplemented:
		return domain.OutcomePermanentFailure
	default:
		return domain.OutcomeRetryableFailure
	}
}
