// Package fuseki loads Turtle documents into an Apache Jena Fuseki server
// through its Graph Store Protocol endpoint.
package fuseki

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode"

	resty "github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// Client defaults.
const (
	// DefaultURL is where a local Fuseki listens out of the box.
	DefaultURL = "http://localhost:3030"
	// DefaultDataset receives uploads that name no dataset.
	DefaultDataset = "fc"
	// DefaultTimeout bounds a single load request.
	DefaultTimeout = 30 * time.Second
	// DefaultPingTimeout bounds the ping run before each load.
	DefaultPingTimeout = 1 * time.Second
	// RetryCount is how often a load is retried on 502, 503 and 504.
	RetryCount = 3
	// RetryWaitTime is the initial wait between load attempts.
	RetryWaitTime = 100 * time.Millisecond
	// RetryWaitTimeMax caps the backoff between load attempts.
	RetryWaitTimeMax = 2 * time.Second
)

// Values reported by Status.
const (
	StatusRunning = "running"
	StatusStopped = "stopped"
)

// Client talks to a single Fuseki server.
type Client struct {
	baseURL string
	logger  *zap.Logger
	http    *resty.Client
	ping    *resty.Client
}

type options struct {
	timeout       time.Duration
	pingTimeout   time.Duration
	retryCount    int
	retryWaitTime time.Duration
	logger        *zap.Logger
}

// Option configures a Client.
type Option func(*options)

// WithTimeout sets the timeout of load requests.
func WithTimeout(d time.Duration) Option {
	return func(o *options) { o.timeout = d }
}

// WithPingTimeout sets the timeout of the ping run before each load.
func WithPingTimeout(d time.Duration) Option {
	return func(o *options) { o.pingTimeout = d }
}

// WithRetry sets how often a load is retried on 502, 503 and 504 and the
// initial wait between attempts.
func WithRetry(count int, wait time.Duration) Option {
	return func(o *options) {
		o.retryCount = count
		o.retryWaitTime = wait
	}
}

// WithLogger sets the logger retries and failed loads are reported to.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// NewClient returns a client for the server at baseURL, e.g.
// "http://localhost:3030".
func NewClient(baseURL string, opts ...Option) *Client {
	o := &options{
		timeout:       DefaultTimeout,
		pingTimeout:   DefaultPingTimeout,
		retryCount:    RetryCount,
		retryWaitTime: RetryWaitTime,
		logger:        zap.NewNop(),
	}
	for _, opt := range opts {
		opt(o)
	}
	if baseURL == "" {
		baseURL = DefaultURL
	}
	baseURL = strings.TrimRight(baseURL, "/")

	c := &Client{
		baseURL: baseURL,
		logger:  o.logger.Named("fuseki"),
	}
	c.http = createHTTPClient(c.logger, o)

	// The ping is never retried: a server that does not answer within the
	// ping timeout counts as stopped.
	c.ping = resty.New()
	c.ping.SetLogger(c.logger.Sugar())
	c.ping.SetTimeout(o.pingTimeout)
	return c
}

func createHTTPClient(logger *zap.Logger, o *options) *resty.Client {
	c := resty.New()
	c.SetLogger(logger.Sugar())
	c.SetTimeout(o.timeout)
	c.SetRetryCount(o.retryCount)
	c.SetRetryWaitTime(o.retryWaitTime)
	c.SetRetryMaxWaitTime(RetryWaitTimeMax)
	c.AddRetryCondition(func(response *resty.Response, err error) bool {
		if response == nil {
			return false
		}
		switch response.StatusCode() {
		case
			http.StatusBadGateway,
			http.StatusServiceUnavailable,
			http.StatusGatewayTimeout:
			return true
		default:
			return false
		}
	})
	return c
}

// URL returns the server base URL.
func (c *Client) URL() string {
	return c.baseURL
}

// Ping checks GET /$/ping. Any failure or non-200 answer is reported as
// ErrUnavailable.
func (c *Client) Ping(ctx context.Context) error {
	resp, err := c.ping.R().SetContext(ctx).Get(c.baseURL + "/$/ping")
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	if resp.StatusCode() != http.StatusOK {
		return fmt.Errorf("%w: ping returned %d", ErrUnavailable, resp.StatusCode())
	}
	return nil
}

// Status reports StatusRunning when the server answers the ping and
// StatusStopped otherwise.
func (c *Client) Status(ctx context.Context) string {
	if err := c.Ping(ctx); err != nil {
		c.logger.Debug("fuseki ping failed", zap.Error(err))
		return StatusStopped
	}
	return StatusRunning
}

// Upload posts a Turtle document to the default graph of dataset. The dataset
// name is validated first and the server is pinged before the load.
func (c *Client) Upload(ctx context.Context, dataset, ttl string) error {
	if dataset == "" {
		dataset = DefaultDataset
	}
	if err := ValidateDatasetName(dataset); err != nil {
		return err
	}
	if err := c.Ping(ctx); err != nil {
		return err
	}

	endpoint := c.baseURL + "/" + url.PathEscape(dataset) + "/data"
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "text/turtle").
		SetBody([]byte(ttl)).
		Post(endpoint)
	if err != nil {
		if isTimeout(err) {
			return fmt.Errorf("%w: %w", ErrTimeout, err)
		}
		return fmt.Errorf("failed to load into fuseki: %w", err)
	}

	switch resp.StatusCode() {
	case http.StatusOK, http.StatusCreated, http.StatusNoContent:
		c.logger.Info("loaded turtle into fuseki",
			zap.String("dataset", dataset),
			zap.Int("bytes", len(ttl)),
			zap.Int("status", resp.StatusCode()))
		return nil
	default:
		return &StatusError{Code: resp.StatusCode(), Body: resp.String()}
	}
}

// ValidateDatasetName accepts names made of letters and digits, optionally
// joined by '_' or '-'. A name of only separators is rejected.
func ValidateDatasetName(name string) error {
	stripped := strings.NewReplacer("_", "", "-", "").Replace(name)
	if stripped == "" {
		return fmt.Errorf("%w: %q", ErrInvalidDataset, name)
	}
	for _, r := range stripped {
		if !unicode.IsLetter(r) && !unicode.IsNumber(r) {
			return fmt.Errorf("%w: %q", ErrInvalidDataset, name)
		}
	}
	return nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
