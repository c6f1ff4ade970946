package petrovisor

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/net/http2"
	"golang.org/x/sync/singleflight"
)

// DefaultRoute is the path prefix of every web API request.
const DefaultRoute = "PetroVisor/API/"

// Defaults applied by New.
const (
	DefaultTimeout      = 59 * time.Minute
	DefaultRetryDelay   = 5 * time.Second
	DefaultMaxAttempts  = 3
	DefaultPollInterval = 3 * time.Second
	DefaultPollTimeout  = 2 * time.Minute
)

// Client is a workspace-bound client for the PetroVisor web API.
// It is safe for concurrent use.
type Client struct {
	api           string
	workspace     string
	route         string
	discoveryURL  string
	tokenEndpoint string
	key           string

	httpClient   *http.Client
	logger       *slog.Logger
	errors       ErrorPolicy
	retryDelay   time.Duration
	maxAttempts  int
	pollInterval time.Duration
	pollTimeout  time.Duration
	metrics      *clientMetrics
	tracer       trace.Tracer

	mu           sync.RWMutex
	token        string
	refreshToken string
	expiry       time.Time
	refreshes    singleflight.Group
}

// Option configures the Client during construction.
type Option func(*clientConfig) error

type clientConfig struct {
	api           string
	discoveryURL  string
	tokenEndpoint string
	token         string
	refreshToken  string
	key           string
	username      string
	password      string
	route         string
	errors        ErrorPolicy
	httpClient    *http.Client
	http2         bool
	timeout       time.Duration
	logger        *slog.Logger
	retryDelay    time.Duration
	retryDelaySet bool
	maxAttempts   int
	pollInterval  time.Duration
	pollTimeout   time.Duration
	registerer    prometheus.Registerer
	tracer        trace.TracerProvider
}

// New creates a Client for the given workspace.
//
// With both an API endpoint and a token no identity service is contacted.
// Otherwise a discovery URL is required; the API endpoint defaults to the
// one it advertises and a token is acquired from the key or from the
// username and password.
func New(ctx context.Context, workspace string, opts ...Option) (*Client, error) {
	cfg := &clientConfig{
		route:       DefaultRoute,
		errors:      ErrorsCoerce,
		maxAttempts: DefaultMaxAttempts,
	}
	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}

	httpClient := cfg.httpClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultTimeout}
		if cfg.http2 {
			tr := http.DefaultTransport.(*http.Transport).Clone()
			if err := http2.ConfigureTransport(tr); err != nil {
				return nil, fmt.Errorf("petrovisor: configure http2: %w", err)
			}
			httpClient.Transport = tr
		}
	}
	if cfg.timeout > 0 {
		httpClient.Timeout = cfg.timeout
	}

	logger := cfg.logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	tp := cfg.tracer
	if tp == nil {
		tp = otel.GetTracerProvider()
	}

	c := &Client{
		api:           cfg.api,
		workspace:     workspace,
		route:         cfg.route,
		discoveryURL:  cfg.discoveryURL,
		tokenEndpoint: cfg.tokenEndpoint,
		httpClient:    httpClient,
		logger:        logger,
		errors:        cfg.errors,
		retryDelay:    DefaultRetryDelay,
		maxAttempts:   max(1, cfg.maxAttempts),
		pollInterval:  DefaultPollInterval,
		pollTimeout:   DefaultPollTimeout,
		tracer:        tp.Tracer(instrumentationName),
		token:         cfg.token,
		refreshToken:  cfg.refreshToken,
	}
	if cfg.retryDelaySet {
		c.retryDelay = cfg.retryDelay
	}
	if cfg.pollInterval > 0 {
		c.pollInterval = cfg.pollInterval
	}
	if cfg.pollTimeout > 0 {
		c.pollTimeout = cfg.pollTimeout
	}
	if cfg.registerer != nil {
		m, err := newClientMetrics(cfg.registerer)
		if err != nil {
			return nil, err
		}
		c.metrics = m
	}

	if cfg.api != "" && cfg.token != "" {
		c.expiry = tokenExpiry(cfg.token)
		return c, nil
	}

	if cfg.discoveryURL == "" {
		return nil, fmt.Errorf("%w, use one of: %s", ErrNoDiscoveryURL, strings.Join(KnownDiscoveryURLs(), ", "))
	}
	if c.api == "" || (cfg.token == "" && c.tokenEndpoint == "") {
		doc, err := DiscoveryDocument(ctx, httpClient, cfg.discoveryURL)
		if err != nil {
			return nil, err
		}
		if c.api == "" {
			c.api = doc.WebAPIEndpoint
		}
		if c.tokenEndpoint == "" {
			c.tokenEndpoint = doc.TokenEndpoint
		}
	}
	if c.api == "" {
		return nil, fmt.Errorf("petrovisor: discovery document at %s advertises no web api endpoint", cfg.discoveryURL)
	}

	if cfg.token != "" {
		c.expiry = tokenExpiry(cfg.token)
		return c, nil
	}
	c.key = cfg.key
	if c.key == "" {
		c.key = EncodeKey(cfg.username, cfg.password)
	}
	if c.key == "" {
		if cfg.refreshToken != "" {
			if err := c.Refresh(ctx); err != nil {
				return nil, err
			}
			return c, nil
		}
		return nil, ErrNoCredentials
	}
	if err := c.Refresh(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

// Workspace returns the workspace every request is scoped to.
func (c *Client) Workspace() string { return c.workspace }

// API returns the web API endpoint.
func (c *Client) API() string { return c.api }

// Key returns the credentials key, if the client was built from credentials.
func (c *Client) Key() string { return c.key }

// Token returns the current access token.
func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// WithAPI sets the web API endpoint.
func WithAPI(api string) Option {
	return func(cfg *clientConfig) error {
		cfg.api = api
		return nil
	}
}

// WithDiscoveryURL sets the identity service used to find the token and
// web API endpoints.
func WithDiscoveryURL(u string) Option {
	return func(cfg *clientConfig) error {
		cfg.discoveryURL = u
		return nil
	}
}

// WithTokenEndpoint skips token endpoint discovery.
func WithTokenEndpoint(u string) Option {
	return func(cfg *clientConfig) error {
		cfg.tokenEndpoint = u
		return nil
	}
}

// WithToken uses an existing access token.
func WithToken(token string) Option {
	return func(cfg *clientConfig) error {
		cfg.token = token
		return nil
	}
}

// WithRefreshToken sets the refresh token used when no key is available.
func WithRefreshToken(token string) Option {
	return func(cfg *clientConfig) error {
		cfg.refreshToken = token
		return nil
	}
}

// WithKey authenticates with a credentials key generated by EncodeKey.
func WithKey(key string) Option {
	return func(cfg *clientConfig) error {
		cfg.key = key
		return nil
	}
}

// WithCredentials authenticates with a username and password.
func WithCredentials(username, password string) Option {
	return func(cfg *clientConfig) error {
		if username == "" || password == "" {
			return fmt.Errorf("petrovisor: username and password must both be set")
		}
		cfg.username = username
		cfg.password = password
		return nil
	}
}

// WithRoute overrides the request path prefix.
func WithRoute(route string) Option {
	return func(cfg *clientConfig) error {
		if route != "" && !strings.HasSuffix(route, "/") {
			route += "/"
		}
		cfg.route = route
		return nil
	}
}

// WithErrorPolicy sets the default handling of error responses.
func WithErrorPolicy(p ErrorPolicy) Option {
	return func(cfg *clientConfig) error {
		if p == ErrorsDefault {
			p = ErrorsCoerce
		}
		cfg.errors = p
		return nil
	}
}

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(cfg *clientConfig) error {
		cfg.httpClient = c
		return nil
	}
}

// WithHTTP2 configures the default transport for HTTP/2.
func WithHTTP2() Option {
	return func(cfg *clientConfig) error {
		cfg.http2 = true
		return nil
	}
}

// WithTimeout sets a timeout on the HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(cfg *clientConfig) error {
		cfg.timeout = d
		return nil
	}
}

// WithLogger configures structured logging.
func WithLogger(l *slog.Logger) Option {
	return func(cfg *clientConfig) error {
		cfg.logger = l
		return nil
	}
}

// WithRetryDelay sets the fixed delay between attempts after a 400 or 404.
func WithRetryDelay(d time.Duration) Option {
	return func(cfg *clientConfig) error {
		if d < 0 {
			return fmt.Errorf("petrovisor: negative retry delay %s", d)
		}
		cfg.retryDelay = d
		cfg.retryDelaySet = true
		return nil
	}
}

// WithMaxAttempts sets the total number of attempts for a 400 or 404.
func WithMaxAttempts(n int) Option {
	return func(cfg *clientConfig) error {
		cfg.maxAttempts = n
		return nil
	}
}

// WithPollInterval sets the interval of existence polling.
func WithPollInterval(d time.Duration) Option {
	return func(cfg *clientConfig) error {
		cfg.pollInterval = d
		return nil
	}
}

// WithPollTimeout bounds existence polling.
func WithPollTimeout(d time.Duration) Option {
	return func(cfg *clientConfig) error {
		cfg.pollTimeout = d
		return nil
	}
}

// WithMetrics registers request metrics with reg.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(cfg *clientConfig) error {
		cfg.registerer = reg
		return nil
	}
}

// WithTracerProvider records one span per API call.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(cfg *clientConfig) error {
		cfg.tracer = tp
		return nil
	}
}
