package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

const (
	authPath        = "/auth"
	authTokenHeader = "authToken"
	userAgent       = "amee-go/0.1"

	// defaultTokenLifetime applies when /auth does not state an expiry.
	defaultTokenLifetime = 30 * time.Minute

	// maxResponseSize bounds how much of a response body is read.
	maxResponseSize = 10 << 20

	// maxDebugBody bounds how much of a body is echoed in debug logs.
	maxDebugBody = 512
)

// expiryLayouts are the timestamp forms accepted for a token's expiry.
var expiryLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05-0700",
}

// Options configures a Client. BaseURL is required.
type Options struct {
	BaseURL     string // scheme://host:port for data requests
	AuthURL     string // scheme://host:port for POST /auth; defaults to BaseURL
	APIKey      string
	APIPassword string

	HTTPClient *http.Client
	Logger     *slog.Logger
	UserAgent  string

	// RequestsPerSecond paces outgoing calls, authentication included.
	// Zero disables pacing.
	RequestsPerSecond float64

	// Debug logs request parameters and response bodies at debug level.
	// Passwords and tokens are never logged.
	Debug bool

	Metrics *Metrics
	Routes  *Routes // defaults to DefaultRoutes()
}

// Client sends validated, authenticated requests to the AMEE API and
// returns decoded JSON. A Client is not designed for concurrent use: its
// session token is shared mutable state.
type Client struct {
	baseURL     string
	authURL     string
	apiKey      string
	apiPassword string
	httpClient  *http.Client
	logger      *slog.Logger
	userAgent   string
	debug       bool
	limiter     *rate.Limiter
	metrics     *Metrics
	routes      *Routes
	session     *Session

	// nowFunc stamps the default expiry of issued tokens.
	nowFunc func() time.Time
}

// NewClient creates a Client from opts.
func NewClient(opts Options) *Client {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	routes := opts.Routes
	if routes == nil {
		routes = DefaultRoutes()
	}

	authURL := opts.AuthURL
	if authURL == "" {
		authURL = opts.BaseURL
	}

	ua := opts.UserAgent
	if ua == "" {
		ua = userAgent
	}

	c := &Client{
		baseURL:     strings.TrimRight(opts.BaseURL, "/"),
		authURL:     strings.TrimRight(authURL, "/"),
		apiKey:      opts.APIKey,
		apiPassword: opts.APIPassword,
		httpClient:  httpClient,
		logger:      logger,
		userAgent:   ua,
		debug:       opts.Debug,
		metrics:     opts.Metrics,
		routes:      routes,
		nowFunc:     time.Now,
	}

	if opts.RequestsPerSecond > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1)
	}

	c.session = NewSession(AuthenticatorFunc(c.Authenticate), logger)

	return c
}

// Session returns the client's session manager.
func (c *Client) Session() *Session {
	return c.session
}

// Send validates path for verb, makes sure the session is connected, sends
// the request and decodes the JSON response. params travel as a form body
// for POST and PUT, as the query string for GET, and are dropped for DELETE.
//
// A request rejected with 401 causes exactly one re-authentication and one
// retry; a second rejection is returned as *AuthError. An empty 2xx body
// decodes to JSON null.
func (c *Client) Send(ctx context.Context, verb, path string, params url.Values) (json.RawMessage, error) {
	if err := c.routes.Validate(path, verb); err != nil {
		return nil, err
	}

	if path == authPath {
		resp, err := c.doOnce(ctx, c.authURL, verb, path, params, "")
		if err != nil {
			return nil, err
		}

		if isAuthRejection(resp.StatusCode) {
			return nil, authRejected(resp)
		}

		return c.decode(verb, path, resp)
	}

	token, err := c.session.EnsureConnected(ctx)
	if err != nil {
		return nil, err
	}

	resp, err := c.doOnce(ctx, c.baseURL, verb, path, params, token)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode == http.StatusUnauthorized {
		drainAndClose(resp)

		c.metrics.observeReauth()
		c.logger.Warn("session token rejected, re-authenticating",
			slog.String("verb", verb),
			slog.String("path", path),
		)

		c.session.Invalidate()

		token, err = c.session.EnsureConnected(ctx)
		if err != nil {
			return nil, err
		}

		resp, err = c.doOnce(ctx, c.baseURL, verb, path, params, token)
		if err != nil {
			return nil, err
		}

		if resp.StatusCode == http.StatusUnauthorized {
			c.session.Invalidate()
			c.logger.Error("request rejected after re-authentication",
				slog.String("verb", verb),
				slog.String("path", path),
			)

			return nil, authRejected(resp)
		}
	}

	return c.decode(verb, path, resp)
}

// Authenticate posts the configured credentials to /auth and returns the
// issued token. It is the Authenticator behind the client's Session.
func (c *Client) Authenticate(ctx context.Context) (*oauth2.Token, error) {
	if c.apiKey == "" || c.apiPassword == "" {
		c.metrics.observeAuth(false)
		return nil, &AuthError{Message: "api key and password must be configured"}
	}

	form := url.Values{}
	form.Set("username", c.apiKey)
	form.Set("password", c.apiPassword)

	resp, err := c.doOnce(ctx, c.authURL, http.MethodPost, authPath, form, "")
	if err != nil {
		c.metrics.observeAuth(false)
		return nil, err
	}

	if isAuthRejection(resp.StatusCode) {
		c.metrics.observeAuth(false)
		return nil, authRejected(resp)
	}

	header := resp.Header.Get(authTokenHeader)

	raw, err := c.decode(http.MethodPost, authPath, resp)
	if err != nil {
		c.metrics.observeAuth(false)
		return nil, err
	}

	tok, err := c.parseAuth(header, raw)
	if err != nil {
		c.metrics.observeAuth(false)
		return nil, err
	}

	c.metrics.observeAuth(true)

	return tok, nil
}

// authResponse mirrors the JSON body of POST /auth.
type authResponse struct {
	Auth struct {
		Token   string `json:"token"`
		Expires string `json:"expires"`
	} `json:"auth"`
}

// parseAuth builds a token from the authToken header, falling back to the
// JSON body. A missing or unparsable expiry yields defaultTokenLifetime.
func (c *Client) parseAuth(header string, raw json.RawMessage) (*oauth2.Token, error) {
	var ar authResponse
	if !bytes.Equal(raw, []byte("null")) {
		if err := json.Unmarshal(raw, &ar); err != nil {
			c.logger.Debug("auth body has no token object", slog.String("error", err.Error()))
		}
	}

	token := header
	if token == "" {
		token = ar.Auth.Token
	}

	if token == "" {
		return nil, &AuthError{StatusCode: http.StatusOK, Message: "no token in authentication response"}
	}

	expiry := c.nowFunc().Add(defaultTokenLifetime)

	if ar.Auth.Expires != "" {
		if t, ok := parseExpiry(ar.Auth.Expires); ok {
			expiry = t
		} else {
			c.logger.Warn("unparsable token expiry, using default lifetime",
				slog.String("raw", ar.Auth.Expires),
				slog.Duration("lifetime", defaultTokenLifetime),
			)
		}
	}

	return &oauth2.Token{AccessToken: token, Expiry: expiry}, nil
}

func parseExpiry(raw string) (time.Time, bool) {
	for _, layout := range expiryLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, true
		}
	}

	return time.Time{}, false
}

// doOnce sends a single HTTP request. Transport failures are returned as
// *RequestError; the response is returned for every status code.
func (c *Client) doOnce(
	ctx context.Context,
	base, verb, path string,
	params url.Values,
	token string,
) (*http.Response, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, &RequestError{Verb: verb, Path: path, Message: "rate limiter: " + err.Error(), Err: err}
		}
	}

	target := base + path

	var body io.Reader

	encoded := params.Encode()

	switch verb {
	case http.MethodPost, http.MethodPut:
		body = strings.NewReader(encoded)
	case http.MethodGet:
		if encoded != "" {
			target += "?" + encoded
		}
	}

	req, err := http.NewRequestWithContext(ctx, verb, target, body)
	if err != nil {
		return nil, &RequestError{Verb: verb, Path: path, Message: "creating request: " + err.Error(), Err: err}
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	if body != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	if token != "" {
		req.Header.Set(authTokenHeader, token)
	}

	if c.debug && path != authPath {
		c.logger.Debug("sending request",
			slog.String("verb", verb),
			slog.String("path", path),
			slog.String("params", encoded),
		)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.metrics.observeRequest(verb, 0)

		if ctx.Err() != nil {
			return nil, &RequestError{Verb: verb, Path: path, Message: "request canceled", Err: ctx.Err()}
		}

		return nil, &RequestError{Verb: verb, Path: path, Message: err.Error(), Err: err}
	}

	c.metrics.observeRequest(verb, resp.StatusCode)

	return resp, nil
}

// decode reads and closes the response body. Non-2xx statuses and bodies
// that are not JSON become *RequestError.
func (c *Client) decode(verb, path string, resp *http.Response) (json.RawMessage, error) {
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, &RequestError{
			Verb: verb, Path: path, StatusCode: resp.StatusCode,
			Message: "reading response body: " + err.Error(), Err: err,
		}
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		c.logger.Error("request failed",
			slog.String("verb", verb),
			slog.String("path", path),
			slog.Int("status", resp.StatusCode),
		)

		return nil, &RequestError{
			Verb: verb, Path: path, StatusCode: resp.StatusCode,
			Message: string(body), Err: classifyStatus(resp.StatusCode),
		}
	}

	c.logger.Debug("request succeeded",
		slog.String("verb", verb),
		slog.String("path", path),
		slog.Int("status", resp.StatusCode),
	)

	if c.debug && path != authPath {
		c.logger.Debug("response body", slog.String("body", truncate(body, maxDebugBody)))
	}

	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return json.RawMessage("null"), nil
	}

	if !json.Valid(trimmed) {
		return nil, &RequestError{
			Verb: verb, Path: path,
			Message: "response body is not valid JSON: " + truncate(trimmed, maxDebugBody),
		}
	}

	return json.RawMessage(trimmed), nil
}

// Decode unmarshals a response returned by Send into v.
func Decode(raw json.RawMessage, v any) error {
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("%w: decoding response: %w", ErrRequest, err)
	}

	return nil
}

func isAuthRejection(code int) bool {
	return code == http.StatusUnauthorized || code == http.StatusForbidden
}

// authRejected consumes resp and reports it as an authentication failure.
func authRejected(resp *http.Response) error {
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxDebugBody))
	if err != nil {
		body = []byte("(failed to read response body)")
	}

	return &AuthError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(body))}
}

// drainAndClose discards the rest of the body so the connection can be reused.
func drainAndClose(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseSize))
	resp.Body.Close()
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}

	return string(b[:n]) + "..."
}

