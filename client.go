package sekura

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

const defaultRequestTimeout = 10 * time.Second

// RetryPolicy controls re-attempts for transport failures and 5xx answers.
// Auth rejections and other 4xx answers are never retried.
type RetryPolicy struct {
	MaxAttempts    int
	InitialBackoff time.Duration
}

// Client talks to the remote security-analysis API. It is safe for
// concurrent use; multiple feature screens share one instance.
type Client struct {
	baseURL    string
	httpClient *http.Client
	tokens     TokenSource
	userAgent  string
	retry      RetryPolicy
	logger     Logger
}

// NewClient builds a client from config. tokens may be nil for a client that
// only performs anonymous calls; pass the SessionManager to attach the
// session token to every request.
func NewClient(cfg Config, tokens TokenSource) *Client {
	timeout := cfg.GetRequestTimeout()
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.GetAPIURL(), "/"),
		httpClient: &http.Client{Timeout: timeout},
		tokens:     tokens,
		userAgent:  cfg.GetUserAgent(),
		retry:      RetryPolicy{MaxAttempts: 1},
		logger:     defaultLogger("client"),
	}
}

func (c *Client) WithLogger(logger Logger) *Client {
	if logger != nil {
		c.logger = logger
	}
	return c
}

// WithRetryPolicy enables bounded retries for transient failures.
func (c *Client) WithRetryPolicy(policy RetryPolicy) *Client {
	if policy.MaxAttempts > 0 {
		c.retry = policy
	}
	return c
}

// WithHTTPClient swaps the underlying transport (useful for tests).
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	if hc != nil {
		c.httpClient = hc
	}
	return c
}

// Login implements AuthService.
func (c *Client) Login(ctx context.Context, email, password string) (*AuthPayload, error) {
	body := map[string]string{"email": email, "password": password}
	var payload AuthPayload
	if err := c.post(ctx, "/auth/login", body, &payload, true); err != nil {
		return nil, err
	}
	return &payload, nil
}

// Register implements AuthService.
func (c *Client) Register(ctx context.Context, username, email, password string) (*AuthPayload, error) {
	body := map[string]string{"username": username, "email": email, "password": password}
	var payload AuthPayload
	if err := c.post(ctx, "/auth/register", body, &payload, true); err != nil {
		return nil, err
	}
	return &payload, nil
}

// ScanURL submits a site URL for threat analysis.
func (c *Client) ScanURL(ctx context.Context, rawURL string) (*URLScanResult, error) {
	var result URLScanResult
	if err := c.post(ctx, "/scan", map[string]string{"url": rawURL}, &result, false); err != nil {
		return nil, err
	}
	return &result, nil
}

// ScanQR submits a decoded QR payload for analysis.
func (c *Client) ScanQR(ctx context.Context, data string) (*QRScanResult, error) {
	var result QRScanResult
	if err := c.post(ctx, "/qr", map[string]string{"url": data}, &result, false); err != nil {
		return nil, err
	}
	return &result, nil
}

// ScanWiFi submits the current network posture for analysis.
func (c *Client) ScanWiFi(ctx context.Context, info WiFiNetworkInfo) (*WiFiScanResult, error) {
	var result WiFiScanResult
	if err := c.post(ctx, "/wifi-scan", info, &result, false); err != nil {
		return nil, err
	}
	return &result, nil
}

// CheckBreaches looks up known exposures for an email or username.
func (c *Client) CheckBreaches(ctx context.Context, query string) (*BreachReport, error) {
	var report BreachReport
	if err := c.post(ctx, "/breach/check", map[string]string{"query": query}, &report, false); err != nil {
		return nil, err
	}
	return &report, nil
}

// AnalyzeDevice scores the device posture.
func (c *Client) AnalyzeDevice(ctx context.Context, info DeviceInfo) (*DeviceSecurityReport, error) {
	var report DeviceSecurityReport
	if err := c.post(ctx, "/security/analyze", info, &report, false); err != nil {
		return nil, err
	}
	return &report, nil
}

// AnalyzeApp inspects one installed package by name.
func (c *Client) AnalyzeApp(ctx context.Context, packageName string) (*AppAnalysisReport, error) {
	var report AppAnalysisReport
	if err := c.post(ctx, "/analyze-apps", map[string]string{"packageName": packageName}, &report, false); err != nil {
		return nil, err
	}
	return &report, nil
}

// SystemStatus fetches the AI system analysis that seeds a chat session.
func (c *Client) SystemStatus(ctx context.Context) (*SystemAnalysis, error) {
	var analysis SystemAnalysis
	if err := c.do(ctx, http.MethodGet, "/ai/", nil, &analysis, false); err != nil {
		return nil, err
	}
	return &analysis, nil
}

// Chat sends one user message with the system analysis it refers to.
func (c *Client) Chat(ctx context.Context, analysis SystemAnalysis, message string) (*ChatReply, error) {
	body := map[string]any{"analysisData": analysis, "message": message}
	var reply ChatReply
	if err := c.post(ctx, "/ai/chat", body, &reply, false); err != nil {
		return nil, err
	}
	return &reply, nil
}

type validatable interface {
	Validate() error
}

func (c *Client) post(ctx context.Context, path string, body, out any, authEndpoint bool) error {
	return c.do(ctx, http.MethodPost, path, body, out, authEndpoint)
}

// do performs one call with bounded retries. Transport failures and 5xx
// responses retry with doubling backoff; everything else settles on the
// first attempt.
func (c *Client) do(ctx context.Context, method, path string, body, out any, authEndpoint bool) error {
	backoff := c.retry.InitialBackoff
	if backoff <= 0 {
		backoff = 250 * time.Millisecond
	}

	attempts := c.retry.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		err := c.once(ctx, method, path, body, out, authEndpoint)
		if err == nil {
			return nil
		}
		lastErr = err

		if !retryable(err) || attempt == attempts {
			return err
		}

		c.logger.Debug("retrying request", "path", path, "attempt", attempt, "error", err)
		select {
		case <-time.After(backoff):
			backoff *= 2
		case <-ctx.Done():
			return goerrors.Wrap(ctx.Err(), goerrors.CategoryOperation, "request cancelled during retry").
				WithTextCode(textCodeNetworkFailure)
		}
	}
	return lastErr
}

func (c *Client) once(ctx context.Context, method, path string, body, out any, authEndpoint bool) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to encode request body")
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to build request")
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	if c.tokens != nil {
		if token := c.tokens.Token(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	res, err := c.httpClient.Do(req)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryOperation, "network request failed").
			WithTextCode(textCodeNetworkFailure)
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(res.Body)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryOperation, "network request failed").
			WithTextCode(textCodeNetworkFailure)
	}

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return c.statusError(path, res.StatusCode, raw, authEndpoint)
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryOperation, "malformed server response").
			WithTextCode(textCodeMalformedResponse)
	}
	if v, ok := out.(validatable); ok {
		if err := v.Validate(); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryOperation, "malformed server response").
				WithTextCode(textCodeMalformedResponse)
		}
	}
	return nil
}

// statusError maps a non-2xx answer to the taxonomy, preferring the server's
// own message when the body carries one.
func (c *Client) statusError(path string, status int, raw []byte, authEndpoint bool) error {
	message := serverMessage(raw)

	if authEndpoint && (status == http.StatusUnauthorized || status == http.StatusBadRequest ||
		status == http.StatusForbidden || status == http.StatusNotFound) {
		if message == "" {
			message = "invalid credentials"
		}
		return goerrors.New(message, goerrors.CategoryAuth).
			WithTextCode(textCodeInvalidCredentials).
			WithCode(goerrors.CodeUnauthorized)
	}

	if message == "" {
		message = fmt.Sprintf("request to %s failed with status %d", path, status)
	}
	category := goerrors.CategoryOperation
	textCode := textCodeMalformedResponse
	if status >= 500 {
		textCode = textCodeServerError
	}
	return goerrors.New(message, category).WithTextCode(textCode)
}

func serverMessage(raw []byte) string {
	var body struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return ""
	}
	if body.Message != "" {
		return body.Message
	}
	return body.Error
}

// retryable reports whether an error came from transport or a 5xx answer.
func retryable(err error) bool {
	return hasTextCode(err, textCodeNetworkFailure) || hasTextCode(err, textCodeServerError)
}
