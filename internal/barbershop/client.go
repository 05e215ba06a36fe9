package barbershop

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"barberq/internal/config"
	"barberq/internal/logging"
	"barberq/internal/queue"
)

const (
	defaultTimeout   = 10 * time.Second
	maxErrorBodySize = 4 << 10
	requestIDHeader  = "X-Request-ID"
)

// HTTPDoer is satisfied by *http.Client.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Option customises Client construction.
type Option func(*Client)

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(doer HTTPDoer) Option {
	return func(c *Client) {
		c.http = doer
	}
}

// WithLogger sets the request logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithTokens sets staff credentials, overriding the config.
func WithTokens(token, refreshToken string) Option {
	return func(c *Client) {
		c.token = strings.TrimSpace(token)
		c.refreshToken = strings.TrimSpace(refreshToken)
	}
}

// Client talks to one barbershop backend.
type Client struct {
	base   *url.URL
	http   HTTPDoer
	logger *slog.Logger

	tokenMu      sync.Mutex
	token        string
	refreshToken string
}

// New builds a client for baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return nil, errors.New("barbershop: base url is required")
	}
	if !strings.Contains(baseURL, "://") {
		baseURL = "http://" + baseURL
	}
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("barbershop: parse base url: %w", err)
	}
	base.Path = strings.TrimRight(base.Path, "/")
	base.RawQuery = ""
	base.Fragment = ""

	c := &Client{
		base: base,
		http: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.http == nil {
		c.http = &http.Client{Timeout: defaultTimeout}
	}
	c.logger = logging.NewComponentLogger(c.logger, "barbershop")
	return c, nil
}

// NewFromConfig builds a client from the [api] section.
func NewFromConfig(cfg *config.Config, logger *slog.Logger) (*Client, error) {
	if cfg == nil {
		return nil, errors.New("barbershop: config is nil")
	}
	timeout := cfg.APITimeout()
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return New(cfg.API.BaseURL,
		WithHTTPClient(&http.Client{Timeout: timeout}),
		WithLogger(logger),
		WithTokens(cfg.API.Token, cfg.API.RefreshToken),
	)
}

// Queue returns one barber's queue in serving order.
func (c *Client) Queue(ctx context.Context, barber string) ([]QueueEntry, error) {
	barber = strings.TrimSpace(barber)
	if barber == "" {
		return nil, errors.New("barbershop: barber is required")
	}
	var payload queueResponse
	path := "/public/barber-queue/" + url.PathEscape(barber)
	if err := c.do(ctx, http.MethodGet, path, nil, nil, false, &payload); err != nil {
		return nil, err
	}
	return payload.Queue, nil
}

// QueueSnapshot returns one barber's queue as a snapshot.
func (c *Client) QueueSnapshot(ctx context.Context, barber string) (queue.Snapshot, error) {
	entries, err := c.Queue(ctx, barber)
	if err != nil {
		return queue.Snapshot{}, err
	}
	return Snapshot(entries), nil
}

// Join adds name to barber's queue.
func (c *Client) Join(ctx context.Context, name, barber string) (Ticket, error) {
	var ticket Ticket
	body := joinRequest{Name: strings.TrimSpace(name), Barber: strings.TrimSpace(barber)}
	if err := c.do(ctx, http.MethodPost, "/public/join-queue", nil, body, false, &ticket); err != nil {
		return Ticket{}, err
	}
	if ticket.ClientID == "" {
		return Ticket{}, errors.New("barbershop: join response is missing clientId")
	}
	return ticket, nil
}

// Leave removes a client from whatever queue holds it.
func (c *Client) Leave(ctx context.Context, clientID string) error {
	return c.do(ctx, http.MethodPost, "/public/leave-queue", nil, clientRequest{ClientID: ClientID(clientID)}, false, nil)
}

// Position looks up a client. A client the backend no longer knows is reported
// with Found false, not as an error.
func (c *Client) Position(ctx context.Context, clientID string) (Position, error) {
	query := url.Values{}
	query.Set("clientId", clientID)
	var pos Position
	if err := c.do(ctx, http.MethodGet, "/public/position", query, nil, false, &pos); err != nil {
		return Position{}, err
	}
	return pos, nil
}

// Queues returns every barber's queue keyed by barber id. Staff only.
func (c *Client) Queues(ctx context.Context) (map[string][]QueueEntry, error) {
	payload := map[string][]QueueEntry{}
	if err := c.do(ctx, http.MethodGet, "/barber/queues", nil, nil, true, &payload); err != nil {
		return nil, err
	}
	return payload, nil
}

// Serve marks a client as served. Staff only.
func (c *Client) Serve(ctx context.Context, clientID string) error {
	return c.do(ctx, http.MethodPost, "/barber/serve-client", nil, clientRequest{ClientID: ClientID(clientID)}, true, nil)
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body any, auth bool, out any) error {
	var payload []byte
	if body != nil {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			return fmt.Errorf("encode %s request: %w", path, err)
		}
	}

	requestID, ok := logging.RequestIDFromContext(ctx)
	if !ok {
		requestID = uuid.NewString()
	}

	token := ""
	if auth {
		var err error
		if token, err = c.currentToken(); err != nil {
			return err
		}
	}

	resp, err := c.send(ctx, method, path, query, payload, token, requestID)
	if err != nil {
		return err
	}
	if auth && resp.StatusCode == http.StatusUnauthorized && c.canRefresh() {
		drainAndClose(resp)
		fresh, refreshErr := c.refresh(ctx, token, requestID)
		if refreshErr != nil {
			return refreshErr
		}
		if resp, err = c.send(ctx, method, path, query, payload, fresh, requestID); err != nil {
			return err
		}
	}
	defer drainAndClose(resp)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return statusError(method, path, resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}

func (c *Client) send(ctx context.Context, method, path string, query url.Values, payload []byte, token, requestID string) (*http.Response, error) {
	endpoint := c.base.JoinPath(path)
	if len(query) > 0 {
		endpoint.RawQuery = query.Encode()
	}

	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint.String(), body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set(requestIDHeader, requestID)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Debug("request failed",
			logging.String("method", method),
			logging.String("path", path),
			logging.String(logging.FieldCorrelationID, requestID),
			logging.Error(err),
		)
		if IsUnavailable(err) {
			return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
		}
		return nil, err
	}
	c.logger.Debug("request completed",
		logging.String("method", method),
		logging.String("path", path),
		logging.Int("status", resp.StatusCode),
		logging.Duration("duration", time.Since(start)),
		logging.String(logging.FieldCorrelationID, requestID),
	)
	return resp, nil
}

func (c *Client) currentToken() (string, error) {
	c.tokenMu.Lock()
	defer c.tokenMu.Unlock()
	if c.token == "" && c.refreshToken == "" {
		return "", fmt.Errorf("%w: no staff token configured (set api.token or BARBERQ_TOKEN)", ErrUnauthorized)
	}
	return c.token, nil
}

func (c *Client) canRefresh() bool {
	c.tokenMu.Lock()
	defer c.tokenMu.Unlock()
	return c.refreshToken != ""
}

// refresh exchanges the refresh token for a new access token. When another
// caller already replaced stale, the newer token is returned without a round trip.
func (c *Client) refresh(ctx context.Context, stale, requestID string) (string, error) {
	c.tokenMu.Lock()
	defer c.tokenMu.Unlock()

	if c.token != "" && c.token != stale {
		return c.token, nil
	}

	payload, err := json.Marshal(refreshRequest{RefreshToken: c.refreshToken})
	if err != nil {
		return "", err
	}
	resp, err := c.send(ctx, http.MethodPost, "/auth/refresh", nil, payload, "", requestID)
	if err != nil {
		return "", err
	}
	defer drainAndClose(resp)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("%w: refresh failed: %w", ErrUnauthorized, statusError(http.MethodPost, "/auth/refresh", resp))
	}
	var out refreshResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode refresh response: %w", err)
	}
	if strings.TrimSpace(out.Token) == "" {
		return "", fmt.Errorf("%w: refresh returned an empty token", ErrUnauthorized)
	}
	c.token = strings.TrimSpace(out.Token)
	c.logger.Info("staff token refreshed", logging.String(logging.FieldCorrelationID, requestID))
	return c.token, nil
}

func statusError(method, path string, resp *http.Response) error {
	statusErr := &StatusError{Method: method, Path: path, Code: resp.StatusCode}
	data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
	var body errorResponse
	if len(data) > 0 && json.Unmarshal(data, &body) == nil {
		statusErr.Message = strings.TrimSpace(body.Error)
		if statusErr.Message == "" {
			statusErr.Message = strings.TrimSpace(body.Message)
		}
	}
	if statusErr.Message == "" {
		statusErr.Message = strings.TrimSpace(string(data))
	}
	return statusErr
}

func drainAndClose(resp *http.Response) {
	if resp == nil || resp.Body == nil {
		return
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBodySize))
	_ = resp.Body.Close()
}
