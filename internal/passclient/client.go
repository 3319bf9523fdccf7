// Package passclient talks to an EventHub server over HTTP.  Client doubles
// as a remote PassStore (the /internal routes) and as the API client used by
// passctl (the /student and /staff routes).
package passclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/iliyamo/eventhub/internal/model"
	"github.com/iliyamo/eventhub/internal/repository"
)

// InternalKeyHeader carries the shared key of the internal pass service.
const InternalKeyHeader = "X-Internal-Key"

// Client is an EventHub HTTP client.
type Client struct {
	baseURL     string
	token       string // session token for /student and /staff routes
	internalKey string // shared key for /internal routes
	httpClient  *http.Client
}

// Option customizes a Client.
type Option func(*Client)

// WithSessionToken authenticates public API calls with a bearer token.
func WithSessionToken(token string) Option { return func(c *Client) { c.token = token } }

// WithInternalKey authenticates internal pass service calls.
func WithInternalKey(key string) Option { return func(c *Client) { c.internalKey = key } }

// WithHTTPClient replaces the default 10s-timeout http.Client.
func WithHTTPClient(hc *http.Client) Option { return func(c *Client) { c.httpClient = hc } }

// New creates a client for the server at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// --- internal pass service (PassStore) ---

type livePassResp struct {
	PassKey string `json:"pass_key"`
	UserID  int64  `json:"user_id"`
	EventID int64  `json:"event_id"`
	Valid   bool   `json:"valid"`
}

type createPassReq struct {
	PassKey string `json:"passKey"`
	UserID  int64  `json:"user_id"`
	EventID int64  `json:"event_id"`
}

type verifyReq struct {
	Pass string `json:"pass"`
}

// FindLivePass asks the pass service for the live pass of a pair.  404 and
// 410 both mean "none".
func (c *Client) FindLivePass(ctx context.Context, userID, eventID int64) (model.Pass, bool, error) {
	if userID <= 0 || eventID <= 0 {
		return model.Pass{}, false, repository.ErrInvalidInput
	}
	params := url.Values{}
	params.Set("user_id", strconv.FormatInt(userID, 10))
	params.Set("event_id", strconv.FormatInt(eventID, 10))

	var out livePassResp
	err := c.doRequest(ctx, http.MethodGet, "/internal/getPasses?"+params.Encode(), nil, &out, true)
	if IsStatus(err, http.StatusNotFound) || IsStatus(err, http.StatusGone) {
		return model.Pass{}, false, nil
	}
	if err != nil {
		return model.Pass{}, false, fmt.Errorf("passclient.FindLivePass: %w", mapStatus(err))
	}
	if out.PassKey == "" || !out.Valid {
		return model.Pass{}, false, nil
	}
	return model.Pass{PassID: out.PassKey, UserID: out.UserID, EventID: out.EventID, Valid: true}, true, nil
}

// Insert registers a new pass with the pass service.
func (c *Client) Insert(ctx context.Context, passID string, userID, eventID int64) error {
	if strings.TrimSpace(passID) == "" || userID <= 0 || eventID <= 0 {
		return repository.ErrInvalidInput
	}
	body := createPassReq{PassKey: passID, UserID: userID, EventID: eventID}
	if err := c.doRequest(ctx, http.MethodPost, "/internal/passes", body, nil, true); err != nil {
		return fmt.Errorf("passclient.Insert: %w", mapStatus(err))
	}
	return nil
}

// Verify redeems passID through the pass service.
func (c *Client) Verify(ctx context.Context, passID string) (model.VerifyResult, error) {
	if strings.TrimSpace(passID) == "" {
		return model.VerifyResult{}, repository.ErrInvalidInput
	}
	var out model.VerifyResult
	if err := c.doRequest(ctx, http.MethodPost, "/internal/verify", verifyReq{Pass: passID}, &out, true); err != nil {
		return model.VerifyResult{}, fmt.Errorf("passclient.Verify: %w", mapStatus(err))
	}
	if !out.Valid {
		return model.VerifyResult{Valid: false}, nil
	}
	return out, nil
}

// Ping checks the server's readiness probe.
func (c *Client) Ping(ctx context.Context) error {
	return c.doRequest(ctx, http.MethodGet, "/readyz", nil, nil, false)
}

// mapStatus turns the statuses the pass service uses for known conditions
// into the store sentinels.  409 carries the conflict kind in its body.
func mapStatus(err error) error {
	switch {
	case IsStatus(err, http.StatusBadRequest):
		return fmt.Errorf("%w: %v", repository.ErrInvalidInput, err)
	case IsStatus(err, http.StatusConflict):
		if strings.Contains(err.Error(), repository.ErrDuplicatePass.Error()) {
			return repository.ErrDuplicatePass
		}
		return repository.ErrLivePassExists
	}
	return err
}

// --- public API ---

// IssueResult is the body of POST /student/issue-pass.
type IssueResult struct {
	PassID string `json:"passId"`
}

// IssuePass requests the caller's pass for eventID.
func (c *Client) IssuePass(ctx context.Context, eventID int64) (IssueResult, error) {
	var out IssueResult
	body := map[string]int64{"eventId": eventID}
	if err := c.doRequest(ctx, http.MethodPost, "/student/issue-pass", body, &out, false); err != nil {
		return IssueResult{}, fmt.Errorf("passclient.IssuePass: %w", err)
	}
	return out, nil
}

// RedeemPass submits a scanned token for verification.
func (c *Client) RedeemPass(ctx context.Context, token string) (model.VerifyResult, error) {
	var out model.VerifyResult
	if err := c.doRequest(ctx, http.MethodPost, "/staff/verify-pass", verifyReq{Pass: token}, &out, false); err != nil {
		return model.VerifyResult{}, fmt.Errorf("passclient.RedeemPass: %w", err)
	}
	return out, nil
}

func (c *Client) doRequest(ctx context.Context, method, path string, body any, out any, internal bool) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if internal && c.internalKey != "" {
		req.Header.Set(InternalKeyHeader, c.internalKey)
	}
	if !internal && c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck // best-effort close

	if resp.StatusCode >= 300 {
		respBody, readErr := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		if readErr != nil {
			return &HTTPError{StatusCode: resp.StatusCode, Message: fmt.Sprintf("failed to read body: %v", readErr)}
		}
		var apiErr struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(respBody, &apiErr) == nil && apiErr.Error != "" {
			return &HTTPError{StatusCode: resp.StatusCode, Message: apiErr.Error}
		}
		return &HTTPError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(respBody))}
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}
