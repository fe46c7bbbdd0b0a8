// Package api implements the OpenHands Cloud HTTP API client.
//
// Two hosts are involved: the main service (base URL) and, for
// workspace-scoped operations, a per-conversation runtime host derived from
// the conversation URL. Runtime calls authenticate with the conversation's
// session API key when present and fall back to a bearer token built from
// the account key otherwise.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/joss/ohc/internal/logging"
)

// DefaultBaseURL is the hosted OpenHands Cloud API endpoint.
const DefaultBaseURL = "https://app.all-hands.dev/api/"

const headerSessionKey = "X-Session-API-Key"

// Per-endpoint timeouts: short for connectivity checks, longer for
// listings, longest for file and archive transfer.
const (
	connectTimeout  = 5 * time.Second
	listTimeout     = 30 * time.Second
	transferTimeout = 120 * time.Second
)

// HTTPClient interface for HTTP requests (enables testing)
type HTTPClient interface {
	Do(*http.Request) (*http.Response, error)
}

// Verify http.Client implements HTTPClient
var _ HTTPClient = (*http.Client)(nil)

// Client is an authenticated API client bound to one server profile.
type Client struct {
	apiKey  string
	baseURL string
	httpc   HTTPClient
	log     zerolog.Logger
}

// New creates a client for the given API key and base URL.
// An empty baseURL selects the hosted service.
func New(apiKey, baseURL string) *Client {
	return NewWithClient(apiKey, baseURL, &http.Client{})
}

// NewWithClient creates a client with an injected HTTP client.
func NewWithClient(apiKey, baseURL string, httpc HTTPClient) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/") + "/",
		httpc:   httpc,
		log:     logging.Component("api"),
	}
}

// BaseURL returns the normalized base endpoint the client targets.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// do executes a request and returns the status code and full body.
// The account key rides on every request as the session header; per-call
// headers override it for runtime hosts.
func (c *Client) do(ctx context.Context, timeout time.Duration, method, rawURL string, params url.Values, headers http.Header, body []byte) (int, []byte, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var rdr io.Reader
	if body != nil {
		rdr = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, rawURL, rdr)
	if err != nil {
		return 0, nil, err
	}
	if params != nil {
		req.URL.RawQuery = params.Encode()
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(headerSessionKey, c.apiKey)
	for k, vs := range headers {
		req.Header[k] = vs
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, err
	}

	c.log.Debug().
		Str("method", method).
		Str("url", req.URL.String()).
		Int("status", resp.StatusCode).
		Int("bytes", len(data)).
		Msg("request")

	return resp.StatusCode, data, nil
}

// runtimeAuth builds auth headers for a runtime host: session key when
// available, bearer fallback from the account key otherwise.
func (c *Client) runtimeAuth(sessionKey string) http.Header {
	h := http.Header{}
	if sessionKey != "" {
		h.Set(headerSessionKey, sessionKey)
	} else {
		h.Set("Authorization", "Bearer "+c.apiKey)
	}
	return h
}

// runtimeEndpoint builds the URL and headers for a workspace-scoped
// operation. Without a runtime URL it falls back to the main host, which is
// not expected to support these operations.
func (c *Client) runtimeEndpoint(runtimeURL, conversationID, op, sessionKey string) (string, http.Header) {
	if runtimeURL != "" {
		u := strings.TrimRight(runtimeURL, "/") + "/api/conversations/" + conversationID + "/" + op
		return u, c.runtimeAuth(sessionKey)
	}
	return c.baseURL + "conversations/" + conversationID + "/" + op, nil
}

// TestConnection reports whether the API key and URL are usable.
// Never returns an error: any failure reads as false.
func (c *Client) TestConnection(ctx context.Context) bool {
	status, _, err := c.do(ctx, connectTimeout, http.MethodGet, c.baseURL+"options/models", nil, nil, nil)
	return err == nil && status == http.StatusOK
}

// SearchConversations fetches one page of the conversation listing.
// A 401 is translated into ErrInsufficientPermission since it almost always
// means a session-scoped key was used where a full key is needed; other
// HTTP failures stay untranslated.
func (c *Client) SearchConversations(ctx context.Context, pageID string, limit int) (*SearchResult, error) {
	params := url.Values{}
	params.Set("limit", fmt.Sprintf("%d", limit))
	if pageID != "" {
		params.Set("page_id", pageID)
	}

	status, body, err := c.do(ctx, listTimeout, http.MethodGet, c.baseURL+"conversations", params, nil, nil)
	if err != nil {
		return nil, err
	}
	if status == http.StatusUnauthorized {
		return nil, ErrInsufficientPermission
	}
	if status < 200 || status >= 300 {
		return nil, &StatusError{Op: "search conversations", Status: status}
	}

	var result SearchResult
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("decode conversation listing: %w", err)
	}
	return &result, nil
}

// GetConversation fetches conversation detail by ID.
// The service answers a literal null body for unknown IDs.
func (c *Client) GetConversation(ctx context.Context, conversationID string) (*Conversation, error) {
	status, body, err := c.do(ctx, listTimeout, http.MethodGet, c.baseURL+"conversations/"+conversationID, nil, nil, nil)
	if err != nil {
		return nil, err
	}
	if status < 200 || status >= 300 {
		return nil, &StatusError{Op: "get conversation", Status: status}
	}
	if bytes.Equal(bytes.TrimSpace(body), []byte("null")) {
		return nil, NewNotFoundError("conversation", conversationID)
	}

	var conv Conversation
	if err := json.Unmarshal(body, &conv); err != nil {
		return nil, fmt.Errorf("decode conversation: %w", err)
	}
	return &conv, nil
}

// StartConversation wakes a conversation. Any non-200 answer is wrapped
// into an ActionFailedError carrying status and body.
func (c *Client) StartConversation(ctx context.Context, conversationID string, providers []string) (*StartResult, error) {
	if len(providers) == 0 {
		providers = []string{"github"}
	}
	payload, err := json.Marshal(map[string][]string{"providers_set": providers})
	if err != nil {
		return nil, err
	}

	status, body, err := c.do(ctx, listTimeout, http.MethodPost, c.baseURL+"conversations/"+conversationID+"/start", nil, nil, payload)
	if err != nil {
		return nil, fmt.Errorf("API call failed - %w", err)
	}
	if status != http.StatusOK {
		return nil, &ActionFailedError{Status: status, Body: string(body)}
	}

	var result StartResult
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("decode start response: %w", err)
	}
	return &result, nil
}

// GetConversationChanges fetches the uncommitted files of a workspace.
// A 404 means no git repository, which is not an error.
func (c *Client) GetConversationChanges(ctx context.Context, conversationID, runtimeURL, sessionKey string) ([]FileChange, error) {
	endpoint, headers := c.runtimeEndpoint(runtimeURL, conversationID, "git/changes", sessionKey)

	status, body, err := c.do(ctx, listTimeout, http.MethodGet, endpoint, nil, headers, nil)
	if err != nil {
		return nil, err
	}
	switch {
	case status == http.StatusNotFound:
		return []FileChange{}, nil
	case status == http.StatusInternalServerError:
		return nil, ErrRepositoryUnavailable
	case status < 200 || status >= 300:
		return nil, &StatusError{Op: "get changes", Status: status}
	}

	var changes []FileChange
	if err := json.Unmarshal(body, &changes); err != nil {
		return nil, fmt.Errorf("decode changes: %w", err)
	}
	return changes, nil
}

// GetFileContent fetches one workspace file. The runtime answers JSON with
// the text under a "code" field; absent that field the raw JSON body is
// returned as-is.
func (c *Client) GetFileContent(ctx context.Context, conversationID, filePath, runtimeURL, sessionKey string) (string, error) {
	endpoint, headers := c.runtimeEndpoint(runtimeURL, conversationID, "select-file", sessionKey)
	params := url.Values{}
	params.Set("file", filePath)

	status, body, err := c.do(ctx, transferTimeout, http.MethodGet, endpoint, params, headers, nil)
	if err != nil {
		return "", err
	}
	switch {
	case status == http.StatusNotFound:
		return "", NewNotFoundError("file", filePath)
	case status == http.StatusUnauthorized:
		return "", ErrAuthenticationFailed
	case status == http.StatusInternalServerError:
		return "", ErrServerUnavailable
	case status < 200 || status >= 300:
		return "", &StatusError{Op: "get file content", Status: status}
	}

	var payload struct {
		Code *string `json:"code"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Code != nil {
		return *payload.Code, nil
	}
	return string(body), nil
}

// DownloadWorkspaceArchive fetches the workspace as a ZIP byte stream.
func (c *Client) DownloadWorkspaceArchive(ctx context.Context, conversationID, runtimeURL, sessionKey string) ([]byte, error) {
	endpoint, headers := c.runtimeEndpoint(runtimeURL, conversationID, "zip-directory", sessionKey)

	status, body, err := c.do(ctx, transferTimeout, http.MethodGet, endpoint, nil, headers, nil)
	if err != nil {
		return nil, err
	}
	switch {
	case status == http.StatusNotFound:
		return nil, NewNotFoundError("workspace", conversationID)
	case status == http.StatusUnauthorized:
		return nil, ErrAuthenticationFailed
	case status == http.StatusInternalServerError:
		return nil, ErrServerUnavailable
	case status < 200 || status >= 300:
		return nil, &StatusError{Op: "download workspace", Status: status}
	}
	return body, nil
}

// GetTrajectory fetches the trajectory of an active conversation. The
// runtime URL and session key are required: the main host cannot serve
// trajectories, so callers must verify the conversation is active first.
func (c *Client) GetTrajectory(ctx context.Context, conversationID, runtimeURL, sessionKey string) (json.RawMessage, error) {
	if runtimeURL == "" {
		return nil, fmt.Errorf("trajectory requires an active runtime")
	}
	endpoint, headers := c.runtimeEndpoint(runtimeURL, conversationID, "trajectory", sessionKey)

	status, body, err := c.do(ctx, transferTimeout, http.MethodGet, endpoint, nil, headers, nil)
	if err != nil {
		return nil, err
	}
	switch {
	case status == http.StatusNotFound:
		return nil, NewNotFoundError("trajectory", conversationID)
	case status == http.StatusUnauthorized:
		return nil, ErrAuthenticationFailed
	case status == http.StatusInternalServerError:
		return nil, ErrServerUnavailable
	case status < 200 || status >= 300:
		return nil, &StatusError{Op: "get trajectory", Status: status}
	}
	return json.RawMessage(body), nil
}

// ListWorkspaceFiles lists entries under a workspace path on the runtime
// host. Directories come back with a trailing slash.
func (c *Client) ListWorkspaceFiles(ctx context.Context, conversationID, path, runtimeURL, sessionKey string) ([]string, error) {
	endpoint, headers := c.runtimeEndpoint(runtimeURL, conversationID, "list-files", sessionKey)
	params := url.Values{}
	if path != "" {
		params.Set("path", path)
	}

	status, body, err := c.do(ctx, listTimeout, http.MethodGet, endpoint, params, headers, nil)
	if err != nil {
		return nil, err
	}
	switch {
	case status == http.StatusNotFound:
		return nil, NewNotFoundError("path", path)
	case status == http.StatusUnauthorized:
		return nil, ErrAuthenticationFailed
	case status == http.StatusInternalServerError:
		return nil, ErrServerUnavailable
	case status < 200 || status >= 300:
		return nil, &StatusError{Op: "list files", Status: status}
	}

	var files []string
	if err := json.Unmarshal(body, &files); err != nil {
		return nil, fmt.Errorf("decode file listing: %w", err)
	}
	return files, nil
}
