// Package coldstore talks to the Dropbox v2 API: chunked uploads, shared
// links, and token refresh. The wire protocol is implemented directly; there
// is no official Go SDK worth carrying for the handful of endpoints used.
package coldstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"artsync/internal/models"
)

const (
	defaultAPIBase     = "https://api.dropboxapi.com"
	defaultContentBase = "https://content.dropboxapi.com"
	defaultAuthBase    = "https://api.dropbox.com"
)

type Client struct {
	httpClient *http.Client

	// Overridable for tests.
	apiBase     string
	contentBase string
	authBase    string

	// Latest access token obtained via refresh; shadows the resolved one.
	mu        sync.Mutex
	refreshed string
}

func NewClient() *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: 10 * time.Minute, // chunk uploads on slow links take a while
		},
		apiBase:     defaultAPIBase,
		contentBase: defaultContentBase,
		authBase:    defaultAuthBase,
	}
}

// NewClientForEndpoints builds a client against alternate base URLs. Tests
// point this at httptest servers.
func NewClientForEndpoints(api, content, auth string) *Client {
	c := NewClient()
	c.apiBase = api
	c.contentBase = content
	c.authBase = auth
	return c
}

func (c *Client) token(creds models.DropboxCredentials) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.refreshed != "" {
		return c.refreshed
	}
	return creds.AccessToken
}

// rpc posts a JSON body to an api-host endpoint, e.g.
// "/2/sharing/list_shared_links".
func (c *Client) rpc(ctx context.Context, creds models.DropboxCredentials, endpoint string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return err
	}

	do := func(token string) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiBase+endpoint, bytes.NewReader(body))
		if err != nil {
			return err
		}
		req.Header.Set("Authorization", "Bearer "+token)
		req.Header.Set("Content-Type", "application/json")
		return c.send(req, out)
	}

	return c.withRefresh(ctx, creds, do)
}

// content posts raw bytes to a content-host endpoint with the call arguments
// in the Dropbox-API-Arg header. The payload is a byte slice, not a reader,
// so the call can be replayed after a token refresh.
func (c *Client) content(ctx context.Context, creds models.DropboxCredentials, endpoint string, arg any, payload []byte, out any) error {
	argJSON, err := json.Marshal(arg)
	if err != nil {
		return err
	}

	do := func(token string) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.contentBase+endpoint, bytes.NewReader(payload))
		if err != nil {
			return err
		}
		req.Header.Set("Authorization", "Bearer "+token)
		req.Header.Set("Dropbox-API-Arg", string(argJSON))
		req.Header.Set("Content-Type", "application/octet-stream")
		return c.send(req, out)
	}

	return c.withRefresh(ctx, creds, do)
}

// withRefresh runs the call and, on an expired access token, exchanges the
// refresh token once and replays it.
func (c *Client) withRefresh(ctx context.Context, creds models.DropboxCredentials, do func(token string) error) error {
	err := do(c.token(creds))
	if err == nil || !isExpiredToken(err) || !creds.CanRefresh() {
		return err
	}

	token, refreshErr := c.refreshAccessToken(ctx, creds)
	if refreshErr != nil {
		return fmt.Errorf("refresh access token: %w", refreshErr)
	}

	c.mu.Lock()
	c.refreshed = token
	c.mu.Unlock()

	return do(token)
}

func (c *Client) send(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		retryAfter := 60 * time.Second
		if s := resp.Header.Get("Retry-After"); s != "" {
			if secs, err := strconv.Atoi(s); err == nil {
				retryAfter = time.Duration(secs) * time.Second
			}
		}
		return &RateLimitError{RetryAfter: retryAfter}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		apiErr := &APIError{StatusCode: resp.StatusCode}
		var payload struct {
			Summary string `json:"error_summary"`
		}
		if json.Unmarshal(raw, &payload) == nil && payload.Summary != "" {
			apiErr.Summary = payload.Summary
		} else {
			apiErr.Summary = string(raw)
		}
		return apiErr
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// refreshAccessToken exchanges the stored refresh token for a fresh access
// token via the oauth2 endpoint.
func (c *Client) refreshAccessToken(ctx context.Context, creds models.DropboxCredentials) (string, error) {
	form := url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {creds.RefreshToken},
		"client_id":     {creds.AppKey},
		"client_secret": {creds.AppSecret},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.authBase+"/oauth2/token", bytes.NewBufferString(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	var out struct {
		AccessToken string `json:"access_token"`
	}
	if err := c.send(req, &out); err != nil {
		return "", err
	}
	if out.AccessToken == "" {
		return "", fmt.Errorf("token endpoint returned no access_token")
	}
	return out.AccessToken, nil
}
