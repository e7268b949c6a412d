// Package ghost is a minimal client for the Ghost admin API, covering
// authenticated draft creation.
package ghost

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/CurationsLA/lemon/internal/logger"
)

// postsPath is the admin draft-creation endpoint, relative to the site URL.
const postsPath = "/ghost/api/admin/posts/"

// authScheme is the Authorization header scheme the admin API expects.
const authScheme = "Ghost"

// Client publishes drafts to a Ghost site. It owns the admin token
// lifecycle: a fresh token is minted for every outbound call.
type Client struct {
	siteURL    string
	keyID      string
	secret     []byte
	httpClient *http.Client
	now        func() time.Time
	log        logger.Logger
}

// NewClient creates a Client from the site URL and an "<id>:<hex secret>"
// admin key.
func NewClient(siteURL, adminKey string, httpClient *http.Client, log logger.Logger) (*Client, error) {
	keyID, secret, err := ParseAdminKey(adminKey)
	if err != nil {
		return nil, err
	}

	return &Client{
		siteURL:    strings.TrimRight(siteURL, "/"),
		keyID:      keyID,
		secret:     secret,
		httpClient: httpClient,
		now:        time.Now,
		log:        log,
	}, nil
}

// WithClock overrides the time source. Used in tests to pin token claims.
func (c *Client) WithClock(now func() time.Time) *Client {
	c.now = now
	return c
}

type draftPost struct {
	Title  string   `json:"title"`
	HTML   string   `json:"html"`
	Status string   `json:"status"`
	Tags   []string `json:"tags,omitempty"`
}

type postsRequest struct {
	Posts []draftPost `json:"posts"`
}

type postsResponse struct {
	Posts []struct {
		ID  string `json:"id"`
		URL string `json:"url"`
	} `json:"posts"`
}

// CreatedDraft describes a successfully created draft post.
type CreatedDraft struct {
	PostID    string
	EditorURL string
}

// CreateDraft mints a token and submits one draft post. A non-2xx response
// surfaces as an *APIError carrying the upstream status and message; no
// retry is attempted.
func (c *Client) CreateDraft(ctx context.Context, title, html string, tags []string) (*CreatedDraft, error) {
	token, err := MintToken(c.keyID, c.secret, c.now())
	if err != nil {
		return nil, err
	}

	payload, err := json.Marshal(postsRequest{
		Posts: []draftPost{{Title: title, HTML: html, Status: "draft", Tags: tags}},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal draft request: %w", err)
	}

	url := c.siteURL + postsPath + "?source=html"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create draft new request: %w", err)
	}
	req.Header.Set("Authorization", authScheme+" "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("create draft do request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("create draft read response: %w", err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		apiErr := parseAPIError(resp.StatusCode, body)
		c.log.Error("cms rejected draft",
			logger.Int("status", apiErr.StatusCode),
			logger.String("message", apiErr.Message))
		return nil, apiErr
	}

	var parsed postsResponse
	if err := json.Unmarshal(body, &parsed); err != nil || len(parsed.Posts) == 0 {
		return nil, fmt.Errorf("create draft unexpected response body")
	}

	post := parsed.Posts[0]
	return &CreatedDraft{
		PostID:    post.ID,
		EditorURL: fmt.Sprintf("%s/ghost/#/editor/post/%s", c.siteURL, post.ID),
	}, nil
}
