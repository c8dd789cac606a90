package submit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2/google"
)

const (
	// DefaultEndpoint is the Indexing API publish endpoint.
	DefaultEndpoint = "https://indexing.googleapis.com/v3/urlNotifications:publish"

	// Scope is the OAuth scope the service-account token is minted for.
	Scope = "https://www.googleapis.com/auth/indexing"

	// notification type sent with every URL; this tool only announces
	// updated content, never deletions.
	notificationType = "URL_UPDATED"

	maxResponseBytes = 1 << 20
)

type publishRequest struct {
	URL  string `json:"url"`
	Type string `json:"type"`
}

// GoogleClient submits URLs to the Indexing API, authorized by one
// service-account key. One client per credential per run.
type GoogleClient struct {
	client   *http.Client
	endpoint string
}

// NewGoogleClient builds an authenticated client from service-account key
// JSON. The JWT token source inside the returned http.Client refreshes
// itself; ctx scopes those token fetches.
func NewGoogleClient(ctx context.Context, keyJSON []byte, endpoint string, timeout time.Duration) (*GoogleClient, error) {
	cfg, err := google.JWTConfigFromJSON(keyJSON, Scope)
	if err != nil {
		return nil, fmt.Errorf("parse service account key: %w", err)
	}

	hc := cfg.Client(ctx)
	hc.Timeout = timeout

	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	return &GoogleClient{client: hc, endpoint: endpoint}, nil
}

func (c *GoogleClient) Submit(ctx context.Context, url string) ([]byte, error) {
	payload, err := json.Marshal(publishRequest{
		URL:  strings.TrimSpace(url),
		Type: notificationType,
	})
	if err != nil {
		return nil, fmt.Errorf("encode publish request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create publish request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "indexpush/1.0")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("publish request: %w", err)
	}
	defer resp.Body.Close()

	// Non-2xx responses still carry the error object the classifier needs,
	// so the body is returned either way.
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read publish response: %w", err)
	}
	return body, nil
}
