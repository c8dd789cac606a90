package submit

import (
	"context"
	"encoding/json"
)

// Client performs one authenticated publish call per URL. No internal retry;
// the raw response body is returned for the caller to classify. Transport
// failures come back as the error.
type Client interface {
	Submit(ctx context.Context, url string) ([]byte, error)
}

// DryRunClient synthesizes a success response without touching the network.
// Queue and ledger effects of a dry run are identical to an all-success run.
type DryRunClient struct{}

func (DryRunClient) Submit(ctx context.Context, url string) ([]byte, error) {
	body := map[string]any{
		"urlNotificationMetadata": map[string]any{
			"url": url,
		},
	}
	return json.Marshal(body)
}
