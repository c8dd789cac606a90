package submit

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shohag/indexpush/internal/outcome"
)

// serviceAccountJSON builds a throwaway service-account key whose token_uri
// points at a local fake, so the whole handshake stays offline.
func serviceAccountJSON(t *testing.T, tokenURL string) []byte {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	der, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		t.Fatalf("marshal key: %v", err)
	}
	pemKey := pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der})

	sa := map[string]string{
		"type":           "service_account",
		"project_id":     "indexpush-test",
		"private_key_id": "test-key-id",
		"private_key":    string(pemKey),
		"client_email":   "indexpush@test.iam.gserviceaccount.com",
		"token_uri":      tokenURL,
	}
	out, err := json.Marshal(sa)
	if err != nil {
		t.Fatalf("marshal service account: %v", err)
	}
	return out
}

func fakeTokenServer(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"access_token": "test-token",
			"token_type":   "Bearer",
			"expires_in":   3600,
		})
	}))
}

func TestGoogleClientSubmit(t *testing.T) {
	tokenSrv := fakeTokenServer(t)
	defer tokenSrv.Close()

	var gotAuth, gotURL, gotType string
	apiSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")

		var req struct {
			URL  string `json:"url"`
			Type string `json:"type"`
		}
		body, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(body, &req); err != nil {
			t.Errorf("undecodable publish payload: %v", err)
		}
		gotURL, gotType = req.URL, req.Type

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"urlNotificationMetadata": map[string]any{"url": req.URL},
		})
	}))
	defer apiSrv.Close()

	ctx := context.Background()
	client, err := NewGoogleClient(ctx, serviceAccountJSON(t, tokenSrv.URL), apiSrv.URL, 5*time.Second)
	if err != nil {
		t.Fatalf("NewGoogleClient error: %v", err)
	}

	raw, err := client.Submit(ctx, "  https://example.com/page\n")
	if err != nil {
		t.Fatalf("Submit error: %v", err)
	}

	if gotAuth != "Bearer test-token" {
		t.Fatalf("authorization header = %q", gotAuth)
	}
	if gotURL != "https://example.com/page" {
		t.Fatalf("submitted url = %q, want trimmed", gotURL)
	}
	if gotType != "URL_UPDATED" {
		t.Fatalf("notification type = %q", gotType)
	}

	out := outcome.Classify(raw, nil)
	if out.Kind != outcome.Success {
		t.Fatalf("classified as %s, want success", out.Kind)
	}
}

func TestGoogleClientReturnsErrorBodies(t *testing.T) {
	tokenSrv := fakeTokenServer(t)
	defer tokenSrv.Close()

	apiSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{
				"code":    429,
				"status":  "RESOURCE_EXHAUSTED",
				"message": "Quota exceeded",
			},
		})
	}))
	defer apiSrv.Close()

	ctx := context.Background()
	client, err := NewGoogleClient(ctx, serviceAccountJSON(t, tokenSrv.URL), apiSrv.URL, 5*time.Second)
	if err != nil {
		t.Fatalf("NewGoogleClient error: %v", err)
	}

	raw, err := client.Submit(ctx, "https://example.com/page")
	if err != nil {
		t.Fatalf("Submit must return the body, not an error, on non-2xx: %v", err)
	}
	if out := outcome.Classify(raw, nil); out.Kind != outcome.CredentialExhausted {
		t.Fatalf("classified as %s, want credential_exhausted", out.Kind)
	}
}

func TestGoogleClientRejectsGarbageKey(t *testing.T) {
	_, err := NewGoogleClient(context.Background(), []byte("not json"), "", time.Second)
	if err == nil {
		t.Fatal("expected error for garbage key material")
	}
}
