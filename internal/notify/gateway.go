package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"parcelbox/internal/config"
)

// Gateway is the outbound messaging channel. Implementations return the
// gateway's message identifier on success.
type Gateway interface {
	SendText(ctx context.Context, to, text string) (string, error)
	SendImage(ctx context.Context, to, caption, imageURL string) (string, error)
}

// HTTPGateway talks to a WhatsApp gateway over its basic-auth JSON API.
type HTTPGateway struct {
	baseURL  string
	username string
	password string
	client   *http.Client
}

func NewHTTPGateway(cfg config.GatewayConfig) *HTTPGateway {
	return &HTTPGateway{
		baseURL:  strings.TrimSuffix(cfg.BaseURL, "/"),
		username: cfg.Username,
		password: cfg.Password,
		client:   &http.Client{Timeout: cfg.Timeout},
	}
}

type sendResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Results struct {
		MessageID string `json:"message_id"`
	} `json:"results"`
}

func (g *HTTPGateway) SendText(ctx context.Context, to, text string) (string, error) {
	return g.post(ctx, "/send/message", map[string]any{
		"phone":   to,
		"message": text,
	})
}

func (g *HTTPGateway) SendImage(ctx context.Context, to, caption, imageURL string) (string, error) {
	return g.post(ctx, "/send/image", map[string]any{
		"phone":     to,
		"caption":   caption,
		"image_url": imageURL,
		"compress":  true,
	})
}

func (g *HTTPGateway) post(ctx context.Context, path string, payload map[string]any) (string, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("encode payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(g.username, g.password)

	resp, err := g.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("gateway request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("gateway returned %d", resp.StatusCode)
	}

	var decoded sendResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	return decoded.Results.MessageID, nil
}
