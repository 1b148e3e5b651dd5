package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

// FloorInstruction is sent with every floor-replacement request.
const FloorInstruction = "Replace only the floor of this room with the provided tile texture. " +
	"Keep the perspective, tile scale, lighting, shadows, walls and furniture unchanged."

const maxCompositorResponse = 1 << 20

// Compositor renders a room photo with its floor replaced by a tile texture
// and returns the URL of the result.
type Compositor interface {
	ReplaceFloor(ctx context.Context, roomImageURL, tileImageURL string) (string, error)
}

// HTTPCompositor calls a JSON floor-replacement endpoint.
type HTTPCompositor struct {
	endpoint   string
	apiKey     string
	httpClient *http.Client
}

func NewHTTPCompositor(endpoint, apiKey string, timeout time.Duration) *HTTPCompositor {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &HTTPCompositor{
		endpoint:   strings.TrimSpace(endpoint),
		apiKey:     strings.TrimSpace(apiKey),
		httpClient: &http.Client{Timeout: timeout},
	}
}

type compositeRequest struct {
	ImageURL   string `json:"image_url"`
	TextureURL string `json:"texture_url"`
	Prompt     string `json:"prompt"`
}

// ReplaceFloor returns the provider's output URL as-is.
func (c *HTTPCompositor) ReplaceFloor(ctx context.Context, roomImageURL, tileImageURL string) (string, error) {
	out, err := c.do(ctx, compositeRequest{
		ImageURL:   roomImageURL,
		TextureURL: tileImageURL,
		Prompt:     FloorInstruction,
	})
	if err != nil {
		return "", &ExternalServiceError{Op: "ai preview", Err: err}
	}
	return out, nil
}

func (c *HTTPCompositor) do(ctx context.Context, payload compositeRequest) (string, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxCompositorResponse))
	if err != nil {
		return "", err
	}
	if resp.StatusCode >= 400 {
		if msg := gjson.GetBytes(raw, "error.message").String(); msg != "" {
			return "", fmt.Errorf("compositor api error: %s", msg)
		}
		if msg := gjson.GetBytes(raw, "error").String(); msg != "" {
			return "", fmt.Errorf("compositor api error: %s", msg)
		}
		return "", fmt.Errorf("compositor api error: %s", resp.Status)
	}
	if !gjson.ValidBytes(raw) {
		return "", errors.New("compositor returned invalid json")
	}
	for _, path := range []string{"output.0", "output", "output_url", "url"} {
		v := gjson.GetBytes(raw, path)
		if v.Type == gjson.String && v.Str != "" {
			return v.Str, nil
		}
	}
	return "", errors.New("compositor response has no output url")
}
