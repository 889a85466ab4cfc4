package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

// maxAudioBytes bounds a single synthesized clip.
const maxAudioBytes = 16 << 20

// ErrAudioTooLarge is returned for a clip over the size bound. A truncated
// clip is never returned, so it can never reach the cache.
var ErrAudioTooLarge = errors.New("synthesized audio too large")

// HTTPSynthesizer calls a remote speech-synthesis endpoint.
type HTTPSynthesizer struct {
	url      string
	client   *http.Client
	maxBytes int64
}

// NewHTTPSynthesizer creates a synthesizer that POSTs {"text": ...} to url.
func NewHTTPSynthesizer(url string, client *http.Client) *HTTPSynthesizer {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPSynthesizer{url: url, client: client, maxBytes: maxAudioBytes}
}

type synthesizeRequest struct {
	Text string `json:"text"`
}

// Synthesize requests audio for text.
func (h *HTTPSynthesizer) Synthesize(ctx context.Context, text string) (*Audio, error) {
	body, err := json.Marshal(synthesizeRequest{Text: text})
	if err != nil {
		return nil, fmt.Errorf("encode synthesize request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build synthesize request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("synthesize request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("synthesize returned %s", resp.Status)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, h.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read synthesized audio: %w", err)
	}
	if int64(len(data)) > h.maxBytes {
		return nil, fmt.Errorf("%w: over %d bytes", ErrAudioTooLarge, h.maxBytes)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("synthesize returned an empty body")
	}

	return &Audio{
		Text:        text,
		ContentType: resp.Header.Get("Content-Type"),
		Data:        data,
	}, nil
}
