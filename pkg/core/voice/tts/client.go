package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Client talks to an OpenAI-compatible /audio/speech endpoint and returns
// the response body as WAV bytes.
type Client struct {
	name       string
	baseURL    string
	apiKey     string
	model      string
	voice      string
	httpClient *http.Client
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient swaps the underlying HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.httpClient = hc }
}

// WithModel overrides the synthesis model.
func WithModel(model string) ClientOption {
	return func(c *Client) { c.model = model }
}

// WithVoice selects the speaking voice.
func WithVoice(voice string) ClientOption {
	return func(c *Client) { c.voice = voice }
}

// WithName overrides the provider identifier used in errors and logs.
func WithName(name string) ClientOption {
	return func(c *Client) { c.name = name }
}

// NewClient builds a synthesis client.
func NewClient(baseURL, apiKey string, opts ...ClientOption) *Client {
	c := &Client{
		name:       "speech",
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		model:      "tts-1",
		voice:      "alloy",
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Name returns the provider identifier.
func (c *Client) Name() string { return c.name }

type speechRequest struct {
	Model          string `json:"model"`
	Input          string `json:"input"`
	Voice          string `json:"voice"`
	ResponseFormat string `json:"response_format"`
}

// Synthesize implements Synthesizer.
func (c *Client) Synthesize(ctx context.Context, text string) ([]byte, error) {
	body, err := json.Marshal(speechRequest{
		Model:          c.model,
		Input:          text,
		Voice:          c.voice,
		ResponseFormat: "wav",
	})
	if err != nil {
		return nil, &Error{Provider: c.name, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/audio/speech", bytes.NewReader(body))
	if err != nil {
		return nil, &Error{Provider: c.name, Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &Error{Provider: c.name, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &Error{Provider: c.name, Status: resp.StatusCode, Body: string(msg)}
	}

	wav, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &Error{Provider: c.name, Err: fmt.Errorf("read audio: %w", err)}
	}
	if len(wav) == 0 {
		return nil, &Error{Provider: c.name, Err: fmt.Errorf("empty audio response")}
	}
	return wav, nil
}
