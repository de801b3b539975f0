package stt

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"
)

// Client talks to a Whisper-style transcription endpoint over HTTP
// multipart. It works against any service accepting an OpenAI-compatible
// /audio/transcriptions form.
type Client struct {
	baseURL    string
	apiKey     string
	model      string
	language   string
	httpClient *http.Client
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient swaps the underlying HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.httpClient = hc }
}

// WithModel overrides the transcription model.
func WithModel(model string) ClientOption {
	return func(c *Client) { c.model = model }
}

// WithLanguage pins the transcription language.
func WithLanguage(lang string) ClientOption {
	return func(c *Client) { c.language = lang }
}

// NewClient builds a transcription client.
func NewClient(baseURL, apiKey string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		model:      "whisper-1",
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Name returns the provider identifier.
func (c *Client) Name() string { return "whisper" }

type transcriptionResponse struct {
	Text string `json:"text"`
}

// Transcribe implements Transcriber.
func (c *Client) Transcribe(ctx context.Context, wav []byte) (string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	fw, err := mw.CreateFormFile("file", "utterance.wav")
	if err != nil {
		return "", &Error{Provider: c.Name(), Err: fmt.Errorf("create form file: %w", err)}
	}
	if _, err := fw.Write(wav); err != nil {
		return "", &Error{Provider: c.Name(), Err: fmt.Errorf("write audio: %w", err)}
	}
	if err := mw.WriteField("model", c.model); err != nil {
		return "", &Error{Provider: c.Name(), Err: err}
	}
	if c.language != "" {
		if err := mw.WriteField("language", c.language); err != nil {
			return "", &Error{Provider: c.Name(), Err: err}
		}
	}
	if err := mw.Close(); err != nil {
		return "", &Error{Provider: c.Name(), Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/audio/transcriptions", &buf)
	if err != nil {
		return "", &Error{Provider: c.Name(), Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", &Error{Provider: c.Name(), Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", &Error{Provider: c.Name(), Status: resp.StatusCode, Body: string(body)}
	}

	var tr transcriptionResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return "", &Error{Provider: c.Name(), Err: fmt.Errorf("parse response: %w", err)}
	}
	return strings.TrimSpace(tr.Text), nil
}
