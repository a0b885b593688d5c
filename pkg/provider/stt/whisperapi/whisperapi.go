// Package whisperapi provides an STT provider backed by the hosted OpenAI
// Whisper transcription API.
package whisperapi

import (
	"context"
	"fmt"
	"net/http"
	"time"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/param"

	"github.com/dquispe/ventavoz/pkg/provider/stt"
)

// DefaultTimeout bounds a single transcription request. Counter recordings
// are seconds long; anything past this is a stuck upload, not a slow model.
const DefaultTimeout = 30 * time.Second

// Provider implements stt.Provider using the OpenAI audio transcription API.
type Provider struct {
	client oai.Client
	model  string
}

// config holds optional configuration for the provider.
type config struct {
	baseURL string
	timeout time.Duration
	model   string
}

// Option is a functional option for Provider.
type Option func(*config)

// WithBaseURL overrides the default OpenAI API base URL, for API-compatible
// self-hosted Whisper servers.
func WithBaseURL(url string) Option {
	return func(c *config) {
		c.baseURL = url
	}
}

// WithTimeout overrides [DefaultTimeout] for the underlying HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(c *config) {
		c.timeout = d
	}
}

// WithModel overrides the default "whisper-1" transcription model.
func WithModel(model string) Option {
	return func(c *config) {
		c.model = model
	}
}

// New constructs a new Whisper API Provider.
func New(apiKey string, opts ...Option) (*Provider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("whisperapi: apiKey must not be empty")
	}

	cfg := &config{
		timeout: DefaultTimeout,
		model:   string(oai.AudioModelWhisper1),
	}
	for _, o := range opts {
		o(cfg)
	}

	reqOpts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithHTTPClient(&http.Client{Timeout: cfg.timeout}),
	}
	if cfg.baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(cfg.baseURL))
	}

	return &Provider{
		client: oai.NewClient(reqOpts...),
		model:  cfg.model,
	}, nil
}

// Transcribe implements stt.Provider.
func (p *Provider) Transcribe(ctx context.Context, req stt.Request) (*stt.Transcript, error) {
	if req.Audio == nil {
		return nil, fmt.Errorf("whisperapi: request audio must not be nil")
	}

	filename := req.Filename
	if filename == "" {
		filename = "audio.webm"
	}

	params := oai.AudioTranscriptionNewParams{
		File:  oai.File(req.Audio, filename, "application/octet-stream"),
		Model: oai.AudioModel(p.model),
	}
	if req.Language != "" {
		params.Language = param.NewOpt(req.Language)
	}
	if req.Prompt != "" {
		params.Prompt = param.NewOpt(req.Prompt)
	}

	resp, err := p.client.Audio.Transcriptions.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("whisperapi: transcription: %w", err)
	}

	return &stt.Transcript{Text: resp.Text}, nil
}

var _ stt.Provider = (*Provider)(nil)
