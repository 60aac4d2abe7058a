// Package assistant asks a Gemini model for a narrative shift summary.
package assistant

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"shift_handover/internal/shift"
)

var (
	ErrMissingAPIKey = errors.New("generative API key is not configured")
	ErrEmptyResponse = errors.New("generative API returned no text")
)

// MissingKeyNotice is the operator-facing text for ErrMissingAPIKey.
const MissingKeyNotice = "שגיאה: מפתח ה-API לא מוגדר."

const (
	DefaultModel   = "gemini-2.5-flash"
	DefaultTimeout = 60 * time.Second
)

type Config struct {
	APIKey  string
	Model   string
	Timeout time.Duration
}

// Gemini implements the board's summarizer. A Gemini built without an API key
// is usable; every call fails with ErrMissingAPIKey.
type Gemini struct {
	client  *genai.Client
	model   string
	timeout time.Duration
	log     *zap.Logger
}

func New(ctx context.Context, cfg Config, log *zap.Logger) (*Gemini, error) {
	if log == nil {
		log = zap.NewNop()
	}
	g := &Gemini{model: cfg.Model, timeout: cfg.Timeout, log: log}
	if g.model == "" {
		g.model = DefaultModel
	}
	if g.timeout <= 0 {
		g.timeout = DefaultTimeout
	}
	if cfg.APIKey == "" {
		log.Warn("generative summary disabled: no API key")
		return g, nil
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	g.client = client
	return g, nil
}

func (g *Gemini) Enabled() bool { return g.client != nil }

func (g *Gemini) Model() string { return g.model }

// Summarize returns a narrative summary of the shift.
func (g *Gemini) Summarize(ctx context.Context, faults []shift.Fault, planned []shift.PlannedWork, info shift.Info) (string, error) {
	if g.client == nil {
		return "", ErrMissingAPIKey
	}
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	started := time.Now()
	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(Prompt(faults, planned, info)), nil)
	if err != nil {
		g.log.Error("AI summary generation failed", zap.String("model", g.model), zap.Error(err))
		return "", fmt.Errorf("GenAI generate failed: %w", err)
	}
	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", ErrEmptyResponse
	}
	g.log.Debug("AI summary generated",
		zap.String("model", g.model),
		zap.Int("chars", len(text)),
		zap.Duration("took", time.Since(started)))
	return text, nil
}
