// Package generative wraps the Gemini models used for text, chat and background images.
package generative

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"soulspark/internal/models"
	"soulspark/internal/observability"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/time/rate"
	"google.golang.org/genai"
)

const (
	DefaultTextModel  = "gemini-2.5-flash"
	DefaultImageModel = "gemini-2.5-flash-image"
)

var (
	errNotConfigured = errors.New("generative provider is not configured")
	errEmptyResponse = errors.New("empty response from model")
	errNoImage       = errors.New("no image data found in response")
)

// ContentGenerator is the subset of the Gemini models API the provider uses.
type ContentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// ChatMessage is one turn of a companion conversation. Role is "user" or "model".
type ChatMessage struct {
	Role string `json:"role"`
	Text string `json:"text"`
}

// Image is generated image data.
type Image struct {
	Data     []byte
	MIMEType string
}

// Options configures a Provider.
type Options struct {
	APIKey     string
	TextModel  string
	ImageModel string
	// RPS and Burst throttle outbound calls. RPS <= 0 disables throttling.
	RPS    float64
	Burst  int
	Logger *slog.Logger
}

// Provider generates content with Gemini. A Provider without a generator
// answers every text call with its fallback and fails every image call.
type Provider struct {
	gen        ContentGenerator
	textModel  string
	imageModel string
	limiter    *rate.Limiter
	logger     *slog.Logger
}

// New builds a Provider backed by the Gemini API. An empty API key yields an
// unconfigured provider rather than an error.
func New(ctx context.Context, opts Options) (*Provider, error) {
	if opts.APIKey == "" {
		return NewWithGenerator(nil, opts), nil
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  opts.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	return NewWithGenerator(client.Models, opts), nil
}

// NewWithGenerator builds a Provider around gen, which may be nil.
func NewWithGenerator(gen ContentGenerator, opts Options) *Provider {
	p := &Provider{
		gen:        gen,
		textModel:  opts.TextModel,
		imageModel: opts.ImageModel,
		logger:     opts.Logger,
	}
	if p.textModel == "" {
		p.textModel = DefaultTextModel
	}
	if p.imageModel == "" {
		p.imageModel = DefaultImageModel
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	if opts.RPS > 0 {
		burst := opts.Burst
		if burst < 1 {
			burst = 1
		}
		p.limiter = rate.NewLimiter(rate.Limit(opts.RPS), burst)
	}
	return p
}

// Configured reports whether the provider can reach a model.
func (p *Provider) Configured() bool {
	return p != nil && p.gen != nil
}

// GenerateText writes a short piece for the given mood and request. Failures
// are logged and answered with TextFallback.
func (p *Provider) GenerateText(ctx context.Context, mood models.Mood, request string) string {
	contents := []*genai.Content{genai.NewContentFromText(textPrompt(mood, request), genai.RoleUser)}
	text, err := p.generateText(ctx, "text", contents, nil,
		attribute.String("mood", string(mood)))
	if err != nil {
		p.logger.WarnContext(ctx, "text generation failed", slog.String("error", err.Error()))
		return TextFallback
	}
	return text
}

// Chat continues a companion conversation. Only the most recent
// MaxChatHistory messages of history are sent. Failures yield ChatFallback.
func (p *Provider) Chat(ctx context.Context, history []ChatMessage, message string) string {
	if len(history) > MaxChatHistory {
		history = history[len(history)-MaxChatHistory:]
	}

	contents := make([]*genai.Content, 0, len(history)+1)
	for _, msg := range history {
		if strings.TrimSpace(msg.Text) == "" {
			continue
		}
		contents = append(contents, chatContent(msg))
	}
	contents = append(contents, genai.NewContentFromText(message, genai.RoleUser))

	cfg := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(companionInstruction, genai.RoleUser),
	}
	text, err := p.generateText(ctx, "chat", contents, cfg,
		attribute.Int("history", len(history)))
	if err != nil {
		p.logger.WarnContext(ctx, "companion chat failed", slog.String("error", err.Error()))
		return ChatFallback
	}
	return text
}

func chatContent(msg ChatMessage) *genai.Content {
	switch strings.ToLower(msg.Role) {
	case "model", "assistant", "bot":
		return genai.NewContentFromText(msg.Text, genai.RoleModel)
	default:
		return genai.NewContentFromText(msg.Text, genai.RoleUser)
	}
}

// GenerateImage renders a background that fits content and mood. Any failure
// is reported as a provider error carrying ImageFailureMessage.
func (p *Provider) GenerateImage(ctx context.Context, mood models.Mood, content string) (img Image, err error) {
	ctx, span := observability.StartSpan(ctx, "generative", "image",
		attribute.String("mood", string(mood)))
	done := observability.TrackGeneration("image")
	defer func() {
		done(err)
		observability.EndSpan(span, err)
	}()

	if !p.Configured() {
		return Image{}, models.NewProviderError(ImageFailureMessage, errNotConfigured)
	}
	if err := p.wait(ctx); err != nil {
		return Image{}, models.NewProviderError(ImageFailureMessage, err)
	}

	cfg := &genai.GenerateContentConfig{}
	cfg.ResponseModalities = append(cfg.ResponseModalities, "IMAGE")

	contents := []*genai.Content{genai.NewContentFromText(imagePrompt(mood, content), genai.RoleUser)}
	resp, genErr := p.gen.GenerateContent(ctx, p.imageModel, contents, cfg)
	if genErr != nil {
		p.logger.WarnContext(ctx, "image generation failed", slog.String("error", genErr.Error()))
		return Image{}, models.NewProviderError(ImageFailureMessage, genErr)
	}

	for _, part := range firstCandidateParts(resp) {
		if part != nil && part.InlineData != nil && len(part.InlineData.Data) > 0 {
			mime := part.InlineData.MIMEType
			if mime == "" {
				mime = "image/png"
			}
			return Image{Data: part.InlineData.Data, MIMEType: mime}, nil
		}
	}
	return Image{}, models.NewProviderError(ImageFailureMessage, errNoImage)
}

func (p *Provider) generateText(ctx context.Context, kind string, contents []*genai.Content, cfg *genai.GenerateContentConfig, attrs ...attribute.KeyValue) (text string, err error) {
	ctx, span := observability.StartSpan(ctx, "generative", kind, attrs...)
	done := observability.TrackGeneration(kind)
	defer func() {
		done(err)
		observability.EndSpan(span, err)
	}()

	if !p.Configured() {
		return "", errNotConfigured
	}
	if err := p.wait(ctx); err != nil {
		return "", err
	}

	resp, err := p.gen.GenerateContent(ctx, p.textModel, contents, cfg)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	for _, part := range firstCandidateParts(resp) {
		if part != nil {
			b.WriteString(part.Text)
		}
	}
	text = strings.TrimSpace(b.String())
	if text == "" {
		return "", errEmptyResponse
	}
	return text, nil
}

func (p *Provider) wait(ctx context.Context) error {
	if p.limiter == nil {
		return nil
	}
	if err := p.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("generation throttled: %w", err)
	}
	return nil
}

func firstCandidateParts(resp *genai.GenerateContentResponse) []*genai.Part {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0] == nil || resp.Candidates[0].Content == nil {
		return nil
	}
	return resp.Candidates[0].Content.Parts
}
