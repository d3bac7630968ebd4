package gemini

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"google.golang.org/genai"

	"era-photobooth/internal/apperr"
)

const (
	DefaultModel       = "gemini-2.5-flash-image"
	DefaultAspectRatio = "9:16"
	DefaultTimeout     = 90 * time.Second
)

// The booth runs in a consented, supervised setting, so every adjustable
// harm category is opened up.
var permissiveCategories = []genai.HarmCategory{
	genai.HarmCategoryHarassment,
	genai.HarmCategoryHateSpeech,
	genai.HarmCategorySexuallyExplicit,
	genai.HarmCategoryDangerousContent,
	genai.HarmCategoryCivicIntegrity,
}

type modelsAPI interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// UsageReporter is told about every successful generation. Report must not
// block.
type UsageReporter interface {
	Report(ctx context.Context)
}

type Options struct {
	APIKey      string
	Model       string
	AspectRatio string
	Timeout     time.Duration
	HTTPClient  *http.Client
	Usage       UsageReporter
	Logger      *slog.Logger
}

type Client struct {
	models      modelsAPI
	model       string
	aspectRatio string
	timeout     time.Duration
	usage       UsageReporter
	logger      *slog.Logger
}

func New(ctx context.Context, opts Options) (*Client, error) {
	apiKey := strings.TrimSpace(opts.APIKey)
	if apiKey == "" {
		return nil, apperr.Configuration("gemini.New", "GEMINI_API_KEY is required")
	}

	gc, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:     apiKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: opts.HTTPClient,
	})
	if err != nil {
		return nil, apperr.Configuration("gemini.New", "create genai client: %w", err)
	}

	return newClient(gc.Models, opts), nil
}

func newClient(models modelsAPI, opts Options) *Client {
	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = DefaultModel
	}
	aspect := strings.TrimSpace(opts.AspectRatio)
	if aspect == "" {
		aspect = DefaultAspectRatio
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &Client{
		models:      models,
		model:       model,
		aspectRatio: aspect,
		timeout:     timeout,
		usage:       opts.Usage,
		logger:      logger,
	}
}

// Generate restyles image according to instruction. Every failure it returns
// is a retryable generation error unless the caller's context was canceled.
func (c *Client) Generate(ctx context.Context, image []byte, instruction string) (Image, error) {
	const op = "gemini.Generate"

	if len(image) == 0 {
		return Image{}, apperr.Generation(op, errors.New("source image is empty"))
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	parts := []*genai.Part{
		genai.NewPartFromBytes(image, sniffMime(image)),
		genai.NewPartFromText(instruction),
	}
	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}

	start := time.Now()
	resp, err := c.models.GenerateContent(ctx, c.model, contents, c.config())
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			err = fmt.Errorf("no response within %s: %w", c.timeout, err)
		}
		return Image{}, apperr.Generation(op, err)
	}

	res := Classify(resp)
	c.logger.Info("generation finished",
		"model", c.model,
		"status", res.Status.String(),
		"reason", res.Reason,
		"dur_ms", time.Since(start).Milliseconds(),
	)
	if err := res.err(); err != nil {
		return Image{}, apperr.Generation(op, err)
	}

	if c.usage != nil {
		c.usage.Report(ctx)
	}
	return res.Image, nil
}

func (c *Client) config() *genai.GenerateContentConfig {
	safety := make([]*genai.SafetySetting, 0, len(permissiveCategories))
	for _, cat := range permissiveCategories {
		safety = append(safety, &genai.SafetySetting{
			Category:  cat,
			Threshold: genai.HarmBlockThresholdBlockNone,
		})
	}

	return &genai.GenerateContentConfig{
		Temperature:        genai.Ptr[float32](1),
		ResponseModalities: []string{"IMAGE", "TEXT"},
		ImageConfig:        &genai.ImageConfig{AspectRatio: c.aspectRatio},
		SafetySettings:     safety,
	}
}

// Classify maps a raw response onto Success, Blocked or Malformed.
func Classify(resp *genai.GenerateContentResponse) Result {
	if resp == nil {
		return Result{Status: StatusMalformed}
	}
	if len(resp.Candidates) == 0 {
		if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
			return Result{Status: StatusBlocked, Reason: string(resp.PromptFeedback.BlockReason)}
		}
		return Result{Status: StatusMalformed}
	}

	cand := resp.Candidates[0]
	if cand == nil {
		return Result{Status: StatusMalformed}
	}
	switch cand.FinishReason {
	case "", genai.FinishReasonStop, genai.FinishReasonUnspecified:
	default:
		return Result{Status: StatusBlocked, Reason: string(cand.FinishReason)}
	}

	if cand.Content != nil {
		for _, p := range cand.Content.Parts {
			if p == nil || p.InlineData == nil || len(p.InlineData.Data) == 0 {
				continue
			}
			mimeType := p.InlineData.MIMEType
			if mimeType == "" {
				mimeType = sniffMime(p.InlineData.Data)
			}
			return Result{Status: StatusSuccess, Image: Image{Data: p.InlineData.Data, MimeType: mimeType}}
		}
	}
	return Result{Status: StatusMalformed}
}

func sniffMime(data []byte) string {
	mimeType := http.DetectContentType(data)
	if i := strings.Index(mimeType, ";"); i >= 0 {
		mimeType = strings.TrimSpace(mimeType[:i])
	}
	if !strings.HasPrefix(mimeType, "image/") {
		return "image/jpeg"
	}
	return mimeType
}
