package demographics

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	"github.com/ollama/ollama/api"

	"era-photobooth/internal/apperr"
)

const (
	defaultDetectTimeout = 30 * time.Second
	maxDetectSide        = 512
	minConfidence        = 0.5
)

const detectPrompt = `Count the people whose faces are visible in this photo.
Respond with JSON only, no prose, in exactly this shape:
{"faces":[{"gender":"male"|"female"|"unknown","age":<estimated years or null>,"confidence":<0..1>}]}
Return {"faces":[]} if no face is visible.`

type ollamaAPI interface {
	Heartbeat(ctx context.Context) error
	Show(ctx context.Context, req *api.ShowRequest) (*api.ShowResponse, error)
	Chat(ctx context.Context, req *api.ChatRequest, fn api.ChatResponseFunc) error
}

type OllamaOptions struct {
	BaseURL    string
	Model      string
	HTTPClient *http.Client
	Timeout    time.Duration
}

// OllamaBackend asks a local vision model to describe the faces in frame.
type OllamaBackend struct {
	client  ollamaAPI
	model   string
	timeout time.Duration
}

func NewOllamaBackend(opts OllamaOptions) (*OllamaBackend, error) {
	parsed, err := url.Parse(strings.TrimSpace(opts.BaseURL))
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("invalid detector url %q", opts.BaseURL)
	}
	base := &url.URL{Scheme: parsed.Scheme, Host: parsed.Host}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = "llava"
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultDetectTimeout
	}

	return &OllamaBackend{
		client:  api.NewClient(base, httpClient),
		model:   model,
		timeout: timeout,
	}, nil
}

// Load checks that the server is reachable and the model is pulled.
func (b *OllamaBackend) Load(ctx context.Context) error {
	if err := b.client.Heartbeat(ctx); err != nil {
		return apperr.New(apperr.KindDetectionUnavailable, "ollama.Load", fmt.Errorf("heartbeat: %w", err))
	}
	if _, err := b.client.Show(ctx, &api.ShowRequest{Model: b.model}); err != nil {
		return apperr.New(apperr.KindDetectionUnavailable, "ollama.Load", fmt.Errorf("show %s: %w", b.model, err))
	}
	return nil
}

func (b *OllamaBackend) DetectFaces(ctx context.Context, image []byte) ([]Face, error) {
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.timeout)
		defer cancel()
	}

	scaled, err := downscale(image)
	if err != nil {
		return nil, err
	}

	stream := false
	req := &api.ChatRequest{
		Model: b.model,
		Messages: []api.Message{{
			Role:    "user",
			Content: detectPrompt,
			Images:  []api.ImageData{api.ImageData(scaled)},
		}},
		Stream: &stream,
		Options: map[string]any{
			"temperature": 0,
		},
	}

	var content string
	err = b.client.Chat(ctx, req, func(resp api.ChatResponse) error {
		content += resp.Message.Content
		return nil
	})
	if err != nil {
		return nil, apperr.New(apperr.KindDetectionUnavailable, "ollama.DetectFaces", err)
	}
	return parseFaces(content)
}

func downscale(image []byte) ([]byte, error) {
	img, err := imaging.Decode(bytes.NewReader(image), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("decode capture: %w", err)
	}
	img = imaging.Fit(img, maxDetectSide, maxDetectSide, imaging.Lanczos)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(85)); err != nil {
		return nil, fmt.Errorf("encode detector input: %w", err)
	}
	return buf.Bytes(), nil
}

type facesReply struct {
	Faces []struct {
		Gender     string   `json:"gender"`
		Age        *float64 `json:"age"`
		Confidence *float64 `json:"confidence"`
	} `json:"faces"`
}

func parseFaces(raw string) ([]Face, error) {
	raw = sanitizeModelJSON(raw)
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return nil, errors.New("detector reply has no json object")
	}

	var reply facesReply
	if err := json.Unmarshal([]byte(raw[start:end+1]), &reply); err != nil {
		return nil, fmt.Errorf("decode detector reply: %w", err)
	}

	faces := make([]Face, 0, len(reply.Faces))
	for _, f := range reply.Faces {
		if f.Confidence != nil && *f.Confidence < minConfidence {
			continue
		}
		faces = append(faces, Face{Gender: f.Gender, Age: f.Age})
	}
	return faces, nil
}

func sanitizeModelJSON(raw string) string {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(raw, "```")
	return strings.TrimSpace(raw)
}
