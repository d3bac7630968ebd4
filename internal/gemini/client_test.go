package gemini

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"era-photobooth/internal/apperr"
)

var jpegMagic = []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10, 'J', 'F', 'I', 'F'}

type fakeModels struct {
	resp  *genai.GenerateContentResponse
	err   error
	block bool

	calls      int
	lastModel  string
	lastConfig *genai.GenerateContentConfig
	lastParts  []*genai.Part
}

func (f *fakeModels) GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	f.calls++
	f.lastModel = model
	f.lastConfig = config
	if len(contents) > 0 {
		f.lastParts = contents[0].Parts
	}
	if f.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return f.resp, f.err
}

type countingUsage struct{ n atomic.Int32 }

func (u *countingUsage) Report(context.Context) { u.n.Add(1) }

func imageResponse(data []byte) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			FinishReason: genai.FinishReasonStop,
			Content: &genai.Content{Parts: []*genai.Part{
				{Text: "here you go"},
				{InlineData: &genai.Blob{MIMEType: "image/png", Data: data}},
				{InlineData: &genai.Blob{MIMEType: "image/png", Data: []byte("second")}},
			}},
		}},
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name   string
		resp   *genai.GenerateContentResponse
		status Status
		reason string
	}{
		{"nil", nil, StatusMalformed, ""},
		{"no candidates", &genai.GenerateContentResponse{}, StatusMalformed, ""},
		{
			"prompt blocked",
			&genai.GenerateContentResponse{PromptFeedback: &genai.GenerateContentResponsePromptFeedback{BlockReason: genai.BlockedReasonSafety}},
			StatusBlocked, string(genai.BlockedReasonSafety),
		},
		{
			"finish reason safety",
			&genai.GenerateContentResponse{Candidates: []*genai.Candidate{{FinishReason: genai.FinishReasonSafety}}},
			StatusBlocked, string(genai.FinishReasonSafety),
		},
		{
			"text only",
			&genai.GenerateContentResponse{Candidates: []*genai.Candidate{{
				FinishReason: genai.FinishReasonStop,
				Content:      &genai.Content{Parts: []*genai.Part{{Text: "I cannot do that"}}},
			}}},
			StatusMalformed, "",
		},
		{"image", imageResponse([]byte("png-bytes")), StatusSuccess, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Classify(tt.resp)
			assert.Equal(t, tt.status, res.Status)
			assert.Equal(t, tt.reason, res.Reason)
		})
	}
}

func TestGenerateReturnsFirstImage(t *testing.T) {
	models := &fakeModels{resp: imageResponse([]byte("first"))}
	usage := &countingUsage{}
	c := newClient(models, Options{Usage: usage})

	img, err := c.Generate(context.Background(), jpegMagic, "make it historic")
	require.NoError(t, err)
	assert.Equal(t, []byte("first"), img.Data)
	assert.Equal(t, "image/png", img.MimeType)
	assert.Equal(t, int32(1), usage.n.Load())

	assert.Equal(t, DefaultModel, models.lastModel)
	require.NotNil(t, models.lastConfig)
	require.NotNil(t, models.lastConfig.ImageConfig)
	assert.Equal(t, "9:16", models.lastConfig.ImageConfig.AspectRatio)
	assert.Len(t, models.lastConfig.SafetySettings, 5)
	for _, s := range models.lastConfig.SafetySettings {
		assert.Equal(t, genai.HarmBlockThresholdBlockNone, s.Threshold)
	}

	require.Len(t, models.lastParts, 2)
	require.NotNil(t, models.lastParts[0].InlineData)
	assert.Equal(t, "image/jpeg", models.lastParts[0].InlineData.MIMEType)
	assert.Equal(t, "make it historic", models.lastParts[1].Text)
}

func TestGenerateFailuresAreRetryable(t *testing.T) {
	tests := []struct {
		name   string
		models *fakeModels
		target error
	}{
		{"transport", &fakeModels{err: errors.New("connection reset")}, nil},
		{"blocked", &fakeModels{resp: &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{FinishReason: genai.FinishReasonProhibitedContent}}}}, nil},
		{"malformed", &fakeModels{resp: &genai.GenerateContentResponse{}}, ErrMalformedResponse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			usage := &countingUsage{}
			c := newClient(tt.models, Options{Usage: usage})

			_, err := c.Generate(context.Background(), jpegMagic, "x")
			require.Error(t, err)
			assert.True(t, apperr.Is(err, apperr.KindGeneration))
			assert.True(t, apperr.Retryable(err))
			if tt.target != nil {
				assert.ErrorIs(t, err, tt.target)
			}
			assert.Equal(t, int32(0), usage.n.Load())
		})
	}

	t.Run("blocked reason", func(t *testing.T) {
		c := newClient(&fakeModels{resp: &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{FinishReason: genai.FinishReasonSafety}}}}, Options{})
		_, err := c.Generate(context.Background(), jpegMagic, "x")
		var blocked *BlockedError
		require.ErrorAs(t, err, &blocked)
		assert.Equal(t, string(genai.FinishReasonSafety), blocked.Reason)
	})
}

func TestGenerateTimeoutIsRetryable(t *testing.T) {
	c := newClient(&fakeModels{block: true}, Options{Timeout: 20 * time.Millisecond})

	_, err := c.Generate(context.Background(), jpegMagic, "x")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.True(t, apperr.Retryable(err))
}

func TestGenerateEmptyImage(t *testing.T) {
	models := &fakeModels{}
	c := newClient(models, Options{})
	_, err := c.Generate(context.Background(), nil, "x")
	assert.True(t, apperr.Is(err, apperr.KindGeneration))
	assert.Equal(t, 0, models.calls)
}

func TestNewRequiresAPIKey(t *testing.T) {
	_, err := New(context.Background(), Options{APIKey: "  "})
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindConfiguration))
	assert.False(t, apperr.Retryable(err))
}
