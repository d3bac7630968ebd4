package demographics

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ollama/ollama/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"era-photobooth/internal/apperr"
)

func age(v float64) *float64 { return &v }

func TestTally(t *testing.T) {
	tests := []struct {
		name  string
		faces []Face
		want  Result
	}{
		{"no faces", nil, Default()},
		{"single man", []Face{{Gender: "male", Age: age(40)}}, Result{Male: 1, Total: 1}},
		{"child regardless of gender", []Face{{Gender: "male", Age: age(9)}}, Result{Child: 1, Total: 1}},
		{"age rounds up to adult", []Face{{Gender: "male", Age: age(14.6)}}, Result{Male: 1, Total: 1}},
		{"unknown gender is female", []Face{{Gender: "unknown", Age: age(33)}}, Result{Female: 1, Total: 1}},
		{"unknown age is adult", []Face{{Gender: "Male"}}, Result{Male: 1, Total: 1}},
		{
			"family",
			[]Face{
				{Gender: "male", Age: age(41)},
				{Gender: "male", Age: age(19)},
				{Gender: "female", Age: age(38)},
				{Gender: "female", Age: age(6)},
			},
			Result{Male: 2, Female: 1, Child: 1, Total: 4},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Tally(tt.faces))
		})
	}
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, Default(), Result{}.Normalize())
	assert.Equal(t, Default(), Result{Male: -1, Total: 2}.Normalize())
	assert.Equal(t, Result{Male: 1, Total: 1}, Result{Male: 1, Total: 1}.Normalize())
}

type fakeBackend struct {
	loadCalls   atomic.Int32
	loadErr     error
	loadDelay   time.Duration
	faces       []Face
	detectErr   error
	detectCalls atomic.Int32
}

func (f *fakeBackend) Load(ctx context.Context) error {
	f.loadCalls.Add(1)
	if f.loadDelay > 0 {
		time.Sleep(f.loadDelay)
	}
	return f.loadErr
}

func (f *fakeBackend) DetectFaces(ctx context.Context, image []byte) ([]Face, error) {
	f.detectCalls.Add(1)
	return f.faces, f.detectErr
}

func TestClassifierDefaults(t *testing.T) {
	ctx := context.Background()

	t.Run("no backend", func(t *testing.T) {
		c := NewClassifier(Options{})
		assert.Equal(t, Default(), c.Detect(ctx, nil))
	})

	t.Run("zero faces", func(t *testing.T) {
		c := NewClassifier(Options{Backend: &fakeBackend{}})
		assert.Equal(t, Default(), c.Detect(ctx, nil))
	})

	t.Run("detector error", func(t *testing.T) {
		c := NewClassifier(Options{Backend: &fakeBackend{detectErr: errors.New("gpu gone")}})
		assert.Equal(t, Default(), c.Detect(ctx, nil))
	})

	t.Run("detected", func(t *testing.T) {
		c := NewClassifier(Options{Backend: &fakeBackend{faces: []Face{{Gender: "male", Age: age(30)}}}})
		assert.Equal(t, Result{Male: 1, Total: 1}, c.Detect(ctx, nil))
	})
}

func TestClassifierLoadsOnceConcurrently(t *testing.T) {
	backend := &fakeBackend{loadDelay: 50 * time.Millisecond}
	c := NewClassifier(Options{Backend: backend})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Detect(context.Background(), nil)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), backend.loadCalls.Load())
	assert.Equal(t, int32(8), backend.detectCalls.Load())

	c.Detect(context.Background(), nil)
	assert.Equal(t, int32(1), backend.loadCalls.Load())
}

func TestClassifierRetriesFailedLoad(t *testing.T) {
	backend := &fakeBackend{loadErr: errors.New("model missing")}
	c := NewClassifier(Options{Backend: backend})

	assert.Equal(t, Default(), c.Detect(context.Background(), nil))
	assert.Equal(t, int32(0), backend.detectCalls.Load())

	backend.loadErr = nil
	backend.faces = []Face{{Gender: "female", Age: age(25)}, {Gender: "female", Age: age(27)}}
	assert.Equal(t, Result{Female: 2, Total: 2}, c.Detect(context.Background(), nil))
	assert.Equal(t, int32(2), backend.loadCalls.Load())
}

func TestParseFaces(t *testing.T) {
	faces, err := parseFaces("```json\n{\"faces\":[{\"gender\":\"male\",\"age\":35,\"confidence\":0.9},{\"gender\":\"female\",\"age\":null,\"confidence\":0.2}]}\n```")
	require.NoError(t, err)
	require.Len(t, faces, 1)
	assert.Equal(t, "male", faces[0].Gender)
	require.NotNil(t, faces[0].Age)
	assert.Equal(t, 35.0, *faces[0].Age)

	faces, err = parseFaces(`Sure! {"faces":[{"gender":"unknown"}]} Hope this helps.`)
	require.NoError(t, err)
	require.Len(t, faces, 1)
	assert.Nil(t, faces[0].Age)

	_, err = parseFaces("I see two people.")
	assert.Error(t, err)
}

type fakeOllama struct {
	reply   string
	down    error
	lastReq *api.ChatRequest
}

func (f *fakeOllama) Heartbeat(ctx context.Context) error { return f.down }

func (f *fakeOllama) Show(ctx context.Context, req *api.ShowRequest) (*api.ShowResponse, error) {
	return &api.ShowResponse{}, nil
}

func (f *fakeOllama) Chat(ctx context.Context, req *api.ChatRequest, fn api.ChatResponseFunc) error {
	f.lastReq = req
	return fn(api.ChatResponse{Message: api.Message{Role: "assistant", Content: f.reply}})
}

func testJPEG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 90, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, nil))
	return buf.Bytes()
}

func TestOllamaBackendDetectFaces(t *testing.T) {
	fake := &fakeOllama{reply: `{"faces":[{"gender":"male","age":44,"confidence":0.8},{"gender":"female","age":8,"confidence":0.7}]}`}
	b := &OllamaBackend{client: fake, model: "llava", timeout: time.Second}

	require.NoError(t, b.Load(context.Background()))

	faces, err := b.DetectFaces(context.Background(), testJPEG(t, 1200, 900))
	require.NoError(t, err)
	assert.Equal(t, Result{Male: 1, Child: 1, Total: 2}, Tally(faces))

	require.NotNil(t, fake.lastReq)
	require.Len(t, fake.lastReq.Messages, 1)
	require.Len(t, fake.lastReq.Messages[0].Images, 1)

	scaled, _, err := image.Decode(bytes.NewReader(fake.lastReq.Messages[0].Images[0]))
	require.NoError(t, err)
	assert.Equal(t, 512, scaled.Bounds().Dx())
	assert.Equal(t, 384, scaled.Bounds().Dy())
}

func TestNewOllamaBackendRejectsBadURL(t *testing.T) {
	_, err := NewOllamaBackend(OllamaOptions{BaseURL: "not a url"})
	assert.Error(t, err)

	b, err := NewOllamaBackend(OllamaOptions{BaseURL: "http://127.0.0.1:11434/api/chat"})
	require.NoError(t, err)
	assert.Equal(t, "llava", b.model)
}

func TestOllamaBackendUnreachable(t *testing.T) {
	fake := &fakeOllama{down: errors.New("connection refused")}
	b := &OllamaBackend{client: fake, model: "llava", timeout: time.Second}

	err := b.Load(context.Background())
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindDetectionUnavailable))

	c := NewClassifier(Options{Backend: b})
	assert.Equal(t, Default(), c.Detect(context.Background(), testJPEG(t, 32, 32)))
}
