package share

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/chai2010/webp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"era-photobooth/internal/compositor"
)

func testArtifact(t *testing.T) *compositor.Artifact {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 1080, 1920))
	for i := range img.Pix {
		img.Pix[i] = 0xff
	}
	img.SetNRGBA(10, 10, color.NRGBA{R: 1, A: 255})
	art, err := compositor.NewArtifact(img)
	require.NoError(t, err)
	return art
}

type upload struct {
	filename string
	data     []byte
	folder   string
	meta     Metadata
}

func uploadServer(t *testing.T, status int, response string) (*httptest.Server, *[]upload) {
	t.Helper()
	var got []upload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		if err := r.ParseMultipartForm(32 << 20); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		f, hdr, err := r.FormFile("image")
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		data, _ := io.ReadAll(f)
		u := upload{filename: hdr.Filename, data: data, folder: r.FormValue("folder")}
		_ = json.Unmarshal([]byte(r.FormValue("metadata")), &u.meta)
		got = append(got, u)

		w.WriteHeader(status)
		_, _ = io.WriteString(w, response)
	}))
	t.Cleanup(srv.Close)
	return srv, &got
}

func TestUploadPNG(t *testing.T) {
	srv, got := uploadServer(t, http.StatusOK, `{"qrCodeUrl":"https://qr.example/abc"}`)
	u, err := NewUploader(UploaderOptions{URL: srv.URL, Event: "Ramadan Nights", BoothID: "booth_1"})
	require.NoError(t, err)

	art := testArtifact(t)
	link, err := u.Upload(context.Background(), art, "Kunafa Dessert Maker", "prompt text")
	require.NoError(t, err)
	assert.Equal(t, "https://qr.example/abc", link)

	require.Len(t, *got, 1)
	up := (*got)[0]
	assert.Equal(t, "result-"+art.ID+".png", up.filename)
	assert.Equal(t, art.PNG, up.data)
	assert.Equal(t, DefaultFolder, up.folder)
	assert.Equal(t, Metadata{Event: "Ramadan Nights", BoothID: "booth_1", Era: "Kunafa Dessert Maker", Prompt: "prompt text"}, up.meta)
}

func TestUploadWebP(t *testing.T) {
	srv, got := uploadServer(t, http.StatusOK, `{"url":"https://qr.example/webp"}`)
	u, err := NewUploader(UploaderOptions{URL: srv.URL, Format: "WEBP"})
	require.NoError(t, err)

	link, err := u.Upload(context.Background(), testArtifact(t), "Snap a Memory", "")
	require.NoError(t, err)
	assert.Equal(t, "https://qr.example/webp", link)

	require.Len(t, *got, 1)
	cfg, err := webp.DecodeConfig(bytes.NewReader((*got)[0].data))
	require.NoError(t, err)
	assert.Equal(t, 1080, cfg.Width)
	assert.Equal(t, 1920, cfg.Height)
}

func TestUploadFailures(t *testing.T) {
	t.Run("server error", func(t *testing.T) {
		srv, _ := uploadServer(t, http.StatusBadGateway, "upstream down")
		u, err := NewUploader(UploaderOptions{URL: srv.URL})
		require.NoError(t, err)
		_, err = u.Upload(context.Background(), testArtifact(t), "era", "")
		assert.ErrorContains(t, err, "upstream down")
	})

	t.Run("missing url", func(t *testing.T) {
		srv, _ := uploadServer(t, http.StatusOK, `{}`)
		u, err := NewUploader(UploaderOptions{URL: srv.URL})
		require.NoError(t, err)
		_, err = u.Upload(context.Background(), testArtifact(t), "era", "")
		assert.ErrorIs(t, err, ErrNoURL)
	})

	t.Run("empty artifact", func(t *testing.T) {
		u, err := NewUploader(UploaderOptions{})
		require.NoError(t, err)
		_, err = u.Upload(context.Background(), nil, "era", "")
		assert.Error(t, err)
	})

	t.Run("bad format", func(t *testing.T) {
		_, err := NewUploader(UploaderOptions{Format: "gif"})
		assert.Error(t, err)
	})
}

type fakePhotoSender struct {
	chatID  int64
	name    string
	data    []byte
	caption string
	err     error
}

func (f *fakePhotoSender) SendPhoto(chatID int64, name string, data []byte, caption string) error {
	f.chatID, f.name, f.data, f.caption = chatID, name, data, caption
	return f.err
}

func TestChannelPublisher(t *testing.T) {
	sender := &fakePhotoSender{}
	p := NewChannelPublisher(sender, -1001)
	art := testArtifact(t)

	require.NoError(t, p.Publish(art, "Lantern Maker"))
	assert.Equal(t, int64(-1001), sender.chatID)
	assert.Equal(t, "Lantern Maker", sender.caption)
	assert.Equal(t, art.PNG, sender.data)

	sender.err = errors.New("flood wait")
	assert.ErrorContains(t, p.Publish(art, ""), "flood wait")
	assert.Equal(t, "Photobooth", sender.caption)
}
