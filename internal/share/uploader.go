// Package share publishes finished artifacts: the QR upload service the
// guest scans, and an optional Telegram channel.
package share

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/png"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/chai2010/webp"

	"era-photobooth/internal/compositor"
)

const (
	DefaultUploadURL = "https://qr-web-api.vercel.app/upload"
	DefaultFolder    = "era-photobooth"

	FormatPNG  = "png"
	FormatWebP = "webp"

	maxResponseBytes = 1 << 20
)

var ErrNoURL = errors.New("upload response has no qr code url")

// Metadata travels with the upload as a JSON form field.
type Metadata struct {
	Event   string `json:"event,omitempty"`
	BoothID string `json:"photobooth_id,omitempty"`
	Era     string `json:"era"`
	Prompt  string `json:"prompt,omitempty"`
}

type UploaderOptions struct {
	URL        string
	Format     string
	Folder     string
	Event      string
	BoothID    string
	HTTPClient *http.Client
	Timeout    time.Duration
	Logger     *slog.Logger
}

type Uploader struct {
	url        string
	format     string
	folder     string
	event      string
	boothID    string
	httpClient *http.Client
	timeout    time.Duration
	logger     *slog.Logger
}

func NewUploader(opts UploaderOptions) (*Uploader, error) {
	format := strings.ToLower(strings.TrimSpace(opts.Format))
	switch format {
	case "":
		format = FormatPNG
	case FormatPNG, FormatWebP:
	default:
		return nil, fmt.Errorf("unsupported share format %q", opts.Format)
	}

	u := &Uploader{
		url:        strings.TrimSpace(opts.URL),
		format:     format,
		folder:     opts.Folder,
		event:      opts.Event,
		boothID:    opts.BoothID,
		httpClient: opts.HTTPClient,
		timeout:    opts.Timeout,
		logger:     opts.Logger,
	}
	if u.url == "" {
		u.url = DefaultUploadURL
	}
	if u.folder == "" {
		u.folder = DefaultFolder
	}
	if u.httpClient == nil {
		u.httpClient = http.DefaultClient
	}
	if u.timeout <= 0 {
		u.timeout = 30 * time.Second
	}
	if u.logger == nil {
		u.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return u, nil
}

// Upload posts the artifact and returns the URL the guest's QR code points at.
func (u *Uploader) Upload(ctx context.Context, art *compositor.Artifact, era, prompt string) (string, error) {
	if art == nil || len(art.PNG) == 0 {
		return "", errors.New("artifact is empty")
	}

	data, name, err := u.encode(art)
	if err != nil {
		return "", err
	}

	meta, err := json.Marshal(Metadata{Event: u.event, BoothID: u.boothID, Era: era, Prompt: prompt})
	if err != nil {
		return "", err
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("image", name)
	if err != nil {
		return "", err
	}
	if _, err := part.Write(data); err != nil {
		return "", err
	}
	if err := mw.WriteField("folder", u.folder); err != nil {
		return "", err
	}
	if err := mw.WriteField("metadata", string(meta)); err != nil {
		return "", err
	}
	if err := mw.Close(); err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(ctx, u.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.url, &body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	start := time.Now()
	resp, err := u.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("share upload: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", err
	}
	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("share upload %s: %s", resp.Status, strings.TrimSpace(string(raw)))
	}

	var out struct {
		QRCodeURL string `json:"qrCodeUrl"`
		URL       string `json:"url"`
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", fmt.Errorf("decode share response: %w", err)
	}
	link := strings.TrimSpace(out.QRCodeURL)
	if link == "" {
		link = strings.TrimSpace(out.URL)
	}
	if link == "" {
		return "", ErrNoURL
	}

	u.logger.Info("artifact shared", "artifact", art.ID, "format", u.format, "bytes", len(data), "dur_ms", time.Since(start).Milliseconds())
	return link, nil
}

func (u *Uploader) encode(art *compositor.Artifact) ([]byte, string, error) {
	name := "result-" + art.ID
	if u.format == FormatPNG {
		return art.PNG, name + ".png", nil
	}

	img, err := png.Decode(bytes.NewReader(art.PNG))
	if err != nil {
		return nil, "", fmt.Errorf("decode artifact: %w", err)
	}
	data, err := encodeWebP(img)
	if err != nil {
		return nil, "", err
	}
	return data, name + ".webp", nil
}

func encodeWebP(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := webp.Encode(&buf, img, &webp.Options{Quality: 90}); err != nil {
		return nil, fmt.Errorf("encode webp: %w", err)
	}
	return buf.Bytes(), nil
}
