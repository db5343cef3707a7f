package scanner

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"log"
	"mime"
	"mime/multipart"
	"net/http"
	"sync"
	"time"
)

// Camera access errors. ErrPermissionDenied is terminal until the user
// retries; ErrStream covers transient stream failures.
var (
	ErrPermissionDenied = errors.New("camera permission denied")
	ErrStream           = errors.New("camera stream error")
)

// Facing selects which camera a source captures from.
type Facing string

const (
	FacingBack  Facing = "back"
	FacingFront Facing = "front"
)

// Source produces still-image snapshots from a live capture stream.
type Source interface {
	// Snapshot returns the next frame from the stream.
	Snapshot(ctx context.Context) (image.Image, error)

	// SetTorch toggles the device flashlight if supported; a no-op otherwise.
	SetTorch(on bool) error

	// Close releases the underlying capture resource.
	Close() error
}

// SourceOpener acquires a capture source for the given facing mode. Switching
// facing tears down the current source and opens a new one; no two sources
// are held concurrently.
type SourceOpener func(ctx context.Context, facing Facing) (Source, error)

// MJPEGConfig configures an MJPEG network camera source (for example the
// stream endpoints exposed by IP camera apps).
type MJPEGConfig struct {
	// BackURL and FrontURL are the multipart/x-mixed-replace stream endpoints
	// per facing mode. FrontURL may be empty if the device has one camera.
	BackURL  string
	FrontURL string

	// TorchOnURL and TorchOffURL, when set, are hit to toggle the device
	// flashlight. Empty means the capability is not advertised.
	TorchOnURL  string
	TorchOffURL string

	Client *http.Client
}

// MJPEGSource reads frames from an HTTP multipart MJPEG stream.
type MJPEGSource struct {
	cfg    MJPEGConfig
	facing Facing

	mu     sync.Mutex
	resp   *http.Response
	frames *multipart.Reader
}

// OpenMJPEG connects to the camera stream for the given facing mode. An HTTP
// 401 or 403 maps to ErrPermissionDenied; any other failure wraps ErrStream.
func OpenMJPEG(ctx context.Context, cfg MJPEGConfig, facing Facing) (*MJPEGSource, error) {
	url := cfg.BackURL
	if facing == FacingFront && cfg.FrontURL != "" {
		url = cfg.FrontURL
	}
	if url == "" {
		return nil, fmt.Errorf("%w: no stream URL configured for facing %q", ErrStream, facing)
	}

	client := cfg.Client
	if client == nil {
		client = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStream, err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: connecting to camera: %v", ErrStream, err)
	}

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusUnauthorized, http.StatusForbidden:
		resp.Body.Close()
		return nil, ErrPermissionDenied
	default:
		resp.Body.Close()
		return nil, fmt.Errorf("%w: camera returned status %d", ErrStream, resp.StatusCode)
	}

	mediaType, params, err := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if err != nil || mediaType != "multipart/x-mixed-replace" || params["boundary"] == "" {
		resp.Body.Close()
		return nil, fmt.Errorf("%w: unexpected content type %q", ErrStream, resp.Header.Get("Content-Type"))
	}

	log.Printf("[MJPEGSource] Connected to %s camera stream", facing)
	return &MJPEGSource{
		cfg:    cfg,
		facing: facing,
		resp:   resp,
		frames: multipart.NewReader(resp.Body, params["boundary"]),
	}, nil
}

// Snapshot reads and decodes the next JPEG frame from the stream.
func (s *MJPEGSource) Snapshot(ctx context.Context) (image.Image, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.frames == nil {
		return nil, fmt.Errorf("%w: source closed", ErrStream)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	part, err := s.frames.NextPart()
	if err != nil {
		return nil, fmt.Errorf("%w: reading frame: %v", ErrStream, err)
	}
	defer part.Close()

	img, err := jpeg.Decode(part)
	if err != nil {
		return nil, fmt.Errorf("%w: decoding frame: %v", ErrStream, err)
	}
	return img, nil
}

// Facing returns the facing mode this source was opened with.
func (s *MJPEGSource) Facing() Facing {
	return s.facing
}

// SetTorch toggles the camera flashlight via the configured control URLs.
// A no-op when the camera does not advertise torch control.
func (s *MJPEGSource) SetTorch(on bool) error {
	url := s.cfg.TorchOnURL
	if !on {
		url = s.cfg.TorchOffURL
	}
	if url == "" {
		return nil
	}

	client := s.cfg.Client
	if client == nil {
		client = http.DefaultClient
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("toggling torch: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("toggling torch: %w", err)
	}
	resp.Body.Close()
	return nil
}

// Close releases the stream connection.
func (s *MJPEGSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.frames = nil
	if s.resp != nil {
		err := s.resp.Body.Close()
		s.resp = nil
		return err
	}
	return nil
}

// NewMJPEGOpener returns a SourceOpener backed by OpenMJPEG.
func NewMJPEGOpener(cfg MJPEGConfig) SourceOpener {
	return func(ctx context.Context, facing Facing) (Source, error) {
		return OpenMJPEG(ctx, cfg, facing)
	}
}
