package scanner

import (
	"context"
	"errors"
	"image"
	"sync"
	"testing"
	"time"

	"scanhub-api/pkg/barcode"
)

type fakeSource struct {
	mu       sync.Mutex
	closed   bool
	torch    bool
	snapErr  error
	snapshot image.Image
}

func newFakeSource() *fakeSource {
	return &fakeSource{snapshot: image.NewRGBA(image.Rect(0, 0, 8, 8))}
}

func (s *fakeSource) Snapshot(ctx context.Context) (image.Image, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.snapErr != nil {
		return nil, s.snapErr
	}
	return s.snapshot, nil
}

func (s *fakeSource) SetTorch(on bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.torch = on
	return nil
}

func (s *fakeSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *fakeSource) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

type fakeDecoder struct {
	mu    sync.Mutex
	calls int
	text  string
	err   error
}

func (d *fakeDecoder) Decode(img image.Image) (string, barcode.Format, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls++
	if d.err != nil {
		return "", "", d.err
	}
	return d.text, barcode.EAN13, nil
}

func (d *fakeDecoder) callCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.calls
}

func staticOpener(src Source, err error) SourceOpener {
	return func(ctx context.Context, facing Facing) (Source, error) {
		return src, err
	}
}

func testConfig() ArbiterConfig {
	return ArbiterConfig{
		TickInterval: 5 * time.Millisecond,
		Cooldown:     250 * time.Millisecond,
	}
}

func waitForScan(t *testing.T, ch <-chan string, timeout time.Duration) string {
	t.Helper()
	select {
	case text := <-ch:
		return text
	case <-time.After(timeout):
		t.Fatal("timed out waiting for scan callback")
		return ""
	}
}

func TestArbiterAcceptsExactlyOnce(t *testing.T) {
	src := newFakeSource()
	dec := &fakeDecoder{text: "4006381333931"}
	a := NewArbiter(staticOpener(src, nil), dec, testConfig())

	scans := make(chan string, 8)
	if err := a.Start(context.Background(), func(text string) { scans <- text }); err != nil {
		t.Fatalf("Start: %v", err)
	}

	if got := waitForScan(t, scans, 2*time.Second); got != "4006381333931" {
		t.Errorf("got scan %q", got)
	}

	// The session must close itself after the accepted decode.
	time.Sleep(50 * time.Millisecond)
	select {
	case extra := <-scans:
		t.Errorf("unexpected second callback: %q", extra)
	default:
	}
	if st := a.State(); st != StateIdle {
		t.Errorf("expected Idle after accept, got %v", st)
	}
	if !src.isClosed() {
		t.Error("expected source to be released after accept")
	}
}

func TestArbiterCooldownDropsRepeatDecodes(t *testing.T) {
	dec := &fakeDecoder{text: "4006381333931"}
	opener := func(ctx context.Context, facing Facing) (Source, error) {
		return newFakeSource(), nil
	}
	a := NewArbiter(opener, dec, testConfig())

	scans := make(chan string, 8)
	onScan := func(text string) { scans <- text }

	if err := a.Start(context.Background(), onScan); err != nil {
		t.Fatalf("Start: %v", err)
	}
	waitForScan(t, scans, 2*time.Second)

	// Reopen immediately: the same label decodes on every tick, but the
	// cool-down window must suppress a second acceptance.
	if err := a.Start(context.Background(), onScan); err != nil {
		t.Fatalf("second Start: %v", err)
	}
	select {
	case text := <-scans:
		t.Fatalf("decode accepted inside cool-down window: %q", text)
	case <-time.After(100 * time.Millisecond):
	}

	// After the window elapses the next decode is accepted.
	if got := waitForScan(t, scans, 2*time.Second); got != "4006381333931" {
		t.Errorf("got scan %q", got)
	}
}

func TestArbiterPermissionDenied(t *testing.T) {
	dec := &fakeDecoder{text: "4006381333931"}
	a := NewArbiter(staticOpener(nil, ErrPermissionDenied), dec, testConfig())

	err := a.Start(context.Background(), func(string) {})
	if !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("expected ErrPermissionDenied, got %v", err)
	}
	if st := a.State(); st != StatePermissionDenied {
		t.Errorf("expected PermissionDenied state, got %v", st)
	}

	// The tick loop must never have started.
	time.Sleep(50 * time.Millisecond)
	if n := dec.callCount(); n != 0 {
		t.Errorf("decoder called %d times before permission granted", n)
	}
}

func TestArbiterRetryAfterPermissionDenied(t *testing.T) {
	src := newFakeSource()
	dec := &fakeDecoder{text: "73574620"}

	var mu sync.Mutex
	denied := true
	opener := func(ctx context.Context, facing Facing) (Source, error) {
		mu.Lock()
		defer mu.Unlock()
		if denied {
			return nil, ErrPermissionDenied
		}
		return src, nil
	}

	a := NewArbiter(opener, dec, testConfig())
	scans := make(chan string, 1)

	if err := a.Start(context.Background(), func(text string) { scans <- text }); !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("expected ErrPermissionDenied, got %v", err)
	}

	mu.Lock()
	denied = false
	mu.Unlock()

	if err := a.Retry(context.Background()); err != nil {
		t.Fatalf("Retry: %v", err)
	}
	if got := waitForScan(t, scans, 2*time.Second); got != "73574620" {
		t.Errorf("got scan %q", got)
	}
}

func TestArbiterStreamErrorReturnsToIdle(t *testing.T) {
	src := newFakeSource()
	src.snapErr = errors.New("camera stream error: connection reset")
	dec := &fakeDecoder{text: "4006381333931"}

	errs := make(chan error, 1)
	cfg := testConfig()
	cfg.OnError = func(err error) { errs <- err }

	a := NewArbiter(staticOpener(src, nil), dec, cfg)
	if err := a.Start(context.Background(), func(string) { t.Error("unexpected scan callback") }); err != nil {
		t.Fatalf("Start: %v", err)
	}

	select {
	case <-errs:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for stream error")
	}
	if st := a.State(); st != StateIdle {
		t.Errorf("expected Idle after stream error, got %v", st)
	}
}

func TestArbiterStop(t *testing.T) {
	src := newFakeSource()
	dec := &fakeDecoder{err: ErrNotFound}
	a := NewArbiter(staticOpener(src, nil), dec, testConfig())

	if err := a.Start(context.Background(), func(string) { t.Error("unexpected callback") }); err != nil {
		t.Fatalf("Start: %v", err)
	}
	time.Sleep(30 * time.Millisecond)
	a.Stop()

	time.Sleep(30 * time.Millisecond)
	if st := a.State(); st != StateIdle {
		t.Errorf("expected Idle after Stop, got %v", st)
	}
	if !src.isClosed() {
		t.Error("expected source to be released after Stop")
	}
}

func TestArbiterToggleFacingReopensSource(t *testing.T) {
	dec := &fakeDecoder{err: ErrNotFound}

	var mu sync.Mutex
	var facings []Facing
	opener := func(ctx context.Context, facing Facing) (Source, error) {
		mu.Lock()
		facings = append(facings, facing)
		mu.Unlock()
		return newFakeSource(), nil
	}

	a := NewArbiter(opener, dec, testConfig())
	if err := a.Start(context.Background(), func(string) {}); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := a.ToggleFacing(context.Background()); err != nil {
		t.Fatalf("ToggleFacing: %v", err)
	}
	defer a.Stop()

	mu.Lock()
	defer mu.Unlock()
	if len(facings) != 2 || facings[0] != FacingBack || facings[1] != FacingFront {
		t.Errorf("unexpected facing sequence: %v", facings)
	}
	if a.Facing() != FacingFront {
		t.Errorf("expected front facing, got %v", a.Facing())
	}
}
