package scanner

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"
)

// Arbiter defaults.
const (
	DefaultTickInterval = 300 * time.Millisecond
	DefaultCooldown     = 1500 * time.Millisecond
)

// State is the arbiter's position in the scan lifecycle.
type State int

const (
	StateIdle State = iota
	StateScanning
	StateAccepted
	StatePermissionDenied
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateScanning:
		return "scanning"
	case StateAccepted:
		return "accepted"
	case StatePermissionDenied:
		return "permission_denied"
	default:
		return "unknown"
	}
}

// ArbiterConfig holds scan loop tuning.
type ArbiterConfig struct {
	// TickInterval is how often a frame is captured and decoded.
	TickInterval time.Duration

	// Cooldown is the minimum time between two accepted decodes. Repeat
	// decodes of a label still in frame are dropped inside this window.
	Cooldown time.Duration

	// Facing is the initial camera facing mode.
	Facing Facing

	// OnError receives user-visible stream errors. May be nil.
	OnError func(error)
}

// Arbiter drives the capture, preprocess and decode loop. Each Start opens a
// scan session that ends with exactly one accepted decode (or an explicit
// Stop); the result callback fires once and the session closes itself.
//
// Ticks are strictly serialized: decoding runs inline in the loop goroutine,
// so a slow decode delays the next tick instead of overlapping it.
type Arbiter struct {
	open SourceOpener
	dec  FrameDecoder
	cfg  ArbiterConfig

	mu           sync.Mutex
	state        State
	facing       Facing
	torch        bool
	src          Source
	lastAccepted time.Time
	onScan       func(text string)
	stop         chan struct{}
}

// NewArbiter creates an arbiter over the given source opener and decoder.
func NewArbiter(open SourceOpener, dec FrameDecoder, cfg ArbiterConfig) *Arbiter {
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = DefaultTickInterval
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = DefaultCooldown
	}
	if cfg.Facing == "" {
		cfg.Facing = FacingBack
	}
	return &Arbiter{
		open:   open,
		dec:    dec,
		cfg:    cfg,
		state:  StateIdle,
		facing: cfg.Facing,
	}
}

// State returns the arbiter's current state.
func (a *Arbiter) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// Facing returns the current facing mode.
func (a *Arbiter) Facing() Facing {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.facing
}

// Start requests camera access and begins the scan loop. onScan is invoked
// exactly once, with the first accepted decode, after which the session closes
// and the arbiter returns to Idle. A permission denial moves the arbiter to
// PermissionDenied; Retry re-requests access.
func (a *Arbiter) Start(ctx context.Context, onScan func(text string)) error {
	a.mu.Lock()
	if a.state == StateScanning {
		a.mu.Unlock()
		return errors.New("scan already in progress")
	}
	facing := a.facing
	a.onScan = onScan
	a.mu.Unlock()

	src, err := a.open(ctx, facing)
	if err != nil {
		a.mu.Lock()
		if errors.Is(err, ErrPermissionDenied) {
			a.state = StatePermissionDenied
		} else {
			a.state = StateIdle
		}
		a.mu.Unlock()
		return err
	}

	a.mu.Lock()
	a.src = src
	a.state = StateScanning
	a.stop = make(chan struct{})
	stop := a.stop
	a.mu.Unlock()

	go a.run(ctx, src, stop)
	return nil
}

// Retry re-requests camera access after a permission denial.
func (a *Arbiter) Retry(ctx context.Context) error {
	a.mu.Lock()
	if a.state != StatePermissionDenied {
		a.mu.Unlock()
		return errors.New("retry only valid after permission denial")
	}
	a.state = StateIdle
	onScan := a.onScan
	a.mu.Unlock()

	return a.Start(ctx, onScan)
}

// run is the tick loop. It owns src and closes it on exit.
func (a *Arbiter) run(ctx context.Context, src Source, stop chan struct{}) {
	ticker := time.NewTicker(a.cfg.TickInterval)
	defer ticker.Stop()
	defer src.Close()

	for {
		select {
		case <-ctx.Done():
			a.setState(StateIdle)
			return
		case <-stop:
			return
		case <-ticker.C:
			if done := a.tick(ctx, src); done {
				return
			}
		}
	}
}

// tick captures one frame, runs the preprocessing variants through the
// decoder in order, and applies the cool-down check. Returns true when the
// session is over (accepted decode or stream failure).
func (a *Arbiter) tick(ctx context.Context, src Source) bool {
	frame, err := src.Snapshot(ctx)
	if err != nil {
		if ctx.Err() != nil {
			a.setState(StateIdle)
			return true
		}
		log.Printf("[Arbiter] stream error: %v", err)
		a.setState(StateIdle)
		if a.cfg.OnError != nil {
			a.cfg.OnError(err)
		}
		return true
	}

	text, _, err := DecodeFrame(a.dec, frame)
	if err != nil {
		// Not found this tick; keep scanning.
		return false
	}

	a.mu.Lock()
	if time.Since(a.lastAccepted) <= a.cfg.Cooldown {
		// Same physical label still in frame; drop silently.
		a.mu.Unlock()
		return false
	}
	a.lastAccepted = time.Now()
	a.state = StateAccepted
	onScan := a.onScan
	a.src = nil
	a.mu.Unlock()

	if onScan != nil {
		onScan(text)
	}

	a.setState(StateIdle)
	return true
}

// ToggleFacing switches between the front and back camera. If a scan is in
// progress the stream is torn down and reacquired with the new facing mode.
func (a *Arbiter) ToggleFacing(ctx context.Context) error {
	a.mu.Lock()
	if a.facing == FacingBack {
		a.facing = FacingFront
	} else {
		a.facing = FacingBack
	}
	scanning := a.state == StateScanning
	onScan := a.onScan
	a.mu.Unlock()

	if !scanning {
		return nil
	}

	a.Stop()
	return a.Start(ctx, onScan)
}

// SetTorch toggles the flashlight on the active source. A no-op when not
// scanning or when the device lacks the capability.
func (a *Arbiter) SetTorch(on bool) error {
	a.mu.Lock()
	src := a.src
	a.torch = on
	a.mu.Unlock()

	if src == nil {
		return nil
	}
	return src.SetTorch(on)
}

// Stop ends the scan session without a result and returns the arbiter to
// Idle. Safe to call in any state.
func (a *Arbiter) Stop() {
	a.mu.Lock()
	if a.stop != nil {
		select {
		case <-a.stop:
		default:
			close(a.stop)
		}
		a.stop = nil
	}
	a.src = nil
	if a.state == StateScanning {
		a.state = StateIdle
	}
	a.mu.Unlock()
}

func (a *Arbiter) setState(s State) {
	a.mu.Lock()
	a.state = s
	a.mu.Unlock()
}
