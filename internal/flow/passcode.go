package flow

import (
	"crypto/subtle"
	"sync"
	"time"

	"wedding-gate/internal/status"
	"wedding-gate/models"
)

type PasscodeState string

const (
	PasscodeEntering   PasscodeState = "entering"
	PasscodeReady      PasscodeState = "ready"
	PasscodeValidating PasscodeState = "validating"
	PasscodeUnlocked   PasscodeState = "unlocked"
	PasscodeRejected   PasscodeState = "rejected"
)

type PasscodeTimings struct {
	// Validation is how long the gate stays in Validating before comparing.
	Validation time.Duration
	// RejectDisplay is how long Rejected is shown before input resets.
	RejectDisplay time.Duration
}

var DefaultPasscodeTimings = PasscodeTimings{
	Validation:    300 * time.Millisecond,
	RejectDisplay: 1500 * time.Millisecond,
}

// PasscodeGate collects a 4-digit code and checks it against the wedding's
// passcode. Mismatches are always retryable.
type PasscodeGate struct {
	mu       sync.Mutex
	passcode string
	clock    Clock
	timings  PasscodeTimings
	onChange func(PasscodeState)

	state  PasscodeState
	buf    []byte
	timer  Timer
	gen    int
	closed bool
}

func NewPasscodeGate(passcode string, clock Clock, timings PasscodeTimings, onChange func(PasscodeState)) *PasscodeGate {
	if clock == nil {
		clock = RealClock()
	}
	if onChange == nil {
		onChange = func(PasscodeState) {}
	}
	return &PasscodeGate{
		passcode: passcode,
		clock:    clock,
		timings:  timings,
		onChange: onChange,
		state:    PasscodeEntering,
		buf:      make([]byte, 0, models.PasscodeLength),
	}
}

func (g *PasscodeGate) State() PasscodeState {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// Entered returns the number of digits in the buffer.
func (g *PasscodeGate) Entered() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.buf)
}

// Append adds one digit. The fourth digit starts validation.
func (g *PasscodeGate) Append(digit rune) error {
	g.mu.Lock()
	if g.closed || g.state != PasscodeEntering {
		g.mu.Unlock()
		return status.ErrInputDisabled
	}
	if digit < '0' || digit > '9' {
		g.mu.Unlock()
		return status.ErrInvalidDigit
	}

	g.buf = append(g.buf, byte(digit))
	if len(g.buf) < models.PasscodeLength {
		g.mu.Unlock()
		return nil
	}

	// Ready is transient: a full buffer goes straight to Validating.
	g.state = PasscodeValidating
	gen := g.gen
	g.timer = g.clock.AfterFunc(g.timings.Validation, func() { g.validate(gen) })
	g.mu.Unlock()

	g.onChange(PasscodeReady)
	g.onChange(PasscodeValidating)
	return nil
}

// Delete removes the last digit. Deleting from an empty buffer is a no-op.
func (g *PasscodeGate) Delete() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.closed || g.state != PasscodeEntering {
		return status.ErrInputDisabled
	}
	if len(g.buf) > 0 {
		g.buf = g.buf[:len(g.buf)-1]
	}
	return nil
}

// Abort stops any pending timer and disables the gate. It refuses once the
// gate is Unlocked.
func (g *PasscodeGate) Abort() bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.state == PasscodeUnlocked {
		return false
	}
	g.stopLocked()
	g.buf = g.buf[:0]
	g.state = PasscodeEntering
	g.closed = true
	return true
}

// Close stops pending timers. The gate keeps its last state.
func (g *PasscodeGate) Close() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.stopLocked()
	g.closed = true
}

func (g *PasscodeGate) stopLocked() {
	g.gen++
	if g.timer != nil {
		g.timer.Stop()
		g.timer = nil
	}
}

func (g *PasscodeGate) validate(gen int) {
	g.mu.Lock()
	if g.closed || gen != g.gen || g.state != PasscodeValidating {
		g.mu.Unlock()
		return
	}
	g.timer = nil

	if subtle.ConstantTimeCompare(g.buf, []byte(g.passcode)) == 1 {
		g.state = PasscodeUnlocked
		g.mu.Unlock()
		g.onChange(PasscodeUnlocked)
		return
	}

	g.state = PasscodeRejected
	g.timer = g.clock.AfterFunc(g.timings.RejectDisplay, func() { g.resetAfterReject(gen) })
	g.mu.Unlock()
	g.onChange(PasscodeRejected)
}

func (g *PasscodeGate) resetAfterReject(gen int) {
	g.mu.Lock()
	if g.closed || gen != g.gen || g.state != PasscodeRejected {
		g.mu.Unlock()
		return
	}
	g.timer = nil
	g.buf = g.buf[:0]
	g.state = PasscodeEntering
	g.mu.Unlock()
	g.onChange(PasscodeEntering)
}
