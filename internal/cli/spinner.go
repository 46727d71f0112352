package cli

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"
)

// Spinner animates a phase indicator on stderr while a long step runs.
// The message can be swapped mid-run, so multi-phase work (resolving the
// project, then rendering the graph) reports the phase currently in flight.
// Once a phase has been running for a while the elapsed time is appended.
type Spinner struct {
	ctx     context.Context
	cancel  context.CancelFunc
	stopped chan struct{}
	stop    sync.Once

	mu      sync.Mutex
	message string
	started time.Time
	width   int
}

// spinnerFrames cycle at spinnerInterval; elapsed time is shown once a
// phase outlives spinnerSlowAfter.
var spinnerFrames = []string{"⣾", "⣽", "⣻", "⢿", "⡿", "⣟", "⣯", "⣷"}

const (
	spinnerInterval  = 100 * time.Millisecond
	spinnerSlowAfter = 2 * time.Second
)

// newSpinner creates a spinner for the given phase message.
func newSpinner(message string) *Spinner {
	return newSpinnerWithContext(context.Background(), message)
}

// newSpinnerWithContext creates a spinner that also stops when the context
// is cancelled, clearing its line so an interrupt leaves no debris.
func newSpinnerWithContext(ctx context.Context, message string) *Spinner {
	spinnerCtx, cancel := context.WithCancel(ctx)
	return &Spinner{
		ctx:     spinnerCtx,
		cancel:  cancel,
		stopped: make(chan struct{}),
		message: message,
	}
}

// Start begins the animation.
func (s *Spinner) Start() {
	s.mu.Lock()
	s.started = time.Now()
	s.mu.Unlock()

	go func() {
		defer close(s.stopped)
		ticker := time.NewTicker(spinnerInterval)
		defer ticker.Stop()

		for frame := 0; ; frame++ {
			select {
			case <-s.ctx.Done():
				s.clearLine()
				return
			case <-ticker.C:
				s.draw(spinnerFrames[frame%len(spinnerFrames)])
			}
		}
	}()
}

// SetMessage switches the phase message without restarting the spinner.
// The elapsed readout resets so each phase is timed on its own.
func (s *Spinner) SetMessage(message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.message = message
	s.started = time.Now()
}

// draw repaints the spinner line with the current phase and, for slow
// phases, the elapsed seconds.
func (s *Spinner) draw(frame string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	text := s.message
	if elapsed := time.Since(s.started); elapsed >= spinnerSlowAfter {
		text = fmt.Sprintf("%s (%ds)", s.message, int(elapsed.Seconds()))
	}

	line := fmt.Sprintf("%s %s", styleIconSpinner.Render(frame), StyleDim.Render(text))
	pad := ""
	if w := len(frame) + len(text) + 1; w < s.width {
		pad = strings.Repeat(" ", s.width-w)
	} else {
		s.width = len(frame) + len(text) + 1
	}
	fmt.Fprintf(os.Stderr, "\r%s%s", line, pad)
}

// Stop halts the animation and clears the line. Safe to call twice.
func (s *Spinner) Stop() {
	s.stop.Do(func() {
		s.cancel()
		<-s.stopped
	})
}

// StopWithSuccess stops the spinner and prints a success line in its place.
func (s *Spinner) StopWithSuccess(message string) {
	s.Stop()
	printSuccess("%s", message)
}

// StopWithError stops the spinner and prints an error line in its place.
func (s *Spinner) StopWithError(message string) {
	s.Stop()
	printError("%s", message)
}

// Cancelled reports whether the spinner's context was cancelled, which
// includes a plain Stop. Callers that care about interrupts should check
// their own context.
func (s *Spinner) Cancelled() bool {
	return s.ctx.Err() != nil
}

func (s *Spinner) clearLine() {
	s.mu.Lock()
	defer s.mu.Unlock()
	width := s.width
	if w := len(s.message) + 4; w > width {
		width = w
	}
	fmt.Fprintf(os.Stderr, "\r%s\r", strings.Repeat(" ", width))
}
