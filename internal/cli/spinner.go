package cli

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"
)

// spinnerInterval is the frame period. Slow enough to stay calm on
// fast terminals, fast enough to read as motion.
const spinnerInterval = 120 * time.Millisecond

var spinnerFrames = []string{"◐", "◓", "◑", "◒"}

// spinner is a single-line activity indicator for operations with no
// measurable progress, such as waiting on the Graphviz layout. It
// writes to stderr so command output on stdout stays clean.
type spinner struct {
	message string
	stop    chan struct{}
	stopped chan struct{}
}

// startSpinner begins animating immediately. The spinner also winds
// down when ctx is cancelled, but callers should still call Stop to
// wait for the line to be cleared.
func startSpinner(ctx context.Context, message string) *spinner {
	s := &spinner{
		message: message,
		stop:    make(chan struct{}),
		stopped: make(chan struct{}),
	}

	go func() {
		defer close(s.stopped)
		defer s.clear()

		tick := time.NewTicker(spinnerInterval)
		defer tick.Stop()

		for frame := 0; ; frame++ {
			select {
			case <-ctx.Done():
				return
			case <-s.stop:
				return
			case <-tick.C:
				icon := spinnerFrames[frame%len(spinnerFrames)]
				fmt.Fprintf(os.Stderr, "\r%s %s", styleIconSpinner.Render(icon), StyleDim.Render(s.message))
			}
		}
	}()
	return s
}

// Stop ends the animation and blocks until the line is cleared, so the
// caller's next print starts on a clean line.
func (s *spinner) Stop() {
	select {
	case <-s.stop:
	default:
		close(s.stop)
	}
	<-s.stopped
}

func (s *spinner) clear() {
	fmt.Fprintf(os.Stderr, "\r%s\r", strings.Repeat(" ", len(s.message)+2))
}
