package room

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/gridduel/server/game/engine"
)

func TestWatchFiresOnceOnTerminal(t *testing.T) {
	var over atomic.Bool
	var fired atomic.Int32

	w := StartWatch(5*time.Millisecond,
		func() engine.Terminal {
			return engine.Terminal{Over: over.Load(), Winner: alice}
		},
		func(term engine.Terminal) {
			fired.Add(1)
			if term.Winner != alice {
				t.Errorf("terminal winner = %q", term.Winner)
			}
		})
	defer w.Stop()

	time.Sleep(25 * time.Millisecond)
	if fired.Load() != 0 {
		t.Fatal("watch fired before the game ended")
	}

	over.Store(true)
	deadline := time.Now().Add(time.Second)
	for fired.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if fired.Load() != 1 {
		t.Fatalf("fired %d times, want 1", fired.Load())
	}

	// The watch stopped itself; more polling cannot re-fire.
	time.Sleep(25 * time.Millisecond)
	if fired.Load() != 1 {
		t.Errorf("watch re-fired after terminal: %d", fired.Load())
	}
}

func TestWatchStopIsIdempotent(t *testing.T) {
	w := StartWatch(time.Millisecond,
		func() engine.Terminal { return engine.Terminal{} },
		func(engine.Terminal) { t.Error("terminal callback on a stopped watch") })

	w.Stop()
	w.Stop()
	time.Sleep(10 * time.Millisecond)
}
