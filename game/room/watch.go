package room

import (
	"sync"
	"time"

	"github.com/gridduel/server/game/engine"
)

// PollInterval is the cadence of the terminal predicate poll while a room is
// playing.
const PollInterval = time.Second

// Watch polls a game's terminal predicate and fires a callback exactly once
// when the game ends. Stop is idempotent; the watch also stops itself on
// first detection.
type Watch struct {
	stop chan struct{}
	once sync.Once
}

// StartWatch begins polling. poll is the engine's terminal predicate;
// onTerminal runs once, on the watch goroutine, after the poll reports the
// game over.
func StartWatch(interval time.Duration, poll func() engine.Terminal, onTerminal func(engine.Terminal)) *Watch {
	if interval <= 0 {
		interval = PollInterval
	}
	w := &Watch{stop: make(chan struct{})}
	go w.run(interval, poll, onTerminal)
	return w
}

func (w *Watch) run(interval time.Duration, poll func() engine.Terminal, onTerminal func(engine.Terminal)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stop:
			return
		case <-ticker.C:
			term := poll()
			if !term.Over {
				continue
			}
			w.Stop()
			onTerminal(term)
			return
		}
	}
}

// Stop cancels the poll. A second Stop is a no-op.
func (w *Watch) Stop() {
	w.once.Do(func() { close(w.stop) })
}
