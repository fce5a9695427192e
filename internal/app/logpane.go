package app

import (
	"strings"
	"sync"
	"time"
)

const (
	logDebounceInterval = 150 * time.Millisecond
	logLineLimit        = 300
)

// logPane collects log output for the on-screen log and publishes the joined
// text at most once per debounce interval.
type logPane struct {
	mu      sync.Mutex
	lines   []string
	limit   int
	publish func(string)

	updateCh chan struct{}
	stopCh   chan struct{}
	done     chan struct{}
	once     sync.Once
}

func newLogPane(limit int, publish func(string)) *logPane {
	if limit <= 0 {
		limit = logLineLimit
	}
	l := &logPane{
		limit:    limit,
		publish:  publish,
		updateCh: make(chan struct{}, 1),
		stopCh:   make(chan struct{}),
		done:     make(chan struct{}),
	}
	go l.loop()
	return l
}

// Write implements io.Writer so the pane can sit behind a slog handler.
func (l *logPane) Write(p []byte) (int, error) {
	text := strings.ReplaceAll(string(p), "\r\n", "\n")
	l.mu.Lock()
	for _, part := range strings.Split(text, "\n") {
		if part == "" {
			continue
		}
		l.lines = append(l.lines, part)
	}
	if len(l.lines) > l.limit {
		l.lines = l.lines[len(l.lines)-l.limit:]
	}
	l.mu.Unlock()

	select {
	case l.updateCh <- struct{}{}:
	default:
	}
	return len(p), nil
}

// Text returns the buffered lines.
func (l *logPane) Text() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return strings.Join(l.lines, "\n")
}

func (l *logPane) loop() {
	defer close(l.done)
	timer := time.NewTimer(logDebounceInterval)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()
	for {
		select {
		case <-l.stopCh:
			return
		case <-l.updateCh:
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(logDebounceInterval)
		case <-timer.C:
			if l.publish != nil {
				l.publish(l.Text())
			}
		}
	}
}

// Close stops the publishing goroutine.
func (l *logPane) Close() {
	l.once.Do(func() {
		close(l.stopCh)
		<-l.done
	})
}
