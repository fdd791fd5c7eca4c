package logger

import (
	"bufio"
	"bytes"
	"io"
	"sync"
	"time"
)

// SmartWriter buffers log lines and flushes them on an interval, when the
// buffer fills, or right away when an error or fatal line arrives.
type SmartWriter struct {
	mu            sync.Mutex
	buf           *bufio.Writer
	flushInterval time.Duration
	stop          chan struct{}
	stopOnce      sync.Once
	wg            sync.WaitGroup
}

const smartBufferSize = 256 * 1024

var urgentMarkers = [][]byte{
	[]byte(`"level":"error"`),
	[]byte(`"level":"fatal"`),
	[]byte(`"level":"panic"`),
}

func NewSmartWriter(w io.Writer, flushInterval time.Duration) *SmartWriter {
	sw := &SmartWriter{
		buf:           bufio.NewWriterSize(w, smartBufferSize),
		flushInterval: flushInterval,
		stop:          make(chan struct{}),
	}
	sw.wg.Add(1)
	go sw.loop()
	return sw
}

func (sw *SmartWriter) Write(p []byte) (int, error) {
	sw.mu.Lock()
	defer sw.mu.Unlock()

	n, err := sw.buf.Write(p)
	if err == nil && isUrgent(p) {
		err = sw.buf.Flush()
	}
	return n, err
}

func isUrgent(p []byte) bool {
	for _, m := range urgentMarkers {
		if bytes.Contains(p, m) {
			return true
		}
	}
	return false
}

// Sync flushes the buffer
func (sw *SmartWriter) Sync() error {
	sw.mu.Lock()
	defer sw.mu.Unlock()
	return sw.buf.Flush()
}

// Close stops the flusher and writes out what is left. Safe to call twice.
func (sw *SmartWriter) Close() error {
	sw.stopOnce.Do(func() { close(sw.stop) })
	sw.wg.Wait()
	return sw.Sync()
}

func (sw *SmartWriter) loop() {
	defer sw.wg.Done()
	ticker := time.NewTicker(sw.flushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			_ = sw.Sync()
		case <-sw.stop:
			return
		}
	}
}
