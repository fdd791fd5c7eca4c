package logger

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

var counter atomic.Uint64

// GenerateRequestID returns ids like 20231201102830-000001-a3f2b1c4: sortable
// by time, with a per-process sequence and a random suffix.
func GenerateRequestID() string {
	ts := time.Now().Format("20060102150405")
	seq := counter.Add(1) % 1_000_000
	return fmt.Sprintf("%s-%06d-%s", ts, seq, uuid.NewString()[:8])
}
