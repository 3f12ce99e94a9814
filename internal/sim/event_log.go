package sim

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

const (
	EventBufferSize       = 1024                   // Circular buffer size
	MaxEventsPerSec       = 10000                  // Global rate limit
	MaxEventsPerSource    = 100                    // Per-source rate limit per second
	BatchFlushSize        = 64                     // Events per batch write
	BatchFlushInterval    = 100 * time.Millisecond // How often to flush
	SourceLimiterCleanup  = 5 * time.Minute        // Cleanup interval for source limiters
	recentEventsRetention = 64                     // Events kept for Recent()
)

// EventLog provides bounded, rate-limited event logging with backpressure.
// Events are batched to an append-only JSONL file by a background writer.
type EventLog struct {
	buffer    [EventBufferSize]Event
	bufferMu  sync.Mutex
	writeHead uint64 // producer position
	readHead  uint64 // consumer position

	globalLimiter  *rate.Limiter
	sourceLimiters sync.Map // map[string]*sourceLimiterEntry

	writerWg sync.WaitGroup
	stopChan chan struct{}
	stopOnce sync.Once
	running  atomic.Bool

	filePath string
	file     *os.File
	fileMu   sync.Mutex

	recentMu sync.Mutex
	recent   []Event

	droppedCount atomic.Uint64
	totalCount   atomic.Uint64
	writtenCount atomic.Uint64
}

type sourceLimiterEntry struct {
	limiter  *rate.Limiter
	lastUsed atomic.Int64 // Unix nano
}

// EventLogStats is a point-in-time view of the log counters.
type EventLogStats struct {
	Total   uint64 `json:"total"`
	Dropped uint64 `json:"dropped"`
	Written uint64 `json:"written"`
	Pending uint64 `json:"pending"`
	Running bool   `json:"running"`
}

// NewEventLog creates a new bounded event log
func NewEventLog() *EventLog {
	return &EventLog{
		globalLimiter: rate.NewLimiter(MaxEventsPerSec, MaxEventsPerSec/10),
		stopChan:      make(chan struct{}),
	}
}

// Start begins the async writer goroutine.
// An empty filePath keeps events in memory only.
func (el *EventLog) Start(filePath string) error {
	if el.running.Load() {
		return nil
	}

	el.filePath = filePath
	if filePath != "" {
		file, err := os.OpenFile(filePath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			return fmt.Errorf("open event log: %w", err)
		}
		el.file = file
	}

	el.running.Store(true)
	el.writerWg.Add(2)
	go el.writerLoop()
	go el.cleanupLoop()

	return nil
}

// Stop flushes pending events and closes the file
func (el *EventLog) Stop() {
	el.stopOnce.Do(func() {
		if !el.running.Load() {
			return
		}
		el.running.Store(false)
		close(el.stopChan)
		el.writerWg.Wait()

		el.fileMu.Lock()
		if el.file != nil {
			el.file.Close()
			el.file = nil
		}
		el.fileMu.Unlock()
	})
}

// Emit adds an event with rate limiting.
// Returns false if the log is stopped or the event was rate limited.
func (el *EventLog) Emit(event Event) bool {
	if !el.running.Load() {
		return false
	}

	if !el.globalLimiter.Allow() {
		el.droppedCount.Add(1)
		return false
	}

	// Per-source limit keeps one noisy agent or client from starving the rest
	if event.Source != "" {
		if !el.getSourceLimiter(event.Source).Allow() {
			el.droppedCount.Add(1)
			return false
		}
	}

	el.bufferMu.Lock()
	el.writeHead++
	head := el.writeHead
	if head-el.readHead > EventBufferSize {
		// Drop oldest (rolling window)
		el.readHead++
		el.droppedCount.Add(1)
	}
	event.Sequence = head
	el.buffer[head%EventBufferSize] = event
	el.bufferMu.Unlock()

	el.recentMu.Lock()
	el.recent = append(el.recent, event)
	if len(el.recent) > recentEventsRetention {
		el.recent = el.recent[len(el.recent)-recentEventsRetention:]
	}
	el.recentMu.Unlock()

	el.totalCount.Add(1)
	return true
}

// EmitSimple is a convenience method to emit an event with automatic creation
func (el *EventLog) EmitSimple(eventType EventType, tickNum uint64, source string, payload interface{}) bool {
	return el.Emit(NewEvent(eventType, tickNum, source, payload))
}

// Recent returns up to n of the most recently accepted events, oldest first.
func (el *EventLog) Recent(n int) []Event {
	el.recentMu.Lock()
	defer el.recentMu.Unlock()
	if n <= 0 || n > len(el.recent) {
		n = len(el.recent)
	}
	out := make([]Event, n)
	copy(out, el.recent[len(el.recent)-n:])
	return out
}

func (el *EventLog) getSourceLimiter(source string) *rate.Limiter {
	now := time.Now().UnixNano()
	if entry, ok := el.sourceLimiters.Load(source); ok {
		e := entry.(*sourceLimiterEntry)
		e.lastUsed.Store(now)
		return e.limiter
	}

	entry := &sourceLimiterEntry{
		limiter: rate.NewLimiter(MaxEventsPerSource, MaxEventsPerSource/10),
	}
	entry.lastUsed.Store(now)
	actual, _ := el.sourceLimiters.LoadOrStore(source, entry)
	return actual.(*sourceLimiterEntry).limiter
}

// writerLoop batches and writes events to disk asynchronously
func (el *EventLog) writerLoop() {
	defer el.writerWg.Done()

	ticker := time.NewTicker(BatchFlushInterval)
	defer ticker.Stop()

	batch := make([]Event, 0, BatchFlushSize)

	for {
		select {
		case <-el.stopChan:
			// Final flush drains everything still buffered
			for {
				batch = el.collectBatch(batch[:0])
				if len(batch) == 0 {
					return
				}
				el.flushBatch(batch)
			}

		case <-ticker.C:
			batch = el.collectBatch(batch[:0])
			if len(batch) > 0 {
				el.flushBatch(batch)
			}
		}
	}
}

// cleanupLoop removes stale source limiters to prevent memory leak
func (el *EventLog) cleanupLoop() {
	defer el.writerWg.Done()

	ticker := time.NewTicker(SourceLimiterCleanup)
	defer ticker.Stop()

	for {
		select {
		case <-el.stopChan:
			return
		case <-ticker.C:
			el.cleanupSourceLimiters()
		}
	}
}

func (el *EventLog) cleanupSourceLimiters() {
	cutoff := time.Now().Add(-SourceLimiterCleanup).UnixNano()
	el.sourceLimiters.Range(func(key, value interface{}) bool {
		if value.(*sourceLimiterEntry).lastUsed.Load() < cutoff {
			el.sourceLimiters.Delete(key)
		}
		return true
	})
}

// collectBatch reads available events from the circular buffer
func (el *EventLog) collectBatch(batch []Event) []Event {
	el.bufferMu.Lock()
	defer el.bufferMu.Unlock()

	for el.readHead < el.writeHead && len(batch) < BatchFlushSize {
		el.readHead++
		batch = append(batch, el.buffer[el.readHead%EventBufferSize])
	}
	return batch
}

// flushBatch writes events to disk (append-only, newline-delimited JSON)
func (el *EventLog) flushBatch(batch []Event) {
	el.fileMu.Lock()
	defer el.fileMu.Unlock()

	if el.file == nil {
		return
	}

	for _, event := range batch {
		data, err := json.Marshal(event)
		if err != nil {
			continue
		}
		data = append(data, '\n')
		if _, err := el.file.Write(data); err != nil {
			continue
		}
		el.writtenCount.Add(1)
	}
}

// Stats returns counters for monitoring
func (el *EventLog) Stats() EventLogStats {
	el.bufferMu.Lock()
	pending := el.writeHead - el.readHead
	el.bufferMu.Unlock()

	return EventLogStats{
		Total:   el.totalCount.Load(),
		Dropped: el.droppedCount.Load(),
		Written: el.writtenCount.Load(),
		Pending: pending,
		Running: el.running.Load(),
	}
}
