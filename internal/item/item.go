// Package item implements the unit-of-work lifecycle: properties, task
// status, output log, errors and the terminal state machine described
// for the pipeline engine's Item type.
package item

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/archiveteam/warrior-pipeline/internal/log"
)

// ErrorRecord is one (task, value) pair appended to an item's error list.
type ErrorRecord struct {
	Task  string
	Value interface{}
	At    time.Time
}

// Item is the unit of work processed end-to-end by one pipeline
// traversal. All mutation goes through its methods, which guard state
// with mu and fire Subscriber callbacks outside the lock.
type Item struct {
	id         string
	number     int64
	dataDir    string
	keepData   bool
	createdDir bool

	mu              sync.Mutex
	properties      map[string]interface{}
	taskStatus      map[string]TaskStatus
	state           State
	mayBeCanceled   bool
	log             *outputLog
	errors          []ErrorRecord
	subscribers     []Subscriber
	startTime       time.Time
	endTime         time.Time
}

// New creates an item bound to baseDataDir/id and prepares its working
// directory. number is the runner's monotonic per-run sequence value.
func New(id string, number int64, baseDataDir string, keepData bool) (*Item, error) {
	it := &Item{
		id:         id,
		number:     number,
		dataDir:    filepath.Join(baseDataDir, id),
		keepData:   keepData,
		properties: make(map[string]interface{}),
		taskStatus: make(map[string]TaskStatus),
		log:        newOutputLog(),
		startTime:  time.Now(),
	}
	if err := os.MkdirAll(it.dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("item %s: prepare data dir: %w", id, err)
	}
	it.createdDir = true
	return it, nil
}

func (it *Item) ID() string      { return it.id }
func (it *Item) Number() int64   { return it.number }
func (it *Item) DataDir() string { return it.dataDir }

func (it *Item) StartTime() time.Time {
	it.mu.Lock()
	defer it.mu.Unlock()
	return it.startTime
}

func (it *Item) EndTime() time.Time {
	it.mu.Lock()
	defer it.mu.Unlock()
	return it.endTime
}

func (it *Item) State() State {
	it.mu.Lock()
	defer it.mu.Unlock()
	return it.state
}

// MayBeCanceled reports whether the item is currently idle inside a
// cancellable long-poll.
func (it *Item) MayBeCanceled() bool {
	it.mu.Lock()
	defer it.mu.Unlock()
	return it.mayBeCanceled
}

// SetMayBeCanceled is called by a TrackerRequest task as it enters or
// leaves a cancellable wait.
func (it *Item) SetMayBeCanceled(v bool) {
	it.mu.Lock()
	it.mayBeCanceled = v
	it.mu.Unlock()
}

// Subscribe registers fn to receive every event this item fires.
func (it *Item) Subscribe(fn Subscriber) {
	it.mu.Lock()
	it.subscribers = append(it.subscribers, fn)
	it.mu.Unlock()
}

func (it *Item) fire(ev Event) {
	it.mu.Lock()
	subs := make([]Subscriber, len(it.subscribers))
	copy(subs, it.subscribers)
	it.mu.Unlock()

	for _, s := range subs {
		s(it, ev)
	}
}

// ─── Properties (implements realize.ItemSnapshot) ───

// Property returns item[key].
func (it *Item) Property(key string) (interface{}, bool) {
	it.mu.Lock()
	defer it.mu.Unlock()
	v, ok := it.properties[key]
	return v, ok
}

// Properties returns a shallow copy of the property map.
func (it *Item) Properties() map[string]interface{} {
	it.mu.Lock()
	defer it.mu.Unlock()
	out := make(map[string]interface{}, len(it.properties))
	for k, v := range it.properties {
		out[k] = v
	}
	return out
}

// Set updates a property, firing EventPropertyChanged only when the
// value actually differs from the previous one.
func (it *Item) Set(key string, value interface{}) {
	it.mu.Lock()
	prev, existed := it.properties[key]
	changed := !existed || !reflect.DeepEqual(prev, value)
	if changed {
		it.properties[key] = value
	}
	it.mu.Unlock()

	if changed {
		it.fire(Event{Kind: EventPropertyChanged, Key: key, Value: value})
	}
}

// ─── Task status ───

// TaskStatusOf returns the recorded status for task, if any.
func (it *Item) TaskStatusOf(task string) (TaskStatus, bool) {
	it.mu.Lock()
	defer it.mu.Unlock()
	v, ok := it.taskStatus[task]
	return v, ok
}

// SetTaskStatus writes through, firing EventStatusChanged only on
// actual change.
func (it *Item) SetTaskStatus(task string, status TaskStatus) {
	it.mu.Lock()
	prev, existed := it.taskStatus[task]
	changed := !existed || prev != status
	if changed {
		it.taskStatus[task] = status
	}
	it.mu.Unlock()

	if changed {
		it.fire(Event{Kind: EventStatusChanged, Key: task, Value: status})
	}
}

// ─── Output log ───

// LogOutput appends data to the item's output log. Invalid UTF-8 is
// replaced per byte sequence. When fullLine is true the chunk is
// newline-normalized (see outputLog.append); set it false while
// streaming partial subprocess output.
func (it *Item) LogOutput(data []byte, fullLine bool) {
	text := strings.ToValidUTF8(string(data), "�")
	it.mu.Lock()
	it.log.append(text, fullLine)
	it.mu.Unlock()
}

// OutputLog returns the accumulated output log text.
func (it *Item) OutputLog() string {
	it.mu.Lock()
	defer it.mu.Unlock()
	return it.log.String()
}

// LogError appends an (task, value) error record and fires EventError.
func (it *Item) LogError(task string, value interface{}) {
	rec := ErrorRecord{Task: task, Value: value, At: time.Now()}
	it.mu.Lock()
	it.errors = append(it.errors, rec)
	it.mu.Unlock()

	it.fire(Event{Kind: EventError, Key: task, Value: value})
}

// Errors returns a copy of the accumulated error records.
func (it *Item) Errors() []ErrorRecord {
	it.mu.Lock()
	defer it.mu.Unlock()
	out := make([]ErrorRecord, len(it.errors))
	copy(out, it.errors)
	return out
}

// ─── Terminal transitions ───

// Complete marks the item completed. A no-op (logged as a warning) if
// the item is already in a terminal state.
func (it *Item) Complete() { it.terminate(StateCompleted, EventComplete) }

// Fail marks the item failed. A no-op (logged as a warning) if the
// item is already in a terminal state.
func (it *Item) Fail() { it.terminate(StateFailed, EventFail) }

// Cancel marks the item canceled. A no-op (logged as a warning) if the
// item is already in a terminal state.
func (it *Item) Cancel() { it.terminate(StateCanceled, EventCancel) }

func (it *Item) terminate(next State, kind EventKind) {
	it.mu.Lock()
	if it.state.Terminal() {
		it.mu.Unlock()
		log.GetLogger().WithFields(map[string]interface{}{
			"item_id":       it.id,
			"current_state": it.state.String(),
			"attempted":     next.String(),
		}).Warn("item: redundant terminal transition ignored")
		return
	}
	it.state = next
	it.endTime = time.Now()
	it.mu.Unlock()

	it.cleanupDataDir()
	it.fire(Event{Kind: kind})
}

// cleanupDataDir removes the item's working directory exactly once,
// unless keepData was requested at creation.
func (it *Item) cleanupDataDir() {
	if it.keepData || !it.createdDir {
		return
	}
	if err := os.RemoveAll(it.dataDir); err != nil {
		log.GetLogger().WithError(err).WithField("item_id", it.id).Warn("item: failed to clean up data directory")
	}
}
