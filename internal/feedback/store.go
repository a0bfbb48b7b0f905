// Package feedback keeps an append-only log of resolutions and of waiter
// corrections, for tuning the alias table.
//
// Every resolved transcript is written as a [KindResolution] entry holding
// what was heard and how each name was corrected. When a waiter tells the
// service which dish an unresolved name meant, a [KindCorrection] entry
// records the pair. Entries are JSON lines in a local file.
package feedback

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

// Kind distinguishes log entries.
type Kind string

const (
	// KindResolution is written for every resolve request.
	KindResolution Kind = "resolution"

	// KindCorrection is written when a waiter maps a spoken name to a dish.
	KindCorrection Kind = "correction"
)

// ErrInvalidEntry is returned by [FileStore.Record] for entries that carry
// no useful information.
var ErrInvalidEntry = errors.New("feedback: invalid entry")

// Entry is one line of the log. Fields that do not apply to an entry's Kind
// are omitted.
type Entry struct {
	Timestamp     time.Time `json:"timestamp"`
	Kind          Kind      `json:"kind"`
	CorrelationID string    `json:"correlation_id,omitempty"`
	SpeakerID     string    `json:"speaker_id,omitempty"`

	// Resolution fields.
	Transcript  string        `json:"transcript,omitempty"`
	Normalized  string        `json:"normalized,omitempty"`
	Outcome     string        `json:"outcome,omitempty"`
	Corrections []Replacement `json:"corrections,omitempty"`
	Unresolved  []string      `json:"unresolved,omitempty"`

	// Correction fields.
	Heard   string `json:"heard,omitempty"`
	DishID  string `json:"dish_id,omitempty"`
	Comment string `json:"comment,omitempty"`
}

// Replacement is one spoken name and the alias key it was resolved to.
type Replacement struct {
	Original   string  `json:"original"`
	Corrected  string  `json:"corrected,omitempty"`
	Method     string  `json:"method,omitempty"`
	Confidence float64 `json:"confidence,omitempty"`
}

// Validate checks that e is worth keeping.
func (e Entry) Validate() error {
	switch e.Kind {
	case KindResolution:
		if e.Transcript == "" && e.Normalized == "" {
			return fmt.Errorf("%w: resolution without transcript", ErrInvalidEntry)
		}
	case KindCorrection:
		if e.Heard == "" || e.DishID == "" {
			return fmt.Errorf("%w: correction needs heard and dish_id", ErrInvalidEntry)
		}
	default:
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidEntry, e.Kind)
	}
	return nil
}

// Recorder accepts feedback entries.
//
// Implementations must be safe for concurrent use.
type Recorder interface {
	Record(ctx context.Context, e Entry) error
}

// Compile-time interface check.
var _ Recorder = (*FileStore)(nil)

// FileStore appends entries as JSON lines to a file.
// Thread-safe for concurrent use.
type FileStore struct {
	mu   sync.Mutex
	path string
	now  func() time.Time
}

// NewFileStore creates a FileStore that writes to path. The file is created
// on the first write.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path, now: time.Now}
}

// Record validates e and appends it. A zero Timestamp is set to the current
// UTC time.
func (fs *FileStore) Record(_ context.Context, e Entry) error {
	if err := e.Validate(); err != nil {
		return err
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = fs.now().UTC()
	}

	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("feedback: marshal: %w", err)
	}
	data = append(data, '\n')

	fs.mu.Lock()
	defer fs.mu.Unlock()

	f, err := os.OpenFile(fs.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("feedback: open file: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(data); err != nil {
		return fmt.Errorf("feedback: write: %w", err)
	}
	return nil
}

// ReadAll reads every entry in the log at path. A missing file yields no
// entries.
func ReadAll(path string) ([]Entry, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("feedback: open file: %w", err)
	}
	defer f.Close()
	return Decode(f)
}

// Decode reads JSON-lines entries from r.
func Decode(r io.Reader) ([]Entry, error) {
	var out []Entry
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64<<10), 1<<20)
	for line := 1; sc.Scan(); line++ {
		if len(sc.Bytes()) == 0 {
			continue
		}
		var e Entry
		if err := json.Unmarshal(sc.Bytes(), &e); err != nil {
			return out, fmt.Errorf("feedback: line %d: %w", line, err)
		}
		out = append(out, e)
	}
	if err := sc.Err(); err != nil {
		return out, fmt.Errorf("feedback: read: %w", err)
	}
	return out, nil
}

// Corrections folds the correction entries of a log into a map from dish id
// to the distinct names waiters said for it, in first-seen order.
func Corrections(entries []Entry) map[string][]string {
	out := make(map[string][]string)
	seen := make(map[[2]string]bool)
	for _, e := range entries {
		if e.Kind != KindCorrection {
			continue
		}
		k := [2]string{e.DishID, e.Heard}
		if seen[k] {
			continue
		}
		seen[k] = true
		out[e.DishID] = append(out[e.DishID], e.Heard)
	}
	return out
}
