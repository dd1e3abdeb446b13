package transcript

import (
	"strings"
	"sync"

	"github.com/MrWong99/listenkit/pkg/recognizer"
)

// Snapshot is a point-in-time copy of transcript state.
type Snapshot struct {
	// Interim is the recognizer's current provisional text. It is replaced,
	// not extended, on every update.
	Interim string

	// Final is the committed text accumulated since the last clear.
	Final string
}

// Transcript returns the final and interim text joined into one string.
func (s Snapshot) Transcript() string {
	return Combine(s.Final, s.Interim)
}

// Empty reports whether both interim and final text are blank.
func (s Snapshot) Empty() bool {
	return strings.TrimSpace(s.Interim) == "" && strings.TrimSpace(s.Final) == ""
}

// Machine owns the authoritative interim/final transcript of a session.
//
// Final text only ever grows until [Machine.Clear] is called. Interim text
// is replaced on every update.
//
// All methods are safe for concurrent use.
type Machine struct {
	mu sync.Mutex

	interim string
	final   string

	// prevFinalOnly records whether the last accepted batch was a single
	// final result with no interim text.
	prevFinalOnly bool
}

// NewMachine returns an empty [Machine].
func NewMachine() *Machine {
	return &Machine{}
}

// Update parses ev and applies it.
//
// Recognizers sometimes fire the same terminal event twice. A batch is
// dropped as such a repeat when it consists of exactly one final result with
// no interim text and the previously accepted batch had that same shape.
// Dropped batches leave the state untouched and Update reports false;
// otherwise it reports true and returns the new state.
func (m *Machine) Update(ev recognizer.ResultEvent) (Snapshot, bool) {
	interim, final := ParseResults(ev)
	results := pending(ev)
	finalOnly := len(results) == 1 && results[0].IsFinal && interim == "" && final != ""

	m.mu.Lock()
	defer m.mu.Unlock()

	if finalOnly && m.prevFinalOnly {
		return m.snapshotLocked(), false
	}
	m.prevFinalOnly = finalOnly
	m.applyLocked(interim, final)
	return m.snapshotLocked(), true
}

// Apply replaces the interim text with interim and, when final is not blank,
// appends it to the accumulated final text.
func (m *Machine) Apply(interim, final string) Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.applyLocked(interim, final)
	return m.snapshotLocked()
}

// Clear empties the transcript and forgets the previous batch shape.
func (m *Machine) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.interim = ""
	m.final = ""
	m.prevFinalOnly = false
}

// DiscardInterim drops provisional text, as happens when a turn is aborted.
// It reports whether there was any interim text to drop.
func (m *Machine) DiscardInterim() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.interim == "" {
		return false
	}
	m.interim = ""
	return true
}

// Snapshot returns the current state.
func (m *Machine) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked()
}

func (m *Machine) applyLocked(interim, final string) {
	m.interim = RemoveDuplicateWords(interim)
	if strings.TrimSpace(final) != "" {
		m.final = Combine(m.final, final)
	}
}

func (m *Machine) snapshotLocked() Snapshot {
	return Snapshot{Interim: m.interim, Final: m.final}
}
