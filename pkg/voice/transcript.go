package voice

import (
	"sync"
	"time"
)

// TranscriptRole identifies who produced a transcript entry.
type TranscriptRole string

const (
	RoleUser      TranscriptRole = "user"
	RoleAssistant TranscriptRole = "assistant"
	RoleSystem    TranscriptRole = "system"
)

// TranscriptEntry is one utterance in the conversation transcript.
type TranscriptEntry struct {
	// ID is the service-assigned utterance identifier.
	ID string `json:"id"`

	// Role is who spoke: user, assistant, or system.
	Role TranscriptRole `json:"role"`

	// Text is the accumulated text so far. Partial until Final is set.
	Text string `json:"text"`

	// Final is set once the service commits the utterance.
	Final bool `json:"final"`

	// At is when the entry was first created.
	At time.Time `json:"at"`
}

// Transcript holds conversation entries in arrival order. Deltas for the
// same utterance ID accumulate into one entry; entries never reorder.
type Transcript struct {
	mu      sync.Mutex
	entries []TranscriptEntry
	index   map[string]int
	now     func() time.Time
}

// NewTranscript creates an empty transcript.
func NewTranscript() *Transcript {
	return &Transcript{
		entries: make([]TranscriptEntry, 0, 16),
		index:   make(map[string]int, 16),
		now:     time.Now,
	}
}

// AppendDelta appends partial text to the utterance with the given ID,
// creating the entry at the tail if the ID is new. Deltas for an already
// final entry are ignored.
func (t *Transcript) AppendDelta(id string, role TranscriptRole, text string) TranscriptEntry {
	t.mu.Lock()
	defer t.mu.Unlock()

	if i, ok := t.index[id]; ok {
		if !t.entries[i].Final {
			t.entries[i].Text += text
		}
		return t.entries[i]
	}

	entry := TranscriptEntry{ID: id, Role: role, Text: text, At: t.now()}
	t.entries = append(t.entries, entry)
	t.index[id] = len(t.entries) - 1
	return entry
}

// Finalize marks the utterance with the given ID as committed, replacing
// its text with the final form. An unknown ID creates a new final entry
// at the tail.
func (t *Transcript) Finalize(id string, role TranscriptRole, text string) TranscriptEntry {
	t.mu.Lock()
	defer t.mu.Unlock()

	if i, ok := t.index[id]; ok {
		t.entries[i].Text = text
		t.entries[i].Final = true
		return t.entries[i]
	}

	entry := TranscriptEntry{ID: id, Role: role, Text: text, Final: true, At: t.now()}
	t.entries = append(t.entries, entry)
	t.index[id] = len(t.entries) - 1
	return entry
}

// Entries returns a snapshot of all entries in arrival order.
func (t *Transcript) Entries() []TranscriptEntry {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]TranscriptEntry, len(t.entries))
	copy(out, t.entries)
	return out
}

// Last returns the most recent entry, or false if the transcript is empty.
func (t *Transcript) Last() (TranscriptEntry, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if len(t.entries) == 0 {
		return TranscriptEntry{}, false
	}
	return t.entries[len(t.entries)-1], true
}

// Len returns the number of entries.
func (t *Transcript) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}

// Clear removes all entries.
func (t *Transcript) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries = t.entries[:0]
	t.index = make(map[string]int, 16)
}
