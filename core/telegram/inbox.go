package telegram

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrUnknownRef is returned for refs that were never issued, already taken or expired.
var ErrUnknownRef = errors.New("telegram: unknown ref")

const inboxTTL = 5 * time.Minute

// Inbox parks message texts and submission inputs under opaque refs until the
// router fetches them. Each ref can be taken once.
type Inbox struct {
	mu      sync.Mutex
	entries map[string]inboxEntry
	ttl     time.Duration
	now     func() time.Time
}

type inboxEntry struct {
	text   string
	inputs map[string]string
	at     time.Time
}

// NewInbox returns an empty inbox.
func NewInbox() *Inbox {
	return &Inbox{entries: make(map[string]inboxEntry), ttl: inboxTTL, now: time.Now}
}

// PutText stores a message text and returns its ref.
func (b *Inbox) PutText(text string) string {
	return b.put(inboxEntry{text: text})
}

// PutInputs stores submission inputs and returns their ref.
func (b *Inbox) PutInputs(inputs map[string]string) string {
	return b.put(inboxEntry{inputs: inputs})
}

// TakeText returns and forgets the text stored under ref.
func (b *Inbox) TakeText(ref string) (string, error) {
	e, err := b.take(ref)
	return e.text, err
}

// TakeInputs returns and forgets the inputs stored under ref.
func (b *Inbox) TakeInputs(ref string) (map[string]string, error) {
	e, err := b.take(ref)
	return e.inputs, err
}

// Len reports the number of parked entries.
func (b *Inbox) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.entries)
}

func (b *Inbox) put(e inboxEntry) string {
	ref := uuid.NewString()
	now := b.now()
	e.at = now

	b.mu.Lock()
	defer b.mu.Unlock()
	for k, old := range b.entries {
		if now.Sub(old.at) > b.ttl {
			delete(b.entries, k)
		}
	}
	b.entries[ref] = e
	return ref
}

func (b *Inbox) take(ref string) (inboxEntry, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	e, ok := b.entries[ref]
	if !ok {
		return inboxEntry{}, ErrUnknownRef
	}
	delete(b.entries, ref)
	if b.now().Sub(e.at) > b.ttl {
		return inboxEntry{}, ErrUnknownRef
	}
	return e, nil
}
