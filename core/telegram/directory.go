package telegram

import (
	"strconv"
	"strings"
	"sync"

	tele "gopkg.in/telebot.v4"
)

// Handle is how a Telegram user is named to the modules: "@username", or the
// numeric id for users without one.
func Handle(u *tele.User) string {
	if u == nil {
		return ""
	}
	if u.Username != "" {
		return "@" + u.Username
	}
	return strconv.FormatInt(u.ID, 10)
}

// Directory remembers users seen in updates so handles can be resolved to chat ids.
type Directory struct {
	mu       sync.RWMutex
	byHandle map[string]int64
	byID     map[int64]string
}

// NewDirectory returns an empty directory.
func NewDirectory() *Directory {
	return &Directory{byHandle: make(map[string]int64), byID: make(map[int64]string)}
}

// Remember records u. A changed username replaces the old handle.
func (d *Directory) Remember(u *tele.User) {
	if u == nil || u.ID == 0 {
		return
	}
	handle := Handle(u)
	d.mu.Lock()
	defer d.mu.Unlock()
	if old, ok := d.byID[u.ID]; ok && old != handle {
		delete(d.byHandle, handleKey(old))
	}
	d.byID[u.ID] = handle
	d.byHandle[handleKey(handle)] = u.ID
}

// UserID resolves a handle. Numeric handles resolve to themselves.
func (d *Directory) UserID(handle string) (int64, bool) {
	d.mu.RLock()
	id, ok := d.byHandle[handleKey(handle)]
	d.mu.RUnlock()
	if ok {
		return id, true
	}
	if n, err := strconv.ParseInt(handle, 10, 64); err == nil && n > 0 {
		return n, true
	}
	return 0, false
}

// Handle returns the handle of a known user id.
func (d *Directory) Handle(id int64) (string, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	h, ok := d.byID[id]
	return h, ok
}

// Usernames are case-insensitive.
func handleKey(handle string) string {
	return strings.ToLower(handle)
}
