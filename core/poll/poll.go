// Package poll implements per-room polls: creation, options, voting and results.
package poll

import (
	"errors"
	"time"
)

// Errors returned by Service. Each maps to a room message in Module.
var (
	ErrNoPoll         = errors.New("poll: no poll in room")
	ErrNotAuthor      = errors.New("poll: requester is not the author")
	ErrAlreadyStarted = errors.New("poll: already started")
	ErrNotStarted     = errors.New("poll: not started")
	ErrEnded          = errors.New("poll: already ended")
	ErrNoOptions      = errors.New("poll: no options")
	ErrUnknownOption  = errors.New("poll: unknown option")
)

// State is the lifecycle step of a poll.
type State string

// Poll states. Absent polls have no State.
const (
	StateCreated State = "created"
	StateStarted State = "started"
	StateEnded   State = "ended"
)

// Poll is the session of one room. Options are indexed from 0 in insertion order.
type Poll struct {
	RoomID      string
	Name        string
	Description string
	Author      string
	Started     bool
	Ended       bool
	CreatedAt   time.Time
	EndedAt     time.Time
	Options     []string
	Votes       map[int]int
}

// Result is the vote count of one option.
type Result struct {
	Index  int
	Option string
	Votes  int
}

func newPoll(roomID, author string, now time.Time) *Poll {
	return &Poll{
		RoomID:    roomID,
		Author:    author,
		CreatedAt: now,
		Votes:     make(map[int]int),
	}
}

// State reports where the poll is in its lifecycle.
func (p *Poll) State() State {
	switch {
	case p.Ended:
		return StateEnded
	case p.Started:
		return StateStarted
	default:
		return StateCreated
	}
}

// Results lists options that received at least one vote, in option order.
func (p *Poll) Results() []Result {
	var out []Result
	for i, opt := range p.Options {
		if n := p.Votes[i]; n > 0 {
			out = append(out, Result{Index: i, Option: opt, Votes: n})
		}
	}
	return out
}

// TotalVotes sums all recorded votes.
func (p *Poll) TotalVotes() int {
	total := 0
	for _, n := range p.Votes {
		total += n
	}
	return total
}

func (p *Poll) clone() Poll {
	cp := *p
	cp.Options = append([]string(nil), p.Options...)
	cp.Votes = make(map[int]int, len(p.Votes))
	for k, v := range p.Votes {
		cp.Votes[k] = v
	}
	return cp
}
