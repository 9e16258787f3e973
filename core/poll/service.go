package poll

import (
	"errors"
	"time"

	"github.com/m3rciful/roombot/core/session"
)

// Service applies poll transitions to the per-room store. Returned polls are copies.
type Service struct {
	store *session.Store[Poll]
	now   func() time.Time
}

// NewService returns a Service with an empty store.
func NewService() *Service {
	return &Service{store: session.NewStore[Poll](), now: time.Now}
}

// Create opens a poll authored by author. It reports false when the room already has one.
func (s *Service) Create(roomID, author string) bool {
	now := s.now()
	return s.store.Create(roomID, func() *Poll { return newPoll(roomID, author, now) })
}

// Describe sets the poll's name and description. A room without a poll gets one authored by
// submitter. created reports whether the poll was opened by this call.
func (s *Service) Describe(roomID, submitter, name, description string) (created bool, err error) {
	now := s.now()
	err = s.store.Upsert(roomID, func() *Poll { return newPoll(roomID, submitter, now) },
		func(p *Poll, isNew bool) error {
			created = isNew
			if p.Author != submitter {
				return ErrNotAuthor
			}
			if p.Ended {
				return ErrEnded
			}
			if p.Started {
				return ErrAlreadyStarted
			}
			p.Name = name
			p.Description = description
			return nil
		})
	return created, err
}

// AddOption appends text and returns its index with the poll's name.
func (s *Service) AddOption(roomID, text string) (index int, name string, err error) {
	err = s.update(roomID, func(p *Poll) error {
		if p.Ended {
			return ErrEnded
		}
		p.Options = append(p.Options, text)
		index = len(p.Options) - 1
		name = p.Name
		return nil
	})
	return index, name, err
}

// Start opens voting. Only the author may start a poll, and only once it has options.
func (s *Service) Start(roomID, requester string) (Poll, error) {
	var snap Poll
	err := s.update(roomID, func(p *Poll) error {
		if p.Author != requester {
			return ErrNotAuthor
		}
		if p.Ended {
			return ErrEnded
		}
		if p.Started {
			return ErrAlreadyStarted
		}
		if len(p.Options) == 0 {
			return ErrNoOptions
		}
		p.Started = true
		snap = p.clone()
		return nil
	})
	return snap, err
}

// Vote counts one ballot for the option at index. Voters are not deduplicated.
func (s *Service) Vote(roomID string, index int) error {
	return s.update(roomID, func(p *Poll) error {
		if p.Ended {
			return ErrEnded
		}
		if !p.Started {
			return ErrNotStarted
		}
		if index < 0 || index >= len(p.Options) {
			return ErrUnknownOption
		}
		p.Votes[index]++
		return nil
	})
}

// End closes voting and returns the final poll. The poll stays in the store, ended, until swept.
func (s *Service) End(roomID, requester string) (Poll, error) {
	var snap Poll
	now := s.now()
	err := s.update(roomID, func(p *Poll) error {
		if p.Author != requester {
			return ErrNotAuthor
		}
		if p.Ended {
			return ErrEnded
		}
		if !p.Started {
			return ErrNotStarted
		}
		p.Started = false
		p.Ended = true
		p.EndedAt = now
		snap = p.clone()
		return nil
	})
	return snap, err
}

// Get returns a copy of the room's poll.
func (s *Service) Get(roomID string) (Poll, bool) {
	var snap Poll
	err := s.store.Update(roomID, func(p *Poll) error {
		snap = p.clone()
		return nil
	})
	return snap, err == nil
}

// SweepEnded evicts polls that ended at least retention ago.
func (s *Service) SweepEnded(retention time.Duration) int {
	cutoff := s.now().Add(-retention)
	return s.store.Sweep(func(p *Poll) bool {
		return p.Ended && !p.EndedAt.After(cutoff)
	})
}

// Len returns the number of rooms holding a poll.
func (s *Service) Len() int { return s.store.Len() }

func (s *Service) update(roomID string, fn func(*Poll) error) error {
	err := s.store.Update(roomID, fn)
	if errors.Is(err, session.ErrNotFound) {
		return ErrNoPoll
	}
	return err
}
