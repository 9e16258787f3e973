package chat

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
)

// Input identifiers shared by the cards a module sends and the submissions it decodes.
const (
	FieldPollName        = "pollName"
	FieldPollDescription = "pollDescription"
	FieldOptionText      = "optionText"
	FieldRoomID          = "roomId"
	FieldPollChoice      = "pollChoice"
)

// ErrUnrecognizedSubmission is returned when the inputs match no known card.
var ErrUnrecognizedSubmission = errors.New("chat: unrecognized submission")

// SubmissionKind names the card a submission came from.
type SubmissionKind string

// Known submission kinds.
const (
	KindPollDetails SubmissionKind = "poll_details"
	KindPollOption  SubmissionKind = "poll_option"
	KindPollVote    SubmissionKind = "poll_vote"
)

// Submission is a decoded card submission.
type Submission interface {
	Kind() SubmissionKind
	Room() string
}

// PollDetails is the poll name/description form.
type PollDetails struct {
	RoomID      string
	Name        string
	Description string
}

// PollOption is the add-option form.
type PollOption struct {
	RoomID string
	Text   string
}

// PollVote is a ballot cast on a voting card.
type PollVote struct {
	RoomID string
	Index  int
}

func (PollDetails) Kind() SubmissionKind { return KindPollDetails }
func (PollOption) Kind() SubmissionKind  { return KindPollOption }
func (PollVote) Kind() SubmissionKind    { return KindPollVote }

func (s PollDetails) Room() string { return s.RoomID }
func (s PollOption) Room() string  { return s.RoomID }
func (s PollVote) Room() string    { return s.RoomID }

// DecodeSubmission classifies inputs by field presence: a poll name wins over an option
// text, which wins over a choice. Every kind requires a room id.
func DecodeSubmission(inputs map[string]string) (Submission, error) {
	roomID := strings.TrimSpace(inputs[FieldRoomID])
	name, hasName := inputs[FieldPollName]
	option, hasOption := inputs[FieldOptionText]
	choice, hasChoice := inputs[FieldPollChoice]

	if !hasName && !hasOption && !hasChoice {
		return nil, ErrUnrecognizedSubmission
	}
	if roomID == "" {
		return nil, fmt.Errorf("chat: submission without %s: %w", FieldRoomID, ErrUnrecognizedSubmission)
	}

	switch {
	case hasName:
		return PollDetails{RoomID: roomID, Name: name, Description: inputs[FieldPollDescription]}, nil
	case hasOption:
		return PollOption{RoomID: roomID, Text: option}, nil
	default:
		idx, err := strconv.Atoi(strings.TrimSpace(choice))
		if err != nil {
			return nil, fmt.Errorf("chat: invalid %s %q: %w", FieldPollChoice, choice, ErrUnrecognizedSubmission)
		}
		return PollVote{RoomID: roomID, Index: idx}, nil
	}
}

// Submitter identifies who submitted a card. The email lookup runs at most once and only
// when a handler asks for it.
type Submitter struct {
	ID string

	once   sync.Once
	lookup func(ctx context.Context, personID string) (string, error)
	email  string
	err    error
}

// NewSubmitter returns a submitter whose email is resolved through lookup on demand.
func NewSubmitter(id string, lookup func(ctx context.Context, personID string) (string, error)) *Submitter {
	return &Submitter{ID: id, lookup: lookup}
}

// Email resolves and caches the submitter's email.
func (s *Submitter) Email(ctx context.Context) (string, error) {
	s.once.Do(func() {
		if s.lookup == nil {
			s.err = errors.New("chat: no person lookup configured")
			return
		}
		s.email, s.err = s.lookup(ctx, s.ID)
	})
	return s.email, s.err
}
