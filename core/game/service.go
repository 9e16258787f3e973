package game

import (
	"errors"
	"strings"
	"time"

	"github.com/m3rciful/roombot/core/session"
)

// ErrNoGame is returned for rooms without an active game.
var ErrNoGame = errors.New("game: no game in room")

// Player is a participant and their score.
type Player struct {
	Name  string
	Score int
}

// Game is the session of one room. Players keep join order.
type Game struct {
	RoomID    string
	Answer    Country
	Players   []Player
	StartedAt time.Time

	seats map[string]int
}

// Score returns a player's score and whether they have joined.
func (g *Game) Score(name string) (int, bool) {
	i, ok := g.seats[name]
	if !ok {
		return 0, false
	}
	return g.Players[i].Score, true
}

func (g *Game) join(name string) int {
	if i, ok := g.seats[name]; ok {
		return i
	}
	g.Players = append(g.Players, Player{Name: name})
	g.seats[name] = len(g.Players) - 1
	return len(g.Players) - 1
}

func (g *Game) clone() Game {
	cp := *g
	cp.Players = append([]Player(nil), g.Players...)
	cp.seats = make(map[string]int, len(g.seats))
	for k, v := range g.seats {
		cp.seats[k] = v
	}
	return cp
}

// GuessResult describes the outcome of a guess. Next is the newly drawn country after a
// correct guess.
type GuessResult struct {
	Correct bool
	Score   int
	Next    Country
}

// Service applies game transitions to the per-room store.
type Service struct {
	store *session.Store[Game]
	pick  Picker
	now   func() time.Time
}

// NewService returns a Service drawing countries with pick, or RandomPick when nil.
func NewService(pick Picker) *Service {
	if pick == nil {
		pick = RandomPick
	}
	return &Service{store: session.NewStore[Game](), pick: pick, now: time.Now}
}

// Start opens a game with starter as its first player. It reports false when one is running.
func (s *Service) Start(roomID, starter string) (Game, bool) {
	var snap Game
	created := s.store.Create(roomID, func() *Game {
		g := &Game{
			RoomID:    roomID,
			Answer:    s.pick(),
			StartedAt: s.now(),
			seats:     make(map[string]int),
		}
		g.join(starter)
		snap = g.clone()
		return g
	})
	return snap, created
}

// Guess compares text with the current answer, ignoring case only. A correct guess scores a
// point for guesser and draws the next flag.
func (s *Service) Guess(roomID, guesser, text string) (GuessResult, error) {
	var res GuessResult
	err := s.update(roomID, func(g *Game) error {
		if !strings.EqualFold(text, g.Answer.Name) {
			return nil
		}
		i := g.join(guesser)
		g.Players[i].Score++
		g.Answer = s.pick()
		res = GuessResult{Correct: true, Score: g.Players[i].Score, Next: g.Answer}
		return nil
	})
	return res, err
}

// Scoreboard returns the players in join order.
func (s *Service) Scoreboard(roomID string) ([]Player, error) {
	var players []Player
	err := s.update(roomID, func(g *Game) error {
		players = append([]Player(nil), g.Players...)
		return nil
	})
	return players, err
}

// Get returns a copy of the room's game.
func (s *Service) Get(roomID string) (Game, bool) {
	var snap Game
	err := s.update(roomID, func(g *Game) error {
		snap = g.clone()
		return nil
	})
	return snap, err == nil
}

// Stop removes the room's game and returns its final state.
func (s *Service) Stop(roomID string) (Game, bool) {
	var snap Game
	removed := s.store.DeleteIf(roomID, func(g *Game) bool {
		snap = g.clone()
		return true
	})
	return snap, removed
}

// Len returns the number of rooms with a running game.
func (s *Service) Len() int { return s.store.Len() }

func (s *Service) update(roomID string, fn func(*Game) error) error {
	err := s.store.Update(roomID, fn)
	if errors.Is(err, session.ErrNotFound) {
		return ErrNoGame
	}
	return err
}
