package game

import (
	"context"
	"testing"

	"github.com/m3rciful/roombot/core/chat"
	"github.com/m3rciful/roombot/core/command"
)

type recorderStub struct{ games []Game }

func (r *recorderStub) RecordGame(_ context.Context, g Game) error {
	r.games = append(r.games, g)
	return nil
}

func TestModuleGameFlow(t *testing.T) {
	rec := &recorderStub{}
	m := NewModule(NewService(sequence(france, japan)), rec)
	reg := command.NewRegistry()
	if err := m.Register(reg); err != nil {
		t.Fatalf("register: %v", err)
	}
	call := func(name string, req chat.Request) []chat.Reply {
		spec, ok := reg.Lookup(name)
		if !ok {
			t.Fatalf("%s not registered", name)
		}
		return spec.Handler(context.Background(), req)
	}
	u1 := chat.Request{RoomID: "R", Sender: "u1@example.com"}

	if got := call(command.Guess, chat.Request{RoomID: "R", Sender: "u1", Arg: "France"}); got != nil {
		t.Fatalf("guess without game = %#v", got)
	}
	if got := call(command.Scoreboard, u1); got != nil {
		t.Fatalf("scoreboard without game = %#v", got)
	}

	replies := call(command.StartGame, u1)
	if len(replies) != 1 || replies[0].Text != "Game Started!" || replies[0].Card == nil {
		t.Fatalf("start = %#v", replies)
	}
	if got := call(command.StartGame, u1); got != nil {
		t.Fatalf("second start = %#v", got)
	}

	replies = call(command.Guess, chat.Request{RoomID: "R", Sender: "u2@example.com", Arg: "Atlantis"})
	if len(replies) != 1 || replies[0].Text != "Wrong guess, u2@example.com. Try again!" {
		t.Fatalf("wrong guess = %#v", replies)
	}

	replies = call(command.Guess, chat.Request{RoomID: "R", Sender: "u1@example.com", Arg: "france"})
	if len(replies) != 2 {
		t.Fatalf("correct guess = %#v", replies)
	}
	if replies[0].Text != "Correct, u1@example.com! Your score has been updated." {
		t.Fatalf("first reply = %q", replies[0].Text)
	}
	if replies[1].Text != "New Flag! Guess again!" || replies[1].Card == nil {
		t.Fatalf("second reply = %#v", replies[1])
	}

	replies = call(command.Scoreboard, u1)
	if len(replies) != 1 || replies[0].Text != "Here is the current scoreboard:" {
		t.Fatalf("scoreboard = %#v", replies)
	}

	replies = call(command.StopGame, chat.Request{RoomID: "R", Sender: "someone-else"})
	if len(replies) != 1 || replies[0].Text != "Game has been stopped. Thanks for playing!" {
		t.Fatalf("stop = %#v", replies)
	}
	if len(rec.games) != 0 || replies[0].Then == nil {
		t.Fatal("archive must run after the stop reply is delivered")
	}
	replies[0].Then(context.Background())
	if len(rec.games) != 1 || rec.games[0].Players[0].Score != 1 {
		t.Fatalf("recorded = %#v", rec.games)
	}
	replies = call(command.StopGame, u1)
	if len(replies) != 1 || replies[0].Text != "No game is currently running." {
		t.Fatalf("stop again = %#v", replies)
	}
}

func TestCards(t *testing.T) {
	flag := FlagCard(france)
	if len(flag.Body) != 3 || flag.Interactive() {
		t.Fatalf("flag card = %#v", flag)
	}
	board := ScoreboardCard([]Player{{Name: "a", Score: 2}})
	if len(board.Body) != 2 {
		t.Fatalf("scoreboard card = %#v", board)
	}
}
