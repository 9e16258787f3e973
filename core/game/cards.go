package game

import (
	"strconv"

	"github.com/m3rciful/roombot/core/cards"
)

// FlagCard shows the flag to guess.
func FlagCard(c Country) *cards.Card {
	return &cards.Card{Body: []cards.Element{
		cards.Text{Text: "Guess which country this flag represents:", Size: cards.SizeLarge},
		cards.Text{Text: c.Flag, Size: cards.SizeMedium},
		cards.Text{Text: "Type your guess using the 'guess <country_name>' command.", Weight: cards.WeightBolder},
	}}
}

// ScoreboardCard lists every player with their score.
func ScoreboardCard(players []Player) *cards.Card {
	body := []cards.Element{cards.Text{Text: "Current Scoreboard:", Size: cards.SizeLarge}}
	for _, p := range players {
		body = append(body, cards.Fact{Title: p.Name, Value: strconv.Itoa(p.Score)})
	}
	return &cards.Card{Body: body}
}
