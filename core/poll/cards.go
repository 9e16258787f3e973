package poll

import (
	"strconv"

	"github.com/m3rciful/roombot/core/cards"
	"github.com/m3rciful/roombot/core/chat"
)

const submitTitle = "OK"

// DetailsForm asks the author for the poll's name and description.
func DetailsForm(roomID string) *cards.Card {
	return &cards.Card{
		Body: []cards.Element{
			cards.TextInput{
				ID:          chat.FieldPollName,
				Label:       "Please type your poll name below",
				Placeholder: "Poll Name",
				MaxLength:   100,
			},
			cards.TextInput{
				ID:          chat.FieldPollDescription,
				Label:       "Please type your poll description below",
				Placeholder: "Poll Description",
				MaxLength:   500,
				Multiline:   true,
			},
			cards.Hidden{ID: chat.FieldRoomID, Value: roomID},
		},
		SubmitTitle: submitTitle,
	}
}

// OptionForm asks for the text of one new option.
func OptionForm(roomID string) *cards.Card {
	return &cards.Card{
		Body: []cards.Element{
			cards.TextInput{
				ID:          chat.FieldOptionText,
				Label:       "Please type the option you would like to add below:",
				Placeholder: "Option Text",
				MaxLength:   100,
			},
			cards.Hidden{ID: chat.FieldRoomID, Value: roomID},
		},
		SubmitTitle: submitTitle,
	}
}

// VotingCard lists every option as a choice whose value is the option index.
func VotingCard(p Poll) *cards.Card {
	choices := make([]cards.Choice, 0, len(p.Options))
	for i, opt := range p.Options {
		choices = append(choices, cards.Choice{Title: opt, Value: strconv.Itoa(i)})
	}
	return &cards.Card{
		Body: []cards.Element{
			cards.Text{Text: "Have your say on the poll below!", Size: cards.SizeLarge},
			cards.Text{Text: p.Name, Size: cards.SizeMedium},
			cards.Text{Text: p.Description, Weight: cards.WeightBolder},
			cards.Hidden{ID: chat.FieldRoomID, Value: p.RoomID},
			cards.ChoiceSet{ID: chat.FieldPollChoice, Choices: choices},
		},
		SubmitTitle: submitTitle,
	}
}

// ResultsCard shows the options that received votes.
func ResultsCard(p Poll) *cards.Card {
	body := []cards.Element{
		cards.Text{Text: "Below are the results!", Size: cards.SizeLarge},
		cards.Hidden{ID: chat.FieldRoomID, Value: p.RoomID},
	}
	for _, r := range p.Results() {
		body = append(body, cards.Fact{Title: r.Option, Value: strconv.Itoa(r.Votes)})
	}
	return &cards.Card{Body: body}
}
