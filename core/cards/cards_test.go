package cards

import (
	"reflect"
	"testing"
)

func TestCardAccessors(t *testing.T) {
	card := &Card{
		Body: []Element{
			Text{Text: "Pick one", Size: SizeLarge},
			Hidden{ID: "roomId", Value: "r1"},
			TextInput{ID: "name", Label: "Name?"},
			ChoiceSet{ID: "choice", Choices: []Choice{{Title: "A", Value: "0"}}},
			Fact{Title: "A", Value: "1"},
		},
		SubmitTitle: "OK",
	}
	if got := card.InputIDs(); !reflect.DeepEqual(got, []string{"roomId", "name", "choice"}) {
		t.Fatalf("ids = %v", got)
	}
	if got := card.HiddenValues(); got["roomId"] != "r1" || len(got) != 1 {
		t.Fatalf("hidden = %v", got)
	}
	if len(card.TextInputs()) != 1 || len(card.ChoiceSets()) != 1 || !card.Interactive() {
		t.Fatal("expected one text input and one choice set")
	}

	display := &Card{Body: []Element{Text{Text: "hi"}}}
	if display.Interactive() {
		t.Fatal("display card must not be interactive")
	}
	var nilCard *Card
	if nilCard.Interactive() || len(nilCard.HiddenValues()) != 0 {
		t.Fatal("nil card must be empty")
	}
}
