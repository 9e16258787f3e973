package telegram

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/m3rciful/roombot/core/cards"
	"github.com/m3rciful/roombot/core/telegram/format"
	"github.com/m3rciful/roombot/core/telegram/keyboard"

	tele "gopkg.in/telebot.v4"
)

// ChoiceUnique is the callback key of choice-set buttons.
const ChoiceUnique = "choice"

// ErrCallbackTooLong is returned when a choice button's payload exceeds Telegram's limit.
var ErrCallbackTooLong = errors.New("telegram: callback data too long")

var boldRe = regexp.MustCompile(`\*\*(.+?)\*\*`)

// Rendered is a message ready for the Bot API.
type Rendered struct {
	Text   string
	Markup *tele.ReplyMarkup
}

// Render converts reply text and an optional card into legacy Markdown plus an inline keyboard.
// Text inputs and hidden values are not shown; forms ask for them separately.
func Render(text string, card *cards.Card) (Rendered, error) {
	var lines []string
	if text != "" && !(card != nil && text == cards.FallbackText) {
		lines = append(lines, markdownText(text))
	}

	var buttons []keyboard.InlineBtn
	if card != nil {
		hidden := card.HiddenValues()
		for _, el := range card.Body {
			switch v := el.(type) {
			case cards.Text:
				lines = append(lines, renderText(v))
			case cards.Fact:
				lines = append(lines, format.V1(v.Title)+": "+format.Bold(v.Value))
			case cards.ChoiceSet:
				btns, err := choiceButtons(v, hidden)
				if err != nil {
					return Rendered{}, err
				}
				buttons = append(buttons, btns...)
			}
		}
	}

	out := Rendered{Text: strings.Join(lines, "\n")}
	if len(buttons) > 0 {
		out.Markup = keyboard.InlineButtons(buttons)
	}
	return out, nil
}

// DecodeChoice turns a choice button payload back into submission inputs.
func DecodeChoice(payload string) (map[string]string, error) {
	values, err := url.ParseQuery(payload)
	if err != nil {
		return nil, fmt.Errorf("telegram: decode choice: %w", err)
	}
	inputs := make(map[string]string, len(values))
	for k := range values {
		inputs[k] = values.Get(k)
	}
	return inputs, nil
}

func choiceButtons(cs cards.ChoiceSet, hidden map[string]string) ([]keyboard.InlineBtn, error) {
	btns := make([]keyboard.InlineBtn, 0, len(cs.Choices))
	for _, choice := range cs.Choices {
		values := url.Values{}
		for k, v := range hidden {
			values.Set(k, v)
		}
		values.Set(cs.ID, choice.Value)
		btn := keyboard.InlineBtn{Text: choice.Title, Unique: ChoiceUnique, Data: values.Encode()}
		if n := len(btn.CallbackData()); n > keyboard.MaxCallbackData {
			return nil, fmt.Errorf("%w: %d bytes for %q", ErrCallbackTooLong, n, choice.Title)
		}
		btns = append(btns, btn)
	}
	return btns, nil
}

func renderText(t cards.Text) string {
	switch {
	case t.Size == cards.SizeLarge || t.Weight == cards.WeightBolder:
		return format.Bold(t.Text)
	case t.Size == cards.SizeMedium:
		return format.Italic(t.Text)
	default:
		return format.V1(t.Text)
	}
}

// markdownText escapes text, keeping **bold** runs as bold.
func markdownText(s string) string {
	var b strings.Builder
	last := 0
	for _, m := range boldRe.FindAllStringSubmatchIndex(s, -1) {
		b.WriteString(format.V1(s[last:m[0]]))
		b.WriteString(format.Bold(s[m[2]:m[3]]))
		last = m[1]
	}
	b.WriteString(format.V1(s[last:]))
	return b.String()
}
