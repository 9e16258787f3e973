package webex

import (
	"github.com/m3rciful/roombot/core/cards"
)

// AdaptiveCardContentType is the attachment content type of Adaptive Cards.
const AdaptiveCardContentType = "application/vnd.microsoft.card.adaptive"

const (
	adaptiveSchema  = "http://adaptivecards.io/schemas/adaptive-card.json"
	adaptiveVersion = "1.1"
)

// RenderCard converts a card into an Adaptive Card attachment.
// Facts render as "title: *value*" text blocks; input labels render as text blocks
// preceding the input.
func RenderCard(card *cards.Card) Attachment {
	body := []map[string]any{}
	for _, el := range card.Body {
		body = append(body, renderElement(el)...)
	}
	actions := []map[string]any{}
	if card.SubmitTitle != "" {
		actions = append(actions, map[string]any{
			"type":  "Action.Submit",
			"title": card.SubmitTitle,
		})
	}
	return Attachment{
		ContentType: AdaptiveCardContentType,
		Content: map[string]any{
			"$schema": adaptiveSchema,
			"type":    "AdaptiveCard",
			"version": adaptiveVersion,
			"body":    body,
			"actions": actions,
		},
	}
}

func renderElement(el cards.Element) []map[string]any {
	switch v := el.(type) {
	case cards.Text:
		block := map[string]any{"type": "TextBlock", "text": v.Text}
		if v.Size != cards.SizeDefault {
			block["size"] = string(v.Size)
		}
		if v.Weight != cards.WeightDefault {
			block["weight"] = string(v.Weight)
		}
		return []map[string]any{block}

	case cards.Fact:
		return []map[string]any{{"type": "TextBlock", "text": v.Title + ": *" + v.Value + "*"}}

	case cards.TextInput:
		var out []map[string]any
		if v.Label != "" {
			out = append(out, map[string]any{"type": "TextBlock", "text": v.Label})
		}
		input := map[string]any{"type": "Input.Text", "id": v.ID}
		if v.Placeholder != "" {
			input["placeholder"] = v.Placeholder
		}
		if v.MaxLength > 0 {
			input["maxLength"] = v.MaxLength
		}
		if v.Multiline {
			input["isMultiline"] = true
		}
		return append(out, input)

	case cards.Hidden:
		return []map[string]any{{
			"type":      "Input.Text",
			"id":        v.ID,
			"value":     v.Value,
			"isVisible": false,
		}}

	case cards.ChoiceSet:
		choices := make([]map[string]any, 0, len(v.Choices))
		for _, c := range v.Choices {
			choices = append(choices, map[string]any{"title": c.Title, "value": c.Value})
		}
		set := map[string]any{
			"type":    "Input.ChoiceSet",
			"id":      v.ID,
			"style":   "expanded",
			"choices": choices,
		}
		if v.Value != "" {
			set["value"] = v.Value
		}
		return []map[string]any{set}
	}
	return nil
}
