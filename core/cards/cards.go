// Package cards describes interactive card documents independently of the chat platform
// that renders them. Transports translate a Card into their native attachment format.
package cards

// Size is the relative text size of a Text element.
type Size string

// Text sizes understood by every renderer.
const (
	SizeDefault Size = ""
	SizeMedium  Size = "medium"
	SizeLarge   Size = "large"
)

// Weight is the font weight of a Text element.
type Weight string

// Text weights understood by every renderer.
const (
	WeightDefault Weight = ""
	WeightBolder  Weight = "bolder"
)

// Card is an ordered list of elements with an optional submit action.
type Card struct {
	Body []Element
	// SubmitTitle labels the submit action. Cards without inputs leave it empty.
	SubmitTitle string
}

// Element is one block of a card body.
type Element interface {
	element()
}

// Text is a block of display text.
type Text struct {
	Text   string
	Size   Size
	Weight Weight
}

// Fact is a label/value pair, e.g. a poll option and its vote count.
type Fact struct {
	Title string
	Value string
}

// TextInput asks the user for free text. Label is shown as the question.
type TextInput struct {
	ID          string
	Label       string
	Placeholder string
	MaxLength   int
	Multiline   bool
}

// Hidden carries a value back with the submission without showing it.
type Hidden struct {
	ID    string
	Value string
}

// ChoiceSet lets the user pick exactly one of Choices.
type ChoiceSet struct {
	ID      string
	Value   string
	Choices []Choice
}

// Choice is one entry of a ChoiceSet; Value is what the submission reports.
type Choice struct {
	Title string
	Value string
}

func (Text) element()      {}
func (Fact) element()      {}
func (TextInput) element() {}
func (Hidden) element()    {}
func (ChoiceSet) element() {}

// TextInputs returns the free-text inputs in body order.
func (c *Card) TextInputs() []TextInput {
	if c == nil {
		return nil
	}
	var out []TextInput
	for _, el := range c.Body {
		if in, ok := el.(TextInput); ok {
			out = append(out, in)
		}
	}
	return out
}

// ChoiceSets returns the choice sets in body order.
func (c *Card) ChoiceSets() []ChoiceSet {
	if c == nil {
		return nil
	}
	var out []ChoiceSet
	for _, el := range c.Body {
		if cs, ok := el.(ChoiceSet); ok {
			out = append(out, cs)
		}
	}
	return out
}

// HiddenValues returns the hidden inputs keyed by id.
func (c *Card) HiddenValues() map[string]string {
	out := make(map[string]string)
	if c == nil {
		return out
	}
	for _, el := range c.Body {
		if h, ok := el.(Hidden); ok {
			out[h.ID] = h.Value
		}
	}
	return out
}

// InputIDs lists the identifiers of every input the card declares, hidden ones included.
func (c *Card) InputIDs() []string {
	if c == nil {
		return nil
	}
	var ids []string
	for _, el := range c.Body {
		switch v := el.(type) {
		case TextInput:
			ids = append(ids, v.ID)
		case Hidden:
			ids = append(ids, v.ID)
		case ChoiceSet:
			ids = append(ids, v.ID)
		}
	}
	return ids
}

// Interactive reports whether the card collects any user input.
func (c *Card) Interactive() bool {
	return len(c.TextInputs()) > 0 || len(c.ChoiceSets()) > 0
}

// FallbackText is sent as the message text of card-only replies, for clients that
// cannot render cards.
const FallbackText = "Cards Unsupported"
