package board

import (
	"encoding/json"
	"strings"
)

// Card is one entry in a deck. Effect keeps the original command text so
// snapshots and clients see exactly what the content author wrote; the parsed
// form is available through Action.
type Card struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Text   string `json:"text"`
	Effect string `json:"effect"`

	action Effect
}

// NewCard builds a card and parses its effect.
func NewCard(id, title, text, effect string) Card {
	return Card{ID: id, Title: title, Text: text, Effect: effect, action: ParseEffect(effect)}
}

// Action returns the parsed effect.
func (c Card) Action() Effect {
	return c.action
}

type rawCard struct {
	ID     json.RawMessage `json:"id"`
	Title  string          `json:"title"`
	Text   string          `json:"text"`
	Effect string          `json:"effect"`
}

// UnmarshalJSON accepts numeric or string ids and parses the effect once.
func (c *Card) UnmarshalJSON(data []byte) error {
	var raw rawCard
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	id := strings.TrimSpace(string(raw.ID))
	if strings.HasPrefix(id, `"`) {
		if err := json.Unmarshal(raw.ID, &id); err != nil {
			return err
		}
	} else if id == "null" {
		id = ""
	}

	*c = NewCard(id, raw.Title, raw.Text, raw.Effect)
	return nil
}
