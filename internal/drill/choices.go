package drill

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"

	"golang.org/x/text/unicode/norm"
)

// uidDiscriminator names the terminal step of a drill-down.
const uidDiscriminator = "uid"

// Choice is one value offered for a discriminator. Name is the display
// label and Value is what gets sent back as the option.
type Choice struct {
	Name  string
	Value string
}

// drillResponse mirrors the drill endpoint JSON. Only the choices block
// is interpreted; the service also returns category and selection data.
type drillResponse struct {
	Choices *choicesBlock `json:"choices"`
}

// choicesBlock holds the discriminator name and its values. The inner
// "choices" arrives as an array of entries, or as a bare entry object
// when exactly one value remains, so it is kept raw until normalized.
type choicesBlock struct {
	Name    string          `json:"name"`
	Choices json.RawMessage `json:"choices"`
}

type choiceEntry struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// parseChoices decodes a drill response into its discriminator name and
// normalized choices.
func parseChoices(raw json.RawMessage, logger *slog.Logger) (string, []Choice, error) {
	var dr drillResponse
	if err := json.Unmarshal(raw, &dr); err != nil {
		return "", nil, fmt.Errorf("%w: %w", ErrMalformed, err)
	}

	if dr.Choices == nil || dr.Choices.Name == "" {
		return "", nil, fmt.Errorf("%w: missing choices name", ErrMalformed)
	}

	choices, err := normalizeChoices(dr.Choices.Choices, logger)
	if err != nil {
		return "", nil, err
	}

	return dr.Choices.Name, choices, nil
}

// normalizeChoices turns either wire form into one ordered slice:
//
//	"choices": [{"name":"small","value":"small"}, ...]
//	"choices": {"name":"average","value":"average"}
//
// An absent or null value yields no choices.
func normalizeChoices(raw json.RawMessage, logger *slog.Logger) ([]Choice, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, nil
	}

	var entries []choiceEntry

	switch trimmed[0] {
	case '[':
		if err := json.Unmarshal(trimmed, &entries); err != nil {
			return nil, fmt.Errorf("%w: choices array: %w", ErrMalformed, err)
		}
	case '{':
		var single choiceEntry
		if err := json.Unmarshal(trimmed, &single); err != nil {
			return nil, fmt.Errorf("%w: choices object: %w", ErrMalformed, err)
		}

		logger.Debug("normalizing single-object choices",
			slog.String("name", single.Name),
		)

		entries = []choiceEntry{single}
	default:
		return nil, fmt.Errorf("%w: choices must be an array or object", ErrMalformed)
	}

	choices := make([]Choice, 0, len(entries))
	for _, e := range entries {
		choices = append(choices, Choice{
			Name:  norm.NFC.String(e.Name),
			Value: norm.NFC.String(e.Value),
		})
	}

	return choices, nil
}
