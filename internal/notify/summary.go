package notify

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/openai/openai-go/v2"
	"github.com/pkg/errors"
)

// Change is one human readable timetable change.
type Change struct {
	Course      string `json:"predmet"`
	EventType   string `json:"tip_dogodka"`
	Description string `json:"sprememba"`
}

type Summarizer interface {
	Summarize(ctx context.Context, diff string) ([]Change, error)
}

const systemPrompt = "Ti si pomočnik, ki analizira spremembe v urnikih. " +
	"Tvoja naloga je, da iz diff primerjave dveh ICS datotek (stare in nove različice urnika) " +
	"ustvariš seznam sprememb v JSON formatu. " +
	"Ne dodajaj nobenih dodatnih komentarjev ali besedila."

const userPrompt = "Analiziraj naslednji diff ICS datotek in vrni seznam sprememb kot JSON array.\n" +
	"Vsaka sprememba mora imeti ključ:\n" +
	"- 'predmet' : ime predmeta (npr. IZBRANI ALGORITMI)\n" +
	"- 'tip_dogodka' : tip dogodka (npr. PR (Predavanja))\n" +
	"- 'sprememba' : kratek opis spremembe, primeren za obvestilo študentom, brez dvopičja\n\n" +
	"Napotki:\n" +
	"- Tip dogodka izlušči iz opisa (DESCRIPTION) kot KRATICA (Opis), npr. PR (Predavanja).\n" +
	"- Kratice: PR = predavanja; SV = seminarske vaje; LV = laboratorijske vaje; SE = seminar; RV = računalniške vaje.\n" +
	"- Če je isti dogodek odstranjen in dodan drugje, ga zabeleži kot eno spremembo.\n" +
	"- Če je termin večkrat spremenjen na isto novo vrednost, zabeleži samo eno spremembo.\n" +
	"Diff vsebina:\n"

type OpenAI struct {
	cli   openai.Client
	model string
}

// NewOpenAI reads OPENAI_API_KEY from the environment.
func NewOpenAI(model string) *OpenAI {
	return &OpenAI{cli: openai.NewClient(), model: model}
}

func (o *OpenAI) Summarize(ctx context.Context, diff string) ([]Change, error) {
	resp, err := o.cli.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(o.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(userPrompt + diff),
		},
	})
	if err != nil {
		return nil, errors.Wrap(err, "error summarizing diff")
	}
	if len(resp.Choices) == 0 {
		return nil, errors.New("empty response from OpenAI")
	}
	return ParseChanges(resp.Choices[0].Message.Content)
}

// ParseChanges decodes a JSON array of changes. Every item must be an object
// carrying all three keys.
func ParseChanges(text string) ([]Change, error) {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.Trim(text, "`\n ")

	var items []json.RawMessage
	if err := json.Unmarshal([]byte(text), &items); err != nil {
		return nil, errors.Wrap(err, "expected a JSON array of changes")
	}
	out := make([]Change, 0, len(items))
	for i, raw := range items {
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(raw, &fields); err != nil {
			return nil, errors.Errorf("change %d is not an object", i)
		}
		for _, key := range []string{"predmet", "tip_dogodka", "sprememba"} {
			if _, ok := fields[key]; !ok {
				return nil, errors.Errorf("change %d is missing %q", i, key)
			}
		}
		var c Change
		if err := json.Unmarshal(raw, &c); err != nil {
			return nil, errors.Wrapf(err, "error decoding change %d", i)
		}
		out = append(out, c)
	}
	return out, nil
}
