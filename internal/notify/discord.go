package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// MaxFields is the most changes listed in one message.
const MaxFields = 25

const (
	colorTooMany = 0xf70237
	colorChanges = 0x6384a3
)

type embedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

type embedFooter struct {
	Text string `json:"text"`
}

type embed struct {
	Title       string       `json:"title"`
	Description string       `json:"description"`
	URL         string       `json:"url,omitempty"`
	Color       int          `json:"color"`
	Timestamp   string       `json:"timestamp,omitempty"`
	Footer      *embedFooter `json:"footer,omitempty"`
	Fields      []embedField `json:"fields,omitempty"`
}

type webhookMessage struct {
	Embeds []embed `json:"embeds"`
}

type Discord struct {
	rc  *resty.Client
	url string
	now func() time.Time
}

func NewDiscord(webhookURL string, timeout time.Duration) *Discord {
	return &Discord{rc: resty.New().SetTimeout(timeout), url: webhookURL, now: time.Now}
}

// Post announces changes of the timetable called name. Nothing is sent for
// zero changes.
func (d *Discord) Post(ctx context.Context, name, pageURL string, changes []Change) error {
	if len(changes) == 0 {
		return nil
	}
	resp, err := d.rc.R().
		SetContext(ctx).
		SetHeader("X-Request-Id", uuid.NewString()).
		SetBody(d.message(name, pageURL, changes)).
		Post(d.url)
	if err != nil {
		return errors.Wrap(err, "error posting webhook")
	}
	if resp.IsError() {
		return errors.Errorf("error posting webhook: %s", resp.Status())
	}
	return nil
}

func (d *Discord) message(name, pageURL string, changes []Change) webhookMessage {
	if len(changes) > MaxFields {
		return webhookMessage{Embeds: []embed{{
			Title:       "Preveč sprememb za prikaz",
			Description: fmt.Sprintf("Zaznanih je bilo %d sprememb. Prosimo, preverite urnik neposredno.", len(changes)),
			URL:         pageURL,
			Color:       colorTooMany,
			Footer:      &embedFooter{Text: "Sprememba urnika"},
		}}}
	}
	e := embed{
		Title:       "Spremembe v urniku za " + name,
		Description: fmt.Sprintf("Zaznanih je bilo toliko sprememb v urniku: %d.", len(changes)),
		URL:         pageURL,
		Color:       colorChanges,
		Timestamp:   d.now().UTC().Format(time.RFC3339),
	}
	for _, c := range changes {
		e.Fields = append(e.Fields, embedField{
			Name:  c.Course + " - " + c.EventType,
			Value: c.Description,
		})
	}
	return webhookMessage{Embeds: []embed{e}}
}
