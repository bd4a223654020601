package exporter

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"strings"
	"time"
	"wisecal/internal/config"
	"wisecal/internal/render"

	"github.com/emersion/go-ical"
	"github.com/emersion/go-webdav"
	"github.com/emersion/go-webdav/caldav"
	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc/pool"
)

var _ Calendar = (*CalDAV)(nil)

const (
	productID     = "-//wisecal//timetable sync//EN"
	colorProperty = "X-WISECAL-COLOR"
)

// palette maps color ids to CSS color names usable in the COLOR property.
var palette = [render.PaletteSize + 1]string{
	"", "lavender", "darkseagreen", "mediumpurple", "lightcoral", "khaki", "orange",
	"deepskyblue", "gray", "royalblue", "seagreen", "tomato",
}

type CalDAVOptions struct {
	URL      string
	User     string
	Password string
	Workers  int
	Timeout  time.Duration
}

type CalDAV struct {
	cl      *caldav.Client
	rc      *resty.Client
	base    *url.URL
	workers int
	timeout time.Duration
}

func NewCalDAV() *CalDAV {
	cd, err := NewCalDAVWithOptions(CalDAVOptions{
		URL:      config.Gist().String(config.CALDAV_URL),
		User:     config.Gist().String(config.CALDAV_USER),
		Password: config.Gist().String(config.CALDAV_PASS),
		Workers:  config.Gist().Int(config.SYNC_WORKERS),
		Timeout:  config.Gist().Duration(config.SYNC_TIMEOUT),
	})
	if err != nil {
		log.Fatal().Err(err).Msg("error creating caldav client")
	}
	return cd
}

func NewCalDAVWithOptions(opts CalDAVOptions) (*CalDAV, error) {
	base, err := url.Parse(opts.URL)
	if err != nil || base.Host == "" {
		return nil, errors.Errorf("invalid caldav url %q", opts.URL)
	}
	if !strings.HasSuffix(base.Path, "/") {
		base.Path += "/"
	}
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	var httpClient webdav.HTTPClient = http.DefaultClient
	rc := resty.New().SetTimeout(opts.Timeout)
	if opts.User != "" && opts.Password != "" {
		httpClient = webdav.HTTPClientWithBasicAuth(httpClient, opts.User, opts.Password)
		rc.SetBasicAuth(opts.User, opts.Password)
	}
	cl, err := caldav.NewClient(httpClient, base.String())
	if err != nil {
		return nil, errors.Wrap(err, "error creating caldav client")
	}
	return &CalDAV{cl: cl, rc: rc, base: base, workers: opts.Workers, timeout: opts.Timeout}, nil
}

// CreateContainer creates a new calendar collection below the calendar home
// and returns its path.
func (c *CalDAV) CreateContainer(ctx context.Context, owner, title string) (string, error) {
	container := path.Join(c.base.Path, "wisecal-"+uuid.NewString()) + "/"
	var name bytes.Buffer
	if err := xml.EscapeText(&name, []byte(title)); err != nil {
		return "", errors.Wrap(err, "error encoding calendar title")
	}
	body := `<?xml version="1.0" encoding="utf-8"?>` +
		`<C:mkcalendar xmlns:D="DAV:" xmlns:C="urn:ietf:params:xml:ns:caldav"><D:set><D:prop>` +
		`<D:displayname>` + name.String() + `</D:displayname>` +
		`<C:supported-calendar-component-set><C:comp name="VEVENT"/></C:supported-calendar-component-set>` +
		`</D:prop></D:set></C:mkcalendar>`
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	resp, err := c.rc.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/xml; charset=utf-8").
		SetHeader("X-Request-Id", uuid.NewString()).
		SetBody(body).
		Execute("MKCALENDAR", c.href(container))
	if err != nil {
		return "", errors.Wrap(err, "error creating calendar")
	}
	if resp.IsError() {
		return "", errors.Errorf("error creating calendar: %s", resp.Status())
	}
	log.Info().Str("owner", owner).Str("calendar", container).Msg("calendar created")
	return container, nil
}

func (c *CalDAV) UpsertEvents(ctx context.Context, container string, events []render.Event) []ItemResult {
	results := make([]ItemResult, len(events))
	p := pool.New().WithMaxGoroutines(c.workers)
	for i := range events {
		i := i
		p.Go(func() {
			ev := events[i]
			itemCtx, cancel := context.WithTimeout(ctx, c.timeout)
			defer cancel()
			if _, err := c.cl.PutCalendarObject(itemCtx, objectPath(container, ev.ID), EncodeEvent(ev)); err != nil {
				results[i] = Failed(ev.ID, errors.Wrap(err, "error putting event"))
				return
			}
			results[i] = OK(ev.ID)
		})
	}
	p.Wait()
	return results
}

func (c *CalDAV) DeleteEvents(ctx context.Context, container string, ids []string) []ItemResult {
	results := make([]ItemResult, len(ids))
	p := pool.New().WithMaxGoroutines(c.workers)
	for i := range ids {
		i := i
		p.Go(func() {
			id := ids[i]
			itemCtx, cancel := context.WithTimeout(ctx, c.timeout)
			defer cancel()
			resp, err := c.rc.R().
				SetContext(itemCtx).
				SetHeader("X-Request-Id", uuid.NewString()).
				Delete(c.href(objectPath(container, id)))
			switch {
			case err != nil:
				results[i] = Failed(id, errors.Wrap(err, "error deleting event"))
			case isGone(resp.StatusCode()):
				results[i] = Failed(id, errors.Wrapf(ErrNotFound, "event %s", id))
			case resp.IsError():
				results[i] = Failed(id, errors.Errorf("error deleting event: %s", resp.Status()))
			default:
				results[i] = OK(id)
			}
		})
	}
	p.Wait()
	return results
}

func (c *CalDAV) ContainerExists(ctx context.Context, container string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	resp, err := c.rc.R().
		SetContext(ctx).
		SetHeader("Depth", "0").
		SetHeader("Content-Type", "application/xml; charset=utf-8").
		SetBody(`<?xml version="1.0" encoding="utf-8"?><D:propfind xmlns:D="DAV:"><D:prop><D:resourcetype/></D:prop></D:propfind>`).
		Execute("PROPFIND", c.href(container))
	if err != nil {
		return false, errors.Wrap(err, "error probing calendar")
	}
	if isGone(resp.StatusCode()) {
		return false, nil
	}
	if resp.IsError() {
		return false, errors.Errorf("error probing calendar: %s", resp.Status())
	}
	return true, nil
}

func (c *CalDAV) href(p string) string {
	return c.base.ResolveReference(&url.URL{Path: p}).String()
}

func isGone(code int) bool {
	return code == http.StatusNotFound || code == http.StatusGone
}

func objectPath(container, id string) string {
	return strings.TrimSuffix(container, "/") + "/" + id + ".ics"
}

// EncodeEvent builds the calendar object stored for a rendered event. The
// event id doubles as UID and object name.
func EncodeEvent(ev render.Event) *ical.Calendar {
	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, productID)

	event := ical.NewEvent()
	event.Props.SetText(ical.PropUID, ev.ID)
	event.Props.SetDateTime(ical.PropDateTimeStamp, time.Now().UTC())
	event.Props.SetText(ical.PropSummary, ev.Title)
	event.Props.SetText(ical.PropLocation, ev.Location)
	event.Props.SetText(ical.PropDescription, ev.Description)
	event.Props.SetDateTime(ical.PropDateTimeStart, ev.Start)
	event.Props.SetDateTime(ical.PropDateTimeEnd, ev.End)
	if ev.Color >= 1 && ev.Color <= render.PaletteSize {
		color := ical.NewProp("COLOR")
		color.Value = palette[ev.Color]
		event.Props.Set(color)
	}
	colorID := ical.NewProp(colorProperty)
	colorID.Value = strconv.Itoa(ev.Color)
	event.Props.Set(colorID)

	cal.Children = append(cal.Children, event.Component)
	return cal
}

func (c *CalDAV) String() string {
	return fmt.Sprintf("caldav(%s)", c.base.Host)
}
