package importer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/chromedp/cdproto/browser"
	"github.com/chromedp/chromedp"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

var _ Source = (*WiseTT)(nil)

const exportLinkSelector = `a[title="Izvoz celotnega urnika v ICS formatu  "]`

// WiseTT downloads the full ICS export of a timetable by driving a headless
// browser through the public timetable page.
type WiseTT struct {
	baseURL string
	timeout time.Duration
}

func NewWiseTT(baseURL string, timeout time.Duration) *WiseTT {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &WiseTT{baseURL: baseURL, timeout: timeout}
}

func (w *WiseTT) PageURL(tt Timetable) string {
	return fmt.Sprintf("%s/wtt_%s/index.jsp?filterId=%s", w.baseURL, tt.SchoolCode, tt.FilterID)
}

func (w *WiseTT) Fetch(parent context.Context, tt Timetable) ([]byte, error) {
	dir, err := os.MkdirTemp("", "wisecal-export-*")
	if err != nil {
		return nil, errors.Wrap(err, "error creating download dir")
	}
	defer os.RemoveAll(dir)

	ctx, cancel := chromedp.NewContext(parent)
	defer cancel()
	ctx, timeoutCancel := context.WithTimeout(ctx, w.timeout)
	defer timeoutCancel()

	done := make(chan string, 1)
	chromedp.ListenTarget(ctx, func(v interface{}) {
		ev, ok := v.(*browser.EventDownloadProgress)
		if !ok || ev.State != browser.DownloadProgressStateCompleted {
			return
		}
		select {
		case done <- ev.GUID:
		default:
		}
	})

	pageURL := w.PageURL(tt)
	log.Debug().Str("timetable", tt.Key()).Str("url", pageURL).Msg("opening timetable page")
	err = chromedp.Run(ctx, browser.SetDownloadBehavior(browser.SetDownloadBehaviorBehaviorAllowAndName).
		WithDownloadPath(dir).
		WithEventsEnabled(true))
	if err != nil {
		return nil, errors.Wrap(err, "error configuring browser downloads")
	}
	resp, err := chromedp.RunResponse(ctx, chromedp.Navigate(pageURL))
	if err != nil {
		return nil, errors.Wrapf(err, "error loading %s", pageURL)
	}
	if resp != nil && resp.Status >= 400 {
		return nil, errors.Errorf("error loading %s: status %d", pageURL, resp.Status)
	}

	var links int
	err = chromedp.Run(ctx, chromedp.Evaluate(fmt.Sprintf(`document.querySelectorAll(%q).length`, exportLinkSelector), &links))
	if err != nil {
		return nil, errors.Wrap(err, "error looking up export link")
	}
	if links == 0 {
		return nil, errors.Wrapf(ErrNoExport, "timetable %s", tt.Key())
	}
	if err = chromedp.Run(ctx, chromedp.Click(exportLinkSelector, chromedp.ByQuery)); err != nil {
		return nil, errors.Wrap(err, "error clicking export link")
	}

	select {
	case guid := <-done:
		body, err := os.ReadFile(filepath.Join(dir, guid))
		if err != nil {
			return nil, errors.Wrap(err, "error reading downloaded export")
		}
		log.Debug().Str("timetable", tt.Key()).Int("bytes", len(body)).Msg("export downloaded")
		return body, nil
	case <-ctx.Done():
		return nil, errors.Wrapf(ctx.Err(), "waiting for export download of %s", tt.Key())
	}
}
