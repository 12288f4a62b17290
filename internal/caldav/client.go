// Package caldav reads events from a CalDAV account and hands them to the ICS
// pipeline as plain iCalendar payloads.
package caldav

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/emersion/go-ical"
	"github.com/emersion/go-webdav/caldav"

	"weekcal/internal/ics"
	appLog "weekcal/internal/log"
)

var ErrNotConfigured = errors.New("caldav: url, username or password missing")

// SourcePrefix prefixes the source ID of every CalDAV calendar.
const SourcePrefix = "caldav:"

const productID = "-//weekcal//caldav//EN"

// Calendar is a calendar collection on the server.
type Calendar struct {
	Path string
	Name string
}

// Client reads events from a CalDAV account.
type Client struct {
	baseURL   string
	username  string
	password  string
	calendars []string
	timeout   time.Duration

	client *caldav.Client
}

// NewClient creates a client. calendars pins the collection paths to read;
// when empty they are discovered from the account's home set.
func NewClient(baseURL, username, password string, calendars []string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:   baseURL,
		username:  username,
		password:  password,
		calendars: append([]string(nil), calendars...),
		timeout:   timeout,
	}
}

// IsConfigured reports whether the client has an endpoint and credentials.
func (c *Client) IsConfigured() bool {
	return c.baseURL != "" && c.username != "" && c.password != ""
}

func (c *Client) connect() (*caldav.Client, error) {
	if c.client != nil {
		return c.client, nil
	}
	if !c.IsConfigured() {
		return nil, ErrNotConfigured
	}

	httpClient := &http.Client{
		Transport: &basicAuthTransport{
			username: c.username,
			password: c.password,
		},
		Timeout: c.timeout,
	}

	client, err := caldav.NewClient(httpClient, c.baseURL)
	if err != nil {
		return nil, fmt.Errorf("connect to CalDAV: %w", err)
	}

	c.client = client
	return client, nil
}

// basicAuthTransport adds Basic Auth to HTTP requests.
type basicAuthTransport struct {
	username string
	password string
	base     http.RoundTripper
}

func (t *basicAuthTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.SetBasicAuth(t.username, t.password)
	base := t.base
	if base == nil {
		base = http.DefaultTransport
	}
	return base.RoundTrip(req)
}

// Calendars returns the configured calendars, or every calendar of the
// account when none are configured.
func (c *Client) Calendars(ctx context.Context) ([]Calendar, error) {
	if len(c.calendars) > 0 {
		out := make([]Calendar, 0, len(c.calendars))
		for _, p := range c.calendars {
			out = append(out, Calendar{Path: p, Name: p})
		}
		return out, nil
	}

	client, err := c.connect()
	if err != nil {
		return nil, err
	}

	principal, err := client.FindCurrentUserPrincipal(ctx)
	if err != nil {
		return nil, fmt.Errorf("find principal: %w", err)
	}

	homeSet, err := client.FindCalendarHomeSet(ctx, principal)
	if err != nil {
		return nil, fmt.Errorf("find home set: %w", err)
	}

	cals, err := client.FindCalendars(ctx, homeSet)
	if err != nil {
		return nil, fmt.Errorf("find calendars: %w", err)
	}

	out := make([]Calendar, 0, len(cals))
	for _, cal := range cals {
		out = append(out, Calendar{Path: cal.Path, Name: cal.Name})
	}
	appLog.Debug("caldav calendars discovered", "count", len(out))
	return out, nil
}

// Fetch queries every calendar for VEVENTs intersecting [from, to) and
// returns one ICS payload per non-empty calendar, ready for ics.ParseICS. A
// failing calendar is reported in the error slice and does not stop the
// others.
func (c *Client) Fetch(ctx context.Context, from, to time.Time) ([]ics.FetchResult, []error) {
	cals, err := c.Calendars(ctx)
	if err != nil {
		return nil, []error{err}
	}

	client, err := c.connect()
	if err != nil {
		return nil, []error{err}
	}

	var (
		results []ics.FetchResult
		errs    []error
	)
	for _, cal := range cals {
		body, err := c.query(ctx, client, cal.Path, from, to)
		if err != nil {
			appLog.Error("caldav query failed", err, "calendar", cal.Path)
			errs = append(errs, fmt.Errorf("calendar %s: %w", cal.Path, err))
			continue
		}
		if len(body) == 0 {
			continue
		}
		results = append(results, ics.FetchResult{
			Source: ics.Source{ID: SourcePrefix + cal.Path, URL: c.baseURL + cal.Path},
			Body:   body,
		})
	}
	return results, errs
}

func (c *Client) query(ctx context.Context, client *caldav.Client, path string, from, to time.Time) ([]byte, error) {
	query := &caldav.CalendarQuery{
		CompRequest: caldav.CalendarCompRequest{
			Name:     ical.CompCalendar,
			AllProps: true,
			AllComps: true,
		},
		CompFilter: caldav.CompFilter{
			Name: ical.CompCalendar,
			Comps: []caldav.CompFilter{
				{
					Name:  ical.CompEvent,
					Start: from,
					End:   to,
				},
			},
		},
	}

	objects, err := client.QueryCalendar(ctx, path, query)
	if err != nil {
		return nil, fmt.Errorf("query calendar: %w", err)
	}
	appLog.Debug("caldav query completed", "calendar", path, "objects", len(objects))

	return mergeObjects(objects)
}

// mergeObjects folds the components of every object into a single
// VCALENDAR. It returns nil when there is nothing to encode.
func mergeObjects(objects []caldav.CalendarObject) ([]byte, error) {
	merged := ical.NewCalendar()
	merged.Props.SetText(ical.PropProductID, productID)
	merged.Props.SetText(ical.PropVersion, "2.0")

	for _, obj := range objects {
		if obj.Data == nil {
			appLog.Warn("caldav object skipped", "path", obj.Path, "reason", "no data")
			continue
		}
		merged.Children = append(merged.Children, obj.Data.Children...)
	}
	if len(merged.Children) == 0 {
		return nil, nil
	}

	var buf bytes.Buffer
	if err := ical.NewEncoder(&buf).Encode(merged); err != nil {
		return nil, fmt.Errorf("encode calendar: %w", err)
	}
	return buf.Bytes(), nil
}
