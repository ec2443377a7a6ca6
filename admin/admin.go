package admin

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strconv"

	"github.com/MrEthical07/adminauth/gateway"
	"golang.org/x/sync/errgroup"
)

// DefaultPrefix is the path prefix of every admin resource.
const DefaultPrefix = "/api/admin"

// ErrMissingID is returned when a resource id is empty.
var ErrMissingID = errors.New("resource id required")

// Doer performs one gateway call and decodes the envelope data into out.
// *gateway.Gateway satisfies it.
type Doer interface {
	Do(ctx context.Context, req gateway.Request, out any) error
}

// Record is a backend document with an open set of fields.
type Record map[string]any

// ID returns "_id", falling back to "id".
func (r Record) ID() string {
	for _, key := range []string{"_id", "id"} {
		if s, ok := r[key].(string); ok && s != "" {
			return s
		}
	}
	return ""
}

// String returns the string field key, or "".
func (r Record) String(key string) string {
	s, _ := r[key].(string)
	return s
}

// Dashboard is the analytics document served by the dashboard endpoint.
type Dashboard map[string]any

// Page selects one page of a listing. Zero values are omitted from the query.
type Page struct {
	Page   int
	Limit  int
	Search string
}

func (p Page) query() url.Values {
	q := url.Values{}
	if p.Page > 0 {
		q.Set("page", strconv.Itoa(p.Page))
	}
	if p.Limit > 0 {
		q.Set("limit", strconv.Itoa(p.Limit))
	}
	if p.Search != "" {
		q.Set("name", p.Search)
	}
	return q
}

// UserList is one page of users.
type UserList struct {
	Users []Record `json:"users"`
	Total int      `json:"total"`
}

// EventList is one page of events.
type EventList struct {
	Events []Record `json:"events"`
	Total  int      `json:"total"`
}

// ReportList is one page of reports.
type ReportList struct {
	Reports []Record `json:"reports"`
	Total   int      `json:"total"`
}

// NotificationList is one page of notifications.
type NotificationList struct {
	Notifications []Record `json:"notifications"`
	Total         int      `json:"total"`
}

// Service issues admin requests.
type Service struct {
	gw     Doer
	prefix string
}

// New creates a Service using DefaultPrefix.
func New(gw Doer) *Service {
	return NewWithPrefix(gw, DefaultPrefix)
}

// NewWithPrefix creates a Service rooted at prefix.
func NewWithPrefix(gw Doer, prefix string) *Service {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Service{gw: gw, prefix: prefix}
}

func (s *Service) path(parts ...string) string {
	p := s.prefix
	for _, part := range parts {
		p += "/" + url.PathEscape(part)
	}
	return p
}

func (s *Service) get(ctx context.Context, path string, q url.Values, out any) error {
	return s.gw.Do(ctx, gateway.Request{Method: http.MethodGet, Path: path, Query: q}, out)
}

func (s *Service) write(ctx context.Context, method, path string, body, out any) error {
	return s.gw.Do(ctx, gateway.Request{Method: method, Path: path, Body: body}, out)
}

// Dashboard fetches the analytics document.
func (s *Service) Dashboard(ctx context.Context) (Dashboard, error) {
	var d Dashboard
	if err := s.get(ctx, s.path("dashboard"), nil, &d); err != nil {
		return nil, err
	}
	return d, nil
}

// Users lists users.
func (s *Service) Users(ctx context.Context, page Page) (*UserList, error) {
	var out UserList
	if err := s.get(ctx, s.path("users"), page.query(), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// User fetches one user.
func (s *Service) User(ctx context.Context, id string) (Record, error) {
	if id == "" {
		return nil, ErrMissingID
	}
	var out Record
	if err := s.get(ctx, s.path("users", id), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// SetUserActive blocks (active=false) or unblocks a user.
func (s *Service) SetUserActive(ctx context.Context, id string, active bool) (Record, error) {
	if id == "" {
		return nil, ErrMissingID
	}
	var out Record
	err := s.write(ctx, http.MethodPatch, s.path("users", id, "status"), map[string]bool{"status": active}, &out)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// RestrictUser applies a restriction payload to a user.
func (s *Service) RestrictUser(ctx context.Context, id string, payload map[string]any) (Record, error) {
	if id == "" {
		return nil, ErrMissingID
	}
	var out Record
	if err := s.write(ctx, http.MethodPatch, s.path("users", id, "restrict"), payload, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Events lists events.
func (s *Service) Events(ctx context.Context, page Page) (*EventList, error) {
	var out EventList
	if err := s.get(ctx, s.path("events"), page.query(), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Event fetches one event.
func (s *Service) Event(ctx context.Context, id string) (Record, error) {
	if id == "" {
		return nil, ErrMissingID
	}
	var out Record
	if err := s.get(ctx, s.path("events", id), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Reports lists reports.
func (s *Service) Reports(ctx context.Context, page Page) (*ReportList, error) {
	var out ReportList
	if err := s.get(ctx, s.path("reports"), page.query(), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Report fetches one report.
func (s *Service) Report(ctx context.Context, id string) (Record, error) {
	if id == "" {
		return nil, ErrMissingID
	}
	var out Record
	if err := s.get(ctx, s.path("reports", id), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Notifications lists notifications.
func (s *Service) Notifications(ctx context.Context, page Page) (*NotificationList, error) {
	var out NotificationList
	if err := s.get(ctx, s.path("notifications"), page.query(), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Notification fetches one notification.
func (s *Service) Notification(ctx context.Context, id string) (Record, error) {
	if id == "" {
		return nil, ErrMissingID
	}
	var out Record
	if err := s.get(ctx, s.path("notifications", id), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateNotification creates a notification and returns the stored document.
func (s *Service) CreateNotification(ctx context.Context, n Record) (Record, error) {
	var out Record
	if err := s.write(ctx, http.MethodPost, s.path("notifications"), n, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateNotification replaces the fields of a notification.
func (s *Service) UpdateNotification(ctx context.Context, id string, n Record) (Record, error) {
	if id == "" {
		return nil, ErrMissingID
	}
	var out Record
	if err := s.write(ctx, http.MethodPut, s.path("notifications", id), n, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteNotification removes a notification.
func (s *Service) DeleteNotification(ctx context.Context, id string) error {
	if id == "" {
		return ErrMissingID
	}
	return s.write(ctx, http.MethodDelete, s.path("notifications", id), nil, nil)
}

// Overview is the first screen of the admin shell.
type Overview struct {
	Dashboard     Dashboard
	Users         *UserList
	Notifications *NotificationList
}

// Overview fetches the dashboard, the first page of users and the first page
// of notifications concurrently. The first failure cancels the others and is
// returned.
func (s *Service) Overview(ctx context.Context, page Page) (*Overview, error) {
	var out Overview
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		d, err := s.Dashboard(ctx)
		out.Dashboard = d
		return err
	})
	g.Go(func() error {
		u, err := s.Users(ctx, page)
		out.Users = u
		return err
	})
	g.Go(func() error {
		n, err := s.Notifications(ctx, page)
		out.Notifications = n
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &out, nil
}
