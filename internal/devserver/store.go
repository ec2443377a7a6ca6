package devserver

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

type user struct {
	ID        string
	Name      string
	Email     string
	Role      string
	Active    bool
	Hash      string
	Restrict  map[string]any
	CreatedAt time.Time
}

func (u *user) public() map[string]any {
	out := map[string]any{
		"_id":       u.ID,
		"name":      u.Name,
		"email":     u.Email,
		"role":      u.Role,
		"status":    u.Active,
		"createdAt": u.CreatedAt.UTC().Format(time.RFC3339),
	}
	if len(u.Restrict) > 0 {
		out["restriction"] = u.Restrict
	}
	return out
}

// store holds every resource of the server behind one lock.
type store struct {
	mu            sync.RWMutex
	users         map[string]*user
	byEmail       map[string]string
	sessions      map[string]string // token id -> user id
	resets        map[string]struct{}
	otpSecrets    map[string]string // email -> totp secret
	events        []map[string]any
	reports       []map[string]any
	notifications map[string]map[string]any
	order         []string
}

func newStore() *store {
	return &store{
		users:         make(map[string]*user),
		byEmail:       make(map[string]string),
		sessions:      make(map[string]string),
		resets:        make(map[string]struct{}),
		otpSecrets:    make(map[string]string),
		notifications: make(map[string]map[string]any),
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *store) userByEmail(email string) (*user, bool) {
	id, ok := s.byEmail[normalizeEmail(email)]
	if !ok {
		return nil, false
	}
	u, ok := s.users[id]
	return u, ok
}

func (s *store) addUser(u *user) bool {
	email := normalizeEmail(u.Email)
	if _, exists := s.byEmail[email]; exists {
		return false
	}
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	u.Email = email
	s.users[u.ID] = u
	s.byEmail[email] = u.ID
	return true
}

// revokeUser drops every session of userID and returns how many were dropped.
func (s *store) revokeUser(userID string) int {
	n := 0
	for id, owner := range s.sessions {
		if owner == userID {
			delete(s.sessions, id)
			n++
		}
	}
	return n
}

func (s *store) sortedUsers(search string) []*user {
	search = strings.ToLower(search)
	out := make([]*user, 0, len(s.users))
	for _, u := range s.users {
		if search != "" && !strings.Contains(strings.ToLower(u.Name), search) {
			continue
		}
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

func findByID(items []map[string]any, id string) (map[string]any, bool) {
	for _, item := range items {
		if item["_id"] == id {
			return item, true
		}
	}
	return nil, false
}

// paginate returns the window of n items selected by page (1-based) and limit.
func paginate(n, page, limit int) (int, int) {
	if limit <= 0 {
		limit = 10
	}
	if page <= 0 {
		page = 1
	}
	start := (page - 1) * limit
	if start > n {
		start = n
	}
	end := start + limit
	if end > n {
		end = n
	}
	return start, end
}
