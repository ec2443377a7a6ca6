package devserver

import (
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

func pageParams(r *http.Request) (int, int) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	return page, limit
}

func (s *Server) handleDashboard(w http.ResponseWriter, _ *http.Request) {
	s.store.mu.RLock()
	active := 0
	for _, u := range s.store.users {
		if u.Active {
			active++
		}
	}
	data := map[string]any{
		"totalUsers":         len(s.store.users),
		"activeUsers":        active,
		"totalEvents":        len(s.store.events),
		"totalReports":       len(s.store.reports),
		"totalNotifications": len(s.store.notifications),
	}
	s.store.mu.RUnlock()

	succeed(w, "", data)
}

func (s *Server) handleUsers(w http.ResponseWriter, r *http.Request) {
	page, limit := pageParams(r)

	s.store.mu.RLock()
	all := s.store.sortedUsers(r.URL.Query().Get("name"))
	start, end := paginate(len(all), page, limit)
	users := make([]map[string]any, 0, end-start)
	for _, u := range all[start:end] {
		users = append(users, u.public())
	}
	s.store.mu.RUnlock()

	succeed(w, "", map[string]any{"users": users, "total": len(all)})
}

func (s *Server) handleUser(w http.ResponseWriter, r *http.Request) {
	s.store.mu.RLock()
	u, ok := s.store.users[mux.Vars(r)["id"]]
	var doc map[string]any
	if ok {
		doc = u.public()
	}
	s.store.mu.RUnlock()

	if !ok {
		fail(w, http.StatusNotFound, "User not found")
		return
	}
	succeed(w, "", doc)
}

func (s *Server) handleUserStatus(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Status *bool `json:"status"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Status == nil {
		fail(w, http.StatusBadRequest, "Status is required")
		return
	}

	s.store.mu.Lock()
	defer s.store.mu.Unlock()
	u, ok := s.store.users[mux.Vars(r)["id"]]
	if !ok {
		fail(w, http.StatusNotFound, "User not found")
		return
	}
	u.Active = *req.Status
	if !u.Active {
		s.store.revokeUser(u.ID)
	}
	succeed(w, "User status updated", u.public())
}

func (s *Server) handleUserRestrict(w http.ResponseWriter, r *http.Request) {
	var req map[string]any
	if !decodeBody(w, r, &req) {
		return
	}

	s.store.mu.Lock()
	defer s.store.mu.Unlock()
	u, ok := s.store.users[mux.Vars(r)["id"]]
	if !ok {
		fail(w, http.StatusNotFound, "User not found")
		return
	}
	u.Restrict = req
	succeed(w, "User restricted", u.public())
}

func events(st *store) []map[string]any { return st.events }
func reports(st *store) []map[string]any { return st.reports }

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	s.listDocs(w, r, events, "events")
}

func (s *Server) handleEvent(w http.ResponseWriter, r *http.Request) {
	s.getDoc(w, r, events, "Event not found")
}

func (s *Server) handleReports(w http.ResponseWriter, r *http.Request) {
	s.listDocs(w, r, reports, "reports")
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	s.getDoc(w, r, reports, "Report not found")
}

func (s *Server) listDocs(w http.ResponseWriter, r *http.Request, sel func(*store) []map[string]any, key string) {
	page, limit := pageParams(r)

	s.store.mu.RLock()
	docs := sel(s.store)
	start, end := paginate(len(docs), page, limit)
	out := make([]map[string]any, 0, end-start)
	for _, d := range docs[start:end] {
		out = append(out, copyDoc(d))
	}
	total := len(docs)
	s.store.mu.RUnlock()

	succeed(w, "", map[string]any{key: out, "total": total})
}

func (s *Server) getDoc(w http.ResponseWriter, r *http.Request, sel func(*store) []map[string]any, notFound string) {
	s.store.mu.RLock()
	doc, ok := findByID(sel(s.store), mux.Vars(r)["id"])
	if ok {
		doc = copyDoc(doc)
	}
	s.store.mu.RUnlock()

	if !ok {
		fail(w, http.StatusNotFound, notFound)
		return
	}
	succeed(w, "", doc)
}

func (s *Server) handleNotifications(w http.ResponseWriter, r *http.Request) {
	page, limit := pageParams(r)

	s.store.mu.RLock()
	ids := append([]string(nil), s.store.order...)
	start, end := paginate(len(ids), page, limit)
	out := make([]map[string]any, 0, end-start)
	for _, id := range ids[start:end] {
		out = append(out, copyDoc(s.store.notifications[id]))
	}
	s.store.mu.RUnlock()

	succeed(w, "", map[string]any{"notifications": out, "total": len(ids)})
}

func (s *Server) handleNotification(w http.ResponseWriter, r *http.Request) {
	s.store.mu.RLock()
	doc, ok := s.store.notifications[mux.Vars(r)["id"]]
	if ok {
		doc = copyDoc(doc)
	}
	s.store.mu.RUnlock()

	if !ok {
		fail(w, http.StatusNotFound, "Notification not found")
		return
	}
	succeed(w, "", doc)
}

func (s *Server) handleCreateNotification(w http.ResponseWriter, r *http.Request) {
	var req map[string]any
	if !decodeBody(w, r, &req) {
		return
	}
	if title, _ := req["title"].(string); title == "" {
		fail(w, http.StatusBadRequest, "Title is required")
		return
	}

	doc := copyDoc(req)
	id := uuid.NewString()
	doc["_id"] = id
	doc["createdAt"] = s.config.Now().UTC().Format(time.RFC3339)

	s.store.mu.Lock()
	s.store.notifications[id] = doc
	s.store.order = append(s.store.order, id)
	out := copyDoc(doc)
	s.store.mu.Unlock()

	writeJSON(w, http.StatusCreated, envelope{Success: true, Message: "Notification created", Data: out})
}

func (s *Server) handleUpdateNotification(w http.ResponseWriter, r *http.Request) {
	var req map[string]any
	if !decodeBody(w, r, &req) {
		return
	}
	id := mux.Vars(r)["id"]

	s.store.mu.Lock()
	defer s.store.mu.Unlock()
	doc, ok := s.store.notifications[id]
	if !ok {
		fail(w, http.StatusNotFound, "Notification not found")
		return
	}
	for k, v := range req {
		if k == "_id" || k == "createdAt" {
			continue
		}
		doc[k] = v
	}
	doc["updatedAt"] = s.config.Now().UTC().Format(time.RFC3339)
	succeed(w, "Notification updated", copyDoc(doc))
}

func (s *Server) handleDeleteNotification(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	s.store.mu.Lock()
	defer s.store.mu.Unlock()
	if _, ok := s.store.notifications[id]; !ok {
		fail(w, http.StatusNotFound, "Notification not found")
		return
	}
	delete(s.store.notifications, id)
	for i, v := range s.store.order {
		if v == id {
			s.store.order = append(s.store.order[:i], s.store.order[i+1:]...)
			break
		}
	}
	succeed(w, "Notification deleted", map[string]any{"_id": id})
}
