// Package remotetest provides an in-memory site-management service for tests.
package remotetest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Failure selects how an injected failure is answered.
type Failure int

const (
	// FailStatus answers 503 with a JSON error body.
	FailStatus Failure = iota
	// FailRejected answers 200 with success=false.
	FailRejected
	// FailBadJSON answers 200 with a body that is not JSON.
	FailBadJSON
)

// Site is a site as stored by the fake service.
type Site struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Region    string    `json:"region"`
	SubRegion string    `json:"sub_region"`
	Locality  string    `json:"locality"`
	Address   string    `json:"address"`
	IsPrimary bool      `json:"is_primary"`
	IsActive  bool      `json:"is_active"`
	Latitude  *float64  `json:"latitude,omitempty"`
	Longitude *float64  `json:"longitude,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Request records one call received by the server.
type Request struct {
	Method string
	Path   string
}

// Server is a running fake service. Sites are kept per organization in
// insertion order, and setting a primary demotes the others.
type Server struct {
	*httptest.Server

	mu       sync.Mutex
	orgs     map[string][]Site
	nextID   int
	failures []Failure
	requests []Request
	now      func() time.Time
}

// NewServer starts a fake service. Call Close when done.
func NewServer() *Server {
	s := &Server{
		orgs: make(map[string][]Site),
		now:  func() time.Time { return time.Now().UTC().Truncate(time.Second) },
	}
	s.Server = httptest.NewServer(s.routes())
	return s
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.record)
	r.Use(s.injectFailure)
	r.Route("/organizations/{orgID}/sites", func(r chi.Router) {
		r.Get("/", s.handleList)
		r.Post("/", s.handleCreate)
		r.Put("/{siteID}", s.handleUpdate)
		r.Delete("/{siteID}", s.handleDelete)
	})
	return r
}

// Seed stores sites for orgID as if they had been created earlier. Sites
// without an id get one.
func (s *Server) Seed(orgID string, seeded ...Site) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, site := range seeded {
		if site.ID == "" {
			site.ID = s.newID()
		}
		if site.UpdatedAt.IsZero() {
			site.UpdatedAt = s.now()
		}
		s.orgs[orgID] = upsert(s.orgs[orgID], site)
	}
}

// Sites returns a copy of what the server holds for orgID.
func (s *Server) Sites(orgID string) []Site {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Site(nil), s.orgs[orgID]...)
}

// FailNext makes the next n requests fail with mode.
func (s *Server) FailNext(n int, mode Failure) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := 0; i < n; i++ {
		s.failures = append(s.failures, mode)
	}
}

// Requests returns every request received so far.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Request(nil), s.requests...)
}

func (s *Server) newID() string {
	s.nextID++
	return fmt.Sprintf("srv-%d", s.nextID)
}

func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.requests = append(s.requests, Request{Method: r.Method, Path: r.URL.Path})
		s.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

func (s *Server) injectFailure(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		var mode Failure
		injected := len(s.failures) > 0
		if injected {
			mode = s.failures[0]
			s.failures = s.failures[1:]
		}
		s.mu.Unlock()

		if !injected {
			next.ServeHTTP(w, r)
			return
		}
		switch mode {
		case FailStatus:
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "service unavailable"})
		case FailRejected:
			writeJSON(w, http.StatusOK, map[string]any{"success": false, "message": "rejected by test"})
		case FailBadJSON:
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("{not json"))
		}
	})
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	orgID := chi.URLParam(r, "orgID")
	list := s.Sites(orgID)
	if list == nil {
		list = []Site{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"sites": list})
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	orgID := chi.URLParam(r, "orgID")
	site, ok := decodeSite(w, r)
	if !ok {
		return
	}

	s.mu.Lock()
	site.ID = s.newID()
	site.UpdatedAt = s.now()
	s.orgs[orgID] = upsert(s.orgs[orgID], site)
	s.mu.Unlock()

	writeJSON(w, http.StatusCreated, map[string]any{"success": true, "site": site})
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	orgID, siteID := chi.URLParam(r, "orgID"), chi.URLParam(r, "siteID")
	site, ok := decodeSite(w, r)
	if !ok {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if indexOf(s.orgs[orgID], siteID) < 0 {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "site not found"})
		return
	}
	site.ID = siteID
	site.UpdatedAt = s.now()
	s.orgs[orgID] = upsert(s.orgs[orgID], site)
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "site": site})
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	orgID, siteID := chi.URLParam(r, "orgID"), chi.URLParam(r, "siteID")

	s.mu.Lock()
	defer s.mu.Unlock()
	list := s.orgs[orgID]
	i := indexOf(list, siteID)
	if i < 0 {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "site not found"})
		return
	}
	s.orgs[orgID] = append(list[:i:i], list[i+1:]...)
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func decodeSite(w http.ResponseWriter, r *http.Request) (Site, bool) {
	var site Site
	if err := json.NewDecoder(r.Body).Decode(&site); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
		return Site{}, false
	}
	if site.Name == "" {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": "name is required"})
		return Site{}, false
	}
	return site, true
}

func indexOf(list []Site, id string) int {
	for i, s := range list {
		if s.ID == id {
			return i
		}
	}
	return -1
}

// upsert replaces or appends site and keeps a single primary.
func upsert(list []Site, site Site) []Site {
	out := append([]Site(nil), list...)
	if i := indexOf(out, site.ID); i >= 0 {
		out[i] = site
	} else {
		out = append(out, site)
	}
	if site.IsPrimary {
		for i := range out {
			if out[i].ID != site.ID {
				out[i].IsPrimary = false
			}
		}
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
