package testkit

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
)

// Site is an httptest server answering fixed bodies per path and counting hits
// Unknown paths answer 404
type Site struct {
	*httptest.Server

	mu     sync.Mutex
	pages  map[string]string
	status map[string]int
	hits   map[string]int
}

// NewSite starts a Site that is closed when the test ends
func NewSite(t *testing.T) *Site {
	t.Helper()
	s := &Site{
		pages:  map[string]string{},
		status: map[string]int{},
		hits:   map[string]int{},
	}
	s.Server = httptest.NewServer(http.HandlerFunc(s.serve))
	t.Cleanup(s.Close)
	return s
}

// Page registers body for path with a 200 status
func (s *Site) Page(path, body string) *Site {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pages[path] = body
	return s
}

// Fail makes path answer with status and an empty body
func (s *Site) Fail(path string, status int) *Site {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status[path] = status
	return s
}

// Hits returns how many requests path received
func (s *Site) Hits(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits[path]
}

func (s *Site) serve(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.hits[r.URL.Path]++
	code, failed := s.status[r.URL.Path]
	body, ok := s.pages[r.URL.Path]
	s.mu.Unlock()

	switch {
	case failed:
		w.WriteHeader(code)
	case ok:
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(body))
	default:
		http.NotFound(w, r)
	}
}
