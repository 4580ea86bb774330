package github

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	perr "sentinel/internal/platform/errors"
	identdom "sentinel/internal/services/ident/domain"
	identrepo "sentinel/internal/services/ident/repo"
	identsvc "sentinel/internal/services/ident/service"
	"sentinel/internal/services/tracker/domain"
)

const commitsPath = "/repos/w3c/csswg-drafts/commits"

type ghServer struct {
	*httptest.Server
	mu    sync.Mutex
	auth  []string
	query []string
	ua    string
}

func newGHServer(t *testing.T, h func(s *ghServer, w http.ResponseWriter, r *http.Request)) *ghServer {
	t.Helper()
	s := &ghServer{}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.auth = append(s.auth, r.Header.Get("Authorization"))
		s.query = append(s.query, r.URL.RawQuery)
		s.ua = r.Header.Get("User-Agent")
		s.mu.Unlock()
		h(s, w, r)
	}))
	t.Cleanup(s.Close)
	return s
}

func resolver() identdom.Resolver {
	return identsvc.New(&identrepo.Static{Dir: identdom.Directory{
		{Name: "A. Person", Email: "a@x.org", Organization: "X"},
	}})
}

func newAdapter(t *testing.T, base, token string) *Adapter {
	t.Helper()
	c, err := NewClient(context.Background(), Options{Token: token, BaseURL: base})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return New(c, Options{}, resolver())
}

const page1 = `[
 {"sha":"c1","html_url":"https://github.com/w3c/csswg-drafts/commit/c1","url":"https://api.github.com/repos/w3c/csswg-drafts/commits/c1",
  "commit":{"message":"[css-grid] fix gap\n\nbody","author":{"name":"A. Person","email":"a@x.org","date":"2015-01-05T10:00:00+01:00"}}},
 {"sha":"c2","html_url":"https://github.com/w3c/csswg-drafts/commit/c2",
  "commit":{"author":{"name":"Ghost","email":"g@x.org","date":"2015-01-06T00:00:00Z"}}}
]`

const page2 = `[
 {"sha":"c3","url":"https://api.github.com/repos/w3c/csswg-drafts/commits/c3",
  "commit":{"message":"Editorial tweaks","author":{"name":"B. Other","email":"b@ibm.com","date":"2015-02-01T08:30:00Z"}}}
]`

func TestRetrieveFollowsPages(t *testing.T) {
	srv := newGHServer(t, func(s *ghServer, w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != commitsPath {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("X-RateLimit-Remaining", "4999")
		if r.URL.Query().Get("page") == "2" {
			fmt.Fprint(w, page2)
			return
		}
		w.Header().Set("Link", fmt.Sprintf(`<%s%s?page=2&per_page=100>; rel="next"`, s.URL, commitsPath))
		fmt.Fprint(w, page1)
	})

	a := newAdapter(t, srv.URL, "tok")
	since := time.Date(2015, 1, 1, 0, 0, 0, 0, time.UTC)
	until := time.Date(2015, 3, 31, 0, 0, 0, 0, time.UTC)
	got, err := a.Retrieve(context.Background(), since, until)
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("contributions = %d, want 2 (%+v)", len(got), got)
	}

	first := got[0]
	if first.Sha != "c1" || first.Spec != "grid" || first.Organization != "X" || first.Tracker != domain.Github {
		t.Fatalf("first = %+v", first)
	}
	if first.Author.Name != "A. Person" || first.Author.Email != "a@x.org" {
		t.Fatalf("author = %+v", first.Author)
	}
	if !first.Date.Equal(time.Date(2015, 1, 5, 9, 0, 0, 0, time.UTC)) || first.Date.Location() != time.UTC {
		t.Fatalf("date = %v", first.Date)
	}
	if first.URL != "https://github.com/w3c/csswg-drafts/commit/c1" || !strings.HasPrefix(first.Message, "[css-grid] fix gap") {
		t.Fatalf("url/message = %q %q", first.URL, first.Message)
	}

	second := got[1]
	if second.Spec != "unknown" || second.Organization != "IBM" {
		t.Fatalf("second = %+v", second)
	}
	if second.URL != "https://api.github.com/repos/w3c/csswg-drafts/commits/c3" {
		t.Fatalf("fallback url = %q", second.URL)
	}

	srv.mu.Lock()
	defer srv.mu.Unlock()
	if len(srv.auth) != 2 || srv.auth[0] != "Bearer tok" {
		t.Fatalf("auth headers = %v", srv.auth)
	}
	for _, want := range []string{"since=2015-01-01T00%3A00%3A00Z", "until=2015-03-31T00%3A00%3A00Z", "per_page=100"} {
		if !strings.Contains(srv.query[0], want) {
			t.Fatalf("query %q missing %q", srv.query[0], want)
		}
	}
	if srv.ua != defaultUA {
		t.Fatalf("user agent = %q", srv.ua)
	}
}

func TestRetrieveUnauthenticated(t *testing.T) {
	srv := newGHServer(t, func(_ *ghServer, w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `[]`)
	})
	a := newAdapter(t, srv.URL, "")
	got, err := a.Retrieve(context.Background(), time.Now().AddDate(0, -1, 0), time.Now())
	if err != nil || len(got) != 0 {
		t.Fatalf("Retrieve = %v, %v", got, err)
	}
	if srv.auth[0] != "" {
		t.Fatalf("unexpected auth header %q", srv.auth[0])
	}
}

func TestRetrieveErrors(t *testing.T) {
	reset := fmt.Sprint(time.Now().Add(time.Hour).Unix())
	cases := []struct {
		name   string
		status int
		header map[string]string
		body   string
		want   perr.ErrorCode
	}{
		{"unauthorized", http.StatusUnauthorized, nil, `{"message":"Bad credentials"}`, perr.ErrorCodeUnauthorized},
		{"rate limited", http.StatusForbidden, map[string]string{"X-RateLimit-Remaining": "0", "X-RateLimit-Limit": "60", "X-RateLimit-Reset": reset}, `{"message":"API rate limit exceeded"}`, perr.ErrorCodeTooManyRequests},
		{"too many requests", http.StatusTooManyRequests, nil, `{"message":"slow down"}`, perr.ErrorCodeTooManyRequests},
		{"server error", http.StatusBadGateway, nil, `{"message":"bad gateway"}`, perr.ErrorCodeUnavailable},
		{"not found", http.StatusNotFound, nil, `{"message":"Not Found"}`, perr.ErrorCodeUnavailable},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			srv := newGHServer(t, func(_ *ghServer, w http.ResponseWriter, _ *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				for k, v := range c.header {
					w.Header().Set(k, v)
				}
				w.WriteHeader(c.status)
				fmt.Fprint(w, c.body)
			})
			a := newAdapter(t, srv.URL, "tok")
			_, err := a.Retrieve(context.Background(), time.Now().AddDate(0, -1, 0), time.Now())
			if got := perr.CodeOf(err); got != c.want {
				t.Fatalf("code = %v, want %v (%v)", got, c.want, err)
			}
		})
	}
}

func TestRetrieveTransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	base := srv.URL
	srv.Close()

	a := newAdapter(t, base, "")
	_, err := a.Retrieve(context.Background(), time.Now().AddDate(0, -1, 0), time.Now())
	if !perr.IsCode(err, perr.ErrorCodeUnavailable) {
		t.Fatalf("expected unavailable, got %v", err)
	}
}

func TestRetrieveDirectoryFailureIsFatal(t *testing.T) {
	srv := newGHServer(t, func(_ *ghServer, w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, page2)
	})
	c, err := NewClient(context.Background(), Options{BaseURL: srv.URL})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	broken := identsvc.New(&identrepo.Static{Err: fmt.Errorf("no such file")})
	_, err = New(c, Options{}, broken).Retrieve(context.Background(), time.Now().AddDate(0, -1, 0), time.Now())
	if !perr.IsCode(err, perr.ErrorCodeDirectory) {
		t.Fatalf("expected directory error, got %v", err)
	}
}

func TestNewClientRejectsBadBaseURL(t *testing.T) {
	if _, err := NewClient(context.Background(), Options{BaseURL: "not a url"}); !perr.IsCode(err, perr.ErrorCodeInvalidArgument) {
		t.Fatalf("expected invalid argument, got %v", err)
	}
}
