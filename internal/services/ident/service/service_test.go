package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	perr "sentinel/internal/platform/errors"
	kit "sentinel/internal/platform/testkit"
	"sentinel/internal/services/ident/domain"
	"sentinel/internal/services/ident/repo"
)

const contactsXML = `<contacts>
  <contact email="a@x.org" name="A. Person" org="X Corp" />
  <contact email="b@ibm.com" name="B. Person" />
  <contact name="C. Nobody" />
</contacts>`

func newResolver(t *testing.T) (*Resolver, *repo.File) {
	t.Helper()
	f := repo.NewFile(kit.WriteFile(t, "contacts.xml", contactsXML))
	return New(f), f
}

func TestByEmail(t *testing.T) {
	r, _ := newResolver(t)
	ctx := context.Background()

	cases := []struct {
		email string
		want  domain.Identity
	}{
		{"a@x.org", domain.Identity{Name: "A. Person", Email: "a@x.org", Organization: "X Corp"}},
		{"b@ibm.com", domain.Identity{Name: "B. Person", Email: "b@ibm.com", Organization: "IBM"}},
		{"x@chromium.org", domain.Identity{Email: "x@chromium.org", Organization: "Google"}},
		{"y@ibm.com", domain.Identity{Email: "y@ibm.com", Organization: "IBM"}},
		{"z@example.co.uk", domain.Identity{Email: "z@example.co.uk", Organization: "example.co.uk"}},
		{"", domain.Identity{}},
	}
	for _, c := range cases {
		got, err := r.ByEmail(ctx, c.email)
		if err != nil {
			t.Fatalf("ByEmail(%q): %v", c.email, err)
		}
		if got != c.want {
			t.Fatalf("ByEmail(%q) = %+v, want %+v", c.email, got, c.want)
		}
	}
}

func TestByName(t *testing.T) {
	r, _ := newResolver(t)
	ctx := context.Background()

	got, err := r.ByName(ctx, "A. Person")
	if err != nil || got != (domain.Identity{Name: "A. Person", Email: "a@x.org", Organization: "X Corp"}) {
		t.Fatalf("ByName = %+v, %v", got, err)
	}

	// entry exists but its email is the placeholder
	got, _ = r.ByName(ctx, "C. Nobody")
	if got.Email != "" || got.Organization != "" {
		t.Fatalf("placeholder entry = %+v", got)
	}

	got, _ = r.ByName(ctx, "Stranger")
	if got != (domain.Identity{Name: "Stranger"}) {
		t.Fatalf("stranger = %+v", got)
	}
}

func TestDirectoryLoadedOnce(t *testing.T) {
	r, f := newResolver(t)
	ctx := context.Background()
	for range 5 {
		_, _ = r.ByEmail(ctx, "a@x.org")
		_, _ = r.ByName(ctx, "B. Person")
	}
	if f.Reads() != 1 {
		t.Fatalf("reads = %d, want 1", f.Reads())
	}
}

func TestDirectoryLoadedOnce_Concurrent(t *testing.T) {
	s := &repo.Static{Dir: domain.Directory{{Name: "A", Email: "a@x.org", Organization: "X"}}}
	r := New(s)

	var wg sync.WaitGroup
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := r.ByEmail(context.Background(), "a@x.org"); err != nil {
				t.Errorf("ByEmail: %v", err)
			}
		}()
	}
	wg.Wait()
	if s.Reads() != 1 {
		t.Fatalf("reads = %d, want 1", s.Reads())
	}
}

func TestLoadFailureIsStickyAndFatal(t *testing.T) {
	s := &repo.Static{Err: errors.New("corrupt")}
	r := New(s)
	ctx := context.Background()

	if err := r.Warm(ctx); !perr.IsCode(err, perr.ErrorCodeDirectory) {
		t.Fatalf("Warm err = %v", err)
	}
	if _, err := r.ByEmail(ctx, "a@x.org"); !perr.IsCode(err, perr.ErrorCodeDirectory) {
		t.Fatalf("ByEmail err = %v", err)
	}
	if _, err := r.ByName(ctx, "A"); err == nil {
		t.Fatalf("ByName should fail too")
	}
	if s.Reads() != 1 {
		t.Fatalf("failed load must not be retried, reads = %d", s.Reads())
	}
}

func TestNew_NilLoaderPanics(t *testing.T) {
	kit.MustPanic(t, func() { New(nil) })
}
