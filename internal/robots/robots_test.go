package robots

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestAllowed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/robots.txt" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte("User-agent: *\nDisallow: /dp/\n"))
	}))
	defer srv.Close()

	c := NewChecker()
	ctx := context.Background()

	if c.Allowed(ctx, srv.URL+"/dp/B0ABCD1234") {
		t.Fatalf("disallowed path admitted")
	}
	if !c.Allowed(ctx, srv.URL+"/gp/help") {
		t.Fatalf("allowed path denied")
	}
}

func TestFetchFailureAllowsAll(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewChecker()
	if !c.Allowed(context.Background(), srv.URL+"/dp/B0ABCD1234") {
		t.Fatalf("fetch failure should allow")
	}
}

func TestBadURLAllows(t *testing.T) {
	c := NewChecker()
	if !c.Allowed(context.Background(), "::not a url::") {
		t.Fatalf("unparseable URL should allow")
	}
}
