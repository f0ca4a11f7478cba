package geocode

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestForwardSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/search" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if r.URL.Query().Get("q") != "Paris" {
			t.Errorf("unexpected query: %s", r.URL.Query().Get("q"))
		}
		if r.Header.Get("User-Agent") != "post-geocoder" {
			t.Errorf("unexpected user agent: %s", r.Header.Get("User-Agent"))
		}
		w.Write([]byte(`[{"lat":"48.85661234567","lon":"2.3522"}]`))
	}))
	defer srv.Close()

	client := NewNominatim(srv.URL, "post-geocoder", time.Second)
	coords, found, err := client.Forward(context.Background(), "Paris")
	if err != nil {
		t.Fatalf("forward: %v", err)
	}
	if !found {
		t.Fatalf("expected match")
	}
	if coords.Lat != 48.856612 || coords.Lng != 2.3522 {
		t.Fatalf("unexpected coords: %+v", coords)
	}
}

func TestForwardNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	client := NewNominatim(srv.URL, "post-geocoder", time.Second)
	_, found, err := client.Forward(context.Background(), "asdkjasdlkj_not_a_place")
	if err != nil {
		t.Fatalf("forward: %v", err)
	}
	if found {
		t.Fatalf("expected no match")
	}
}

func TestForwardEmptySkipsNetwork(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		called = true
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	client := NewNominatim(srv.URL, "post-geocoder", time.Second)
	_, found, err := client.Forward(context.Background(), "")
	if err != nil || found {
		t.Fatalf("expected clean miss for empty input")
	}
	if called {
		t.Fatalf("expected no network call for empty input")
	}
}

func TestForwardProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	client := NewNominatim(srv.URL, "post-geocoder", time.Second)
	_, found, err := client.Forward(context.Background(), "Paris")
	if err == nil {
		t.Fatalf("expected provider error")
	}
	if found {
		t.Fatalf("found must be false on provider error")
	}
}

func TestForwardTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(100 * time.Millisecond)
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	client := NewNominatim(srv.URL, "post-geocoder", 10*time.Millisecond)
	_, _, err := client.Forward(context.Background(), "Paris")
	if err == nil {
		t.Fatalf("expected timeout error")
	}
}

func TestReverseSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/reverse" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if r.URL.Query().Get("lat") != "48.856600" {
			t.Errorf("unexpected lat: %s", r.URL.Query().Get("lat"))
		}
		w.Write([]byte(`{"display_name":"Paris, Île-de-France, France"}`))
	}))
	defer srv.Close()

	client := NewNominatim(srv.URL, "post-geocoder", time.Second)
	addr, found, err := client.Reverse(context.Background(), 48.8566, 2.3522)
	if err != nil || !found {
		t.Fatalf("reverse: %v", err)
	}
	if addr != "Paris, Île-de-France, France" {
		t.Fatalf("unexpected address: %s", addr)
	}
}

func TestReverseNoResult(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"error":"Unable to geocode"}`))
	}))
	defer srv.Close()

	client := NewNominatim(srv.URL, "post-geocoder", time.Second)
	_, found, err := client.Reverse(context.Background(), 0, 0)
	if err != nil {
		t.Fatalf("reverse: %v", err)
	}
	if found {
		t.Fatalf("expected no match")
	}
}

func TestForwardBadPayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`[{"lat":"not-a-number","lon":"2.35"}]`))
	}))
	defer srv.Close()

	client := NewNominatim(srv.URL, "post-geocoder", time.Second)
	_, _, err := client.Forward(context.Background(), "Paris")
	if err == nil {
		t.Fatalf("expected parse error")
	}
}
