package providers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestGetVideoTitleOEmbed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("format") != "json" {
			t.Errorf("missing format=json: %s", r.URL.RawQuery)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"title":"Oembed Title","author_name":"Channel"}`))
	}))
	defer srv.Close()

	old := OEmbedEndpoint
	OEmbedEndpoint = srv.URL
	defer func() { OEmbedEndpoint = old }()

	info, err := GetVideoTitle(context.Background(), srv.Client(), "https://www.youtube.com/watch?v=dQw4w9WgXcQ")
	if err != nil {
		t.Fatalf("GetVideoTitle() error: %v", err)
	}
	if info.Title != "Oembed Title" || info.AuthorName != "Channel" {
		t.Errorf("got %+v", info)
	}
}

func TestGetVideoTitleScrapeFallback(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/oembed", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusUnauthorized)
	})
	mux.HandleFunc("/watch", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html>\n<head><title>Rock &amp; Roll - YouTube</title></head>\n</html>"))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	old := OEmbedEndpoint
	OEmbedEndpoint = srv.URL + "/oembed"
	defer func() { OEmbedEndpoint = old }()

	info, err := GetVideoTitle(context.Background(), srv.Client(), srv.URL+"/watch?v=dQw4w9WgXcQ")
	if err != nil {
		t.Fatalf("GetVideoTitle() error: %v", err)
	}
	if info.Title != "Rock & Roll" {
		t.Errorf("title = %q, want %q", info.Title, "Rock & Roll")
	}
}
