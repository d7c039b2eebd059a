package audio

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"podpress/internal/services"
)

func TestIsDirect(t *testing.T) {
	cases := map[string]bool{
		"https://cdn.example.com/ep1.mp3":           true,
		"https://cdn.example.com/ep1.M4A?token=abc": true,
		"https://cdn.example.com/show/ep1.flac":     true,
		"https://open.spotify.com/episode/abc123":   false,
		"https://www.youtube.com/watch?v=mp3":       false,
		"https://cdn.example.com/ep1.mp3.html":      false,
	}
	for raw, want := range cases {
		if got := IsDirect(raw); got != want {
			t.Errorf("IsDirect(%q) = %v, want %v", raw, got, want)
		}
	}
}

func TestFetchDirectDownload(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/episodes/42.mp3" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte("ID3fake-audio"))
	}))
	defer server.Close()

	work := t.TempDir()
	fetcher := NewFetcher(work, WithHTTPClient(server.Client()), WithRunner(func(context.Context, string, ...string) error {
		t.Fatal("yt-dlp must not run for direct links")
		return nil
	}))

	download, err := fetcher.Fetch(context.Background(), server.URL+"/episodes/42.mp3")
	if err != nil {
		t.Fatalf("Fetch returned error: %v", err)
	}
	data, err := os.ReadFile(download.Path)
	if err != nil {
		t.Fatalf("read download: %v", err)
	}
	if string(data) != "ID3fake-audio" || filepath.Ext(download.Path) != ".mp3" {
		t.Fatalf("unexpected download %q (%s)", data, download.Path)
	}
	if !strings.HasPrefix(download.Path, work) {
		t.Fatalf("download outside work dir: %s", download.Path)
	}
	if err := download.Remove(); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if _, err := os.Stat(download.Path); !os.IsNotExist(err) {
		t.Fatalf("expected file removed, stat err=%v", err)
	}
}

func TestFetchDirectNotFound(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	defer server.Close()

	work := t.TempDir()
	fetcher := NewFetcher(work, WithHTTPClient(server.Client()))
	_, err := fetcher.Fetch(context.Background(), server.URL+"/missing.wav")
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	entries, _ := os.ReadDir(work)
	if len(entries) != 0 {
		t.Fatalf("expected temp dir cleanup, found %d entries", len(entries))
	}
}

func TestFetchUsesYTDLPForPages(t *testing.T) {
	var gotName string
	var gotArgs []string
	fetcher := NewFetcher(t.TempDir(), WithYTDLP("/opt/yt-dlp"), WithRunner(func(_ context.Context, name string, args ...string) error {
		gotName = name
		gotArgs = args
		output := args[len(args)-2]
		return os.WriteFile(strings.Replace(output, "%(ext)s", "wav", 1), []byte("RIFF"), 0o644)
	}))

	download, err := fetcher.Fetch(context.Background(), "https://open.spotify.com/episode/abc123")
	if err != nil {
		t.Fatalf("Fetch returned error: %v", err)
	}
	defer download.Remove()
	if gotName != "/opt/yt-dlp" {
		t.Fatalf("unexpected binary %q", gotName)
	}
	if gotArgs[len(gotArgs)-1] != "https://open.spotify.com/episode/abc123" {
		t.Fatalf("url must be last argument: %v", gotArgs)
	}
	if filepath.Base(download.Path) != "audio.wav" {
		t.Fatalf("unexpected path %s", download.Path)
	}
}

func TestFetchYTDLPFailure(t *testing.T) {
	fetcher := NewFetcher(t.TempDir(), WithRunner(func(context.Context, string, ...string) error {
		return errors.New("yt-dlp exited with 1: Unsupported URL")
	}))
	_, err := fetcher.Fetch(context.Background(), "https://example.com/page")
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected external tool error, got %v", err)
	}
}

func TestFetchRejectsNonHTTP(t *testing.T) {
	fetcher := NewFetcher(t.TempDir())
	for _, raw := range []string{"", "ftp://example.com/a.mp3", "file:///tmp/a.mp3", "not a url"} {
		if _, err := fetcher.Fetch(context.Background(), raw); !errors.Is(err, services.ErrValidation) {
			t.Errorf("Fetch(%q): expected validation error, got %v", raw, err)
		}
	}
}
