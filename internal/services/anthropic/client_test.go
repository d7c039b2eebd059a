package anthropic

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/aktagon/llmkit/anthropic/types"
)

func TestCompletePassesSettings(t *testing.T) {
	client := NewClient(Config{APIKey: " key ", Model: "claude-test", Temperature: 0.4, MaxTokens: 1200})
	var gotSettings types.RequestSettings
	var gotUser, gotKey string
	client.prompt = func(system, user, apiKey string, settings types.RequestSettings) (string, error) {
		gotSettings = settings
		gotUser = user
		gotKey = apiKey
		return "  {\"title\":\"t\"}  ", nil
	}

	text, err := client.Complete(context.Background(), "write something")
	if err != nil {
		t.Fatalf("Complete returned error: %v", err)
	}
	if text != "{\"title\":\"t\"}" {
		t.Fatalf("unexpected text %q", text)
	}
	if gotSettings.Model != "claude-test" || gotSettings.MaxTokens != 1200 || gotSettings.Temperature != 0.4 {
		t.Fatalf("unexpected settings %+v", gotSettings)
	}
	if gotUser != "write something" || gotKey != "key" {
		t.Fatalf("unexpected prompt %q or key %q", gotUser, gotKey)
	}
}

func TestCompleteKeepsOverloadMessage(t *testing.T) {
	client := NewClient(Config{APIKey: "key"})
	client.prompt = func(string, string, string, types.RequestSettings) (string, error) {
		return "", errors.New("API error: overloaded_error: Overloaded")
	}
	_, err := client.Complete(context.Background(), "hello")
	if err == nil || !strings.Contains(strings.ToLower(err.Error()), "overloaded") {
		t.Fatalf("expected overload error to surface, got %v", err)
	}
}

func TestCompleteRequiresKey(t *testing.T) {
	client := NewClient(Config{})
	called := false
	client.prompt = func(string, string, string, types.RequestSettings) (string, error) {
		called = true
		return "x", nil
	}
	if _, err := client.Complete(context.Background(), "hello"); err == nil {
		t.Fatal("expected missing key error")
	}
	if called {
		t.Fatal("prompt must not be sent without a key")
	}
}

func TestCompleteHonorsCancellation(t *testing.T) {
	client := NewClient(Config{APIKey: "key"})
	release := make(chan struct{})
	defer close(release)
	client.prompt = func(string, string, string, types.RequestSettings) (string, error) {
		<-release
		return "late", nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := client.Complete(ctx, "hello"); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline error, got %v", err)
	}
}

func TestCompleteAppliesConfiguredTimeout(t *testing.T) {
	client := NewClient(Config{APIKey: "key", Timeout: 30 * time.Millisecond})
	release := make(chan struct{})
	defer close(release)
	client.prompt = func(string, string, string, types.RequestSettings) (string, error) {
		<-release
		return "late", nil
	}

	done := make(chan error, 1)
	go func() {
		_, err := client.Complete(context.Background(), "hello")
		done <- err
	}()
	select {
	case err := <-done:
		if !errors.Is(err, context.DeadlineExceeded) {
			t.Fatalf("expected deadline error, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Complete did not return after its timeout")
	}
}

func TestNewClientDefaultsTimeout(t *testing.T) {
	client := NewClient(Config{APIKey: "key"})
	if client.cfg.Timeout != defaultTimeout {
		t.Fatalf("expected default timeout %v, got %v", defaultTimeout, client.cfg.Timeout)
	}
}
