package deps

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

func writeStub(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	return path
}

func TestCheckBinaries(t *testing.T) {
	binDir := t.TempDir()
	present := writeStub(t, binDir, "present", "exit 0")
	reqs := []Requirement{
		{Name: "Present", Command: present},
		{Name: "Missing", Command: "clearly-not-present-binary"},
		{Name: "Optional", Command: "another-missing-binary", Optional: true},
		{Name: "Blank", Command: "  "},
	}

	results := CheckBinaries(reqs)
	if len(results) != len(reqs) {
		t.Fatalf("expected %d results, got %d", len(reqs), len(results))
	}
	if !results[0].Available || results[0].Detail != "" {
		t.Fatalf("expected first requirement to be available, got %#v", results[0])
	}
	if results[1].Available || results[1].Detail == "" {
		t.Fatalf("expected missing binary to be unavailable with detail, got %#v", results[1])
	}
	if results[1].Command != "clearly-not-present-binary" {
		t.Fatalf("unexpected command recorded: %s", results[1].Command)
	}
	if results[3].Detail != "command not configured" {
		t.Fatalf("unexpected detail for blank command: %q", results[3].Detail)
	}

	missing := MissingRequired(results)
	if len(missing) != 2 || missing[0] != "Missing" || missing[1] != "Blank" {
		t.Fatalf("unexpected missing list %v", missing)
	}
}

func TestPipelineRequirements(t *testing.T) {
	reqs := Pipeline()
	names := map[string]bool{}
	for _, req := range reqs {
		names[req.Command] = req.Optional
	}
	if optional, ok := names["ffmpeg"]; !ok || optional {
		t.Fatal("ffmpeg must be a required dependency")
	}
	if optional, ok := names["yt-dlp"]; !ok || !optional {
		t.Fatal("yt-dlp must be listed as optional")
	}
}

func TestVersionReadsFirstLine(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell stubs require a POSIX shell")
	}
	dir := t.TempDir()
	tool := writeStub(t, dir, "tool", "echo ''\necho 'tool version 1.2.3'\necho 'built with love'")
	got, err := Version(context.Background(), tool, "-version")
	if err != nil {
		t.Fatalf("Version returned error: %v", err)
	}
	if got != "tool version 1.2.3" {
		t.Fatalf("unexpected version %q", got)
	}

	failing := writeStub(t, dir, "failing", "exit 3")
	if _, err := Version(context.Background(), failing); err == nil {
		t.Fatal("expected error for failing command")
	}
}
