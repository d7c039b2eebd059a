package audio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/exec"
	"path"
	"path/filepath"
	"strings"
	"time"

	"podpress/internal/logging"
	"podpress/internal/services"
)

const (
	stageName         = "acquisition"
	defaultYTDLP      = "yt-dlp"
	defaultTimeout    = 30 * time.Minute
	ytdlpOutputPrefix = "audio"
)

// DirectExtensions lists the suffixes downloaded without yt-dlp.
var DirectExtensions = []string{".mp3", ".wav", ".m4a", ".mp4", ".flac", ".ogg"}

// Download is a fetched audio file and the directory that holds it.
type Download struct {
	Path string
	dir  string
}

// Remove deletes the download directory.
func (d Download) Remove() error {
	if d.dir == "" {
		return nil
	}
	return os.RemoveAll(d.dir)
}

// Runner executes an external command.
type Runner func(ctx context.Context, name string, args ...string) error

// Fetcher retrieves audio for a URL.
type Fetcher struct {
	workDir string
	ytdlp   string
	client  *http.Client
	run     Runner
	logger  *slog.Logger
}

// Option customises a Fetcher.
type Option func(*Fetcher)

// WithHTTPClient replaces the client used for direct downloads.
func WithHTTPClient(client *http.Client) Option {
	return func(f *Fetcher) {
		if client != nil {
			f.client = client
		}
	}
}

// WithRunner replaces the yt-dlp command runner.
func WithRunner(run Runner) Option {
	return func(f *Fetcher) {
		if run != nil {
			f.run = run
		}
	}
}

// WithYTDLP sets the yt-dlp binary.
func WithYTDLP(binary string) Option {
	return func(f *Fetcher) {
		if binary = strings.TrimSpace(binary); binary != "" {
			f.ytdlp = binary
		}
	}
}

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(f *Fetcher) {
		f.logger = logging.NewComponentLogger(logger, "audio")
	}
}

// NewFetcher constructs a fetcher writing below workDir.
func NewFetcher(workDir string, opts ...Option) *Fetcher {
	f := &Fetcher{
		workDir: workDir,
		ytdlp:   defaultYTDLP,
		client:  &http.Client{Timeout: defaultTimeout},
		run:     execRunner,
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// IsDirect reports whether rawURL points straight at a media file.
func IsDirect(rawURL string) bool {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	ext := strings.ToLower(path.Ext(parsed.Path))
	for _, candidate := range DirectExtensions {
		if ext == candidate {
			return true
		}
	}
	return false
}

// Fetch downloads the audio behind rawURL.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (Download, error) {
	rawURL = strings.TrimSpace(rawURL)
	parsed, err := url.Parse(rawURL)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return Download{}, services.Wrap(services.ErrValidation, stageName, "parse url", fmt.Sprintf("unsupported url %q", rawURL), err)
	}
	if f.workDir != "" {
		if err := os.MkdirAll(f.workDir, 0o755); err != nil {
			return Download{}, services.Wrap(services.ErrConfiguration, stageName, "ensure work dir", "", err)
		}
	}
	dir, err := os.MkdirTemp(f.workDir, "audio-")
	if err != nil {
		return Download{}, services.Wrap(services.ErrConfiguration, stageName, "create temp dir", "", err)
	}

	var download Download
	if IsDirect(rawURL) {
		download, err = f.direct(ctx, parsed, dir)
	} else {
		download, err = f.extract(ctx, rawURL, dir)
	}
	if err != nil {
		_ = os.RemoveAll(dir)
		return Download{}, err
	}
	f.logger.Info("audio downloaded",
		logging.String(logging.FieldEventType, "audio_downloaded"),
		logging.String("url", rawURL),
		logging.String("path", download.Path),
		logging.Bool("direct", IsDirect(rawURL)),
	)
	return download, nil
}

func (f *Fetcher) direct(ctx context.Context, source *url.URL, dir string) (Download, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, source.String(), nil)
	if err != nil {
		return Download{}, services.Wrap(services.ErrValidation, stageName, "build request", "", err)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return Download{}, services.Wrap(services.ErrTransient, stageName, "download", "", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		marker := services.ErrTransient
		if resp.StatusCode == http.StatusNotFound {
			marker = services.ErrNotFound
		}
		return Download{}, services.Wrap(marker, stageName, "download", fmt.Sprintf("unexpected status %d", resp.StatusCode), nil)
	}

	dest := filepath.Join(dir, "audio"+strings.ToLower(path.Ext(source.Path)))
	file, err := os.Create(dest)
	if err != nil {
		return Download{}, services.Wrap(services.ErrConfiguration, stageName, "create file", "", err)
	}
	written, copyErr := io.Copy(file, resp.Body)
	closeErr := file.Close()
	if copyErr != nil {
		return Download{}, services.Wrap(services.ErrTransient, stageName, "write file", "", copyErr)
	}
	if closeErr != nil {
		return Download{}, services.Wrap(services.ErrConfiguration, stageName, "close file", "", closeErr)
	}
	if written == 0 {
		return Download{}, services.Wrap(services.ErrValidation, stageName, "download", "empty response body", nil)
	}
	return Download{Path: dest, dir: dir}, nil
}

func (f *Fetcher) extract(ctx context.Context, rawURL, dir string) (Download, error) {
	template := filepath.Join(dir, ytdlpOutputPrefix+".%(ext)s")
	args := []string{
		"--no-playlist",
		"--format", "bestaudio/best",
		"--extract-audio",
		"--audio-format", "wav",
		"--output", template,
		rawURL,
	}
	if err := f.run(ctx, f.ytdlp, args...); err != nil {
		return Download{}, services.Wrap(services.ErrExternalTool, stageName, "yt-dlp", "", err)
	}
	matches, err := filepath.Glob(filepath.Join(dir, ytdlpOutputPrefix+".*"))
	if err != nil || len(matches) == 0 {
		return Download{}, services.Wrap(services.ErrExternalTool, stageName, "yt-dlp", "no audio file produced", err)
	}
	chosen := matches[0]
	for _, candidate := range matches {
		if strings.EqualFold(filepath.Ext(candidate), ".wav") {
			chosen = candidate
			break
		}
	}
	return Download{Path: chosen, dir: dir}, nil
}

func execRunner(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec
	output, err := cmd.CombinedOutput()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return fmt.Errorf("%s exited with %d: %s", name, exitErr.ExitCode(), lastLine(string(output)))
		}
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}

func lastLine(output string) string {
	lines := strings.Split(strings.TrimSpace(output), "\n")
	return strings.TrimSpace(lines[len(lines)-1])
}
