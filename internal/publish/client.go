package publish

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/publicsuffix"

	"podpress/internal/article"
	"podpress/internal/logging"
)

const (
	defaultPause  = time.Second
	maxPageBytes  = 8 << 20
	loginButton   = "ログイン"
	publishButton = "公開"
	draftButton   = "下書きとして保存"
)

// Client publishes articles. It holds no session state; each call builds its
// own cookie jar.
type Client struct {
	logger    *slog.Logger
	transport http.RoundTripper
	pause     time.Duration
	sleep     func(context.Context, time.Duration) error
}

// Option customizes the client.
type Option func(*Client)

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithTransport overrides the HTTP transport (useful for tests).
func WithTransport(rt http.RoundTripper) Option {
	return func(c *Client) {
		if rt != nil {
			c.transport = rt
		}
	}
}

// WithPause sets the wait between login and submission.
func WithPause(d time.Duration) Option {
	return func(c *Client) {
		c.pause = d
	}
}

// NewClient constructs a publishing client.
func NewClient(opts ...Option) *Client {
	c := &Client{
		logger: logging.NewNop(),
		pause:  defaultPause,
		sleep:  sleepContext,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = logging.NewComponentLogger(c.logger, "wordpress")
	return c
}

// Publish submits a and reports success. It never returns an error; failures
// are logged.
func (c *Client) Publish(ctx context.Context, a article.Article, settings Settings) bool {
	_, err := c.Submit(ctx, a, settings)
	return err == nil
}

// Submit logs in and creates a post, returning ErrInvalidSettings, an
// *AuthError or a *PublishError on failure.
func (c *Client) Submit(ctx context.Context, a article.Article, settings Settings) (Result, error) {
	logger := logging.WithContext(ctx, c.logger)
	if !settings.Complete() {
		logger.Warn("wordpress settings incomplete, skipping publish",
			logging.String(logging.FieldEventType, "publish_settings_incomplete"),
			logging.String(logging.FieldErrorHint, "set wordpress url, username and password"),
		)
		return Result{State: StateInit}, ErrInvalidSettings
	}

	s, err := c.newSession(settings, logger)
	if err != nil {
		return Result{State: StateInit}, err
	}
	if err := s.login(ctx); err != nil {
		return s.result(), err
	}
	if err := c.sleep(ctx, c.pause); err != nil {
		s.transition(StatePublishFailed)
		return s.result(), &PublishError{Reason: "interrupted before submission", Err: err}
	}
	if err := s.submit(ctx, a); err != nil {
		return s.result(), err
	}
	return s.result(), nil
}

// VerifyLogin checks the credentials without creating a post.
func (c *Client) VerifyLogin(ctx context.Context, settings Settings) error {
	if !settings.Complete() {
		return ErrInvalidSettings
	}
	s, err := c.newSession(settings, logging.WithContext(ctx, c.logger))
	if err != nil {
		return err
	}
	return s.login(ctx)
}

type session struct {
	site     string
	settings Settings
	http     *http.Client
	logger   *slog.Logger
	state    State
	postID   string
	finalURL string
}

func (c *Client) newSession(settings Settings, logger *slog.Logger) (*session, error) {
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("create cookie jar: %w", err)
	}
	site := NormalizeSiteURL(settings.SiteURL)
	return &session{
		site:     site,
		settings: settings,
		http:     &http.Client{Jar: jar, Timeout: settings.timeout(), Transport: c.transport},
		logger:   logger.With(logging.String("site", site)),
		state:    StateInit,
	}, nil
}

// transition moves the session to next unless it already reached a terminal
// state, which is final.
func (s *session) transition(next State) {
	if s.state.Terminal() {
		s.logger.Warn("ignoring publish state change after terminal state",
			logging.String("from", string(s.state)),
			logging.String("to", string(next)),
		)
		return
	}
	s.logger.Debug("publish state change", logging.String("from", string(s.state)), logging.String("to", string(next)))
	s.state = next
}

func (s *session) result() Result {
	return Result{State: s.state, PostID: s.postID, FinalURL: s.finalURL}
}

func (s *session) login(ctx context.Context) error {
	s.transition(StateAuthenticating)
	loginURL := s.site + loginPath
	s.logger.Info("opening login page", logging.String("url", loginURL))

	doc, _, err := s.get(ctx, loginURL)
	if err != nil {
		return s.authFailed("login page unavailable", loginURL, err)
	}
	hidden, ok := loginFormFields(doc)
	if !ok {
		return s.authFailed("login form not found", loginURL, nil)
	}

	form := url.Values{}
	form.Set("log", s.settings.Username)
	form.Set("pwd", s.settings.Password)
	form.Set("wp-submit", loginButton)
	form.Set("redirect_to", s.site+adminPath)
	form.Set("testcookie", "1")
	for name, value := range hidden {
		form.Set(name, value)
	}

	_, finalURL, err := s.post(ctx, loginURL, form)
	if err != nil {
		return s.authFailed("login request failed", loginURL, err)
	}
	if !loginSucceeded(finalURL) {
		s.logger.Debug("login landed outside wp-admin", logging.String("final_url", finalURL))
		return s.authFailed("credentials rejected", finalURL, nil)
	}
	s.transition(StateAuthOK)
	s.logger.Info("wordpress login succeeded")
	return nil
}

func (s *session) authFailed(reason, target string, err error) error {
	s.transition(StateAuthFailed)
	attrs := []logging.Attr{
		logging.String("reason", reason),
		logging.String("url", target),
		logging.String(logging.FieldErrorHint, "check wordpress url, username and password"),
	}
	if err != nil {
		attrs = append(attrs, logging.Error(err))
	}
	logging.ErrorWithContext(s.logger, "wordpress login failed", "publish_auth_failed", attrs...)
	return &AuthError{Reason: reason, URL: target, Err: err}
}

func (s *session) submit(ctx context.Context, a article.Article) error {
	s.transition(StateSubmitting)
	editorURL := s.site + newPostPath
	s.logger.Info("opening editor", logging.String("url", editorURL))

	doc, _, err := s.get(ctx, editorURL)
	if err != nil {
		return s.publishFailed("editor page unavailable", editorURL, "", err)
	}
	fields := editorFields(doc)
	if missing := missingEditorField(fields); missing != "" {
		return s.publishFailed("editor field "+missing+" not found", editorURL, "", nil)
	}
	s.postID = fields["post_ID"]

	form := url.Values{}
	form.Set("post_title", a.Title)
	form.Set("content", a.Content)
	form.Set("excerpt", a.Summary)
	if s.settings.Publishes() {
		form.Set("post_status", "publish")
		form.Set("publish", publishButton)
	} else {
		form.Set("post_status", "draft")
		form.Set("save", draftButton)
	}
	for _, name := range essentialEditorFields {
		if value, ok := fields[name]; ok {
			form.Set(name, value)
		}
	}
	form.Set("action", editAction)
	form.Set("originalaction", editAction)
	if id, ok := categoryID(doc, s.settings.Category); ok {
		form.Add("post_category[]", id)
	} else if s.settings.Category != "" {
		s.logger.Debug("category not offered by editor", logging.String("category", s.settings.Category))
	}
	if len(a.Tags) > 0 {
		form.Set("tax_input[post_tag]", strings.Join(a.Tags, ","))
	}

	s.logger.Info("submitting post",
		logging.String("post_id", s.postID),
		logging.String("title", truncate(a.Title, 50)),
		logging.String("status", form.Get("post_status")),
	)
	page, finalURL, err := s.post(ctx, s.site+postFormPath, form)
	if err != nil {
		return s.publishFailed("submission request failed", s.site+postFormPath, "", err)
	}
	s.finalURL = finalURL

	switch classifySubmission(finalURL) {
	case outcomeSaved, outcomeListed:
		if id := postIDFromURL(finalURL); id != "" {
			s.postID = id
		}
		s.transition(StatePublished)
		s.logger.Info("post submitted", logging.String("post_id", s.postID), logging.String("final_url", finalURL))
		return nil
	}
	if notice, ok := errorNotice(page); ok {
		return s.publishFailed("editor reported an error", finalURL, notice, nil)
	}
	return s.publishFailed("outcome not recognised", finalURL, "", nil)
}

func (s *session) publishFailed(reason, target, notice string, err error) error {
	s.transition(StatePublishFailed)
	attrs := []logging.Attr{
		logging.String("reason", reason),
		logging.String("url", target),
		logging.String(logging.FieldErrorHint, "the post was not retried; check the wordpress dashboard before resubmitting"),
	}
	if notice != "" {
		attrs = append(attrs, logging.String("server_message", notice))
	}
	if err != nil {
		attrs = append(attrs, logging.Error(err))
	}
	logging.ErrorWithContext(s.logger, "wordpress publish failed", "publish_failed", attrs...)
	return &PublishError{Reason: reason, URL: target, ServerMessage: notice, Err: err}
}

func (s *session) get(ctx context.Context, target string) (*goquery.Document, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, "", err
	}
	return s.do(req)
}

func (s *session) post(ctx context.Context, target string, form url.Values) (*goquery.Document, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return s.do(req)
}

// do sends req, follows redirects and parses the final page. Non-2xx
// answers are errors.
func (s *session) do(req *http.Request) (*goquery.Document, string, error) {
	req.Header.Set("User-Agent", s.settings.userAgent())
	resp, err := s.http.Do(req)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()
	finalURL := resp.Request.URL.String()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 200))
		return nil, finalURL, fmt.Errorf("http %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}
	doc, err := goquery.NewDocumentFromReader(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return nil, finalURL, fmt.Errorf("parse %s: %w", finalURL, err)
	}
	return doc, finalURL, nil
}

func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + "..."
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// IsAuthFailure reports whether err came from the login step.
func IsAuthFailure(err error) bool {
	var authErr *AuthError
	return errors.As(err, &authErr)
}
