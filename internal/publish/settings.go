package publish

import (
	"strings"
	"time"

	"podpress/internal/config"
)

const (
	loginPath    = "/wp-login.php"
	adminPath    = "/wp-admin/"
	newPostPath  = "/wp-admin/post-new.php"
	postFormPath = "/wp-admin/post.php"

	defaultTimeout   = 30 * time.Second
	defaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"
)

// Settings describe the target site for one publish call.
type Settings struct {
	SiteURL   string
	Username  string
	Password  string
	Category  string
	Status    string
	Timeout   time.Duration
	UserAgent string
}

// SettingsFromConfig extracts publish settings from a merged configuration.
func SettingsFromConfig(cfg *config.Config) Settings {
	if cfg == nil {
		return Settings{}
	}
	wp := cfg.WordPress
	return Settings{
		SiteURL:   wp.URL,
		Username:  wp.Username,
		Password:  wp.Password,
		Category:  wp.Category,
		Status:    wp.Status,
		Timeout:   time.Duration(wp.Timeout) * time.Second,
		UserAgent: wp.UserAgent,
	}
}

// Complete reports whether site, username and password are all set.
func (s Settings) Complete() bool {
	return strings.TrimSpace(s.SiteURL) != "" && s.Username != "" && s.Password != ""
}

// Publishes reports whether the post should go live immediately.
func (s Settings) Publishes() bool {
	return s.Status == config.StatusPublish
}

func (s Settings) timeout() time.Duration {
	if s.Timeout > 0 {
		return s.Timeout
	}
	return defaultTimeout
}

func (s Settings) userAgent() string {
	if ua := strings.TrimSpace(s.UserAgent); ua != "" {
		return ua
	}
	return defaultUserAgent
}

// NormalizeSiteURL trims trailing slashes and a trailing /wp-admin segment.
func NormalizeSiteURL(raw string) string {
	site := strings.TrimRight(strings.TrimSpace(raw), "/")
	site = strings.TrimSuffix(site, "/wp-admin")
	return strings.TrimRight(site, "/")
}
