package article

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"

	"podpress/internal/logging"
)

const (
	referenceTimeout    = 10 * time.Second
	referenceSampleSize = 2000
	referenceBodyLimit  = 4 << 20
)

// referenceSelector matches post bodies on typical blog themes.
const referenceSelector = `article[class*="post"], article[class*="content"], div[class*="post"], div[class*="content"]`

func (g *Generator) referenceStyle(ctx context.Context) string {
	target := strings.TrimSpace(g.settings.ReferenceURL)
	if target == "" {
		return ""
	}
	sample, err := FetchStyleSample(ctx, g.httpClient, target)
	if err != nil {
		logging.WarnWithContext(logging.WithContext(ctx, g.logger), "reference style unavailable", "reference_style_failed",
			logging.String("reference_url", target),
			logging.String(logging.FieldErrorHint, "the article is written without a style sample"),
			logging.Error(err),
		)
		return ""
	}
	return sample
}

// FetchStyleSample downloads pageURL and returns the first post body as
// Markdown, truncated to 2000 characters. An empty string means no post body
// was found.
func FetchStyleSample(ctx context.Context, client *http.Client, pageURL string) (string, error) {
	if client == nil {
		client = &http.Client{Timeout: referenceTimeout}
	}
	ctx, cancel := context.WithTimeout(ctx, referenceTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", fmt.Errorf("build reference request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch reference: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("fetch reference: http %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(io.LimitReader(resp.Body, referenceBodyLimit))
	if err != nil {
		return "", fmt.Errorf("parse reference: %w", err)
	}
	body := doc.Find(referenceSelector).First()
	if body.Length() == 0 {
		return "", nil
	}
	fragment, err := goquery.OuterHtml(body)
	if err != nil {
		return "", fmt.Errorf("render reference: %w", err)
	}
	converter := md.NewConverter("", true, nil)
	text, err := converter.ConvertString(fragment)
	if err != nil {
		text = body.Text()
	}
	return truncateRunes(strings.TrimSpace(text), referenceSampleSize), nil
}

func truncateRunes(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
