package article

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
)

const defaultEmbedBaseURL = "https://open.spotify.com/embed/episode/"

const embedTemplate = `<iframe style="border-radius:12px" src="%s%s" width="100%%" height="352" frameBorder="0" allowfullscreen="" allow="autoplay; clipboard-write; encrypted-media; fullscreen; picture-in-picture" loading="lazy"></iframe>`

// EpisodeID returns the trailing path segment of an episode reference. Query
// strings and fragments are ignored. References without a slash are returned
// as-is.
func EpisodeID(ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return ""
	}
	if parsed, err := url.Parse(ref); err == nil && parsed.Scheme != "" {
		ref = parsed.Path
	}
	ref = strings.TrimRight(ref, "/")
	if idx := strings.LastIndex(ref, "/"); idx >= 0 {
		return ref[idx+1:]
	}
	return ref
}

func embedSnippet(baseURL, episodeURL string) string {
	id := EpisodeID(episodeURL)
	if id == "" {
		return ""
	}
	if strings.TrimSpace(baseURL) == "" {
		baseURL = defaultEmbedBaseURL
	}
	return fmt.Sprintf(embedTemplate, baseURL, id)
}

type promptInput struct {
	Transcript     string
	ReferenceStyle string
	CustomStyle    string
	MinCharacters  int
	Disclaimer     string
	Embed          string
}

func buildPrompt(in promptInput) string {
	var b strings.Builder
	b.WriteString("以下のポッドキャストの文字起こしを、読みやすいブログ記事に書き直してください。\n\n")
	b.WriteString("【要件】\n")
	rules := []string{
		"H2・H3の見出しで構成する",
		"段落は読みやすい長さで区切る",
		"重要なポイントは<strong>で強調する",
		"必要に応じて箇条書きを使う",
		"自然で親しみやすい語り口の日本語で書く",
		"内容に沿った具体的で検索されやすいタイトルを付ける",
		fmt.Sprintf("本文はHTMLタグを除いて%d文字以上にする", in.MinCharacters),
		"文字起こしにない情報・数値・日付・人名・社名は加えない。推測による補完や推測表現も使わない",
	}
	if in.Disclaimer != "" {
		rules = append(rules, fmt.Sprintf("本文の末尾に「%s」を入れる", in.Disclaimer))
	}
	if in.Embed != "" {
		rules = append(rules, "本文の末尾（注釈の直前）に次の埋め込みコードをそのまま入れる:\n"+in.Embed)
	}
	writeRules(&b, rules)

	if in.ReferenceStyle != "" {
		b.WriteString("\n【文体サンプル】\n")
		b.WriteString(in.ReferenceStyle)
		b.WriteString("\nこのサンプルと同じトーンと文体で書いてください。\n")
	}
	if in.CustomStyle != "" {
		b.WriteString("\n【文体の追加要件】\n")
		b.WriteString(in.CustomStyle)
		b.WriteString("\n")
	}

	b.WriteString("\n【文字起こし】\n")
	b.WriteString(in.Transcript)
	b.WriteString("\n\n【出力形式】\n")
	b.WriteString("次のJSONだけを出力してください。contentは正しいHTMLで書いてください。\n")
	b.WriteString(`{
  "title": "記事タイトル",
  "content": "<h2>見出し</h2><p>段落</p><h3>小見出し</h3><p>段落</p>",
  "summary": "200文字程度の要約",
  "tags": ["タグ1", "タグ2", "タグ3"]
}`)
	fmt.Fprintf(&b, "\n\ncontentが%d文字に満たない場合は必ず書き足してください。\n", in.MinCharacters)
	return b.String()
}

type expansionInput struct {
	MinCharacters int
	Disclaimer    string
	Embed         string
}

func buildExpansionPrompt(draft Article, in expansionInput) string {
	var b strings.Builder
	fmt.Fprintf(&b, "次の記事の各セクションを掘り下げ、HTMLタグを除いて%d文字以上の記事にしてください。\n\n", in.MinCharacters)
	b.WriteString("【現在の記事】\n")
	b.WriteString(draft.Content)
	b.WriteString("\n\n【拡張の要件】\n")
	rules := []string{
		"各見出しの内容を、記事中の情報の範囲でより詳しく説明する",
		"既存の情報を丁寧に解説し、言及された話題の背景を補う",
		"新しい事実は一切加えず、既存の内容の深掘りだけを行う",
		fmt.Sprintf("必ず%d文字以上にする", in.MinCharacters),
	}
	if in.Disclaimer != "" {
		rules = append(rules, fmt.Sprintf("本文の末尾に「%s」を入れる", in.Disclaimer))
	}
	if in.Embed != "" {
		rules = append(rules, "本文の末尾（注釈の直前）に次の埋め込みコードをそのまま入れる:\n"+in.Embed)
	}
	writeRules(&b, rules)

	title, _ := json.Marshal(draft.Title)
	tags := draft.Tags
	if tags == nil {
		tags = []string{}
	}
	tagList, _ := json.Marshal(tags)
	b.WriteString("\n【出力形式】\n次のJSONだけを出力してください。titleとtagsは変更しないでください。\n")
	fmt.Fprintf(&b, `{
  "title": %s,
  "content": "詳しくしたHTML本文（%d文字以上）",
  "summary": "200文字程度の要約",
  "tags": %s
}`, title, in.MinCharacters, tagList)
	b.WriteString("\n")
	return b.String()
}

func writeRules(b *strings.Builder, rules []string) {
	for i, rule := range rules {
		fmt.Fprintf(b, "%d. %s\n", i+1, rule)
	}
}
