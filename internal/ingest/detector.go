package ingest

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/html"

	"github.com/hitoshi/stagecast/internal/model"
)

const (
	userAgent    = "Stagecast/1.0 Announcement Importer"
	acceptHeader = "application/rss+xml, application/atom+xml, application/xml, text/xml, text/html;q=0.9, */*;q=0.8"
)

// FeedType はフィードの種類（RSS/Atom）を表す。
type FeedType string

const (
	FeedTypeRSS  FeedType = "rss"
	FeedTypeAtom FeedType = "atom"
)

// FeedCandidate はHTMLのlink要素から見つかったフィード候補。
type FeedCandidate struct {
	URL      string
	FeedType FeedType
	Title    string
}

// SSRFValidator はSSRF検証のインターフェース。
// security.SSRFGuardServiceが満たす。
type SSRFValidator interface {
	ValidateURL(rawURL string) error
	NewSafeClient(timeout time.Duration, maxResponseSize int64) *http.Client
}

// FetchLimits はHTTP取得の上限。
type FetchLimits struct {
	Timeout     time.Duration
	MaxBodySize int64
}

func (l FetchLimits) withDefaults() FetchLimits {
	if l.Timeout <= 0 {
		l.Timeout = 10 * time.Second
	}
	if l.MaxBodySize <= 0 {
		l.MaxBodySize = 5 * 1024 * 1024
	}
	return l
}

// FeedDetector は入力されたURLがフィードそのものか、
// フィードへのリンクを持つHTMLページかを判定する。
type FeedDetector struct {
	ssrfGuard SSRFValidator
	limits    FetchLimits
}

// NewFeedDetector はFeedDetectorを生成する。
func NewFeedDetector(ssrfGuard SSRFValidator, limits FetchLimits) *FeedDetector {
	return &FeedDetector{
		ssrfGuard: ssrfGuard,
		limits:    limits.withDefaults(),
	}
}

var (
	feedMediaTypes = map[string]bool{
		"application/rss+xml":  true,
		"application/atom+xml": true,
	}
	xmlMediaTypes = map[string]bool{
		"text/xml":        true,
		"application/xml": true,
	}
)

// IsDirectFeed はContent-Typeとボディの先頭からRSS/Atomかどうかを判定する。
// 汎用XMLのContent-Typeではボディのルート要素を見る。
func (d *FeedDetector) IsDirectFeed(contentType string, body []byte) bool {
	mediaType := parseMediaType(contentType)
	if feedMediaTypes[mediaType] {
		return true
	}
	if !xmlMediaTypes[mediaType] || len(body) == 0 {
		return false
	}
	return looksLikeFeed(body)
}

func parseMediaType(contentType string) string {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = strings.TrimSpace(strings.Split(contentType, ";")[0])
	}
	return strings.ToLower(mediaType)
}

// looksLikeFeed は先頭4KBにRSS/RDF/Atomのルート要素があるかを調べる。
func looksLikeFeed(body []byte) bool {
	if len(body) > 4096 {
		body = body[:4096]
	}
	prefix := strings.ToLower(string(body))

	switch {
	case strings.Contains(prefix, "<rss"), strings.Contains(prefix, "<rdf:rdf"):
		return true
	case strings.Contains(prefix, "<feed") && strings.Contains(prefix, "http://www.w3.org/2005/atom"):
		return true
	}
	return false
}

// ParseFeedLinksFromHTML はheadのlink rel="alternate"からフィード候補を集める。
// 相対URLはbaseURLで解決する。bodyに達したら打ち切る。
func (d *FeedDetector) ParseFeedLinksFromHTML(htmlBody []byte, baseURL string) []FeedCandidate {
	var candidates []FeedCandidate

	base, err := url.Parse(baseURL)
	if err != nil {
		return candidates
	}

	z := html.NewTokenizer(bytes.NewReader(htmlBody))
	inHead := false
	for {
		switch z.Next() {
		case html.ErrorToken:
			return candidates

		case html.EndTagToken:
			if tn, _ := z.TagName(); string(tn) == "head" {
				return candidates
			}

		case html.StartTagToken, html.SelfClosingTagToken:
			tn, hasAttr := z.TagName()
			switch string(tn) {
			case "head":
				inHead = true
				continue
			case "body":
				return candidates
			case "link":
			default:
				continue
			}
			if !inHead || !hasAttr {
				continue
			}

			if c, ok := readFeedLink(z, base); ok {
				candidates = append(candidates, c)
			}
		}
	}
}

// readFeedLink はlink要素の属性を読み、RSS/Atomのalternateリンクなら候補を返す。
func readFeedLink(z *html.Tokenizer, base *url.URL) (FeedCandidate, bool) {
	var rel, linkType, href, title string
	for {
		key, val, more := z.TagAttr()
		switch strings.ToLower(string(key)) {
		case "rel":
			rel = strings.ToLower(string(val))
		case "type":
			linkType = strings.ToLower(string(val))
		case "href":
			href = string(val)
		case "title":
			title = string(val)
		}
		if !more {
			break
		}
	}

	if !containsToken(rel, "alternate") || href == "" {
		return FeedCandidate{}, false
	}

	var feedType FeedType
	switch linkType {
	case "application/rss+xml":
		feedType = FeedTypeRSS
	case "application/atom+xml":
		feedType = FeedTypeAtom
	default:
		return FeedCandidate{}, false
	}

	ref, err := url.Parse(href)
	if err != nil {
		return FeedCandidate{}, false
	}
	return FeedCandidate{
		URL:      base.ResolveReference(ref).String(),
		FeedType: feedType,
		Title:    title,
	}, true
}

// containsToken は空白区切りのrel属性に指定のトークンがあるかを返す。
func containsToken(list, token string) bool {
	for _, f := range strings.Fields(list) {
		if f == token {
			return true
		}
	}
	return false
}

// SelectBestFeed は候補から1つを選ぶ。
// 優先順位: 同一ホスト > Atom > 先頭
func (d *FeedDetector) SelectBestFeed(candidates []FeedCandidate, inputURL string) *FeedCandidate {
	if len(candidates) == 0 {
		return nil
	}

	inputHost := hostOf(inputURL)
	best, bestScore := 0, -1
	for i, c := range candidates {
		score := 0
		if hostOf(c.URL) == inputHost {
			score += 100
		}
		if c.FeedType == FeedTypeAtom {
			score += 10
		}
		// 同点なら先に出現した候補を残す
		if score > bestScore {
			best, bestScore = i, score
		}
	}
	return &candidates[best]
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}

// DetectFeedURL はURLを取得し、フィードならそのURLを、
// HTMLならheadから選んだフィードのURLを返す。
func (d *FeedDetector) DetectFeedURL(ctx context.Context, inputURL string) (string, error) {
	inputURL = strings.TrimSpace(inputURL)
	if inputURL == "" {
		return "", model.NewInvalidURLError("URLが入力されていません")
	}

	resp, body, err := d.get(ctx, inputURL)
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		return "", model.NewFetchFailedError(fmt.Sprintf("HTTPステータス %d", resp.StatusCode))
	}

	contentType := resp.Header.Get("Content-Type")
	if d.IsDirectFeed(contentType, body) {
		return inputURL, nil
	}

	if !strings.Contains(parseMediaType(contentType), "html") {
		return "", model.NewFeedNotDetectedError(inputURL)
	}

	best := d.SelectBestFeed(d.ParseFeedLinksFromHTML(body, inputURL), inputURL)
	if best == nil {
		return "", model.NewFeedNotDetectedError(inputURL)
	}
	return best.URL, nil
}

// get はSSRF検証の後にURLを取得し、上限までのボディを読み込む。
// 非200の応答もエラーにせず返す。
func (d *FeedDetector) get(ctx context.Context, rawURL string) (*http.Response, []byte, error) {
	if d.ssrfGuard != nil {
		if err := d.ssrfGuard.ValidateURL(rawURL); err != nil {
			return nil, nil, model.NewSSRFBlockedError()
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, nil, model.NewInvalidURLError(err.Error())
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", acceptHeader)

	resp, err := d.client().Do(req)
	if err != nil {
		return nil, nil, model.NewFetchFailedError(err.Error())
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, d.limits.MaxBodySize))
	if err != nil {
		return nil, nil, model.NewFetchFailedError(fmt.Sprintf("レスポンスの読み取りに失敗: %v", err))
	}
	return resp, body, nil
}

// client はSSRFGuardがあれば防止付きクライアントを返す。
func (d *FeedDetector) client() *http.Client {
	if d.ssrfGuard != nil {
		return d.ssrfGuard.NewSafeClient(d.limits.Timeout, d.limits.MaxBodySize)
	}
	return &http.Client{Timeout: d.limits.Timeout}
}
