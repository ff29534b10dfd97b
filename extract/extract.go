// Package extract turns fetched HTML into the readable text that feeds the
// generation pipeline. It strips scripts, styles, and navigation chrome,
// collapses whitespace, and caps the output at a configurable size.
//
// Two renderings are produced per page: a plain-text view for signal
// detection and prompt construction, and a markdown view (sanitized HTML
// through html-to-markdown) kept as the artifact's source excerpt.
package extract

import (
	"bytes"
	"crypto/sha256"
	"fmt"
	"regexp"
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// DefaultMaxChars is the visible-text cap. Pages longer than this are
// truncated and flagged, never rejected.
const DefaultMaxChars = 20_000

// Result is the readable view of one fetched page.
type Result struct {
	Title     string
	Text      string // visible text, whitespace-collapsed
	Markdown  string // markdown rendering of the sanitized page, may be empty
	Hash      string // sha256 of Text, for correlation and dedup
	Truncated bool   // Text exceeded the cap and was cut
}

// Extractor converts raw HTML to a Result. Safe for concurrent use.
type Extractor struct {
	maxChars int
	policy   *bluemonday.Policy
	conv     *converter.Converter
}

// New creates an Extractor. maxChars <= 0 selects DefaultMaxChars.
func New(maxChars int) *Extractor {
	if maxChars <= 0 {
		maxChars = DefaultMaxChars
	}
	return &Extractor{
		maxChars: maxChars,
		policy:   bluemonday.UGCPolicy(),
		conv: converter.NewConverter(
			converter.WithPlugins(
				base.NewBasePlugin(),
				commonmark.NewCommonmarkPlugin(),
			),
		),
	}
}

// FromHTML extracts the readable content of an HTML document.
// sourceURL is used to resolve relative links in the markdown rendering.
func (e *Extractor) FromHTML(raw []byte, sourceURL string) (*Result, error) {
	doc, err := html.Parse(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("extract: parse html: %w", err)
	}

	res := &Result{Title: findTitle(doc)}

	text := collectVisibleText(doc)
	if truncated, cut := truncateRunes(text, e.maxChars); cut {
		text = truncated
		res.Truncated = true
	}
	res.Text = text
	res.Hash = hashText(text)

	// Markdown rendering is best-effort: a converter failure degrades the
	// artifact excerpt, not the pipeline.
	sanitized := e.policy.SanitizeBytes(raw)
	if md, mdErr := e.conv.ConvertString(string(sanitized), converter.WithDomain(sourceURL)); mdErr == nil {
		res.Markdown = strings.TrimSpace(md)
	}

	return res, nil
}

// FromText wraps already-plain text in a Result, applying the same cap.
// Used for text/plain sources.
func (e *Extractor) FromText(raw []byte) *Result {
	text := strings.Join(strings.Fields(string(raw)), " ")
	res := &Result{}
	if truncated, cut := truncateRunes(text, e.maxChars); cut {
		text = truncated
		res.Truncated = true
	}
	res.Text = text
	res.Hash = hashText(text)
	return res
}

var hiddenStylePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)display\s*:\s*none`),
	regexp.MustCompile(`(?i)visibility\s*:\s*hidden`),
	regexp.MustCompile(`(?i)font-size\s*:\s*0[^1-9]`),
	regexp.MustCompile(`(?i)opacity\s*:\s*0[^.]`),
}

func hasHiddenStyle(n *html.Node) bool {
	if n.Type != html.ElementNode {
		return false
	}
	for _, a := range n.Attr {
		if a.Key == "style" {
			for _, pat := range hiddenStylePatterns {
				if pat.MatchString(a.Val) {
					return true
				}
			}
		}
	}
	return false
}

// isChrome reports whether the element is page furniture rather than content.
func isChrome(a atom.Atom) bool {
	switch a {
	case atom.Script, atom.Style, atom.Noscript, atom.Template,
		atom.Nav, atom.Header, atom.Footer, atom.Aside, atom.Form,
		atom.Head:
		return true
	}
	return false
}

// isBlock reports whether the element ends a visual line of text.
func isBlock(a atom.Atom) bool {
	switch a {
	case atom.P, atom.Div, atom.Section, atom.Article, atom.Li, atom.Tr,
		atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6,
		atom.Blockquote, atom.Pre, atom.Br:
		return true
	}
	return false
}

// findTitle extracts the <title> text.
func findTitle(n *html.Node) string {
	if n.Type == html.ElementNode && n.DataAtom == atom.Title {
		if n.FirstChild != nil {
			return strings.TrimSpace(n.FirstChild.Data)
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if t := findTitle(c); t != "" {
			return t
		}
	}
	return ""
}

// collectVisibleText walks the DOM and gathers human-visible text,
// separating block-level elements with newlines and collapsing the rest
// of the whitespace.
func collectVisibleText(root *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			if isChrome(n.DataAtom) || hasHiddenStyle(n) {
				return
			}
		}
		if n.Type == html.TextNode {
			text := strings.Join(strings.Fields(n.Data), " ")
			if text != "" {
				if sb.Len() > 0 && !strings.HasSuffix(sb.String(), "\n") {
					sb.WriteByte(' ')
				}
				sb.WriteString(text)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		if n.Type == html.ElementNode && isBlock(n.DataAtom) {
			if sb.Len() > 0 && !strings.HasSuffix(sb.String(), "\n") {
				sb.WriteByte('\n')
			}
		}
	}
	walk(root)

	// Collapse runs of blank lines left by nested blocks.
	lines := strings.Split(sb.String(), "\n")
	out := lines[:0]
	for _, l := range lines {
		l = strings.TrimSpace(l)
		if l != "" {
			out = append(out, l)
		}
	}
	return strings.Join(out, "\n")
}

func truncateRunes(s string, max int) (string, bool) {
	runes := []rune(s)
	if len(runes) <= max {
		return s, false
	}
	return string(runes[:max]), true
}

func hashText(s string) string {
	h := sha256.Sum256([]byte(s))
	return fmt.Sprintf("%x", h)
}
