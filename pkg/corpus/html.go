package corpus

import (
	"bufio"
	"bytes"
	"net/http"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-shiori/go-readability"
)

// blockSelector picks the elements whose text becomes one corpus line each.
const blockSelector = "h1,h2,h3,h4,h5,h6,p,li,tr,pre,blockquote"

// IsHTML reports whether a source should be treated as an HTML document,
// going by its name, the reported content type, or the body itself.
func IsHTML(name, contentType string, body []byte) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".html", ".htm", ".xhtml":
		return true
	}
	if contentType == "" && body != nil {
		contentType = http.DetectContentType(body)
	}
	return strings.HasPrefix(strings.ToLower(contentType), "text/html")
}

// ExtractText turns an HTML document into text lines, one per content block.
// go-readability picks the main content first; when it cannot, the blocks of
// the raw document are used instead.
func ExtractText(pageURL *url.URL, html []byte) ([]string, error) {
	if pageURL == nil {
		pageURL = &url.URL{}
	}

	rp := readability.NewParser()
	article, err := rp.Parse(bytes.NewReader(html), pageURL)
	if err == nil {
		doc, docErr := goquery.NewDocumentFromReader(strings.NewReader(article.Content))
		if docErr == nil {
			lines := blockLines(doc.Selection)
			if len(lines) > 0 {
				if title := normalizeText(article.Title); title != "" {
					lines = append([]string{title}, lines...)
				}
				return lines, nil
			}
		}
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return nil, err
	}
	doc.Find("script,style,noscript,template").Remove()

	lines := blockLines(doc.Selection)
	if len(lines) == 0 {
		// No block structure at all: fall back to the visible body text.
		scanner := bufio.NewScanner(strings.NewReader(doc.Find("body").Text()))
		for scanner.Scan() {
			if line := strings.TrimSpace(scanner.Text()); line != "" {
				lines = append(lines, line)
			}
		}
	}
	return lines, nil
}

func blockLines(root *goquery.Selection) []string {
	var lines []string
	root.Find(blockSelector).Each(func(i int, s *goquery.Selection) {
		// A nested block's text is already part of its outermost block.
		if s.ParentsFiltered(blockSelector).Length() > 0 {
			return
		}
		var text string
		switch goquery.NodeName(s) {
		case "tr":
			var cells []string
			s.Find("th,td").Each(func(j int, cell *goquery.Selection) {
				if t := normalizeText(cell.Text()); t != "" {
					cells = append(cells, t)
				}
			})
			text = strings.Join(cells, " ")
		default:
			text = normalizeText(s.Text())
		}
		if text != "" {
			lines = append(lines, text)
		}
	})
	return lines
}

// normalizeText collapses a block's text onto a single line.
func normalizeText(input string) string {
	return strings.Join(strings.Fields(input), " ")
}
