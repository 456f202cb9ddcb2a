package loader

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"

	"github.com/rh1/sitetools/internal/types"
)

type LoaderConfig struct {
	// HTMLExtensions are stripped down to their main text content.
	HTMLExtensions []string
	NoisePatterns  []string
}

// Loader reads corpus documents from disk as plain text.
type Loader struct {
	config LoaderConfig
}

var _ types.Loader = (*Loader)(nil)

func NewWithConfig(config LoaderConfig) *Loader {
	if len(config.HTMLExtensions) == 0 {
		config.HTMLExtensions = []string{".html", ".htm"}
	}
	if config.NoisePatterns == nil {
		config.NoisePatterns = []string{
			"Cookie Policy",
			"Accept Cookies",
			"Privacy Policy",
			"Terms of Service",
		}
	}
	return &Loader{config: config}
}

func New() *Loader {
	return NewWithConfig(LoaderConfig{})
}

func (l *Loader) Load(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	if !utf8.Valid(data) {
		data = bytes.ToValidUTF8(data, nil)
	}

	if !l.isHTML(path) {
		return string(data), nil
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return l.extractMainContent(doc), nil
}

func (l *Loader) isHTML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range l.config.HTMLExtensions {
		if ext == e {
			return true
		}
	}
	return false
}

func (l *Loader) cleanContent(content string) string {
	content = strings.Join(strings.Fields(content), " ")

	for _, pattern := range l.config.NoisePatterns {
		content = strings.ReplaceAll(content, pattern, "")
	}

	return strings.TrimSpace(content)
}

func (l *Loader) extractMainContent(doc *goquery.Document) string {
	doc.Find("script, style, noscript").Remove()

	selectors := []string{
		"main",
		"article",
		".content",
		"#content",
	}

	var content string
	for _, selector := range selectors {
		if selected := doc.Find(selector); selected.Length() > 0 {
			content = selected.Text()
			break
		}
	}

	if content == "" {
		content = doc.Find("body").Text()
	}

	return l.cleanContent(content)
}
