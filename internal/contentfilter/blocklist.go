// Package contentfilter decides which catalog items may be displayed.
// The blocklist always applies; secondary filters apply only where the
// upstream endpoint cannot filter server-side.
package contentfilter

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/mozillazg/go-unidecode"
	"github.com/spf13/afero"
	"golang.org/x/text/cases"
	"gopkg.in/yaml.v3"

	"github.com/reelscout/reelscout/internal/catalog"
)

// DefaultKeywords is the built-in blocklist. Matching is by substring, so
// entries should be specific enough not to appear inside ordinary words.
var DefaultKeywords = []string{
	"porn",
	"hentai",
	"erotic",
	"xxx",
	"nsfw",
	"softcore",
	"sex tape",
	"adult film",
	"adult video",
	"nudist",
	"orgy",
}

// Blocklist rejects items whose title or overview contains a keyword,
// ignoring case and diacritics.
type Blocklist struct {
	keywords []string // folded
}

type blocklistFile struct {
	Keywords []string `yaml:"keywords"`
}

// NewBlocklist builds a blocklist from keywords. Empty entries are ignored.
func NewBlocklist(keywords []string) *Blocklist {
	b := &Blocklist{}
	seen := make(map[string]struct{}, len(keywords))
	for _, k := range keywords {
		f := fold(k)
		if strings.TrimSpace(f) == "" {
			continue
		}
		if _, dup := seen[f]; dup {
			continue
		}
		seen[f] = struct{}{}
		b.keywords = append(b.keywords, f)
	}
	return b
}

// Load builds a blocklist from DefaultKeywords, extra, and the optional YAML
// file at path ("keywords: [...]"). A missing file is an error only when a
// path was given explicitly.
func Load(fsys afero.Fs, path string, extra []string) (*Blocklist, error) {
	keywords := append(append([]string{}, DefaultKeywords...), extra...)

	if path != "" {
		data, err := afero.ReadFile(fsys, path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("blocklist file %s not found: %w", path, err)
			}
			return nil, fmt.Errorf("failed to read blocklist: %w", err)
		}

		var file blocklistFile
		if err := yaml.Unmarshal(data, &file); err != nil {
			return nil, fmt.Errorf("failed to parse blocklist %s: %w", path, err)
		}
		keywords = append(keywords, file.Keywords...)
	}

	return NewBlocklist(keywords), nil
}

// Len returns the number of distinct keywords.
func (b *Blocklist) Len() int {
	if b == nil {
		return 0
	}
	return len(b.keywords)
}

// IsBlocked reports whether any keyword occurs in the item's title or overview.
func (b *Blocklist) IsBlocked(item catalog.Item) bool {
	if b == nil || len(b.keywords) == 0 {
		return false
	}

	title := fold(item.Title)
	overview := fold(item.Overview)
	for _, k := range b.keywords {
		if strings.Contains(title, k) || strings.Contains(overview, k) {
			return true
		}
	}
	return false
}

// Filter returns the items that are not blocked, preserving order.
func (b *Blocklist) Filter(items []catalog.Item) []catalog.Item {
	out := make([]catalog.Item, 0, len(items))
	for _, it := range items {
		if !b.IsBlocked(it) {
			out = append(out, it)
		}
	}
	return out
}

// fold transliterates to ASCII and case-folds. A Caser is not safe for
// concurrent use, so one is created per call.
func fold(s string) string {
	if s == "" {
		return ""
	}
	return cases.Fold().String(unidecode.Unidecode(s))
}
