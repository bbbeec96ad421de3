package contentfilter

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reelscout/reelscout/internal/catalog"
)

func TestBlocklist_IsBlocked(t *testing.T) {
	b := NewBlocklist([]string{"Forbidden", "bad word"})

	tests := []struct {
		name string
		item catalog.Item
		want bool
	}{
		{"clean", catalog.Item{Title: "The Matrix", Overview: "A hacker learns the truth."}, false},
		{"title match ignores case", catalog.Item{Title: "FORBIDDEN Planet"}, true},
		{"overview match", catalog.Item{Title: "Fine", Overview: "Contains a Bad Word somewhere"}, true},
		{"substring inside word", catalog.Item{Title: "Unforbiddenness"}, true},
		{"diacritics folded", catalog.Item{Title: "Forbíddén Tales"}, true},
		{"split keyword does not match", catalog.Item{Title: "bad", Overview: "word"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, b.IsBlocked(tt.item))
		})
	}
}

func TestBlocklist_NilAndEmpty(t *testing.T) {
	var nilList *Blocklist
	assert.False(t, nilList.IsBlocked(catalog.Item{Title: "porn"}))

	empty := NewBlocklist([]string{"", "   "})
	assert.Equal(t, 0, empty.Len())
	assert.False(t, empty.IsBlocked(catalog.Item{Title: "anything"}))
}

func TestBlocklist_Filter(t *testing.T) {
	b := NewBlocklist([]string{"blocked"})
	items := []catalog.Item{
		{ID: 1, MediaType: catalog.Movie, Title: "One"},
		{ID: 2, MediaType: catalog.Movie, Title: "Blocked Two"},
		{ID: 3, MediaType: catalog.Series, Title: "Three"},
	}

	got := b.Filter(items)
	require.Len(t, got, 2)
	assert.Equal(t, 1, got[0].ID)
	assert.Equal(t, 3, got[1].ID)
}

func TestLoad(t *testing.T) {
	fsys := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fsys, "/etc/blocklist.yaml", []byte("keywords:\n  - gore\n  - Slasher\n"), 0o644))

	b, err := Load(fsys, "/etc/blocklist.yaml", []string{"extra"})
	require.NoError(t, err)

	assert.Equal(t, len(DefaultKeywords)+3, b.Len())
	assert.True(t, b.IsBlocked(catalog.Item{Title: "Gore Fest"}))
	assert.True(t, b.IsBlocked(catalog.Item{Overview: "a slasher film"}))
	assert.True(t, b.IsBlocked(catalog.Item{Title: "EXTRA"}))
	assert.True(t, b.IsBlocked(catalog.Item{Title: "Hentai Collection"}))
}

func TestLoad_NoPathUsesDefaults(t *testing.T) {
	b, err := Load(afero.NewMemMapFs(), "", nil)
	require.NoError(t, err)
	assert.Equal(t, len(DefaultKeywords), b.Len())
}

func TestLoad_Errors(t *testing.T) {
	fsys := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fsys, "/bad.yaml", []byte("keywords: [unterminated"), 0o644))

	_, err := Load(fsys, "/missing.yaml", nil)
	assert.Error(t, err)

	_, err = Load(fsys, "/bad.yaml", nil)
	assert.Error(t, err)
}
