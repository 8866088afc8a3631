package sites_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andreiashu/ubigeo"
	"github.com/andreiashu/ubigeo/kvstore"
	"github.com/andreiashu/ubigeo/sites"
)

func TestQuickSuggestionsEmpty(t *testing.T) {
	c, err := sites.Open(context.Background(), kvstore.NewMemory())
	require.NoError(t, err)

	got := c.GetQuickSuggestions()
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestQuickSuggestions(t *testing.T) {
	ctx := context.Background()
	c, err := sites.Open(ctx, kvstore.NewMemory())
	require.NoError(t, err)

	require.NoError(t, c.SetPreferredLocation(ctx, miraflores))

	// Five sites: one inactive, one duplicating the preferred location.
	for i, s := range []sites.Site{
		{ID: "s1", Name: "Inactiva", Location: loc("Lima", "Lima", "Surco"), IsActive: false},
		{ID: "s2", Name: "Duplicada", Location: loc("lima", "lima", "miraflores"), IsActive: true},
		{ID: "s3", Name: "Almacén", Location: barranco, IsActive: true},
		{ID: "s4", Name: "Obra", Location: cusco, IsActive: true},
		{ID: "s5", Name: "Principal", Location: huaraz, IsActive: true, IsPrimary: true},
	} {
		_, err := c.AddSite(ctx, s)
		require.NoError(t, err, "site %d", i)
	}

	require.NoError(t, c.AddToFavorites(ctx, cusco)) // duplicate of a site
	require.NoError(t, c.AddToFavorites(ctx, independenci))
	require.NoError(t, c.AddToFavorites(ctx, loc("Puno", "Puno", "Puno")))
	require.NoError(t, c.AddToFavorites(ctx, loc("Tacna", "Tacna", "Tacna")))

	for i := 0; i < 5; i++ {
		require.NoError(t, c.AddToRecent(ctx, loc("Piura", "Piura", fmt.Sprintf("Distrito %d", i))))
	}
	require.NoError(t, c.AddToRecent(ctx, independenci)) // duplicate of a favorite

	got := c.GetQuickSuggestions()

	type entry struct {
		source   sites.SuggestionSource
		locality string
		siteName string
	}
	var entries []entry
	for _, s := range got {
		entries = append(entries, entry{s.Source, s.Location.Locality, s.SiteName})
	}

	assert.Equal(t, []entry{
		{sites.SourcePreferred, "Miraflores", ""},
		{sites.SourceSite, "Huaraz", "Principal"},
		{sites.SourceSite, "Barranco", "Almacén"},
		{sites.SourceSite, "Cusco", "Obra"},
		{sites.SourceFavorite, "Independencia", ""},
		{sites.SourceFavorite, "Puno", ""},
		{sites.SourceRecent, "Distrito 4", ""},
		{sites.SourceRecent, "Distrito 3", ""},
		{sites.SourceRecent, "Distrito 2", ""},
	}, entries)

	seen := map[string]bool{}
	for _, s := range got {
		k := s.Location.Key()
		assert.False(t, seen[k], "duplicate suggestion %s", k)
		seen[k] = true
	}
}

func TestQuickSuggestionsWithoutPreferred(t *testing.T) {
	ctx := context.Background()
	c, err := sites.Open(ctx, kvstore.NewMemory())
	require.NoError(t, err)

	require.NoError(t, c.AddToRecent(ctx, huaraz))
	require.NoError(t, c.AddToRecent(ctx, ubigeo.Location{}))

	got := c.GetQuickSuggestions()
	require.Len(t, got, 1)
	assert.Equal(t, sites.SourceRecent, got[0].Source)
}
