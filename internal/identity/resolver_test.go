package identity

import (
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/fairway-edge/internal/logger"
	"github.com/yourusername/fairway-edge/internal/models"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"Ludvig Åberg", "ludvig aberg"},
		{"  Rory   McIlroy ", "rory mcilroy"},
		{"Nicolai Højgaard", "nicolai hojgaard"},
		{"Thorbjørn Olesen", "thorbjorn olesen"},
		{"Sami Välimäki", "sami valimaki"},
		{"Hideki 松山", "hideki"},
		{"J.J. Spaun", "j.j. spaun"},
		{"\tTom\nKim\t", "tom kim"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got := Normalize(tt.raw)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, got, Normalize(got), "normalize must be idempotent")
		})
	}
}

func TestResolveOrCreateMergesVariants(t *testing.T) {
	r := NewResolver(logger.Discard())

	first := r.ResolveOrCreate("Ludvig Åberg")
	require.NotNil(t, first)
	assert.Equal(t, "ludvig aberg", first.CanonicalName)
	assert.ElementsMatch(t, []string{"Ludvig Åberg", "ludvig aberg"}, first.Aliases)

	second := r.ResolveOrCreate("LUDVIG ABERG")
	require.NotNil(t, second)
	assert.Equal(t, first.ID, second.ID)
	assert.Contains(t, second.Aliases, "LUDVIG ABERG")

	again := r.ResolveOrCreate("Ludvig Åberg")
	assert.Len(t, again.Aliases, 3, "repeat sightings do not duplicate aliases")

	assert.Equal(t, 1, r.Len())
	assert.Len(t, r.Dirty(), 1)
}

func TestResolveOrCreateBlank(t *testing.T) {
	r := NewResolver(logger.Discard())

	assert.Nil(t, r.ResolveOrCreate(""))
	assert.Nil(t, r.ResolveOrCreate("   "))
	assert.Equal(t, 0, r.Len())
}

func TestResolveByExternalIDPriority(t *testing.T) {
	r := NewResolver(logger.Discard())

	byID := r.ResolveByExternalID("Scottie Scheffler", "18417")
	require.NotNil(t, byID)
	require.NotNil(t, byID.ExternalID)
	assert.Equal(t, "18417", *byID.ExternalID)

	// A different spelling carrying the same id lands on the same identity.
	variant := r.ResolveByExternalID("S. Scheffler", "18417")
	require.NotNil(t, variant)
	assert.Equal(t, byID.ID, variant.ID)
	assert.Equal(t, "scottie scheffler", variant.CanonicalName)
	assert.Contains(t, variant.Aliases, "S. Scheffler")

	// Later name-only sightings resolve through the merged alias.
	assert.Equal(t, byID.ID, r.ResolveOrCreate("s. scheffler").ID)
}

func TestResolveByExternalIDAttachesToNameIdentity(t *testing.T) {
	r := NewResolver(logger.Discard())

	byName := r.ResolveOrCreate("Jon Rahm")
	assert.Nil(t, byName.ExternalID)

	withID := r.ResolveByExternalID("jon rahm", "19195")
	require.NotNil(t, withID.ExternalID)
	assert.Equal(t, byName.ID, withID.ID)

	idOnly := r.ResolveByExternalID("", "19195")
	require.NotNil(t, idOnly)
	assert.Equal(t, byName.ID, idOnly.ID)
}

func TestResolveByExternalIDKeepsExistingID(t *testing.T) {
	r := NewResolver(logger.Discard())

	first := r.ResolveByExternalID("Tom Kim", "1")
	second := r.ResolveByExternalID("Tom Kim", "2")

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "1", *second.ExternalID)
}

func TestResolveByExternalIDEdgeCases(t *testing.T) {
	r := NewResolver(logger.Discard())

	assert.Nil(t, r.ResolveByExternalID("", ""))

	unknown := r.ResolveByExternalID("", "999")
	require.NotNil(t, unknown)
	assert.Equal(t, "ext:999", unknown.CanonicalName)
	assert.Equal(t, unknown.ID, r.ResolveByExternalID("", "999").ID)
}

func TestPreloadedIdentitiesAreNotDirty(t *testing.T) {
	r := NewResolver(logger.Discard())

	stored := &models.PlayerIdentity{
		ID:            uuid.New(),
		CanonicalName: "matt fitzpatrick",
		Aliases:       []string{"Matthew Fitzpatrick", "matt fitzpatrick", "matthew fitzpatrick"},
	}
	r.Preload([]*models.PlayerIdentity{stored})

	resolved := r.ResolveOrCreate("Matthew Fitzpatrick")
	assert.Equal(t, stored.ID, resolved.ID)
	assert.Equal(t, "matt fitzpatrick", resolved.CanonicalName)
	assert.Empty(t, r.Dirty())

	resolved.Aliases = nil
	assert.Len(t, r.ResolveOrCreate("matt fitzpatrick").Aliases, 3, "callers receive copies")
}

func TestResolverConcurrentUse(t *testing.T) {
	r := NewResolver(logger.Discard())

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.ResolveOrCreate("Xander Schauffele")
			r.ResolveByExternalID("xander schauffele", "24")
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, r.Len())
}
