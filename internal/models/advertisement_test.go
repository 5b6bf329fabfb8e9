package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGeneratedAdvertisement(t *testing.T) {
	content := AdvertisementContent{ContentID: "c1", MarketplaceID: "M1", RenderableContent: "<div/>"}

	ad := NewGeneratedAdvertisement(content)
	require.False(t, ad.Empty())
	assert.NotEmpty(t, ad.ID)
	assert.Equal(t, "c1", ad.Content.ContentID)

	other := NewGeneratedAdvertisement(content)
	assert.NotEqual(t, ad.ID, other.ID, "every generation gets its own ID")

	empty := EmptyAdvertisement()
	assert.True(t, empty.Empty())
	assert.Empty(t, empty.ID, "empty results carry no identifiers")
}

func TestTargetingPredicateResult(t *testing.T) {
	assert.True(t, TargetingTrue.IsTrue())
	assert.False(t, TargetingFalse.IsTrue())
	assert.False(t, TargetingIndeterminate.IsTrue())

	assert.Equal(t, "TRUE", TargetingTrue.String())
	assert.Equal(t, "FALSE", TargetingFalse.String())
	assert.Equal(t, "INDETERMINATE", TargetingIndeterminate.String())
}
