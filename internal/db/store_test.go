package db

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openadstack/adselect/internal/models"
)

type noopPredicate struct{ kind string }

func (p noopPredicate) Name() string { return p.kind }

func (p noopPredicate) Evaluate(_ context.Context, _ models.RequestContext) (models.TargetingPredicateResult, error) {
	return models.TargetingTrue, nil
}

type stubHydrator struct {
	failOn string
}

func (h stubHydrator) Hydrate(spec models.TargetingPredicateSpec) (models.TargetingPredicate, error) {
	if spec.Type == h.failOn {
		return nil, fmt.Errorf("unknown predicate type %q", spec.Type)
	}
	return noopPredicate{kind: spec.Type}, nil
}

func testContents() []models.AdvertisementContent {
	return []models.AdvertisementContent{
		{ContentID: "c1", MarketplaceID: "M1", RenderableContent: "<div>one</div>"},
		{ContentID: "c2", MarketplaceID: "M1", RenderableContent: "<div>two</div>"},
		{ContentID: "c3", MarketplaceID: "M2", RenderableContent: "<div>three</div>"},
	}
}

func TestReplaceAllBuildsSnapshot(t *testing.T) {
	store := NewStore()
	groups := []models.TargetingGroup{
		{TargetingGroupID: "tg1", ContentID: "c1", ClickThroughRate: 0.4, PredicateSpecs: []models.TargetingPredicateSpec{{Type: "recognized"}}},
		{TargetingGroupID: "tg2", ContentID: "c1", ClickThroughRate: 0.1},
		{TargetingGroupID: "tg3", ContentID: "c3", ClickThroughRate: 0.9},
	}
	require.NoError(t, store.ReplaceAll(testContents(), groups, stubHydrator{}))

	ctx := context.Background()

	m1, err := store.GetContent(ctx, "M1")
	require.NoError(t, err)
	assert.Len(t, m1, 2)

	unknown, err := store.GetContent(ctx, "M9")
	require.NoError(t, err)
	assert.Empty(t, unknown)

	c1Groups, err := store.GetTargetingGroups(ctx, "c1")
	require.NoError(t, err)
	require.Len(t, c1Groups, 2)
	// Specs were hydrated into evaluable predicates.
	require.Len(t, c1Groups[0].Predicates, 1)
	assert.Equal(t, "recognized", c1Groups[0].Predicates[0].Name())

	none, err := store.GetTargetingGroups(ctx, "c2")
	require.NoError(t, err)
	assert.Empty(t, none)

	c, ok := store.GetContentByID("c2")
	require.True(t, ok)
	assert.Equal(t, "M1", c.MarketplaceID)
}

func TestReplaceAllRejectsDuplicateContent(t *testing.T) {
	store := NewStore()
	contents := append(testContents(), models.AdvertisementContent{ContentID: "c1", MarketplaceID: "M2"})

	err := store.ReplaceAll(contents, nil, stubHydrator{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate content id c1")
}

func TestReplaceAllRejectsOrphanGroups(t *testing.T) {
	store := NewStore()
	groups := []models.TargetingGroup{{TargetingGroupID: "tg1", ContentID: "nope"}}

	err := store.ReplaceAll(testContents(), groups, stubHydrator{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "undefined content")
}

func TestReplaceAllKeepsOldSnapshotOnFailure(t *testing.T) {
	store := NewStore()
	require.NoError(t, store.ReplaceAll(testContents(), nil, stubHydrator{}))

	bad := []models.TargetingGroup{
		{TargetingGroupID: "tg1", ContentID: "c1", PredicateSpecs: []models.TargetingPredicateSpec{{Type: "zodiacSign"}}},
	}
	err := store.ReplaceAll(testContents(), bad, stubHydrator{failOn: "zodiacSign"})
	require.Error(t, err)

	m1, err := store.GetContent(context.Background(), "M1")
	require.NoError(t, err)
	assert.Len(t, m1, 2, "failed reload must not clear the snapshot")
}

func TestAllListingsAreSorted(t *testing.T) {
	store := NewStore()
	groups := []models.TargetingGroup{
		{TargetingGroupID: "tg-b", ContentID: "c3"},
		{TargetingGroupID: "tg-a", ContentID: "c1"},
	}
	require.NoError(t, store.ReplaceAll(testContents(), groups, stubHydrator{}))

	contents := store.AllContent()
	require.Len(t, contents, 3)
	assert.Equal(t, "c1", contents[0].ContentID)
	assert.Equal(t, "c3", contents[2].ContentID)

	all := store.AllTargetingGroups()
	require.Len(t, all, 2)
	assert.Equal(t, "tg-a", all[0].TargetingGroupID)
	assert.Equal(t, "tg-b", all[1].TargetingGroupID)
}
