package predicates

import (
	"context"
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openadstack/adselect/internal/db"
	"github.com/openadstack/adselect/internal/models"
)

func setupProfiles(t *testing.T) *db.RedisStore {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return db.NewRedisStore(client)
}

func recognized(customerID string) models.RequestContext {
	return models.RequestContext{CustomerID: customerID, MarketplaceID: "M1"}
}

var anonymous = models.RequestContext{MarketplaceID: "M1"}

func TestRecognizedPredicate(t *testing.T) {
	profiles := setupProfiles(t)
	ctx := context.Background()
	require.NoError(t, profiles.PutProfile(ctx, models.CustomerProfile{CustomerID: "cust-1", AgeRange: "26-35", Parent: true}))

	p := RecognizedPredicate{Profiles: profiles}

	res, err := p.Evaluate(ctx, recognized("cust-1"))
	require.NoError(t, err)
	assert.Equal(t, models.TargetingTrue, res)

	res, err = p.Evaluate(ctx, recognized("cust-unknown"))
	require.NoError(t, err)
	assert.Equal(t, models.TargetingFalse, res)

	res, err = p.Evaluate(ctx, anonymous)
	require.NoError(t, err)
	assert.Equal(t, models.TargetingFalse, res)

	negated := RecognizedPredicate{Profiles: profiles, Negate: true}
	res, err = negated.Evaluate(ctx, recognized("cust-1"))
	require.NoError(t, err)
	assert.Equal(t, models.TargetingFalse, res)
}

func TestAgeRangePredicate(t *testing.T) {
	profiles := setupProfiles(t)
	ctx := context.Background()
	require.NoError(t, profiles.PutProfile(ctx, models.CustomerProfile{CustomerID: "cust-1", AgeRange: "26-35"}))

	tests := []struct {
		name     string
		target   string
		negate   bool
		rc       models.RequestContext
		expected models.TargetingPredicateResult
	}{
		{"matching range", "26-35", false, recognized("cust-1"), models.TargetingTrue},
		{"non-matching range", "18-25", false, recognized("cust-1"), models.TargetingFalse},
		{"negated match", "26-35", true, recognized("cust-1"), models.TargetingFalse},
		{"negated non-match", "18-25", true, recognized("cust-1"), models.TargetingTrue},
		{"anonymous is indeterminate", "26-35", false, anonymous, models.TargetingIndeterminate},
		{"unknown customer is indeterminate", "26-35", false, recognized("cust-unknown"), models.TargetingIndeterminate},
		{"negation preserves indeterminate", "26-35", true, anonymous, models.TargetingIndeterminate},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			p := AgeRangePredicate{Profiles: profiles, AgeRange: tc.target, Negate: tc.negate}
			res, err := p.Evaluate(ctx, tc.rc)
			require.NoError(t, err)
			assert.Equal(t, tc.expected, res)
		})
	}
}

func TestParentPredicate(t *testing.T) {
	profiles := setupProfiles(t)
	ctx := context.Background()
	require.NoError(t, profiles.PutProfile(ctx, models.CustomerProfile{CustomerID: "parent-1", Parent: true}))
	require.NoError(t, profiles.PutProfile(ctx, models.CustomerProfile{CustomerID: "single-1", Parent: false}))

	p := ParentPredicate{Profiles: profiles}

	res, err := p.Evaluate(ctx, recognized("parent-1"))
	require.NoError(t, err)
	assert.Equal(t, models.TargetingTrue, res)

	res, err = p.Evaluate(ctx, recognized("single-1"))
	require.NoError(t, err)
	assert.Equal(t, models.TargetingFalse, res)

	res, err = p.Evaluate(ctx, anonymous)
	require.NoError(t, err)
	assert.Equal(t, models.TargetingIndeterminate, res)
}

func TestCategorySpendPredicate(t *testing.T) {
	profiles := setupProfiles(t)
	ctx := context.Background()
	require.NoError(t, profiles.AddCategorySpend(ctx, "cust-1", "books", 5000))

	tests := []struct {
		name       string
		comparison string
		cents      int64
		rc         models.RequestContext
		expected   models.TargetingPredicateResult
	}{
		{"greater than", ">", 4999, recognized("cust-1"), models.TargetingTrue},
		{"greater than fails", ">", 5000, recognized("cust-1"), models.TargetingFalse},
		{"greater or equal", ">=", 5000, recognized("cust-1"), models.TargetingTrue},
		{"equal", "==", 5000, recognized("cust-1"), models.TargetingTrue},
		{"less than", "<", 5001, recognized("cust-1"), models.TargetingTrue},
		{"less or equal fails", "<=", 4999, recognized("cust-1"), models.TargetingFalse},
		{"no recorded spend counts as zero", "==", 0, recognized("cust-2"), models.TargetingTrue},
		{"anonymous is indeterminate", ">", 0, anonymous, models.TargetingIndeterminate},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			p := CategorySpendPredicate{Profiles: profiles, Category: "books", Comparison: tc.comparison, Cents: tc.cents}
			res, err := p.Evaluate(ctx, tc.rc)
			require.NoError(t, err)
			assert.Equal(t, tc.expected, res)
		})
	}
}

func TestContextualPredicates(t *testing.T) {
	ctx := context.Background()
	desktop := models.RequestContext{MarketplaceID: "M1", DeviceType: "desktop", Country: "US"}

	device := DeviceTypePredicate{DeviceType: "Desktop"}
	res, err := device.Evaluate(ctx, desktop)
	require.NoError(t, err)
	assert.Equal(t, models.TargetingTrue, res, "device match is case-insensitive")

	res, err = DeviceTypePredicate{DeviceType: "mobile"}.Evaluate(ctx, desktop)
	require.NoError(t, err)
	assert.Equal(t, models.TargetingFalse, res)

	res, err = DeviceTypePredicate{DeviceType: "mobile"}.Evaluate(ctx, models.RequestContext{MarketplaceID: "M1"})
	require.NoError(t, err)
	assert.Equal(t, models.TargetingIndeterminate, res)

	res, err = CountryPredicate{Country: "us"}.Evaluate(ctx, desktop)
	require.NoError(t, err)
	assert.Equal(t, models.TargetingTrue, res)

	res, err = CountryPredicate{Country: "DE", Negate: true}.Evaluate(ctx, desktop)
	require.NoError(t, err)
	assert.Equal(t, models.TargetingTrue, res)
}

type erroringProfiles struct{ err error }

func (e erroringProfiles) GetProfile(context.Context, string) (*models.CustomerProfile, error) {
	return nil, e.err
}

func (e erroringProfiles) GetCategorySpend(context.Context, string, string) (int64, error) {
	return 0, e.err
}

func TestProfileStoreErrorsSurface(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("redis down")
	profiles := erroringProfiles{err: boom}
	rc := recognized("cust-1")

	for _, p := range []models.TargetingPredicate{
		RecognizedPredicate{Profiles: profiles},
		AgeRangePredicate{Profiles: profiles, AgeRange: "26-35"},
		ParentPredicate{Profiles: profiles},
		CategorySpendPredicate{Profiles: profiles, Category: "books", Comparison: ">", Cents: 100},
	} {
		res, err := p.Evaluate(ctx, rc)
		assert.ErrorIs(t, err, boom, p.Name())
		assert.Equal(t, models.TargetingIndeterminate, res, p.Name())
	}
}

func TestRegistryHydrate(t *testing.T) {
	registry := NewRegistry(setupProfiles(t))

	tests := []struct {
		name     string
		spec     models.TargetingPredicateSpec
		wantName string
		wantErr  string
	}{
		{
			name:     "recognized",
			spec:     models.TargetingPredicateSpec{Type: TypeRecognized},
			wantName: TypeRecognized,
		},
		{
			name:     "age range",
			spec:     models.TargetingPredicateSpec{Type: TypeAgeRange, Attributes: map[string]string{"ageRange": "26-35"}},
			wantName: TypeAgeRange,
		},
		{
			name:    "age range missing attribute",
			spec:    models.TargetingPredicateSpec{Type: TypeAgeRange},
			wantErr: "missing ageRange",
		},
		{
			name: "category spend",
			spec: models.TargetingPredicateSpec{Type: TypeCategorySpend, Attributes: map[string]string{
				"category": "books", "comparison": ">=", "value": "5000",
			}},
			wantName: TypeCategorySpend,
		},
		{
			name: "category spend bad comparison",
			spec: models.TargetingPredicateSpec{Type: TypeCategorySpend, Attributes: map[string]string{
				"category": "books", "comparison": "!=", "value": "5000",
			}},
			wantErr: "invalid comparison",
		},
		{
			name: "category spend bad value",
			spec: models.TargetingPredicateSpec{Type: TypeCategorySpend, Attributes: map[string]string{
				"category": "books", "comparison": ">", "value": "lots",
			}},
			wantErr: "invalid value",
		},
		{
			name:     "device type",
			spec:     models.TargetingPredicateSpec{Type: TypeDeviceType, Attributes: map[string]string{"deviceType": "mobile"}},
			wantName: TypeDeviceType,
		},
		{
			name:     "country",
			spec:     models.TargetingPredicateSpec{Type: TypeCountry, Attributes: map[string]string{"country": "US"}},
			wantName: TypeCountry,
		},
		{
			name:    "unknown type",
			spec:    models.TargetingPredicateSpec{Type: "zodiacSign"},
			wantErr: "unknown predicate type",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			pred, err := registry.Hydrate(tc.spec)
			if tc.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tc.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.wantName, pred.Name())
		})
	}
}
