package db

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/openadstack/adselect/internal/models"
)

// PredicateHydrator turns a persisted predicate spec into an evaluable
// predicate. Implemented by the targeting predicates registry.
type PredicateHydrator interface {
	Hydrate(spec models.TargetingPredicateSpec) (models.TargetingPredicate, error)
}

// Store holds the in-memory snapshot of advertisement content and targeting
// groups loaded from Postgres. Reads are lock-free apart from an RWMutex so
// the snapshot can be swapped atomically by periodic reloads. Store serves
// the content and targeting-group lookups of the selection engine.
type Store struct {
	mu                   sync.RWMutex
	contentByMarketplace map[string][]models.AdvertisementContent
	contentByID          map[string]models.AdvertisementContent
	groupsByContent      map[string][]models.TargetingGroup
}

// NewStore returns an empty Store.
func NewStore() *Store {
	return &Store{
		contentByMarketplace: make(map[string][]models.AdvertisementContent),
		contentByID:          make(map[string]models.AdvertisementContent),
		groupsByContent:      make(map[string][]models.TargetingGroup),
	}
}

// Reload pulls content and targeting groups from Postgres, hydrates the
// predicate specs and swaps the snapshot in one step. A failed reload leaves
// the previous snapshot untouched.
func (s *Store) Reload(pg *Postgres, hydrator PredicateHydrator) error {
	contents, err := pg.LoadContent()
	if err != nil {
		return fmt.Errorf("load content: %w", err)
	}
	groups, err := pg.LoadTargetingGroups()
	if err != nil {
		return fmt.Errorf("load targeting groups: %w", err)
	}
	return s.ReplaceAll(contents, groups, hydrator)
}

// ReplaceAll rebuilds the snapshot from the given entities. Groups that
// reference unknown content are rejected so the snapshot stays consistent.
func (s *Store) ReplaceAll(contents []models.AdvertisementContent, groups []models.TargetingGroup, hydrator PredicateHydrator) error {
	byMarketplace := make(map[string][]models.AdvertisementContent)
	byID := make(map[string]models.AdvertisementContent, len(contents))
	for _, c := range contents {
		if _, dup := byID[c.ContentID]; dup {
			return fmt.Errorf("duplicate content id %s", c.ContentID)
		}
		byID[c.ContentID] = c
		byMarketplace[c.MarketplaceID] = append(byMarketplace[c.MarketplaceID], c)
	}

	byContent := make(map[string][]models.TargetingGroup)
	for _, tg := range groups {
		if _, ok := byID[tg.ContentID]; !ok {
			return fmt.Errorf("targeting group %s references undefined content %s", tg.TargetingGroupID, tg.ContentID)
		}
		tg.Predicates = make([]models.TargetingPredicate, 0, len(tg.PredicateSpecs))
		for _, spec := range tg.PredicateSpecs {
			pred, err := hydrator.Hydrate(spec)
			if err != nil {
				return fmt.Errorf("targeting group %s: %w", tg.TargetingGroupID, err)
			}
			tg.Predicates = append(tg.Predicates, pred)
		}
		byContent[tg.ContentID] = append(byContent[tg.ContentID], tg)
	}

	s.mu.Lock()
	s.contentByMarketplace = byMarketplace
	s.contentByID = byID
	s.groupsByContent = byContent
	s.mu.Unlock()
	return nil
}

// GetContent returns all advertisement content for a marketplace. An
// unknown marketplace yields an empty list, not an error.
func (s *Store) GetContent(_ context.Context, marketplaceID string) ([]models.AdvertisementContent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.contentByMarketplace[marketplaceID], nil
}

// GetTargetingGroups returns the targeting groups attached to a content
// item. Content without groups yields an empty list.
func (s *Store) GetTargetingGroups(_ context.Context, contentID string) ([]models.TargetingGroup, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.groupsByContent[contentID], nil
}

// GetContentByID retrieves a single content item.
func (s *Store) GetContentByID(contentID string) (models.AdvertisementContent, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.contentByID[contentID]
	return c, ok
}

// AllContent returns every content item in the snapshot, ordered by content
// ID for stable listings.
func (s *Store) AllContent() []models.AdvertisementContent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.AdvertisementContent, 0, len(s.contentByID))
	for _, c := range s.contentByID {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ContentID < out[j].ContentID })
	return out
}

// AllTargetingGroups returns every targeting group in the snapshot, ordered
// by group ID.
func (s *Store) AllTargetingGroups() []models.TargetingGroup {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.TargetingGroup
	for _, groups := range s.groupsByContent {
		out = append(out, groups...)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TargetingGroupID < out[j].TargetingGroupID })
	return out
}
