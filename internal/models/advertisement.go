package models

import "github.com/google/uuid"

// AdvertisementContent is one piece of renderable creative content. Content
// is associated with exactly one marketplace and is immutable once loaded
// from storage.
type AdvertisementContent struct {
	ContentID     string `json:"content_id"`     // Unique identifier for the content (UUID).
	MarketplaceID string `json:"marketplace_id"` // Marketplace this content may serve in.
	// RenderableContent is the HTML body handed back to the caller when
	// this content is selected.
	RenderableContent string `json:"renderable_content"`
}

// GeneratedAdvertisement wraps a selected AdvertisementContent for return to
// the caller. Every generation gets its own ID so that impressions of the
// same content can be told apart downstream. The zero-content variant
// signals that nothing was eligible.
type GeneratedAdvertisement struct {
	ID      string                `json:"id"`
	Content *AdvertisementContent `json:"content,omitempty"`
}

// NewGeneratedAdvertisement wraps content in a GeneratedAdvertisement with a
// freshly generated ID.
func NewGeneratedAdvertisement(content AdvertisementContent) GeneratedAdvertisement {
	return GeneratedAdvertisement{ID: uuid.NewString(), Content: &content}
}

// EmptyAdvertisement returns the distinguished empty result used when no
// content is available or eligible. It carries no ID and no content; there
// is no impression to track.
func EmptyAdvertisement() GeneratedAdvertisement {
	return GeneratedAdvertisement{}
}

// Empty reports whether this advertisement carries no content.
func (g GeneratedAdvertisement) Empty() bool {
	return g.Content == nil
}
