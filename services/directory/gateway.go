package directory

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"venuedir/database/repository/store"
	"venuedir/models"

	"go.uber.org/zap"
)

// MerchantPatch is a partial merchant update. Nil fields are left untouched.
type MerchantPatch struct {
	Name           *string              `json:"name,omitempty"`
	HeaderImageURL *string              `json:"headerImageUrl,omitempty"`
	CarouselImages *[]string            `json:"carouselImages,omitempty"`
	GalleryImages  *[]string            `json:"galleryImages,omitempty"`
	Categories     *[]string            `json:"categories,omitempty"`
	Style          *string              `json:"style,omitempty"`
	CriticRating   *float64             `json:"criticRating,omitempty"`
	PublicRating   *float64             `json:"publicRating,omitempty"`
	Description    *string              `json:"description,omitempty"`
	AddressText    *string              `json:"addressText,omitempty"`
	Coordinate     *models.Coordinate   `json:"coordinate,omitempty"`
	OpeningHours   *models.OpeningHours `json:"openingHours,omitempty"`
}

func (p MerchantPatch) fields() (map[string]interface{}, error) {
	out := map[string]interface{}{}
	if p.Name != nil {
		if strings.TrimSpace(*p.Name) == "" {
			return nil, ErrInvalidMerchant
		}
		out["name"] = *p.Name
	}
	if p.HeaderImageURL != nil {
		out["headerImageUrl"] = *p.HeaderImageURL
	}
	if p.CarouselImages != nil {
		out["carouselImages"] = append([]string{}, *p.CarouselImages...)
	}
	if p.GalleryImages != nil {
		out["galleryImages"] = append([]string{}, *p.GalleryImages...)
	}
	if p.Categories != nil {
		out["categories"] = dedupe(*p.Categories)
	}
	if p.Style != nil {
		out["style"] = *p.Style
	}
	if p.CriticRating != nil {
		out["criticRating"] = *p.CriticRating
	}
	if p.PublicRating != nil {
		out["publicRating"] = *p.PublicRating
	}
	if p.Description != nil {
		out["description"] = *p.Description
	}
	if p.AddressText != nil {
		out["addressText"] = *p.AddressText
	}
	if p.Coordinate != nil {
		out["latitude"] = p.Coordinate.Latitude
		out["longitude"] = p.Coordinate.Longitude
	}
	if p.OpeningHours != nil {
		out["openingHours"] = encodeOpeningHours(p.OpeningHours)
	}
	return out, nil
}

// SearchMerchants returns every merchant whose name contains query,
// ignoring case. An empty query returns all merchants. Records that fail to
// decode are skipped and logged.
func (g *Gateway) SearchMerchants(ctx context.Context, query string) ([]models.Merchant, error) {
	all, err := g.listAll(ctx)
	if err != nil {
		return nil, err
	}
	needle := strings.ToLower(strings.TrimSpace(query))
	if needle == "" {
		return all, nil
	}
	out := make([]models.Merchant, 0, len(all))
	for _, m := range all {
		if strings.Contains(strings.ToLower(m.Name), needle) {
			out = append(out, m)
		}
	}
	return out, nil
}

// FetchNear returns merchants around a point. Radius filtering is not
// applied; the result equals SearchMerchants("").
func (g *Gateway) FetchNear(ctx context.Context, lat, lng, radiusMeters float64) ([]models.Merchant, error) {
	g.logger.Debug("Fetching merchants near point",
		zap.Float64("lat", lat), zap.Float64("lng", lng), zap.Float64("radiusMeters", radiusMeters))
	return g.SearchMerchants(ctx, "")
}

// MerchantByID returns the merchant or nil when it does not exist or cannot
// be decoded.
func (g *Gateway) MerchantByID(ctx context.Context, id string) (*models.Merchant, error) {
	if id == "" {
		return nil, nil
	}
	cctx, cancel := g.withTimeout(ctx)
	defer cancel()

	doc, err := g.merchants.Get(cctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	m, err := decodeMerchant(doc, g.merchants.Name(), g.media, g.now())
	if err != nil {
		g.logger.Warn("Skipping undecodable merchant", zap.String("id", doc.ID), zap.Error(err))
		return nil, nil
	}
	return m, nil
}

// CreateMerchant stores a new merchant and returns it as stored. An empty ID
// is generated by the store.
func (g *Gateway) CreateMerchant(ctx context.Context, m models.Merchant) (*models.Merchant, error) {
	if strings.TrimSpace(m.Name) == "" {
		return nil, ErrInvalidMerchant
	}
	now := g.now().UTC()
	m.CreatedAt = &now
	m.UpdatedAt = &now

	cctx, cancel := g.withTimeout(ctx)
	defer cancel()

	id, err := g.merchants.Create(cctx, m.ID, encodeMerchant(m))
	if err != nil {
		return nil, fmt.Errorf("failed to create merchant: %w", err)
	}
	m.ID = id
	g.logger.Info("Merchant created", zap.String("id", id), zap.String("name", m.Name))
	return &m, nil
}

// UpdateMerchant applies patch and returns the merchant as stored afterwards.
func (g *Gateway) UpdateMerchant(ctx context.Context, id string, patch MerchantPatch) (*models.Merchant, error) {
	update, err := patch.fields()
	if err != nil {
		return nil, err
	}
	if err := g.update(ctx, id, update); err != nil {
		return nil, err
	}
	m, err := g.MerchantByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, ErrMerchantNotFound
	}
	return m, nil
}

// DeleteMerchant removes a merchant. Its reviews are left in place.
func (g *Gateway) DeleteMerchant(ctx context.Context, id string) error {
	cctx, cancel := g.withTimeout(ctx)
	defer cancel()

	err := g.merchants.Delete(cctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return ErrMerchantNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to delete merchant: %w", err)
	}
	g.logger.Info("Merchant deleted", zap.String("id", id))
	return nil
}

// UpdateCoordinate writes a resolved coordinate back to the merchant.
func (g *Gateway) UpdateCoordinate(ctx context.Context, id string, c models.Coordinate) error {
	return g.update(ctx, id, map[string]interface{}{
		"latitude":  c.Latitude,
		"longitude": c.Longitude,
	})
}

// UpdateAggregate writes the rating summary onto the merchant.
func (g *Gateway) UpdateAggregate(ctx context.Context, id string, agg models.Aggregate) error {
	return g.update(ctx, id, map[string]interface{}{
		"averageRating": agg.AverageRating,
		"reviewCount":   agg.ReviewCount,
	})
}

func (g *Gateway) update(ctx context.Context, id string, update map[string]interface{}) error {
	if id == "" {
		return ErrMerchantNotFound
	}
	update["updatedAt"] = g.now().UTC()

	cctx, cancel := g.withTimeout(ctx)
	defer cancel()

	err := g.merchants.Update(cctx, id, update)
	if errors.Is(err, store.ErrNotFound) {
		return ErrMerchantNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to update merchant %s: %w", id, err)
	}
	return nil
}

func (g *Gateway) listAll(ctx context.Context) ([]models.Merchant, error) {
	cctx, cancel := g.withTimeout(ctx)
	defer cancel()

	docs, err := g.merchants.List(cctx)
	if err != nil {
		return nil, err
	}
	now := g.now()
	out := make([]models.Merchant, 0, len(docs))
	for _, doc := range docs {
		m, err := decodeMerchant(doc, g.merchants.Name(), g.media, now)
		if err != nil {
			g.logger.Warn("Skipping undecodable merchant", zap.String("id", doc.ID), zap.Error(err))
			continue
		}
		out = append(out, *m)
	}
	return out, nil
}
