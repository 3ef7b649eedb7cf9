package directory

import (
	"strings"
	"time"

	"venuedir/database/repository/store"
	"venuedir/models"
	"venuedir/services/fields"
	"venuedir/services/media"

	"google.golang.org/genproto/googleapis/type/latlng"
)

// Alternate keys per attribute, canonical name first. Older records used
// the later names; writes only ever use the first.
var (
	keysHeaderImage    = []string{"headerImageUrl", "headerImageURL", "headerImage", "imageUrl", "image"}
	keysCarouselImages = []string{"carouselImages", "carouselImageUrls", "carousel"}
	keysGalleryImages  = []string{"galleryImages", "galleryImageUrls", "gallery", "photos"}
	keysCategories     = []string{"categories", "category"}
	keysPublicRating   = []string{"publicRating", "rating"}
	keysLikes          = []string{"likesCount", "likes"}
	keysBookmarks      = []string{"bookmarksCount", "bookmarks"}
	keysViews          = []string{"viewsCount", "views"}
	keysAddress        = []string{"addressText", "address"}
	keysLatitude       = []string{"latitude", "lat"}
	keysLongitude      = []string{"longitude", "lng", "lon"}
	keysLocation       = []string{"location", "coordinate", "geopoint"}
	keysReviewCount    = []string{"reviewCount", "reviewsCount"}
	keysOpeningHours   = []string{"openingHours", "hours"}
)

// decodeMerchant turns a store document into a Merchant. Only a missing name
// is fatal; every other attribute is optional.
func decodeMerchant(doc store.Document, collection string, normalizer *media.Normalizer, now time.Time) (*models.Merchant, error) {
	f := fields.Map(doc.Fields)

	name, _ := f.String("name")
	if strings.TrimSpace(name) == "" {
		return nil, &fields.DecodeError{Collection: collection, ID: doc.ID, Field: "name", Reason: "is missing"}
	}

	m := &models.Merchant{ID: doc.ID, Name: name}

	if s, ok := f.String(keysHeaderImage...); ok {
		m.HeaderImageURL = normalizer.URL(s)
	}
	if ss, ok := f.StringSlice(keysCarouselImages...); ok {
		m.CarouselImages = normalizer.URLs(ss)
	}
	if ss, ok := f.StringSlice(keysGalleryImages...); ok {
		m.GalleryImages = normalizer.URLs(ss)
	}
	if ss, ok := f.StringSlice(keysCategories...); ok {
		m.Categories = dedupe(ss)
	}
	m.Style, _ = f.String("style")
	m.Description, _ = f.String("description")
	m.AddressText, _ = f.String(keysAddress...)

	if v, ok := f.Float("criticRating"); ok {
		m.CriticRating = &v
	}
	if v, ok := f.Float(keysPublicRating...); ok {
		m.PublicRating = &v
	}
	m.LikesCount = optInt(f, keysLikes)
	m.BookmarksCount = optInt(f, keysBookmarks)
	m.ViewsCount = optInt(f, keysViews)

	m.Coordinate = decodeCoordinate(f)

	var hasAverage, hasCount bool
	m.AverageRating, hasAverage = f.Float("averageRating")
	m.ReviewCount, hasCount = f.Int(keysReviewCount...)
	// Records written before aggregates existed keep their mean in publicRating.
	if !hasAverage && hasCount && m.PublicRating != nil {
		m.AverageRating = *m.PublicRating
	}

	if hours, ok := f.Sub(keysOpeningHours...); ok {
		m.OpeningHours = decodeOpeningHours(hours)
	}
	if b, ok := f.Bool("isOpen"); ok {
		m.IsOpen = &b
	} else if open, known := m.OpenAt(now); known {
		m.IsOpen = &open
	}

	if t, ok := f.Time("createdAt"); ok {
		m.CreatedAt = &t
	}
	if t, ok := f.Time("updatedAt"); ok {
		m.UpdatedAt = &t
	}
	return m, nil
}

func decodeCoordinate(f fields.Map) models.Coordinate {
	lat, okLat := f.Float(keysLatitude...)
	lng, okLng := f.Float(keysLongitude...)
	if okLat && okLng {
		return models.Coordinate{Latitude: lat, Longitude: lng}
	}
	for _, k := range keysLocation {
		switch v := f[k].(type) {
		case *latlng.LatLng:
			if v != nil {
				return models.Coordinate{Latitude: v.GetLatitude(), Longitude: v.GetLongitude()}
			}
		case map[string]interface{}:
			sub := fields.Map(v)
			lat, okLat := sub.Float(keysLatitude...)
			lng, okLng := sub.Float(keysLongitude...)
			if okLat && okLng {
				return models.Coordinate{Latitude: lat, Longitude: lng}
			}
		}
	}
	return models.Coordinate{}
}

func decodeOpeningHours(hours fields.Map) *models.OpeningHours {
	var out models.OpeningHours
	found := false
	for key := range hours {
		day, ok := parseWeekday(key)
		if !ok {
			continue
		}
		sub, ok := hours.Sub(key)
		if !ok {
			continue
		}
		dh := &models.DayHours{}
		dh.Open, _ = sub.String("open", "opens")
		dh.Close, _ = sub.String("close", "closes")
		dh.IsClosed, _ = sub.Bool("isClosed", "closed")
		out[day] = dh
		found = true
	}
	if !found {
		return nil
	}
	return &out
}

func parseWeekday(s string) (time.Weekday, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	for d := time.Sunday; d <= time.Saturday; d++ {
		name := strings.ToLower(d.String())
		if s == name || s == name[:3] {
			return d, true
		}
	}
	return 0, false
}

func optInt(f fields.Map, keys []string) *int {
	if v, ok := f.Int(keys...); ok {
		return &v
	}
	return nil
}

// dedupe drops empty and repeated tags, keeping first-seen order.
func dedupe(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

// encodeMerchant produces the canonical field map for a full write.
func encodeMerchant(m models.Merchant) map[string]interface{} {
	out := map[string]interface{}{
		"name":          m.Name,
		"averageRating": m.AverageRating,
		"reviewCount":   m.ReviewCount,
		"latitude":      m.Coordinate.Latitude,
		"longitude":     m.Coordinate.Longitude,
	}
	putString(out, "headerImageUrl", m.HeaderImageURL)
	putString(out, "style", m.Style)
	putString(out, "description", m.Description)
	putString(out, "addressText", m.AddressText)
	if len(m.CarouselImages) > 0 {
		out["carouselImages"] = append([]string(nil), m.CarouselImages...)
	}
	if len(m.GalleryImages) > 0 {
		out["galleryImages"] = append([]string(nil), m.GalleryImages...)
	}
	if len(m.Categories) > 0 {
		out["categories"] = dedupe(m.Categories)
	}
	if m.CriticRating != nil {
		out["criticRating"] = *m.CriticRating
	}
	if m.PublicRating != nil {
		out["publicRating"] = *m.PublicRating
	}
	if m.LikesCount != nil {
		out["likesCount"] = *m.LikesCount
	}
	if m.BookmarksCount != nil {
		out["bookmarksCount"] = *m.BookmarksCount
	}
	if m.ViewsCount != nil {
		out["viewsCount"] = *m.ViewsCount
	}
	if m.OpeningHours != nil {
		out["openingHours"] = encodeOpeningHours(m.OpeningHours)
	}
	if m.CreatedAt != nil {
		out["createdAt"] = *m.CreatedAt
	}
	if m.UpdatedAt != nil {
		out["updatedAt"] = *m.UpdatedAt
	}
	return out
}

func encodeOpeningHours(h *models.OpeningHours) map[string]interface{} {
	out := make(map[string]interface{}, 7)
	for d := time.Sunday; d <= time.Saturday; d++ {
		dh := h.Day(d)
		if dh == nil {
			continue
		}
		out[strings.ToLower(d.String())] = map[string]interface{}{
			"open":     dh.Open,
			"close":    dh.Close,
			"isClosed": dh.IsClosed,
		}
	}
	return out
}

func putString(out map[string]interface{}, key, v string) {
	if v != "" {
		out[key] = v
	}
}
