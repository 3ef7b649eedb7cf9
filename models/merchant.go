package models

import (
	"time"
)

// Coordinate is a latitude/longitude pair. The zero value (0, 0) marks an
// unresolved location and is never treated as a real place.
type Coordinate struct {
	Latitude  float64 `bson:"latitude" json:"latitude"`
	Longitude float64 `bson:"longitude" json:"longitude"`
}

// IsValid reports whether the coordinate is anything other than the (0, 0) sentinel.
func (c Coordinate) IsValid() bool {
	return c.Latitude != 0 || c.Longitude != 0
}

// DayHours is the opening window for one weekday. Open and Close use "HH:mm".
type DayHours struct {
	Open     string `bson:"open" json:"open"`
	Close    string `bson:"close" json:"close"`
	IsClosed bool   `bson:"isClosed" json:"isClosed"`
}

// OpeningHours holds one optional DayHours per weekday, indexed by time.Weekday.
type OpeningHours [7]*DayHours

// Day returns the hours for the given weekday, or nil when not set.
func (h *OpeningHours) Day(d time.Weekday) *DayHours {
	if h == nil || d < time.Sunday || d > time.Saturday {
		return nil
	}
	return h[d]
}

// Merchant is a directory entry: a bar, restaurant or similar venue.
type Merchant struct {
	ID   string `json:"id"`
	Name string `json:"name"`

	HeaderImageURL string   `json:"headerImageUrl,omitempty"`
	CarouselImages []string `json:"carouselImages,omitempty"`
	GalleryImages  []string `json:"galleryImages,omitempty"`

	Categories []string `json:"categories,omitempty"`
	Style      string   `json:"style,omitempty"`

	CriticRating *float64 `json:"criticRating,omitempty"` // 1.0 - 5.0
	PublicRating *float64 `json:"publicRating,omitempty"` // 1.0 - 5.0

	LikesCount     *int `json:"likesCount,omitempty"`
	BookmarksCount *int `json:"bookmarksCount,omitempty"`
	ViewsCount     *int `json:"viewsCount,omitempty"`

	Description string     `json:"description,omitempty"`
	AddressText string     `json:"addressText,omitempty"`
	Coordinate  Coordinate `json:"coordinate"`

	OpeningHours *OpeningHours `json:"openingHours,omitempty"`
	IsOpen       *bool         `json:"isOpen,omitempty"`

	// Aggregates maintained by the aggregation engine.
	AverageRating float64 `json:"averageRating"`
	ReviewCount   int     `json:"reviewCount"`

	CreatedAt *time.Time `json:"createdAt,omitempty"`
	UpdatedAt *time.Time `json:"updatedAt,omitempty"`
}

// HasValidCoordinate reports whether the merchant can be placed on a map.
func (m Merchant) HasValidCoordinate() bool {
	return m.Coordinate.IsValid()
}

// OpenAt reports whether the merchant is open at t according to its opening
// hours. The second result is false when hours are unknown for the relevant days.
// A close time at or before the open time spills into the next day.
func (m Merchant) OpenAt(t time.Time) (bool, bool) {
	if m.OpeningHours == nil {
		return false, false
	}
	minute := t.Hour()*60 + t.Minute()
	known := false

	if today := m.OpeningHours.Day(t.Weekday()); today != nil {
		known = true
		if !today.IsClosed {
			open, okOpen := parseClock(today.Open)
			closeAt, okClose := parseClock(today.Close)
			if okOpen && okClose {
				if closeAt > open && minute >= open && minute < closeAt {
					return true, true
				}
				if closeAt <= open && minute >= open {
					return true, true
				}
			}
		}
	}

	yesterday := m.OpeningHours.Day((t.Weekday() + 6) % 7)
	if yesterday != nil && !yesterday.IsClosed {
		open, okOpen := parseClock(yesterday.Open)
		closeAt, okClose := parseClock(yesterday.Close)
		if okOpen && okClose && closeAt <= open && minute < closeAt {
			return true, true
		}
	}
	return false, known
}

func parseClock(s string) (int, bool) {
	parsed, err := time.Parse("15:04", s)
	if err != nil {
		return 0, false
	}
	return parsed.Hour()*60 + parsed.Minute(), true
}
