package models

import "time"

const (
	MinRating = 1
	MaxRating = 5
)

// Review is one user's rating of one merchant. At most one review exists
// per (UserID, MerchantID).
type Review struct {
	ID         string     `json:"id"`
	MerchantID string     `json:"merchantId"`
	UserID     string     `json:"userId"`
	UserName   string     `json:"userName"`
	UserAvatar string     `json:"userAvatarUrl,omitempty"`
	Rating     int        `json:"rating"` // 1 - 5
	Comment    *string    `json:"comment,omitempty"`
	CreatedAt  time.Time  `json:"createdAt"`
	UpdatedAt  *time.Time `json:"updatedAt,omitempty"`
}

// Aggregate is the derived rating summary cached on a merchant record.
type Aggregate struct {
	AverageRating float64 `json:"averageRating"`
	ReviewCount   int     `json:"reviewCount"`
}
