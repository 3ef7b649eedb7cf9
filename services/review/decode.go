package review

import (
	"venuedir/database/repository/store"
	"venuedir/models"
	"venuedir/services/fields"
)

func decodeReview(doc store.Document, collection string) (*models.Review, error) {
	f := fields.Map(doc.Fields)
	bad := func(field, reason string) error {
		return &fields.DecodeError{Collection: collection, ID: doc.ID, Field: field, Reason: reason}
	}

	merchantID, _ := f.String("merchantId")
	if merchantID == "" {
		return nil, bad("merchantId", "is missing")
	}
	userID, _ := f.String("userId")
	if userID == "" {
		return nil, bad("userId", "is missing")
	}
	rating, ok := f.Int("rating")
	if !ok {
		return nil, bad("rating", "is missing or not an integer")
	}
	if rating < models.MinRating || rating > models.MaxRating {
		return nil, bad("rating", "is out of range")
	}

	r := &models.Review{ID: doc.ID, MerchantID: merchantID, UserID: userID, Rating: rating}
	r.UserName, _ = f.String("userName")
	r.UserAvatar, _ = f.String("userAvatarUrl", "userAvatar")
	if c, ok := f.String("comment"); ok && c != "" {
		r.Comment = &c
	}
	r.CreatedAt, _ = f.Time("createdAt")
	if t, ok := f.Time("updatedAt"); ok {
		r.UpdatedAt = &t
	}
	return r, nil
}

// encodeReview produces the full field map of a review. A nil comment or
// avatar clears the stored value.
func encodeReview(r models.Review) map[string]interface{} {
	out := map[string]interface{}{
		"merchantId":    r.MerchantID,
		"userId":        r.UserID,
		"userName":      r.UserName,
		"userAvatarUrl": nil,
		"rating":        r.Rating,
		"comment":       nil,
		"createdAt":     r.CreatedAt,
	}
	if r.UserAvatar != "" {
		out["userAvatarUrl"] = r.UserAvatar
	}
	if r.Comment != nil && *r.Comment != "" {
		out["comment"] = *r.Comment
	}
	if r.UpdatedAt != nil {
		out["updatedAt"] = *r.UpdatedAt
	}
	return out
}
