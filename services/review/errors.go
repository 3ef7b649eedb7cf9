package review

import "errors"

var (
	ErrInvalidRating   = errors.New("rating must be between 1 and 5")
	ErrForbidden       = errors.New("review belongs to another user")
	ErrReviewNotFound  = errors.New("review not found")
	ErrMissingMerchant = errors.New("review requires a merchant id")
	ErrMissingUser     = errors.New("review requires a user")
	ErrDuplicateReview = errors.New("user already reviewed this merchant")
)
