package directory

import "errors"

var (
	// ErrInvalidMerchant is returned when a write would leave a merchant without a name.
	ErrInvalidMerchant = errors.New("merchant name is required")
	// ErrMerchantNotFound is returned by writes that target a missing merchant.
	ErrMerchantNotFound = errors.New("merchant not found")
)
