// ABOUTME: Domain errors for the product catalog.

package products

import "errors"

// ErrNameRequired is returned when creating a product with an empty name.
var ErrNameRequired = errors.New("product name is required")
