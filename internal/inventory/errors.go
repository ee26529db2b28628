package inventory

import (
	"fmt"
	"strings"
)

// UnavailableProductsError: at least one requested product is missing,
// inactive, or completely out of stock. Nothing was reserved.
type UnavailableProductsError struct {
	Titles []string
}

func (e *UnavailableProductsError) Error() string {
	return fmt.Sprintf("following products are not available: %s", strings.Join(e.Titles, ", "))
}

// InsufficientStockError: the product is sellable but the requested quantity
// exceeds what is left.
type InsufficientStockError struct {
	ProductID string
	Title     string
	Available int
	Requested int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("there are %d %q available instead of %d",
		e.Available, e.Title, e.Requested)
}
