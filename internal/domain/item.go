package domain

import (
	apperrors "github.com/donMuregi/tepstore/pkg/errors"
)

// ItemKind discriminates the two purchasable item families. A line is either
// a base product (with an optional variant) or a standalone education tablet,
// never both.
type ItemKind string

const (
	KindProduct ItemKind = "product"
	KindTablet  ItemKind = "tablet"
)

// ItemRef is a tagged reference to exactly one purchasable item. For
// KindProduct, ProductID is set and VariantID may be empty; for KindTablet,
// only TabletID is set.
type ItemRef struct {
	Kind      ItemKind `json:"kind"`
	ProductID string   `json:"product_id,omitempty"`
	VariantID string   `json:"variant_id,omitempty"`
	TabletID  string   `json:"tablet_id,omitempty"`
}

// ProductRef builds a product item reference.
func ProductRef(productID, variantID string) ItemRef {
	return ItemRef{Kind: KindProduct, ProductID: productID, VariantID: variantID}
}

// TabletRef builds a tablet item reference.
func TabletRef(tabletID string) ItemRef {
	return ItemRef{Kind: KindTablet, TabletID: tabletID}
}

// NewItemRef validates the raw identifier combination from a request and
// returns the corresponding tagged reference. Supplying both a product id and
// a tablet id is ambiguous and rejected.
func NewItemRef(productID, variantID, tabletID string) (ItemRef, error) {
	switch {
	case productID != "" && tabletID != "":
		return ItemRef{}, apperrors.ConflictingItemKind("an item is either a product or a tablet, not both")
	case tabletID != "":
		if variantID != "" {
			return ItemRef{}, apperrors.ConflictingItemKind("tablets have no variants")
		}
		return TabletRef(tabletID), nil
	case productID != "":
		return ProductRef(productID, variantID), nil
	default:
		return ItemRef{}, apperrors.InvalidInput("either product_id or tablet_id is required")
	}
}

// Key returns the composite line key (kind, item id, variant id). Two cart
// lines with equal keys reference the same purchasable item and must be
// merged by summing quantity.
func (r ItemRef) Key() string {
	switch r.Kind {
	case KindTablet:
		return string(KindTablet) + ":" + r.TabletID
	default:
		return string(KindProduct) + ":" + r.ProductID + ":" + r.VariantID
	}
}

// ItemInfo is the snapshot returned by the catalog read model for a single
// purchasable item.
type ItemInfo struct {
	Name      string `json:"name"`
	UnitPrice int64  `json:"unit_price"`
	InStock   bool   `json:"in_stock"`
}
