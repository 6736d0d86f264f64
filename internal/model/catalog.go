package model

// CatalogKind identifies which catalog list an entry belongs to.
type CatalogKind string

const (
	KindCategory CatalogKind = "category"
	KindProduct  CatalogKind = "product"
	KindMaterial CatalogKind = "material"
	KindFinish   CatalogKind = "finish"
)

// PriceType describes how an entry's unit price is applied.
type PriceType string

const (
	PriceFixed      PriceType = "fixed"
	PricePercentage PriceType = "percentage"
	PricePerUnit    PriceType = "per_unit"
)

// PriceFields holds pricing data for a catalog entry.
type PriceFields struct {
	UnitPrice float64   `json:"unit_price" yaml:"unit_price"`
	Type      PriceType `json:"price_type,omitempty" yaml:"price_type"`
}

// CatalogEntry is a category, product, material or finish record.
// ParentCategoryID scopes products, materials and finishes to a category.
type CatalogEntry struct {
	ID               string      `json:"id" yaml:"id"`
	Name             string      `json:"name" yaml:"name"`
	Aliases          []string    `json:"aliases,omitempty" yaml:"aliases"`
	ParentCategoryID string      `json:"parent_category_id,omitempty" yaml:"category"`
	Description      string      `json:"description,omitempty" yaml:"description"`
	ExternalID       string      `json:"external_id,omitempty" yaml:"external_id"`
	SortOrder        int         `json:"sort_order,omitempty" yaml:"sort_order"`
	Price            PriceFields `json:"price" yaml:"price"`

	// Products only.
	DimensionFields []string `json:"dimension_fields,omitempty" yaml:"dimension_fields"`
	DimensionUnit   string   `json:"dimension_unit,omitempty" yaml:"dimension_unit"`
}

// DefaultDimensionFields is used for products that do not declare their own.
var DefaultDimensionFields = []string{"width", "height"}

// DefaultDimensionUnit is used for products that do not declare their own.
const DefaultDimensionUnit = "in"

// Names returns the entry name followed by its aliases.
func (e CatalogEntry) Names() []string {
	names := make([]string, 0, len(e.Aliases)+1)
	names = append(names, e.Name)
	return append(names, e.Aliases...)
}

// Dimensions returns the ordered dimension field names for a product.
func (e CatalogEntry) Dimensions() []string {
	if len(e.DimensionFields) == 0 {
		return DefaultDimensionFields
	}
	return e.DimensionFields
}

// Unit returns the product's dimension unit.
func (e CatalogEntry) Unit() string {
	if e.DimensionUnit == "" {
		return DefaultDimensionUnit
	}
	return e.DimensionUnit
}
