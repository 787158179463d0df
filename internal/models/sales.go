package models

import "time"

type SalesRecord struct {
	Date         time.Time `json:"date"`
	SalesPerson  string    `json:"sales_person"`
	Country      string    `json:"country"`
	Product      string    `json:"product"`
	Amount       float64   `json:"amount"`
	BoxesShipped int       `json:"boxes_shipped"`
	// PricePerBox is nil when the row shipped zero boxes and the loader
	// was told to keep such rows.
	PricePerBox *float64 `json:"price_per_box"`
}

// Dataset is an ordered, read-only sequence of records.
type Dataset []SalesRecord

// Field names a categorical column a selection can restrict.
type Field string

const (
	FieldSalesPerson Field = "salesPerson"
	FieldCountry     Field = "country"
	FieldProduct     Field = "product"
)

// Fields lists the filterable fields in display order.
var Fields = []Field{FieldSalesPerson, FieldCountry, FieldProduct}

func (f Field) Label() string {
	switch f {
	case FieldSalesPerson:
		return "Sales Person"
	case FieldCountry:
		return "Country"
	case FieldProduct:
		return "Product"
	default:
		return string(f)
	}
}

func (f Field) Valid() bool {
	switch f {
	case FieldSalesPerson, FieldCountry, FieldProduct:
		return true
	}
	return false
}

// Value returns the record's value for a filterable field.
func (r SalesRecord) Value(f Field) string {
	switch f {
	case FieldSalesPerson:
		return r.SalesPerson
	case FieldCountry:
		return r.Country
	case FieldProduct:
		return r.Product
	default:
		return ""
	}
}

// FilterSelection maps a field to its accepted values. A missing or empty
// entry places no restriction on that field.
type FilterSelection map[Field][]string

// IsEmpty reports whether no field is restricted.
func (s FilterSelection) IsEmpty() bool {
	for _, vals := range s {
		if len(vals) > 0 {
			return false
		}
	}
	return true
}

type ProductRevenue struct {
	Product string  `json:"product"`
	Revenue float64 `json:"revenue"`
}

type SummaryMetrics struct {
	TransactionCount     int              `json:"transaction_count"`
	TotalRevenue         float64          `json:"total_revenue"`
	TotalBoxes           int              `json:"total_boxes"`
	DistinctProductCount int              `json:"distinct_product_count"`
	TopProductsByRevenue []ProductRevenue `json:"top_products_by_revenue"`
}

// FilterOptions holds the distinct values of each field in first-seen order.
type FilterOptions struct {
	SalesPeople []string `json:"salesPerson"`
	Countries   []string `json:"country"`
	Products    []string `json:"product"`
}

func (o FilterOptions) For(f Field) []string {
	switch f {
	case FieldSalesPerson:
		return o.SalesPeople
	case FieldCountry:
		return o.Countries
	case FieldProduct:
		return o.Products
	default:
		return nil
	}
}
