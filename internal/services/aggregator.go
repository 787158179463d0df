package services

import (
	"slices"

	"github.com/shopspring/decimal"

	"chocosales-dashboard/internal/models"
)

const (
	TopProductsLimit = 5
	PreviewRows      = 5
)

// Apply filters the dataset and computes metrics over the result.
// Fields are AND-combined; values within a field are OR-combined.
// The input dataset is never modified and the returned slice never aliases it.
func Apply(dataset models.Dataset, selection models.FilterSelection) (models.Dataset, models.SummaryMetrics) {
	filtered := Filter(dataset, selection)
	return filtered, Summarize(filtered)
}

// Filter returns the records accepted by every active field of the selection,
// in their original order. Unknown fields place no restriction.
func Filter(dataset models.Dataset, selection models.FilterSelection) models.Dataset {
	filtered := make(models.Dataset, 0, len(dataset))
	if selection.IsEmpty() {
		return append(filtered, dataset...)
	}

	sets := make(map[models.Field]map[string]struct{})
	for field, allowed := range selection {
		if field.Valid() && len(allowed) > 0 {
			sets[field] = toSet(allowed)
		}
	}

	for _, rec := range dataset {
		if matches(rec, sets) {
			filtered = append(filtered, rec)
		}
	}
	return filtered
}

func matches(rec models.SalesRecord, sets map[models.Field]map[string]struct{}) bool {
	for field, set := range sets {
		if _, ok := set[rec.Value(field)]; !ok {
			return false
		}
	}
	return true
}

func toSet(items []string) map[string]struct{} {
	set := make(map[string]struct{}, len(items))
	for _, item := range items {
		set[item] = struct{}{}
	}
	return set
}

// Summarize computes metrics over dataset. Revenue is summed exactly in
// decimal and converted once, so per-product revenues never add up to more
// than TotalRevenue.
func Summarize(dataset models.Dataset) models.SummaryMetrics {
	metrics := models.SummaryMetrics{
		TransactionCount: len(dataset),
	}
	total := decimal.Zero
	for _, rec := range dataset {
		total = total.Add(decimal.NewFromFloat(rec.Amount))
		metrics.TotalBoxes += rec.BoxesShipped
	}
	metrics.TotalRevenue = total.InexactFloat64()

	revenue := productRevenue(dataset)
	metrics.DistinctProductCount = len(revenue)
	metrics.TopProductsByRevenue = TopProducts(revenue, TopProductsLimit)
	return metrics
}

// productRevenue sums amount per product, in first-seen product order.
func productRevenue(dataset models.Dataset) []models.ProductRevenue {
	positions := make(map[string]int)
	products := make([]string, 0)
	sums := make([]decimal.Decimal, 0)

	for _, rec := range dataset {
		i, ok := positions[rec.Product]
		if !ok {
			i = len(products)
			positions[rec.Product] = i
			products = append(products, rec.Product)
			sums = append(sums, decimal.Zero)
		}
		sums[i] = sums[i].Add(decimal.NewFromFloat(rec.Amount))
	}

	groups := make([]models.ProductRevenue, len(products))
	for i, product := range products {
		groups[i] = models.ProductRevenue{Product: product, Revenue: sums[i].InexactFloat64()}
	}
	return groups
}

// TopProducts sorts groups by revenue descending and keeps at most limit.
// Ties keep their input order.
func TopProducts(groups []models.ProductRevenue, limit int) []models.ProductRevenue {
	result := slices.Clone(groups)
	if result == nil {
		result = []models.ProductRevenue{}
	}
	slices.SortStableFunc(result, func(a, b models.ProductRevenue) int {
		if a.Revenue > b.Revenue {
			return -1
		}
		if a.Revenue < b.Revenue {
			return 1
		}
		return 0
	})

	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result
}

// Options lists each field's distinct values in first-seen order.
func Options(dataset models.Dataset) models.FilterOptions {
	return models.FilterOptions{
		SalesPeople: distinct(dataset, models.FieldSalesPerson),
		Countries:   distinct(dataset, models.FieldCountry),
		Products:    distinct(dataset, models.FieldProduct),
	}
}

func distinct(dataset models.Dataset, field models.Field) []string {
	seen := make(map[string]struct{})
	values := make([]string, 0)
	for _, rec := range dataset {
		v := rec.Value(field)
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		values = append(values, v)
	}
	return values
}

// Preview returns at most n leading records; n <= 0 returns them all.
func Preview(dataset models.Dataset, n int) models.Dataset {
	if n <= 0 || len(dataset) <= n {
		return dataset
	}
	return dataset[:n]
}
