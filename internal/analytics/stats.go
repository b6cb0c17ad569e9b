// Package analytics derives dashboard figures from catalog snapshots.
package analytics

import (
	"sort"
	"strconv"
	"time"

	"foodviz/internal/domain"
)

// Compute counts products by model status and category.
func Compute(products []domain.Product, now time.Time) domain.DashboardStats {
	stats := domain.DashboardStats{
		TotalProducts: len(products),
		ByCategory:    make(map[string]int),
		GeneratedAt:   now.UTC(),
	}
	for _, p := range products {
		switch p.ModelStatus {
		case domain.ModelStatusCompleted:
			stats.CompletedModels++
		case domain.ModelStatusProcessing:
			stats.ProcessingOnly++
		case domain.ModelStatusFailed:
			stats.FailedModels++
		default:
			stats.PendingModels++
		}
		category := p.Category
		if category == "" {
			category = "Uncategorized"
		}
		stats.ByCategory[category]++
	}
	stats.InFlightModels = stats.ProcessingOnly + stats.PendingModels
	return stats
}

// Summarize mirrors the totals on the categories page: product total is the
// sum of server-computed counts and the average is formatted to two decimals.
func Summarize(categories []domain.Category) domain.CategorySummary {
	total := 0
	for _, c := range categories {
		total += c.Count
	}
	avg := "0"
	if len(categories) > 0 {
		avg = strconv.FormatFloat(float64(total)/float64(len(categories)), 'f', 2, 64)
	}
	return domain.CategorySummary{
		Categories:         len(categories),
		TotalProducts:      total,
		AveragePerCategory: avg,
	}
}

// CategoryCount is one bar of the per-category chart.
type CategoryCount struct {
	Category string `json:"category"`
	Count    int    `json:"count"`
}

// Ranked orders per-category counts from largest to smallest, ties by name.
func Ranked(byCategory map[string]int) []CategoryCount {
	out := make([]CategoryCount, 0, len(byCategory))
	for k, v := range byCategory {
		out = append(out, CategoryCount{Category: k, Count: v})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Category < out[j].Category
	})
	return out
}

// CompletionRate is the share of products with a finished model, in percent
// rounded to one decimal.
func CompletionRate(stats domain.DashboardStats) float64 {
	if stats.TotalProducts == 0 {
		return 0
	}
	rate := float64(stats.CompletedModels) * 100 / float64(stats.TotalProducts)
	return float64(int(rate*10+0.5)) / 10
}
