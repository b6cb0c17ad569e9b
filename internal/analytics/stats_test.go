package analytics

import (
	"testing"
	"time"

	"foodviz/internal/domain"
)

func TestCompute(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	stats := Compute([]domain.Product{
		{Category: "Fast Food", ModelStatus: domain.ModelStatusCompleted},
		{Category: "Fast Food", ModelStatus: domain.ModelStatusProcessing},
		{Category: "Chinese", ModelStatus: domain.ModelStatusPending},
		{Category: "Chinese", ModelStatus: domain.ModelStatusFailed},
		{ModelStatus: domain.ModelStatusCompleted},
	}, now)

	if stats.TotalProducts != 5 || stats.CompletedModels != 2 || stats.ProcessingOnly != 1 ||
		stats.PendingModels != 1 || stats.FailedModels != 1 || stats.InFlightModels != 2 {
		t.Fatalf("stats = %+v", stats)
	}
	if stats.ByCategory["Fast Food"] != 2 || stats.ByCategory["Chinese"] != 2 || stats.ByCategory["Uncategorized"] != 1 {
		t.Fatalf("ByCategory = %v", stats.ByCategory)
	}
	if !stats.GeneratedAt.Equal(now) {
		t.Fatalf("GeneratedAt = %s", stats.GeneratedAt)
	}
	if got := CompletionRate(stats); got != 40 {
		t.Fatalf("CompletionRate = %v, want 40", got)
	}
}

func TestSummarize(t *testing.T) {
	tests := []struct {
		name       string
		categories []domain.Category
		total      int
		avg        string
	}{
		{"empty", nil, 0, "0"},
		{"even", []domain.Category{{Name: "A", Count: 4}, {Name: "B", Count: 2}}, 6, "3.00"},
		{"fraction", []domain.Category{{Name: "A", Count: 1}, {Name: "B", Count: 1}, {Name: "C", Count: 0}}, 2, "0.67"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := Summarize(tc.categories)
			if got.TotalProducts != tc.total || got.AveragePerCategory != tc.avg || got.Categories != len(tc.categories) {
				t.Fatalf("Summarize = %+v, want total %d avg %s", got, tc.total, tc.avg)
			}
		})
	}
}

func TestRanked(t *testing.T) {
	got := Ranked(map[string]int{"Chinese": 2, "Fast Food": 5, "Desi Food": 2})
	want := []string{"Fast Food", "Chinese", "Desi Food"}
	for i, name := range want {
		if got[i].Category != name {
			t.Fatalf("Ranked = %+v", got)
		}
	}
}

func TestCompletionRateEmpty(t *testing.T) {
	if got := CompletionRate(domain.DashboardStats{}); got != 0 {
		t.Fatalf("CompletionRate = %v", got)
	}
}
