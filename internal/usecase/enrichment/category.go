package enrichment

import (
	"context"
	"log/slog"
	"math"
	"strings"

	"cultura/internal/bootstrap/logging"
	"cultura/internal/domain/event"
)

const stageCategory = "category"

// CategoryEnricher scores payload text against a Taxonomy.
type CategoryEnricher struct {
	taxonomy *Taxonomy
}

func NewCategoryEnricher(taxonomy *Taxonomy) *CategoryEnricher {
	return &CategoryEnricher{taxonomy: taxonomy}
}

func (e *CategoryEnricher) Enrich(ctx context.Context, payload event.Payload) Result[event.CategoryData] {
	result := event.CategoryData{
		MainCategory: e.taxonomy.Fallback(),
		Keywords:     []string{},
	}

	hint := strings.ToLower(payload.TextOr("category"))
	text := categorizationText(payload, hint)

	best := -1
	bestHits := 0
	var bestKeywords []string
	for i, category := range e.taxonomy.categories {
		var matched []string
		for _, keyword := range category.Keywords {
			if strings.Contains(text, keyword) {
				matched = append(matched, keyword)
			}
		}
		// Strict comparison keeps the earlier category on ties.
		if len(matched) > bestHits {
			best = i
			bestHits = len(matched)
			bestKeywords = matched
		}
	}

	if best >= 0 {
		category := e.taxonomy.categories[best]
		result.MainCategory = category.Name
		result.Keywords = bestKeywords
		result.Confidence = math.Min(float64(bestHits)/float64(e.taxonomy.saturationHits), 1)
		result.SubCategory = firstSubcategory(category, text)
	}

	if hint != "" && result.Confidence < e.taxonomy.hintThreshold {
		if mapped, ok := e.taxonomy.MatchHint(hint); ok {
			if ctx != nil {
				logging.Debug(logging.WithComponent(ctx, "enrichment.category"), "category taken from source hint",
					slog.String("hint", hint),
					slog.String("category", mapped),
				)
			}
			if mapped != result.MainCategory {
				result = event.CategoryData{MainCategory: mapped, Keywords: []string{}}
			}
			result.Confidence = e.taxonomy.hintConfidence
		}
	}

	if best < 0 && result.MainCategory == e.taxonomy.Fallback() {
		return degraded(result, stageCategory, "no keyword matched", nil)
	}
	return ok(result)
}

func categorizationText(payload event.Payload, hint string) string {
	parts := []string{
		strings.ToLower(payload.TextOr("title")),
		strings.ToLower(payload.TextOr("description")),
		hint,
	}
	for _, tag := range payload.Strings("tags") {
		parts = append(parts, strings.ToLower(tag))
	}
	return strings.Join(parts, " ")
}

func firstSubcategory(category Category, text string) string {
	for _, sub := range category.Subcategories {
		for _, keyword := range sub.Keywords {
			if strings.Contains(text, keyword) {
				return sub.Name
			}
		}
	}
	return ""
}
