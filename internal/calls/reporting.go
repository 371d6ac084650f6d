package calls

import (
	"sort"

	"xdial-backend/internal/catalog"
)

// LatestStagePerNumber keeps, for each phone number, only the call(s) at
// that number's maximum stage. The result preserves input order.
func LatestStagePerNumber(calls []Call) []Call {
	maxStage := map[string]int{}
	for _, c := range calls {
		if cur, ok := maxStage[c.Number]; !ok || c.Stage > cur {
			maxStage[c.Number] = c.Stage
		}
	}

	var out []Call
	for _, c := range calls {
		if c.Stage == maxStage[c.Number] {
			out = append(out, c)
		}
	}
	return out
}

// CategoryCount is one dashboard bucket keyed by normalized display name.
type CategoryCount struct {
	Display string `json:"display"`
	Color   string `json:"color,omitempty"`
	Count   int    `json:"count"`
}

// CategoryCounts buckets calls by normalized display category. Every
// catalog category gets a bucket even at zero count; raw categories
// normalizing to the same display name sum their counts and keep the first
// non-empty color encountered. Output is sorted by display name so the
// result does not depend on mapping or catalog ordering.
func CategoryCounts(calls []Call, categories []catalog.ResponseCategory, m *Mapping) []CategoryCount {
	buckets := map[string]*CategoryCount{}
	ensure := func(display, color string) *CategoryCount {
		b, ok := buckets[display]
		if !ok {
			b = &CategoryCount{Display: display}
			buckets[display] = b
		}
		if b.Color == "" && color != "" {
			b.Color = color
		}
		return b
	}

	for _, rc := range categories {
		ensure(m.Display(rc.Name), rc.Color)
	}
	for _, c := range calls {
		ensure(m.Display(c.ResponseCategory), "").Count++
	}

	out := make([]CategoryCount, 0, len(buckets))
	for _, b := range buckets {
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Display < out[j].Display })
	return out
}

// FilterByDisplayCategories keeps calls whose raw category falls under one
// of the selected display names after reverse expansion. Selecting the
// Unknown sentinel matches uncategorized calls.
func FilterByDisplayCategories(calls []Call, selected []string, m *Mapping) []Call {
	if len(selected) == 0 {
		return calls
	}

	allowed := map[string]struct{}{}
	for _, display := range selected {
		for _, raw := range m.Expand(display) {
			allowed[raw] = struct{}{}
		}
		if display == UnknownCategory {
			allowed[""] = struct{}{}
		}
	}

	var out []Call
	for _, c := range calls {
		if _, ok := allowed[c.ResponseCategory]; ok {
			out = append(out, c)
		}
	}
	return out
}
