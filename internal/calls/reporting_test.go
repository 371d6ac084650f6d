package calls

import (
	"context"
	"testing"

	"xdial-backend/internal/auth"
	"xdial-backend/internal/catalog"
	"xdial-backend/internal/rbac"
)

func TestLatestStagePerNumber(t *testing.T) {
	in := []Call{
		{Number: "15550001", Stage: 1},
		{Number: "15550001", Stage: 2},
		{Number: "15550001", Stage: 3, ResponseCategory: "INTERESTED"},
		{Number: "15550002", Stage: 1},
		{Number: "15550002", Stage: 2, ResponseCategory: "NO_RESPONSE"},
	}

	out := LatestStagePerNumber(in)
	if len(out) != 2 {
		t.Fatalf("kept %d calls, want 2: %+v", len(out), out)
	}
	if out[0].Number != "15550001" || out[0].Stage != 3 {
		t.Fatalf("first number outcome = %+v, want stage 3", out[0])
	}
	if out[1].Number != "15550002" || out[1].Stage != 2 {
		t.Fatalf("second number outcome = %+v, want stage 2", out[1])
	}
}

func TestLatestStagePerNumber_KeepsTiesAtMax(t *testing.T) {
	in := []Call{
		{ID: 1, Number: "15550001", Stage: 2},
		{ID: 2, Number: "15550001", Stage: 2},
		{ID: 3, Number: "15550001", Stage: 1},
	}
	out := LatestStagePerNumber(in)
	if len(out) != 2 || out[0].ID != 1 || out[1].ID != 2 {
		t.Fatalf("ties at max stage must all be kept: %+v", out)
	}
}

func fiveRawMapping() *Mapping {
	return NewMapping("1", map[string]string{
		"INTERESTED":   "Interested",
		"CALLBACK_SET": "Interested",
		"UNKNOWN":      "Unknown",
		"NO_RESPONSE":  "Unknown",
		"DEAD_AIR":     "Unknown",
	})
}

func fiveRawCatalog() []catalog.ResponseCategory {
	return []catalog.ResponseCategory{
		{ID: 1, Name: "INTERESTED", Color: "#2ecc71"},
		{ID: 2, Name: "CALLBACK_SET", Color: "#27ae60"},
		{ID: 3, Name: "UNKNOWN", Color: "#95a5a6"},
		{ID: 4, Name: "NO_RESPONSE", Color: ""},
		{ID: 5, Name: "DEAD_AIR", Color: "#7f8c8d"},
	}
}

func tenCalls() []Call {
	raw := []string{
		"INTERESTED", "INTERESTED", "CALLBACK_SET", "INTERESTED",
		"UNKNOWN", "NO_RESPONSE", "DEAD_AIR", "UNKNOWN", "NO_RESPONSE", "DEAD_AIR",
	}
	out := make([]Call, len(raw))
	for i, rc := range raw {
		out[i] = Call{ID: int64(i + 1), Number: "1555000", Stage: 1, ResponseCategory: rc}
	}
	return out
}

func TestCategoryCounts_ManyToOne(t *testing.T) {
	counts := CategoryCounts(tenCalls(), fiveRawCatalog(), fiveRawMapping())

	byName := map[string]CategoryCount{}
	total := 0
	for _, c := range counts {
		byName[c.Display] = c
		total += c.Count
	}
	// 5 raw categories collapse into 2 display buckets.
	if len(counts) != 2 {
		t.Fatalf("buckets = %+v, want Interested + Unknown", counts)
	}
	if byName["Interested"].Count != 4 {
		t.Fatalf("Interested = %d, want 4", byName["Interested"].Count)
	}
	if byName["Unknown"].Count != 6 {
		t.Fatalf("Unknown = %d, want 6", byName["Unknown"].Count)
	}
	// Sum of buckets always equals the number of calls.
	if total != 10 {
		t.Fatalf("sum = %d, want 10", total)
	}
	// First non-empty color per display bucket wins.
	if byName["Interested"].Color != "#2ecc71" {
		t.Fatalf("Interested color = %q", byName["Interested"].Color)
	}
	if byName["Unknown"].Color != "#95a5a6" {
		t.Fatalf("Unknown color = %q", byName["Unknown"].Color)
	}
}

func TestCategoryCounts_OrderInvariant(t *testing.T) {
	cat := fiveRawCatalog()
	reversed := make([]catalog.ResponseCategory, len(cat))
	for i, rc := range cat {
		reversed[len(cat)-1-i] = rc
	}

	a := CategoryCounts(tenCalls(), cat, fiveRawMapping())
	b := CategoryCounts(tenCalls(), reversed, fiveRawMapping())

	if len(a) != len(b) {
		t.Fatalf("bucket count differs: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i].Display != b[i].Display || a[i].Count != b[i].Count {
			t.Fatalf("counts depend on catalog order: %+v vs %+v", a, b)
		}
	}
}

func TestCategoryCounts_ZeroBucketsAndUnknownSentinel(t *testing.T) {
	calls := []Call{
		{ID: 1, ResponseCategory: "INTERESTED"},
		{ID: 2, ResponseCategory: ""}, // never categorized
	}
	counts := CategoryCounts(calls, fiveRawCatalog(), fiveRawMapping())

	byName := map[string]int{}
	for _, c := range counts {
		byName[c.Display] = c.Count
	}
	if byName["Interested"] != 1 {
		t.Fatalf("Interested = %d", byName["Interested"])
	}
	// The uncategorized call lands in Unknown, which also exists as a
	// zero-initialized catalog bucket.
	if byName["Unknown"] != 1 {
		t.Fatalf("Unknown = %d, want 1", byName["Unknown"])
	}
}

func TestFilterByDisplayCategories(t *testing.T) {
	m := fiveRawMapping()
	calls := tenCalls()

	interested := FilterByDisplayCategories(calls, []string{"Interested"}, m)
	if len(interested) != 4 {
		t.Fatalf("Interested filter kept %d, want 4", len(interested))
	}

	// Unmapped selected name is used as a raw label directly.
	calls = append(calls, Call{ID: 11, ResponseCategory: "VOICEMAIL"})
	vm := FilterByDisplayCategories(calls, []string{"VOICEMAIL"}, m)
	if len(vm) != 1 || vm[0].ID != 11 {
		t.Fatalf("VOICEMAIL filter = %+v", vm)
	}

	// Selecting Unknown matches uncategorized calls too.
	calls = append(calls, Call{ID: 12, ResponseCategory: ""})
	unknown := FilterByDisplayCategories(calls, []string{"Unknown"}, m)
	if len(unknown) != 7 {
		t.Fatalf("Unknown filter kept %d, want 6 mapped + 1 uncategorized", len(unknown))
	}

	// No selection means no filtering.
	if got := FilterByDisplayCategories(calls, nil, m); len(got) != len(calls) {
		t.Fatalf("nil selection must pass everything through")
	}
}

func TestComputeTransferStats(t *testing.T) {
	cases := []struct {
		total, transferred int64
		wantPct            int
	}{
		{0, 0, 0},
		{10, 3, 30},
		{3, 1, 33},
		{3, 2, 67}, // rounded, not truncated
	}
	for _, tc := range cases {
		got := ComputeTransferStats(tc.total, tc.transferred)
		if got.TransferPercentage != tc.wantPct {
			t.Errorf("ComputeTransferStats(%d, %d) pct = %d, want %d",
				tc.total, tc.transferred, got.TransferPercentage, tc.wantPct)
		}
	}
}

func TestServiceCounts_ScopedReads(t *testing.T) {
	repo := NewMemoryRepo()
	repo.Owners[1] = 7
	repo.Calls = tenCalls()
	for i := range repo.Calls {
		repo.Calls[i].AssociationID = 1
	}

	cat := catalog.NewMemoryRepo()
	cat.Categories = fiveRawCatalog()

	svc := NewService(repo, cat, fiveRawMapping(), nil)

	owner := auth.Identity{UserID: 1, ClientID: 7, Role: rbac.RoleClient}
	counts, err := svc.Counts(context.Background(), owner, 1, false)
	if err != nil {
		t.Fatalf("Counts: %v", err)
	}
	sum := 0
	for _, c := range counts {
		sum += c.Count
	}
	if sum != 10 {
		t.Fatalf("owner sees sum %d, want 10", sum)
	}

	// A different client sees zero-count buckets only.
	stranger := auth.Identity{UserID: 2, ClientID: 9, Role: rbac.RoleClient}
	counts, err = svc.Counts(context.Background(), stranger, 1, false)
	if err != nil {
		t.Fatalf("Counts: %v", err)
	}
	for _, c := range counts {
		if c.Count != 0 {
			t.Fatalf("stranger must not see counts: %+v", counts)
		}
	}
}
