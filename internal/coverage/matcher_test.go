package coverage

import (
	"reflect"
	"testing"
)

func TestSuffixMatcherVariants(t *testing.T) {
	m := DefaultMatcher()
	tests := []struct {
		keyword string
		want    []string
	}{
		{"cut", []string{"cuting", "cuts"}},
		{"clamps", []string{"clamp", "clampsing", "clampss"}},
		{"sutured", []string{"sutur", "sutureding", "sutureds"}},
		{"king", []string{"kinging", "kings"}},
		{"sterile field", nil},
		{"", nil},
	}
	for _, tt := range tests {
		if got := m.Variants(tt.keyword); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("Variants(%q) = %v, want %v", tt.keyword, got, tt.want)
		}
	}
}

func TestTokenize(t *testing.T) {
	got := tokenize("  First, I make the INCISION... carefully!  ")
	want := []string{"first", "i", "make", "the", "incision", "carefully"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("tokenize = %v, want %v", got, want)
	}
}

func TestTokenSetPhrase(t *testing.T) {
	ts := newTokenSet("Maintain the sterile field at all times.")
	if !ts.has("sterile field") {
		t.Error("phrase keyword not found")
	}
	if ts.has("field sterile") {
		t.Error("phrase matched out of order")
	}
	if !ts.has("Times") {
		t.Error("single keyword not found")
	}
}

func TestStatusAndSummary(t *testing.T) {
	th := DefaultThresholds()
	for score, want := range map[float64]Status{0: NotDiscussed, 19.9: NotDiscussed, 20: BrieflyDiscussed, 59: BrieflyDiscussed, 60: ThoroughlyCovered, 100: ThoroughlyCovered} {
		if got := th.StatusFor(score); got != want {
			t.Errorf("StatusFor(%v) = %q, want %q", score, got, want)
		}
	}

	topics := []Topic{
		{ID: "a", IsRequired: true, CoverageScore: 70, Status: ThoroughlyCovered},
		{ID: "b", IsRequired: true, CoverageScore: 30, Status: BrieflyDiscussed},
		{ID: "c", CoverageScore: 0, Status: NotDiscussed},
	}
	s := Summary(topics)
	want := Stats{Total: 3, Required: 2, ThoroughlyCovered: 1, BrieflyDiscussed: 1, NotDiscussed: 1, RequiredRemaining: 1, AverageCoverage: 100.0 / 3}
	if s != want {
		t.Errorf("Summary = %+v, want %+v", s, want)
	}
	if u := Uncovered(topics); len(u) != 1 || u[0].ID != "b" {
		t.Errorf("Uncovered = %+v", u)
	}
}
