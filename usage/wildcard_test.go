package usage

import "testing"

func TestWildcardMatch(t *testing.T) {
	cases := []struct {
		pattern string
		value   string
		want    bool
	}{
		{"*", "anything", true},
		{"*", "", true},
		{"tavily.search", "tavily.search", true},
		{"tavily.search", "tavily.extract", false},
		{"tavily.*", "tavily.search", true},
		{"tavily.*", "tavilyx.search", false},
		{"*.search", "tavily.search", true},
		{"*.search", "tavily.extract", false},
		{"openai-*.*", "openai-search.search", true},
		{"openai-*.*", "openai.search", false},
		{"a*b*c", "axxbyyc", true},
		{"a*b*c", "axxbyy", false},
		{"gpt-4*", "gpt-4o-mini", true},
		{"gpt-4*", "gpt-3.5", false},
		{"", "", true},
		{"", "x", false},
	}
	for _, tc := range cases {
		if got := WildcardMatch(tc.pattern, tc.value); got != tc.want {
			t.Errorf("WildcardMatch(%q, %q) = %v, want %v", tc.pattern, tc.value, got, tc.want)
		}
	}
}
