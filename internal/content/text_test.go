package content

import (
	"strings"
	"testing"
	"time"
	"unicode/utf8"
)

func TestCleanText(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"<p>Wow</p>", "Wow"},
		{"a<br/>b", "a b"},
		{"Tom &amp; Jerry", "Tom & Jerry"},
		{"&lt;script&gt;x&lt;/script&gt; y", "x y"},
		{"  lots \n of\t space ", "lots of space"},
		{"1 < 2", "1 2"},
		{"Café", "Café"},
	}
	for _, tc := range tests {
		if got := CleanText(tc.in); got != tc.want {
			t.Fatalf("CleanText(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestTruncate(t *testing.T) {
	if got := Truncate("short text", 50); got != "short text" {
		t.Fatalf("text within budget should be unchanged, got %q", got)
	}
	if got := Truncate("the quick brown fox jumps", 15); got != "the quick..." {
		t.Fatalf("unexpected truncation %q", got)
	}
	if got := Truncate("the quick brown fox", 13); got != "the quick..." {
		t.Fatalf("expected whole word before a boundary, got %q", got)
	}
	if got := Truncate("supercalifragilistic", 10); got != "superca..." {
		t.Fatalf("expected hard cut for a single long word, got %q", got)
	}
	for _, budget := range []int{5, 12, 30, 77} {
		long := strings.Repeat("galaxy ✨ nebula ", 20)
		got := Truncate(long, budget)
		if n := utf8.RuneCountInString(got); n > budget {
			t.Fatalf("budget %d exceeded: %d runes in %q", budget, n, got)
		}
		if !strings.HasSuffix(got, "...") {
			t.Fatalf("expected ellipsis, got %q", got)
		}
	}
}

func TestCacheExpiresEntries(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	cache := NewCache(time.Hour, func() time.Time { return now })
	cache.Set("space_news", Item{Title: "cached"})
	if item, ok := cache.Get("space_news"); !ok || item.Title != "cached" {
		t.Fatalf("expected cache hit, got %+v %v", item, ok)
	}
	now = now.Add(time.Hour)
	if _, ok := cache.Get("space_news"); ok {
		t.Fatal("expected entry to expire")
	}
	if cache.Len() != 0 {
		t.Fatalf("expired entry should be dropped, len=%d", cache.Len())
	}

	disabled := NewCache(0, nil)
	disabled.Set("k", Item{})
	if _, ok := disabled.Get("k"); ok {
		t.Fatal("zero ttl should disable caching")
	}
}
