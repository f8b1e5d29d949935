package crf

import (
	"slices"
	"strings"
	"testing"
)

func recordedKeys(s Sample) []string {
	var keys []string
	var tpl Templater
	tpl.Extract(s, func(key string) (int, bool) {
		keys = append(keys, key)
		return 0, false
	})
	return keys
}

func TestTemplaterKeys(t *testing.T) {
	s, err := ParseSample("日本語")
	if err != nil {
		t.Fatal(err)
	}
	keys := recordedKeys(s)
	// 24 unigram keys per position, two bigram keys per position after the first.
	if len(keys) != 3*24+2*2 {
		t.Fatalf("recorded %d keys, want 76", len(keys))
	}

	wantFirst := []string{
		"UаS[-2]", "UбC[-2]", "UвS[-2]S[-1]", "UгC[-2]C[-1]", "UдS[-2]S[-1]日", "UеC[-2]C[-1]K",
		"UжS[-1]", "UзC[-1]", "UиS[-1]日", "UйC[-1]K", "UкS[-1]日本", "UлC[-1]KK",
		"Uм日", "UнK", "Uо日本", "UпKK", "Uр日本語", "UсKKK",
		"Uт本", "UуK", "Uф本語", "UхKK",
		"Uц語", "UчK",
	}
	if !slices.Equal(keys[:24], wantFirst) {
		t.Errorf("position 0 keys:\n got %q\nwant %q", keys[:24], wantFirst)
	}

	for _, want := range []string{"B", "B1KKK", "B1KKC[1]", "Uк本語S[1]", "Uр語S[1]S[2]", "UчC[2]"} {
		if !slices.Contains(keys, want) {
			t.Errorf("missing key %q", want)
		}
	}
}

func TestTemplaterResolves(t *testing.T) {
	s, err := ParseSample("日本")
	if err != nil {
		t.Fatal(err)
	}
	known := map[string]int{"Uм日": 0, "Uм本": 8, "B": 16, "B1KKC[1]": 80}
	var tpl Templater
	uni, bi := tpl.Extract(s, func(key string) (int, bool) {
		id, ok := known[key]
		return id, ok
	})
	if len(uni) != 2 || len(bi) != 2 {
		t.Fatalf("lengths %d, %d", len(uni), len(bi))
	}
	if !slices.Equal(uni[0], []int{0}) || !slices.Equal(uni[1], []int{8}) {
		t.Errorf("unigrams = %v", uni)
	}
	if len(bi[0]) != 0 || !slices.Equal(bi[1], []int{16, 80}) {
		t.Errorf("bigrams = %v", bi)
	}
}

func TestBuildFeatureIndexThreshold(t *testing.T) {
	// "Uбh" (class two positions back) fires len-2 times per sample.
	samples := []Sample{
		mustParse(t, strings.Repeat("あ", 1002)),
		mustParse(t, strings.Repeat("カ", 1001)),
	}
	c := NewCounter()
	for _, s := range samples {
		c.Add(s)
	}
	if c.Count("Uбh") != 1000 || c.Count("Uбk") != 999 {
		t.Fatalf("counts: Uбh=%d Uбk=%d", c.Count("Uбh"), c.Count("Uбk"))
	}

	idx := c.Build(DefaultMinFeatureCount)
	if _, ok := idx.Lookup("Uбh"); !ok {
		t.Error("Uбh should survive with 1000 occurrences")
	}
	if _, ok := idx.Lookup("Uбk"); ok {
		t.Error("Uбk should be pruned with 999 occurrences")
	}

	total := 0
	for _, key := range idx.Keys() {
		if c.Count(key) < DefaultMinFeatureCount {
			t.Errorf("key %q kept with count %d", key, c.Count(key))
		}
		total += blockWidth(key)
	}
	if total != idx.NumFeatures() {
		t.Errorf("NumFeatures = %d, sum of widths %d", idx.NumFeatures(), total)
	}
	if base, ok := idx.Lookup("B"); !ok {
		t.Error("bigram marker B should survive")
	} else if next := base + 64; next > idx.NumFeatures() {
		t.Errorf("B block [%d,%d) exceeds %d", base, next, idx.NumFeatures())
	}
}

func TestBuildFeatureIndexDeterministic(t *testing.T) {
	samples := []Sample{mustParse(t, "今日 は 晴れ"), mustParse(t, "明日 は 雨")}
	a := BuildFeatureIndex(samples, 1)
	b := BuildFeatureIndex(samples, 1)
	if !slices.Equal(a.Keys(), b.Keys()) {
		t.Fatal("key order differs between builds")
	}
	if !slices.IsSorted(a.Keys()) {
		t.Error("blocks should be assigned in key order")
	}
	next := 0
	for _, key := range a.Keys() {
		base, _ := a.Lookup(key)
		if base != next {
			t.Fatalf("%q at %d, want %d", key, base, next)
		}
		next += blockWidth(key)
	}
	if next != a.NumFeatures() {
		t.Errorf("NumFeatures = %d, want %d", a.NumFeatures(), next)
	}
}

func TestNewFeatureIndex(t *testing.T) {
	idx, err := NewFeatureIndex(map[string]int{"Uа日": 0, "B": 8, "UбK": 72})
	if err != nil {
		t.Fatal(err)
	}
	if idx.NumFeatures() != 80 {
		t.Errorf("NumFeatures = %d, want 80", idx.NumFeatures())
	}
	if _, err := NewFeatureIndex(map[string]int{"": 0}); err == nil {
		t.Error("expected error for empty key")
	}
}
