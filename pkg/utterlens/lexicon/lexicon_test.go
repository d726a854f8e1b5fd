package lexicon

import (
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestExpandKeyFirst(t *testing.T) {
	lex := Default()
	got := lex.Expand("生理痛")
	want := []string{"生理痛", "月経困難症", "痛み", "鎮痛", "ロキソニン", "イブプロフェン", "下腹部痛"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Expand (-want +got):\n%s", diff)
	}
}

func TestExpandMatchesTermsBothWays(t *testing.T) {
	lex := Default()
	// "ロキソニンの量" contains a term of the 生理痛 group.
	got := lex.Expand("ロキソニンの量")
	if got[0] != "ロキソニンの量" {
		t.Fatalf("keyword not first: %v", got)
	}
	if !contains(got, "生理痛") {
		t.Errorf("expected 生理痛 group, got %v", got)
	}
	// "排卵" is contained in 排卵日 and is itself a key.
	if got := lex.Expand("排卵"); !contains(got, "LH") {
		t.Errorf("expected LH in %v", got)
	}
}

func TestExpandUnknownKeyword(t *testing.T) {
	got := Default().Expand("カフェイン")
	if diff := cmp.Diff([]string{"カフェイン"}, got); diff != "" {
		t.Errorf("unrelated keyword (-want +got):\n%s", diff)
	}
	if got := Default().Expand("  "); got != nil {
		t.Errorf("blank keyword expanded to %v", got)
	}
}

func TestExpandIsIdempotent(t *testing.T) {
	lex := Default()
	for _, kw := range []string{"生理痛", "PMS", "睡眠", "痛", "ホルモン", "妊", "カフェイン"} {
		once := lex.Expand(kw)
		twice := lex.ExpandAll(once)
		if diff := cmp.Diff(sorted(once), sorted(twice)); diff != "" {
			t.Errorf("Expand(%q) not idempotent (-once +twice):\n%s", kw, diff)
		}
	}
}

func TestExpandDeduplicates(t *testing.T) {
	got := Default().Expand("痛")
	seen := make(map[string]bool)
	for _, term := range got {
		if seen[term] {
			t.Fatalf("duplicate %q in %v", term, got)
		}
		seen[term] = true
	}
}

func TestRelatedExcludesKeyword(t *testing.T) {
	got := Default().Related("PMS")
	if contains(got, "PMS") {
		t.Errorf("Related contains keyword: %v", got)
	}
	if len(got) != 6 {
		t.Errorf("Related(PMS) = %v", got)
	}
}

func TestLoadFromYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lexicon.yaml")
	body := `related:
  - key: カフェイン
    terms: [コーヒー, 緑茶]
topics: [カフェイン]
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	lex, err := LoadFromYAML(path)
	if err != nil {
		t.Fatalf("LoadFromYAML: %v", err)
	}
	if diff := cmp.Diff([]string{"コーヒー", "カフェイン", "緑茶"}, lex.Expand("コーヒー")); diff != "" {
		t.Errorf("Expand after load (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"カフェイン"}, lex.Topics()); diff != "" {
		t.Errorf("Topics (-want +got):\n%s", diff)
	}
	if len(lex.CoOccurrence()) != len(defaultCoOccurrence) {
		t.Errorf("missing section should keep defaults")
	}
}

func TestLoadFromYAMLErrors(t *testing.T) {
	if _, err := LoadFromYAML(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("related: [nope"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFromYAML(path); err == nil {
		t.Error("expected parse error")
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func sorted(in []string) []string {
	out := append([]string(nil), in...)
	sort.Strings(out)
	return out
}
