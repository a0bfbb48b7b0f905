package phonetic_test

import (
	"testing"

	"github.com/MrWong99/voiceorder/internal/transcript/phonetic"
)

func TestMatcher_SoundAlike(t *testing.T) {
	t.Parallel()

	m := phonetic.New()
	vs := phonetic.Prepare([]string{"shake", "sprite", "samosa"})

	variant, score, matched := m.Match("shaik", vs)
	if !matched {
		t.Fatalf("Match(%q): matched=false, want true", "shaik")
	}
	if variant != "shake" {
		t.Errorf("Match(%q): variant=%q, want %q", "shaik", variant, "shake")
	}
	if score < m.Threshold() {
		t.Errorf("Match(%q): score=%f below threshold %f", "shaik", score, m.Threshold())
	}
}

func TestMatcher_NoMatch(t *testing.T) {
	t.Parallel()

	m := phonetic.New()
	vs := phonetic.Prepare([]string{"dal", "rice"})

	variant, score, matched := m.Match("zzxq", vs)
	if matched {
		t.Fatalf("Match(%q): matched=true (%q), want false", "zzxq", variant)
	}
	if variant != "" || score != 0 {
		t.Errorf("unmatched result should be empty: variant=%q score=%f", variant, score)
	}
}

func TestMatcher_EmptyInputs(t *testing.T) {
	t.Parallel()

	m := phonetic.New()
	if _, _, ok := m.Match("", phonetic.Prepare([]string{"dal"})); ok {
		t.Error("empty phrase matched")
	}
	if _, _, ok := m.Match("dal", nil); ok {
		t.Error("nil variants matched")
	}
	if _, _, ok := m.Match("dal", phonetic.Prepare([]string{"", "  "})); ok {
		t.Error("blank variants matched")
	}
}

func TestMatcher_Threshold(t *testing.T) {
	t.Parallel()

	strict := phonetic.New(phonetic.WithThreshold(0.99))
	vs := phonetic.Prepare([]string{"shake"})
	if _, _, ok := strict.Match("shaik", vs); ok {
		t.Error("strict matcher accepted a non-identical variant")
	}
	if _, _, ok := strict.Match("shake", vs); !ok {
		t.Error("strict matcher rejected an identical variant")
	}
}

func TestPrepare_SkipsBlank(t *testing.T) {
	t.Parallel()

	if n := phonetic.Prepare([]string{"a", "", " ", "Dal"}).Len(); n != 2 {
		t.Errorf("Len() = %d, want 2", n)
	}
}

func TestCodes(t *testing.T) {
	t.Parallel()

	if len(phonetic.Codes("biryani")) == 0 {
		t.Error("Codes(biryani) returned no codes")
	}
	if len(phonetic.Codes("")) != 0 {
		t.Error("Codes(\"\") returned codes")
	}
}
