package segment_test

import (
	"slices"
	"testing"

	"github.com/MrWong99/voiceorder/internal/transcript/segment"
)

type wantPhrase struct {
	qty  int
	name string
	mods []string
}

func check(t *testing.T, got []segment.ItemPhrase, want []wantPhrase) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("got %d phrases %+v, want %d", len(got), got, len(want))
	}
	for i, w := range want {
		g := got[i]
		if g.Quantity != w.qty || g.NameCandidate != w.name {
			t.Errorf("phrase[%d] = {qty %d, name %q}, want {qty %d, name %q}", i, g.Quantity, g.NameCandidate, w.qty, w.name)
		}
		if !slices.Equal(g.Modifications, w.mods) {
			t.Errorf("phrase[%d].Modifications = %q, want %q", i, g.Modifications, w.mods)
		}
	}
}

func TestSegment_Table(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want int
		ok   bool
	}{
		{"2 rice and 1 dal for table 5", 5, true},
		{"table 3 2 naan", 3, true},
		{"at table 12 1 chai", 12, true},
		{"table number 7 1 dosa", 7, true},
		{"table no. 4 1 dosa", 4, true},
		{"table for 2 1 dosa", 2, true},
		{"table5 1 dosa", 5, true},
		{"2 rice and 1 dal", 0, false},
		{"table and 2 rice", 0, false},
		{"table 99999999999999999999999 1 dosa", 0, false},
	}
	for _, tt := range tests {
		table, _ := segment.Segment(tt.in, tt.in, nil)
		if (table != nil) != tt.ok {
			t.Errorf("Segment(%q): table=%v, want ok=%v", tt.in, table, tt.ok)
			continue
		}
		if table != nil && *table != tt.want {
			t.Errorf("Segment(%q): table=%d, want %d", tt.in, *table, tt.want)
		}
	}
}

func TestSegment_Phrases(t *testing.T) {
	t.Parallel()

	_, phrases := segment.Segment("", "2 rice and 1 dal for table 5", nil)
	check(t, phrases, []wantPhrase{{2, "rice", nil}, {1, "dal", nil}})
}

func TestSegment_TrailingQuantity(t *testing.T) {
	t.Parallel()

	_, phrases := segment.Segment("", "naan 3, lassi 2. samosa", nil)
	check(t, phrases, []wantPhrase{{3, "naan", nil}, {2, "lassi", nil}, {1, "samosa", nil}})
}

func TestSegment_LeadingVerb(t *testing.T) {
	t.Parallel()

	_, phrases := segment.Segment("", "bring 2 masala dosa", nil)
	check(t, phrases, []wantPhrase{{2, "masala dosa", nil}})
}

func TestSegment_DropsEmptyAndBareNumbers(t *testing.T) {
	t.Parallel()

	_, phrases := segment.Segment("", " , and . 4 and  , dal ", nil)
	check(t, phrases, []wantPhrase{{1, "dal", nil}})
}

func TestSegment_Empty(t *testing.T) {
	t.Parallel()

	table, phrases := segment.Segment("", "", nil)
	if table != nil || len(phrases) != 0 {
		t.Errorf("Segment(\"\") = %v, %v; want nil, empty", table, phrases)
	}
}

func TestSegment_ModificationsGoToLastItem(t *testing.T) {
	t.Parallel()

	original := "Two rice no salt and one dal extra ghee, table 5"
	normalized := "2 rice no salt and 1 dal extra ghee, table 5"

	table, phrases := segment.Segment(original, normalized, segment.LastItemScope)
	if table == nil || *table != 5 {
		t.Fatalf("table = %v, want 5", table)
	}
	check(t, phrases, []wantPhrase{
		{2, "rice", nil},
		{1, "dal", []string{"no salt", "extra ghee"}},
	})
	if !slices.Equal(phrases[0].Clauses, []string{"no salt"}) {
		t.Errorf("phrase[0].Clauses = %q, want [no salt]", phrases[0].Clauses)
	}
}

func TestSegment_PhraseScope(t *testing.T) {
	t.Parallel()

	original := "Two rice no salt and one dal extra ghee, table 5"
	normalized := "2 rice no salt and 1 dal extra ghee, table 5"

	_, phrases := segment.Segment(original, normalized, segment.PhraseScope)
	check(t, phrases, []wantPhrase{
		{2, "rice", []string{"no salt"}},
		{1, "dal", []string{"extra ghee"}},
	})
}

func TestSegment_StackedModifiers(t *testing.T) {
	t.Parallel()

	original := "one rice with extra butter and one dal table 2"
	normalized := "1 rice with extra butter and 1 dal table 2"

	_, phrases := segment.Segment(original, normalized, segment.LastItemScope)
	check(t, phrases, []wantPhrase{
		{1, "rice", nil},
		{1, "dal", []string{"with extra butter"}},
	})

	_, phrases = segment.Segment(original, normalized, segment.PhraseScope)
	check(t, phrases, []wantPhrase{
		{1, "rice", []string{"with extra butter"}},
		{1, "dal", nil},
	})
}

func TestSegment_ClauseRemovedFromName(t *testing.T) {
	t.Parallel()

	original := "chiken biryani no onion table 3"
	table, phrases := segment.Segment(original, original, nil)
	if table == nil || *table != 3 {
		t.Fatalf("table = %v, want 3", table)
	}
	check(t, phrases, []wantPhrase{{1, "chiken biryani", []string{"no onion"}}})
}

func TestExtractModifications(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want []string
	}{
		{"", nil},
		{"no onion table 3", []string{"no onion"}},
		{"Paneer with extra cheese, less spicy and no garlic", []string{"with extra cheese", "less spicy", "no garlic"}},
		{"one rice with extra butter and one dal table 2", []string{"with extra butter"}},
		{"naan with no garlic without", []string{"with no garlic"}},
		{"with extra.", nil},
		{"without ice. thanks", []string{"without ice"}},
		{"table no 5 please", nil},
		{"casino onion", nil},
		{"no", nil},
	}
	for _, tt := range tests {
		if got := segment.ExtractModifications(tt.in); !slices.Equal(got, tt.want) {
			t.Errorf("ExtractModifications(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestTokenize(t *testing.T) {
	t.Parallel()

	got := segment.Tokenize("2 chicken table 99999999999999999999999")
	want := []segment.TokenKind{segment.TokenQuantity, segment.TokenWord, segment.TokenTable, segment.TokenWord}
	if len(got) != len(want) {
		t.Fatalf("Tokenize returned %d tokens, want %d", len(got), len(want))
	}
	for i, k := range want {
		if got[i].Kind != k {
			t.Errorf("token[%d] kind = %v, want %v", i, got[i].Kind, k)
		}
	}
	if got[0].Quantity != 2 {
		t.Errorf("token[0].Quantity = %d, want 2", got[0].Quantity)
	}
}
