package embedding

import (
	"strings"
	"testing"
)

func TestSimpleTokenizer_Tokenize(t *testing.T) {
	tok := &SimpleTokenizer{}
	ids, attn, types := tok.Tokenize("hello world", 10)
	if len(ids) != 10 || len(attn) != 10 || len(types) != 10 {
		t.Errorf("lengths = %d/%d/%d, want 10", len(ids), len(attn), len(types))
	}
	if ids[0] != 101 {
		t.Errorf("expected CLS 101, got %d", ids[0])
	}
	if ids[3] != 102 {
		t.Errorf("expected SEP 102 after two words, got %d", ids[3])
	}
	if attn[3] != 1 || attn[4] != 0 {
		t.Errorf("attention mask should cover CLS, words and SEP only: %v", attn)
	}
}

func TestSimpleTokenizer_Truncates(t *testing.T) {
	tok := &SimpleTokenizer{}
	ids, attn, _ := tok.Tokenize(strings.Repeat("word ", 50), 8)
	if len(ids) != 8 {
		t.Fatalf("len(ids)=%d", len(ids))
	}
	if ids[7] != 102 {
		t.Errorf("last position should be SEP, got %d", ids[7])
	}
	for i, m := range attn {
		if m != 1 {
			t.Errorf("attention[%d] = %d, want 1 for a full sequence", i, m)
		}
	}
}

func TestSplitWords(t *testing.T) {
	words := SplitWords("  a  b\tc\n ")
	if len(words) != 3 {
		t.Errorf("expected 3 words, got %v", words)
	}
	if SplitWords("") != nil {
		t.Error("empty string should return nil")
	}
}

func TestHashString(t *testing.T) {
	h := HashString("abc")
	if h == 0 {
		t.Error("hash should be non-zero")
	}
	if HashString("abc") != HashString("abc") {
		t.Error("hash should be deterministic")
	}
	if HashString("abc") == HashString("abd") {
		t.Error("different strings should hash differently")
	}
}

const testVocab = `[PAD]
[UNK]
[CLS]
[SEP]
hello
world
un
##aff
##able
,
!
cafe
the
jump
##ing
中
`

func testWordPiece(t *testing.T) *WordPieceTokenizer {
	t.Helper()
	vocab, err := ReadVocab(strings.NewReader(testVocab))
	if err != nil {
		t.Fatal(err)
	}
	tok, err := NewWordPieceTokenizer(vocab)
	if err != nil {
		t.Fatal(err)
	}
	return tok
}

func TestWordPiece_Tokens(t *testing.T) {
	tok := testWordPiece(t)
	tests := []struct {
		in   string
		want []string
	}{
		{"hello world", []string{"hello", "world"}},
		{"Hello, WORLD!", []string{"hello", ",", "world", "!"}},
		{"unaffable", []string{"un", "##aff", "##able"}},
		{"jumping", []string{"jump", "##ing"}},
		{"café", []string{"cafe"}},
		{"the xyzzy", []string{"the", "[UNK]"}},
		{"中文", []string{"中", "[UNK]"}},
		{"", nil},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := tok.Tokens(tt.in)
			if strings.Join(got, " ") != strings.Join(tt.want, " ") {
				t.Errorf("Tokens(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestWordPiece_LongWordIsUnknown(t *testing.T) {
	tok := testWordPiece(t)
	got := tok.Tokens(strings.Repeat("a", maxInputCharsPerWord+1))
	if len(got) != 1 || got[0] != unkToken {
		t.Errorf("got %v, want [UNK]", got)
	}
}

func TestWordPiece_Tokenize(t *testing.T) {
	tok := testWordPiece(t)
	ids, attn, types := tok.Tokenize("hello unaffable", 8)
	// [CLS]=2 hello=4 un=6 ##aff=7 ##able=8 [SEP]=3 then [PAD]=0
	want := []int64{2, 4, 6, 7, 8, 3, 0, 0}
	for i := range want {
		if ids[i] != want[i] {
			t.Fatalf("ids = %v, want %v", ids, want)
		}
	}
	wantMask := []int64{1, 1, 1, 1, 1, 1, 0, 0}
	for i := range wantMask {
		if attn[i] != wantMask[i] {
			t.Fatalf("mask = %v, want %v", attn, wantMask)
		}
	}
	for _, v := range types {
		if v != 0 {
			t.Fatalf("token types should be zero: %v", types)
		}
	}
}

func TestNewWordPieceTokenizer_MissingSpecials(t *testing.T) {
	vocab, err := ReadVocab(strings.NewReader("hello\nworld\n"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := NewWordPieceTokenizer(vocab); err == nil {
		t.Error("expected error for vocab without [CLS]")
	}
}
