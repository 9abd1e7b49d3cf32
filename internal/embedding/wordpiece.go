package embedding

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

const (
	unkToken = "[UNK]"
	clsToken = "[CLS]"
	sepToken = "[SEP]"
	padToken = "[PAD]"

	subwordPrefix        = "##"
	maxInputCharsPerWord = 100
)

// WordPieceTokenizer is an uncased BERT tokenizer: basic tokenization
// (cleanup, lowercasing, accent stripping, punctuation and CJK splitting)
// followed by greedy longest-match-first WordPiece.
type WordPieceTokenizer struct {
	vocab    map[string]int64
	unkID    int64
	specials specialIDs
}

// LoadWordPieceTokenizer reads a BERT vocab.txt (one token per line, ID = line number).
func LoadWordPieceTokenizer(path string) (*WordPieceTokenizer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open vocab: %w", err)
	}
	defer f.Close()
	vocab, err := ReadVocab(f)
	if err != nil {
		return nil, fmt.Errorf("read vocab %s: %w", path, err)
	}
	return NewWordPieceTokenizer(vocab)
}

// ReadVocab parses vocab.txt content.
func ReadVocab(r io.Reader) (map[string]int64, error) {
	vocab := make(map[string]int64)
	sc := bufio.NewScanner(r)
	var id int64
	for sc.Scan() {
		tok := strings.TrimRight(sc.Text(), "\r")
		if _, dup := vocab[tok]; !dup {
			vocab[tok] = id
		}
		id++
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return vocab, nil
}

// NewWordPieceTokenizer builds a tokenizer from a token → ID map. The map must
// contain [CLS], [SEP] and [UNK]; [PAD] defaults to 0.
func NewWordPieceTokenizer(vocab map[string]int64) (*WordPieceTokenizer, error) {
	lookup := func(tok string) (int64, error) {
		id, ok := vocab[tok]
		if !ok {
			return 0, fmt.Errorf("vocab is missing %s", tok)
		}
		return id, nil
	}
	cls, err := lookup(clsToken)
	if err != nil {
		return nil, err
	}
	sep, err := lookup(sepToken)
	if err != nil {
		return nil, err
	}
	unk, err := lookup(unkToken)
	if err != nil {
		return nil, err
	}
	pad := vocab[padToken]
	return &WordPieceTokenizer{
		vocab:    vocab,
		unkID:    unk,
		specials: specialIDs{cls: cls, sep: sep, pad: pad},
	}, nil
}

// Tokenize implements Tokenizer.
func (t *WordPieceTokenizer) Tokenize(text string, maxTokens int) (inputIDs, attentionMask, tokenTypeIDs []int64) {
	pieces := t.Tokens(text)
	ids := make([]int64, len(pieces))
	for i, p := range pieces {
		if id, ok := t.vocab[p]; ok {
			ids[i] = id
		} else {
			ids[i] = t.unkID
		}
	}
	return encode(ids, maxTokens, t.specials)
}

// Tokens returns the WordPiece tokens of text without special tokens.
func (t *WordPieceTokenizer) Tokens(text string) []string {
	var out []string
	for _, word := range basicTokenize(text) {
		out = append(out, t.wordPiece(word)...)
	}
	return out
}

func (t *WordPieceTokenizer) wordPiece(word string) []string {
	chars := []rune(word)
	if len(chars) > maxInputCharsPerWord {
		return []string{unkToken}
	}
	var pieces []string
	for start := 0; start < len(chars); {
		end := len(chars)
		match := ""
		for start < end {
			sub := string(chars[start:end])
			if start > 0 {
				sub = subwordPrefix + sub
			}
			if _, ok := t.vocab[sub]; ok {
				match = sub
				break
			}
			end--
		}
		if match == "" {
			return []string{unkToken}
		}
		pieces = append(pieces, match)
		start = end
	}
	return pieces
}

// basicTokenize lowercases, strips accents and splits on whitespace,
// punctuation and CJK ideographs.
func basicTokenize(text string) []string {
	var b strings.Builder
	for _, r := range text {
		switch {
		case r == 0 || r == unicode.ReplacementChar || isControl(r):
			continue
		case isCJK(r):
			b.WriteRune(' ')
			b.WriteRune(r)
			b.WriteRune(' ')
		case unicode.IsSpace(r):
			b.WriteRune(' ')
		default:
			b.WriteRune(r)
		}
	}

	var words []string
	for _, tok := range strings.Fields(b.String()) {
		tok = stripAccents(strings.ToLower(tok))
		words = append(words, splitPunct(tok)...)
	}
	return words
}

func stripAccents(s string) string {
	var b strings.Builder
	for _, r := range norm.NFD.String(s) {
		if unicode.Is(unicode.Mn, r) {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func splitPunct(s string) []string {
	var out []string
	var cur []rune
	for _, r := range s {
		if isPunct(r) {
			if len(cur) > 0 {
				out = append(out, string(cur))
				cur = cur[:0]
			}
			out = append(out, string(r))
			continue
		}
		cur = append(cur, r)
	}
	if len(cur) > 0 {
		out = append(out, string(cur))
	}
	return out
}

// isPunct treats all non-alphanumeric ASCII as punctuation, like BERT.
func isPunct(r rune) bool {
	if (r >= 33 && r <= 47) || (r >= 58 && r <= 64) || (r >= 91 && r <= 96) || (r >= 123 && r <= 126) {
		return true
	}
	return unicode.IsPunct(r)
}

func isControl(r rune) bool {
	if r == '\t' || r == '\n' || r == '\r' {
		return false
	}
	return unicode.In(r, unicode.Cc, unicode.Cf)
}

func isCJK(r rune) bool {
	return (r >= 0x4E00 && r <= 0x9FFF) ||
		(r >= 0x3400 && r <= 0x4DBF) ||
		(r >= 0x20000 && r <= 0x2A6DF) ||
		(r >= 0x2A700 && r <= 0x2B73F) ||
		(r >= 0x2B740 && r <= 0x2B81F) ||
		(r >= 0x2B820 && r <= 0x2CEAF) ||
		(r >= 0xF900 && r <= 0xFAFF) ||
		(r >= 0x2F800 && r <= 0x2FA1F)
}
