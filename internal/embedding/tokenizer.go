package embedding

import "strings"

// BERT special token IDs shared by the bundled MiniLM vocabulary.
const (
	padTokenID int64 = 0
	clsTokenID int64 = 101
	sepTokenID int64 = 102

	defaultMaxTokens = 256
)

// Tokenizer produces token IDs for BERT-style models (input_ids, attention_mask, token_type_ids).
// All three slices have length maxTokens; unused positions are padding.
type Tokenizer interface {
	Tokenize(text string, maxTokens int) (inputIDs, attentionMask, tokenTypeIDs []int64)
}

// SimpleTokenizer is a word-split tokenizer with hash-based token IDs. It is
// used when no vocab.txt is configured.
type SimpleTokenizer struct{}

// Tokenize splits text into words and produces padded token IDs up to maxTokens.
func (t *SimpleTokenizer) Tokenize(text string, maxTokens int) (inputIDs, attentionMask, tokenTypeIDs []int64) {
	words := SplitWords(text)
	ids := make([]int64, 0, len(words))
	for _, word := range words {
		ids = append(ids, int64(HashString(word)%30000))
	}
	return encode(ids, maxTokens, bertSpecials)
}

type specialIDs struct {
	cls, sep, pad int64
}

var bertSpecials = specialIDs{cls: clsTokenID, sep: sepTokenID, pad: padTokenID}

// encode frames ids as [CLS] ids [SEP], truncating and padding to maxTokens.
func encode(ids []int64, maxTokens int, sp specialIDs) (inputIDs, attentionMask, tokenTypeIDs []int64) {
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}
	inputIDs = make([]int64, maxTokens)
	attentionMask = make([]int64, maxTokens)
	tokenTypeIDs = make([]int64, maxTokens)
	if sp.pad != 0 {
		for i := range inputIDs {
			inputIDs[i] = sp.pad
		}
	}

	inputIDs[0] = sp.cls
	attentionMask[0] = 1
	pos := 1
	for _, id := range ids {
		if pos >= maxTokens-1 {
			break
		}
		inputIDs[pos] = id
		attentionMask[pos] = 1
		pos++
	}
	if pos < maxTokens {
		inputIDs[pos] = sp.sep
		attentionMask[pos] = 1
	}
	return inputIDs, attentionMask, tokenTypeIDs
}

// SplitWords splits text on whitespace and returns non-empty words.
func SplitWords(text string) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}
	return words
}

// HashString returns a deterministic non-negative hash of s.
func HashString(s string) int {
	h := 0
	for _, c := range s {
		h = 31*h + int(c)
	}
	if h < 0 {
		h = -h
	}
	return h
}
