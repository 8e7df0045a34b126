package embedding

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// maxSeqLen matches the sequence length all-MiniLM-L6-v2 was trained with.
const maxSeqLen = 256

// maxWordRunes is the longest word WordPiece will try to split.
const maxWordRunes = 100

// batch is a tokenized set of texts laid out flat as [size * seqLen].
type batch struct {
	inputIDs      []int64
	attentionMask []int64
	tokenTypeIDs  []int64
	size          int64
	seqLen        int64
}

// tokenizer is an uncased BERT WordPiece tokenizer.
type tokenizer struct {
	vocab *vocab
}

func newTokenizer(vocabPath string) (*tokenizer, error) {
	v, err := loadVocab(vocabPath)
	if err != nil {
		return nil, err
	}
	return &tokenizer{vocab: v}, nil
}

// encode returns the IDs of [CLS] tokens... [SEP], truncated to maxSeqLen.
func (t *tokenizer) encode(text string) []int64 {
	pieces := t.wordpiece(basicTokenize(text))
	if len(pieces) > maxSeqLen-2 {
		pieces = pieces[:maxSeqLen-2]
	}

	ids := make([]int64, 0, len(pieces)+2)
	ids = append(ids, t.vocab.clsID)
	for _, p := range pieces {
		ids = append(ids, t.vocab.lookup(p))
	}
	return append(ids, t.vocab.sepID)
}

// encodeBatch pads every sequence to the longest one in texts.
func (t *tokenizer) encodeBatch(texts []string) batch {
	if len(texts) == 0 {
		return batch{}
	}

	seqs := make([][]int64, len(texts))
	var seqLen int
	for i, text := range texts {
		seqs[i] = t.encode(text)
		if len(seqs[i]) > seqLen {
			seqLen = len(seqs[i])
		}
	}

	total := len(texts) * seqLen
	b := batch{
		inputIDs:      make([]int64, total),
		attentionMask: make([]int64, total),
		tokenTypeIDs:  make([]int64, total),
		size:          int64(len(texts)),
		seqLen:        int64(seqLen),
	}
	for i, ids := range seqs {
		off := i * seqLen
		for j, id := range ids {
			b.inputIDs[off+j] = id
			b.attentionMask[off+j] = 1
		}
		for j := len(ids); j < seqLen; j++ {
			b.inputIDs[off+j] = t.vocab.padID
		}
	}
	return b
}

// basicTokenize cleans, lowercases and strips accents, then splits on
// whitespace and punctuation. CJK ideographs become single tokens.
func basicTokenize(text string) []string {
	var spaced strings.Builder
	spaced.Grow(len(text))
	for _, r := range text {
		switch {
		case r == 0 || r == unicode.ReplacementChar || isControl(r):
		case isWhitespace(r):
			spaced.WriteByte(' ')
		case isCJK(r):
			spaced.WriteByte(' ')
			spaced.WriteRune(r)
			spaced.WriteByte(' ')
		default:
			spaced.WriteRune(r)
		}
	}

	cleaned := stripAccents(strings.ToLower(spaced.String()))

	var tokens []string
	for _, word := range strings.Fields(cleaned) {
		start := 0
		for i, r := range word {
			if !isPunctuation(r) {
				continue
			}
			if i > start {
				tokens = append(tokens, word[start:i])
			}
			tokens = append(tokens, string(r))
			start = i + len(string(r))
		}
		if start < len(word) {
			tokens = append(tokens, word[start:])
		}
	}
	return tokens
}

func (t *tokenizer) wordpiece(words []string) []string {
	var out []string
	for _, w := range words {
		out = append(out, t.splitWord(w)...)
	}
	return out
}

// splitWord greedily matches the longest vocabulary prefix, continuing
// with "##" suffix pieces. Unsplittable words become [UNK].
func (t *tokenizer) splitWord(word string) []string {
	runes := []rune(word)
	if len(runes) > maxWordRunes {
		return []string{"[UNK]"}
	}

	var pieces []string
	for start := 0; start < len(runes); {
		end := len(runes)
		var piece string
		for ; end > start; end-- {
			candidate := string(runes[start:end])
			if start > 0 {
				candidate = "##" + candidate
			}
			if t.vocab.has(candidate) {
				piece = candidate
				break
			}
		}
		if piece == "" {
			return []string{"[UNK]"}
		}
		pieces = append(pieces, piece)
		start = end
	}
	return pieces
}

func stripAccents(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range norm.NFD.String(text) {
		if !unicode.Is(unicode.Mn, r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func isWhitespace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n' || r == '\r' || unicode.Is(unicode.Zs, r)
}

func isControl(r rune) bool {
	if r == '\t' || r == '\n' || r == '\r' {
		return false
	}
	return unicode.IsControl(r)
}

// isPunctuation follows BERT: all non-alphanumeric ASCII symbols count,
// plus the Unicode punctuation classes.
func isPunctuation(r rune) bool {
	if (r >= 33 && r <= 47) || (r >= 58 && r <= 64) ||
		(r >= 91 && r <= 96) || (r >= 123 && r <= 126) {
		return true
	}
	return unicode.IsPunct(r)
}

func isCJK(r rune) bool {
	return (r >= 0x4E00 && r <= 0x9FFF) ||
		(r >= 0x3400 && r <= 0x4DBF) ||
		(r >= 0x20000 && r <= 0x2A6DF) ||
		(r >= 0x2A700 && r <= 0x2CEAF) ||
		(r >= 0xF900 && r <= 0xFAFF) ||
		(r >= 0x2F800 && r <= 0x2FA1F)
}
