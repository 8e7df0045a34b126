package embedding

import (
	"bufio"
	"fmt"
	"os"
)

// vocab is a WordPiece vocabulary read from vocab.txt, one token per line;
// the 0-based line number is the token ID.
type vocab struct {
	ids  map[string]int64
	size int

	padID int64
	unkID int64
	clsID int64
	sepID int64
}

func loadVocab(path string) (*vocab, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("vocab: %w", err)
	}
	defer f.Close()

	ids := make(map[string]int64, 32000)
	var next int64
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		ids[scanner.Text()] = next
		next++
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("vocab: read %s: %w", path, err)
	}
	if next == 0 {
		return nil, fmt.Errorf("vocab: %s is empty", path)
	}

	v := &vocab{ids: ids, size: int(next)}
	for token, dest := range map[string]*int64{
		"[PAD]": &v.padID,
		"[UNK]": &v.unkID,
		"[CLS]": &v.clsID,
		"[SEP]": &v.sepID,
	} {
		id, ok := ids[token]
		if !ok {
			return nil, fmt.Errorf("vocab: %s is missing special token %s", path, token)
		}
		*dest = id
	}
	return v, nil
}

func (v *vocab) lookup(token string) int64 {
	if id, ok := v.ids[token]; ok {
		return id
	}
	return v.unkID
}

func (v *vocab) has(token string) bool {
	_, ok := v.ids[token]
	return ok
}
