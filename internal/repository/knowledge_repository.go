package repository

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/tidwall/jsonc"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"ticket-triage/internal/models"
)

// ErrInvalidRecord marks a knowledge-base file that contains a bad record.
var ErrInvalidRecord = errors.New("invalid knowledge base record")

// KnowledgeRepository holds the knowledge base loaded at process start.
// It is read-only after construction.
type KnowledgeRepository struct {
	records []*models.KnowledgeBase
	source  string
	logger  *zap.Logger
}

// NewKnowledgeRepository wraps records that are already in memory.
func NewKnowledgeRepository(records []*models.KnowledgeBase, logger *zap.Logger) (*KnowledgeRepository, error) {
	if err := validate(records); err != nil {
		return nil, err
	}
	for i, r := range records {
		r.Freeze(i)
	}
	return &KnowledgeRepository{records: records, source: "memory", logger: logger}, nil
}

// LoadKnowledgeRepository reads a knowledge-base file. JSON, JSON with
// comments (.jsonc) and YAML (.yaml, .yml) are accepted. Any invalid
// record fails the whole load.
func LoadKnowledgeRepository(path string, logger *zap.Logger) (*KnowledgeRepository, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read knowledge base %s: %w", path, err)
	}

	records, err := ParseKnowledgeBase(data, filepath.Ext(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	repo, err := NewKnowledgeRepository(records, logger)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	repo.source = path

	logger.Info("Knowledge base loaded",
		zap.String("path", path),
		zap.Int("records", len(records)),
	)

	return repo, nil
}

// ParseKnowledgeBase decodes a knowledge-base document. ext selects the
// format and defaults to JSON.
func ParseKnowledgeBase(data []byte, ext string) ([]*models.KnowledgeBase, error) {
	var records []*models.KnowledgeBase

	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		if err := yaml.NewDecoder(bytes.NewReader(data)).Decode(&records); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("failed to parse knowledge base yaml: %w", err)
		}
	default:
		if err := json.Unmarshal(jsonc.ToJSON(data), &records); err != nil {
			return nil, fmt.Errorf("failed to parse knowledge base json: %w", err)
		}
	}

	if records == nil {
		records = []*models.KnowledgeBase{}
	}
	return records, nil
}

func validate(records []*models.KnowledgeBase) error {
	for i, r := range records {
		if r == nil {
			return fmt.Errorf("%w: entry %d is null", ErrInvalidRecord, i)
		}
		if strings.TrimSpace(r.Title) == "" {
			return fmt.Errorf("%w: entry %d has an empty title", ErrInvalidRecord, i)
		}
	}
	return nil
}

// List returns the records in file order. Callers must not modify them.
func (r *KnowledgeRepository) List() []*models.KnowledgeBase {
	return r.records
}

// Count returns the number of records.
func (r *KnowledgeRepository) Count() int {
	return len(r.records)
}

// Source returns the file the records were loaded from.
func (r *KnowledgeRepository) Source() string {
	return r.source
}

// SearchableTexts returns the embedding input for every record, in order.
func (r *KnowledgeRepository) SearchableTexts() []string {
	texts := make([]string, len(r.records))
	for i, rec := range r.records {
		texts[i] = rec.SearchableText()
	}
	return texts
}
