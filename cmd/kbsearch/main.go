// kbsearch loads a knowledge base and runs similarity queries against it
// without starting the service or calling a model. It is useful for tuning
// the known-issue threshold and for checking a new knowledge-base file.
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"ticket-triage/internal/embedding"
	"ticket-triage/internal/repository"
	"ticket-triage/internal/service"
	"ticket-triage/pkg/config"
	"ticket-triage/pkg/logger"
)

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdin, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout io.Writer) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	flagSet := pflag.NewFlagSet("kbsearch", pflag.ContinueOnError)
	flagSet.StringVar(&cfg.Triage.KBPath, "kb", cfg.Triage.KBPath, "knowledge base file (.json, .jsonc, .yaml)")
	flagSet.StringVar(&cfg.Embedding.Strategy, "strategy", cfg.Embedding.Strategy, "embedding strategy: auto, dense or sparse")
	flagSet.IntVarP(&cfg.Triage.TopK, "top-k", "k", cfg.Triage.TopK, "results per query")
	flagSet.Float64Var(&cfg.Triage.KnownIssueThreshold, "threshold", cfg.Triage.KnownIssueThreshold, "known-issue threshold (exclusive)")
	flagSet.StringVar(&cfg.Logger.Level, "log-level", "warn", "log level")
	check := flagSet.Bool("check", false, "only validate the knowledge base and exit")

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	log, err := logger.New(cfg.Logger)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	knowledgeRepo, err := repository.LoadKnowledgeRepository(cfg.Triage.KBPath, log)
	if err != nil {
		return err
	}
	if *check {
		fmt.Fprintf(stdout, "%s: %d records OK\n", knowledgeRepo.Source(), knowledgeRepo.Count())
		return nil
	}

	provider, err := embedding.Select(cfg.Embedding, knowledgeRepo.SearchableTexts(), log)
	if err != nil {
		return err
	}
	defer provider.Close()

	searchService, err := service.NewSearchService(ctx, knowledgeRepo, provider, log)
	if err != nil {
		return err
	}
	policy := service.NewPolicy(&cfg.Triage)

	queries := flagSet.Args()
	if len(queries) > 0 {
		return search(ctx, stdout, searchService, policy, strings.Join(queries, " "), log)
	}

	// One query per line.
	scanner := bufio.NewScanner(stdin)
	for scanner.Scan() {
		query := strings.TrimSpace(scanner.Text())
		if query == "" {
			continue
		}
		if err := search(ctx, stdout, searchService, policy, query, log); err != nil {
			return err
		}
	}
	return scanner.Err()
}

func search(ctx context.Context, w io.Writer, s *service.SearchService, policy service.Policy, query string, log *zap.Logger) error {
	results, err := s.Search(ctx, query, policy.TopK)
	if err != nil {
		return err
	}
	log.Debug("Query finished", zap.String("query", query), zap.Int("results", len(results)))

	fmt.Fprintf(w, "> %s\n", query)
	for i, r := range results {
		marker := " "
		if i == 0 && r.Score > policy.KnownIssueThreshold {
			marker = "*"
		}
		fmt.Fprintf(w, "%s %.4f  %s\n", marker, r.Score, r.Title)
	}
	if len(results) == 0 {
		fmt.Fprintln(w, "  (no results)")
	}
	return nil
}
