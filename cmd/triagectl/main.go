// triagectl sends a ticket to a running triage service and prints the
// decision. The description is taken from the arguments, or from stdin
// when no arguments are given.
package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/spf13/pflag"

	"ticket-triage/internal/dto"
	"ticket-triage/internal/models"
)

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdin io.Reader, stdout io.Writer) error {
	var (
		server  string
		timeout time.Duration
		asJSON  bool
	)

	flagSet := pflag.NewFlagSet("triagectl", pflag.ContinueOnError)
	flagSet.StringVarP(&server, "server", "s", envOr("TRIAGE_SERVER", "http://localhost:8080"), "triage service base URL")
	flagSet.DurationVar(&timeout, "timeout", 2*time.Minute, "request timeout")
	flagSet.BoolVar(&asJSON, "json", false, "print the raw JSON response")

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	description := strings.Join(flagSet.Args(), " ")
	if description == "" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return fmt.Errorf("failed to read description from stdin: %w", err)
		}
		description = string(data)
	}

	payload := dto.TriageRequest{Description: &description}
	agent := fiber.Post(strings.TrimRight(server, "/") + "/api/v1/triage").
		JSON(payload).
		Timeout(timeout)
	if err := agent.Parse(); err != nil {
		return fmt.Errorf("invalid server URL %q: %w", server, err)
	}

	status, body, errs := agent.Bytes()
	if len(errs) > 0 {
		return fmt.Errorf("request failed: %w", errors.Join(errs...))
	}

	if asJSON {
		var out bytes.Buffer
		if err := json.Indent(&out, body, "", "  "); err != nil {
			return err
		}
		out.WriteByte('\n')
		_, err := stdout.Write(out.Bytes())
		return err
	}
	return render(stdout, status, body)
}

// render prints a triage response for a terminal.
func render(w io.Writer, status int, body []byte) error {
	switch status {
	case fiber.StatusOK, fiber.StatusBadRequest:
	default:
		var e dto.ErrorResponse
		if err := json.Unmarshal(body, &e); err != nil || e.Error == "" {
			return fmt.Errorf("server returned %d: %s", status, strings.TrimSpace(string(body)))
		}
		return fmt.Errorf("server returned %d: %s", status, e.Error)
	}

	var result models.TriageResult
	if err := json.Unmarshal(body, &result); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	if result.Error != "" {
		fmt.Fprintf(w, "Error:       %s\n", result.Error)
		fmt.Fprintf(w, "Next action: %s\n", result.NextAction)
		return nil
	}

	fmt.Fprintf(w, "Summary:     %s\n", deref(result.Summary))
	fmt.Fprintf(w, "Category:    %s\n", deref(result.Category))
	if result.Severity != nil {
		fmt.Fprintf(w, "Severity:    %s\n", *result.Severity)
	}
	fmt.Fprintf(w, "Known issue: %t\n", result.KnownIssue)
	fmt.Fprintf(w, "Next action: %s\n", result.NextAction)

	if len(result.KBMatches) > 0 {
		fmt.Fprintln(w, "KB matches:")
		for i, m := range result.KBMatches {
			fmt.Fprintf(w, "  %d. %s (%.3f)\n", i+1, m.Title, m.Score)
		}
	}
	return nil
}

func deref(s *string) string {
	if s == nil {
		return "-"
	}
	return *s
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
