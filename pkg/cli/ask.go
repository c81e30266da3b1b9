package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-insight/pkg/llm"
	"github.com/ekaya-inc/ekaya-insight/pkg/models"
	"github.com/ekaya-inc/ekaya-insight/pkg/services"
)

// batchAnswer is one line of `ask --file` output.
type batchAnswer struct {
	Question string               `json:"question"`
	Response *models.ChatResponse `json:"response,omitempty"`
	Error    string               `json:"error,omitempty"`
}

func newAskCommand(opts *options) *cobra.Command {
	var (
		file        string
		concurrency int
		timeout     time.Duration
	)

	cmd := &cobra.Command{
		Use:   "ask [question...]",
		Short: "Answer one question and print the response as JSON",
		Long: "Answer a question against the configured dataset and print the chat response as JSON. " +
			"With --file, answer every non-empty line of the file and print one JSON object per line.",
		Example: `  ekaya-insight ask total sales by region
  ekaya-insight ask --file questions.txt --concurrency 4`,
		RunE: func(cmd *cobra.Command, args []string) error {
			question := strings.TrimSpace(strings.Join(args, " "))
			if file == "" && question == "" {
				return fmt.Errorf("a question or --file is required")
			}

			ctx := cmd.Context()
			if timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, timeout)
				defer cancel()
			}

			a, err := newApp(ctx, opts.cfg, opts.logger)
			if err != nil {
				return err
			}
			defer a.Close()

			if file == "" {
				resp, err := a.chat.Ask(ctx, question, nil)
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), resp, true)
			}

			questions, err := readQuestions(file)
			if err != nil {
				return err
			}
			pool := llm.NewWorkerPool(llm.WorkerPoolConfig{MaxConcurrent: concurrency}, opts.logger)
			return askBatch(ctx, a.chat, pool, questions, cmd.OutOrStdout(), opts.logger)
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "read questions from a file, one per line")
	cmd.Flags().IntVar(&concurrency, "concurrency", llm.DefaultWorkerPoolConfig().MaxConcurrent, "questions answered in parallel with --file")
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "overall deadline (0 for none)")
	return cmd
}

// askBatch answers questions through pool and writes JSON lines in input order.
func askBatch(ctx context.Context, chat services.ChatService, pool *llm.WorkerPool, questions []string, out io.Writer, logger *zap.Logger) error {
	items := make([]llm.WorkItem[*models.ChatResponse], len(questions))
	for i, q := range questions {
		items[i] = llm.WorkItem[*models.ChatResponse]{
			ID: q,
			Execute: func(ctx context.Context) (*models.ChatResponse, error) {
				return chat.Ask(ctx, q, nil)
			},
		}
	}

	results := llm.Process(ctx, pool, items, func(completed, total int) {
		logger.Debug("Batch progress", zap.Int("completed", completed), zap.Int("total", total))
	})

	failed := 0
	for _, r := range results {
		answer := batchAnswer{Question: r.ID, Response: r.Result}
		if r.Err != nil {
			answer.Error = r.Err.Error()
			failed++
		}
		if err := writeJSON(out, answer, false); err != nil {
			return err
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d questions failed", failed, len(questions))
	}
	return nil
}

func readQuestions(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open questions file: %w", err)
	}
	defer f.Close()

	var questions []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" && !strings.HasPrefix(line, "#") {
			questions = append(questions, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read questions file: %w", err)
	}
	return questions, nil
}

func writeJSON(w io.Writer, v any, indent bool) error {
	enc := json.NewEncoder(w)
	if indent {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(v)
}
