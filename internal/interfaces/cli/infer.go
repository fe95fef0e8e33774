package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/turtacn/nlp-inference-service/pkg/types/inference"
)

// withTimeout derives the per-command context.
func withTimeout(cmd *cobra.Command, cliCtx *CLIContext) (context.Context, context.CancelFunc) {
	if cliCtx.Timeout > 0 {
		return context.WithTimeout(cmd.Context(), cliCtx.Timeout)
	}
	return context.WithCancel(cmd.Context())
}

// textArg joins the positional arguments into the input text.
func textArg(args []string) string {
	return strings.Join(args, " ")
}

// NewHealthCmd creates the health command.
func NewHealthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Show service and history store status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := withTimeout(cmd, cliCtx)
			defer cancel()

			h, err := cliCtx.Client.Health(ctx)
			if err != nil {
				return err
			}
			return PrintResult(cmd, healthView(*h))
		},
	}
}

// NewSentimentCmd creates the sentiment command.
func NewSentimentCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sentiment <text>",
		Short: "Classify the sentiment of a text",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := withTimeout(cmd, cliCtx)
			defer cancel()

			res, err := cliCtx.Client.Sentiment(ctx, textArg(args))
			if err != nil {
				return err
			}
			return PrintResult(cmd, sentimentView(*res))
		},
	}
}

// NewTranslateCmd creates the translate command.
func NewTranslateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "translate <text>",
		Short: "Translate an English text to French",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := withTimeout(cmd, cliCtx)
			defer cancel()

			res, err := cliCtx.Client.Translate(ctx, textArg(args))
			if err != nil {
				return err
			}
			return PrintResult(cmd, translationView(*res))
		},
	}
}

// NewHistoryCmd creates the history command.
func NewHistoryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "history",
		Short: "Show the most recent logged requests",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := withTimeout(cmd, cliCtx)
			defer cancel()

			recs, err := cliCtx.Client.History(ctx)
			if err != nil {
				return err
			}
			return PrintResult(cmd, historyView(recs))
		},
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Views
// ─────────────────────────────────────────────────────────────────────────────

type healthView inference.HealthResponse

func (h healthView) String() string {
	return fmt.Sprintf("status:    %s\ndb_status: %s", h.Status, h.DBStatus)
}

type sentimentView inference.SentimentResponse

func (s sentimentView) TableHeaders() []string { return []string{"LABEL", "SCORE"} }

func (s sentimentView) TableRows() [][]string {
	rows := make([][]string, 0, len(s.Result))
	for _, l := range s.Result {
		rows = append(rows, []string{l.Label, fmt.Sprintf("%.4f", l.Score)})
	}
	return rows
}

type translationView inference.TranslationResponse

func (t translationView) String() string { return t.TranslatedText }

type historyView []inference.LogRecord

func (h historyView) TableHeaders() []string {
	return []string{"TIMESTAMP", "TASK", "INPUT", "RESULT"}
}

func (h historyView) TableRows() [][]string {
	rows := make([][]string, 0, len(h))
	for _, r := range h {
		rows = append(rows, []string{r.Timestamp, r.Task.String(), truncateString(r.Input, 40), truncateString(r.Result, 60)})
	}
	return rows
}

//Personal.AI order the ending
