package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"

	"support-assistant/backend/internal/ai"
	"support-assistant/backend/internal/decision"
	"support-assistant/backend/internal/mcptool"
	"support-assistant/backend/internal/policy"
	"support-assistant/backend/internal/reasoning"
	"support-assistant/backend/internal/store"
)

type options struct {
	policyDir string
	dbPath    string
	verbose   bool
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:           "policyctl",
		Short:         "Inspect and query the support policy corpus",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			if !opts.verbose {
				logrus.SetLevel(logrus.WarnLevel)
			}
			// stdout carries the MCP protocol; keep logs on stderr.
			logrus.SetOutput(os.Stderr)
		},
	}
	root.PersistentFlags().StringVar(&opts.policyDir, "policy-dir", os.Getenv("POLICY_DIR"), "directory containing catalog.yaml (embedded corpus when empty)")
	root.PersistentFlags().StringVar(&opts.dbPath, "db", firstNonEmpty(os.Getenv("SUPPORT_DB_PATH"), "data/support.db"), "SQLite database with orders")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "enable info logging")

	root.AddCommand(newSectionsCmd(opts), newSearchCmd(opts), newDecideCmd(opts), newMCPCmd(opts), newHashTokenCmd())
	return root
}

func newSectionsCmd(opts *options) *cobra.Command {
	var policyType string
	cmd := &cobra.Command{
		Use:   "sections",
		Short: "List loaded policy sections",
		RunE: func(cmd *cobra.Command, _ []string) error {
			engine, err := policy.LoadEngine(opts.policyDir)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			heading := color.New(color.FgCyan, color.Bold)
			count := 0
			for _, s := range engine.Sections() {
				if policyType != "" && s.PolicyType != policyType {
					continue
				}
				count++
				heading.Fprintf(out, "%s", s.ID)
				fmt.Fprintf(out, "  [%s]\n", strings.Join(s.Keywords, ", "))
				fmt.Fprintf(out, "  %s\n", preview(s.Content, 100))
			}
			color.New(color.Faint).Fprintf(out, "%d sections\n", count)
			return nil
		},
	}
	cmd.Flags().StringVar(&policyType, "type", "", "only list sections of this policy type")
	return cmd
}

func newSearchCmd(opts *options) *cobra.Command {
	var (
		issue string
		limit int
	)
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Rank policy sections against a query",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := policy.LoadEngine(opts.policyDir)
			if err != nil {
				return err
			}
			result := engine.Query(strings.Join(args, " "), issue, limit)
			out := cmd.OutOrStdout()
			if !result.Found {
				color.New(color.FgYellow).Fprintln(out, result.Message)
				return nil
			}
			for i, item := range result.Context {
				color.New(color.FgGreen, color.Bold).Fprintf(out, "%d. %s", i+1, item.ID)
				fmt.Fprintf(out, " (score %d)\n   %s\n", item.RelevanceScore, preview(item.Content, 160))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&issue, "issue", "", "issue type (damage, missing, wrong)")
	cmd.Flags().IntVar(&limit, "limit", policy.DefaultLimit, "maximum sections to show")
	return cmd
}

func newDecideCmd(opts *options) *cobra.Command {
	var (
		issue   string
		orderID string
		query   string
	)
	cmd := &cobra.Command{
		Use:   "decide",
		Short: "Run retrieval and reasoning for an order",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			maker, db, closeFn, err := buildDecider(ctx, opts)
			if err != nil {
				return err
			}
			defer closeFn()

			var order *store.Order
			if orderID != "" {
				order, err = db.GetOrder(orderID)
				if err != nil {
					return fmt.Errorf("get order %s: %w", orderID, err)
				}
			}

			d := maker.Process(ctx, issue, order, query)
			out := cmd.OutOrStdout()
			label := color.New(color.Bold)
			label.Fprint(out, "system:         ")
			fmt.Fprintln(out, d.System)
			label.Fprint(out, "recommendation: ")
			recommendationColor(d.Recommendation).Fprintln(out, d.Recommendation)
			if d.Confidence != "" {
				label.Fprint(out, "confidence:     ")
				fmt.Fprintln(out, d.Confidence)
			}
			label.Fprint(out, "reasoning:      ")
			fmt.Fprintln(out, d.Reasoning)
			for _, p := range d.RetrievedPolicies {
				color.New(color.Faint).Fprintf(out, "  - %s (score %d)\n", p.ID, p.RelevanceScore)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&issue, "issue", "", "issue type (damage, missing, wrong)")
	cmd.Flags().StringVar(&orderID, "order-id", "", "order id stored in the database")
	cmd.Flags().StringVar(&query, "query", "", "customer message")
	return cmd
}

func newMCPCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve search_policies and decide_policy over MCP stdio",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			maker, db, closeFn, err := buildDecider(ctx, opts)
			if err != nil {
				return err
			}
			defer closeFn()
			engine, err := policy.LoadEngine(opts.policyDir)
			if err != nil {
				return err
			}
			return mcptool.Serve(ctx, mcptool.New(engine, maker, db), version)
		},
	}
}

func newHashTokenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hash-token <token>",
		Short: "Print the bcrypt hash to use as ADMIN_TOKEN_HASH",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hash, err := bcrypt.GenerateFromPassword([]byte(args[0]), bcrypt.DefaultCost)
			if err != nil {
				return fmt.Errorf("hash token: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(hash))
			return nil
		},
	}
}

func buildDecider(ctx context.Context, opts *options) (*decision.Maker, *store.Database, func(), error) {
	engine, err := policy.LoadEngine(opts.policyDir)
	if err != nil {
		return nil, nil, nil, err
	}
	db, err := store.Open(opts.dbPath, true)
	if err != nil {
		return nil, nil, nil, err
	}
	gen, closeAI, err := ai.NewGenerator(ctx, ai.Config{
		APIKey:  firstNonEmpty(os.Getenv("GROQ_API_KEY"), os.Getenv("OPENAI_API_KEY")),
		Model:   os.Getenv("OPENAI_MODEL"),
		BaseURL: os.Getenv("OPENAI_BASE_URL"),
	}, ai.GeminiConfig{APIKey: os.Getenv("GEMINI_API_KEY"), Model: os.Getenv("GEMINI_MODEL")})
	if err != nil {
		_ = db.Close()
		return nil, nil, nil, err
	}
	maker := decision.NewMaker(engine, reasoning.NewChain(ai.NewSupervisor(gen)))
	return maker, db, func() {
		closeAI()
		_ = db.Close()
	}, nil
}

func recommendationColor(r reasoning.Recommendation) *color.Color {
	switch r {
	case reasoning.ProcessRefund, reasoning.OfferReplacement:
		return color.New(color.FgGreen, color.Bold)
	case reasoning.EscalateToAdmin, reasoning.ManualReview:
		return color.New(color.FgYellow, color.Bold)
	case reasoning.RequestEvidence, reasoning.GatherInfo:
		return color.New(color.FgCyan)
	default:
		return color.New(color.Reset)
	}
}

func preview(text string, n int) string {
	text = strings.Join(strings.Fields(text), " ")
	runes := []rune(text)
	if len(runes) <= n {
		return text
	}
	return string(runes[:n]) + "..."
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			return trimmed
		}
	}
	return ""
}
