package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"bork/change"
	"bork/config"
	"bork/llm"
	"bork/loop"
	"bork/workspace"
)

var (
	modelFlag         string
	baseURLFlag       string
	effortFlag        string
	maxIterationsFlag int

	exitCode int
)

var rootCmd = &cobra.Command{
	Use:   "bork",
	Short: "Bork reconciles a codebase against its specifications",
	Long: `Bork is a coding harness that reconciles a codebase against the
human-authored specifications in specs/. It repeatedly snapshots the
working tree, asks an LLM for the edits needed to bring the code into
compliance, applies the vetted edits, and runs the configured
correctness checker until it is clean or the iteration cap is hit.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		root, err := workspace.DetectRoot()
		if err != nil {
			exitCode = 2
			return fmt.Errorf("detecting repository root: %w", err)
		}

		cfg, err := config.Load(root)
		if err != nil {
			exitCode = 2
			return err
		}

		if maxIterationsFlag < 1 {
			exitCode = 2
			return fmt.Errorf("--max-iterations must be at least 1, got %d", maxIterationsFlag)
		}

		adapter, err := llm.New(llm.Options{
			Model:           modelFlag,
			BaseURL:         baseURLFlag,
			ReasoningEffort: effortFlag,
		})
		if err != nil {
			exitCode = 2
			return err
		}

		// An interrupt cancels the in-flight LLM call or checker; any
		// in-progress file rename is atomic and completes on its own.
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		printer := change.NewPrinter(os.Stderr)
		controller := loop.New(loop.Options{
			Root:          root,
			Config:        cfg,
			Adapter:       adapter,
			Approver:      change.NewTerminalApprover(printer),
			Printer:       printer,
			MaxIterations: maxIterationsFlag,
		})

		term, err := controller.Run(ctx)
		exitCode = term.ExitCode()
		return err
	},
}

func init() {
	rootCmd.Flags().StringVar(&modelFlag, "model", "", "LLM in provider:model form (default $BORK_MODEL or "+llm.DefaultModel+")")
	rootCmd.Flags().StringVar(&baseURLFlag, "base-url", "", "override the LLM provider base URL")
	rootCmd.Flags().StringVar(&effortFlag, "reasoning-effort", "", "reasoning effort for capable models: low, medium or high (default "+llm.DefaultReasoningEffort+")")
	rootCmd.Flags().IntVar(&maxIterationsFlag, "max-iterations", loop.MaxIterations, "cap on reconciliation iterations before escalating to a human")
}

// Execute runs the root command and returns the harness exit code:
// 0 clean, 1 escalate to human, 2 error.
func Execute() int {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		if exitCode == 0 {
			exitCode = 2
		}
	}
	return exitCode
}
