package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/aretw0/botflow/internal/adapters/file"
	"github.com/aretw0/botflow/internal/compiler"
	"github.com/aretw0/botflow/internal/validator"
	"github.com/aretw0/botflow/pkg/adapters/memory"
	"github.com/aretw0/botflow/pkg/domain"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check bot definitions for schema errors and broken links",
	Long:  `Loads every bot in the bots directory, compiles its blocks and flows, and reports
references to missing blocks, flow nodes that cannot be reached and input nodes
whose IDs are reused by another flow.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		repo, err := file.OpenRepository(cmd.Context(), cfg.BotsDir)
		if err != nil {
			return err
		}
		problems, err := validateRepository(cmd.Context(), repo)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		for _, p := range problems {
			fmt.Fprintf(out, "✗ %v\n", p)
		}
		if len(problems) > 0 {
			return fmt.Errorf("%d invalid definitions", len(problems))
		}
		fmt.Fprintln(out, "All bots are valid! ✅")
		return nil
	},
}

// validateRepository compiles every block and flow and returns the failures.
func validateRepository(ctx context.Context, repo *memory.Repository) ([]error, error) {
	bots, err := repo.ListBots(ctx)
	if err != nil {
		return nil, err
	}
	if len(bots) == 0 {
		return nil, errors.New("no bots found in " + cfg.BotsDir)
	}

	parser := compiler.NewParser()
	var problems []error
	for _, bot := range bots {
		docs, err := repo.ListBlocks(ctx, bot.ID)
		if err != nil {
			return nil, err
		}
		blocks := make([]*domain.Block, 0, len(docs))
		for _, doc := range docs {
			blk, err := parser.ParseBlock(doc)
			if err != nil {
				problems = append(problems, fmt.Errorf("%s: %w", bot.ID, err))
				continue
			}
			blocks = append(blocks, blk)
		}
		if err := validator.ValidateBlocks(blocks); err != nil {
			problems = append(problems, fmt.Errorf("%s: %w", bot.ID, err))
		}

		flows, err := repo.ListFlows(ctx, bot.ID)
		if err != nil {
			return nil, err
		}
		parsed := make([]*domain.Flow, 0, len(flows))
		for _, doc := range flows {
			flow, err := parser.ParseFlow(doc)
			if err == nil {
				parsed = append(parsed, flow)
				err = validator.ValidateFlow(flow)
			}
			if err != nil {
				problems = append(problems, fmt.Errorf("%s: %w", bot.ID, err))
			}
		}
		if err := validator.ValidateFlows(parsed); err != nil {
			problems = append(problems, fmt.Errorf("%s: %w", bot.ID, err))
		}
	}
	return problems, nil
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
