package main

import (
	"fmt"

	"github.com/aretw0/botflow/internal/adapters/file"
	"github.com/aretw0/botflow/internal/compiler"
	"github.com/aretw0/botflow/internal/presentation/graph"
	"github.com/aretw0/botflow/pkg/domain"
	"github.com/spf13/cobra"
)

var graphCmd = &cobra.Command{
	Use:   "graph",
	Short: "Export a bot as a Mermaid diagram",
	Long: `Prints the blocks of a bot (or one of its flows with --flow) as Mermaid.
With --sender the session pointer of that user is highlighted.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		botID, _ := cmd.Flags().GetString("bot")
		flowID, _ := cmd.Flags().GetString("flow")
		sender, _ := cmd.Flags().GetString("sender")
		ctx := cmd.Context()

		repo, err := file.OpenRepository(ctx, cfg.BotsDir)
		if err != nil {
			return err
		}
		if _, err := repo.GetBot(ctx, botID); err != nil {
			return err
		}

		var overlay *graph.Overlay
		if sender != "" {
			app, err := buildApp(ctx, nil)
			if err != nil {
				return err
			}
			defer app.Close()
			s, err := app.Sessions.Load(ctx, domain.SessionKey(botID, sender))
			if err != nil {
				return err
			}
			overlay = &graph.Overlay{}
			if s.CurrentNodeID != nil {
				overlay.Current = *s.CurrentNodeID
			} else if s.CurrentBlockID != nil {
				overlay.Current = *s.CurrentBlockID
			}
		}

		parser := compiler.NewParser()
		out := cmd.OutOrStdout()

		if flowID != "" {
			doc, err := repo.GetFlow(ctx, botID, flowID)
			if err != nil {
				return err
			}
			flow, err := parser.ParseFlow(*doc)
			if err != nil {
				return err
			}
			fmt.Fprint(out, graph.FlowMermaid(flow, overlay))
			return nil
		}

		docs, err := repo.ListBlocks(ctx, botID)
		if err != nil {
			return err
		}
		blocks := make([]*domain.Block, 0, len(docs))
		for _, doc := range docs {
			blk, err := parser.ParseBlock(doc)
			if err != nil {
				return err
			}
			blocks = append(blocks, blk)
		}
		fmt.Fprint(out, graph.BlocksMermaid(blocks, overlay))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)
	graphCmd.Flags().String("bot", "", "bot id")
	graphCmd.Flags().String("flow", "", "render this flow instead of the blocks")
	graphCmd.Flags().String("sender", "", "highlight the session position of this sender")
	_ = graphCmd.MarkFlagRequired("bot")
}
