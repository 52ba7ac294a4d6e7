package tests

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/aretw0/botflow/pkg/domain"
	"github.com/aretw0/botflow/pkg/ports"
)

// ContentRepositoryContractTest is a reusable test suite that verifies if an adapter complies
// with ports.ContentRepository. The repository must be empty for botID.
func ContentRepositoryContractTest(t *testing.T, repo ports.ContentRepository, botID string) {
	t.Helper()
	ctx := context.Background()

	ids := []string{"zulu", "alpha", "mike"}
	for _, id := range ids {
		doc := domain.BlockDocument{
			ID:        id,
			BotID:     botID,
			Name:      id,
			Cards:     json.RawMessage(`[{"type":"text","text":"hi"}]`),
			IsEnabled: true,
		}
		if err := repo.SaveBlock(ctx, doc); err != nil {
			t.Fatalf("unexpected error saving block %s: %v", id, err)
		}
	}

	t.Run("ListBlocks_StableOrder", func(t *testing.T) {
		first, err := repo.ListBlocks(ctx, botID)
		if err != nil {
			t.Fatalf("unexpected error listing blocks: %v", err)
		}
		if len(first) != len(ids) {
			t.Fatalf("expected %d blocks, got %d", len(ids), len(first))
		}
		for i := 0; i < 3; i++ {
			again, _ := repo.ListBlocks(ctx, botID)
			for j := range first {
				if again[j].ID != first[j].ID {
					t.Errorf("order changed between calls at %d: %s vs %s", j, first[j].ID, again[j].ID)
				}
			}
		}
	})

	t.Run("GetBlock_Success", func(t *testing.T) {
		doc, err := repo.GetBlock(ctx, botID, "alpha")
		if err != nil {
			t.Fatalf("unexpected error getting block: %v", err)
		}
		if doc.ID != "alpha" || doc.BotID != botID {
			t.Errorf("got block %s/%s, want %s/alpha", doc.BotID, doc.ID, botID)
		}
	})

	t.Run("GetBlock_NotFound", func(t *testing.T) {
		_, err := repo.GetBlock(ctx, botID, "non-existent-block")
		if !errors.Is(err, domain.ErrBlockNotFound) {
			t.Errorf("expected ErrBlockNotFound, got %v", err)
		}
	})

	t.Run("SaveBlock_Replaces", func(t *testing.T) {
		doc := domain.BlockDocument{ID: "alpha", BotID: botID, Name: "renamed", Cards: json.RawMessage(`[]`)}
		if err := repo.SaveBlock(ctx, doc); err != nil {
			t.Fatalf("unexpected error replacing block: %v", err)
		}
		all, _ := repo.ListBlocks(ctx, botID)
		if len(all) != len(ids) {
			t.Errorf("replacing must not add a block: got %d", len(all))
		}
		got, _ := repo.GetBlock(ctx, botID, "alpha")
		if got == nil || got.Name != "renamed" {
			t.Errorf("block was not replaced: %+v", got)
		}
	})

	t.Run("ListFlows_UnknownBot", func(t *testing.T) {
		flows, err := repo.ListFlows(ctx, botID+"-unknown")
		if err != nil {
			t.Fatalf("unexpected error listing flows: %v", err)
		}
		if len(flows) != 0 {
			t.Errorf("expected no flows, got %d", len(flows))
		}
	})
}
