package validator

import (
	"fmt"
	"sort"
	"strings"

	"github.com/aretw0/botflow/pkg/domain"
)

// ValidateBlocks checks that every block reference of a bot points at an existing
// block: goToBlock targets, userInput continuations and button targets.
func ValidateBlocks(blocks []*domain.Block) error {
	known := make(map[string]bool, len(blocks))
	for _, b := range blocks {
		known[b.ID] = true
	}

	var errors []string
	check := func(from, what, target string) {
		if target != "" && !known[target] {
			errors = append(errors, fmt.Sprintf("block '%s': %s points to missing block '%s'", from, what, target))
		}
	}

	for _, b := range blocks {
		for i, card := range b.Cards {
			switch c := card.(type) {
			case domain.GoToBlockCard:
				check(b.ID, fmt.Sprintf("card %d (goToBlock)", i), c.BlockID)
			case domain.UserInputCard:
				check(b.ID, fmt.Sprintf("card %d (userInput)", i), c.NextBlockID)
			case domain.GalleryCard:
				for _, btn := range c.Buttons {
					check(b.ID, fmt.Sprintf("card %d button '%s'", i, btn.Title), btn.BlockID)
				}
			case domain.QuickReplyCard:
				for _, btn := range c.Buttons {
					check(b.ID, fmt.Sprintf("card %d quick reply '%s'", i, btn.Title), btn.BlockID)
				}
			}
		}
	}
	return joined(errors)
}

// ValidateFlow crawls a flow from its start node and reports broken edges and
// nodes that can never be reached.
func ValidateFlow(flow *domain.Flow) error {
	nodes := make(map[string]domain.Node, len(flow.Nodes))
	var start string
	for _, n := range flow.Nodes {
		nodes[n.NodeID()] = n
		if n.NodeType() == domain.NodeStart && start == "" {
			start = n.NodeID()
		}
	}

	var errors []string
	adjacency := make(map[string][]string)
	for _, e := range flow.Edges {
		if _, ok := nodes[e.Source]; !ok {
			errors = append(errors, fmt.Sprintf("flow '%s': edge from missing node '%s'", flow.ID, e.Source))
			continue
		}
		if _, ok := nodes[e.Target]; !ok {
			errors = append(errors, fmt.Sprintf("flow '%s': edge from '%s' to missing node '%s'", flow.ID, e.Source, e.Target))
			continue
		}
		adjacency[e.Source] = append(adjacency[e.Source], e.Target)
	}

	if start == "" {
		errors = append(errors, fmt.Sprintf("flow '%s': no start node", flow.ID))
		return joined(errors)
	}

	visited := map[string]bool{}
	queue := []string{start}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		if visited[current] {
			continue
		}
		visited[current] = true
		for _, next := range adjacency[current] {
			if !visited[next] {
				queue = append(queue, next)
			}
		}
	}

	var unreachable []string
	for id := range nodes {
		if !visited[id] {
			unreachable = append(unreachable, id)
		}
	}
	sort.Strings(unreachable)
	for _, id := range unreachable {
		errors = append(errors, fmt.Sprintf("flow '%s': node '%s' is unreachable from '%s'", flow.ID, id, start))
	}
	return joined(errors)
}

// ValidateFlows reports userInput node IDs that another flow of the same bot also
// declares. A session paused in a flow stores only the node ID, so such an ID
// can resume the wrong flow.
func ValidateFlows(flows []*domain.Flow) error {
	owners := make(map[string][]string)
	pausable := make(map[string]bool)
	var ids []string
	for _, flow := range flows {
		seen := map[string]bool{}
		for _, n := range flow.Nodes {
			id := n.NodeID()
			if n.NodeType() == domain.NodeUserInput {
				pausable[id] = true
			}
			if seen[id] {
				continue
			}
			seen[id] = true
			if _, ok := owners[id]; !ok {
				ids = append(ids, id)
			}
			owners[id] = append(owners[id], flow.ID)
		}
	}

	var errors []string
	for _, id := range ids {
		if pausable[id] && len(owners[id]) > 1 {
			errors = append(errors, fmt.Sprintf("node '%s' is declared by flows '%s'", id, strings.Join(owners[id], "', '")))
		}
	}
	return joined(errors)
}

func joined(errors []string) error {
	if len(errors) == 0 {
		return nil
	}
	return fmt.Errorf("found %d errors:\n- %s", len(errors), strings.Join(errors, "\n- "))
}
