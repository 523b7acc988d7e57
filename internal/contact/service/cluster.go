package service

import (
	"context"
	"fmt"
	"sort"

	"unify/internal/contact/models"
)

// matchDirect finds every contact sharing an attribute with the observation.
// Pure equality, no link traversal.
func matchDirect(ctx context.Context, store Store, obs models.Observation) ([]models.Contact, error) {
	emailKey, _ := obs.EmailKey()
	phone, _ := obs.PhoneKey()
	matches, err := store.FindByEmailOrPhone(ctx, emailKey, phone)
	if err != nil {
		return nil, fmt.Errorf("match observation: %w", err)
	}
	return matches, nil
}

// buildCluster computes the maximal set of contacts transitively reachable
// from the seeds through the edge relation: shared email (case-insensitive),
// shared phone (exact), or a linkedId in either direction.
//
// The traversal is an iterative worklist over batched store lookups, one
// round trip per frontier, with a visited set guaranteeing termination. The
// result is closed under the edge relation: nothing outside it shares an
// attribute or link with anything inside it.
//
// Members are returned ordered for primary selection: earliest CreatedAt
// first, lowest ID on ties.
func buildCluster(ctx context.Context, store Store, seeds []models.Contact) ([]models.Contact, error) {
	visited := make(map[int64]models.Contact, len(seeds))
	frontier := make([]models.Contact, 0, len(seeds))
	for _, c := range seeds {
		if _, ok := visited[c.ID]; ok {
			continue
		}
		visited[c.ID] = c
		frontier = append(frontier, c)
	}

	for len(frontier) > 0 {
		emailKeys, phones, ids := edgeKeys(frontier)
		neighbors, err := store.FindLinked(ctx, emailKeys, phones, ids)
		if err != nil {
			return nil, fmt.Errorf("expand cluster: %w", err)
		}

		frontier = frontier[:0]
		for _, c := range neighbors {
			if _, ok := visited[c.ID]; ok {
				continue
			}
			visited[c.ID] = c
			frontier = append(frontier, c)
		}
	}

	cluster := make([]models.Contact, 0, len(visited))
	for _, c := range visited {
		cluster = append(cluster, c)
	}
	sort.Slice(cluster, func(i, j int) bool {
		return cluster[i].Older(&cluster[j])
	})
	return cluster, nil
}

// edgeKeys collects the attribute values and ids that define the outgoing
// edges of a frontier: its folded emails, exact phones, and the ids on either
// end of its links.
func edgeKeys(frontier []models.Contact) (emailKeys, phones []string, ids []int64) {
	for i := range frontier {
		c := &frontier[i]
		if key, ok := c.EmailKey(); ok {
			emailKeys = append(emailKeys, key)
		}
		if key, ok := c.PhoneKey(); ok {
			phones = append(phones, key)
		}
		ids = append(ids, c.ID)
		if c.LinkedID != nil {
			ids = append(ids, *c.LinkedID)
		}
	}
	return emailKeys, phones, ids
}
