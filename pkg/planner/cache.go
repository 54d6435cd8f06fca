package planner

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/entrhq/webpilot/pkg/types"
)

// DefaultCacheSize is the number of plans kept by a CachingPlanner.
const DefaultCacheSize = 256

// CachingPlanner memoizes another planner. Entries are keyed by a SHA-256
// fingerprint of the canonical JSON of (goal, observation, history) and
// stored as the serialized tool call, so a hit replays the exact bytes of
// the original plan. Errors are never cached.
type CachingPlanner struct {
	next  Planner
	cache *lru.Cache[string, []byte]
}

// NewCachingPlanner wraps next with an LRU cache of the given size.
func NewCachingPlanner(next Planner, size int) (*CachingPlanner, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	cache, err := lru.New[string, []byte](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create plan cache: %w", err)
	}
	return &CachingPlanner{next: next, cache: cache}, nil
}

// Plan implements Planner.
func (c *CachingPlanner) Plan(ctx context.Context, goal string, observation *types.Observation, history []types.Step) (*types.ToolCall, error) {
	key, err := Fingerprint(goal, observation, history)
	if err != nil {
		// Unkeyable input is planned without caching
		return c.next.Plan(ctx, goal, observation, history)
	}

	if data, ok := c.cache.Get(key); ok {
		var call types.ToolCall
		if err := json.Unmarshal(data, &call); err == nil {
			plannerLog.Debugf("Plan cache hit %s", key[:12])
			return &call, nil
		}
		c.cache.Remove(key)
	}

	call, err := c.next.Plan(ctx, goal, observation, history)
	if err != nil {
		return nil, err
	}

	data, err := json.Marshal(call)
	if err != nil {
		return call, nil
	}
	c.cache.Add(key, data)

	// Return the decoded copy so first calls and hits are indistinguishable
	var replay types.ToolCall
	if err := json.Unmarshal(data, &replay); err != nil {
		return call, nil
	}
	return &replay, nil
}

// Len returns the number of cached plans.
func (c *CachingPlanner) Len() int {
	return c.cache.Len()
}

// Purge empties the cache.
func (c *CachingPlanner) Purge() {
	c.cache.Purge()
}

// Fingerprint returns the cache key for a planning input.
func Fingerprint(goal string, observation *types.Observation, history []types.Step) (string, error) {
	// Only what the planner sees is part of the key
	type stepKey struct {
		Index    int             `json:"index"`
		ToolCall *types.ToolCall `json:"tool_call"`
		Success  bool            `json:"success"`
		Result   string          `json:"result"`
		Error    *types.Error    `json:"error"`
	}
	steps := make([]stepKey, len(history))
	for i, s := range history {
		steps[i] = stepKey{Index: s.Index, ToolCall: s.ToolCall, Success: s.Success, Result: s.Result, Error: s.Error}
	}

	data, err := json.Marshal(struct {
		Goal        string             `json:"goal"`
		Observation *types.Observation `json:"observation"`
		History     []stepKey          `json:"history"`
	}{goal, observation, steps})
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}
