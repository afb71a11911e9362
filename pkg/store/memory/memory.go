package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/flowmetrics/semgraph/pkg/common"
	"github.com/flowmetrics/semgraph/pkg/store"
)

// GraphMemoryStorage implements store.GraphStorage over an in-process
// snapshot. The snapshot is replaced wholesale and treated as read-only by
// every query, so a single RWMutex suffices.
type GraphMemoryStorage struct {
	mu   sync.RWMutex
	snap *common.Snapshot
}

// NewGraphMemoryStorage creates a storage holding the given snapshot. A nil
// snapshot starts the storage empty.
func NewGraphMemoryStorage(snap *common.Snapshot) *GraphMemoryStorage {
	if snap == nil {
		snap = &common.Snapshot{}
	}
	return &GraphMemoryStorage{snap: snap}
}

// ReplaceSnapshot swaps the stored graph wholesale.
func (s *GraphMemoryStorage) ReplaceSnapshot(ctx context.Context, snap *common.Snapshot) error {
	if snap == nil {
		return fmt.Errorf("nil snapshot")
	}
	s.mu.Lock()
	s.snap = snap
	s.mu.Unlock()
	return nil
}

// Snapshot returns the full stored graph.
func (s *GraphMemoryStorage) Snapshot(ctx context.Context) (*common.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap, nil
}

func (s *GraphMemoryStorage) Overview(ctx context.Context) (*store.Overview, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return store.ComputeOverview(s.snap), nil
}

func (s *GraphMemoryStorage) Search(ctx context.Context, query string, limit int) ([]common.Node, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return store.SearchNodes(s.snap, query, limit), nil
}

func (s *GraphMemoryStorage) SimilarNodes(ctx context.Context, embedding []float32, limit int) ([]common.Node, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return store.RankBySimilarity(s.snap, embedding, limit), nil
}

func (s *GraphMemoryStorage) FilteredGraph(ctx context.Context, filter store.GraphFilter) (*common.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return store.FilterGraph(s.snap, filter), nil
}

func (s *GraphMemoryStorage) AudienceFocusedGraph(ctx context.Context, audience string, limit int) (*store.AudienceGraph, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return store.AudienceFocusedView(s.snap, audience, limit)
}

func (s *GraphMemoryStorage) Neighbors(ctx context.Context, nodeID string, depth int, minWeight float64) (*common.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return store.NeighborSubgraph(s.snap, nodeID, depth, minWeight)
}

func (s *GraphMemoryStorage) Analytics(ctx context.Context) (*store.Analytics, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return store.ComputeAnalytics(s.snap), nil
}

// Close is a no-op for the in-memory backend.
func (s *GraphMemoryStorage) Close() {}
