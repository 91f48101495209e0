package market

import (
	"context"
	"sync"
	"time"

	models "flashsell-engine/database/models_pkg"
	"flashsell-engine/helpers"
)

type analysisKey struct {
	categoryID    int64
	timeRangeDays int
	date          string
}

// MemoryStore is an in-process Store used by the memory backend and tests
type MemoryStore struct {
	mu     sync.RWMutex
	rows   map[analysisKey]models.MarketAnalysis
	nextID int64
}

// NewMemoryStore creates an empty MemoryStore
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{rows: make(map[analysisKey]models.MarketAnalysis)}
}

// FindLatest returns a copy of the newest analysis for the pair
func (s *MemoryStore) FindLatest(_ context.Context, categoryID int64, timeRangeDays int) (*models.MarketAnalysis, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var latest *models.MarketAnalysis
	for k, row := range s.rows {
		if k.categoryID != categoryID || k.timeRangeDays != timeRangeDays {
			continue
		}
		if latest == nil || row.AnalysisDate.After(latest.AnalysisDate) {
			r := row
			latest = &r
		}
	}
	return latest, nil
}

// Save upserts by (category, time range, date); the row ID survives a replace
func (s *MemoryStore) Save(_ context.Context, analysis *models.MarketAnalysis) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := analysisKey{analysis.CategoryID, analysis.TimeRangeDays, helpers.FormatDate(analysis.AnalysisDate)}
	now := time.Now()
	if prev, ok := s.rows[k]; ok {
		analysis.ID = prev.ID
		analysis.CreatedAt = prev.CreatedAt
	} else {
		s.nextID++
		analysis.ID = s.nextID
		analysis.CreatedAt = now
	}
	analysis.UpdatedAt = now
	s.rows[k] = *analysis
	return nil
}

// Len returns the number of stored analyses
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rows)
}
