package ranking

import (
	"context"
	"sort"
	"sync"
	"time"

	models "flashsell-engine/database/models_pkg"
	"flashsell-engine/helpers"
)

// HistoryStore persists daily ranking partitions keyed by (date, category)
type HistoryStore interface {
	// ReplaceRanking atomically replaces every row of the (date, category) partition
	ReplaceRanking(ctx context.Context, date time.Time, categoryID int64, rows []models.HotProductScore) error
	// FindByDateAndCategory returns the partition ordered by ascending rank
	FindByDateAndCategory(ctx context.Context, date time.Time, categoryID int64) ([]models.HotProductScore, error)
	// FindByDate returns every partition of the day
	FindByDate(ctx context.Context, date time.Time) ([]models.HotProductScore, error)
	// FindByCategoryBetween returns the category's rows with start <= date <= end
	FindByCategoryBetween(ctx context.Context, categoryID int64, start, end time.Time) ([]models.HotProductScore, error)
	// FindProductHistory returns the product's rows with start <= date <= end, newest first
	FindProductHistory(ctx context.Context, productID int64, start, end time.Time) ([]models.HotProductScore, error)
	// DeleteBefore hard-deletes rows dated strictly before cutoff
	DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type partitionKey struct {
	date       string
	categoryID int64
}

// MemoryStore is an in-process HistoryStore. Each partition is swapped whole
// under the write lock, so readers never observe a half-written ranking.
type MemoryStore struct {
	mu         sync.RWMutex
	partitions map[partitionKey][]models.HotProductScore
	nextID     int64
}

// NewMemoryStore creates an empty MemoryStore
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{partitions: make(map[partitionKey][]models.HotProductScore)}
}

func (s *MemoryStore) ReplaceRanking(_ context.Context, date time.Time, categoryID int64, rows []models.HotProductScore) error {
	stored := make([]models.HotProductScore, len(rows))
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	for i, r := range rows {
		s.nextID++
		r.ID = s.nextID
		r.CreatedAt = now
		stored[i] = r
	}

	k := partitionKey{helpers.FormatDate(date), categoryID}
	if len(stored) == 0 {
		delete(s.partitions, k)
		return nil
	}
	s.partitions[k] = stored
	return nil
}

func (s *MemoryStore) FindByDateAndCategory(_ context.Context, date time.Time, categoryID int64) ([]models.HotProductScore, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows := s.partitions[partitionKey{helpers.FormatDate(date), categoryID}]
	return append([]models.HotProductScore(nil), rows...), nil
}

func (s *MemoryStore) FindByDate(_ context.Context, date time.Time) ([]models.HotProductScore, error) {
	day := helpers.FormatDate(date)

	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.HotProductScore
	for k, rows := range s.partitions {
		if k.date == day {
			out = append(out, rows...)
		}
	}
	sortByDateCategoryRank(out)
	return out, nil
}

func (s *MemoryStore) FindByCategoryBetween(_ context.Context, categoryID int64, start, end time.Time) ([]models.HotProductScore, error) {
	from, to := helpers.FormatDate(start), helpers.FormatDate(end)

	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.HotProductScore
	for k, rows := range s.partitions {
		if k.categoryID == categoryID && k.date >= from && k.date <= to {
			out = append(out, rows...)
		}
	}
	sortByDateCategoryRank(out)
	return out, nil
}

func (s *MemoryStore) FindProductHistory(_ context.Context, productID int64, start, end time.Time) ([]models.HotProductScore, error) {
	from, to := helpers.FormatDate(start), helpers.FormatDate(end)

	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.HotProductScore
	for k, rows := range s.partitions {
		if k.date < from || k.date > to {
			continue
		}
		for _, r := range rows {
			if r.ProductID == productID {
				out = append(out, r)
			}
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		di, dj := helpers.FormatDate(out[i].RecommendDate), helpers.FormatDate(out[j].RecommendDate)
		if di != dj {
			return di > dj
		}
		return out[i].CategoryID < out[j].CategoryID
	})
	return out, nil
}

func (s *MemoryStore) DeleteBefore(_ context.Context, cutoff time.Time) (int64, error) {
	limit := helpers.FormatDate(cutoff)

	s.mu.Lock()
	defer s.mu.Unlock()

	var deleted int64
	for k, rows := range s.partitions {
		if k.date < limit {
			deleted += int64(len(rows))
			delete(s.partitions, k)
		}
	}
	return deleted, nil
}

// Len returns the number of stored rows
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, rows := range s.partitions {
		n += len(rows)
	}
	return n
}

func sortByDateCategoryRank(rows []models.HotProductScore) {
	sort.SliceStable(rows, func(i, j int) bool {
		di, dj := helpers.FormatDate(rows[i].RecommendDate), helpers.FormatDate(rows[j].RecommendDate)
		if di != dj {
			return di < dj
		}
		if rows[i].CategoryID != rows[j].CategoryID {
			return rows[i].CategoryID < rows[j].CategoryID
		}
		return rows[i].RankInCategory < rows[j].RankInCategory
	})
}
