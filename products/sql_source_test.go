//go:build integration

package products

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flashsell-engine/database"
	"flashsell-engine/database/dbtest"
	"flashsell-engine/helpers"
)

func TestSQLSource(t *testing.T) {
	cfg := dbtest.Start(t)
	gdb, err := database.Connect(cfg)
	require.NoError(t, err)
	require.NoError(t, gdb.InitSchema())
	defer gdb.Close()

	conn, err := database.NewConnection(cfg)
	require.NoError(t, err)
	defer conn.Close()

	ctx := context.Background()
	today := helpers.Day(time.Now().UTC())
	exec := func(query string, args ...interface{}) {
		t.Helper()
		_, err := conn.GetConn().ExecContext(ctx, query, args...)
		require.NoError(t, err)
	}

	exec(`INSERT INTO products (id, asin, category_id, bsr_rank, review_count, rating, competition_score, created_at)
		VALUES (1, 'A1', 7, 800, 600, 4.5, 0.7, $1),
		       (2, 'A2', 7, 1200, 400, 2.5, 0.5, $2),
		       (3, 'A3', 7, NULL, NULL, NULL, NULL, $2),
		       (4, 'A4', 8, 100, 10, 4.0, 0.2, $2)`,
		helpers.AddDays(today, -40), today.Add(3*time.Hour))
	exec(`INSERT INTO product_daily_sales (product_id, category_id, sales_date, sales_volume)
		VALUES (1, 7, $1, 100), (2, 7, $1, 50), (1, 7, $2, 200)`,
		helpers.FormatDate(helpers.AddDays(today, -1)), helpers.FormatDate(today))
	exec(`INSERT INTO product_hot_scores (product_id, category_id, score_date, hot_score)
		VALUES (1, 7, $1, 91.50), (2, 7, $1, 88.00)`, helpers.FormatDate(today))

	src := NewSQLSource(conn)

	n, err := src.CountProductsByCategory(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	avg, err := src.AverageBsrRank(ctx, 7)
	require.NoError(t, err)
	require.NotNil(t, avg)
	assert.InDelta(t, 1000.0, *avg, 1e-9)

	none, err := src.AverageRating(ctx, 99)
	require.NoError(t, err)
	assert.Nil(t, none)

	created, err := src.ProductCountChange(ctx, 7, helpers.AddDays(today, -30), today)
	require.NoError(t, err)
	assert.Equal(t, int64(2), *created)

	points, err := src.SalesDistribution(ctx, 7, helpers.AddDays(today, -30), today)
	require.NoError(t, err)
	require.Len(t, points, 2)
	assert.Equal(t, int64(150), points[0].SalesVolume)
	assert.Equal(t, int64(200), points[1].SalesVolume)

	candidates, err := src.HotCandidates(ctx, 7, today)
	require.NoError(t, err)
	require.Len(t, candidates, 2)
	assert.Equal(t, int64(1), candidates[0].ProductID)
	assert.Equal(t, "91.50", candidates[0].HotScore.StringFixed(2))
	assert.True(t, candidates[0].Qualifies())
	assert.False(t, candidates[1].Qualifies())
}
