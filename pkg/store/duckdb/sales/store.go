// Package sales aggregates record tables with DuckDB SQL instead of in
// process. Each run loads the table inside a transaction that is rolled back
// once the reductions are read, so nothing outlives the call.
package sales

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/de-tools/sales-atlas/pkg/models/domain"
	"github.com/de-tools/sales-atlas/pkg/services/analysis"
	"github.com/de-tools/sales-atlas/pkg/store/duckdb"
	"github.com/rs/zerolog"
)

const (
	clearQuery  = `DELETE FROM sales_records`
	insertQuery = `
		INSERT INTO sales_records (
			row_id, order_year, order_month, sales, profit, discount,
			category, sub_category, region, product_name
		) VALUES (
			?, ?, ?, ?, ?, ?, ?, ?, ?, ?
		)`

	monthlyQuery = `
		SELECT order_year, order_month, SUM(sales), SUM(profit)
		FROM sales_records
		WHERE order_year IS NOT NULL
		GROUP BY order_year, order_month
		ORDER BY order_year, order_month`
	categoryQuery = `
		SELECT category, SUM(sales), SUM(profit)
		FROM sales_records
		GROUP BY category
		ORDER BY category`
	regionQuery = `
		SELECT region, SUM(profit)
		FROM sales_records
		GROUP BY region
		ORDER BY region`
	topProductsQuery = `
		SELECT product_name, SUM(sales) AS total_sales
		FROM sales_records
		GROUP BY product_name
		ORDER BY total_sales DESC, product_name ASC
		LIMIT ?`
	subCategoryQuery = `
		SELECT sub_category, SUM(sales)
		FROM sales_records
		GROUP BY sub_category
		ORDER BY sub_category`
	discountQuery = `
		SELECT discount, SUM(sales), SUM(profit)
		FROM sales_records
		GROUP BY discount
		ORDER BY discount`
	segmentQuery = `
		SELECT category, sales, profit
		FROM sales_records
		ORDER BY row_id`
)

type aggregator struct {
	// One sales_records table is shared, so runs are serialized.
	mu   sync.Mutex
	db   *sql.DB
	topN int
}

// NewAggregator returns an analysis.Aggregator backed by db, which must have
// been opened with duckdb.NewDB.
func NewAggregator(db *sql.DB, topN int) (analysis.Aggregator, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is nil")
	}
	if topN <= 0 {
		topN = analysis.DefaultTopProducts
	}
	return &aggregator{db: db, topN: topN}, nil
}

// Factory adapts NewAggregator to an analysis registry entry.
func Factory(db *sql.DB) analysis.AggregatorFactory {
	return func(topN int) (analysis.Aggregator, error) {
		return NewAggregator(db, topN)
	}
}

// Register opens the DuckDB database at path, in memory when path is empty,
// and adds the SQL engine to reg. The caller closes the returned handle.
func Register(reg analysis.Registry, path string) (*sql.DB, error) {
	if path == "" {
		path = ":memory:"
	}
	db, err := duckdb.NewDB(duckdb.Settings{DbPath: path})
	if err != nil {
		return nil, fmt.Errorf("failed to create DuckDB instance: %w", err)
	}
	if err := reg.Register(analysis.EngineDuckDB, Factory(db)); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func (a *aggregator) Aggregate(ctx context.Context, table *domain.Table) (*domain.Aggregations, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	start := time.Now()
	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()
	ctx = duckdb.WithTransaction(ctx, tx)

	if err := a.load(ctx, table); err != nil {
		return nil, err
	}

	aggs, err := a.read(ctx)
	if err != nil {
		return nil, err
	}

	zerolog.Ctx(ctx).Debug().
		Str("engine", "duckdb").
		Int("records", table.Len()).
		Dur("elapsed", time.Since(start)).
		Msg("aggregations computed")

	return aggs, nil
}

func (a *aggregator) load(ctx context.Context, table *domain.Table) error {
	q := duckdb.QuerierFrom(ctx, a.db)

	if _, err := q.ExecContext(ctx, clearQuery); err != nil {
		return fmt.Errorf("clear records: %w", err)
	}
	if table.Len() == 0 {
		return nil
	}

	stmt, err := q.PrepareContext(ctx, insertQuery)
	if err != nil {
		return fmt.Errorf("prepare statement: %w", err)
	}
	defer stmt.Close()

	for i, r := range table.Records {
		var year, month sql.NullInt64
		if !r.Month.IsZero() {
			year = sql.NullInt64{Int64: int64(r.Month.Year), Valid: true}
			month = sql.NullInt64{Int64: int64(r.Month.Month), Valid: true}
		}
		_, err := stmt.ExecContext(ctx,
			i,
			year,
			month,
			r.Sales,
			r.Profit,
			r.Discount,
			r.Category,
			r.SubCategory,
			r.Region,
			r.ProductName,
		)
		if err != nil {
			return fmt.Errorf("insert record %d: %w", i, err)
		}
	}
	return nil
}

func (a *aggregator) read(ctx context.Context) (*domain.Aggregations, error) {
	q := duckdb.QuerierFrom(ctx, a.db)
	aggs := &domain.Aggregations{}
	var err error

	if aggs.Monthly, err = queryMonthly(ctx, q); err != nil {
		return nil, err
	}
	if aggs.Categories, err = queryGroups(ctx, q, "category", categoryQuery, scanSalesProfit); err != nil {
		return nil, err
	}
	if aggs.Regions, err = queryGroups(ctx, q, "region", regionQuery, scanProfit); err != nil {
		return nil, err
	}
	if aggs.TopProducts, err = queryGroups(ctx, q, "top products", topProductsQuery, scanSales, a.topN); err != nil {
		return nil, err
	}
	if aggs.SubCategories, err = queryGroups(ctx, q, "sub-category", subCategoryQuery, scanSales); err != nil {
		return nil, err
	}
	if aggs.Discounts, err = queryDiscounts(ctx, q); err != nil {
		return nil, err
	}
	if aggs.Segments, err = querySegments(ctx, q); err != nil {
		return nil, err
	}
	return aggs, nil
}

func queryMonthly(ctx context.Context, q duckdb.Querier) ([]domain.MonthlyTotal, error) {
	rows, err := q.QueryContext(ctx, monthlyQuery)
	if err != nil {
		return nil, fmt.Errorf("query monthly totals: %w", err)
	}
	defer rows.Close()

	out := make([]domain.MonthlyTotal, 0)
	for rows.Next() {
		var (
			year, month   int
			sales, profit float64
		)
		if err := rows.Scan(&year, &month, &sales, &profit); err != nil {
			return nil, fmt.Errorf("scan monthly totals: %w", err)
		}
		out = append(out, domain.MonthlyTotal{
			Month:  domain.Period{Year: year, Month: time.Month(month)},
			Sales:  sales,
			Profit: profit,
		})
	}
	return out, rows.Err()
}

type groupScanner func(rows *sql.Rows) (domain.GroupTotal, error)

func scanSalesProfit(rows *sql.Rows) (domain.GroupTotal, error) {
	var g domain.GroupTotal
	err := rows.Scan(&g.Key, &g.Sales, &g.Profit)
	return g, err
}

func scanSales(rows *sql.Rows) (domain.GroupTotal, error) {
	var g domain.GroupTotal
	err := rows.Scan(&g.Key, &g.Sales)
	return g, err
}

func scanProfit(rows *sql.Rows) (domain.GroupTotal, error) {
	var g domain.GroupTotal
	err := rows.Scan(&g.Key, &g.Profit)
	return g, err
}

func queryGroups(
	ctx context.Context,
	q duckdb.Querier,
	name string,
	query string,
	scan groupScanner,
	args ...any,
) ([]domain.GroupTotal, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query %s totals: %w", name, err)
	}
	defer rows.Close()

	out := make([]domain.GroupTotal, 0)
	for rows.Next() {
		g, err := scan(rows)
		if err != nil {
			return nil, fmt.Errorf("scan %s totals: %w", name, err)
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

func queryDiscounts(ctx context.Context, q duckdb.Querier) ([]domain.DiscountTotal, error) {
	rows, err := q.QueryContext(ctx, discountQuery)
	if err != nil {
		return nil, fmt.Errorf("query discount totals: %w", err)
	}
	defer rows.Close()

	out := make([]domain.DiscountTotal, 0)
	for rows.Next() {
		var d domain.DiscountTotal
		if err := rows.Scan(&d.Discount, &d.Sales, &d.Profit); err != nil {
			return nil, fmt.Errorf("scan discount totals: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func querySegments(ctx context.Context, q duckdb.Querier) ([]domain.SegmentPoint, error) {
	rows, err := q.QueryContext(ctx, segmentQuery)
	if err != nil {
		return nil, fmt.Errorf("query segments: %w", err)
	}
	defer rows.Close()

	out := make([]domain.SegmentPoint, 0)
	for rows.Next() {
		var s domain.SegmentPoint
		if err := rows.Scan(&s.Category, &s.Sales, &s.Profit); err != nil {
			return nil, fmt.Errorf("scan segments: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
