package sales

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/de-tools/sales-atlas/pkg/models/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleTable() *domain.Table {
	jan := domain.Period{Year: 2024, Month: time.January}
	return &domain.Table{
		Columns: domain.RequiredColumns,
		Records: []domain.Record{
			{Month: jan, Sales: 100, Profit: 10, Discount: 0, Category: "A", SubCategory: "S1", Region: "West", ProductName: "P1"},
			{Sales: 50, Profit: -5, Discount: 0.2, Category: "B", SubCategory: "S2", Region: "East", ProductName: "P2"},
		},
	}
}

func expectAggregationQueries(mock sqlmock.Sqlmock) {
	mock.ExpectQuery(regexp.QuoteMeta("SELECT order_year, order_month, SUM(sales), SUM(profit)")).
		WillReturnRows(sqlmock.NewRows([]string{"order_year", "order_month", "sales", "profit"}).
			AddRow(2024, 1, 100.0, 10.0))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT category, SUM(sales), SUM(profit)")).
		WillReturnRows(sqlmock.NewRows([]string{"category", "sales", "profit"}).
			AddRow("A", 100.0, 10.0).
			AddRow("B", 50.0, -5.0))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT region, SUM(profit)")).
		WillReturnRows(sqlmock.NewRows([]string{"region", "profit"}).
			AddRow("East", -5.0).
			AddRow("West", 10.0))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT product_name, SUM(sales) AS total_sales")).
		WithArgs(10).
		WillReturnRows(sqlmock.NewRows([]string{"product_name", "total_sales"}).
			AddRow("P1", 100.0).
			AddRow("P2", 50.0))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT sub_category, SUM(sales)")).
		WillReturnRows(sqlmock.NewRows([]string{"sub_category", "sales"}).
			AddRow("S1", 100.0).
			AddRow("S2", 50.0))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT discount, SUM(sales), SUM(profit)")).
		WillReturnRows(sqlmock.NewRows([]string{"discount", "sales", "profit"}).
			AddRow(0.0, 100.0, 10.0).
			AddRow(0.2, 50.0, -5.0))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT category, sales, profit")).
		WillReturnRows(sqlmock.NewRows([]string{"category", "sales", "profit"}).
			AddRow("A", 100.0, 10.0).
			AddRow("B", 50.0, -5.0))
}

func TestAggregator_Aggregate(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM sales_records")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectPrepare(regexp.QuoteMeta("INSERT INTO sales_records"))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO sales_records")).
		WithArgs(0, 2024, 1, 100.0, 10.0, 0.0, "A", "S1", "West", "P1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO sales_records")).
		WithArgs(1, nil, nil, 50.0, -5.0, 0.2, "B", "S2", "East", "P2").
		WillReturnResult(sqlmock.NewResult(0, 1))
	expectAggregationQueries(mock)
	mock.ExpectRollback()

	agg, err := NewAggregator(db, 0)
	require.NoError(t, err)

	got, err := agg.Aggregate(context.Background(), sampleTable())
	require.NoError(t, err)

	assert.Equal(t, []domain.MonthlyTotal{{Month: domain.Period{Year: 2024, Month: time.January}, Sales: 100, Profit: 10}}, got.Monthly)
	assert.Equal(t, []domain.GroupTotal{{Key: "A", Sales: 100, Profit: 10}, {Key: "B", Sales: 50, Profit: -5}}, got.Categories)
	assert.Equal(t, []domain.GroupTotal{{Key: "East", Profit: -5}, {Key: "West", Profit: 10}}, got.Regions)
	assert.Equal(t, []domain.GroupTotal{{Key: "P1", Sales: 100}, {Key: "P2", Sales: 50}}, got.TopProducts)
	assert.Equal(t, []domain.GroupTotal{{Key: "S1", Sales: 100}, {Key: "S2", Sales: 50}}, got.SubCategories)
	assert.Equal(t, []domain.DiscountTotal{{Discount: 0, Sales: 100, Profit: 10}, {Discount: 0.2, Sales: 50, Profit: -5}}, got.Discounts)
	assert.Len(t, got.Segments, 2)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAggregator_EmptyTableSkipsInsert(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	empty := []string{"k", "a", "b"}
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM sales_records")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT order_year").WillReturnRows(sqlmock.NewRows([]string{"y", "m", "s", "p"}))
	mock.ExpectQuery("SELECT category").WillReturnRows(sqlmock.NewRows(empty))
	mock.ExpectQuery("SELECT region").WillReturnRows(sqlmock.NewRows(empty[:2]))
	mock.ExpectQuery("SELECT product_name").WillReturnRows(sqlmock.NewRows(empty[:2]))
	mock.ExpectQuery("SELECT sub_category").WillReturnRows(sqlmock.NewRows(empty[:2]))
	mock.ExpectQuery("SELECT discount").WillReturnRows(sqlmock.NewRows(empty))
	mock.ExpectQuery("SELECT category, sales").WillReturnRows(sqlmock.NewRows(empty))
	mock.ExpectRollback()

	agg, err := NewAggregator(db, 10)
	require.NoError(t, err)

	got, err := agg.Aggregate(context.Background(), &domain.Table{Columns: domain.RequiredColumns})
	require.NoError(t, err)

	assert.Empty(t, got.Monthly)
	assert.Empty(t, got.Categories)
	assert.Empty(t, got.Segments)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAggregator_QueryError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM sales_records").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT order_year").WillReturnError(errors.New("boom"))
	mock.ExpectRollback()

	agg, err := NewAggregator(db, 10)
	require.NoError(t, err)

	_, err = agg.Aggregate(context.Background(), &domain.Table{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "query monthly totals")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNewAggregator_NilDB(t *testing.T) {
	_, err := NewAggregator(nil, 10)
	assert.Error(t, err)
}
