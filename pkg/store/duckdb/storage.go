package duckdb

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"

	"github.com/marcboeker/go-duckdb/v2"
)

const SalesTableSchema = `
	CREATE TABLE IF NOT EXISTS sales_records (
		row_id BIGINT NOT NULL,
		order_year INTEGER NULL,
		order_month INTEGER NULL,
		sales DOUBLE NOT NULL,
		profit DOUBLE NOT NULL,
		discount DOUBLE NOT NULL,
		category VARCHAR NOT NULL,
		sub_category VARCHAR NOT NULL,
		region VARCHAR NOT NULL,
		product_name VARCHAR NOT NULL
	);
`

var bootQueries = []string{
	SalesTableSchema,
}

type Settings struct {
	DbPath string
}

func NewDB(settings Settings) (*sql.DB, error) {
	c, err := duckdb.NewConnector(fmt.Sprintf("%s?threads=4", settings.DbPath), func(exec driver.ExecerContext) error {
		bootQueries := append([]string{}, bootQueries...)

		for _, query := range bootQueries {
			_, err := exec.ExecContext(context.Background(), query, nil)
			if err != nil {
				return err
			}
		}
		return nil
	})

	if err != nil {
		return nil, err
	}

	db := sql.OpenDB(c)
	return db, nil
}
