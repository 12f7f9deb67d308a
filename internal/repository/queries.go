package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

type assetRow struct {
	ID         int32
	Ticker     string
	Name       string
	Type       string
	CreatedAt  *time.Time
	ModifiedAt *time.Time
}

type aggregatesParams struct {
	TimeBucket string
	AssetID    int32
	Starttime  *time.Time
	Endtime    *time.Time
}

type barRow struct {
	Bucket  *time.Time
	AssetID int32
	Open    decimal.Decimal
	High    decimal.Decimal
	Low     decimal.Decimal
	Close   decimal.Decimal
	Volume  decimal.Decimal
}

type queries struct {
	pool *pgxpool.Pool
}

const getAssetByTickerSQL = `
SELECT id, ticker, name, type, created_at, modified_at
FROM assets
WHERE ticker = $1`

func (q *queries) GetAssetByTicker(ctx context.Context, ticker string) (assetRow, error) {
	var row assetRow
	err := q.pool.QueryRow(ctx, getAssetByTickerSQL, ticker).
		Scan(&row.ID, &row.Ticker, &row.Name, &row.Type, &row.CreatedAt, &row.ModifiedAt)
	return row, err
}

const getAggregatesSQL = `
SELECT time_bucket($1::interval, timestamp) AS bucket,
       asset_id,
       first(open, timestamp)  AS open,
       max(high)               AS high,
       min(low)                AS low,
       last(close, timestamp)  AS close,
       sum(volume)             AS volume
FROM candles
WHERE asset_id = $2
  AND timestamp >= $3
  AND timestamp < $4
GROUP BY bucket, asset_id
ORDER BY bucket`

func (q *queries) GetAggregates(ctx context.Context, arg aggregatesParams) ([]barRow, error) {
	rows, err := q.pool.Query(ctx, getAggregatesSQL,
		arg.TimeBucket, arg.AssetID, arg.Starttime, arg.Endtime)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []barRow
	for rows.Next() {
		var row barRow
		if err := rows.Scan(&row.Bucket, &row.AssetID,
			&row.Open, &row.High, &row.Low, &row.Close, &row.Volume); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}
