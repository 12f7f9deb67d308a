package repository

import (
	"context"
	"errors"
	"time"

	"multistrat/types"

	"github.com/jackc/pgx/v5"
)

var bucketToInterval = map[types.Interval]string{
	types.OneMinute:      "1 minute",
	types.FiveMinutes:    "5 minutes",
	types.FifteenMinutes: "15 minutes",
	types.ThirtyMinutes:  "30 minutes",
	types.Hour:           "1 hour",
	types.Day:            "1 day",
	types.Week:           "1 week",
}

// GetBars returns aggregated bars for an asset, bucketed to the requested
// interval, ordered by timestamp ascending.
func (db *Database) GetBars(assetId int, ticker string, interval types.Interval, start, end time.Time, ctx context.Context) ([]types.Bar, error) {
	bucket, ok := bucketToInterval[interval]
	if !ok {
		return nil, ErrIntervalNotSupported
	}
	args := aggregatesParams{
		TimeBucket: bucket,
		AssetID:    int32(assetId),
		Starttime:  &start,
		Endtime:    &end,
	}
	rows, err := db.bars.GetAggregates(ctx, args)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNoBars
		}
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ErrNoBars
	}
	return convertBars(rows, interval, ticker), nil
}

func convertBars(rows []barRow, interval types.Interval, ticker string) []types.Bar {
	var bars []types.Bar
	for _, row := range rows {
		bars = append(bars, types.Bar{
			AssetId:   int(row.AssetID),
			Symbol:    ticker,
			Open:      row.Open,
			Close:     row.Close,
			High:      row.High,
			Low:       row.Low,
			Volume:    row.Volume,
			Interval:  interval,
			Timestamp: *row.Bucket,
		})
	}
	return bars
}
