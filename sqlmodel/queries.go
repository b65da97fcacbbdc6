package sqlmodel

import (
	"context"

	"go.uber.org/zap"
)

func Collect[T any](ctx context.Context, q Q, scans RowScan[T]) ([]T, error) {
	rows, err := q.QueryContext(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := rows.Close(); err != nil {
			zap.L().Error("Collect: failed to close rows", zap.Error(err))
		}
	}()

	var collection []T
	for rows.Next() {
		var t T
		pointers, actions := scans(&t)
		if err := rows.Scan(pointers...); err != nil {
			return nil, err
		}
		actions()
		collection = append(collection, t)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return collection, nil
}
