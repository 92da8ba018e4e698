package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"cryptoconverter/internal/binance/memorystore"

	"gorm.io/gorm"
)

const insertBatchSize = 500

// SaveTicks writes one flush cycle in a single transaction: the symbol row is
// found or created for each tick, then a data row is appended. Either every
// row is committed or none is.
func (p *PostgresClient) SaveTicks(ctx context.Context, ticks []memorystore.Tick) (int, error) {
	if len(ticks) == 0 {
		return 0, nil
	}

	err := p.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rows := make([]TickerDataRecord, 0, len(ticks))

		for _, t := range ticks {
			ticker := TickerRecord{TickerName: t.Symbol}
			if err := tx.Where(TickerRecord{TickerName: t.Symbol}).FirstOrCreate(&ticker).Error; err != nil {
				return fmt.Errorf("find or create ticker %s: %w", t.Symbol, err)
			}

			row, err := ToTickerDataRecord(ticker.ID, t)
			if err != nil {
				return err
			}
			rows = append(rows, *row)
		}

		if err := tx.CreateInBatches(&rows, insertBatchSize).Error; err != nil {
			return fmt.Errorf("insert ticker data: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	return len(ticks), nil
}

// LatestTick returns the most recent stored tick for symbol by event time.
func (p *PostgresClient) LatestTick(ctx context.Context, symbol string) (*TickerDataRecord, error) {
	var row TickerDataRecord
	err := p.DB.WithContext(ctx).
		Joins("Ticker").
		Where(`"Ticker".ticker_name = ?`, symbol).
		Order("binance_tickers_data.timestamp DESC").
		First(&row).Error
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// CountTicks returns the number of stored ticks for symbol.
func (p *PostgresClient) CountTicks(ctx context.Context, symbol string) (int64, error) {
	var n int64
	err := p.DB.WithContext(ctx).
		Model(&TickerDataRecord{}).
		Joins("JOIN binance_tickers_list ON binance_tickers_list.id = binance_tickers_data.ticker_id").
		Where("binance_tickers_list.ticker_name = ?", symbol).
		Count(&n).Error
	return n, err
}

// ToTickerDataRecord converts a Tick into a row for the given ticker id.
// Ticks without a raw feed entry are audited as their own JSON form.
func ToTickerDataRecord(tickerID uint, t memorystore.Tick) (*TickerDataRecord, error) {
	raw := []byte(t.Raw)
	if len(raw) == 0 {
		b, err := json.Marshal(t)
		if err != nil {
			return nil, fmt.Errorf("encode audit payload for %s: %w", t.Symbol, err)
		}
		raw = b
	}

	return &TickerDataRecord{
		TickerID:  tickerID,
		Price:     t.Price,
		Timestamp: t.EventTime,
		JSONData:  string(raw),
	}, nil
}
