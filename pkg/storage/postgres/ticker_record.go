package postgres

import "time"

// TickerRecord is the symbol dimension row, created the first time a symbol is flushed.
type TickerRecord struct {
	ID         uint      `gorm:"primaryKey"`
	TickerName string    `gorm:"type:varchar(50);not null;uniqueIndex:idx_ticker_name"`
	CreatedAt  time.Time `gorm:"autoCreateTime"`

	Data []TickerDataRecord `gorm:"foreignKey:TickerID"`
}

// TableName overrides the default table name for GORM.
func (TickerRecord) TableName() string {
	return "binance_tickers_list"
}

// TickerDataRecord is one flushed tick. Rows are append-only.
type TickerDataRecord struct {
	ID       uint         `gorm:"primaryKey"`
	TickerID uint         `gorm:"not null;index:idx_ticker_data_ticker_ts,priority:1"`
	Ticker   TickerRecord `gorm:"constraint:OnDelete:CASCADE"`

	Price     string `gorm:"type:varchar(50);not null"`
	Timestamp int64  `gorm:"not null;index:idx_ticker_data_ticker_ts,priority:2"` // event time, ms since epoch

	CreatedAt time.Time `gorm:"autoCreateTime"`

	// JSONData is the audit copy of the feed entry the tick was decoded from.
	JSONData string `gorm:"type:jsonb"`
}

// TableName overrides the default table name for GORM.
func (TickerDataRecord) TableName() string {
	return "binance_tickers_data"
}
