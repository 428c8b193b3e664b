package marketdata

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // postgres driver

	"github.com/raftroch1/0dte-sub000/models"
)

// PostgresConfig points at a candle store. Credentials come from the
// config layer or the environment, never from code.
type PostgresConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
	Table    string
}

func (c PostgresConfig) dsn() string {
	ssl := c.SSLMode
	if ssl == "" {
		ssl = "disable"
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, ssl)
}

// LoadPostgres fetches bars for one symbol and timeframe ordered by time.
func LoadPostgres(ctx context.Context, cfg PostgresConfig, symbol, interval string, start, end time.Time) ([]*models.Bar, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", cfg.dsn())
	if err != nil {
		return nil, &DataError{Source: cfg.Host, Reason: err.Error()}
	}
	defer db.Close()

	table := cfg.Table
	if table == "" {
		table = "candles"
	}
	cmd := fmt.Sprintf(`select timestamp, open, high, low, close, vwap, volume
		from %s
		where symbol = $1 and interval = $2 and timestamp >= $3 and timestamp <= $4
		order by timestamp asc`, table)

	bars := []*models.Bar{}
	if err := db.SelectContext(ctx, &bars, cmd, symbol, interval, start.UnixMilli(), end.UnixMilli()); err != nil {
		return nil, &DataError{Source: cfg.Host, Reason: err.Error()}
	}
	if len(bars) == 0 {
		return nil, &DataError{
			Source: cfg.Host,
			Reason: fmt.Sprintf("no %s bars for %s between %s and %s",
				interval, symbol, start.Format("2006-01-02"), end.Format("2006-01-02")),
		}
	}
	return bars, nil
}
