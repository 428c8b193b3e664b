// Package journal persists completed runs to a local SQLite file so
// successive parameter tweaks can be compared without an external
// reporting stack.
package journal

import (
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3" // sqlite driver

	"github.com/raftroch1/0dte-sub000/models"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	run_id          TEXT PRIMARY KEY,
	symbol          TEXT NOT NULL,
	start           TEXT NOT NULL,
	"end"           TEXT NOT NULL,
	seed            INTEGER NOT NULL,
	initial_balance REAL NOT NULL,
	final_balance   REAL NOT NULL,
	total_return    REAL NOT NULL,
	max_drawdown    REAL NOT NULL,
	sharpe          REAL NOT NULL,
	sortino         REAL NOT NULL,
	win_rate        REAL NOT NULL,
	profit_factor   REAL NOT NULL,
	trades          INTEGER NOT NULL,
	created_at      TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS trades (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id       TEXT NOT NULL REFERENCES runs(run_id),
	position_id  TEXT NOT NULL,
	description  TEXT NOT NULL,
	opened_at    TEXT NOT NULL,
	closed_at    TEXT NOT NULL,
	quantity     INTEGER NOT NULL,
	entry_price  REAL NOT NULL,
	exit_price   REAL NOT NULL,
	realized_pnl REAL NOT NULL,
	commissions  REAL NOT NULL,
	close_reason TEXT NOT NULL,
	note         TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS trades_run_idx ON trades(run_id);
`

// RunRow is one persisted run summary.
type RunRow struct {
	RunID          string  `db:"run_id"`
	Symbol         string  `db:"symbol"`
	Start          string  `db:"start"`
	End            string  `db:"end"`
	Seed           int64   `db:"seed"`
	InitialBalance float64 `db:"initial_balance"`
	FinalBalance   float64 `db:"final_balance"`
	TotalReturn    float64 `db:"total_return"`
	MaxDrawdown    float64 `db:"max_drawdown"`
	Sharpe         float64 `db:"sharpe"`
	Sortino        float64 `db:"sortino"`
	WinRate        float64 `db:"win_rate"`
	ProfitFactor   float64 `db:"profit_factor"`
	Trades         int     `db:"trades"`
	CreatedAt      string  `db:"created_at"`
}

// Journal wraps the SQLite handle.
type Journal struct {
	db *sqlx.DB
}

// Open connects to (or creates) the journal file and ensures the schema.
func Open(path string) (*Journal, error) {
	db, err := sqlx.Connect("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open journal %s: %w", path, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure journal schema: %w", err)
	}
	return &Journal{db: db}, nil
}

func (j *Journal) Close() error {
	return j.db.Close()
}

// SaveResult writes the run summary and every trade in one transaction.
func (j *Journal) SaveResult(res *models.Result) error {
	tx, err := j.db.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.Exec(`INSERT INTO runs
		(run_id, symbol, start, "end", seed, initial_balance, final_balance,
		 total_return, max_drawdown, sharpe, sortino, win_rate, profit_factor,
		 trades, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		res.RunID, res.Symbol,
		res.Start.UTC().Format(time.RFC3339), res.End.UTC().Format(time.RFC3339),
		res.Seed, res.InitialBalance, res.FinalBalance,
		res.TotalReturn, res.MaxDrawdown, res.Sharpe, res.Sortino,
		res.WinRate, res.ProfitFactor, len(res.Trades),
		time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("insert run %s: %w", res.RunID, err)
	}

	stmt, err := tx.Prepare(`INSERT INTO trades
		(run_id, position_id, description, opened_at, closed_at, quantity,
		 entry_price, exit_price, realized_pnl, commissions, close_reason, note)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, tr := range res.Trades {
		if _, err := stmt.Exec(res.RunID, tr.PositionID, tr.Description,
			tr.OpenedAt.UTC().Format(time.RFC3339), tr.ClosedAt.UTC().Format(time.RFC3339),
			tr.Quantity, tr.EntryPrice, tr.ExitPrice, tr.RealizedPnL,
			tr.Commissions, tr.CloseReason, tr.Note); err != nil {
			return fmt.Errorf("insert trade %s: %w", tr.PositionID, err)
		}
	}
	return tx.Commit()
}

// Runs lists persisted run summaries, newest first.
func (j *Journal) Runs() ([]RunRow, error) {
	rows := []RunRow{}
	err := j.db.Select(&rows, `SELECT * FROM runs ORDER BY created_at DESC, run_id`)
	return rows, err
}

// TradesFor returns the persisted trade log of one run in booking order.
func (j *Journal) TradesFor(runID string) ([]models.TradeRecord, error) {
	type row struct {
		PositionID  string  `db:"position_id"`
		Description string  `db:"description"`
		OpenedAt    string  `db:"opened_at"`
		ClosedAt    string  `db:"closed_at"`
		Quantity    int     `db:"quantity"`
		EntryPrice  float64 `db:"entry_price"`
		ExitPrice   float64 `db:"exit_price"`
		RealizedPnL float64 `db:"realized_pnl"`
		Commissions float64 `db:"commissions"`
		CloseReason string  `db:"close_reason"`
		Note        string  `db:"note"`
	}
	rows := []row{}
	err := j.db.Select(&rows, `SELECT position_id, description, opened_at, closed_at,
		quantity, entry_price, exit_price, realized_pnl, commissions, close_reason, note
		FROM trades WHERE run_id = ? ORDER BY id`, runID)
	if err != nil {
		return nil, err
	}
	trades := make([]models.TradeRecord, 0, len(rows))
	for _, r := range rows {
		opened, err := time.Parse(time.RFC3339, r.OpenedAt)
		if err != nil {
			return nil, fmt.Errorf("trade %s opened_at: %w", r.PositionID, err)
		}
		closed, err := time.Parse(time.RFC3339, r.ClosedAt)
		if err != nil {
			return nil, fmt.Errorf("trade %s closed_at: %w", r.PositionID, err)
		}
		trades = append(trades, models.TradeRecord{
			PositionID:  r.PositionID,
			Description: r.Description,
			OpenedAt:    opened,
			ClosedAt:    closed,
			Quantity:    r.Quantity,
			EntryPrice:  r.EntryPrice,
			ExitPrice:   r.ExitPrice,
			RealizedPnL: r.RealizedPnL,
			Commissions: r.Commissions,
			CloseReason: r.CloseReason,
			Note:        r.Note,
		})
	}
	return trades, nil
}
