package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"

	"cryptosentry/internal/model"
)

const schema = `
CREATE TABLE IF NOT EXISTS price_samples (
	asset     TEXT    NOT NULL,
	timestamp INTEGER NOT NULL,
	price     REAL    NOT NULL,
	PRIMARY KEY (asset, timestamp)
);

CREATE TABLE IF NOT EXISTS funding_samples (
	asset     TEXT    NOT NULL,
	timestamp INTEGER NOT NULL,
	rate      REAL    NOT NULL,
	PRIMARY KEY (asset, timestamp)
);

CREATE TABLE IF NOT EXISTS fear_greed_samples (
	timestamp INTEGER PRIMARY KEY,
	value     INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS long_short_samples (
	asset     TEXT    NOT NULL,
	timestamp INTEGER NOT NULL,
	ratio     REAL    NOT NULL,
	PRIMARY KEY (asset, timestamp)
);

CREATE TABLE IF NOT EXISTS signals (
	id                  TEXT PRIMARY KEY,
	timestamp           INTEGER NOT NULL,
	asset               TEXT    NOT NULL,
	signal_type         TEXT    NOT NULL,
	strength            TEXT    NOT NULL,
	mode                TEXT    NOT NULL,
	entry_price         REAL    NOT NULL,
	fear_greed          INTEGER NOT NULL,
	conditions          TEXT    NOT NULL,
	max_drawdown        REAL,
	stop_loss_triggered INTEGER,
	resolved            INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS signal_returns (
	signal_id    TEXT    NOT NULL,
	horizon_days INTEGER NOT NULL,
	price        REAL    NOT NULL,
	return_pct   REAL    NOT NULL,
	PRIMARY KEY (signal_id, horizon_days)
);

CREATE INDEX IF NOT EXISTS idx_price_asset_ts ON price_samples(asset, timestamp);
CREATE INDEX IF NOT EXISTS idx_funding_asset_ts ON funding_samples(asset, timestamp);
CREATE INDEX IF NOT EXISTS idx_signal_ts ON signals(timestamp);
CREATE INDEX IF NOT EXISTS idx_signal_asset ON signals(asset, resolved);
`

// SQLite implements Store on a single SQLite file (pure Go driver, no CGo).
type SQLite struct {
	db     *sql.DB
	logger zerolog.Logger
	mu     sync.Mutex
}

// NewSQLite opens (or creates) the database and applies the schema.
func NewSQLite(path string, logger zerolog.Logger) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1) // SQLite is single-writer
	db.SetMaxIdleConns(1)

	// WAL mode for concurrent reads while the bot writes.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	logger.Info().Str("component", "store").Str("path", path).Msg("sqlite store opened")
	return &SQLite{db: db, logger: logger.With().Str("component", "store").Logger()}, nil
}

func (s *SQLite) AppendPrice(ctx context.Context, p model.PriceSample) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO price_samples (asset, timestamp, price) VALUES (?,?,?)`,
		p.Asset, p.Time.Unix(), p.Price)
	return err
}

func (s *SQLite) AppendFunding(ctx context.Context, f model.FundingSample) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO funding_samples (asset, timestamp, rate) VALUES (?,?,?)`,
		f.Asset, f.Time.Unix(), f.Rate)
	return err
}

func (s *SQLite) AppendFearGreed(ctx context.Context, f model.FearGreedSample) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO fear_greed_samples (timestamp, value) VALUES (?,?)`,
		f.Time.Unix(), f.Value)
	return err
}

func (s *SQLite) AppendLongShort(ctx context.Context, l model.LongShortSample) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO long_short_samples (asset, timestamp, ratio) VALUES (?,?,?)`,
		l.Asset, l.Time.Unix(), l.Ratio)
	return err
}

func (s *SQLite) PriceAt(ctx context.Context, asset string, t time.Time) (*model.PriceSample, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT timestamp, price FROM price_samples
		 WHERE asset = ? AND timestamp <= ?
		 ORDER BY timestamp DESC LIMIT 1`, asset, t.Unix())
	return scanPrice(row, asset)
}

func (s *SQLite) PriceAtOrAfter(ctx context.Context, asset string, t time.Time) (*model.PriceSample, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT timestamp, price FROM price_samples
		 WHERE asset = ? AND timestamp >= ?
		 ORDER BY timestamp ASC LIMIT 1`, asset, t.Unix())
	return scanPrice(row, asset)
}

func scanPrice(row *sql.Row, asset string) (*model.PriceSample, error) {
	var ts int64
	var price float64
	if err := row.Scan(&ts, &price); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &model.PriceSample{Asset: asset, Time: time.Unix(ts, 0).UTC(), Price: price}, nil
}

func (s *SQLite) PricesFrom(ctx context.Context, asset string, t time.Time) ([]model.PriceSample, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT timestamp, price FROM price_samples
		 WHERE asset = ? AND timestamp >= ?
		 ORDER BY timestamp ASC`, asset, t.Unix())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.PriceSample
	for rows.Next() {
		var ts int64
		var price float64
		if err := rows.Scan(&ts, &price); err != nil {
			return nil, err
		}
		out = append(out, model.PriceSample{Asset: asset, Time: time.Unix(ts, 0).UTC(), Price: price})
	}
	return out, rows.Err()
}

func (s *SQLite) RecentPrices(ctx context.Context, asset string, n int) ([]model.PriceSample, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT timestamp, price FROM (
			SELECT timestamp, price FROM price_samples
			WHERE asset = ? ORDER BY timestamp DESC LIMIT ?
		 ) ORDER BY timestamp ASC`, asset, n)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.PriceSample
	for rows.Next() {
		var ts int64
		var price float64
		if err := rows.Scan(&ts, &price); err != nil {
			return nil, err
		}
		out = append(out, model.PriceSample{Asset: asset, Time: time.Unix(ts, 0).UTC(), Price: price})
	}
	return out, rows.Err()
}

func (s *SQLite) RecentFearGreed(ctx context.Context, n int) ([]model.FearGreedSample, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT timestamp, value FROM (
			SELECT timestamp, value FROM fear_greed_samples
			ORDER BY timestamp DESC LIMIT ?
		 ) ORDER BY timestamp ASC`, n)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.FearGreedSample
	for rows.Next() {
		var ts int64
		var value int
		if err := rows.Scan(&ts, &value); err != nil {
			return nil, err
		}
		out = append(out, model.FearGreedSample{Time: time.Unix(ts, 0).UTC(), Value: value})
	}
	return out, rows.Err()
}

func (s *SQLite) FundingSince(ctx context.Context, asset string, t time.Time) ([]float64, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT rate FROM funding_samples
		 WHERE asset = ? AND timestamp >= ?
		 ORDER BY timestamp ASC`, asset, t.Unix())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []float64
	for rows.Next() {
		var rate float64
		if err := rows.Scan(&rate); err != nil {
			return nil, err
		}
		out = append(out, rate)
	}
	return out, rows.Err()
}

func (s *SQLite) InsertSignal(ctx context.Context, sig *model.Signal) error {
	conditions, err := json.Marshal(sig.Conditions)
	if err != nil {
		return fmt.Errorf("marshal conditions: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO signals (id, timestamp, asset, signal_type, strength, mode, entry_price, fear_greed, conditions)
		 VALUES (?,?,?,?,?,?,?,?,?)`,
		sig.ID, sig.Time.Unix(), sig.Asset, string(sig.Type), string(sig.Strength),
		string(sig.Mode), sig.EntryPrice, sig.FearGreed, string(conditions))
	return err
}

func (s *SQLite) HasOpenSignal(ctx context.Context, asset string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM signals
		 WHERE asset = ? AND signal_type = ? AND resolved = 0`,
		asset, string(model.SignalBuy)).Scan(&n)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *SQLite) UnresolvedSignals(ctx context.Context, olderThan time.Time) ([]*model.Signal, error) {
	return s.querySignals(ctx,
		`SELECT id, timestamp, asset, signal_type, strength, mode, entry_price, fear_greed,
		        conditions, max_drawdown, stop_loss_triggered, resolved
		 FROM signals WHERE resolved = 0 AND timestamp <= ?
		 ORDER BY timestamp ASC`, olderThan.Unix())
}

func (s *SQLite) ResolvedSignals(ctx context.Context) ([]*model.Signal, error) {
	return s.querySignals(ctx,
		`SELECT id, timestamp, asset, signal_type, strength, mode, entry_price, fear_greed,
		        conditions, max_drawdown, stop_loss_triggered, resolved
		 FROM signals WHERE resolved = 1
		 ORDER BY timestamp ASC`)
}

func (s *SQLite) querySignals(ctx context.Context, query string, args ...any) ([]*model.Signal, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.Signal
	for rows.Next() {
		sig, err := scanSignal(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sig)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for _, sig := range out {
		if err := s.loadReturns(ctx, sig); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func scanSignal(rows *sql.Rows) (*model.Signal, error) {
	var (
		sig        model.Signal
		ts         int64
		sigType    string
		strength   string
		mode       string
		conditions string
		maxDD      sql.NullFloat64
		stopped    sql.NullBool
		resolved   int
	)
	err := rows.Scan(&sig.ID, &ts, &sig.Asset, &sigType, &strength, &mode,
		&sig.EntryPrice, &sig.FearGreed, &conditions, &maxDD, &stopped, &resolved)
	if err != nil {
		return nil, err
	}
	sig.Time = time.Unix(ts, 0).UTC()
	sig.Type = model.SignalType(sigType)
	sig.Strength = model.Strength(strength)
	sig.Mode = model.StrategyMode(mode)
	sig.Resolved = resolved != 0
	if err := json.Unmarshal([]byte(conditions), &sig.Conditions); err != nil {
		return nil, fmt.Errorf("unmarshal conditions for signal %s: %w", sig.ID, err)
	}
	if maxDD.Valid {
		v := maxDD.Float64
		sig.MaxDrawdown = &v
	}
	if stopped.Valid {
		v := stopped.Bool
		sig.StopLossTriggered = &v
	}
	return &sig, nil
}

func (s *SQLite) loadReturns(ctx context.Context, sig *model.Signal) error {
	rows, err := s.db.QueryContext(ctx,
		`SELECT horizon_days, price, return_pct FROM signal_returns WHERE signal_id = ?`, sig.ID)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var horizon int
		var hr model.HorizonReturn
		if err := rows.Scan(&horizon, &hr.Price, &hr.Return); err != nil {
			return err
		}
		if sig.Returns == nil {
			sig.Returns = make(map[int]*model.HorizonReturn)
		}
		sig.Returns[horizon] = &hr
	}
	return rows.Err()
}

// FillHorizon is idempotent: INSERT OR IGNORE leaves an existing fill
// untouched, so a concurrent or repeated backtest run is a safe no-op.
func (s *SQLite) FillHorizon(ctx context.Context, signalID string, horizonDays int, hr model.HorizonReturn) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	res, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO signal_returns (signal_id, horizon_days, price, return_pct)
		 VALUES (?,?,?,?)`, signalID, horizonDays, hr.Price, hr.Return)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if n == 0 {
		s.logger.Debug().Str("signal", signalID).Int("horizon", horizonDays).
			Msg("horizon already filled, skipping")
		return false, nil
	}
	return true, nil
}

// FinalizeSignal keeps already-set fields via COALESCE, so a repeated
// finalize never overwrites the first result.
func (s *SQLite) FinalizeSignal(ctx context.Context, signalID string, maxDrawdown float64, stopLossTriggered bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stopped := 0
	if stopLossTriggered {
		stopped = 1
	}
	_, err := s.db.ExecContext(ctx,
		`UPDATE signals SET
			max_drawdown = COALESCE(max_drawdown, ?),
			stop_loss_triggered = COALESCE(stop_loss_triggered, ?),
			resolved = 1
		 WHERE id = ?`, maxDrawdown, stopped, signalID)
	return err
}

func (s *SQLite) Close() error {
	s.logger.Info().Msg("closing sqlite store")
	return s.db.Close()
}
