package recorder

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/phuslu/log"
	_ "modernc.org/sqlite"

	"TrendScreener/internal/model"
)

// SQLiteRecorder persists screening results to a SQLite database.
type SQLiteRecorder struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string) (*SQLiteRecorder, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL so the CLI can read while the daemon writes.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	log.Info().Str("path", dbPath).Msg("sqlite recorder opened")
	return r, nil
}

// DB exposes the handle for health probes.
func (r *SQLiteRecorder) DB() *sql.DB { return r.db }

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS screening_records (
			symbol               TEXT NOT NULL,
			date                 TEXT NOT NULL,
			current_price        REAL,
			ma20                 REAL,
			ma50                 REAL,
			ma150                REAL,
			ma200                REAL,
			price_above_ma150    INTEGER,
			ma150_above_ma200    INTEGER,
			ma200_trending_up    INTEGER,
			ma50_above_ma150     INTEGER,
			price_above_ma50     INTEGER,
			above_low_52w        INTEGER,
			near_high_52w        INTEGER,
			relative_strength_up INTEGER,
			rsi_in_range         INTEGER,
			volume_above_average INTEGER,
			macd_bullish         INTEGER,
			strong_trend         INTEGER,
			price_above_ma20     INTEGER,
			inside_bollinger     INTEGER,
			rsi                  REAL,
			macd                 REAL,
			macd_signal          REAL,
			macd_histogram       REAL,
			adx                  REAL,
			bollinger_upper      REAL,
			bollinger_middle     REAL,
			bollinger_lower      REAL,
			volume               INTEGER,
			volume_average       REAL,
			high_52w             REAL,
			low_52w              REAL,
			relative_strength    REAL,
			passed_criteria      INTEGER NOT NULL,
			total_criteria       INTEGER NOT NULL,
			updated_at           INTEGER NOT NULL,
			PRIMARY KEY (symbol, date)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_screening_date ON screening_records(date)`,

		`CREATE TABLE IF NOT EXISTS signals (
			symbol     TEXT NOT NULL,
			date       TEXT NOT NULL,
			value      INTEGER NOT NULL,
			confidence REAL NOT NULL,
			source     TEXT NOT NULL,
			indicators TEXT,
			updated_at INTEGER NOT NULL,
			PRIMARY KEY (symbol, date)
		)`,

		`CREATE TABLE IF NOT EXISTS runs (
			run_id       TEXT PRIMARY KEY,
			started_at   INTEGER NOT NULL,
			finished_at  INTEGER NOT NULL,
			symbols      INTEGER,
			screened     INTEGER,
			insufficient INTEGER,
			failed       INTEGER,
			using_model  INTEGER
		)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

const screeningColumns = `symbol, date, current_price, ma20, ma50, ma150, ma200,
	price_above_ma150, ma150_above_ma200, ma200_trending_up, ma50_above_ma150,
	price_above_ma50, above_low_52w, near_high_52w, relative_strength_up,
	rsi_in_range, volume_above_average, macd_bullish, strong_trend,
	price_above_ma20, inside_bollinger,
	rsi, macd, macd_signal, macd_histogram, adx,
	bollinger_upper, bollinger_middle, bollinger_lower,
	volume, volume_average, high_52w, low_52w, relative_strength,
	passed_criteria, total_criteria`

func (r *SQLiteRecorder) UpsertScreeningRecord(ctx context.Context, rec *model.ScreeningRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	c := rec.Criteria
	var rs sql.NullFloat64
	if rec.RelativeStrength != nil {
		rs = sql.NullFloat64{Float64: *rec.RelativeStrength, Valid: true}
	}
	_, err := r.db.ExecContext(ctx, `INSERT INTO screening_records (`+screeningColumns+`, updated_at)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)
		ON CONFLICT(symbol, date) DO UPDATE SET
			current_price = excluded.current_price,
			ma20 = excluded.ma20, ma50 = excluded.ma50, ma150 = excluded.ma150, ma200 = excluded.ma200,
			price_above_ma150 = excluded.price_above_ma150,
			ma150_above_ma200 = excluded.ma150_above_ma200,
			ma200_trending_up = excluded.ma200_trending_up,
			ma50_above_ma150 = excluded.ma50_above_ma150,
			price_above_ma50 = excluded.price_above_ma50,
			above_low_52w = excluded.above_low_52w,
			near_high_52w = excluded.near_high_52w,
			relative_strength_up = excluded.relative_strength_up,
			rsi_in_range = excluded.rsi_in_range,
			volume_above_average = excluded.volume_above_average,
			macd_bullish = excluded.macd_bullish,
			strong_trend = excluded.strong_trend,
			price_above_ma20 = excluded.price_above_ma20,
			inside_bollinger = excluded.inside_bollinger,
			rsi = excluded.rsi, macd = excluded.macd, macd_signal = excluded.macd_signal,
			macd_histogram = excluded.macd_histogram, adx = excluded.adx,
			bollinger_upper = excluded.bollinger_upper,
			bollinger_middle = excluded.bollinger_middle,
			bollinger_lower = excluded.bollinger_lower,
			volume = excluded.volume, volume_average = excluded.volume_average,
			high_52w = excluded.high_52w, low_52w = excluded.low_52w,
			relative_strength = excluded.relative_strength,
			passed_criteria = excluded.passed_criteria,
			total_criteria = excluded.total_criteria,
			updated_at = excluded.updated_at`,
		rec.Symbol, rec.Date.Format(model.DateLayout), rec.CurrentPrice,
		rec.MA20, rec.MA50, rec.MA150, rec.MA200,
		c.PriceAboveMA150, c.MA150AboveMA200, c.MA200TrendingUp, c.MA50AboveMA150,
		c.PriceAboveMA50, c.AboveLow52w, c.NearHigh52w, c.RelativeStrengthUp,
		c.RSIInRange, c.VolumeAboveAverage, c.MACDBullish, c.StrongTrend,
		c.PriceAboveMA20, c.InsideBollinger,
		rec.RSI, rec.MACD, rec.MACDSignal, rec.MACDHistogram, rec.ADX,
		rec.BollingerUpper, rec.BollingerMiddle, rec.BollingerLower,
		rec.Volume, rec.VolumeAverage, rec.High52w, rec.Low52w, rs,
		rec.PassedCriteria, rec.TotalCriteria,
		time.Now().Unix(),
	)
	return err
}

func (r *SQLiteRecorder) UpsertSignal(ctx context.Context, sig *model.Signal) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	ind, err := json.Marshal(sig.Indicators)
	if err != nil {
		return fmt.Errorf("encode indicators: %w", err)
	}
	_, err = r.db.ExecContext(ctx, `INSERT INTO signals
		(symbol, date, value, confidence, source, indicators, updated_at)
		VALUES (?,?,?,?,?,?,?)
		ON CONFLICT(symbol, date) DO UPDATE SET
			value = excluded.value,
			confidence = excluded.confidence,
			source = excluded.source,
			indicators = excluded.indicators,
			updated_at = excluded.updated_at`,
		sig.Symbol, sig.Date.Format(model.DateLayout), int(sig.Value), sig.Confidence,
		string(sig.Source), string(ind), time.Now().Unix(),
	)
	return err
}

func (r *SQLiteRecorder) RecordRun(ctx context.Context, run *RunSummary) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.ExecContext(ctx, `INSERT OR REPLACE INTO runs
		(run_id, started_at, finished_at, symbols, screened, insufficient, failed, using_model)
		VALUES (?,?,?,?,?,?,?,?)`,
		run.RunID, run.StartedAt.Unix(), run.FinishedAt.Unix(),
		run.Symbols, run.Screened, run.Insufficient, run.Failed, run.UsingModel,
	)
	return err
}

func (r *SQLiteRecorder) LatestScreeningRecords(ctx context.Context) ([]*model.ScreeningRecord, error) {
	return r.queryRecords(ctx, `SELECT `+screeningColumns+` FROM screening_records s
		WHERE date = (SELECT MAX(date) FROM screening_records WHERE symbol = s.symbol)
		ORDER BY symbol`)
}

func (r *SQLiteRecorder) ScreeningRecords(ctx context.Context, date time.Time) ([]*model.ScreeningRecord, error) {
	return r.queryRecords(ctx, `SELECT `+screeningColumns+` FROM screening_records
		WHERE date = ? ORDER BY symbol`, date.Format(model.DateLayout))
}

func (r *SQLiteRecorder) queryRecords(ctx context.Context, query string, args ...any) ([]*model.ScreeningRecord, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.ScreeningRecord
	for rows.Next() {
		var (
			rec  model.ScreeningRecord
			date string
			rs   sql.NullFloat64
		)
		c := &rec.Criteria
		if err := rows.Scan(
			&rec.Symbol, &date, &rec.CurrentPrice,
			&rec.MA20, &rec.MA50, &rec.MA150, &rec.MA200,
			&c.PriceAboveMA150, &c.MA150AboveMA200, &c.MA200TrendingUp, &c.MA50AboveMA150,
			&c.PriceAboveMA50, &c.AboveLow52w, &c.NearHigh52w, &c.RelativeStrengthUp,
			&c.RSIInRange, &c.VolumeAboveAverage, &c.MACDBullish, &c.StrongTrend,
			&c.PriceAboveMA20, &c.InsideBollinger,
			&rec.RSI, &rec.MACD, &rec.MACDSignal, &rec.MACDHistogram, &rec.ADX,
			&rec.BollingerUpper, &rec.BollingerMiddle, &rec.BollingerLower,
			&rec.Volume, &rec.VolumeAverage, &rec.High52w, &rec.Low52w, &rs,
			&rec.PassedCriteria, &rec.TotalCriteria,
		); err != nil {
			return nil, fmt.Errorf("scan screening record: %w", err)
		}
		if rec.Date, err = time.Parse(model.DateLayout, date); err != nil {
			return nil, fmt.Errorf("parse date %q: %w", date, err)
		}
		if rs.Valid {
			v := rs.Float64
			rec.RelativeStrength = &v
		}
		out = append(out, &rec)
	}
	return out, rows.Err()
}

func (r *SQLiteRecorder) LatestSignal(ctx context.Context, symbol string) (*model.Signal, error) {
	var (
		sig    model.Signal
		date   string
		value  int
		source string
		ind    sql.NullString
	)
	err := r.db.QueryRowContext(ctx, `SELECT symbol, date, value, confidence, source, indicators
		FROM signals WHERE symbol = ? ORDER BY date DESC LIMIT 1`, symbol).
		Scan(&sig.Symbol, &date, &value, &sig.Confidence, &source, &ind)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if sig.Date, err = time.Parse(model.DateLayout, date); err != nil {
		return nil, fmt.Errorf("parse date %q: %w", date, err)
	}
	sig.Value = model.SignalValue(value)
	sig.Source = model.SignalSource(source)
	if ind.Valid && ind.String != "" {
		if err := json.Unmarshal([]byte(ind.String), &sig.Indicators); err != nil {
			return nil, fmt.Errorf("decode indicators: %w", err)
		}
	}
	return &sig, nil
}

func (r *SQLiteRecorder) Close() error {
	log.Info().Msg("closing sqlite recorder")
	return r.db.Close()
}
