package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/couchcryptid/flood-risk-service/internal/domain"
)

type sqliteStore struct {
	db *sql.DB
}

// NewSQLite opens (or creates) the SQLite database at dsn. An empty dsn
// defaults to a local file next to the binary.
func NewSQLite(dsn string) (Store, error) {
	if strings.TrimSpace(dsn) == "" {
		dsn = "flood.db"
	}
	db, err := sql.Open("sqlite", "file:"+dsn+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, err
	}
	return &sqliteStore{db: db}, nil
}

func (s *sqliteStore) Init(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS risk_records (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			ts TEXT NOT NULL,
			lat REAL NOT NULL,
			lng REAL NOT NULL,
			rainfall REAL NOT NULL,
			water_level REAL NOT NULL,
			soil_moisture REAL NOT NULL,
			source_rainfall TEXT NOT NULL,
			source_water_level TEXT NOT NULL,
			source_soil_moisture TEXT NOT NULL,
			prediction INTEGER NOT NULL,
			risk_level TEXT NOT NULL,
			sent_alert INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE INDEX IF NOT EXISTS idx_risk_records_ts ON risk_records(ts)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}
	return nil
}

func (s *sqliteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *sqliteStore) Save(ctx context.Context, rec domain.RiskRecord) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO risk_records (
			ts, lat, lng,
			rainfall, water_level, soil_moisture,
			source_rainfall, source_water_level, source_soil_moisture,
			prediction, risk_level, sent_alert
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.Timestamp.UTC().Format(time.RFC3339Nano),
		rec.Location.Lat,
		rec.Location.Lng,
		rec.Rainfall,
		rec.WaterLevel,
		rec.SoilMoisture,
		rec.DataSource.Rainfall,
		rec.DataSource.WaterLevel,
		rec.DataSource.SoilMoisture,
		rec.Prediction,
		rec.RiskLevel,
		boolToInt(rec.SentAlert),
	)
	if err != nil {
		return 0, fmt.Errorf("save record: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("save record: %w", err)
	}
	return id, nil
}

func (s *sqliteStore) UpdateSentAlert(ctx context.Context, id int64, sent bool) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE risk_records SET sent_alert = ? WHERE id = ?`, boolToInt(sent), id)
	if err != nil {
		return fmt.Errorf("update sent_alert: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update sent_alert: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("update sent_alert: no record with id %d", id)
	}
	return nil
}

func (s *sqliteStore) Latest(ctx context.Context) (*domain.RiskRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, ts, lat, lng,
			rainfall, water_level, soil_moisture,
			source_rainfall, source_water_level, source_soil_moisture,
			prediction, risk_level, sent_alert
		FROM risk_records ORDER BY id DESC LIMIT 1`)

	var (
		rec       domain.RiskRecord
		ts        string
		sentAlert int
	)
	err := row.Scan(
		&rec.ID, &ts, &rec.Location.Lat, &rec.Location.Lng,
		&rec.Rainfall, &rec.WaterLevel, &rec.SoilMoisture,
		&rec.DataSource.Rainfall, &rec.DataSource.WaterLevel, &rec.DataSource.SoilMoisture,
		&rec.Prediction, &rec.RiskLevel, &sentAlert,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest record: %w", err)
	}

	rec.Timestamp, err = time.Parse(time.RFC3339Nano, ts)
	if err != nil {
		return nil, fmt.Errorf("latest record: parse ts %q: %w", ts, err)
	}
	rec.SentAlert = sentAlert != 0
	return &rec, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
