package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"latemate_console/internal/models"

	"github.com/google/uuid"
)

type MeasurementSQLite struct {
	db *sql.DB
}

func NewMeasurementSQLite(db *sql.DB) *MeasurementSQLite { return &MeasurementSQLite{db: db} }

var _ MeasurementRepo = (*MeasurementSQLite)(nil)

const insertMeasurementSQL = `
		INSERT INTO measurements (id, recorded_at, scenario_key, duration_ms, max_light_level, change_us, series)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

const selectMeasurementsSQL = `SELECT id, recorded_at, scenario_key, duration_ms, max_light_level, change_us, series FROM measurements`

// Append inserts a record. Missing ID or RecordedAt are filled in.
func (r *MeasurementSQLite) Append(ctx context.Context, rec models.MeasurementRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.RecordedAt.IsZero() {
		rec.RecordedAt = time.Now().UTC()
	} else {
		rec.RecordedAt = rec.RecordedAt.UTC()
	}

	series, err := json.Marshal(rec.Series)
	if err != nil {
		return fmt.Errorf("marshal series: %w", err)
	}

	var change any
	if rec.ChangeUS != nil {
		change = int64(*rec.ChangeUS)
	}

	_, err = r.db.ExecContext(ctx, insertMeasurementSQL,
		rec.ID,
		rec.RecordedAt.Format("2006-01-02 15:04:05.000"),
		rec.ScenarioKey,
		rec.DurationMS,
		int64(rec.MaxLightLevel),
		change,
		string(series),
	)
	if err != nil {
		return fmt.Errorf("insert measurement %s: %w", rec.ID, err)
	}
	return nil
}

// List returns records within [from, to] and/or for one scenario, oldest first.
func (r *MeasurementSQLite) List(ctx context.Context, from, to time.Time, scenarioKey string) ([]models.MeasurementRecord, error) {
	var (
		conds []string
		args  []any
	)

	if !from.IsZero() {
		conds = append(conds, "recorded_at >= ?")
		args = append(args, from.UTC())
	}
	if !to.IsZero() {
		conds = append(conds, "recorded_at <= ?")
		args = append(args, to.UTC())
	}
	if scenarioKey = strings.TrimSpace(scenarioKey); scenarioKey != "" {
		conds = append(conds, "scenario_key = ?")
		args = append(args, scenarioKey)
	}

	q := selectMeasurementsSQL
	if len(conds) > 0 {
		q += " WHERE " + strings.Join(conds, " AND ")
	}
	q += " ORDER BY recorded_at ASC"

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]models.MeasurementRecord, 0, 64)
	for rows.Next() {
		var (
			rec    models.MeasurementRecord
			maxLvl int64
			change sql.NullInt64
			series sql.NullString
		)
		if err := rows.Scan(&rec.ID, &rec.RecordedAt, &rec.ScenarioKey, &rec.DurationMS, &maxLvl, &change, &series); err != nil {
			return nil, err
		}
		rec.RecordedAt = rec.RecordedAt.UTC()
		rec.MaxLightLevel = uint32(maxLvl)
		if change.Valid {
			v := uint32(change.Int64)
			rec.ChangeUS = &v
		}
		if series.Valid && series.String != "" {
			if err := json.Unmarshal([]byte(series.String), &rec.Series); err != nil {
				return nil, fmt.Errorf("decode series of %s: %w", rec.ID, err)
			}
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
