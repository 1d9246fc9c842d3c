package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"latemate_console/internal/models"
)

type CalibrationSQLite struct {
	db *sql.DB
}

func NewCalibrationSQLite(db *sql.DB) *CalibrationSQLite {
	return &CalibrationSQLite{db: db}
}

var _ CalibrationRepo = (*CalibrationSQLite)(nil)

const (
	calibrationRowID = 1

	upsertCalibrationSQL = `
		INSERT INTO calibration (id, x, y, width, height, found_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			x=excluded.x,
			y=excluded.y,
			width=excluded.width,
			height=excluded.height,
			found_at=excluded.found_at
	`

	selectCalibrationSQL = `
		SELECT x, y, width, height, found_at
		FROM calibration WHERE id=?
	`
)

// Save replaces the single calibration row.
func (r *CalibrationSQLite) Save(ctx context.Context, res models.CalibrationResult) error {
	ts := res.FoundAt
	if ts.IsZero() {
		ts = time.Now().UTC()
	} else {
		ts = ts.UTC()
	}
	_, err := r.db.ExecContext(ctx, upsertCalibrationSQL,
		calibrationRowID,
		res.X,
		res.Y,
		res.Width,
		res.Height,
		ts,
	)
	return err
}

// Load returns the stored calibration, or nil when none was saved yet.
func (r *CalibrationSQLite) Load(ctx context.Context) (*models.CalibrationResult, error) {
	row := r.db.QueryRowContext(ctx, selectCalibrationSQL, calibrationRowID)

	var res models.CalibrationResult
	if err := row.Scan(&res.X, &res.Y, &res.Width, &res.Height, &res.FoundAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	res.FoundAt = res.FoundAt.UTC()
	return &res, nil
}
