package repository

import (
	"context"
	"database/sql"
	"time"

	"latemate_console/internal/models"
)

type Authorization interface {
	Create(username, hash string) (int, error)
	GetByUsername(username string) (*models.Operator, error)
}

// MeasurementRepo is the append-only history of completed measurements.
type MeasurementRepo interface {
	Append(ctx context.Context, rec models.MeasurementRecord) error
	List(ctx context.Context, from, to time.Time, scenarioKey string) ([]models.MeasurementRecord, error)
}

// CalibrationRepo keeps the last located sensor position.
type CalibrationRepo interface {
	Save(ctx context.Context, res models.CalibrationResult) error
	Load(ctx context.Context) (*models.CalibrationResult, error)
}

type Repository struct {
	Measurements MeasurementRepo
	Calibration  CalibrationRepo
	Auth         Authorization
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{
		Measurements: NewMeasurementSQLite(db),
		Calibration:  NewCalibrationSQLite(db),
		Auth:         NewOperatorRepository(db),
	}
}
