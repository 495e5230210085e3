package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id {uuid} PRIMARY KEY,
		name TEXT NOT NULL,
		email TEXT NOT NULL DEFAULT '',
		role TEXT NOT NULL,
		created_at {ts} NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS caregiver_links (
		caregiver_id {uuid} NOT NULL REFERENCES users(id),
		patient_id {uuid} NOT NULL REFERENCES users(id),
		created_at {ts} NOT NULL,
		PRIMARY KEY (caregiver_id, patient_id)
	)`,
	`CREATE TABLE IF NOT EXISTS medications (
		id {uuid} PRIMARY KEY,
		patient_id {uuid} NOT NULL,
		name TEXT NOT NULL,
		rxcui TEXT,
		form TEXT NOT NULL DEFAULT 'pill',
		dose_amount DOUBLE PRECISION NOT NULL,
		dose_unit TEXT NOT NULL DEFAULT 'mg',
		frequency_hours DOUBLE PRECISION NOT NULL,
		half_life_hours DOUBLE PRECISION NOT NULL DEFAULT 6,
		current_stock DOUBLE PRECISION NOT NULL DEFAULT 0,
		stock_threshold DOUBLE PRECISION NOT NULL DEFAULT 5,
		next_dose_time {ts},
		active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at {ts} NOT NULL,
		updated_at {ts} NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_medications_patient ON medications (patient_id, active)`,
	`CREATE INDEX IF NOT EXISTS idx_medications_next_dose ON medications (next_dose_time)`,
	`CREATE TABLE IF NOT EXISTS dose_logs (
		id {uuid} PRIMARY KEY,
		medication_id {uuid} NOT NULL REFERENCES medications(id),
		scheduled_time {ts} NOT NULL,
		taken_time {ts},
		status TEXT NOT NULL,
		notes TEXT NOT NULL DEFAULT '',
		created_at {ts} NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_dose_logs_medication ON dose_logs (medication_id, status, scheduled_time)`,
	`CREATE TABLE IF NOT EXISTS alerts (
		id {uuid} PRIMARY KEY,
		user_id {uuid} NOT NULL,
		medication_id {uuid},
		type TEXT NOT NULL,
		severity TEXT NOT NULL,
		title TEXT NOT NULL,
		message TEXT NOT NULL,
		is_read BOOLEAN NOT NULL DEFAULT FALSE,
		created_at {ts} NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_alerts_user ON alerts (user_id, is_read, created_at)`,
}

// Migrate creates the schema if it does not exist yet.
func Migrate(ctx context.Context, db *sqlx.DB) error {
	uuidType, tsType := "UUID", "TIMESTAMPTZ"
	if db.DriverName() != "postgres" {
		uuidType, tsType = "TEXT", "TIMESTAMP"
	}
	r := strings.NewReplacer("{uuid}", uuidType, "{ts}", tsType)

	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, r.Replace(stmt)); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	return nil
}
