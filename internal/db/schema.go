package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Statements are ordered so that foreign keys resolve. The partial unique
// index on appointments is the storage-level backstop for double booking:
// even if the Redis lock is unavailable, two concurrent bookings of the same
// (doctor, date, slot start) cannot both land while one of them still holds
// the slot.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS hospitals (
		id          uuid PRIMARY KEY,
		name        text NOT NULL,
		city        text NOT NULL,
		state       text NOT NULL,
		phone       text NOT NULL,
		email       text,
		facilities  text[] NOT NULL DEFAULT '{}',
		created_at  timestamptz NOT NULL DEFAULT now(),
		updated_at  timestamptz NOT NULL DEFAULT now()
	)`,

	`CREATE TABLE IF NOT EXISTS patients (
		id          uuid PRIMARY KEY,
		name        text NOT NULL,
		email       text NOT NULL,
		phone       text,
		created_at  timestamptz NOT NULL DEFAULT now(),
		updated_at  timestamptz NOT NULL DEFAULT now()
	)`,

	`CREATE TABLE IF NOT EXISTS doctors (
		id               uuid PRIMARY KEY,
		user_name        text NOT NULL,
		email            text NOT NULL,
		specialization   text NOT NULL,
		qualifications   text[] NOT NULL DEFAULT '{}',
		experience_years int NOT NULL DEFAULT 0,
		consultation_fee numeric(10,2) NOT NULL,
		hospital_id      uuid REFERENCES hospitals(id),
		rating           numeric(3,2) NOT NULL DEFAULT 0,
		review_count     int NOT NULL DEFAULT 0,
		approved         boolean NOT NULL DEFAULT false,
		created_at       timestamptz NOT NULL DEFAULT now(),
		updated_at       timestamptz NOT NULL DEFAULT now()
	)`,

	`CREATE TABLE IF NOT EXISTS appointments (
		id               uuid PRIMARY KEY,
		patient_id       uuid NOT NULL REFERENCES patients(id),
		doctor_id        uuid NOT NULL REFERENCES doctors(id),
		hospital_id      uuid REFERENCES hospitals(id),
		appointment_date date NOT NULL,
		slot_start       text NOT NULL,
		slot_end         text NOT NULL,
		status           text NOT NULL DEFAULT 'scheduled',
		reason           text NOT NULL DEFAULT '',
		symptoms         text[] NOT NULL DEFAULT '{}',
		notes            text NOT NULL DEFAULT '',
		prescription     jsonb,
		payment_status   text NOT NULL DEFAULT 'pending',
		amount           numeric(10,2) NOT NULL,
		created_at       timestamptz NOT NULL DEFAULT now(),
		updated_at       timestamptz NOT NULL DEFAULT now()
	)`,

	`CREATE UNIQUE INDEX IF NOT EXISTS appointments_active_slot_uidx
		ON appointments (doctor_id, appointment_date, slot_start)
		WHERE status IN ('scheduled', 'confirmed')`,

	`CREATE INDEX IF NOT EXISTS appointments_patient_idx ON appointments (patient_id)`,
	`CREATE INDEX IF NOT EXISTS appointments_doctor_idx ON appointments (doctor_id)`,

	`CREATE TABLE IF NOT EXISTS bills (
		id               uuid PRIMARY KEY,
		bill_number      text NOT NULL UNIQUE,
		patient_id       uuid NOT NULL REFERENCES patients(id),
		appointment_id   uuid REFERENCES appointments(id),
		items            jsonb NOT NULL DEFAULT '[]',
		consultation_fee numeric(10,2) NOT NULL DEFAULT 0,
		medicines_cost   numeric(10,2) NOT NULL DEFAULT 0,
		tests_cost       numeric(10,2) NOT NULL DEFAULT 0,
		other_charges    numeric(10,2) NOT NULL DEFAULT 0,
		subtotal         numeric(10,2) NOT NULL,
		tax              numeric(10,2) NOT NULL DEFAULT 0,
		discount         numeric(10,2) NOT NULL DEFAULT 0,
		total_amount     numeric(10,2) NOT NULL,
		payment_method   text,
		payment_status   text NOT NULL DEFAULT 'pending',
		paid_amount      numeric(10,2) NOT NULL DEFAULT 0,
		provider_ref     text,
		due_date         timestamptz,
		last_reminded_at timestamptz,
		created_at       timestamptz NOT NULL DEFAULT now(),
		updated_at       timestamptz NOT NULL DEFAULT now()
	)`,

	`CREATE INDEX IF NOT EXISTS bills_patient_idx ON bills (patient_id)`,

	`CREATE TABLE IF NOT EXISTS reviews (
		id         uuid PRIMARY KEY,
		doctor_id  uuid NOT NULL REFERENCES doctors(id),
		patient_id uuid NOT NULL REFERENCES patients(id),
		rating     int NOT NULL CHECK (rating BETWEEN 1 AND 5),
		comment    text NOT NULL DEFAULT '',
		created_at timestamptz NOT NULL DEFAULT now(),
		UNIQUE (doctor_id, patient_id)
	)`,
}

// Migrate applies the schema. Statements are idempotent so it is safe to run
// on every startup.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	for _, stmt := range schemaStatements {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema statement: %w", err)
		}
	}
	return nil
}
