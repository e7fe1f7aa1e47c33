package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/hackgods/healthcare-booking/internal/db"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("seed starting")

	dsn := os.Getenv("POSTGRES_DSN")
	if dsn == "" {
		log.Fatal("POSTGRES_DSN is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := db.ConnectPostgres(ctx, dsn)
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pool.Close()

	if err := db.Migrate(context.Background(), pool); err != nil {
		log.Fatalf("migrate schema: %v", err)
	}

	gofakeit.Seed(time.Now().UnixNano())

	hospitalIDs, err := seedHospitals(context.Background(), pool, 20)
	if err != nil {
		log.Fatalf("seed hospitals: %v", err)
	}
	if err := seedDoctors(context.Background(), pool, 100, hospitalIDs); err != nil {
		log.Fatalf("seed doctors: %v", err)
	}
	if err := seedPatients(context.Background(), pool, 9000); err != nil {
		log.Fatalf("seed patients: %v", err)
	}

	log.Println("seed complete")
}

func seedHospitals(ctx context.Context, pool *pgxpool.Pool, count int) ([]uuid.UUID, error) {
	log.Printf("seeding %d hospitals", count)

	facilities := []string{
		"Emergency",
		"ICU",
		"Pharmacy",
		"Radiology",
		"Pathology Lab",
		"Operation Theatre",
		"Blood Bank",
		"Ambulance",
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	ids := make([]uuid.UUID, 0, count)
	for i := 0; i < count; i++ {
		id := uuid.New()
		name := gofakeit.Company() + " Hospital"
		city := gofakeit.City()
		state := gofakeit.State()
		phone := gofakeit.Phone()
		email := gofakeit.Email()

		n := gofakeit.Number(2, len(facilities))
		picked := facilities[:n]

		_, err := tx.Exec(ctx, `
			INSERT INTO hospitals (id, name, city, state, phone, email, facilities, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, now(), now())
		`, id, name, city, state, phone, email, picked)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	log.Println("hospitals seeded")
	return ids, nil
}

func seedDoctors(ctx context.Context, pool *pgxpool.Pool, count int, hospitalIDs []uuid.UUID) error {
	log.Printf("seeding %d doctors", count)

	specializations := []string{
		"Dermatology",
		"Cardiology",
		"General Practice",
		"Orthopedics",
		"Endocrinology",
		"Neurology",
		"Pediatrics",
		"Psychiatry",
		"Ophthalmology",
		"ENT",
	}
	qualifications := []string{"MBBS", "MD", "MS", "DM", "DNB", "MCh"}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for i := 0; i < count; i++ {
		id := uuid.New()
		name := gofakeit.Name()
		email := gofakeit.Email()
		spec := specializations[gofakeit.Number(0, len(specializations)-1)]
		quals := []string{"MBBS", qualifications[gofakeit.Number(1, len(qualifications)-1)]}
		years := gofakeit.Number(1, 35)
		fee := decimal.NewFromInt(int64(gofakeit.Number(3, 30) * 100))
		hospitalID := hospitalIDs[gofakeit.Number(0, len(hospitalIDs)-1)]

		_, err := tx.Exec(ctx, `
			INSERT INTO doctors (id, user_name, email, specialization, qualifications,
				experience_years, consultation_fee, hospital_id, approved, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, true, now(), now())
		`, id, name, email, spec, quals, years, fee, hospitalID)
		if err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}

	log.Println("doctors seeded")
	return nil
}

func seedPatients(ctx context.Context, pool *pgxpool.Pool, count int) error {
	log.Printf("seeding %d patients", count)

	const batchSize = 500

	for offset := 0; offset < count; offset += batchSize {
		end := offset + batchSize
		if end > count {
			end = count
		}

		tx, err := pool.Begin(ctx)
		if err != nil {
			return err
		}

		for i := offset; i < end; i++ {
			id := uuid.New()
			name := gofakeit.Name()
			email := fmt.Sprintf("%d.%s", i, gofakeit.Email())
			phone := gofakeit.Phone()

			_, err := tx.Exec(ctx, `
				INSERT INTO patients (id, name, email, phone, created_at, updated_at)
				VALUES ($1, $2, $3, $4, now(), now())
			`, id, name, email, phone)
			if err != nil {
				_ = tx.Rollback(ctx)
				return err
			}
		}

		if err := tx.Commit(ctx); err != nil {
			return err
		}

		log.Printf("patients seeded: %d/%d", end, count)
	}

	log.Println("patients seeded")
	return nil
}
