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

	"github.com/23f3000163/healnest/internal/db"
)

const (
	doctorCount  = 25
	patientCount = 500
	horizonDays  = 7
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

	gofakeit.Seed(time.Now().UnixNano())

	doctors, err := seedUsers(context.Background(), pool, "doctor", doctorCount)
	if err != nil {
		log.Fatalf("seed doctors: %v", err)
	}
	if _, err := seedUsers(context.Background(), pool, "patient", patientCount); err != nil {
		log.Fatalf("seed patients: %v", err)
	}
	if err := seedAvailability(context.Background(), pool, doctors); err != nil {
		log.Fatalf("seed availability: %v", err)
	}

	log.Printf("seeded %d doctors, %d patients, availability for the next %d days", doctorCount, patientCount, horizonDays)
}

func seedUsers(ctx context.Context, pool *pgxpool.Pool, role string, n int) ([]uuid.UUID, error) {
	ids := make([]uuid.UUID, 0, n)
	for i := 0; i < n; i++ {
		id := uuid.New()
		name := gofakeit.Name()
		email := fmt.Sprintf("%s.%d@%s", gofakeit.Username(), i, gofakeit.DomainName())

		_, err := pool.Exec(ctx, `
			INSERT INTO users (id, email, full_name, role, created_at, updated_at)
			VALUES ($1, $2, $3, $4, now(), now())
		`, id, email, name, role)
		if err != nil {
			return nil, fmt.Errorf("insert %s %d: %w", role, i, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// seedAvailability gives each doctor a morning and, usually, an evening
// window for every day of the coming week.
func seedAvailability(ctx context.Context, pool *pgxpool.Pool, doctors []uuid.UUID) error {
	today := time.Now().UTC().Truncate(24 * time.Hour)

	for _, doctorID := range doctors {
		for day := 0; day < horizonDays; day++ {
			date := today.AddDate(0, 0, day)

			if err := insertWindow(ctx, pool, doctorID, date, "08:00:00", "12:00:00"); err != nil {
				return err
			}
			if gofakeit.Bool() {
				if err := insertWindow(ctx, pool, doctorID, date, "16:00:00", "21:00:00"); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func insertWindow(ctx context.Context, pool *pgxpool.Pool, doctorID uuid.UUID, date time.Time, start, end string) error {
	_, err := pool.Exec(ctx, `
		INSERT INTO availability_windows (id, doctor_id, available_date, start_time, end_time, created_at)
		VALUES ($1, $2, $3, $4::time, $5::time, now())
	`, uuid.New(), doctorID, date, start, end)
	if err != nil {
		return fmt.Errorf("insert window for %s on %s: %w", doctorID, date.Format("2006-01-02"), err)
	}
	return nil
}
