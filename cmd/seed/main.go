// Seeds a local database with the users and customers an import run resolves
// against. Safe to re-run; every insert is an upsert.
package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		log.Fatal("DATABASE_URL is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		log.Fatalf("connect db: %v", err)
	}
	defer pool.Close()

	tx, err := pool.Begin(ctx)
	if err != nil {
		log.Fatalf("begin tx: %v", err)
	}
	defer tx.Rollback(ctx)

	users := []struct {
		email    string
		fullName string
	}{
		{"ana.silva@luma.local", "Ana Silva"},
		{"ben.okafor@luma.local", "Ben Okafor"},
		{"carla.mendes@luma.local", "Carla Mendes"},
	}
	for _, user := range users {
		if _, err := tx.Exec(ctx, `
			INSERT INTO users (email, full_name)
			VALUES ($1, $2)
			ON CONFLICT (email) DO UPDATE SET full_name = EXCLUDED.full_name
		`, user.email, user.fullName); err != nil {
			log.Fatalf("upsert user %s: %v", user.email, err)
		}
	}

	customers := []struct {
		name  string
		email string
	}{
		{"Acme Logistics", "billing@acme-logistics.test"},
		{"Globex Retail", "accounts@globex-retail.test"},
		{"Initech Software", ""},
	}
	for _, customer := range customers {
		var email *string
		if customer.email != "" {
			email = &customer.email
		}
		if _, err := tx.Exec(ctx, `
			INSERT INTO customers (name, email)
			VALUES ($1, $2)
			ON CONFLICT (name) DO UPDATE SET email = EXCLUDED.email
		`, customer.name, email); err != nil {
			log.Fatalf("upsert customer %s: %v", customer.name, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		log.Fatalf("commit: %v", err)
	}

	log.Printf("seeded %d users and %d customers", len(users), len(customers))
}
