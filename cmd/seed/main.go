package main

import (
	"database/sql"
	"fmt"
	"log"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"

	"github.com/mpetrenko/contacts-api/config"
	"github.com/mpetrenko/contacts-api/pkg/helpers"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	db, err := sql.Open("pgx", cfg.PostgresDSN())
	if err != nil {
		log.Fatalf("failed to open db: %v", err)
	}
	defer func() { _ = db.Close() }()

	email := "demo@example.com"
	password := "password123"
	hash, err := helpers.HashPassword(password)
	if err != nil {
		log.Fatalf("failed to hash password: %v", err)
	}

	var id int64
	err = db.QueryRow(`
		INSERT INTO users (email, password, confirmed)
		VALUES ($1, $2, true)
		ON CONFLICT (email) DO UPDATE SET confirmed = true
		RETURNING id
	`, email, hash).Scan(&id)
	if err != nil {
		log.Fatalf("failed to seed user: %v", err)
	}
	fmt.Printf("seeded user: id=%d email=%s password=%s (already confirmed)\n", id, email, password)

	contacts := []struct {
		first, last, email, phone, birthday, info string
	}{
		{"Ada", "Lovelace", "ada@example.com", "+442071234567", "1815-12-10", "likes analytical engines"},
		{"Grace", "Hopper", "grace@example.com", "+12025550101", "1906-12-09", "COBOL"},
		{"Linus", "Torvalds", "linus@example.com", "+358401234567", "1969-12-28", ""},
	}
	for _, c := range contacts {
		if _, err := db.Exec(`
			INSERT INTO contacts (first_name, last_name, email, phone, birthday, additional_info, user_id)
			SELECT $1, $2, $3, $4, $5::date, $6, $7
			WHERE NOT EXISTS (
				SELECT 1 FROM contacts WHERE email = $3 AND user_id = $7
			)
		`, c.first, c.last, c.email, c.phone, c.birthday, c.info, id); err != nil {
			log.Fatalf("failed to seed contact %s: %v", c.email, err)
		}
	}
	fmt.Printf("seeded %d contacts for user %d\n", len(contacts), id)
}
