package db

import (
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog/log"
)

// Connect initializes the database connection and runs migrations.
func Connect(dsn string) (*sqlx.DB, error) {
	database, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect db: %w", err)
	}

	if err := runMigrations(database); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return database, nil
}

func runMigrations(database *sqlx.DB) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS rooms (
            id BIGSERIAL PRIMARY KEY,
            last_message_id BIGINT
        );`,
		`CREATE TABLE IF NOT EXISTS messages (
            id BIGSERIAL PRIMARY KEY,
            room_id BIGINT REFERENCES rooms(id) ON DELETE CASCADE,
            author_id BIGINT NOT NULL,
            body TEXT NOT NULL,
            hidden BOOLEAN NOT NULL DEFAULT FALSE,
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
        );`,
		`CREATE INDEX IF NOT EXISTS idx_messages_room ON messages (room_id, hidden, id);`,
		`CREATE TABLE IF NOT EXISTS memberships (
            user_id BIGINT NOT NULL,
            room_id BIGINT NOT NULL REFERENCES rooms(id) ON DELETE CASCADE,
            last_seen_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
            unread_count INT NOT NULL DEFAULT 0 CHECK (unread_count >= 0),
            PRIMARY KEY (user_id, room_id)
        );`,
		`CREATE INDEX IF NOT EXISTS idx_memberships_room ON memberships (room_id);`,
		`CREATE TABLE IF NOT EXISTS ignores (
            user_id BIGINT NOT NULL,
            target_id BIGINT NOT NULL CHECK (target_id <> user_id),
            PRIMARY KEY (user_id, target_id)
        );`,
	}

	for _, m := range migrations {
		if _, err := database.Exec(m); err != nil {
			return err
		}
	}
	log.Info().Msg("database migrations applied")
	return nil
}
