package config

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// DBConfig holds database connection parameters
type DBConfig struct {
	DSN             string
	MaxConns        int32 // 0 keeps the pgxpool default
	ConnectAttempts int
	RetryInterval   time.Duration
}

// LoadDBConfig reads DB_* variables. DB_PASSWORD may be empty.
func LoadDBConfig() (*DBConfig, error) {
	required := []string{"DB_HOST", "DB_PORT", "DB_USER", "DB_NAME"}
	var missing []string
	for _, key := range required {
		if os.Getenv(key) == "" {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("database environment variables not set: %s", strings.Join(missing, ", "))
	}

	cfg := &DBConfig{
		DSN: fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
			os.Getenv("DB_HOST"), os.Getenv("DB_PORT"), os.Getenv("DB_USER"),
			os.Getenv("DB_PASSWORD"), os.Getenv("DB_NAME"), getenv("DB_SSLMODE", "disable")),
		ConnectAttempts: 5,
		RetryInterval:   5 * time.Second,
	}
	if raw := os.Getenv("DB_MAX_CONNS"); raw != "" {
		n, err := strconv.ParseInt(raw, 10, 32)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("invalid DB_MAX_CONNS %q", raw)
		}
		cfg.MaxConns = int32(n)
	}
	return cfg, nil
}

// ConnectDB opens a pool and pings it, retrying while the database starts up.
func ConnectDB(ctx context.Context, cfg *DBConfig, log zerolog.Logger) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse database DSN: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}

	attempts := max(cfg.ConnectAttempts, 1)
	for attempt := 1; ; attempt++ {
		var pool *pgxpool.Pool
		pool, err = pgxpool.NewWithConfig(ctx, poolCfg)
		if err == nil {
			if err = pool.Ping(ctx); err == nil {
				log.Info().Int32("max_conns", poolCfg.MaxConns).Msg("connected to PostgreSQL")
				return pool, nil
			}
			pool.Close()
		}
		if attempt == attempts {
			break
		}
		log.Warn().Err(err).
			Int("attempt", attempt).
			Int("max_attempts", attempts).
			Dur("retry_in", cfg.RetryInterval).
			Msg("database connection failed")
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(cfg.RetryInterval):
		}
	}
	return nil, fmt.Errorf("unable to connect to database after %d attempts: %w", attempts, err)
}

// Execer is the part of a pool AutoMigrate needs.
type Execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// AutoMigrate creates tables if they don't exist
func AutoMigrate(ctx context.Context, db Execer, log zerolog.Logger) error {
	if _, err := db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("unable to apply migrations: %w", err)
	}
	log.Info().Msg("schema migration applied")
	return nil
}

const schema = `
	CREATE TABLE IF NOT EXISTS users (
		id SERIAL PRIMARY KEY,
		phone TEXT UNIQUE NOT NULL,
		password_hash TEXT NOT NULL,
		role TEXT NOT NULL CHECK (role IN ('user', 'admin')) DEFAULT 'user',
		created_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS wallets (
		id BIGSERIAL PRIMARY KEY,
		user_id BIGINT NOT NULL,
		name VARCHAR(100) NOT NULL,
		type VARCHAR(20) NOT NULL CHECK (type IN ('cash', 'credit')),
		balance NUMERIC(14, 2) NOT NULL DEFAULT 0, -- initial debt for credit wallets, never changed by payments
		credit_limit NUMERIC(14, 2),
		billing_date SMALLINT CHECK (billing_date BETWEEN 1 AND 31),
		due_date_duration INTEGER CHECK (due_date_duration >= 0),
		last_billing_date TIMESTAMP WITH TIME ZONE,
		last_billed_amount NUMERIC(14, 2),
		due_date TIMESTAMP WITH TIME ZONE,
		created_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
	);

	-- archived payments were consumed by a statement; they stay for billing history
	CREATE TABLE IF NOT EXISTS wallet_payments (
		id UUID PRIMARY KEY,
		wallet_id BIGINT NOT NULL,
		amount NUMERIC(14, 2) NOT NULL CHECK (amount > 0),
		paid_at TIMESTAMP WITH TIME ZONE NOT NULL,
		billing_cycle_date TIMESTAMP WITH TIME ZONE,
		source_wallet_id BIGINT,
		description TEXT NOT NULL DEFAULT '',
		archived BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (wallet_id) REFERENCES wallets(id) ON DELETE CASCADE,
		FOREIGN KEY (source_wallet_id) REFERENCES wallets(id) ON DELETE SET NULL
	);

	CREATE TABLE IF NOT EXISTS transactions (
		id BIGSERIAL PRIMARY KEY,
		user_id BIGINT NOT NULL,
		wallet_id BIGINT NOT NULL,
		amount NUMERIC(14, 2) NOT NULL CHECK (amount >= 0),
		type VARCHAR(50) NOT NULL CHECK (type IN ('income', 'expense', 'transfer')),
		category VARCHAR(100) NOT NULL,
		tag VARCHAR(100),
		description TEXT,
		transaction_date TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT CURRENT_TIMESTAMP,
		is_transfer BOOLEAN NOT NULL DEFAULT FALSE,
		transfer_type VARCHAR(30) CHECK (transfer_type IN ('source_debit', 'destination_credit', 'interest')),
		payment_id UUID,
		receipt_path TEXT, -- stores relative path to the uploaded file
		created_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE,
		FOREIGN KEY (wallet_id) REFERENCES wallets(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_wallets_user_id ON wallets(user_id);
	CREATE INDEX IF NOT EXISTS idx_wallet_payments_wallet_id ON wallet_payments(wallet_id);
	CREATE INDEX IF NOT EXISTS idx_transactions_user_id ON transactions(user_id);
	CREATE INDEX IF NOT EXISTS idx_transactions_wallet_id ON transactions(wallet_id);
	CREATE INDEX IF NOT EXISTS idx_transactions_type ON transactions(type);
	CREATE INDEX IF NOT EXISTS idx_transactions_category ON transactions(category);
	CREATE INDEX IF NOT EXISTS idx_transactions_transaction_date ON transactions(transaction_date);

    -- keeps updated_at current on every UPDATE
    CREATE OR REPLACE FUNCTION update_updated_at_column()
    RETURNS TRIGGER AS $$
    BEGIN
       NEW.updated_at = NOW();
       RETURN NEW;
    END;
    $$ language 'plpgsql';

    DO $$
    BEGIN
        IF NOT EXISTS (
            SELECT 1 FROM pg_trigger
            WHERE tgname = 'set_transactions_updated_at' AND tgrelid = 'transactions'::regclass
        ) THEN
            CREATE TRIGGER set_transactions_updated_at
            BEFORE UPDATE ON transactions
            FOR EACH ROW
            EXECUTE FUNCTION update_updated_at_column();
        END IF;
        IF NOT EXISTS (
            SELECT 1 FROM pg_trigger
            WHERE tgname = 'set_wallets_updated_at' AND tgrelid = 'wallets'::regclass
        ) THEN
            CREATE TRIGGER set_wallets_updated_at
            BEFORE UPDATE ON wallets
            FOR EACH ROW
            EXECUTE FUNCTION update_updated_at_column();
        END IF;
    END
    $$;
	`
