package database

import (
	"fmt"
	"log/slog"
)

func (db *DB) RunMigrations() error {
	slog.Info("Running database migrations...")

	migrations := []string{
		createBusinessesTable,
		createServicesTable,
		createAppointmentsTable,
		createEventsTable,
		createOccupantsTable,
		createPaymentsTable,
		createReceiptsTable,
		createAppointmentsWindowIndex,
		createPaymentsTransactionIndex,
		seedCatalog,
	}

	for i, migration := range migrations {
		slog.Info("Running migration", "step", i+1)
		if _, err := db.Exec(migration); err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}

	slog.Info("All migrations completed successfully")
	return nil
}

const createBusinessesTable = `
CREATE TABLE IF NOT EXISTS businesses (
    id SERIAL PRIMARY KEY,
    name VARCHAR(255) NOT NULL,
    lead_time_min INTEGER NOT NULL DEFAULT 60,
    horizon_days INTEGER NOT NULL DEFAULT 90,
    open_minute INTEGER NOT NULL DEFAULT 540,
    close_minute INTEGER NOT NULL DEFAULT 1080,
    payee_account_id VARCHAR(255),
    created_at TIMESTAMP NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMP NOT NULL DEFAULT NOW()
);`

const createServicesTable = `
CREATE TABLE IF NOT EXISTS services (
    id VARCHAR(100) PRIMARY KEY,
    display_name VARCHAR(255) NOT NULL,
    duration_minutes INTEGER NOT NULL CHECK (duration_minutes > 0),
    price_cents BIGINT NOT NULL CHECK (price_cents >= 0),
    currency VARCHAR(3) NOT NULL DEFAULT 'ILS',
    created_at TIMESTAMP NOT NULL DEFAULT NOW()
);`

const createAppointmentsTable = `
CREATE EXTENSION IF NOT EXISTS "uuid-ossp";
CREATE TABLE IF NOT EXISTS appointments (
    id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
    business_id INTEGER NOT NULL REFERENCES businesses(id) ON DELETE CASCADE,
    service_id VARCHAR(100) NOT NULL REFERENCES services(id),
    customer_name VARCHAR(255) NOT NULL,
    customer_email VARCHAR(255),
    customer_phone VARCHAR(50),
    starts_at TIMESTAMP NOT NULL,
    ends_at TIMESTAMP NOT NULL,
    status VARCHAR(20) NOT NULL DEFAULT 'pending',
    created_at TIMESTAMP NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMP NOT NULL DEFAULT NOW(),

    CHECK (starts_at < ends_at),
    CHECK (status IN ('pending', 'confirmed', 'cancelled'))
);`

const createEventsTable = `
CREATE TABLE IF NOT EXISTS events (
    id SERIAL PRIMARY KEY,
    business_id INTEGER NOT NULL REFERENCES businesses(id) ON DELETE CASCADE,
    title VARCHAR(500) NOT NULL,
    description TEXT,
    service_id VARCHAR(100) REFERENCES services(id),
    starts_at TIMESTAMP NOT NULL,
    capacity INTEGER NOT NULL CHECK (capacity > 0),
    occupant_count INTEGER NOT NULL DEFAULT 0,
    created_at TIMESTAMP NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMP NOT NULL DEFAULT NOW(),

    CHECK (occupant_count >= 0),
    CHECK (occupant_count <= capacity)
);`

const createOccupantsTable = `
CREATE TABLE IF NOT EXISTS occupants (
    id SERIAL PRIMARY KEY,
    event_id INTEGER NOT NULL REFERENCES events(id) ON DELETE CASCADE,
    customer_name VARCHAR(255) NOT NULL,
    customer_email VARCHAR(255),
    customer_phone VARCHAR(50),
    status VARCHAR(20) NOT NULL DEFAULT 'pending-payment',
    created_at TIMESTAMP NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMP NOT NULL DEFAULT NOW(),

    CHECK (status IN ('pending-payment', 'free', 'confirmed', 'cancelled'))
);`

const createPaymentsTable = `
CREATE TABLE IF NOT EXISTS payments (
    id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
    reservation_kind VARCHAR(20) NOT NULL,
    reservation_id VARCHAR(100) NOT NULL,
    amount_cents BIGINT NOT NULL CHECK (amount_cents >= 0),
    currency VARCHAR(3) NOT NULL,
    status VARCHAR(20) NOT NULL DEFAULT 'pending',
    method VARCHAR(20) NOT NULL DEFAULT 'gateway',
    order_id VARCHAR(100),
    gateway_transaction_id VARCHAR(255),
    platform_fee_cents BIGINT NOT NULL DEFAULT 0,
    payee_account_id VARCHAR(255),
    refund_reason TEXT,
    created_at TIMESTAMP NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMP NOT NULL DEFAULT NOW(),

    CHECK (reservation_kind IN ('appointment', 'event')),
    CHECK (status IN ('pending', 'processing', 'completed', 'failed', 'cancelled', 'refunded')),
    CHECK (method IN ('gateway', 'cash', 'bank-transfer', 'bit'))
);`

const createReceiptsTable = `
CREATE TABLE IF NOT EXISTS receipts (
    id SERIAL PRIMARY KEY,
    payment_id UUID NOT NULL UNIQUE REFERENCES payments(id),
    number VARCHAR(50) NOT NULL UNIQUE,
    amount_cents BIGINT NOT NULL,
    currency VARCHAR(3) NOT NULL,
    issued_at TIMESTAMP NOT NULL DEFAULT NOW()
);`

const createAppointmentsWindowIndex = `
CREATE INDEX IF NOT EXISTS appointments_business_window_idx
ON appointments (business_id, starts_at)
WHERE status IN ('pending', 'confirmed');`

const createPaymentsTransactionIndex = `
CREATE INDEX IF NOT EXISTS payments_gateway_transaction_idx
ON payments (gateway_transaction_id);`

const seedCatalog = `
INSERT INTO services (id, display_name, duration_minutes, price_cents, currency)
VALUES
    ('consultation', 'Consultation', 30, 15000, 'ILS'),
    ('treatment', 'Treatment', 60, 30000, 'ILS'),
    ('followup', 'Follow-up visit', 15, 8000, 'ILS')
ON CONFLICT (id) DO NOTHING;`
