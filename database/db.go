package database

import (
	"database/sql"
	"fmt"
	"os"
	"time"

	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

func InitDB(logger *zap.Logger) (*sql.DB, error) {
	host := getEnv("DB_HOST", "localhost")
	port := getEnv("DB_PORT", "5432")
	user := getEnv("DB_USER", "postgres")
	password := getEnv("DB_PASSWORD", "postgres")
	dbname := getEnv("DB_NAME", "watchstore")

	psqlInfo := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		host, port, user, password, dbname)

	db, err := sql.Open("postgres", psqlInfo)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(1 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := createSchema(db); err != nil {
		return nil, err
	}

	logger.Info("Database connection established")
	return db, nil
}

func createSchema(db *sql.DB) error {
	// order_items.product_id is intentionally not a foreign key: items keep a
	// denormalized snapshot and must survive catalog deletions.
	schema := `
	CREATE TABLE IF NOT EXISTS brands (
		id SERIAL PRIMARY KEY,
		name VARCHAR(255) UNIQUE NOT NULL,
		country VARCHAR(100),
		founded_year INT,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS products (
		id SERIAL PRIMARY KEY,
		brand_id INT REFERENCES brands(id),
		name VARCHAR(255) NOT NULL,
		reference_number VARCHAR(100) NOT NULL,
		description TEXT,
		price DECIMAL(12,2) NOT NULL,
		stock_quantity INT NOT NULL DEFAULT 0 CHECK (stock_quantity >= 0),
		image_url TEXT,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS users (
		id SERIAL PRIMARY KEY,
		name VARCHAR(255) NOT NULL,
		email VARCHAR(255) UNIQUE NOT NULL,
		password_hash VARCHAR(255) NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS orders (
		id SERIAL PRIMARY KEY,
		order_number VARCHAR(64) UNIQUE NOT NULL,
		user_id INT NOT NULL REFERENCES users(id),
		status VARCHAR(20) NOT NULL DEFAULT 'pending',
		payment_status VARCHAR(20) NOT NULL DEFAULT 'pending',
		payment_method VARCHAR(50) NOT NULL DEFAULT 'card',
		shipping_method VARCHAR(20) NOT NULL DEFAULT 'standard',
		subtotal DECIMAL(12,2) NOT NULL,
		tax_amount DECIMAL(12,2) NOT NULL,
		shipping_amount DECIMAL(12,2) NOT NULL,
		discount_amount DECIMAL(12,2) NOT NULL,
		total_amount DECIMAL(12,2) NOT NULL,
		currency VARCHAR(3) NOT NULL DEFAULT 'USD',
		tracking_number VARCHAR(100),
		notes TEXT,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		shipped_at TIMESTAMP,
		delivered_at TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS order_items (
		id SERIAL PRIMARY KEY,
		order_id INT NOT NULL REFERENCES orders(id),
		product_id INT NOT NULL,
		product_name VARCHAR(255) NOT NULL,
		brand_name VARCHAR(255),
		reference_number VARCHAR(100),
		image_url TEXT,
		quantity INT NOT NULL CHECK (quantity > 0),
		unit_price DECIMAL(12,2) NOT NULL,
		total_price DECIMAL(12,2) NOT NULL
	);

	CREATE TABLE IF NOT EXISTS order_addresses (
		id SERIAL PRIMARY KEY,
		order_id INT NOT NULL REFERENCES orders(id),
		address_type VARCHAR(10) NOT NULL CHECK (address_type IN ('shipping', 'billing')),
		first_name VARCHAR(100) NOT NULL,
		last_name VARCHAR(100) NOT NULL,
		company VARCHAR(255),
		address_line_1 VARCHAR(255) NOT NULL,
		address_line_2 VARCHAR(255),
		city VARCHAR(100) NOT NULL,
		state VARCHAR(100) NOT NULL,
		postal_code VARCHAR(20) NOT NULL,
		country VARCHAR(100) NOT NULL,
		phone VARCHAR(30)
	);

	CREATE INDEX IF NOT EXISTS idx_orders_user_id ON orders(user_id);
	CREATE INDEX IF NOT EXISTS idx_order_items_order_id ON order_items(order_id);
	CREATE INDEX IF NOT EXISTS idx_order_addresses_order_id ON order_addresses(order_id);
	`

	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
