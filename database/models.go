// Package database provides database connection management for the flashsell market analysis engine.
//
// This package includes:
//   - Database connection management using GORM and PostgreSQL
//   - Schema initialisation for analysis and hot product tables
//   - Comprehensive error handling and validation
//
// Key Concepts:
//   - market_analyses holds at most one row per (category, time range, day)
//   - hot_products holds one ranking partition per (day, category), retained for 7 days
//   - products, product_daily_sales and product_hot_scores are written by the ingestion
//     pipeline and only read here
//
// Data Models:
//
//	All data models (MarketAnalysis, HotProductScore, ...) are defined in the models_pkg package
//	to avoid circular import dependencies.
package database

import (
	"fmt"
	"strconv"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	models "flashsell-engine/database/models_pkg"
	"flashsell-engine/logging"
)

// Database holds the GORM database connection and provides access to the underlying DB instance.
// It serves as the central connection point for all database operations in the application.
type Database struct {
	db *gorm.DB
}

// DB returns the underlying GORM database instance for direct access when needed.
func (d *Database) DB() *gorm.DB {
	return d.db
}

// Connect establishes database connection using GORM
func Connect(cfg Config) (*Database, error) {
	if _, err := strconv.Atoi(cfg.Port); err != nil {
		return nil, NewValidationErrorWithValue("port", "must be numeric", cfg.Port)
	}

	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent), // Silent logging for production
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return &Database{db: db}, nil
}

// Close closes the database connection
func (d *Database) Close() error {
	sqlDB, err := d.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// InitSchema creates the upstream snapshot tables if missing and migrates the owned tables
func (d *Database) InitSchema() error {
	logging.Info().Msg("starting database schema initialization")

	// Snapshot tables belong to the ingestion pipeline; create them so a fresh
	// database is queryable, never alter them.
	for _, stmt := range snapshotTables {
		if err := d.db.Exec(stmt).Error; err != nil {
			return WrapDBError("InitSchema", err)
		}
	}

	if err := d.db.AutoMigrate(
		&models.MarketAnalysis{},
		&models.HotProductScore{},
	); err != nil {
		return WrapDBError("AutoMigrate", err)
	}

	logging.Info().Msg("database schema initialized")
	return nil
}

var snapshotTables = []string{
	`CREATE TABLE IF NOT EXISTS products (
		id BIGSERIAL PRIMARY KEY,
		asin VARCHAR(20) NOT NULL UNIQUE,
		category_id BIGINT NOT NULL,
		title TEXT,
		price NUMERIC(12,2),
		bsr_rank BIGINT,
		review_count BIGINT,
		rating DOUBLE PRECISION,
		competition_score DOUBLE PRECISION,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		last_updated TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_products_category ON products (category_id)`,
	`CREATE INDEX IF NOT EXISTS idx_products_category_created ON products (category_id, created_at)`,
	`CREATE TABLE IF NOT EXISTS product_daily_sales (
		product_id BIGINT NOT NULL,
		category_id BIGINT NOT NULL,
		sales_date DATE NOT NULL,
		sales_volume BIGINT NOT NULL DEFAULT 0,
		PRIMARY KEY (product_id, sales_date)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_product_daily_sales_category ON product_daily_sales (category_id, sales_date)`,
	`CREATE TABLE IF NOT EXISTS product_hot_scores (
		product_id BIGINT NOT NULL,
		category_id BIGINT NOT NULL,
		score_date DATE NOT NULL,
		hot_score NUMERIC(5,2) NOT NULL,
		PRIMARY KEY (product_id, score_date)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_product_hot_scores_category ON product_hot_scores (category_id, score_date)`,
}
