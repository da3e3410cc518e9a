package database

import (
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"

	"github.com/edupulse/result-notify-service/environments"
	"github.com/edupulse/result-notify-service/pkg/logger"
)

func NewMySQLDB(cfg environments.DatabaseConfig) (*sqlx.DB, error) {
	dsn := fmt.Sprintf(
		"%s:%s@tcp(%s:%s)/%s?parseTime=true&charset=utf8mb4&collation=utf8mb4_unicode_ci",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.DBName,
	)

	db, err := sqlx.Connect("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Infof("Connected to MySQL database")
	return db, nil
}

func RunMigrations(db *sqlx.DB) error {
	schemas := []string{
		`CREATE TABLE IF NOT EXISTS students (
			id VARCHAR(36) PRIMARY KEY,
			first_name VARCHAR(100) NOT NULL,
			last_name VARCHAR(100) NOT NULL,
			phone_number VARCHAR(20) NOT NULL,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci;`,

		`CREATE TABLE IF NOT EXISTS results (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			student_id VARCHAR(36) NOT NULL,
			session VARCHAR(20) NOT NULL,
			score DECIMAL(5,2) NOT NULL DEFAULT 0,
			cgpa DECIMAL(3,2) NOT NULL DEFAULT 0,
			published TINYINT(1) NOT NULL DEFAULT 0,
			published_at DATETIME,
			INDEX idx_results_student_id (student_id),
			INDEX idx_results_published (published)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci;`,

		`CREATE TABLE IF NOT EXISTS delivery_records (
			id VARCHAR(36) PRIMARY KEY,
			recipient_id VARCHAR(36) NOT NULL,
			phone_number VARCHAR(20) NOT NULL,
			message VARCHAR(160) NOT NULL,
			context_ref VARCHAR(120) NOT NULL,
			status VARCHAR(20) NOT NULL DEFAULT 'pending',
			attempts INT NOT NULL DEFAULT 1,
			last_attempt_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			error_message TEXT,
			gateway_message_id VARCHAR(100),
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
			UNIQUE KEY uq_delivery_recipient_context (recipient_id, context_ref),
			INDEX idx_delivery_status (status),
			INDEX idx_delivery_recipient (recipient_id)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci;`,
	}

	for _, schema := range schemas {
		if _, err := db.Exec(schema); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	logger.Infof("Database migrations completed")
	return nil
}

func SeedTestData(db *sqlx.DB) error {
	var count int
	if err := db.Get(&count, "SELECT COUNT(*) FROM students"); err != nil {
		return err
	}

	if count > 0 {
		logger.Infof("Database already has %d students, skipping seed", count)
		return nil
	}

	students := []struct {
		id, firstName, lastName, phone string
		score, cgpa                    float64
	}{
		{"stu-001", "Adaeze", "Okafor", "08031111111", 72.5, 4.21},
		{"stu-002", "Babatunde", "Adeyemi", "07062222222", 65.0, 3.80},
		{"stu-003", "Chinedu", "Eze", "09093333333", 58.25, 3.42},
		{"stu-004", "Folake", "Balogun", "08154444444", 81.0, 4.65},
		{"stu-005", "Ibrahim", "Musa", "07085555555", 47.5, 2.95},
	}

	for _, s := range students {
		if _, err := db.Exec(
			"INSERT INTO students (id, first_name, last_name, phone_number) VALUES (?, ?, ?, ?)",
			s.id, s.firstName, s.lastName, s.phone,
		); err != nil {
			return fmt.Errorf("failed to seed students: %w", err)
		}

		if _, err := db.Exec(
			"INSERT INTO results (student_id, session, score, cgpa, published) VALUES (?, '2024/2025', ?, ?, 0)",
			s.id, s.score, s.cgpa,
		); err != nil {
			return fmt.Errorf("failed to seed results: %w", err)
		}
	}

	logger.Infof("Seeded %d students with unpublished results", len(students))
	return nil
}
