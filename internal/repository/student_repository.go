package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/edupulse/result-notify-service/internal/domain"
)

// StudentRepository reads the student registry owned by the results
// service. Only the queries this notifier needs live here.
type StudentRepository struct {
	db *sqlx.DB
}

func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

// GetWithUnpublishedResults joins students to their unpublished result rows.
func (r *StudentRepository) GetWithUnpublishedResults(ctx context.Context) ([]domain.StudentWithResult, error) {
	query := `
		SELECT s.id, s.first_name, s.last_name, s.phone_number,
		       res.id AS result_id, res.session, res.score, res.cgpa
		FROM students s
		INNER JOIN results res ON res.student_id = s.id
		WHERE res.published = 0
		ORDER BY s.last_name ASC, s.first_name ASC
	`

	var rows []domain.StudentWithResult
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("failed to get students with unpublished results: %w", err)
	}

	return rows, nil
}

func (r *StudentRepository) GetByIDs(ctx context.Context, ids []string) ([]domain.Student, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	query, args, err := sqlx.In(
		"SELECT id, first_name, last_name, phone_number FROM students WHERE id IN (?)",
		ids,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to build student query: %w", err)
	}

	var students []domain.Student
	if err := r.db.SelectContext(ctx, &students, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("failed to get students by ids: %w", err)
	}

	return students, nil
}

// MarkResultsPublished flips the published flag for the given result rows.
func (r *StudentRepository) MarkResultsPublished(ctx context.Context, resultIDs []int64) (int64, error) {
	if len(resultIDs) == 0 {
		return 0, nil
	}

	query, args, err := sqlx.In(`
		UPDATE results
		SET published = 1, published_at = CURRENT_TIMESTAMP
		WHERE id IN (?) AND published = 0
	`, resultIDs)
	if err != nil {
		return 0, fmt.Errorf("failed to build publish query: %w", err)
	}

	result, err := r.db.ExecContext(ctx, r.db.Rebind(query), args...)
	if err != nil {
		return 0, fmt.Errorf("failed to mark results published: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get affected rows: %w", err)
	}

	return rows, nil
}
