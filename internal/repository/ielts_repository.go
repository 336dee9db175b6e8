package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/ilham-education/ilham-backend/internal/models"
	"github.com/rs/zerolog"
)

type IELTSRepository interface {
	CreateCourse(ctx context.Context, course *models.IELTSCourse) error
	GetCourse(ctx context.Context, id string) (*models.IELTSCourse, error)
	ListCourses(ctx context.Context, activeOnly bool) ([]models.IELTSCourse, error)
	UpdateCourse(ctx context.Context, course *models.IELTSCourse) error
	DeleteCourse(ctx context.Context, id string) (bool, error)

	Enroll(ctx context.Context, id, studentID, courseID string) error
	CoursesOfStudent(ctx context.Context, studentID string) ([]models.IELTSCourse, error)

	CreateMockTest(ctx context.Context, mock *models.MockTest) error
	ListMockTests(ctx context.Context, courseID string) ([]models.MockTest, error)
	UpcomingMockTests(ctx context.Context, studentID string, from time.Time) ([]models.MockTest, error)
	CountMockTests(ctx context.Context, studentID string) (int, error)

	CreateResult(ctx context.Context, result *models.IELTSResult) error
	ResultsOfStudent(ctx context.Context, studentID string) ([]models.IELTSResult, error)
	AverageOverall(ctx context.Context, studentID string) (float64, int, error)
}

type ieltsRepository struct {
	*PostgresRepository
}

func NewIELTSRepository(db *sql.DB, logger zerolog.Logger) IELTSRepository {
	return &ieltsRepository{
		PostgresRepository: NewPostgresRepository(db, logger),
	}
}

const courseColumns = `
	id, batch_name, COALESCE(instructor, ''), start_date, end_date, COALESCE(description, ''),
	COALESCE(duration, ''), COALESCE(schedule, ''), price, status, created_at
`

func scanCourse(row interface{ Scan(...interface{}) error }) (*models.IELTSCourse, error) {
	c := &models.IELTSCourse{}
	var start, end sql.NullTime
	var price sql.NullFloat64
	err := row.Scan(
		&c.ID,
		&c.BatchName,
		&c.Instructor,
		&start,
		&end,
		&c.Description,
		&c.Duration,
		&c.Schedule,
		&price,
		&c.Status,
		&c.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	c.StartDate = timePtr(start)
	c.EndDate = timePtr(end)
	c.Price = floatPtr(price)
	return c, nil
}

func (r *ieltsRepository) queryCourses(ctx context.Context, query string, args ...interface{}) ([]models.IELTSCourse, error) {
	rows, err := r.conn(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	courses := []models.IELTSCourse{}
	for rows.Next() {
		c, err := scanCourse(rows)
		if err != nil {
			return nil, err
		}
		courses = append(courses, *c)
	}

	return courses, rows.Err()
}

func (r *ieltsRepository) CreateCourse(ctx context.Context, c *models.IELTSCourse) error {
	query := `
		INSERT INTO ielts_courses (id, batch_name, instructor, start_date, end_date, description, duration, schedule, price, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err := r.conn(ctx).ExecContext(ctx, query,
		c.ID,
		c.BatchName,
		nullString(c.Instructor),
		nullTime(c.StartDate),
		nullTime(c.EndDate),
		nullString(c.Description),
		nullString(c.Duration),
		nullString(c.Schedule),
		nullFloat(c.Price),
		c.Status,
		c.CreatedAt,
	)

	return err
}

func (r *ieltsRepository) GetCourse(ctx context.Context, id string) (*models.IELTSCourse, error) {
	c, err := scanCourse(r.conn(ctx).QueryRowContext(ctx, `SELECT `+courseColumns+` FROM ielts_courses WHERE id = $1`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return c, err
}

func (r *ieltsRepository) ListCourses(ctx context.Context, activeOnly bool) ([]models.IELTSCourse, error) {
	query := `SELECT ` + courseColumns + ` FROM ielts_courses`
	var args []interface{}
	if activeOnly {
		query += ` WHERE status = $1`
		args = append(args, models.CourseActive)
	}
	query += ` ORDER BY start_date DESC NULLS LAST, created_at DESC`
	return r.queryCourses(ctx, query, args...)
}

func (r *ieltsRepository) UpdateCourse(ctx context.Context, c *models.IELTSCourse) error {
	query := `
		UPDATE ielts_courses
		SET batch_name = $1, instructor = $2, start_date = $3, end_date = $4, description = $5,
			duration = $6, schedule = $7, price = $8, status = $9
		WHERE id = $10
	`

	_, err := r.conn(ctx).ExecContext(ctx, query,
		c.BatchName,
		nullString(c.Instructor),
		nullTime(c.StartDate),
		nullTime(c.EndDate),
		nullString(c.Description),
		nullString(c.Duration),
		nullString(c.Schedule),
		nullFloat(c.Price),
		c.Status,
		c.ID,
	)

	return err
}

func (r *ieltsRepository) DeleteCourse(ctx context.Context, id string) (bool, error) {
	res, err := r.conn(ctx).ExecContext(ctx, `DELETE FROM ielts_courses WHERE id = $1`, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func (r *ieltsRepository) Enroll(ctx context.Context, id, studentID, courseID string) error {
	query := `
		INSERT INTO ielts_enrollments (id, student_id, course_id, enrolled_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (student_id, course_id) DO NOTHING
	`
	_, err := r.conn(ctx).ExecContext(ctx, query, id, studentID, courseID)
	return err
}

func (r *ieltsRepository) CoursesOfStudent(ctx context.Context, studentID string) ([]models.IELTSCourse, error) {
	query := `
		SELECT
			c.id, c.batch_name, COALESCE(c.instructor, ''), c.start_date, c.end_date, COALESCE(c.description, ''),
			COALESCE(c.duration, ''), COALESCE(c.schedule, ''), c.price, c.status, c.created_at
		FROM ielts_enrollments e
		JOIN ielts_courses c ON c.id = e.course_id
		WHERE e.student_id = $1
		ORDER BY e.enrolled_at DESC
	`
	return r.queryCourses(ctx, query, studentID)
}

func (r *ieltsRepository) CreateMockTest(ctx context.Context, m *models.MockTest) error {
	query := `
		INSERT INTO ielts_mock_tests (id, course_id, test_name, test_date, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := r.conn(ctx).ExecContext(ctx, query, m.ID, m.CourseID, m.TestName, m.TestDate, m.CreatedAt)
	return err
}

func (r *ieltsRepository) queryMocks(ctx context.Context, query string, args ...interface{}) ([]models.MockTest, error) {
	rows, err := r.conn(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	mocks := []models.MockTest{}
	for rows.Next() {
		var m models.MockTest
		if err := rows.Scan(&m.ID, &m.CourseID, &m.TestName, &m.TestDate, &m.CreatedAt); err != nil {
			return nil, err
		}
		mocks = append(mocks, m)
	}

	return mocks, rows.Err()
}

func (r *ieltsRepository) ListMockTests(ctx context.Context, courseID string) ([]models.MockTest, error) {
	query := `
		SELECT id, course_id, test_name, test_date, created_at
		FROM ielts_mock_tests
		WHERE course_id = $1
		ORDER BY test_date
	`
	return r.queryMocks(ctx, query, courseID)
}

func (r *ieltsRepository) UpcomingMockTests(ctx context.Context, studentID string, from time.Time) ([]models.MockTest, error) {
	query := `
		SELECT m.id, m.course_id, m.test_name, m.test_date, m.created_at
		FROM ielts_mock_tests m
		JOIN ielts_enrollments e ON e.course_id = m.course_id
		WHERE e.student_id = $1 AND m.test_date >= $2::date
		ORDER BY m.test_date
		LIMIT 5
	`
	return r.queryMocks(ctx, query, studentID, from)
}

func (r *ieltsRepository) CountMockTests(ctx context.Context, studentID string) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM ielts_mock_tests m
		JOIN ielts_enrollments e ON e.course_id = m.course_id
		WHERE e.student_id = $1
	`
	var total int
	err := r.conn(ctx).QueryRowContext(ctx, query, studentID).Scan(&total)
	return total, err
}

func (r *ieltsRepository) CreateResult(ctx context.Context, res *models.IELTSResult) error {
	query := `
		INSERT INTO ielts_results (id, mock_test_id, student_id, listening, reading, writing, speaking, overall, date_taken)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := r.conn(ctx).ExecContext(ctx, query,
		res.ID,
		nullString(res.MockTestID),
		res.StudentID,
		res.Listening,
		res.Reading,
		res.Writing,
		res.Speaking,
		res.Overall,
		res.DateTaken,
	)

	return err
}

func (r *ieltsRepository) ResultsOfStudent(ctx context.Context, studentID string) ([]models.IELTSResult, error) {
	query := `
		SELECT r.id, COALESCE(r.mock_test_id, ''), r.student_id, r.listening, r.reading, r.writing,
			r.speaking, r.overall, r.date_taken, COALESCE(m.test_name, '')
		FROM ielts_results r
		LEFT JOIN ielts_mock_tests m ON m.id = r.mock_test_id
		WHERE r.student_id = $1
		ORDER BY r.date_taken DESC
	`

	rows, err := r.conn(ctx).QueryContext(ctx, query, studentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	results := []models.IELTSResult{}
	for rows.Next() {
		var res models.IELTSResult
		err := rows.Scan(
			&res.ID,
			&res.MockTestID,
			&res.StudentID,
			&res.Listening,
			&res.Reading,
			&res.Writing,
			&res.Speaking,
			&res.Overall,
			&res.DateTaken,
			&res.TestName,
		)
		if err != nil {
			return nil, err
		}
		results = append(results, res)
	}

	return results, rows.Err()
}

func (r *ieltsRepository) AverageOverall(ctx context.Context, studentID string) (float64, int, error) {
	var avg float64
	var count int
	err := r.conn(ctx).QueryRowContext(ctx,
		`SELECT COALESCE(AVG(overall), 0), COUNT(*) FROM ielts_results WHERE student_id = $1`,
		studentID,
	).Scan(&avg, &count)
	return avg, count, err
}
