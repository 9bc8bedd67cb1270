package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"askstory/auth/internal/model"
)

// ErrDuplicate reports a unique-constraint violation on insert (email or
// employee number already taken).
var ErrDuplicate = errors.New("duplicate key")

type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

const userColumns = `
	user_name, email, employee_no, password_hash, phone, department_id,
	grade, position, reg_date, access_token, refresh_token, must_change_pw
`

func (s *Store) GetUserByEmail(ctx context.Context, email string) (model.User, error) {
	var user model.User
	row := s.pool.QueryRow(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE email = $1
	`, email)
	err := row.Scan(
		&user.Name,
		&user.Email,
		&user.EmployeeNo,
		&user.PasswordHash,
		&user.Phone,
		&user.DepartmentID,
		&user.Grade,
		&user.Position,
		&user.RegDate,
		&user.AccessToken,
		&user.RefreshToken,
		&user.MustChangePW,
	)
	return user, err
}

func (s *Store) GetUserByEmailAndName(ctx context.Context, email, name string) (model.User, error) {
	var user model.User
	row := s.pool.QueryRow(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE email = $1 AND user_name = $2
	`, email, name)
	err := row.Scan(
		&user.Name,
		&user.Email,
		&user.EmployeeNo,
		&user.PasswordHash,
		&user.Phone,
		&user.DepartmentID,
		&user.Grade,
		&user.Position,
		&user.RegDate,
		&user.AccessToken,
		&user.RefreshToken,
		&user.MustChangePW,
	)
	return user, err
}

func (s *Store) CreateUser(ctx context.Context, user model.User) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO users (user_name, email, employee_no, password_hash, phone, department_id, grade, position, reg_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, user.Name, user.Email, user.EmployeeNo, user.PasswordHash, user.Phone, user.DepartmentID, user.Grade, user.Position, user.RegDate)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	return err
}

func (s *Store) UpdateTokens(ctx context.Context, email, accessToken, refreshToken string) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE users SET access_token = $1, refresh_token = $2 WHERE email = $3
	`, accessToken, refreshToken, email)
	return err
}

func (s *Store) UpdateAccessToken(ctx context.Context, refreshToken, accessToken string) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE users SET access_token = $1 WHERE refresh_token = $2
	`, accessToken, refreshToken)
	return err
}

func (s *Store) ClearRefreshToken(ctx context.Context, refreshToken string) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE users SET refresh_token = NULL WHERE refresh_token = $1
	`, refreshToken)
	return err
}

func (s *Store) EmailExists(ctx context.Context, email string) (bool, error) {
	return s.exists(ctx, `SELECT 1 FROM users WHERE email = $1`, email)
}

func (s *Store) EmployeeNoExists(ctx context.Context, employeeNo string) (bool, error) {
	return s.exists(ctx, `SELECT 1 FROM users WHERE employee_no = $1`, employeeNo)
}

func (s *Store) UpdatePassword(ctx context.Context, email, passwordHash string, mustChange bool) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE users SET password_hash = $1, must_change_pw = $2 WHERE email = $3
	`, passwordHash, mustChange, email)
	return err
}

func (s *Store) ListActiveDepartments(ctx context.Context) ([]model.Department, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, name FROM departments WHERE active = true ORDER BY id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var departments []model.Department
	for rows.Next() {
		dept := model.Department{Active: true}
		if err := rows.Scan(&dept.ID, &dept.Name); err != nil {
			return nil, err
		}
		departments = append(departments, dept)
	}
	return departments, rows.Err()
}

func (s *Store) exists(ctx context.Context, query string, arg string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx, `SELECT EXISTS (`+query+`)`, arg).Scan(&exists)
	return exists, err
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation
}
