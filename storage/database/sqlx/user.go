package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/tutoring/core"
	"github.com/trezcool/tutoring/core/user"
)

const userColumns = "id, name, email, role, password_hash, is_active, onboarding_complete, temporary_at, created_at, updated_at, last_login"

type userRow struct {
	ID                 string    `db:"id"`
	Name               string    `db:"name"`
	Email              string    `db:"email"`
	Role               string    `db:"role"`
	PasswordHash       []byte    `db:"password_hash"`
	IsActive           bool      `db:"is_active"`
	OnboardingComplete bool      `db:"onboarding_complete"`
	TemporaryAt        null.Time `db:"temporary_at"`
	CreatedAt          time.Time `db:"created_at"`
	UpdatedAt          time.Time `db:"updated_at"`
	LastLogin          null.Time `db:"last_login"`
}

type userRepository struct {
	baseRepository
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(exec core.DBExecutor) user.Repository {
	return &userRepository{baseRepository{exec: exec}}
}

func (repo userRepository) toRow(usr user.User) userRow {
	return userRow{
		ID:                 usr.ID,
		Name:               usr.Name,
		Email:              usr.Email,
		Role:               usr.Role,
		PasswordHash:       usr.PasswordHash,
		IsActive:           usr.IsActive,
		OnboardingComplete: usr.OnboardingComplete,
		TemporaryAt:        null.NewTime(usr.TemporaryAt.UTC(), !usr.TemporaryAt.IsZero()),
		CreatedAt:          usr.CreatedAt.UTC(),
		UpdatedAt:          usr.UpdatedAt.UTC(),
		LastLogin:          null.NewTime(usr.LastLogin.UTC(), !usr.LastLogin.IsZero()),
	}
}

func (repo userRepository) fromRow(row userRow) user.User {
	return user.User{
		ID:                 row.ID,
		Name:               row.Name,
		Email:              row.Email,
		Role:               row.Role,
		PasswordHash:       row.PasswordHash,
		IsActive:           row.IsActive,
		OnboardingComplete: row.OnboardingComplete,
		TemporaryAt:        row.TemporaryAt.Time,
		CreatedAt:          row.CreatedAt,
		UpdatedAt:          row.UpdatedAt,
		LastLogin:          row.LastLogin.Time,
	}
}

func (repo userRepository) one(rows []userRow) (user.User, error) {
	if len(rows) == 0 {
		return user.User{}, sql.ErrNoRows
	}
	return repo.fromRow(rows[0]), nil
}

func (repo userRepository) CheckEmailUniqueness(ctx context.Context, email string, excludedIDs []string, exec ...core.DBExecutor) error {
	query, args := "SELECT id FROM users WHERE email = ?", []interface{}{email}
	if len(excludedIDs) > 0 {
		var err error
		query, args, err = sqlx.In(query+" AND id NOT IN (?)", email, excludedIDs)
		if err != nil {
			return errors.Wrap(err, "binding excluded users")
		}
	}
	query += " LIMIT 1"

	var ids []struct {
		ID string `db:"id"`
	}
	if err := selectAll(ctx, repo.getExec(exec), &ids, query, args...); err != nil {
		return errors.Wrap(err, "checking email uniqueness")
	}
	if len(ids) > 0 {
		return user.ErrEmailExists
	}
	return nil
}

func (repo userRepository) CreateUser(ctx context.Context, usr user.User, exec ...core.DBExecutor) (user.User, error) {
	if usr.ID == "" {
		usr.ID = uuid.New().String()
	}
	var rows []userRow
	err := namedSelect(ctx, repo.getExec(exec), &rows, `
		INSERT INTO users (`+userColumns+`)
		VALUES (:id, :name, :email, :role, :password_hash, :is_active, :onboarding_complete, :temporary_at, :created_at, :updated_at, :last_login)
		RETURNING `+userColumns,
		repo.toRow(usr),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return user.User{}, user.ErrEmailExists
		}
		return user.User{}, errors.Wrap(err, "inserting user")
	}
	return repo.one(rows)
}

func (repo userRepository) GetUser(ctx context.Context, filter user.GetFilter, exec ...core.DBExecutor) (user.User, error) {
	var query string
	var arg interface{}
	switch {
	case filter.ID != "":
		if _, err := uuid.Parse(filter.ID); err != nil {
			return user.User{}, user.ErrNotFound
		}
		query, arg = "SELECT "+userColumns+" FROM users WHERE id = ?", filter.ID
	case filter.Email != "":
		query, arg = "SELECT "+userColumns+" FROM users WHERE email = ?", filter.Email
	default:
		return user.User{}, user.ErrNotFound
	}

	var rows []userRow
	if err := selectAll(ctx, repo.getExec(exec), &rows, query, arg); err != nil {
		return user.User{}, errors.Wrap(err, "finding user")
	}
	usr, err := repo.one(rows)
	if err != nil {
		return user.User{}, trapNoRowsErr(err, user.ErrNotFound, "finding user")
	}
	return usr, nil
}

func (repo userRepository) UpdateUser(ctx context.Context, usr user.User, exec ...core.DBExecutor) (user.User, error) {
	var rows []userRow
	err := namedSelect(ctx, repo.getExec(exec), &rows, `
		UPDATE users SET
			name = :name, email = :email, role = :role, password_hash = :password_hash, is_active = :is_active,
			onboarding_complete = :onboarding_complete, temporary_at = :temporary_at, updated_at = :updated_at,
			last_login = :last_login
		WHERE id = :id
		RETURNING `+userColumns,
		repo.toRow(usr),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return user.User{}, user.ErrEmailExists
		}
		return user.User{}, errors.Wrap(err, "updating user")
	}
	updated, err := repo.one(rows)
	if err != nil {
		return user.User{}, trapNoRowsErr(err, user.ErrNotFound, "updating user")
	}
	return updated, nil
}
