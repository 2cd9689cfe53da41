package repo

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrNotFound — проекта или анализа нет (или ссылка на несуществующий проект).
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists — ID или ключ идемпотентности уже заняты.
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidState — анализ не в том статусе, например Claim не-QUEUED анализа.
	ErrInvalidState = errors.New("invalid state")
)

// Коды ошибок PostgreSQL, которые переводятся в ошибки репозитория.
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

// translate переводит ошибку pgx в ошибку репозитория.
// Остальные ошибки оборачиваются с указанием операции.
func translate(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return ErrAlreadyExists
		case pgForeignKeyViolation:
			return ErrNotFound
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}
