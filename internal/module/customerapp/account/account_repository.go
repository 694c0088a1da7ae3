package account

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/KendrickOdei/fastTix-sub000/pkg/errors"
	"github.com/KendrickOdei/fastTix-sub000/pkg/status"
)

type AccountRepository interface {
	FindByID(ctx context.Context, ID int64, tx *sql.Tx) (Account, error)
	FindByEmail(ctx context.Context, email string, tx *sql.Tx) (Account, error)
}

type sqlCommand interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	PrepareContext(ctx context.Context, query string) (*sql.Stmt, error)
}

type accountRepository struct {
	logger *logrus.Logger
	db     *sql.DB
}

func NewAccountRepository(logger *logrus.Logger, db *sql.DB) AccountRepository {
	return &accountRepository{
		logger: logger,
		db:     db,
	}
}

// FindByID implements AccountRepository.
func (r *accountRepository) FindByID(ctx context.Context, ID int64, tx *sql.Tx) (Account, error) {
	var cmd sqlCommand = r.db

	if tx != nil {
		cmd = tx
	}

	query := `
		SELECT
			id, name, email, password, role, status, created_at, updated_at
		FROM account
		WHERE
			id = $1
		LIMIT 1
	`

	stmt, err := cmd.PrepareContext(ctx, query)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error()
		return Account{}, errors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "an error occurred while getting account's properties")
	}
	defer stmt.Close()

	row := stmt.QueryRowContext(ctx, ID)

	var data Account
	err = row.Scan(
		&data.ID, &data.Name, &data.Email, &data.Password, &data.Role, &data.Status, &data.CreatedAt, &data.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return Account{}, errors.New(http.StatusNotFound, status.NOT_FOUND, fmt.Sprintf("account's properties with id '%d' is not found", ID))
		}
		r.logger.WithContext(ctx).WithError(err).Error()
		return Account{}, errors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "an error occurred while getting account's properties")
	}

	return data, nil
}

// FindByEmail implements AccountRepository.
func (r *accountRepository) FindByEmail(ctx context.Context, email string, tx *sql.Tx) (Account, error) {
	var cmd sqlCommand = r.db

	if tx != nil {
		cmd = tx
	}

	query := `
		SELECT
			id, name, email, password, role, status, created_at, updated_at
		FROM account
		WHERE
			email = $1
		LIMIT 1
	`

	stmt, err := cmd.PrepareContext(ctx, query)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error()
		return Account{}, errors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "an error occurred while getting account's properties")
	}
	defer stmt.Close()

	row := stmt.QueryRowContext(ctx, email)

	var data Account
	err = row.Scan(
		&data.ID, &data.Name, &data.Email, &data.Password, &data.Role, &data.Status, &data.CreatedAt, &data.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return Account{}, errors.New(http.StatusNotFound, status.NOT_FOUND, fmt.Sprintf("account's properties with email '%s' is not found", email))
		}
		r.logger.WithContext(ctx).WithError(err).Error()
		return Account{}, errors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "an error occurred while getting account's properties")
	}

	return data, nil
}
