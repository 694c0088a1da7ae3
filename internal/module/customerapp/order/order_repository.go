package order

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/KendrickOdei/fastTix-sub000/pkg/errors"
	"github.com/KendrickOdei/fastTix-sub000/pkg/status"
)

type OrderRepository interface {
	BeginTx(ctx context.Context) (*sql.Tx, error)
	CommitTx(ctx context.Context, tx *sql.Tx) error
	Rollback(ctx context.Context, tx *sql.Tx) error

	SaveIfAbsent(ctx context.Context, o Order, tx *sql.Tx) (bool, error)
	FindByPaymentReference(ctx context.Context, paymentReference string, tx *sql.Tx) (Order, error)
	FindMany(ctx context.Context, customerID int64, offset, limit int64, tx *sql.Tx) ([]Order, error)
	Count(ctx context.Context, customerID int64, tx *sql.Tx) (int64, error)
}

type sqlCommand interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	PrepareContext(ctx context.Context, query string) (*sql.Stmt, error)
}

type orderRepository struct {
	logger *logrus.Logger
	db     *sql.DB
}

func NewOrderRepository(logger *logrus.Logger, db *sql.DB) OrderRepository {
	return &orderRepository{
		logger: logger,
		db:     db,
	}
}

// BeginTx implements OrderRepository.
func (r *orderRepository) BeginTx(ctx context.Context) (*sql.Tx, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error()
		return nil, errors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "an error occurred trying to begin transaction")
	}

	return tx, nil
}

// CommitTx implements OrderRepository.
func (r *orderRepository) CommitTx(ctx context.Context, tx *sql.Tx) error {
	if err := tx.Commit(); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error()
		return errors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "an error occurred trying to commit transaction")
	}

	return nil
}

// Rollback implements OrderRepository.
func (r *orderRepository) Rollback(ctx context.Context, tx *sql.Tx) error {
	if err := tx.Rollback(); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error()
		return errors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "an error occurred trying to rollback transaction")
	}

	return nil
}

// SaveIfAbsent implements OrderRepository. The insert is keyed on the unique
// payment reference; a conflicting row means the payment event was already
// settled and the caller gets inserted=false with no write performed.
func (r *orderRepository) SaveIfAbsent(ctx context.Context, o Order, tx *sql.Tx) (bool, error) {
	var cmd sqlCommand = r.db

	if tx != nil {
		cmd = tx
	}

	query := `
		INSERT INTO ticket_order
		(
			id, payment_reference, ticket_type_id, event_id, tier,
			quantity, unit_price, amount, customer_id, customer_email,
			status, created_at, updated_at
		)
		VALUES
		(
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13
		)
		ON CONFLICT (payment_reference) DO NOTHING
	`

	stmt, err := cmd.PrepareContext(ctx, query)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error()
		return false, errors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "an error occurred while saving order's properties")
	}
	defer stmt.Close()

	var customerID sql.NullInt64
	if o.CustomerID != nil {
		customerID.Int64 = *o.CustomerID
		customerID.Valid = true
	}

	result, err := stmt.ExecContext(ctx,
		o.ID, o.PaymentReference, o.TicketTypeID, o.EventID, o.Tier,
		o.Quantity, o.UnitPrice, o.Amount, customerID, o.CustomerEmail,
		o.Status, o.CreatedAt, o.UpdatedAt,
	)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error()
		return false, errors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "an error occurred while saving order's properties")
	}

	affected, err := result.RowsAffected()
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error()
		return false, errors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "an error occurred while saving order's properties")
	}

	return affected > 0, nil
}

// FindByPaymentReference implements OrderRepository.
func (r *orderRepository) FindByPaymentReference(ctx context.Context, paymentReference string, tx *sql.Tx) (Order, error) {
	var cmd sqlCommand = r.db

	if tx != nil {
		cmd = tx
	}

	query := `
		SELECT
			id, payment_reference, ticket_type_id, event_id, tier,
			quantity, unit_price, amount, customer_id, customer_email,
			status, created_at, updated_at
		FROM ticket_order
		WHERE
			payment_reference = $1
		LIMIT 1
	`

	stmt, err := cmd.PrepareContext(ctx, query)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error()
		return Order{}, errors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "an error occurred while getting order's properties")
	}
	defer stmt.Close()

	row := stmt.QueryRowContext(ctx, paymentReference)

	var data Order
	var customerID sql.NullInt64

	err = row.Scan(
		&data.ID, &data.PaymentReference, &data.TicketTypeID, &data.EventID, &data.Tier,
		&data.Quantity, &data.UnitPrice, &data.Amount, &customerID, &data.CustomerEmail,
		&data.Status, &data.CreatedAt, &data.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return Order{}, errors.New(http.StatusNotFound, status.NOT_FOUND, fmt.Sprintf("order's properties with payment reference '%s' is not found", paymentReference))
		}
		r.logger.WithContext(ctx).WithError(err).Error()
		return Order{}, errors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "an error occurred while getting order's properties")
	}

	if customerID.Valid {
		data.CustomerID = &customerID.Int64
	}

	return data, nil
}

// FindMany implements OrderRepository.
func (r *orderRepository) FindMany(ctx context.Context, customerID int64, offset int64, limit int64, tx *sql.Tx) ([]Order, error) {
	var cmd sqlCommand = r.db

	if tx != nil {
		cmd = tx
	}

	query := `
		SELECT
			id, payment_reference, ticket_type_id, event_id, tier,
			quantity, unit_price, amount, customer_id, customer_email,
			status, created_at, updated_at
		FROM ticket_order
		WHERE
			customer_id = $1
		ORDER BY created_at DESC
		OFFSET $2
		LIMIT $3
	`

	stmt, err := cmd.PrepareContext(ctx, query)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error()
		return nil, errors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "an error occurred while getting bunch of order's properties")
	}
	defer stmt.Close()

	rows, err := stmt.QueryContext(ctx, customerID, offset, limit)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error()
		return nil, errors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "an error occurred while getting bunch of order's properties")
	}

	defer rows.Close()

	var data = make([]Order, 0)

	for rows.Next() {
		var o Order
		var cid sql.NullInt64

		if err := rows.Scan(
			&o.ID, &o.PaymentReference, &o.TicketTypeID, &o.EventID, &o.Tier,
			&o.Quantity, &o.UnitPrice, &o.Amount, &cid, &o.CustomerEmail,
			&o.Status, &o.CreatedAt, &o.UpdatedAt,
		); err != nil {
			r.logger.WithContext(ctx).WithError(err).Error()
			return nil, errors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "an error occurred while getting bunch of order's properties")
		}

		if cid.Valid {
			o.CustomerID = &cid.Int64
		}

		data = append(data, o)
	}

	return data, nil
}

// Count implements OrderRepository.
func (r *orderRepository) Count(ctx context.Context, customerID int64, tx *sql.Tx) (int64, error) {
	var cmd sqlCommand = r.db

	if tx != nil {
		cmd = tx
	}

	query := `
		SELECT count(id)
		FROM ticket_order
		WHERE
			customer_id = $1
	`

	stmt, err := cmd.PrepareContext(ctx, query)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error()
		return 0, errors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "an error occurred while counting order's properties")
	}
	defer stmt.Close()

	row := stmt.QueryRowContext(ctx, customerID)

	var count int64
	if err := row.Scan(&count); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error()
		return 0, errors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "an error occurred while counting order's properties")
	}

	return count, nil
}
