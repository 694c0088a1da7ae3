package ticket

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/KendrickOdei/fastTix-sub000/pkg/errors"
	"github.com/KendrickOdei/fastTix-sub000/pkg/status"
)

type TicketTypeRepository interface {
	FindByID(ctx context.Context, ID string, tx *sql.Tx) (TicketType, error)
	FindManyByEventID(ctx context.Context, eventID string, tx *sql.Tx) ([]TicketType, error)
	DecrementRemaining(ctx context.Context, ID string, quantity int64, tx *sql.Tx) error
}

type sqlCommand interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	PrepareContext(ctx context.Context, query string) (*sql.Stmt, error)
}

// ErrInsufficientStock reports a conditional decrement whose guard did not
// hold; the row is untouched when it is returned.
var ErrInsufficientStock = errors.New(http.StatusConflict, status.CONFLICT, "insufficient ticket stock")

type ticketTypeRepository struct {
	logger *logrus.Logger
	db     *sql.DB
}

func NewTicketTypeRepository(logger *logrus.Logger, db *sql.DB) TicketTypeRepository {
	return &ticketTypeRepository{
		logger: logger,
		db:     db,
	}
}

// FindByID implements TicketTypeRepository.
func (r *ticketTypeRepository) FindByID(ctx context.Context, ID string, tx *sql.Tx) (TicketType, error) {
	var cmd sqlCommand = r.db

	if tx != nil {
		cmd = tx
	}

	query := `
		SELECT
			id, event_id, tier, price, quantity, sold, on_sale_from, on_sale_until, last_stock_update
		FROM ticket_type
		WHERE
			id = $1
		LIMIT 1
	`

	stmt, err := cmd.PrepareContext(ctx, query)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error()
		return TicketType{}, errors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "an error occurred while getting ticket type's properties")
	}
	defer stmt.Close()

	row := stmt.QueryRowContext(ctx, ID)

	var data TicketType
	err = row.Scan(
		&data.ID, &data.EventID, &data.Tier, &data.Price, &data.Quantity, &data.Sold, &data.OnSaleFrom, &data.OnSaleUntil, &data.LastStockUpdate,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return TicketType{}, errors.New(http.StatusNotFound, status.NOT_FOUND, fmt.Sprintf("ticket type's properties with id '%s' is not found", ID))
		}
		r.logger.WithContext(ctx).WithError(err).Error()
		return TicketType{}, errors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "an error occurred while getting ticket type's properties")
	}

	return data, nil
}

// FindManyByEventID implements TicketTypeRepository.
func (r *ticketTypeRepository) FindManyByEventID(ctx context.Context, eventID string, tx *sql.Tx) ([]TicketType, error) {
	var cmd sqlCommand = r.db

	if tx != nil {
		cmd = tx
	}

	query := `
		SELECT
			id, event_id, tier, price, quantity, sold, on_sale_from, on_sale_until, last_stock_update
		FROM ticket_type
		WHERE
			event_id = $1
	`

	stmt, err := cmd.PrepareContext(ctx, query)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error()
		return nil, errors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "an error occurred while getting bunch of ticket type's properties")
	}
	defer stmt.Close()

	rows, err := stmt.QueryContext(ctx, eventID)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error()
		return nil, errors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "an error occurred while getting bunch of ticket type's properties")
	}

	defer rows.Close()

	var data = make([]TicketType, 0)
	for rows.Next() {
		var tt TicketType
		if err := rows.Scan(
			&tt.ID, &tt.EventID, &tt.Tier, &tt.Price, &tt.Quantity, &tt.Sold, &tt.OnSaleFrom, &tt.OnSaleUntil, &tt.LastStockUpdate,
		); err != nil {
			r.logger.WithContext(ctx).WithError(err).Error()
			return nil, errors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "an error occurred while getting bunch of ticket type's properties")
		}

		data = append(data, tt)
	}

	return data, nil
}

// DecrementRemaining implements TicketTypeRepository. The decrement is a
// single conditional update: the guard and the mutation execute as one
// statement, so two concurrent buyers can never both take the last ticket.
func (r *ticketTypeRepository) DecrementRemaining(ctx context.Context, ID string, quantity int64, tx *sql.Tx) error {
	var cmd sqlCommand = r.db

	if tx != nil {
		cmd = tx
	}

	query := `
		UPDATE ticket_type
		SET
			sold = sold + $1,
			last_stock_update = $2
		WHERE
			id = $3
		AND
			quantity - sold >= $1
	`

	stmt, err := cmd.PrepareContext(ctx, query)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error()
		return errors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "an error occurred while updating ticket type's stock")
	}
	defer stmt.Close()

	result, err := stmt.ExecContext(ctx, quantity, time.Now(), ID)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error()
		return errors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "an error occurred while updating ticket type's stock")
	}

	affected, err := result.RowsAffected()
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error()
		return errors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "an error occurred while updating ticket type's stock")
	}

	if affected == 0 {
		return ErrInsufficientStock
	}

	return nil
}
