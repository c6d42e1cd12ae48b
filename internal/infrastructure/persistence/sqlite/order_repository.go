package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/shopspring/decimal"

	"github.com/rcarvalho-pb/mycryptocheckout-go/internal/domain/order"
)

type OrderRepository struct {
	db *sql.DB
}

func NewOrderRepository(db *sql.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

const orderColumns = `ref, amount, confirmations, created_at, currency_id,
	timeout_hours, to_address, payment_data, payment_id, attempts, status`

func (r *OrderRepository) Save(ctx context.Context, o *order.Order) error {
	data, err := json.Marshal(o.PaymentData)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO orders (`+orderColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(ref) DO UPDATE SET
			amount = excluded.amount,
			confirmations = excluded.confirmations,
			created_at = excluded.created_at,
			currency_id = excluded.currency_id,
			timeout_hours = excluded.timeout_hours,
			to_address = excluded.to_address,
			payment_data = excluded.payment_data,
			payment_id = excluded.payment_id,
			attempts = excluded.attempts,
			status = excluded.status`,
		o.Ref,
		o.Amount.String(),
		o.Confirmations,
		o.CreatedAt,
		o.CurrencyID,
		o.TimeoutHours,
		o.To,
		string(data),
		o.PaymentID,
		o.Attempts,
		string(o.Status),
	)
	return err
}

func (r *OrderRepository) FindByRef(ctx context.Context, ref string) (*order.Order, error) {
	return r.scanOne(r.db.QueryRowContext(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE ref = ?`,
		ref,
	))
}

func (r *OrderRepository) FindByPaymentID(ctx context.Context, paymentID int64) (*order.Order, error) {
	return r.scanOne(r.db.QueryRowContext(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE payment_id = ? LIMIT 1`,
		paymentID,
	))
}

func (r *OrderRepository) FindUnsent(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT ref FROM orders WHERE payment_id = 0 ORDER BY ref`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var refs []string
	for rows.Next() {
		var ref string
		if err := rows.Scan(&ref); err != nil {
			return nil, err
		}
		refs = append(refs, ref)
	}

	return refs, rows.Err()
}

func (r *OrderRepository) SetPaymentID(ctx context.Context, ref string, paymentID int64) error {
	return r.exec(ctx, `UPDATE orders SET payment_id = ? WHERE ref = ?`, paymentID, ref)
}

func (r *OrderRepository) SetAttempts(ctx context.Context, ref string, attempts int) error {
	return r.exec(ctx, `UPDATE orders SET attempts = ? WHERE ref = ?`, attempts, ref)
}

func (r *OrderRepository) UpdateStatus(ctx context.Context, ref string, status order.Status) error {
	return r.exec(ctx, `UPDATE orders SET status = ? WHERE ref = ?`, string(status), ref)
}

func (r *OrderRepository) exec(ctx context.Context, query string, args ...any) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return order.ErrOrderNotFound
	}

	return nil
}

func (r *OrderRepository) scanOne(row *sql.Row) (*order.Order, error) {
	var (
		o      order.Order
		amount string
		data   string
		status string
	)

	if err := row.Scan(
		&o.Ref,
		&amount,
		&o.Confirmations,
		&o.CreatedAt,
		&o.CurrencyID,
		&o.TimeoutHours,
		&o.To,
		&data,
		&o.PaymentID,
		&o.Attempts,
		&status,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, order.ErrOrderNotFound
		}
		return nil, err
	}

	d, err := decimal.NewFromString(amount)
	if err != nil {
		return nil, err
	}
	o.Amount = d
	o.Status = order.Status(status)

	if err := json.Unmarshal([]byte(data), &o.PaymentData); err != nil {
		return nil, err
	}

	return &o, nil
}
