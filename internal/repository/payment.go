package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/flicky/go-storefront-api/internal/model"
)

type PaymentRepository interface {
	Create(ctx context.Context, payment *model.Payment) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Payment, error)
	ListByOrderID(ctx context.Context, orderID uuid.UUID) ([]model.Payment, error)
	// UpdateStatus returns nil, nil when no payment matched.
	UpdateStatus(ctx context.Context, id uuid.UUID, status model.PaymentStatus) (*model.Payment, error)
	SetCheckoutSession(ctx context.Context, id uuid.UUID, sessionID string) error
	DeleteByOrderID(ctx context.Context, orderID uuid.UUID) error
}

type pgPaymentRepo struct{ q Querier }

func NewPaymentRepository(q Querier) PaymentRepository {
	return &pgPaymentRepo{q: q}
}

const paymentColumns = `payment_id, order_o_id, payment_amount, payment_method, payment_date, status, COALESCE(checkout_session_id, '')`

func scanPayment(row pgx.Row, p *model.Payment) error {
	return row.Scan(&p.ID, &p.OrderID, &p.Amount, &p.Method, &p.Date, &p.Status, &p.CheckoutSessionID)
}

func (r *pgPaymentRepo) Create(ctx context.Context, p *model.Payment) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	_, err := r.q.Exec(ctx,
		`INSERT INTO payment (payment_id, payment_amount, payment_date, payment_method, order_o_id, status, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, NOW())`,
		p.ID, p.Amount, p.Date, p.Method, p.OrderID, p.Status,
	)
	if err != nil {
		return fmt.Errorf("insert payment: %w", err)
	}
	return nil
}

func (r *pgPaymentRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.Payment, error) {
	p := &model.Payment{}
	err := scanPayment(r.q.QueryRow(ctx, `SELECT `+paymentColumns+` FROM payment WHERE payment_id = $1`, id), p)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get payment: %w", err)
	}
	return p, nil
}

func (r *pgPaymentRepo) ListByOrderID(ctx context.Context, orderID uuid.UUID) ([]model.Payment, error) {
	rows, err := r.q.Query(ctx,
		`SELECT `+paymentColumns+` FROM payment WHERE order_o_id = $1 ORDER BY created_at DESC`, orderID,
	)
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	defer rows.Close()

	var payments []model.Payment
	for rows.Next() {
		var p model.Payment
		if err := scanPayment(rows, &p); err != nil {
			return nil, fmt.Errorf("scan payment: %w", err)
		}
		payments = append(payments, p)
	}
	return payments, rows.Err()
}

func (r *pgPaymentRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status model.PaymentStatus) (*model.Payment, error) {
	p := &model.Payment{}
	err := scanPayment(r.q.QueryRow(ctx,
		`UPDATE payment SET status = $1 WHERE payment_id = $2 RETURNING `+paymentColumns,
		status, id,
	), p)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("update payment status: %w", err)
	}
	return p, nil
}

func (r *pgPaymentRepo) SetCheckoutSession(ctx context.Context, id uuid.UUID, sessionID string) error {
	ct, err := r.q.Exec(ctx, `UPDATE payment SET checkout_session_id = $1 WHERE payment_id = $2`, sessionID, id)
	if err != nil {
		return fmt.Errorf("set checkout session: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *pgPaymentRepo) DeleteByOrderID(ctx context.Context, orderID uuid.UUID) error {
	if _, err := r.q.Exec(ctx, `DELETE FROM payment WHERE order_o_id = $1`, orderID); err != nil {
		return fmt.Errorf("delete payments: %w", err)
	}
	return nil
}
