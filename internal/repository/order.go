package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/flicky/go-storefront-api/internal/model"
)

// OrderPatch carries the optional fields of an order update; nil fields are
// left untouched.
type OrderPatch struct {
	PromisedDate *time.Time
	Address      *string
}

func (p OrderPatch) Empty() bool {
	return p.PromisedDate == nil && p.Address == nil
}

type OrderRepository interface {
	Create(ctx context.Context, order *model.Order) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Order, error)
	// List returns all orders, or only those of userID when it is non-nil.
	List(ctx context.Context, userID *uuid.UUID) ([]model.Order, error)
	Update(ctx context.Context, id uuid.UUID, patch OrderPatch) (*model.Order, error)
	Delete(ctx context.Context, id uuid.UUID) error
	RecomputeTotal(ctx context.Context, id uuid.UUID) (decimal.Decimal, error)
	MarkComplete(ctx context.Context, id uuid.UUID) error

	CreateDetail(ctx context.Context, detail *model.OrderDetail) error
	ListDetails(ctx context.Context, orderID uuid.UUID) ([]model.OrderDetail, error)
	GetDetail(ctx context.Context, orderID, detailID uuid.UUID) (*model.OrderDetail, error)
	DeleteDetails(ctx context.Context, orderID uuid.UUID) error
}

type pgOrderRepo struct{ q Querier }

func NewOrderRepository(q Querier) OrderRepository {
	return &pgOrderRepo{q: q}
}

const orderColumns = `o_id, user_u_id, order_date, promised_date, address, total_amount, is_complete, created_at`

func scanOrder(row pgx.Row, o *model.Order) error {
	return row.Scan(&o.ID, &o.UserID, &o.OrderDate, &o.PromisedDate, &o.Address,
		&o.TotalAmount, &o.IsComplete, &o.CreatedAt)
}

func (r *pgOrderRepo) Create(ctx context.Context, order *model.Order) error {
	order.ID = uuid.New()
	order.TotalAmount = decimal.Zero
	err := r.q.QueryRow(ctx,
		`INSERT INTO "Order" (o_id, order_date, promised_date, address, total_amount, user_u_id, is_complete, created_at)
		 VALUES ($1, $2, $3, $4, 0, $5, FALSE, NOW()) RETURNING is_complete, created_at`,
		order.ID, order.OrderDate, order.PromisedDate, order.Address, order.UserID,
	).Scan(&order.IsComplete, &order.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}
	return nil
}

func (r *pgOrderRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	order := &model.Order{}
	err := scanOrder(r.q.QueryRow(ctx, `SELECT `+orderColumns+` FROM "Order" WHERE o_id = $1`, id), order)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get order: %w", err)
	}

	details, err := r.ListDetails(ctx, id)
	if err != nil {
		return nil, err
	}
	order.Details = details
	return order, nil
}

func (r *pgOrderRepo) List(ctx context.Context, userID *uuid.UUID) ([]model.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM "Order"`
	var args []any
	if userID != nil {
		query += ` WHERE user_u_id = $1`
		args = append(args, *userID)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	var orders []model.Order
	for rows.Next() {
		var o model.Order
		if err := scanOrder(rows, &o); err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

func (r *pgOrderRepo) Update(ctx context.Context, id uuid.UUID, patch OrderPatch) (*model.Order, error) {
	var (
		sets []string
		args []any
	)
	if patch.PromisedDate != nil {
		args = append(args, *patch.PromisedDate)
		sets = append(sets, fmt.Sprintf("promised_date = $%d", len(args)))
	}
	if patch.Address != nil {
		args = append(args, *patch.Address)
		sets = append(sets, fmt.Sprintf("address = $%d", len(args)))
	}
	if len(sets) == 0 {
		return nil, errors.New("update order: no fields")
	}
	args = append(args, id)
	query := fmt.Sprintf(`UPDATE "Order" SET %s WHERE o_id = $%d RETURNING %s`,
		strings.Join(sets, ", "), len(args), orderColumns)

	order := &model.Order{}
	if err := scanOrder(r.q.QueryRow(ctx, query, args...), order); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("update order: %w", err)
	}
	return order, nil
}

func (r *pgOrderRepo) Delete(ctx context.Context, id uuid.UUID) error {
	ct, err := r.q.Exec(ctx, `DELETE FROM "Order" WHERE o_id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete order: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *pgOrderRepo) RecomputeTotal(ctx context.Context, id uuid.UUID) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := r.q.QueryRow(ctx,
		`UPDATE "Order"
		 SET total_amount = COALESCE((SELECT SUM(quantity * od_price) FROM order_details WHERE order_o_id = $1), 0)
		 WHERE o_id = $1 RETURNING total_amount`,
		id,
	).Scan(&total)
	if err != nil {
		return decimal.Zero, fmt.Errorf("recompute order total: %w", err)
	}
	return total, nil
}

func (r *pgOrderRepo) MarkComplete(ctx context.Context, id uuid.UUID) error {
	ct, err := r.q.Exec(ctx, `UPDATE "Order" SET is_complete = TRUE WHERE o_id = $1`, id)
	if err != nil {
		return fmt.Errorf("mark order complete: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *pgOrderRepo) CreateDetail(ctx context.Context, d *model.OrderDetail) error {
	d.ID = uuid.New()
	_, err := r.q.Exec(ctx,
		`INSERT INTO order_details (od_id, quantity, od_price, product_p_id, order_o_id, size)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		d.ID, d.Quantity, d.Price, d.ProductID, d.OrderID, d.Size,
	)
	if err != nil {
		return fmt.Errorf("insert order detail: %w", err)
	}
	return nil
}

func (r *pgOrderRepo) ListDetails(ctx context.Context, orderID uuid.UUID) ([]model.OrderDetail, error) {
	rows, err := r.q.Query(ctx,
		`SELECT od_id, order_o_id, product_p_id, size, quantity, od_price
		 FROM order_details WHERE order_o_id = $1 ORDER BY od_id`, orderID,
	)
	if err != nil {
		return nil, fmt.Errorf("list order details: %w", err)
	}
	defer rows.Close()

	var details []model.OrderDetail
	for rows.Next() {
		var d model.OrderDetail
		if err := rows.Scan(&d.ID, &d.OrderID, &d.ProductID, &d.Size, &d.Quantity, &d.Price); err != nil {
			return nil, fmt.Errorf("scan order detail: %w", err)
		}
		details = append(details, d)
	}
	return details, rows.Err()
}

func (r *pgOrderRepo) GetDetail(ctx context.Context, orderID, detailID uuid.UUID) (*model.OrderDetail, error) {
	d := &model.OrderDetail{}
	err := r.q.QueryRow(ctx,
		`SELECT od_id, order_o_id, product_p_id, size, quantity, od_price
		 FROM order_details WHERE od_id = $1 AND order_o_id = $2`, detailID, orderID,
	).Scan(&d.ID, &d.OrderID, &d.ProductID, &d.Size, &d.Quantity, &d.Price)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get order detail: %w", err)
	}
	return d, nil
}

func (r *pgOrderRepo) DeleteDetails(ctx context.Context, orderID uuid.UUID) error {
	if _, err := r.q.Exec(ctx, `DELETE FROM order_details WHERE order_o_id = $1`, orderID); err != nil {
		return fmt.Errorf("delete order details: %w", err)
	}
	return nil
}
