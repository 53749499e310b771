package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/flicky/go-storefront-api/internal/model"
	"github.com/flicky/go-storefront-api/internal/repository"
)

// memStore is an in-memory repository.Store. WithTx runs fn against a copy of
// the data and swaps it in only when fn succeeds, so rollbacks behave like the
// database. Transactions are serialised, standing in for row locks.
type memStore struct {
	mu    sync.Mutex
	state *memState
	fail  map[string]error
}

type sizeKey struct {
	productID uuid.UUID
	size      string
}

type memState struct {
	users      map[uuid.UUID]model.User
	products   map[uuid.UUID]model.Product
	sizes      map[sizeKey]int
	categories []model.Category
	orders     []model.Order
	details    []model.OrderDetail
	payments   []model.Payment
}

func newMemStore() *memStore {
	return &memStore{
		state: &memState{
			users:    map[uuid.UUID]model.User{},
			products: map[uuid.UUID]model.Product{},
			sizes:    map[sizeKey]int{},
		},
		fail: map[string]error{},
	}
}

func (st *memState) clone() *memState {
	c := &memState{
		users:      make(map[uuid.UUID]model.User, len(st.users)),
		products:   make(map[uuid.UUID]model.Product, len(st.products)),
		sizes:      make(map[sizeKey]int, len(st.sizes)),
		categories: append([]model.Category(nil), st.categories...),
		orders:     append([]model.Order(nil), st.orders...),
		details:    append([]model.OrderDetail(nil), st.details...),
		payments:   append([]model.Payment(nil), st.payments...),
	}
	for k, v := range st.users {
		c.users[k] = v
	}
	for k, v := range st.products {
		c.products[k] = v
	}
	for k, v := range st.sizes {
		c.sizes[k] = v
	}
	return c
}

// failOn makes the named repository method return err.
func (s *memStore) failOn(method string, err error) { s.fail[method] = err }

func (s *memStore) repos(st *memState) memRepos { return memRepos{st: st, fail: s.fail} }

func (s *memStore) Users() repository.UserRepository       { return s.repos(s.state).Users() }
func (s *memStore) Products() repository.ProductRepository { return s.repos(s.state).Products() }
func (s *memStore) Orders() repository.OrderRepository     { return s.repos(s.state).Orders() }
func (s *memStore) Payments() repository.PaymentRepository { return s.repos(s.state).Payments() }
func (s *memStore) Ping(context.Context) error             { return nil }

func (s *memStore) WithTx(_ context.Context, fn func(tx repository.Repos) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	work := s.state.clone()
	if err := fn(s.repos(work)); err != nil {
		return err
	}
	s.state = work
	return nil
}

func (s *memStore) stock(productID uuid.UUID, size string) int {
	return s.state.sizes[sizeKey{productID, size}]
}

func (s *memStore) seedProduct(price string, stock map[string]int) model.Product {
	p := model.Product{
		ID:    uuid.New(),
		Name:  "Runner",
		Brand: "Acme",
		Price: decimal.RequireFromString(price),
	}
	s.state.products[p.ID] = p
	for size, n := range stock {
		s.state.sizes[sizeKey{p.ID, size}] = n
	}
	return p
}

type memRepos struct {
	st   *memState
	fail map[string]error
}

func (r memRepos) Users() repository.UserRepository       { return memUsers(r) }
func (r memRepos) Products() repository.ProductRepository { return memProducts(r) }
func (r memRepos) Orders() repository.OrderRepository     { return memOrders(r) }
func (r memRepos) Payments() repository.PaymentRepository { return memPayments(r) }

// --- users ---

type memUsers memRepos

func (r memUsers) Create(_ context.Context, u *model.User) error {
	u.ID = uuid.New()
	u.CreatedAt = time.Now()
	u.UpdatedAt = u.CreatedAt
	r.st.users[u.ID] = *u
	return nil
}

func (r memUsers) GetByID(_ context.Context, id uuid.UUID) (*model.User, error) {
	u, ok := r.st.users[id]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

func (r memUsers) GetByEmail(_ context.Context, email string) (*model.User, error) {
	for _, u := range r.st.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, nil
}

// --- products ---

type memProducts memRepos

func (r memProducts) Create(ctx context.Context, p *model.Product) error {
	p.ID = uuid.New()
	p.CreatedAt = time.Now()
	p.UpdatedAt = p.CreatedAt
	stored := *p
	stored.Sizes = nil
	r.st.products[p.ID] = stored
	for i := range p.Sizes {
		p.Sizes[i].ProductID = p.ID
		if err := r.UpsertSize(ctx, p.Sizes[i]); err != nil {
			return err
		}
	}
	return nil
}

func (r memProducts) GetByID(_ context.Context, id uuid.UUID) (*model.Product, error) {
	p, ok := r.st.products[id]
	if !ok {
		return nil, nil
	}
	p.Sizes = nil
	for k, stock := range r.st.sizes {
		if k.productID == id {
			p.Sizes = append(p.Sizes, model.ProductSize{ProductID: id, Size: k.size, Stock: stock})
		}
	}
	sort.Slice(p.Sizes, func(i, j int) bool { return p.Sizes[i].Size < p.Sizes[j].Size })
	return &p, nil
}

func (r memProducts) List(_ context.Context, limit, offset int) ([]model.Product, int, error) {
	var all []model.Product
	for _, p := range r.st.products {
		all = append(all, p)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Name < all[j].Name })
	total := len(all)
	if offset >= total {
		return nil, total, nil
	}
	end := min(offset+limit, total)
	return all[offset:end], total, nil
}

func (r memProducts) Update(_ context.Context, p *model.Product) error {
	if _, ok := r.st.products[p.ID]; !ok {
		return pgx.ErrNoRows
	}
	p.UpdatedAt = time.Now()
	stored := *p
	stored.Sizes = nil
	r.st.products[p.ID] = stored
	return nil
}

func (r memProducts) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := r.st.products[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(r.st.products, id)
	for k := range r.st.sizes {
		if k.productID == id {
			delete(r.st.sizes, k)
		}
	}
	return nil
}

func (r memProducts) UpsertSize(_ context.Context, s model.ProductSize) error {
	r.st.sizes[sizeKey{s.ProductID, s.Size}] = s.Stock
	return nil
}

func (r memProducts) LockSize(_ context.Context, productID uuid.UUID, size string) (*model.ProductSize, error) {
	stock, ok := r.st.sizes[sizeKey{productID, size}]
	if !ok {
		return nil, nil
	}
	return &model.ProductSize{ProductID: productID, Size: size, Stock: stock}, nil
}

func (r memProducts) DecrementStock(_ context.Context, productID uuid.UUID, size string, quantity int) error {
	if err := r.fail["DecrementStock"]; err != nil {
		return err
	}
	k := sizeKey{productID, size}
	if r.st.sizes[k] < quantity {
		return repository.ErrInsufficientStock
	}
	r.st.sizes[k] -= quantity
	return nil
}

func (r memProducts) ListCategories(context.Context) ([]model.Category, error) {
	return append([]model.Category(nil), r.st.categories...), nil
}

func (r memProducts) CreateCategory(_ context.Context, c *model.Category) error {
	c.ID = uuid.New()
	r.st.categories = append(r.st.categories, *c)
	return nil
}

// --- orders ---

type memOrders memRepos

func (r memOrders) index(id uuid.UUID) int {
	for i := range r.st.orders {
		if r.st.orders[i].ID == id {
			return i
		}
	}
	return -1
}

func (r memOrders) Create(_ context.Context, o *model.Order) error {
	o.ID = uuid.New()
	o.CreatedAt = time.Now()
	o.TotalAmount = decimal.Zero
	stored := *o
	stored.Details = nil
	r.st.orders = append(r.st.orders, stored)
	return nil
}

func (r memOrders) GetByID(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	i := r.index(id)
	if i < 0 {
		return nil, nil
	}
	o := r.st.orders[i]
	o.Details, _ = r.ListDetails(ctx, id)
	return &o, nil
}

func (r memOrders) List(_ context.Context, userID *uuid.UUID) ([]model.Order, error) {
	var out []model.Order
	for _, o := range r.st.orders {
		if userID == nil || o.UserID == *userID {
			out = append(out, o)
		}
	}
	return out, nil
}

func (r memOrders) Update(_ context.Context, id uuid.UUID, patch repository.OrderPatch) (*model.Order, error) {
	i := r.index(id)
	if i < 0 {
		return nil, nil
	}
	if patch.PromisedDate != nil {
		r.st.orders[i].PromisedDate = *patch.PromisedDate
	}
	if patch.Address != nil {
		r.st.orders[i].Address = *patch.Address
	}
	o := r.st.orders[i]
	return &o, nil
}

func (r memOrders) Delete(_ context.Context, id uuid.UUID) error {
	i := r.index(id)
	if i < 0 {
		return pgx.ErrNoRows
	}
	r.st.orders = append(r.st.orders[:i], r.st.orders[i+1:]...)
	return nil
}

func (r memOrders) RecomputeTotal(_ context.Context, id uuid.UUID) (decimal.Decimal, error) {
	i := r.index(id)
	if i < 0 {
		return decimal.Zero, pgx.ErrNoRows
	}
	total := decimal.Zero
	for _, d := range r.st.details {
		if d.OrderID == id {
			total = total.Add(d.Subtotal())
		}
	}
	r.st.orders[i].TotalAmount = total
	return total, nil
}

func (r memOrders) MarkComplete(_ context.Context, id uuid.UUID) error {
	if err := r.fail["MarkComplete"]; err != nil {
		return err
	}
	i := r.index(id)
	if i < 0 {
		return pgx.ErrNoRows
	}
	r.st.orders[i].IsComplete = true
	return nil
}

func (r memOrders) CreateDetail(_ context.Context, d *model.OrderDetail) error {
	if err := r.fail["CreateDetail"]; err != nil {
		return err
	}
	d.ID = uuid.New()
	r.st.details = append(r.st.details, *d)
	return nil
}

func (r memOrders) ListDetails(_ context.Context, orderID uuid.UUID) ([]model.OrderDetail, error) {
	var out []model.OrderDetail
	for _, d := range r.st.details {
		if d.OrderID == orderID {
			out = append(out, d)
		}
	}
	return out, nil
}

func (r memOrders) GetDetail(_ context.Context, orderID, detailID uuid.UUID) (*model.OrderDetail, error) {
	for _, d := range r.st.details {
		if d.OrderID == orderID && d.ID == detailID {
			return &d, nil
		}
	}
	return nil, nil
}

func (r memOrders) DeleteDetails(_ context.Context, orderID uuid.UUID) error {
	kept := r.st.details[:0]
	for _, d := range r.st.details {
		if d.OrderID != orderID {
			kept = append(kept, d)
		}
	}
	r.st.details = kept
	return nil
}

// --- payments ---

type memPayments memRepos

func (r memPayments) index(id uuid.UUID) int {
	for i := range r.st.payments {
		if r.st.payments[i].ID == id {
			return i
		}
	}
	return -1
}

func (r memPayments) Create(_ context.Context, p *model.Payment) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	r.st.payments = append(r.st.payments, *p)
	return nil
}

func (r memPayments) GetByID(_ context.Context, id uuid.UUID) (*model.Payment, error) {
	i := r.index(id)
	if i < 0 {
		return nil, nil
	}
	p := r.st.payments[i]
	return &p, nil
}

func (r memPayments) ListByOrderID(_ context.Context, orderID uuid.UUID) ([]model.Payment, error) {
	var out []model.Payment
	for _, p := range r.st.payments {
		if p.OrderID == orderID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r memPayments) UpdateStatus(_ context.Context, id uuid.UUID, status model.PaymentStatus) (*model.Payment, error) {
	i := r.index(id)
	if i < 0 {
		return nil, nil
	}
	r.st.payments[i].Status = status
	p := r.st.payments[i]
	return &p, nil
}

func (r memPayments) SetCheckoutSession(_ context.Context, id uuid.UUID, sessionID string) error {
	i := r.index(id)
	if i < 0 {
		return pgx.ErrNoRows
	}
	r.st.payments[i].CheckoutSessionID = sessionID
	return nil
}

func (r memPayments) DeleteByOrderID(_ context.Context, orderID uuid.UUID) error {
	kept := r.st.payments[:0]
	for _, p := range r.st.payments {
		if p.OrderID != orderID {
			kept = append(kept, p)
		}
	}
	r.st.payments = kept
	return nil
}
