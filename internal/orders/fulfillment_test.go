package orders

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/stockpit/go-inventory-api/internal/catalog"
)

// fakeStore emulates the transactional store: each InTx runs against a deep
// copy of the state which replaces the real state only on success, so a
// failed workflow leaves nothing behind. The mutex serializes transactions
// the way row locks do in Postgres.
type fakeStore struct {
	mu       sync.Mutex
	products map[int64]*catalog.Product
	orders   map[int64]Order
	items    map[int64][]OrderItem
	nextOID  int64
	nextIID  int64
}

func newFakeStore(products ...catalog.Product) *fakeStore {
	s := &fakeStore{
		products: map[int64]*catalog.Product{},
		orders:   map[int64]Order{},
		items:    map[int64][]OrderItem{},
	}
	for i := range products {
		p := products[i]
		s.products[p.ID] = &p
	}
	return s
}

func (s *fakeStore) InTx(ctx context.Context, fn func(Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &fakeTx{
		products: map[int64]*catalog.Product{},
		orders:   map[int64]Order{},
		items:    map[int64][]OrderItem{},
		nextOID:  s.nextOID,
		nextIID:  s.nextIID,
	}
	for id, p := range s.products {
		cp := *p
		tx.products[id] = &cp
	}
	for id, o := range s.orders {
		tx.orders[id] = o
	}
	for id, its := range s.items {
		tx.items[id] = append([]OrderItem(nil), its...)
	}

	if err := fn(tx); err != nil {
		return err // rollback: staged state discarded
	}
	s.products = tx.products
	s.orders = tx.orders
	s.items = tx.items
	s.nextOID = tx.nextOID
	s.nextIID = tx.nextIID
	return nil
}

type fakeTx struct {
	products map[int64]*catalog.Product
	orders   map[int64]Order
	items    map[int64][]OrderItem
	nextOID  int64
	nextIID  int64
}

func (t *fakeTx) ProductsForUpdate(ctx context.Context, ids []int64) (map[int64]*catalog.Product, error) {
	out := map[int64]*catalog.Product{}
	for _, id := range ids {
		if p, ok := t.products[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}

func (t *fakeTx) InsertOrder(ctx context.Context, o *Order) error {
	t.nextOID++
	o.ID = t.nextOID
	o.CreatedAt = time.Now()
	o.UpdatedAt = o.CreatedAt
	t.orders[o.ID] = *o
	return nil
}

func (t *fakeTx) InsertItem(ctx context.Context, it *OrderItem) error {
	t.nextIID++
	it.ID = t.nextIID
	t.items[it.OrderID] = append(t.items[it.OrderID], *it)
	return nil
}

func (t *fakeTx) UpdateProductStock(ctx context.Context, productID int64, quantity int) error {
	t.products[productID].StockQuantity = quantity
	return nil
}

func (t *fakeTx) SumItems(ctx context.Context, orderID int64) (decimal.Decimal, error) {
	sum := decimal.Zero
	for _, it := range t.items[orderID] {
		sum = sum.Add(it.Subtotal)
	}
	return sum, nil
}

func (t *fakeTx) UpdateOrderTotal(ctx context.Context, orderID int64, total decimal.Decimal) error {
	o := t.orders[orderID]
	o.TotalAmount = total
	t.orders[orderID] = o
	return nil
}

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func product(id int64, stock, threshold int) catalog.Product {
	return catalog.Product{ID: id, SKU: "SKU", StockQuantity: stock, LowStockThreshold: threshold}
}

func TestCreateSaleAdjustsStockAndReconcilesTotal(t *testing.T) {
	store := newFakeStore(product(1, 10, 2), product(2, 10, 2))
	f := &Fulfiller{Store: store}

	o, err := f.Create(context.Background(), CreateInput{
		Type: TypeSale,
		Items: []ItemInput{
			{ProductID: 1, Quantity: 2, Price: dec("10")},
			{ProductID: 2, Quantity: 1, Price: dec("5")},
		},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if !o.TotalAmount.Equal(dec("25")) {
		t.Errorf("total = %s, want 25", o.TotalAmount)
	}
	if got := store.products[1].StockQuantity; got != 8 {
		t.Errorf("stock[1] = %d, want 8", got)
	}
	if got := store.products[2].StockQuantity; got != 9 {
		t.Errorf("stock[2] = %d, want 9", got)
	}
	if o.Status != StatusPending {
		t.Errorf("status = %s, want pending", o.Status)
	}
	if len(o.Items) != 2 {
		t.Fatalf("items = %d, want 2", len(o.Items))
	}
	if !o.Items[0].Subtotal.Equal(dec("20")) || !o.Items[1].Subtotal.Equal(dec("5")) {
		t.Errorf("subtotals = %s, %s; want 20, 5", o.Items[0].Subtotal, o.Items[1].Subtotal)
	}

	// header total always matches the sum of persisted items
	sum := decimal.Zero
	for _, it := range store.items[o.ID] {
		sum = sum.Add(it.Subtotal)
	}
	if !store.orders[o.ID].TotalAmount.Equal(sum) {
		t.Errorf("persisted total %s != item sum %s", store.orders[o.ID].TotalAmount, sum)
	}
}

func TestCreateSaleInsufficientStockCommitsNothing(t *testing.T) {
	store := newFakeStore(product(1, 5, 2))
	f := &Fulfiller{Store: store}

	_, err := f.Create(context.Background(), CreateInput{
		Type:  TypeSale,
		Items: []ItemInput{{ProductID: 1, Quantity: 6, Price: dec("10")}},
	})
	var ise *InsufficientStockError
	if !errors.As(err, &ise) {
		t.Fatalf("err = %v, want InsufficientStockError", err)
	}
	if ise.ProductID != 1 || ise.Requested != 6 || ise.Available != 5 {
		t.Errorf("error detail = %+v", ise)
	}
	if got := store.products[1].StockQuantity; got != 5 {
		t.Errorf("stock = %d, want unchanged 5", got)
	}
	if len(store.orders) != 0 {
		t.Errorf("orders persisted = %d, want 0", len(store.orders))
	}
	for _, its := range store.items {
		if len(its) != 0 {
			t.Errorf("items persisted = %d, want 0", len(its))
		}
	}
}

func TestCreatePurchaseAddsStock(t *testing.T) {
	store := newFakeStore(product(1, 8, 2))
	f := &Fulfiller{Store: store}

	o, err := f.Create(context.Background(), CreateInput{
		Type:  TypePurchase,
		Items: []ItemInput{{ProductID: 1, Quantity: 10, Price: dec("9")}},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if got := store.products[1].StockQuantity; got != 18 {
		t.Errorf("stock = %d, want 18", got)
	}
	if !o.TotalAmount.Equal(dec("90")) {
		t.Errorf("total = %s, want 90", o.TotalAmount)
	}
}

func TestCreateUnknownProduct(t *testing.T) {
	store := newFakeStore(product(1, 10, 2))
	f := &Fulfiller{Store: store}

	_, err := f.Create(context.Background(), CreateInput{
		Type: TypeSale,
		Items: []ItemInput{
			{ProductID: 1, Quantity: 1, Price: dec("10")},
			{ProductID: 42, Quantity: 1, Price: dec("10")},
		},
	})
	var nf *NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("err = %v, want NotFoundError", err)
	}
	if nf.ProductID != 42 {
		t.Errorf("product id = %d, want 42", nf.ProductID)
	}
	if got := store.products[1].StockQuantity; got != 10 {
		t.Errorf("stock = %d, want unchanged 10", got)
	}
	if len(store.orders) != 0 {
		t.Errorf("orders persisted = %d, want 0", len(store.orders))
	}
}

func TestCreateValidation(t *testing.T) {
	f := &Fulfiller{Store: newFakeStore(product(1, 10, 2))}
	cases := []struct {
		name string
		in   CreateInput
	}{
		{"bad type", CreateInput{Type: "refund", Items: []ItemInput{{ProductID: 1, Quantity: 1, Price: dec("1")}}}},
		{"no items", CreateInput{Type: TypeSale}},
		{"zero quantity", CreateInput{Type: TypeSale, Items: []ItemInput{{ProductID: 1, Quantity: 0, Price: dec("1")}}}},
		{"negative price", CreateInput{Type: TypeSale, Items: []ItemInput{{ProductID: 1, Quantity: 1, Price: dec("-1")}}}},
		{"bad product id", CreateInput{Type: TypeSale, Items: []ItemInput{{ProductID: 0, Quantity: 1, Price: dec("1")}}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.Create(context.Background(), tc.in)
			var ve *ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("err = %v, want ValidationError", err)
			}
		})
	}
}

func TestCreateSameProductTwiceRollsBackTogether(t *testing.T) {
	store := newFakeStore(product(1, 3, 0))
	f := &Fulfiller{Store: store}

	// first item fits, second drives the same product negative
	_, err := f.Create(context.Background(), CreateInput{
		Type: TypeSale,
		Items: []ItemInput{
			{ProductID: 1, Quantity: 2, Price: dec("10")},
			{ProductID: 1, Quantity: 2, Price: dec("10")},
		},
	})
	var ise *InsufficientStockError
	if !errors.As(err, &ise) {
		t.Fatalf("err = %v, want InsufficientStockError", err)
	}
	if ise.Available != 1 {
		t.Errorf("available = %d, want 1 (after the first item)", ise.Available)
	}
	if got := store.products[1].StockQuantity; got != 3 {
		t.Errorf("stock = %d, want unchanged 3", got)
	}
}

func TestConcurrentSaleOfLastUnit(t *testing.T) {
	store := newFakeStore(product(1, 1, 0))
	f := &Fulfiller{Store: store}

	var wg sync.WaitGroup
	results := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, results[i] = f.Create(context.Background(), CreateInput{
				Type:  TypeSale,
				Items: []ItemInput{{ProductID: 1, Quantity: 1, Price: dec("10")}},
			})
		}(i)
	}
	wg.Wait()

	var ok, insufficient int
	for _, err := range results {
		var ise *InsufficientStockError
		switch {
		case err == nil:
			ok++
		case errors.As(err, &ise):
			insufficient++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if ok != 1 || insufficient != 1 {
		t.Errorf("ok = %d, insufficient = %d; want exactly one of each", ok, insufficient)
	}
	if got := store.products[1].StockQuantity; got != 0 {
		t.Errorf("final stock = %d, want 0", got)
	}
}

func TestRecomputeTotalIdempotent(t *testing.T) {
	store := newFakeStore(product(1, 10, 2))
	f := &Fulfiller{Store: store}

	o, err := f.Create(context.Background(), CreateInput{
		Type:  TypeSale,
		Items: []ItemInput{{ProductID: 1, Quantity: 3, Price: dec("19.99")}},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	first, err := f.RecomputeTotal(context.Background(), o.ID)
	if err != nil {
		t.Fatalf("first recompute: %v", err)
	}
	second, err := f.RecomputeTotal(context.Background(), o.ID)
	if err != nil {
		t.Fatalf("second recompute: %v", err)
	}
	if !first.Equal(dec("59.97")) {
		t.Errorf("total = %s, want 59.97", first)
	}
	if !second.Equal(first) {
		t.Errorf("repeated recompute changed the total: %s then %s", first, second)
	}
	if !store.orders[o.ID].TotalAmount.Equal(first) {
		t.Errorf("persisted total = %s, want %s", store.orders[o.ID].TotalAmount, first)
	}
}

func TestRecomputeTotalRepairsDriftedHeader(t *testing.T) {
	store := newFakeStore(product(1, 10, 2))
	f := &Fulfiller{Store: store}

	o, err := f.Create(context.Background(), CreateInput{
		Type:  TypeSale,
		Items: []ItemInput{{ProductID: 1, Quantity: 2, Price: dec("10")}},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	drifted := store.orders[o.ID]
	drifted.TotalAmount = dec("999")
	store.orders[o.ID] = drifted

	total, err := f.RecomputeTotal(context.Background(), o.ID)
	if err != nil {
		t.Fatalf("recompute: %v", err)
	}
	if !total.Equal(dec("20")) {
		t.Errorf("total = %s, want 20", total)
	}
	if !store.orders[o.ID].TotalAmount.Equal(dec("20")) {
		t.Errorf("persisted total = %s, want 20", store.orders[o.ID].TotalAmount)
	}
}

func TestCreateRequestedTotalMatchesReconciled(t *testing.T) {
	store := newFakeStore(product(1, 100, 2))
	f := &Fulfiller{Store: store}

	o, err := f.Create(context.Background(), CreateInput{
		Type: TypeSale,
		Items: []ItemInput{
			{ProductID: 1, Quantity: 3, Price: dec("19.99")},
			{ProductID: 1, Quantity: 1, Price: dec("0.02")},
		},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if !o.TotalAmount.Equal(dec("59.99")) {
		t.Errorf("total = %s, want 59.99", o.TotalAmount)
	}
}
