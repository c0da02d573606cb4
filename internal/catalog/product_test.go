package catalog

import (
	"errors"
	"testing"
)

func TestIsLowStock(t *testing.T) {
	cases := []struct {
		stock, threshold int
		want             bool
	}{
		{0, 10, true},
		{10, 10, true},
		{11, 10, false},
		{5, 0, false},
		{0, 0, true},
	}
	for _, tc := range cases {
		p := Product{StockQuantity: tc.stock, LowStockThreshold: tc.threshold}
		if got := p.IsLowStock(); got != tc.want {
			t.Errorf("IsLowStock(stock=%d, threshold=%d) = %v, want %v", tc.stock, tc.threshold, got, tc.want)
		}
	}
}

func TestAdjust(t *testing.T) {
	p := Product{StockQuantity: 5}

	if err := p.Adjust(3, DirAdd); err != nil {
		t.Fatalf("add: %v", err)
	}
	if p.StockQuantity != 8 {
		t.Errorf("stock = %d, want 8", p.StockQuantity)
	}

	if err := p.Adjust(8, DirSubtract); err != nil {
		t.Fatalf("subtract: %v", err)
	}
	if p.StockQuantity != 0 {
		t.Errorf("stock = %d, want 0", p.StockQuantity)
	}
}

func TestAdjustNeverGoesNegative(t *testing.T) {
	p := Product{StockQuantity: 5}
	err := p.Adjust(6, DirSubtract)
	if !errors.Is(err, ErrNegativeStock) {
		t.Fatalf("err = %v, want ErrNegativeStock", err)
	}
	if p.StockQuantity != 5 {
		t.Errorf("stock = %d, want unchanged 5", p.StockQuantity)
	}
}

func TestAdjustRejectsNegativeQuantity(t *testing.T) {
	p := Product{StockQuantity: 5}
	if err := p.Adjust(-1, DirAdd); err == nil {
		t.Error("negative adjust quantity accepted")
	}
	if p.StockQuantity != 5 {
		t.Errorf("stock = %d, want unchanged 5", p.StockQuantity)
	}
}
