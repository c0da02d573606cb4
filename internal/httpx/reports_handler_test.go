package httpx

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestReportDateWindowValidation(t *testing.T) {
	h := &ReportsHandler{}
	handlers := map[string]http.HandlerFunc{
		"sales":               h.sales,
		"product-performance": h.productPerformance,
		"sales-trend":         h.salesTrend,
	}

	cases := []struct {
		name  string
		query string
	}{
		{"missing both", ""},
		{"missing end", "?startDate=2026-01-01T00:00:00Z"},
		{"bad start", "?startDate=yesterday&endDate=2026-01-31T00:00:00Z"},
		{"bad end", "?startDate=2026-01-01T00:00:00Z&endDate=soon"},
	}
	for name, fn := range handlers {
		for _, tc := range cases {
			t.Run(name+"/"+tc.name, func(t *testing.T) {
				rec := httptest.NewRecorder()
				req := httptest.NewRequest(http.MethodGet, "/api/reports/"+name+tc.query, nil)
				fn(rec, req)
				if rec.Code != http.StatusBadRequest {
					t.Errorf("status = %d, want 400", rec.Code)
				}
			})
		}
	}
}
