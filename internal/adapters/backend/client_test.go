package backend

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
	"time"

	"orgconsole/internal/adapters/http/perf"
	"orgconsole/internal/domain/bulk"
	"orgconsole/internal/domain/membership"
)

func newTestClient(t *testing.T, h http.HandlerFunc) (*Client, *perf.Collector) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	collector := perf.NewCollector(32)
	return NewClient(srv.URL+"/", "Bearer tok", srv.Client(), collector), collector
}

// TestClient_BulkCreateMemberships verifies the request body, auth header and decoding.
func TestClient_BulkCreateMemberships(t *testing.T) {
	client, collector := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/student-memberships/bulk" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer tok" {
			t.Errorf("Authorization = %q", got)
		}
		var body BulkMembershipRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode: %v", err)
		}
		if !reflect.DeepEqual(body, BulkMembershipRequest{StudentIDs: []string{"1", "2"}, YearStart: 2025, YearEnd: 2026}) {
			t.Errorf("body = %+v", body)
		}
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`[{"membershipId":9,"studentId":"1","active":true,"yearStart":2025,"yearEnd":2026}]`))
	})

	got, err := client.BulkCreateMemberships(context.Background(), BulkMembershipRequest{StudentIDs: []string{"1", "2"}, YearStart: 2025, YearEnd: 2026})
	if err != nil {
		t.Fatalf("BulkCreateMemberships: %v", err)
	}
	want := []membership.Membership{{MembershipID: 9, StudentID: "1", Active: true, YearStart: 2025, YearEnd: 2026}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %+v", got)
	}
	snap := collector.Snapshot(time.Now().Add(-time.Minute), 5)
	if len(snap.SlowestBackend) != 1 || snap.SlowestBackend[0].Path != "POST /api/student-memberships/bulk" {
		t.Errorf("backend stats = %+v", snap.SlowestBackend)
	}
}

// TestClient_BulkMerchPayment verifies the payment body shape.
func TestClient_BulkMerchPayment(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var raw map[string]any
		json.NewDecoder(r.Body).Decode(&raw)
		if raw["merchVariantItemId"] != float64(12) || raw["quantity"] != float64(2) {
			t.Errorf("body = %v", raw)
		}
		w.Write([]byte(`[{"orderId":1,"studentId":"A","quantity":2,"orderStatus":"COMPLETED"}]`))
	})
	orders, err := client.BulkMerchPayment(context.Background(), BulkPaymentRequest{Entries: []string{"A", "B"}, MerchVariantItemID: 12, Quantity: 2})
	if err != nil {
		t.Fatalf("BulkMerchPayment: %v", err)
	}
	if len(orders) != 1 || orders[0].StudentID != "A" || orders[0].Status != "COMPLETED" {
		t.Errorf("orders = %+v", orders)
	}
}

// TestClient_APIErrorMessage verifies "error" wins over "message" and reaches the failure text.
func TestClient_APIErrorMessage(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"error field", `{"error":"Student 21100009 not found","message":"ignored"}`, "Student 21100009 not found"},
		{"message field", `{"message":"Insufficient stock"}`, "Insufficient stock"},
		{"no body", ``, bulk.KindMembership.FailureFallback()},
		{"html body", `<html>bad gateway</html>`, bulk.KindMembership.FailureFallback()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadRequest)
				w.Write([]byte(tt.body))
			})
			_, err := client.BulkCreateMemberships(context.Background(), BulkMembershipRequest{StudentIDs: []string{"1"}, YearStart: 2025, YearEnd: 2026})
			var apiErr *APIError
			if !errors.As(err, &apiErr) || apiErr.Status != http.StatusBadRequest {
				t.Fatalf("err = %v, want *APIError 400", err)
			}
			if got := bulk.FailureMessage(err, bulk.KindMembership.FailureFallback()); got != tt.want {
				t.Errorf("FailureMessage = %q, want %q", got, tt.want)
			}
		})
	}
}

// TestClient_PaymentRejectionShowsDetail verifies a Spring 400 on a payment surfaces the stock reason.
func TestClient_PaymentRejectionShowsDetail(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"status":400,"error":"Bad Request","message":"Insufficient stock for variant 12"}`))
	})
	_, err := client.BulkMerchPayment(context.Background(), BulkPaymentRequest{Entries: []string{"A"}, MerchVariantItemID: 12, Quantity: 1})
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("err = %v, want *APIError", err)
	}
	if apiErr.Reason != "Bad Request" || apiErr.Message != "Insufficient stock for variant 12" {
		t.Errorf("apiErr = %+v", apiErr)
	}
	if got := bulk.KindPayment.FailureMessage(err); got != "Insufficient stock for variant 12" {
		t.Errorf("payment FailureMessage = %q", got)
	}
	if got := bulk.KindMembership.FailureMessage(err); got != "Bad Request" {
		t.Errorf("membership FailureMessage = %q", got)
	}
}

// TestClient_ListMemberships verifies query parameters and page mapping.
func TestClient_ListMemberships(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("page") != "1" || q.Get("size") != "20" || q.Get("q") != "ana" {
			t.Errorf("query = %v", q)
		}
		w.Write([]byte(`{"content":[{"studentId":"1"},{"studentId":"2"}],"totalElements":42,"totalPages":3,"number":1,"size":20,"first":false,"last":false}`))
	})
	page, err := client.ListMemberships(context.Background(), MembershipQuery{Page: 1, Size: 20, Query: " ana "})
	if err != nil {
		t.Fatalf("ListMemberships: %v", err)
	}
	if page.TotalElements != 42 || page.TotalPages != 3 || len(page.Content) != 2 || page.Content[1].StudentID != "2" {
		t.Errorf("page = %+v", page)
	}
}

// TestClient_ExportMerchCustomers verifies path building and year level decoding.
func TestClient_ExportMerchCustomers(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/merch-customers/7/export" {
			t.Errorf("path = %s", r.URL.Path)
		}
		w.Write([]byte(`[{"studentId":"1","yearLevel":2,"totalPrice":350},{"studentId":"2","yearLevel":"3"}]`))
	})
	customers, err := client.ExportMerchCustomers(context.Background(), 7)
	if err != nil {
		t.Fatalf("ExportMerchCustomers: %v", err)
	}
	if len(customers) != 2 || customers[0].YearLevel != "2" || customers[1].YearLevel != "3" || customers[0].TotalPrice != 350 {
		t.Errorf("customers = %+v", customers)
	}
}

// TestClient_TransportErrorIsNotAPIError verifies a dead backend falls back to the generic message.
func TestClient_TransportErrorIsNotAPIError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()
	client := NewClient(srv.URL, "", nil, nil)
	_, err := client.BulkMerchPayment(context.Background(), BulkPaymentRequest{Entries: []string{"A"}, MerchVariantItemID: 1, Quantity: 1})
	if err == nil {
		t.Fatal("expected error")
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		t.Errorf("transport failure should not be an APIError: %v", err)
	}
	if got := bulk.FailureMessage(err, bulk.KindPayment.FailureFallback()); got != bulk.KindPayment.FailureFallback() {
		t.Errorf("FailureMessage = %q", got)
	}
}
