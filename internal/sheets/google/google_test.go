package google

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"fintrack/internal/core"
	"fintrack/internal/sheets"
)

// fakeSheets serves values.get/update/append for one sheet from memory.
type fakeSheets struct {
	mu      sync.Mutex
	values  [][]any
	appends int
	updates int
}

func (f *fakeSheets) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var vr gsheet.ValueRange
	switch {
	case r.Method == http.MethodGet:
		json.NewEncoder(w).Encode(gsheet.ValueRange{Range: "2024 Ledger!A:E", Values: f.values})
		return
	case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, ":append"):
		json.NewDecoder(r.Body).Decode(&vr)
		f.values = append(f.values, vr.Values...)
		f.appends++
		json.NewEncoder(w).Encode(gsheet.AppendValuesResponse{
			Updates: &gsheet.UpdateValuesResponse{UpdatedRange: "2024 Ledger!A1:E1"},
		})
		return
	case r.Method == http.MethodPut:
		json.NewDecoder(r.Body).Decode(&vr)
		// only single-row updates of the first row are issued in these tests
		f.values[0] = vr.Values[0]
		f.updates++
		json.NewEncoder(w).Encode(gsheet.UpdateValuesResponse{UpdatedRange: "2024 Ledger!A1:E1"})
		return
	}
	http.Error(w, "unexpected "+r.Method+" "+r.URL.Path, http.StatusNotImplemented)
}

func newTestClient(t *testing.T, h http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	svc, err := gsheet.NewService(context.Background(),
		goption.WithEndpoint(srv.URL+"/"),
		goption.WithHTTPClient(srv.Client()))
	if err != nil {
		t.Fatalf("sheets service: %v", err)
	}
	return &Client{svc: svc, spreadsheetID: "sid", sheetBase: "Ledger"}
}

func TestClient_AppendIsIdempotentPerTransaction(t *testing.T) {
	fake := &fakeSheets{}
	c := newTestClient(t, fake)
	ctx := context.Background()

	row := sheets.MirrorRow{
		TransactionID: "tx-1",
		OccurredAt:    time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC),
		Account:       "Main",
		Category:      "Groceries",
		Description:   "market",
		Amount:        core.Money{Cents: -1250},
	}
	if _, err := c.Append(ctx, row); err != nil {
		t.Fatal(err)
	}

	row.Description = "market, corrected"
	ref, err := c.Append(ctx, row)
	if err != nil {
		t.Fatal(err)
	}
	if ref != "2024 Ledger!A1:E1" {
		t.Errorf("ref = %q", ref)
	}
	if fake.appends != 1 || fake.updates != 1 {
		t.Errorf("appends = %d, updates = %d, want 1 and 1", fake.appends, fake.updates)
	}
	if len(fake.values) != 1 {
		t.Fatalf("sheet has %d rows for one transaction", len(fake.values))
	}
	if got := fake.values[0][3]; got != "market, corrected [id:tx-1]" {
		t.Errorf("description cell = %v", got)
	}
}
