package scraper

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync/atomic"
	"testing"
)

func TestExtractBillNumbers(t *testing.T) {
	tests := []struct {
		name     string
		page     string
		billType string
		want     []int
	}{
		{
			name: "anchors with href and text",
			page: `<html><body>
				<a href="/BillLookup/History.aspx?LegSess=891&Bill=HB00001">HB 1</a>
				<a href="/BillLookup/History.aspx?LegSess=891&Bill=HB00042">HB 42</a>
				<a href="/BillLookup/History.aspx?LegSess=891&Bill=HB00789">HB 789</a>
			</body></html>`,
			billType: "HB",
			want:     []int{1, 42, 789},
		},
		{
			name: "duplicates collapse",
			page: `<a href="?Bill=HB00005">HB 5</a> <a href="?Bill=HB00005">HB 5</a>`,
			billType: "HB",
			want:     []int{5},
		},
		{
			name:     "other bill types ignored",
			page:     `<a href="?Bill=SB00009">SB 9</a> <a href="?Bill=HB00003">HB 3</a>`,
			billType: "HB",
			want:     []int{3},
		},
		{
			name:     "leading zeros stripped",
			page:     `<a href="?Bill=HB00042">HB 00042</a>`,
			billType: "HB",
			want:     []int{42},
		},
		{
			name:     "zero and out-of-range rejected",
			page:     `<a href="?Bill=HB00000">HB 0</a> <a href="?Bill=HB10000">HB 10000</a> <a href="?Bill=HB99999">HB 99999</a> <a href="?Bill=HB09999">HB 9999</a>`,
			billType: "HB",
			want:     []int{9999},
		},
		{
			name:     "text-only anchors still match",
			page:     `<a href="/somewhere">HB 17</a>`,
			billType: "HB",
			want:     []int{17},
		},
		{
			name:     "empty page",
			page:     `<html><body></body></html>`,
			billType: "HB",
			want:     []int{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := extractBillNumbers([]byte(tt.page), tt.billType)
			sort.Ints(got)
			if len(got) != len(tt.want) {
				t.Fatalf("extractBillNumbers() = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Fatalf("extractBillNumbers() = %v, want %v", got, tt.want)
				}
			}
		})
	}
}

func TestBillNumbers_SoftFailsOnServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	f := NewFetcher(srv.URL, "test-agent")
	got := f.BillNumbers(context.Background(), "891", "HB")
	if len(got) != 0 {
		t.Errorf("BillNumbers() = %v, want empty on server error", got)
	}
}

func TestBillNumbers_FetchesListingPage(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path + "?" + r.URL.RawQuery
		fmt.Fprint(w, `<a href="?Bill=HB00012">HB 12</a>`)
	}))
	defer srv.Close()

	f := NewFetcher(srv.URL, "test-agent")
	got := f.BillNumbers(context.Background(), "891", "HB")

	if gotPath != "/Reports/Report.aspx?LegSess=891&ID=HBfiled" {
		t.Errorf("request path = %q", gotPath)
	}
	if len(got) != 1 || got[0] != 12 {
		t.Errorf("BillNumbers() = %v, want [12]", got)
	}
}

func TestBillDetail(t *testing.T) {
	page := `<html><body>
		<td>Caption Text:</td><td>Relating to public school finance.</td>
		<td>Author:</td><td>Smith</td>
		<td>Last Action:</td><td>03/15/2025 H Referred to Public Education</td>
	</body></html>`

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.RawQuery != "LegSess=891&Bill=HB3" {
			t.Errorf("unexpected query: %s", r.URL.RawQuery)
		}
		fmt.Fprint(w, page)
	}))
	defer srv.Close()

	f := NewFetcher(srv.URL, "test-agent")
	parsed, ok := f.BillDetail(context.Background(), "891", "HB", 3)
	if !ok {
		t.Fatal("BillDetail() reported failure")
	}

	if parsed.BillNumber() != "HB 3" {
		t.Errorf("BillNumber() = %q", parsed.BillNumber())
	}
	if parsed.Description != "Relating to public school finance." {
		t.Errorf("Description = %q", parsed.Description)
	}
	if len(parsed.Authors) != 1 || parsed.Authors[0] != "Smith" {
		t.Errorf("Authors = %v", parsed.Authors)
	}
	if parsed.Status != StatusInCommittee {
		t.Errorf("Status = %q", parsed.Status)
	}
	if parsed.LastAction != "Referred to Public Education" {
		t.Errorf("LastAction = %q", parsed.LastAction)
	}
	if parsed.LastActionDate == nil {
		t.Error("LastActionDate is nil")
	}
}

func TestBillDetail_NotFound(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.NotFound(w, r)
	}))
	defer srv.Close()

	f := NewFetcher(srv.URL, "test-agent")
	parsed, ok := f.BillDetail(context.Background(), "891", "HB", 9999)
	if ok {
		t.Error("BillDetail() reported success for 404")
	}
	if parsed != nil {
		t.Errorf("parsed = %+v, want nil", parsed)
	}
	// 4xx is permanent, no retries.
	if got := calls.Load(); got != 1 {
		t.Errorf("server called %d times, want 1", got)
	}
}

func TestBillDetail_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			http.Error(w, "flaky", http.StatusServiceUnavailable)
			return
		}
		fmt.Fprint(w, `Caption: Relating to retries.`)
	}))
	defer srv.Close()

	f := NewFetcher(srv.URL, "test-agent")
	parsed, ok := f.BillDetail(context.Background(), "891", "SB", 1)
	if !ok {
		t.Fatal("BillDetail() reported failure after retries")
	}
	if parsed.Description != "Relating to retries." {
		t.Errorf("Description = %q", parsed.Description)
	}
	if got := calls.Load(); got != 3 {
		t.Errorf("server called %d times, want 3", got)
	}
}

func TestBillDetail_MissingFields(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body>nothing useful</body></html>`)
	}))
	defer srv.Close()

	f := NewFetcher(srv.URL, "test-agent")
	parsed, ok := f.BillDetail(context.Background(), "891", "HB", 55)
	if !ok {
		t.Fatal("BillDetail() reported failure")
	}

	if parsed.Description != "HB 55" {
		t.Errorf("Description = %q, want fallback", parsed.Description)
	}
	if len(parsed.Authors) != 0 {
		t.Errorf("Authors = %v, want empty", parsed.Authors)
	}
	if parsed.Status != StatusFiled {
		t.Errorf("Status = %q, want %q", parsed.Status, StatusFiled)
	}
	if parsed.LastAction != "" || parsed.LastActionDate != nil {
		t.Errorf("LastAction = %q, %v, want zero values", parsed.LastAction, parsed.LastActionDate)
	}
}
