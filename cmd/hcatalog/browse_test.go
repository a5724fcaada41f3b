package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/Humphrey-He/hcatalog/internal/mockapi"
	"github.com/Humphrey-He/hcatalog/pkg/pagination"
)

func newMockAPI(t *testing.T, n int) string {
	t.Helper()
	gin.SetMode(gin.TestMode)
	api := mockapi.NewServer(mockapi.NewCatalog(mockapi.Generate(n, 3)), nil)
	srv := httptest.NewServer(api.Handler())
	t.Cleanup(srv.Close)
	return srv.URL
}

// TestBrowse tests loading several pages and printing them.
// TestBrowse 测试加载多页并打印。
func TestBrowse(t *testing.T) {
	config, err := browseConfig("", newMockAPI(t, 30))
	if err != nil {
		t.Fatalf("Failed to build config: %v", err)
	}

	var out bytes.Buffer
	if err := runBrowse(context.Background(), &out, config, "_limit=5", 2, false); err != nil {
		t.Fatalf("Browse failed: %v", err)
	}
	text := out.String()
	if !strings.HasPrefix(text, "?_page=1&_limit=5") {
		t.Errorf("Expected query header, got %q", text)
	}
	if !strings.Contains(text, "10 of 30 products, more available") {
		t.Errorf("Expected product count line, got %q", text)
	}
	if !strings.Contains(text, "< 1 [2] 3 4 ... 6 >") {
		t.Errorf("Expected pagination bar, got %q", text)
	}
}

// TestBrowseJSON tests the JSON output.
func TestBrowseJSON(t *testing.T) {
	config, err := browseConfig("", newMockAPI(t, 3))
	if err != nil {
		t.Fatalf("Failed to build config: %v", err)
	}

	var out bytes.Buffer
	if err := runBrowse(context.Background(), &out, config, "", 3, true); err != nil {
		t.Fatalf("Browse failed: %v", err)
	}
	var view struct {
		Products    []json.RawMessage `json:"products"`
		HasNextPage bool              `json:"hasNextPage"`
		Status      string            `json:"status"`
	}
	if err := json.Unmarshal(out.Bytes(), &view); err != nil {
		t.Fatalf("Failed to decode output: %v", err)
	}
	if len(view.Products) != 3 || view.HasNextPage || view.Status != "settled" {
		t.Errorf("Unexpected view: %d products, next %v, %s", len(view.Products), view.HasNextPage, view.Status)
	}
}

// TestBrowseConfigRequiresBaseURL tests that a missing API origin is a startup error.
func TestBrowseConfigRequiresBaseURL(t *testing.T) {
	if _, err := browseConfig("", ""); err == nil {
		t.Error("Expected error without a base URL")
	}
}

// TestPaginationBar tests rendering of the pagination window.
func TestPaginationBar(t *testing.T) {
	tests := []struct {
		page, total int
		expected    string
	}{
		{1, 3, "[1] 2 3 >"},
		{2, 3, "< 1 [2] 3 >"},
		{5, 10, "< 1 ... 4 [5] 6 ... 10 >"},
	}
	for _, tc := range tests {
		if got := paginationBar(pagination.Build(tc.page, tc.total)); got != tc.expected {
			t.Errorf("paginationBar(%d, %d) = %q, expected %q", tc.page, tc.total, got, tc.expected)
		}
	}
}
