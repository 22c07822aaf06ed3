package http

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"expensely/internal/core"
)

func TestParseExpenseInput(t *testing.T) {
	tests := []struct {
		name        string
		contentType string
		body        string
		want        core.ExpenseInput
		wantErr     bool
	}{
		{
			name:        "form",
			contentType: "application/x-www-form-urlencoded",
			body:        "description=Lunch&amount=12.50&category=Food&date=2024-06-01",
			want:        core.ExpenseInput{Description: "Lunch", Amount: "12.50", Category: "Food", Date: "2024-06-01"},
		},
		{
			name:        "json with numeric amount",
			contentType: "application/json",
			body:        `{"description":"Bus","amount":2.5,"category":"Transport","date":"2024-06-02"}`,
			want:        core.ExpenseInput{Description: "Bus", Amount: "2.5", Category: "Transport", Date: "2024-06-02"},
		},
		{
			name: "json detected without content type",
			body: `{"description":"Rent","amount":"900","category":"Housing","date":"2024-06-03"}`,
			want: core.ExpenseInput{Description: "Rent", Amount: "900", Category: "Housing", Date: "2024-06-03"},
		},
		{
			name:        "control characters stripped and trimmed",
			contentType: "application/x-www-form-urlencoded",
			body:        "description=%20Coffee%07%20&amount=3&category=Food&date=2024-06-04",
			want:        core.ExpenseInput{Description: "Coffee", Amount: "3", Category: "Food", Date: "2024-06-04"},
		},
		{
			name:        "empty body",
			contentType: "application/x-www-form-urlencoded",
			want:        core.ExpenseInput{},
		},
		{
			name:        "malformed json",
			contentType: "application/json",
			body:        `{"description":`,
			wantErr:     true,
		},
		{
			name:        "oversized body",
			contentType: "application/x-www-form-urlencoded",
			body:        "description=" + strings.Repeat("a", maxBodyBytes+10),
			wantErr:     true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/expenses", strings.NewReader(tt.body))
			if tt.contentType != "" {
				req.Header.Set("Content-Type", tt.contentType)
			}

			got, err := ParseExpenseInput(req)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestParseCredentials_PasswordVerbatim(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader("email=+a%40b.co+&password=+secret%09"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	creds, err := ParseCredentials(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if creds.Email != "a@b.co" {
		t.Errorf("Email = %q", creds.Email)
	}
	if creds.Password != " secret\t" {
		t.Errorf("Password = %q, want it untouched", creds.Password)
	}
}

func TestRequestBodyParser_ParseOnce(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"ok":true}`))
	p := NewRequestBodyParser(req)
	if err := p.Parse(); err != nil {
		t.Fatal(err)
	}
	if err := p.Parse(); err != nil {
		t.Fatal(err)
	}
	if p.Get("ok") != "true" {
		t.Errorf("ok=%q", p.Get("ok"))
	}
	if p.Get("missing") != "" {
		t.Error("missing key should be empty")
	}
}
