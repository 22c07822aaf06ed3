package http

import (
	"testing"

	"expensely/internal/core"
)

func TestPercentOf(t *testing.T) {
	tests := []struct {
		name    string
		v       int64
		largest int64
		want    int
	}{
		{"largest is full width", 500, 500, 100},
		{"half", 250, 500, 50},
		{"rounds half up", 5, 200, 3},
		{"tiny values stay visible", 1, 100000, minBarPercent},
		{"zero value", 0, 500, 0},
		{"no data", 0, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := percentOf(tt.v, tt.largest); got != tt.want {
				t.Errorf("percentOf(%d, %d) = %d, want %d", tt.v, tt.largest, got, tt.want)
			}
		})
	}
}

func TestCategoryViews(t *testing.T) {
	views := categoryViews([]core.CategoryTotal{
		{Category: "Food", Total: core.Money{Cents: 4000}, Color: "#FF6384"},
		{Category: "Transport", Total: core.Money{Cents: 500}, Color: "#36A2EB"},
	})
	if len(views) != 2 {
		t.Fatalf("got %d views", len(views))
	}
	if views[0].Percent != 100 || views[1].Percent != 13 {
		t.Errorf("percents = %d, %d", views[0].Percent, views[1].Percent)
	}
	if views[1].Color != "#36A2EB" || views[1].Name != "Transport" {
		t.Errorf("view = %+v", views[1])
	}
}

func TestFormatMoney(t *testing.T) {
	cases := map[int64]string{0: "$0.00", 1250: "$12.50", -99: "-$0.99"}
	for cents, want := range cases {
		if got := formatMoney(core.Money{Cents: cents}); got != want {
			t.Errorf("formatMoney(%d) = %q, want %q", cents, got, want)
		}
	}
}
