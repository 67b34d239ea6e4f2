package render

import (
	"strings"
	"testing"
	"time"
)

func TestRenderHTMLReceipt(t *testing.T) {
	jst, err := time.LoadLocation("Asia/Tokyo")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}

	renderer := NewRenderer()
	html, err := renderer.RenderHTML(RenderInput{
		Lot: LotView{
			Name:    "Demo Lot",
			Address: "Shibuya, Tokyo",
		},
		Session: SessionView{
			Token:       "tok-123",
			SpaceNumber: 4,
			EntryTime:   time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC),
			ExitTime:    time.Date(2026, 3, 10, 2, 30, 0, 0, time.UTC),
			Location:    jst,
		},
		Payment: PaymentView{
			Amount:          1300,
			DurationMinutes: 150,
			Method:          "card",
			Provider:        "stripe",
			Status:          "succeeded",
			Currency:        "JPY",
		},
	})
	if err != nil {
		t.Fatalf("render: %v", err)
	}

	for _, want := range []string{
		"Demo Lot",
		"Shibuya, Tokyo",
		"No. 4",
		"¥1,300",
		"2h 30min",
		"card (stripe)",
		"tok-123",
		// Entry rendered in JST, nine hours ahead of the UTC instant.
		"2026-03-10 09:00",
	} {
		if !strings.Contains(html, want) {
			t.Fatalf("rendered receipt missing %q", want)
		}
	}
}

func TestRenderHTMLDefaults(t *testing.T) {
	renderer := NewRenderer()
	html, err := renderer.RenderHTML(RenderInput{
		Session: SessionView{
			Token:     "tok-456",
			EntryTime: time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC),
			ExitTime:  time.Date(2026, 3, 10, 9, 40, 0, 0, time.UTC),
		},
		Payment: PaymentView{
			Amount:          300,
			DurationMinutes: 40,
			Method:          "cash",
			Status:          "succeeded",
		},
	})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.Contains(html, "¥300") {
		t.Fatal("expected formatted amount")
	}
	if !strings.Contains(html, "40 min") {
		t.Fatal("expected formatted duration")
	}
}

func TestFormatYenGrouping(t *testing.T) {
	cases := map[int64]string{
		0:       "¥0",
		300:     "¥300",
		1300:    "¥1,300",
		1234567: "¥1,234,567",
		-500:    "-¥500",
	}
	for amount, want := range cases {
		if got := formatYen(amount); got != want {
			t.Fatalf("formatYen(%d) = %q, want %q", amount, got, want)
		}
	}
}
