package store

import (
	"context"
	"testing"
)

func TestGetOrCreateTradeDay_CreatesOnce(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	first, err := s.GetOrCreateTradeDay(ctx, "ES", "2024-01-08", "tradingview")
	if err != nil {
		t.Fatalf("GetOrCreateTradeDay() failed: %v", err)
	}

	second, err := s.GetOrCreateTradeDay(ctx, "ES", "2024-01-08", "tradingview")
	if err != nil {
		t.Fatalf("second GetOrCreateTradeDay() failed: %v", err)
	}
	if first != second {
		t.Errorf("same key produced two ids: %d != %d", first, second)
	}

	var count int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM trade_days").Scan(&count); err != nil {
		t.Fatalf("count trade days: %v", err)
	}
	if count != 1 {
		t.Errorf("expected 1 trade day row, got %d", count)
	}
}

func TestGetOrCreateTradeDay_DistinctKeys(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	base, err := s.GetOrCreateTradeDay(ctx, "ES", "2024-01-08", "tradingview")
	if err != nil {
		t.Fatalf("GetOrCreateTradeDay() failed: %v", err)
	}

	// Each component of the key is significant.
	variants := [][3]string{
		{"NQ", "2024-01-08", "tradingview"},
		{"ES", "2024-01-09", "tradingview"},
		{"ES", "2024-01-08", "polygon"},
	}
	for _, v := range variants {
		id, err := s.GetOrCreateTradeDay(ctx, v[0], v[1], v[2])
		if err != nil {
			t.Fatalf("GetOrCreateTradeDay(%v) failed: %v", v, err)
		}
		if id == base {
			t.Errorf("distinct key %v converged with base id %d", v, base)
		}
	}
}

func TestGetSession_Found(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	id, err := s.GetOrCreateTradeDay(ctx, "ES", "2024-01-08", "tradingview")
	if err != nil {
		t.Fatalf("GetOrCreateTradeDay() failed: %v", err)
	}

	sess, err := s.GetSession(ctx, "ES", "2024-01-08", "tradingview")
	if err != nil {
		t.Fatalf("GetSession() failed: %v", err)
	}
	if sess == nil {
		t.Fatal("expected session, got nil")
	}
	if sess.ID != id || sess.Symbol != "ES" || sess.Day != "2024-01-08" || sess.Source != "tradingview" {
		t.Errorf("unexpected session: %+v", sess)
	}
}

func TestGetSession_Missing(t *testing.T) {
	s := openTestStore(t)

	sess, err := s.GetSession(context.Background(), "ES", "2024-01-08", "tradingview")
	if err != nil {
		t.Fatalf("GetSession() failed: %v", err)
	}
	if sess != nil {
		t.Errorf("expected nil for missing session, got %+v", sess)
	}
}
