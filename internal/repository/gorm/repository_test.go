package gormrepository

import (
	"context"
	"testing"

	"optionchains/internal/models"
)

func TestNormalizeLimitAndOffset(t *testing.T) {
	cases := []struct{ in, fallback, want int }{
		{0, 100, 100},
		{-3, 50, 50},
		{20, 100, 20},
		{9000, 100, 500},
	}
	for _, tc := range cases {
		if got := normalizeLimit(tc.in, tc.fallback); got != tc.want {
			t.Fatalf("normalizeLimit(%d,%d)=%d want %d", tc.in, tc.fallback, got, tc.want)
		}
	}
	if normalizeOffset(-1) != 0 || normalizeOffset(7) != 7 {
		t.Fatalf("normalizeOffset mismatch")
	}
}

func TestNilStoreIsSafe(t *testing.T) {
	var s *Store
	ctx := context.Background()
	if err := s.UpsertBrokerOrders(ctx, []models.BrokerOrder{{UserID: "u"}}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if item, err := s.GetChain(ctx, "u", "c"); err != nil || item != nil {
		t.Fatalf("get chain: %v %v", item, err)
	}
}

func TestReplaceChainsWithoutDB(t *testing.T) {
	s := New(nil)
	if err := s.ReplaceChains(context.Background(), "u", nil); err != nil {
		t.Fatalf("nil db should be a no-op: %v", err)
	}
}
