package db

import (
	"context"
	"testing"
)

func TestConnFromContext_Empty(t *testing.T) {
	if conn := ConnFromContext(context.Background()); conn != nil {
		t.Fatalf("expected nil conn, got %v", conn)
	}
}

func TestWithConn_NilRoundTrip(t *testing.T) {
	// A nil conn stored explicitly still reads back as nil, so callers
	// can always fall through to the pool.
	ctx := WithConn(context.Background(), nil)
	if conn := ConnFromContext(ctx); conn != nil {
		t.Fatalf("expected nil conn, got %v", conn)
	}
}
