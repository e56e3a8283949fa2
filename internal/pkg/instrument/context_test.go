package instrument

import (
	"context"
	"testing"
)

func TestCorrelationID(t *testing.T) {
	t.Run("RoundTrip", func(t *testing.T) {
		ctx := SetCorrelationID(context.Background(), "cid-123")

		if got := GetCorrelationID(ctx); got != "cid-123" {
			t.Fatalf("GetCorrelationID() = %q, want %q", got, "cid-123")
		}
	})

	t.Run("AbsentIsEmpty", func(t *testing.T) {
		if got := GetCorrelationID(context.Background()); got != "" {
			t.Fatalf("GetCorrelationID() = %q, want empty", got)
		}
	})
}
