package diffcache

import (
	"context"
	"testing"
)

func TestRecordUpdate(t *testing.T) {
	ctx := context.Background()

	t.Run("records", func(t *testing.T) {
		SetMetricsEnabled(true)
		// Should not panic
		recordUpdate(ctx, 3, 2, 1, 0)
	})

	t.Run("ignores shrinking sets", func(t *testing.T) {
		SetMetricsEnabled(true)
		// Should not panic
		recordUpdate(ctx, 1, -1, 0, -2)
	})

	t.Run("skips when disabled", func(t *testing.T) {
		SetMetricsEnabled(false)
		// Should not panic
		recordUpdate(ctx, 1, 1, 1, 1)
		SetMetricsEnabled(true) // Restore
	})
}
