// File: internal/sms/reuse_test.go
package sms

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReusePool(t *testing.T) {
	t.Parallel()

	t.Run("should hand out the least-used number first", func(t *testing.T) {
		t.Parallel()
		pool := NewReusePool(30 * time.Minute)

		heavy := &VerificationRequest{ID: "1", Number: "111"}
		light := &VerificationRequest{ID: "2", Number: "222"}
		pool.Put(heavy, "go")
		pool.Put(heavy, "tg") // second use bumps the count
		pool.Put(light, "go")

		got := pool.Get("wa")
		require.NotNil(t, got)
		assert.Equal(t, "222", got.Number)
	})

	t.Run("should hand out a number at most once per service", func(t *testing.T) {
		t.Parallel()
		pool := NewReusePool(30 * time.Minute)
		pool.Put(&VerificationRequest{ID: "1", Number: "111"}, "go")

		assert.Nil(t, pool.Get("go"), "number already served this service")

		got := pool.Get("tg")
		require.NotNil(t, got)
		assert.Equal(t, "111", got.Number)
		assert.Nil(t, pool.Get("tg"), "handing out marks the service as served")
		assert.Equal(t, 1, pool.Len(), "entry stays pooled for other services")
	})

	t.Run("should expire numbers past the reuse window", func(t *testing.T) {
		t.Parallel()
		pool := NewReusePool(30 * time.Minute)
		now := time.Now()
		pool.now = func() time.Time { return now }

		pool.Put(&VerificationRequest{ID: "1", Number: "111"}, "go")
		assert.Equal(t, 1, pool.Len())

		pool.now = func() time.Time { return now.Add(31 * time.Minute) }
		assert.Equal(t, 0, pool.Len())
		assert.Nil(t, pool.Get("tg"))
	})

	t.Run("should expire from first pooling even after later puts", func(t *testing.T) {
		t.Parallel()
		pool := NewReusePool(30 * time.Minute)
		now := time.Now()
		pool.now = func() time.Time { return now }

		req := &VerificationRequest{ID: "1", Number: "111"}
		pool.Put(req, "go")

		pool.now = func() time.Time { return now.Add(20 * time.Minute) }
		pool.Put(req, "tg") // refresh must not extend the window
		assert.Equal(t, 1, pool.Len())

		pool.now = func() time.Time { return now.Add(31 * time.Minute) }
		assert.Equal(t, 0, pool.Len())
	})

	t.Run("should ignore nil and empty requests", func(t *testing.T) {
		t.Parallel()
		pool := NewReusePool(30 * time.Minute)
		pool.Put(nil, "go")
		pool.Put(&VerificationRequest{ID: "1"}, "go")
		assert.Equal(t, 0, pool.Len())
	})
}
