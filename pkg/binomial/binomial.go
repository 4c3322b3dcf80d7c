// Package binomial provides a shared, monotonically growing cache of
// Pascal's triangle used by the derivative combination formulas.
//
// A Cache is created once and passed by reference to every evaluator that
// needs it. Rows are appended under a mutex and published through an atomic
// snapshot, so lookups of rows that already exist never take the lock. Rows
// are never evicted.
package binomial

import (
	"sync"
	"sync/atomic"
)

// Default is the process-wide cache used by package-level helpers.
var Default = NewCache()

// Cache is a thread-safe, append-only Pascal's triangle.
type Cache struct {
	mu   sync.Mutex
	rows atomic.Pointer[[][]int64]
}

// NewCache returns a cache seeded with row 0.
func NewCache() *Cache {
	c := &Cache{}
	rows := [][]int64{{1}}
	c.rows.Store(&rows)
	return c
}

// Coefficient returns C(n, k). Out-of-domain inputs (k < 0 or k > n) yield
// 0, following Pascal's triangle rather than reporting an error.
func (c *Cache) Coefficient(n, k int) int64 {
	if k < 0 || n < k {
		return 0
	}
	rows := *c.rows.Load()
	if n >= len(rows) {
		rows = c.grow(n)
	}
	return rows[n][k]
}

// Rows returns the number of rows built so far.
func (c *Cache) Rows() int {
	return len(*c.rows.Load())
}

// grow extends the triangle to include row n and publishes the new snapshot.
func (c *Cache) grow(n int) [][]int64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	rows := *c.rows.Load()
	if n < len(rows) {
		return rows
	}
	// Build on a fresh backing array; readers keep their old snapshot.
	next := make([][]int64, len(rows), n+1)
	copy(next, rows)
	for i := len(rows); i <= n; i++ {
		prev := next[i-1]
		row := make([]int64, i+1)
		row[0], row[i] = 1, 1
		for j := 1; j < i; j++ {
			row[j] = prev[j-1] + prev[j]
		}
		next = append(next, row)
	}
	c.rows.Store(&next)
	return next
}

// Coefficient returns C(n, k) from the Default cache.
func Coefficient(n, k int) int64 {
	return Default.Coefficient(n, k)
}
