package api

import (
	"sync/atomic"
	"testing"
)

func BenchmarkNextTimestamp(b *testing.B) {
	atomic.StoreInt64(&lastTimestamp, 0)
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			nextTimestamp()
		}
	})
}
