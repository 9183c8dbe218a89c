package udpserver

import (
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/time/rate"
)

// Per-sender budget: a burst of 10 datagrams, refilling one slot every
// 900ms. Exhausted senders are dropped without a reply.
const (
	senderBurst     = 10
	senderRefill    = 900 * time.Millisecond
	senderCacheSize = 4096
)

// senderLimiter holds one token bucket per sender address. The LRU
// bounds memory against address churn, an evicted sender simply starts
// with a fresh bucket.
type senderLimiter struct {
	buckets *lru.Cache[string, *rate.Limiter]
}

func newSenderLimiter() (*senderLimiter, error) {
	buckets, err := lru.New[string, *rate.Limiter](senderCacheSize)
	if err != nil {
		return nil, err
	}
	return &senderLimiter{buckets: buckets}, nil
}

// allow reports whether a datagram from the given sender may be
// processed. Get promotes the entry, so active senders stay resident
// and eviction hits the ones that went quiet.
func (l *senderLimiter) allow(sender string) bool {
	if bucket, ok := l.buckets.Get(sender); ok {
		return bucket.Allow()
	}
	fresh := rate.NewLimiter(rate.Every(senderRefill), senderBurst)
	if existed, _ := l.buckets.ContainsOrAdd(sender, fresh); existed {
		if bucket, ok := l.buckets.Get(sender); ok {
			return bucket.Allow()
		}
	}
	return fresh.Allow()
}
