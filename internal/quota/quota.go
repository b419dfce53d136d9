package quota

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Limiter caps downloads per user per calendar day. A zero dailyMax
// disables the cap entirely.
type Limiter struct {
	rdb      *redis.Client
	dailyMax int
}

func New(rdb *redis.Client, dailyMax int) *Limiter {
	return &Limiter{rdb: rdb, dailyMax: dailyMax}
}

func key(userID int64) string {
	return fmt.Sprintf("quota:%d:%s", userID, time.Now().Format("20060102"))
}

func untilMidnight() time.Duration {
	now := time.Now()
	tom := now.Add(24 * time.Hour)
	mid := time.Date(tom.Year(), tom.Month(), tom.Day(), 0, 0, 0, 0, now.Location())
	return time.Until(mid)
}

// Allow reports whether the user may start another download and how many
// remain today. Redis trouble degrades to allowing the job.
func (l *Limiter) Allow(ctx context.Context, userID int64) (int, bool) {
	if l.dailyMax <= 0 {
		return -1, true
	}
	used, err := l.rdb.Get(ctx, key(userID)).Int()
	if err != nil && err != redis.Nil {
		return l.dailyMax, true
	}
	rem := l.dailyMax - used
	if rem < 0 {
		rem = 0
	}
	return rem, rem > 0
}

// Charge counts one finished download against today's allowance.
func (l *Limiter) Charge(ctx context.Context, userID int64) error {
	if l.dailyMax <= 0 {
		return nil
	}
	k := key(userID)
	if err := l.rdb.Incr(ctx, k).Err(); err != nil {
		return err
	}
	return l.rdb.Expire(ctx, k, untilMidnight()).Err()
}
