package rsessions

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/rsessions/rsessions/internal"
)

// sweeper periodically wipes sessions whose global-expiry score has passed.
// It races explicit kills safely: all removals are remove-if-present.
func (e *Engine) sweeper(interval time.Duration) {
	defer e.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-e.done:
			return
		case <-ticker.C:
			e.sweep(context.Background())
		}
	}
}

// sweep drains overdue entries page by page. Entries are processed
// independently so one failing kill cannot block the rest; the pass bails
// out when a whole page made no progress.
func (e *Engine) sweep(ctx context.Context) {
	expiryKey := internal.GlobalExpiryKey(e.ns)

	for {
		entries, err := e.rdb.ZRangeByScore(ctx, expiryKey, &redis.ZRangeBy{
			Min:   "-inf",
			Max:   strconv.FormatInt(nowUnix(), 10),
			Count: int64(e.cfg.WipeBatch),
		}).Result()
		if err != nil {
			e.log.Error("session sweep scan failed", "err", err)
			return
		}
		if len(entries) == 0 {
			return
		}

		var progressed int
		for _, entry := range entries {
			parts := strings.SplitN(entry, ":", 3)
			if len(parts) != 3 {
				// Malformed entry; drop it so it cannot wedge the sweep.
				if err := e.rdb.ZRem(ctx, expiryKey, entry).Err(); err == nil {
					progressed++
				}
				continue
			}
			if _, err := e.killSingle(ctx, parts[0], parts[1], parts[2]); err != nil {
				e.log.Warn("session sweep kill failed",
					"app", parts[0], "id", parts[2], "err", err)
				continue
			}
			progressed++
		}

		if progressed == 0 || len(entries) < e.cfg.WipeBatch {
			return
		}
	}
}
