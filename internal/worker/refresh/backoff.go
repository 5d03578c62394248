package refresh

import "time"

const (
	// initialBackoff は失敗後の最初の再試行までの待ち時間。
	initialBackoff = 15 * time.Minute
	// maxBackoff は再試行間隔の上限。
	maxBackoff = 6 * time.Hour
)

// CalculateBackoff は連続失敗回数から次の再試行までの待ち時間を計算する。
// 初回15分、2倍ずつ増加、最大6時間。
func CalculateBackoff(consecutiveErrors int) time.Duration {
	delay := initialBackoff
	for i := 1; i < consecutiveErrors; i++ {
		delay *= 2
		if delay >= maxBackoff {
			return maxBackoff
		}
	}
	return delay
}

// backoffState はアイテムごとの失敗状態。
type backoffState struct {
	consecutiveErrors int
	nextAttempt       time.Time
}
