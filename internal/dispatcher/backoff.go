package dispatcher

import "time"

// Default backoff configuration.
const (
	defaultInitialDelay = 30 * time.Second
	defaultMaxDelay     = 15 * time.Minute
)

// Backoff — политика повторных отправок.
//
// Чистая детерминированная функция номера попытки: никакого jitter и
// никакого чтения системных часов — «сейчас» передаётся явным аргументом,
// чтобы планирование retry тестировалось без wall clock.
type Backoff struct {
	// Initial — задержка после первой неудачной попытки.
	Initial time.Duration

	// Max — потолок задержки.
	Max time.Duration
}

// NewBackoff создаёт политику, подставляя defaults вместо нулевых значений.
func NewBackoff(initial, max time.Duration) Backoff {
	if initial <= 0 {
		initial = defaultInitialDelay
	}
	if max <= 0 {
		max = defaultMaxDelay
	}
	if max < initial {
		max = initial
	}
	return Backoff{Initial: initial, Max: max}
}

// Delay возвращает задержку перед следующей попыткой после attempt
// неудачных попыток: Initial * 2^(attempt-1), с потолком Max.
// Неубывает по attempt.
func (b Backoff) Delay(attempt int) time.Duration {
	delay := b.Initial
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= b.Max {
			return b.Max
		}
	}
	if delay > b.Max {
		return b.Max
	}
	return delay
}

// NextAttemptAt возвращает момент следующей попытки относительно now.
// Всегда строго в будущем: Delay ≥ Initial > 0.
func (b Backoff) NextAttemptAt(now time.Time, attempt int) time.Time {
	return now.Add(b.Delay(attempt))
}
