// Package backoff считает паузы между повторными попытками с джиттером,
// чтобы клиенты не били во внешний сервис одновременно.
package backoff

import (
	"math/rand"
	"sync"
	"time"
)

// DefaultJitter стандартный коэффициент джиттера (50%)
const DefaultJitter = 0.5

// Policy описывает экспоненциальную задержку: Base * 2^attempt, но не больше Max,
// плюс случайная добавка до Jitter * задержка.
type Policy struct {
	Base   time.Duration
	Max    time.Duration
	Jitter float64

	mu  sync.Mutex
	rng *rand.Rand
}

// NewPolicy создаёт политику с собственным генератором случайных чисел.
func NewPolicy(base, max time.Duration, jitter float64) *Policy {
	return &Policy{
		Base:   base,
		Max:    max,
		Jitter: jitter,
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// WithSeed фиксирует генератор, чтобы задержки были воспроизводимыми в тестах.
func (p *Policy) WithSeed(seed int64) *Policy {
	p.mu.Lock()
	p.rng = rand.New(rand.NewSource(seed))
	p.mu.Unlock()
	return p
}

// Delay возвращает паузу перед попыткой attempt (нумерация с нуля).
// Результат лежит в диапазоне [d, d*(1+Jitter)], где d = min(Base*2^attempt, Max).
func (p *Policy) Delay(attempt int) time.Duration {
	d := p.Base
	for i := 0; i < attempt && (p.Max <= 0 || d < p.Max); i++ {
		d *= 2
	}
	if p.Max > 0 && d > p.Max {
		d = p.Max
	}

	p.mu.Lock()
	extra := p.rng.Float64() * p.Jitter * float64(d)
	p.mu.Unlock()

	return d + time.Duration(extra)
}
