package closer

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// Func сигнатура функции закрытия ресурса.
type Func func(ctx context.Context) error

type namedFunc struct {
	name string
	f    Func
}

// Closer собирает функции закрытия ресурсов и вызывает их в порядке LIFO.
type Closer struct {
	mu    sync.Mutex
	funcs []namedFunc
	once  sync.Once
	err   error
}

// NewCloser создает новый экземпляр Closer.
func NewCloser() *Closer {
	return &Closer{}
}

// Add регистрирует ресурс. Имя попадает в текст ошибки, если закрытие не удалось.
func (c *Closer) Add(name string, f Func) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.funcs = append(c.funcs, namedFunc{name: name, f: f})
}

// Close закрывает ресурсы от последнего к первому. Повторный вызов возвращает ту же ошибку.
// Если контекст истёк, оставшиеся ресурсы всё равно закрываются, а в ошибку
// добавляется причина отмены.
func (c *Closer) Close(ctx context.Context) error {
	c.once.Do(func() {
		c.mu.Lock()
		funcs := make([]namedFunc, len(c.funcs))
		copy(funcs, c.funcs)
		c.mu.Unlock()

		var errs []error
		for i := len(funcs) - 1; i >= 0; i-- {
			if err := funcs[i].f(ctx); err != nil {
				errs = append(errs, fmt.Errorf("close %s: %w", funcs[i].name, err))
			}
		}

		if ctx.Err() != nil {
			errs = append(errs, fmt.Errorf("shutdown deadline: %w", ctx.Err()))
		}

		c.err = errors.Join(errs...)
	})

	return c.err
}
