package cache

import (
	"context"
	"sync"
	"time"
)

// RateLimited - TTL-кэш вокруг одного upstream-вызова.
//
// Назначение:
// Дедупликация повторных чтений рыночных данных в пределах TTL-окна.
// Оба цикла планировщика и API-хендлеры читают тикеры и капитал через
// такой кэш, поэтому биржа видит не больше одного запроса на TTL.
//
// Инвариант: если с момента последнего УСПЕШНОГО обновления прошло
// меньше TTL, Get возвращает сохранённое значение без обращения к
// upstream. Просроченное окно обновляет не больше одного вызывающего:
// mutex удерживается на время fetch, конкурирующие вызовы ждут и
// получают свежий результат без повторного запроса.
//
// Неудачное обновление возвращает ошибку вызывающему и НЕ трогает
// предыдущее значение и его timestamp: устаревшие данные не выдаются
// вместо ошибки (политика stale-but-available сознательно не применяется).
type RateLimited[T any] struct {
	mu        sync.Mutex
	ttl       time.Duration
	value     T
	fetchedAt time.Time

	// для тестов
	now func() time.Time
}

// NewRateLimited создаёт кэш с заданным TTL
func NewRateLimited[T any](ttl time.Duration) *RateLimited[T] {
	return &RateLimited[T]{
		ttl: ttl,
		now: time.Now,
	}
}

// Get возвращает закэшированное значение или результат fetch.
//
// В пределах TTL fetch не вызывается. По истечении TTL выполняется
// ровно один fetch; его ошибка пробрасывается вызывающему, кэш при
// этом остаётся в прежнем состоянии. refreshed сообщает, ходил ли
// этот вызов в upstream (для метрик hit/refresh).
func (c *RateLimited[T]) Get(ctx context.Context, fetch func(ctx context.Context) (T, error)) (value T, refreshed bool, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.fetchedAt.IsZero() && c.now().Sub(c.fetchedAt) < c.ttl {
		return c.value, false, nil
	}

	value, err = fetch(ctx)
	if err != nil {
		var zero T
		return zero, true, err
	}

	c.value = value
	c.fetchedAt = c.now()
	return value, true, nil
}

// Invalidate сбрасывает кэш: следующий Get обязательно пойдёт в upstream
func (c *RateLimited[T]) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero T
	c.value = zero
	c.fetchedAt = time.Time{}
}

// Age возвращает возраст закэшированного значения.
// Для пустого кэша возвращает отрицательное значение.
func (c *RateLimited[T]) Age() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.fetchedAt.IsZero() {
		return -1
	}
	return c.now().Sub(c.fetchedAt)
}
