package cache

import (
	"sync"
	"time"
)

// Clock источник времени. Внедряется извне, чтобы свежесть кеша
// тестировалась без реального хода часов.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock возвращает часы на основе time.Now
func SystemClock() Clock { return systemClock{} }

// TTLCache хранит одно значение с отметкой времени записи.
// Get отдает значение вместе с признаком свежести, устаревшее значение
// не удаляется: вызывающий сам решает, годится ли оно как запасной
// вариант при недоступности источника.
type TTLCache[T any] struct {
	mu       sync.RWMutex
	value    T
	present  bool
	storedAt time.Time
	ttl      time.Duration
	clock    Clock
}

// New создает кеш с заданным TTL и часами
func New[T any](ttl time.Duration, clock Clock) *TTLCache[T] {
	return &TTLCache[T]{
		ttl:   ttl,
		clock: clock,
	}
}

// Get возвращает значение, признак свежести и признак наличия
func (c *TTLCache[T]) Get() (value T, fresh bool, ok bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if !c.present {
		return value, false, false
	}

	fresh = c.clock.Now().Sub(c.storedAt) < c.ttl
	return c.value, fresh, true
}

// Set записывает значение и обновляет отметку времени
func (c *TTLCache[T]) Set(value T) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.value = value
	c.present = true
	c.storedAt = c.clock.Now()
}
