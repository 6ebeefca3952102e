package device

import (
	"sync"
	"time"
)

// TimeProvider は再取得の待ち時間を測る時計です。テストでは MockTimeProvider に差し替えます。
type TimeProvider interface {
	After(d time.Duration) <-chan time.Time
}

// RealTimeProvider は time.After を使う TimeProvider です。
type RealTimeProvider struct{}

func (*RealTimeProvider) After(d time.Duration) <-chan time.Time {
	return time.After(d)
}

// MockTimeProvider は Advance を呼んだときだけ時間が進む TimeProvider です。
type MockTimeProvider struct {
	mu      sync.Mutex
	now     time.Time
	waiters []waiter
}

type waiter struct {
	at time.Time
	ch chan time.Time
}

func NewMockTimeProvider() *MockTimeProvider {
	return &MockTimeProvider{now: time.Unix(0, 0)}
}

// After は現在時刻から d 後に発火するチャネルを返します。d <= 0 なら即座に発火します。
func (m *MockTimeProvider) After(d time.Duration) <-chan time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()

	w := waiter{at: m.now.Add(d), ch: make(chan time.Time, 1)}
	if d <= 0 {
		w.ch <- m.now
		return w.ch
	}
	m.waiters = append(m.waiters, w)
	return w.ch
}

// Advance は時刻を d 進め、期限が来たチャネルを発火させます。
func (m *MockTimeProvider) Advance(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.now = m.now.Add(d)
	kept := m.waiters[:0]
	for _, w := range m.waiters {
		if w.at.After(m.now) {
			kept = append(kept, w)
			continue
		}
		w.ch <- m.now
	}
	m.waiters = kept
}

func (m *MockTimeProvider) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// Pending はまだ発火していないチャネルの数を返します。
func (m *MockTimeProvider) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.waiters)
}
