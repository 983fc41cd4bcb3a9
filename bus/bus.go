package bus

import (
	"log"
	"sync"
	"sync/atomic"
)

// subscriptionBufferSize, her subscriber'ın event buffer boyutu.
// Buffer doluysa (dinleyici yavaş) yeni event'ler o subscriber için düşer —
// publish eden taraf asla bloklanmaz.
const subscriptionBufferSize = 64

// Publisher, component'lerin event duyurmak için kullandığı interface.
//
// Dependency Inversion: service'ler Bus'ın concrete struct'ına değil,
// bu interface'e bağımlıdır — testte event'leri yakalayan basit bir
// recorder geçirilebilir.
type Publisher interface {
	Publish(event Event)
}

// Subscription, tek bir dinleyiciyi temsil eder.
// Events channel'ı Close() çağrılana kadar açık kalır.
type Subscription struct {
	Events chan Event
	bus    *Bus
	once   sync.Once
}

// Close, subscription'ı bus'tan çıkarır ve channel'ı kapatır.
// Birden fazla kez çağrılması güvenlidir.
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.bus.remove(s)
		close(s.Events)
	})
}

// Bus, process içi event hub'ı.
type Bus struct {
	mu   sync.RWMutex
	subs map[*Subscription]bool
	seq  atomic.Int64
}

// New, yeni bir Bus oluşturur.
func New() *Bus {
	return &Bus{
		subs: make(map[*Subscription]bool),
	}
}

// Subscribe, yeni bir dinleyici kaydeder.
func (b *Bus) Subscribe() *Subscription {
	sub := &Subscription{
		Events: make(chan Event, subscriptionBufferSize),
		bus:    b,
	}

	b.mu.Lock()
	b.subs[sub] = true
	b.mu.Unlock()

	return sub
}

// Publish, event'i tüm subscriber'lara iletir.
//
// Non-blocking: buffer'ı dolu subscriber'lar o event'i kaçırır.
// Publish çağıran service goroutine'i hiçbir koşulda bloklanmaz.
func (b *Bus) Publish(event Event) {
	event.Seq = b.seq.Add(1)

	b.mu.RLock()
	defer b.mu.RUnlock()

	for sub := range b.subs {
		select {
		case sub.Events <- event:
		default:
			log.Printf("[bus] subscriber buffer full, dropping event op=%s seq=%d", event.Op, event.Seq)
		}
	}
}

// remove, subscription'ı set'ten çıkarır. Subscription.Close çağırır.
func (b *Bus) remove(sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.subs, sub)
}

// Shutdown, tüm subscription'ları kapatır (graceful shutdown).
func (b *Bus) Shutdown() {
	b.mu.Lock()
	subs := make([]*Subscription, 0, len(b.subs))
	for sub := range b.subs {
		subs = append(subs, sub)
	}
	b.subs = make(map[*Subscription]bool)
	b.mu.Unlock()

	// Close, remove için tekrar lock alır — lock dışında çağrılmalı.
	for _, sub := range subs {
		sub.Close()
	}
	log.Println("[bus] shut down, all subscriptions closed")
}
