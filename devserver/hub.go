package devserver

import (
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/doruhan/vira/provider"
)

// Hub, realtime aboneliklerini yöneten merkezi yapıdır (Observer pattern).
//
// REST yazma yolları BroadcastInsert/BroadcastUpdate çağırır; hub değişen
// satırı, tablosu ve filtresi eşleşen tüm abonelere iletir. Her abonelik
// kendi WebSocket bağlantısını ve send buffer'ını taşır — yavaş bir abone
// diğerlerini bloklamaz, buffer'ı dolarsa event düşer.
type Hub struct {
	// clients: aktif abonelik set'i. map[*feedClient]bool — Go'da set yoktur.
	clients map[*feedClient]bool
	mu      sync.RWMutex

	register   chan *feedClient
	unregister chan *feedClient

	// seq: her outbound event'e verilen artan sayaç.
	seq atomic.Int64
}

// NewHub, yeni bir Hub oluşturur. Event loop'u `go hub.Run()` ile başlatılır.
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*feedClient]bool),
		register:   make(chan *feedClient),
		unregister: make(chan *feedClient),
	}
}

// Run, hub'ın ana event loop'udur.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.addClient(client)
		case client := <-h.unregister:
			h.removeClient(client)
		}
	}
}

func (h *Hub) addClient(client *feedClient) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.clients[client] = true
	log.Printf("[devserver] abone bağlandı: user=%s table=%s", client.userID, client.sub.Table)
}

func (h *Hub) removeClient(client *feedClient) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		close(client.send)
		log.Printf("[devserver] abone ayrıldı: user=%s table=%s", client.userID, client.sub.Table)
	}
}

// IsOnline, kullanıcının en az bir aktif realtime aboneliği olup olmadığını döner.
// Profil status alanı buradan türetilir.
func (h *Hub) IsOnline(userID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.clients {
		if client.userID == userID {
			return true
		}
	}
	return false
}

// BroadcastInsert, tabloya eklenen satırı eşleşen abonelere iletir.
func (h *Hub) BroadcastInsert(table string, record any) {
	h.broadcast(provider.OpInsert, table, record, func(c *feedClient) string {
		return c.sub.InsertFilter
	})
}

// BroadcastUpdate, tabloda güncellenen satırı eşleşen abonelere iletir.
func (h *Hub) BroadcastUpdate(table string, record any) {
	h.broadcast(provider.OpUpdate, table, record, func(c *feedClient) string {
		return c.sub.UpdateFilter
	})
}

func (h *Hub) broadcast(op, table string, record any, filterOf func(*feedClient) string) {
	recordJSON, err := json.Marshal(record)
	if err != nil {
		log.Printf("[devserver] satır marshal edilemedi: %v", err)
		return
	}

	// Filtre eşlemesi alan bazlı yapılır — satır bir kez map'e açılır.
	var fields map[string]any
	if err := json.Unmarshal(recordJSON, &fields); err != nil {
		log.Printf("[devserver] satır alanları çözülemedi: %v", err)
		return
	}

	payload, _ := json.Marshal(provider.ChangePayload{Table: table, Record: recordJSON})
	event := provider.WireEvent{Op: op, Data: payload, Seq: h.seq.Add(1)}
	data, err := json.Marshal(event)
	if err != nil {
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.clients {
		if client.sub.Table != table {
			continue
		}
		if !filterMatches(filterOf(client), fields) {
			continue
		}
		select {
		case client.send <- data:
		default:
			// Buffer dolu — abone yavaş, event düşer. Eksik event bir
			// sonraki history yüklemesinde telafi edilir.
			log.Printf("[devserver] yavaş abone, event düştü: user=%s", client.userID)
		}
	}
}

// Shutdown, tüm abone bağlantılarını kapatır.
func (h *Hub) Shutdown() {
	h.mu.Lock()
	clients := make([]*feedClient, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	h.mu.Unlock()

	for _, client := range clients {
		client.conn.Close()
	}
}

// filterMatches, `kolon=eq.değer` filtresini satır alanlarıyla karşılaştırır.
// Boş filtre "bu event türü iletilmesin" demektir.
func filterMatches(filter string, fields map[string]any) bool {
	if filter == "" {
		return false
	}
	col, val, found := strings.Cut(filter, "=eq.")
	if !found {
		return false
	}
	fieldVal, ok := fields[col]
	if !ok {
		return false
	}
	return fmt.Sprint(fieldVal) == val
}
