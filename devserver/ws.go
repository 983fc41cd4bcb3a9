package devserver

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/doruhan/vira/provider"
)

// WebSocket bağlantı sabitleri
const (
	// writeWait: Bir mesajı yazmak için maksimum bekleme süresi.
	writeWait = 10 * time.Second

	// pongWait: Abonenin heartbeat göndermesi için beklenen maksimum süre.
	// 3 heartbeat kaçırma = 30s × 3 = 90s.
	pongWait = 90 * time.Second

	// maxMessageSize: Abonenin gönderebileceği maksimum mesaj boyutu (byte).
	// Abone yalnızca subscribe + heartbeat gönderir — küçük yeterlidir.
	maxMessageSize = 4096

	// sendBufferSize: Her abonenin send channel'ının buffer boyutu.
	sendBufferSize = 256
)

// upgrader: geliştirme sunucusu her origin'i kabul eder.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// feedClient, tek bir realtime aboneliğinin bağlantısını temsil eder.
//
// Her bağlantı için iki goroutine çalışır:
//   - readPump: aboneden gelen heartbeat'leri okur, deadline'ı tazeler
//   - writePump: hub'ın kuyruğa koyduğu event'leri bağlantıya yazar
//
// gorilla/websocket aynı anda tek okuma ve tek yazma destekler; iki ayrı
// goroutine sayesinde okuma ve yazma birbirini bloklamaz.
type feedClient struct {
	hub    *Hub
	conn   *websocket.Conn
	userID string
	sub    provider.SubscribePayload
	send   chan []byte
}

// handleRealtime, /realtime/v1/websocket handshake'ini yürütür:
// token doğrulama → upgrade → subscribe mesajı → kayıt → pump'lar.
func (s *Server) handleRealtime(w http.ResponseWriter, r *http.Request) {
	userID, err := s.validateToken(r.URL.Query().Get("token"))
	if err != nil {
		s.writeError(w, http.StatusUnauthorized, err.Error())
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[devserver] upgrade başarısız: %v", err)
		return
	}

	// İlk mesaj subscribe olmak zorundadır.
	conn.SetReadDeadline(time.Now().Add(writeWait))
	var first provider.WireEvent
	if err := conn.ReadJSON(&first); err != nil || first.Op != provider.OpSubscribe {
		conn.Close()
		return
	}
	var sub provider.SubscribePayload
	if err := json.Unmarshal(first.Data, &sub); err != nil || sub.Table == "" {
		conn.Close()
		return
	}

	client := &feedClient{
		hub:    s.hub,
		conn:   conn,
		userID: userID,
		sub:    sub,
		send:   make(chan []byte, sendBufferSize),
	}
	s.hub.register <- client

	// Onay, send kuyruğu üzerinden DEĞİL doğrudan yazılır — writePump henüz
	// başlamadı ve provider tarafı onayı ilk mesaj olarak bekler.
	ack, _ := json.Marshal(provider.WireEvent{Op: provider.OpSubscribed})
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteMessage(websocket.TextMessage, ack); err != nil {
		s.hub.unregister <- client
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}

// readPump, aboneden gelen mesajları okur. Heartbeat deadline'ı tazeler;
// bağlantı kapanınca abonelik hub'dan düşer.
func (c *feedClient) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		return
	}

	for {
		var event provider.WireEvent
		if err := c.conn.ReadJSON(&event); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("[devserver] beklenmeyen kapanış: user=%s err=%v", c.userID, err)
			}
			return
		}

		switch event.Op {
		case provider.OpHeartbeat:
			if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
				return
			}
			ack, _ := json.Marshal(provider.WireEvent{Op: provider.OpHeartbeatAck})
			select {
			case c.send <- ack:
			default:
			}
		default:
			log.Printf("[devserver] bilinmeyen op: user=%s op=%s", c.userID, event.Op)
		}
	}
}

// writePump, send channel'ındaki event'leri bağlantıya yazar.
// Channel kapanınca (hub abonesi düşürünce) close frame gönderir.
func (c *feedClient) writePump() {
	defer c.conn.Close()

	for data := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
			return
		}
	}

	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	c.conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}
