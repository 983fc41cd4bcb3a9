package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/doruhan/vira/pkg"
)

// Realtime bağlantı sabitleri
const (
	// writeWait: Bir mesajı yazmak için maksimum bekleme süresi.
	writeWait = 10 * time.Second

	// heartbeatInterval: Client'ın sunucuya "hâlâ bağlıyım" sinyali gönderme aralığı.
	heartbeatInterval = 30 * time.Second

	// readWait: Sunucudan iki mesaj arası beklenen maksimum süre.
	// Sunucu her heartbeat'e ack döndüğü için en az 30sn'de bir mesaj gelir;
	// 3 ack kaçarsa bağlantı kopmuş sayılır.
	readWait = 90 * time.Second

	// subscribeWait: Abonelik onayı için maksimum bekleme süresi.
	subscribeWait = 10 * time.Second
)

// InsertHandler ve UpdateHandler, abone olunan tabloda satır değişikliği
// olduğunda çağrılır. Record, satırın tam JSON gösterimidir.
//
// Handler'lar okuma goroutine'i üzerinde, event'lerin geliş sırasıyla
// çağrılır — iki handler aynı anda ÇALIŞMAZ. Bu sıra garantisi sync
// katmanı için önemlidir: bir mesajın insert'i, sonraki mesajın
// insert'inden önce işlenir.
type (
	InsertHandler func(record json.RawMessage)
	UpdateHandler func(record json.RawMessage)
)

// Subscription, tek bir realtime aboneliğini temsil eder.
//
// Her abonelik kendi WebSocket bağlantısını taşır ve iki goroutine çalıştırır:
//   - readLoop: Sunucudan gelen event'leri okur → handler'lara iletir
//   - heartbeatLoop: 30sn'de bir heartbeat yazar
//
// Close() idempotent'tir — birden fazla çağrı güvenlidir.
type Subscription struct {
	topic string
	conn  *websocket.Conn

	onInsert InsertHandler
	onUpdate UpdateHandler

	done      chan struct{}
	closeOnce sync.Once
	writeMu   sync.Mutex // conn.WriteMessage çağrılarını korur
}

// Subscribe, platformun realtime yüzeyine bağlanır ve verilen tablo +
// filtreler için bir abonelik açar. Abonelik onayı gelene kadar bloklar;
// onaydan sonra event'ler handler'lara akmaya başlar.
//
// Dönen Subscription, çağıran kapatana kadar yaşar. Bağlantı koparsa
// abonelik sessizce ölür — otomatik yeniden bağlanma YOKTUR; uygulama
// yeniden abone olmak isterse Subscribe'ı tekrar çağırır.
func (c *Client) Subscribe(ctx context.Context, opts SubscribePayload, onInsert InsertHandler, onUpdate UpdateHandler) (*Subscription, error) {
	wsURL := httpToWS(c.baseURL) + "/realtime/v1/websocket?token=" + c.token

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: realtime bağlantısı kurulamadı: %v", pkg.ErrFetchFailed, err)
	}

	sub := &Subscription{
		topic:    opts.Topic,
		conn:     conn,
		onInsert: onInsert,
		onUpdate: onUpdate,
		done:     make(chan struct{}),
	}

	// İlk mesaj her zaman subscribe'dır — sunucu filtre kaydını yapar.
	if err := sub.writeEvent(WireEvent{Op: OpSubscribe, Data: mustMarshal(opts)}); err != nil {
		conn.Close()
		return nil, fmt.Errorf("%w: abonelik isteği gönderilemedi: %v", pkg.ErrFetchFailed, err)
	}

	// Onay beklerken sınırlı süre blokla — sunucu cevap vermiyorsa
	// sonsuza kadar takılmak yerine hata dön.
	conn.SetReadDeadline(time.Now().Add(subscribeWait))
	var ack WireEvent
	if err := conn.ReadJSON(&ack); err != nil {
		conn.Close()
		return nil, fmt.Errorf("%w: abonelik onayı alınamadı: %v", pkg.ErrFetchFailed, err)
	}
	if ack.Op != OpSubscribed {
		conn.Close()
		return nil, fmt.Errorf("%w: beklenmeyen abonelik yanıtı: %s", pkg.ErrFetchFailed, ack.Op)
	}

	go sub.readLoop()
	go sub.heartbeatLoop()

	log.Printf("[realtime] abonelik açıldı: topic=%s table=%s", opts.Topic, opts.Table)
	return sub, nil
}

// Close, aboneliği kapatır: heartbeat durur, bağlantı kapanır,
// readLoop sonlanır. Kapanıştan sonra handler çağrılmaz.
func (s *Subscription) Close() {
	s.closeOnce.Do(func() {
		close(s.done)

		s.writeMu.Lock()
		s.conn.SetWriteDeadline(time.Now().Add(writeWait))
		s.conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		s.writeMu.Unlock()

		s.conn.Close()
		log.Printf("[realtime] abonelik kapatıldı: topic=%s", s.topic)
	})
}

// readLoop, sunucudan gelen event'leri okur ve handler'lara iletir.
// Bağlantı kapanana kadar döngüde kalır.
func (s *Subscription) readLoop() {
	for {
		s.conn.SetReadDeadline(time.Now().Add(readWait))

		var event WireEvent
		if err := s.conn.ReadJSON(&event); err != nil {
			select {
			case <-s.done:
				// Normal kapanış — loglama gerekmez.
			default:
				log.Printf("[realtime] bağlantı koptu: topic=%s err=%v", s.topic, err)
			}
			return
		}

		switch event.Op {
		case OpHeartbeatAck:
			// Sadece read deadline'ı tazelemek için gelir.
		case OpInsert:
			s.dispatch(event.Data, s.onInsert)
		case OpUpdate:
			s.dispatch(event.Data, s.onUpdate)
		default:
			log.Printf("[realtime] bilinmeyen op: %s", event.Op)
		}
	}
}

// dispatch, change payload'ını çözer ve handler'ı çağırır.
func (s *Subscription) dispatch(data json.RawMessage, handler func(json.RawMessage)) {
	if handler == nil {
		return
	}
	var change ChangePayload
	if err := json.Unmarshal(data, &change); err != nil {
		log.Printf("[realtime] bozuk change payload'ı: topic=%s err=%v", s.topic, err)
		return
	}
	handler(change.Record)
}

// heartbeatLoop, düzenli aralıklarla heartbeat gönderir.
// Yazma hatası bağlantının koptuğunu gösterir — loop sessizce biter,
// kopuşu readLoop raporlar.
func (s *Subscription) heartbeatLoop() {
	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			if err := s.writeEvent(WireEvent{Op: OpHeartbeat}); err != nil {
				return
			}
		}
	}
}

// writeEvent, tek bir event'i write deadline ve mutex koruması ile yazar.
func (s *Subscription) writeEvent(event WireEvent) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return s.conn.WriteJSON(event)
}

// httpToWS, REST base URL'ini WebSocket şemasına çevirir.
func httpToWS(base string) string {
	if strings.HasPrefix(base, "https://") {
		return "wss://" + strings.TrimPrefix(base, "https://")
	}
	return "ws://" + strings.TrimPrefix(base, "http://")
}

// mustMarshal, hata dönemeyecek küçük payload'lar için marshal yardımcısı.
func mustMarshal(v any) json.RawMessage {
	data, _ := json.Marshal(v)
	return data
}
