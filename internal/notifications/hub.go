package notifications

import (
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"encargate/internal/models"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 54 * time.Second
	sendBufferSize = 16
)

// Event names pushed to connected clients.
const (
	EventNewOrder          = "newOrder"
	EventOrderStatusChange = "orderStatusChange"
	EventPaymentConfirmed  = "paymentConfirmed"
	EventPaymentFailed     = "paymentFailed"
	EventOrderCompleted    = "orderCompleted"
	EventNewReview         = "newReview"
)

// Message is the wire frame for outbound pushes.
type Message struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

// registration is the first frame a client must send after connecting.
type registration struct {
	UserID uint   `json:"user_id"`
	Role   string `json:"role"`
}

type connection struct {
	ws   *websocket.Conn
	send chan Message
}

// Hub tracks live websocket connections keyed by identity. Delivery is fire
// and forget: pushes to absent or slow identities are dropped and logged,
// never queued for later.
type Hub struct {
	mu       sync.RWMutex
	clients  map[string]map[*connection]struct{}
	upgrader websocket.Upgrader
}

func NewHub() *Hub {
	return &Hub{
		clients: make(map[string]map[*connection]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// User and encargado ids live in separate tables, so the identity key
// carries the role to keep them from colliding.
func userIdentity(userID uint) string  { return fmt.Sprintf("user:%d", userID) }
func encargadoIdentity(id uint) string { return fmt.Sprintf("encargado:%d", id) }

func identityFor(reg registration) string {
	if reg.Role == string(models.RoleEncargado) {
		return encargadoIdentity(reg.UserID)
	}
	return userIdentity(reg.UserID)
}

// ServeWS upgrades the request and registers the connection under the
// identity announced in the client's first frame.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("websocket upgrade failed: %v", err)
		return
	}

	var reg registration
	ws.SetReadDeadline(time.Now().Add(pongWait))
	if err := ws.ReadJSON(&reg); err != nil || reg.UserID == 0 {
		log.Printf("websocket registration failed: %v", err)
		ws.Close()
		return
	}

	identity := identityFor(reg)
	conn := &connection{ws: ws, send: make(chan Message, sendBufferSize)}
	h.add(identity, conn)
	log.Printf("websocket connected: %s", identity)

	go h.writePump(identity, conn)
	go h.readPump(identity, conn)
}

func (h *Hub) add(identity string, conn *connection) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[identity] == nil {
		h.clients[identity] = make(map[*connection]struct{})
	}
	h.clients[identity][conn] = struct{}{}
}

func (h *Hub) remove(identity string, conn *connection) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if conns, ok := h.clients[identity]; ok {
		if _, ok := conns[conn]; ok {
			delete(conns, conn)
			close(conn.send)
		}
		if len(conns) == 0 {
			delete(h.clients, identity)
		}
	}
}

func (h *Hub) readPump(identity string, conn *connection) {
	defer func() {
		h.remove(identity, conn)
		conn.ws.Close()
		log.Printf("websocket disconnected: %s", identity)
	}()

	conn.ws.SetPongHandler(func(string) error {
		conn.ws.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		// Inbound frames after registration are ignored; the read loop
		// only exists to detect the close.
		if _, _, err := conn.ws.ReadMessage(); err != nil {
			return
		}
		conn.ws.SetReadDeadline(time.Now().Add(pongWait))
	}
}

func (h *Hub) writePump(identity string, conn *connection) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.ws.Close()
	}()

	for {
		select {
		case msg, ok := <-conn.send:
			conn.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				conn.ws.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.ws.WriteJSON(msg); err != nil {
				return
			}
		case <-ticker.C:
			conn.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (h *Hub) emit(identity string, msg Message) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	conns, ok := h.clients[identity]
	if !ok {
		log.Printf("notification %s dropped: %s not connected", msg.Event, identity)
		return
	}
	for conn := range conns {
		select {
		case conn.send <- msg:
		default:
			log.Printf("notification %s dropped: %s send buffer full", msg.Event, identity)
		}
	}
}

func (h *Hub) NotifyNewOrder(encargadoID uint, order *models.Order) {
	h.emit(encargadoIdentity(encargadoID), Message{Event: EventNewOrder, Data: order})
}

func (h *Hub) NotifyOrderStatusChange(userID uint, order *models.Order) {
	h.emit(userIdentity(userID), Message{Event: EventOrderStatusChange, Data: order})
}

func (h *Hub) NotifyOrderStatusChangeToEncargado(encargadoID uint, order *models.Order) {
	h.emit(encargadoIdentity(encargadoID), Message{Event: EventOrderStatusChange, Data: order})
}

func (h *Hub) NotifyPaymentConfirmed(userID uint, order *models.Order) {
	h.emit(userIdentity(userID), Message{Event: EventPaymentConfirmed, Data: order})
}

func (h *Hub) NotifyPaymentFailed(userID uint, order *models.Order, reason string) {
	h.emit(userIdentity(userID), Message{Event: EventPaymentFailed, Data: map[string]interface{}{
		"order":  order,
		"reason": reason,
	}})
}

func (h *Hub) NotifyOrderCompleted(userID uint, order *models.Order) {
	h.emit(userIdentity(userID), Message{Event: EventOrderCompleted, Data: order})
}

func (h *Hub) NotifyNewReview(encargadoID uint, review *models.Review) {
	h.emit(encargadoIdentity(encargadoID), Message{Event: EventNewReview, Data: review})
}
