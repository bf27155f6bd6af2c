package handler

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"stock_tracker/internal/feature/tracker/transport/http/dto"
	"stock_tracker/internal/feature/tracker/usecase"
)

const (
	defaultClientBuffer = 64
	writeWait           = 10 * time.Second
	maxMessageSize      = 512
)

// Hub はエンジンのイベントを接続中の全WebSocketクライアントへ配信します。
// クライアントごとの送信キューは有限で、満杯の場合は最も古いメッセージを捨てます。
type Hub struct {
	mu       sync.Mutex
	clients  map[*wsClient]struct{}
	buffer   int
	upgrader websocket.Upgrader
	logger   *zap.Logger
}

type wsClient struct {
	conn *websocket.Conn
	send chan []byte
}

// NewHub creates a hub whose clients queue up to buffer messages.
func NewHub(logger *zap.Logger, buffer int) *Hub {
	if buffer <= 0 {
		buffer = defaultClientBuffer
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		clients: make(map[*wsClient]struct{}),
		buffer:  buffer,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// フロントエンドは別オリジンから配信される
			CheckOrigin: func(*http.Request) bool { return true },
		},
		logger: logger.With(zap.String("component", "hub")),
	}
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Broadcast encodes ev as {type, data} and queues it for every client.
func (h *Hub) Broadcast(ev usecase.Event) {
	msg, err := json.Marshal(dto.StreamMessage{Type: ev.Type(), Data: ev})
	if err != nil {
		h.logger.Error("failed to encode event", zap.String("type", ev.Type()), zap.Error(err))
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for cl := range h.clients {
		select {
		case cl.send <- msg:
			continue
		default:
		}
		// キューが満杯：最古のメッセージを捨てて入れ直す
		select {
		case <-cl.send:
		default:
		}
		select {
		case cl.send <- msg:
		default:
			h.logger.Warn("client queue full, dropping event", zap.String("type", ev.Type()))
		}
	}
}

// Serve は GET /stream をWebSocketにアップグレードし、切断されるまでイベントを送り続けます。
func (h *Hub) Serve(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade がエラーレスポンスを書き込み済み
		h.logger.Warn("websocket upgrade failed", zap.Error(err), zap.String("remote_addr", c.ClientIP()))
		return
	}

	cl := &wsClient{conn: conn, send: make(chan []byte, h.buffer)}
	h.mu.Lock()
	h.clients[cl] = struct{}{}
	h.mu.Unlock()
	h.logger.Info("stream client connected", zap.String("remote_addr", c.ClientIP()))

	go h.writeLoop(cl)
	h.readLoop(cl)
}

// readLoop はクライアントからのメッセージを読み捨て、切断を検知したら登録を解除します。
func (h *Hub) readLoop(cl *wsClient) {
	defer func() {
		h.remove(cl)
		_ = cl.conn.Close()
	}()
	cl.conn.SetReadLimit(maxMessageSize)
	for {
		if _, _, err := cl.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Warn("stream client read failed", zap.Error(err))
			}
			return
		}
	}
}

func (h *Hub) writeLoop(cl *wsClient) {
	defer func() { _ = cl.conn.Close() }()
	for msg := range cl.send {
		_ = cl.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := cl.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			h.logger.Warn("stream client write failed", zap.Error(err))
			return
		}
	}
	_ = cl.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}

func (h *Hub) remove(cl *wsClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[cl]; !ok {
		return
	}
	delete(h.clients, cl)
	close(cl.send)
	h.logger.Info("stream client disconnected")
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for cl := range h.clients {
		delete(h.clients, cl)
		close(cl.send)
	}
}
