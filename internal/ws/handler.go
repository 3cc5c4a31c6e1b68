package ws

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"luckycards-service/internal/service/game"
	pkgAuth "luckycards-service/pkg/auth"
	appErr "luckycards-service/pkg/errors"
	"luckycards-service/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

type Handler struct {
	gameSvc *game.Service
}

func NewHandler(gameSvc *game.Service) *Handler {
	return &Handler{gameSvc: gameSvc}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // local single-page client
	},
}

// HandleTableWS streams session state and signal events to the
// presentation layer and accepts bet actions back. The user must have
// entered a table over the HTTP API first.
func (h *Handler) HandleTableWS(c *gin.Context) {
	token, err := getTokenFromRequest(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}
	claims, err := pkgAuth.ParseUserToken(token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}
	userID := claims.SubjectID

	session, err := h.gameSvc.Session(userID)
	if err != nil {
		if errors.Is(err, appErr.ErrTableNotEntered) {
			c.JSON(http.StatusConflict, gin.H{"error": "enter a table first"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load session"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Log.Error("Failed to upgrade websocket", zap.Error(err))
		return
	}

	logger.Log.Info("New WebSocket connection",
		zap.Int64("userID", userID),
		zap.String("mode", session.ModeID()),
	)

	client := newClient(conn, userID, session)
	client.run()
}

func getTokenFromRequest(c *gin.Context) (string, error) {
	token := strings.TrimSpace(c.Query("token"))
	if token != "" {
		return token, nil
	}
	authHeader := strings.TrimSpace(c.GetHeader("Authorization"))
	if authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			token = strings.TrimSpace(parts[1])
			if token != "" {
				return token, nil
			}
		}
	}
	return "", errors.New("missing token")
}

// client pairs one websocket connection with one table session. The
// write pump is the connection's only writer; the read loop hands its
// replies over through the replies channel.
type client struct {
	conn      *websocket.Conn
	userID    int64
	session   *game.TableSession
	connID    int64
	outbound  <-chan game.OutgoingMessage
	replies   chan game.OutgoingMessage
	done      chan struct{}
	writeDone chan struct{}
	pingEvery time.Duration
}

func newClient(conn *websocket.Conn, userID int64, session *game.TableSession) *client {
	conn.SetReadLimit(1 << 20)
	conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})
	connID, outbound := session.Subscribe()
	return &client{
		conn:      conn,
		userID:    userID,
		session:   session,
		connID:    connID,
		outbound:  outbound,
		replies:   make(chan game.OutgoingMessage, 16),
		done:      make(chan struct{}),
		writeDone: make(chan struct{}),
		pingEvery: 25 * time.Second,
	}
}

func (c *client) run() {
	go c.writePump()
	c.readPump()
}

func (c *client) readPump() {
	defer func() {
		close(c.done)
		c.session.Unsubscribe(c.connID)
		c.conn.Close()
	}()

	for {
		mt, message, err := c.conn.ReadMessage()
		if err != nil {
			logger.Log.Info("WS read error", zap.Error(err), zap.Int64("userID", c.userID))
			return
		}
		if mt != websocket.TextMessage && mt != websocket.BinaryMessage {
			continue
		}

		var incoming struct {
			Type string          `json:"type"`
			Data json.RawMessage `json:"data"`
		}
		if err := json.Unmarshal(message, &incoming); err != nil {
			c.reply(game.OutgoingMessage{
				Type: "error",
				Data: gin.H{"message": "invalid payload"},
			})
			continue
		}
		if incoming.Type == "" {
			continue
		}

		if err := c.handleAction(incoming.Type, incoming.Data); err != nil {
			c.reply(game.OutgoingMessage{
				Type: "error",
				Data: gin.H{"message": fmt.Sprintf("action failed: %v", err)},
			})
		}
	}
}

func (c *client) handleAction(action string, data json.RawMessage) error {
	switch action {
	case "bet":
		var payload struct {
			OutcomeID string `json:"outcomeId"`
			Amount    int64  `json:"amount"`
		}
		if len(data) > 0 {
			if err := json.Unmarshal(data, &payload); err != nil {
				return err
			}
		}
		return c.session.Stake(payload.OutcomeID, payload.Amount)
	case "clear":
		return c.session.ClearBets()
	case "rebet":
		return c.session.Rebet()
	case "double":
		return c.session.DoubleAll()
	case "ping":
		c.reply(game.OutgoingMessage{Type: "pong", Data: gin.H{"message": "pong"}})
		return nil
	default:
		return fmt.Errorf("unsupported action")
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(c.pingEvery)
	defer func() {
		ticker.Stop()
		close(c.writeDone)
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.outbound:
			if !ok {
				return
			}
			if err := c.conn.WriteJSON(msg); err != nil {
				logger.Log.Info("WS write error", zap.Error(err), zap.Int64("userID", c.userID))
				return
			}
		case msg := <-c.replies:
			if err := c.conn.WriteJSON(msg); err != nil {
				logger.Log.Info("WS write error", zap.Error(err), zap.Int64("userID", c.userID))
				return
			}
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, []byte("ping"), time.Now().Add(5*time.Second)); err != nil {
				return
			}
		case <-c.done:
			return
		}
	}
}

// reply queues a message for the write pump. Only the pump touches the
// conn; a concurrent writer corrupts websocket frames. Blocks when the
// queue is full, which backpressures the read loop.
func (c *client) reply(msg game.OutgoingMessage) {
	select {
	case c.replies <- msg:
	case <-c.writeDone:
	}
}
