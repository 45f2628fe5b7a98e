package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/hearsay-labs/hearsay/internal/buffer"
	"github.com/hearsay-labs/hearsay/internal/notify"
	"github.com/hearsay-labs/hearsay/internal/utils"
)

type WSHandler struct {
	buffers  *buffer.Coordinator
	queries  QueryService
	redis    *redis.Client
	log      *logrus.Logger
	upgrader websocket.Upgrader
}

func NewWSHandler(buffers *buffer.Coordinator, queries QueryService, rdb *redis.Client, log *logrus.Logger) *WSHandler {
	return &WSHandler{
		buffers: buffers,
		queries: queries,
		redis:   rdb,
		log:     log,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true }, // TODO: restrict origin in prod
		},
	}
}

type wsClientMsg struct {
	Type   string `json:"type"` // store|query|deleteAll
	Text   string `json:"text"`
	UserID string `json:"userId"`
}

type wsQueryResult struct {
	Type    string `json:"type"` // queryResult
	Results any    `json:"results"`
	Summary string `json:"summary"`
}

type wsAck struct {
	Type    string `json:"type"` // deleteAllSuccess
	Message string `json:"message"`
}

type wsConn struct {
	c  *websocket.Conn
	mu sync.Mutex
}

func (w *wsConn) writeText(b []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.c.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return w.c.WriteMessage(websocket.TextMessage, b)
}

func (w *wsConn) writeJSON(v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return w.writeText(b)
}

func (w *wsConn) writeError(err error) {
	_ = w.writeJSON(notify.ErrorEvent{
		Type:    "error",
		Code:    utils.CodeOf(err),
		Message: utils.SafeMessage(err),
	})
}

// Session upgrades to a websocket and runs one capture session: inbound
// store/query/deleteAll frames, outbound pipeline events forwarded from the
// session's redis channel. Closing the socket flushes any trailing segment.
func (h *WSHandler) Session(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}
	allowFrameUser := trustFrameUserID(c)

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// upgrade already wrote response in most cases
		return
	}
	defer conn.Close()

	sessionID := uuid.NewString()
	wc := &wsConn{c: conn}
	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	// pipeline events -> WS
	pubsub := h.redis.Subscribe(ctx, notify.SessionChannel(sessionID))
	defer pubsub.Close()

	log := h.log.WithFields(logrus.Fields{
		"session_id": sessionID,
		"user_id":    userID,
	})
	log.Info("session opened")

	readDone := make(chan struct{})
	go func() {
		defer close(readDone)
		defer func() {
			// flush trailing speech even though the connection context is gone
			if err := h.buffers.Close(context.Background(), sessionID); err != nil {
				log.WithError(err).Warn("closing flush finished with errors")
			}
		}()

		_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		conn.SetPongHandler(func(string) error {
			_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
			return nil
		})

		for {
			_, data, rerr := conn.ReadMessage()
			if rerr != nil {
				return
			}
			_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))

			var msg wsClientMsg
			if err := json.Unmarshal(data, &msg); err != nil {
				wc.writeError(utils.E(utils.CodeInvalidArgument, "WSHandler.Session", "invalid json", err))
				continue
			}

			user := userID
			if allowFrameUser && msg.UserID != "" {
				user = msg.UserID
			}

			switch msg.Type {
			case "store":
				if err := h.buffers.OnFragment(ctx, sessionID, user, msg.Text, time.Now().UTC()); err != nil {
					wc.writeError(err)
				}

			case "query":
				resp, err := h.queries.Query(ctx, user, msg.Text)
				if err != nil {
					wc.writeError(err)
					continue
				}
				_ = wc.writeJSON(wsQueryResult{
					Type:    "queryResult",
					Results: resp.Results,
					Summary: resp.Summary,
				})

			case "deleteAll":
				ack, err := h.queries.DeleteAll(ctx, user)
				if err != nil {
					wc.writeError(err)
					continue
				}
				_ = wc.writeJSON(wsAck{Type: "deleteAllSuccess", Message: ack})

			default:
				wc.writeError(utils.E(utils.CodeInvalidArgument, "WSHandler.Session", "unknown message type", nil))
			}
		}
	}()

	// writer: redis pub/sub -> WS, payloads forwarded as-is
	for {
		select {
		case <-readDone:
			return
		case <-ctx.Done():
			return
		default:
			m, err := pubsub.ReceiveMessage(ctx)
			if err != nil {
				return
			}
			if werr := wc.writeText([]byte(m.Payload)); werr != nil {
				return
			}
		}
	}
}
