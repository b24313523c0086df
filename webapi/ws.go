package webapi

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/rustyeddy/ashare/market"
)

// StreamMessage is pushed on /ws/:code. Type is "initial" for the first
// message and "update" afterwards; Error replaces Data when the candles
// could not be loaded.
type StreamMessage struct {
	Type  string        `json:"type"`
	Data  *Min5Response `json:"data,omitempty"`
	Error string        `json:"error,omitempty"`
}

const writeWait = 10 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin: func(*http.Request) bool { return true },
}

// GET /ws/:code pushes the latest trading day's 5 minute candles, once on
// connect and then every push interval, until the client goes away.
func (s *Server) streamMin5(c *gin.Context) {
	code := c.Param("code")
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.log.WithError(err).Warn("websocket upgrade")
		return
	}
	defer conn.Close()

	log := s.log.WithField("stock", code)
	log.Debug("websocket connected")

	// The reader only notices the close; clients send nothing.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ctx := c.Request.Context()
	send := func(kind string) error {
		msg := StreamMessage{Type: kind}
		resp, _, err := s.min5(ctx, code, market.StartOfDay(s.now()))
		if err != nil {
			msg.Error = err.Error()
		} else {
			resp.UpdateTime = s.now().In(market.Location).Format(market.DateTimeLayout)
			msg.Data = &resp
		}
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		return conn.WriteJSON(msg)
	}

	if err := send("initial"); err != nil {
		log.WithError(err).Debug("websocket write")
		return
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			log.Debug("websocket closed by client")
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := send("update"); err != nil {
				log.WithError(err).Debug("websocket write")
				return
			}
		}
	}
}
