package web

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/park285/opening-query/internal/view"
	"go.uber.org/zap"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

const (
	liveWriteTimeout = 5 * time.Second
	liveBuffer       = 8
)

// live streams snapshots over a websocket: the current state first, then
// one message per change. Slow readers drop intermediate states.
func (s *Server) live(c *gin.Context) {
	f := formFrom(c)
	conn, err := websocket.Accept(c.Writer, c.Request, &websocket.AcceptOptions{
		CompressionMode: websocket.CompressionNoContextTakeover,
	})
	if err != nil {
		s.deps.Logger.Warn("live_accept_failed", zap.String("session_id", f.ID()), zap.Error(err))
		return
	}
	defer conn.Close(websocket.StatusInternalError, "closing")

	updates := make(chan view.Snapshot, liveBuffer)
	cancelSub := f.Subscribe(func(snap view.Snapshot) {
		select {
		case updates <- snap:
		default:
		}
	})
	defer cancelSub()

	ctx := conn.CloseRead(c.Request.Context())
	if err := writeSnapshot(ctx, conn, f.Snapshot()); err != nil {
		return
	}
	for {
		select {
		case <-ctx.Done():
			conn.Close(websocket.StatusNormalClosure, "")
			return
		case snap := <-updates:
			if err := writeSnapshot(ctx, conn, snap); err != nil {
				s.deps.Logger.Debug("live_write_failed", zap.String("session_id", f.ID()), zap.Error(err))
				return
			}
		}
	}
}

func writeSnapshot(ctx context.Context, conn *websocket.Conn, snap view.Snapshot) error {
	wctx, cancel := context.WithTimeout(ctx, liveWriteTimeout)
	defer cancel()
	return wsjson.Write(wctx, conn, snap)
}
