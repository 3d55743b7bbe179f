package signal

import (
	"context"
	"errors"
	"time"

	"github.com/dkeye/Pair/internal/core"
	"github.com/dkeye/Pair/internal/domain"
	"github.com/dkeye/Pair/internal/protocol"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

func (ctl *SignalWSController) writePump(ctx context.Context, c *WsSignalConn) {
	ticker := time.NewTicker(ctl.opts.PingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	for {
		select {
		case <-ctx.Done():
			log.Info().Str("module", "signal").Msg("writePump ctx done")
			return
		case data, ok := <-c.send:
			if !ok {
				log.Debug().Str("module", "signal").Msg("writePump channel closed")
				return
			}
			if err := c.conn.SetWriteDeadline(time.Now().Add(ctl.opts.WriteWait)); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump set deadline")
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Warn().Err(err).Str("module", "signal").Msg("writePump write error")
				return
			}
		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(ctl.opts.WriteWait)); err != nil {
				return
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Warn().Err(err).Str("module", "signal").Msg("writePump ping error")
				return
			}
		}
	}
}

func (ctl *SignalWSController) readPump(ctx context.Context, roomID domain.RoomID, sid core.SessionID, c *WsSignalConn) {
	defer func() {
		log.Info().Str("module", "signal").Str("sid", string(sid)).Msg("readPump closing")
		c.onClose(func() { ctl.Hub.Leave(roomID, sid) })
		c.Close()
	}()

	c.conn.SetReadLimit(ctl.opts.ReadLimit)
	_ = c.conn.SetReadDeadline(time.Now().Add(ctl.opts.PongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(ctl.opts.PongWait))
	})

	for {
		select {
		case <-ctx.Done():
			log.Info().Str("module", "signal").Str("sid", string(sid)).Msg("readPump ctx done")
			return
		default:
			_, data, err := c.conn.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					log.Warn().Err(err).Str("module", "signal").Str("sid", string(sid)).Msg("readPump read error")
				}
				return
			}
			ctl.handleSignal(roomID, sid, data)
		}
	}
}

func (ctl *SignalWSController) handleSignal(roomID domain.RoomID, sid core.SessionID, data []byte) {
	msg, err := protocol.Decode(data)
	switch {
	case errors.Is(err, protocol.ErrUnknownKind):
		log.Debug().Str("module", "signal").Str("sid", string(sid)).Err(err).Msg("ignoring frame")
		return
	case err != nil:
		log.Warn().Err(err).Str("module", "signal").Str("sid", string(sid)).Msg("bad frame")
		return
	}

	if msg.RoomID != "" && msg.RoomID != string(roomID) {
		log.Warn().Str("module", "signal").Str("sid", string(sid)).Str("room_id", string(roomID)).
			Str("frame_room", msg.RoomID).Msg("frame addressed to another room")
		return
	}

	switch p := msg.Payload.(type) {
	case protocol.CodeUpdate:
		ctl.applyUpdate(roomID, sid, p.Code)
	case protocol.CodeSync:
		ctl.applyUpdate(roomID, sid, p.Code)
	default:
		log.Debug().Str("module", "signal").Str("sid", string(sid)).Str("type", string(msg.Kind)).Msg("ignoring server-only kind")
	}
}

func (ctl *SignalWSController) applyUpdate(roomID domain.RoomID, sid core.SessionID, document string) {
	if err := ctl.Hub.ApplyUpdate(roomID, sid, document); err != nil {
		log.Debug().Err(err).Str("module", "signal").Str("sid", string(sid)).Str("room_id", string(roomID)).Msg("update dropped")
	}
}
