package signal

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/dkeye/Pair/internal/app"
	"github.com/dkeye/Pair/internal/config"
	"github.com/dkeye/Pair/internal/core"
	"github.com/dkeye/Pair/internal/domain"
	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const displayNameKey = "display_name"

// Options tune a single WebSocket connection.
type Options struct {
	ReadLimit      int64
	PingPeriod     time.Duration
	PongWait       time.Duration
	WriteWait      time.Duration
	SendBuffer     int
	AllowedOrigins []string
}

func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		ReadLimit:      cfg.ReadLimit,
		PingPeriod:     cfg.PingPeriod,
		PongWait:       cfg.PongWait,
		WriteWait:      cfg.WriteWait,
		SendBuffer:     cfg.SendBuffer,
		AllowedOrigins: cfg.AllowedOrigins,
	}
}

// SignalWSController attaches WebSocket connections to rooms and
// routes their frames into the hub.
type SignalWSController struct {
	Hub      *app.Hub
	opts     Options
	upgrader websocket.Upgrader
}

func NewSignalWSController(hub *app.Hub, opts Options) *SignalWSController {
	return &SignalWSController{
		Hub:  hub,
		opts: opts,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(opts.AllowedOrigins),
		},
	}
}

// originChecker admits non-browser clients (no Origin header) and
// browsers whose origin is allow-listed. "*" admits everything.
func originChecker(allowed []string) func(r *http.Request) bool {
	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		set[strings.TrimRight(o, "/")] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		if _, ok := set["*"]; ok {
			return true
		}
		_, ok := set[strings.TrimRight(origin, "/")]
		return ok
	}
}

// HandleSignal serves GET /ws/:roomId?display_name=...
func (ctl *SignalWSController) HandleSignal(ctx context.Context, c *gin.Context) {
	roomID := domain.RoomID(strings.TrimSpace(c.Param("roomId")))
	if roomID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "room id required"})
		return
	}

	name := ctl.displayName(c)
	sid := core.SessionID(uuid.NewString())
	log.Info().Str("module", "signal").Str("sid", string(sid)).Str("room_id", string(roomID)).
		Str("client", c.GetString("client_token")).Msg("new WS connection")

	// Headers already set on the writer (session cookie included) go out
	// with the handshake response.
	ws, err := ctl.upgrader.Upgrade(c.Writer, c.Request, c.Writer.Header())
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("ws upgrade")
		return
	}

	conn := newWsSignalConn(ws, ctl.opts.SendBuffer)
	ms := core.NewMemberSession(sid, domain.NewMember(name, time.Now()), conn)

	go ctl.writePump(ctx, conn)

	if _, err := ctl.Hub.Join(roomID, ms); err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("sid", string(sid)).Str("room_id", string(roomID)).Msg("join rejected")
		conn.CloseWithReason(websocket.ClosePolicyViolation, "room not found", ctl.opts.WriteWait)
		return
	}

	go ctl.readPump(ctx, roomID, sid, conn)
}

// displayName prefers the query parameter and falls back to the name this
// browser used last time.
func (ctl *SignalWSController) displayName(c *gin.Context) string {
	sess := sessions.Default(c)
	raw := c.Query(displayNameKey)
	if raw == "" {
		if prev, ok := sess.Get(displayNameKey).(string); ok {
			raw = prev
		}
	}
	name := domain.SanitizeDisplayName(raw)
	sess.Set(displayNameKey, name)
	if err := sess.Save(); err != nil {
		log.Warn().Err(err).Str("module", "signal").Msg("session save")
	}
	return name
}
