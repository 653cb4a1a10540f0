package handlers

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/tripplanner/backend/internal/auth"
	"github.com/tripplanner/backend/internal/config"
	"github.com/tripplanner/backend/internal/events"
	"github.com/tripplanner/backend/internal/http/dto"
	"github.com/tripplanner/backend/internal/middleware"
	"github.com/tripplanner/backend/internal/rbac"
	"go.uber.org/zap"
)

// WSHub fans admin audit events out to connected console sessions.
type WSHub struct {
	subscriber  events.Subscriber
	log         *zap.Logger
	mu          sync.RWMutex
	connections map[uuid.UUID][]*websocket.Conn
}

func NewWSHub(subscriber events.Subscriber, log *zap.Logger) *WSHub {
	return &WSHub{
		subscriber:  subscriber,
		log:         log,
		connections: make(map[uuid.UUID][]*websocket.Conn),
	}
}

// Start subscribes the hub to the admin audit stream until ctx is done.
func (h *WSHub) Start(ctx context.Context) {
	err := h.subscriber.Subscribe(ctx, events.StreamAdminAudit, h.broadcast)
	if err != nil && ctx.Err() == nil {
		h.log.Error("admin audit subscription stopped", zap.Error(err))
	}
}

func (h *WSHub) broadcast(event events.Event) {
	data, err := json.Marshal(event)
	if err != nil {
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, conns := range h.connections {
		for _, conn := range conns {
			_ = conn.WriteMessage(websocket.TextMessage, data)
		}
	}
}

func (h *WSHub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for _, conns := range h.connections {
		n += len(conns)
	}
	return n
}

// WSUpgradeMiddleware authenticates the ?token= query parameter and requires
// audit read access before upgrading. Browsers cannot set headers on
// websocket requests.
func WSUpgradeMiddleware(cfg *config.Config, roles middleware.RoleResolver, log *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !websocket.IsWebSocketUpgrade(c) {
			return fiber.ErrUpgradeRequired
		}

		tokenStr := c.Query("token")
		if tokenStr == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Error: "missing token"})
		}
		claims, err := auth.ParseJWT(cfg.JWTSecret, tokenStr)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Error: "invalid token"})
		}
		userID, _ := claims.UserID()

		role, err := roles.Role(c.UserContext(), userID)
		if err != nil {
			log.Error("failed to resolve admin role", zap.String("user_id", userID.String()), zap.Error(err))
			return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: "failed to resolve role"})
		}
		if !rbac.HasPermission(role, rbac.PermAuditRead) {
			return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{Error: "admin access required"})
		}

		c.Locals(middleware.CtxUserID, userID)
		return c.Next()
	}
}

func (h *WSHub) HandleWS(conn *websocket.Conn) {
	userID, _ := conn.Locals(middleware.CtxUserID).(uuid.UUID)

	h.mu.Lock()
	h.connections[userID] = append(h.connections[userID], conn)
	h.mu.Unlock()

	defer func() {
		h.mu.Lock()
		conns := h.connections[userID]
		for i, c := range conns {
			if c == conn {
				h.connections[userID] = append(conns[:i], conns[i+1:]...)
				break
			}
		}
		if len(h.connections[userID]) == 0 {
			delete(h.connections, userID)
		}
		h.mu.Unlock()
		conn.Close()
	}()

	// Read loop (keep alive / pings)
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}
