package handler

import (
	"context"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/pitcharena/pitcharena-api/internal/service"
	"github.com/pitcharena/pitcharena-api/internal/utils"
)

// LeaderboardHandler serves competition standings over HTTP and pushes live
// updates over a websocket fed by the leaderboard refresh channel.
type LeaderboardHandler struct {
	service service.LeaderboardService
	pubsub  *redis.Client
	logger  zerolog.Logger
}

// NewLeaderboardHandler constructs the handler. The redis client may be nil,
// in which case the websocket endpoint only serves the initial snapshot.
func NewLeaderboardHandler(service service.LeaderboardService, pubsub *redis.Client, logger zerolog.Logger) *LeaderboardHandler {
	return &LeaderboardHandler{
		service: service,
		pubsub:  pubsub,
		logger:  logger.With().Str("component", "leaderboard_handler").Logger(),
	}
}

// Register binds leaderboard routes under the provided router group.
func (h *LeaderboardHandler) Register(router fiber.Router) {
	router.Get("/:id/leaderboard", h.leaderboard)

	router.Use("/:id/leaderboard/live", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	router.Get("/:id/leaderboard/live", websocket.New(h.handleLive))
}

func (h *LeaderboardHandler) leaderboard(c *fiber.Ctx) error {
	competitionID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	response, err := h.service.Leaderboard(c.Context(), competitionID)
	if err != nil {
		return respondServiceError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "leaderboard retrieved", response)
}

func (h *LeaderboardHandler) handleLive(conn *websocket.Conn) {
	defer conn.Close()

	competitionID := websocketCompetitionID(conn)
	if competitionID == 0 {
		_ = conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "invalid competition id"))
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if !h.push(ctx, conn, competitionID) {
		return
	}
	if h.pubsub == nil {
		return
	}

	subscription := h.pubsub.Subscribe(ctx, service.LeaderboardChannel(competitionID))
	defer subscription.Close()

	// Drain client frames so we notice the disconnect.
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	h.logger.Info().Uint("competition_id", competitionID).Msg("leaderboard websocket connected")
	for {
		select {
		case <-ctx.Done():
			h.logger.Info().Uint("competition_id", competitionID).Msg("leaderboard websocket disconnected")
			return
		case _, ok := <-subscription.Channel():
			if !ok {
				return
			}
			if !h.push(ctx, conn, competitionID) {
				return
			}
		}
	}
}

func (h *LeaderboardHandler) push(ctx context.Context, conn *websocket.Conn, competitionID uint) bool {
	response, err := h.service.Leaderboard(ctx, competitionID)
	if err != nil {
		h.logger.Warn().Err(err).Uint("competition_id", competitionID).Msg("failed to build live leaderboard")
		return false
	}
	if err := conn.WriteJSON(response); err != nil {
		return false
	}
	return true
}

func websocketCompetitionID(conn *websocket.Conn) uint {
	value, err := strconv.ParseUint(conn.Params("id"), 10, 64)
	if err != nil {
		return 0
	}
	return uint(value)
}
