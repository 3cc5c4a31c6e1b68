package api

import (
	"errors"
	"net/http"
	"strconv"

	"luckycards-service/internal/middleware"
	"luckycards-service/internal/service"
	"luckycards-service/internal/service/game"
	usersvc "luckycards-service/internal/service/user"
	"luckycards-service/internal/ws"
	appErr "luckycards-service/pkg/errors"
	"luckycards-service/pkg/response"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	services *service.Container
}

func RegisterRoutes(r *gin.Engine, services *service.Container) {
	handler := &Handler{services: services}
	wsHandler := ws.NewHandler(services.Game)

	r.GET("/ping", func(c *gin.Context) {
		response.Success(c, gin.H{"message": "pong"})
	})

	v1 := r.Group("/luckycards/v1")
	{
		authGroup := v1.Group("/auth")
		{
			authGroup.POST("/guest", handler.GuestLogin)
			authGroup.POST("/refresh", middleware.AuthRequired(), handler.RefreshToken)
		}

		userGroup := v1.Group("/user")
		userGroup.Use(middleware.AuthRequired())
		{
			userGroup.GET("/profile", handler.GetProfile)
			userGroup.PUT("/settings", handler.UpdateSettings)
			userGroup.POST("/reset", handler.ResetProfile)
		}

		walletGroup := v1.Group("/wallet")
		walletGroup.Use(middleware.AuthRequired())
		{
			walletGroup.GET("", handler.GetWallet)
			walletGroup.POST("/topup", handler.TopUpWallet)
		}

		v1.GET("/modes", handler.ListModes)
		v1.GET("/leaderboard", handler.GetLeaderboard)

		tableGroup := v1.Group("/table")
		tableGroup.Use(middleware.AuthRequired())
		{
			tableGroup.POST("/enter", handler.EnterTable)
			tableGroup.POST("/leave", handler.LeaveTable)
			tableGroup.GET("/state", handler.TableState)
			tableGroup.POST("/bet", handler.PlaceBet)
			tableGroup.POST("/clear", handler.ClearBets)
			tableGroup.POST("/rebet", handler.Rebet)
			tableGroup.POST("/double", handler.DoubleBets)
		}
	}

	adminGroup := r.Group("/admin")
	{
		adminGroup.POST("/auth/login", handler.AdminLogin)

		protected := adminGroup.Group("/")
		protected.Use(middleware.AdminAuthRequired())
		{
			protected.GET("/users", handler.AdminListUsers)
			protected.PUT("/users/:id/wallet", handler.AdminSetUserWallet)
		}
	}

	r.GET("/ws/table", wsHandler.HandleTableWS)
}

func currentUserID(c *gin.Context) int64 {
	id, _ := c.Get(middleware.ContextUserIDKey)
	userID, _ := id.(int64)
	return userID
}

// --- Auth ---

func (h *Handler) GuestLogin(c *gin.Context) {
	result, err := h.services.Auth.GuestLogin(c.Request.Context(), c.ClientIP())
	if err != nil {
		if errors.Is(err, appErr.ErrTooManyGuests) {
			response.Error(c, http.StatusTooManyRequests, "too many guest signups, try again later")
			return
		}
		response.Error(c, http.StatusInternalServerError, "failed to create guest")
		return
	}
	response.Success(c, result)
}

func (h *Handler) RefreshToken(c *gin.Context) {
	result, err := h.services.Auth.Refresh(c.Request.Context(), currentUserID(c))
	if err != nil {
		h.renderError(c, err)
		return
	}
	response.Success(c, result)
}

// --- User ---

func (h *Handler) GetProfile(c *gin.Context) {
	user, err := h.services.User.GetProfile(c.Request.Context(), currentUserID(c))
	if err != nil {
		h.renderError(c, err)
		return
	}
	response.Success(c, user)
}

type updateSettingsBody struct {
	SoundEnabled      *bool   `json:"soundEnabled"`
	AnimationsEnabled *bool   `json:"animationsEnabled"`
	Theme             *string `json:"theme"`
}

func (h *Handler) UpdateSettings(c *gin.Context) {
	var body updateSettingsBody
	if err := c.ShouldBindJSON(&body); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid payload")
		return
	}
	user, err := h.services.User.UpdateSettings(c.Request.Context(), currentUserID(c), usersvc.UpdateSettingsRequest{
		SoundEnabled:      body.SoundEnabled,
		AnimationsEnabled: body.AnimationsEnabled,
		Theme:             body.Theme,
	})
	if err != nil {
		h.renderError(c, err)
		return
	}
	response.Success(c, user)
}

func (h *Handler) ResetProfile(c *gin.Context) {
	userID := currentUserID(c)

	// A reset abandons any in-flight round.
	h.services.Game.LeaveTable(userID)

	user, err := h.services.User.ResetProfile(c.Request.Context(), userID)
	if err != nil {
		h.renderError(c, err)
		return
	}
	response.Success(c, user)
}

// --- Wallet ---

func (h *Handler) GetWallet(c *gin.Context) {
	summary, err := h.services.Wallet.GetWallet(c.Request.Context(), currentUserID(c))
	if err != nil {
		h.renderError(c, err)
		return
	}
	response.Success(c, summary)
}

func (h *Handler) TopUpWallet(c *gin.Context) {
	summary, err := h.services.Wallet.TopUp(c.Request.Context(), currentUserID(c))
	if err != nil {
		h.renderError(c, err)
		return
	}
	response.Success(c, summary)
}

// --- Lobby ---

func (h *Handler) ListModes(c *gin.Context) {
	response.Success(c, gin.H{"modes": game.Modes()})
}

func (h *Handler) GetLeaderboard(c *gin.Context) {
	limit := 10
	if raw := c.Query("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 && parsed <= 100 {
			limit = parsed
		}
	}
	entries, err := h.services.Leaderboard.Top(c.Request.Context(), limit)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "failed to load leaderboard")
		return
	}
	response.Success(c, gin.H{"entries": entries})
}

// --- Table ---

type enterTableBody struct {
	Mode string `json:"mode" binding:"required"`
}

func (h *Handler) EnterTable(c *gin.Context) {
	var body enterTableBody
	if err := c.ShouldBindJSON(&body); err != nil {
		response.Error(c, http.StatusBadRequest, "mode is required")
		return
	}
	session, err := h.services.Game.EnterTable(c.Request.Context(), currentUserID(c), body.Mode)
	if err != nil {
		h.renderError(c, err)
		return
	}
	response.Success(c, session.Snapshot())
}

func (h *Handler) LeaveTable(c *gin.Context) {
	h.services.Game.LeaveTable(currentUserID(c))
	response.Success(c, gin.H{"left": true})
}

func (h *Handler) TableState(c *gin.Context) {
	session, err := h.services.Game.Session(currentUserID(c))
	if err != nil {
		h.renderError(c, err)
		return
	}
	response.Success(c, session.Snapshot())
}

type placeBetBody struct {
	OutcomeID string `json:"outcomeId" binding:"required"`
	Amount    int64  `json:"amount" binding:"required,min=1"`
}

func (h *Handler) PlaceBet(c *gin.Context) {
	var body placeBetBody
	if err := c.ShouldBindJSON(&body); err != nil {
		response.Error(c, http.StatusBadRequest, "outcomeId and positive amount are required")
		return
	}
	session, err := h.services.Game.Session(currentUserID(c))
	if err != nil {
		h.renderError(c, err)
		return
	}
	if err := session.Stake(body.OutcomeID, body.Amount); err != nil {
		h.renderError(c, err)
		return
	}
	response.Success(c, session.Snapshot())
}

func (h *Handler) ClearBets(c *gin.Context) {
	h.runBetAction(c, func(s *game.TableSession) error { return s.ClearBets() })
}

func (h *Handler) Rebet(c *gin.Context) {
	h.runBetAction(c, func(s *game.TableSession) error { return s.Rebet() })
}

func (h *Handler) DoubleBets(c *gin.Context) {
	h.runBetAction(c, func(s *game.TableSession) error { return s.DoubleAll() })
}

func (h *Handler) runBetAction(c *gin.Context, action func(*game.TableSession) error) {
	session, err := h.services.Game.Session(currentUserID(c))
	if err != nil {
		h.renderError(c, err)
		return
	}
	if err := action(session); err != nil {
		h.renderError(c, err)
		return
	}
	response.Success(c, session.Snapshot())
}

// --- Admin ---

type adminLoginBody struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (h *Handler) AdminLogin(c *gin.Context) {
	var body adminLoginBody
	if err := c.ShouldBindJSON(&body); err != nil {
		response.Error(c, http.StatusBadRequest, "username and password are required")
		return
	}
	result, err := h.services.Admin.Login(c.Request.Context(), body.Username, body.Password)
	if err != nil {
		h.renderError(c, err)
		return
	}
	response.Success(c, result)
}

func (h *Handler) AdminListUsers(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	size, _ := strconv.Atoi(c.DefaultQuery("size", "20"))

	result, err := h.services.User.ListUsers(c.Request.Context(), usersvc.ListUsersFilter{
		Page:            page,
		Size:            size,
		UsernameKeyword: c.Query("username"),
	})
	if err != nil {
		h.renderError(c, err)
		return
	}
	response.Success(c, gin.H{"items": result.Items, "total": result.Total})
}

type adminSetWalletBody struct {
	Balance *int64 `json:"balance" binding:"required"`
}

func (h *Handler) AdminSetUserWallet(c *gin.Context) {
	userID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || userID <= 0 {
		response.Error(c, http.StatusBadRequest, "invalid user id")
		return
	}
	var body adminSetWalletBody
	if err := c.ShouldBindJSON(&body); err != nil {
		response.Error(c, http.StatusBadRequest, "balance is required")
		return
	}
	summary, err := h.services.Wallet.AdminAdjust(c.Request.Context(), userID, *body.Balance)
	if err != nil {
		h.renderError(c, err)
		return
	}
	response.Success(c, summary)
}

// --- Error mapping ---

func (h *Handler) renderError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, appErr.ErrUserNotFound):
		response.Error(c, http.StatusNotFound, "user not found")
	case errors.Is(err, appErr.ErrModeNotFound):
		response.Error(c, http.StatusNotFound, "game mode not found")
	case errors.Is(err, appErr.ErrOutcomeNotFound):
		response.Error(c, http.StatusBadRequest, "outcome not found")
	case errors.Is(err, appErr.ErrTableNotEntered):
		response.Error(c, http.StatusConflict, "enter a table first")
	case errors.Is(err, appErr.ErrInsufficientBalance):
		response.Error(c, http.StatusPaymentRequired, "insufficient balance")
	case errors.Is(err, appErr.ErrInvalidAmount):
		response.Error(c, http.StatusBadRequest, "amount must be a positive integer")
	case errors.Is(err, appErr.ErrInvalidSettings):
		response.Error(c, http.StatusBadRequest, "invalid settings payload")
	case errors.Is(err, appErr.ErrInvalidWalletPayload):
		response.Error(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, appErr.ErrAdminNotFound), errors.Is(err, appErr.ErrInvalidAdminPassword):
		response.Error(c, http.StatusUnauthorized, "invalid credentials")
	case errors.Is(err, appErr.ErrAdminDisabled):
		response.Error(c, http.StatusForbidden, "admin disabled")
	default:
		response.Error(c, http.StatusInternalServerError, "internal error")
	}
}
