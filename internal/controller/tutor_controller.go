package controller

import (
	"subchapter-tutor-be/internal/dto"
	"subchapter-tutor-be/internal/pkg/serverutils"
	"subchapter-tutor-be/internal/service"
	"subchapter-tutor-be/internal/websocket"

	"github.com/gofiber/fiber/v2"
	fiberws "github.com/gofiber/websocket/v2"
)

type ITutorController interface {
	RegisterRoutes(r fiber.Router)
	CreateSession(ctx *fiber.Ctx) error
	ListSubchapters(ctx *fiber.Ctx) error
	GetSession(ctx *fiber.Ctx) error
	SelectSubchapter(ctx *fiber.Ctx) error
	SendMessage(ctx *fiber.Ctx) error
	EndSession(ctx *fiber.Ctx) error
	RefreshCatalog(ctx *fiber.Ctx) error
}

type tutorController struct {
	service service.ITutorService
	tokens  *serverutils.SessionTokens
	hub     *websocket.Hub
}

func NewTutorController(service service.ITutorService, tokens *serverutils.SessionTokens, hub *websocket.Hub) ITutorController {
	return &tutorController{service: service, tokens: tokens, hub: hub}
}

func (c *tutorController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/tutor/v1")
	h.Post("/sessions", c.CreateSession)
	h.Get("/subchapters", c.ListSubchapters)
	h.Post("/catalog/refresh", c.RefreshCatalog)

	s := h.Group("/sessions/current", c.tokens.Middleware) // session token required
	s.Get("", c.GetSession)
	s.Put("/selection", c.SelectSubchapter)
	s.Post("/messages", c.SendMessage)
	s.Delete("", c.EndSession)

	if c.hub != nil {
		h.Get("/ws", c.tokens.Middleware, upgradeOnly, fiberws.New(c.serveWs))
	}
}

func (c *tutorController) CreateSession(ctx *fiber.Ctx) error {
	view, err := c.service.CreateSession(ctx.Context())
	if err != nil {
		return err
	}

	token, err := c.tokens.Issue(view.SessionID)
	if err != nil {
		return err
	}

	res := dto.CreateSessionResponse{Token: token, Session: view}
	return ctx.Status(fiber.StatusCreated).JSON(serverutils.SuccessResponse("Success create session", res))
}

func (c *tutorController) ListSubchapters(ctx *fiber.Ctx) error {
	res, err := c.service.ListSubchapters(ctx.Context())
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success get subchapters", res))
}

func (c *tutorController) GetSession(ctx *fiber.Ctx) error {
	res, err := c.service.GetSession(ctx.Context(), sessionID(ctx))
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success get session", res))
}

func (c *tutorController) SelectSubchapter(ctx *fiber.Ctx) error {
	var req dto.SelectSubchapterRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.service.SelectSubchapter(ctx.Context(), sessionID(ctx), req.Label)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success select subchapter", res))
}

func (c *tutorController) SendMessage(ctx *fiber.Ctx) error {
	var req dto.SendMessageRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.service.SendMessage(ctx.Context(), sessionID(ctx), req.Text)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success send message", res))
}

func (c *tutorController) EndSession(ctx *fiber.Ctx) error {
	if err := c.service.EndSession(ctx.Context(), sessionID(ctx)); err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse[any]("Success end session", nil))
}

func (c *tutorController) RefreshCatalog(ctx *fiber.Ctx) error {
	res, err := c.service.RefreshCatalog(ctx.Context())
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success refresh catalog", res))
}

func (c *tutorController) serveWs(conn *fiberws.Conn) {
	id, _ := conn.Locals(serverutils.SessionLocalKey).(string)
	websocket.ServeWs(c.hub.Context(), c.hub, conn, id, c.service)
}

func upgradeOnly(ctx *fiber.Ctx) error {
	if fiberws.IsWebSocketUpgrade(ctx) {
		return ctx.Next()
	}
	return fiber.ErrUpgradeRequired
}

func sessionID(ctx *fiber.Ctx) string {
	id, _ := ctx.Locals(serverutils.SessionLocalKey).(string)
	return id
}
