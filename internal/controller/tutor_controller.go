package controller

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"

	"tara-tutor-be/internal/constant"
	"tara-tutor-be/internal/dto"
	"tara-tutor-be/internal/pkg/logger"
	"tara-tutor-be/internal/pkg/serverutils"
	"tara-tutor-be/internal/service"
	internalWS "tara-tutor-be/internal/websocket"
	"tara-tutor-be/pkg/store"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

type ITutorController interface {
	RegisterRoutes(r fiber.Router)
	SendChat(ctx *fiber.Ctx) error
	StreamChat(ctx *fiber.Ctx) error
	ServeWs(ctx *fiber.Ctx) error
	UploadDocument(ctx *fiber.Ctx) error
	DetachDocument(ctx *fiber.Ctx) error
	ResetSession(ctx *fiber.Ctx) error
	GetHistory(ctx *fiber.Ctx) error
	SubmitFeedback(ctx *fiber.Ctx) error
}

type tutorController struct {
	tutorService    service.ITutorService
	feedbackService service.IFeedbackService
	hub             *internalWS.Hub
	maxUploadBytes  int64
	logger          logger.ILogger
}

func NewTutorController(
	tutorService service.ITutorService,
	feedbackService service.IFeedbackService,
	hub *internalWS.Hub,
	maxUploadBytes int,
	log logger.ILogger,
) ITutorController {
	return &tutorController{
		tutorService:    tutorService,
		feedbackService: feedbackService,
		hub:             hub,
		maxUploadBytes:  int64(maxUploadBytes),
		logger:          log,
	}
}

func (c *tutorController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/tutor/v1")
	h.Post("/chat", c.SendChat)
	h.Post("/chat/stream", c.StreamChat)
	h.Get("/ws", c.ServeWs)
	h.Post("/documents", c.UploadDocument)
	h.Delete("/documents", c.DetachDocument)
	h.Post("/sessions/reset", c.ResetSession)
	h.Get("/sessions/:id/history", c.GetHistory)
	h.Post("/feedback", c.SubmitFeedback)
}

func parseChat(ctx *fiber.Ctx) (*dto.SendChatRequest, error) {
	var req dto.SendChatRequest
	if err := ctx.BodyParser(&req); err != nil {
		return nil, fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return nil, err
	}
	return &req, nil
}

func (c *tutorController) SendChat(ctx *fiber.Ctx) error {
	req, err := parseChat(ctx)
	if err != nil {
		return err
	}

	res, err := c.tutorService.SendChat(ctx.UserContext(), req)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success send chat", res))
}

// StreamChat answers with server-sent events: "delta" frames, then one "done" frame
// carrying the full reply. The turn is recorded only if the client reads it to the end.
func (c *tutorController) StreamChat(ctx *fiber.Ctx) error {
	req, err := parseChat(ctx)
	if err != nil {
		return err
	}

	stream, err := c.tutorService.StreamChat(ctx.UserContext(), req)
	if err != nil {
		return err
	}

	ctx.Set(fiber.HeaderContentType, "text/event-stream")
	ctx.Set(fiber.HeaderCacheControl, "no-cache")
	ctx.Set(fiber.HeaderConnection, "keep-alive")

	ctx.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		defer stream.Close()
		for {
			chunk, ok := stream.Next()
			if !ok {
				break
			}
			if err := writeEvent(w, "delta", dto.StreamDelta{Text: chunk}); err != nil {
				c.logger.Info("TutorController", "Stream client went away", map[string]interface{}{"session_id": req.SessionId})
				return
			}
		}
		_ = writeEvent(w, "done", stream.Final())
	})
	return nil
}

func writeEvent(w *bufio.Writer, event string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data); err != nil {
		return err
	}
	return w.Flush()
}

func (c *tutorController) ServeWs(ctx *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(ctx) {
		return fiber.ErrUpgradeRequired
	}
	sessionID := ctx.Query("session_id", store.DefaultSessionID)

	return websocket.New(func(conn *websocket.Conn) {
		c.logger.Info("TutorController", "Starting WebSocket session", map[string]interface{}{"session_id": sessionID})
		internalWS.ServeWs(c.hub, c.tutorService, conn, sessionID)
		c.logger.Info("TutorController", "WebSocket session ended", map[string]interface{}{"session_id": sessionID})
	})(ctx)
}

func (c *tutorController) UploadDocument(ctx *fiber.Ctx) error {
	fileHeader, err := ctx.FormFile("file")
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Missing \"file\" form field")
	}
	if c.maxUploadBytes > 0 && fileHeader.Size > c.maxUploadBytes {
		return fiber.NewError(fiber.StatusRequestEntityTooLarge, fmt.Sprintf("File exceeds %d bytes", c.maxUploadBytes))
	}

	file, err := fileHeader.Open()
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, constant.IngestionFailureMessage)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, constant.IngestionFailureMessage)
	}

	res, err := c.tutorService.UploadDocument(ctx.UserContext(), ctx.FormValue("session_id"), fileHeader.Filename, data)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse(res.Message, res))
}

func (c *tutorController) DetachDocument(ctx *fiber.Ctx) error {
	res := c.tutorService.DetachDocument(ctx.UserContext(), ctx.Query("session_id"))
	return ctx.JSON(serverutils.SuccessResponse(constant.DocumentDetachedMessage, res))
}

func (c *tutorController) ResetSession(ctx *fiber.Ctx) error {
	var req dto.ResetSessionRequest
	if len(ctx.Body()) > 0 {
		if err := ctx.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	c.tutorService.ResetSession(ctx.UserContext(), req.SessionId)
	return ctx.JSON(serverutils.SuccessResponse[any](constant.SessionResetMessage, nil))
}

func (c *tutorController) GetHistory(ctx *fiber.Ctx) error {
	res := c.tutorService.GetHistory(ctx.Params("id"))
	return ctx.JSON(serverutils.SuccessResponse("Session history", res))
}

func (c *tutorController) SubmitFeedback(ctx *fiber.Ctx) error {
	var req dto.FeedbackRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	if err := c.feedbackService.Submit(ctx.UserContext(), &req); err != nil {
		return err
	}
	return ctx.Status(fiber.StatusAccepted).JSON(serverutils.SuccessResponse[any](constant.FeedbackAcceptedMessage, nil))
}
