package handler

import (
	"time"

	"barcode-lookup/internal/constant"
	"barcode-lookup/internal/dto"
	"barcode-lookup/internal/pkg/logger"
	"barcode-lookup/internal/pkg/serverutils"
	"barcode-lookup/internal/service"
	internalWS "barcode-lookup/internal/websocket"
	"barcode-lookup/pkg/decoder"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// DisplayHandler serves the display feed and lets tooling inject scans onto the bus.
type DisplayHandler struct {
	intake service.IScanIntakeService
	hub    *internalWS.Hub
	logger logger.ILogger
}

func NewDisplayHandler(intake service.IScanIntakeService, hub *internalWS.Hub, log logger.ILogger) *DisplayHandler {
	return &DisplayHandler{
		intake: intake,
		hub:    hub,
		logger: log,
	}
}

func (h *DisplayHandler) RegisterRoutes(r fiber.Router) {
	r.Get("/session/ws", h.ServeWs)
	r.Post("/debug/scan", h.InjectScan)
}

// ServeWs upgrades the request and streams session and torch frames.
func (h *DisplayHandler) ServeWs(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		return websocket.New(func(conn *websocket.Conn) {
			h.logger.Info(constant.HandlerLoggerModule, "Display connected", map[string]interface{}{
				"remote": conn.RemoteAddr().String(),
			})
			internalWS.ServeWs(h.hub, conn)
			h.logger.Info(constant.HandlerLoggerModule, "Display disconnected", map[string]interface{}{
				"remote": conn.RemoteAddr().String(),
			})
		})(c)
	}
	return fiber.ErrUpgradeRequired
}

func (h *DisplayHandler) InjectScan(c *fiber.Ctx) error {
	var req dto.InjectScanRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(400, "invalid request body"))
	}
	if err := serverutils.ValidateRequest(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(400, err.Error()))
	}

	ev := decoder.ScanEvent{
		Code:      req.Code,
		Symbology: decoder.Symbology(req.Symbology),
		Source:    "http",
		ScannedAt: time.Now(),
	}
	if err := h.intake.Publish(ev); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(serverutils.ErrorResponse(500, err.Error()))
	}
	return c.Status(fiber.StatusAccepted).JSON(serverutils.SuccessResponse("Scan queued", ev))
}
