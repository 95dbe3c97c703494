// internal/handler/printer_handler.go
package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"printer-service/internal/discovery"
	"printer-service/internal/model"
	"printer-service/internal/service"
	"printer-service/internal/utils"
)

// PrinterHandler handles printer-related HTTP requests
type PrinterHandler struct {
	printService *service.PrintService
	logger       *utils.ServiceLogger
}

// NewPrinterHandler creates a new printer handler
func NewPrinterHandler(printService *service.PrintService, logger *zap.Logger) *PrinterHandler {
	return &PrinterHandler{
		printService: printService,
		logger:       utils.NewServiceLogger(logger, "printer-handler"),
	}
}

// RegisterRoutes registers printer routes
func (h *PrinterHandler) RegisterRoutes(router *gin.RouterGroup) {
	printers := router.Group("/printers")
	{
		printers.GET("", h.ListPrinters)
		printers.GET("/devices", h.DiscoverAll)

		printer := printers.Group("/:transport")
		{
			printer.GET("/devices", h.Discover)
			printer.POST("/connect", h.Connect)
			printer.POST("/disconnect", h.Disconnect)
			printer.GET("/status", h.Status)
			printer.POST("/jobs", h.SubmitJob)
			printer.POST("/scan/start", h.StartScan)
			printer.POST("/scan/stop", h.StopScan)
		}
	}
}

// ListPrinters lists the configured printers and their state
// @Summary List printers
// @Tags Printers
// @Produce json
// @Success 200 {object} utils.APIResponse{data=[]printer.Status}
// @Router /printers [get]
func (h *PrinterHandler) ListPrinters(c *gin.Context) {
	utils.SuccessResponse(c, http.StatusOK, "Printers retrieved successfully", h.printService.StatusAll())
}

// DiscoverAll scans every available transport
// @Summary Discover devices on all transports
// @Tags Discovery
// @Produce json
// @Param name query string false "Name substring"
// @Param vendor_id query string false "USB vendor id, decimal or 0x hex"
// @Param service_uuid query string false "BLE service UUID"
// @Success 200 {object} utils.APIResponse{data=[]model.Device}
// @Router /printers/devices [get]
func (h *PrinterHandler) DiscoverAll(c *gin.Context) {
	filter, err := parseFilter(c)
	if err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid discovery filter", err)
		return
	}

	devices := h.printService.DiscoverAll(c.Request.Context(), filter)
	utils.SuccessResponse(c, http.StatusOK, "Discovery completed", gin.H{
		"devices": devices,
		"count":   len(devices),
	})
}

// Discover lists devices on one transport
// @Summary Discover devices
// @Tags Discovery
// @Produce json
// @Param transport path string true "Transport" Enums(usb, ble, bluetooth, terminal)
// @Param name query string false "Name substring"
// @Param vendor_id query string false "USB vendor id, decimal or 0x hex"
// @Param service_uuid query string false "BLE service UUID"
// @Param duration query string false "BLE scan duration, e.g. 3s"
// @Success 200 {object} utils.APIResponse{data=[]model.Device}
// @Failure 503 {object} utils.APIResponse "Adapter unavailable"
// @Router /printers/{transport}/devices [get]
func (h *PrinterHandler) Discover(c *gin.Context) {
	transport, ok := h.transport(c)
	if !ok {
		return
	}
	filter, err := parseFilter(c)
	if err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid discovery filter", err)
		return
	}

	devices, err := h.printService.Discover(c.Request.Context(), transport, filter)
	if err != nil {
		h.fail(c, "Discovery failed", err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Discovery completed", gin.H{
		"devices": devices,
		"count":   len(devices),
	})
}

// Connect connects a printer
// @Summary Connect printer
// @Tags Printers
// @Accept json
// @Produce json
// @Param transport path string true "Transport" Enums(usb, ble, bluetooth, terminal)
// @Param request body service.ConnectRequest false "Device selection"
// @Success 200 {object} utils.APIResponse{data=model.Connection}
// @Failure 404 {object} utils.APIResponse "Device not found"
// @Failure 502 {object} utils.APIResponse "Connect failure"
// @Router /printers/{transport}/connect [post]
func (h *PrinterHandler) Connect(c *gin.Context) {
	transport, ok := h.transport(c)
	if !ok {
		return
	}

	var req service.ConnectRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.ErrorResponse(c, http.StatusBadRequest, "Invalid request body", err)
			return
		}
	}

	conn, err := h.printService.Connect(c.Request.Context(), transport, req)
	if err != nil {
		h.fail(c, "Failed to connect printer", err)
		return
	}

	h.logger.Info("Printer connected",
		zap.String("transport", string(transport)),
		zap.String("device_id", conn.Device.ID),
	)
	utils.SuccessResponse(c, http.StatusOK, "Printer connected successfully", conn)
}

// Disconnect disconnects a printer
// @Summary Disconnect printer
// @Tags Printers
// @Produce json
// @Param transport path string true "Transport" Enums(usb, ble, bluetooth, terminal)
// @Success 200 {object} utils.APIResponse
// @Router /printers/{transport}/disconnect [post]
func (h *PrinterHandler) Disconnect(c *gin.Context) {
	transport, ok := h.transport(c)
	if !ok {
		return
	}

	if err := h.printService.Disconnect(c.Request.Context(), transport); err != nil {
		h.fail(c, "Failed to disconnect printer", err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "Printer disconnected successfully", nil)
}

// Status returns a printer's state
// @Summary Printer status
// @Tags Printers
// @Produce json
// @Param transport path string true "Transport" Enums(usb, ble, bluetooth, terminal)
// @Success 200 {object} utils.APIResponse{data=printer.Status}
// @Router /printers/{transport}/status [get]
func (h *PrinterHandler) Status(c *gin.Context) {
	transport, ok := h.transport(c)
	if !ok {
		return
	}

	status, err := h.printService.Status(transport)
	if err != nil {
		h.fail(c, "Failed to get printer status", err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "Printer status retrieved", status)
}

// SubmitJob prints a job
// @Summary Print a job
// @Tags Jobs
// @Accept json
// @Produce json
// @Param transport path string true "Transport" Enums(usb, ble, bluetooth, terminal)
// @Param request body service.JobRequest true "Print job"
// @Success 200 {object} utils.APIResponse{data=model.JobResult}
// @Failure 400 {object} utils.APIResponse "Invalid job"
// @Failure 409 {object} utils.APIResponse "Printer not connected"
// @Failure 422 {object} utils.APIResponse "Unsupported item or undecodable image"
// @Failure 502 {object} utils.APIResponse "Write failure"
// @Router /printers/{transport}/jobs [post]
func (h *PrinterHandler) SubmitJob(c *gin.Context) {
	transport, ok := h.transport(c)
	if !ok {
		return
	}

	var req service.JobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	result, err := h.printService.SubmitJob(c.Request.Context(), transport, req)
	if err != nil {
		if result != nil {
			h.failWith(c, "Print job failed", err, result)
			return
		}
		h.fail(c, "Print job failed", err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Print job completed", result)
}

// StartScan starts a background scan
// @Summary Start background scan
// @Tags Discovery
// @Produce json
// @Param transport path string true "Transport" Enums(ble)
// @Param name query string false "Name substring"
// @Success 202 {object} utils.APIResponse
// @Failure 422 {object} utils.APIResponse "Transport cannot scan in the background"
// @Router /printers/{transport}/scan/start [post]
func (h *PrinterHandler) StartScan(c *gin.Context) {
	transport, ok := h.transport(c)
	if !ok {
		return
	}
	filter, err := parseFilter(c)
	if err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid discovery filter", err)
		return
	}

	if err := h.printService.StartScan(transport, filter); err != nil {
		h.fail(c, "Failed to start scan", err)
		return
	}
	utils.SuccessResponse(c, http.StatusAccepted, "Background scan started", nil)
}

// StopScan stops a background scan
// @Summary Stop background scan
// @Tags Discovery
// @Produce json
// @Param transport path string true "Transport" Enums(ble)
// @Success 200 {object} utils.APIResponse
// @Router /printers/{transport}/scan/stop [post]
func (h *PrinterHandler) StopScan(c *gin.Context) {
	transport, ok := h.transport(c)
	if !ok {
		return
	}

	if err := h.printService.StopScan(transport); err != nil {
		h.fail(c, "Failed to stop scan", err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "Background scan stopped", nil)
}

// transport parses the :transport path parameter
func (h *PrinterHandler) transport(c *gin.Context) (model.ConnectionType, bool) {
	transport, err := model.ParseConnectionType(c.Param("transport"))
	if err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid transport", err)
		return "", false
	}
	return transport, true
}

// fail maps service errors onto responses
func (h *PrinterHandler) fail(c *gin.Context, message string, err error) {
	h.failWith(c, message, err, nil)
}

func (h *PrinterHandler) failWith(c *gin.Context, message string, err error, data interface{}) {
	switch {
	case errors.Is(err, service.ErrUnknownTransport):
		utils.ErrorResponse(c, http.StatusNotFound, "Transport not configured", err)
	case errors.Is(err, service.ErrInvalidJob):
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid print job", err)
	default:
		if utils.StatusForError(err) >= http.StatusInternalServerError {
			h.logger.Error(message, zap.String("path", c.FullPath()), zap.Error(err))
		}
		utils.PrinterErrorResponse(c, message, err, data)
	}
}

func parseFilter(c *gin.Context) (discovery.Filter, error) {
	filter := discovery.Filter{
		Name:        c.Query("name"),
		ServiceUUID: c.Query("service_uuid"),
	}

	if v := c.Query("vendor_id"); v != "" {
		// base 0 accepts 0x04b8 as well as 1208
		id, err := strconv.ParseUint(v, 0, 16)
		if err != nil {
			return filter, errors.New("vendor_id must be a 16-bit number")
		}
		filter.VendorID = uint16(id)
	}

	if d := c.Query("duration"); d != "" {
		duration, err := time.ParseDuration(d)
		if err != nil || duration < 0 {
			return filter, errors.New("duration must be a positive duration such as 3s")
		}
		filter.Duration = duration
	}
	return filter, nil
}
