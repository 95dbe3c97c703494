// internal/handler/websocket_handler.go
package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"printer-service/internal/model"
	"printer-service/internal/service"
	"printer-service/internal/utils"
)

const (
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second
	writeWait  = 10 * time.Second
)

// WebSocketHandler streams printer events and accepts printer commands
// over WebSocket connections
type WebSocketHandler struct {
	upgrader     websocket.Upgrader
	connections  *ConnectionManager
	printService *service.PrintService
	logger       *utils.ServiceLogger
	eventBus     *EventBus
}

// NewWebSocketHandler creates a new WebSocket handler. Every event
// published on eventBus is forwarded to the interested clients.
func NewWebSocketHandler(
	printService *service.PrintService,
	eventBus *EventBus,
	allowedOrigins []string,
	logger *zap.Logger,
) *WebSocketHandler {
	handler := &WebSocketHandler{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
		connections:  NewConnectionManager(),
		printService: printService,
		logger:       utils.NewServiceLogger(logger, "websocket-handler"),
		eventBus:     eventBus,
	}

	go handler.forwardEvents(eventBus.SubscribeAll())

	return handler
}

func originChecker(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		for _, o := range allowed {
			if o == "*" || strings.EqualFold(o, origin) {
				return true
			}
		}
		return false
	}
}

// RegisterRoutes registers WebSocket routes
func (h *WebSocketHandler) RegisterRoutes(router *gin.RouterGroup) {
	// Printer events, optionally narrowed with ?transport= and ?types=
	router.GET("/events", h.HandleEventConnection)

	// One printer: initial status plus commands
	router.GET("/printers/:transport", h.HandlePrinterConnection)
}

// HandleEventConnection handles event stream WebSocket connections
func (h *WebSocketHandler) HandleEventConnection(c *gin.Context) {
	var transport model.ConnectionType
	if t := c.Query("transport"); t != "" {
		parsed, err := model.ParseConnectionType(t)
		if err != nil {
			utils.ErrorResponse(c, http.StatusBadRequest, "Invalid transport", err)
			return
		}
		transport = parsed
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("Failed to upgrade WebSocket connection", zap.Error(err))
		return
	}

	client := h.newClient(c, conn, "events", transport)
	for _, topic := range strings.Split(c.Query("types"), ",") {
		if topic = strings.TrimSpace(topic); topic != "" {
			client.subscribe(strings.ToUpper(topic))
		}
	}

	if !h.connections.Register(client) {
		_ = conn.Close()
		return
	}
	h.logger.Info("Event WebSocket client connected",
		zap.String("client_id", client.ID),
		zap.String("transport", string(transport)),
		zap.String("remote_addr", client.RemoteAddr),
	)

	go h.handleClientRead(client)
	go h.handleClientWrite(client)
}

// HandlePrinterConnection handles printer-specific WebSocket connections
func (h *WebSocketHandler) HandlePrinterConnection(c *gin.Context) {
	transport, err := model.ParseConnectionType(c.Param("transport"))
	if err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid transport", err)
		return
	}
	if _, err := h.printService.Printer(transport); err != nil {
		utils.ErrorResponse(c, http.StatusNotFound, "Transport not configured", err)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("Failed to upgrade WebSocket connection", zap.Error(err))
		return
	}

	client := h.newClient(c, conn, "printer", transport)
	if !h.connections.Register(client) {
		_ = conn.Close()
		return
	}
	h.logger.Info("Printer WebSocket client connected",
		zap.String("client_id", client.ID),
		zap.String("transport", string(transport)),
		zap.String("remote_addr", client.RemoteAddr),
	)

	h.sendInitialStatus(client)

	go h.handleClientRead(client)
	go h.handleClientWrite(client)
}

func (h *WebSocketHandler) newClient(c *gin.Context, conn *websocket.Conn, clientType string, transport model.ConnectionType) *Client {
	return &Client{
		ID:          uuid.New().String(),
		Connection:  conn,
		Send:        make(chan []byte, 256),
		Type:        clientType,
		Transport:   transport,
		UserAgent:   c.Request.UserAgent(),
		RemoteAddr:  c.Request.RemoteAddr,
		ConnectedAt: time.Now(),
	}
}

// handleClientRead handles reading messages from WebSocket client
func (h *WebSocketHandler) handleClientRead(client *Client) {
	defer func() {
		h.connections.Unregister(client)
		client.Connection.Close()
	}()

	// Set read deadline and pong handler
	client.Connection.SetReadDeadline(time.Now().Add(pongWait))
	client.Connection.SetPongHandler(func(string) error {
		client.Connection.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, messageBytes, err := client.Connection.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.logger.Error("WebSocket read error",
					zap.Error(err),
					zap.String("client_id", client.ID),
				)
			}
			break
		}

		var message WebSocketMessage
		if err := json.Unmarshal(messageBytes, &message); err != nil {
			h.logger.Warn("Failed to parse WebSocket message",
				zap.Error(err),
				zap.String("client_id", client.ID),
			)
			h.sendError(client, "", "invalid message")
			continue
		}

		h.handleClientMessage(client, &message)
	}
}

// handleClientWrite handles writing messages to WebSocket client
func (h *WebSocketHandler) handleClientWrite(client *Client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		client.Connection.Close()
	}()

	for {
		select {
		case message, ok := <-client.Send:
			client.Connection.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				client.Connection.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := client.Connection.WriteMessage(websocket.TextMessage, message); err != nil {
				h.logger.Error("WebSocket write error",
					zap.Error(err),
					zap.String("client_id", client.ID),
				)
				return
			}

		case <-ticker.C:
			client.Connection.SetWriteDeadline(time.Now().Add(writeWait))
			if err := client.Connection.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleClientMessage handles incoming client messages
func (h *WebSocketHandler) handleClientMessage(client *Client, message *WebSocketMessage) {
	switch message.Type {
	case "subscribe":
		if topic, ok := messageTopic(message); ok {
			client.subscribe(topic)
			h.sendMessage(client, &WebSocketMessage{
				Type:      "subscription_confirmed",
				Data:      map[string]interface{}{"topic": topic},
				Timestamp: time.Now(),
				RequestID: message.RequestID,
			})
		}
	case "unsubscribe":
		if topic, ok := messageTopic(message); ok {
			client.unsubscribe(topic)
		}
	case "printer_command":
		h.handlePrinterCommand(client, message)
	case "ping":
		h.sendMessage(client, &WebSocketMessage{
			Type:      "pong",
			Timestamp: time.Now(),
			RequestID: message.RequestID,
		})
	default:
		h.logger.Warn("Unknown message type",
			zap.String("type", message.Type),
			zap.String("client_id", client.ID),
		)
		h.sendError(client, message.RequestID, fmt.Sprintf("unknown message type: %s", message.Type))
	}
}

func messageTopic(message *WebSocketMessage) (string, bool) {
	data, ok := message.Data.(map[string]interface{})
	if !ok {
		return "", false
	}
	topic, ok := data["topic"].(string)
	if !ok || topic == "" {
		return "", false
	}
	return strings.ToUpper(topic), true
}

// handlePrinterCommand handles printer command messages
func (h *WebSocketHandler) handlePrinterCommand(client *Client, message *WebSocketMessage) {
	if client.Type != "printer" {
		h.sendError(client, message.RequestID, "printer_command only available on printer connections")
		return
	}

	// Re-decode the payload into a typed command
	raw, err := json.Marshal(message.Data)
	if err != nil {
		h.sendError(client, message.RequestID, "invalid command data")
		return
	}
	var cmd printerCommand
	if err := json.Unmarshal(raw, &cmd); err != nil || cmd.Command == "" {
		h.sendError(client, message.RequestID, "command is required")
		return
	}

	go h.executePrinterCommand(client, message.RequestID, cmd)
}

type printerCommand struct {
	Command string                 `json:"command"`
	Connect service.ConnectRequest `json:"connect"`
	Job     service.JobRequest     `json:"job"`
}

// executePrinterCommand executes a printer command
func (h *WebSocketHandler) executePrinterCommand(client *Client, requestID string, cmd printerCommand) {
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	var err error
	var result interface{}

	switch cmd.Command {
	case "connect":
		result, err = h.printService.Connect(ctx, client.Transport, cmd.Connect)
	case "disconnect":
		err = h.printService.Disconnect(ctx, client.Transport)
		result = map[string]interface{}{"disconnected": err == nil}
	case "status":
		result, err = h.printService.Status(client.Transport)
	case "print":
		result, err = h.printService.SubmitJob(ctx, client.Transport, cmd.Job)
	default:
		h.sendError(client, requestID, fmt.Sprintf("unknown command: %s", cmd.Command))
		return
	}

	data := map[string]interface{}{
		"command": cmd.Command,
		"success": err == nil,
		"result":  result,
	}
	if err != nil {
		data["error"] = err.Error()
		if kind := model.KindOf(err); kind != "" {
			data["error_kind"] = kind
		}
	}

	h.sendMessage(client, &WebSocketMessage{
		Type:      "command_response",
		Data:      data,
		Timestamp: time.Now(),
		RequestID: requestID,
	})
}

// sendInitialStatus sends the printer status to a new client
func (h *WebSocketHandler) sendInitialStatus(client *Client) {
	status, err := h.printService.Status(client.Transport)
	if err != nil {
		h.sendError(client, "", fmt.Sprintf("failed to get status: %v", err))
		return
	}

	h.sendMessage(client, &WebSocketMessage{
		Type:      "initial_status",
		Data:      status,
		Timestamp: time.Now(),
	})
}

// sendMessage sends a message to a client
func (h *WebSocketHandler) sendMessage(client *Client, message *WebSocketMessage) {
	messageBytes, err := json.Marshal(message)
	if err != nil {
		h.logger.Error("Failed to marshal WebSocket message", zap.Error(err))
		return
	}

	if !h.connections.SendTo(client, messageBytes) {
		h.logger.Warn("Client gone or send channel full, dropping message",
			zap.String("client_id", client.ID),
		)
	}
}

// sendError sends an error message to a client
func (h *WebSocketHandler) sendError(client *Client, requestID, errorMsg string) {
	h.sendMessage(client, &WebSocketMessage{
		Type:      "error",
		Data:      map[string]interface{}{"error": errorMsg},
		Timestamp: time.Now(),
		RequestID: requestID,
	})
}

// forwardEvents broadcasts bus events until the bus stops
func (h *WebSocketHandler) forwardEvents(events <-chan model.PrinterEvent) {
	for event := range events {
		h.BroadcastEvent(event)
	}
}

// BroadcastEvent sends event to every interested client
func (h *WebSocketHandler) BroadcastEvent(event model.PrinterEvent) {
	messageBytes, err := json.Marshal(&WebSocketMessage{
		Type:      "printer_event",
		Data:      event,
		Timestamp: time.Now(),
	})
	if err != nil {
		h.logger.Error("Failed to marshal broadcast message", zap.Error(err))
		return
	}

	if dropped := h.connections.Broadcast(event, messageBytes); dropped > 0 {
		h.logger.Warn("Client send channel full during broadcast",
			zap.String("event_type", string(event.EventType)),
			zap.Int("dropped", dropped),
		)
	}
}

// GetConnectionStats returns connection statistics
func (h *WebSocketHandler) GetConnectionStats() *ConnectionStats {
	return h.connections.GetStats()
}

// Close disconnects every client
func (h *WebSocketHandler) Close() {
	h.connections.Close()
}
