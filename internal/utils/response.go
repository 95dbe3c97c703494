// internal/utils/response.go
package utils

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"printer-service/internal/model"
)

// APIResponse represents standard API response structure
type APIResponse struct {
	Success   bool        `json:"success"`
	Message   string      `json:"message"`
	Data      interface{} `json:"data,omitempty"`
	Error     *APIError   `json:"error,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	RequestID string      `json:"request_id,omitempty"`
}

// APIError represents error information
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// SuccessResponse sends a successful response
func SuccessResponse(c *gin.Context, statusCode int, message string, data interface{}) {
	response := APIResponse{
		Success:   true,
		Message:   message,
		Data:      data,
		Timestamp: time.Now(),
		RequestID: getRequestID(c),
	}

	c.JSON(statusCode, response)
}

// ErrorResponse sends an error response
func ErrorResponse(c *gin.Context, statusCode int, message string, err error) {
	apiError := &APIError{
		Code:    getErrorCode(statusCode),
		Message: message,
	}

	if err != nil {
		apiError.Details = err.Error()
	}

	response := APIResponse{
		Success:   false,
		Message:   message,
		Error:     apiError,
		Timestamp: time.Now(),
		RequestID: getRequestID(c),
	}

	c.JSON(statusCode, response)
}

// PrinterErrorResponse maps a printer error kind onto an HTTP status and
// sends it. Errors without a kind become 500. data is optional.
func PrinterErrorResponse(c *gin.Context, message string, err error, data interface{}) {
	statusCode := StatusForError(err)
	apiError := &APIError{
		Code:    getErrorCode(statusCode),
		Message: message,
	}

	if kind := model.KindOf(err); kind != "" {
		apiError.Code = kindCode(kind)
	}
	if err != nil {
		apiError.Details = err.Error()
	}

	var pe *model.PrinterError
	response := APIResponse{
		Success:   false,
		Message:   message,
		Error:     apiError,
		Timestamp: time.Now(),
		RequestID: getRequestID(c),
		Data:      data,
	}
	if data == nil && errors.As(err, &pe) && pe.Retryable {
		response.Data = gin.H{"retryable": true}
	}

	c.JSON(statusCode, response)
}

// StatusForError returns the HTTP status used for err
func StatusForError(err error) int {
	switch model.KindOf(err) {
	case model.ErrDeviceNotFound:
		return http.StatusNotFound
	case model.ErrNotConnected:
		return http.StatusConflict
	case model.ErrUnsupportedFeature, model.ErrDecodeFailure:
		return http.StatusUnprocessableEntity
	case model.ErrAdapterUnavailable:
		return http.StatusServiceUnavailable
	case model.ErrWriteFailure, model.ErrConnectFailure, model.ErrScanFailure:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func kindCode(kind model.ErrorKind) string {
	switch kind {
	case model.ErrAdapterUnavailable:
		return "ADAPTER_UNAVAILABLE"
	case model.ErrScanFailure:
		return "SCAN_FAILURE"
	case model.ErrDeviceNotFound:
		return "DEVICE_NOT_FOUND"
	case model.ErrConnectFailure:
		return "CONNECT_FAILURE"
	case model.ErrNotConnected:
		return "NOT_CONNECTED"
	case model.ErrWriteFailure:
		return "WRITE_FAILURE"
	case model.ErrUnsupportedFeature:
		return "UNSUPPORTED_FEATURE"
	case model.ErrDecodeFailure:
		return "DECODE_FAILURE"
	default:
		return "UNKNOWN_ERROR"
	}
}

// ValidationErrorResponse sends validation error response
func ValidationErrorResponse(c *gin.Context, errors map[string]string) {
	apiError := &APIError{
		Code:    "VALIDATION_ERROR",
		Message: "Request validation failed",
	}

	response := APIResponse{
		Success:   false,
		Message:   "Validation failed",
		Error:     apiError,
		Data:      gin.H{"validation_errors": errors},
		Timestamp: time.Now(),
		RequestID: getRequestID(c),
	}

	c.JSON(http.StatusBadRequest, response)
}

// getRequestID extracts request ID from context
func getRequestID(c *gin.Context) string {
	return c.GetString("request_id")
}

// getErrorCode returns error code based on HTTP status
func getErrorCode(statusCode int) string {
	switch statusCode {
	case http.StatusBadRequest:
		return "BAD_REQUEST"
	case http.StatusUnauthorized:
		return "UNAUTHORIZED"
	case http.StatusForbidden:
		return "FORBIDDEN"
	case http.StatusNotFound:
		return "NOT_FOUND"
	case http.StatusConflict:
		return "CONFLICT"
	case http.StatusUnprocessableEntity:
		return "UNPROCESSABLE_ENTITY"
	case http.StatusTooManyRequests:
		return "RATE_LIMIT_EXCEEDED"
	case http.StatusInternalServerError:
		return "INTERNAL_SERVER_ERROR"
	case http.StatusBadGateway:
		return "BAD_GATEWAY"
	case http.StatusServiceUnavailable:
		return "SERVICE_UNAVAILABLE"
	default:
		return "UNKNOWN_ERROR"
	}
}
