// Package mcp exposes the recipe index to AI clients over the Model
// Context Protocol.
package mcp

import (
	"context"
	"errors"
	"fmt"

	pterrors "github.com/Aman-CERP/pantry/internal/errors"
)

// Custom MCP error codes.
const (
	// ErrCodeIndexUnavailable indicates the index worker has stopped.
	ErrCodeIndexUnavailable = -32001

	// ErrCodeTimeout indicates the request timed out.
	ErrCodeTimeout = -32003

	// ErrCodeRecipeNotFound indicates no recipe has the requested slug.
	ErrCodeRecipeNotFound = -32004

	// Standard JSON-RPC error codes.
	ErrCodeInvalidRequest = -32600
	ErrCodeMethodNotFound = -32601
	ErrCodeInvalidParams  = -32602
	ErrCodeInternalError  = -32603
)

// MCPError represents an MCP protocol error with code and message.
type MCPError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface.
func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

// MapError converts internal errors to MCP errors.
func MapError(err error) *MCPError {
	if err == nil {
		return nil
	}

	var mcpErr *MCPError
	if errors.As(err, &mcpErr) {
		return mcpErr
	}

	if pe, ok := pterrors.As(err); ok {
		return mapPantryError(pe)
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return &MCPError{Code: ErrCodeTimeout, Message: "Request timed out."}
	case errors.Is(err, context.Canceled):
		return &MCPError{Code: ErrCodeTimeout, Message: "Request was canceled."}
	default:
		return &MCPError{Code: ErrCodeInternalError, Message: "Internal server error."}
	}
}

// NewInvalidParamsError creates an error for invalid parameters with a custom message.
func NewInvalidParamsError(msg string) *MCPError {
	return &MCPError{Code: ErrCodeInvalidParams, Message: msg}
}

// NewMethodNotFoundError creates an error for unknown tools.
func NewMethodNotFoundError(name string) *MCPError {
	return &MCPError{
		Code:    ErrCodeMethodNotFound,
		Message: fmt.Sprintf("Tool '%s' not found.", name),
	}
}

// NewRecipeNotFoundError creates an error for an unknown slug.
func NewRecipeNotFoundError(slug string) *MCPError {
	return &MCPError{
		Code:    ErrCodeRecipeNotFound,
		Message: fmt.Sprintf("No recipe with slug '%s'.", slug),
	}
}

func mapPantryError(pe *pterrors.PantryError) *MCPError {
	message := pe.Message
	if pe.Suggestion != "" {
		message = fmt.Sprintf("%s %s", pe.Message, pe.Suggestion)
	}

	switch pe.Code {
	case pterrors.ErrCodeShuttingDown:
		return &MCPError{Code: ErrCodeIndexUnavailable, Message: "Search index is unavailable."}
	case pterrors.ErrCodeIndexTimeout:
		return &MCPError{Code: ErrCodeTimeout, Message: message}
	case pterrors.ErrCodeNotFound:
		return &MCPError{Code: ErrCodeRecipeNotFound, Message: message}
	}

	switch pe.Category {
	case pterrors.CategoryValidation:
		return &MCPError{Code: ErrCodeInvalidParams, Message: message}
	case pterrors.CategoryNetwork:
		return &MCPError{Code: ErrCodeTimeout, Message: message}
	default:
		return &MCPError{Code: ErrCodeInternalError, Message: message}
	}
}
