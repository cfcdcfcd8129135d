package mcp

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	pterrors "github.com/Aman-CERP/pantry/internal/errors"
	"github.com/Aman-CERP/pantry/internal/search"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
	}{
		{"shutting down", search.ErrShuttingDown, ErrCodeIndexUnavailable},
		{"wrapped shutting down", fmt.Errorf("search: %w", search.ErrShuttingDown), ErrCodeIndexUnavailable},
		{"protocol", search.ErrProtocol, ErrCodeInternalError},
		{"index timeout", pterrors.New(pterrors.ErrCodeIndexTimeout, "busy", context.DeadlineExceeded), ErrCodeTimeout},
		{"not found", pterrors.New(pterrors.ErrCodeNotFound, "gone", nil), ErrCodeRecipeNotFound},
		{"validation", pterrors.New(pterrors.ErrCodeInvalidInput, "bad page", nil), ErrCodeInvalidParams},
		{"network", pterrors.New(pterrors.ErrCodeNetworkTimeout, "slow", nil), ErrCodeTimeout},
		{"deadline", context.DeadlineExceeded, ErrCodeTimeout},
		{"canceled", context.Canceled, ErrCodeTimeout},
		{"unknown", errors.New("boom"), ErrCodeInternalError},
		{"already mapped", NewInvalidParamsError("x"), ErrCodeInvalidParams},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MapError(tt.err)
			assert.Equal(t, tt.code, got.Code)
			assert.NotEmpty(t, got.Message)
		})
	}
}

func TestMapError_Nil(t *testing.T) {
	assert.Nil(t, MapError(nil))
}

func TestMapError_IncludesSuggestion(t *testing.T) {
	err := pterrors.New(pterrors.ErrCodeInvalidQuery, "bad query", nil).WithSuggestion("Drop the quote.")

	got := MapError(err)

	assert.Equal(t, "bad query Drop the quote.", got.Message)
}

func TestMCPError_Error(t *testing.T) {
	err := NewRecipeNotFoundError("soup")

	assert.Equal(t, "MCP error -32004: No recipe with slug 'soup'.", err.Error())
}
