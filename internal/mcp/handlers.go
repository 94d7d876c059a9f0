package mcp

import (
	"context"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/dailyaf/vaultcap/internal/capsule"
	"github.com/dailyaf/vaultcap/internal/errors"
	"github.com/dailyaf/vaultcap/internal/ops"
)

// Handlers holds dependencies for MCP tool handlers.
type Handlers struct {
	env *ops.Env
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(env *ops.Env) *Handlers {
	return &Handlers{env: env}
}

// Request types for each tool

// CatalogRequest represents the arguments for capsule_catalog.
type CatalogRequest struct {
	Source  string `json:"source,omitempty"`
	State   string `json:"state,omitempty"`
	Refresh bool   `json:"refresh,omitempty"`
}

// CapsuleRequest represents the arguments for capsule_install and capsule_remove.
type CapsuleRequest struct {
	ID string `json:"id"`
}

// UpdateRequest represents the arguments for capsule_update.
type UpdateRequest struct {
	ID    string `json:"id"`
	Force bool   `json:"force,omitempty"`
}

// StatusRequest represents the arguments for capsule_status.
type StatusRequest struct {
	ID       string `json:"id,omitempty"`
	Outdated bool   `json:"outdated,omitempty"`
}

// HistoryRequest represents the arguments for capsule_history.
type HistoryRequest struct {
	CapsuleID string `json:"capsule_id,omitempty"`
	Limit     int    `json:"limit,omitempty"`
	Offset    int    `json:"offset,omitempty"`
}

// ModuleMoveRequest represents the arguments for module_move.
type ModuleMoveRequest struct {
	ID        string `json:"id"`
	Direction string `json:"direction"`
}

// ActivityListRequest represents the arguments for activity_list.
type ActivityListRequest struct {
	Type string `json:"type,omitempty"`
}

// Handler implementations

// HandleCatalog handles the capsule_catalog tool call.
func (h *Handlers) HandleCatalog(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[CatalogRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	if input.Refresh {
		if _, err := ops.Refresh(ctx, h.env); err != nil {
			return errorResult(err), nil
		}
	}

	result, err := ops.Catalog(ctx, h.env, ops.CatalogInput{
		Source: input.Source,
		State:  capsule.InstallState(input.State),
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleInstall handles the capsule_install tool call.
func (h *Handlers) HandleInstall(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[CapsuleRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Install(ctx, h.env, ops.InstallInput{ID: input.ID})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleUpdate handles the capsule_update tool call.
func (h *Handlers) HandleUpdate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[UpdateRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Update(ctx, h.env, ops.InstallInput{ID: input.ID, Force: input.Force})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleRemove handles the capsule_remove tool call.
func (h *Handlers) HandleRemove(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[CapsuleRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Remove(ctx, h.env, ops.RemoveInput{ID: input.ID})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleStatus handles the capsule_status tool call.
func (h *Handlers) HandleStatus(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[StatusRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.ListInstalled(ctx, h.env, ops.InstalledInput{
		ID:       input.ID,
		Outdated: input.Outdated,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleHistory handles the capsule_history tool call.
func (h *Handlers) HandleHistory(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[HistoryRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.History(ctx, h.env, ops.HistoryInput{
		CapsuleID: input.CapsuleID,
		Limit:     input.Limit,
		Offset:    input.Offset,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleModuleList handles the module_list tool call.
func (h *Handlers) HandleModuleList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	result, err := ops.ListModules(h.env)
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleModuleMove handles the module_move tool call.
func (h *Handlers) HandleModuleMove(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ModuleMoveRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.MoveModule(h.env, ops.MoveModuleInput{
		ID:        input.ID,
		Direction: input.Direction,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleActivityList handles the activity_list tool call.
func (h *Handlers) HandleActivityList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ActivityListRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.ListActivities(h.env, ops.ActivitiesInput{
		Type: capsule.ActivityType(input.Type),
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// Result helpers

// errorResult creates an MCP error result from any error.
// Uses IsError: true so MCP clients recognize failures properly.
// Note: Internal error details are not exposed to prevent leaking sensitive info.
func errorResult(err error) *mcp.CallToolResult {
	ve := errors.As(err)

	var errorObj map[string]any
	if ve.Code == errors.ErrInternal {
		errorObj = map[string]any{
			"code":    errors.ErrInternal,
			"message": "an internal error occurred",
			"status":  500,
		}
	} else {
		message := ve.Message
		// Keep wrapper context such as "files[2]: ..." when the error was wrapped.
		if err != error(ve) {
			message = err.Error()
		}
		errorObj = map[string]any{
			"code":      ve.Code,
			"message":   message,
			"status":    ve.Status,
			"retryable": ve.Retryable(),
		}
		if ve.Details != nil {
			errorObj["details"] = ve.Details
		}
	}

	content, _ := json.Marshal(map[string]any{"error": errorObj})
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: string(content)}},
		IsError: true,
	}
}

// successResult creates an MCP success result from any data.
func successResult(data any) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultJSON(data)
}
