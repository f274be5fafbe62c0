package mcp

import (
	"context"
	"fmt"
	"time"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/okume/actguard/internal/model"
	"github.com/okume/actguard/internal/risk"
)

// --- Input/Output types ---

// DispatchInput defines parameters for the actguard_dispatch tool.
type DispatchInput struct {
	Action  string         `json:"action" jsonschema:"action type (solve-captcha/submit-form/sync-session/...)"`
	Payload map[string]any `json:"payload,omitempty" jsonschema:"action payload"`
}

// DispatchOutput mirrors the dispatcher response.
type DispatchOutput struct {
	Success bool           `json:"success"`
	Data    map[string]any `json:"data,omitempty"`
	Error   string         `json:"error,omitempty"`
	Kind    string         `json:"kind,omitempty"`
}

// CheckInput defines parameters for the actguard_check tool.
type CheckInput struct {
	Action string `json:"action" jsonschema:"action type to check"`
	Level  string `json:"level,omitempty" jsonschema:"automation level override (manual/assisted/automated)"`
}

// CheckOutput contains the gate prediction.
type CheckOutput struct {
	Action       string `json:"action"`
	Level        string `json:"level"`
	RequiredMode string `json:"required_mode"`
	CurrentMode  string `json:"current_mode"`
	Decision     string `json:"decision"`
	Reason       string `json:"reason"`
}

// RiskInput is empty - no parameters needed.
type RiskInput struct{}

// RiskOutput is the live risk report.
type RiskOutput struct {
	Score         int                 `json:"score"`
	Level         string              `json:"level"`
	Contributions []risk.Contribution `json:"contributions,omitempty"`
}

// PendingInput is empty - no parameters needed.
type PendingInput struct{}

// PendingOutput lists waiting confirmation requests.
type PendingOutput struct {
	Requests []PendingItem `json:"requests"`
}

// PendingItem describes a single confirmation request.
type PendingItem struct {
	Key       string `json:"key"`
	Action    string `json:"action"`
	Message   string `json:"message"`
	Status    string `json:"status"`
	CreatedAt string `json:"created_at"`
	ExpiresAt string `json:"expires_at,omitempty"`
}

// ResolveInput defines parameters for actguard_approve and actguard_deny.
type ResolveInput struct {
	Key string `json:"key" jsonschema:"confirmation request key"`
}

// ResolveOutput confirms the resolution.
type ResolveOutput struct {
	Key    string `json:"key"`
	Status string `json:"status"`
}

// --- Handlers ---

func (s *Server) handleDispatch(ctx context.Context, req *mcpsdk.CallToolRequest, input DispatchInput) (*mcpsdk.CallToolResult, DispatchOutput, error) {
	resp := s.dispatcher.Dispatch(ctx, model.Request{
		Type:    model.ActionType(input.Action),
		Payload: input.Payload,
	})

	out := DispatchOutput{
		Success: resp.Success,
		Data:    resp.Data,
		Error:   resp.Error,
		Kind:    resp.Kind,
	}
	if !resp.Success {
		return &mcpsdk.CallToolResult{IsError: true}, out, nil
	}
	return nil, out, nil
}

func (s *Server) handleCheck(ctx context.Context, req *mcpsdk.CallToolRequest, input CheckInput) (*mcpsdk.CallToolResult, CheckOutput, error) {
	t, ok := model.ParseActionType(input.Action)
	if !ok {
		return nil, CheckOutput{}, fmt.Errorf("unknown action type %q", input.Action)
	}

	res := s.dispatcher.Check(t, input.Level)
	return nil, CheckOutput{
		Action:       string(res.Action),
		Level:        string(res.Level),
		RequiredMode: string(res.RequiredMode),
		CurrentMode:  string(res.CurrentMode),
		Decision:     string(res.Decision),
		Reason:       res.Reason,
	}, nil
}

func (s *Server) handleRisk(ctx context.Context, req *mcpsdk.CallToolRequest, input RiskInput) (*mcpsdk.CallToolResult, RiskOutput, error) {
	report := s.dispatcher.Risk()
	return nil, RiskOutput{
		Score:         report.Score,
		Level:         string(report.Level),
		Contributions: report.Contributions,
	}, nil
}

func (s *Server) handlePending(ctx context.Context, req *mcpsdk.CallToolRequest, input PendingInput) (*mcpsdk.CallToolResult, PendingOutput, error) {
	out := PendingOutput{Requests: []PendingItem{}}
	if s.approvals == nil {
		return nil, out, nil
	}

	pending, err := s.approvals.List()
	if err != nil {
		return nil, out, fmt.Errorf("list pending: %w", err)
	}
	for _, p := range pending {
		item := PendingItem{
			Key:       p.Key,
			Action:    p.Action,
			Message:   p.Message,
			Status:    string(p.Status),
			CreatedAt: p.CreatedAt.UTC().Format(time.RFC3339),
		}
		if p.ExpiresAt != nil {
			item.ExpiresAt = p.ExpiresAt.UTC().Format(time.RFC3339)
		}
		out.Requests = append(out.Requests, item)
	}
	return nil, out, nil
}

func (s *Server) handleApprove(ctx context.Context, req *mcpsdk.CallToolRequest, input ResolveInput) (*mcpsdk.CallToolResult, ResolveOutput, error) {
	if s.approvals == nil {
		return nil, ResolveOutput{}, fmt.Errorf("no approval store configured")
	}
	if err := s.approvals.Approve(input.Key); err != nil {
		return nil, ResolveOutput{}, err
	}
	return nil, ResolveOutput{Key: input.Key, Status: "approved"}, nil
}

func (s *Server) handleDeny(ctx context.Context, req *mcpsdk.CallToolRequest, input ResolveInput) (*mcpsdk.CallToolResult, ResolveOutput, error) {
	if s.approvals == nil {
		return nil, ResolveOutput{}, fmt.Errorf("no approval store configured")
	}
	if err := s.approvals.Deny(input.Key); err != nil {
		return nil, ResolveOutput{}, err
	}
	return nil, ResolveOutput{Key: input.Key, Status: "denied"}, nil
}
