// Package agent relays chat messages to the hosted conversational AI
// application and provides the client used for both hosted applications.
package agent

import (
	"fmt"
)

// ChatRequest is the body of POST /api/chat.
type ChatRequest struct {
	Message *string       `json:"message"`
	History []HistoryTurn `json:"history,omitempty"`
}

// HistoryTurn is one earlier exchange sent by the frontend. It is accepted
// for compatibility but not forwarded.
type HistoryTurn struct {
	User string `json:"user"`
	Bot  string `json:"bot"`
}

// ChatResponse is the body of a successful chat reply.
type ChatResponse struct {
	Success bool   `json:"success"`
	Reply   string `json:"reply"`
}

// Completion is a successful application response.
type Completion struct {
	Text      string
	RequestID string
	SessionID string
}

// CallError is a failed application call: transport failure, non-200
// status, or a response without output text.
type CallError struct {
	StatusCode int
	Code       string
	Message    string
	RequestID  string
	Err        error
}

func (e *CallError) Error() string {
	switch {
	case e.Err != nil:
		return fmt.Sprintf("application call failed: %v", e.Err)
	case e.Code != "":
		return fmt.Sprintf("application call failed: status=%d code=%s message=%s request_id=%s", e.StatusCode, e.Code, e.Message, e.RequestID)
	default:
		return fmt.Sprintf("application call failed: status=%d message=%s request_id=%s", e.StatusCode, e.Message, e.RequestID)
	}
}

func (e *CallError) Unwrap() error {
	return e.Err
}

// Reason is the short cause shown to users.
func (e *CallError) Reason() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return fmt.Sprintf("status %d", e.StatusCode)
}

// AppConfig identifies one hosted application.
type AppConfig struct {
	BaseURL string
	APIKey  string
	AppID   string
}
