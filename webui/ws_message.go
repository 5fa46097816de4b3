package webui

import (
	"time"

	"pdf_summarizer/pdfprocessor"
)

// Message type constants for WebSocket communication.
const (
	// MessageTypeState carries a Processor state snapshot. It is sent on
	// connect and after every state change.
	MessageTypeState = "state"

	// MessageTypeError indicates a server-side error message.
	MessageTypeError = "error"
)

// WSMessage is the envelope for all WebSocket messages.
type WSMessage struct {
	// Type identifies the message kind (use MessageType* constants)
	Type string `json:"type"`

	// Timestamp is when the message was created
	Timestamp time.Time `json:"timestamp"`

	// Data contains the type-specific payload
	Data any `json:"data,omitempty"`
}

// NewWSMessage creates a message stamped with the current time.
func NewWSMessage(msgType string, data any) WSMessage {
	return WSMessage{
		Type:      msgType,
		Timestamp: time.Now(),
		Data:      data,
	}
}

// ErrorData contains error information sent to clients.
type ErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// NewStateMessage wraps a state snapshot.
func NewStateMessage(state pdfprocessor.State) WSMessage {
	return NewWSMessage(MessageTypeState, state)
}

// NewErrorMessage creates an error message.
func NewErrorMessage(code, message string) WSMessage {
	return NewWSMessage(MessageTypeError, ErrorData{Code: code, Message: message})
}
