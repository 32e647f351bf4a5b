package realtime

import (
	"encoding/json"

	"github.com/google/uuid"
)

// Wire event types exchanged with the realtime peer.
const (
	TypeSessionUpdate          = "session.update"
	TypeInputAudioAppend       = "input_audio_buffer.append"
	TypeInputAudioCommitted    = "input_audio_buffer.committed"
	TypeSpeechStarted          = "input_audio_buffer.speech_started"
	TypeSpeechStopped          = "input_audio_buffer.speech_stopped"
	TypeConversationItemCreate = "conversation.item.create"
	TypeResponseCreate         = "response.create"
	TypeResponseCancel         = "response.cancel"
	TypeResponseCreated        = "response.created"
	TypeResponseDone           = "response.done"
	TypeResponseTextDelta      = "response.text.delta"
	TypeResponseAudioDelta     = "response.audio.delta"
	TypeAudioTranscriptDelta   = "response.audio_transcript.delta"
	TypeFunctionCallArgsDelta  = "response.function_call_arguments.delta"
	TypeFunctionCallArgsDone   = "response.function_call_arguments.done"
	TypeInputTranscriptDelta   = "conversation.item.input_audio_transcription.delta"
	TypeInputTranscriptDone    = "conversation.item.input_audio_transcription.completed"
	TypeInputTranscriptFailed  = "conversation.item.input_audio_transcription.failed"
	TypeError                  = "error"
)

// ServerEvent is a single inbound event from the realtime peer.
//
// Events carry a flat superset of the per-type payload fields; which fields
// are populated depends on Type. Seq is assigned locally on receipt and is
// strictly increasing within a session.
type ServerEvent struct {
	Type    string `json:"type"`
	EventID string `json:"event_id,omitempty"`

	// Seq is the local arrival-order sequence number, not part of the wire
	// payload.
	Seq int64 `json:"-"`

	ItemID     string       `json:"item_id,omitempty"`
	CallID     string       `json:"call_id,omitempty"`
	Name       string       `json:"name,omitempty"`
	Arguments  string       `json:"arguments,omitempty"`
	Delta      string       `json:"delta,omitempty"`
	Transcript string       `json:"transcript,omitempty"`
	Error      *ErrorDetail `json:"error,omitempty"`
}

// ErrorDetail carries the peer-reported error payload of an "error" event.
type ErrorDetail struct {
	Type    string `json:"type,omitempty"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}

// ClientEvent is an outbound event for the realtime peer.
type ClientEvent interface {
	eventType() string
}

// SessionUpdateEvent configures the session. It must be the first outbound
// event; [Connect] sends it before handing the session to the caller.
type SessionUpdateEvent struct {
	Session sessionPayload `json:"session"`
}

func (SessionUpdateEvent) eventType() string { return TypeSessionUpdate }

// InputAudioAppendEvent appends a base64-encoded audio chunk to the input
// buffer.
type InputAudioAppendEvent struct {
	Audio string `json:"audio"`
}

func (InputAudioAppendEvent) eventType() string { return TypeInputAudioAppend }

// ConversationItemCreateEvent appends an item to the conversation history.
type ConversationItemCreateEvent struct {
	Item ConversationItem `json:"item"`
}

func (ConversationItemCreateEvent) eventType() string { return TypeConversationItemCreate }

// ResponseCreateEvent asks the peer to generate a response.
type ResponseCreateEvent struct {
	Response *ResponseOptions `json:"response,omitempty"`
}

func (ResponseCreateEvent) eventType() string { return TypeResponseCreate }

// ResponseCancelEvent cancels the in-flight response, if any.
type ResponseCancelEvent struct{}

func (ResponseCancelEvent) eventType() string { return TypeResponseCancel }

// ResponseOptions narrows a single response generation request.
type ResponseOptions struct {
	Modalities   []string `json:"modalities,omitempty"`
	Instructions string   `json:"instructions,omitempty"`
}

// ConversationItem is an append-only entry in the conversation history.
// Items are either role messages with content parts or tool outputs tagged
// with the call they respond to.
type ConversationItem struct {
	Type    string        `json:"type"`
	Role    string        `json:"role,omitempty"`
	Content []ContentPart `json:"content,omitempty"`

	// CallID and Output are set for "function_call_output" items only.
	CallID string `json:"call_id,omitempty"`
	Output string `json:"output,omitempty"`
}

// ContentPart is a single part of a conversation item.
type ContentPart struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

// NewUserTextItem builds a user message item with a single text part.
func NewUserTextItem(text string) ConversationItem {
	return ConversationItem{
		Type:    "message",
		Role:    "user",
		Content: []ContentPart{{Type: "input_text", Text: text}},
	}
}

// NewToolOutputItem builds a tool result item tagged with the originating
// call.
func NewToolOutputItem(callID, output string) ConversationItem {
	return ConversationItem{
		Type:   "function_call_output",
		CallID: callID,
		Output: output,
	}
}

// ToolDefinition is the wire form of a tool exposed to the peer through the
// session configuration.
type ToolDefinition struct {
	Type        string          `json:"type"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Parameters  json.RawMessage `json:"parameters,omitempty"`
}

func marshalClientEvent(event ClientEvent) ([]byte, error) {
	body, err := json.Marshal(event)
	if err != nil {
		return nil, err
	}

	envelope := map[string]json.RawMessage{}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, err
	}
	envelope["type"], _ = json.Marshal(event.eventType())
	envelope["event_id"], _ = json.Marshal(uuid.NewString())
	return json.Marshal(envelope)
}
