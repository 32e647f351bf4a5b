package orchestration

// Role tags streamed text with its speaker.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Sink receives conversation output for rendering. It is consumed, not
// owned: the core never constructs one. Implementations must tolerate calls
// from multiple goroutines and should return quickly; the dispatcher calls
// them inline on the event path.
type Sink interface {
	// AppendText streams a text delta attributed to role.
	AppendText(role Role, text string)
	// AppendAudioChunk delivers a decoded output audio chunk.
	AppendAudioChunk(audio []byte)
	// SetStatus surfaces a short status line.
	SetStatus(status string)
	// Interrupt drops queued audio playback after a barge-in.
	Interrupt()
}

// NopSink discards everything.
type NopSink struct{}

func (NopSink) AppendText(Role, string) {}
func (NopSink) AppendAudioChunk([]byte) {}
func (NopSink) SetStatus(string)        {}
func (NopSink) Interrupt()              {}
