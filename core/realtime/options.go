package realtime

// Modality selects a response channel the peer may use.
type Modality string

const (
	ModalityText  Modality = "text"
	ModalityAudio Modality = "audio"
)

// AudioFormat names a fixed-width PCM encoding understood by the peer.
type AudioFormat string

const (
	AudioFormatPCM16    AudioFormat = "pcm16"
	AudioFormatG711ULaw AudioFormat = "g711_ulaw"
	AudioFormatG711ALaw AudioFormat = "g711_alaw"
)

// TranscriptionConfig selects the model transcribing user audio.
type TranscriptionConfig struct {
	Model    string `json:"model"`
	Language string `json:"language,omitempty"`
}

// TurnDetectionConfig tunes the peer's server-side voice activity detection.
type TurnDetectionConfig struct {
	Type              string  `json:"type"`
	Threshold         float64 `json:"threshold,omitempty"`
	PrefixPaddingMs   int     `json:"prefix_padding_ms,omitempty"`
	SilenceDurationMs int     `json:"silence_duration_ms,omitempty"`
}

// Config is the immutable session configuration. It is sent to the peer as
// the first outbound event and cannot change for the lifetime of the session.
type Config struct {
	Modalities        []Modality
	Instructions      string
	Voice             string
	InputAudioFormat  AudioFormat
	OutputAudioFormat AudioFormat
	Transcription     *TranscriptionConfig
	TurnDetection     *TurnDetectionConfig
	Tools             []ToolDefinition
}

// NewConfig builds a session configuration with text+audio modalities, pcm16
// audio both ways, and server VAD turn detection as defaults.
func NewConfig(opts ...ConfigOption) Config {
	cfg := Config{
		Modalities:        []Modality{ModalityText, ModalityAudio},
		InputAudioFormat:  AudioFormatPCM16,
		OutputAudioFormat: AudioFormatPCM16,
		TurnDetection: &TurnDetectionConfig{
			Type:              "server_vad",
			Threshold:         0.5,
			PrefixPaddingMs:   300,
			SilenceDurationMs: 500,
		},
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

type ConfigOption func(*Config)

func WithModalities(modalities ...Modality) ConfigOption {
	return func(cfg *Config) { cfg.Modalities = modalities }
}

func WithInstructions(instructions string) ConfigOption {
	return func(cfg *Config) { cfg.Instructions = instructions }
}

// WithVoice selects the output voice by its opaque id.
func WithVoice(voice string) ConfigOption {
	return func(cfg *Config) { cfg.Voice = voice }
}

func WithInputAudioFormat(format AudioFormat) ConfigOption {
	return func(cfg *Config) { cfg.InputAudioFormat = format }
}

func WithOutputAudioFormat(format AudioFormat) ConfigOption {
	return func(cfg *Config) { cfg.OutputAudioFormat = format }
}

// WithTranscription enables transcription of user audio with the given model
// and optional language hint.
func WithTranscription(model, language string) ConfigOption {
	return func(cfg *Config) {
		cfg.Transcription = &TranscriptionConfig{Model: model, Language: language}
	}
}

// WithTurnDetection replaces the default server VAD parameters. The threshold
// is clamped to [0, 1] by the peer; values outside that range are rejected at
// configuration time by the peer's error event, not locally.
func WithTurnDetection(detection TurnDetectionConfig) ConfigOption {
	return func(cfg *Config) { cfg.TurnDetection = &detection }
}

// WithTools exposes the given tool definitions to the peer.
func WithTools(tools ...ToolDefinition) ConfigOption {
	return func(cfg *Config) { cfg.Tools = append(cfg.Tools, tools...) }
}

// sessionPayload is the wire form of Config inside a session.update event.
type sessionPayload struct {
	Modalities        []Modality           `json:"modalities,omitempty"`
	Instructions      string               `json:"instructions,omitempty"`
	Voice             string               `json:"voice,omitempty"`
	InputAudioFormat  AudioFormat          `json:"input_audio_format,omitempty"`
	OutputAudioFormat AudioFormat          `json:"output_audio_format,omitempty"`
	Transcription     *TranscriptionConfig `json:"input_audio_transcription,omitempty"`
	TurnDetection     *TurnDetectionConfig `json:"turn_detection,omitempty"`
	Tools             []ToolDefinition     `json:"tools,omitempty"`
	ToolChoice        string               `json:"tool_choice,omitempty"`
}

func (cfg Config) payload() sessionPayload {
	payload := sessionPayload{
		Modalities:        cfg.Modalities,
		Instructions:      cfg.Instructions,
		Voice:             cfg.Voice,
		InputAudioFormat:  cfg.InputAudioFormat,
		OutputAudioFormat: cfg.OutputAudioFormat,
		Transcription:     cfg.Transcription,
		TurnDetection:     cfg.TurnDetection,
		Tools:             cfg.Tools,
	}
	if len(cfg.Tools) > 0 {
		payload.ToolChoice = "auto"
	}
	return payload
}
