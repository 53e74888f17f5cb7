package speechid

// Config captures runtime settings for speech language identification.
type Config struct {
	// Model is the primary model, small enough to answer quickly.
	Model string
	// FallbackModel runs when the primary model fails or detects nothing.
	FallbackModel string
}

// Model and invocation defaults.
const (
	DefaultModel         = "tiny"
	DefaultFallbackModel = "base"
	PypiIndexURL         = "https://pypi.org/simple"
	CPUDevice            = "cpu"
	CPUComputeType       = "float32"
	VADMethodSilero      = "silero"
	Temperature          = "0.0"
	NoSpeechThreshold    = "0.7"
	OutputFormat         = "json"
)

// Command names for external tools.
const (
	UVXCommand    = "uvx"
	FFmpegCommand = "ffmpeg"
)
