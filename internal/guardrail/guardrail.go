package guardrail

// DpiStatus classifies print resolution quality.
type DpiStatus string

const (
	DpiStatusGood  DpiStatus = "good"
	DpiStatusWarn  DpiStatus = "warn"
	DpiStatusBlock DpiStatus = "block"
)

// Tone drives how a message should be presented.
type Tone string

const (
	TonePositive Tone = "positive"
	ToneCaution  Tone = "caution"
	ToneCritical Tone = "critical"
)

const (
	dpiGoodThreshold  = 300.0
	dpiBlockThreshold = 180.0
)

// Input carries the geometry and collision flags for one evaluation.
// It is ephemeral; callers recompute it whenever artwork or variant changes.
type Input struct {
	ImageWidth              int     `json:"image_width"`
	ImageHeight             int     `json:"image_height"`
	TargetPrintWidthInches  float64 `json:"target_print_width_inches"`
	TargetPrintHeightInches float64 `json:"target_print_height_inches"`
	SafeAreaCollisions      bool    `json:"safe_area_collisions"`
}

// Message pairs a severity tone with human-readable copy.
type Message struct {
	Tone        Tone   `json:"tone"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

// State is the derived print-readiness verdict for one Input.
type State struct {
	DpiStatus          DpiStatus `json:"dpi_status"`
	EffectiveDpi       *float64  `json:"effective_dpi"`
	SafeAreaCollisions bool      `json:"safe_area_collisions"`
	AllowProceed       bool      `json:"allow_proceed"`
	ResolutionMessage  Message   `json:"resolution_message"`
	SafeAreaMessage    Message   `json:"safe_area_message"`
}

var resolutionMessages = map[DpiStatus]Message{
	DpiStatusGood: {
		Tone:        TonePositive,
		Title:       "Print-ready resolution",
		Description: "Your artwork meets the recommended 300 DPI at this print size.",
	},
	DpiStatusWarn: {
		Tone:        ToneCaution,
		Title:       "Resolution could be sharper",
		Description: "Your artwork prints below 300 DPI. It will work, but fine detail may soften.",
	},
	DpiStatusBlock: {
		Tone:        ToneCritical,
		Title:       "Resolution too low to print",
		Description: "Your artwork falls below 180 DPI at this print size. Upload a larger image to continue.",
	},
}

var unknownResolutionMessage = Message{
	Tone:        ToneCaution,
	Title:       "Resolution not evaluated",
	Description: "Print size or artwork dimensions are incomplete, so resolution could not be checked.",
}

var safeAreaMessages = map[bool]Message{
	false: {
		Tone:        TonePositive,
		Title:       "Inside the safe area",
		Description: "Your artwork stays clear of trim and camera cutouts.",
	},
	true: {
		Tone:        ToneCritical,
		Title:       "Artwork crosses the safe area",
		Description: "Part of your design overlaps a no-print zone. Move it inside the guides to continue.",
	},
}

// DefaultState is the pre-upload verdict. It cautions rather than blocks so
// browsing is never gated before any artwork exists.
func DefaultState() State {
	return State{
		DpiStatus:          DpiStatusWarn,
		EffectiveDpi:       nil,
		SafeAreaCollisions: false,
		AllowProceed:       true,
		ResolutionMessage: Message{
			Tone:        ToneCaution,
			Title:       "Upload artwork to check print quality",
			Description: "Resolution and safe-area checks run once you add a design.",
		},
		SafeAreaMessage: safeAreaMessages[false],
	}
}

// Evaluate computes print readiness from geometry and collision flags.
// It is pure and total: malformed geometry degrades to an unknown-resolution
// caution instead of an error, because missing data is not a failure.
func Evaluate(input Input) State {
	dpi := effectiveDpi(input)

	status := DpiStatusWarn
	resolution := unknownResolutionMessage
	if dpi != nil {
		switch {
		case *dpi >= dpiGoodThreshold:
			status = DpiStatusGood
		case *dpi >= dpiBlockThreshold:
			status = DpiStatusWarn
		default:
			status = DpiStatusBlock
		}
		resolution = resolutionMessages[status]
	}

	return State{
		DpiStatus:          status,
		EffectiveDpi:       dpi,
		SafeAreaCollisions: input.SafeAreaCollisions,
		AllowProceed:       status != DpiStatusBlock && !input.SafeAreaCollisions,
		ResolutionMessage:  resolution,
		SafeAreaMessage:    safeAreaMessages[input.SafeAreaCollisions],
	}
}

func effectiveDpi(input Input) *float64 {
	if input.ImageWidth <= 0 || input.ImageHeight <= 0 {
		return nil
	}
	if input.TargetPrintWidthInches <= 0 || input.TargetPrintHeightInches <= 0 {
		return nil
	}
	horizontal := float64(input.ImageWidth) / input.TargetPrintWidthInches
	vertical := float64(input.ImageHeight) / input.TargetPrintHeightInches
	dpi := horizontal
	if vertical < horizontal {
		dpi = vertical
	}
	return &dpi
}
