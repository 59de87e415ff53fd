package mapview

// MinViewableHeight is the smallest map pane height in pixels. Below it the navigation bar
// has most likely not been laid out yet and the full window height is used instead.
const MinViewableHeight = 100

// ViewableHeight returns the vertical space left for the map below the navigation bar.
func ViewableHeight(windowHeight, navBarHeight int) int {
	h := windowHeight - navBarHeight
	if h < MinViewableHeight {
		return windowHeight
	}
	return h
}

// PanZoom is the transform of the static image view.
type PanZoom struct {
	Scale float64 `json:"scale"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
}

// InitialPanZoom is scale 1, centered.
var InitialPanZoom = PanZoom{Scale: 1}

// ViewportState is the ephemeral per-view state owned by a Controller.
type ViewportState struct {
	MapID string `json:"map"`
	// Height is the map pane height in pixels; 0 means automatic.
	Height   int             `json:"height"`
	PanZoom  PanZoom         `json:"panZoom"`
	Overlays map[string]bool `json:"overlays,omitempty"`
}
