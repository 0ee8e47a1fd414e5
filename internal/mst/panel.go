package mst

// Panel labels an item panel within a stage.
type Panel string

const (
	PanelRouting Panel = "routing"

	PanelLow    Panel = "low"
	PanelMedium Panel = "medium"
	PanelHigh   Panel = "high"

	PanelL1 Panel = "L1"
	PanelL2 Panel = "L2"
	PanelL3 Panel = "L3"
	PanelM1 Panel = "M1"
	PanelM2 Panel = "M2"
	PanelM3 Panel = "M3"
	PanelH1 Panel = "H1"
	PanelH2 Panel = "H2"
	PanelH3 Panel = "H3"
)

var stage2Panels = [3]Panel{PanelLow, PanelMedium, PanelHigh}

var subtracks = map[Panel][3]Panel{
	PanelLow:    {PanelL1, PanelL2, PanelL3},
	PanelMedium: {PanelM1, PanelM2, PanelM3},
	PanelHigh:   {PanelH1, PanelH2, PanelH3},
}

// Stage2Panels returns the stage-2 panels from lowest to highest.
func Stage2Panels() []Panel {
	return stage2Panels[:]
}

// Subtracks returns the stage-3 subtracks reachable from a stage-2 panel,
// lowest first. Unknown panels yield nil.
func Subtracks(stage2 Panel) []Panel {
	s, ok := subtracks[stage2]
	if !ok {
		return nil
	}
	return s[:]
}

// ValidFor reports whether p is a panel of the given stage.
func (p Panel) ValidFor(stage int) bool {
	switch stage {
	case 1:
		return p == PanelRouting
	case 2:
		_, ok := subtracks[p]
		return ok
	case 3:
		for _, s := range subtracks {
			for _, sub := range s {
				if sub == p {
					return true
				}
			}
		}
	}
	return false
}

// Stage returns the stage a panel belongs to, or 0 for an unknown label.
func (p Panel) Stage() int {
	for stage := 1; stage <= 3; stage++ {
		if p.ValidFor(stage) {
			return stage
		}
	}
	return 0
}
