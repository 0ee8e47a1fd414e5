package mst

// State is a session's position in the multistage design.
type State struct {
	Stage          int   `json:"stage"`
	Panel          Panel `json:"panel"`
	Stage2Panel    Panel `json:"stage2_panel,omitempty"`
	ItemsInStage   int   `json:"items_in_stage"`
	ItemsCompleted int   `json:"items_completed"`
	Completed      bool  `json:"completed"`
}

// NewState returns the state of a session that has not answered anything.
func NewState() State {
	return State{Stage: 1, Panel: PanelRouting}
}

// Transition describes a stage change produced by Advance.
type Transition struct {
	FromStage int
	ToStage   int
	From      Panel
	To        Panel
	Theta     float64
}

// Advance records one administered item with the updated θ and returns the
// next state. When the item finishes the current stage the session moves to
// the next stage's panel and a Transition is returned. Stages only move
// forward. A completed state is returned unchanged.
func (r *Router) Advance(s State, theta float64) (State, *Transition) {
	if s.Completed {
		return s, nil
	}
	if s.Stage < 1 || s.Stage > 3 {
		s.Stage, s.Panel = 1, PanelRouting
	}

	s.ItemsInStage++
	s.ItemsCompleted++

	var tr *Transition
	if s.Stage < 3 && s.ItemsInStage >= r.cfg.StageItems[s.Stage-1] {
		tr = &Transition{FromStage: s.Stage, ToStage: s.Stage + 1, From: s.Panel, Theta: theta}
		switch s.Stage {
		case 1:
			s.Panel = r.RouteToStage2(theta)
			s.Stage2Panel = s.Panel
		case 2:
			if s.Stage2Panel == "" {
				s.Stage2Panel = s.Panel
			}
			s.Panel = r.RouteToStage3(theta, s.Stage2Panel)
		}
		s.Stage++
		s.ItemsInStage = 0
		tr.To = s.Panel
	}

	if s.ItemsCompleted >= r.cfg.TotalItems {
		s.Completed = true
	}
	return s, tr
}

// Remaining returns how many items are left before the test ends.
func (r *Router) Remaining(s State) int {
	if s.Completed {
		return 0
	}
	return max(r.cfg.TotalItems-s.ItemsCompleted, 0)
}
