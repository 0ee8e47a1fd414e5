package mst

// Router assigns panels at stage boundaries and tracks stage progress.
// It is immutable after construction.
type Router struct {
	cfg Config
}

// NewRouter validates cfg and returns a Router.
func NewRouter(cfg Config) (*Router, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	// Copy the map so later edits by the caller cannot change routing.
	stage3 := make(map[Panel]Cuts, len(cfg.Stage3))
	for k, v := range cfg.Stage3 {
		stage3[k] = v
	}
	cfg.Stage3 = stage3
	return &Router{cfg: cfg}, nil
}

var defaultRouter = func() *Router {
	r, err := NewRouter(DefaultConfig())
	if err != nil {
		panic(err)
	}
	return r
}()

// Config returns the router's configuration.
func (r *Router) Config() Config {
	return r.cfg
}

// RouteToStage2 maps the θ estimate at the end of stage 1 to a stage-2 panel.
func (r *Router) RouteToStage2(theta float64) Panel {
	return stage2Panels[r.cfg.Stage2.branch(theta)]
}

// RouteToStage3 maps the θ estimate at the end of stage 2 to a subtrack of
// the stage-2 panel. An unknown stage-2 panel is routed with the low table,
// the most conservative subtrack, never with the high one.
func (r *Router) RouteToStage3(theta float64, stage2 Panel) Panel {
	tracks, ok := subtracks[stage2]
	if !ok {
		stage2 = PanelLow
		tracks = subtracks[PanelLow]
	}
	return tracks[r.cfg.Stage3[stage2].branch(theta)]
}

// RouteToStage2 routes with the default cut scores.
func RouteToStage2(theta float64) Panel {
	return defaultRouter.RouteToStage2(theta)
}

// RouteToStage3 routes with the default cut scores.
func RouteToStage3(theta float64, stage2 Panel) Panel {
	return defaultRouter.RouteToStage3(theta, stage2)
}
