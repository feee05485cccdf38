package training

// State is a step of the trainer state machine.
type State int

const (
	StateCreated State = iota
	StateConfigured
	StateDataLoaded
	StateSplit
	StateModelAcquired
	StateTrained
	StateEvaluated
	StateLogged
	StateDone
	StateFailed
)

var stateNames = [...]string{
	StateCreated:       "created",
	StateConfigured:    "configured",
	StateDataLoaded:    "data_loaded",
	StateSplit:         "split",
	StateModelAcquired: "model_acquired",
	StateTrained:       "trained",
	StateEvaluated:     "evaluated",
	StateLogged:        "logged",
	StateDone:          "done",
	StateFailed:        "failed",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}
