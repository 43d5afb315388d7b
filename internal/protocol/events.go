package protocol

// Version is the search-event protocol version shared by the event log and
// the observer websocket.
const Version = "1"

// Search event types.
const (
	EventStart     = "START"
	EventNewBest   = "NEW_BEST"
	EventExpanded  = "EXPANDED"
	EventPruned    = "PRUNED"
	EventCompleted = "COMPLETED"
	EventFinished  = "FINISHED"
)

// Prune reasons carried by EventPruned.
const (
	PruneUnaffordable = "UNAFFORDABLE"
	PruneDuplicate    = "DUPLICATE"
	PruneRepeat       = "REPEAT"
	PruneFloor        = "EU_FLOOR"
	PruneBeam         = "BEAM"
)

// Search modes.
const (
	ModeSearch   = "search"
	ModeSchedule = "schedule"
)

// SearchEvent is emitted synchronously by the search loop. One JSON line per
// event in the event log; one text frame per event on the observer stream.
type SearchEvent struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	RunID           string `json:"run_id,omitempty"`
	Mode            string `json:"mode,omitempty"`
	Seq             uint64 `json:"seq"`

	Depth      int     `json:"depth"`
	EU         float64 `json:"eu"`
	Frontier   int     `json:"frontier"`
	Candidates int     `json:"candidates,omitempty"`
	Count      int     `json:"count,omitempty"`
	Reason     string  `json:"reason,omitempty"`

	Action   string    `json:"action,omitempty"`
	Schedule []string  `json:"schedule,omitempty"`
	StepEUs  []float64 `json:"step_eus,omitempty"`
}

// Client -> Server. First message on the observer websocket.
type SubscribeMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`

	// Optional event type filter; empty means all.
	Types []string `json:"types,omitempty"`
}

// HTTP response for GET /v1/bootstrap.
type BootstrapResponse struct {
	ProtocolVersion string       `json:"protocol_version"`
	RunID           string       `json:"run_id"`
	Mode            string       `json:"mode"`
	SelfCountry     string       `json:"self_country"`
	WorldDigest     string       `json:"world_digest"`
	Params          SearchParams `json:"params"`
}

type SearchParams struct {
	Gamma       float64 `json:"gamma"`
	FailureCost float64 `json:"failure_cost"`
	K           float64 `json:"logistic_k"`
	X0          float64 `json:"logistic_x0"`
	MaxDepth    int     `json:"max_depth"`
	BeamWidth   int     `json:"beam_width"`
}
