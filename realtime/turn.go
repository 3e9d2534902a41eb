package realtime

// TurnPhase tracks where the controller is within one logical turn.
type TurnPhase int

const (
	// TurnIdle: no utterance in flight.
	TurnIdle TurnPhase = iota
	// TurnAwaiting: utterance completed, response requested, none acknowledged.
	TurnAwaiting
	// TurnActive: the remote peer acknowledged one response id.
	TurnActive
	// TurnBlocked: that response completed; further responses for this
	// utterance are rejected until the next utterance resets the controller.
	TurnBlocked
)

// TurnController enforces at most one response per user utterance in
// single-response mode. The remote peer may non-deterministically start a
// second response for one turn (VAD retriggering); rejection is by arrival
// order on the channel, since channel delivery order is the only ordering
// guarantee the event stream gives.
type TurnController struct {
	mode  Mode
	phase TurnPhase

	activeResponseID string
	responding       bool

	request func()
	cancel  func(responseID string)
}

// NewTurnController wires the controller to its two outbound actions:
// request asks the remote peer to generate, cancel aborts a response by id.
func NewTurnController(mode Mode, request func(), cancel func(responseID string)) *TurnController {
	return &TurnController{mode: mode, request: request, cancel: cancel}
}

func (t *TurnController) SetMode(mode Mode) {
	t.mode = mode
	t.Reset()
}

// Reset returns the controller to a state where a new response can become
// active. Clearing the console mid-turn resets fully, Blocked included.
func (t *TurnController) Reset() {
	t.phase = TurnIdle
	t.activeResponseID = ""
	t.responding = false
}

// UtteranceCompleted begins a new turn and requests a response. In
// single-response mode any prior turn state is discarded first, so a Blocked
// turn never wedges the next one.
func (t *TurnController) UtteranceCompleted() {
	if t.mode.SingleResponse() {
		t.activeResponseID = ""
		t.responding = false
		t.phase = TurnAwaiting
	}
	t.request()
}

// ResponseCreated handles a response acknowledgement from the remote peer.
// The first id after an utterance is adopted; every later one for the same
// turn is cancelled immediately, even after the active response finished.
func (t *TurnController) ResponseCreated(responseID string) {
	if !t.mode.SingleResponse() {
		t.activeResponseID = responseID
		t.responding = true
		t.phase = TurnActive
		return
	}

	if t.activeResponseID != "" {
		// Duplicate generation for this utterance, active or already done.
		t.cancel(responseID)
		return
	}

	t.activeResponseID = responseID
	t.responding = true
	t.phase = TurnActive
}

// ResponseDone marks the active response finished. The active id is kept so
// a late duplicate response.created for the same utterance still cancels.
func (t *TurnController) ResponseDone() {
	t.responding = false
	if t.mode.SingleResponse() && t.phase == TurnActive {
		t.phase = TurnBlocked
	}
}

func (t *TurnController) Phase() TurnPhase { return t.phase }

// TurnState is the read-only snapshot exposed to the view.
type TurnState struct {
	ActiveResponseID string
	Responding       bool
}

func (t *TurnController) State() TurnState {
	return TurnState{ActiveResponseID: t.activeResponseID, Responding: t.responding}
}
