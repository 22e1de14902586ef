package websocket

// ─── Actions (Client → Server) ──────────────────────────────────────

type Action string

const (
	ActionAnswer   Action = "answer"
	ActionNavigate Action = "navigate"
	ActionSubmit   Action = "submit"
	ActionPing     Action = "ping"
)

// RequestEnvelope is used to peek at the action before full parsing.
type RequestEnvelope struct {
	Action Action `json:"action"`
}

// AnswerRequest selects an option for a question.
type AnswerRequest struct {
	Action     Action `json:"action"`
	QuestionID string `json:"question_id"`
	Answer     string `json:"answer"`
}

// NavigateRequest moves the current-question pointer.
type NavigateRequest struct {
	Action Action `json:"action"`
	Index  int    `json:"index"`
}

// Submit and ping carry no payload beyond the envelope action.

// ─── Events (Server → Client) ───────────────────────────────────────

type Event string

const (
	EventError         Event = "error"
	EventSaved         Event = "saved"
	EventTick          Event = "tick"
	EventGraded        Event = "graded"
	EventAutoSubmitted Event = "auto_submitted"
	EventPong          Event = "pong"
)

// SavedResponse acknowledges an accepted answer or navigation.
type SavedResponse struct {
	Event  Event  `json:"event"`
	Status string `json:"status"`
}

// TickResponse carries the remaining time, pushed once per second.
type TickResponse struct {
	Event     Event `json:"event"`
	Remaining int   `json:"remaining_seconds"`
}

// GradedResponse delivers the final score after submission. Auto indicates
// the timer fired the submission rather than the student.
type GradedResponse struct {
	Event      Event   `json:"event"`
	Status     string  `json:"status"`
	Score      int     `json:"score"`
	Total      int     `json:"total"`
	Percentage float64 `json:"percentage"`
	Auto       bool    `json:"auto"`
}

type ErrorResponse struct {
	Event Event  `json:"event"`
	Error string `json:"error"`
}

type PongResponse struct {
	Event Event `json:"event"`
}
