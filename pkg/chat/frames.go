package chat

// Frame type identifiers on the wire.
const (
	FrameInitContext            = "init_context"
	FrameUserMessage            = "user_message"
	FrameConstraintConfirmation = "constraint_confirmation"
	FrameAllergyConfirmation    = "allergy_confirmation"

	FrameSessionInitialized    = "session_initialized"
	FrameThinking              = "thinking"
	FrameProgress              = "progress"
	FrameAgentMessage          = "agent_message"
	FrameChatExternal          = "chat_external"
	FrameAllergyWarning        = "allergy_warning"
	FrameConstraintWarning     = "constraint_warning"
	FrameAllergyDislikeDetect  = "allergy_dislike_detected"
	FrameError                 = "error"
)

// InboundFrame is any client frame; unused fields stay zero.
type InboundFrame struct {
	Type                string              `json:"type"`
	Content             string              `json:"content,omitempty"`
	Confirmation        string              `json:"confirmation,omitempty"`
	MemberInfo          *Personalization    `json:"member_info,omitempty"`
	InitialHistory      []Message           `json:"initial_history,omitempty"`
	ModificationHistory []ModificationEntry `json:"modification_history,omitempty"`
}

// Sender delivers one outbound frame. Implementations serialize writes.
type Sender interface {
	Send(frame any) error
}

type SessionInitializedFrame struct {
	Type        string `json:"type"`
	SessionID   string `json:"session_id"`
	DBSessionID int64  `json:"db_session_id"`
}

type ThinkingFrame struct {
	Type    string `json:"type"`
	Message string `json:"message,omitempty"`
}

type ProgressFrame struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type AgentMessageFrame struct {
	Type                string              `json:"type"`
	Content             string              `json:"content"`
	Image               string              `json:"image,omitempty"`
	HideImage           bool                `json:"hideImage,omitempty"`
	ModificationHistory []ModificationEntry `json:"modification_history,omitempty"`
}

type ChatExternalFrame struct {
	Type    string `json:"type"`
	Content string `json:"content"`
}

type AllergyWarningFrame struct {
	Type             string   `json:"type"`
	Content          string   `json:"content"`
	MatchedDislikes  []string `json:"matched_dislikes"`
	ShowConfirmation bool     `json:"show_confirmation"`
}

type ConstraintWarningFrame struct {
	Type                  string   `json:"type"`
	Content               string   `json:"content"`
	ConflictedIngredients []string `json:"conflicted_ingredients"`
	ShowConfirmation      bool     `json:"show_confirmation"`
}

type AllergyDislikeDetectedFrame struct {
	Type          string   `json:"type"`
	Content       string   `json:"content"`
	DetectedType  string   `json:"detected_type"`
	DetectedItems []string `json:"detected_items"`
	ShowButton    bool     `json:"show_button"`
}

type ErrorFrame struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}
