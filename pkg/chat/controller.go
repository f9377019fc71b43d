package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/recipeu/agent/pkg/llms"
	"github.com/recipeu/agent/pkg/observability"
	"github.com/recipeu/agent/pkg/store"
)

// User-facing responses. All user-visible text is Korean.
const (
	msgChatExternal       = "레시피 외의 질문은 외부 챗봇을 이용해 주세요."
	msgThinkingSearch     = "레시피 검색 중..."
	msgDeclineLedger      = "알겠습니다. 다른 레시피를 검색해드릴까요? 또는 기존 레시피를 수정해드릴 수도 있습니다."
	msgDeclineDislike     = "알겠습니다. 다른 레시피를 검색해드릴까요?"
	msgNoPendingSearch    = "이전 검색 정보를 찾을 수 없습니다."
	msgDeclarationSaved   = "알겠습니다. 앞으로 레시피 추천 시 참고하겠습니다."
	msgDeclarationAck     = "알겠습니다."
	msgEmptyAnswer        = "답변을 생성할 수 없습니다."
	msgModificationFailed = "레시피 수정 중 오류가 발생했습니다."
)

var progressLabels = []string{
	"쿼리 재작성 중...",
	"레시피 검색 중...",
	"관련성 평가 중...",
	"답변 생성 중...",
	"거의 완료...",
}

const progressInterval = 3 * time.Second

// ChatStore is the durable persistence the controller writes through.
// Persistence is best-effort; failures are logged and never surface.
type ChatStore interface {
	CreateSession(ctx context.Context, memberID int64) (int64, error)
	AddChatMessage(ctx context.Context, memberID, sessionID int64, role, chatType, text string) (int64, error)
}

// Controller dispatches inbound frames for one session: intent routing, the
// constraint confirmation protocol, the search pipeline with its deadline
// and progress frames, and best-effort persistence.
type Controller struct {
	classifier *Classifier
	pipeline   *Pipeline
	modifier   *Modifier
	store      ChatStore
	deadline   time.Duration
	historyWin int
	log        *slog.Logger
}

func NewController(classifier *Classifier, pipeline *Pipeline, modifier *Modifier, chatStore ChatStore, deadline time.Duration, historyWindow int, log *slog.Logger) *Controller {
	if deadline <= 0 {
		deadline = 20 * time.Second
	}
	if historyWindow <= 0 {
		historyWindow = 5
	}
	return &Controller{
		classifier: classifier,
		pipeline:   pipeline,
		modifier:   modifier,
		store:      chatStore,
		deadline:   deadline,
		historyWin: historyWindow,
		log:        log,
	}
}

// HandleFrame processes one inbound frame. It blocks until all outbound
// frames for this turn are sent.
func (c *Controller) HandleFrame(ctx context.Context, session *Session, sender Sender, frame InboundFrame) {
	switch frame.Type {
	case FrameInitContext:
		c.handleInitContext(ctx, session, sender, frame)
	case FrameUserMessage:
		c.handleUserMessage(ctx, session, sender, strings.TrimSpace(frame.Content))
	case FrameConstraintConfirmation:
		c.handleLedgerConfirmation(ctx, session, sender, frame.Confirmation)
	case FrameAllergyConfirmation:
		c.handleDislikeConfirmation(ctx, session, sender, frame.Confirmation)
	default:
		c.log.Warn("unknown frame type", "type", frame.Type, "session_id", session.ID)
		c.send(sender, ErrorFrame{Type: FrameError, Message: "알 수 없는 요청입니다."})
	}
}

func (c *Controller) handleInitContext(ctx context.Context, session *Session, sender Sender, frame InboundFrame) {
	if frame.MemberInfo != nil {
		session.Profile = *frame.MemberInfo
	}
	if len(frame.ModificationHistory) > 0 {
		session.Ledger.Restore(frame.ModificationHistory)
	}
	if len(frame.InitialHistory) > 0 {
		session.RestoreHistory(frame.InitialHistory)
	}

	if c.store != nil && session.Profile.MemberID > 0 && session.DBSessionID == 0 {
		dbSessionID, err := c.store.CreateSession(ctx, session.Profile.MemberID)
		if err != nil {
			c.log.Warn("db session creation failed",
				"member_id", session.Profile.MemberID, "error", err)
		} else {
			session.DBSessionID = dbSessionID
		}
	}

	c.send(sender, SessionInitializedFrame{
		Type:        FrameSessionInitialized,
		SessionID:   session.ID,
		DBSessionID: session.DBSessionID,
	})
	c.log.Info("session initialized",
		"session_id", session.ID,
		"member_id", session.Profile.MemberID,
		"db_session_id", session.DBSessionID,
		"restored_history", len(frame.InitialHistory),
		"restored_modifications", len(frame.ModificationHistory))
}

func (c *Controller) handleUserMessage(ctx context.Context, session *Session, sender Sender, content string) {
	if content == "" {
		return
	}
	session.AppendMessage(Message{Role: RoleUser, Content: content})
	c.persist(session, store.RoleUser, content)

	stats := NewRequestStats()
	defer stats.LogSummary(c.log)

	var intent Intent
	stats.Time("intent", func() llms.Usage {
		var usage llms.Usage
		intent, usage = c.classifier.DetectIntent(ctx, content, session.HasRecipe())
		return usage
	})
	c.log.Info("intent classified", "session_id", session.ID, "intent", intent)

	if session.Profile.MemberID > 0 && intent != IntentRecipeSearch && intent != IntentRecipeModify {
		var decl Declaration
		stats.Time("declaration", func() llms.Usage {
			var usage llms.Usage
			decl, usage = c.classifier.DetectDeclaration(ctx, content, session.HasRecipe())
			return usage
		})
		if decl.Type != "" {
			c.handleDeclaration(session, sender, decl)
			observability.CountRequest("ok")
			return
		}
	}

	switch intent {
	case IntentNotCooking:
		session.AppendMessage(Message{Role: RoleAssistant, Content: msgChatExternal})
		c.persist(session, store.RoleAgent, msgChatExternal)
		c.send(sender, ChatExternalFrame{Type: FrameChatExternal, Content: msgChatExternal})
		observability.CountRequest("redirected")
		return

	case IntentCookingQuestion:
		c.send(sender, ThinkingFrame{Type: FrameThinking})
		answer, err := c.pipeline.AnswerQuestion(ctx, content, session.RecentHistory(c.historyWin), stats)
		if err == nil && answer != "" {
			session.AppendMessage(Message{Role: RoleAssistant, Content: answer})
			c.persist(session, store.RoleAgent, answer)
			c.send(sender, AgentMessageFrame{Type: FrameAgentMessage, Content: answer})
			observability.CountRequest("ok")
			return
		}
		c.log.Warn("cooking question failed, falling through to search", "error", err)

	case IntentRecipeModify:
		if c.handleModification(ctx, session, sender, content, stats) {
			return
		}
	}

	c.handleSearch(ctx, session, sender, content, stats)
}

func (c *Controller) handleDeclaration(session *Session, sender Sender, decl Declaration) {
	content := msgDeclarationAck
	if len(decl.Items) > 0 {
		content = msgDeclarationSaved
	}
	session.AppendMessage(Message{Role: RoleAssistant, Content: content})
	c.persist(session, store.RoleAgent, content)
	c.send(sender, AllergyDislikeDetectedFrame{
		Type:          FrameAllergyDislikeDetect,
		Content:       content,
		DetectedType:  decl.Type,
		DetectedItems: decl.Items,
		ShowButton:    len(decl.Items) > 0,
	})
	c.log.Info("declaration detected",
		"session_id", session.ID, "type", decl.Type, "items", strings.Join(decl.Items, ","))
}

// handleModification returns false when no prior recipe exists so the caller
// can fall through to a plain search.
func (c *Controller) handleModification(ctx context.Context, session *Session, sender Sender, content string, stats *RequestStats) bool {
	c.send(sender, ThinkingFrame{Type: FrameThinking})

	runCtx, cancel := context.WithTimeout(ctx, c.deadline)
	defer cancel()

	priorImage := session.LastRecipeImage()
	modified, err := c.modifier.Run(runCtx, content, session, stats)
	if errors.Is(err, ErrNoPriorRecipe) {
		c.log.Info("modification without prior recipe, treating as search", "session_id", session.ID)
		return false
	}
	if err != nil {
		c.log.Error("recipe modification failed", "session_id", session.ID, "error", err)
		c.send(sender, ErrorFrame{Type: FrameError, Message: msgModificationFailed})
		observability.CountRequest("error")
		return true
	}

	// The prior card's image rides along for continuity but stays hidden.
	session.AppendMessage(Message{Role: RoleAssistant, Content: modified, Image: priorImage})
	c.persist(session, store.RoleAgent, modified)
	c.send(sender, AgentMessageFrame{
		Type:                FrameAgentMessage,
		Content:             modified,
		Image:               priorImage,
		HideImage:           true,
		ModificationHistory: session.Ledger.Entries(),
	})
	observability.CountRequest("ok")
	return true
}

func (c *Controller) handleSearch(ctx context.Context, session *Session, sender Sender, query string, stats *RequestStats) {
	verdict := CheckSearch(query, session.Profile, session.AllowedDislikes(), &session.Ledger)

	switch verdict.Kind {
	case VerdictAllergyBlock:
		content := fmt.Sprintf(
			"알러지 재료(%s)가 포함되어 있어 레시피를 생성할 수 없습니다. 다른 레시피를 검색해주세요.",
			strings.Join(verdict.Items, ", "))
		session.AppendMessage(Message{Role: RoleAssistant, Content: content})
		c.persist(session, store.RoleAgent, content)
		c.send(sender, AgentMessageFrame{Type: FrameAgentMessage, Content: content})
		observability.CountRequest("blocked")
		return

	case VerdictDislikeConfirm:
		content := fmt.Sprintf(
			"비선호 음식(%s)이(가) 포함되어 있습니다. 그래도 생성해드릴까요?",
			strings.Join(verdict.Items, ", "))
		session.SetPending(&PendingConfirmation{Kind: PendingDislike, Query: query, Items: verdict.Items})
		session.AppendMessage(Message{Role: RoleAssistant, Content: content})
		c.persist(session, store.RoleAgent, content)
		c.send(sender, AllergyWarningFrame{
			Type:             FrameAllergyWarning,
			Content:          content,
			MatchedDislikes:  verdict.Items,
			ShowConfirmation: true,
		})
		return

	case VerdictLedgerConfirm:
		content := fmt.Sprintf(
			"%s은(는) 이전에 사용자님이 제외하신 재료입니다. 괜찮으신가요?",
			strings.Join(verdict.Items, ", "))
		session.SetPending(&PendingConfirmation{Kind: PendingLedger, Query: query, Items: verdict.Items})
		session.AppendMessage(Message{Role: RoleAssistant, Content: content})
		c.persist(session, store.RoleAgent, content)
		c.send(sender, ConstraintWarningFrame{
			Type:                  FrameConstraintWarning,
			Content:               content,
			ConflictedIngredients: verdict.Items,
			ShowConfirmation:      true,
		})
		return
	}

	c.runPipeline(ctx, session, sender, query, stats)
}

func (c *Controller) runPipeline(ctx context.Context, session *Session, sender Sender, query string, stats *RequestStats) {
	c.send(sender, ThinkingFrame{Type: FrameThinking, Message: msgThinkingSearch})

	runCtx, cancel := context.WithTimeout(ctx, c.deadline)
	defer cancel()

	start := time.Now()
	progressDone := make(chan struct{})
	go c.emitProgress(runCtx, sender, start, progressDone)

	// Dislikes the user explicitly accepted no longer constrain generation.
	profile := session.Profile
	profile.Dislikes = subtract(profile.Dislikes, session.AllowedDislikes())

	result, err := c.pipeline.RunSearch(runCtx, query, session.RecentHistory(c.historyWin), profile, &session.Ledger, stats)
	cancel()
	<-progressDone

	elapsed := int(time.Since(start).Seconds())
	switch {
	case err == nil:
		answer := result.Answer
		if strings.TrimSpace(answer) == "" {
			answer = msgEmptyAnswer
		}
		session.SetLastResult(result.Documents, answer)
		session.AppendMessage(Message{Role: RoleAssistant, Content: answer})
		c.persist(session, store.RoleAgent, answer)
		c.send(sender, AgentMessageFrame{Type: FrameAgentMessage, Content: answer})
		observability.CountRequest("ok")

	case errors.Is(err, context.DeadlineExceeded):
		content := fmt.Sprintf("죄송합니다. 응답 시간이 너무 오래 걸렸어요 (%d초). 다시 시도해주세요.", elapsed)
		session.AppendMessage(Message{Role: RoleAssistant, Content: content})
		c.persist(session, store.RoleAgent, content)
		c.send(sender, AgentMessageFrame{Type: FrameAgentMessage, Content: content})
		observability.CountRequest("timeout")
		c.log.Warn("search pipeline timed out", "session_id", session.ID, "elapsed_s", elapsed)

	default:
		c.send(sender, ErrorFrame{
			Type:    FrameError,
			Message: fmt.Sprintf("오류가 발생했습니다 (%d초). 다시 시도해주세요.", elapsed),
		})
		observability.CountRequest("error")
		c.log.Error("search pipeline failed", "session_id", session.ID, "error", err)
	}
}

// emitProgress sends staged progress frames at 0, 3, 6, 9 and 12 seconds
// elapsed. Frames stop once the pipeline finishes or the deadline passes.
func (c *Controller) emitProgress(ctx context.Context, sender Sender, start time.Time, done chan<- struct{}) {
	defer close(done)
	for i, label := range progressLabels {
		if i > 0 {
			select {
			case <-ctx.Done():
				return
			case <-time.After(progressInterval):
			}
		}
		if ctx.Err() != nil {
			return
		}
		elapsed := time.Since(start)
		if elapsed >= c.deadline {
			return
		}
		c.send(sender, ProgressFrame{
			Type:    FrameProgress,
			Message: fmt.Sprintf("%s (%d초)", label, int(elapsed.Seconds())),
		})
	}
}

func (c *Controller) handleLedgerConfirmation(ctx context.Context, session *Session, sender Sender, confirmation string) {
	pending := session.Pending()
	if pending != nil && pending.Kind != PendingLedger {
		c.log.Warn("confirmation does not match pending kind",
			"session_id", session.ID, "frame", FrameConstraintConfirmation, "pending", string(pending.Kind))
		return
	}

	switch strings.ToLower(strings.TrimSpace(confirmation)) {
	case "no":
		session.ClearPending()
		session.AppendMessage(Message{Role: RoleAssistant, Content: msgDeclineLedger})
		c.persist(session, store.RoleAgent, msgDeclineLedger)
		c.send(sender, AgentMessageFrame{Type: FrameAgentMessage, Content: msgDeclineLedger})

	case "yes":
		if pending == nil {
			c.send(sender, ErrorFrame{Type: FrameError, Message: msgNoPendingSearch})
			return
		}
		session.ClearPending()
		session.Ledger.ReleaseIngredients(pending.Items)
		c.log.Info("ledger exclusions released",
			"session_id", session.ID, "items", strings.Join(pending.Items, ","))
		stats := NewRequestStats()
		defer stats.LogSummary(c.log)
		c.runPipeline(ctx, session, sender, pending.Query, stats)

	default:
		c.log.Warn("unknown confirmation value", "session_id", session.ID, "value", confirmation)
	}
}

func (c *Controller) handleDislikeConfirmation(ctx context.Context, session *Session, sender Sender, confirmation string) {
	pending := session.Pending()
	if pending != nil && pending.Kind != PendingDislike {
		c.log.Warn("confirmation does not match pending kind",
			"session_id", session.ID, "frame", FrameAllergyConfirmation, "pending", string(pending.Kind))
		return
	}

	switch strings.ToLower(strings.TrimSpace(confirmation)) {
	case "no":
		session.ClearPending()
		session.AppendMessage(Message{Role: RoleAssistant, Content: msgDeclineDislike})
		c.persist(session, store.RoleAgent, msgDeclineDislike)
		c.send(sender, AgentMessageFrame{Type: FrameAgentMessage, Content: msgDeclineDislike})

	case "yes":
		if pending == nil {
			c.send(sender, ErrorFrame{Type: FrameError, Message: msgNoPendingSearch})
			return
		}
		session.ClearPending()
		session.AllowDislikes(pending.Items)
		c.log.Info("dislikes waived for session",
			"session_id", session.ID, "items", strings.Join(pending.Items, ","))
		stats := NewRequestStats()
		defer stats.LogSummary(c.log)
		c.runPipeline(ctx, session, sender, pending.Query, stats)

	default:
		c.log.Warn("unknown confirmation value", "session_id", session.ID, "value", confirmation)
	}
}

func (c *Controller) send(sender Sender, frame any) {
	frameType := ""
	switch f := frame.(type) {
	case SessionInitializedFrame:
		frameType = f.Type
	case ThinkingFrame:
		frameType = f.Type
	case ProgressFrame:
		frameType = f.Type
	case AgentMessageFrame:
		frameType = f.Type
	case ChatExternalFrame:
		frameType = f.Type
	case AllergyWarningFrame:
		frameType = f.Type
	case ConstraintWarningFrame:
		frameType = f.Type
	case AllergyDislikeDetectedFrame:
		frameType = f.Type
	case ErrorFrame:
		frameType = f.Type
	}
	if frameType != "" {
		observability.CountFrame(frameType)
	}
	if err := sender.Send(frame); err != nil {
		c.log.Warn("frame send failed", "type", frameType, "error", err)
	}
}

// persist writes one turn through to MySQL when the session is durable.
func (c *Controller) persist(session *Session, role, text string) {
	if c.store == nil || session.Profile.MemberID <= 0 || session.DBSessionID == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if _, err := c.store.AddChatMessage(ctx, session.Profile.MemberID, session.DBSessionID, role, store.TypeGenerate, text); err != nil {
		c.log.Warn("chat persistence failed",
			"session_id", session.ID, "db_session_id", session.DBSessionID, "error", err)
	}
}

func subtract(items, removed []string) []string {
	if len(removed) == 0 {
		return items
	}
	drop := make(map[string]struct{}, len(removed))
	for _, item := range removed {
		drop[item] = struct{}{}
	}
	var out []string
	for _, item := range items {
		if _, ok := drop[item]; !ok {
			out = append(out, item)
		}
	}
	return out
}
