package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/hirecraft/interview-engine/models"
	"github.com/hirecraft/interview-engine/repository"
)

// TurnPublisher pushes interviewer turns to any live listeners. The session
// manager treats delivery as best effort; persistence is the source of truth.
type TurnPublisher interface {
	PublishTurn(sessionID string, msg *models.InterviewMessage)
}

// CreateSessionRequest carries the config snapshot for a new session.
type CreateSessionRequest struct {
	UserID           string
	AssignedBy       *string
	Kind             string
	InterviewType    string
	Role             string
	Company          string
	Difficulty       string
	DurationMinutes  int
	Personality      string
	PlannedQuestions int
	JobPostingID     *string
	DueDate          *time.Time
	MaxRetakes       int
}

// PostAnswerResult is what a candidate gets back after submitting an answer:
// their stored turn, the interviewer's reply, and the feedback when the reply
// closed the session.
type PostAnswerResult struct {
	Answer   *models.InterviewMessage  `json:"answer"`
	Reply    *models.InterviewMessage  `json:"reply"`
	Status   models.SessionStatus      `json:"status"`
	Feedback *models.InterviewFeedback `json:"feedback,omitempty"`
}

// SessionManager owns the session lifecycle: creation with atomic quota
// consumption, the answer/reply turn loop, completion with feedback
// synthesis, and read access with ownership checks.
type SessionManager struct {
	repo      *repository.GORMRepository
	quota     *QuotaGate
	dialogue  *DialogueEngine
	analyzer  *ResponseAnalyzer
	feedback  *FeedbackSynthesizer
	publisher TurnPublisher

	dialogueCfg DialogueConfig
	retakeCfg   RetakeConfig
}

func NewSessionManager(
	repo *repository.GORMRepository,
	quota *QuotaGate,
	dialogue *DialogueEngine,
	analyzer *ResponseAnalyzer,
	feedback *FeedbackSynthesizer,
	dialogueCfg DialogueConfig,
	retakeCfg RetakeConfig,
) *SessionManager {
	return &SessionManager{
		repo:        repo,
		quota:       quota,
		dialogue:    dialogue,
		analyzer:    analyzer,
		feedback:    feedback,
		dialogueCfg: dialogueCfg,
		retakeCfg:   retakeCfg,
	}
}

// SetPublisher wires the live delivery hub. Optional; without it interviewer
// turns are only available through the HTTP surface.
func (m *SessionManager) SetPublisher(p TurnPublisher) {
	m.publisher = p
}

// CreateSession creates a session from a config snapshot. Self-service
// sessions consume one quota allowance inside the same transaction that
// creates the session row, so a rolled-back creation never burns quota, and
// start immediately with the interviewer's greeting. Assigned sessions bypass
// quota and wait in the assigned state until the candidate starts them.
func (m *SessionManager) CreateSession(ctx context.Context, req CreateSessionRequest) (*models.InterviewSession, error) {
	user, err := m.repo.GetUserByID(ctx, req.UserID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, models.ErrUserNotFound
	}

	session := &models.InterviewSession{
		UserID:           req.UserID,
		AssignedBy:       req.AssignedBy,
		Kind:             req.Kind,
		InterviewType:    req.InterviewType,
		Role:             req.Role,
		Company:          req.Company,
		Difficulty:       req.Difficulty,
		DurationMinutes:  req.DurationMinutes,
		Personality:      req.Personality,
		PlannedQuestions: req.PlannedQuestions,
		JobPostingID:     req.JobPostingID,
		TimeRemaining:    req.DurationMinutes * 60,
		MaxRetakes:       req.MaxRetakes,
	}
	if session.Kind == "" {
		session.Kind = models.SessionKindConversational
	}
	if session.Personality == "" {
		session.Personality = "professional"
	}
	if session.PlannedQuestions <= 0 {
		session.PlannedQuestions = m.dialogueCfg.PlannedQuestions
	}
	if session.MaxRetakes <= 0 {
		session.MaxRetakes = m.retakeCfg.MaxRetakes
	}

	now := time.Now()
	assigned := req.AssignedBy != nil
	if assigned {
		session.Status = models.SessionAssigned
		session.AssignedAt = &now
		session.DueDate = req.DueDate
	} else {
		session.Status = models.SessionActive
		session.StartedAt = &now
	}

	err = m.repo.WithTx(ctx, func(tx *repository.GORMRepository) error {
		ledger, err := tx.GetOrCreateLedgerForUpdate(ctx, req.UserID)
		if err != nil {
			return err
		}
		if !assigned {
			if err := m.quota.Consume(user, ledger, now); err != nil {
				return err
			}
		}
		ledger.TotalSessions++
		ledger.LastSessionAt = &now
		if err := tx.SaveLedger(ctx, ledger); err != nil {
			return err
		}
		if err := tx.CreateInterviewSession(ctx, session); err != nil {
			return err
		}
		if !assigned {
			return m.appendGreeting(ctx, tx, session, user.FullName)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	slog.Info("Interview session created",
		"session_id", session.ID, "user_id", session.UserID,
		"assigned", assigned, "interview_type", session.InterviewType)
	return session, nil
}

// StartAssigned moves an assigned session into the active state and opens the
// dialogue with the greeting. Only the assignee can start it.
func (m *SessionManager) StartAssigned(ctx context.Context, sessionID, userID string) (*models.InterviewSession, error) {
	var session *models.InterviewSession
	err := m.repo.WithTx(ctx, func(tx *repository.GORMRepository) error {
		s, err := tx.GetInterviewSessionForUpdate(ctx, sessionID)
		if err != nil {
			return err
		}
		if s == nil {
			return models.ErrSessionNotFound
		}
		if s.UserID != userID {
			return models.ErrAccessDenied
		}
		next, ok := s.Status.Transition(models.EventStart)
		if !ok {
			return &models.InvalidTransitionError{From: s.Status, Event: models.EventStart}
		}
		now := time.Now()
		s.Status = next
		s.StartedAt = &now
		s.LastActivityAt = now
		if err := tx.SaveSession(ctx, s); err != nil {
			return err
		}
		user, err := tx.GetUserByID(ctx, s.UserID)
		if err != nil {
			return err
		}
		name := ""
		if user != nil {
			name = user.FullName
		}
		if err := m.appendGreeting(ctx, tx, s, name); err != nil {
			return err
		}
		session = s
		return nil
	})
	if err != nil {
		return nil, err
	}
	slog.Info("Assigned session started", "session_id", sessionID, "user_id", userID)
	return session, nil
}

func (m *SessionManager) appendGreeting(ctx context.Context, tx *repository.GORMRepository, session *models.InterviewSession, candidateName string) error {
	greeting := &models.InterviewMessage{
		Sender:  models.SenderInterviewer,
		Type:    models.MessageGreeting,
		Content: m.dialogue.Greeting(session, candidateName),
	}
	updated, err := tx.AppendMessage(ctx, session.ID, greeting)
	if err != nil {
		return err
	}
	*session = *updated
	m.publish(session.ID, greeting)
	return nil
}

// PostAnswer appends the candidate's answer, scores it, and produces the
// interviewer's next turn. The reply to the greeting is stored unscored; every
// later answer goes through the analyzer. When the planned question budget is
// spent the reply is the closing turn and the session completes with
// synthesized feedback.
func (m *SessionManager) PostAnswer(ctx context.Context, sessionID, userID, content string, timeSpentSeconds int) (*PostAnswerResult, error) {
	session, err := m.repo.GetInterviewSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, models.ErrSessionNotFound
	}
	if session.UserID != userID {
		return nil, models.ErrAccessDenied
	}

	lastInterviewer, err := m.repo.GetLastMessageOfSender(ctx, sessionID, models.SenderInterviewer)
	if err != nil {
		return nil, err
	}
	if lastInterviewer == nil {
		// No greeting yet means the session was never started.
		return nil, models.ErrSessionNotActive
	}

	answer := &models.InterviewMessage{
		Sender:           models.SenderCandidate,
		Type:             models.MessageAnswer,
		Content:          content,
		TimeSpentSeconds: timeSpentSeconds,
	}

	// The reply to the greeting is conversational, not an assessed answer.
	scored := lastInterviewer.Type != models.MessageGreeting
	if scored {
		scores, degraded := m.analyzer.Analyze(ctx, AnalyzeRequest{
			Question:         lastInterviewer.Content,
			Answer:           content,
			Category:         lastInterviewer.Category,
			ExpectedKeywords: lastInterviewer.ExpectedKeywords,
		})
		answer.Scored = true
		answer.Scores = scores
		answer.Degraded = degraded
	}

	// Decide the reply before writing anything so the Oracle call never sits
	// inside the transaction. Appending answer and reply together means a
	// failed write can never park the transcript at candidate parity, which
	// would lock every later post out of its turn.
	reply, closing, err := m.nextInterviewerTurn(ctx, session, lastInterviewer, answer)
	if err != nil {
		return nil, err
	}
	err = m.repo.WithTx(ctx, func(tx *repository.GORMRepository) error {
		if _, err := tx.AppendMessage(ctx, sessionID, answer); err != nil {
			return err
		}
		updated, err := tx.AppendMessage(ctx, sessionID, reply)
		if err != nil {
			return err
		}
		session = updated
		return nil
	})
	if err != nil {
		return nil, err
	}
	m.publish(sessionID, reply)

	result := &PostAnswerResult{Answer: answer, Reply: reply, Status: session.Status}
	if closing {
		feedback, err := m.Complete(ctx, sessionID, userID)
		if err != nil {
			return nil, err
		}
		result.Status = models.SessionCompleted
		result.Feedback = feedback
	}
	return result, nil
}

// nextInterviewerTurn decides what the interviewer says after an answer. It
// runs before the answer is persisted, so the answer is threaded in by hand
// rather than read back. The returned bool reports that the turn is the
// closing one.
func (m *SessionManager) nextInterviewerTurn(ctx context.Context, session *models.InterviewSession, asked *models.InterviewMessage, answer *models.InterviewMessage) (*models.InterviewMessage, bool, error) {
	if answer.Scored {
		aggregate := answer.Scores.Aggregate()
		if m.dialogue.ShouldFollowUp(aggregate, asked) {
			return &models.InterviewMessage{
				Sender:   models.SenderInterviewer,
				Type:     models.MessageFollowUp,
				Content:  m.dialogue.FollowUp(ctx, session, asked.Content, answer.Content, aggregate),
				Category: asked.Category,
			}, false, nil
		}
		if m.dialogue.Done(session) {
			return &models.InterviewMessage{
				Sender:  models.SenderInterviewer,
				Type:    models.MessageClosing,
				Content: m.dialogue.Closing(session),
			}, true, nil
		}
	}

	scoredAnswers, err := m.repo.GetScoredCandidateMessages(ctx, session.ID)
	if err != nil {
		return nil, false, err
	}
	recent := make([]string, 0, len(scoredAnswers)+1)
	for _, a := range scoredAnswers {
		recent = append(recent, a.Content)
	}
	if answer.Scored {
		recent = append(recent, answer.Content)
	}
	question := m.dialogue.NextQuestion(ctx, session, recent)
	return &models.InterviewMessage{
		Sender:           models.SenderInterviewer,
		Type:             models.MessageQuestion,
		Content:          question.Question,
		Category:         question.Category,
		ExpectedKeywords: question.ExpectedKeywords,
	}, false, nil
}

// Complete transitions the session to completed and synthesizes its feedback
// in the same transaction. The unique index on feedback session_id makes a
// double completion fail loudly instead of silently rewriting the report.
func (m *SessionManager) Complete(ctx context.Context, sessionID, userID string) (*models.InterviewFeedback, error) {
	var feedback *models.InterviewFeedback
	err := m.repo.WithTx(ctx, func(tx *repository.GORMRepository) error {
		s, err := tx.GetInterviewSessionForUpdate(ctx, sessionID)
		if err != nil {
			return err
		}
		if s == nil {
			return models.ErrSessionNotFound
		}
		if s.UserID != userID {
			return models.ErrAccessDenied
		}
		next, ok := s.Status.Transition(models.EventComplete)
		if !ok {
			return &models.InvalidTransitionError{From: s.Status, Event: models.EventComplete}
		}
		now := time.Now()
		s.Status = next
		s.CompletedAt = &now
		s.LastActivityAt = now
		if err := tx.SaveSession(ctx, s); err != nil {
			return err
		}

		scoredTurns, err := tx.GetScoredCandidateMessages(ctx, sessionID)
		if err != nil {
			return err
		}
		scores := make([]models.TurnScores, 0, len(scoredTurns))
		for _, turn := range scoredTurns {
			scores = append(scores, turn.Scores)
		}
		feedback = m.feedback.Synthesize(sessionID, scores)
		if feedback != nil {
			if err := tx.CreateFeedback(ctx, feedback); err != nil {
				return err
			}
		}

		ledger, err := tx.GetOrCreateLedgerForUpdate(ctx, s.UserID)
		if err != nil {
			return err
		}
		ledger.CompletedSessions++
		if feedback != nil && feedback.OverallScore > ledger.BestScore {
			ledger.BestScore = feedback.OverallScore
		}
		return tx.SaveLedger(ctx, ledger)
	})
	if err != nil {
		return nil, err
	}
	score := 0.0
	if feedback != nil {
		score = feedback.OverallScore
	}
	slog.Info("Interview session completed", "session_id", sessionID, "overall_score", score)
	return feedback, nil
}

// GetSession returns the session with its full transcript and feedback. Only
// the candidate who owns it or the recruiter who assigned it may read it.
func (m *SessionManager) GetSession(ctx context.Context, sessionID, callerID string) (*models.InterviewSession, error) {
	session, err := m.repo.GetInterviewSessionWithDetails(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, models.ErrSessionNotFound
	}
	if session.UserID != callerID && (session.AssignedBy == nil || *session.AssignedBy != callerID) {
		return nil, models.ErrAccessDenied
	}
	return session, nil
}

// History lists the caller's own sessions, newest first, with feedback.
func (m *SessionManager) History(ctx context.Context, userID string) ([]models.InterviewSession, error) {
	return m.repo.GetSessionsByUser(ctx, userID)
}

// Usage reports the caller's quota standing and ledger stats.
func (m *SessionManager) Usage(ctx context.Context, userID string) (*QuotaVerdict, *models.UsageLedger, error) {
	verdict, err := m.quota.Check(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	ledger, err := m.repo.GetLedger(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	if ledger == nil {
		ledger = &models.UsageLedger{UserID: userID}
	}
	return verdict, ledger, nil
}

func (m *SessionManager) publish(sessionID string, msg *models.InterviewMessage) {
	if m.publisher != nil {
		m.publisher.PublishTurn(sessionID, msg)
	}
}
