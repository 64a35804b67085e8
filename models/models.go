package models

// This file serves as the central export point for all database models
// Import this package to access all model types

// All models are automatically exported from their respective files:
// - User from user.go
// - InterviewSession plus the status/event enums from session.go
// - InterviewMessage, TurnScores from message.go
// - InterviewFeedback from feedback.go
// - UsageLedger from usage.go
// - RetakePayment from payment.go

// Database schema overview:
// 1. users - candidates and recruiters, with plan/subscription info for quota checks
// 2. interview_sessions - one row per interview attempt with an immutable config snapshot
// 3. interview_messages - the ordered, strictly alternating turn-by-turn dialogue
// 4. interview_feedbacks - exactly one aggregate report per completed session
// 5. usage_ledgers - per-user free/monthly consumption counters
// 6. retake_payments - one row per retake attempt, gating session re-arming
