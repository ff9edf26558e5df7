// Package handler provides Telegram bot command handlers.
package handler

import (
	"context"
	"fmt"
	"strings"
	"time"

	tele "gopkg.in/telebot.v3"

	"leetcode-practice-bot/internal/service"
)

// SubmitHandler handles practice submission commands.
type SubmitHandler struct {
	submissionService *service.SubmissionService
}

// NewSubmitHandler creates a new SubmitHandler.
func NewSubmitHandler(submissionService *service.SubmissionService) *SubmitHandler {
	return &SubmitHandler{submissionService: submissionService}
}

// HandleSubmit handles the /submit command.
// Usage: /submit <problem name or slug>
func (h *SubmitHandler) HandleSubmit(c tele.Context) error {
	ctx := context.Background()
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	args := c.Args()
	if len(args) == 0 {
		return c.Reply("Usage: /submit <problem name>\nExample: /submit Two Sum")
	}
	rawName := strings.Join(args, " ")

	username := sender.Username
	if username == "" {
		username = sender.FirstName
	}

	result, err := h.submissionService.Submit(ctx, sender.ID, username, rawName, time.Now())
	if err != nil {
		if rej, ok := service.AsRejection(err); ok {
			return c.Reply(renderRejection(rej))
		}
		return c.Reply("❌ Submission failed, please try again later")
	}

	return c.Reply(renderAccepted(username, result))
}

// renderRejection turns a structured refusal into a user-facing message.
func renderRejection(rej *service.Rejection) string {
	switch rej.Reason {
	case service.ReasonCooldown:
		return fmt.Sprintf("⏰ Slow down! Please %s.", rej.Message)
	case service.ReasonDuplicate:
		msg := "🔁 Already counted: " + rej.Message
		if rej.PriorSubmission != nil {
			msg += fmt.Sprintf("\nLast counted on %s.", rej.PriorSubmission.Format("2006-01-02"))
		}
		return msg
	default:
		return "❌ " + rej.Message
	}
}

// renderAccepted builds the confirmation with the points breakdown.
func renderAccepted(username string, result *service.SubmitResult) string {
	score := result.Score

	title := result.Problem.Slug
	if result.Problem.Title != nil {
		title = *result.Problem.Title
	}
	difficulty := "Unknown"
	if result.Problem.Difficulty != nil {
		difficulty = *result.Problem.Difficulty
	}

	msg := fmt.Sprintf(
		"✅ @%s solved %s (%s)\n"+
			"━━━━━━━━━━━━━━━\n"+
			"💠 Base: %d points",
		username, title, difficulty, score.Base,
	)
	if score.DailyBonus > 0 {
		msg += fmt.Sprintf("\n🔥 Daily streak bonus: +%d (streak %d)", score.DailyBonus, score.DailyStreak)
	}
	if score.WeeklyBonus > 0 {
		msg += fmt.Sprintf("\n📅 Weekly streak bonus: +%d (week %d)", score.WeeklyBonus, score.WeeklyStreak)
	}
	msg += fmt.Sprintf(
		"\n━━━━━━━━━━━━━━━\n"+
			"🏅 Awarded: %d | Total: %d",
		score.Total, result.User.TotalPoints,
	)
	return msg
}
