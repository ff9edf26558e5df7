package handler

import (
	"context"
	"fmt"

	tele "gopkg.in/telebot.v3"

	"leetcode-practice-bot/internal/service"
)

// StatsHandler handles statistics and leaderboard commands.
type StatsHandler struct {
	statsService    *service.StatsService
	leaderboardSize int
}

// NewStatsHandler creates a new StatsHandler.
func NewStatsHandler(statsService *service.StatsService, leaderboardSize int) *StatsHandler {
	if leaderboardSize <= 0 {
		leaderboardSize = 10
	}
	return &StatsHandler{
		statsService:    statsService,
		leaderboardSize: leaderboardSize,
	}
}

// HandleStats handles the /stats command.
// Shows the sender's stats, or the replied-to user's when used as a reply.
func (h *StatsHandler) HandleStats(c tele.Context) error {
	ctx := context.Background()
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	target := sender
	if msg := c.Message(); msg != nil && msg.ReplyTo != nil && msg.ReplyTo.Sender != nil {
		target = msg.ReplyTo.Sender
	}

	stats, err := h.statsService.UserStats(ctx, target.ID, 5)
	if err != nil {
		return c.Reply("📊 No stats yet. Submit a problem with /submit to get started!")
	}

	displayName := stats.User.Username
	if displayName == "" {
		displayName = fmt.Sprintf("User%d", stats.User.TelegramID)
	}

	msg := fmt.Sprintf(
		"📊 Stats for @%s\n"+
			"━━━━━━━━━━━━━━━\n"+
			"🏅 Points: %d (rank #%d)\n"+
			"🔥 Daily streak: %d\n"+
			"📅 Weekly streak: %d\n"+
			"✅ Submissions: %d",
		displayName, stats.User.TotalPoints, stats.Rank,
		stats.User.DailyStreak, stats.User.WeeklyStreak, stats.Submissions,
	)

	if len(stats.Recent) > 0 {
		msg += "\n━━━━━━━━━━━━━━━\nRecent:"
		for _, sub := range stats.Recent {
			msg += fmt.Sprintf("\n• %s (+%d) %s",
				sub.ProblemSlug, sub.PointsAwarded, sub.SubmittedAt.Format("Jan 2"))
		}
	}

	return c.Reply(msg)
}

// HandleLeaderboard handles the /leaderboard command.
// Usage: /leaderboard [weekly|monthly]
func (h *StatsHandler) HandleLeaderboard(c tele.Context) error {
	ctx := context.Background()

	period := service.PeriodAllTime
	title := "🏆 All-Time Leaderboard"
	if args := c.Args(); len(args) > 0 {
		switch args[0] {
		case "weekly", "week":
			period = service.PeriodWeekly
			title = "🏆 Weekly Leaderboard"
		case "monthly", "month":
			period = service.PeriodMonthly
			title = "🏆 Monthly Leaderboard"
		case "alltime", "all":
		default:
			return c.Reply("Usage: /leaderboard [weekly|monthly]")
		}
	}

	rows, err := h.statsService.Leaderboard(ctx, period, h.leaderboardSize)
	if err != nil {
		return c.Reply("❌ Failed to load the leaderboard, please try again later")
	}

	if len(rows) == 0 {
		return c.Reply("📊 Nothing on the board yet. Be the first with /submit!")
	}

	msg := title + "\n━━━━━━━━━━━━━━━\n"
	medals := []string{"🥇", "🥈", "🥉"}
	for i, row := range rows {
		rank := fmt.Sprintf("%d.", i+1)
		if i < 3 {
			rank = medals[i]
		}

		displayName := row.Username
		if displayName == "" {
			displayName = fmt.Sprintf("User%d", row.UserID)
		}

		msg += fmt.Sprintf("%s @%s: %d\n", rank, displayName, row.Points)
	}
	msg += "━━━━━━━━━━━━━━━"

	return c.Reply(msg)
}
