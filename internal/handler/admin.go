package handler

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	tele "gopkg.in/telebot.v3"

	"leetcode-practice-bot/internal/model"
	"leetcode-practice-bot/internal/repository"
	"leetcode-practice-bot/internal/scheduler"
	"leetcode-practice-bot/internal/service"
)

// AdminHandler handles admin commands for the daily rotation and user
// management.
type AdminHandler struct {
	scheduler   *scheduler.Scheduler
	problemRepo *repository.ProblemRepository
	userRepo    *repository.UserRepository
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(sched *scheduler.Scheduler, problemRepo *repository.ProblemRepository, userRepo *repository.UserRepository) *AdminHandler {
	return &AdminHandler{
		scheduler:   sched,
		problemRepo: problemRepo,
		userRepo:    userRepo,
	}
}

// HandlePotdSet handles the /potd_set command.
// Usage: /potd_set <tier> <name or slug> replaces today's featured
// problem for the tier.
func (h *AdminHandler) HandlePotdSet(c tele.Context) error {
	ctx := context.Background()

	args := c.Args()
	if len(args) < 2 {
		return c.Reply("Usage: /potd_set <tier> <name or slug>")
	}

	tier, err := strconv.Atoi(args[0])
	if err != nil || tier < 0 {
		return c.Reply("❌ Tier must be a non-negative number")
	}

	canonical := service.NormalizeSlug(strings.Join(args[1:], " "))
	if canonical == "" {
		return c.Reply("❌ Problem name is empty after normalization")
	}

	problem, err := h.scheduler.SetPotd(ctx, tier, canonical, model.PlatformLeetCode)
	if err != nil {
		return c.Reply("❌ Failed to set the featured problem, please try again later")
	}

	return c.Reply(fmt.Sprintf("📌 Tier %d now features %s\n%s", tier, problem.Slug, problem.URL()), tele.NoPreview)
}

// HandlePotdRemove handles the /potd_remove command.
// Usage: /potd_remove <name or slug> unfeatures the problem without
// returning it to the unused pool.
func (h *AdminHandler) HandlePotdRemove(c tele.Context) error {
	ctx := context.Background()

	args := c.Args()
	if len(args) == 0 {
		return c.Reply("Usage: /potd_remove <name or slug>")
	}

	canonical := service.NormalizeSlug(strings.Join(args, " "))
	if err := h.problemRepo.UnmarkPotd(ctx, canonical, model.PlatformLeetCode); err != nil {
		if errors.Is(err, repository.ErrProblemNotFound) {
			return c.Reply(fmt.Sprintf("🔍 %q is not currently featured.", canonical))
		}
		return c.Reply("❌ Failed to remove the featured problem, please try again later")
	}

	return c.Reply(fmt.Sprintf("🗑 %s is no longer featured.", canonical))
}

// HandlePotdClear handles the /potd_clear command.
// Usage: /potd_clear [tier] clears the featured flag on one tier, or on
// every tier when no argument is given.
func (h *AdminHandler) HandlePotdClear(c tele.Context) error {
	ctx := context.Background()
	args := c.Args()

	var cleared int64
	var err error
	if len(args) > 0 {
		tier, convErr := strconv.Atoi(args[0])
		if convErr != nil {
			return c.Reply("❌ Usage: /potd_clear [tier]")
		}
		cleared, err = h.problemRepo.ClearPotd(ctx, tier)
	} else {
		cleared, err = h.problemRepo.ClearPotdAll(ctx)
	}
	if err != nil {
		return c.Reply("❌ Failed to clear featured problems, please try again later")
	}

	return c.Reply(fmt.Sprintf("🧹 Cleared %d featured problem(s).", cleared))
}

// HandlePotdForce handles the /potd_force command.
// Runs the daily rotation immediately. A cycle that already ran today is
// reported, not repeated.
func (h *AdminHandler) HandlePotdForce(c tele.Context) error {
	ctx := context.Background()

	result, err := h.scheduler.Run(ctx)
	if err != nil {
		return c.Reply("❌ Rotation failed, check the logs")
	}

	if result.Skipped {
		return c.Reply("ℹ️ Today's rotation already ran. Use /potd_set to override a tier.")
	}

	return c.Reply(renderCycle("🚀 Rotation complete", result))
}

// HandlePotdPreview handles the /potd_preview command.
// Shows what the next rotation would select without committing anything.
func (h *AdminHandler) HandlePotdPreview(c tele.Context) error {
	ctx := context.Background()

	result, err := h.scheduler.Preview(ctx)
	if err != nil {
		return c.Reply("❌ Preview failed, check the logs")
	}

	return c.Reply(renderCycle("🔮 Next rotation would select", result))
}

// HandlePotdQueue handles the /potd_queue command.
// Shows per-tier bank depth: total problems and how many remain unused.
func (h *AdminHandler) HandlePotdQueue(c tele.Context) error {
	ctx := context.Background()

	queues, err := h.problemRepo.QueueStatus(ctx)
	if err != nil {
		return c.Reply("❌ Failed to load queue status, please try again later")
	}

	if len(queues) == 0 {
		return c.Reply("📭 The problem bank is empty. Use /loadproblems to fill it.")
	}

	msg := "📚 Problem bank\n━━━━━━━━━━━━━━━"
	for _, q := range queues {
		marker := ""
		if q.Unused == 0 {
			marker = " ⚠️ exhausted"
		}
		msg += fmt.Sprintf("\nTier %d: %d unused of %d%s", q.Tier, q.Unused, q.Total, marker)
	}
	return c.Reply(msg)
}

// HandleResetUser handles the /resetuser command.
// Usage: reply to a user's message, or /resetuser <telegram id>. Deletes
// the user and, by cascade, their submission history.
func (h *AdminHandler) HandleResetUser(c tele.Context) error {
	ctx := context.Background()

	var targetID int64
	if msg := c.Message(); msg != nil && msg.ReplyTo != nil && msg.ReplyTo.Sender != nil {
		targetID = msg.ReplyTo.Sender.ID
	} else if args := c.Args(); len(args) == 1 {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return c.Reply("❌ Invalid telegram id")
		}
		targetID = id
	} else {
		return c.Reply("Usage: reply to the user with /resetuser, or /resetuser <telegram id>")
	}

	if err := h.userRepo.Delete(ctx, targetID); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return c.Reply("🔍 That user has no account.")
		}
		return c.Reply("❌ Failed to reset the user, please try again later")
	}

	return c.Reply(fmt.Sprintf("♻️ User %d reset. Points, streaks and history are gone.", targetID))
}

// renderCycle formats a rotation outcome for admin display.
func renderCycle(header string, result *scheduler.CycleResult) string {
	msg := header + " (" + result.Date.Format("2006-01-02") + ")"
	for _, pick := range result.Picks {
		slugName := pick.Problem.Slug
		msg += fmt.Sprintf("\nTier %d: %s", pick.Tier, slugName)
	}
	if len(result.Exhausted) > 0 {
		msg += fmt.Sprintf("\n⚠️ Exhausted tiers: %v, refill with /loadproblems", result.Exhausted)
	}
	if len(result.Picks) == 0 && len(result.Exhausted) == 0 {
		msg += "\n📭 No tiers configured or bank empty."
	}
	return msg
}
