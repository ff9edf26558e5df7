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
	"leetcode-practice-bot/internal/service"
)

// ProfileHandler handles profile commands: platform handles and student year.
type ProfileHandler struct {
	submissionService *service.SubmissionService
	userRepo          *repository.UserRepository
}

// NewProfileHandler creates a new ProfileHandler.
func NewProfileHandler(submissionService *service.SubmissionService, userRepo *repository.UserRepository) *ProfileHandler {
	return &ProfileHandler{
		submissionService: submissionService,
		userRepo:          userRepo,
	}
}

// HandleLink handles the /link command.
// Usage: /link <leetcode|codeforces> <handle>
func (h *ProfileHandler) HandleLink(c tele.Context) error {
	ctx := context.Background()
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	args := c.Args()
	if len(args) != 2 {
		return c.Reply("Usage: /link <leetcode|codeforces> <handle>")
	}

	var platform string
	switch strings.ToLower(args[0]) {
	case model.PlatformLeetCode, "lc":
		platform = model.PlatformLeetCode
	case model.PlatformCodeforces, "cf":
		platform = model.PlatformCodeforces
	default:
		return c.Reply("❌ Platform must be leetcode or codeforces")
	}

	handle := strings.TrimSpace(args[1])
	if handle == "" {
		return c.Reply("❌ Handle must not be empty")
	}

	username := sender.Username
	if username == "" {
		username = sender.FirstName
	}
	if _, _, err := h.submissionService.EnsureUser(ctx, sender.ID, username); err != nil {
		return c.Reply("❌ Failed to link the handle, please try again later")
	}

	if err := h.userRepo.SetHandle(ctx, sender.ID, platform, handle); err != nil {
		if errors.Is(err, repository.ErrHandleTaken) {
			return c.Reply(fmt.Sprintf("❌ The %s handle %q is already linked to someone else", platform, handle))
		}
		return c.Reply("❌ Failed to link the handle, please try again later")
	}

	return c.Reply(fmt.Sprintf("🔗 Linked your %s handle: %s", platform, handle))
}

// HandleSetYear handles the /setyear command.
// Usage: /setyear <1-4>
func (h *ProfileHandler) HandleSetYear(c tele.Context) error {
	ctx := context.Background()
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	args := c.Args()
	if len(args) != 1 {
		return c.Reply("Usage: /setyear <1-4>")
	}

	year, err := strconv.Atoi(args[0])
	if err != nil || year < 1 || year > 4 {
		return c.Reply("❌ Year must be between 1 and 4")
	}

	username := sender.Username
	if username == "" {
		username = sender.FirstName
	}
	if _, _, err := h.submissionService.EnsureUser(ctx, sender.ID, username); err != nil {
		return c.Reply("❌ Failed to set your year, please try again later")
	}

	if err := h.userRepo.SetStudentYear(ctx, sender.ID, year); err != nil {
		return c.Reply("❌ Failed to set your year, please try again later")
	}

	return c.Reply(fmt.Sprintf("🎓 Student year set to %d. Daily problems for tier %d apply to you.", year, year))
}
