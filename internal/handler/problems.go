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

// ProblemHandler handles problem bank and daily-problem commands.
type ProblemHandler struct {
	problemRepo *repository.ProblemRepository
}

// NewProblemHandler creates a new ProblemHandler.
func NewProblemHandler(problemRepo *repository.ProblemRepository) *ProblemHandler {
	return &ProblemHandler{problemRepo: problemRepo}
}

// HandlePotd handles the /potd command.
// Shows the currently featured problem for every tier.
func (h *ProblemHandler) HandlePotd(c tele.Context) error {
	ctx := context.Background()

	problems, err := h.problemRepo.CurrentPotd(ctx)
	if err != nil {
		return c.Reply("❌ Failed to load today's problems, please try again later")
	}

	if len(problems) == 0 {
		return c.Reply("📭 No problem is featured right now. Check back after the daily post!")
	}

	msg := "📌 Problems of the Day\n━━━━━━━━━━━━━━━"
	for _, p := range problems {
		msg += "\n" + formatProblemLine(p)
	}

	return c.Reply(msg, tele.NoPreview)
}

// HandleProblem handles the /problem command.
// Usage: /problem <name or slug> looks a problem up in the local bank.
func (h *ProblemHandler) HandleProblem(c tele.Context) error {
	ctx := context.Background()

	args := c.Args()
	if len(args) == 0 {
		return c.Reply("Usage: /problem <name or slug>")
	}

	canonical := service.NormalizeSlug(strings.Join(args, " "))
	problem, err := h.problemRepo.Get(ctx, canonical, model.PlatformLeetCode)
	if err != nil {
		if errors.Is(err, repository.ErrProblemNotFound) {
			return c.Reply(fmt.Sprintf("🔍 %q is not in the problem bank.", canonical))
		}
		return c.Reply("❌ Lookup failed, please try again later")
	}

	msg := formatProblemLine(problem)
	if problem.PotdDate != nil {
		msg += fmt.Sprintf("\nFeatured on %s", problem.PotdDate.Format("2006-01-02"))
	}
	return c.Reply(msg, tele.NoPreview)
}

// HandleAddProblem handles the /addproblem command (admin).
// Usage: /addproblem <tier> <topic> <difficulty|-> <name or slug>
func (h *ProblemHandler) HandleAddProblem(c tele.Context) error {
	ctx := context.Background()

	args := c.Args()
	if len(args) < 4 {
		return c.Reply("Usage: /addproblem <tier> <topic> <difficulty|-> <name>\nExample: /addproblem 2 Graphs Medium Course Schedule")
	}

	tier, err := strconv.Atoi(args[0])
	if err != nil || tier < 0 {
		return c.Reply("❌ Tier must be a non-negative number")
	}
	topic := args[1]

	var difficulty *string
	if args[2] != "-" {
		d := canonicalDifficulty(args[2])
		if d == "" {
			return c.Reply("❌ Difficulty must be Easy, Medium, Hard or -")
		}
		difficulty = &d
	}

	name := strings.Join(args[3:], " ")
	canonical := service.NormalizeSlug(name)
	if canonical == "" {
		return c.Reply("❌ Problem name is empty after normalization")
	}
	title := strings.TrimSpace(name)

	problem, err := h.problemRepo.Create(ctx, canonical, model.PlatformLeetCode, &title, difficulty, topic, tier)
	if err != nil {
		if errors.Is(err, repository.ErrProblemExists) {
			return c.Reply(fmt.Sprintf("ℹ️ %q is already in the bank.", canonical))
		}
		return c.Reply("❌ Failed to add the problem, please try again later")
	}

	return c.Reply(fmt.Sprintf("✅ Added %s to tier %d (%s)", problem.Slug, problem.Tier, problem.Topic))
}

// HandleLoadProblems handles the /loadproblems command (admin).
// Bulk load, one problem per line after the command:
//
//	/loadproblems <tier> <topic>
//	two-sum
//	valid-parentheses Easy
func (h *ProblemHandler) HandleLoadProblems(c tele.Context) error {
	ctx := context.Background()

	lines := strings.Split(c.Text(), "\n")
	header := strings.Fields(lines[0])
	if len(header) < 3 || len(lines) < 2 {
		return c.Reply("Usage:\n/loadproblems <tier> <topic>\n<slug> [difficulty]\n<slug> [difficulty]\n...")
	}

	tier, err := strconv.Atoi(header[1])
	if err != nil || tier < 0 {
		return c.Reply("❌ Tier must be a non-negative number")
	}
	topic := strings.Join(header[2:], " ")

	var added, skipped, failed int
	for _, line := range lines[1:] {
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}

		var difficulty *string
		if len(fields) > 1 {
			if d := canonicalDifficulty(fields[len(fields)-1]); d != "" {
				difficulty = &d
				fields = fields[:len(fields)-1]
			}
		}

		canonical := service.NormalizeSlug(strings.Join(fields, " "))
		if canonical == "" {
			failed++
			continue
		}

		_, err := h.problemRepo.Create(ctx, canonical, model.PlatformLeetCode, nil, difficulty, topic, tier)
		switch {
		case err == nil:
			added++
		case errors.Is(err, repository.ErrProblemExists):
			skipped++
		default:
			failed++
		}
	}

	msg := fmt.Sprintf("📥 Loaded into tier %d (%s)\n✅ Added: %d", tier, topic, added)
	if skipped > 0 {
		msg += fmt.Sprintf("\nℹ️ Already present: %d", skipped)
	}
	if failed > 0 {
		msg += fmt.Sprintf("\n❌ Failed: %d", failed)
	}
	return c.Reply(msg)
}

// formatProblemLine renders one problem as a single display line.
func formatProblemLine(p *model.Problem) string {
	title := p.Slug
	if p.Title != nil {
		title = *p.Title
	}

	line := fmt.Sprintf("Tier %d: %s", p.Tier, title)
	if p.Difficulty != nil {
		line += " (" + *p.Difficulty + ")"
	}
	line += "\n" + p.URL()
	return line
}

// canonicalDifficulty maps case-insensitive input to a difficulty label,
// returning "" when it is not one.
func canonicalDifficulty(s string) string {
	switch strings.ToLower(s) {
	case "easy":
		return model.DifficultyEasy
	case "medium":
		return model.DifficultyMedium
	case "hard":
		return model.DifficultyHard
	}
	return ""
}
