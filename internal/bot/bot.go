// Package bot provides the Telegram bot initialization and handler registration.
package bot

import (
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"leetcode-practice-bot/internal/config"
	"leetcode-practice-bot/internal/handler"
	"leetcode-practice-bot/internal/repository"
	"leetcode-practice-bot/internal/scheduler"
	"leetcode-practice-bot/internal/service"
)

// Bot wraps the telebot instance with application dependencies.
type Bot struct {
	bot *tele.Bot
	cfg *config.Config

	submitHandler  *handler.SubmitHandler
	statsHandler   *handler.StatsHandler
	problemHandler *handler.ProblemHandler
	profileHandler *handler.ProfileHandler
	adminHandler   *handler.AdminHandler
}

// Dependencies holds everything the bot handlers need.
type Dependencies struct {
	Config            *config.Config
	SubmissionService *service.SubmissionService
	StatsService      *service.StatsService
	Scheduler         *scheduler.Scheduler
	ProblemRepo       *repository.ProblemRepository
	UserRepo          *repository.UserRepository
}

// New creates a new Bot instance with the given dependencies.
func New(deps *Dependencies) (*Bot, error) {
	if deps.Config.Bot.Token == "" {
		return nil, fmt.Errorf("bot token is required")
	}

	pref := tele.Settings{
		Token:  deps.Config.Bot.Token,
		Poller: &tele.LongPoller{Timeout: 10 * time.Second},
	}

	teleBot, err := tele.NewBot(pref)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}

	b := &Bot{
		bot: teleBot,
		cfg: deps.Config,
	}

	b.submitHandler = handler.NewSubmitHandler(deps.SubmissionService)
	b.statsHandler = handler.NewStatsHandler(deps.StatsService, deps.Config.Bot.LeaderboardSize)
	b.problemHandler = handler.NewProblemHandler(deps.ProblemRepo)
	b.profileHandler = handler.NewProfileHandler(deps.SubmissionService, deps.UserRepo)
	b.adminHandler = handler.NewAdminHandler(deps.Scheduler, deps.ProblemRepo, deps.UserRepo)

	b.registerMiddleware()
	b.registerHandlers()

	return b, nil
}

// registerMiddleware registers all middleware.
func (b *Bot) registerMiddleware() {
	b.bot.Use(RecoveryMiddleware())
	b.bot.Use(WhitelistMiddleware(b.cfg))
	b.bot.Use(LoggingMiddleware())
}

// registerHandlers registers all command handlers.
func (b *Bot) registerHandlers() {
	b.bot.Handle("/start", b.handleStart)
	b.bot.Handle("/help", b.handleStart)

	// Submissions and stats
	b.bot.Handle("/submit", b.submitHandler.HandleSubmit)
	b.bot.Handle("/stats", b.statsHandler.HandleStats)
	b.bot.Handle("/leaderboard", b.statsHandler.HandleLeaderboard)

	// Problems
	b.bot.Handle("/potd", b.problemHandler.HandlePotd)
	b.bot.Handle("/problem", b.problemHandler.HandleProblem)

	// Profile
	b.bot.Handle("/link", b.profileHandler.HandleLink)
	b.bot.Handle("/setyear", b.profileHandler.HandleSetYear)

	// Admin handlers (with admin middleware)
	adminGroup := b.bot.Group()
	adminGroup.Use(AdminMiddleware(b.cfg))
	adminGroup.Handle("/addproblem", b.problemHandler.HandleAddProblem)
	adminGroup.Handle("/loadproblems", b.problemHandler.HandleLoadProblems)
	adminGroup.Handle("/potd_set", b.adminHandler.HandlePotdSet)
	adminGroup.Handle("/potd_remove", b.adminHandler.HandlePotdRemove)
	adminGroup.Handle("/potd_clear", b.adminHandler.HandlePotdClear)
	adminGroup.Handle("/potd_force", b.adminHandler.HandlePotdForce)
	adminGroup.Handle("/potd_preview", b.adminHandler.HandlePotdPreview)
	adminGroup.Handle("/potd_queue", b.adminHandler.HandlePotdQueue)
	adminGroup.Handle("/resetuser", b.adminHandler.HandleResetUser)
}

// handleStart handles /start and /help.
func (b *Bot) handleStart(c tele.Context) error {
	return c.Reply(
		"👋 Welcome to the practice tracker!\n\n" +
			"Commands:\n" +
			"/submit <problem> - Record a solved problem\n" +
			"/stats - Your points, streaks and history\n" +
			"/leaderboard [weekly|monthly] - Rankings\n" +
			"/potd - Today's featured problems\n" +
			"/problem <name> - Look a problem up\n" +
			"/link <platform> <handle> - Link your account\n" +
			"/setyear <1-4> - Set your student year",
	)
}

// Start starts the bot polling. Blocks until Stop is called.
func (b *Bot) Start() {
	log.Info().Msg("Starting bot...")
	b.bot.Start()
}

// Stop stops the bot gracefully.
func (b *Bot) Stop() {
	log.Info().Msg("Stopping bot...")
	b.bot.Stop()
}

// GetBot returns the underlying telebot instance.
func (b *Bot) GetBot() *tele.Bot {
	return b.bot
}

// Announcer posts daily rotation results to the configured chat. It
// implements scheduler.Poster.
type Announcer struct {
	bot    *tele.Bot
	chatID int64
}

// NewAnnouncer creates an Announcer. A zero chatID disables posting.
func NewAnnouncer(bot *tele.Bot, chatID int64) *Announcer {
	return &Announcer{bot: bot, chatID: chatID}
}

// PostDaily publishes the day's featured problems.
func (a *Announcer) PostDaily(date time.Time, picks []scheduler.Pick) {
	if a.chatID == 0 || len(picks) == 0 {
		return
	}

	msg := "📌 Problems of the Day, " + date.Format("Jan 2") + "\n━━━━━━━━━━━━━━━"
	for _, pick := range picks {
		title := pick.Problem.Slug
		if pick.Problem.Title != nil {
			title = *pick.Problem.Title
		}
		msg += fmt.Sprintf("\nTier %d: %s", pick.Tier, title)
		if pick.Problem.Difficulty != nil {
			msg += " (" + *pick.Problem.Difficulty + ")"
		}
		msg += "\n" + pick.Problem.URL()
	}
	msg += "\n━━━━━━━━━━━━━━━\nSolve it and /submit to claim your points!"

	if _, err := a.bot.Send(tele.ChatID(a.chatID), msg, tele.NoPreview); err != nil {
		log.Error().Err(err).Int64("chat_id", a.chatID).Msg("Failed to post daily problems")
	}
}
