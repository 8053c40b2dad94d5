// Package bot implements the Telegram front end: the main menu, delivery of
// matched jobs, and the interactive bid flow.
package bot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/gigmatch/gigmatch/internal/matcher"
	"github.com/gigmatch/gigmatch/internal/model"
	"github.com/gigmatch/gigmatch/internal/store"
	"github.com/gigmatch/gigmatch/internal/workflow"
)

const greeting = "Welcome to GigMatch!\n" +
	"• Use the button below to open the mini app and edit your profile.\n" +
	"• Tap Start job matching when you are ready to receive leads."

// Options carries the bot's static configuration.
type Options struct {
	Token         string
	WebAppURL     string
	MenuPhotoURL  string
	DrainInterval time.Duration
}

// Bot runs the Telegram long-polling loop and routes updates into the
// matcher and the bid workflow.
type Bot struct {
	api      *tgbotapi.BotAPI
	matcher  *matcher.Service
	flow     *workflow.Service
	profiles *store.ProfileStore
	opts     Options
	logger   *slog.Logger
}

// New authenticates with the Telegram Bot API and wires the bot.
func New(opts Options, m *matcher.Service, flow *workflow.Service, profiles *store.ProfileStore, logger *slog.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(opts.Token)
	if err != nil {
		return nil, fmt.Errorf("telegram auth: %w", err)
	}
	if opts.DrainInterval <= 0 {
		opts.DrainInterval = 5 * time.Second
	}
	return &Bot{
		api:      api,
		matcher:  m,
		flow:     flow,
		profiles: profiles,
		opts:     opts,
		logger:   logger,
	}, nil
}

// Run polls for updates and drains ready deliveries until ctx is cancelled.
func (b *Bot) Run(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30
	updates := b.api.GetUpdatesChan(u)

	ticker := time.NewTicker(b.opts.DrainInterval)
	defer ticker.Stop()

	b.logger.Info("telegram bot started", "username", b.api.Self.UserName)
	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return ctx.Err()
		case <-ticker.C:
			b.deliverMatches()
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			b.handleUpdate(ctx, update)
		}
	}
}

// deliverMatches pushes every queued delivery to its user and marks the
// records presented.
func (b *Bot) deliverMatches() {
	for _, d := range b.matcher.DrainReady() {
		keyboard := tgbotapi.NewInlineKeyboardMarkup(
			tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData("💼 Bid this job", callbackData("bid", d.Job.ID)),
			),
		)
		msg := tgbotapi.NewMessage(d.UserID, summaryHTML(d.Job))
		msg.ParseMode = tgbotapi.ModeHTML
		msg.ReplyMarkup = keyboard
		if _, err := b.api.Send(msg); err != nil {
			b.logger.Warn("delivering job failed", "user", d.UserID, "job", d.Job.ID, "error", err)
			continue
		}
		if err := b.flow.Present(d.UserID, d.Job.ID); err != nil {
			b.logger.Warn("marking job presented failed", "user", d.UserID, "job", d.Job.ID, "error", err)
		}
	}
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	switch {
	case update.CallbackQuery != nil:
		b.handleCallback(ctx, update.CallbackQuery)
	case update.Message != nil && update.Message.WebAppData != nil:
		b.handleWebAppData(ctx, update.Message)
	case update.Message != nil && update.Message.IsCommand():
		b.handleCommand(ctx, update.Message)
	}
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	switch msg.Command() {
	case "start":
		b.sendMenu(msg.Chat.ID, msg.From.ID)
	case "bidform":
		b.handleBidFormCommand(ctx, msg)
	}
}

// sendMenu sends the greeting with the profile web-app keyboard plus the
// control panel.
func (b *Bot) sendMenu(chatID, userID int64) {
	label := "Create Profile"
	if _, err := b.profiles.Get(userID); err == nil {
		label = "Edit Profile"
	}
	replyKeyboard := tgbotapi.NewReplyKeyboard(
		[]tgbotapi.KeyboardButton{{
			Text:   label,
			WebApp: &tgbotapi.WebAppInfo{URL: b.opts.WebAppURL},
		}},
	)

	if b.opts.MenuPhotoURL != "" {
		photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileURL(b.opts.MenuPhotoURL))
		photo.Caption = greeting
		photo.ReplyMarkup = replyKeyboard
		b.send(photo)
	} else {
		msg := tgbotapi.NewMessage(chatID, greeting)
		msg.ReplyMarkup = replyKeyboard
		b.send(msg)
	}

	panel := tgbotapi.NewMessage(chatID, "Control panel:")
	panel.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("▶️ Start job matching", "action:start"),
			tgbotapi.NewInlineKeyboardButtonData("⏹ Stop job matching", "action:stop"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("View profile", "action:view"),
		),
	)
	b.send(panel)
}

func (b *Bot) handleCallback(ctx context.Context, query *tgbotapi.CallbackQuery) {
	if _, err := b.api.Request(tgbotapi.NewCallback(query.ID, "")); err != nil {
		b.logger.Warn("answering callback failed", "error", err)
	}
	if query.Message == nil {
		return
	}
	chatID := query.Message.Chat.ID
	messageID := query.Message.MessageID
	userID := query.From.ID

	kind, arg := splitCallback(query.Data)
	if kind == "action" {
		switch arg {
		case "start":
			b.matcher.Activate(userID)
			b.edit(chatID, messageID, "Job matching started. We'll notify you about new leads.")
		case "stop":
			b.matcher.Deactivate(userID)
			b.edit(chatID, messageID, "Job matching paused.")
		case "view":
			b.sendProfileSummary(chatID, messageID, userID)
		}
		return
	}

	jobID, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		b.logger.Warn("malformed callback data", "data", query.Data)
		return
	}

	switch kind {
	case "bid":
		b.showJobDetails(chatID, messageID, userID, jobID)
	case "draft":
		b.edit(chatID, messageID, "✍️ Drafting your bid…")
		// Cover-letter generation blocks on the network; keep polling.
		go b.draftBid(ctx, chatID, userID, jobID, 0, 0)
	case "confirm":
		b.edit(chatID, messageID, "Placing your bid…")
		go b.confirmBid(ctx, chatID, userID, jobID)
	case "cancel":
		if err := b.flow.CancelBid(userID, jobID); err != nil {
			b.reportActionError(chatID, err)
			return
		}
		b.edit(chatID, messageID, "Bid cancelled.")
	case "canceldraft":
		if err := b.flow.CancelDraft(userID, jobID); err != nil {
			b.reportActionError(chatID, err)
			return
		}
		b.edit(chatID, messageID, "Bid draft discarded.")
	}
}

// showJobDetails opens the job for bidding and replaces the summary card
// with the full view.
func (b *Bot) showJobDetails(chatID int64, messageID int, userID, jobID int64) {
	rec, err := b.flow.OpenJob(userID, jobID)
	if err != nil {
		if errors.Is(err, store.ErrNotTracked) {
			b.edit(chatID, messageID, "Unable to load this job anymore.")
			return
		}
		b.reportActionError(chatID, err)
		return
	}

	rows := [][]tgbotapi.InlineKeyboardButton{
		{
			tgbotapi.NewInlineKeyboardButtonData("✍️ Draft bid", callbackData("draft", jobID)),
			tgbotapi.NewInlineKeyboardButtonData("✖️ Cancel", callbackData("cancel", jobID)),
		},
	}
	if b.opts.WebAppURL != "" {
		rows = append(rows, []tgbotapi.InlineKeyboardButton{{
			Text:   "Customize bid in form",
			WebApp: &tgbotapi.WebAppInfo{URL: bidFormURL(b.opts.WebAppURL, rec.Payload)},
		}})
	}

	edit := tgbotapi.NewEditMessageTextAndMarkup(chatID, messageID, detailsHTML(rec.Payload), tgbotapi.NewInlineKeyboardMarkup(rows...))
	edit.ParseMode = tgbotapi.ModeHTML
	b.send(edit)
}

// draftBid drafts a bid and sends the draft for review.
func (b *Bot) draftBid(ctx context.Context, chatID, userID, jobID int64, amount float64, period int) {
	rec, err := b.flow.DraftBid(ctx, userID, jobID, amount, period)
	if err != nil {
		b.reportActionError(chatID, err)
		return
	}

	msg := tgbotapi.NewMessage(chatID, draftHTML(rec.Payload, *rec.Bid))
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✅ Confirm bid", callbackData("confirm", jobID)),
			tgbotapi.NewInlineKeyboardButtonData("✖️ Discard draft", callbackData("canceldraft", jobID)),
		),
	)
	b.send(msg)
}

// confirmBid submits the drafted bid and reports the outcome.
func (b *Bot) confirmBid(ctx context.Context, chatID, userID, jobID int64) {
	outcome, err := b.flow.ConfirmBid(ctx, userID, jobID)
	if err != nil {
		b.reportActionError(chatID, err)
		return
	}

	var text string
	if outcome.Placed {
		text = confirmedHTML(outcome.Job, outcome.Draft)
	} else {
		text = fmt.Sprintf("⚠️ Unable to submit bid: %s", html.EscapeString(outcome.Message))
	}
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	b.send(msg)
}

func (b *Bot) sendProfileSummary(chatID int64, messageID int, userID int64) {
	profile, err := b.profiles.Get(userID)
	if err != nil {
		if errors.Is(err, model.ErrNoProfile) {
			b.edit(chatID, messageID, "No profile found. Use the menu to create one.")
			return
		}
		b.reportActionError(chatID, err)
		return
	}
	raw, err := json.MarshalIndent(profile, "", "  ")
	if err != nil {
		b.reportActionError(chatID, err)
		return
	}
	edit := tgbotapi.NewEditMessageText(chatID, messageID, profileHTML(string(raw)))
	edit.ParseMode = tgbotapi.ModeHTML
	b.send(edit)
}

// webAppPayload is the union of the profile form and bid form submissions;
// the bid form always carries a job_id.
type webAppPayload struct {
	JobID  int64   `json:"job_id"`
	Amount float64 `json:"amount"`
	Period int     `json:"period"`

	model.Profile
}

func (b *Bot) handleWebAppData(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	userID := msg.From.ID

	var payload webAppPayload
	if err := json.Unmarshal([]byte(msg.WebAppData.Data), &payload); err != nil {
		b.sendText(chatID, "Unable to parse form submission.")
		return
	}

	if payload.JobID != 0 {
		go b.draftBid(ctx, chatID, userID, payload.JobID, payload.Amount, payload.Period)
		return
	}

	if err := b.profiles.Upsert(userID, payload.Profile); err != nil {
		b.logger.Error("saving profile failed", "user", userID, "error", err)
		b.sendText(chatID, "Saving your profile failed. Please try again.")
		return
	}
	b.sendText(chatID, "Profile saved successfully ✅")
}

// handleBidFormCommand is the plain-text fallback for clients without web-app
// support: /bidform <job_id> <amount> <period>.
func (b *Bot) handleBidFormCommand(ctx context.Context, msg *tgbotapi.Message) {
	fields := strings.Fields(msg.CommandArguments())
	if len(fields) != 3 {
		b.sendText(msg.Chat.ID, "Usage: /bidform <job_id> <amount> <period_days>")
		return
	}
	jobID, err1 := strconv.ParseInt(fields[0], 10, 64)
	amount, err2 := strconv.ParseFloat(fields[1], 64)
	period, err3 := strconv.Atoi(fields[2])
	if err1 != nil || err2 != nil || err3 != nil {
		b.sendText(msg.Chat.ID, "Usage: /bidform <job_id> <amount> <period_days>")
		return
	}
	go b.draftBid(ctx, msg.Chat.ID, msg.From.ID, jobID, amount, period)
}

// reportActionError turns workflow errors into user-facing chat messages.
func (b *Bot) reportActionError(chatID int64, err error) {
	switch {
	case errors.Is(err, store.ErrNotTracked):
		b.sendText(chatID, "Job details missing. Try fetching again.")
	case errors.Is(err, model.ErrNoProfile):
		b.sendText(chatID, "Profile missing. Please complete your profile first.")
	case errors.Is(err, workflow.ErrNoDraft):
		b.sendText(chatID, "There is no bid draft for this job. Draft one first.")
	case errors.Is(err, workflow.ErrIncompleteDraft):
		b.sendText(chatID, "The bid draft is incomplete. Please draft it again.")
	case errors.Is(err, workflow.ErrConfirmInFlight):
		b.sendText(chatID, "Your bid is already being placed. Hang tight.")
	case errors.Is(err, store.ErrForbiddenTransition):
		b.sendText(chatID, "This job is no longer in a state where that action is possible.")
	default:
		b.logger.Error("bot action failed", "error", err)
		b.sendText(chatID, "Something went wrong. Please try again.")
	}
}

func (b *Bot) sendText(chatID int64, text string) {
	b.send(tgbotapi.NewMessage(chatID, text))
}

func (b *Bot) edit(chatID int64, messageID int, text string) {
	b.send(tgbotapi.NewEditMessageText(chatID, messageID, text))
}

func (b *Bot) send(c tgbotapi.Chattable) {
	if _, err := b.api.Send(c); err != nil {
		b.logger.Warn("telegram send failed", "error", err)
	}
}

// splitCallback splits "kind:arg" callback data.
func splitCallback(data string) (kind, arg string) {
	kind, arg, _ = strings.Cut(data, ":")
	return kind, arg
}

func callbackData(kind string, jobID int64) string {
	return fmt.Sprintf("%s:%d", kind, jobID)
}

// bidFormURL builds the web-app bid form link prefilled for a job.
func bidFormURL(base string, job model.JobListing) string {
	return fmt.Sprintf("%s/bid-form?job_id=%d&title=%s&currency=%s",
		strings.TrimRight(base, "/"), job.ID, url.QueryEscape(job.Title), url.QueryEscape(job.Currency))
}
