package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/cardkeyhq/cardkey/internal/card"
	"github.com/cardkeyhq/cardkey/internal/models"
	"github.com/cardkeyhq/cardkey/internal/settings"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"
)

// botBatchCap bounds bot-issued batches regardless of the console setting.
const botBatchCap = 50

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	args := strings.Fields(msg.CommandArguments())
	switch msg.Command() {
	case "start", "help":
		b.reply(msg.Chat.ID, helpText)
	case "checkcard":
		b.checkCard(ctx, msg, args)
	case "gencard":
		b.genCard(ctx, msg, args)
	case "deletecard":
		b.deleteCard(ctx, msg, args)
	default:
		b.reply(msg.Chat.ID, "Unknown command. Use /help for the command list.")
	}
}

const helpText = `Available commands:
/checkcard <code> - check a card's status
/gencard [day|month|year] [count] - issue cards (admins only)
/deletecard <code> - delete a card (admins only)`

// checkCard reports the validity projection for a code.
func (b *Bot) checkCard(ctx context.Context, msg *tgbotapi.Message, args []string) {
	if len(args) < 1 {
		b.reply(msg.Chat.ID, "Usage: /checkcard <code>")
		return
	}
	code := strings.TrimSpace(args[0])

	validity, errStatus := b.svc.Status(ctx, code)
	if errStatus != nil {
		if errors.Is(errStatus, card.ErrNotFound) {
			b.reply(msg.Chat.ID, fmt.Sprintf("Card `%s` not found.", code))
			return
		}
		log.WithError(errStatus).Warn("bot card status failed")
		b.reply(msg.Chat.ID, "Card lookup failed, please try again later.")
		return
	}

	if validity.Valid {
		b.reply(msg.Chat.ID, fmt.Sprintf(
			"Card: `%s`\nStatus: valid\nType: %s\nActivated: %s\nExpires: %s",
			code, validity.Type,
			formatTime(validity.ActivatedAt),
			formatTime(validity.ExpiresAt),
		))
		return
	}
	b.reply(msg.Chat.ID, fmt.Sprintf("Card: `%s`\nStatus: %s (not valid)", code, validity.Status))
}

// genCard issues a batch of cards for an authorized Telegram admin.
func (b *Bot) genCard(ctx context.Context, msg *tgbotapi.Message, args []string) {
	issuer, ok := b.authorize(ctx, msg)
	if !ok {
		return
	}

	cardType := settings.DefaultCardType()
	if len(args) >= 1 {
		cardType = strings.ToLower(strings.TrimSpace(args[0]))
	}
	switch cardType {
	case models.CardTypeDay, models.CardTypeMonth, models.CardTypeYear:
	default:
		b.reply(msg.Chat.ID, "Invalid card type. Choose day, month or year.")
		return
	}

	count := 1
	if len(args) >= 2 {
		parsed, errParse := strconv.Atoi(args[1])
		if errParse != nil || parsed < 1 {
			parsed = 1
		}
		count = parsed
	}
	if count > botBatchCap {
		count = botBatchCap
	}

	policy := card.IssuePolicy{
		CodePrefix: settings.CardPrefix(),
		MaxBatch:   botBatchCap,
	}
	issued, errIssue := b.svc.Engine().IssueBatch(ctx, policy, cardType, count, card.IssueParams{
		CreatedBy: issuer.ID,
		Remark:    "issued via telegram bot",
	})
	if len(issued) == 0 {
		log.WithError(errIssue).Warn("bot batch issuance failed")
		b.reply(msg.Chat.ID, "Card generation failed, please contact an administrator.")
		return
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Issued %d %s card(s):\n\n", len(issued), cardType)
	for i, row := range issued {
		fmt.Fprintf(&sb, "%d. `%s`\n", i+1, row.Code)
	}
	sb.WriteString("\nUse /checkcard to query card status.")
	b.reply(msg.Chat.ID, sb.String())
}

// deleteCard revokes a card for an authorized Telegram admin.
func (b *Bot) deleteCard(ctx context.Context, msg *tgbotapi.Message, args []string) {
	if _, ok := b.authorize(ctx, msg); !ok {
		return
	}
	if len(args) < 1 {
		b.reply(msg.Chat.ID, "Usage: /deletecard <code>")
		return
	}
	code := strings.TrimSpace(args[0])

	if errRevoke := b.svc.Engine().Revoke(ctx, code); errRevoke != nil {
		if errors.Is(errRevoke, card.ErrNotFound) {
			b.reply(msg.Chat.ID, fmt.Sprintf("Card `%s` not found.", code))
			return
		}
		log.WithError(errRevoke).Warn("bot card revoke failed")
		b.reply(msg.Chat.ID, "Delete failed, please try again later.")
		return
	}
	b.svc.Invalidate(ctx, code)
	b.reply(msg.Chat.ID, fmt.Sprintf("Card `%s` deleted.", code))
}

// authorize resolves the sender to an active console user bound to this
// Telegram ID. Unauthorized senders get a refusal message.
func (b *Bot) authorize(ctx context.Context, msg *tgbotapi.Message) (*models.User, bool) {
	telegramID := strconv.FormatInt(msg.From.ID, 10)
	var user models.User
	errFind := b.db.WithContext(ctx).
		Where("telegram_id = ? AND active = ?", telegramID, true).
		First(&user).Error
	if errFind != nil {
		b.reply(msg.Chat.ID, "You are not authorized to use this command.")
		return nil, false
	}
	return &user, true
}

func formatTime(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.UTC().Format("2006-01-02 15:04:05")
}
