// Package bot implements the Telegram command front end for card issuance
// and status lookups. It talks to the lifecycle engine directly.
package bot

import (
	"context"

	"github.com/cardkeyhq/cardkey/internal/card"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Bot runs the Telegram long-polling loop.
type Bot struct {
	api *tgbotapi.BotAPI
	db  *gorm.DB
	svc *card.Service
}

// New connects to the Telegram API. An empty token returns (nil, nil) so
// deployments without a bot skip it entirely.
func New(token string, db *gorm.DB, svc *card.Service) (*Bot, error) {
	if token == "" {
		return nil, nil
	}
	api, errAPI := tgbotapi.NewBotAPI(token)
	if errAPI != nil {
		return nil, errAPI
	}
	return &Bot{api: api, db: db, svc: svc}, nil
}

// Start launches the update loop in a background goroutine.
func (b *Bot) Start(ctx context.Context) {
	if b == nil {
		return
	}
	go b.run(ctx)
	log.Infof("telegram bot started as @%s", b.api.Self.UserName)
}

func (b *Bot) run(ctx context.Context) {
	updateCfg := tgbotapi.NewUpdate(0)
	updateCfg.Timeout = 30
	updates := b.api.GetUpdatesChan(updateCfg)

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			if update.Message == nil || !update.Message.IsCommand() {
				continue
			}
			b.handleCommand(ctx, update.Message)
		}
	}
}

// reply sends a markdown message to the chat, logging failures.
func (b *Bot) reply(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	if _, errSend := b.api.Send(msg); errSend != nil {
		log.WithError(errSend).Warn("telegram send failed")
	}
}
