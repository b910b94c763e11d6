// Package telegram exposes the analyzer over a Telegram bot: webhook intake
// plus command handlers that answer with chart photos and stat captions.
package telegram

import (
	"encoding/json"
	"net/http"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"stockRiskAnalyzer/internal/config"
	"stockRiskAnalyzer/internal/storage"
)

type Bot struct {
	api *tgbotapi.BotAPI
	log zerolog.Logger
	h   *Handlers
}

func NewBot(cfg *config.Config, market PriceSource, store *storage.Store, log zerolog.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(cfg.TelegramToken)
	if err != nil {
		return nil, err
	}

	// set webhook
	webhook, err := tgbotapi.NewWebhook(cfg.WebhookURL)
	if err != nil {
		return nil, err
	}
	if _, err := api.Request(webhook); err != nil {
		return nil, err
	}
	log = log.With().Str("component", "telegram").Logger()
	log.Info().Str("url", cfg.WebhookURL).Msg("webhook set")

	h := NewHandlers(api, market, store, cfg, log)
	return &Bot{api: api, log: log, h: h}, nil
}

// WebhookHandler is registered at /telegram/webhook.
func (b *Bot) WebhookHandler(w http.ResponseWriter, r *http.Request) {
	var update tgbotapi.Update
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		http.Error(w, "bad update", http.StatusBadRequest)
		return
	}
	if update.Message != nil {
		b.log.Debug().
			Int64("chat_id", update.Message.Chat.ID).
			Str("text", update.Message.Text).
			Msg("update received")
		go b.h.HandleMessage(update.Message)
	}
	w.WriteHeader(http.StatusOK)
}
