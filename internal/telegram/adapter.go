package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/user/photosort/internal/gateway"
	"github.com/user/photosort/internal/immich"
	"github.com/user/photosort/internal/review"
	"github.com/user/photosort/internal/types"
)

const (
	maxTelegramMessage = 4096
	// concurrentChats bounds how many chats are served at once.
	concurrentChats = 4
)

// botClient is the part of tgbotapi.BotAPI the adapter uses.
type botClient interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// Adapter lets a Telegram chat triage assets with inline buttons.
type Adapter struct {
	bot     botClient
	svc     *review.Service
	allowed map[int64]bool
	lanes   *gateway.Queue

	mu      sync.Mutex
	queries map[int64]string
}

// New creates a Telegram adapter. An empty allowed list answers every chat.
func New(token string, svc *review.Service, allowed []int64) (*Adapter, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot: %w", err)
	}
	slog.Info("telegram bot authorized", "username", bot.Self.UserName)
	return newAdapter(bot, svc, allowed), nil
}

func newAdapter(bot botClient, svc *review.Service, allowed []int64) *Adapter {
	a := &Adapter{
		bot:     bot,
		svc:     svc,
		allowed: make(map[int64]bool, len(allowed)),
		lanes:   gateway.NewQueue(concurrentChats),
		queries: make(map[int64]string),
	}
	for _, id := range allowed {
		a.allowed[id] = true
	}
	return a
}

// Start begins long-polling for Telegram updates. Updates from one chat are
// handled in order; different chats are handled concurrently.
func (a *Adapter) Start(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30

	updates := a.bot.GetUpdatesChan(u)
	a.lanes.Start(ctx)
	defer a.lanes.Stop()

	for {
		select {
		case update, ok := <-updates:
			if !ok {
				return
			}
			a.dispatch(update)
		case <-ctx.Done():
			a.bot.StopReceivingUpdates()
			return
		}
	}
}

// dispatch queues an update on its chat's lane.
func (a *Adapter) dispatch(update tgbotapi.Update) {
	chat := update.FromChat()
	if chat == nil {
		return
	}
	err := a.lanes.Enqueue(sessionKey(chat.ID), func(ctx context.Context) error {
		a.handleUpdate(ctx, update)
		return nil
	})
	if err != nil {
		slog.Warn("telegram update dropped", "chat_id", chat.ID, "error", err)
	}
}

func (a *Adapter) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	switch {
	case update.CallbackQuery != nil:
		cb := update.CallbackQuery
		if cb.Message == nil || cb.Message.Chat == nil || !a.isAllowed(cb.Message.Chat.ID) {
			return
		}
		a.handleCallback(ctx, cb)
	case update.Message != nil && update.Message.Chat != nil:
		if !a.isAllowed(update.Message.Chat.ID) {
			slog.Warn("telegram chat not allowed", "chat_id", update.Message.Chat.ID)
			return
		}
		if update.Message.IsCommand() {
			a.handleCommand(ctx, update.Message)
		}
	}
}

func (a *Adapter) isAllowed(chatID int64) bool {
	return len(a.allowed) == 0 || a.allowed[chatID]
}

func (a *Adapter) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID

	switch msg.Command() {
	case "start", "help":
		a.sendText(chatID, "Send /next to review a random photo, /next <query> to search "+
			"(e.g. /next screenshot), /cameras to list cameras, /undo to revert your last action.")

	case "next":
		query := strings.TrimSpace(msg.CommandArguments())
		a.setQuery(chatID, query)
		a.sendNext(ctx, chatID)

	case "cameras":
		cameras, err := a.svc.Cameras(ctx)
		if err != nil {
			a.sendText(chatID, "Could not load cameras: "+err.Error())
			return
		}
		if len(cameras) == 0 {
			a.sendText(chatID, "No camera models found.")
			return
		}
		a.sendText(chatID, "Cameras:\n"+strings.Join(cameras, "\n"))

	case "undo":
		entry, err := a.svc.UndoLast(ctx, sessionKey(chatID))
		if errors.Is(err, review.ErrNothingToUndo) {
			a.sendText(chatID, "Nothing to undo.")
			return
		}
		if err != nil {
			a.sendText(chatID, "Undo failed: "+err.Error())
			return
		}
		a.sendText(chatID, fmt.Sprintf("Undid %s.", entry.Action))

	default:
		a.sendText(chatID, "Unknown command. Available: /next, /cameras, /undo")
	}
}

func (a *Adapter) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	chatID := cb.Message.Chat.ID
	session := sessionKey(chatID)

	data, ok := parseCallback(cb.Data)
	if !ok {
		a.answer(cb.ID, "Unknown button")
		return
	}

	switch data.kind {
	case callbackNext:
		a.answer(cb.ID, "")
		a.sendNext(ctx, chatID)

	case callbackAct:
		if _, err := a.svc.Act(ctx, session, data.id, data.action); err != nil {
			slog.Error("telegram action failed", "action", data.action, "asset_id", data.id, "error", err)
			a.answer(cb.ID, "Failed: "+err.Error())
			return
		}
		a.answer(cb.ID, actionLabel(data.action))
		a.editKeyboard(chatID, cb.Message.MessageID, doneKeyboard(data.id, data.action))

	case callbackUndo:
		if err := a.svc.Undo(ctx, session, data.id, data.action); err != nil {
			slog.Error("telegram undo failed", "action", data.action, "asset_id", data.id, "error", err)
			a.answer(cb.ID, "Undo failed: "+err.Error())
			return
		}
		a.answer(cb.ID, "Undone")
		a.editKeyboard(chatID, cb.Message.MessageID, actionKeyboard(data.id))
	}
}

func (a *Adapter) setQuery(chatID int64, query string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if query == "" {
		delete(a.queries, chatID)
		return
	}
	a.queries[chatID] = query
}

func (a *Adapter) query(chatID int64) string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.queries[chatID]
}

// sendNext sends one asset thumbnail with the triage keyboard.
func (a *Adapter) sendNext(ctx context.Context, chatID int64) {
	batch, err := a.svc.Next(ctx, review.Request{Count: 1, Query: a.query(chatID), Refine: true})
	if err != nil {
		a.sendText(chatID, "Could not fetch an asset: "+err.Error())
		return
	}
	if batch.Done {
		a.sendText(chatID, "Nothing left to review.")
		return
	}
	asset := batch.Assets[0]

	blob, err := a.svc.Media(ctx, asset.ID, string(immich.SizeThumbnail))
	if err != nil {
		slog.Error("telegram thumbnail failed", "asset_id", asset.ID, "error", err)
		a.sendText(chatID, "Could not load thumbnail for "+asset.Meta.Filename)
		return
	}

	photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileBytes{Name: asset.ID + ".jpg", Bytes: blob.Data})
	photo.Caption = caption(asset)
	photo.ReplyMarkup = actionKeyboard(asset.ID)
	if _, err := a.bot.Send(photo); err != nil {
		slog.Error("telegram send photo failed", "chat_id", chatID, "error", err)
	}
}

func (a *Adapter) editKeyboard(chatID int64, messageID int, markup tgbotapi.InlineKeyboardMarkup) {
	edit := tgbotapi.NewEditMessageReplyMarkup(chatID, messageID, markup)
	if _, err := a.bot.Request(edit); err != nil {
		slog.Warn("telegram edit keyboard failed", "chat_id", chatID, "error", err)
	}
}

func (a *Adapter) answer(callbackID, text string) {
	if _, err := a.bot.Request(tgbotapi.NewCallback(callbackID, text)); err != nil {
		slog.Warn("telegram answer callback failed", "error", err)
	}
}

func (a *Adapter) sendText(chatID int64, text string) {
	for _, part := range splitMessage(text) {
		if _, err := a.bot.Send(tgbotapi.NewMessage(chatID, part)); err != nil {
			slog.Error("telegram send message failed", "chat_id", chatID, "error", err)
		}
	}
}

func splitMessage(text string) []string {
	if len(text) <= maxTelegramMessage {
		return []string{text}
	}
	var parts []string
	for len(text) > 0 {
		end := min(maxTelegramMessage, len(text))
		parts = append(parts, text[:end])
		text = text[end:]
	}
	return parts
}

func sessionKey(chatID int64) types.SessionKey {
	return types.NewSessionKey("telegram", strconv.FormatInt(chatID, 10))
}
