package telegram

import (
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/user/photosort/internal/immich"
	"github.com/user/photosort/internal/review"
)

type callbackKind string

const (
	callbackAct  callbackKind = "act"
	callbackUndo callbackKind = "undo"
	callbackNext callbackKind = "next"
)

// callbackData is the decoded payload of an inline button.
type callbackData struct {
	kind   callbackKind
	action string
	id     string
}

// formatCallback encodes kind:action:id; Telegram caps it at 64 bytes.
func formatCallback(kind callbackKind, action immich.Action, id string) string {
	if kind == callbackNext {
		return string(callbackNext)
	}
	return string(kind) + ":" + string(action) + ":" + id
}

func parseCallback(data string) (callbackData, bool) {
	if data == string(callbackNext) {
		return callbackData{kind: callbackNext}, true
	}
	parts := strings.SplitN(data, ":", 3)
	if len(parts) != 3 || parts[1] == "" || parts[2] == "" {
		return callbackData{}, false
	}
	kind := callbackKind(parts[0])
	if kind != callbackAct && kind != callbackUndo {
		return callbackData{}, false
	}
	return callbackData{kind: kind, action: parts[1], id: parts[2]}, true
}

var actionLabels = map[immich.Action]string{
	immich.ActionKeep:    "Keep",
	immich.ActionDelete:  "Delete",
	immich.ActionFav:     "Fav",
	immich.ActionArchive: "Archive",
}

func actionLabel(action string) string {
	if label, ok := actionLabels[immich.Action(action)]; ok {
		return label
	}
	return action
}

func actionKeyboard(id string) tgbotapi.InlineKeyboardMarkup {
	row := make([]tgbotapi.InlineKeyboardButton, 0, len(immich.Actions))
	for _, action := range immich.Actions {
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(actionLabels[action], formatCallback(callbackAct, action, id)))
	}
	return tgbotapi.NewInlineKeyboardMarkup(row)
}

func doneKeyboard(id, action string) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("Undo "+actionLabel(action), formatCallback(callbackUndo, immich.Action(action), id)),
		tgbotapi.NewInlineKeyboardButtonData("Next", formatCallback(callbackNext, "", "")),
	))
}

func caption(s review.Summary) string {
	lines := []string{s.Meta.Filename}
	if s.IsVideo() {
		lines[0] += " (video " + s.Duration + ")"
	}
	lines = append(lines,
		s.Meta.Date+" "+s.Meta.Time+" | "+s.Meta.Camera,
		s.Meta.Location+" | "+s.Meta.Dims+" | "+s.Meta.Size,
	)
	return strings.Join(lines, "\n")
}
