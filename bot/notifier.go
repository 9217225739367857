package bot

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"quizhall/models"
	"quizhall/services"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// callbackPayload is the JSON packed into inline keyboard buttons. It has to
// stay tiny: Telegram limits callback data to 64 bytes.
type callbackPayload struct {
	QuestionID uint `json:"qid"`
	Option     *int `json:"opt,omitempty"`
	Done       bool `json:"done,omitempty"`
}

// NotifyQuestion implements services.CaptainNotifier: it sends the question
// with an answer keyboard to every bound captain. One unreachable chat never
// stops delivery to the rest.
func (b *Bot) NotifyQuestion(payload services.QuestionPayload) {
	ctx := context.Background()
	captains, err := b.games.BoundCaptains(ctx)
	if err != nil {
		log.Printf("failed to list captains for question %d: %v", payload.ID, err)
		return
	}

	text := payload.Text + "\n\n" + strings.Join(payload.Options, "\n") +
		fmt.Sprintf("\n\nВремя ответа: %d секунд", payload.Seconds)
	keyboard := answerKeyboard(payload.ID, len(payload.Options), payload.MultiSelect)

	sent := 0
	for _, captain := range captains {
		if captain.ChatID == nil {
			continue
		}
		msg := tgbotapi.NewMessage(*captain.ChatID, text)
		msg.ReplyMarkup = keyboard
		if _, err := b.api.Send(msg); err != nil {
			log.Printf("failed to send question %d to captain %s: %v", payload.ID, captain.Username, err)
			continue
		}
		sent++
	}
	log.Printf("question %d sent to %d/%d captains", payload.ID, sent, len(captains))
}

// answerKeyboard renders one letter button per option, plus a commit button
// for multi-select questions.
func answerKeyboard(questionID uint, optionCount int, multi bool) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, optionCount+1)
	for i := 0; i < optionCount; i++ {
		index := i
		data, _ := json.Marshal(callbackPayload{QuestionID: questionID, Option: &index})
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(models.OptionLetter(i), string(data)),
		))
	}
	if multi {
		data, _ := json.Marshal(callbackPayload{QuestionID: questionID, Done: true})
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(btnDone, string(data)),
		))
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func (b *Bot) handleAnswerCallback(ctx context.Context, query *tgbotapi.CallbackQuery) {
	// Acknowledge the tap right away so the client stops its spinner.
	if _, err := b.api.Request(tgbotapi.NewCallback(query.ID, "")); err != nil {
		log.Printf("failed to answer callback %s: %v", query.ID, err)
	}
	if query.Message == nil || query.From == nil {
		return
	}

	var payload callbackPayload
	if err := json.Unmarshal([]byte(query.Data), &payload); err != nil {
		return
	}

	result, err := b.answers.Submit(ctx, services.ChoiceEvent{
		TelegramUserID: query.From.ID,
		QuestionID:     payload.QuestionID,
		OptionIndex:    payload.Option,
		Done:           payload.Done,
	})
	chatID := query.Message.Chat.ID
	messageID := query.Message.MessageID
	if err != nil {
		b.editText(chatID, messageID, errorMessage(err))
		return
	}

	if result.Committed {
		b.editText(chatID, messageID, msgAnswerAccepted)
		return
	}

	// Toggle: re-render the current selection and keep the keyboard alive.
	letters := make([]string, 0, len(result.Selections))
	for _, index := range result.Selections {
		letters = append(letters, models.OptionLetter(index))
	}
	selected := "—"
	if len(letters) > 0 {
		selected = strings.Join(letters, ", ")
	}
	options, err := result.Question.OptionList()
	if err != nil {
		log.Printf("cannot re-render question %d: %v", result.Question.ID, err)
		return
	}
	text := result.Question.Text + "\n\n" + strings.Join(options, "\n") +
		"\n\nВыбрано: " + selected + "\nНажми «Готово», чтобы зафиксировать ответ."
	edit := tgbotapi.NewEditMessageTextAndMarkup(chatID, messageID, text,
		answerKeyboard(result.Question.ID, len(options), true))
	if _, err := b.api.Send(edit); err != nil {
		log.Printf("failed to update selection for chat %d: %v", chatID, err)
	}
}

func (b *Bot) editText(chatID int64, messageID int, text string) {
	edit := tgbotapi.NewEditMessageText(chatID, messageID, text)
	if _, err := b.api.Send(edit); err != nil {
		log.Printf("failed to edit message %d in chat %d: %v", messageID, chatID, err)
	}
}
