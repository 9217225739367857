package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Host menu conversation states.
const (
	stateIdle = iota
	stateChoosing
	stateNewGameName
	stateAddTeamData
	stateQuestionID
	stateAdminAdd
	stateAdminDel
)

func (b *Bot) state(chatID int64) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.states[chatID]
}

func (b *Bot) setState(chatID int64, state int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if state == stateIdle {
		delete(b.states, chatID)
		return
	}
	b.states[chatID] = state
}

func hostKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(btnNewGame), tgbotapi.NewKeyboardButton(btnAddTeam)),
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(btnStartQuestion), tgbotapi.NewKeyboardButton(btnNextQuestion)),
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(btnStopAccepting), tgbotapi.NewKeyboardButton(btnScore)),
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(btnExport), tgbotapi.NewKeyboardButton(btnAdminPanel)),
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(btnHallScreen), tgbotapi.NewKeyboardButton(btnAdmins)),
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(btnCancel)),
	)
	kb.ResizeKeyboard = true
	return kb
}

func adminsKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(btnAdminAdd), tgbotapi.NewKeyboardButton(btnAdminDel)),
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(btnAdminList)),
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(btnBack)),
	)
	kb.ResizeKeyboard = true
	return kb
}

func (b *Bot) enterHostMenu(ctx context.Context, message *tgbotapi.Message) {
	if !b.isAdmin(ctx, message.From) {
		b.reply(message.Chat.ID, msgHostOnly)
		return
	}
	b.setState(message.Chat.ID, stateChoosing)
	b.replyWithKeyboard(message.Chat.ID, msgHostMenu, hostKeyboard())
}

func (b *Bot) handleMenuText(ctx context.Context, message *tgbotapi.Message) {
	text := strings.TrimSpace(message.Text)
	chatID := message.Chat.ID

	if text == "Меню" || text == "меню" || text == "Ведущий" || text == "ведущий" {
		b.enterHostMenu(ctx, message)
		return
	}

	switch b.state(chatID) {
	case stateIdle:
		return
	case stateNewGameName:
		b.setState(chatID, stateChoosing)
		if text == "" {
			b.reply(chatID, "Введите название.")
			return
		}
		b.createGame(ctx, chatID, text)
	case stateAddTeamData:
		b.setState(chatID, stateChoosing)
		b.parseAddTeam(ctx, chatID, text)
	case stateQuestionID:
		b.setState(chatID, stateChoosing)
		id, err := strconv.ParseUint(text, 10, 32)
		if err != nil {
			b.replyWithKeyboard(chatID, "Нужно число.", hostKeyboard())
			return
		}
		b.startQuestion(ctx, chatID, uint(id))
	case stateAdminAdd:
		b.setState(chatID, stateChoosing)
		b.adminAdd(ctx, chatID, text)
	case stateAdminDel:
		b.setState(chatID, stateChoosing)
		b.adminDel(ctx, chatID, text)
	case stateChoosing:
		b.handleMenuChoice(ctx, message, text)
	}
}

func (b *Bot) handleMenuChoice(ctx context.Context, message *tgbotapi.Message, text string) {
	chatID := message.Chat.ID
	if !b.isAdmin(ctx, message.From) {
		b.setState(chatID, stateIdle)
		b.reply(chatID, msgHostOnly)
		return
	}

	switch text {
	case btnNewGame:
		b.setState(chatID, stateNewGameName)
		b.replyWithKeyboard(chatID, "Название игры?", tgbotapi.NewRemoveKeyboard(false))
	case btnAddTeam:
		b.setState(chatID, stateAddTeamData)
		b.replyWithKeyboard(chatID, "Формат: НазваниеКоманды @username_капитана", tgbotapi.NewRemoveKeyboard(false))
	case btnStartQuestion:
		b.setState(chatID, stateQuestionID)
		b.replyWithKeyboard(chatID, "Укажи ID вопроса (число):", tgbotapi.NewRemoveKeyboard(false))
	case btnNextQuestion:
		b.advanceQuestion(ctx, chatID)
	case btnStopAccepting:
		b.stopAccepting(ctx, chatID)
	case btnScore:
		b.sendScore(ctx, chatID)
	case btnExport:
		b.sendExportLink(chatID)
	case btnAdminPanel:
		b.sendAdminPanelLink(message)
	case btnHallScreen:
		b.sendHallLink(chatID)
	case btnAdmins:
		b.replyWithKeyboard(chatID, "Управление администраторами:", adminsKeyboard())
	case btnAdminAdd:
		b.setState(chatID, stateAdminAdd)
		b.replyWithKeyboard(chatID, "Отправь @username или user_id:", tgbotapi.NewRemoveKeyboard(false))
	case btnAdminDel:
		b.setState(chatID, stateAdminDel)
		b.replyWithKeyboard(chatID, "Отправь @username или user_id:", tgbotapi.NewRemoveKeyboard(false))
	case btnAdminList:
		b.sendAdminList(ctx, chatID)
	case btnBack:
		b.replyWithKeyboard(chatID, "Меню:", hostKeyboard())
	case btnCancel:
		b.setState(chatID, stateIdle)
		b.replyWithKeyboard(chatID, "Готово.", tgbotapi.NewRemoveKeyboard(false))
	default:
		b.replyWithKeyboard(chatID, "Не понял. Выбери пункт меню.", hostKeyboard())
	}
}

func (b *Bot) parseAddTeam(ctx context.Context, chatID int64, raw string) {
	parts := strings.Fields(raw)
	if len(parts) < 2 || !strings.HasPrefix(parts[len(parts)-1], "@") {
		b.replyWithKeyboard(chatID, "Нужно: НазваниеКоманды @username", hostKeyboard())
		return
	}
	mention := parts[len(parts)-1]
	teamName := strings.TrimSpace(strings.TrimSuffix(raw, mention))
	b.addTeam(ctx, chatID, teamName, mention)
}

func (b *Bot) createGame(ctx context.Context, chatID int64, name string) {
	game, err := b.games.CreateGame(ctx, name)
	if err != nil {
		b.reply(chatID, errorMessage(err))
		return
	}
	b.replyHTML(chatID, fmt.Sprintf(msgGameCreated, name, game.ID))
	b.replyWithKeyboard(chatID, "Создано.", hostKeyboard())
}

func (b *Bot) addTeam(ctx context.Context, chatID int64, teamName, captainMention string) {
	team, err := b.games.AddTeam(ctx, teamName, captainMention)
	if err != nil {
		b.replyWithKeyboard(chatID, errorMessage(err), hostKeyboard())
		return
	}
	b.replyHTML(chatID, fmt.Sprintf(msgTeamAdded, team.Name, strings.TrimPrefix(captainMention, "@")))
	b.replyWithKeyboard(chatID, "Ок.", hostKeyboard())
}

func (b *Bot) startQuestion(ctx context.Context, chatID int64, questionID uint) {
	question, err := b.dispatch.StartQuestion(ctx, questionID)
	if err != nil {
		b.replyWithKeyboard(chatID, errorMessage(err), hostKeyboard())
		return
	}
	b.replyHTML(chatID, fmt.Sprintf(msgQuestionSent, question.ID))
	b.replyWithKeyboard(chatID, "Отправил.", hostKeyboard())
}

func (b *Bot) advanceQuestion(ctx context.Context, chatID int64) {
	question, err := b.dispatch.AdvanceToNext(ctx)
	if err != nil {
		b.replyWithKeyboard(chatID, errorMessage(err), hostKeyboard())
		return
	}
	b.replyHTML(chatID, fmt.Sprintf(msgQuestionSent, question.ID))
	b.replyWithKeyboard(chatID, "Отправил.", hostKeyboard())
}

func (b *Bot) stopAccepting(ctx context.Context, chatID int64) {
	if err := b.dispatch.StopAccepting(ctx); err != nil {
		b.replyWithKeyboard(chatID, errorMessage(err), hostKeyboard())
		return
	}
	b.replyWithKeyboard(chatID, msgAcceptanceStopped, hostKeyboard())
}

func (b *Bot) finishGame(ctx context.Context, chatID int64) {
	if err := b.games.FinishGame(ctx); err != nil {
		b.reply(chatID, errorMessage(err))
		return
	}
	b.reply(chatID, "Игра завершена.")
}

func (b *Bot) sendScore(ctx context.Context, chatID int64) {
	scores, err := b.scores.LiveScore(ctx)
	if err != nil {
		b.replyWithKeyboard(chatID, errorMessage(err), hostKeyboard())
		return
	}
	lines := make([]string, 0, len(scores))
	for _, score := range scores {
		lines = append(lines, fmt.Sprintf("%s: %g", score.Team, score.Points))
	}
	body := "пока пусто"
	if len(lines) > 0 {
		body = strings.Join(lines, "\n")
	}
	b.replyWithKeyboard(chatID, "Текущий счёт:\n"+body, hostKeyboard())
}

func (b *Bot) sendAdminList(ctx context.Context, chatID int64) {
	admins, err := b.games.ListAdmins(ctx)
	if err != nil {
		b.replyWithKeyboard(chatID, errorMessage(err), adminsKeyboard())
		return
	}
	lines := make([]string, 0, len(admins))
	for _, admin := range admins {
		switch {
		case admin.Username != nil && admin.TelegramUserID != nil:
			lines = append(lines, fmt.Sprintf("@%s (id %d)", *admin.Username, *admin.TelegramUserID))
		case admin.Username != nil:
			lines = append(lines, "@"+*admin.Username)
		case admin.TelegramUserID != nil:
			lines = append(lines, fmt.Sprintf("id %d", *admin.TelegramUserID))
		}
	}
	body := "пока пусто"
	if len(lines) > 0 {
		body = strings.Join(lines, "\n")
	}
	b.replyWithKeyboard(chatID, "Админы:\n"+body, adminsKeyboard())
}

func (b *Bot) adminAdd(ctx context.Context, chatID int64, raw string) {
	username, userID := parseAdminRef(raw)
	if username == "" && userID == 0 {
		b.replyWithKeyboard(chatID, "Нужен @username или числовой id.", adminsKeyboard())
		return
	}
	if err := b.games.AddAdmin(ctx, username, userID); err != nil {
		b.replyWithKeyboard(chatID, errorMessage(err), adminsKeyboard())
		return
	}
	b.replyWithKeyboard(chatID, "Админ добавлен (если указан только username — id подтянется позже).", adminsKeyboard())
}

func (b *Bot) adminDel(ctx context.Context, chatID int64, raw string) {
	username, userID := parseAdminRef(raw)
	if err := b.games.RemoveAdmin(ctx, username, userID); err != nil {
		b.replyWithKeyboard(chatID, errorMessage(err), adminsKeyboard())
		return
	}
	b.replyWithKeyboard(chatID, "Готово.", adminsKeyboard())
}

func parseAdminRef(raw string) (username string, userID int64) {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "@") {
		return strings.ToLower(strings.TrimPrefix(raw, "@")), 0
	}
	if id, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return "", id
	}
	return "", 0
}

func (b *Bot) sendExportLink(chatID int64) {
	kb := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonURL("Экспорт CSV", b.adminURL("/api/admin/export.csv")),
		),
	)
	b.replyWithKeyboard(chatID, "Открыть экспорт:", kb)
}

func (b *Bot) sendAdminPanelLink(message *tgbotapi.Message) {
	kb := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonURL("Открыть админку", b.adminURL("/api/admin/results")),
		),
	)
	b.replyWithKeyboard(message.Chat.ID, "Админ-панель:", kb)
}

func (b *Bot) sendHallLink(chatID int64) {
	url := fmt.Sprintf("%s/ws/hall?token=%s", b.cfg.BaseURL, b.cfg.DisplayToken)
	b.reply(chatID, "Экран зала подключается по адресу:\n"+url)
}

func (b *Bot) adminURL(path string) string {
	token, err := b.panelToken()
	if err != nil {
		return b.cfg.BaseURL + path
	}
	return fmt.Sprintf("%s%s?token=%s", b.cfg.BaseURL, path, token)
}
