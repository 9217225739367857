package bot

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"
	"sync"

	"quizhall/config"
	"quizhall/services"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Bot is the messaging gateway: it renders the host menu, receives captain
// answer callbacks and fans dispatched questions out to captain chats. All
// game logic lives in the services it calls into.
type Bot struct {
	api      *tgbotapi.BotAPI
	cfg      *config.Config
	games    *services.GameService
	answers  *services.AnswerService
	dispatch *services.DispatchService
	scores   *services.ScoreService

	mu     sync.Mutex
	states map[int64]int
}

func New(cfg *config.Config, games *services.GameService, answers *services.AnswerService, dispatch *services.DispatchService, scores *services.ScoreService) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Telegram: %w", err)
	}
	return &Bot{
		api:      api,
		cfg:      cfg,
		games:    games,
		answers:  answers,
		dispatch: dispatch,
		scores:   scores,
		states:   make(map[int64]int),
	}, nil
}

// Run polls for updates until the context is canceled. Every update is
// handled inline; handlers only do one store round-trip plus best-effort
// sends, so a worker pool is not needed at quiz scale.
func (b *Bot) Run(ctx context.Context) {
	cfg := tgbotapi.NewUpdate(0)
	cfg.Timeout = 30
	updates := b.api.GetUpdatesChan(cfg)
	log.Printf("telegram bot @%s polling", b.api.Self.UserName)

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			b.handleUpdate(ctx, update)
		}
	}
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	if update.CallbackQuery != nil {
		b.handleAnswerCallback(ctx, update.CallbackQuery)
		return
	}
	if update.Message == nil {
		return
	}

	message := update.Message
	if message.IsCommand() {
		b.handleCommand(ctx, message)
		return
	}
	b.handleMenuText(ctx, message)
}

func (b *Bot) handleCommand(ctx context.Context, message *tgbotapi.Message) {
	switch message.Command() {
	case "start":
		b.reply(message.Chat.ID, msgWelcome)
	case "host":
		b.enterHostMenu(ctx, message)
	case "newgame":
		name := strings.TrimSpace(message.CommandArguments())
		if name == "" {
			b.reply(message.Chat.ID, "Использование: /newgame Название игры")
			return
		}
		b.createGame(ctx, message.Chat.ID, name)
	case "addteam":
		args := strings.Fields(message.CommandArguments())
		if len(args) < 2 {
			b.reply(message.Chat.ID, "Использование: /addteam <Название команды> <@username капитана>")
			return
		}
		b.addTeam(ctx, message.Chat.ID, strings.Join(args[:len(args)-1], " "), args[len(args)-1])
	case "register":
		b.registerCaptain(ctx, message)
	case "q":
		arg := strings.TrimSpace(message.CommandArguments())
		id, err := strconv.ParseUint(arg, 10, 32)
		if err != nil {
			b.reply(message.Chat.ID, "Использование: /q <question_id>")
			return
		}
		b.startQuestion(ctx, message.Chat.ID, uint(id))
	case "next":
		b.advanceQuestion(ctx, message.Chat.ID)
	case "stop":
		b.stopAccepting(ctx, message.Chat.ID)
	case "finish":
		b.finishGame(ctx, message.Chat.ID)
	default:
		b.reply(message.Chat.ID, "Неизвестная команда.")
	}
}

func (b *Bot) registerCaptain(ctx context.Context, message *tgbotapi.Message) {
	username := ""
	if message.From != nil {
		username = message.From.UserName
	}
	if username == "" {
		b.reply(message.Chat.ID, "У вашего аккаунта нет username — попросите ведущего привязать вас по id.")
		return
	}
	_, err := b.games.RegisterCaptain(ctx, username, message.From.ID, message.Chat.ID)
	if err != nil {
		b.reply(message.Chat.ID, "Вы не назначены капитаном. Обратитесь к ведущему.")
		return
	}
	b.reply(message.Chat.ID, msgRegistered)
}

func (b *Bot) reply(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := b.api.Send(msg); err != nil {
		log.Printf("failed to send message to chat %d: %v", chatID, err)
	}
}

func (b *Bot) replyHTML(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	if _, err := b.api.Send(msg); err != nil {
		log.Printf("failed to send message to chat %d: %v", chatID, err)
	}
}

func (b *Bot) replyWithKeyboard(chatID int64, text string, keyboard any) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = keyboard
	if _, err := b.api.Send(msg); err != nil {
		log.Printf("failed to send message to chat %d: %v", chatID, err)
	}
}

func (b *Bot) isAdmin(ctx context.Context, from *tgbotapi.User) bool {
	if from == nil {
		return false
	}
	return b.games.IsAdmin(ctx, from.ID, from.UserName, b.cfg.AdminUsernames)
}
