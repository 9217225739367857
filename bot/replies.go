package bot

import (
	"errors"

	"quizhall/services"
)

// Host menu button labels.
const (
	btnNewGame       = "Новая игра"
	btnAddTeam       = "Добавить команду"
	btnStartQuestion = "Запустить вопрос"
	btnNextQuestion  = "Следующий вопрос"
	btnStopAccepting = "Стоп приёма"
	btnScore         = "Счёт"
	btnExport        = "Экспорт"
	btnAdminPanel    = "Админ-панель"
	btnHallScreen    = "Экран зала"
	btnAdmins        = "Админы"
	btnCancel        = "Отмена"
	btnAdminAdd      = "Добавить админа"
	btnAdminDel      = "Удалить админа"
	btnAdminList     = "Список админов"
	btnBack          = "Назад"
	btnDone          = "Готово"
)

const (
	msgWelcome = "👋 Привет! Я бот викторины.\n\n" +
		"• Ведущий: напиши \"Меню\" или /host — открою панель.\n" +
		"• Капитан: жми /register после того, как ведущий назначит тебя капитаном.\n\n" +
		"Удачной игры! 🎉"

	msgHostMenu = "🎛 Меню ведущего\n\n" +
		"Шаги запуска:\n" +
		"1) «Новая игра» — создать матч\n" +
		"2) «Добавить команду» — привязать @капитана\n" +
		"3) Капитану: Start → /register\n" +
		"4) «Запустить вопрос» — рассылка с таймером 60с\n"

	msgHostOnly = "Доступ только для ведущего."

	msgRegistered = "🎯 Готово! Вы зарегистрированы как капитан своей команды.\n" +
		"Когда ведущий запустит вопрос — получите кнопки ответа и таймер ⏱ 60с."

	msgGameCreated = "🎮 Игра создана!\n\n" +
		"Название: <b>%s</b>\nID: <code>%d</code>\n\n" +
		"Что дальше?\n" +
		"1) ➕ Добавь команды (Меню → Добавить команду)\n" +
		"2) 👨‍✈️ Капитану: открыть чат с ботом → Start → /register\n" +
		"3) ▶ Когда готов — Запустить вопрос\n"

	msgTeamAdded = "✅ Команда добавлена!\n\n" +
		"Название: <b>%s</b>\nКапитан: @%s\n\n" +
		"Попроси капитана: открыть чат с ботом → нажать Start → отправить /register."

	msgQuestionSent = "📣 Вопрос <b>%d</b> отправлен капитанам! ⏱ 60 сек.\n" +
		"Жди ответы команд. По истечении времени нажми «Стоп приёма»."

	msgAcceptanceStopped = "⛔ Приём ответов остановлен.\n" +
		"✔ Можешь показать результаты или запустить следующий вопрос."

	msgAnswerAccepted = "Ответ принят. Изменение запрещено."
)

// errorMessage maps a recoverable submission or orchestration error to the
// short text shown to the user.
func errorMessage(err error) string {
	switch {
	case errors.Is(err, services.ErrNotBound):
		return "Вы не привязаны к команде."
	case errors.Is(err, services.ErrNoActiveGame):
		return "Активная игра не найдена."
	case errors.Is(err, services.ErrNoActiveQuestion):
		return "Нет активного вопроса."
	case errors.Is(err, services.ErrWindowClosed):
		return "Время ответа истекло."
	case errors.Is(err, services.ErrAlreadyAnswered):
		return "Ответ уже зафиксирован от вашей команды."
	case errors.Is(err, services.ErrInvalidOption):
		return "Выберите вариант."
	case errors.Is(err, services.ErrEmptySelection):
		return "Сначала выберите хотя бы один вариант."
	case errors.Is(err, services.ErrQuestionNotFound):
		return "Вопрос не найден."
	case errors.Is(err, services.ErrNoQuestionsInRound):
		return "В раунде нет вопросов."
	default:
		return "Что-то пошло не так. Попробуйте ещё раз."
	}
}
