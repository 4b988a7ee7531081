package telegram

import tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

// Main keyboard buttons
const (
	ButtonCharts   = "Графики"
	ButtonReports  = "Отчеты"
	ButtonProducts = "Анализ товара"
	ButtonSales    = "Анализ продаж"
	ButtonHelp     = "Помощь"
)

const welcomeText = "<b>👋 Привет! Я BI Mate — твой умный помощник.</b>\n" +
	"<b>Строю отчеты, интерактивные графики и дашборды, анализирую товары и продажи.</b>\n\n" +
	"Давай упростим твою работу — с чего начнем?"

const helpText = "🤖 BI Mate — бот-аналитик продаж\n\n" +
	"Я автоматически генерирую графики и отчеты по вашим продажам прямо в Telegram.\n\n" +
	"📈 Графики\n" +
	"— Выберите тип графика (например, 'Динамика выручки').\n" +
	"— Укажите период (год, месяц, неделя и т.д.).\n" +
	"— Получите график в формате PNG.\n" +
	"— Дашборд: ключевые метрики в формате PDF.\n\n" +
	"📝 Отчеты\n" +
	"— Еженедельный/месячный — Отчёт за неделю/месяц в формате Word.\n\n" +
	"📦 Анализ товара\n" +
	"— Основные данные и интерактивные графики, выбранного товара\n\n" +
	"📊 Анализ продаж\n" +
	"— Основные данные и интерактивные графики продаж за выбранный период"

const (
	productsLinkText = "Откройте эту ссылку в браузере для интерактивного анализа товаров:\n%s"
	salesLinkText    = "Откройте эту ссылку в браузере для интерактивного анализа продаж:\n%s"
	linkFailedText   = "Не удалось сформировать ссылку. Попробуйте позже."
	unknownText      = "Выберите действие на клавиатуре ниже."
)

// MainKeyboard is the persistent reply keyboard
func MainKeyboard() tgbotapi.ReplyKeyboardMarkup {
	keyboard := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(ButtonCharts)),
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(ButtonReports)),
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(ButtonProducts)),
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(ButtonSales)),
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(ButtonHelp)),
	)
	keyboard.ResizeKeyboard = true
	return keyboard
}
