// Package bot serves the ledger over Telegram.
package bot

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/segyhp/fatura-engine/internal/domain"
	"github.com/segyhp/fatura-engine/internal/logging"
	"github.com/segyhp/fatura-engine/internal/render"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/shopspring/decimal"
)

// Sender is the part of *tgbotapi.BotAPI the handler uses
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Ledger is the billing surface the bot drives
type Ledger interface {
	RegisterPurchase(ctx context.Context, request *domain.CreatePurchaseRequest) (*domain.Purchase, error)
	RegisterPayment(ctx context.Context, request *domain.CreatePaymentRequest) (*domain.Payment, error)
	DeactivatePurchase(ctx context.Context, ownerID string, purchaseID uuid.UUID) (*domain.Purchase, error)
	ListPurchases(ctx context.Context, ownerID string, includeInactive bool) ([]*domain.Purchase, error)
	ListPayments(ctx context.Context, ownerID string) ([]*domain.Payment, error)
	ComputeBalance(ctx context.Context, ownerID string, asOf time.Time) (decimal.Decimal, error)
	BuildClosedStatement(ctx context.Context, ownerID string, month, year int) (*domain.Statement, error)
	BuildOpenStatement(ctx context.Context, ownerID string, asOf time.Time) (*domain.Statement, error)
	UpsertRecurringPurchase(ctx context.Context, request *domain.UpsertRecurringRequest) (*domain.RecurringPurchase, error)
	ListRecurringPurchases(ctx context.Context, ownerID string, includeInactive bool) ([]*domain.RecurringPurchase, error)
	ApplyRecurring(ctx context.Context, ownerID string, period domain.Period) (*domain.ApplyRecurringResult, error)
	OpenPeriod(now time.Time) domain.Period
	LastClosedPeriod(now time.Time) domain.Period
	Now() time.Time
}

type Handler struct {
	api             Sender
	ledger          Ledger
	logger          logging.Logger
	adminID         int64
	messageMaxChars int
}

func NewHandler(api Sender, ledger Ledger, adminID int64, messageMaxChars int, logger logging.Logger) *Handler {
	return &Handler{
		api:             api,
		ledger:          ledger,
		logger:          logger,
		adminID:         adminID,
		messageMaxChars: messageMaxChars,
	}
}

// HandleUpdate dispatches one Telegram update. Only private chats are served.
func (h *Handler) HandleUpdate(ctx context.Context, upd tgbotapi.Update) {
	msg := upd.Message
	if msg == nil || msg.From == nil || msg.Chat == nil || !msg.Chat.IsPrivate() {
		return
	}

	command, args := splitCommand(strings.TrimSpace(msg.Text))
	if command == "" {
		return
	}

	ownerID := strconv.FormatInt(msg.From.ID, 10)
	chatID := msg.Chat.ID

	switch command {
	case "/start", "/help":
		h.reply(ctx, chatID, helpText)
	case "/saldo":
		h.handleBalance(ctx, chatID, ownerID)
	case "/fatura":
		h.handleOpenStatement(ctx, chatID, ownerID)
	case "/extrato":
		h.handleClosedStatement(ctx, chatID, ownerID, args)
	case "/gasto":
		h.handlePurchase(ctx, chatID, ownerID, args)
	case "/pagamento":
		h.handlePayment(ctx, chatID, ownerID, args)
	case "/gastos":
		h.handleListPurchases(ctx, chatID, ownerID)
	case "/pagamentos":
		h.handleListPayments(ctx, chatID, ownerID)
	case "/recorrente":
		h.handleRecurring(ctx, chatID, ownerID, args)
	case "/recorrentes":
		h.handleListRecurring(ctx, chatID, ownerID)
	case "/aplicar_recorrentes":
		h.handleApplyRecurring(ctx, chatID, ownerID, args)
	case "/admin_del_gasto":
		h.handleAdminDeletePurchase(ctx, chatID, msg.From.ID, args)
	default:
		h.reply(ctx, chatID, "Comando não reconhecido. Use /help para ver os comandos.")
	}
}

// reply sends text as HTML, split on line boundaries to fit one message each.
func (h *Handler) reply(ctx context.Context, chatID int64, text string) {
	h.replyLines(ctx, chatID, strings.Split(text, "\n"))
}

func (h *Handler) replyLines(ctx context.Context, chatID int64, lines []string) {
	for _, chunk := range render.Chunk(lines, h.messageMaxChars) {
		msg := tgbotapi.NewMessage(chatID, chunk)
		msg.ParseMode = tgbotapi.ModeHTML
		if _, err := h.api.Send(msg); err != nil {
			h.logger.Error(ctx, "telegram send failed", "chat_id", chatID, "error", err)
		}
	}
}

const helpText = `💳 <b>Controle de fatura do cartão</b>

<b>Comandos:</b>
• <code>/gasto &lt;descrição&gt; &lt;valor&gt; [parcelas]</code> - Registrar gasto
• <code>/pagamento &lt;valor&gt; [descrição]</code> - Registrar pagamento
• <code>/saldo</code> - Ver saldo atual
• <code>/fatura</code> - Ver fatura do ciclo aberto
• <code>/extrato [MM/AAAA]</code> - Ver extrato de um ciclo fechado
• <code>/gastos</code> - Ver histórico de gastos
• <code>/pagamentos</code> - Ver histórico de pagamentos
• <code>/recorrente &lt;descrição&gt; &lt;valor&gt; [#categoria]</code> - Cadastrar gasto recorrente
• <code>/recorrentes</code> - Ver gastos recorrentes
• <code>/aplicar_recorrentes [MM/AAAA]</code> - Lançar recorrentes no ciclo

<b>Exemplos:</b>
• <code>/gasto Almoço 25.50</code>
• <code>/gasto Notebook 1200.00 12</code> - 12 parcelas de R$ 100,00
• <code>/pagamento 200,50 Pagamento fatura março</code>`
