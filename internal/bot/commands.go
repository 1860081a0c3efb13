package bot

import (
	"context"
	"errors"
	"fmt"
	"html"

	"github.com/google/uuid"
	"github.com/segyhp/fatura-engine/internal/domain"
	"github.com/segyhp/fatura-engine/internal/render"
	customError "github.com/segyhp/fatura-engine/pkg/errors"
	"github.com/segyhp/fatura-engine/pkg/utils"
)

func (h *Handler) handleBalance(ctx context.Context, chatID int64, ownerID string) {
	balance, err := h.ledger.ComputeBalance(ctx, ownerID, h.ledger.Now())
	if err != nil {
		h.replyError(ctx, chatID, ownerID, err)
		return
	}
	h.reply(ctx, chatID, render.Balance(balance))
}

func (h *Handler) handleOpenStatement(ctx context.Context, chatID int64, ownerID string) {
	statement, err := h.ledger.BuildOpenStatement(ctx, ownerID, h.ledger.Now())
	if err != nil {
		h.replyError(ctx, chatID, ownerID, err)
		return
	}
	h.replyLines(ctx, chatID, render.StatementLines(statement))
}

func (h *Handler) handleClosedStatement(ctx context.Context, chatID int64, ownerID string, args []string) {
	period := h.ledger.LastClosedPeriod(h.ledger.Now())
	if len(args) > 0 {
		month, year, err := utils.ParseCycle(args[0])
		if err != nil {
			h.replyError(ctx, chatID, ownerID, err)
			return
		}
		period = domain.Period{Month: month, Year: year}
	}

	statement, err := h.ledger.BuildClosedStatement(ctx, ownerID, period.Month, period.Year)
	if err != nil {
		h.replyError(ctx, chatID, ownerID, err)
		return
	}
	h.replyLines(ctx, chatID, render.StatementLines(statement))
}

func (h *Handler) handlePurchase(ctx context.Context, chatID int64, ownerID string, args []string) {
	parsed, err := ParsePurchaseArgs(args)
	if err != nil {
		h.reply(ctx, chatID, purchaseUsage)
		return
	}

	purchase, err := h.ledger.RegisterPurchase(ctx, &domain.CreatePurchaseRequest{
		OwnerID:          ownerID,
		Description:      parsed.Description,
		TotalAmount:      parsed.Amount,
		InstallmentCount: parsed.Installments,
	})
	if err != nil {
		h.replyError(ctx, chatID, ownerID, err)
		return
	}

	text := fmt.Sprintf("✅ <b>Gasto registrado!</b>\n\n📝 %s\n💰 Total: %s",
		html.EscapeString(purchase.Description), utils.FormatBRL(purchase.TotalAmount))
	if purchase.InstallmentCount > 1 {
		text += fmt.Sprintf("\n📅 %dx de %s", purchase.InstallmentCount, utils.FormatBRL(purchase.InstallmentAmount))
	}
	text += fmt.Sprintf("\n🆔 <code>%s</code>", purchase.ID)
	h.reply(ctx, chatID, text)
}

func (h *Handler) handlePayment(ctx context.Context, chatID int64, ownerID string, args []string) {
	parsed, err := ParsePaymentArgs(args)
	if err != nil {
		h.reply(ctx, chatID, paymentUsage)
		return
	}

	payment, err := h.ledger.RegisterPayment(ctx, &domain.CreatePaymentRequest{
		OwnerID:     ownerID,
		Amount:      parsed.Amount,
		Description: parsed.Description,
	})
	if err != nil {
		h.replyError(ctx, chatID, ownerID, err)
		return
	}

	text := fmt.Sprintf("✅ <b>Pagamento registrado!</b>\n\n💰 %s\n📝 %s",
		utils.FormatBRL(payment.Amount), html.EscapeString(payment.Description))

	balance, err := h.ledger.ComputeBalance(ctx, ownerID, h.ledger.Now())
	if err != nil {
		h.logger.Warn(ctx, "balance after payment unavailable", "owner_id", ownerID, "error", err)
	} else {
		text += "\n\n" + render.Balance(balance)
	}
	h.reply(ctx, chatID, text)
}

func (h *Handler) handleListPurchases(ctx context.Context, chatID int64, ownerID string) {
	purchases, err := h.ledger.ListPurchases(ctx, ownerID, false)
	if err != nil {
		h.replyError(ctx, chatID, ownerID, err)
		return
	}
	h.replyLines(ctx, chatID, render.Purchases(purchases))
}

func (h *Handler) handleListPayments(ctx context.Context, chatID int64, ownerID string) {
	payments, err := h.ledger.ListPayments(ctx, ownerID)
	if err != nil {
		h.replyError(ctx, chatID, ownerID, err)
		return
	}
	h.replyLines(ctx, chatID, render.Payments(payments))
}

func (h *Handler) handleRecurring(ctx context.Context, chatID int64, ownerID string, args []string) {
	parsed, err := ParseRecurringArgs(args)
	if err != nil {
		h.reply(ctx, chatID, recurringUsage)
		return
	}

	template, err := h.ledger.UpsertRecurringPurchase(ctx, &domain.UpsertRecurringRequest{
		OwnerID:     ownerID,
		Description: parsed.Description,
		Category:    parsed.Category,
		Amount:      parsed.Amount,
	})
	if err != nil {
		h.replyError(ctx, chatID, ownerID, err)
		return
	}

	h.reply(ctx, chatID, fmt.Sprintf("✅ <b>Gasto recorrente cadastrado!</b>\n\n📝 %s\n💰 %s por ciclo\n🆔 <code>%s</code>",
		html.EscapeString(template.Description), utils.FormatBRL(template.Amount), template.ID))
}

func (h *Handler) handleListRecurring(ctx context.Context, chatID int64, ownerID string) {
	templates, err := h.ledger.ListRecurringPurchases(ctx, ownerID, false)
	if err != nil {
		h.replyError(ctx, chatID, ownerID, err)
		return
	}
	h.replyLines(ctx, chatID, render.RecurringPurchases(templates))
}

func (h *Handler) handleApplyRecurring(ctx context.Context, chatID int64, ownerID string, args []string) {
	period := h.ledger.OpenPeriod(h.ledger.Now())
	if len(args) > 0 {
		month, year, err := utils.ParseCycle(args[0])
		if err != nil {
			h.replyError(ctx, chatID, ownerID, err)
			return
		}
		period = domain.Period{Month: month, Year: year}
	}

	result, err := h.ledger.ApplyRecurring(ctx, ownerID, period)
	if err != nil {
		h.replyError(ctx, chatID, ownerID, err)
		return
	}
	h.reply(ctx, chatID, render.ApplyResult(result))
}

func (h *Handler) handleAdminDeletePurchase(ctx context.Context, chatID, userID int64, args []string) {
	if h.adminID == 0 || userID != h.adminID {
		h.reply(ctx, chatID, "⛔ Comando restrito ao administrador.")
		return
	}
	if len(args) != 1 {
		h.reply(ctx, chatID, "Uso: <code>/admin_del_gasto &lt;id&gt;</code>")
		return
	}
	purchaseID, err := uuid.Parse(args[0])
	if err != nil {
		h.reply(ctx, chatID, "❌ ID de gasto inválido.")
		return
	}

	purchase, err := h.ledger.DeactivatePurchase(ctx, "", purchaseID)
	if err != nil {
		h.replyError(ctx, chatID, "", err)
		return
	}
	h.logger.Info(ctx, "purchase removed by admin", "admin_id", userID, "purchase_id", purchaseID, "owner_id", purchase.OwnerID)
	h.reply(ctx, chatID, fmt.Sprintf("🗑️ Gasto <b>%s</b> removido.", html.EscapeString(purchase.Description)))
}

// replyError turns a ledger error into a user message. Store failures are
// reported as such, never as an empty ledger or a zero balance.
func (h *Handler) replyError(ctx context.Context, chatID int64, ownerID string, err error) {
	var text string
	switch customError.CodeOf(err) {
	case customError.ErrCodeInvalidAmount:
		text = "❌ <b>Valor inválido!</b> Use um valor positivo com até 2 casas decimais e parcelas de pelo menos R$ 0,01."
	case customError.ErrCodeInvalidInstallmentCount:
		text = "❌ <b>Número de parcelas inválido!</b>"
	case customError.ErrCodePeriodOutOfRange:
		text = "❌ Ciclo inválido. Use <code>MM/AAAA</code>, por exemplo <code>09/2025</code>."
	case customError.ErrCodePurchaseNotFound:
		text = "❌ Gasto não encontrado."
	case customError.ErrCodeRecurringNotFound:
		text = "❌ Gasto recorrente não encontrado."
	case customError.ErrCodeValidationFailed:
		text = "❌ Dados inválidos. Verifique a descrição e tente novamente."
	default:
		text = "⚠️ Não foi possível acessar seus dados agora. Tente novamente em instantes."
		if !errors.Is(err, customError.ErrStoreUnavailable) {
			h.logger.Error(ctx, "unexpected ledger error", "owner_id", ownerID, "error", err)
		} else {
			h.logger.Warn(ctx, "ledger store unavailable", "owner_id", ownerID, "error", err)
		}
	}
	h.reply(ctx, chatID, text)
}

const purchaseUsage = "❌ <b>Uso incorreto!</b>\n\n" +
	"<b>Formato:</b> <code>/gasto &lt;descrição&gt; &lt;valor&gt; [parcelas]</code>\n\n" +
	"<b>Exemplos:</b>\n" +
	"• <code>/gasto Almoço 25.50</code>\n" +
	"• <code>/gasto Notebook 1200.00 12</code>"

const paymentUsage = "❌ <b>Valor inválido!</b>\n\n" +
	"<b>Formato:</b> <code>/pagamento &lt;valor&gt; [descrição]</code>\n\n" +
	"<b>Exemplos:</b>\n" +
	"• <code>/pagamento 100</code>\n" +
	"• <code>/pagamento 150,50 Pagamento fatura março</code>"

const recurringUsage = "❌ <b>Uso incorreto!</b>\n\n" +
	"<b>Formato:</b> <code>/recorrente &lt;descrição&gt; &lt;valor&gt; [#categoria]</code>\n\n" +
	"<b>Exemplos:</b>\n" +
	"• <code>/recorrente Streaming 39,90</code>\n" +
	"• <code>/recorrente Academia 120 #saude</code>"
