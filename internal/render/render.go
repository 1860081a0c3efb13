// Package render turns ledger results into Telegram HTML messages.
package render

import (
	"fmt"
	"html"
	"strings"
	"unicode/utf8"

	"github.com/segyhp/fatura-engine/internal/domain"
	"github.com/segyhp/fatura-engine/pkg/utils"

	"github.com/shopspring/decimal"
)

const (
	dayMonthYear = "02/01/2006"
	dayMonth     = "02/01"
)

// StatementLines renders a statement one display line per element.
func StatementLines(s *domain.Statement) []string {
	closed := s.Kind == domain.StatementKindClosed
	cycle := s.Period.String()

	var lines []string
	if closed {
		lines = append(lines, fmt.Sprintf("📜 <b>Extrato fechado do ciclo %s</b>", cycle))
	} else {
		lines = append(lines, fmt.Sprintf("🧾 <b>Fatura do ciclo %s (aberta)</b>", cycle))
	}
	lines = append(lines, fmt.Sprintf("Período: %s a %s",
		s.PeriodStart.Format(dayMonthYear), s.PeriodEnd.Format(dayMonthYear)))

	lines = append(lines, "")
	if closed {
		lines = append(lines, "Este extrato mostra as parcelas e pagamentos que caíram neste ciclo de fatura. Não é o saldo geral do cartão.")
	} else {
		lines = append(lines, "Esta fatura mostra apenas as parcelas deste ciclo de fatura. Não é o saldo geral do cartão.")
	}

	if len(s.Items) == 0 {
		lines = append(lines, "Não há movimentações neste período.")
	}
	for _, item := range s.Items {
		lines = append(lines, itemLine(item))
	}

	lines = append(lines,
		"",
		"<b>Totais do Período</b>",
		"Gastos/Parcelas: "+utils.FormatBRL(s.Totals.ParcelasTotal),
	)
	if s.Totals.PagamentosTotal.IsPositive() {
		lines = append(lines, "Pagamentos: -"+utils.FormatBRL(s.Totals.PagamentosTotal))
	}
	lines = append(lines, "<b>Saldo do Período:</b> "+utils.FormatBRL(s.Totals.SaldoPeriodo))

	return lines
}

func itemLine(item domain.StatementLine) string {
	description := strings.TrimSpace(item.Description)
	if description == "" {
		description = "(sem descrição)"
	}
	description = html.EscapeString(description)
	date := item.DisplayDate.Format(dayMonth)
	amount := utils.FormatBRL(item.Amount)

	if item.Kind == domain.LineKindPayment {
		return fmt.Sprintf("• %s — <b>%s</b> — %s", date, description, amount)
	}
	marker := ""
	if item.InstallmentIndex > 0 && item.InstallmentCount > 0 {
		marker = fmt.Sprintf(" (%d/%d)", item.InstallmentIndex, item.InstallmentCount)
	}
	return fmt.Sprintf("• %s — %s%s — %s", date, description, marker, amount)
}

// Statement renders s and splits it into messages of at most maxChars characters.
func Statement(s *domain.Statement, maxChars int) []string {
	return Chunk(StatementLines(s), maxChars)
}

// Balance renders the /saldo reply.
func Balance(balance decimal.Decimal) string {
	switch domain.BalanceStatus(balance) {
	case domain.BalanceStatusDebtor:
		return "📊 <b>Saldo devedor:</b> " + utils.FormatBRL(balance)
	case domain.BalanceStatusCredit:
		return "💚 <b>Saldo credor:</b> " + utils.FormatBRL(balance.Abs())
	default:
		return "✅ <b>Fatura quitada!</b> Saldo: " + utils.FormatBRL(decimal.Zero)
	}
}

// Purchases renders an owner's purchase history.
func Purchases(purchases []*domain.Purchase) []string {
	if len(purchases) == 0 {
		return []string{"📋 Nenhum gasto registrado."}
	}

	lines := []string{"📋 <b>Seus gastos</b>", ""}
	total := decimal.Zero
	for _, p := range purchases {
		lines = append(lines,
			fmt.Sprintf("• <b>%s</b> — %s", html.EscapeString(orPlaceholder(p.Description)), utils.FormatBRL(p.TotalAmount)),
			fmt.Sprintf("  %dx de %s desde %s · <code>%s</code>",
				p.InstallmentCount, utils.FormatBRL(p.InstallmentAmount), p.PurchasedAt.Format(dayMonthYear), p.ID),
		)
		total = total.Add(p.TotalAmount)
	}
	lines = append(lines, "", "💳 <b>Total em gastos:</b> "+utils.FormatBRL(total))
	return lines
}

// Payments renders an owner's payment history.
func Payments(payments []*domain.Payment) []string {
	if len(payments) == 0 {
		return []string{"💸 Nenhum pagamento registrado."}
	}

	lines := []string{"💸 <b>Seus pagamentos</b>", ""}
	total := decimal.Zero
	for _, p := range payments {
		lines = append(lines, fmt.Sprintf("• <b>%s</b> — %s em %s",
			utils.FormatBRL(p.Amount), html.EscapeString(orPlaceholder(p.Description)), p.PaidAt.Format(dayMonthYear)))
		total = total.Add(p.Amount)
	}
	lines = append(lines, "", "💰 <b>Total pago:</b> "+utils.FormatBRL(total))
	return lines
}

// RecurringPurchases renders an owner's recurring templates.
func RecurringPurchases(templates []*domain.RecurringPurchase) []string {
	if len(templates) == 0 {
		return []string{"🔁 Nenhum gasto recorrente cadastrado."}
	}

	lines := []string{"🔁 <b>Seus gastos recorrentes</b>", ""}
	total := decimal.Zero
	for _, t := range templates {
		line := fmt.Sprintf("• <b>%s</b> — %s", html.EscapeString(orPlaceholder(t.Description)), utils.FormatBRL(t.Amount))
		if t.Category != "" {
			line += " #" + html.EscapeString(t.Category)
		}
		if !t.Active {
			line += " (inativo)"
		} else {
			total = total.Add(t.Amount)
		}
		lines = append(lines, line, fmt.Sprintf("  <code>%s</code>", t.ID))
	}
	lines = append(lines, "", "📅 <b>Total mensal:</b> "+utils.FormatBRL(total))
	return lines
}

// ApplyResult renders the /aplicar_recorrentes reply.
func ApplyResult(r *domain.ApplyRecurringResult) string {
	if r.Templates == 0 {
		return "🔁 Nenhum gasto recorrente ativo para aplicar."
	}
	return fmt.Sprintf("🔁 <b>Recorrentes aplicados no ciclo %s</b>\n\n✅ Criados: %d\n⏭️ Ignorados: %d\n📋 Total: %d",
		r.Period.String(), r.Created, r.Skipped, r.Templates)
}

func orPlaceholder(description string) string {
	if strings.TrimSpace(description) == "" {
		return "(sem descrição)"
	}
	return description
}

// Chunk joins lines with "\n" into messages no longer than maxChars
// characters, breaking only between lines. A single line longer than
// maxChars is cut to fit and ends with "…".
func Chunk(lines []string, maxChars int) []string {
	var (
		messages []string
		current  strings.Builder
		size     int
		started  bool
	)
	flush := func() {
		if started {
			messages = append(messages, current.String())
			current.Reset()
			size = 0
			started = false
		}
	}

	for _, line := range lines {
		line = truncate(line, maxChars)
		n := utf8.RuneCountInString(line)
		if started && size+1+n > maxChars {
			flush()
		}
		if started {
			current.WriteByte('\n')
			size++
		}
		current.WriteString(line)
		size += n
		started = true
	}
	flush()

	return messages
}

func truncate(line string, maxChars int) string {
	if maxChars < 1 || utf8.RuneCountInString(line) <= maxChars {
		return line
	}
	runes := []rune(line)
	return string(runes[:maxChars-1]) + "…"
}
