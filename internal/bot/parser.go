package bot

import (
	"errors"
	"strconv"
	"strings"

	"github.com/segyhp/fatura-engine/pkg/utils"

	"github.com/shopspring/decimal"
)

var errUsage = errors.New("usage")

// PurchaseArgs is a parsed /gasto command
type PurchaseArgs struct {
	Description  string
	Amount       decimal.Decimal
	Installments int
}

// ParsePurchaseArgs parses "<descrição> <valor> [parcelas]". The description
// may span several words; a trailing integer after a valid amount is the
// installment count.
func ParsePurchaseArgs(args []string) (PurchaseArgs, error) {
	if len(args) < 2 {
		return PurchaseArgs{}, errUsage
	}

	n := len(args)
	if n > 2 {
		if installments, err := strconv.Atoi(args[n-1]); err == nil {
			if amount, err := utils.ParseAmount(args[n-2]); err == nil {
				return PurchaseArgs{
					Description:  strings.Join(args[:n-2], " "),
					Amount:       amount,
					Installments: installments,
				}, nil
			}
		}
	}

	amount, err := utils.ParseAmount(args[n-1])
	if err != nil {
		return PurchaseArgs{}, err
	}
	return PurchaseArgs{
		Description:  strings.Join(args[:n-1], " "),
		Amount:       amount,
		Installments: 1,
	}, nil
}

// PaymentArgs is a parsed /pagamento command
type PaymentArgs struct {
	Amount      decimal.Decimal
	Description string
}

const defaultPaymentDescription = "Pagamento"

// ParsePaymentArgs parses "<valor> [descrição]".
func ParsePaymentArgs(args []string) (PaymentArgs, error) {
	if len(args) < 1 {
		return PaymentArgs{}, errUsage
	}

	amount, err := utils.ParseAmount(args[0])
	if err != nil {
		return PaymentArgs{}, err
	}

	description := strings.Join(args[1:], " ")
	if description == "" {
		description = defaultPaymentDescription
	}
	return PaymentArgs{Amount: amount, Description: description}, nil
}

// RecurringArgs is a parsed /recorrente command
type RecurringArgs struct {
	Description string
	Category    string
	Amount      decimal.Decimal
}

// ParseRecurringArgs parses "<descrição> <valor> [#categoria]".
func ParseRecurringArgs(args []string) (RecurringArgs, error) {
	var parsed RecurringArgs
	if n := len(args); n > 0 && strings.HasPrefix(args[n-1], "#") {
		parsed.Category = strings.TrimPrefix(args[n-1], "#")
		args = args[:n-1]
	}
	if len(args) < 2 {
		return RecurringArgs{}, errUsage
	}

	n := len(args)
	amount, err := utils.ParseAmount(args[n-1])
	if err != nil {
		return RecurringArgs{}, err
	}
	parsed.Amount = amount
	parsed.Description = strings.Join(args[:n-1], " ")
	return parsed, nil
}

// splitCommand returns the command (without any @botname suffix) and its arguments.
func splitCommand(text string) (string, []string) {
	fields := strings.Fields(text)
	if len(fields) == 0 || !strings.HasPrefix(fields[0], "/") {
		return "", nil
	}
	command := strings.ToLower(fields[0])
	if i := strings.Index(command, "@"); i >= 0 {
		command = command[:i]
	}
	return command, fields[1:]
}
