package billing

import "github.com/ehr/clinic/internal/platform/apperr"

// PaymentMethod is a balance that fees are paid from. It is supplied by the
// caller of a payment and is not stored by the registry.
type PaymentMethod struct {
	Type    string
	Details string
	balance float64
}

func NewPaymentMethod(methodType, details string, balance float64) (*PaymentMethod, error) {
	if balance < 0 {
		return nil, apperr.Validation("Initial balance cannot be negative")
	}
	return &PaymentMethod{Type: methodType, Details: details, balance: balance}, nil
}

func (m *PaymentMethod) Balance() float64 { return m.balance }

// Pay debits amount from the balance.
func (m *PaymentMethod) Pay(amount float64) error {
	if amount <= 0 {
		return apperr.Validation("Payment amount must be positive")
	}
	if amount > m.balance {
		return apperr.Rule("Not enough balance for payment")
	}
	m.balance -= amount
	return nil
}

// Refund credits amount back to the balance.
func (m *PaymentMethod) Refund(amount float64) error {
	if amount <= 0 {
		return apperr.Validation("Refund amount must be positive")
	}
	m.balance += amount
	return nil
}
