package enums

// PaymentMethod is how a shopper settled an order.
type PaymentMethod string

const (
	PaymentMethodCOD        PaymentMethod = "COD"
	PaymentMethodCard       PaymentMethod = "CARD"
	PaymentMethodUPI        PaymentMethod = "UPI"
	PaymentMethodNetBanking PaymentMethod = "NETBANKING"
	PaymentMethodWallet     PaymentMethod = "WALLET"
)

var paymentMethods = []PaymentMethod{
	PaymentMethodCOD,
	PaymentMethodCard,
	PaymentMethodUPI,
	PaymentMethodNetBanking,
	PaymentMethodWallet,
}

func (p PaymentMethod) String() string { return string(p) }

func (p PaymentMethod) IsValid() bool { return known(paymentMethods, p) }

// ParsePaymentMethod accepts any casing ("upi", " Card ").
func ParsePaymentMethod(value string) (PaymentMethod, error) {
	return parse(paymentMethods, value, "payment method", true)
}
