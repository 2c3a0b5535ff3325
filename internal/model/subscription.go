package model

// DefaultPremiumAmountFCFA is the yearly premium price.
const DefaultPremiumAmountFCFA = 1200

// SubscriptionStatus is the response of GET /subscriptions/check.
type SubscriptionStatus struct {
	IsPremium bool       `json:"is_premium"`
	ExpiresAt *Timestamp `json:"expires_at,omitempty"`
}

// PaymentRequest is the body of POST /payments/{provider}/initiate.
type PaymentRequest struct {
	UserID     string `json:"user_id"`
	AmountFCFA int    `json:"amount_fcfa"`
}

// PaymentInitiation is returned when a payment is started.
type PaymentInitiation struct {
	TransactionID string `json:"transaction_id"`
	Provider      string `json:"provider"`
	RedirectURL   string `json:"redirect_url,omitempty"`
	PaymentURL    string `json:"payment_url,omitempty"`
}

// CheckoutURL returns the URL the user must open to pay.
func (p PaymentInitiation) CheckoutURL() string {
	if p.PaymentURL != "" {
		return p.PaymentURL
	}
	return p.RedirectURL
}

// Payment statuses reported by the payment history endpoint.
const (
	PaymentAccepted = "ACCEPTED"
	PaymentRefused  = "REFUSED"
	PaymentPending  = "PENDING"
)

// Payment is one row of the payment history.
type Payment struct {
	TransactionID string    `json:"transaction_id"`
	AmountFCFA    int       `json:"amount_fcfa"`
	Provider      string    `json:"provider"`
	Status        string    `json:"status"`
	CreatedAt     Timestamp `json:"created_at"`
}

// PaymentValidation is the body of POST /payments/{provider}/validate.
type PaymentValidation struct {
	TransactionID string `json:"transaction_id"`
	Success       bool   `json:"success"`
}
