package payments

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stripe/stripe-go/v79"
)

func TestVoteAmountCents(t *testing.T) {
	tests := []struct {
		votes int
		want  int64
	}{
		{1, 100},
		{5, 500},
		{1000, 100000},
	}
	for _, tt := range tests {
		if got := VoteAmountCents(tt.votes); got != tt.want {
			t.Errorf("VoteAmountCents(%d) = %d, want %d", tt.votes, got, tt.want)
		}
	}
}

func TestProviderErrorUnwrap(t *testing.T) {
	cause := errors.New("card_declined")
	err := &ProviderError{Message: "Your card was declined.", Err: cause}
	if !errors.Is(err, cause) {
		t.Error("ProviderError does not unwrap to its cause")
	}
	if !strings.Contains(err.Error(), "Your card was declined.") {
		t.Errorf("Error() = %q", err.Error())
	}
	if got := (&ProviderError{Message: "amount must be positive"}).Error(); got != "payment provider: amount must be positive" {
		t.Errorf("Error() = %q", got)
	}
}

func TestNewStripeProvider(t *testing.T) {
	if _, err := NewStripeProvider("  ", "usd"); err == nil {
		t.Error("expected an error for an empty secret key")
	}
	p, err := NewStripeProvider("sk_test_123", "")
	if err != nil {
		t.Fatalf("NewStripeProvider: %v", err)
	}
	if got := p.(*stripeProvider).currency; got != "usd" {
		t.Errorf("default currency = %q, want usd", got)
	}
}

func TestIntentFromStripe(t *testing.T) {
	pi := &stripe.PaymentIntent{
		ID:               "pi_1",
		ClientSecret:     "pi_1_secret",
		Status:           stripe.PaymentIntentStatusRequiresPaymentMethod,
		Amount:           300,
		Currency:         stripe.CurrencyUSD,
		Metadata:         map[string]string{MetaVoteCount: "3"},
		LastPaymentError: &stripe.Error{Msg: "Your card has insufficient funds."},
	}
	got := intentFromStripe(pi)
	if got.ID != "pi_1" || got.ClientSecret != "pi_1_secret" || got.AmountCents != 300 || got.Currency != "usd" {
		t.Errorf("intent = %+v", got)
	}
	if got.Status != StatusRequiresPaymentMethod {
		t.Errorf("status = %q", got.Status)
	}
	if got.Message != "Your card has insufficient funds." || got.Metadata[MetaVoteCount] != "3" {
		t.Errorf("intent = %+v", got)
	}
}

func TestCreateIntentRejectsNonPositiveAmount(t *testing.T) {
	p, err := NewStripeProvider("sk_test_123", "usd")
	if err != nil {
		t.Fatal(err)
	}
	_, err = p.CreateIntent(context.Background(), IntentParams{AmountCents: 0})
	var perr *ProviderError
	if !errors.As(err, &perr) {
		t.Fatalf("error = %v, want *ProviderError", err)
	}
}
