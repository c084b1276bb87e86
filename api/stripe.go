package api

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/stripe/stripe-go/v84"
	stripecustomer "github.com/stripe/stripe-go/v84/customer"
	"github.com/stripe/stripe-go/v84/invoice"

	"github.com/velocitymobility/fleetops-backend/bill"
	"github.com/velocitymobility/fleetops-backend/rider"
)

// invoiceBill issues a Stripe invoice for a bill. Runs after the trip
// response is sent; billing failures never affect the request outcome.
func (a *API) invoiceBill(ctx context.Context, logger *slog.Logger, r *rider.Rider, b bill.Bill) {
	stripeID, err := a.ensureStripeCustomer(ctx, r)
	if err != nil {
		logger.ErrorContext(ctx, "failed to resolve stripe customer", "error", err)
		return
	}

	inParams := &stripe.InvoiceParams{
		Customer: stripe.String(stripeID),
		Currency: stripe.String(b.Currency),
	}
	in, err := invoice.New(inParams)
	if err != nil {
		logger.ErrorContext(ctx, "failed to create invoice", "error", err)
		return
	}

	taxable := b.BaseCents + b.RideCents
	taxPct := a.cfg.Pricing.TaxRate * 100
	ilParams := &stripe.InvoiceAddLinesParams{
		Lines: []*stripe.InvoiceAddLinesLineParams{
			{
				Amount:      stripe.Int64(b.BaseCents),
				Description: stripe.String("Trip unlock"),
			},
			{
				Amount:      stripe.Int64(b.RideCents),
				Description: stripe.String(fmt.Sprintf("Trip - %d minutes", b.DurationMinutes)),
				TaxAmounts: []*stripe.InvoiceAddLinesLineTaxAmountParams{
					{
						Amount:        stripe.Int64(b.TaxCents),
						TaxableAmount: stripe.Int64(taxable),
						TaxRateData: &stripe.InvoiceAddLinesLineTaxAmountTaxRateDataParams{
							Percentage:  stripe.Float64(taxPct),
							Description: stripe.String("Sales Tax"),
							DisplayName: stripe.String(fmt.Sprintf("Sales Tax (%.3f%%)", taxPct)),
							Inclusive:   stripe.Bool(false),
						},
					},
				},
			},
		},
	}
	if _, err := invoice.AddLines(in.ID, ilParams); err != nil {
		logger.ErrorContext(ctx, "failed to add lines to invoice", "error", err)
		return
	}

	if _, err := invoice.FinalizeInvoice(in.ID, &stripe.InvoiceFinalizeInvoiceParams{}); err != nil {
		logger.ErrorContext(ctx, "failed to finalize invoice", "error", err)
		return
	}
	if _, err := invoice.Pay(in.ID, nil); err != nil {
		logger.ErrorContext(ctx, "failed to pay invoice", "error", err)
	}
}

// ensureStripeCustomer returns the rider's Stripe customer id, creating
// the customer on first billing.
func (a *API) ensureStripeCustomer(ctx context.Context, r *rider.Rider) (string, error) {
	if r.StripeID.Valid && r.StripeID.String != "" {
		return r.StripeID.String, nil
	}

	params := &stripe.CustomerParams{}
	if r.Email.Valid {
		params.Email = stripe.String(r.Email.String)
	}
	if r.Name.Valid {
		params.Name = stripe.String(r.Name.String)
	}

	cust, err := stripecustomer.New(params)
	if err != nil {
		return "", err
	}

	if err := a.cfg.Riders.AddStripeIDToRider(ctx, r.Auth0ID, cust.ID); err != nil {
		return "", err
	}
	return cust.ID, nil
}
