package stripegw

import (
	"context"
	"errors"

	"github.com/rs-labo46/ec-shop-api/internal/gateway"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// StripeGateway はStripe APIでgateway.Gatewayを実装する。
type StripeGateway struct {
	api    *client.API
	tracer trace.Tracer
}

// DI
func NewStripeGateway(secretKey string) *StripeGateway {
	return NewStripeGatewayWithBackends(secretKey, nil)
}

// 接続先を差し替える版（nilなら本番API）
func NewStripeGatewayWithBackends(secretKey string, backends *stripe.Backends) *StripeGateway {
	return &StripeGateway{
		api:    client.New(secretKey, backends),
		tracer: otel.Tracer("github.com/rs-labo46/ec-shop-api/internal/infra/stripegw"),
	}
}

// 顧客作成
func (g *StripeGateway) CreateCustomer(ctx context.Context, in gateway.CustomerInput) (string, error) {
	ctx, span := g.tracer.Start(ctx, "stripe.customers.create")
	defer span.End()

	params := &stripe.CustomerParams{
		Email: stripe.String(in.Email),
		Name:  stripe.String(in.Name),
	}
	if in.Phone != "" {
		params.Phone = stripe.String(in.Phone)
	}
	params.Context = ctx

	c, err := g.api.Customers.New(params)
	if err != nil {
		return "", wrap(span, "create customer", err)
	}
	span.SetAttributes(attribute.String("stripe.customer_id", c.ID))
	return c.ID, nil
}

// PaymentIntent作成（カード決済のみ）
func (g *StripeGateway) CreatePaymentIntent(ctx context.Context, in gateway.PaymentIntentInput) (gateway.PaymentIntent, error) {
	ctx, span := g.tracer.Start(ctx, "stripe.payment_intents.create")
	defer span.End()

	params := &stripe.PaymentIntentParams{
		Amount:             stripe.Int64(in.Amount),
		Currency:           stripe.String(in.Currency),
		Customer:           stripe.String(in.CustomerID),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		Description:        stripe.String(in.Description),
	}
	for k, v := range in.Metadata {
		params.AddMetadata(k, v)
	}
	params.Context = ctx

	pi, err := g.api.PaymentIntents.New(params)
	if err != nil {
		return gateway.PaymentIntent{}, wrap(span, "create payment intent", err)
	}
	span.SetAttributes(attribute.String("stripe.payment_intent_id", pi.ID))
	return toIntent(pi), nil
}

// 支払い方法を指定して確定する
func (g *StripeGateway) ConfirmPaymentIntent(ctx context.Context, paymentIntentID string, paymentMethod string) (gateway.PaymentIntent, error) {
	ctx, span := g.tracer.Start(ctx, "stripe.payment_intents.confirm",
		trace.WithAttributes(attribute.String("stripe.payment_intent_id", paymentIntentID)))
	defer span.End()

	params := &stripe.PaymentIntentConfirmParams{
		PaymentMethod: stripe.String(paymentMethod),
	}
	params.Context = ctx

	pi, err := g.api.PaymentIntents.Confirm(paymentIntentID, params)
	if err != nil {
		return gateway.PaymentIntent{}, wrap(span, "confirm payment intent", err)
	}
	return toIntent(pi), nil
}

func (g *StripeGateway) RetrievePaymentIntent(ctx context.Context, paymentIntentID string) (gateway.PaymentIntent, error) {
	ctx, span := g.tracer.Start(ctx, "stripe.payment_intents.retrieve",
		trace.WithAttributes(attribute.String("stripe.payment_intent_id", paymentIntentID)))
	defer span.End()

	params := &stripe.PaymentIntentParams{}
	params.Context = ctx

	pi, err := g.api.PaymentIntents.Get(paymentIntentID, params)
	if err != nil {
		return gateway.PaymentIntent{}, wrap(span, "retrieve payment intent", err)
	}
	return toIntent(pi), nil
}

func (g *StripeGateway) CancelPaymentIntent(ctx context.Context, paymentIntentID string) (gateway.PaymentIntent, error) {
	ctx, span := g.tracer.Start(ctx, "stripe.payment_intents.cancel",
		trace.WithAttributes(attribute.String("stripe.payment_intent_id", paymentIntentID)))
	defer span.End()

	params := &stripe.PaymentIntentCancelParams{}
	params.Context = ctx

	pi, err := g.api.PaymentIntents.Cancel(paymentIntentID, params)
	if err != nil {
		return gateway.PaymentIntent{}, wrap(span, "cancel payment intent", err)
	}
	return toIntent(pi), nil
}

// 商品と価格を作る
func (g *StripeGateway) CreateProduct(ctx context.Context, in gateway.ProductInput) (gateway.ProductRef, error) {
	ctx, span := g.tracer.Start(ctx, "stripe.products.create")
	defer span.End()

	pp := &stripe.ProductParams{
		Name:        stripe.String(in.Name),
		Description: stripe.String(in.Description),
	}
	pp.Context = ctx

	prod, err := g.api.Products.New(pp)
	if err != nil {
		return gateway.ProductRef{}, wrap(span, "create product", err)
	}

	priceParams := &stripe.PriceParams{
		UnitAmount: stripe.Int64(in.UnitAmount),
		Currency:   stripe.String(in.Currency),
		Product:    stripe.String(prod.ID),
	}
	priceParams.Context = ctx

	price, err := g.api.Prices.New(priceParams)
	if err != nil {
		return gateway.ProductRef{}, wrap(span, "create price", err)
	}

	return gateway.ProductRef{ProductID: prod.ID, PriceID: price.ID}, nil
}

func (g *StripeGateway) DeleteProduct(ctx context.Context, gatewayProductID string) error {
	ctx, span := g.tracer.Start(ctx, "stripe.products.delete",
		trace.WithAttributes(attribute.String("stripe.product_id", gatewayProductID)))
	defer span.End()

	params := &stripe.ProductParams{}
	params.Context = ctx

	if _, err := g.api.Products.Del(gatewayProductID, params); err != nil {
		return wrap(span, "delete product", err)
	}
	return nil
}

func toIntent(pi *stripe.PaymentIntent) gateway.PaymentIntent {
	return gateway.PaymentIntent{
		ID:           pi.ID,
		ClientSecret: pi.ClientSecret,
		Status:       gateway.IntentStatus(pi.Status),
		Amount:       pi.Amount,
		Currency:     string(pi.Currency),
		Metadata:     pi.Metadata,
	}
}

// Stripeのエラーをgateway.Errorに包む
func wrap(span trace.Span, op string, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, op)

	ge := &gateway.Error{Op: op, Reason: err.Error(), Err: err}
	var se *stripe.Error
	if errors.As(err, &se) {
		ge.Code = string(se.Code)
		if se.Msg != "" {
			ge.Reason = se.Msg
		}
	}
	return ge
}
