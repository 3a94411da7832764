package order

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"time"

	"github.com/google/uuid"
	"github.com/volatiletech/null/v8"

	"github.com/mavuno/sokoni/core"
	"github.com/mavuno/sokoni/core/cart"
	"github.com/mavuno/sokoni/core/notification"
	"github.com/mavuno/sokoni/core/user"
)

var (
	// errors
	ErrNotFound      = errors.New("order not found")
	ErrEmptyCart     = errors.New("cart is empty")
	ErrNotCancelable = errors.New("only pending orders can be cancelled")

	NowFunc = time.Now // mockable
)

type (
	Repository interface {
		CreateOrder(ctx context.Context, ord Order) (Order, error)
		GetOrderByID(ctx context.Context, id string) (Order, error)
		QueryOrdersByUserID(ctx context.Context, userID string) ([]Order, error)
		FilterOrders(ctx context.Context, filter QueryFilter) ([]Order, error)
		UpdateOrderStatus(ctx context.Context, id, status string, carrier, trackingNo null.String, updatedAt time.Time) (Order, error)
		QueryAdminIDs(ctx context.Context) ([]string, error)
	}

	Service struct {
		repo     Repository
		cartSvc  *cart.Service
		userSvc  *user.Service
		notifSvc *notification.Service
		mailSvc  core.EmailService
	}
)

func NewService(repo Repository, cartSvc *cart.Service, userSvc *user.Service, notifSvc *notification.Service, mailSvc core.EmailService) *Service {
	return &Service{repo: repo, cartSvc: cartSvc, userSvc: userSvc, notifSvc: notifSvc, mailSvc: mailSvc}
}

// Checkout converts the user's cart into an order and clears the cart.
// The stored total is exactly the cart item sum; tax/shipping are not
// persisted. Fan-out and the confirmation email are best effort.
func (svc *Service) Checkout(ctx context.Context, userID string, co Checkout) (Order, error) {
	c, err := svc.cartSvc.Get(ctx, userID)
	if err != nil {
		return Order{}, err
	}
	if c.IsEmpty() {
		return Order{}, core.NewValidationError(ErrEmptyCart, core.FieldError{Field: "items", Error: ErrEmptyCart.Error()})
	}

	items := make([]Item, 0, len(c.Items))
	for _, it := range c.Items {
		items = append(items, Item{
			ProductID: it.ProductID,
			Name:      it.Name,
			Price:     it.Price,
			Quantity:  it.Quantity,
			Image:     it.Image,
		})
	}

	now := NowFunc().UTC()
	ord := Order{
		ID:        uuid.NewString(),
		Number:    uuid.NewString(),
		UserID:    userID,
		Items:     items,
		Shipping:  co.Shipping,
		Status:    StatusPending,
		Total:     c.Total(),
		CreatedAt: now,
		UpdatedAt: now,
	}
	ord, err = svc.repo.CreateOrder(ctx, ord)
	if err != nil {
		return Order{}, err
	}

	if _, err = svc.cartSvc.Clear(ctx, userID); err != nil {
		return Order{}, err
	}

	// best effort
	_, _ = svc.notifSvc.Notify(ctx, userID,
		notification.TypeNewOrder, "Order placed",
		fmt.Sprintf("Your order of %s was received.", core.FormatPrice(ord.Total)),
		"/orders/"+ord.ID)
	if adminIDs, err := svc.repo.QueryAdminIDs(ctx); err == nil {
		_ = svc.notifSvc.Broadcast(ctx, adminIDs,
			notification.TypeNewOrder, "New order",
			fmt.Sprintf("New order of %s.", core.FormatPrice(ord.Total)),
			"/admin/orders/"+ord.ID)
	}
	svc.sendOrderEmail(ctx, ord, "order_confirmation", "Order Confirmation")

	return ord, nil
}

func (svc *Service) GetByID(ctx context.Context, id string) (Order, error) {
	return svc.repo.GetOrderByID(ctx, id)
}

func (svc *Service) QueryByUser(ctx context.Context, userID string) ([]Order, error) {
	return svc.repo.QueryOrdersByUserID(ctx, userID)
}

func (svc *Service) Filter(ctx context.Context, filter QueryFilter) ([]Order, error) {
	return svc.repo.FilterOrders(ctx, filter)
}

// SetStatus overwrites the order status. The target string must be one of
// the fixed set (validated upstream); the transition itself is not checked,
// so delivered -> pending is accepted. Any new status except pending fans
// out one notification to the order's owner and one per admin.
func (svc *Service) SetStatus(ctx context.Context, id string, us UpdateStatus) (Order, error) {
	ord, err := svc.repo.GetOrderByID(ctx, id)
	if err != nil {
		return Order{}, err
	}
	ord, err = svc.repo.UpdateOrderStatus(ctx, ord.ID, us.Status, us.TrackingCarrier, us.TrackingNumber, NowFunc().UTC())
	if err != nil {
		return Order{}, err
	}

	if ord.Status != StatusPending {
		svc.notifyStatusChange(ctx, ord)
		svc.sendOrderEmail(ctx, ord, "order_status", statusEmailSubject(ord.Status))
	}
	return ord, nil
}

// Cancel lets the order's owner cancel it while it is still pending.
func (svc *Service) Cancel(ctx context.Context, userID, id string) (Order, error) {
	ord, err := svc.repo.GetOrderByID(ctx, id)
	if err != nil {
		return Order{}, err
	}
	if ord.UserID != userID {
		return Order{}, ErrNotFound
	}
	if ord.Status != StatusPending {
		return Order{}, core.NewValidationError(ErrNotCancelable, core.FieldError{Field: "status", Error: ErrNotCancelable.Error()})
	}
	return svc.SetStatus(ctx, id, UpdateStatus{Status: StatusCancelled})
}

func (svc *Service) notifyStatusChange(ctx context.Context, ord Order) {
	msg := fmt.Sprintf("Order %s is now %s.", ord.Number, ord.Status)
	_, _ = svc.notifSvc.Notify(ctx, ord.UserID,
		notification.TypeOrderStatus, "Order update", msg, "/orders/"+ord.ID)
	if adminIDs, err := svc.repo.QueryAdminIDs(ctx); err == nil {
		_ = svc.notifSvc.Broadcast(ctx, adminIDs,
			notification.TypeOrderStatus, "Order update", msg, "/admin/orders/"+ord.ID)
	}
}

// sendOrderEmail renders and sends an order email to its owner, best effort:
// a failure is the email service's problem, never the mutation's.
func (svc *Service) sendOrderEmail(ctx context.Context, ord Order, template, subject string) {
	usr, err := svc.userSvc.GetByID(ctx, ord.UserID)
	if err != nil {
		return
	}
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: usr.Name, Address: usr.Email}},
		Subject:      subject,
		TemplateName: template,
		TemplateData: struct {
			User  user.User
			Order Order
			Total string
		}{usr, ord, core.FormatPrice(ord.Total)},
	})
}

// statusEmailSubject picks the email subject with a plain status switch.
func statusEmailSubject(status string) string {
	switch status {
	case StatusProcessing:
		return "Your order is being processed"
	case StatusShipped:
		return "Your order has shipped"
	case StatusDelivered:
		return "Your order was delivered"
	case StatusCancelled:
		return "Your order was cancelled"
	default:
		return "Order update"
	}
}
