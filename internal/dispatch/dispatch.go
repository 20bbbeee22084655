// Package dispatch performs the external side of order creation over the
// Telegram Bot API: invoice links for online payment and chat notifications
// for customers and venue staff.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"html"
	"log"
	"strconv"
	"strings"

	"github.com/ezh-cafe/api/internal/database"
	"github.com/ezh-cafe/api/internal/service"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// ErrNoRecipient is returned when an order notice has neither a customer
// chat nor a staff chat to go to.
var ErrNoRecipient = errors.New("no notification recipient")

// Bot is the subset of the Bot API the dispatcher uses.
// Satisfied by *bot.Bot and telegram.Offline.
type Bot interface {
	CreateInvoiceLink(ctx context.Context, params *bot.CreateInvoiceLinkParams) (string, error)
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error)
}

type Config struct {
	InvoiceTitle       string
	InvoiceDescription string
	ProviderToken      string
	StaffChatID        string
}

// Dispatcher implements service.Dispatcher and service.PaymentNotifier.
type Dispatcher struct {
	bot Bot
	cfg Config
}

func New(b Bot, cfg Config) *Dispatcher {
	return &Dispatcher{bot: b, cfg: cfg}
}

// CreateInvoiceLink requests a payment link whose payload is the order id.
func (d *Dispatcher) CreateInvoiceLink(ctx context.Context, inv service.Invoice) (string, error) {
	if d.cfg.ProviderToken == "" {
		return "", fmt.Errorf("payment provider token is not configured")
	}

	prices := make([]models.LabeledPrice, len(inv.Lines))
	for i, l := range inv.Lines {
		prices[i] = models.LabeledPrice{Label: l.Label, Amount: int(l.Amount)}
	}

	link, err := d.bot.CreateInvoiceLink(ctx, &bot.CreateInvoiceLinkParams{
		Title:         d.cfg.InvoiceTitle,
		Description:   d.cfg.InvoiceDescription,
		Payload:       inv.Payload,
		ProviderToken: d.cfg.ProviderToken,
		Currency:      inv.Currency,
		Prices:        prices,
	})
	if err != nil {
		return "", err
	}
	if link == "" {
		return "", errors.New("createInvoiceLink returned an empty link")
	}
	return link, nil
}

// NotifyOrderAccepted tells the customer and the staff chat about a new
// pay-on-fulfillment order. Every message attempted must be delivered, and at
// least one must be attempted.
func (d *Dispatcher) NotifyOrderAccepted(ctx context.Context, n service.OrderNotice) error {
	return d.notify(ctx, n,
		fmt.Sprintf("✅ Ваш заказ <code>#%s</code> принят! 🎉", shortID(n.Order)),
		fmt.Sprintf("🔔 Новый заказ <code>#%s</code>", shortID(n.Order)),
	)
}

// NotifyOrderPaid tells the customer and the staff chat that an online order
// was paid.
func (d *Dispatcher) NotifyOrderPaid(ctx context.Context, n service.OrderNotice) error {
	return d.notify(ctx, n,
		fmt.Sprintf("✅ Оплата заказа <code>#%s</code> получена! 🎉", shortID(n.Order)),
		fmt.Sprintf("💳 Оплачен заказ <code>#%s</code>", shortID(n.Order)),
	)
}

func (d *Dispatcher) notify(ctx context.Context, n service.OrderNotice, customerHeading, staffHeading string) error {
	g, ctx := errgroup.WithContext(ctx)
	recipients := 0

	if n.Customer.ID != 0 {
		recipients++
		chatID := strconv.FormatInt(n.Customer.ID, 10)
		text := customerHeading + "\n\n" + formatItems(n) + "\n\nМы скоро начнем готовить. Ожидайте, пожалуйста!"
		g.Go(func() error {
			if err := d.send(ctx, chatID, text); err != nil {
				return fmt.Errorf("notify customer: %w", err)
			}
			return nil
		})
	}

	if d.cfg.StaffChatID != "" {
		recipients++
		text := staffHeading + "\n" + formatStaffDetails(n) + "\n\n" + formatItems(n)
		g.Go(func() error {
			if err := d.send(ctx, d.cfg.StaffChatID, text); err != nil {
				return fmt.Errorf("notify staff: %w", err)
			}
			return nil
		})
	} else {
		log.Printf("WARN: staff chat is not configured, order %s not announced to staff", n.Order.ID)
	}

	if recipients == 0 {
		return ErrNoRecipient
	}
	return g.Wait()
}

func (d *Dispatcher) send(ctx context.Context, chatID, text string) error {
	_, err := d.bot.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:    chatID,
		Text:      text,
		ParseMode: models.ParseModeHTML,
	})
	return err
}

func shortID(order database.Order) string {
	id := order.ID.String()
	if i := strings.IndexByte(id, '-'); i > 0 {
		return id[:i]
	}
	return id
}

func formatStaffDetails(n service.OrderNotice) string {
	var b strings.Builder
	if n.VenueName != "" {
		fmt.Fprintf(&b, "🏠 %s\n", html.EscapeString(n.VenueName))
	}

	c := n.Customer
	name := strings.TrimSpace(c.FirstName + " " + c.LastName)
	username := "N/A"
	if c.Username != "" {
		username = "@" + c.Username
	}
	fmt.Fprintf(&b, "\n👤 <b>Клиент:</b> %s (%s)\n", html.EscapeString(name), html.EscapeString(username))

	if n.Order.PaymentMethod == database.PaymentMethodOnline {
		b.WriteString("💳 <b>Оплата:</b> онлайн\n")
	} else {
		b.WriteString("💵 <b>Оплата:</b> при получении\n")
	}

	if a := c.Address; a != nil {
		addr := fmt.Sprintf("%s, %s, д. %s", a.City, a.Street, a.House)
		if a.Apartment != "" {
			addr += ", кв. " + a.Apartment
		}
		fmt.Fprintf(&b, "🚚 <b>Доставка:</b> %s", html.EscapeString(addr))
		if a.Comment != "" {
			fmt.Fprintf(&b, "\n💬 %s", html.EscapeString(a.Comment))
		}
	} else {
		b.WriteString("🛍 <b>Самовывоз</b>")
	}
	return b.String()
}

func formatItems(n service.OrderNotice) string {
	var b strings.Builder
	b.WriteString("🌿 <b>Состав заказа:</b>")
	for _, l := range n.Lines {
		fmt.Fprintf(&b, "\n  - %s", html.EscapeString(l.ProductName))
		if l.VariantName != "" {
			fmt.Fprintf(&b, " (%s)", html.EscapeString(l.VariantName))
		}
		fmt.Fprintf(&b, " x %d", l.Quantity)
		for _, a := range l.Addons {
			fmt.Fprintf(&b, "\n    + %s", html.EscapeString(a.Name))
		}
	}
	fmt.Fprintf(&b, "\n\n💰 <b>Итого:</b> %s %s", formatAmount(n.Order.TotalAmount), n.Order.Currency)
	return b.String()
}

// formatAmount renders minor units with two decimals.
func formatAmount(minor int64) string {
	return decimal.New(minor, -2).StringFixed(2)
}
