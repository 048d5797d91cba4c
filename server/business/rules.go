// Package business answers schedule and freight questions for the store:
// opening hours in the store's timezone, delivery-date validation with the
// production lead time, and the freight table by city and payment method.
package business

import (
	"fmt"
	"strings"
	"time"

	contractx "github.com/tanpawarit/cesto-mcp-server/server/contract"
)

const (
	storeTimezone  = "America/Fortaleza"
	productionLead = time.Hour

	dateLayout = "2006-01-02"
	timeLayout = "15:04"
)

// window is an open interval in minutes since local midnight.
type window struct {
	open  int
	close int
}

func (w window) String() string {
	return fmt.Sprintf("%02d:%02d-%02d:%02d", w.open/60, w.open%60, w.close/60, w.close%60)
}

var schedule = map[time.Weekday][]window{
	time.Monday:    {{open: 7*60 + 30, close: 12 * 60}, {open: 14 * 60, close: 17 * 60}},
	time.Tuesday:   {{open: 7*60 + 30, close: 12 * 60}, {open: 14 * 60, close: 17 * 60}},
	time.Wednesday: {{open: 7*60 + 30, close: 12 * 60}, {open: 14 * 60, close: 17 * 60}},
	time.Thursday:  {{open: 7*60 + 30, close: 12 * 60}, {open: 14 * 60, close: 17 * 60}},
	time.Friday:    {{open: 7*60 + 30, close: 12 * 60}, {open: 14 * 60, close: 17 * 60}},
	time.Saturday:  {{open: 8 * 60, close: 11 * 60}},
	time.Sunday:    nil,
}

type Rules struct {
	loc *time.Location
	now func() time.Time
}

type Option func(*Rules)

func WithClock(now func() time.Time) Option {
	return func(r *Rules) {
		if now != nil {
			r.now = now
		}
	}
}

func New(opts ...Option) (*Rules, error) {
	loc, err := time.LoadLocation(storeTimezone)
	if err != nil {
		return nil, fmt.Errorf("load store timezone: %w", err)
	}
	r := &Rules{loc: loc, now: time.Now}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r, nil
}

func MustNew(opts ...Option) *Rules {
	r, err := New(opts...)
	if err != nil {
		panic(err)
	}
	return r
}

// ValidateDelivery checks a requested delivery date, and optionally a
// time, against the schedule. Same-day requests must leave at least the
// production lead before the window closes.
func (r *Rules) ValidateDelivery(date, timeOfDay string) (contractx.DeliveryDecision, error) {
	day, err := time.ParseInLocation(dateLayout, strings.TrimSpace(date), r.loc)
	if err != nil {
		return contractx.DeliveryDecision{}, contractx.NewError(
			contractx.KindInvalidArguments, "date must use the YYYY-MM-DD format")
	}
	decision := contractx.DeliveryDecision{Date: day.Format(dateLayout), Time: strings.TrimSpace(timeOfDay)}

	windows := schedule[day.Weekday()]
	if len(windows) == 0 {
		decision.Reason = "fechado aos domingos, não aceitamos pedidos"
		return decision, nil
	}

	now := r.now().In(r.loc)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, r.loc)
	if day.Before(today) {
		decision.Reason = "a data solicitada já passou"
		return decision, nil
	}

	// Earliest possible hand-off: production lead after now for same-day
	// requests, window opening otherwise.
	minMinute := -1
	if day.Equal(today) {
		earliest := now.Add(productionLead)
		if earliest.Day() != now.Day() {
			decision.Reason = "não há mais tempo hábil de produção para hoje"
			return decision, nil
		}
		minMinute = earliest.Hour()*60 + earliest.Minute()
	}

	if decision.Time != "" {
		t, err := time.Parse(timeLayout, decision.Time)
		if err != nil {
			return contractx.DeliveryDecision{}, contractx.NewError(
				contractx.KindInvalidArguments, "time must use the HH:MM format")
		}
		minute := t.Hour()*60 + t.Minute()
		if minMinute >= 0 && minute < minMinute {
			decision.Reason = "produção precisa de 1 hora, escolha um horário mais tarde"
			return decision, nil
		}
		for _, w := range windows {
			if minute >= w.open && minute <= w.close {
				decision.Available = true
				return decision, nil
			}
		}
		decision.Reason = fmt.Sprintf("fora do horário de entrega (%s)", describeWindows(windows))
		return decision, nil
	}

	for _, w := range windows {
		if minMinute < 0 || minMinute <= w.close {
			decision.Available = true
			return decision, nil
		}
	}
	decision.Reason = "não há mais tempo hábil de produção para hoje"
	return decision, nil
}

// Freight applies the store's table: free pickup, Campina Grande 0/10,
// neighboring cities 15/25, always cheaper on PIX.
func (r *Rules) Freight(city, paymentMethod string) (contractx.FreightQuote, error) {
	normalizedCity := strings.ToLower(strings.TrimSpace(city))
	if normalizedCity == "" {
		return contractx.FreightQuote{}, contractx.NewError(
			contractx.KindInvalidArguments, "city is required")
	}
	isPix := strings.EqualFold(strings.TrimSpace(paymentMethod), "pix")

	quote := contractx.FreightQuote{City: strings.TrimSpace(city)}
	if isPix {
		quote.PaymentMethod = "pix"
	} else {
		quote.PaymentMethod = "card"
	}

	switch {
	case strings.Contains(normalizedCity, "retirada") || strings.Contains(normalizedCity, "pickup"):
		quote.Amount = 0
	case strings.Contains(normalizedCity, "campina"):
		if isPix {
			quote.Amount = 0
		} else {
			quote.Amount = 10
		}
	default:
		if isPix {
			quote.Amount = 15
		} else {
			quote.Amount = 25
		}
	}
	return quote, nil
}

// Hours reports whether the store is open right now.
func (r *Rules) Hours() contractx.HoursStatus {
	now := r.now().In(r.loc)
	minute := now.Hour()*60 + now.Minute()
	windows := schedule[now.Weekday()]
	for _, w := range windows {
		if minute >= w.open && minute < w.close {
			return contractx.HoursStatus{
				Open:    true,
				Message: fmt.Sprintf("aberto até as %02d:%02d", w.close/60, w.close%60),
			}
		}
		if minute < w.open {
			return contractx.HoursStatus{
				Message: fmt.Sprintf("fechado agora, abrimos as %02d:%02d", w.open/60, w.open%60),
			}
		}
	}
	return contractx.HoursStatus{Message: "fechado, voltamos no próximo dia útil"}
}

func describeWindows(windows []window) string {
	parts := make([]string, 0, len(windows))
	for _, w := range windows {
		parts = append(parts, w.String())
	}
	return strings.Join(parts, ", ")
}
