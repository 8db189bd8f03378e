package domain

import (
	"strings"
	"time"

	"github.com/dmehra2102/sofa-storefront/pkg/apperr"
)

type Service string

const (
	ServiceRevamp   Service = "Sofa Revamp"
	ServiceCustom   Service = "Custom Sofa Design"
	ServiceCleaning Service = "Sofa Cleaning"
)

type Channel string

const (
	ChannelEmail    Channel = "email"
	ChannelPhone    Channel = "phone"
	ChannelWhatsApp Channel = "whatsapp"
)

const dateLayout = "2006-01-02"

// Inquiry is a lead captured from the contact form.
type Inquiry struct {
	ID               string    `json:"id"`
	Name             string    `json:"name"`
	Email            string    `json:"email"`
	Phone            string    `json:"phone"`
	Service          Service   `json:"service"`
	Date             time.Time `json:"date"`
	Time             string    `json:"time"`
	Address          string    `json:"address"`
	Message          string    `json:"message"`
	PreferredContact Channel   `json:"preferredContact"`
	CreatedAt        time.Time `json:"createdAt"`
}

// Form is the raw submission before parsing.
type Form struct {
	Name             string
	Email            string
	Phone            string
	Service          string
	Date             string
	Time             string
	Address          string
	Message          string
	PreferredContact string
}

// Parse validates f and builds an Inquiry without id or timestamps.
func (f Form) Parse() (Inquiry, error) {
	required := []struct{ name, value string }{
		{"name", f.Name}, {"email", f.Email}, {"phone", f.Phone}, {"service", f.Service},
		{"date", f.Date}, {"time", f.Time}, {"address", f.Address}, {"message", f.Message},
		{"preferredContact", f.PreferredContact},
	}
	var missing []string
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			missing = append(missing, r.name)
		}
	}
	if len(missing) > 0 {
		return Inquiry{}, apperr.Validation("Please fill all the required fields!", missing...)
	}

	svc := Service(strings.TrimSpace(f.Service))
	switch svc {
	case ServiceRevamp, ServiceCustom, ServiceCleaning:
	default:
		return Inquiry{}, apperr.Validation("Invalid service", "service")
	}
	ch := Channel(strings.ToLower(strings.TrimSpace(f.PreferredContact)))
	switch ch {
	case ChannelEmail, ChannelPhone, ChannelWhatsApp:
	default:
		return Inquiry{}, apperr.Validation("Invalid preferred contact method", "preferredContact")
	}
	date, err := ParseDate(f.Date)
	if err != nil {
		return Inquiry{}, apperr.Validation("Invalid date", "date")
	}

	return Inquiry{
		Name:             strings.TrimSpace(f.Name),
		Email:            strings.TrimSpace(f.Email),
		Phone:            strings.TrimSpace(f.Phone),
		Service:          svc,
		Date:             date,
		Time:             strings.TrimSpace(f.Time),
		Address:          strings.TrimSpace(f.Address),
		Message:          strings.TrimSpace(f.Message),
		PreferredContact: ch,
	}, nil
}

// ParseDate accepts YYYY-MM-DD or an RFC 3339 timestamp and returns the
// calendar day in UTC.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(dateLayout, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, err
	}
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
}
