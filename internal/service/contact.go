package service

import (
	"context"
	"errors"
	"fmt"
	"net"
	"regexp"
	"strings"
	"time"

	"github.com/nyaruka/phonenumbers"
	"golang.org/x/net/idna"
)

var (
	emailPattern = regexp.MustCompile(`^[a-z0-9._%+\-']+@[a-z0-9.-]+\.[a-z]{2,}$`)
	idnaProfile  = idna.Lookup
)

const defaultPhoneRegion = "DE"

// ErrInvalidContact is returned when booking contact details fail validation.
var ErrInvalidContact = errors.New("invalid contact details")

// Contact is validated, normalized booking contact data.
type Contact struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
	Email string `json:"email,omitempty"`
}

// DNSResolver abstracts DNS lookups to simplify testing.
type DNSResolver interface {
	LookupMX(ctx context.Context, domain string) ([]*net.MX, error)
}

// ContactValidator normalizes phone numbers to E.164 and checks e-mail addresses.
type ContactValidator struct {
	DefaultRegion string
	dnsResolver   DNSResolver
}

// ContactOption configures optional dependencies.
type ContactOption func(*ContactValidator)

// WithDNSResolver enables MX checks for e-mail domains.
func WithDNSResolver(resolver DNSResolver) ContactOption {
	return func(v *ContactValidator) {
		v.dnsResolver = resolver
	}
}

// WithSystemResolver enables MX checks against the host resolver.
func WithSystemResolver() ContactOption {
	return WithDNSResolver(systemDNSResolver{})
}

// NewContactValidator builds a validator for numbers written without a country code in region.
func NewContactValidator(defaultRegion string, opts ...ContactOption) *ContactValidator {
	region := strings.ToUpper(strings.TrimSpace(defaultRegion))
	if region == "" {
		region = defaultPhoneRegion
	}
	v := &ContactValidator{DefaultRegion: region}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Validate requires a name and a dialable phone number; e-mail is optional but
// must be well formed when given.
func (v *ContactValidator) Validate(ctx context.Context, name, phone, email string) (Contact, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Contact{}, fmt.Errorf("%w: name is required", ErrInvalidContact)
	}

	normalized := normalizePhone(phone, v.DefaultRegion)
	if normalized == "" {
		return Contact{}, fmt.Errorf("%w: phone number is not valid", ErrInvalidContact)
	}

	contact := Contact{Name: name, Phone: normalized}
	if strings.TrimSpace(email) != "" {
		cleaned, ok := v.cleanEmail(ctx, email)
		if !ok {
			return Contact{}, fmt.Errorf("%w: email address is not valid", ErrInvalidContact)
		}
		contact.Email = cleaned
	}
	return contact, nil
}

func (v *ContactValidator) cleanEmail(ctx context.Context, raw string) (string, bool) {
	email := strings.ToLower(strings.TrimSpace(raw))
	if !emailPattern.MatchString(email) {
		return "", false
	}
	domain := strings.SplitN(email, "@", 2)[1]
	if !isDomainValid(domain) {
		return "", false
	}
	asciiDomain, err := idnaProfile.ToASCII(domain)
	if err != nil || asciiDomain == "" {
		return "", false
	}
	if v.dnsResolver != nil && !v.hasMXRecord(ctx, asciiDomain) {
		return "", false
	}
	return email, true
}

func (v *ContactValidator) hasMXRecord(ctx context.Context, domain string) bool {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	records, err := v.dnsResolver.LookupMX(ctx, domain)
	return err == nil && len(records) > 0
}

func normalizePhone(raw, region string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if region == "" {
		region = defaultPhoneRegion
	}
	number, err := phonenumbers.Parse(raw, region)
	if err != nil {
		return ""
	}
	if !phonenumbers.IsPossibleNumber(number) || !phonenumbers.IsValidNumber(number) {
		return ""
	}
	return phonenumbers.Format(number, phonenumbers.E164)
}

func isDomainValid(domain string) bool {
	if strings.Count(domain, ".") == 0 {
		return false
	}
	parts := strings.Split(domain, ".")
	for _, part := range parts {
		if part == "" || strings.HasPrefix(part, "-") || strings.HasSuffix(part, "-") {
			return false
		}
	}
	return true
}

type systemDNSResolver struct{}

func (systemDNSResolver) LookupMX(ctx context.Context, domain string) ([]*net.MX, error) {
	return net.DefaultResolver.LookupMX(ctx, domain)
}
