package service

import (
	"strings"

	"github.com/edupulse/result-notify-service/internal/domain"
)

// RenderTemplate substitutes {placeholder} tokens with recipient values.
// Built-in tokens are firstName, lastName and phone; anything else comes
// from the recipient's Fields map (score, cgpa, title and friends).
func RenderTemplate(template string, r domain.Recipient) string {
	pairs := []string{
		"{firstName}", r.FirstName,
		"{lastName}", r.LastName,
		"{phone}", r.PhoneNumber,
	}

	for key, value := range r.Fields {
		pairs = append(pairs, "{"+key+"}", value)
	}

	return strings.NewReplacer(pairs...).Replace(template)
}

// TruncateSMS cuts a rendered message down to one SMS segment.
func TruncateSMS(message string) string {
	if len(message) <= domain.SMSMaxLength {
		return message
	}
	return message[:domain.SMSMaxLength]
}
