package batch

import "strings"

// ContentType is the semantic type of a QR payload
type ContentType string

const (
	TypeWiFi     ContentType = "wifi"
	TypeVCard    ContentType = "vcard"
	TypeEmail    ContentType = "email"
	TypeSMS      ContentType = "sms"
	TypePhone    ContentType = "phone"
	TypeGeo      ContentType = "geo"
	TypeCalendar ContentType = "calendar"
	TypeURL      ContentType = "url"
	TypeText     ContentType = "text"
)

// classifyRules is evaluated top to bottom; first matching prefix wins.
var classifyRules = []struct {
	prefixes []string
	qrType   ContentType
}{
	{[]string{"wifi:"}, TypeWiFi},
	{[]string{"begin:vcard"}, TypeVCard},
	{[]string{"mailto:"}, TypeEmail},
	{[]string{"sms:", "smsto:"}, TypeSMS},
	{[]string{"tel:"}, TypePhone},
	{[]string{"geo:"}, TypeGeo},
	{[]string{"begin:vevent"}, TypeCalendar},
	{[]string{"http://", "https://"}, TypeURL},
}

// Classify maps a raw payload to its content type by case-insensitive
// prefix matching. Unmatched payloads fall through to TypeText.
func Classify(payload string) ContentType {
	lower := strings.ToLower(payload)
	for _, rule := range classifyRules {
		for _, prefix := range rule.prefixes {
			if strings.HasPrefix(lower, prefix) {
				return rule.qrType
			}
		}
	}
	return TypeText
}
