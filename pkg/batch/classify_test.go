package batch

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		payload string
		want    ContentType
	}{
		{"WIFI:T:WPA;S:Network;;", TypeWiFi},
		{"wifi:T:WEP;S:test;;", TypeWiFi},
		{"BEGIN:VCARD\nVERSION:3.0", TypeVCard},
		{"begin:vcard", TypeVCard},
		{"mailto:test@example.com", TypeEmail},
		{"MAILTO:test@example.com?subject=Hi", TypeEmail},
		{"sms:+15551234567", TypeSMS},
		{"smsto:+15551234567", TypeSMS},
		{"SMS:+15551234567?body=Hello", TypeSMS},
		{"tel:+15551234567", TypePhone},
		{"TEL:5551234567", TypePhone},
		{"geo:37.7749,-122.4194", TypeGeo},
		{"GEO:0,0", TypeGeo},
		{"BEGIN:VEVENT\nSUMMARY:Meeting", TypeCalendar},
		{"https://example.com", TypeURL},
		{"http://example.com/path", TypeURL},
		{"HTTP://EXAMPLE.COM", TypeURL},
		{"Hello, World!", TypeText},
		{"12345", TypeText},
		{"", TypeText},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Classify(tc.payload), "payload %q", tc.payload)
	}
}

func TestClassifyPrecedence(t *testing.T) {
	// begin:vcard outranks the generic text fallback regardless of case,
	// and tel: outranks text even when the remainder looks like a URL.
	assert.Equal(t, TypeVCard, Classify("BeGiN:vCaRd\nN:Doe;John"))
	assert.Equal(t, TypePhone, Classify("tel:https://not-a-url"))
}
