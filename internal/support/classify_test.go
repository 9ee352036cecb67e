package support

import (
	"math/rand"
	"strings"
	"testing"
)

func TestClassifierKeywords(t *testing.T) {
	tests := []struct {
		name          string
		text          string
		inappropriate bool
		price         bool
	}{
		{"joke", "Tell me joke please", true, false},
		{"politics", "what do you think about POLITICS", true, false},
		{"price hinglish", "power bank kitna hai", false, true},
		{"how much", "How much is the phone stand", false, true},
		{"support", "my order 12345 arrived broken", false, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := IsInappropriate(tc.text); got != tc.inappropriate {
				t.Fatalf("inappropriate: expected %v got %v", tc.inappropriate, got)
			}
			if got := IsPriceQuestion(tc.text); got != tc.price {
				t.Fatalf("price: expected %v got %v", tc.price, got)
			}
		})
	}
}

func TestExtractProductName(t *testing.T) {
	tests := []struct {
		text     string
		expected string
	}{
		{"phone stand price", "phone stand"},
		{"How much is the Power Bank", "power bank"},
		{"price?", "product"},
		{"cost", "product"},
		{"bluetooth earphones ka rate", "earphones ka"},
	}
	for _, tc := range tests {
		if got := ExtractProductName(tc.text); got != tc.expected {
			t.Fatalf("%q: expected %q got %q", tc.text, tc.expected, got)
		}
	}
}

func TestExtractOrderID(t *testing.T) {
	tests := []struct {
		text  string
		id    string
		found bool
	}{
		{"order 12345 is late", "12345", true},
		{"my order is #987", "", false},
		{"123456789012", "12345678", true},
		{"first 4321 then 5678", "4321", true},
	}
	for _, tc := range tests {
		id, ok := ExtractOrderID(tc.text)
		if ok != tc.found || id != tc.id {
			t.Fatalf("%q: expected (%q,%v) got (%q,%v)", tc.text, tc.id, tc.found, id, ok)
		}
	}
}

func TestDetectIssueType(t *testing.T) {
	tests := map[string]string{
		"the cover is broken":          IssueDamage,
		"product kharab hai":           IssueDamage,
		"order nahi mila abhi tak":     IssueMissing,
		"I got the wrong item":         IssueWrong,
		"broken and also wrong colour": IssueDamage,
		"when will my order arrive":    "",
	}
	for text, expected := range tests {
		if got := DetectIssueType(text); got != expected {
			t.Fatalf("%q: expected %q got %q", text, expected, got)
		}
	}
}

func TestDetectLanguage(t *testing.T) {
	tests := map[string]string{
		"मेरा ऑर्डर नहीं आया":             "hi",
		"Mera order nahi aaya":            "hi",
		"My order has not arrived":        "en",
		"Haircut? no, that is not a word": "en",
	}
	for text, expected := range tests {
		if got := DetectLanguage(text); got != expected {
			t.Fatalf("%q: expected %s got %s", text, expected, got)
		}
	}
}

func TestOrderGeneratorRanges(t *testing.T) {
	g := NewOrderGenerator(rand.New(rand.NewSource(7)))
	for i := 0; i < 200; i++ {
		o := g.Generate("1234")
		if o.OrderID != "1234" {
			t.Fatalf("unexpected id %s", o.OrderID)
		}
		if o.Amount < 99 || o.Amount > 899 {
			t.Fatalf("amount out of range: %d", o.Amount)
		}
		if !strings.HasPrefix(o.DeliveryDate, "2025-08-") {
			t.Fatalf("unexpected delivery date %s", o.DeliveryDate)
		}
		day := strings.TrimPrefix(o.DeliveryDate, "2025-08-")
		if day < "15" || day > "25" {
			t.Fatalf("delivery day out of range: %s", day)
		}
		if !contains(sampleProducts, o.ProductName) || !contains(samplePayments, o.PaymentMethod) ||
			!contains(sampleStatuses, o.Status) || !contains(sampleLocations, o.UserLocation) {
			t.Fatalf("unexpected order %+v", o)
		}
	}
}

func contains(items []string, v string) bool {
	for _, item := range items {
		if item == v {
			return true
		}
	}
	return false
}
