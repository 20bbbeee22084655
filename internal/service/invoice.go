package service

import (
	"strconv"
	"strings"
	"unicode/utf8"
)

// MaxLabelLength is the longest label the payment provider accepts for an
// invoice item.
const MaxLabelLength = 32

const ellipsis = "…"

// InvoiceLine is a single payable item sent to the payment provider.
type InvoiceLine struct {
	Label  string `json:"label"`
	Amount int64  `json:"amount"`
}

// invoiceLabel renders "{product} ({variant}) + {addon}... x{qty}". Add-on
// names are appended only while they fit. When even the product and variant
// do not fit, that part is cut and ends with an ellipsis; the quantity suffix
// is always kept as is.
func invoiceLabel(product, variant string, addons []string, qty int32) string {
	suffix := " x" + strconv.FormatInt(int64(qty), 10)
	budget := MaxLabelLength - utf8.RuneCountInString(suffix)

	head := product
	if variant != "" {
		head += " (" + variant + ")"
	}

	if utf8.RuneCountInString(head) > budget {
		return truncateRunes(head, budget) + suffix
	}

	for _, name := range addons {
		next := head + " + " + name
		if utf8.RuneCountInString(next) > budget {
			break
		}
		head = next
	}
	return head + suffix
}

func truncateRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return strings.TrimRight(string(r[:n-1]), " ") + ellipsis
}
