// Package barcode validates decoded barcode strings against the structural
// and checksum rules of the common retail symbologies.
package barcode

import (
	"strings"
)

// Format identifies a barcode symbology.
type Format string

// Supported symbologies.
const (
	EAN13   Format = "EAN-13"
	EAN8    Format = "EAN-8"
	UPCA    Format = "UPC-A"
	UPCE    Format = "UPC-E"
	Code128 Format = "Code128"
	Code39  Format = "Code39"
)

// detectionOrder is the order Detect tries symbologies in. Code128 is last
// because its rule (any printable ASCII) accepts almost everything, including
// numeric strings that failed an EAN/UPC checksum.
var detectionOrder = []Format{EAN13, EAN8, UPCA, UPCE, Code128, Code39}

// Validate reports whether s satisfies the rules of symbology f.
func Validate(s string, f Format) bool {
	switch f {
	case EAN13:
		return validEAN13(s)
	case EAN8:
		return validEAN8(s)
	case UPCA:
		return validUPCA(s)
	case UPCE:
		return validUPCE(s)
	case Code128:
		return validCode128(s)
	case Code39:
		return validCode39(s)
	default:
		return false
	}
}

// ValidateAny reports whether s satisfies any known symbology's rules.
func ValidateAny(s string) bool {
	_, ok := Detect(s)
	return ok
}

// Detect returns the first symbology whose rules accept s, trying EAN-13,
// EAN-8, UPC-A, UPC-E, Code128 and Code39 in that order. The second return
// value is false if no symbology matches.
func Detect(s string) (Format, bool) {
	for _, f := range detectionOrder {
		if Validate(s, f) {
			return f, true
		}
	}
	return "", false
}

// allDigits reports whether s is non-empty and contains only ASCII digits.
func allDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// checkDigit computes the modulo-10 check digit for the payload digits of s
// (all but the last character). Digits at even positions are weighted
// evenWeight, digits at odd positions oddWeight, 0-based.
func checkDigit(s string, evenWeight, oddWeight int) int {
	sum := 0
	for i := 0; i < len(s)-1; i++ {
		d := int(s[i] - '0')
		if i%2 == 0 {
			sum += d * evenWeight
		} else {
			sum += d * oddWeight
		}
	}
	return (10 - sum%10) % 10
}

func validEAN13(s string) bool {
	if len(s) != 13 || !allDigits(s) {
		return false
	}
	return int(s[12]-'0') == checkDigit(s, 1, 3)
}

func validEAN8(s string) bool {
	if len(s) != 8 || !allDigits(s) {
		return false
	}
	return int(s[7]-'0') == checkDigit(s, 3, 1)
}

func validUPCA(s string) bool {
	if len(s) != 12 || !allDigits(s) {
		return false
	}
	return int(s[11]-'0') == checkDigit(s, 3, 1)
}

// validUPCE performs a structural check only. UPC-E carries a check digit
// derived from the expanded UPC-A form, which is not verified here.
func validUPCE(s string) bool {
	return len(s) == 8 && allDigits(s)
}

func validCode128(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] > 0x7F {
			return false
		}
	}
	return true
}

const code39Charset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789-. $/+%*"

func validCode39(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !strings.ContainsRune(code39Charset, r) {
			return false
		}
	}
	return true
}
