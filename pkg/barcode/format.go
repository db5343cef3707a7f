package barcode

import (
	"fmt"
	"math/rand"
	"strings"
)

// FormatDisplay groups the digits of s with spaces for human display, per the
// conventions of symbology f. The underlying value is unchanged; stripping the
// spaces reproduces s. Unknown or non-grouping formats pass through as-is.
func FormatDisplay(s string, f Format) string {
	switch f {
	case EAN13:
		if len(s) == 13 {
			return s[0:1] + " " + s[1:7] + " " + s[7:13]
		}
	case EAN8:
		if len(s) == 8 {
			return s[0:4] + " " + s[4:8]
		}
	case UPCA:
		if len(s) == 12 {
			return s[0:1] + " " + s[1:6] + " " + s[6:11] + " " + s[11:12]
		}
	}
	return s
}

// StripDisplay removes the spaces inserted by FormatDisplay.
func StripDisplay(s string) string {
	return strings.ReplaceAll(s, " ", "")
}

// GenerateTest constructs a random barcode with a correctly computed check
// digit. Only the checksum-bearing symbologies EAN-13, EAN-8 and UPC-A are
// supported; generated codes always pass Validate for their format.
func GenerateTest(f Format) (string, error) {
	var payloadLen int
	var evenWeight, oddWeight int

	switch f {
	case EAN13:
		payloadLen, evenWeight, oddWeight = 12, 1, 3
	case EAN8:
		payloadLen, evenWeight, oddWeight = 7, 3, 1
	case UPCA:
		payloadLen, evenWeight, oddWeight = 11, 3, 1
	default:
		return "", fmt.Errorf("cannot generate test barcode for format %q", f)
	}

	var b strings.Builder
	for i := 0; i < payloadLen; i++ {
		b.WriteByte(byte('0' + rand.Intn(10)))
	}
	payload := b.String()

	// checkDigit ignores the last character, so pad with a placeholder.
	check := checkDigit(payload+"0", evenWeight, oddWeight)
	return fmt.Sprintf("%s%d", payload, check), nil
}
