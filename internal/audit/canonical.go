package audit

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf16"

	"zone_controller/internal/models"
)

// CanonicalPayload renders the hashed fields of e with sorted keys, ", " and
// ": " separators and ASCII-only string escaping. This byte form is the
// journal's hashing format and must not change. Hash and Signature are never
// part of the payload.
func CanonicalPayload(e models.AuditEvent) string {
	var b strings.Builder
	b.WriteString(`{"duration_minutes": `)
	b.WriteString(strconv.Itoa(e.DurationMinutes))
	b.WriteString(`, "initiated_by": `)
	writeQuoted(&b, e.InitiatedBy)
	b.WriteString(`, "mode": `)
	writeQuoted(&b, e.Mode)
	b.WriteString(`, "source": `)
	writeQuoted(&b, e.Source)
	b.WriteString(`, "timestamp": `)
	writeQuoted(&b, e.Timestamp)
	b.WriteByte('}')
	return b.String()
}

// ChainHash returns hex(SHA-256(payload || prev)).
func ChainHash(payload, prev string) string {
	sum := sha256.Sum256([]byte(payload + prev))
	return hex.EncodeToString(sum[:])
}

func writeQuoted(b *strings.Builder, s string) {
	b.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		case '\b':
			b.WriteString(`\b`)
		case '\f':
			b.WriteString(`\f`)
		default:
			switch {
			case r >= 0x20 && r <= 0x7e:
				b.WriteRune(r)
			case r > 0xffff:
				hi, lo := utf16.EncodeRune(r)
				fmt.Fprintf(b, `\u%04x\u%04x`, hi, lo)
			default:
				fmt.Fprintf(b, `\u%04x`, r)
			}
		}
	}
	b.WriteByte('"')
}
