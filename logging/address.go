// logging/address.go
package logging

import (
	"strings"

	"go.uber.org/zap"
)

// Address returns a zap field for an email address. With mask set the local
// part is reduced to its first character, so "john.smith@example.com" logs
// as "j***@example.com". Input without '@' is masked entirely.
func Address(key, addr string, mask bool) zap.Field {
	if !mask {
		return zap.String(key, addr)
	}
	return zap.String(key, MaskAddress(addr))
}

// MaskAddress hides the local part of addr.
func MaskAddress(addr string) string {
	at := strings.LastIndexByte(addr, '@')
	if at < 0 {
		if addr == "" {
			return ""
		}
		return "***"
	}
	if at == 0 {
		return "***" + addr[at:]
	}
	return addr[:1] + "***" + addr[at:]
}
