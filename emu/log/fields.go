package log

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

type fieldKind uint8

const (
	kindString fieldKind = iota
	kindBool
	kindInt
	kindUint
	kindHex // num formatted on width hex digits
	kindDuration
	kindError
	kindStringer
)

// ZField is a typed field of an EntryZ. Formatting is deferred to emission.
type ZField struct {
	Key   string
	kind  fieldKind
	width uint8
	num   uint64
	str   string
	val   any
}

func hexField(key string, v uint64, width uint8) ZField {
	return ZField{Key: key, kind: kindHex, num: v, width: width}
}

func (f *ZField) Value() string {
	switch f.kind {
	case kindString:
		return f.str
	case kindBool:
		return strconv.FormatBool(f.num != 0)
	case kindInt:
		return strconv.FormatInt(int64(f.num), 10)
	case kindUint:
		return strconv.FormatUint(f.num, 10)
	case kindHex:
		s := strconv.FormatUint(f.num, 16)
		if pad := int(f.width) - len(s); pad > 0 {
			s = strings.Repeat("0", pad) + s
		}
		return s
	case kindDuration:
		return time.Duration(f.num).String()
	case kindError:
		if f.val == nil {
			return "<nil>"
		}
		return f.val.(error).Error()
	case kindStringer:
		return f.val.(fmt.Stringer).String()
	}
	return ""
}
