package log

import (
	"fmt"
	"sync"
	"time"

	"gopkg.in/Sirupsen/logrus.v0"
)

type Level = logrus.Level

const (
	PanicLevel = logrus.PanicLevel
	FatalLevel = logrus.FatalLevel
	ErrorLevel = logrus.ErrorLevel
	WarnLevel  = logrus.WarnLevel
	InfoLevel  = logrus.InfoLevel
	DebugLevel = logrus.DebugLevel
)

const maxZFields = 16

// EntryZ is a log entry built by chaining typed fields, and emitted by End.
// A nil *EntryZ is valid: every method is a no-op on it, so a disabled debug
// log costs a single Enabled() check.
type EntryZ struct {
	mod   Module
	lvl   Level
	msg   string
	zfbuf [maxZFields]ZField
	zfidx int
}

var zpool = sync.Pool{
	New: func() any { return new(EntryZ) },
}

func NewEntryZ() *EntryZ {
	return zpool.Get().(*EntryZ)
}

func (z *EntryZ) add(f ZField) *EntryZ {
	if z == nil {
		return nil
	}
	if z.zfidx < maxZFields {
		z.zfbuf[z.zfidx] = f
		z.zfidx++
	}
	return z
}

func (z *EntryZ) String(key, val string) *EntryZ {
	return z.add(ZField{Key: key, kind: kindString, str: val})
}

func (z *EntryZ) Bool(key string, val bool) *EntryZ {
	f := ZField{Key: key, kind: kindBool}
	if val {
		f.num = 1
	}
	return z.add(f)
}

func (z *EntryZ) Int(key string, val int) *EntryZ { return z.Int64(key, int64(val)) }

func (z *EntryZ) Int64(key string, val int64) *EntryZ {
	return z.add(ZField{Key: key, kind: kindInt, num: uint64(val)})
}

func (z *EntryZ) Uint(key string, val uint64) *EntryZ {
	return z.add(ZField{Key: key, kind: kindUint, num: val})
}

func (z *EntryZ) Hex8(key string, val uint8) *EntryZ   { return z.add(hexField(key, uint64(val), 2)) }
func (z *EntryZ) Hex16(key string, val uint16) *EntryZ { return z.add(hexField(key, uint64(val), 4)) }
func (z *EntryZ) Hex32(key string, val uint32) *EntryZ { return z.add(hexField(key, uint64(val), 8)) }

func (z *EntryZ) Error(key string, err error) *EntryZ {
	f := ZField{Key: key, kind: kindError}
	if err != nil {
		f.val = err
	}
	return z.add(f)
}

func (z *EntryZ) Duration(key string, d time.Duration) *EntryZ {
	return z.add(ZField{Key: key, kind: kindDuration, num: uint64(d)})
}

func (z *EntryZ) Stringer(key string, s fmt.Stringer) *EntryZ {
	return z.add(ZField{Key: key, kind: kindStringer, val: s})
}

// End emits the entry and returns it to the pool.
func (z *EntryZ) End() {
	if z == nil {
		return
	}
	addContexts(z)

	fields := make(logrus.Fields, z.zfidx+1)
	fields["_mod"] = z.mod.String()
	for i := range z.zfbuf[:z.zfidx] {
		fields[z.zfbuf[i].Key] = z.zfbuf[i].Value()
	}
	e := logrus.StandardLogger().WithFields(fields)

	switch z.lvl {
	case DebugLevel:
		e.Debug(z.msg)
	case InfoLevel:
		e.Info(z.msg)
	case WarnLevel:
		e.Warn(z.msg)
	case ErrorLevel:
		e.Error(z.msg)
	case FatalLevel:
		e.Fatal(z.msg)
	case PanicLevel:
		e.Panic(z.msg)
	}

	*z = EntryZ{}
	zpool.Put(z)
}

// A Context adds its own fields to every emitted entry (e.g. the VM id).
type Context interface {
	AddLogContext(z *EntryZ)
}

var (
	ctxmu    sync.RWMutex
	contexts []Context
)

func AddContext(c Context) {
	ctxmu.Lock()
	contexts = append(contexts, c)
	ctxmu.Unlock()
}

func RemoveContext(c Context) {
	ctxmu.Lock()
	defer ctxmu.Unlock()
	for i := range contexts {
		if contexts[i] == c {
			contexts = append(contexts[:i], contexts[i+1:]...)
			return
		}
	}
}

func addContexts(z *EntryZ) {
	ctxmu.RLock()
	for _, c := range contexts {
		c.AddLogContext(z)
	}
	ctxmu.RUnlock()
}
