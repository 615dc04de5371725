package errors

import (
	"fmt"
	"sync"
)

var registry sync.Map // code -> *Errno

// Register 登记错误码，重复登记或服务段未知时 panic。
func Register(e *Errno) *Errno {
	switch svc, _, _ := ParseCode(e.Code); svc {
	case ServiceCommon, ServiceGraphRAG:
	default:
		panic(fmt.Sprintf("errno %d: unknown service %d", e.Code, svc))
	}
	if prev, loaded := registry.LoadOrStore(e.Code, e); loaded {
		panic(fmt.Sprintf("errno %d already registered as %q", e.Code, prev.(*Errno).MessageEN))
	}
	return e
}

// Lookup returns the Errno registered under code.
func Lookup(code int) (*Errno, bool) {
	v, ok := registry.Load(code)
	if !ok {
		return nil, false
	}
	return v.(*Errno), true
}
