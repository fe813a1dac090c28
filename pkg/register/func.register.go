package register

import "sync"

// Handler is a deferred initialization hook bound to a typed target,
// registered from package init() and resolved at setup time.
type Handler[T any] func(T)

type funcRegister struct {
	handlers map[any][]any
	locker   sync.Mutex
}

var fr = &funcRegister{
	handlers: make(map[any][]any),
}

func RegisterFunc[T any](key any, handler Handler[T]) {
	fr.locker.Lock()
	defer fr.locker.Unlock()
	fr.handlers[key] = append(fr.handlers[key], handler)
}

func ResolveFuncHandlers[T any](key any) []Handler[T] {
	fr.locker.Lock()
	defer fr.locker.Unlock()

	var result []Handler[T]
	for _, v := range fr.handlers[key] {
		if h, ok := v.(Handler[T]); ok {
			result = append(result, h)
		}
	}
	return result
}
