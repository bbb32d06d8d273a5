package function

// Nest wraps final in the given functions so that `function.Nest(final, a, b, c)` equals `a(b(c(final)))`.
// The portal uses it to chain per-route middlewares; the first function is the outermost one.
func Nest[T any](final T, funcs ...func(T) T) T {
	res := final
	for i := len(funcs); i > 0; i-- {
		res = funcs[i-1](res)
	}
	return res
}
