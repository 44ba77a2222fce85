package internal

// Toaster is the user-visible error surface. Services turn operation failures
// into toasts here instead of rethrowing them past the UI boundary; background
// work (push-triggered refetches, periodic auth refresh) never toasts and
// only logs.
type Toaster interface {
	Toast(message string)
}

// ToastFunc adapts a plain function to the Toaster interface.
type ToastFunc func(message string)

func (f ToastFunc) Toast(message string) { f(message) }

type nopToaster struct{}

func (nopToaster) Toast(string) {}

// NopToaster discards toasts, for background consumers and tests.
func NopToaster() Toaster { return nopToaster{} }
