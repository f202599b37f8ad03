package nse

import "fmt"

// CookieError reports a failed warmup request. The caller treats it as a
// warning: the API sometimes answers without the bootstrap cookies.
type CookieError struct {
	Page string
	Err  error
}

func (e *CookieError) Error() string {
	return fmt.Sprintf("cookie bootstrap %s: %v", e.Page, e.Err)
}

func (e *CookieError) Unwrap() error { return e.Err }

// FetchError reports a failed data fetch. It is fatal to the running cycle
// but never to the process.
type FetchError struct {
	Op  string
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.Op, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }
