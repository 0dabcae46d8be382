package helpers

import (
	"strings"
	"sync"

	"github.com/juju/errors"
)

func FoldErrors(errs []error) error {
	if len(errs) == 0 {
		return nil
	}
	ss := make([]string, 0, len(errs))
	for _, e := range errs {
		if e != nil {
			ss = append(ss, e.Error())
		}
	}
	if len(ss) == 0 {
		return nil
	}
	if len(ss) == 1 {
		for _, e := range errs {
			if e != nil {
				return e
			}
		}
	}
	return errors.New(strings.Join(ss, "\n"))
}

// FoldErrChan reads closed channel to end.
func FoldErrChan(ch <-chan error) error {
	errs := make([]error, 0, len(ch))
	for e := range ch {
		errs = append(errs, e)
	}
	return FoldErrors(errs)
}

func WrapErrChan(wg *sync.WaitGroup, ch chan<- error, f func() error) {
	defer wg.Done()
	if err := f(); err != nil {
		ch <- err
	}
}
