package main

import (
	"fmt"
	"runtime"
	"sync"
)

// guard runs f and turns a panic inside it into an error carrying the stack.
func guard(f func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = panicError(r)
		}
	}()
	return f()
}

func panicError(r any) error {
	buf := make([]byte, 100000)
	n := runtime.Stack(buf, false)
	return fmt.Errorf("panic: %v\n\n%s", r, buf[:n])
}

// forEach calls f for every index below n, holding one of workers tokens
// while it runs.
func forEach(n, workers int, f func(i int)) {
	tokens := make(chan struct{}, max(workers, 1))
	wg := sync.WaitGroup{}
	for i := range n {
		tokens <- struct{}{}
		wg.Add(1)
		go func() {
			defer func() {
				<-tokens
				wg.Done()
			}()
			f(i)
		}()
	}
	wg.Wait()
}
