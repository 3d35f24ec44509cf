// Package switcher forwards values from the most recent of a sequence of
// producers, abandoning older ones.
package switcher

import "context"

// Source produces values on out until it fails or ctx is done. It must not
// close out, and every send must also select on ctx.Done().
type Source[T any] func(ctx context.Context, out chan<- T) error

type inner[T any] struct {
	cancel context.CancelFunc
	values chan T
	errc   chan error
	ended  bool
}

func start[T any](ctx context.Context, src Source[T]) *inner[T] {
	ctx, cancel := context.WithCancel(ctx)
	in := &inner[T]{
		cancel: cancel,
		values: make(chan T),
		errc:   make(chan error, 1),
	}
	go func() { in.errc <- src(ctx, in.values) }()
	return in
}

// stop cancels the source and waits for it to return, so resources it owns
// (an open file) are released before the next one starts.
func (in *inner[T]) stop() {
	in.cancel()
	if !in.ended {
		<-in.errc
		in.ended = true
	}
}

// Latest runs outer and, for each key it produces, replaces the active inner
// source with open(key). Values are sent to out only from the active inner
// source. Before the first key nothing is sent.
//
// Latest returns the first error of outer or of the active inner source, or
// ctx.Err() once ctx is done. An inner source returning nil is treated as
// exhausted and the switch waits for the next key; outer returning nil keeps
// the active inner source running.
func Latest[K, T any](ctx context.Context, outer Source[K], open func(K) Source[T], out chan<- T) error {
	ctx, cancel := context.WithCancel(ctx)

	keys := make(chan K)
	outerErr := make(chan error, 1)
	go func() { outerErr <- outer(ctx, keys) }()
	outerDone := false

	var cur *inner[T]
	defer func() {
		cancel()
		if cur != nil {
			cur.stop()
		}
		if !outerDone {
			<-outerErr
		}
	}()

	replace := func(k K) {
		if cur != nil {
			cur.stop()
		}
		cur = start(ctx, open(k))
	}
	// finish records the outer result; ok is false when it failed.
	finish := func(err error) bool {
		outerDone = true
		return err == nil
	}

	for {
		var outerCh <-chan error
		if !outerDone {
			outerCh = outerErr
		}

		// The outer sequence always takes priority over pending values.
		select {
		case k := <-keys:
			replace(k)
			continue
		case err := <-outerCh:
			if !finish(err) {
				return err
			}
			continue
		default:
		}

		var values <-chan T
		var innerErr <-chan error
		if cur != nil && !cur.ended {
			values, innerErr = cur.values, cur.errc
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case k := <-keys:
			replace(k)
		case err := <-outerCh:
			if !finish(err) {
				return err
			}
		case err := <-innerErr:
			cur.ended = true
			if err != nil {
				return err
			}
		case v := <-values:
			k, switched, err := deliver(ctx, keys, out, v)
			if err != nil {
				return err
			}
			if switched {
				replace(k)
			}
		}
	}
}

// deliver sends v on out unless a key is pending or arrives first, in which
// case v is dropped and the key returned. A pending key always wins.
func deliver[K, T any](ctx context.Context, keys <-chan K, out chan<- T, v T) (k K, switched bool, err error) {
	select {
	case k = <-keys:
		return k, true, nil
	default:
	}

	select {
	case out <- v:
		return k, false, nil
	case k = <-keys:
		return k, true, nil
	case <-ctx.Done():
		return k, false, ctx.Err()
	}
}
