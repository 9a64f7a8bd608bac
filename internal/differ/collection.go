package differ

import "github.com/toolsascode/shift/internal/operations"

// matcher decides whether a source and target element are the same object
type matcher[T any] func(source, target T) bool

// diffCollection pairs sources with targets greedily, trying each matcher in
// turn from strictest to loosest. Paired elements are diffed, unpaired
// sources removed and unpaired targets added.
func diffCollection[T any](
	sources, targets []T,
	diff func(source, target T) ([]operations.Operation, error),
	add func(target T) ([]operations.Operation, error),
	remove func(source T) ([]operations.Operation, error),
	matchers ...matcher[T],
) ([]operations.Operation, error) {
	srcs := append([]T(nil), sources...)
	tgts := append([]T(nil), targets...)

	var ops []operations.Operation
	for _, match := range matchers {
		for i := 0; i < len(srcs); {
			j := indexOf(tgts, srcs[i], match)
			if j < 0 {
				i++
				continue
			}
			s, t := srcs[i], tgts[j]
			srcs = append(srcs[:i], srcs[i+1:]...)
			tgts = append(tgts[:j], tgts[j+1:]...)

			out, err := diff(s, t)
			if err != nil {
				return nil, err
			}
			ops = append(ops, out...)
		}
	}

	for _, s := range srcs {
		out, err := remove(s)
		if err != nil {
			return nil, err
		}
		ops = append(ops, out...)
	}
	for _, t := range tgts {
		out, err := add(t)
		if err != nil {
			return nil, err
		}
		ops = append(ops, out...)
	}
	return ops, nil
}

func indexOf[T any](targets []T, source T, match matcher[T]) int {
	for j, t := range targets {
		if match(source, t) {
			return j
		}
	}
	return -1
}

func none[T any](T) ([]operations.Operation, error) {
	return nil, nil
}

func noDiff[T any](T, T) ([]operations.Operation, error) {
	return nil, nil
}
