package plan

import "errors"

// SkipChildren may be returned by a WalkFunc to skip the node's children.
var SkipChildren = errors.New("skip children")

// WalkFunc is called for every node visited by Walk.
type WalkFunc func(n Node) error

// Walk visits n and everything below it depth-first, parents before children,
// following every link returned by Children. A non-nil error other than
// SkipChildren stops the walk and is returned.
func Walk(n Node, fn WalkFunc) error {
	if n == nil {
		return nil
	}
	if err := fn(n); err != nil {
		if err == SkipChildren {
			return nil
		}
		return err
	}
	for _, c := range n.Children() {
		if err := Walk(c, fn); err != nil {
			return err
		}
	}
	return nil
}

// Count returns the number of nodes reachable from n.
func Count(n Node) int {
	total := 0
	_ = Walk(n, func(Node) error {
		total++
		return nil
	})
	return total
}
