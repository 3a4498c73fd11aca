package failure

import (
	"errors"
	"fmt"
	"sync"
)

// Kind identifies a class of failure. Kinds form trees: a failure of kind K
// is also a failure of every ancestor of K.
//
// Kind implements error so it can be used as an errors.Is target.
type Kind struct {
	name   string
	parent *Kind
	bind   func(error) bool

	mu sync.RWMutex
	// bound lists the kinds in this subtree, k included, that match
	// foreign errors.
	bound []*Kind
}

var (
	// Standard is the root of ordinary failures. Guards intercept it by default.
	Standard = &Kind{name: "Standard"}

	// Fatal is a separate root for failures that must never be intercepted
	// unless a guard names Fatal (or a descendant) explicitly.
	Fatal = &Kind{name: "Fatal"}

	// Panic is the kind given to panics recovered inside guarded work.
	Panic = NewKind("Panic", Standard)
)

// NewKind declares a kind under parent. A nil parent means Standard.
func NewKind(name string, parent *Kind) *Kind {
	if parent == nil {
		parent = Standard
	}
	return &Kind{name: name, parent: parent}
}

// KindOf declares a kind matched by any error chain containing sentinel.
func KindOf(name string, parent *Kind, sentinel error) *Kind {
	return bindKind(NewKind(name, parent), func(err error) bool { return errors.Is(err, sentinel) })
}

// KindFor declares a kind matched by any error chain containing an E.
func KindFor[E error](name string, parent *Kind) *Kind {
	return bindKind(NewKind(name, parent), func(err error) bool {
		var target E
		return errors.As(err, &target)
	})
}

// KindFunc declares a kind matched by any error for which match returns true.
func KindFunc(name string, parent *Kind, match func(error) bool) *Kind {
	return bindKind(NewKind(name, parent), match)
}

// bindKind attaches match to k and registers k with every ancestor, so a
// foreign error matched by k also matches them.
func bindKind(k *Kind, match func(error) bool) *Kind {
	k.bind = match
	for cur := k; cur != nil; cur = cur.parent {
		cur.mu.Lock()
		cur.bound = append(cur.bound, k)
		cur.mu.Unlock()
	}
	return k
}

// claims reports whether a binding in k's subtree matches err.
func (k *Kind) claims(err error) bool {
	k.mu.RLock()
	bound := k.bound
	k.mu.RUnlock()

	for _, b := range bound {
		if b.bind(err) {
			return true
		}
	}
	return false
}

// Name returns the kind's name.
func (k *Kind) Name() string { return k.name }

// Parent returns the parent kind, or nil for a root.
func (k *Kind) Parent() *Kind { return k.parent }

func (k *Kind) Error() string { return k.name }

// IsA reports whether k is other or descends from it.
func (k *Kind) IsA(other *Kind) bool {
	for cur := k; cur != nil; cur = cur.parent {
		if cur == other {
			return true
		}
	}
	return false
}

func (k *Kind) root() *Kind {
	cur := k
	for cur.parent != nil {
		cur = cur.parent
	}
	return cur
}

// New creates a failure of this kind.
func (k *Kind) New(message string) *Failure {
	return newFailure(k, message, nil, 4)
}

// Newf creates a failure of this kind with a formatted message.
func (k *Kind) Newf(format string, args ...any) *Failure {
	return newFailure(k, fmt.Sprintf(format, args...), nil, 4)
}

// Wrap creates a failure of this kind caused by err.
func (k *Kind) Wrap(err error, message string) *Failure {
	return newFailure(k, message, err, 4)
}

// Matches reports whether err is-a k.
//
// A *Failure anywhere in the chain matches its own kind and every ancestor.
// Kinds declared with KindOf, KindFor or KindFunc also match foreign errors,
// and so do their ancestors. Any error not claimed by a kind rooted at Fatal
// matches Standard.
func Matches(err error, k *Kind) bool {
	if err == nil || k == nil {
		return false
	}
	if k == Standard {
		return isStandard(err)
	}
	if errors.Is(err, k) {
		return true
	}
	return k.claims(err)
}

// isStandard decides Standard membership from the outermost Failure, so a
// Fatal wrapping an ordinary failure stays Fatal. A recovered panic whose
// value is an error is judged by that error.
func isStandard(err error) bool {
	var f *Failure
	if errors.As(err, &f) {
		if f.value != nil && f.cause != nil {
			return isStandard(f.cause)
		}
		return f.kind.root() == Standard
	}
	return !Fatal.claims(err)
}

// MatchesAny reports whether err is-a any of kinds.
func MatchesAny(err error, kinds []*Kind) bool {
	for _, k := range kinds {
		if Matches(err, k) {
			return true
		}
	}
	return false
}
