package operations

import (
	"errors"

	"github.com/ieee0824/g2p-go/fst"
)

var (
	// ErrNoStart indicates an operand without a start state.
	ErrNoStart = fst.ErrNoStart

	// ErrUndefinedWeight indicates that an operation produced a weight
	// outside the semiring's domain.
	ErrUndefinedWeight = fst.ErrUndefinedWeight

	// ErrSymbolMismatch indicates operands whose shared tape disagrees on
	// reserved symbol ids.
	ErrSymbolMismatch = errors.New("operations: symbol tables disagree")

	// ErrNonConvergent indicates an algorithm stopped at its iteration or
	// state cap.
	ErrNonConvergent = errors.New("operations: did not converge")

	// ErrTooLarge indicates an operation stopped at its state cap.
	ErrTooLarge = errors.New("operations: too many states")

	// ErrNotAcceptor indicates a transducer where an acceptor is required.
	ErrNotAcceptor = errors.New("operations: not an acceptor")

	// ErrNotPathSemiring indicates a semiring without a total natural order.
	ErrNotPathSemiring = errors.New("operations: semiring lacks the path property")
)
