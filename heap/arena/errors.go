package arena

import "errors"

var (
	// ErrUnknownMode indicates an arena header whose mode tag is not recognized.
	ErrUnknownMode = errors.New("arena: unknown arena mode")

	// ErrDoubleFree indicates a varlen block freed while not marked used.
	ErrDoubleFree = errors.New("arena: block is not in use")

	// ErrBadPointer indicates a pointer that does not address a unit of its arena.
	ErrBadPointer = errors.New("arena: pointer does not belong to arena")

	// ErrOverflow indicates a free counter exceeding the arena capacity.
	ErrOverflow = errors.New("arena: free count exceeds capacity")

	// ErrBadSize indicates a request the arena mode cannot represent.
	ErrBadSize = errors.New("arena: bad size")

	// ErrCorrupt reports an inconsistency found by Verify.
	ErrCorrupt = errors.New("arena: inconsistent metadata")
)
