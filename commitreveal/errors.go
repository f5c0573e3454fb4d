package commitreveal

import "errors"

// Closed error taxonomy for the commit-reveal coordinator
// (spec.md §4.5, §7).
var (
	ErrCommitmentAlreadyExists = errors.New("commitreveal: commitment already exists for agent")
	ErrCommitmentExpired       = errors.New("commitreveal: commit deadline has passed")
	ErrUnknownAgent            = errors.New("commitreveal: agent is not in the participating set")
	ErrWrongState              = errors.New("commitreveal: operation not valid in current state")
	ErrRevealMismatch          = errors.New("commitreveal: reveal does not match commitment")
	ErrTimeout                 = errors.New("commitreveal: deadline exceeded")
	ErrNoCommitment            = errors.New("commitreveal: no unopened commitment for agent")
	ErrAlreadyRevealed         = errors.New("commitreveal: agent already revealed")
	ErrQuorumNotReached        = errors.New("commitreveal: participation floor not met by commit deadline")
)
