package cache

// SolutionKeyOpts are the solver settings that change a cached result.
type SolutionKeyOpts struct {
	Mode string `json:"mode"`
	// Version invalidates entries written by older solvers.
	Version int `json:"version"`
}

// Keyer builds cache keys.
type Keyer interface {
	// SolutionKey returns the key for the solution of the problem whose
	// inputs hash to problemHash.
	SolutionKey(problemHash string, opts SolutionKeyOpts) string
}

// DefaultKeyer produces unscoped keys of the form "solution:<hash>".
type DefaultKeyer struct{}

// NewDefaultKeyer creates the default keyer.
func NewDefaultKeyer() Keyer {
	return DefaultKeyer{}
}

// SolutionKey implements Keyer.
func (DefaultKeyer) SolutionKey(problemHash string, opts SolutionKeyOpts) string {
	return hashKey("solution", problemHash, opts)
}

var _ Keyer = DefaultKeyer{}
