package operations

// Option configures the bounded algorithms.
type Option func(*options)

type options struct {
	maxStates     int
	maxIterations int
	delta         float64
	unique        bool
}

func defaultOptions() options {
	return options{
		maxStates:     1 << 20,
		maxIterations: 1 << 24,
		delta:         1.0 / 1024,
	}
}

func applyOptions(opts []Option) options {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithMaxStates caps the number of states Compose and Determinize may
// create.
func WithMaxStates(n int) Option {
	return func(o *options) { o.maxStates = n }
}

// WithMaxIterations caps the relaxation steps of ShortestDistance and
// RmEpsilon and the queue pops of NShortestPaths.
func WithMaxIterations(n int) Option {
	return func(o *options) { o.maxIterations = n }
}

// WithDelta sets the convergence tolerance and the quantization step used
// to identify determinization subsets.
func WithDelta(d float64) Option {
	return func(o *options) { o.delta = d }
}

// WithUnique makes NShortestPaths drop paths whose label sequence was
// already returned.
func WithUnique(unique bool) Option {
	return func(o *options) { o.unique = unique }
}
