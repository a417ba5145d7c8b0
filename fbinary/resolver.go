package fbinary

import (
	"strconv"
	"sync"

	"colexpr-go/column"
	"colexpr-go/types"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Resolver memoizes makers by (operator, stype1, stype2). Only successful
// resolutions are stored, so a failed lookup is retried on the next call.
// A Resolver is safe for concurrent use; the zero value is not.
type Resolver struct {
	mu     sync.RWMutex
	makers map[uint32]*BiMaker
	group  singleflight.Group

	logger  *zap.Logger
	metrics *Metrics
}

type Option func(*Resolver)

func WithLogger(l *zap.Logger) Option {
	return func(r *Resolver) { r.logger = l }
}

func WithMetrics(m *Metrics) Option {
	return func(r *Resolver) { r.metrics = m }
}

func NewResolver(opts ...Option) *Resolver {
	r := &Resolver{
		makers: make(map[uint32]*BiMaker),
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Lookup returns the maker for op over operands of stypes st1 and st2,
// resolving it on first use. Concurrent first lookups of the same triple
// share a single resolution.
func (r *Resolver) Lookup(op Op, st1, st2 types.SType) (*BiMaker, error) {
	key := cacheKey(op, st1, st2)
	r.mu.RLock()
	m, ok := r.makers[key]
	r.mu.RUnlock()
	if ok {
		r.observe(resultHit)
		return m, nil
	}

	v, err, _ := r.group.Do(strconv.FormatUint(uint64(key), 16), func() (any, error) {
		r.mu.RLock()
		m, ok := r.makers[key]
		r.mu.RUnlock()
		if ok {
			return m, nil
		}
		m, err := ResolveOp(op, st1, st2)
		if err != nil {
			return nil, err
		}
		r.mu.Lock()
		r.makers[key] = m
		n := len(r.makers)
		r.mu.Unlock()
		if r.metrics != nil {
			r.metrics.entries.Set(float64(n))
		}
		r.logger.Debug("resolved binary operator",
			zap.String("op", op.Name()),
			zap.Stringer("lhs", st1),
			zap.Stringer("rhs", st2),
			zap.Stringer("out", m.OutType()),
		)
		return m, nil
	})
	if err != nil {
		r.observe(resultError)
		r.logger.Debug("cannot resolve binary operator",
			zap.String("op", op.Name()),
			zap.Stringer("lhs", st1),
			zap.Stringer("rhs", st2),
			zap.Error(err),
		)
		return nil, err
	}
	r.observe(resultMiss)
	return v.(*BiMaker), nil
}

// BinaryOp applies op to col1 and col2 and returns the lazily evaluated
// result. The columns must have the same number of rows.
func (r *Resolver) BinaryOp(op Op, col1, col2 column.Column) (column.Column, error) {
	m, err := r.Lookup(op, col1.SType(), col2.SType())
	if err != nil {
		return nil, err
	}
	return m.Compute(col1, col2)
}

// Len reports the number of cached makers.
func (r *Resolver) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.makers)
}

func (r *Resolver) observe(result string) {
	if r.metrics != nil {
		r.metrics.lookups.WithLabelValues(result).Inc()
	}
}
