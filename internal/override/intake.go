package override

import (
	"context"

	"golang.org/x/time/rate"

	"zone_controller/internal/logger"
)

// Result is the outcome of a submitted request.
type Result struct {
	Applied Applied
	Err     error
}

type envelope struct {
	req   Request
	reply chan Result
}

// Intake serializes override requests from every trigger (HTTP, button)
// through one goroutine. Senders that need the outcome use Submit; the
// button uses the fire-and-forget channel from Requests.
type Intake struct {
	resolver *Resolver
	limiter  *rate.Limiter
	log      *logger.Logger
	queue    chan envelope
	fire     chan Request
	observe  func(Request, Result)
}

// NewIntake builds an intake. A nil limiter disables throttling.
func NewIntake(resolver *Resolver, limiter *rate.Limiter, log *logger.Logger) *Intake {
	if log == nil {
		log = logger.Nop()
	}
	return &Intake{
		resolver: resolver,
		limiter:  limiter,
		log:      log,
		queue:    make(chan envelope),
		fire:     make(chan Request, 8),
	}
}

// Observe registers fn to be called after every handled request, from the
// intake goroutine. It must be set before Run.
func (in *Intake) Observe(fn func(Request, Result)) { in.observe = fn }

// Requests returns the channel for fire-and-forget requests.
func (in *Intake) Requests() chan<- Request { return in.fire }

// Run applies requests one at a time until ctx is cancelled.
func (in *Intake) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case env := <-in.queue:
			env.reply <- in.report(env.req, in.handle(ctx, env.req))
		case req := <-in.fire:
			if res := in.report(req, in.handle(ctx, req)); res.Err != nil {
				in.log.Warnw("override_request_rejected", "source", req.Source, "err", res.Err)
			}
		}
	}
}

// Submit queues req and waits for its result.
func (in *Intake) Submit(ctx context.Context, req Request) (Applied, error) {
	reply := make(chan Result, 1)
	select {
	case in.queue <- envelope{req: req, reply: reply}:
	case <-ctx.Done():
		return Applied{}, ctx.Err()
	}
	select {
	case res := <-reply:
		return res.Applied, res.Err
	case <-ctx.Done():
		return Applied{}, ctx.Err()
	}
}

func (in *Intake) handle(ctx context.Context, req Request) Result {
	if in.limiter != nil && !in.limiter.Allow() {
		return Result{Err: ErrRateLimited}
	}
	applied, err := in.resolver.Apply(ctx, req)
	return Result{Applied: applied, Err: err}
}

func (in *Intake) report(req Request, res Result) Result {
	if in.observe != nil {
		in.observe(req, res)
	}
	return res
}
