package landkeeper

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// ContextResolver is an idempotent, read-only function that runs before
// an action's handler to gather external or computed context the
// handler needs, without the handler itself reaching outside the state
// tree. In live mode resolvers execute in parallel, concurrently with
// each other; in reevaluation mode their recorded outputs are replayed
// verbatim instead of being recomputed.
type ContextResolver interface {
	// Name uniquely identifies the resolver, used as its registry key and
	// as the key under which its output is recorded for replay.
	Name() string

	// Resolve computes the resolver's output for the given action.
	Resolve(ctx context.Context, rc *ResolverContext) (interface{}, error)
}

// ResolverContext carries the inputs available to a ContextResolver:
// the land, the acting player, and the action payload.
type ResolverContext struct {
	LandID SessionID
	Player PlayerID
	Action interface{}
}

// resolverResult pairs a resolver's name with its output, stored at the
// resolver's registration position.
type resolverResult struct {
	Name   string
	Output interface{}
	Err    error
}

// runResolvers executes resolvers concurrently via errgroup and returns
// their outputs keyed by name. Every resolver runs to completion; a
// failure does not cancel the others. If any resolver failed, the first
// failure in registration order is returned as *ResolverExecutionError
// and no outputs are returned.
func runResolvers(ctx context.Context, rc *ResolverContext, resolvers []ContextResolver) (map[string]interface{}, error) {
	results := make([]resolverResult, len(resolvers))
	g, gctx := errgroup.WithContext(ctx)
	for i, r := range resolvers {
		i, r := i, r
		g.Go(func() error {
			out, err := r.Resolve(gctx, rc)
			results[i] = resolverResult{Name: r.Name(), Output: out, Err: err}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	outputs := make(map[string]interface{}, len(results))
	for _, res := range results {
		if res.Err != nil {
			return nil, &ResolverExecutionError{ResolverName: res.Name, Err: res.Err}
		}
		outputs[res.Name] = res.Output
	}
	return outputs, nil
}

// replayResolvers returns resolver outputs recorded from a prior tick
// verbatim, without invoking any resolver, for use during reevaluation.
func replayResolvers(recorded map[string]interface{}, resolvers []ContextResolver) (map[string]interface{}, error) {
	outputs := make(map[string]interface{}, len(resolvers))
	for _, r := range resolvers {
		out, ok := recorded[r.Name()]
		if !ok {
			return nil, &ResolverExecutionError{ResolverName: r.Name(), Err: errMissingRecordedOutput}
		}
		outputs[r.Name()] = out
	}
	return outputs, nil
}

var errMissingRecordedOutput = &EventError{msg: "no recorded output for resolver"}

// ResolverOutputs gives an action handler typed access to resolver
// results, replacing dynamic member lookup with a typed accessor keyed
// by the resolver's registered name.
type ResolverOutputs struct {
	byName map[string]interface{}
}

// NewResolverOutputs wraps a raw name-to-output map.
func NewResolverOutputs(byName map[string]interface{}) ResolverOutputs {
	return ResolverOutputs{byName: byName}
}

// Resolver[R] is not expressible as a method (Go forbids generic
// methods), so typed access is a free function: landkeeper.Resolver[R](outputs, name).

// Resolver fetches and type-asserts a named resolver's output.
func Resolver[R any](outputs ResolverOutputs, name string) (R, bool) {
	raw, ok := outputs.byName[name]
	if !ok {
		var zero R
		return zero, false
	}
	typed, ok := raw.(R)
	return typed, ok
}
