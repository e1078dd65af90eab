package template

// walkStep is a unit of work for walk: either expand a context into its
// merged, own and parent entries, or visit it.
type walkStep struct {
	ctx    *Context
	expand bool
}

// walk visits the resolution chain of c in priority order until visit
// returns true: for every context, its merged contexts (recursively), then
// the context itself, then its parent chain. A context reachable along
// several routes is visited once, at its first position.
func (c *Context) walk(visit func(*Context) bool) {
	stack := []walkStep{{ctx: c, expand: true}}
	var seen []*Context

	for len(stack) > 0 {
		step := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if !step.expand {
			if visit(step.ctx) {
				return
			}
			continue
		}

		if contains(seen, step.ctx) {
			continue
		}
		seen = append(seen, step.ctx)

		step.ctx.mu.RLock()
		merged := step.ctx.merged
		parent := step.ctx.parent
		step.ctx.mu.RUnlock()

		if parent != nil {
			stack = append(stack, walkStep{ctx: parent, expand: true})
		}
		stack = append(stack, walkStep{ctx: step.ctx})
		for i := len(merged) - 1; i >= 0; i-- {
			stack = append(stack, walkStep{ctx: merged[i], expand: true})
		}
	}
}

// Chain returns the contexts consulted by lookups on c, in priority order.
func (c *Context) Chain() []*Context {
	var chain []*Context
	c.walk(func(ctx *Context) bool {
		chain = append(chain, ctx)
		return false
	})

	return chain
}

func contains(list []*Context, ctx *Context) bool {
	for _, c := range list {
		if c == ctx {
			return true
		}
	}
	return false
}
