package crdt

// NodeSubscribeOptions configures Document.SubscribeNode.
type NodeSubscribeOptions struct {
	deep bool
}

// NodeSubscribeOption mutates NodeSubscribeOptions.
type NodeSubscribeOption func(*NodeSubscribeOptions)

// WithDeep makes a node subscription also fire when a descendant of
// the subscribed node changes, not only the node itself (spec.md
// §4.8 "deep subscriptions").
func WithDeep() NodeSubscribeOption {
	return func(o *NodeSubscribeOptions) { o.deep = true }
}

type nodeSubscription struct {
	sub  *subscription
	opts NodeSubscribeOptions
}

// Subscribe registers cb to be called after every committed unit of
// work (an immediate mutation, a completed Batch, an Undo/Redo, or an
// ApplyRemoteOperations call) with the full set of modified nodes. The
// returned func removes the subscription.
func (d *Document) Subscribe(cb ModifiedFunc) func() {
	sub := &subscription{cb: cb}
	d.globalSubs = append(d.globalSubs, sub)
	return func() {
		d.globalSubs = removeSub(d.globalSubs, sub)
	}
}

// SubscribeNode registers cb to be called only when n itself appears
// in a commit's modified set, or — with WithDeep — when any of n's
// descendants does. The returned func removes the subscription.
func (d *Document) SubscribeNode(n Node, cb ModifiedFunc, opts ...NodeSubscribeOption) func() {
	var o NodeSubscribeOptions
	for _, opt := range opts {
		opt(&o)
	}
	sub := &subscription{cb: cb}
	id := n.ID()
	d.nodeSubs[id] = append(d.nodeSubs[id], sub)
	if o.deep {
		d.deepSubs = append(d.deepSubs, nodeSubscription{sub: sub, opts: o})
		d.deepSubTarget[sub] = id
	}
	return func() {
		d.nodeSubs[id] = removeSub(d.nodeSubs[id], sub)
		if len(d.nodeSubs[id]) == 0 {
			delete(d.nodeSubs, id)
		}
		if o.deep {
			d.removeDeepSub(sub)
		}
	}
}

func (d *Document) removeDeepSub(sub *subscription) {
	out := d.deepSubs[:0]
	for _, ds := range d.deepSubs {
		if ds.sub != sub {
			out = append(out, ds)
		}
	}
	d.deepSubs = out
	delete(d.deepSubTarget, sub)
}

func removeSub(subs []*subscription, target *subscription) []*subscription {
	out := subs[:0]
	for _, s := range subs {
		if s != target {
			out = append(out, s)
		}
	}
	return out
}

// notify fans modified out to global subscribers first (in
// registration order), then to per-node subscribers keyed by each
// modified node's id, then to deep subscribers whose target is an
// ancestor of a modified node (spec.md §4.8).
func (d *Document) notify(modified []Node) {
	if len(modified) == 0 {
		return
	}
	for _, sub := range d.globalSubs {
		sub.cb(modified)
	}
	for _, n := range modified {
		for _, sub := range d.nodeSubs[n.ID()] {
			sub.cb(modified)
		}
	}
	if len(d.deepSubs) == 0 {
		return
	}
	for _, ds := range d.deepSubs {
		targetID := d.deepSubTarget[ds.sub]
		if d.anyIsDescendantOf(modified, targetID) {
			ds.sub.cb(modified)
		}
	}
}

// anyIsDescendantOf reports whether any node in modified has targetID
// as itself or as an ancestor reachable by walking ParentNode links.
func (d *Document) anyIsDescendantOf(modified []Node, targetID string) bool {
	for _, n := range modified {
		cur := n
		for cur != nil {
			if cur.ID() == targetID {
				return true
			}
			cur = cur.ParentNode()
		}
	}
	return false
}
