package permission

// Aggregate derives the displayed status of a composite matrix cell
// from its concrete sub-action statuses: Allow if any sub-action is
// Allow, Deny if every sub-action is Deny, otherwise NotSet. An empty
// input is NotSet. Note that any-Allow wins even when another
// sub-action is explicitly denied; the summary cell reports "some
// access", not "full access".
func Aggregate(statuses ...Status) Status {
	if len(statuses) == 0 {
		return NotSet
	}
	allDeny := true
	for _, s := range statuses {
		if s == Allow {
			return Allow
		}
		if s != Deny {
			allDeny = false
		}
	}
	if allDeny {
		return Deny
	}
	return NotSet
}

// ResolveAggregate resolves a composite action declared in the
// taxonomy by aggregating its sub-actions. Unknown composites resolve
// as a plain action.
func ResolveAggregate(s Set, resource, action string) Status {
	subs, ok := CompositeFor(resource, action)
	if !ok {
		return Resolve(s, resource, action)
	}
	statuses := make([]Status, 0, len(subs))
	for _, sub := range subs {
		statuses = append(statuses, Resolve(s, resource, sub))
	}
	return Aggregate(statuses...)
}

// Combine folds per-role resolutions into a single access decision
// with deny-overrides semantics: any Deny blocks, otherwise any Allow
// admits, otherwise NotSet. This is the route-guard rule and is
// deliberately different from Aggregate, where any-Allow wins over
// Deny.
func Combine(statuses ...Status) Status {
	result := NotSet
	for _, s := range statuses {
		if s == Deny {
			return Deny
		}
		if s == Allow {
			result = Allow
		}
	}
	return result
}
