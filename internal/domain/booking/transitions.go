package booking

import (
	"fmt"
	"time"
)

// TransitionName is the closed set of lifecycle actions.
type TransitionName string

const (
	TransitionSubmitRequest   TransitionName = "SUBMIT_REQUEST"
	TransitionOwnerApprove    TransitionName = "OWNER_APPROVE"
	TransitionOwnerReject     TransitionName = "OWNER_REJECT"
	TransitionCompletePayment TransitionName = "COMPLETE_PAYMENT"
	TransitionExpire          TransitionName = "EXPIRE"
	TransitionStartRental     TransitionName = "START_RENTAL"
	TransitionCancel          TransitionName = "CANCEL"
	TransitionRequestReturn   TransitionName = "REQUEST_RETURN"
	TransitionInitiateDispute TransitionName = "INITIATE_DISPUTE"
	TransitionApproveReturn   TransitionName = "APPROVE_RETURN"
	TransitionRejectReturn    TransitionName = "REJECT_RETURN"
	TransitionSettle          TransitionName = "SETTLE"
	TransitionRefund          TransitionName = "REFUND"
	TransitionResolveDispute  TransitionName = "RESOLVE_DISPUTE"
)

// MetadataResolution selects the target edge when a transition has more than
// one (RESOLVE_DISPUTE). Value ResolutionRefund picks the REFUNDED edge,
// anything else defaults to COMPLETED.
const (
	MetadataResolution = "resolution"
	ResolutionComplete = "complete"
	ResolutionRefund   = "refund"
)

// Edge is one row of the transition table. Guard, when set, is an extra
// precondition evaluated against the loaded booking; a failing guard is an
// invalid transition, not an authorization error.
type Edge struct {
	From       Status
	Name       TransitionName
	To         Status
	Roles      []Role
	Resolution string
	Guard      func(b *Booking, now time.Time) error
}

func (e Edge) allows(role Role) bool {
	for _, r := range e.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// transitionTable is immutable, constructed once and only ever read, so
// concurrent transitions need no locking around it.
var transitionTable = []Edge{
	{From: StatusDraft, Name: TransitionSubmitRequest, To: StatusPendingApproval, Roles: []Role{RoleRenter}, Guard: guardPriced},
	{From: StatusPendingApproval, Name: TransitionOwnerApprove, To: StatusPendingPayment, Roles: []Role{RoleOwner}},
	{From: StatusPendingApproval, Name: TransitionOwnerReject, To: StatusCancelled, Roles: []Role{RoleOwner}},
	{From: StatusPendingPayment, Name: TransitionCompletePayment, To: StatusConfirmed, Roles: []Role{RoleRenter, RoleSystem}},
	{From: StatusPendingPayment, Name: TransitionExpire, To: StatusCancelled, Roles: []Role{RoleSystem}},
	{From: StatusConfirmed, Name: TransitionStartRental, To: StatusInProgress, Roles: []Role{RoleOwner, RoleRenter, RoleSystem}, Guard: guardRentalStarted},
	{From: StatusConfirmed, Name: TransitionCancel, To: StatusCancelled, Roles: []Role{RoleRenter, RoleOwner}},
	{From: StatusInProgress, Name: TransitionRequestReturn, To: StatusAwaitingReturn, Roles: []Role{RoleRenter, RoleSystem}},
	{From: StatusInProgress, Name: TransitionInitiateDispute, To: StatusDisputed, Roles: []Role{RoleRenter, RoleOwner}},
	{From: StatusAwaitingReturn, Name: TransitionApproveReturn, To: StatusCompleted, Roles: []Role{RoleOwner}},
	{From: StatusAwaitingReturn, Name: TransitionRejectReturn, To: StatusDisputed, Roles: []Role{RoleOwner}},
	{From: StatusAwaitingReturn, Name: TransitionExpire, To: StatusCompleted, Roles: []Role{RoleSystem}},
	{From: StatusCompleted, Name: TransitionSettle, To: StatusSettled, Roles: []Role{RoleSystem}},
	{From: StatusCancelled, Name: TransitionRefund, To: StatusRefunded, Roles: []Role{RoleSystem}},
	{From: StatusDisputed, Name: TransitionResolveDispute, To: StatusCompleted, Roles: []Role{RoleAdmin, RoleSystem}, Resolution: ResolutionComplete},
	{From: StatusDisputed, Name: TransitionResolveDispute, To: StatusRefunded, Roles: []Role{RoleAdmin, RoleSystem}, Resolution: ResolutionRefund},
}

func guardPriced(b *Booking, _ time.Time) error {
	if err := b.Price.Validate(); err != nil {
		return fmt.Errorf("price snapshot missing: %w", err)
	}
	return nil
}

func guardRentalStarted(b *Booking, now time.Time) error {
	if now.UTC().Before(b.Range.Start) {
		return fmt.Errorf("rental period starts at %s", b.Range.Start.Format(time.RFC3339))
	}
	return nil
}

// Apply runs the guarded transition against the aggregate: edge matching,
// role check, identity check, precondition, then mutation plus a history
// append and a recorded domain event. Order matters: a wrong transition name
// reports ErrInvalidTransition even when the actor would also have been
// unauthorized, and a rejected call leaves the booking untouched.
func (b *Booking) Apply(name TransitionName, actorID string, role Role, metadata map[string]string, now time.Time) error {
	var matched []Edge
	for _, e := range transitionTable {
		if e.From == b.Status && e.Name == name {
			matched = append(matched, e)
		}
	}
	if len(matched) == 0 {
		return fmt.Errorf("%w: no edge %s from %s", ErrInvalidTransition, name, b.Status)
	}

	var permitted []Edge
	for _, e := range matched {
		if e.allows(role) {
			permitted = append(permitted, e)
		}
	}
	if len(permitted) == 0 {
		return fmt.Errorf("%w: role %s may not %s", ErrForbidden, role, name)
	}

	switch role {
	case RoleRenter:
		if actorID != b.RenterID {
			return fmt.Errorf("%w: actor is not the booking renter", ErrForbidden)
		}
	case RoleOwner:
		if actorID != b.OwnerID {
			return fmt.Errorf("%w: actor is not the listing owner", ErrForbidden)
		}
	}

	edge := selectEdge(permitted, metadata)
	if edge.Guard != nil {
		if err := edge.Guard(b, now); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidTransition, err)
		}
	}

	from := b.Status
	at := now.UTC()
	b.Status = edge.To
	b.UpdatedAt = at
	b.History = append(b.History, HistoryEntry{
		Status:   edge.To,
		ActorID:  actorID,
		Role:     role,
		Metadata: copyMetadata(metadata),
		At:       at,
	})
	b.Record(BookingTransitioned{
		BookingID:  b.ID,
		Transition: name,
		From:       from,
		To:         edge.To,
		RenterID:   b.RenterID,
		OwnerID:    b.OwnerID,
		ListingID:  b.ListingID,
		Metadata:   copyMetadata(metadata),
		At:         at,
	})
	return nil
}

func selectEdge(candidates []Edge, metadata map[string]string) Edge {
	if len(candidates) == 1 {
		return candidates[0]
	}
	want := ResolutionComplete
	if metadata != nil && metadata[MetadataResolution] == ResolutionRefund {
		want = ResolutionRefund
	}
	for _, e := range candidates {
		if e.Resolution == want {
			return e
		}
	}
	return candidates[0]
}

func copyMetadata(metadata map[string]string) map[string]string {
	if len(metadata) == 0 {
		return nil
	}
	out := make(map[string]string, len(metadata))
	for k, v := range metadata {
		out[k] = v
	}
	return out
}

// AvailableTransitions lists the transition names a role can take from the
// given status, in table order. Controllers use this to decide which actions
// to offer.
func AvailableTransitions(status Status, role Role) []TransitionName {
	var out []TransitionName
	seen := map[TransitionName]bool{}
	for _, e := range transitionTable {
		if e.From != status || !e.allows(role) || seen[e.Name] {
			continue
		}
		seen[e.Name] = true
		out = append(out, e.Name)
	}
	return out
}

// IsTerminal reports whether a booking in this status is done from the
// caller's perspective. CANCELLED still accepts the system REFUND edge; the
// transition table, not this predicate, decides what edges exist.
func IsTerminal(status Status) bool {
	switch status {
	case StatusSettled, StatusRefunded, StatusCancelled:
		return true
	}
	return false
}
