package kernel

// BudgetKind names one of the three independently-accounted resource pools
// of spec.md §3 ("Resource budget"). Storage ops are charged per-operation-
// type even though they share the "storage" umbrella, so callers pass the
// more specific BudgetKindStorage* constant.
type BudgetKind string

const (
	BudgetKindCPUTicks      BudgetKind = "cpu_ticks"
	BudgetKindMessages      BudgetKind = "messages"
	BudgetKindStorageRead   BudgetKind = "storage_read"
	BudgetKindStorageWrite  BudgetKind = "storage_write"
	BudgetKindStorageCommit BudgetKind = "storage_commit"
)

// Budget is a per-execution bucket of remaining allotments. Consumption is
// monotone: once a pool hits zero it never recovers for that execution
// (spec.md §3: "Consumption is monotone; exhaustion is permanent").
type Budget struct {
	CPUTicks      uint64
	Messages      uint64
	StorageReads  uint64
	StorageWrites uint64
	StorageCommit uint64
}

// Unlimited returns a Budget with the maximum representable allotment in
// every pool, used for trusted System/Service identities that should never
// be cancelled by bookkeeping (the kernel still requires *some* Budget
// value to exist per execution; spec.md does not special-case "no budget").
func Unlimited() Budget {
	const max = ^uint64(0)
	return Budget{CPUTicks: max, Messages: max, StorageReads: max, StorageWrites: max, StorageCommit: max}
}

// remaining returns a pointer to the field backing kind, or nil for an
// unrecognized kind.
func (b *Budget) remaining(kind BudgetKind) *uint64 {
	switch kind {
	case BudgetKindCPUTicks:
		return &b.CPUTicks
	case BudgetKindMessages:
		return &b.Messages
	case BudgetKindStorageRead:
		return &b.StorageReads
	case BudgetKindStorageWrite:
		return &b.StorageWrites
	case BudgetKindStorageCommit:
		return &b.StorageCommit
	default:
		return nil
	}
}

// tryConsume attempts to decrement amount from the pool named by kind.
// Returns false without mutating the budget if the pool holds less than
// amount (spec.md §3: consumption never goes negative; exhaustion is
// reported, not clamped).
func (b *Budget) tryConsume(kind BudgetKind, amount uint64) bool {
	r := b.remaining(kind)
	if r == nil || *r < amount {
		return false
	}
	*r -= amount
	return true
}
