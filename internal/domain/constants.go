package domain

const (
	RoleInvestor = "INVESTOR"
	RoleOwner    = "OWNER"
	RoleAdmin    = "ADMIN"
)

// IntentionPurpose selects the side effect applied when an intention settles.
type IntentionPurpose string

const (
	PurposeWalletCharge IntentionPurpose = "wallet_charge"
	PurposeInvestment   IntentionPurpose = "investment"
)

func (p IntentionPurpose) Valid() bool {
	return p == PurposeWalletCharge || p == PurposeInvestment
}

// IntentionStatus lifecycle: created -> active -> completed|failed.
// Any non-terminal intention past its expiry may become expired.
type IntentionStatus string

const (
	IntentionCreated   IntentionStatus = "created"
	IntentionActive    IntentionStatus = "active"
	IntentionCompleted IntentionStatus = "completed"
	IntentionFailed    IntentionStatus = "failed"
	IntentionExpired   IntentionStatus = "expired"
)

func (s IntentionStatus) Terminal() bool {
	return s == IntentionCompleted || s == IntentionFailed || s == IntentionExpired
}

// InvestmentMode decides who takes the merchandise. In myself mode the
// investor takes delivery and pays a per-share service fee; in authorize mode
// the platform sells on their behalf and distributes profit.
type InvestmentMode string

const (
	ModeMyself    InvestmentMode = "myself"
	ModeAuthorize InvestmentMode = "authorize"
)

func (m InvestmentMode) Valid() bool {
	return m == ModeMyself || m == ModeAuthorize
}

type InvestmentStatus string

const (
	InvestmentActive    InvestmentStatus = "active"
	InvestmentCompleted InvestmentStatus = "completed"
	InvestmentCancelled InvestmentStatus = "cancelled"
)

// MerchandiseStatus is meaningful only for myself investments; it moves
// pending -> arrived exactly once.
type MerchandiseStatus string

const (
	MerchandisePending MerchandiseStatus = "pending"
	MerchandiseArrived MerchandiseStatus = "arrived"
)

// DistributionStatus is meaningful only for authorize investments; it moves
// pending -> distributed exactly once.
type DistributionStatus string

const (
	DistributionPending     DistributionStatus = "pending"
	DistributionDistributed DistributionStatus = "distributed"
)

type OpportunityStatus string

const (
	OpportunityOpen      OpportunityStatus = "open"
	OpportunityFunded    OpportunityStatus = "funded"
	OpportunityClosed    OpportunityStatus = "closed"
	OpportunityCancelled OpportunityStatus = "cancelled"
)

func (s OpportunityStatus) Fundable() bool { return s == OpportunityOpen }

// EntryKind tags ledger entries. Transfers write two entries sharing one
// correlation reference.
type EntryKind string

const (
	EntryDeposit     EntryKind = "deposit"
	EntryWithdraw    EntryKind = "withdraw"
	EntryTransferIn  EntryKind = "transfer_in"
	EntryTransferOut EntryKind = "transfer_out"
)
