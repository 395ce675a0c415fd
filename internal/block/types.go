package block

// ReceiptStatus is the execution status of a receipt.
type ReceiptStatus int

const (
	StatusPending ReceiptStatus = iota
	StatusSuccess
	StatusFailure
)

func (s ReceiptStatus) String() string {
	switch s {
	case StatusSuccess:
		return "SUCCESS"
	case StatusFailure:
		return "FAILURE"
	default:
		return "PENDING"
	}
}

// ActionKind names a NEAR action variant.
type ActionKind string

const (
	ActionCreateAccount  ActionKind = "CreateAccount"
	ActionDeployContract ActionKind = "DeployContract"
	ActionFunctionCall   ActionKind = "FunctionCall"
	ActionTransfer       ActionKind = "Transfer"
	ActionStake          ActionKind = "Stake"
	ActionAddKey         ActionKind = "AddKey"
	ActionDeleteKey      ActionKind = "DeleteKey"
	ActionDeleteAccount  ActionKind = "DeleteAccount"
	ActionDelegate       ActionKind = "Delegate"
)

// ActionRow is one action of an executed action receipt.
type ActionRow struct {
	BlockHeight   uint64
	ReceiptID     string
	Index         int
	PredecessorID string
	// AccountID is the receipt receiver, i.e. the contract for function calls.
	AccountID string
	Status    ReceiptStatus
	Action    ActionKind
	// MethodName is empty for non function-call actions.
	MethodName string
	// ArgsReceiverID is the "receiver_id" argument of a function call, if any.
	ArgsReceiverID string
}

// EventRow is one data entry of a NEP-297 event log line.
type EventRow struct {
	BlockHeight uint64
	ReceiptID   string
	LogIndex    int
	// AccountID is the contract that emitted the event.
	AccountID      string
	Status         ReceiptStatus
	Standard       string
	Event          string
	DataOwnerID    string
	DataOldOwnerID string
	DataNewOwnerID string
}

// Block is one decoded block message reduced to the rows extraction needs.
type Block struct {
	Height  uint64
	Hash    string
	Actions []ActionRow
	Events  []EventRow
}
