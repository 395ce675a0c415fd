package rpc

import (
	"math/big"
	"strconv"
)

// TaskKind tags the lookup a Task performs.
type TaskKind int

const (
	// TaskFTBalance asks a fungible token contract for an account's balance.
	TaskFTBalance TaskKind = iota + 1
)

func (k TaskKind) String() string {
	switch k {
	case TaskFTBalance:
		return "ft_balance"
	default:
		return "unknown(" + strconv.Itoa(int(k)) + ")"
	}
}

// Task is one lookup against the RPC service.
type Task struct {
	Kind      TaskKind
	TokenID   string
	AccountID string
	// BlockHeight pins the query to a block; nil means the latest final block.
	BlockHeight *uint64
}

// FTBalanceTask builds a balance lookup for (account, token).
func FTBalanceTask(tokenID, accountID string, height *uint64) Task {
	return Task{Kind: TaskFTBalance, TokenID: tokenID, AccountID: accountID, BlockHeight: height}
}

// FTBalance is the value of a TaskFTBalance lookup.
type FTBalance struct {
	Balance *big.Int
}

// Result pairs a task with its value. A nil Value means the task legitimately
// has no value (e.g. the contract does not exist) and must be skipped.
type Result struct {
	Task  Task
	Value *FTBalance
}
