package block

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"strings"

	"github.com/cockroachdb/errors"
)

// ErrMalformed marks payloads that cannot be decoded into a Block.
var ErrMalformed = errors.New("malformed block message")

const eventLogPrefix = "EVENT_JSON:"

type streamerMessage struct {
	Block struct {
		Header struct {
			Height uint64 `json:"height"`
			Hash   string `json:"hash"`
		} `json:"header"`
	} `json:"block"`
	Shards []struct {
		ReceiptExecutionOutcomes []executionOutcomeWithReceipt `json:"receipt_execution_outcomes"`
	} `json:"shards"`
}

type executionOutcomeWithReceipt struct {
	Receipt struct {
		PredecessorID string `json:"predecessor_id"`
		ReceiverID    string `json:"receiver_id"`
		ReceiptID     string `json:"receipt_id"`
		Receipt       struct {
			Action *struct {
				Actions []json.RawMessage `json:"actions"`
			} `json:"Action"`
		} `json:"receipt"`
	} `json:"receipt"`
	ExecutionOutcome struct {
		Outcome struct {
			Logs       []string        `json:"logs"`
			Status     json.RawMessage `json:"status"`
			ExecutorID string          `json:"executor_id"`
		} `json:"outcome"`
	} `json:"execution_outcome"`
}

type functionCall struct {
	MethodName string `json:"method_name"`
	Args       string `json:"args"`
}

type eventEnvelope struct {
	Standard string            `json:"standard"`
	Event    string            `json:"event"`
	Data     []json.RawMessage `json:"data"`
}

type eventData struct {
	OwnerID    string `json:"owner_id"`
	OldOwnerID string `json:"old_owner_id"`
	NewOwnerID string `json:"new_owner_id"`
}

// Decode parses a serialized streamer message into a Block.
// Unparseable actions, args or event logs are skipped; only a payload that is
// not a streamer message at all is an error.
func Decode(payload []byte) (Block, error) {
	var msg streamerMessage
	dec := json.NewDecoder(bytes.NewReader(payload))
	dec.UseNumber()
	if err := dec.Decode(&msg); err != nil {
		return Block{}, errors.Mark(errors.Wrap(err, "decode streamer message"), ErrMalformed)
	}
	if msg.Block.Header.Height == 0 {
		return Block{}, errors.Wrap(ErrMalformed, "missing block height")
	}

	b := Block{Height: msg.Block.Header.Height, Hash: msg.Block.Header.Hash}
	for _, shard := range msg.Shards {
		for _, reo := range shard.ReceiptExecutionOutcomes {
			status := parseStatus(reo.ExecutionOutcome.Outcome.Status)
			if reo.Receipt.Receipt.Action != nil {
				b.Actions = append(b.Actions, actionRows(b.Height, reo, status)...)
			}
			b.Events = append(b.Events, eventRows(b.Height, reo, status)...)
		}
	}
	return b, nil
}

func parseStatus(raw json.RawMessage) ReceiptStatus {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		// "Unknown" and other bare strings
		return StatusPending
	}
	if _, ok := obj["SuccessValue"]; ok {
		return StatusSuccess
	}
	if _, ok := obj["SuccessReceiptId"]; ok {
		return StatusSuccess
	}
	if _, ok := obj["Failure"]; ok {
		return StatusFailure
	}
	return StatusPending
}

func actionRows(height uint64, reo executionOutcomeWithReceipt, status ReceiptStatus) []ActionRow {
	r := reo.Receipt
	rows := make([]ActionRow, 0, len(r.Receipt.Action.Actions))
	for i, raw := range r.Receipt.Action.Actions {
		row := ActionRow{
			BlockHeight:   height,
			ReceiptID:     r.ReceiptID,
			Index:         i,
			PredecessorID: r.PredecessorID,
			AccountID:     r.ReceiverID,
			Status:        status,
		}
		var name string
		if err := json.Unmarshal(raw, &name); err == nil {
			row.Action = ActionKind(name)
			rows = append(rows, row)
			continue
		}
		var variant map[string]json.RawMessage
		if err := json.Unmarshal(raw, &variant); err != nil || len(variant) != 1 {
			continue
		}
		for kind, body := range variant {
			row.Action = ActionKind(kind)
			if row.Action == ActionFunctionCall {
				var fc functionCall
				if err := json.Unmarshal(body, &fc); err == nil {
					row.MethodName = fc.MethodName
					row.ArgsReceiverID = argsReceiverID(fc.Args)
				}
			}
		}
		rows = append(rows, row)
	}
	return rows
}

// argsReceiverID extracts "receiver_id" from base64 JSON call arguments.
func argsReceiverID(args string) string {
	if args == "" {
		return ""
	}
	raw, err := base64.StdEncoding.DecodeString(args)
	if err != nil {
		return ""
	}
	var parsed struct {
		ReceiverID json.RawMessage `json:"receiver_id"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return ""
	}
	var s string
	if err := json.Unmarshal(parsed.ReceiverID, &s); err != nil {
		return ""
	}
	return s
}

func eventRows(height uint64, reo executionOutcomeWithReceipt, status ReceiptStatus) []EventRow {
	outcome := reo.ExecutionOutcome.Outcome
	accountID := outcome.ExecutorID
	if accountID == "" {
		accountID = reo.Receipt.ReceiverID
	}
	var rows []EventRow
	for i, line := range outcome.Logs {
		body, ok := strings.CutPrefix(strings.TrimSpace(line), eventLogPrefix)
		if !ok {
			continue
		}
		var env eventEnvelope
		if err := json.Unmarshal([]byte(body), &env); err != nil {
			continue
		}
		for _, item := range env.Data {
			var d eventData
			if err := json.Unmarshal(item, &d); err != nil {
				continue
			}
			rows = append(rows, EventRow{
				BlockHeight:    height,
				ReceiptID:      reo.Receipt.ReceiptID,
				LogIndex:       i,
				AccountID:      accountID,
				Status:         status,
				Standard:       env.Standard,
				Event:          env.Event,
				DataOwnerID:    d.OwnerID,
				DataOldOwnerID: d.OldOwnerID,
				DataNewOwnerID: d.NewOwnerID,
			})
		}
	}
	return rows
}
