package badger

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/mcolletta/direx/pkg/journal"
)

// storedOperation is the JSON wire form of a journal.Operation.
//
// The payload interface cannot round-trip through encoding/json directly,
// so exactly one of the payload pointers is set, selected by Kind.
type storedOperation struct {
	ID          string    `json:"id"`
	Kind        int       `json:"kind"`
	CreatedAt   time.Time `json:"created_at"`
	Status      int       `json:"status"`
	Description string    `json:"description"`
	CanUndo     bool      `json:"can_undo"`
	Err         string    `json:"err,omitempty"`

	Copy   *journal.CopyPayload   `json:"copy,omitempty"`
	Move   *journal.MovePayload   `json:"move,omitempty"`
	Delete *journal.DeletePayload `json:"delete,omitempty"`
	Rename *journal.RenamePayload `json:"rename,omitempty"`
	Create *journal.CreatePayload `json:"create,omitempty"`
	Mkdir  *journal.MkdirPayload  `json:"mkdir,omitempty"`
}

func encodeOperation(op *journal.Operation) ([]byte, error) {
	stored := storedOperation{
		ID:          op.ID,
		Kind:        int(op.Kind),
		CreatedAt:   op.CreatedAt,
		Status:      int(op.Status),
		Description: op.Description,
		CanUndo:     op.CanUndo,
		Err:         op.Err,
	}

	switch p := op.Payload.(type) {
	case journal.CopyPayload:
		stored.Copy = &p
	case journal.MovePayload:
		stored.Move = &p
	case journal.DeletePayload:
		stored.Delete = &p
	case journal.RenamePayload:
		stored.Rename = &p
	case journal.CreatePayload:
		stored.Create = &p
	case journal.MkdirPayload:
		stored.Mkdir = &p
	default:
		return nil, fmt.Errorf("unknown payload type %T for operation %s", op.Payload, op.ID)
	}

	data, err := json.Marshal(stored)
	if err != nil {
		return nil, fmt.Errorf("failed to encode operation %s: %w", op.ID, err)
	}
	return data, nil
}

func decodeOperation(data []byte) (*journal.Operation, error) {
	var stored storedOperation
	if err := json.Unmarshal(data, &stored); err != nil {
		return nil, fmt.Errorf("failed to decode operation: %w", err)
	}

	op := &journal.Operation{
		ID:          stored.ID,
		Kind:        journal.Kind(stored.Kind),
		CreatedAt:   stored.CreatedAt,
		Status:      journal.Status(stored.Status),
		Description: stored.Description,
		CanUndo:     stored.CanUndo,
		Err:         stored.Err,
	}

	switch {
	case stored.Copy != nil:
		op.Payload = *stored.Copy
	case stored.Move != nil:
		op.Payload = *stored.Move
	case stored.Delete != nil:
		op.Payload = *stored.Delete
	case stored.Rename != nil:
		op.Payload = *stored.Rename
	case stored.Create != nil:
		op.Payload = *stored.Create
	case stored.Mkdir != nil:
		op.Payload = *stored.Mkdir
	default:
		return nil, fmt.Errorf("operation %s has no payload", stored.ID)
	}

	return op, nil
}
