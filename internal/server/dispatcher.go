package server

import (
	"fmt"

	"github.com/dreamware/sdb/internal/store"
	"github.com/dreamware/sdb/internal/wal"
)

// Dispatcher routes request envelopes onto store operations. A nil log
// disables write-ahead logging.
type Dispatcher struct {
	store store.Store
	log   *wal.Log
}

// NewDispatcher wires a dispatcher to its store and optional log.
func NewDispatcher(s store.Store, l *wal.Log) *Dispatcher {
	return &Dispatcher{store: s, log: l}
}

// Dispatch handles every section present in the envelope and returns
// the mirrored response. An empty envelope yields an empty response.
func (d *Dispatcher) Dispatch(req Request) Response {
	var resp Response
	if req.Get != nil {
		resp.Get = d.handleGet(req.Get)
	}
	if req.Set != nil {
		resp.Set = d.handleSet(req.Set)
	}
	if req.Delete != nil {
		resp.Delete = d.handleDelete(req.Delete)
	}
	return resp
}

func (d *Dispatcher) handleGet(req *GetRequest) *GetResponse {
	rec, err := d.store.GetClone(req.Key)
	if err != nil {
		return &GetResponse{Error: err.Error(), Status: StatusFail}
	}
	return &GetResponse{Value: rec.Value, Status: StatusOk}
}

func (d *Dispatcher) handleSet(req *SetRequest) *SetResponse {
	if err := d.store.SetOrInsert(req.Key, req.Value); err != nil {
		return &SetResponse{Error: err.Error(), Status: StatusFail}
	}
	if err := d.logMutation(wal.OpSet, req.Key, req.Value); err != nil {
		return &SetResponse{Error: err.Error(), Status: StatusFail}
	}
	return &SetResponse{Message: fmt.Sprintf("set/updated %s", req.Key), Status: StatusOk}
}

func (d *Dispatcher) handleDelete(req *DeleteRequest) *DeleteResponse {
	rec, err := d.store.Delete(req.Key)
	if err != nil {
		return &DeleteResponse{Error: err.Error(), Status: StatusFail}
	}
	if err := d.logMutation(wal.OpDelete, req.Key, ""); err != nil {
		return &DeleteResponse{Error: err.Error(), Status: StatusFail}
	}
	return &DeleteResponse{Message: fmt.Sprintf("deleted %s", rec.String()), Status: StatusOk}
}

// logMutation appends to the write-ahead log after the store mutation
// has already taken effect. A failed append is surfaced to the caller:
// the write happened, but it would not survive a restart.
func (d *Dispatcher) logMutation(op wal.Op, key, value string) error {
	if d.log == nil {
		return nil
	}
	if _, err := d.log.Append(op, key, value); err != nil {
		return fmt.Errorf("write-ahead log: %w", err)
	}
	return nil
}
