package ir

import "maps"

// MutateAction selects the mutation performed by a MutateRequest.
type MutateAction string

const (
	ActionInsert MutateAction = "insert"
	ActionUpdate MutateAction = "update"
	ActionRemove MutateAction = "remove"
)

// Valid reports whether a is a known mutate action.
func (a MutateAction) Valid() bool {
	return a == ActionInsert || a == ActionUpdate || a == ActionRemove
}

// RequestTypeMutate is the wire discriminator of a MutateRequest.
const RequestTypeMutate = "mutate"

// Row is one record keyed by attribute name. Nested relation data is stored
// under the relation alias.
type Row map[string]any

// Clone returns a shallow copy of r.
func (r Row) Clone() Row {
	if r == nil {
		return Row{}
	}
	return maps.Clone(r)
}

// Pick returns a row holding only the given keys that are present in r.
func (r Row) Pick(keys ...string) Row {
	out := make(Row, len(keys))
	for _, k := range keys {
		if v, ok := r[k]; ok {
			out[k] = v
		}
	}
	return out
}

// MutateRequest is a tagged union over insert, update and remove.
//
// Insert and update carry Data. Update may narrow the written fields with
// Attributes. Remove carries Identifiers.
type MutateRequest struct {
	Type        string       `json:"type"`
	Action      MutateAction `json:"action"`
	Model       string       `json:"model"`
	RequestID   string       `json:"requestId,omitempty"`
	Data        Row          `json:"data,omitempty"`
	Identifiers Row          `json:"identifiers,omitempty"`
	Attributes  []string     `json:"attributes,omitempty"`
}

// NewInsert builds an insert request.
func NewInsert(model string, data Row) MutateRequest {
	return MutateRequest{Type: RequestTypeMutate, Action: ActionInsert, Model: model, Data: data}
}

// NewUpdate builds an update request. Attributes optionally narrows the
// written fields.
func NewUpdate(model string, data Row, attributes ...string) MutateRequest {
	return MutateRequest{Type: RequestTypeMutate, Action: ActionUpdate, Model: model, Data: data, Attributes: attributes}
}

// NewRemove builds a remove request.
func NewRemove(model string, identifiers Row) MutateRequest {
	return MutateRequest{Type: RequestTypeMutate, Action: ActionRemove, Model: model, Identifiers: identifiers}
}

// ValidationError is a business error returned inside a SyncResult.
//
// Key is a stable machine-readable code such as NAME_REQUIRED. Field is the
// path of the offending value relative to the top-level request.
type ValidationError struct {
	Key     string         `json:"key"`
	Field   string         `json:"field,omitempty"`
	Message string         `json:"message,omitempty"`
	Params  map[string]any `json:"params,omitempty"`
}

// Well-known ValidationError keys.
const (
	KeyTransactionFailed = "TRANSACTION_FAILED"
	KeyUniqueViolation   = "UNIQUE_VIOLATION"
	KeyForeignKey        = "FOREIGN_KEY_VIOLATION"
	KeyNotNull           = "NOT_NULL_VIOLATION"
	KeyCheck             = "CHECK_VIOLATION"
)

// SyncResult is the outcome of one synchronizer call.
//
// An empty Errors slice means success. GeneratedIDs holds the primary key
// values of the written row.
type SyncResult struct {
	Errors            []ValidationError `json:"errors"`
	GeneratedIDs      Row               `json:"generatedIds,omitempty"`
	TransactionFailed bool              `json:"transactionFailed,omitempty"`
}

// OK reports whether the result carries no errors.
func (r SyncResult) OK() bool {
	return len(r.Errors) == 0
}

// Success returns a successful result with the given generated ids.
func Success(generated Row) SyncResult {
	return SyncResult{Errors: []ValidationError{}, GeneratedIDs: generated}
}

// Failure returns a result carrying errs.
func Failure(errs ...ValidationError) SyncResult {
	return SyncResult{Errors: errs}
}

// ResolveResult is the outcome of a resolve call. Count is set only when
// the query asked for it.
type ResolveResult struct {
	Data  []Row  `json:"data"`
	Count *int64 `json:"count,omitempty"`
}
