package pardot

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"
)

// Args holds the identifying values substituted into an operation path,
// keyed by field name ("id", "email", "fid", "list_id", ...).
type Args map[string]string

// Operation maps a semantic action onto an HTTP verb and a path of the form
// /do/{verb}/{field}/{value}/... .
type Operation struct {
	Method string
	Verb   string
	Fields []string
}

// Key names the operation inside an object's table, e.g. "read/email" or
// "create/list_id/prospect_id".
func (op Operation) Key() string {
	if len(op.Fields) == 0 {
		return op.Verb
	}
	return op.Verb + "/" + strings.Join(op.Fields, "/")
}

func (op Operation) path(object string, args Args) (string, error) {
	var b strings.Builder
	b.WriteString("/do/")
	b.WriteString(op.Verb)
	for _, field := range op.Fields {
		value := strings.TrimSpace(args[field])
		if value == "" {
			return "", &ArgumentError{Object: object, Operation: op.Key(), Param: field}
		}
		b.WriteString("/")
		b.WriteString(field)
		b.WriteString("/")
		b.WriteString(url.PathEscape(value))
	}
	return b.String(), nil
}

// CallOptions carries the optional request payloads of an operation.
type CallOptions struct {
	Params url.Values
	JSON   any
	File   *File
}

// Object is a table-driven wrapper for one Pardot object type.
type Object struct {
	// Name is the API object name used in the URL, e.g. "prospect".
	Name string
	// Collection is the key holding records inside a query result.
	Collection string

	ops    map[string]Operation
	doer   Doer
	logger *zap.Logger
}

func newObject(name, collection string, doer Doer, logger *zap.Logger, ops ...Operation) *Object {
	o := &Object{
		Name:       name,
		Collection: collection,
		ops:        make(map[string]Operation, len(ops)),
		doer:       doer,
		logger:     logger,
	}
	for _, op := range ops {
		o.ops[op.Key()] = op
	}
	return o
}

// Supports reports whether the object has the named operation.
func (o *Object) Supports(op string) bool {
	_, ok := o.ops[op]
	return ok
}

// Operations lists the operation keys of the object.
func (o *Object) Operations() []string {
	keys := make([]string, 0, len(o.ops))
	for k := range o.ops {
		keys = append(keys, k)
	}
	return keys
}

// Call invokes a table operation with form or query params.
func (o *Object) Call(ctx context.Context, op string, args Args, params url.Values) (*Result, error) {
	return o.CallWithOptions(ctx, op, args, CallOptions{Params: params})
}

// CallWithOptions invokes a table operation. Unknown operations and missing
// identifying args fail before any request is sent.
func (o *Object) CallWithOptions(ctx context.Context, op string, args Args, opts CallOptions) (*Result, error) {
	operation, ok := o.ops[op]
	if !ok {
		return nil, fmt.Errorf("%w: %s %s", ErrUnsupportedOperation, o.Name, op)
	}
	path, err := operation.path(o.Name, args)
	if err != nil {
		o.logger.Debug("Rejected call with missing argument", zap.Error(err))
		return nil, err
	}

	params := url.Values{}
	for k, v := range opts.Params {
		params[k] = v
	}

	return o.doer.Do(ctx, Request{
		Method: operation.Method,
		Object: o.Name,
		Path:   path,
		Params: params,
		JSON:   opts.JSON,
		File:   opts.File,
	})
}

// QueryResult is a query response whose collection is always a list.
type QueryResult struct {
	TotalResults int
	Records      []map[string]any
	// Result is the normalized "result" object as returned by the API.
	Result map[string]any
}

// Query returns the records matching params. The collection key of the
// result is normalized to a list: empty when nothing matched and a
// one-element list when the API returned a single object. Bulk and custom
// output queries are returned as is.
func (o *Object) Query(ctx context.Context, params url.Values) (*QueryResult, error) {
	res, err := o.Call(ctx, "query", nil, params)
	if err != nil {
		return nil, err
	}
	if !res.IsJSON() {
		return nil, fmt.Errorf("query %s returned no JSON body (status %d)", o.Name, res.StatusCode)
	}
	result, ok := res.Body["result"].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("query %s response missing result", o.Name)
	}

	total, _ := toInt(result["total_results"])
	qr := &QueryResult{TotalResults: total, Result: result}
	if !normalizable(params) {
		return qr, nil
	}

	normalizeCollection(result, o.Collection, total)
	for _, item := range result[o.Collection].([]any) {
		if record, ok := item.(map[string]any); ok {
			qr.Records = append(qr.Records, record)
		}
	}
	if qr.Records == nil {
		qr.Records = []map[string]any{}
	}

	o.logger.Debug("Query finished",
		zap.String("object", o.Name),
		zap.Int("total_results", total),
		zap.Int("items_count", len(qr.Records)))
	return qr, nil
}

// QueryByIDs restricts a query to a comma separated id filter such as
// "ids", "visitor_ids" or "prospect_ids".
func (o *Object) QueryByIDs(ctx context.Context, filter string, ids []string, params url.Values) (*QueryResult, error) {
	if len(ids) == 0 {
		return nil, &ArgumentError{Object: o.Name, Operation: "query", Param: filter}
	}
	merged := url.Values{}
	for k, v := range params {
		merged[k] = v
	}
	cleaned := make([]string, 0, len(ids))
	for _, id := range ids {
		if id = strings.ReplaceAll(id, " ", ""); id != "" {
			cleaned = append(cleaned, id)
		}
	}
	merged.Set(filter, strings.Join(cleaned, ","))
	return o.Query(ctx, merged)
}

func normalizable(params url.Values) bool {
	if _, ok := params["output"]; ok {
		return false
	}
	for _, values := range params {
		for _, v := range values {
			if v == "bulk" {
				return false
			}
		}
	}
	return true
}

func normalizeCollection(result map[string]any, key string, total int) {
	switch v := result[key].(type) {
	case []any:
		return
	case map[string]any:
		result[key] = []any{v}
	default:
		if total != 0 && v != nil {
			result[key] = []any{v}
			return
		}
		result[key] = []any{}
	}
}

// Read returns the record with the given Pardot id.
func (o *Object) Read(ctx context.Context, id string) (map[string]any, error) {
	return o.ReadBy(ctx, "id", id)
}

// ReadBy returns the record identified by field ("id", "email", "fid").
func (o *Object) ReadBy(ctx context.Context, field, value string) (map[string]any, error) {
	return o.body(o.Call(ctx, "read/"+field, Args{field: value}, nil))
}

// ReadField returns one field of the record identified by field/value.
func (o *Object) ReadField(ctx context.Context, field, value, name string) (any, error) {
	body, err := o.ReadBy(ctx, field, value)
	if err != nil {
		return nil, err
	}
	record, ok := body[o.Name].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("read %s response missing %s", o.Name, o.Name)
	}
	return record[name], nil
}

// Create creates a record from params via /do/create.
func (o *Object) Create(ctx context.Context, params url.Values) (map[string]any, error) {
	return o.body(o.Call(ctx, "create", nil, params))
}

// CreateBy creates a record keyed by an identifying field, e.g. a prospect
// by email or an opportunity by prospect_id.
func (o *Object) CreateBy(ctx context.Context, field, value string, params url.Values) (map[string]any, error) {
	return o.body(o.Call(ctx, "create/"+field, Args{field: value}, params))
}

// Update updates the record with the given id. Fields not in params are
// left unchanged.
func (o *Object) Update(ctx context.Context, id string, params url.Values) (map[string]any, error) {
	return o.UpdateBy(ctx, "id", id, params)
}

func (o *Object) UpdateBy(ctx context.Context, field, value string, params url.Values) (map[string]any, error) {
	return o.body(o.Call(ctx, "update/"+field, Args{field: value}, params))
}

// UpdateField sets a single field on the record identified by field/value.
func (o *Object) UpdateField(ctx context.Context, field, value, name, fieldValue string) (map[string]any, error) {
	return o.UpdateBy(ctx, field, value, url.Values{name: {fieldValue}})
}

// Upsert updates the record identified by field/value, creating it when it
// does not exist.
func (o *Object) Upsert(ctx context.Context, field, value string, params url.Values) (map[string]any, error) {
	return o.body(o.Call(ctx, "upsert/"+field, Args{field: value}, params))
}

func (o *Object) Assign(ctx context.Context, field, value string, params url.Values) (map[string]any, error) {
	return o.body(o.Call(ctx, "assign/"+field, Args{field: value}, params))
}

func (o *Object) Unassign(ctx context.Context, field, value string, params url.Values) (map[string]any, error) {
	return o.body(o.Call(ctx, "unassign/"+field, Args{field: value}, params))
}

// Delete deletes the record with the given id. It reports true when the
// API answered 204 No Content.
func (o *Object) Delete(ctx context.Context, id string) (bool, error) {
	return o.DeleteBy(ctx, "id", id)
}

func (o *Object) DeleteBy(ctx context.Context, field, value string) (bool, error) {
	return o.deleted(o.Call(ctx, "delete/"+field, Args{field: value}, nil))
}

func (o *Object) body(res *Result, err error) (map[string]any, error) {
	if err != nil {
		return nil, err
	}
	return res.Body, nil
}

func (o *Object) deleted(res *Result, err error) (bool, error) {
	if err != nil {
		return false, err
	}
	return res.StatusCode == http.StatusNoContent, nil
}
