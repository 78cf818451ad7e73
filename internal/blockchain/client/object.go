package client

import (
	"bytes"
	"encoding/json"
	"strings"

	"golang.org/x/xerrors"

	"github.com/SeventhOdyssey71/sui-dating-app/internal/event"
)

type (
	// Object is a ledger object with its Move fields and display metadata.
	// A missing or deleted object is returned with Exists set to false.
	Object struct {
		ID      string
		Type    string
		Version string
		Owner   string
		Exists  bool
		Fields  map[string]json.RawMessage
		Display map[string]string
	}

	Balance struct {
		Owner           string
		CoinType        string
		TotalBalance    uint64
		CoinObjectCount int
	}

	objectResponse struct {
		Data  *objectData  `json:"data"`
		Error *objectError `json:"error"`
	}

	objectError struct {
		Code     string `json:"code"`
		ObjectID string `json:"object_id"`
	}

	objectData struct {
		ObjectID string          `json:"objectId"`
		Version  string          `json:"version"`
		Type     string          `json:"type"`
		Owner    json.RawMessage `json:"owner"`
		Content  *objectContent  `json:"content"`
		Display  *objectDisplay  `json:"display"`
	}

	objectContent struct {
		DataType string                     `json:"dataType"`
		Type     string                     `json:"type"`
		Fields   map[string]json.RawMessage `json:"fields"`
	}

	objectDisplay struct {
		Data map[string]*string `json:"data"`
	}

	objectOwner struct {
		AddressOwner string `json:"AddressOwner"`
		ObjectOwner  string `json:"ObjectOwner"`
	}

	// moveStruct is how nested Move structs are rendered in object content.
	moveStruct struct {
		Type   string                     `json:"type"`
		Fields map[string]json.RawMessage `json:"fields"`
	}

	balanceResponse struct {
		CoinType        string    `json:"coinType"`
		CoinObjectCount int       `json:"coinObjectCount"`
		TotalBalance    event.U64 `json:"totalBalance"`
	}
)

const (
	objectErrorNotExists = "notExists"
	objectErrorDeleted   = "deleted"
)

func (r *objectResponse) toObject(id string) (*Object, error) {
	if r.Error != nil {
		switch r.Error.Code {
		case objectErrorNotExists, objectErrorDeleted:
			return &Object{ID: id, Exists: false}, nil
		default:
			return nil, xerrors.Errorf("failed to read object %v: %v", id, r.Error.Code)
		}
	}

	if r.Data == nil {
		return &Object{ID: id, Exists: false}, nil
	}

	return r.Data.toObject()
}

func (d *objectData) toObject() (*Object, error) {
	object := &Object{
		ID:      d.ObjectID,
		Type:    d.Type,
		Version: d.Version,
		Exists:  true,
		Fields:  map[string]json.RawMessage{},
		Display: map[string]string{},
	}

	if len(d.Owner) > 0 && d.Owner[0] == '{' {
		var owner objectOwner
		if err := json.Unmarshal(d.Owner, &owner); err != nil {
			return nil, xerrors.Errorf("failed to decode owner of %v: %w", d.ObjectID, err)
		}
		object.Owner = owner.AddressOwner
		if object.Owner == "" {
			object.Owner = owner.ObjectOwner
		}
	}

	if d.Content != nil {
		if object.Type == "" {
			object.Type = d.Content.Type
		}
		for k, v := range d.Content.Fields {
			object.Fields[k] = v
		}
	}

	if d.Display != nil {
		for k, v := range d.Display.Data {
			if v != nil {
				object.Display[k] = *v
			}
		}
	}

	return object, nil
}

// String returns a string field. Byte-vector fields are decoded as UTF-8.
func (o *Object) String(name string) string {
	raw, ok := o.Fields[name]
	if !ok {
		return ""
	}

	var text event.Text
	if err := json.Unmarshal(raw, &text); err != nil {
		return ""
	}

	return text.String()
}

func (o *Object) U64(name string) uint64 {
	raw, ok := o.Fields[name]
	if !ok {
		return 0
	}

	var value event.U64
	if err := json.Unmarshal(raw, &value); err != nil {
		return 0
	}

	return uint64(value)
}

func (o *Object) Bool(name string) bool {
	raw, ok := o.Fields[name]
	if !ok {
		return false
	}

	var value bool
	if err := json.Unmarshal(raw, &value); err != nil {
		return false
	}

	return value
}

// Strings returns a vector<String> field.
func (o *Object) Strings(name string) []string {
	raw, ok := o.Fields[name]
	if !ok {
		return nil
	}

	var values []event.Text
	if err := json.Unmarshal(raw, &values); err != nil {
		return nil
	}

	result := make([]string, len(values))
	for i, v := range values {
		result[i] = v.String()
	}

	return result
}

// Struct returns the fields of a nested Move struct, e.g. a Balance or a Table.
func (o *Object) Struct(name string) map[string]json.RawMessage {
	raw, ok := o.Fields[name]
	if !ok {
		return nil
	}

	var nested moveStruct
	if err := json.Unmarshal(raw, &nested); err != nil {
		return nil
	}

	return nested.Fields
}

// Nested wraps a nested Move struct so that the typed accessors can be reused.
func (o *Object) Nested(name string) *Object {
	return &Object{
		ID:     o.ID,
		Exists: o.Exists,
		Fields: o.Struct(name),
	}
}

// VecMap flattens a VecMap<String, String> field.
func (o *Object) VecMap(name string) map[string]string {
	contents, ok := o.Struct(name)["contents"]
	if !ok {
		return nil
	}

	var entries []moveStruct
	if err := json.Unmarshal(contents, &entries); err != nil {
		return nil
	}

	result := make(map[string]string, len(entries))
	for _, entry := range entries {
		e := &Object{Fields: entry.Fields}
		result[e.String("key")] = e.String("value")
	}

	return result
}

// Decode unmarshals a field into out.
func (o *Object) Decode(name string, out any) error {
	raw, ok := o.Fields[name]
	if !ok || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return xerrors.Errorf("field %v not found in object %v", name, o.ID)
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return xerrors.Errorf("failed to decode field %v of object %v: %w", name, o.ID, err)
	}

	return nil
}

// IsType reports whether the object is of the given Move struct type, ignoring type arguments.
func (o *Object) IsType(structType string) bool {
	t := o.Type
	if i := strings.IndexByte(t, '<'); i >= 0 {
		t = t[:i]
	}

	return t == structType
}

// Elements returns the items of a vector of Move structs.
func (o *Object) Elements(name string) []*Object {
	raw, ok := o.Fields[name]
	if !ok {
		return nil
	}

	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil
	}

	result := make([]*Object, 0, len(items))
	for _, item := range items {
		if fields := unwrapStruct(item); fields != nil {
			result = append(result, &Object{ID: o.ID, Exists: true, Fields: fields})
		}
	}

	return result
}

// Option returns the value of an Option<T> field, or nil when it is none.
// Both the flattened rendering and the legacy `{"vec": [...]}` rendering are accepted.
func (o *Object) Option(name string) *Object {
	raw, ok := o.Fields[name]
	if !ok {
		return nil
	}

	fields := unwrapStruct(raw)
	if fields == nil {
		return nil
	}

	vec, ok := fields["vec"]
	if !ok {
		return &Object{ID: o.ID, Exists: true, Fields: fields}
	}

	var items []json.RawMessage
	if err := json.Unmarshal(vec, &items); err != nil || len(items) == 0 {
		return nil
	}

	inner := unwrapStruct(items[0])
	if inner == nil {
		return nil
	}

	return &Object{ID: o.ID, Exists: true, Fields: inner}
}

// Len returns the length of a vector field, or the size of a Table or VecSet field.
func (o *Object) Len(name string) int {
	raw, ok := o.Fields[name]
	if !ok {
		return 0
	}

	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err == nil {
		return len(items)
	}

	nested := o.Nested(name)
	if _, ok := nested.Fields["size"]; ok {
		return int(nested.U64("size"))
	}

	if _, ok := nested.Fields["contents"]; ok {
		return nested.Len("contents")
	}

	return 0
}

// unwrapStruct returns the fields of a Move struct rendered either as
// `{"type": ..., "fields": {...}}` or as a plain JSON object.
func unwrapStruct(raw json.RawMessage) map[string]json.RawMessage {
	if bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return nil
	}

	var nested moveStruct
	if err := json.Unmarshal(raw, &nested); err != nil {
		return nil
	}

	if nested.Fields != nil {
		return nested.Fields
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil
	}

	return fields
}
