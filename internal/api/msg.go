// Package api exposes the trait registry over HTTP. Request bodies are
// externally tagged unions: a JSON object with exactly one key naming the
// operation. Each body is decoded once into a concrete operation type and
// dispatched with an exhaustive type switch.
package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/baedrik/skulls2/internal/traits"
	"github.com/baedrik/skulls2/pkg/types"
)

// ExecuteOp is a decoded mutating operation. The set of implementations is
// closed.
type ExecuteOp interface {
	executeOp()
	// Key is the union tag the operation was decoded from.
	Key() string
}

// QueryOp is a decoded read-only operation. The set of implementations is
// closed.
type QueryOp interface {
	queryOp()
	Key() string
}

// Execute operations.
type (
	AddCategories struct {
		Categories []types.CategoryInfo `json:"categories"`
	}
	AddVariants struct {
		CategoryName string              `json:"category_name"`
		Variants     []types.VariantInfo `json:"variants"`
	}
	ModifyCategory struct {
		Name    string  `json:"name"`
		NewName *string `json:"new_name,omitempty"`
		NewSkip *bool   `json:"new_skip,omitempty"`
	}
	ModifyVariants struct {
		Category      string                      `json:"category"`
		Modifications []types.VariantModification `json:"modifications"`
	}
	AddDependencies struct {
		Dependencies []types.Dependency `json:"dependencies"`
	}
	RemoveDependencies struct {
		Dependencies []types.Dependency `json:"dependencies"`
	}
	ModifyDependencies struct {
		Dependencies []types.Dependency `json:"dependencies"`
	}
	SetSkullTypeLayers struct {
		Cyclops types.StoredLayerID `json:"cyclops"`
		Jawless types.StoredLayerID `json:"jawless"`
	}
	SetMetadata struct {
		Public  types.Document `json:"public,omitempty"`
		Private types.Document `json:"private,omitempty"`
	}
)

func (AddCategories) executeOp()      {}
func (AddVariants) executeOp()        {}
func (ModifyCategory) executeOp()     {}
func (ModifyVariants) executeOp()     {}
func (AddDependencies) executeOp()    {}
func (RemoveDependencies) executeOp() {}
func (ModifyDependencies) executeOp() {}
func (SetSkullTypeLayers) executeOp() {}
func (SetMetadata) executeOp()        {}

func (AddCategories) Key() string      { return "add_categories" }
func (AddVariants) Key() string        { return "add_variants" }
func (ModifyCategory) Key() string     { return "modify_category" }
func (ModifyVariants) Key() string     { return "modify_variants" }
func (AddDependencies) Key() string    { return "add_dependencies" }
func (RemoveDependencies) Key() string { return "remove_dependencies" }
func (ModifyDependencies) Key() string { return "modify_dependencies" }
func (SetSkullTypeLayers) Key() string { return "set_skull_type_layers" }
func (SetMetadata) Key() string        { return "set_metadata" }

// Query operations.
type (
	StateQuery        struct{}
	CategoryQuery     traits.CategoryQuery
	VariantQuery      traits.VariantQuery
	DependenciesQuery struct {
		StartAt *uint16 `json:"start_at,omitempty"`
		Limit   *uint16 `json:"limit,omitempty"`
	}
	TransmuteQuery struct {
		Current   types.Composition `json:"current"`
		NewLayers []types.LayerID   `json:"new_layers"`
	}
	SkullTypeQuery struct {
		Composition types.Composition `json:"composition"`
	}
	SkullTypeLayerIDsQuery struct{}
	ServeBulkExportQuery   struct{}
	TokenMetadataQuery     struct {
		Image types.Composition `json:"image"`
	}
	CommonMetadataQuery struct{}
)

func (StateQuery) queryOp()             {}
func (CategoryQuery) queryOp()          {}
func (VariantQuery) queryOp()           {}
func (DependenciesQuery) queryOp()      {}
func (TransmuteQuery) queryOp()         {}
func (SkullTypeQuery) queryOp()         {}
func (SkullTypeLayerIDsQuery) queryOp() {}
func (ServeBulkExportQuery) queryOp()   {}
func (TokenMetadataQuery) queryOp()     {}
func (CommonMetadataQuery) queryOp()    {}

func (StateQuery) Key() string             { return "state" }
func (CategoryQuery) Key() string          { return "category" }
func (VariantQuery) Key() string           { return "variant" }
func (DependenciesQuery) Key() string      { return "dependencies" }
func (TransmuteQuery) Key() string         { return "transmute" }
func (SkullTypeQuery) Key() string         { return "skull_type" }
func (SkullTypeLayerIDsQuery) Key() string { return "skull_type_layer_ids" }
func (ServeBulkExportQuery) Key() string   { return "serve_bulk_export" }
func (TokenMetadataQuery) Key() string     { return "token_metadata" }
func (CommonMetadataQuery) Key() string    { return "common_metadata" }

var executeOps = map[string]func(json.RawMessage) (ExecuteOp, error){
	"add_categories":        decodeExecute[AddCategories],
	"add_variants":          decodeExecute[AddVariants],
	"modify_category":       decodeExecute[ModifyCategory],
	"modify_variants":       decodeExecute[ModifyVariants],
	"add_dependencies":      decodeExecute[AddDependencies],
	"remove_dependencies":   decodeExecute[RemoveDependencies],
	"modify_dependencies":   decodeExecute[ModifyDependencies],
	"set_skull_type_layers": decodeExecute[SetSkullTypeLayers],
	"set_metadata":          decodeExecute[SetMetadata],
}

var queryOps = map[string]func(json.RawMessage) (QueryOp, error){
	"state":                decodeQuery[StateQuery],
	"category":             decodeQuery[CategoryQuery],
	"variant":              decodeQuery[VariantQuery],
	"dependencies":         decodeQuery[DependenciesQuery],
	"transmute":            decodeQuery[TransmuteQuery],
	"skull_type":           decodeQuery[SkullTypeQuery],
	"skull_type_layer_ids": decodeQuery[SkullTypeLayerIDsQuery],
	"serve_bulk_export":    decodeQuery[ServeBulkExportQuery],
	"token_metadata":       decodeQuery[TokenMetadataQuery],
	"common_metadata":      decodeQuery[CommonMetadataQuery],
}

func decodeExecute[T ExecuteOp](body json.RawMessage) (ExecuteOp, error) {
	var op T
	if err := decodeBody(body, &op); err != nil {
		return nil, fmt.Errorf("%s: %w", op.Key(), err)
	}
	return op, nil
}

func decodeQuery[T QueryOp](body json.RawMessage) (QueryOp, error) {
	var op T
	if err := decodeBody(body, &op); err != nil {
		return nil, fmt.Errorf("%s: %w", op.Key(), err)
	}
	return op, nil
}

// DecodeExecute reads one tagged execute message.
func DecodeExecute(r io.Reader) (ExecuteOp, error) {
	key, body, err := decodeTagged(r)
	if err != nil {
		return nil, err
	}
	decode, ok := executeOps[key]
	if !ok {
		return nil, fmt.Errorf("unknown execute operation %q: %w", key, types.ErrInvalidRequest)
	}
	return decode(body)
}

// DecodeQuery reads one tagged query message.
func DecodeQuery(r io.Reader) (QueryOp, error) {
	key, body, err := decodeTagged(r)
	if err != nil {
		return nil, err
	}
	decode, ok := queryOps[key]
	if !ok {
		return nil, fmt.Errorf("unknown query %q: %w", key, types.ErrInvalidRequest)
	}
	return decode(body)
}

// decodeTagged splits {"key": body} and rejects anything with zero or
// several keys.
func decodeTagged(r io.Reader) (string, json.RawMessage, error) {
	var msg map[string]json.RawMessage
	if err := json.NewDecoder(r).Decode(&msg); err != nil {
		return "", nil, fmt.Errorf("decoding message: %v: %w", err, types.ErrInvalidRequest)
	}
	if len(msg) != 1 {
		return "", nil, fmt.Errorf("message must have exactly one operation key, got %d: %w", len(msg), types.ErrInvalidRequest)
	}
	var (
		key  string
		body json.RawMessage
	)
	for k, v := range msg {
		key, body = k, v
	}
	return key, body, nil
}

// decodeBody decodes an operation body strictly. A null or empty body leaves
// op at its zero value.
func decodeBody(body json.RawMessage, op any) error {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.DisallowUnknownFields()
	if err := dec.Decode(op); err != nil {
		if errors.Is(err, types.ErrInvalidComposition) {
			return err
		}
		return fmt.Errorf("%v: %w", err, types.ErrInvalidRequest)
	}
	return nil
}
