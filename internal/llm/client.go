package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// completion is what a backend extracts from its SDK response.
type completion struct {
	text  string
	usage Usage
	model string
	stop  StopReason
}

// backend adapts one vendor SDK. Errors it returns should be *Error.
type backend interface {
	complete(ctx context.Context, model string, req Request) (completion, error)
}

// client turns a backend into a Provider, enforcing the response schema.
type client struct {
	name  string
	model string
	b     backend
}

func (c *client) Generate(ctx context.Context, req Request) (*Response, error) {
	out, err := c.b.complete(ctx, c.model, req)
	if err != nil {
		return nil, err
	}

	content := json.RawMessage(bytes.TrimSpace([]byte(out.text)))
	if req.Schema != nil {
		if out.stop == StopMaxTokens {
			return nil, &Error{Kind: KindTruncated, Provider: c.name, Content: content,
				Err: fmt.Errorf("output hit the %d token limit", req.MaxTokens)}
		}
		if err := checkSchema(req.Schema, content); err != nil {
			return nil, &Error{Kind: KindInvalidResponse, Provider: c.name, Content: content, Err: err}
		}
	}

	model := out.model
	if model == "" {
		model = c.model
	}
	return &Response{Content: content, Usage: out.usage, Model: model, StopReason: out.stop}, nil
}

func (c *client) ModelID() string {
	return c.model
}

// compiled caches schemas by name.
var compiled sync.Map // string -> *jsonschema.Schema

// checkSchema validates raw against s.
func checkSchema(s *Schema, raw json.RawMessage) error {
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("output is not JSON: %w", err)
	}
	sch, err := compile(s)
	if err != nil {
		return err
	}
	if err := sch.Validate(doc); err != nil {
		return fmt.Errorf("output does not match schema %q: %w", s.Name, err)
	}
	return nil
}

func compile(s *Schema) (*jsonschema.Schema, error) {
	if v, ok := compiled.Load(s.Name); ok {
		return v.(*jsonschema.Schema), nil
	}

	// The compiler wants decoded JSON values, not Go maps with typed slices.
	def, err := json.Marshal(s.Definition)
	if err != nil {
		return nil, fmt.Errorf("encode schema %q: %w", s.Name, err)
	}
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(def))
	if err != nil {
		return nil, fmt.Errorf("decode schema %q: %w", s.Name, err)
	}

	c := jsonschema.NewCompiler()
	url := "mem://schemas/" + s.Name + ".json"
	if err := c.AddResource(url, doc); err != nil {
		return nil, fmt.Errorf("load schema %q: %w", s.Name, err)
	}
	sch, err := c.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("compile schema %q: %w", s.Name, err)
	}
	compiled.Store(s.Name, sch)
	return sch, nil
}
