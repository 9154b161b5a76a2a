// Package calculator holds the sum and sub tools, their input schemas and the
// dispatcher that routes a named invocation to its handler. It performs no
// I/O; the MCP runtimes in internal/mcpserver sit in front of it.
package calculator

import (
	"encoding/json"
	"fmt"
	"slices"
	"strconv"

	"github.com/google/jsonschema-go/jsonschema"
)

const Instructions = "A simple calculator"

const (
	TOOL_SUM = "sum"
	TOOL_SUB = "sub"
)

// Capabilities are the service capability flags reported by Describe.
type Capabilities struct {
	Tools bool `json:"tools"`
}

// ToolDescriptor documents one registered tool.
type ToolDescriptor struct {
	Name        string             `json:"name"`
	Description string             `json:"description"`
	Fields      []Field            `json:"fields"`
	InputSchema *jsonschema.Schema `json:"inputSchema"`
}

// ServiceInfo is the static metadata returned by Describe.
type ServiceInfo struct {
	Instructions string           `json:"instructions"`
	Capabilities Capabilities     `json:"capabilities"`
	Tools        []ToolDescriptor `json:"tools"`
}

type route struct {
	name        string
	description string
	fields      []Field
	handle      func(payload json.RawMessage) (string, error)
}

// Dispatcher routes tool invocations to their handlers. The routing table is
// filled once by NewDispatcher and only read afterwards, so a Dispatcher is
// safe for concurrent use.
type Dispatcher struct {
	order  []string
	routes map[string]route
}

// NewDispatcher returns a Dispatcher with the sum and sub tools registered.
func NewDispatcher() (*Dispatcher, error) {
	d := &Dispatcher{routes: map[string]route{}}

	if err := register(d, TOOL_SUM, "Calculate the sum of two numbers", operandFields, sum); err != nil {
		return nil, err
	}
	if err := register(d, TOOL_SUB, "Calculate the difference of two numbers", operandFields, sub); err != nil {
		return nil, err
	}

	return d, nil
}

func register[T any](d *Dispatcher, name, description string, fields []Field, fn func(T) (string, error)) error {
	if _, exists := d.routes[name]; exists {
		return fmt.Errorf("tool %q is already registered", name)
	}

	resolved, err := objectSchema(fields).Resolve(nil)
	if err != nil {
		return fmt.Errorf("failed to resolve input schema for %q: %w", name, err)
	}

	d.routes[name] = route{
		name:        name,
		description: description,
		fields:      fields,
		handle: func(payload json.RawMessage) (string, error) {
			req, err := decode[T](name, resolved, payload)
			if err != nil {
				return "", err
			}
			return fn(req)
		},
	}
	d.order = append(d.order, name)
	return nil
}

func (r route) descriptor() ToolDescriptor {
	return ToolDescriptor{
		Name:        r.name,
		Description: r.description,
		Fields:      slices.Clone(r.fields),
		InputSchema: objectSchema(r.fields),
	}
}

// Describe returns the service metadata: every registered tool in
// registration order, the capability flags and the instruction string.
// The returned value is freshly built and may be modified by the caller.
func (d *Dispatcher) Describe() ServiceInfo {
	tools := make([]ToolDescriptor, 0, len(d.order))
	for _, name := range d.order {
		tools = append(tools, d.routes[name].descriptor())
	}
	return ServiceInfo{
		Instructions: Instructions,
		Capabilities: Capabilities{Tools: true},
		Tools:        tools,
	}
}

// Lookup returns the descriptor of the named tool.
func (d *Dispatcher) Lookup(name string) (ToolDescriptor, bool) {
	r, ok := d.routes[name]
	if !ok {
		return ToolDescriptor{}, false
	}
	return r.descriptor(), true
}

// Invoke decodes payload with the named tool's schema and runs the tool.
//
// It fails with *UnknownToolError when no tool has that name, *DecodeError
// when the payload does not match the schema and *ArithmeticError when the
// result overflows.
func (d *Dispatcher) Invoke(name string, payload json.RawMessage) (string, error) {
	r, ok := d.routes[name]
	if !ok {
		return "", &UnknownToolError{Name: name}
	}
	return r.handle(payload)
}

func sum(req SumRequest) (string, error) {
	r, err := addInt32(req.A, req.B)
	if err != nil {
		return "", err
	}
	return strconv.FormatInt(int64(r), 10), nil
}

func sub(req SubRequest) (string, error) {
	r, err := subInt32(req.A, req.B)
	if err != nil {
		return "", err
	}
	return strconv.FormatInt(int64(r), 10), nil
}
