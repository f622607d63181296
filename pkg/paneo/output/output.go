// Package output provides formatters for displaying paneo command results
// (jobs, directory listings, roots) in various output formats
// (pretty, plain, json, yaml, etc.).
//
// A Result is a table: a title, column headers and string rows for the text
// formats, plus the original value in Data for the structured formats.
//
// The package uses a registry pattern so formatters can be selected at
// runtime by name.
//
// Basic usage:
//
//	formatter, err := output.Get("pretty")
//	if err != nil {
//	    return err
//	}
//	var buf bytes.Buffer
//	if err := formatter.Format(&buf, result); err != nil {
//	    return err
//	}
//	fmt.Print(buf.String())
package output

import (
	"bytes"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// DefaultFormat is the formatter used when none is selected.
const DefaultFormat = "pretty"

// Result contains the complete output data for formatting.
type Result struct {
	// Title names what is shown, e.g. "Copy jobs".
	Title string

	// Source describes where the data came from, e.g. "media:/photos".
	Source string

	// Columns are the table headers.
	Columns []string

	// Rows hold one string cell per column.
	Rows [][]string

	// Data is the value encoded by the structured formats. When nil they
	// encode the rows as objects keyed by column.
	Data any

	// Summary is shown below the table by the pretty formatter.
	Summary []string

	// Warnings contains any warning messages.
	Warnings []string
}

// NewResult creates a Result with the given title and columns.
func NewResult(title string, columns ...string) *Result {
	return &Result{Title: title, Columns: columns}
}

// AddRow appends a row. Missing cells are left empty; extra cells are dropped.
func (r *Result) AddRow(cells ...string) {
	row := make([]string, len(r.Columns))
	copy(row, cells)
	r.Rows = append(r.Rows, row)
}

// records returns the rows as column-keyed maps.
func (r *Result) records() []map[string]string {
	out := make([]map[string]string, len(r.Rows))
	for i, row := range r.Rows {
		rec := make(map[string]string, len(r.Columns))
		for j, col := range r.Columns {
			rec[strings.ToLower(col)] = row[j]
		}
		out[i] = rec
	}
	return out
}

// structured returns the value the JSON and YAML formatters encode.
func (r *Result) structured() any {
	if r.Data != nil {
		return r.Data
	}
	return r.records()
}

// Formatter is the interface that all output formatters must implement.
type Formatter interface {
	// Format writes the formatted output to the buffer.
	// It returns an error if formatting fails.
	Format(w *bytes.Buffer, r *Result) error
}

// FormatterFactory is a function that creates a new Formatter instance.
type FormatterFactory func() Formatter

// Registry manages formatter registration and lookup.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]FormatterFactory
}

// NewRegistry creates a new formatter registry.
func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]FormatterFactory),
	}
}

// Register adds a formatter factory to the registry.
// It will replace any existing formatter with the same name.
func (r *Registry) Register(name string, factory FormatterFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = factory
}

// Get returns a new formatter instance by name.
// It returns an error if the formatter is not found.
func (r *Registry) Get(name string) (Formatter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	factory, ok := r.factories[name]
	if !ok {
		return nil, fmt.Errorf("unknown formatter: %s", name)
	}
	return factory(), nil
}

// Available returns a sorted list of all registered formatter names.
func (r *Registry) Available() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DefaultRegistry is the global formatter registry.
var DefaultRegistry = NewRegistry()

// Register adds a formatter factory to the default registry.
func Register(name string, factory FormatterFactory) {
	DefaultRegistry.Register(name, factory)
}

// Get returns a new formatter instance from the default registry.
func Get(name string) (Formatter, error) {
	return DefaultRegistry.Get(name)
}

// Available returns all formatter names from the default registry.
func Available() []string {
	return DefaultRegistry.Available()
}
