// Package scenario loads batches and order lines from a TOML file for the
// allocate CLI.
//
//	[[batches]]
//	reference = "batch-001"
//	sku = "SMALL-TABLE"
//	qty = 20
//	eta = "2026-10-15"   # omit for stock already on hand
//
//	[[lines]]
//	order_id = "order-001"  # generated when omitted
//	sku = "SMALL-TABLE"
//	qty = 2
package scenario

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"reflect"
	"time"

	"github.com/erp/allocation/internal/domain/allocation"
	"github.com/erp/allocation/internal/domain/shared"
	"github.com/go-viper/mapstructure/v2"
	"github.com/google/uuid"
	"github.com/spf13/viper"
)

// DateLayout is the layout of batch ETAs
const DateLayout = "2006-01-02"

// localDateTimeLayout matches the String form of a TOML local datetime
const localDateTimeLayout = "2006-01-02T15:04:05"

// BatchSpec is one [[batches]] table
type BatchSpec struct {
	Reference string      `mapstructure:"reference"`
	SKU       string      `mapstructure:"sku"`
	Qty       int         `mapstructure:"qty"`
	RawETA    interface{} `mapstructure:"eta"`

	eta *time.Time
}

// ETA returns the parsed ETA, nil for in-stock batches
func (b BatchSpec) ETA() *time.Time {
	return b.eta
}

// LineSpec is one [[lines]] table
type LineSpec struct {
	OrderID string `mapstructure:"order_id"`
	SKU     string `mapstructure:"sku"`
	Qty     int    `mapstructure:"qty"`
}

// Scenario is a validated set of batches and order lines
type Scenario struct {
	BatchSpecs []BatchSpec `mapstructure:"batches"`
	LineSpecs  []LineSpec  `mapstructure:"lines"`
}

// LoadFile reads a scenario from a TOML file
func LoadFile(path string) (*Scenario, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("toml")
	if err := v.ReadInConfig(); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: scenario %s: %w", shared.ErrNotFound, path, err)
		}
		return nil, fmt.Errorf("read scenario %s: %w", path, err)
	}
	return decode(v)
}

// Read reads a scenario from TOML
func Read(r io.Reader) (*Scenario, error) {
	v := viper.New()
	v.SetConfigType("toml")
	if err := v.ReadConfig(r); err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}
	return decode(v)
}

func decode(v *viper.Viper) (*Scenario, error) {
	var s Scenario
	if err := v.Unmarshal(&s, viper.DecodeHook(strictInt())); err != nil {
		return nil, fmt.Errorf("%w: decode scenario: %v", shared.ErrInvalidInput, err)
	}
	if err := s.normalize(); err != nil {
		return nil, err
	}
	return &s, nil
}

// strictInt only lets integer values into int fields, so a quantity of 2.9
// or "3" is an error instead of being truncated or parsed.
func strictInt() mapstructure.DecodeHookFuncType {
	return func(from, to reflect.Type, data interface{}) (interface{}, error) {
		if to.Kind() != reflect.Int {
			return data, nil
		}
		switch from.Kind() {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			return data, nil
		default:
			return nil, fmt.Errorf("want an integer, got %v", data)
		}
	}
}

// normalize validates batches, parses ETAs and fills in missing order IDs.
// Quantities must be integers but their range is not checked.
func (s *Scenario) normalize() error {
	seen := make(map[string]struct{}, len(s.BatchSpecs))
	for i := range s.BatchSpecs {
		b := &s.BatchSpecs[i]
		if b.Reference == "" {
			return fmt.Errorf("%w: batch %d has no reference", shared.ErrInvalidInput, i)
		}
		if _, dup := seen[b.Reference]; dup {
			return fmt.Errorf("%w: duplicate batch reference %q", shared.ErrAlreadyExists, b.Reference)
		}
		seen[b.Reference] = struct{}{}
		if b.SKU == "" {
			return fmt.Errorf("%w: batch %q has no sku", shared.ErrInvalidInput, b.Reference)
		}
		eta, err := parseETA(b.RawETA)
		if err != nil {
			return fmt.Errorf("%w: batch %q: %v", shared.ErrInvalidInput, b.Reference, err)
		}
		b.eta = eta
	}

	for i := range s.LineSpecs {
		l := &s.LineSpecs[i]
		if l.SKU == "" {
			return fmt.Errorf("%w: line %d has no sku", shared.ErrInvalidInput, i)
		}
		if l.OrderID == "" {
			l.OrderID = uuid.NewString()
		}
	}
	return nil
}

// parseETA accepts a "YYYY-MM-DD" string, a TOML local date, local datetime
// or offset datetime, or nothing. Local values are read as UTC.
func parseETA(raw interface{}) (*time.Time, error) {
	switch v := raw.(type) {
	case nil:
		return nil, nil
	case string:
		if v == "" {
			return nil, nil
		}
		t, err := time.Parse(DateLayout, v)
		if err != nil {
			return nil, fmt.Errorf("invalid eta %q: want %s", v, DateLayout)
		}
		return &t, nil
	case time.Time:
		return &v, nil
	case fmt.Stringer:
		str := v.String()
		if t, err := time.Parse(localDateTimeLayout, str); err == nil {
			return &t, nil
		}
		return parseETA(str)
	default:
		return nil, fmt.Errorf("invalid eta %v", raw)
	}
}

// Batches builds fresh domain batches from the scenario
func (s *Scenario) Batches() []*allocation.Batch {
	batches := make([]*allocation.Batch, 0, len(s.BatchSpecs))
	for _, b := range s.BatchSpecs {
		batches = append(batches, allocation.NewBatch(b.Reference, b.SKU, b.Qty, b.ETA()))
	}
	return batches
}

// Lines returns the scenario's order lines in file order
func (s *Scenario) Lines() []allocation.OrderLine {
	lines := make([]allocation.OrderLine, 0, len(s.LineSpecs))
	for _, l := range s.LineSpecs {
		lines = append(lines, allocation.NewOrderLine(l.OrderID, l.SKU, l.Qty))
	}
	return lines
}
