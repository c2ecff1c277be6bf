package compiler

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/mark3labs/refitgen/internal/grouping"
)

// ErrConfiguration marks invalid generator settings.
var ErrConfiguration = grouping.ErrConfiguration

// DefaultAffix disambiguates a field whose name matches its enclosing type.
const DefaultAffix = "Prop"

// Markers prefixed to identifiers that are not legal in the target.
const (
	FieldMarker = "Field"
	ParamMarker = "param"
	TypeMarker  = "Model"
)

type AffixPosition int

const (
	AffixPrefix AffixPosition = iota
	AffixSuffix
)

type Options struct {
	Grouping            grouping.Strategy
	IgnoreAllHeaders    bool
	IgnoredHeaders      []string
	OptionalNullDefault bool
	Affix               string
	AffixPosition       AffixPosition
	// StrictNames turns a name collision between two different schemas into
	// a NameCollisionError instead of last-write-wins.
	StrictNames bool
	// Reserved reports target keywords that cannot be used as field or
	// parameter identifiers.
	Reserved func(string) bool
	// ReservedTypes reports type names the target already declares.
	ReservedTypes func(string) bool
	Logger        *slog.Logger
}

func (o Options) withDefaults() Options {
	if o.Grouping == "" {
		o.Grouping = grouping.FirstTag
	}
	if o.Affix == "" {
		o.Affix = DefaultAffix
	}
	if o.Reserved == nil {
		o.Reserved = func(string) bool { return false }
	}
	if o.ReservedTypes == nil {
		o.ReservedTypes = func(string) bool { return false }
	}
	if o.Logger == nil {
		o.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return o
}

func (o Options) applyAffix(ident string) string {
	if o.AffixPosition == AffixSuffix {
		return ident + o.Affix
	}
	return o.Affix + ident
}

func (o Options) headerIgnored(name string) bool {
	if o.IgnoreAllHeaders {
		return true
	}
	for _, h := range o.IgnoredHeaders {
		if strings.EqualFold(strings.TrimSpace(h), name) {
			return true
		}
	}
	return false
}

// NameCollisionError reports two distinct schemas materialized under one name.
type NameCollisionError struct {
	Name string
}

func (e *NameCollisionError) Error() string {
	return fmt.Sprintf("compiler: type name %q produced by more than one schema", e.Name)
}
