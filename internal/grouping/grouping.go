// Package grouping partitions API paths into named client surfaces by tag.
package grouping

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/mark3labs/refitgen/internal/spec"
)

// ErrConfiguration marks invalid generator settings.
var ErrConfiguration = errors.New("configuration error")

// DefaultGroup collects paths whose first operation carries no tags.
const DefaultGroup = "Default"

type Strategy string

const (
	FirstTag       Strategy = "first-tag"
	MostCommonTag  Strategy = "most-common-tag"
	LeastCommonTag Strategy = "least-common-tag"
)

// Strategies lists the supported values in display order.
var Strategies = []Strategy{FirstTag, MostCommonTag, LeastCommonTag}

// ParseStrategy accepts the canonical names plus their case and
// separator variants ("FirstTag", "most_common_tag").
func ParseStrategy(s string) (Strategy, error) {
	key := strings.NewReplacer("-", "", "_", "", " ", "").Replace(strings.ToLower(strings.TrimSpace(s)))
	for _, st := range Strategies {
		if strings.ReplaceAll(string(st), "-", "") == key {
			return st, nil
		}
	}
	return "", fmt.Errorf("%w: unsupported grouping strategy %q (allowed: first-tag, most-common-tag, least-common-tag)", ErrConfiguration, s)
}

// Group is one API surface: a tag key and the paths assigned to it.
type Group struct {
	Key   string
	Paths []spec.PathItem
}

// Partition assigns every path to exactly one group. A path's group is
// decided by its first operation only. Groups appear in the order their key
// is first produced.
func Partition(paths []spec.PathItem, strategy Strategy) ([]Group, error) {
	var pick func(tags []string) string
	switch strategy {
	case FirstTag:
		pick = func(tags []string) string { return tags[0] }
	case MostCommonTag, LeastCommonTag:
		freq := tagFrequency(paths)
		most := strategy == MostCommonTag
		pick = func(tags []string) string {
			sorted := append([]string(nil), tags...)
			sort.SliceStable(sorted, func(i, j int) bool { return freq[sorted[i]] < freq[sorted[j]] })
			if most {
				return sorted[len(sorted)-1]
			}
			return sorted[0]
		}
	default:
		return nil, fmt.Errorf("%w: unsupported grouping strategy %q", ErrConfiguration, strategy)
	}

	var groups []Group
	index := map[string]int{}
	for _, p := range paths {
		key := DefaultGroup
		if len(p.Operations) > 0 && len(p.Operations[0].Tags) > 0 {
			key = pick(p.Operations[0].Tags)
		}
		i, ok := index[key]
		if !ok {
			i = len(groups)
			index[key] = i
			groups = append(groups, Group{Key: key})
		}
		groups[i].Paths = append(groups[i].Paths, p)
	}
	return groups, nil
}

// tagFrequency counts every tag of every operation in the document.
func tagFrequency(paths []spec.PathItem) map[string]int {
	freq := map[string]int{}
	for _, p := range paths {
		for _, op := range p.Operations {
			for _, t := range op.Tags {
				freq[t]++
			}
		}
	}
	return freq
}
