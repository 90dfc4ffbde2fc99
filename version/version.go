// Package version enumerates the protector revisions whose constants
// encryption is understood.
package version

import (
	"errors"
	"fmt"
)

// ErrUnreachable means an epoch/mode pair has no defined transform. It is a
// classifier defect and is never recovered from.
var ErrUnreachable = errors.New("unreachable version combination")

// Epoch is the protector revision that generated the decrypt routine.
type Epoch int

const (
	R74708 Epoch = iota + 1
	R74788
	R74816
	R75056
)

func (e Epoch) String() string {
	switch e {
	case R74708:
		return "r74708"
	case R74788:
		return "r74788"
	case R74816:
		return "r74816"
	case R75056:
		return "r75056"
	default:
		return fmt.Sprintf("epoch(%d)", int(e))
	}
}

// Mode is the sub-mode selected when the module was protected.
type Mode int

const (
	Normal Mode = iota + 1
	Dynamic
	Native
)

func (m Mode) String() string {
	switch m {
	case Normal:
		return "normal"
	case Dynamic:
		return "dynamic"
	case Native:
		return "native"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// Version is the tag assigned once per target module.
type Version int

const (
	Unknown Version = iota
	V17R74708Normal
	V17R74708Dynamic
	V17R74708Native
	V17R74788Normal
	V17R74788Dynamic
	V17R74788Native
	V17R74816Normal
	V17R74816Dynamic
	V17R74816Native
	V17R75056Normal
	V17R75056Dynamic
	V17R75056Native
)

type pair struct {
	epoch Epoch
	mode  Mode
}

var table = map[Version]pair{
	V17R74708Normal:  {R74708, Normal},
	V17R74708Dynamic: {R74708, Dynamic},
	V17R74708Native:  {R74708, Native},
	V17R74788Normal:  {R74788, Normal},
	V17R74788Dynamic: {R74788, Dynamic},
	V17R74788Native:  {R74788, Native},
	V17R74816Normal:  {R74816, Normal},
	V17R74816Dynamic: {R74816, Dynamic},
	V17R74816Native:  {R74816, Native},
	V17R75056Normal:  {R75056, Normal},
	V17R75056Dynamic: {R75056, Dynamic},
	V17R75056Native:  {R75056, Native},
}

// All lists every known version in declaration order.
func All() []Version {
	all := make([]Version, 0, len(table))
	for v := V17R74708Normal; v <= V17R75056Native; v++ {
		all = append(all, v)
	}
	return all
}

// Compose returns the single tag for an epoch and mode.
func Compose(epoch Epoch, mode Mode) (Version, error) {
	for v, p := range table {
		if p.epoch == epoch && p.mode == mode {
			return v, nil
		}
	}
	return Unknown, fmt.Errorf("%s/%s: %w", epoch, mode, ErrUnreachable)
}

func (v Version) Epoch() Epoch {
	return table[v].epoch
}

func (v Version) Mode() Mode {
	return table[v].mode
}

func (v Version) Valid() bool {
	_, ok := table[v]
	return ok
}

// HasKey5 reports whether the decrypt routine carries key5 and the derived
// signature blob salt. Both were introduced with r74788.
func (v Version) HasKey5() bool {
	return v.Valid() && v.Epoch() >= R74788
}

func (v Version) String() string {
	p, ok := table[v]
	if !ok {
		return "unknown"
	}
	return fmt.Sprintf("v17_%s_%s", p.epoch, p.mode)
}

func Parse(s string) (Version, error) {
	for _, v := range All() {
		if v.String() == s {
			return v, nil
		}
	}
	return Unknown, fmt.Errorf("invalid version: %s", s)
}
