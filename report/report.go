// Package report scans a module for protected constant loads, resolves them
// and exports the result.
package report

import (
	"fmt"
	"sort"

	"haruki-const-decrypter/decrypter"
	"haruki-const-decrypter/il"
	"haruki-const-decrypter/keys"
	"haruki-const-decrypter/matcher"
	"haruki-const-decrypter/pool"
	harukiLogger "haruki-const-decrypter/utils/logger"
)

var logger = harukiLogger.NewLogger("ConstantsReport", "INFO", nil)

// Site is one "ldc a0; ldc a1; call routine" load and what it resolves to.
type Site struct {
	Caller  string `json:"caller" msgpack:"caller" yaml:"caller"`
	Index   int    `json:"index" msgpack:"index" yaml:"index"`
	Routine uint32 `json:"routine" msgpack:"routine" yaml:"routine"`
	Arg0    uint32 `json:"arg0" msgpack:"arg0" yaml:"arg0"`
	Arg1    uint32 `json:"arg1" msgpack:"arg1" yaml:"arg1"`
	Type    string `json:"type,omitempty" msgpack:"type,omitempty" yaml:"type,omitempty"`
	Value   any    `json:"value,omitempty" msgpack:"value,omitempty" yaml:"value,omitempty"`
	Error   string `json:"error,omitempty" msgpack:"error,omitempty" yaml:"error,omitempty"`
}

type Routine struct {
	Token uint32       `json:"token" msgpack:"token" yaml:"token"`
	Name  string       `json:"name" msgpack:"name" yaml:"name"`
	Keys  *keys.Bundle `json:"keys,omitempty" msgpack:"keys,omitempty" yaml:"keys,omitempty"`
	Error string       `json:"error,omitempty" msgpack:"error,omitempty" yaml:"error,omitempty"`
}

type Report struct {
	Module    string    `json:"module" msgpack:"module" yaml:"module"`
	Version   string    `json:"version" msgpack:"version" yaml:"version"`
	Transform string    `json:"transform" msgpack:"transform" yaml:"transform"`
	Resource  string    `json:"resource" msgpack:"resource" yaml:"resource"`
	Resolved  int       `json:"resolved" msgpack:"resolved" yaml:"resolved"`
	Failed    int       `json:"failed" msgpack:"failed" yaml:"failed"`
	Routines  []Routine `json:"routines" msgpack:"routines" yaml:"routines"`
	Sites     []Site    `json:"sites" msgpack:"sites" yaml:"sites"`
}

// Scan walks every method body of an initialized decrypter's module.
func Scan(d *decrypter.ConstantsDecrypter) *Report {
	module := d.Module()
	version := d.Version()
	r := &Report{
		Module:    module.Name,
		Version:   version.String(),
		Transform: decrypter.TransformName(version),
		Resource:  d.ResourceName(),
	}
	r.Routines = Routines(d)

	for _, t := range module.Types {
		for _, m := range t.Methods {
			r.Sites = append(r.Sites, scanMethod(d, module, m)...)
		}
	}
	for _, s := range r.Sites {
		if s.Error != "" {
			r.Failed++
		} else {
			r.Resolved++
		}
	}
	logger.Infof("%s: %d constants resolved, %d failed", module.Name, r.Resolved, r.Failed)
	return r
}

// Routines lists the usable decrypt routines followed by the unusable ones,
// each group ordered by token.
func Routines(d *decrypter.ConstantsDecrypter) []Routine {
	var list []Routine
	for _, info := range d.Infos() {
		b := info.Keys
		list = append(list, Routine{Token: info.Token(), Name: info.Method.FullName(), Keys: &b})
	}
	failed := d.RoutineErrors()
	tokens := make([]uint32, 0, len(failed))
	for token := range failed {
		tokens = append(tokens, token)
	}
	sort.Slice(tokens, func(i, j int) bool { return tokens[i] < tokens[j] })
	for _, token := range tokens {
		r := Routine{Token: token, Error: failed[token].Error()}
		if m := d.Module().Method(token); m != nil {
			r.Name = m.FullName()
		}
		list = append(list, r)
	}
	return list
}

func scanMethod(d *decrypter.ConstantsDecrypter, module *il.Module, m *il.MethodDef) []Site {
	var sites []Site
	s := m.Stream()
	for i := 0; ; {
		match, ok := matcher.ConstCall.Find(s, i)
		if !ok {
			break
		}
		i = match.End
		target := module.ResolveMethod(s.At(match.End - 1).Method)
		if target == nil || !d.IsRoutine(target.Token) {
			continue
		}
		site := Site{
			Caller:  m.FullName(),
			Index:   match.Start,
			Routine: target.Token,
			Arg0:    match.Values[0],
			Arg1:    match.Values[1],
		}
		c, err := d.Resolve(site.Routine, site.Arg0, site.Arg1)
		if err != nil {
			logger.Debugf("%s+%d: %v", site.Caller, site.Index, err)
			site.Error = err.Error()
		} else {
			site.Type = c.Type
			site.Value = c.Value
		}
		sites = append(sites, site)
	}
	return sites
}

// Only drops resolved sites whose constant is not one of types and recounts.
// Failed sites have no known type and are kept.
func (r *Report) Only(types ...pool.TypeCode) {
	if len(types) == 0 {
		return
	}
	keep := make(map[string]bool, len(types))
	for _, tc := range types {
		keep[tc.String()] = true
	}
	sites := r.Sites[:0]
	r.Resolved = 0
	for _, s := range r.Sites {
		if s.Error != "" {
			sites = append(sites, s)
			continue
		}
		if keep[s.Type] {
			sites = append(sites, s)
			r.Resolved++
		}
	}
	r.Sites = sites
}

func (s Site) String() string {
	if s.Error != "" {
		return fmt.Sprintf("%s+%d: error: %s", s.Caller, s.Index, s.Error)
	}
	return fmt.Sprintf("%s+%d: %s %v", s.Caller, s.Index, s.Type, s.Value)
}
