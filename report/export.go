package report

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/iancoleman/orderedmap"
	"github.com/shamaton/msgpack/v2"
	"gopkg.in/yaml.v3"
)

var ErrUnknownFormat = errors.New("unknown report format")

type Format string

const (
	FormatJSON    Format = "json"
	FormatMsgpack Format = "msgpack"
	FormatYAML    Format = "yaml"
)

func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case FormatJSON, FormatMsgpack, FormatYAML:
		return f, nil
	case "yml":
		return FormatYAML, nil
	case "":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnknownFormat, s)
	}
}

func (f Format) ContentType() string {
	switch f {
	case FormatMsgpack:
		return "application/msgpack"
	case FormatYAML:
		return "application/yaml"
	default:
		return "application/json"
	}
}

func (f Format) Extension() string {
	return "." + string(f)
}

// Encode renders r. JSON keeps the field order of the report and prints
// floats with a fractional part so that 2.0 does not read back as an int.
func Encode(r *Report, format Format) ([]byte, error) {
	switch format {
	case FormatJSON:
		return sonic.Marshal(ordered(r))
	case FormatMsgpack:
		return msgpack.Marshal(r)
	case FormatYAML:
		return yaml.Marshal(r)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownFormat, format)
	}
}

func fileName(module string) string {
	name := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '_', r == '-':
			return r
		default:
			return '_'
		}
	}, module)
	if name == "" {
		return "module"
	}
	return name
}

// Write stores r under dir and returns the file path.
func Write(r *Report, dir string, format Format) (string, error) {
	data, err := Encode(r, format)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}
	path := filepath.Join(dir, fileName(r.Module)+".consts"+format.Extension())
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", err
	}
	logger.Debugf("Wrote report %s", path)
	return path, nil
}

type jsonNum struct {
	Raw string
}

func (n jsonNum) MarshalJSON() ([]byte, error) {
	return []byte(n.Raw), nil
}

func makeJSONFloat(f float64, bits int) any {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return strconv.FormatFloat(f, 'g', -1, bits)
	}
	raw := strconv.FormatFloat(f, 'f', -1, bits)
	if !strings.Contains(raw, ".") {
		raw += ".0"
	}
	return jsonNum{Raw: raw}
}

func newMap() *orderedmap.OrderedMap {
	om := orderedmap.New()
	om.SetEscapeHTML(false)
	return om
}

func ordered(r *Report) *orderedmap.OrderedMap {
	om := newMap()
	om.Set("module", r.Module)
	om.Set("version", r.Version)
	om.Set("transform", r.Transform)
	om.Set("resource", r.Resource)
	om.Set("resolved", r.Resolved)
	om.Set("failed", r.Failed)

	routines := make([]any, 0, len(r.Routines))
	for _, rt := range r.Routines {
		m := newMap()
		m.Set("token", fmt.Sprintf("0x%08X", rt.Token))
		m.Set("name", rt.Name)
		if rt.Keys != nil {
			k := newMap()
			for i, v := range []uint32{rt.Keys.Key0, rt.Keys.Key1, rt.Keys.Key2, rt.Keys.Key3, rt.Keys.Key4, rt.Keys.Key5} {
				k.Set(fmt.Sprintf("key%d", i), fmt.Sprintf("0x%08X", v))
			}
			if len(rt.Keys.Salt) > 0 {
				k.Set("salt", fmt.Sprintf("%x", rt.Keys.Salt))
			}
			m.Set("keys", k)
		}
		if rt.Error != "" {
			m.Set("error", rt.Error)
		}
		routines = append(routines, m)
	}
	om.Set("routines", routines)

	sites := make([]any, 0, len(r.Sites))
	for _, s := range r.Sites {
		m := newMap()
		m.Set("caller", s.Caller)
		m.Set("index", s.Index)
		m.Set("routine", fmt.Sprintf("0x%08X", s.Routine))
		m.Set("arg0", s.Arg0)
		m.Set("arg1", s.Arg1)
		if s.Error != "" {
			m.Set("error", s.Error)
		} else {
			m.Set("type", s.Type)
			m.Set("value", jsonValue(s.Value))
		}
		sites = append(sites, m)
	}
	om.Set("sites", sites)
	return om
}

func jsonValue(v any) any {
	switch x := v.(type) {
	case float32:
		return makeJSONFloat(float64(x), 32)
	case float64:
		return makeJSONFloat(x, 64)
	default:
		return v
	}
}
