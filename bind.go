// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package hwverify

import (
	"reflect"
	"strconv"
	"strings"

	"github.com/db47h/hwverify/internal/pinmap"
	"github.com/pkg/errors"
)

var signalType = reflect.TypeOf((*Signal)(nil))

// Port describes a port field of a struct bound with Bind.
//
type Port struct {
	Field  string
	Name   string // port name, before connection mapping
	Signal string // signal name
	Out    bool   // true if the binder drives the signal
	Width  uint
}

// Bind binds the *Signal fields of the struct pointed to by v to signals of
// s. Port fields are identified by field tags.
//
// The field tag must be `hw:"in"` or `hw:"out"` to identify ports sampled or
// driven by the owner of v. By default, the port name is the field name in
// lowercase and the port is 1 bit wide. A specific port name and width can be
// forced by adding them in the tag: `hw:"in,port_name,32"`.
//
// The conns connection string maps port names to signal names (see package
// pinmap). Ports not listed in conns are connected to the signal of the same
// name.
//
// Bind fails if a signal is driven by more than one binder, if conns
// references an unknown port or if a signal already exists with a different
// width.
//
func Bind(s *Sim, v interface{}, conns string) ([]Port, error) {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Ptr || rv.Elem().Kind() != reflect.Struct {
		return nil, errors.Errorf("Bind: unsupported type %T", v)
	}
	e := rv.Elem()
	typ := e.Type()
	owner := typ.Name()

	cm, err := pinmap.Map(conns)
	if err != nil {
		return nil, errors.Wrap(err, owner)
	}

	ports, err := portList(typ)
	if err != nil {
		return nil, err
	}
	known := make(map[string]bool, len(ports))
	for i := range ports {
		p := &ports[i]
		known[p.Name] = true
		if sn, ok := cm[p.Name]; ok {
			p.Signal = sn
		}
	}
	for k := range cm {
		if !known[k] {
			return nil, errors.New("invalid port name " + k + " for " + owner)
		}
	}

	// check everything before allocating anything.
	drv := make(map[string]string)
	for _, p := range ports {
		if p.Out {
			if d, ok := drv[p.Signal]; ok {
				return nil, errors.Errorf("%s.%s: signal %s already driven by %s", owner, p.Field, p.Signal, d)
			}
			drv[p.Signal] = owner + "." + p.Field
		}
		if sig, ok := s.sigs[p.Signal]; ok {
			if sig.width != p.Width {
				return nil, errors.Errorf("%s.%s: signal %s is %d bits wide, port is %d bits", owner, p.Field, p.Signal, sig.width, p.Width)
			}
			if d, ok := s.drv[sig]; ok && p.Out {
				return nil, errors.Errorf("%s.%s: signal %s already driven by %s", owner, p.Field, p.Signal, d)
			}
		}
	}
	for _, p := range ports {
		sig := s.Signal(p.Signal, p.Width)
		if p.Out {
			s.drv[sig] = owner + "." + p.Field
		}
		e.FieldByName(p.Field).Set(reflect.ValueOf(sig))
	}
	return ports, nil
}

// MustBind is like Bind but panics on error.
//
func MustBind(s *Sim, v interface{}, conns string) {
	if _, err := Bind(s, v, conns); err != nil {
		panic(err)
	}
}

func portList(typ reflect.Type) ([]Port, error) {
	var ports []Port
	n := typ.NumField()
	for i := 0; i < n; i++ {
		f := typ.Field(i)
		tag, ok := f.Tag.Lookup("hw")
		if !ok {
			continue
		}
		if f.Type != signalType {
			return nil, errors.Errorf("unsupported type %q for field %q in %q", f.Type, f.Name, typ.Name())
		}
		p := Port{Field: f.Name, Name: strings.ToLower(f.Name), Width: 1}
		tv := strings.Split(tag, ",")
		switch len(tv) {
		case 3:
			w, err := strconv.ParseUint(tv[2], 10, 8)
			if err != nil || w == 0 || w > 64 {
				return nil, errors.Errorf("invalid width in tag %q for field %q in %q", tag, f.Name, typ.Name())
			}
			p.Width = uint(w)
			fallthrough
		case 2:
			if tv[1] != "" {
				p.Name = tv[1]
			}
			fallthrough
		case 1:
			switch tv[0] {
			case "in":
			case "out":
				p.Out = true
			default:
				return nil, errors.Errorf("unsupported tag %q for field %q in %q", tag, f.Name, typ.Name())
			}
		default:
			return nil, errors.Errorf("unsupported tag %q for field %q in %q", tag, f.Name, typ.Name())
		}
		p.Signal = p.Name
		ports = append(ports, p)
	}
	return ports, nil
}
