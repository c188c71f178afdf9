package ptypes

import (
	"encoding/hex"
	"fmt"
	"io"
	"strconv"
	"strings"
)

const summaryBytes = 16

// Summary renders the instance's value on one line.
func (i *Instance) Summary() string {
	if fn := i.shape.base().summary; fn != nil {
		return fn(i)
	}
	if i.state == StateEmpty {
		return "???"
	}
	switch s := i.shape.(type) {
	case *Atom:
		return i.atomSummary(s)
	case *Struct:
		parts := make([]string, 0, len(i.items))
		for _, c := range i.items {
			if c.Kind() == KindContainer && c.Len() > 0 {
				parts = append(parts, c.name+"={...}")
				continue
			}
			parts = append(parts, c.name+"="+c.Summary())
		}
		return strings.Join(parts, " ")
	case *Array:
		if a, ok := s.elem.(*Atom); ok && a.format == formatUint && a.length == 1 {
			return strconv.Quote(string(i.Bytes()))
		}
		if len(i.items) > 8 {
			return fmt.Sprintf("length=%d", len(i.items))
		}
		parts := make([]string, len(i.items))
		for k, c := range i.items {
			parts[k] = c.Summary()
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case *Union:
		return hexSummary(i.data)
	case *Partial:
		if len(i.items) == 0 {
			return hexSummary(i.data)
		}
		return i.items[0].Summary()
	case *Bits:
		return fmt.Sprintf("%s (%d, %d)", i.bits.Hex(), i.bits.Value(), i.bits.Width())
	case *BitStruct:
		if s.flags {
			return "{" + strings.Join(i.Flags(), "|") + "}"
		}
		parts := make([]string, len(i.items))
		for k, c := range i.items {
			if c.Kind() == KindBitContainer {
				parts[k] = c.name + "={...}"
				continue
			}
			parts[k] = fmt.Sprintf("%s=%d", c.name, c.Bitmap().Value())
		}
		return strings.Join(parts, " ")
	case *BitArray:
		parts := make([]string, len(i.items))
		for k, c := range i.items {
			parts[k] = c.Bitmap().Value().String()
		}
		return "[" + strings.Join(parts, ",") + "]"
	case *Pointer:
		addr, err := i.Address()
		if err != nil {
			return fmt.Sprintf("*??? (%#x)", i.Uint())
		}
		return fmt.Sprintf("*%#x", addr)
	case *Encoded:
		if len(i.items) == 0 {
			return "???"
		}
		return i.items[0].Summary()
	}
	return ""
}

func (i *Instance) atomSummary(s *Atom) string {
	switch s.format {
	case formatUint:
		v := i.Big()
		t := v.Text(16)
		if pad := len(i.data)*2 - len(t); pad > 0 {
			t = strings.Repeat("0", pad) + t
		}
		return fmt.Sprintf("0x%s (%s)", t, v)
	case formatInt:
		return fmt.Sprintf("%d", i.Int())
	case formatChars:
		return strconv.Quote(i.Str())
	case formatUUID:
		if id, err := i.UUID(); err == nil {
			return "{" + id.String() + "}"
		}
	}
	return hexSummary(i.data)
}

func hexSummary(b []byte) string {
	if len(b) > summaryBytes {
		return hex.EncodeToString(b[:summaryBytes]) + "..."
	}
	return hex.EncodeToString(b)
}

// String renders "<type> path at offset: summary".
func (i *Instance) String() string {
	return fmt.Sprintf("<%s> %s at %#x: %s", i.shape.Name(), i.Path(), i.Offset(), i.Summary())
}

// Tree writes the instance and its descendants, one per line, down to
// depth levels (negative for all).
func (i *Instance) Tree(w io.Writer, depth int) error {
	return i.tree(w, 0, depth)
}

func (i *Instance) tree(w io.Writer, level, depth int) error {
	indent := strings.Repeat("  ", level)
	line := fmt.Sprintf("%s[%#x] %s <%s>", indent, i.Offset(), i.name, i.shape.Name())
	if i.inBitDomain() {
		line = fmt.Sprintf("%s[%#x.%d] %s <%s>", indent, i.Offset(), i.bitpos%8, i.name, i.shape.Name())
	}
	leaf := len(i.items) == 0 || (depth >= 0 && level >= depth)
	if leaf || i.Kind() != KindContainer && i.Kind() != KindBitContainer {
		line += " " + i.Summary()
	}
	if i.state != StateInitialized {
		line += " (" + i.state.String() + ")"
	}
	if _, err := fmt.Fprintln(w, line); err != nil {
		return err
	}
	for _, e := range i.issues {
		if _, err := fmt.Fprintf(w, "%s  ! %v\n", indent, e); err != nil {
			return err
		}
	}
	if depth >= 0 && level >= depth {
		return nil
	}
	switch i.shape.(type) {
	case *Pointer, *Encoded, *Partial:
		return nil
	}
	for _, c := range i.items {
		if err := c.tree(w, level+1, depth); err != nil {
			return err
		}
	}
	return nil
}
