package ledger

import (
	"strconv"
	"strings"
	"time"
)

// Kind tags the representation a cell arrived in.
type Kind int

const (
	KindEmpty Kind = iota
	KindText
	KindNumber
	KindTime
)

func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindNumber:
		return "number"
	case KindTime:
		return "time"
	default:
		return "empty"
	}
}

// Value is one loosely typed cell. The zero Value is empty.
type Value struct {
	kind Kind
	text string
	num  float64
	t    time.Time
}

// Text returns a text cell; blank strings become Empty.
func Text(s string) Value {
	if strings.TrimSpace(s) == "" {
		return Value{}
	}
	return Value{kind: KindText, text: s}
}

func Number(f float64) Value {
	return Value{kind: KindNumber, num: f}
}

func Time(t time.Time) Value {
	if t.IsZero() {
		return Value{}
	}
	return Value{kind: KindTime, t: t}
}

func Empty() Value {
	return Value{}
}

func (v Value) Kind() Kind {
	return v.kind
}

func (v Value) IsEmpty() bool {
	return v.kind == KindEmpty
}

// Float returns the numeric payload of a Number cell.
func (v Value) Float() (float64, bool) {
	return v.num, v.kind == KindNumber
}

// TimeValue returns the payload of a Time cell.
func (v Value) TimeValue() (time.Time, bool) {
	return v.t, v.kind == KindTime
}

// String renders the cell the way a spreadsheet would show it in plain form.
func (v Value) String() string {
	switch v.kind {
	case KindText:
		return v.text
	case KindNumber:
		return strconv.FormatFloat(v.num, 'f', -1, 64)
	case KindTime:
		if v.t.Hour() == 0 && v.t.Minute() == 0 && v.t.Second() == 0 {
			return v.t.Format("2006-01-02")
		}
		return v.t.Format("2006-01-02 15:04:05")
	default:
		return ""
	}
}

// Interface returns the cell as a plain Go value for adapters that write
// untyped cells: string, float64, time.Time or nil.
func (v Value) Interface() any {
	switch v.kind {
	case KindText:
		return v.text
	case KindNumber:
		return v.num
	case KindTime:
		return v.t
	default:
		return nil
	}
}
