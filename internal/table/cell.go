package table

import (
	"encoding/json"
	"math"
	"strconv"
)

type cellState uint8

const (
	stateMissing cellState = iota
	stateText
	stateNumber
)

// Cell is a single value: missing, text or number. The zero value is
// Missing, which is distinct from Text("") and Number(0).
type Cell struct {
	state cellState
	text  string
	num   float64
}

// Missing returns the missing-value marker.
func Missing() Cell { return Cell{} }

// Text returns a text cell.
func Text(s string) Cell { return Cell{state: stateText, text: s} }

// Number returns a numeric cell.
func Number(f float64) Cell { return Cell{state: stateNumber, num: f} }

func (c Cell) IsMissing() bool { return c.state == stateMissing }
func (c Cell) IsText() bool    { return c.state == stateText }
func (c Cell) IsNumber() bool  { return c.state == stateNumber }

// Text returns the text payload and whether the cell is text.
func (c Cell) Text() (string, bool) { return c.text, c.state == stateText }

// Number returns the numeric payload and whether the cell is a number.
func (c Cell) Number() (float64, bool) { return c.num, c.state == stateNumber }

// String is a kind-agnostic projection, used for logs and debugging.
func (c Cell) String() string {
	switch c.state {
	case stateText:
		return c.text
	case stateNumber:
		return strconv.FormatFloat(c.num, 'f', -1, 64)
	}
	return ""
}

// MarshalJSON encodes Missing as null, text as a string and numbers as JSON
// numbers. Non-finite numbers have no JSON form and are written as strings.
func (c Cell) MarshalJSON() ([]byte, error) {
	switch c.state {
	case stateText:
		return json.Marshal(c.text)
	case stateNumber:
		if math.IsNaN(c.num) || math.IsInf(c.num, 0) {
			return json.Marshal(c.String())
		}
		return json.Marshal(c.num)
	}
	return []byte("null"), nil
}

// UnmarshalJSON is the inverse of MarshalJSON.
func (c *Cell) UnmarshalJSON(b []byte) error {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	switch x := v.(type) {
	case nil:
		*c = Missing()
	case string:
		*c = Text(x)
	case float64:
		*c = Number(x)
	default:
		*c = Text(string(b))
	}
	return nil
}

// MarshalYAML mirrors MarshalJSON for yaml.v3.
func (c Cell) MarshalYAML() (any, error) {
	switch c.state {
	case stateText:
		return c.text, nil
	case stateNumber:
		return c.num, nil
	}
	return nil, nil
}
