package trafficlight

import (
	"fmt"
	"strings"
)

// Phase is the state of a traffic light.
type Phase uint8

const (
	Red Phase = iota
	Green
)

func (p Phase) String() string {
	switch p {
	case Red:
		return "red"
	case Green:
		return "green"
	default:
		return fmt.Sprintf("Phase(%d)", uint8(p))
	}
}

// Toggle returns the phase that follows p.
func (p Phase) Toggle() Phase {
	if p == Green {
		return Red
	}
	return Green
}

// ParsePhase is the inverse of Phase.String. It is case insensitive.
func ParsePhase(s string) (Phase, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "red":
		return Red, nil
	case "green":
		return Green, nil
	}
	return Red, fmt.Errorf("unknown phase %q", s)
}

func (p Phase) MarshalText() ([]byte, error) {
	if p != Red && p != Green {
		return nil, fmt.Errorf("invalid phase %d", uint8(p))
	}
	return []byte(p.String()), nil
}

func (p *Phase) UnmarshalText(text []byte) error {
	v, err := ParsePhase(string(text))
	if err != nil {
		return err
	}
	*p = v
	return nil
}
