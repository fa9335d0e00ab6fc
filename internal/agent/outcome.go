package agent

import "fmt"

type Outcome int8

const (
	Playing Outcome = iota
	Won
	Lost
	Exhausted
	Aborted
)

var outcomeNames = [...]string{
	Playing:   "playing",
	Won:       "won",
	Lost:      "lost",
	Exhausted: "exhausted",
	Aborted:   "aborted",
}

func (o Outcome) String() string {
	if 0 <= o && int(o) < len(outcomeNames) {
		return outcomeNames[o]
	}
	return fmt.Sprintf("Outcome(%d)", int8(o))
}

func ParseOutcome(s string) (Outcome, error) {
	for i, name := range outcomeNames {
		if name == s {
			return Outcome(i), nil
		}
	}
	return 0, fmt.Errorf("unknown outcome %q", s)
}

// [Outcome] implements [encoding.TextMarshaler]
func (o Outcome) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

func (o *Outcome) UnmarshalText(text []byte) error {
	v, err := ParseOutcome(string(text))
	if err != nil {
		return err
	}
	*o = v
	return nil
}
