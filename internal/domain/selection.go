package domain

import (
	"bytes"
	"encoding/json"
)

// Selection is the option picked for one question, or nothing.
// It encodes as a JSON integer, or null when unanswered.
type Selection struct {
	index int
	set   bool
}

// Pick selects the option at index i.
func Pick(i int) Selection {
	return Selection{index: i, set: true}
}

// Unanswered is a question left blank.
func Unanswered() Selection {
	return Selection{}
}

// Picks builds a selection sequence where every question is answered.
func Picks(indexes ...int) []Selection {
	out := make([]Selection, len(indexes))
	for i, idx := range indexes {
		out[i] = Pick(idx)
	}
	return out
}

// Index returns the picked option and whether one was picked.
func (s Selection) Index() (int, bool) {
	return s.index, s.set
}

func (s Selection) MarshalJSON() ([]byte, error) {
	if !s.set {
		return []byte("null"), nil
	}
	return json.Marshal(s.index)
}

func (s *Selection) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*s = Unanswered()
		return nil
	}
	var idx int
	if err := json.Unmarshal(data, &idx); err != nil {
		return err
	}
	*s = Pick(idx)
	return nil
}
