package board

import (
	"encoding/json"
	"strings"
)

// Stage groups consecutive spaces into the phases of a bill's passage.
type Stage string

const (
	StageStart          Stage = "start"
	StageEarly          Stage = "early"
	StageCommons        Stage = "commons"
	StageLords          Stage = "lords"
	StageImplementation Stage = "implementation"
	StageEnd            Stage = "end"
)

// StageOrder is the fixed progression used by relative moves such as pingpong.
var StageOrder = []Stage{StageStart, StageEarly, StageCommons, StageLords, StageImplementation, StageEnd}

// ParseStage matches s case-insensitively against the known stages.
func ParseStage(s string) (Stage, bool) {
	st := Stage(strings.ToLower(strings.TrimSpace(s)))
	return st, st.Valid()
}

// Valid reports whether st is one of StageOrder.
func (st Stage) Valid() bool {
	return st.order() >= 0
}

// Previous returns the stage immediately before st. The start stage has none.
func (st Stage) Previous() (Stage, bool) {
	i := st.order()
	if i <= 0 {
		return "", false
	}
	return StageOrder[i-1], true
}

func (st Stage) order() int {
	for i, s := range StageOrder {
		if s == st {
			return i
		}
	}
	return -1
}

// UnmarshalJSON normalizes case so hand-edited board files still load.
func (st *Stage) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*st = Stage(strings.ToLower(strings.TrimSpace(raw)))
	return nil
}
