package peripheral

import (
	"math"
	"sync/atomic"

	"github.com/pmicpanel/pmicsync/eventbus"
	"github.com/pmicpanel/pmicsync/shell"
	"github.com/pmicpanel/pmicsync/state"
)

var loadCurrent = field[float64]{stem: "npm_ek load", codec: shell.Number(1)}

// OnBoardLoad controls the kit's programmable current sink.
type OnBoardLoad struct {
	*Base
	limit Range
	iLoad atomic.Uint64 // confirmed current, float64 bits
}

// NewOnBoardLoad creates the load module.
func NewOnBoardLoad(d Deps, limit Range) *OnBoardLoad {
	o := &OnBoardLoad{Base: newBase("load", d), limit: limit}
	bind(o.Base, loadCurrent, func(_ int, v float64) {
		o.iLoad.Store(math.Float64bits(v))
		o.bus.Emit(eventbus.OnBoardLoadUpdate, state.OnBoardLoadPatch{ILoad: &v})
	})
	return o
}

// current returns the last load current the device confirmed.
func (o *OnBoardLoad) current() float64 { return math.Float64frombits(o.iLoad.Load()) }

// GetAll queries the load current.
func (o *OnBoardLoad) GetAll() { o.GetILoad() }

func (o *OnBoardLoad) GetILoad() { get(o.Base, loadCurrent, 0) }

// SetILoad sets the sink current in mA. Zero disables the load.
func (o *OnBoardLoad) SetILoad(mA float64) *shell.Future {
	if err := checkRange("iLoad", mA, o.limit); err != nil {
		return shell.Rejected(err)
	}
	return set(o.Base, loadCurrent, 0, mA)
}
