package peripheral

import (
	"errors"
	"strings"

	"github.com/pmicpanel/pmicsync/confirm"
	"github.com/pmicpanel/pmicsync/eventbus"
	"github.com/pmicpanel/pmicsync/shell"
	"github.com/pmicpanel/pmicsync/state"
)

// DownloadChunkSize is the number of profile bytes sent per command.
const DownloadChunkSize = 256

// ErrEmptyProfile is returned when downloading an empty battery profile.
var ErrEmptyProfile = errors.New("empty battery profile")

const (
	fuelGaugeList          = "fuel_gauge model list"
	fuelGaugeStore         = "fuel_gauge model store"
	fuelGaugeDownload      = "fuel_gauge model download"
	fuelGaugeDownloadBegin = fuelGaugeDownload + " begin"
	fuelGaugeDownloadApply = fuelGaugeDownload + " apply"
	fuelGaugeDownloadAbort = fuelGaugeDownload + " abort"
)

var (
	fuelGaugeEnabled = field[bool]{stem: "fuel_gauge", codec: shell.Boolean}
	fuelGaugeModel   = field[string]{stem: "fuel_gauge model", codec: shell.Quoted}
)

var storeModelPrompt = confirm.Prompt{
	Message: "Storing a battery model writes to the evaluation kit's " +
		"non-volatile memory. Continue?",
	ConfirmLabel:    "Store",
	CancelLabel:     "Cancel",
	OptionalLabel:   "Store and do not ask again",
	DoNotAskAgainID: "storeBatteryModel",
}

// FuelGauge controls the fuel gauge and its battery models.
type FuelGauge struct {
	*Base
}

// NewFuelGauge creates the fuel gauge module.
func NewFuelGauge(d Deps) *FuelGauge {
	f := &FuelGauge{Base: newBase("fuelGauge", d)}
	emit := func(p state.FuelGaugePatch) { f.bus.Emit(eventbus.FuelGaugeUpdate, p) }

	bind(f.Base, fuelGaugeEnabled, func(_ int, v bool) { emit(state.FuelGaugePatch{Enabled: &v}) })
	bind(f.Base, fuelGaugeModel, func(_ int, v string) { emit(state.FuelGaugePatch{ActiveBatteryModel: &v}) })
	f.onCommand(shell.ActionPattern(fuelGaugeList), func(m shell.Match) {
		models := shell.ParseQuotedAll(m.Response)
		if models == nil {
			models = []string{}
		}
		emit(state.FuelGaugePatch{StoredBatteryModels: &models})
	})
	return f
}

// GetAll queries the gauge state and the stored models.
func (f *FuelGauge) GetAll() {
	f.GetEnabled()
	f.GetActiveModel()
	f.ListModels()
}

func (f *FuelGauge) GetEnabled()     { get(f.Base, fuelGaugeEnabled, 0) }
func (f *FuelGauge) GetActiveModel() { get(f.Base, fuelGaugeModel, 0) }

// ListModels queries the names of the models stored on the kit.
func (f *FuelGauge) ListModels() { f.query(fuelGaugeList) }

// SetEnabled turns the fuel gauge on or off.
func (f *FuelGauge) SetEnabled(on bool) *shell.Future {
	return set(f.Base, fuelGaugeEnabled, 0, on)
}

// SetActiveModel selects the battery model used by the gauge.
func (f *FuelGauge) SetActiveModel(name string) *shell.Future {
	return set(f.Base, fuelGaugeModel, 0, name)
}

// StoreModel persists the active model after confirmation, then refreshes
// the model list.
func (f *FuelGauge) StoreModel() *shell.Future {
	return f.gate.Wrap(storeModelPrompt, func() *shell.Future {
		fut := f.action(fuelGaugeStore, "", fuelGaugeList)
		fut.OnSettle(func(err error) {
			if err == nil {
				f.ListModels()
			}
		})
		return fut
	})
}

func (f *FuelGauge) progress(phase string, pct float64, msg string) {
	f.bus.Emit(eventbus.ProfileDownloadUpdate, state.ProfileDownload{State: phase, Progress: pct, Message: msg})
}

func escapeChunk(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, `"`, `\"`)
}

func chunks(s string, size int) []string {
	var out []string
	for len(s) > size {
		out = append(out, s[:size])
		s = s[size:]
	}
	if s != "" {
		out = append(out, s)
	}
	return out
}

// Download transfers a battery profile in chunks and applies it. Progress is
// emitted after every chunk. On failure the transfer is aborted, a failed
// state is emitted and the model fields are resynced before the future
// rejects.
func (f *FuelGauge) Download(profile string) *shell.Future {
	parts := chunks(profile, DownloadChunkSize)
	if len(parts) == 0 {
		return shell.Rejected(ErrEmptyProfile)
	}

	f.progress(state.DownloadDownloading, 0, "")
	steps := []Step{func() *shell.Future { return f.action(fuelGaugeDownloadBegin, "") }}
	for i, part := range parts {
		pct := float64(i+1) * 100 / float64(len(parts))
		cmd := fuelGaugeDownload + " " + shell.Quoted.Encode(escapeChunk(part))
		steps = append(steps, func() *shell.Future {
			fut := f.action(cmd, "")
			fut.OnSettle(func(err error) {
				if err == nil {
					f.progress(state.DownloadDownloading, pct, "")
				}
			})
			return fut
		})
	}
	steps = append(steps, func() *shell.Future { return f.action(fuelGaugeDownloadApply, "") })

	out := shell.NewFuture()
	Sequence(f.io, nil, steps...).OnSettle(func(err error) {
		if err == nil {
			f.progress(state.DownloadApplied, 100, "")
			f.GetActiveModel()
			f.ListModels()
			out.Resolve()
			return
		}
		f.log.Warn().Err(err).Msg("battery profile download failed")
		f.action(fuelGaugeDownloadAbort, "").OnSettle(func(error) {
			f.progress(state.DownloadFailed, 0, err.Error())
			f.io.Resync([]string{fuelGaugeModel.getCmd(0), fuelGaugeList}, func() { out.Reject(err) })
		})
	})
	return out
}

// AbortDownload cancels a transfer in progress.
func (f *FuelGauge) AbortDownload() *shell.Future {
	fut := f.action(fuelGaugeDownloadAbort, "")
	fut.OnSettle(func(err error) {
		if err == nil {
			f.progress(state.DownloadAborted, 0, "")
		}
	})
	return fut
}
