package poller

import (
	"context"
	"errors"
	"fmt"

	"github.com/tamzrod/bms-poller/internal/codec"
	"github.com/tamzrod/bms-poller/internal/field"
	"github.com/tamzrod/bms-poller/internal/transport"
)

// Pass names.
const (
	PassIdentify = "identify"
	PassSettings = "settings"
	PassStatus   = "status"
	PassCells    = "cells"
)

var identifyPass = []Step{
	{Field: field.HardwareName, Mandatory: true},
	{Field: field.HardwareVersion},
	{Field: field.SerialNumber},
}

var settingsPass = []Step{
	{Field: field.CellCount, Mandatory: true},
	{Field: field.Capacity, Mandatory: true},
	{Field: field.MaxChargeCurrent},
	{Field: field.MaxDischargeCurrent},
	{Field: field.MaxCellVoltage},
	{Field: field.MinCellVoltage},
	{Field: field.HardwareVersion},
	{Field: field.SerialNumber},
	{Field: field.SoftwareVersion},
	{Field: field.ManufacturerID},
}

var statusPass = []Step{
	{Field: field.Voltage, Mandatory: true},
	{Field: field.Current, Mandatory: true},
	{Field: field.SOC, Mandatory: true},
	{Field: field.Temperature1, Mandatory: true},
	{Field: field.ChargeFET, Mandatory: true},
	{Field: field.DischargeFET, Mandatory: true},

	{Field: field.RemainingCapacity},
	{Field: field.Temperature2},
	{Field: field.Temperature3},
	{Field: field.Temperature4},
	{Field: field.TemperatureMOS},
	{Field: field.FeedbackShuntCurrent},
	{Field: field.LowVoltageAlarm},
	{Field: field.HighVoltageAlarm},
	{Field: field.LowCellVoltageAlarm},
	{Field: field.HighCellVoltageAlarm},
	{Field: field.LowSOCAlarm},
	{Field: field.HighChargeCurrentAlarm},
	{Field: field.HighDischargeCurrentAlarm},
	{Field: field.TemperatureAlarm},
}

// runPass reads steps in order. The first hard failure of a mandatory step
// aborts the pass; optional failures are logged and skipped over. Soft skips
// never fail a pass.
func (e *Engine) runPass(ctx context.Context, d *Device, name string, steps []Step) error {
	for _, s := range steps {
		if err := ctx.Err(); err != nil {
			return err
		}
		res, err := e.ReadField(ctx, d, s.Field)
		if err := e.settle(d, name, s, -1, res, err); err != nil {
			return err
		}
	}
	return nil
}

// settle records the result of one step and decides whether it ends the pass.
func (e *Engine) settle(d *Device, pass string, s Step, cell int, res Result, err error) error {
	if err == nil {
		e.metrics.FieldRead(d.id, res.Outcome.String())
		if !res.Ok() {
			e.log.Debug("field skipped",
				"device", d.id, "pass", pass, "field", s.Field.String(), "cell", cell,
				"reason", res.Skip.String())
		}
		return nil
	}

	if s.Mandatory {
		e.metrics.PassFailed(d.id, pass)
		return &PassError{Pass: pass, Field: s.Field, Cell: cell, Err: err}
	}
	e.log.Info("optional field failed",
		"device", d.id, "pass", pass, "field", s.Field.String(), "cell", cell, "err", err)
	return nil
}

// Identify resolves the protocol version and reads the identity fields.
func (e *Engine) Identify(ctx context.Context, d *Device) error {
	if _, err := e.ReadField(ctx, d, field.ProtocolVersion); err != nil {
		return fmt.Errorf("poller: resolve version: %w", err)
	}
	return e.runPass(ctx, d, PassIdentify, identifyPass)
}

// LoadSettings reads the settings pass and creates the cell array from the
// reported cell count.
func (e *Engine) LoadSettings(ctx context.Context, d *Device) error {
	if d.State() < VersionResolved {
		return ErrNotIdentified
	}
	if err := e.runPass(ctx, d, PassSettings, settingsPass); err != nil {
		return err
	}

	entry, ok := d.fields.Get(field.CellCount)
	if !ok {
		return fmt.Errorf("poller: %s pass: cell count unavailable", PassSettings)
	}
	n, err := cellCount(entry.Value)
	if err != nil {
		return err
	}
	d.setCells(n)
	d.advance(SettingsLoaded)
	return nil
}

func cellCount(v codec.Value) (int, error) {
	n := v.Uint()
	if n == 0 || n > MaxCells {
		return 0, fmt.Errorf("poller: cell count %d outside 1..%d", n, MaxCells)
	}
	return int(n), nil
}

// Connect runs the connection test: version probe, identity, settings and a
// first refresh.
func (e *Engine) Connect(ctx context.Context, d *Device) error {
	if err := e.Identify(ctx, d); err != nil {
		return err
	}
	if err := e.LoadSettings(ctx, d); err != nil {
		return err
	}
	return e.Refresh(ctx, d)
}

// Refresh runs the status pass and then the cell pass.
func (e *Engine) Refresh(ctx context.Context, d *Device) error {
	if d.State() < SettingsLoaded {
		return ErrNotIdentified
	}
	if err := e.runPass(ctx, d, PassStatus, statusPass); err != nil {
		return err
	}
	return e.RefreshCells(ctx, d)
}

// RefreshCells reads every cell voltage (mandatory) and then every balance
// flag (optional). Each read takes the locks on its own.
func (e *Engine) RefreshCells(ctx context.Context, d *Device) error {
	n := d.CellCount()
	steps := []Step{
		{Field: field.CellVoltage, Mandatory: true},
		{Field: field.CellBalance},
	}
	for _, s := range steps {
		for cell := 0; cell < n; cell++ {
			if err := ctx.Err(); err != nil {
				return err
			}
			res, err := e.ReadCellField(ctx, d, s.Field, cell)
			if err := e.settle(d, PassCells, s, cell, res, err); err != nil {
				return err
			}
		}
	}
	return nil
}

// Poll drives the device state machine one cycle: connect when not yet
// identified, refresh otherwise. Consecutive bus failures beyond the limit
// invalidate the handle so the next cycle starts over.
func (e *Engine) Poll(ctx context.Context, d *Device) error {
	var err error
	if d.State() < SettingsLoaded {
		err = e.Connect(ctx, d)
	} else {
		err = e.Refresh(ctx, d)
	}
	if err == nil {
		d.succeeded()
		e.metrics.DeviceState(d.id, int(Polling))
		e.metrics.Polled(d.id, float64(e.clock.Now().UnixNano())/1e9)
		return nil
	}

	if ctx.Err() == nil && busFailure(err) {
		if n := d.failed(); n >= e.maxFailures {
			old := d.invalidate()
			e.forget(old)
			e.log.Warn("device invalidated",
				"device", d.id, "channel", d.channel, "address", d.address, "failures", n)
		}
	}
	e.metrics.DeviceState(d.id, int(d.State()))
	return err
}

// busFailure reports errors that count towards invalidation.
func busFailure(err error) bool {
	var te *transport.Error
	var de *codec.DecodeError
	return errors.As(err, &te) || errors.As(err, &de)
}
