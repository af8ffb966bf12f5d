package core

import (
	"reflect"

	"github.com/shopspring/decimal"
)

type addressed interface {
	Address() Address
}

// checkCollaborator rejects a missing implementation and one without a deployed address.
func checkCollaborator(c addressed) error {
	if c == nil {
		return ErrNotContract
	}
	if v := reflect.ValueOf(c); v.Kind() == reflect.Pointer && v.IsNil() {
		return ErrNotContract
	}
	if c.Address() == (Address{}) {
		return ErrZeroAddress
	}
	return nil
}

func (e *Engine) requireOperator(caller Address) error {
	if caller != e.cfg.Operator {
		return wrapf(ErrNotOperator, "caller %s", caller.Hex())
	}
	return nil
}

// SetFeeRecipient changes where close fees and cancellation penalties are paid.
func (e *Engine) SetFeeRecipient(caller, recipient Address) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.requireOperator(caller); err != nil {
		return err
	}
	if recipient == (Address{}) {
		return ErrZeroAddress
	}
	e.cfg.FeeRecipient = recipient
	e.log.Info("fee recipient updated", "recipient", recipient.Hex())
	return nil
}

// SetFeeRate changes the fraction of the winning stake taken as fee; it must be in (0, 1].
func (e *Engine) SetFeeRate(caller Address, rate decimal.Decimal) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.requireOperator(caller); err != nil {
		return err
	}
	if err := validateFeeRate(rate); err != nil {
		return err
	}
	e.cfg.FeeRate = rate
	e.log.Info("fee rate updated", "rate", rate)
	return nil
}

// SetLedger points the engine at a different token ledger.
func (e *Engine) SetLedger(caller Address, ledger Ledger) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.requireOperator(caller); err != nil {
		return err
	}
	if err := checkCollaborator(ledger); err != nil {
		return err
	}
	e.ledger = ledger
	e.log.Info("ledger updated", "address", ledger.Address().Hex())
	return nil
}

// SetRegistry points the engine at a different asset registry.
func (e *Engine) SetRegistry(caller Address, registry Registry) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.requireOperator(caller); err != nil {
		return err
	}
	if err := checkCollaborator(registry); err != nil {
		return err
	}
	e.registry = registry
	e.log.Info("registry updated", "address", registry.Address().Hex())
	return nil
}
