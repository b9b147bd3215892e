// Package dialog implements the slot-filling state machine.
//
// Advance is synchronous and performs no I/O. A rejected slot value leaves the step
// unchanged and records the reason on the state; re-prompting is left to the caller.
package dialog

import (
	"errors"
	"strings"
	"time"

	"telegram-phone-sales/internal/domain/catalog"
	"telegram-phone-sales/internal/domain/model"
	"telegram-phone-sales/internal/domain/validate"
)

// Transition describes the effect of one inbound message.
type Transition struct {
	From  model.DialogStep
	To    model.DialogStep
	Brand catalog.Brand   // set when the product slot was filled
	Err   *model.ErrorTag // set when the value for the current slot was rejected
}

func (t Transition) Advanced() bool { return t.To != t.From }

// Advance applies message to s and reports what happened.
func Advance(s *model.DialogState, message string) Transition {
	// The previous error is consumed by this message.
	s.LastError = nil
	tr := Transition{From: s.Step, To: s.Step}

	text := strings.TrimSpace(message)
	if text == "" {
		return tr
	}

	switch s.Step {
	case model.StepStart:
		brand, ok := catalog.ClassifyProduct(text)
		if !ok {
			return tr
		}
		s.Order.PhoneModel = text
		s.Step = model.StepSpecsSelection
		tr.Brand = brand

	case model.StepSpecsSelection:
		s.Order.Specifications = text
		s.Step = model.StepGetName

	case model.StepGetName:
		name, err := validate.ValidateName(text)
		if err != nil {
			tr.Err = reject(s, err)
			return tr
		}
		s.Order.ClientName = name
		s.Step = model.StepGetPhone

	case model.StepGetPhone:
		phone, err := validate.ValidatePhone(text)
		if err != nil {
			tr.Err = reject(s, err)
			return tr
		}
		s.Order.ClientPhone = phone
		s.Step = model.StepConfirmation

	case model.StepConfirmation:
		// terminal: the caller submits and resets
		return tr
	}

	s.UpdatedAt = time.Now()
	tr.To = s.Step
	return tr
}

func reject(s *model.DialogState, err error) *model.ErrorTag {
	var tag model.ErrorTag
	if !errors.As(err, &tag) {
		tag = model.ErrorTag{Kind: model.TagNameValidationError}
	}
	s.LastError = &tag
	s.UpdatedAt = time.Now()
	cp := tag
	return &cp
}
