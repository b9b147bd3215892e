package model

import (
	"fmt"
	"time"
)

// DialogStep is the position of a participant in the slot-filling sequence.
// Steps are totally ordered: Start < SpecsSelection < GetName < GetPhone < Confirmation.
type DialogStep int

const (
	StepStart DialogStep = iota
	StepSpecsSelection
	StepGetName
	StepGetPhone
	StepConfirmation
)

func (s DialogStep) String() string {
	switch s {
	case StepStart:
		return "start"
	case StepSpecsSelection:
		return "specs_selection"
	case StepGetName:
		return "get_name"
	case StepGetPhone:
		return "get_phone"
	case StepConfirmation:
		return "confirmation"
	default:
		return fmt.Sprintf("step(%d)", int(s))
	}
}

// TagKind classifies a rejected slot value.
type TagKind string

const (
	TagTooShort            TagKind = "too_short"
	TagWrongLength         TagKind = "wrong_length"
	TagInvalidPrefix       TagKind = "invalid_prefix"
	TagNameValidationError TagKind = "name_validation"
)

// ErrorTag is the recoverable outcome of a failed slot validation.
// Expected and Got are only set for TagWrongLength.
type ErrorTag struct {
	Kind     TagKind `json:"kind"`
	Expected int     `json:"expected,omitempty"`
	Got      int     `json:"got,omitempty"`
}

func (t ErrorTag) Error() string {
	if t.Kind == TagWrongLength {
		return fmt.Sprintf("%s: expected %d digits, got %d", t.Kind, t.Expected, t.Got)
	}
	return string(t.Kind)
}

// OrderData accumulates the slots of one order. ClientPhone is kept in canonical +7XXXXXXXXXX form.
type OrderData struct {
	PhoneModel     string `json:"phone_model"`
	Specifications string `json:"specifications"`
	ClientName     string `json:"client_name"`
	ClientPhone    string `json:"client_phone"`
}

func (o OrderData) filled() bool {
	return o.PhoneModel != "" && o.Specifications != "" && o.ClientName != "" && o.ClientPhone != ""
}

// Description is the free-text order description sent downstream.
func (o OrderData) Description() string {
	return fmt.Sprintf("Модель: %s\nХарактеристики: %s", o.PhoneModel, o.Specifications)
}

// DialogState is the per-participant conversation record.
type DialogState struct {
	Step      DialogStep `json:"step"`
	Order     OrderData  `json:"order"`
	LastError *ErrorTag  `json:"last_error,omitempty"`
	UpdatedAt time.Time  `json:"updated_at"`
}

func NewDialogState() *DialogState {
	return &DialogState{Step: StepStart, UpdatedAt: time.Now()}
}

// IsOrderComplete requires every slot to be filled and the dialog to have reached confirmation.
func (s *DialogState) IsOrderComplete() bool {
	return s.Step == StepConfirmation && s.Order.filled()
}

func (s *DialogState) Reset() {
	s.Step = StepStart
	s.Order = OrderData{}
	s.LastError = nil
	s.UpdatedAt = time.Now()
}

// Clone returns a copy that shares no pointers with s.
func (s *DialogState) Clone() DialogState {
	cp := *s
	if s.LastError != nil {
		tag := *s.LastError
		cp.LastError = &tag
	}
	return cp
}
