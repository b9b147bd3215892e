package model

import (
	"errors"
	"testing"

	"telegram-phone-sales/internal/domain"
)

func fullOrder() OrderData {
	return OrderData{
		PhoneModel:     "Samsung Galaxy",
		Specifications: "256GB",
		ClientName:     "Иван",
		ClientPhone:    "+79991234567",
	}
}

func TestIsOrderComplete(t *testing.T) {
	steps := []DialogStep{StepStart, StepSpecsSelection, StepGetName, StepGetPhone, StepConfirmation}

	t.Run("requires confirmation step", func(t *testing.T) {
		for _, st := range steps {
			s := &DialogState{Step: st, Order: fullOrder()}
			if got, want := s.IsOrderComplete(), st == StepConfirmation; got != want {
				t.Fatalf("step %s: IsOrderComplete=%v, want %v", st, got, want)
			}
		}
	})

	t.Run("requires every field", func(t *testing.T) {
		clearers := []func(*OrderData){
			func(o *OrderData) { o.PhoneModel = "" },
			func(o *OrderData) { o.Specifications = "" },
			func(o *OrderData) { o.ClientName = "" },
			func(o *OrderData) { o.ClientPhone = "" },
		}
		for i, fn := range clearers {
			o := fullOrder()
			fn(&o)
			s := &DialogState{Step: StepConfirmation, Order: o}
			if s.IsOrderComplete() {
				t.Fatalf("case %d: expected incomplete order", i)
			}
		}
	})
}

func TestReset(t *testing.T) {
	s := &DialogState{Step: StepGetPhone, Order: fullOrder(), LastError: &ErrorTag{Kind: TagTooShort}}
	s.Reset()
	if s.Step != StepStart || s.Order != (OrderData{}) || s.LastError != nil {
		t.Fatalf("reset left state behind: %+v", s)
	}
}

func TestClone_DoesNotShareError(t *testing.T) {
	s := &DialogState{Step: StepGetPhone, LastError: &ErrorTag{Kind: TagTooShort}}
	cp := s.Clone()
	cp.LastError.Kind = TagInvalidPrefix
	if s.LastError.Kind != TagTooShort {
		t.Fatalf("clone mutated original error tag")
	}
}

func TestErrorTag_Error(t *testing.T) {
	tag := ErrorTag{Kind: TagWrongLength, Expected: 11, Got: 9}
	if tag.Error() != "wrong_length: expected 11 digits, got 9" {
		t.Fatalf("unexpected message %q", tag.Error())
	}
	var err error = tag
	var got ErrorTag
	if !errors.As(err, &got) || got != tag {
		t.Fatalf("errors.As did not recover tag")
	}
}

func TestNewOrderRequest(t *testing.T) {
	s := &DialogState{Step: StepConfirmation, Order: fullOrder()}
	req, err := NewOrderRequest(s, "p1", "r1")
	if err != nil {
		t.Fatalf("NewOrderRequest: %v", err)
	}
	if req.Name != "Иван" || req.Phone != "+79991234567" || req.PlatformID != "p1" || req.RoleID != "r1" {
		t.Fatalf("unexpected request %+v", req)
	}
	if req.Description != "Модель: Samsung Galaxy\nХарактеристики: 256GB" {
		t.Fatalf("unexpected description %q", req.Description)
	}

	s.Step = StepGetPhone
	if _, err := NewOrderRequest(s, "p1", "r1"); !errors.Is(err, domain.ErrOrderIncomplete) {
		t.Fatalf("want ErrOrderIncomplete, got %v", err)
	}
}

func TestDialogStepString(t *testing.T) {
	if StepSpecsSelection.String() != "specs_selection" || DialogStep(42).String() != "step(42)" {
		t.Fatalf("unexpected step names")
	}
}
