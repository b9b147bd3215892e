package usecase

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"telegram-phone-sales/internal/domain/model"
	"telegram-phone-sales/internal/infra/memory"
)

func TestDialogUC_ProcessScenario(t *testing.T) {
	ctx := context.Background()
	uc := NewDialogUseCase(memory.NewDialogStateStore(), nopLogger())

	tr, st, err := uc.Process(ctx, 1, "Хочу Samsung Galaxy")
	require.NoError(t, err)
	assert.True(t, tr.Advanced())
	assert.Equal(t, model.StepSpecsSelection, st.Step)

	_, _, _ = uc.Process(ctx, 1, "256GB черный")
	_, _, _ = uc.Process(ctx, 1, "Иван")

	tr, st, err = uc.Process(ctx, 1, "123")
	require.NoError(t, err)
	require.NotNil(t, tr.Err)
	assert.Equal(t, model.StepGetPhone, st.Step)
	require.NotNil(t, st.LastError)

	_, st, _ = uc.Process(ctx, 1, "+7 (999) 123-45-67")
	assert.True(t, st.IsOrderComplete())
	assert.Equal(t, "+79991234567", st.Order.ClientPhone)

	cur, err := uc.Current(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, st.Order, cur.Order)
}

func TestDialogUC_ParticipantsAreIsolated(t *testing.T) {
	ctx := context.Background()
	uc := NewDialogUseCase(memory.NewDialogStateStore(), nopLogger())

	_, _, _ = uc.Process(ctx, 1, "iphone")
	st2, err := uc.Current(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, model.StepStart, st2.Step)
}

func TestDialogUC_Reset(t *testing.T) {
	ctx := context.Background()
	uc := NewDialogUseCase(memory.NewDialogStateStore(), nopLogger())

	_, _, _ = uc.Process(ctx, 1, "iphone")
	require.NoError(t, uc.Reset(ctx, 1))
	st, _ := uc.Current(ctx, 1)
	assert.Equal(t, model.StepStart, st.Step)
	assert.Empty(t, st.Order.PhoneModel)
}
