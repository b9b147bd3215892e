package application

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"telegram-phone-sales/internal/domain/catalog"
	"telegram-phone-sales/internal/domain/model"
	"telegram-phone-sales/internal/domain/ports/adapter"
	"telegram-phone-sales/internal/infra/i18n"
	"telegram-phone-sales/internal/infra/memory"
	"telegram-phone-sales/internal/usecase"
)

type stubAI struct {
	reply string
	err   error
	calls int
}

func (s *stubAI) Name() string { return "stub" }

func (s *stubAI) CountTokens(context.Context, string, []adapter.Message) (int, error) {
	return 10, nil
}

func (s *stubAI) ChatWithUsage(context.Context, string, []adapter.Message) (string, adapter.Usage, error) {
	s.calls++
	if s.err != nil {
		return "", adapter.Usage{}, s.err
	}
	return s.reply, adapter.Usage{TotalTokens: 10}, nil
}

type stubSubmitter struct {
	mu    sync.Mutex
	failN int
	reqs  []model.OrderRequest
}

func (s *stubSubmitter) Submit(_ context.Context, req model.OrderRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reqs = append(s.reqs, req)
	if len(s.reqs) <= s.failN {
		return errors.New("503")
	}
	return nil
}

type fixture struct {
	facade    *BotFacade
	tr        *i18n.Translator
	ai        *stubAI
	submitter *stubSubmitter
	journal   *memory.OrderJournal
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	l := zerolog.Nop()
	tr, err := i18n.NewTranslator(i18n.LocalesFS, "ru")
	require.NoError(t, err)

	f := &fixture{
		tr:        tr,
		ai:        &stubAI{reply: "Какой бренд вам ближе?"},
		submitter: &stubSubmitter{},
		journal:   memory.NewOrderJournal(&l),
	}
	f.facade = NewBotFacade(
		usecase.NewDialogUseCase(memory.NewDialogStateStore(), &l),
		usecase.NewAssistantUseCase(f.ai, "test-model", tr.T("system_prompt", catalog.BrandNames()), 1024, &l),
		usecase.NewOrderUseCase(f.submitter, f.journal, nil, usecase.OrderSettings{PlatformID: "p", RoleID: "r"}, &l),
		tr, &l,
	)
	return f
}

func (f *fixture) say(t *testing.T, text string) []string {
	t.Helper()
	return f.facade.HandleMessage(context.Background(), Inbound{TelegramID: 7, Text: text})
}

func (f *fixture) step(t *testing.T) model.DialogStep {
	t.Helper()
	st, err := f.facade.Dialog.Current(context.Background(), 7)
	require.NoError(t, err)
	return st.Step
}

func TestHandleMessage_HappyPath(t *testing.T) {
	f := newFixture(t)

	assert.Equal(t, []string{f.tr.T("ask_specs_models", "14, 15, 13, 12, 11")}, f.say(t, "Хочу айфон"))
	assert.Equal(t, []string{f.tr.T("ask_name")}, f.say(t, "256 гб, черный"))
	assert.Equal(t, []string{f.tr.T("ask_phone", "Иван")}, f.say(t, "Иван"))

	out := f.say(t, "8 (999) 123-45-67")
	require.Len(t, out, 2)
	assert.Equal(t, f.tr.T("order_summary", "Хочу айфон", "256 гб, черный", "Иван", "+79991234567"), out[0])
	assert.Equal(t, f.tr.T("order_submitted"), out[1])

	require.Len(t, f.submitter.reqs, 1)
	req := f.submitter.reqs[0]
	assert.Equal(t, "Иван", req.Name)
	assert.Equal(t, "+79991234567", req.Phone)
	assert.Equal(t, model.StepStart, f.step(t))
	assert.Zero(t, f.ai.calls)

	recs, err := f.journal.ListByStatus(context.Background(), model.OrderStatusSubmitted, 0)
	require.NoError(t, err)
	assert.Len(t, recs, 1)
}

func TestHandleMessage_UnknownProductAsksGenerator(t *testing.T) {
	f := newFixture(t)

	assert.Equal(t, []string{"Какой бренд вам ближе?"}, f.say(t, "нужен телефон для мамы"))
	assert.Equal(t, 1, f.ai.calls)
	assert.Equal(t, model.StepStart, f.step(t))
}

func TestHandleMessage_GeneratorFailure(t *testing.T) {
	f := newFixture(t)
	f.ai.err = errors.New("quota exceeded")

	assert.Equal(t, []string{f.tr.T("error_generic")}, f.say(t, "что посоветуете?"))
	assert.Equal(t, model.StepStart, f.step(t))
}

func TestHandleMessage_ValidationCorrections(t *testing.T) {
	f := newFixture(t)
	f.say(t, "samsung galaxy")
	f.say(t, "128gb")

	assert.Equal(t, []string{f.tr.T("error_name")}, f.say(t, "R2D2"))
	assert.Equal(t, model.StepGetName, f.step(t))
	f.say(t, "Анна")

	assert.Equal(t, []string{f.tr.T("error_phone_too_short")}, f.say(t, "12"))
	assert.Equal(t, []string{f.tr.T("error_phone_prefix")}, f.say(t, "123"))
	assert.Equal(t, []string{f.tr.T("error_phone_wrong_length", 11, 7)}, f.say(t, "8999123"))
	assert.Equal(t, model.StepGetPhone, f.step(t))
	assert.Empty(t, f.submitter.reqs)
}

func TestHandleMessage_EmptyTextRepromptsCurrentStep(t *testing.T) {
	f := newFixture(t)
	f.say(t, "xiaomi")

	assert.Equal(t, []string{f.tr.T("ask_specs")}, f.say(t, "   "))
	assert.Equal(t, model.StepSpecsSelection, f.step(t))
}

func TestHandleMessage_SubmissionFailureThenRetry(t *testing.T) {
	f := newFixture(t)
	f.submitter.failN = 1
	f.say(t, "honor")
	f.say(t, "синий")
	f.say(t, "Олег")

	out := f.say(t, "9991234567")
	require.Len(t, out, 2)
	assert.Equal(t, f.tr.T("order_failed"), out[1])
	assert.Equal(t, model.StepConfirmation, f.step(t))

	assert.Equal(t, []string{f.tr.T("order_submitted")}, f.say(t, "ещё раз"))
	assert.Equal(t, model.StepStart, f.step(t))
	assert.Len(t, f.submitter.reqs, 2)

	recs, err := f.journal.ListByStatus(context.Background(), "", 0)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, 2, recs[0].Attempts)
	assert.Equal(t, model.OrderStatusSubmitted, recs[0].Status)
}

func TestHandleStartAndCancel_Reset(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.say(t, "huawei")

	assert.Equal(t, []string{f.tr.T("greeting")},
		f.facade.HandleMessage(ctx, Inbound{TelegramID: 7, Text: "/start", IsStart: true}))
	assert.Equal(t, model.StepStart, f.step(t))

	f.say(t, "huawei")
	assert.Equal(t, []string{f.tr.T("cancelled")}, f.facade.HandleCancel(ctx, 7))
	assert.Equal(t, model.StepStart, f.step(t))
}

func TestHandleHelp_ListsBrands(t *testing.T) {
	f := newFixture(t)
	assert.Contains(t, f.facade.HandleHelp(), "Samsung, Apple, Xiaomi, Huawei, Honor")
}

func TestHandleMessage_ParticipantsAreIndependent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.facade.HandleMessage(ctx, Inbound{TelegramID: 1, Text: "айфон"})
	f.facade.HandleMessage(ctx, Inbound{TelegramID: 2, Text: "samsung"})
	f.facade.HandleMessage(ctx, Inbound{TelegramID: 2, Text: "256gb"})

	s1, err := f.facade.Dialog.Current(ctx, 1)
	require.NoError(t, err)
	s2, err := f.facade.Dialog.Current(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, model.StepSpecsSelection, s1.Step)
	assert.Equal(t, model.StepGetName, s2.Step)
}
