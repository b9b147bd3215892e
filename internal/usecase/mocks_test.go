// File: internal/usecase/mocks_test.go
package usecase

import (
	"context"
	"errors"
	"sync"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"telegram-phone-sales/internal/domain/model"
	"telegram-phone-sales/internal/domain/ports/adapter"
	"telegram-phone-sales/internal/domain/ports/repository"
)

func nopLogger() *zerolog.Logger {
	l := zerolog.Nop()
	return &l
}

// fakeAI records prompts and returns a fixed reply or error.
type fakeAI struct {
	mu        sync.Mutex
	reply     string
	err       error
	tokensPer int // tokens counted per rune of content; 0 means CountTokens returns 1
	prompts   [][]adapter.Message
}

func (f *fakeAI) Name() string { return "fake" }

func (f *fakeAI) CountTokens(ctx context.Context, model string, msgs []adapter.Message) (int, error) {
	if f.tokensPer == 0 {
		return 1, nil
	}
	n := 0
	for _, m := range msgs {
		n += len([]rune(m.Content)) * f.tokensPer
	}
	return n, nil
}

func (f *fakeAI) ChatWithUsage(ctx context.Context, model string, msgs []adapter.Message) (string, adapter.Usage, error) {
	f.mu.Lock()
	cp := append([]adapter.Message(nil), msgs...)
	f.prompts = append(f.prompts, cp)
	f.mu.Unlock()
	if f.err != nil {
		return "", adapter.Usage{}, f.err
	}
	return f.reply, adapter.Usage{PromptTokens: 3, CompletionTokens: 2, TotalTokens: 5}, nil
}

// fakeSubmitter fails the first failN calls.
type fakeSubmitter struct {
	mu    sync.Mutex
	failN int
	err   error
	calls []model.OrderRequest
}

func (f *fakeSubmitter) Submit(ctx context.Context, req model.OrderRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, req)
	if len(f.calls) <= f.failN {
		if f.err != nil {
			return f.err
		}
		return errors.New("endpoint down")
	}
	return nil
}

// fakeTxManager runs fn with a marker tx and counts calls.
type fakeTxManager struct {
	calls int
}

type fakeTx struct{}

func (f *fakeTxManager) WithTx(ctx context.Context, _ pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
	f.calls++
	return fn(ctx, fakeTx{})
}

// failingJournal rejects every write.
type failingJournal struct{ repository.OrderRepository }

func (failingJournal) Save(context.Context, repository.Tx, *model.OrderRecord) error {
	return errors.New("journal down")
}

func (failingJournal) FindByID(context.Context, repository.Tx, string) (*model.OrderRecord, error) {
	return nil, errors.New("journal down")
}
