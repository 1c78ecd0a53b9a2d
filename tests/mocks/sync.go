package mocks

import (
	"context"
	"errors"
	"sync"

	syncDomain "github.com/davicafu/notelab/internal/sync/domain"
	"github.com/stretchr/testify/mock"
)

// MockApplier usa testify/mock para guionizar respuestas del backend remoto.
type MockApplier struct {
	mock.Mock
}

var _ syncDomain.RemoteApplier = (*MockApplier)(nil)

func (m *MockApplier) Apply(ctx context.Context, item syncDomain.OutboxItem) (syncDomain.ApplyResult, error) {
	args := m.Called(ctx, item)
	return args.Get(0).(syncDomain.ApplyResult), args.Error(1)
}

// ScriptedApplier devuelve resultados por ID de item, con contador de llamadas.
// Útil cuando el orden de rotación hace incómodo el guion posicional de testify.
type ScriptedApplier struct {
	Results map[string]syncDomain.ApplyResult // por item.ID
	Errors  map[string]error                  // por item.ID
	PanicOn map[string]bool                   // por item.ID

	Calls map[string]int
	mu    sync.Mutex
}

var _ syncDomain.RemoteApplier = (*ScriptedApplier)(nil)

func NewScriptedApplier() *ScriptedApplier {
	return &ScriptedApplier{
		Results: make(map[string]syncDomain.ApplyResult),
		Errors:  make(map[string]error),
		PanicOn: make(map[string]bool),
		Calls:   make(map[string]int),
	}
}

func (a *ScriptedApplier) Apply(ctx context.Context, item syncDomain.OutboxItem) (syncDomain.ApplyResult, error) {
	a.mu.Lock()
	a.Calls[item.ID]++
	a.mu.Unlock()

	if a.PanicOn[item.ID] {
		panic("remote applier exploded")
	}
	if err, ok := a.Errors[item.ID]; ok {
		return syncDomain.ApplyResult{}, err
	}
	if res, ok := a.Results[item.ID]; ok {
		return res, nil
	}
	return syncDomain.ApplyResult{Status: syncDomain.ApplyStatusSuccess}, nil
}

func (a *ScriptedApplier) CallCount(itemID string) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.Calls[itemID]
}

// FailingKV simula un backend de almacenamiento caído: todas las operaciones
// devuelven error. Sirve para comprobar la degradación silenciosa de los stores.
type FailingKV struct{}

var errKVDown = errors.New("kv backend unavailable")

func (FailingKV) GetItem(ctx context.Context, key string) (string, bool, error) {
	return "", false, errKVDown
}

func (FailingKV) SetItem(ctx context.Context, key, value string) error {
	return errKVDown
}

func (FailingKV) RemoveItem(ctx context.Context, key string) error {
	return errKVDown
}
