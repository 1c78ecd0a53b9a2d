package connectivity

import (
	"context"
	"sync/atomic"

	"github.com/davicafu/notelab/internal/notes/domain"
)

// Static siempre responde lo mismo; útil para despliegues donde el proceso
// tiene red garantizada.
type Static struct {
	online bool
}

var _ domain.Connectivity = (*Static)(nil)

func NewStatic(online bool) *Static {
	return &Static{online: online}
}

func (s *Static) Online(ctx context.Context) bool {
	return s.online
}

// Toggle es una señal de conectividad conmutable en caliente. La usa el
// endpoint de simulación de offline y los tests.
type Toggle struct {
	online atomic.Bool
}

var _ domain.Connectivity = (*Toggle)(nil)

func NewToggle(online bool) *Toggle {
	t := &Toggle{}
	t.online.Store(online)
	return t
}

func (t *Toggle) Online(ctx context.Context) bool {
	return t.online.Load()
}

func (t *Toggle) SetOnline(online bool) {
	t.online.Store(online)
}
