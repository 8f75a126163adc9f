package engine

import (
	"bytes"
	"log/slog"
	"sync"
	"time"

	"mql_bridge/internal/domain"
	"mql_bridge/internal/infra"
)

// Snapshot is the last raw content read for a stream and its parsed form.
type Snapshot[T any] struct {
	Raw       []byte
	Data      T
	UpdatedAt time.Time
}

// Slot holds the current and previous snapshot of one stream.
// Only that stream's poller calls Replace; anyone may read.
// Stored Data values are never mutated after Replace.
type Slot[T any] struct {
	mu       sync.RWMutex
	current  Snapshot[T]
	previous Snapshot[T]
	sideFile string // "" = memory only
}

func newSlot[T any](sideFile string) *Slot[T] {
	return &Slot[T]{sideFile: sideFile}
}

func (s *Slot[T]) Current() Snapshot[T] {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

func (s *Slot[T]) Previous() Snapshot[T] {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.previous
}

// Replace installs a new snapshot and writes raw verbatim to the side file.
// The in-memory state is updated even if persisting fails.
func (s *Slot[T]) Replace(raw []byte, data T) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.previous = s.current
	s.current = Snapshot[T]{Raw: raw, Data: data, UpdatedAt: time.Now()}

	if s.sideFile == "" {
		return nil
	}
	return infra.WriteFileAtomic(s.sideFile, raw)
}

// seed installs persisted state without touching the side file.
func (s *Slot[T]) seed(raw []byte, data T) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = Snapshot[T]{Raw: raw, Data: data, UpdatedAt: time.Now()}
}

// Store owns every stream's snapshots.
type Store struct {
	Orders   *Slot[domain.OrderBook]
	Messages *Slot[domain.MessageLog]
	Market   *Slot[domain.MarketData]
	Bars     *Slot[domain.BarData]
	Historic *Slot[domain.HistoricData]
	Trades   *Slot[domain.HistoricTrades]
}

// NewStore creates an empty store. Messages are always persisted; orders only
// when persistOrders is set.
func NewStore(paths domain.Paths, persistOrders bool) *Store {
	ordersFile := ""
	if persistOrders {
		ordersFile = paths.OrdersStored
	}
	return &Store{
		Orders:   newSlot[domain.OrderBook](ordersFile),
		Messages: newSlot[domain.MessageLog](paths.MessagesStored),
		Market:   newSlot[domain.MarketData](""),
		Bars:     newSlot[domain.BarData](""),
		Historic: newSlot[domain.HistoricData](""),
		Trades:   newSlot[domain.HistoricTrades](""),
	}
}

// Load seeds the persisted streams from their side files. It must run before
// any poller starts, so a restart does not re-fire known orders or messages.
func (s *Store) Load(logger *slog.Logger) {
	loadSlot(s.Orders, domain.StreamOrders, domain.ParseOrderBook, logger)
	loadSlot(s.Messages, domain.StreamMessages, parseMessageLog, logger)
}

func loadSlot[T any](slot *Slot[T], stream domain.Stream, parse func([]byte) (T, error), logger *slog.Logger) {
	if slot.sideFile == "" {
		return
	}
	raw, err := infra.ReadState(slot.sideFile)
	if err != nil {
		logger.Warn("Failed to read persisted state", slog.String("stream", string(stream)), slog.Any("error", err))
		return
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return
	}
	data, err := parse(raw)
	if err != nil {
		// 손상된 파일은 무시하고 빈 상태로 시작
		logger.Warn("Persisted state unreadable, starting empty",
			slog.String("stream", string(stream)),
			slog.String("file", slot.sideFile),
			slog.Any("error", err),
		)
		return
	}
	slot.seed(raw, data)
	logger.Info("Persisted state loaded", slog.String("stream", string(stream)))
}

func parseMessageLog(raw []byte) (domain.MessageLog, error) {
	msgs, err := domain.ParseMessages(raw)
	if err != nil {
		return domain.MessageLog{}, err
	}
	return domain.MessageLog{Messages: msgs, LastMillis: domain.MaxMillis(msgs, 0)}, nil
}
