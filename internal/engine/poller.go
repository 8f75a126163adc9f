package engine

import (
	"bytes"
	"log/slog"
	"time"

	"mql_bridge/internal/domain"
	"mql_bridge/internal/infra"
)

const (
	removeAttempts = 10
)

// Poller watches one host file. Each Poll reads the whole file and does
// nothing unless the bytes differ from the last accepted content.
type Poller[T any] struct {
	stream domain.Stream
	path   string
	slot   *Slot[T]
	parse  func([]byte) (T, error)

	// merge builds the stored state from the previous state and the parsed
	// content; nil stores the parsed content as is.
	merge func(prev, next T) T
	// notify fires the callbacks for the change and returns how many fired.
	notify func(prev, next T) int

	// oneShot files are deleted once delivered
	oneShot     bool
	removeDelay time.Duration

	logger  *slog.Logger
	metrics *infra.Metrics

	lastRaw []byte // last content accepted
	lastBad []byte // last content that failed to parse, logged once
}

// seedFromSlot makes the persisted content count as already seen, so an
// unchanged host file is skipped after a restart.
func (p *Poller[T]) seedFromSlot() {
	p.lastRaw = p.slot.Current().Raw
}

// Poll runs one cycle and returns the number of callbacks fired.
func (p *Poller[T]) Poll() int {
	p.metrics.RecordPoll(p.stream)

	raw, err := infra.ReadState(p.path)
	if err != nil {
		// 호스트가 파일을 쓰는 중일 수 있음 - 다음 주기에 재시도
		p.logger.Debug("Read failed, retrying next cycle", slog.String("stream", string(p.stream)), slog.Any("error", err))
		return 0
	}
	if len(bytes.TrimSpace(raw)) == 0 || bytes.Equal(raw, p.lastRaw) {
		p.metrics.RecordUnchanged(p.stream)
		return 0
	}

	next, err := p.parse(raw)
	if err != nil {
		if !bytes.Equal(raw, p.lastBad) {
			p.lastBad = raw
			p.metrics.RecordMalformed(p.stream)
			p.logger.Warn("Malformed content, keeping previous state",
				slog.String("stream", string(p.stream)),
				slog.Int("bytes", len(raw)),
				slog.Any("error", err),
			)
		}
		return 0
	}
	p.lastBad = nil

	prev := p.slot.Current().Data
	state := next
	if p.merge != nil {
		state = p.merge(prev, next)
	}
	if err := p.slot.Replace(raw, state); err != nil {
		p.logger.Warn("Failed to persist snapshot", slog.String("stream", string(p.stream)), slog.Any("error", err))
	}
	p.lastRaw = raw

	n := p.notify(prev, next)
	p.metrics.RecordEvents(p.stream, n)

	if p.oneShot {
		if err := infra.RemoveWithRetry(p.path, removeAttempts, p.removeDelay); err != nil {
			// lastRaw는 유지 - 같은 내용이 다시 전달되지 않도록
			p.logger.Warn("Failed to remove consumed file", slog.String("stream", string(p.stream)), slog.Any("error", err))
		} else {
			p.lastRaw = nil
		}
	}
	return n
}
