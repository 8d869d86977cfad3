package scanner

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/multierr"

	"github.com/phoe8lin/hugeorders/infrastructure/logger"
	"github.com/phoe8lin/hugeorders/market"
)

// DefaultDepth 每次拉取的深度档数。
const DefaultDepth = 1000

// Provider 行情源。两个调用都可能很慢或失败，扫描器不做重试。
type Provider interface {
	CurrentPrice(ctx context.Context, instrument string) (decimal.Decimal, error)
	OrderBook(ctx context.Context, instrument string, depth int) (market.RawBook, error)
}

// Recorder 扫描指标上报，monitor.Monitor 实现该接口。
type Recorder interface {
	RecordCycle(elapsed time.Duration, detections int, finished time.Time)
	RecordInstrumentScanned()
	RecordDetection(side string)
	RecordSkipped(reason string)
	RecordMalformedLevels(n int)
}

// Cycle 一次扫描的结果，发布后不再修改。
type Cycle struct {
	StartedAt   time.Time          `json:"startedAt"`
	FinishedAt  time.Time          `json:"finishedAt"`
	Instruments []string           `json:"instruments"`
	Detections  []market.Detection `json:"detections"`
	Warnings    []Warning          `json:"warnings"`
}

// Scanner 逐个标的拉取行情并检测大单，不在两次调用之间保留状态。
type Scanner struct {
	provider Provider
	depth    int
	clock    Clock
	log      *logger.Logger
	rec      Recorder
}

// Option 配置 Scanner。
type Option func(*Scanner)

func WithDepth(depth int) Option         { return func(s *Scanner) { s.depth = depth } }
func WithClock(c Clock) Option           { return func(s *Scanner) { s.clock = c } }
func WithLogger(l *logger.Logger) Option { return func(s *Scanner) { s.log = l } }
func WithRecorder(r Recorder) Option     { return func(s *Scanner) { s.rec = r } }

func New(provider Provider, opts ...Option) *Scanner {
	s := &Scanner{
		provider: provider,
		depth:    DefaultDepth,
		clock:    SystemClock,
		log:      logger.NewNop(),
		rec:      nopRecorder{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Scan 顺序扫描 instruments，单个标的失败只产生 Warning。
// 只有 ctx 被取消时才返回错误，此时 Cycle 包含已完成标的的结果。
func (s *Scanner) Scan(ctx context.Context, instruments []string) (Cycle, error) {
	cycle := Cycle{
		StartedAt:   s.clock.Now(),
		Instruments: NormalizeInstruments(instruments),
		Detections:  []market.Detection{},
		Warnings:    []Warning{},
	}
	for _, inst := range cycle.Instruments {
		if err := ctx.Err(); err != nil {
			cycle.FinishedAt = s.clock.Now()
			return cycle, err
		}
		detections, warnings, err := s.ScanInstrument(ctx, inst)
		if err != nil {
			cycle.FinishedAt = s.clock.Now()
			return cycle, err
		}
		cycle.Detections = append(cycle.Detections, detections...)
		cycle.Warnings = append(cycle.Warnings, warnings...)
	}
	cycle.FinishedAt = s.clock.Now()

	elapsed := cycle.FinishedAt.Sub(cycle.StartedAt)
	s.rec.RecordCycle(elapsed, len(cycle.Detections), cycle.FinishedAt)
	s.log.LogCycle(len(cycle.Instruments), len(cycle.Detections), len(cycle.Warnings), elapsed, cycle.FinishedAt)
	return cycle, nil
}

// ScanInstrument 处理一个标的：拉现价 -> 拉深度 -> 聚合 -> 检测。
// 返回的 error 只可能是 ctx 取消；其他问题都转为 Warning。
func (s *Scanner) ScanInstrument(ctx context.Context, instrument string) ([]market.Detection, []Warning, error) {
	s.rec.RecordInstrumentScanned()

	price, err := s.provider.CurrentPrice(ctx, instrument)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, nil, ctxErr
		}
		return nil, []Warning{s.skip(instrument, ReasonProviderError, &ProviderError{Instrument: instrument, Op: "ticker", Err: err})}, nil
	}
	book, err := s.provider.OrderBook(ctx, instrument, s.depth)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, nil, ctxErr
		}
		return nil, []Warning{s.skip(instrument, ReasonProviderError, &ProviderError{Instrument: instrument, Op: "depth", Err: err})}, nil
	}

	var warnings []Warning
	bids, asks, err := market.AggregateBook(book)
	if err != nil {
		n := len(multierr.Errors(err))
		s.rec.RecordMalformedLevels(n)
		w := newWarning(instrument, ReasonMalformedLevel, err)
		s.log.LogWarning(instrument, ReasonMalformedLevel, err)
		warnings = append(warnings, w)
	}

	analysis, err := market.Detect(bids, asks, price)
	if err != nil {
		reason := ReasonInsufficientDepth
		if errors.Is(err, market.ErrInvalidCurrentPrice) {
			reason = ReasonInvalidPrice
		}
		return nil, append(warnings, s.skip(instrument, reason, err)), nil
	}

	detections := analysis.Detections(instrument, price)
	for _, d := range detections {
		s.rec.RecordDetection(string(d.Side))
		s.log.LogDetection(d)
	}
	return detections, warnings, nil
}

func (s *Scanner) skip(instrument, reason string, err error) Warning {
	s.rec.RecordSkipped(reason)
	s.log.LogWarning(instrument, reason, err)
	return newWarning(instrument, reason, err)
}

type nopRecorder struct{}

func (nopRecorder) RecordCycle(time.Duration, int, time.Time) {}
func (nopRecorder) RecordInstrumentScanned()                  {}
func (nopRecorder) RecordDetection(string)                    {}
func (nopRecorder) RecordSkipped(string)                      {}
func (nopRecorder) RecordMalformedLevels(int)                 {}
