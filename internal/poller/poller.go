package poller

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/taoyao-code/heliotherm-exporter/internal/catalog"
	"github.com/taoyao-code/heliotherm-exporter/internal/metrics"
	"github.com/taoyao-code/heliotherm-exporter/internal/protocol/heliotherm"
	"github.com/taoyao-code/heliotherm-exporter/internal/transport"
)

// Dialer 每个周期打开一次传输通道
type Dialer interface {
	Dial(ctx context.Context) (transport.Transport, error)
}

// Config 轮询器运行配置
type Config struct {
	Namespace       string
	Keys            []heliotherm.ValueKey // 轮询顺序即配置顺序
	ResponseTimeout time.Duration
	ConnectString   []byte
	MinInterval     time.Duration // >0 时节流，期间返回上一次结果
}

// Poller 轮询编排器：登录、逐值查询、批量读取、登出
// 数值目录与错误计数器随实例存活，跨周期保留；同一时刻只跑一个周期
type Poller struct {
	cfg     Config
	dialer  Dialer
	catalog *catalog.Catalog
	metrics *metrics.PollMetrics
	log     *zap.Logger

	mu      sync.Mutex
	limiter *rate.Limiter
	last    *PollResult

	status atomic.Pointer[Status]
}

// New 创建轮询器
func New(cfg Config, dialer Dialer, cat *catalog.Catalog, m *metrics.PollMetrics, log *zap.Logger) (*Poller, error) {
	if dialer == nil {
		return nil, errors.New("poller: dialer required")
	}
	if len(cfg.Keys) == 0 {
		return nil, errors.New("poller: at least one value key required")
	}
	if cfg.Namespace == "" {
		cfg.Namespace = "heliotherm"
	}
	if len(cfg.ConnectString) == 0 {
		cfg.ConnectString = heliotherm.DefaultConnectString
	}
	if cat == nil {
		cat = catalog.New()
	}
	if m == nil {
		m = metrics.NewPollMetrics(cfg.Namespace, nil)
	}
	if log == nil {
		log = zap.NewNop()
	}

	p := &Poller{cfg: cfg, dialer: dialer, catalog: cat, metrics: m, log: log}
	if cfg.MinInterval > 0 {
		p.limiter = rate.NewLimiter(rate.Every(cfg.MinInterval), 1)
	}
	return p, nil
}

// Catalog 进程级数值目录
func (p *Poller) Catalog() *catalog.Catalog { return p.catalog }

// Status 最近一次完成的周期摘要；尚未轮询时返回 false
func (p *Poller) Status() (Status, bool) {
	s := p.status.Load()
	if s == nil {
		return Status{}, false
	}
	return *s, true
}

// Poll 执行一个轮询周期（节流期间返回上一次结果），从不 panic
func (p *Poller) Poll(ctx context.Context) PollResult {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.limiter != nil && !p.limiter.Allow() && p.last != nil {
		p.metrics.Cycles.WithLabelValues(metrics.ResultCached).Inc()
		res := *p.last
		res.Cached = true
		return res
	}

	res := p.pollOnce(ctx)
	p.last = &res
	p.status.Store(&Status{
		At:         res.At,
		Outcome:    res.Outcome,
		Expected:   res.Expected,
		Received:   res.Received,
		CommErrors: res.CommErrors,
		Err:        res.Err,
	})
	return res
}

// cycle 单个周期的状态
type cycle struct {
	id     string
	phase  phase
	client *heliotherm.Client
	errs   *cycleCounter
	log    *zap.Logger
	res    *PollResult
}

func (c *cycle) enter(ph phase) {
	c.log.Debug("poll phase", zap.Stringer("from", c.phase), zap.Stringer("to", ph))
	c.phase = ph
}

// cycleCounter 同时累加全局通信错误计数与本周期计数
type cycleCounter struct {
	inner interface{ Inc() }
	n     int
}

func (c *cycleCounter) Inc() {
	c.n++
	c.inner.Inc()
}

func (p *Poller) pollOnce(ctx context.Context) (res PollResult) {
	start := time.Now()
	id := uuid.NewString()
	log := p.log.With(zap.String("cycle", id))
	res = PollResult{CycleID: id, At: start}

	c := &cycle{
		id:   id,
		errs: &cycleCounter{inner: p.metrics.CommunicationErrors},
		log:  log,
		res:  &res,
	}

	defer func() {
		if r := recover(); r != nil {
			p.metrics.GatheringErrors.Inc()
			log.Error("failed to collect heliotherm data",
				zap.Any("panic", r), zap.Stringer("phase", c.phase), zap.Stack("stack"))
			res = PollResult{
				CycleID: id,
				At:      start,
				Outcome: metrics.ResultFailed,
				Err:     fmt.Errorf("panic in %s: %v", c.phase, r),
			}
			c.phase = phaseFailed
		}
		res.CommErrors = c.errs.n
		p.metrics.Cycles.WithLabelValues(res.Outcome).Inc()
		p.metrics.Duration.Observe(time.Since(start).Seconds())
		log.Info("poll cycle finished",
			zap.String("outcome", res.Outcome),
			zap.Int("expected", res.Expected),
			zap.Int("received", res.Received),
			zap.Int("comm_errors", res.CommErrors),
			zap.Duration("took", time.Since(start)))
	}()

	t, err := p.dialer.Dial(ctx)
	if err != nil {
		p.metrics.GatheringErrors.Inc()
		log.Warn("open gateway failed", zap.Error(err))
		res.Outcome = metrics.ResultFailed
		res.Err = err
		return res
	}
	defer func() {
		if err := t.Close(); err != nil {
			log.Debug("close gateway", zap.Error(err))
		}
	}()

	c.client = heliotherm.NewClient(t, c.errs, p.cfg.ResponseTimeout, log)
	p.run(c)
	return res
}

// run 登录 → 逐值查询 → 批量读取 → 登出
func (p *Poller) run(c *cycle) {
	if err := p.login(c); err != nil {
		c.enter(phaseAborted)
		p.metrics.GatheringErrors.Inc()
		c.log.Info("login unsuccessful")
		*c.res = PollResult{CycleID: c.id, At: c.res.At, Outcome: metrics.ResultAborted, Err: err}
		return
	}
	c.enter(phaseLoggedIn)
	c.res.Expected = len(p.cfg.Keys)

	c.enter(phaseQuerying)
	var deferred []int
	for _, k := range p.cfg.Keys {
		// 名称已知的测量值改为批量读取，批量应答不带名称
		if k.Kind == heliotherm.KindMeasured {
			if _, ok := p.catalog.Lookup(k); ok {
				deferred = append(deferred, k.ID)
				continue
			}
		}
		p.queryNamed(c, k)
	}

	if len(deferred) > 0 {
		c.enter(phaseBatchQuerying)
		p.queryBatch(c, deferred)
	}

	c.enter(phaseLoggingOut)
	if reply := c.client.Query(heliotherm.CmdLogout, 0, false); !bytes.Equal(reply, heliotherm.ReplyOK) {
		c.log.Info("logout unsuccessful", zap.ByteString("reply", reply))
	}

	c.enter(phaseDone)
	c.res.Outcome = metrics.ResultOK
}

// login 首次登录容忍无应答；失败则发送 modem 握手串后重试一次
func (p *Poller) login(c *cycle) error {
	c.enter(phaseLoggingIn)
	if reply := c.client.Query(heliotherm.CmdLogin, 0, true); bytes.Equal(reply, heliotherm.ReplyOK) {
		return nil
	}

	c.enter(phaseHandshaking)
	c.log.Info("sent connect string (second login attempt)")
	if err := c.client.WriteRaw(p.cfg.ConnectString); err != nil {
		return fmt.Errorf("%w: %v", ErrLoginFailed, err)
	}
	if reply := c.client.Query(heliotherm.CmdLogin, 0, false); !bytes.Equal(reply, heliotherm.ReplyOK) {
		return ErrLoginFailed
	}
	return nil
}

func (p *Poller) queryNamed(c *cycle, k heliotherm.ValueKey) {
	payload := c.client.Query(heliotherm.NamedQuery(k), 0, false)
	if len(payload) == 0 {
		return
	}

	nv, err := heliotherm.ParseNamedReply(payload)
	if err != nil {
		c.errs.Inc()
		c.log.Info("unusable reply", zap.Stringer("key", k), zap.ByteString("reply", payload), zap.Error(err))
		return
	}
	if nv.NR != k.ID {
		c.errs.Inc()
		c.log.Info("reply for unexpected value", zap.Stringer("key", k), zap.Int("nr", nv.NR))
		return
	}

	dv := p.catalog.Upsert(k, nv.Name, nv.Value)
	c.log.Debug("value read",
		zap.Stringer("key", k), zap.String("name", dv.DisplayName),
		zap.String("metric", dv.MetricName), zap.Float64("value", dv.Value))
	p.emit(c, dv)
}

func (p *Poller) queryBatch(c *cycle, ids []int) {
	replies := c.client.QueryMulti(heliotherm.BatchQuery(ids), len(ids), false)
	if len(replies) == 0 {
		p.metrics.GatheringErrors.Inc()
		c.log.Warn("batch query returned nothing", zap.Ints("ids", ids))
		return
	}

	for _, payload := range replies {
		bv, err := heliotherm.ParseBatchReply(payload)
		if err != nil {
			c.errs.Inc()
			c.log.Info("unusable batch reply", zap.ByteString("reply", payload), zap.Error(err))
			continue
		}
		k := heliotherm.ValueKey{Kind: heliotherm.KindMeasured, ID: bv.ID}
		dv, ok := p.catalog.Update(k, bv.Value)
		if !ok {
			c.errs.Inc()
			c.log.Info("batch reply for unknown value", zap.Stringer("key", k))
			continue
		}
		p.emit(c, dv)
	}
}

func (p *Poller) emit(c *cycle, dv catalog.DataValue) {
	c.res.Samples = append(c.res.Samples, Sample{
		Name:  p.cfg.Namespace + "_" + dv.MetricName,
		Help:  dv.DisplayName,
		Value: dv.Value,
	})
	c.res.Received++
}
