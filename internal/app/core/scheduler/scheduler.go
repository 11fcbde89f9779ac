// Package scheduler 定時由 admin 注入收益
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/JoeShih716/go-stake-ledger/internal/app/core/domain"
	"github.com/JoeShih716/go-stake-ledger/internal/app/metrics"
)

// JobName 寫進 metrics 的 job 標籤
const JobName = "distribute"

// Distributor 注入收益的入口，CoreUseCase 實作了它
// 每次執行前先讀池子狀態，以當下的 admin 身分注入
type Distributor interface {
	GetPoolState(ctx context.Context) (domain.PoolState, error)
	Distribute(ctx context.Context, sender string, funds []domain.Coin) (*domain.Response, error)
}

// Config 排程設定
type Config struct {
	// Spec cron 表達式，含秒欄位，例如 "0 0 0 * * *"
	Spec   string
	Amount uint64
	Denom  string
	// Timeout 單次執行的逾時，0 代表不限
	Timeout time.Duration
}

// Scheduler 管理收益注入排程
type Scheduler struct {
	cron *cron.Cron
	dist Distributor
	cfg  Config
	log  *logrus.Entry
	ctx  context.Context

	// 同一時間只跑一次注入，上一次還沒結束就跳過
	running sync.Mutex
}

// New 建立 Scheduler，ctx 取消後進行中的注入也會被取消
func New(ctx context.Context, dist Distributor, cfg Config, log *logrus.Entry) *Scheduler {
	return &Scheduler{
		cron: cron.New(cron.WithSeconds()),
		dist: dist,
		cfg:  cfg,
		log:  log.WithField("component", "scheduler"),
		ctx:  ctx,
	}
}

// Register 依 Config.Spec 註冊注入工作
func (s *Scheduler) Register() error {
	if s.cfg.Amount == 0 {
		return fmt.Errorf("register %s task: amount must be positive", JobName)
	}
	if _, err := s.cron.AddFunc(s.cfg.Spec, s.distributeTask); err != nil {
		return fmt.Errorf("register %s task: %w", JobName, err)
	}
	return nil
}

// Start 開始排程
func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.WithField("spec", s.cfg.Spec).Info("scheduler started")
}

// Stop 停止排程並等待進行中的工作結束
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.log.Info("scheduler stopped")
}

// RunNow 立即執行一次注入 (手動觸發用)
func (s *Scheduler) RunNow() error {
	s.running.Lock()
	defer s.running.Unlock()
	return s.distribute()
}

func (s *Scheduler) distributeTask() {
	if !s.running.TryLock() {
		s.log.Warn("previous distribution still running, skipped")
		return
	}
	defer s.running.Unlock()
	_ = s.distribute()
}

func (s *Scheduler) distribute() error {
	ctx := s.ctx
	if s.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()
	}

	entry := s.log.WithFields(logrus.Fields{
		"amount": s.cfg.Amount,
		"denom":  s.cfg.Denom,
	})

	state, err := s.dist.GetPoolState(ctx)
	if err != nil {
		metrics.RecordJobRun(JobName, false)
		entry.WithError(err).Error("load pool state failed")
		return err
	}
	entry = entry.WithField("admin", state.Admin)

	resp, err := s.dist.Distribute(ctx, state.Admin, domain.Coins(s.cfg.Amount, s.cfg.Denom))
	metrics.RecordJobRun(JobName, err == nil)
	if err != nil {
		if errors.Is(err, domain.ErrEmptyPool) {
			entry.Info("no principal in pool, distribution skipped")
		} else {
			entry.WithError(err).Error("scheduled distribution failed")
		}
		return err
	}

	fields := logrus.Fields{}
	for _, attr := range resp.Attributes {
		fields[attr.Key] = attr.Value
	}
	entry.WithFields(fields).Info("scheduled distribution applied")
	return nil
}
