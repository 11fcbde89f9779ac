// Package bank 執行提領產生的對外轉帳
package bank

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/JoeShih716/go-stake-ledger/internal/app/core/domain"
	"github.com/JoeShih716/go-stake-ledger/internal/app/core/usecase"
)

const defaultKeep = 256

// LogSender 把轉帳寫進 log 並保留最近幾筆，給沒有接真實出金系統的部署使用
type LogSender struct {
	log    *logrus.Entry
	keep   int
	mu     sync.Mutex
	recent []domain.Transfer
}

// NewLogSender keep <= 0 時使用預設值
func NewLogSender(log *logrus.Entry, keep int) *LogSender {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	if keep <= 0 {
		keep = defaultKeep
	}
	return &LogSender{
		log:  log.WithField("component", "bank"),
		keep: keep,
	}
}

// Send 紀錄轉帳
func (s *LogSender) Send(ctx context.Context, transfer domain.Transfer) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.log.WithFields(logrus.Fields{
		"to":     transfer.ToAddress,
		"amount": transfer.Amount,
	}).Info("transfer")

	s.mu.Lock()
	defer s.mu.Unlock()
	s.recent = append(s.recent, transfer)
	if over := len(s.recent) - s.keep; over > 0 {
		s.recent = append(s.recent[:0:0], s.recent[over:]...)
	}
	return nil
}

// Recent 最近的轉帳，舊的在前
func (s *LogSender) Recent() []domain.Transfer {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Transfer, len(s.recent))
	copy(out, s.recent)
	return out
}

var (
	_ usecase.Sender      = (*LogSender)(nil)
	_ usecase.TransferLog = (*LogSender)(nil)
)
