package funnel

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"linkpay-platform/internal/metrics"
)

// Janitor 定期清理过期会话，防止放弃的漏斗占用存储
type Janitor struct {
	store    SessionStore
	interval time.Duration
	now      func() time.Time
	metrics  *metrics.Metrics
	logger   *zap.SugaredLogger
	stopChan chan struct{}
	done     chan struct{}
	once     sync.Once
}

// NewJanitor 创建清理任务
func NewJanitor(store SessionStore, interval time.Duration, m *metrics.Metrics, logger *zap.SugaredLogger) *Janitor {
	return &Janitor{
		store:    store,
		interval: interval,
		now:      time.Now,
		metrics:  m,
		logger:   logger.Named("session_janitor"),
		stopChan: make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start 启动后台清理
func (j *Janitor) Start() {
	j.logger.Infof("启动会话清理任务，间隔 %s", j.interval)
	go j.run()
}

// Stop 停止后台清理并等待退出
func (j *Janitor) Stop() {
	j.once.Do(func() {
		j.logger.Info("正在停止会话清理任务...")
		close(j.stopChan)
	})
	<-j.done
}

func (j *Janitor) run() {
	defer close(j.done)
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if _, err := j.PurgeOnce(context.Background()); err != nil {
				j.logger.Errorf("清理过期会话失败: %v", err)
			}
		case <-j.stopChan:
			j.logger.Info("会话清理任务已停止。")
			return
		}
	}
}

// PurgeOnce 立即清理一次
func (j *Janitor) PurgeOnce(ctx context.Context) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	n, err := j.store.Purge(ctx, j.now())
	if err != nil {
		return 0, err
	}
	if n > 0 {
		j.logger.Infof("已清理 %d 个过期会话", n)
	}
	j.metrics.SessionsPurged(n)
	return n, nil
}
