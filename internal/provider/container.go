package provider

import (
	"github.com/payu-bridge/internal/config"
	"github.com/payu-bridge/internal/logger"
	"github.com/payu-bridge/internal/models"
	"github.com/payu-bridge/internal/queue"
	"github.com/payu-bridge/internal/repository"
	"github.com/payu-bridge/internal/service"
)

// Container 依赖注入容器
type Container struct {
	Config      *config.Config
	QueueClient *queue.Client

	// Repositories
	PaymentRepo repository.PaymentRepository
	ChannelRepo repository.ChannelRepository

	// Services
	PaymentService *service.PaymentService
}

// NewContainer 初始化容器
func NewContainer(cfg *config.Config) *Container {
	var queueClient *queue.Client
	if cfg.Queue.Enabled {
		qc, err := queue.NewClient(&cfg.Queue)
		if err != nil {
			logger.Errorw("provider_init_queue_client_failed", "error", err)
		} else {
			queueClient = qc
		}
	}

	c := &Container{
		Config:      cfg,
		QueueClient: queueClient,
	}

	c.PaymentRepo = repository.NewPaymentRepository(models.DB)
	c.ChannelRepo = repository.NewChannelRepository(models.DB)

	c.PaymentService = service.NewPaymentService(c.PaymentRepo, c.ChannelRepo, cfg.Refund)
	return c
}

// Close 释放容器资源
func (c *Container) Close() {
	if c == nil {
		return
	}
	if c.QueueClient != nil {
		if err := c.QueueClient.Close(); err != nil {
			logger.Warnw("provider_close_queue_client_failed", "error", err)
		}
	}
}
