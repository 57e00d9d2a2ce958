package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/homeserve-auth/internal/config"
	"github.com/spec-kit/homeserve-auth/internal/events"
)

// AuditService records an audit trail for auth events. Impersonation
// events are the ones operators actually read, so those get the most
// detail.
type AuditService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
	cfg        config.AuditConfig
}

// NewAuditService creates the service.
func NewAuditService(dispatcher events.Dispatcher, logger *zap.Logger, cfg config.AuditConfig) *AuditService {
	return &AuditService{
		dispatcher: dispatcher,
		logger:     logger,
		cfg:        cfg,
	}
}

// RegisterHandlers subscribes to events.
func (a *AuditService) RegisterHandlers() {
	if a.dispatcher == nil {
		return
	}
	a.dispatcher.Subscribe(events.EventUserRegistered, a.handleEvent)
	a.dispatcher.Subscribe(events.EventUserLoggedIn, a.handleEvent)
	a.dispatcher.Subscribe(events.EventPasswordResetRequested, a.handleEvent)
	a.dispatcher.Subscribe(events.EventImpersonationStarted, a.handleImpersonation)
	a.dispatcher.Subscribe(events.EventImpersonationEnded, a.handleImpersonation)
}

func (a *AuditService) handleEvent(_ context.Context, event events.Event) error {
	a.logger.Info("audit",
		zap.String("event_id", event.ID),
		zap.String("type", string(event.Type)),
		zap.String("actor_id", event.Actor.UserID),
		zap.String("actor_role", string(event.Actor.Role)))
	return nil
}

func (a *AuditService) handleImpersonation(ctx context.Context, event events.Event) error {
	a.logger.Info("audit",
		zap.String("event_id", event.ID),
		zap.String("type", string(event.Type)),
		zap.String("actor_id", event.Actor.UserID),
		zap.Any("payload", event.Payload))
	a.sendWebhookStub(ctx, event)
	a.sendEmailStub(ctx, event)
	return nil
}

func (a *AuditService) sendWebhookStub(_ context.Context, event events.Event) {
	if a.cfg.WebhookURL == "" {
		return
	}
	a.logger.Debug("audit webhook",
		zap.String("url", a.cfg.WebhookURL),
		zap.String("event_type", string(event.Type)))
}

func (a *AuditService) sendEmailStub(_ context.Context, event events.Event) {
	if a.cfg.EmailFrom == "" {
		return
	}
	a.logger.Debug("audit email",
		zap.String("from", a.cfg.EmailFrom),
		zap.String("event_type", string(event.Type)))
}
