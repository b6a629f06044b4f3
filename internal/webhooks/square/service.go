package squarewebhook

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/rcavanagh/orderdesk-backend/pkg/db/models"
	pkgerrors "github.com/rcavanagh/orderdesk-backend/pkg/errors"
	"github.com/rcavanagh/orderdesk-backend/pkg/logger"
)

// systemActorID is the identity recorded on audit rows for verifications
// triggered by processor webhooks rather than a signed-in user.
var systemActorID = uuid.MustParse("00000000-0000-0000-0000-000000000001")

type ledgerVerifier interface {
	VerifyByProcessorTransactionID(ctx context.Context, processorTxID string, actorUserID uuid.UUID) (*models.LedgerEntry, error)
}

type ServiceParams struct {
	Ledger ledgerVerifier
	Logger *logger.Logger
}

type Service struct {
	ledger ledgerVerifier
	logg   *logger.Logger
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Ledger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "ledger verifier required")
	}
	return &Service{
		ledger: params.Ledger,
		logg:   params.Logger,
	}, nil
}

type SquareWebhookEvent struct {
	EventID string            `json:"event_id"`
	Type    string            `json:"type"`
	Data    SquareWebhookData `json:"data"`
}

type SquareWebhookData struct {
	Type   string              `json:"type"`
	ID     string              `json:"id"`
	Object SquareWebhookObject `json:"object"`
}

type SquareWebhookObject struct {
	Payment *SquareWebhookPayment `json:"payment"`
}

type SquareWebhookPayment struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// HandleEvent processes Square payment lifecycle events. Events for
// transactions the ledger does not track, and payments that fail
// verification, are acknowledged so the processor stops redelivering;
// transient failures propagate and trigger a retry.
func (s *Service) HandleEvent(ctx context.Context, event *SquareWebhookEvent) error {
	if event == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "square event required")
	}

	switch strings.ToLower(event.Type) {
	case "payment.created", "payment.updated":
		paymentID := ""
		if event.Data.Object.Payment != nil {
			paymentID = strings.TrimSpace(event.Data.Object.Payment.ID)
		}
		if paymentID == "" {
			paymentID = strings.TrimSpace(event.Data.ID)
		}
		if paymentID == "" {
			return pkgerrors.New(pkgerrors.CodeValidation, "payment id missing")
		}
		return s.verifyPayment(ctx, paymentID)
	default:
		return nil
	}
}

func (s *Service) verifyPayment(ctx context.Context, paymentID string) error {
	entry, err := s.ledger.VerifyByProcessorTransactionID(ctx, paymentID, systemActorID)
	if err != nil {
		switch {
		case pkgerrors.HasCode(err, pkgerrors.CodeNotFound):
			s.info(ctx, "square.webhook.unmatched", map[string]any{"payment_id": paymentID})
			return nil
		case pkgerrors.HasCode(err, pkgerrors.CodeVerificationFailed):
			s.info(ctx, "square.webhook.verification_failed", map[string]any{"payment_id": paymentID})
			return nil
		default:
			return err
		}
	}
	s.info(ctx, "square.webhook.verified", map[string]any{
		"payment_id":     paymentID,
		"entry_id":       entry.ID.String(),
		"payment_number": entry.PaymentNumber,
		"status":         string(entry.Status),
	})
	return nil
}

func (s *Service) info(ctx context.Context, msg string, fields map[string]any) {
	if s.logg == nil {
		return
	}
	s.logg.Info(s.logg.WithFields(ctx, fields), msg)
}
