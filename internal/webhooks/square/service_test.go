package squarewebhook

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/rcavanagh/orderdesk-backend/pkg/db/models"
	"github.com/rcavanagh/orderdesk-backend/pkg/enums"
	pkgerrors "github.com/rcavanagh/orderdesk-backend/pkg/errors"
)

type stubLedgerVerifier struct {
	calls  []string
	actors []uuid.UUID
	entry  *models.LedgerEntry
	err    error
}

func (s *stubLedgerVerifier) VerifyByProcessorTransactionID(ctx context.Context, processorTxID string, actorUserID uuid.UUID) (*models.LedgerEntry, error) {
	s.calls = append(s.calls, processorTxID)
	s.actors = append(s.actors, actorUserID)
	if s.err != nil {
		return nil, s.err
	}
	return s.entry, nil
}

func paymentEvent(eventType, paymentID string) *SquareWebhookEvent {
	return &SquareWebhookEvent{
		EventID: "evt_" + uuid.NewString(),
		Type:    eventType,
		Data: SquareWebhookData{
			Type: "payment",
			ID:   paymentID,
			Object: SquareWebhookObject{
				Payment: &SquareWebhookPayment{ID: paymentID, Status: "COMPLETED"},
			},
		},
	}
}

func TestService_HandlePaymentUpdatedVerifiesEntry(t *testing.T) {
	verifier := &stubLedgerVerifier{
		entry: &models.LedgerEntry{
			ID:            uuid.New(),
			PaymentNumber: "PAY-00007",
			Status:        enums.EntryStatusVerified,
		},
	}
	service, err := NewService(ServiceParams{Ledger: verifier})
	if err != nil {
		t.Fatalf("setup service: %v", err)
	}

	if err := service.HandleEvent(context.Background(), paymentEvent("payment.updated", "sq_pay_1")); err != nil {
		t.Fatalf("handle event: %v", err)
	}
	if len(verifier.calls) != 1 || verifier.calls[0] != "sq_pay_1" {
		t.Fatalf("expected one verification for sq_pay_1, got %v", verifier.calls)
	}
	if verifier.actors[0] != systemActorID {
		t.Fatalf("expected system actor, got %s", verifier.actors[0])
	}
}

func TestService_PaymentIDFallsBackToDataID(t *testing.T) {
	verifier := &stubLedgerVerifier{entry: &models.LedgerEntry{ID: uuid.New(), Status: enums.EntryStatusVerified}}
	service, err := NewService(ServiceParams{Ledger: verifier})
	if err != nil {
		t.Fatalf("setup service: %v", err)
	}

	event := paymentEvent("payment.created", "sq_pay_2")
	event.Data.Object.Payment = nil

	if err := service.HandleEvent(context.Background(), event); err != nil {
		t.Fatalf("handle event: %v", err)
	}
	if len(verifier.calls) != 1 || verifier.calls[0] != "sq_pay_2" {
		t.Fatalf("expected fallback to data id, got %v", verifier.calls)
	}
}

func TestService_UnmatchedPaymentIsAcknowledged(t *testing.T) {
	verifier := &stubLedgerVerifier{err: pkgerrors.New(pkgerrors.CodeNotFound, "no ledger entry for processor transaction")}
	service, err := NewService(ServiceParams{Ledger: verifier})
	if err != nil {
		t.Fatalf("setup service: %v", err)
	}

	if err := service.HandleEvent(context.Background(), paymentEvent("payment.updated", "sq_unknown")); err != nil {
		t.Fatalf("unmatched payment should be acknowledged, got %v", err)
	}
}

func TestService_VerificationFailureIsAcknowledged(t *testing.T) {
	verifier := &stubLedgerVerifier{err: pkgerrors.New(pkgerrors.CodeVerificationFailed, "amount mismatch")}
	service, err := NewService(ServiceParams{Ledger: verifier})
	if err != nil {
		t.Fatalf("setup service: %v", err)
	}

	if err := service.HandleEvent(context.Background(), paymentEvent("payment.updated", "sq_mismatch")); err != nil {
		t.Fatalf("verification failure should be acknowledged, got %v", err)
	}
}

func TestService_TransientFailurePropagates(t *testing.T) {
	verifier := &stubLedgerVerifier{err: pkgerrors.New(pkgerrors.CodeVerificationUnavailable, "processor unreachable")}
	service, err := NewService(ServiceParams{Ledger: verifier})
	if err != nil {
		t.Fatalf("setup service: %v", err)
	}

	err = service.HandleEvent(context.Background(), paymentEvent("payment.updated", "sq_retry"))
	if !pkgerrors.HasCode(err, pkgerrors.CodeVerificationUnavailable) {
		t.Fatalf("expected transient error to propagate, got %v", err)
	}
}

func TestService_IgnoresUnrelatedEventTypes(t *testing.T) {
	verifier := &stubLedgerVerifier{}
	service, err := NewService(ServiceParams{Ledger: verifier})
	if err != nil {
		t.Fatalf("setup service: %v", err)
	}

	if err := service.HandleEvent(context.Background(), paymentEvent("refund.created", "sq_refund")); err != nil {
		t.Fatalf("unrelated event should be ignored, got %v", err)
	}
	if len(verifier.calls) != 0 {
		t.Fatalf("verifier should not be called for unrelated events")
	}
}

func TestService_MissingPaymentIDRejected(t *testing.T) {
	service, err := NewService(ServiceParams{Ledger: &stubLedgerVerifier{}})
	if err != nil {
		t.Fatalf("setup service: %v", err)
	}

	event := paymentEvent("payment.updated", "")
	event.Data.Object.Payment = nil

	err = service.HandleEvent(context.Background(), event)
	if !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
