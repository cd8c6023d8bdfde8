package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"parcel-dispatch-service/internal/domain"
	"parcel-dispatch-service/internal/platform/metrics"
	"parcel-dispatch-service/internal/platform/obs"
	"parcel-dispatch-service/internal/ports"
	"time"
)

const proofImageTimeLayout = "20060102150405"

// StatusUpdate is one request to move a parcel to its next lifecycle state.
type StatusUpdate struct {
	Status     domain.Status
	Remark     string
	ProofImage []byte // optional PNG payload
}

// StatusUpdateResult reports the persisted parcel and, separately, a proof image failure
// that did not prevent the status change.
type StatusUpdateResult struct {
	Parcel     *domain.Parcel
	ProofRef   string
	ProofError error
}

// StatusUpdater is the only caller of Parcel.Advance. It applies a transition,
// stores an optional proof of delivery, persists the result and announces it.
type StatusUpdater struct {
	store  ports.ParcelStore
	files  ports.FileStore            // optional
	events ports.StatusEventPublisher // optional
	now    func() time.Time
}

func NewStatusUpdater(store ports.ParcelStore, files ports.FileStore, events ports.StatusEventPublisher) *StatusUpdater {
	return &StatusUpdater{
		store:  store,
		files:  files,
		events: events,
		now:    time.Now,
	}
}

// Advance moves parcelID one step forward to update.Status.
//
// Rejected transitions return domain.ErrInvalidStatus or a *domain.TransitionError and write nothing.
// domain.ErrConcurrentUpdate means another writer changed the parcel between load and save.
func (u *StatusUpdater) Advance(ctx context.Context, parcelID string, update StatusUpdate) (_ *StatusUpdateResult, err error) {
	defer obs.Time(ctx, "services.StatusUpdater.Advance")(&err)
	defer func() {
		metrics.StatusTransitions.WithLabelValues(update.Status.String(), transitionOutcome(err)).Inc()
	}()

	parcel, err := u.store.GetParcel(ctx, parcelID)
	if err != nil {
		return nil, fmt.Errorf("advance status: load parcel %s: %w", parcelID, err)
	}

	previous := parcel.Status
	now := u.now()

	if err := parcel.Advance(update.Status, now, update.Remark); err != nil {
		return nil, fmt.Errorf("advance status: %w", err)
	}

	result := &StatusUpdateResult{Parcel: parcel}

	if len(update.ProofImage) > 0 {
		ref, perr := u.storeProof(ctx, parcel.ParcelID, now, update.ProofImage)
		if perr != nil {
			slog.WarnContext(ctx, "proof of delivery not stored",
				"req_id", obs.RequestID(ctx), "parcel_id", parcel.ParcelID, "err", perr)
			result.ProofError = perr
		} else {
			result.ProofRef = ref
			parcel.AppendRemark("Delivery Image: " + ref)
		}
	}

	if err := u.store.SaveStatus(ctx, parcel, previous); err != nil {
		u.discardProof(ctx, parcel.ParcelID, result.ProofRef)
		return nil, fmt.Errorf("advance status: save parcel %s: %w", parcelID, err)
	}

	u.publish(ctx, parcel, previous, now)

	return result, nil
}

func (u *StatusUpdater) storeProof(ctx context.Context, parcelID string, now time.Time, image []byte) (string, error) {
	if u.files == nil {
		return "", errors.New("store proof: no file store configured")
	}

	name := fmt.Sprintf("%s_%s.png", parcelID, now.Format(proofImageTimeLayout))
	ref, err := u.files.Save(ctx, name, image)
	if err != nil {
		return "", fmt.Errorf("store proof %s: %w", name, err)
	}
	return ref, nil
}

// discardProof removes an image whose transition was not persisted. Failures are only logged.
func (u *StatusUpdater) discardProof(ctx context.Context, parcelID, ref string) {
	if ref == "" {
		return
	}
	if err := u.files.Delete(context.WithoutCancel(ctx), ref); err != nil {
		slog.WarnContext(ctx, "orphaned proof of delivery not removed",
			"req_id", obs.RequestID(ctx), "parcel_id", parcelID, "ref", ref, "err", err)
	}
}

// publish is best effort: the transition is already persisted.
func (u *StatusUpdater) publish(ctx context.Context, parcel *domain.Parcel, previous domain.Status, now time.Time) {
	if u.events == nil {
		return
	}

	event := ports.StatusChanged{
		ParcelID:    parcel.ParcelID,
		AgentID:     parcel.AgentID,
		From:        previous.String(),
		To:          parcel.Status.String(),
		Remarks:     parcel.Remarks,
		DeliveredAt: parcel.DeliveredAt,
		OccurredAt:  now,
	}
	if err := u.events.PublishStatusChanged(ctx, event); err != nil {
		slog.WarnContext(ctx, "status event not published",
			"req_id", obs.RequestID(ctx), "parcel_id", parcel.ParcelID, "err", err)
	}
}

func transitionOutcome(err error) string {
	switch {
	case err == nil:
		return "applied"
	case errors.Is(err, domain.ErrInvalidStatus):
		return "invalid_status"
	case errors.Is(err, domain.ErrIllegalTransition):
		return "illegal_transition"
	case errors.Is(err, domain.ErrParcelNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrConcurrentUpdate):
		return "conflict"
	default:
		return "error"
	}
}
