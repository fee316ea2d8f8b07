package usecase

import (
	"context"
	"log/slog"

	"github.com/bibbank/bureau-service/internal/application/dto"
	"github.com/bibbank/bureau-service/internal/domain/model"
	"github.com/bibbank/bureau-service/internal/domain/port"
	"github.com/bibbank/bureau-service/internal/domain/valueobject"
)

// ResolvedIdentity is a bureau-eligible identity. Degraded is set when PAN
// verification failed and the identity was built from the mobile lookup only.
type ResolvedIdentity struct {
	Identity model.ApplicantIdentity
	Degraded bool
}

// ResolveIdentityUseCase turns a phone number (and optional PAN) into an
// applicant identity.
type ResolveIdentityUseCase struct {
	lookup port.IdentityLookup
	logger *slog.Logger
}

// NewResolveIdentityUseCase wires dependencies.
func NewResolveIdentityUseCase(lookup port.IdentityLookup, logger *slog.Logger) *ResolveIdentityUseCase {
	return &ResolveIdentityUseCase{lookup: lookup, logger: logger}
}

// Execute resolves the identity for req.
func (uc *ResolveIdentityUseCase) Execute(ctx context.Context, req dto.ResolveIdentityRequest) (dto.IdentityResponse, error) {
	resolved, err := uc.Resolve(ctx, req.Phone, req.PAN)
	if err != nil {
		return dto.IdentityResponse{}, err
	}
	return toIdentityResponse(resolved), nil
}

// Resolve runs mobile lookup (when pan is empty) followed by PAN
// verification. Non-success lookups are fatal with their reason code.
func (uc *ResolveIdentityUseCase) Resolve(ctx context.Context, phone, pan string) (ResolvedIdentity, error) {
	caller := model.NewApplicantIdentity(model.IdentityFields{Phone: phone, PAN: pan})
	if caller.Phone() == "" {
		return ResolvedIdentity{}, model.NewPipelineError(valueobject.ReasonInvalidRequest, "phone is required", nil)
	}
	log := uc.logger.With("phone_suffix", model.MaskedSuffix(caller.Phone()))

	// 1. Mobile lookup when the PAN is unknown.
	base := caller
	if base.PAN() == "" {
		found := uc.lookup.LookupByMobile(ctx, caller.Phone())
		if !found.Outcome.IsSuccess() {
			log.WarnContext(ctx, "mobile lookup failed", "outcome", found.Outcome.String(), "error", found.Err)
			return ResolvedIdentity{}, lookupError(found, "no identity found for phone")
		}
		base = caller.Merge(model.NewApplicantIdentity(found.Fields))
		if base.PAN() == "" {
			return ResolvedIdentity{}, model.NewPipelineError(valueobject.ReasonIdentityNotFound,
				"mobile lookup returned no PAN", nil)
		}
	}

	// 2. Enrich via PAN verification. The caller's phone always wins.
	enriched := uc.lookup.VerifyPAN(ctx, base.PAN())
	if enriched.Outcome.IsSuccess() {
		identity := base.Merge(model.NewApplicantIdentity(enriched.Fields)).Merge(caller)
		log.InfoContext(ctx, "identity resolved", "pan_suffix", identity.PANSuffix())
		return ResolvedIdentity{Identity: identity}, nil
	}

	// 3. Degraded path: the mobile lookup alone must carry usable demographics.
	if base.FirstName() != "" && base.DOB() != "" {
		log.WarnContext(ctx, "pan verification failed, using mobile lookup identity",
			"pan_suffix", base.PANSuffix(),
			"outcome", enriched.Outcome.String(),
		)
		return ResolvedIdentity{Identity: base.Merge(caller), Degraded: true}, nil
	}
	log.WarnContext(ctx, "pan verification failed", "pan_suffix", base.PANSuffix(), "outcome", enriched.Outcome.String())
	return ResolvedIdentity{}, lookupError(enriched, "PAN verification failed")
}

func lookupError(r port.IdentityLookupResult, fallback string) error {
	reason := r.Outcome.ReasonCode()
	if reason.IsZero() {
		reason = valueobject.ReasonUpstreamUnavailable
	}
	msg := r.Message
	if msg == "" {
		msg = fallback
	}
	return model.NewPipelineError(reason, msg, r.Err)
}

func toIdentityResponse(r ResolvedIdentity) dto.IdentityResponse {
	f := r.Identity.Fields()
	return dto.IdentityResponse{
		PAN:       f.PAN,
		FirstName: f.FirstName,
		LastName:  f.LastName,
		DOB:       f.DOB,
		Gender:    f.Gender,
		Phone:     f.Phone,
		Email:     f.Email,
		Pincode:   f.Pincode,
		State:     f.State,
		City:      f.City,
		Address:   f.Address,
		Degraded:  r.Degraded,
	}
}
