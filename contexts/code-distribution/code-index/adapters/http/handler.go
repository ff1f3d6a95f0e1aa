package httpadapter

import (
	"context"
	"log/slog"
	"time"

	"daedalus/contexts/code-distribution/code-index/application"
	"daedalus/contexts/code-distribution/code-index/domain/entities"
	domainerrors "daedalus/contexts/code-distribution/code-index/domain/errors"
	httptransport "daedalus/contexts/code-distribution/code-index/transport/http"
	"daedalus/internal/shared/chain"
)

type Handler struct {
	Service application.Service
	Logger  *slog.Logger
}

func (h Handler) RegisterArtifactHandler(
	ctx context.Context,
	req httptransport.RegisterArtifactRequest,
) (httptransport.RegisterArtifactResponse, error) {
	fingerprint, err := chain.ParseHash(req.Fingerprint)
	if err != nil {
		return httptransport.RegisterArtifactResponse{}, domainerrors.ErrInvalidArtifactInput
	}
	address, err := chain.ParseAddress(req.Address)
	if err != nil {
		return httptransport.RegisterArtifactResponse{}, domainerrors.ErrInvalidArtifactInput
	}
	artifact, created, err := h.Service.Register(ctx, fingerprint, address)
	if err != nil {
		return httptransport.RegisterArtifactResponse{}, err
	}
	return httptransport.RegisterArtifactResponse{
		Status:  "success",
		Created: created,
		Data:    toDTO(artifact),
	}, nil
}

func (h Handler) GetArtifactHandler(
	ctx context.Context,
	fingerprintRaw string,
) (httptransport.ArtifactDTO, error) {
	fingerprint, err := chain.ParseHash(fingerprintRaw)
	if err != nil {
		return httptransport.ArtifactDTO{}, domainerrors.ErrInvalidArtifactInput
	}
	artifact, err := h.Service.GetArtifact(ctx, fingerprint)
	if err != nil {
		return httptransport.ArtifactDTO{}, err
	}
	return toDTO(artifact), nil
}

func (h Handler) ListArtifactsHandler(
	ctx context.Context,
	limit int,
	offset int,
) (httptransport.ListArtifactsResponse, error) {
	artifacts, err := h.Service.ListArtifacts(ctx, limit, offset)
	if err != nil {
		return httptransport.ListArtifactsResponse{}, err
	}
	items := make([]httptransport.ArtifactDTO, 0, len(artifacts))
	for _, artifact := range artifacts {
		items = append(items, toDTO(artifact))
	}
	return httptransport.ListArtifactsResponse{
		Items: items,
		Count: len(items),
	}, nil
}

func toDTO(artifact entities.CodeArtifact) httptransport.ArtifactDTO {
	return httptransport.ArtifactDTO{
		Fingerprint:  artifact.Fingerprint.Hex(),
		Address:      artifact.Address.Hex(),
		RegisteredAt: artifact.RegisteredAt.UTC().Format(time.RFC3339),
	}
}
