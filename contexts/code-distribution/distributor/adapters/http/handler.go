package httpadapter

import (
	"context"
	"encoding/hex"
	"log/slog"
	"math/big"
	"time"

	"daedalus/contexts/code-distribution/distributor/application/commands"
	"daedalus/contexts/code-distribution/distributor/application/queries"
	"daedalus/contexts/code-distribution/distributor/domain/entities"
	domainerrors "daedalus/contexts/code-distribution/distributor/domain/errors"
	"daedalus/contexts/code-distribution/distributor/ports"
	httptransport "daedalus/contexts/code-distribution/distributor/transport/http"
	"daedalus/internal/shared/chain"
)

type Handler struct {
	Commands commands.UseCase
	Queries  queries.UseCase
	Logger   *slog.Logger
}

func (h Handler) AddDistributionHandler(
	ctx context.Context,
	req httptransport.AddDistributionRequest,
) (httptransport.AddDistributionResponse, error) {
	codeID, err := chain.ParseHash(req.CodeID)
	if err != nil {
		return httptransport.AddDistributionResponse{}, domainerrors.ErrInvalidDistributorInput
	}
	var initializerID chain.Hash
	if req.InitializerID != "" {
		initializerID, err = chain.ParseHash(req.InitializerID)
		if err != nil {
			return httptransport.AddDistributionResponse{}, domainerrors.ErrInvalidDistributorInput
		}
	}
	distributorsID, err := h.Commands.AddDistribution(ctx, commands.AddDistributionCommand{
		CodeID:        codeID,
		InitializerID: initializerID,
	})
	if err != nil {
		return httptransport.AddDistributionResponse{}, err
	}
	return httptransport.AddDistributionResponse{
		Status:         "success",
		DistributorsID: distributorsID.Hex(),
	}, nil
}

func (h Handler) RemoveDistributionHandler(ctx context.Context, distributorsIDRaw string) error {
	distributorsID, err := chain.ParseHash(distributorsIDRaw)
	if err != nil {
		return domainerrors.ErrInvalidDistributorInput
	}
	return h.Commands.RemoveDistribution(ctx, commands.RemoveDistributionCommand{
		DistributorsID: distributorsID,
	})
}

func (h Handler) InstantiateHandler(
	ctx context.Context,
	distributorsIDRaw string,
	req httptransport.InstantiateRequest,
) (httptransport.InstantiateResponse, error) {
	distributorsID, err := chain.ParseHash(distributorsIDRaw)
	if err != nil {
		return httptransport.InstantiateResponse{}, domainerrors.ErrInvalidDistributorInput
	}
	args, err := decodeHexField(req.Args)
	if err != nil {
		return httptransport.InstantiateResponse{}, domainerrors.ErrInvalidDistributorInput
	}
	result, err := h.Commands.Instantiate(ctx, commands.InstantiateCommand{
		DistributorsID: distributorsID,
		Args:           args,
	})
	if err != nil {
		return httptransport.InstantiateResponse{}, err
	}
	instances := make([]string, 0, len(result.Instances))
	for _, instance := range result.Instances {
		instances = append(instances, instance.Hex())
	}
	return httptransport.InstantiateResponse{
		Status:         "success",
		DistributorsID: result.DistributorsID.Hex(),
		InstanceID:     result.InstanceID,
		Instances:      instances,
		Name:           result.Name,
		Version:        result.Version,
	}, nil
}

func (h Handler) ListDistributionsHandler(ctx context.Context) (httptransport.ListDistributionsResponse, error) {
	ids, err := h.Queries.GetDistributions(ctx)
	if err != nil {
		return httptransport.ListDistributionsResponse{}, err
	}
	items := make([]string, 0, len(ids))
	for _, id := range ids {
		items = append(items, id.Hex())
	}
	return httptransport.ListDistributionsResponse{
		Items: items,
		Count: len(items),
	}, nil
}

func (h Handler) GetDistributionHandler(
	ctx context.Context,
	distributorsIDRaw string,
) (httptransport.DistributionDTO, error) {
	distributorsID, err := chain.ParseHash(distributorsIDRaw)
	if err != nil {
		return httptransport.DistributionDTO{}, domainerrors.ErrInvalidDistributorInput
	}
	component, err := h.Queries.GetDistributionComponent(ctx, distributorsID)
	if err != nil {
		return httptransport.DistributionDTO{}, err
	}
	return toDistributionDTO(component), nil
}

func (h Handler) GetInstanceHandler(
	ctx context.Context,
	addressRaw string,
) (httptransport.InstanceDTO, error) {
	address, err := chain.ParseAddress(addressRaw)
	if err != nil {
		return httptransport.InstanceDTO{}, domainerrors.ErrInvalidDistributorInput
	}
	record, err := h.Queries.GetInstance(ctx, address)
	if err != nil {
		return httptransport.InstanceDTO{}, err
	}
	return httptransport.InstanceDTO{
		Address:        record.Address.Hex(),
		InstanceID:     record.InstanceID,
		DistributorsID: record.DistributorsID.Hex(),
		InstantiatedAt: record.InstantiatedAt.UTC().Format(time.RFC3339),
	}, nil
}

func (h Handler) BeforeCallHandler(
	ctx context.Context,
	req httptransport.CallCheckRequest,
) (httptransport.BeforeCallResponse, error) {
	input, err := toCallInput(req)
	if err != nil {
		return httptransport.BeforeCallResponse{}, err
	}
	callContext, err := h.Queries.BeforeCall(ctx, input)
	if err != nil {
		return httptransport.BeforeCallResponse{}, err
	}
	return httptransport.BeforeCallResponse{
		Status:      "success",
		CallContext: hex.EncodeToString(callContext),
	}, nil
}

func (h Handler) AfterCallHandler(
	ctx context.Context,
	req httptransport.AfterCallRequest,
) (httptransport.AfterCallResponse, error) {
	input, err := toCallInput(req.Call)
	if err != nil {
		return httptransport.AfterCallResponse{}, err
	}
	beforeCallResult, err := decodeHexField(req.BeforeCallResult)
	if err != nil {
		return httptransport.AfterCallResponse{}, domainerrors.ErrInvalidDistributorInput
	}
	if err := h.Queries.AfterCall(ctx, input, beforeCallResult); err != nil {
		return httptransport.AfterCallResponse{}, err
	}
	return httptransport.AfterCallResponse{Status: "success"}, nil
}

func toCallInput(req httptransport.CallCheckRequest) (ports.CallInput, error) {
	instance, err := chain.ParseAddress(req.Instance)
	if err != nil {
		return ports.CallInput{}, domainerrors.ErrInvalidDistributorInput
	}
	caller, err := chain.ParseAddress(req.Caller)
	if err != nil {
		return ports.CallInput{}, domainerrors.ErrInvalidDistributorInput
	}
	input := ports.CallInput{
		Instance: instance,
		Caller:   caller,
	}
	if req.Target != "" {
		target, err := chain.ParseAddress(req.Target)
		if err != nil {
			return ports.CallInput{}, domainerrors.ErrInvalidDistributorInput
		}
		input.Config.Target = target
	}
	if req.Selector != "" {
		selector, err := decodeHexField(req.Selector)
		if err != nil || len(selector) != len(input.Selector) {
			return ports.CallInput{}, domainerrors.ErrInvalidDistributorInput
		}
		copy(input.Selector[:], selector)
	}
	if req.Value != "" {
		value, ok := new(big.Int).SetString(req.Value, 10)
		if !ok || value.Sign() < 0 {
			return ports.CallInput{}, domainerrors.ErrInvalidDistributorInput
		}
		input.Value = value
	}
	if req.Data != "" {
		data, err := decodeHexField(req.Data)
		if err != nil {
			return ports.CallInput{}, domainerrors.ErrInvalidDistributorInput
		}
		input.Data = data
	}
	return input, nil
}

func toDistributionDTO(component entities.DistributionComponent) httptransport.DistributionDTO {
	return httptransport.DistributionDTO{
		DistributorsID: component.DistributorsID.Hex(),
		CodeID:         component.CodeID.Hex(),
		InitializerID:  component.InitializerID.Hex(),
		Initializer:    component.Initializer.Hex(),
		AddedAt:        component.AddedAt.UTC().Format(time.RFC3339),
	}
}

func decodeHexField(raw string) ([]byte, error) {
	if raw == "" {
		return nil, nil
	}
	if len(raw) >= 2 && raw[0] == '0' && (raw[1] == 'x' || raw[1] == 'X') {
		raw = raw[2:]
	}
	return hex.DecodeString(raw)
}
